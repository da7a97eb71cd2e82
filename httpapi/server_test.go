package httpapi

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/Chia-Network/offer-codes/codec"
	"github.com/Chia-Network/offer-codes/exchange"
	"github.com/Chia-Network/offer-codes/keys"
	"github.com/Chia-Network/offer-codes/metrics"
	"github.com/Chia-Network/offer-codes/offer"
	"github.com/Chia-Network/offer-codes/storage"
	"github.com/Chia-Network/offer-codes/storage/memstore"
)

type harness struct {
	srv    *Server
	ts     *httptest.Server
	priv   ed25519.PrivateKey
	scheme offer.Scheme
	m      *metrics.Metrics
}

type harnessOpt func(*exchange.Options, *Options)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

func TestNewLeavesGinGlobalsAlone(t *testing.T) {
	w, ew := gin.DefaultWriter, gin.DefaultErrorWriter
	newHarness(t)
	require.Equal(t, gin.TestMode, gin.Mode())
	require.True(t, w == gin.DefaultWriter, "DefaultWriter replaced")
	require.True(t, ew == gin.DefaultErrorWriter, "DefaultErrorWriter replaced")
}

func newHarness(t *testing.T, opts ...harnessOpt) *harness {
	t.Helper()
	seed := bytes.Repeat([]byte{7}, ed25519.SeedSize)
	priv := ed25519.NewKeyFromSeed(seed)
	pk, err := keys.PublicKeyFromSeed(seed)
	require.NoError(t, err)
	gate, err := keys.NewGate(pk)
	require.NoError(t, err)

	m := metrics.New()
	eo := exchange.Options{
		Codec:    codec.New(),
		Verifier: gate,
		Store:    memstore.New(),
		Scheme:   offer.DefaultScheme(),
		Logger:   zaptest.NewLogger(t),
		Metrics:  m,
	}
	ho := Options{Logger: zaptest.NewLogger(t), Metrics: m}
	for _, fn := range opts {
		fn(&eo, &ho)
	}
	svc, err := exchange.New(eo)
	require.NoError(t, err)
	ho.Service = svc

	srv, err := New(ho)
	require.NoError(t, err)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		ts.Close()
		srv.Close()
	})
	return &harness{srv: srv, ts: ts, priv: priv, scheme: svc.Scheme(), m: m}
}

func (h *harness) signed(t *testing.T, payload []byte) (string, string) {
	t.Helper()
	text, err := codec.New().Encode(payload)
	require.NoError(t, err)
	sig := keys.SignEd25519(h.scheme.Hash(payload).Digest, h.priv)
	return text, hex.EncodeToString(sig)
}

func (h *harness) post(t *testing.T, path string, body any) (*http.Response, map[string]any) {
	t.Helper()
	var raw []byte
	switch b := body.(type) {
	case string:
		raw = []byte(b)
	default:
		var err error
		raw, err = json.Marshal(b)
		require.NoError(t, err)
	}
	resp, err := http.Post(h.ts.URL+path, "application/json", bytes.NewReader(raw))
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	out := map[string]any{}
	if len(data) > 0 {
		require.NoError(t, json.Unmarshal(data, &out), "body: %s", data)
	}
	return resp, out
}

func errorCode(body map[string]any) string {
	e, _ := body["error"].(map[string]any)
	s, _ := e["code"].(string)
	return s
}

func TestUploadDownloadRoundTrip(t *testing.T) {
	h := newHarness(t)
	text, sig := h.signed(t, []byte("1 XCH for 250 CAT"))

	resp, body := h.post(t, "/upload_offer", map[string]string{"offer": text, "signature": sig})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	code, _ := body["code"].(string)
	require.Len(t, code, 2*offer.DefaultCodeWidth)
	require.NotEmpty(t, body["cid"])
	require.True(t, strings.HasPrefix(resp.Header.Get(headerRequestID), "req_"))

	resp, body = h.post(t, "/download_offer", map[string]string{"code": code})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, text, body["offer"])

	// Same offer, same code.
	resp, again := h.post(t, "/upload_offer", map[string]string{"offer": text, "signature": "0x" + sig})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, code, again["code"])
}

func TestDownloadUnknownCodeIsNull(t *testing.T) {
	h := newHarness(t)
	resp, body := h.post(t, "/download_offer", map[string]string{"code": strings.Repeat("ab", offer.DefaultCodeWidth)})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	v, ok := body["offer"]
	require.True(t, ok)
	require.Nil(t, v)
}

func TestUploadErrors(t *testing.T) {
	h := newHarness(t)
	text, sig := h.signed(t, []byte("offer under test"))
	_, otherSig := h.signed(t, []byte("different offer"))

	tests := []struct {
		name   string
		body   any
		status int
		code   string
	}{
		{"malformed json", `{"offer":`, http.StatusBadRequest, codeBadRequest},
		{"missing signature", map[string]string{"offer": text}, http.StatusBadRequest, codeBadRequest},
		{"non-hex signature", map[string]string{"offer": text, "signature": "zz"}, http.StatusBadRequest, codeBadRequest},
		{"undecodable offer", map[string]string{"offer": "offer1notvalid", "signature": sig}, http.StatusInternalServerError, codeDecode},
		{"wrong signature", map[string]string{"offer": text, "signature": otherSig}, http.StatusUnauthorized, codeUnauthorized},
		{"empty signature", map[string]string{"offer": text, "signature": ""}, http.StatusUnauthorized, codeUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := h.post(t, "/upload_offer", tt.body)
			require.Equal(t, tt.status, resp.StatusCode)
			require.Equal(t, tt.code, errorCode(body))
			require.Equal(t, resp.Header.Get(headerRequestID), body["request_id"])
		})
	}

	resp, body := h.post(t, "/download_offer", map[string]string{"code": strings.Repeat("ab", offer.DefaultCodeWidth)})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Nil(t, body["offer"], "rejected uploads must not be stored")
}

func TestDownloadMalformedCode(t *testing.T) {
	h := newHarness(t)
	for _, code := range []string{"", "xyz", "abcd", strings.Repeat("ab", 32)} {
		resp, body := h.post(t, "/download_offer", map[string]string{"code": code})
		require.Equal(t, http.StatusBadRequest, resp.StatusCode, "code %q", code)
		require.Equal(t, codeBadRequest, errorCode(body))
	}
}

func TestUploadCollisionIsConflict(t *testing.T) {
	narrow, err := offer.NewScheme("sha256", 1)
	require.NoError(t, err)
	h := newHarness(t, func(eo *exchange.Options, _ *Options) { eo.Scheme = narrow })

	first := []byte("first writer")
	var second []byte
	for i := 0; second == nil; i++ {
		candidate := []byte{byte(i), byte(i >> 8), 'y'}
		if narrow.Code(candidate).Equal(narrow.Code(first)) {
			second = candidate
		}
	}

	text1, sig1 := h.signed(t, first)
	resp, _ := h.post(t, "/upload_offer", map[string]string{"offer": text1, "signature": sig1})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	text2, sig2 := h.signed(t, second)
	resp, body := h.post(t, "/upload_offer", map[string]string{"offer": text2, "signature": sig2})
	require.Equal(t, http.StatusConflict, resp.StatusCode)
	require.Equal(t, codeCollision, errorCode(body))
}

type brokenStore struct{ err error }

func (b brokenStore) Put(context.Context, offer.Code, []byte) error { return b.err }
func (b brokenStore) Get(context.Context, offer.Code) ([]byte, bool, error) {
	return nil, false, b.err
}

var _ storage.Store = brokenStore{}

func TestStoreFailureIsServerError(t *testing.T) {
	h := newHarness(t, func(eo *exchange.Options, _ *Options) {
		eo.Store = brokenStore{err: errors.New("database is locked")}
	})
	text, sig := h.signed(t, []byte("offer"))

	resp, body := h.post(t, "/upload_offer", map[string]string{"offer": text, "signature": sig})
	require.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	require.Equal(t, codeStore, errorCode(body))
	msg := body["error"].(map[string]any)["message"].(string)
	require.NotContains(t, msg, "database is locked")

	resp, body = h.post(t, "/download_offer", map[string]string{"code": strings.Repeat("00", offer.DefaultCodeWidth)})
	require.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	require.Equal(t, codeStore, errorCode(body))

	res, err := http.Get(h.ts.URL + "/health")
	require.NoError(t, err)
	res.Body.Close()
	require.Equal(t, http.StatusServiceUnavailable, res.StatusCode)
}

type panicStore struct{ storage.Store }

func (panicStore) Get(context.Context, offer.Code) ([]byte, bool, error) { panic("boom") }

func TestPanicIsRecovered(t *testing.T) {
	h := newHarness(t, func(eo *exchange.Options, _ *Options) { eo.Store = panicStore{memstore.New()} })
	resp, body := h.post(t, "/download_offer", map[string]string{"code": strings.Repeat("00", offer.DefaultCodeWidth)})
	require.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	require.Equal(t, codeInternal, errorCode(body))
}

func TestHealthAndMetrics(t *testing.T) {
	h := newHarness(t)
	res, err := http.Get(h.ts.URL + "/health")
	require.NoError(t, err)
	res.Body.Close()
	require.Equal(t, http.StatusOK, res.StatusCode)

	res, err = http.Get(h.ts.URL + "/metrics")
	require.NoError(t, err)
	data, err := io.ReadAll(res.Body)
	res.Body.Close()
	require.NoError(t, err)
	require.Contains(t, string(data), `offer_codes_http_requests_total{method="GET",route="/health",status="200"} 1`)
}

func TestRequestIDIsHonoured(t *testing.T) {
	h := newHarness(t)
	req, err := http.NewRequest(http.MethodPost, h.ts.URL+"/upload_offer", strings.NewReader(`not json`))
	require.NoError(t, err)
	req.Header.Set(headerRequestID, "client-supplied-1")
	res, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer res.Body.Close()

	var body errorBody
	require.NoError(t, json.NewDecoder(res.Body).Decode(&body))
	require.Equal(t, "client-supplied-1", res.Header.Get(headerRequestID))
	require.Equal(t, "client-supplied-1", body.RequestID)
}

func TestUploadRateLimit(t *testing.T) {
	h := newHarness(t, func(_ *exchange.Options, o *Options) {
		o.RequestsPerSecond = 0.001
		o.Burst = 1
	})
	text, sig := h.signed(t, []byte("limited"))
	resp, _ := h.post(t, "/upload_offer", map[string]string{"offer": text, "signature": sig})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body := h.post(t, "/upload_offer", map[string]string{"offer": text, "signature": sig})
	require.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	require.Equal(t, codeRateLimited, errorCode(body))
	assert.Equal(t, "1", resp.Header.Get("Retry-After"))

	// Downloads are not limited.
	resp, _ = h.post(t, "/download_offer", map[string]string{"code": strings.Repeat("00", offer.DefaultCodeWidth)})
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestBodyTooLarge(t *testing.T) {
	h := newHarness(t, func(_ *exchange.Options, o *Options) { o.MaxBodyBytes = 64 })
	resp, body := h.post(t, "/upload_offer", map[string]string{"offer": strings.Repeat("q", 256), "signature": "00"})
	require.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)
	require.Equal(t, codeTooLarge, errorCode(body))
}

func TestStatusFor(t *testing.T) {
	for kind, want := range map[offer.Kind]int{
		offer.KindDecode:       http.StatusInternalServerError,
		offer.KindUnauthorized: http.StatusUnauthorized,
		offer.KindStore:        http.StatusInternalServerError,
		offer.KindEncode:       http.StatusInternalServerError,
		offer.KindCollision:    http.StatusConflict,
		offer.KindInvalid:      http.StatusBadRequest,
		"":                     http.StatusInternalServerError,
	} {
		got, _ := statusFor(kind)
		assert.Equal(t, want, got, "kind %q", kind)
	}
}

func TestRateLimiterEvictsIdleVisitors(t *testing.T) {
	rl := NewRateLimiter(1, 1)
	defer rl.Close()
	require.True(t, rl.Allow("10.0.0.1"))
	require.False(t, rl.Allow("10.0.0.1"))
	rl.evict(timeNowPlus(visitorIdle * 2))
	require.True(t, rl.Allow("10.0.0.1"))
}

func timeNowPlus(d time.Duration) time.Time { return time.Now().Add(d) }
