package client_test

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Chia-Network/offer-codes/client"
	"github.com/Chia-Network/offer-codes/codec"
	"github.com/Chia-Network/offer-codes/exchange"
	"github.com/Chia-Network/offer-codes/httpapi"
	"github.com/Chia-Network/offer-codes/keys"
	"github.com/Chia-Network/offer-codes/offer"
	"github.com/Chia-Network/offer-codes/storage/memstore"
)

func newServer(t *testing.T) (*httptest.Server, ed25519.PrivateKey) {
	t.Helper()
	seed := bytes.Repeat([]byte{3}, ed25519.SeedSize)
	pk, err := keys.PublicKeyFromSeed(seed)
	require.NoError(t, err)
	gate, err := keys.NewGate(pk)
	require.NoError(t, err)

	svc, err := exchange.New(exchange.Options{
		Codec:    codec.New(),
		Verifier: gate,
		Store:    memstore.New(),
		Logger:   zap.NewNop(),
	})
	require.NoError(t, err)
	srv, err := httpapi.New(httpapi.Options{Service: svc})
	require.NoError(t, err)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts, ed25519.NewKeyFromSeed(seed)
}

func TestUploadDownload(t *testing.T) {
	ts, priv := newServer(t)
	c := client.New(ts.URL+"/", client.WithRequestID(func() string { return "cli-test" }))
	ctx := context.Background()

	payload := []byte("offer from the reference client")
	text, err := codec.New().Encode(payload)
	require.NoError(t, err)
	sig := keys.SignEd25519(offer.SHA256.Sum(payload).Digest, priv)

	code, err := c.Upload(ctx, text, sig)
	require.NoError(t, err)
	require.Equal(t, offer.DefaultScheme().Code(payload), code)

	got, found, err := c.Download(ctx, code)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, text, got)

	_, found, err = c.Download(ctx, make(offer.Code, offer.DefaultCodeWidth))
	require.NoError(t, err)
	require.False(t, found)
}

func TestUploadUnauthorized(t *testing.T) {
	ts, _ := newServer(t)
	c := client.New(ts.URL, client.WithRequestID(func() string { return "cli-401" }))

	text, err := codec.New().Encode([]byte("unsigned"))
	require.NoError(t, err)
	_, err = c.Upload(context.Background(), text, []byte{1, 2, 3})
	require.Error(t, err)
	require.True(t, client.IsUnauthorized(err))

	var apiErr *client.APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusUnauthorized, apiErr.Status)
	require.Equal(t, "unauthorized", apiErr.Code)
	require.Equal(t, "cli-401", apiErr.RequestID)
}

func TestNonJSONErrorBody(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "gateway timeout", http.StatusGatewayTimeout)
	}))
	defer ts.Close()

	_, _, err := client.New(ts.URL).Download(context.Background(), offer.Code{1})
	var apiErr *client.APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusGatewayTimeout, apiErr.Status)
	require.Empty(t, apiErr.Code)
}
