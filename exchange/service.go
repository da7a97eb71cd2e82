package exchange

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/Chia-Network/offer-codes/cidutil"
	"github.com/Chia-Network/offer-codes/metrics"
	"github.com/Chia-Network/offer-codes/offer"
	"github.com/Chia-Network/offer-codes/storage"
)

const tracerName = "github.com/Chia-Network/offer-codes/exchange"

const (
	opSubmit = "submit"
	opFetch  = "fetch"
)

// Verifier checks a signature over a content hash against the one trusted key.
// keys.Gate implements it.
type Verifier interface {
	Verify(signature, hash []byte) bool
}

type Options struct {
	Codec    offer.Codec
	Verifier Verifier
	Store    storage.Store
	// Scheme defaults to offer.DefaultScheme when its Deriver is unset.
	Scheme  offer.Scheme
	Logger  *zap.Logger
	Metrics *metrics.Metrics
	Tracer  trace.Tracer
}

type Service struct {
	codec    offer.Codec
	verifier Verifier
	store    storage.Store
	scheme   offer.Scheme
	log      *zap.Logger
	metrics  *metrics.Metrics
	tracer   trace.Tracer
}

// SubmitResult is the outcome of a successful Submit.
type SubmitResult struct {
	Code offer.Code
	// CID renders the full content hash; empty if it could not be built.
	CID string
}

// New validates opts and returns a Service.
func New(opts Options) (*Service, error) {
	if opts.Codec == nil {
		return nil, errors.New("exchange: codec is required")
	}
	if opts.Verifier == nil {
		return nil, errors.New("exchange: verifier is required")
	}
	if opts.Store == nil {
		return nil, errors.New("exchange: store is required")
	}
	scheme := opts.Scheme
	alg, err := offer.ParseHashAlg(string(scheme.Alg))
	if err != nil {
		return nil, fmt.Errorf("exchange: %w", err)
	}
	scheme.Alg = alg
	if scheme.Width() == 0 {
		scheme.Deriver = offer.DefaultScheme().Deriver
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	tracer := opts.Tracer
	if tracer == nil {
		tracer = otel.Tracer(tracerName)
	}
	return &Service{
		codec:    opts.Codec,
		verifier: opts.Verifier,
		store:    opts.Store,
		scheme:   scheme,
		log:      log,
		metrics:  opts.Metrics,
		tracer:   tracer,
	}, nil
}

// Scheme returns the code scheme the service derives codes with.
func (s *Service) Scheme() offer.Scheme { return s.scheme }

// Submit decodes text, checks signature over the payload's content hash, and
// stores the payload under its derived code. Submitting the same offer again
// returns the same code.
//
// The store is only touched after the signature verifies.
func (s *Service) Submit(ctx context.Context, text string, signature []byte) (res SubmitResult, err error) {
	ctx, span := s.tracer.Start(ctx, "exchange.Submit")
	start := time.Now()
	defer func() { s.finish(ctx, span, opSubmit, start, res.Code, false, err) }()

	payload, err := s.codec.Decode(text)
	if err != nil {
		return SubmitResult{}, offer.WrapError(offer.KindDecode, opSubmit, "decode offer", err)
	}
	hash := s.scheme.Hash(payload)
	if !s.verifier.Verify(signature, hash.Digest) {
		return SubmitResult{}, offer.NewError(offer.KindUnauthorized, opSubmit, "signature does not verify")
	}
	code := s.scheme.Deriver.Derive(hash)
	span.SetAttributes(attribute.String("offer.code", code.String()), attribute.Int("offer.payload_bytes", len(payload)))

	if err := s.store.Put(ctx, code, payload); err != nil {
		if storage.IsCollision(err) {
			return SubmitResult{}, offer.WrapError(offer.KindCollision, opSubmit, "code "+code.String()+" is taken by a different offer", err)
		}
		return SubmitResult{}, offer.WrapError(offer.KindStore, opSubmit, "store offer", err)
	}
	s.metrics.ObservePayload(len(payload))

	res = SubmitResult{Code: code}
	if c, cerr := cidutil.PayloadCIDString(hash); cerr == nil {
		res.CID = c
	} else {
		s.log.Warn("payload cid", zap.String("request_id", RequestIDFrom(ctx)), zap.Error(cerr))
	}
	return res, nil
}

// Fetch returns the offer text stored under code. An unknown code is not an
// error: found is false and err is nil.
func (s *Service) Fetch(ctx context.Context, code offer.Code) (text string, found bool, err error) {
	ctx, span := s.tracer.Start(ctx, "exchange.Fetch", trace.WithAttributes(attribute.String("offer.code", code.String())))
	start := time.Now()
	defer func() { s.finish(ctx, span, opFetch, start, code, !found, err) }()

	if !code.Valid(s.scheme.Width()) {
		return "", false, offer.NewError(offer.KindInvalid, opFetch, fmt.Sprintf("code must be %d bytes, got %d", s.scheme.Width(), code.Width()))
	}
	payload, found, err := s.store.Get(ctx, code)
	if err != nil {
		return "", false, offer.WrapError(offer.KindStore, opFetch, "load offer", err)
	}
	if !found {
		return "", false, nil
	}
	text, err = s.codec.Encode(payload)
	if err != nil {
		return "", false, offer.WrapError(offer.KindEncode, opFetch, "encode offer", err)
	}
	return text, true, nil
}

func (s *Service) finish(ctx context.Context, span trace.Span, op string, start time.Time, code offer.Code, absent bool, err error) {
	defer span.End()

	result := "ok"
	fields := []zap.Field{
		zap.String("request_id", RequestIDFrom(ctx)),
		zap.String("op", op),
		zap.Duration("duration", time.Since(start)),
	}
	if len(code) > 0 {
		fields = append(fields, zap.Stringer("code", code))
	}

	switch {
	case err != nil:
		kind := offer.KindOf(err)
		result = string(kind)
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, string(kind))
		fields = append(fields, zap.String("kind", string(kind)), zap.Error(err))
		if kind == offer.KindStore || kind == offer.KindEncode {
			s.log.Error("exchange failed", fields...)
		} else {
			s.log.Info("exchange rejected", fields...)
		}
	case absent:
		result = "absent"
		s.log.Debug("exchange ok", append(fields, zap.Bool("found", false))...)
	default:
		s.log.Debug("exchange ok", fields...)
	}
	s.metrics.ObserveOperation(op, result, time.Since(start))
}

// Ping checks that the store answers a lookup. It is not counted as a fetch.
func (s *Service) Ping(ctx context.Context) error {
	_, _, err := s.store.Get(ctx, make(offer.Code, s.scheme.Width()))
	return err
}
