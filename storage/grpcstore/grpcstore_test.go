package grpcstore

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/Chia-Network/offer-codes/offer"
	"github.com/Chia-Network/offer-codes/storage"
	"github.com/Chia-Network/offer-codes/storage/memstore"
	"github.com/Chia-Network/offer-codes/storage/testkit"
)

func startServer(t *testing.T, backend storage.Store) *Client {
	t.Helper()
	lis := bufconn.Listen(1024 * 1024)
	srv := NewGRPCServer(&Server{Store: backend, Scheme: testkit.Scheme}, zaptest.NewLogger(t))
	go func() {
		_ = srv.Serve(lis)
	}()
	t.Cleanup(srv.Stop)

	dialer := func(ctx context.Context, s string) (net.Conn, error) { return lis.DialContext(ctx) }
	cc, err := grpc.NewClient(
		"passthrough:///bufnet",
		grpc.WithContextDialer(dialer),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = cc.Close() })

	c := NewClient(cc, testkit.Scheme)
	c.Timeout = 2 * time.Second
	return c
}

func TestConformanceOverBufconn(t *testing.T) {
	testkit.RunStoreConformance(t, func(t *testing.T) storage.Store {
		return startServer(t, memstore.New())
	})
}

func TestHas(t *testing.T) {
	ctx := context.Background()
	c := startServer(t, memstore.New())
	p := []byte("hello grpcstore")
	code := testkit.Scheme.Code(p)

	ok, err := c.Has(ctx, code)
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, c.Put(ctx, code, p))
	ok, err = c.Has(ctx, code)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestPutUnderForeignCodeIsRejected(t *testing.T) {
	ctx := context.Background()
	backend := memstore.New()
	c := startServer(t, backend)

	p := []byte("payload")
	wrong := testkit.Scheme.Code([]byte("something else"))
	require.ErrorIs(t, c.Put(ctx, wrong, p), storage.ErrCodeMismatch)
	require.Zero(t, backend.Len())
}

// corruptStore returns bytes that do not hash to the requested code.
type corruptStore struct{ storage.Store }

func (corruptStore) Get(context.Context, offer.Code) ([]byte, bool, error) {
	return []byte("tampered"), true, nil
}

func TestServerDetectsCorruptRecords(t *testing.T) {
	c := startServer(t, corruptStore{Store: memstore.New()})
	code := testkit.Scheme.Code([]byte("original"))
	_, _, err := c.Get(context.Background(), code)
	require.ErrorIs(t, err, storage.ErrCodeMismatch)
}

func TestServerValidation(t *testing.T) {
	ctx := context.Background()
	s := &Server{Store: memstore.New(), Scheme: offer.DefaultScheme()}

	_, err := s.Put(ctx, wrapperspb.Bytes(nil))
	require.Equal(t, codes.InvalidArgument, status.Code(err))

	_, err = s.Get(ctx, wrapperspb.String("zz"))
	require.Equal(t, codes.InvalidArgument, status.Code(err))

	_, err = s.Get(ctx, wrapperspb.String(offer.DefaultScheme().Code([]byte("x")).String()))
	require.Equal(t, codes.NotFound, status.Code(err))

	var nilServer *Server
	_, err = nilServer.Put(ctx, wrapperspb.Bytes([]byte("x")))
	require.Equal(t, codes.FailedPrecondition, status.Code(err))
}

func TestErrorMapping(t *testing.T) {
	for _, sentinel := range []error{storage.ErrInvalidCode, storage.ErrCollision, storage.ErrCodeMismatch} {
		require.ErrorIs(t, mapRPC(mapErr(sentinel)), sentinel)
	}
	require.Equal(t, codes.Unavailable, status.Code(mapErr(storage.ErrClosed)))
	require.Equal(t, codes.Internal, status.Code(mapErr(errors.New("disk"))))

	plain := errors.New("not a status")
	require.Equal(t, plain, mapRPC(plain))
}
