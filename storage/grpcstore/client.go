package grpcstore

import (
	"context"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/Chia-Network/offer-codes/offer"
	"github.com/Chia-Network/offer-codes/storage"
)

// Client implements storage.Store over a Store gRPC service.
//
// Scheme must match the daemon's: the client checks every code the daemon
// reports and every payload it returns.
type Client struct {
	cc     *grpc.ClientConn
	client StoreClient
	scheme offer.Scheme

	// Timeout applies per RPC when non-zero.
	Timeout time.Duration
}

var _ storage.Store = (*Client)(nil)

type DialOptions struct {
	// MaxMsgBytes sets both send/recv max sizes when non-zero.
	MaxMsgBytes int
	Scheme      offer.Scheme
}

// Dial creates a client; the connection is established lazily.
func Dial(target string, opts DialOptions) (*Client, error) {
	dialOpts := []grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	}
	if opts.MaxMsgBytes > 0 {
		dialOpts = append(dialOpts,
			grpc.WithDefaultCallOptions(
				grpc.MaxCallRecvMsgSize(opts.MaxMsgBytes),
				grpc.MaxCallSendMsgSize(opts.MaxMsgBytes),
			),
		)
	}
	cc, err := grpc.NewClient(target, dialOpts...)
	if err != nil {
		return nil, err
	}
	return NewClient(cc, opts.Scheme), nil
}

// NewClient wraps an existing connection.
func NewClient(cc *grpc.ClientConn, scheme offer.Scheme) *Client {
	if scheme.Width() == 0 {
		scheme = offer.DefaultScheme()
	}
	return &Client{cc: cc, client: NewStoreClient(cc), scheme: scheme}
}

func (c *Client) Close() error {
	if c == nil || c.cc == nil {
		return nil
	}
	return c.cc.Close()
}

func (c *Client) Put(ctx context.Context, code offer.Code, payload []byte) error {
	if err := storage.CheckCode(code); err != nil {
		return err
	}
	// The daemon files payload under its own code; refuse a request it would
	// misfile.
	if !c.scheme.Code(payload).Equal(code) {
		return storage.ErrCodeMismatch
	}
	ctx, cancel := c.ctx(ctx)
	defer cancel()

	reply, err := c.client.Put(ctx, wrapperspb.Bytes(payload))
	if err != nil {
		return mapRPC(err)
	}
	got, err := offer.ParseCode(reply.GetValue(), code.Width())
	if err != nil || !got.Equal(code) {
		return storage.ErrCodeMismatch
	}
	return nil
}

func (c *Client) Get(ctx context.Context, code offer.Code) ([]byte, bool, error) {
	if err := storage.CheckCode(code); err != nil {
		return nil, false, err
	}
	ctx, cancel := c.ctx(ctx)
	defer cancel()

	reply, err := c.client.Get(ctx, wrapperspb.String(code.String()))
	if err != nil {
		if isNotFound(err) {
			return nil, false, nil
		}
		return nil, false, mapRPC(err)
	}
	b := reply.GetValue()
	if !c.scheme.Code(b).Equal(code) {
		return nil, false, storage.ErrCodeMismatch
	}
	return b, true, nil
}

// Has asks the daemon whether code is stored without transferring the payload.
func (c *Client) Has(ctx context.Context, code offer.Code) (bool, error) {
	if err := storage.CheckCode(code); err != nil {
		return false, err
	}
	ctx, cancel := c.ctx(ctx)
	defer cancel()

	reply, err := c.client.Has(ctx, wrapperspb.String(code.String()))
	if err != nil {
		return false, mapRPC(err)
	}
	return reply.GetValue(), nil
}

func (c *Client) ctx(parent context.Context) (context.Context, context.CancelFunc) {
	if c.Timeout <= 0 {
		return context.WithCancel(parent)
	}
	return context.WithTimeout(parent, c.Timeout)
}
