package grpcstore

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/Chia-Network/offer-codes/offer"
	"github.com/Chia-Network/offer-codes/storage"
)

// Server exposes a storage.Store over the Store gRPC service.
//
// The server derives codes itself with Scheme, so a client can never file a
// payload under a code it does not hash to.
type Server struct {
	UnimplementedStoreServer
	Store  storage.Store
	Scheme offer.Scheme
}

func (s *Server) Put(ctx context.Context, in *wrapperspb.BytesValue) (*wrapperspb.StringValue, error) {
	if s == nil || s.Store == nil {
		return nil, status.Error(codes.FailedPrecondition, "missing store")
	}
	b := in.GetValue()
	if len(b) == 0 {
		return nil, status.Error(codes.InvalidArgument, "empty payload")
	}
	code := s.Scheme.Code(b)
	if err := s.Store.Put(ctx, code, b); err != nil {
		return nil, mapErr(err)
	}
	return wrapperspb.String(code.String()), nil
}

func (s *Server) Get(ctx context.Context, in *wrapperspb.StringValue) (*wrapperspb.BytesValue, error) {
	if s == nil || s.Store == nil {
		return nil, status.Error(codes.FailedPrecondition, "missing store")
	}
	code, err := s.Scheme.ParseCode(in.GetValue())
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, storage.ErrInvalidCode.Error())
	}
	b, found, err := s.Store.Get(ctx, code)
	if err != nil {
		return nil, mapErr(err)
	}
	if !found {
		return nil, status.Error(codes.NotFound, "offer not found")
	}
	if !s.Scheme.Code(b).Equal(code) {
		return nil, status.Error(codes.DataLoss, storage.ErrCodeMismatch.Error())
	}
	return wrapperspb.Bytes(b), nil
}

func (s *Server) Has(ctx context.Context, in *wrapperspb.StringValue) (*wrapperspb.BoolValue, error) {
	if s == nil || s.Store == nil {
		return nil, status.Error(codes.FailedPrecondition, "missing store")
	}
	code, err := s.Scheme.ParseCode(in.GetValue())
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, storage.ErrInvalidCode.Error())
	}
	_, found, err := s.Store.Get(ctx, code)
	if err != nil {
		return nil, mapErr(err)
	}
	return wrapperspb.Bool(found), nil
}

func mapErr(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, storage.ErrInvalidCode):
		return status.Error(codes.InvalidArgument, storage.ErrInvalidCode.Error())
	case errors.Is(err, storage.ErrCollision):
		return status.Error(codes.AlreadyExists, storage.ErrCollision.Error())
	case errors.Is(err, storage.ErrCodeMismatch):
		return status.Error(codes.DataLoss, storage.ErrCodeMismatch.Error())
	case errors.Is(err, storage.ErrClosed):
		return status.Error(codes.Unavailable, storage.ErrClosed.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}

// LoggingInterceptor logs one line per RPC.
func LoggingInterceptor(log *zap.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		code := status.Code(err)
		fields := []zap.Field{
			zap.String("method", info.FullMethod),
			zap.String("grpc_code", code.String()),
			zap.Duration("latency", time.Since(start)),
		}
		switch code {
		case codes.OK, codes.NotFound, codes.AlreadyExists, codes.InvalidArgument:
			log.Debug("rpc", fields...)
		default:
			log.Warn("rpc", append(fields, zap.Error(err))...)
		}
		return resp, err
	}
}

// NewGRPCServer builds a *grpc.Server serving srv with request logging.
func NewGRPCServer(srv *Server, log *zap.Logger, opts ...grpc.ServerOption) *grpc.Server {
	if log == nil {
		log = zap.NewNop()
	}
	opts = append(opts, grpc.ChainUnaryInterceptor(LoggingInterceptor(log)))
	g := grpc.NewServer(opts...)
	RegisterStoreServer(g, srv)
	return g
}
