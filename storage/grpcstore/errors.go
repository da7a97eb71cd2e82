package grpcstore

import (
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/Chia-Network/offer-codes/storage"
)

func isNotFound(err error) bool { return status.Code(err) == codes.NotFound }

func mapRPC(err error) error {
	if err == nil {
		return nil
	}
	st, ok := status.FromError(err)
	if !ok {
		return err
	}

	switch st.Code() {
	case codes.InvalidArgument:
		return storage.ErrInvalidCode
	case codes.AlreadyExists:
		return storage.ErrCollision
	case codes.DataLoss:
		// Server uses DataLoss when bytes do not match the requested code.
		return storage.ErrCodeMismatch
	default:
		return err
	}
}
