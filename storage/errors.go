package storage

import "errors"

var (
	ErrCollision    = errors.New("storage: code collision")
	ErrInvalidCode  = errors.New("storage: invalid code")
	ErrClosed       = errors.New("storage: store closed")
	ErrCodeMismatch = errors.New("storage: code mismatch")
)

func IsCollision(err error) bool { return errors.Is(err, ErrCollision) }
