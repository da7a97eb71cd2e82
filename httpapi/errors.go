package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Chia-Network/offer-codes/offer"
)

// Error codes in response bodies.
const (
	codeBadRequest   = "bad_request"
	codeDecode       = "decode_error"
	codeUnauthorized = "unauthorized"
	codeStore        = "store_error"
	codeEncode       = "encode_error"
	codeCollision    = "collision"
	codeRateLimited  = "rate_limited"
	codeTooLarge     = "payload_too_large"
	codeInternal     = "internal_error"
)

type errorBody struct {
	RequestID string      `json:"request_id,omitempty"`
	Error     errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeError(c *gin.Context, status int, code, msg string) {
	c.AbortWithStatusJSON(status, errorBody{
		RequestID: requestIDOf(c),
		Error:     errorDetail{Code: code, Message: msg},
	})
}

// statusFor maps a service error kind to its HTTP status and body code.
func statusFor(kind offer.Kind) (int, string) {
	switch kind {
	case offer.KindDecode:
		return http.StatusInternalServerError, codeDecode
	case offer.KindUnauthorized:
		return http.StatusUnauthorized, codeUnauthorized
	case offer.KindStore:
		return http.StatusInternalServerError, codeStore
	case offer.KindEncode:
		return http.StatusInternalServerError, codeEncode
	case offer.KindCollision:
		return http.StatusConflict, codeCollision
	case offer.KindInvalid:
		return http.StatusBadRequest, codeBadRequest
	default:
		return http.StatusInternalServerError, codeInternal
	}
}

// writeServiceError renders err without its cause chain; causes stay in the
// server log.
func writeServiceError(c *gin.Context, err error) {
	_ = c.Error(err)
	var e *offer.Error
	if !errors.As(err, &e) {
		writeError(c, http.StatusInternalServerError, codeInternal, "internal error")
		return
	}
	status, code := statusFor(e.Kind)
	writeError(c, status, code, e.Message)
}
