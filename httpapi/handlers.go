package httpapi

import (
	"encoding/hex"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type uploadRequest struct {
	Offer     string  `json:"offer"`
	Signature *string `json:"signature"`
}

type uploadResponse struct {
	Code string `json:"code"`
	CID  string `json:"cid,omitempty"`
}

type downloadRequest struct {
	Code string `json:"code"`
}

type downloadResponse struct {
	Offer *string `json:"offer"`
}

func (s *Server) upload(c *gin.Context) {
	var req uploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		if isTooLarge(err) {
			writeError(c, http.StatusRequestEntityTooLarge, codeTooLarge, "request body too large")
			return
		}
		writeError(c, http.StatusBadRequest, codeBadRequest, "request body must be JSON {\"offer\", \"signature\"}")
		return
	}
	if req.Signature == nil {
		writeError(c, http.StatusBadRequest, codeBadRequest, "signature is required")
		return
	}
	sig, err := hex.DecodeString(strings.TrimPrefix(*req.Signature, "0x"))
	if err != nil {
		writeError(c, http.StatusBadRequest, codeBadRequest, "signature must be hex")
		return
	}

	res, err := s.svc.Submit(c.Request.Context(), req.Offer, sig)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, uploadResponse{Code: res.Code.String(), CID: res.CID})
}

func (s *Server) download(c *gin.Context) {
	var req downloadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, codeBadRequest, "request body must be JSON {\"code\"}")
		return
	}
	code, err := s.svc.Scheme().ParseCode(req.Code)
	if err != nil {
		writeError(c, http.StatusBadRequest, codeBadRequest, err.Error())
		return
	}

	text, found, err := s.svc.Fetch(c.Request.Context(), code)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	if !found {
		c.JSON(http.StatusOK, downloadResponse{})
		return
	}
	c.JSON(http.StatusOK, downloadResponse{Offer: &text})
}

func (s *Server) health(c *gin.Context) {
	if err := s.svc.Ping(c.Request.Context()); err != nil {
		s.log.Warn("health check failed", zap.String("request_id", requestIDOf(c)), zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
