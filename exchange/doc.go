// Package exchange is the service façade of the offer exchange.
//
// A Service turns an external offer text plus a signature into a short code
// (Submit) and a code back into the offer text (Fetch). It owns no state of
// its own; the trusted key, codec, and store are injected at construction and
// never change afterwards.
package exchange
