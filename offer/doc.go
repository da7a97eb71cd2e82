// Package offer defines the identity types shared by every layer of the offer
// exchange: the content hash of a canonical offer payload, the fixed-width code
// derived from it, the external text codec contract and the structured error
// kinds surfaced at the service boundary.
//
// A Code is a pure function of payload content. Nothing in this package reads
// the clock or a random source.
package offer
