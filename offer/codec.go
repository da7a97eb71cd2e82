package offer

// Codec converts between the external text form of an offer and its canonical
// binary payload. Both directions are fallible and side-effect free.
type Codec interface {
	Decode(text string) ([]byte, error)
	Encode(payload []byte) (string, error)
}
