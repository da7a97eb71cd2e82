// Package keys implements the authorization gate of the exchange: parsing the
// single trusted public key and checking signatures over content hashes.
//
// The signing helpers and the filesystem KeyStore are client-side utilities used
// by the CLI and tests. The server only ever holds a public key.
package keys
