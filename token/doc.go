// Package token mints and verifies HMAC-signed session tokens carrying
// identity claims and a unique session id, with strict validation semantics
// suitable for low-latency authentication paths.
//
// The package is deliberately store-free: issuance has no side effects and
// verification here covers only signature and time validity. Revocation state
// is layered on top by the engine, which consults
// [github.com/hexveil/authgate/revocation] after Parse succeeds.
package token
