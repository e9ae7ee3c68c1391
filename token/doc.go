// Package token signs and verifies the compact tamper-evident envelopes that carry
// session claims and CSRF nonces.
//
// Envelopes are HS256 JWTs. Callers describe the payload with their own struct and
// embed [Timestamps]; [Codec.Sign] stamps issued-at, expiry and a unique id, and
// [Codec.Verify] rejects anything with a bad signature, a malformed structure, a
// foreign algorithm, or an expiry at or before the current time. Issued-at is
// checked only with [Config.RequireIAT]; timestamps are whole seconds, so peers with
// skewed clocks then need [Config.Leeway]. Leeway is zero unless set.
//
// # What this package must NOT do
//
//   - Read cookies or headers (transport belongs to the caller).
//   - Keep any server-side record of issued tokens.
//   - Rotate or look up secrets; a Codec holds exactly one key.
package token
