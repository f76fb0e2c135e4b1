// Package msgauth signs short user-visible messages so they can travel
// through a redirect URL and be trusted when they come back.
//
// A message is carried as two query parameters:
//
//	error=<url-encoded message>&tag=<hex HMAC-SHA256>
//
// The tag is computed over the canonical "error=" + url.QueryEscape(message)
// form, not over the raw message, so the signature covers exactly what was
// put on the wire. Verification always recomputes and compares in constant
// time; a message whose tag does not check out is never shown.
//
// Environment:
//   - HERALD_HMAC_SECRET: signing key, at least MinKeyBytes bytes.
package msgauth
