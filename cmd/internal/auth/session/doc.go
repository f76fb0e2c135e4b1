// Package session issues and checks the admin session cookie.
//
// A session is a stateless PASETO v4.public token carrying the user ID, set
// as an HttpOnly cookie. Nothing is stored server-side: logging out clears
// the cookie and a token stays valid until it expires.
package session
