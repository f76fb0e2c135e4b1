// Package credentials checks username/password pairs and changes passwords.
//
// ValidateCredentials always runs one full password verification, whether or
// not the username exists: unknown users are verified against a dummy hash
// computed once per process with the same work factor as real hashes. The
// error returned for an unknown user and for a wrong password is identical.
//
// All hashing runs on an offload.Pool.
package credentials
