// Package password hashes and verifies user passwords with Argon2id.
//
// Hashes are self-describing PHC strings:
//
//	$argon2id$v=19$m=<KiB>,t=<iterations>,p=<parallelism>$<salt>$<key>
//
// Verify recomputes the key with the parameters embedded in the stored hash, so
// hashes created under older settings keep working after a config change.
//
// Security notes:
//   - Stored hashes are treated as untrusted input. Anything that does not decode
//     cleanly is ErrInvalidHash, never a plain mismatch, so storage corruption
//     stays distinguishable from a wrong password.
//   - Verification refuses parameters far above the configured ones to bound the
//     cost an attacker-controlled hash string can impose.
//   - Both Hash and Verify are deliberately slow. Callers on a request path should
//     run them through the offload pool.
package password
