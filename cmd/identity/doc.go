// Package identity stores Herald's users and their password hashes.
//
// Two CredentialStore implementations are provided: PostgresStore for real
// deployments and MemoryStore for development and tests. Both normalize
// usernames the same way, so lookups are case-insensitive.
//
// The store never sees plaintext passwords; callers hash before writing.
package identity
