// Package password hashes new passwords with Argon2id and verifies both
// Argon2id PHC strings and legacy bcrypt hashes.
//
// # Output format
//
// New hashes are encoded in PHC string format:
//
//	$argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<hash>
//
// Accounts imported from the older backend carry bcrypt hashes ($2a$, $2b$,
// $2y$). [Hasher.Verify] accepts them and [Hasher.NeedsUpgrade] reports true,
// so the login flow can re-hash on the next successful password login.
//
// # What this package must NOT do
//
//   - Store or retrieve passwords.
//   - Log plaintext passwords or hash parameters at runtime.
package password
