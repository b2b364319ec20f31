// Package password hashes and verifies passwords with argon2id.
//
// Hashes use the PHC string format:
//
//	$argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<hash>
//
// The in-process identity backend in authtest stores only these hashes, so test
// logins go through the same verification path a real backend would.
//
// # What this package must NOT do
//
//   - Store or retrieve passwords; callers supply plaintext and receive hashes.
//   - Log plaintext passwords.
package password
