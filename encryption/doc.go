// Package encryption seals small secrets at rest with an AEAD cipher.
//
// Keys are derived from a passphrase with SHA-256. Each Seal draws a fresh
// random nonce and prefixes it to the ciphertext, so sealing the same
// plaintext twice yields different output. Additional data binds a sealed
// value to its context: opening with different additional data fails.
//
//	s, err := encryption.New(passphrase)
//	sealed, err := s.Seal(secret, []byte("https://relay.example.com"))
//	secret, err = s.Open(sealed, []byte("https://relay.example.com"))
package encryption
