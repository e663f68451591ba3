package contract

// Encryptor transforms field values marked `encrypted` on the way out.
// Implementations live outside the core; pkg/secure ships a reference
// ChaCha20-Poly1305 implementation.
type Encryptor interface {
	Encrypt(plaintext string) (string, error)
}

// Decryptor is the inbound mirror of Encryptor.
type Decryptor interface {
	Decrypt(ciphertext string) (string, error)
}

// EncryptorFunc adapts a function to the Encryptor interface.
type EncryptorFunc func(string) (string, error)

// Encrypt calls f.
func (f EncryptorFunc) Encrypt(plaintext string) (string, error) { return f(plaintext) }

// DecryptorFunc adapts a function to the Decryptor interface.
type DecryptorFunc func(string) (string, error)

// Decrypt calls f.
func (f DecryptorFunc) Decrypt(ciphertext string) (string, error) { return f(ciphertext) }
