package jwtx

// Signer is our interface for anything that can sign JWTs.
type Signer interface {
	Alg() string
	Sign(Claims) (string, error)
}

// NewSignerHS256 creates an HMAC-SHA256 signer over the UTF-8 bytes of
// secret. An empty secret is rejected with ErrMissingSecret.
func NewSignerHS256(secret string) (Signer, error) {
	return newHS256Signer(secret)
}
