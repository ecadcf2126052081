package cipher

import (
	"crypto/rand"
	"encoding/base64"
	"io"

	"vidsteg/internal/services"
)

// KDFParams holds the argon2id cost parameters used when encrypting with the
// symmetric scheme.
type KDFParams struct {
	Time    uint32
	Memory  uint32
	Threads uint8
}

// Largest argon2id costs accepted from configuration or from a ciphertext
// header. Decoding inputs come from untrusted carriers, so the bounds keep a
// crafted header from stalling the decoder or exhausting its memory.
const (
	MaxKDFTime      uint32 = 16
	MaxKDFMemoryKiB uint32 = 1 << 20
)

// DefaultKDFParams mirrors the configuration defaults.
var DefaultKDFParams = KDFParams{Time: 3, Memory: 64 * 1024, Threads: 4}

// Gateway encrypts and decrypts message bodies and manifests.
type Gateway struct {
	params KDFParams
	rand   io.Reader
}

// NewGateway returns a Gateway that derives symmetric keys with params.
func NewGateway(params KDFParams) *Gateway {
	if params.Time == 0 || params.Memory == 0 || params.Threads == 0 {
		params = DefaultKDFParams
	}
	return &Gateway{params: params, rand: rand.Reader}
}

// Encrypt seals plaintext under scheme and returns a base64 ciphertext string.
func (g *Gateway) Encrypt(plaintext []byte, scheme Scheme, creds Credentials) (string, error) {
	if err := RequireEncrypt(scheme, creds); err != nil {
		return "", err
	}
	var (
		raw []byte
		err error
	)
	switch scheme {
	case SchemeSymmetric:
		raw, err = g.sealSymmetric(plaintext, creds.Secret)
	default:
		raw, err = g.sealAsymmetric(plaintext, creds.PublicKeyPath)
	}
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}

// Decrypt reverses Encrypt. Malformed input and wrong credentials both yield
// an error marked services.ErrDecryption.
func (g *Gateway) Decrypt(ciphertext string, scheme Scheme, creds Credentials) ([]byte, error) {
	if err := RequireDecrypt(scheme, creds); err != nil {
		return nil, err
	}
	raw, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return nil, services.Wrap(services.ErrDecryption, "cipher", "decrypt", "ciphertext is not valid base64", err)
	}
	switch scheme {
	case SchemeSymmetric:
		return openSymmetric(raw, creds.Secret)
	default:
		return openAsymmetric(raw, creds.PrivateKeyPath)
	}
}
