package cipher

import (
	"crypto/rsa"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"io"

	"golang.org/x/crypto/chacha20poly1305"

	"vidsteg/internal/services"
)

const asymmetricVersion byte = 0x02

// Layout: version | wrapped key length (u16) | wrapped key | nonce | sealed body.
// Everything before the sealed body is bound as additional data.
func (g *Gateway) sealAsymmetric(plaintext []byte, publicKeyPath string) ([]byte, error) {
	pub, err := LoadPublicKey(publicKeyPath)
	if err != nil {
		return nil, err
	}

	dataKey := make([]byte, chacha20poly1305.KeySize)
	if _, err := io.ReadFull(g.rand, dataKey); err != nil {
		return nil, fmt.Errorf("generate data key: %w", err)
	}
	wrapped, err := rsa.EncryptOAEP(sha256.New(), g.rand, pub, dataKey, nil)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "cipher", "encrypt", "wrap data key", err)
	}

	aead, err := chacha20poly1305.New(dataKey)
	if err != nil {
		return nil, fmt.Errorf("chacha20poly1305: %w", err)
	}
	nonce := make([]byte, aead.NonceSize())
	if _, err := io.ReadFull(g.rand, nonce); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}

	header := make([]byte, 0, 3+len(wrapped)+len(nonce))
	header = append(header, asymmetricVersion)
	header = binary.BigEndian.AppendUint16(header, uint16(len(wrapped)))
	header = append(header, wrapped...)
	header = append(header, nonce...)
	return aead.Seal(header, nonce, plaintext, header), nil
}

func openAsymmetric(raw []byte, privateKeyPath string) ([]byte, error) {
	priv, err := LoadPrivateKey(privateKeyPath)
	if err != nil {
		return nil, err
	}

	if len(raw) < 3 {
		return nil, services.Wrap(services.ErrDecryption, "cipher", "decrypt", "ciphertext too short", nil)
	}
	if raw[0] != asymmetricVersion {
		return nil, services.Wrap(services.ErrDecryption, "cipher", "decrypt",
			fmt.Sprintf("not an asymmetric ciphertext (version 0x%02x)", raw[0]), nil)
	}
	wrappedLen := int(binary.BigEndian.Uint16(raw[1:3]))
	nonceEnd := 3 + wrappedLen + chacha20poly1305.NonceSize
	if len(raw) < nonceEnd+chacha20poly1305.Overhead {
		return nil, services.Wrap(services.ErrDecryption, "cipher", "decrypt", "ciphertext truncated", nil)
	}

	dataKey, err := rsa.DecryptOAEP(sha256.New(), nil, priv, raw[3:3+wrappedLen], nil)
	if err != nil {
		return nil, services.Wrap(services.ErrDecryption, "cipher", "decrypt", "private key does not match", err)
	}
	aead, err := chacha20poly1305.New(dataKey)
	if err != nil {
		return nil, services.Wrap(services.ErrDecryption, "cipher", "decrypt", "malformed data key", err)
	}
	header := raw[:nonceEnd]
	plaintext, err := aead.Open(nil, raw[3+wrappedLen:nonceEnd], raw[nonceEnd:], header)
	if err != nil {
		return nil, services.Wrap(services.ErrDecryption, "cipher", "decrypt", "corrupted ciphertext", err)
	}
	return plaintext, nil
}
