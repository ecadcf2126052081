package cipher

import (
	"bytes"
	"crypto/aes"
	stdcipher "crypto/cipher"
	"encoding/binary"
	"fmt"
	"io"

	"golang.org/x/crypto/argon2"
	"golang.org/x/text/unicode/norm"

	"vidsteg/internal/services"
)

const (
	symmetricVersion byte = 0x01
	saltSize              = 16
	keySize               = 32
)

// symmetricHeader is the fixed-size prefix of a symmetric ciphertext. It is
// also bound as additional data so tampering with the parameters fails
// authentication.
type symmetricHeader struct {
	Version byte
	Params  KDFParams
	Salt    [saltSize]byte
	Nonce   [12]byte
}

func deriveKey(secret string, salt []byte, params KDFParams) []byte {
	normalized := norm.NFC.String(secret)
	return argon2.IDKey([]byte(normalized), salt, params.Time, params.Memory, params.Threads, keySize)
}

func (g *Gateway) sealSymmetric(plaintext []byte, secret string) ([]byte, error) {
	hdr := symmetricHeader{Version: symmetricVersion, Params: g.params}
	if _, err := io.ReadFull(g.rand, hdr.Salt[:]); err != nil {
		return nil, fmt.Errorf("generate salt: %w", err)
	}
	if _, err := io.ReadFull(g.rand, hdr.Nonce[:]); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}

	aead, err := newGCM(deriveKey(secret, hdr.Salt[:], hdr.Params))
	if err != nil {
		return nil, err
	}

	buf := bytes.NewBuffer(nil)
	if err := binary.Write(buf, binary.BigEndian, &hdr); err != nil {
		return nil, fmt.Errorf("encode header: %w", err)
	}
	header := buf.Bytes()
	return aead.Seal(header, hdr.Nonce[:], plaintext, header), nil
}

func openSymmetric(raw []byte, secret string) ([]byte, error) {
	var hdr symmetricHeader
	headerSize := binary.Size(hdr)
	if len(raw) < headerSize {
		return nil, services.Wrap(services.ErrDecryption, "cipher", "decrypt", "ciphertext too short", nil)
	}
	if err := binary.Read(bytes.NewReader(raw[:headerSize]), binary.BigEndian, &hdr); err != nil {
		return nil, services.Wrap(services.ErrDecryption, "cipher", "decrypt", "malformed header", err)
	}
	if hdr.Version != symmetricVersion {
		return nil, services.Wrap(services.ErrDecryption, "cipher", "decrypt",
			fmt.Sprintf("not a symmetric ciphertext (version 0x%02x)", hdr.Version), nil)
	}
	p := hdr.Params
	if p.Time == 0 || p.Time > MaxKDFTime || p.Memory == 0 || p.Memory > MaxKDFMemoryKiB || p.Threads == 0 {
		return nil, services.Wrap(services.ErrDecryption, "cipher", "decrypt", "implausible key derivation parameters", nil)
	}

	aead, err := newGCM(deriveKey(secret, hdr.Salt[:], p))
	if err != nil {
		return nil, err
	}
	plaintext, err := aead.Open(nil, hdr.Nonce[:], raw[headerSize:], raw[:headerSize])
	if err != nil {
		return nil, services.Wrap(services.ErrDecryption, "cipher", "decrypt", "wrong key or corrupted ciphertext", err)
	}
	return plaintext, nil
}

func newGCM(key []byte) (stdcipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("aes: %w", err)
	}
	aead, err := stdcipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("gcm: %w", err)
	}
	return aead, nil
}
