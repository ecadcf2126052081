package cipher

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/text/unicode/norm"

	"vidsteg/internal/services"
)

// LoadPublicKey reads an RSA public key from a PEM file. PKIX ("PUBLIC KEY"),
// PKCS#1 ("RSA PUBLIC KEY") and private key files are accepted.
func LoadPublicKey(path string) (*rsa.PublicKey, error) {
	block, err := readPEM(path, "public key")
	if err != nil {
		return nil, err
	}
	switch block.Type {
	case "PUBLIC KEY":
		key, err := x509.ParsePKIXPublicKey(block.Bytes)
		if err != nil {
			return nil, services.Wrap(services.ErrValidation, "cipher", "load public key", path, err)
		}
		pub, ok := key.(*rsa.PublicKey)
		if !ok {
			return nil, services.Wrap(services.ErrValidation, "cipher", "load public key", fmt.Sprintf("%s is not an RSA key", path), nil)
		}
		return pub, nil
	case "RSA PUBLIC KEY":
		pub, err := x509.ParsePKCS1PublicKey(block.Bytes)
		if err != nil {
			return nil, services.Wrap(services.ErrValidation, "cipher", "load public key", path, err)
		}
		return pub, nil
	case "PRIVATE KEY", "RSA PRIVATE KEY":
		priv, err := parsePrivateBlock(block, path)
		if err != nil {
			return nil, err
		}
		return &priv.PublicKey, nil
	default:
		return nil, services.Wrap(services.ErrValidation, "cipher", "load public key", fmt.Sprintf("%s: unsupported PEM block %q", path, block.Type), nil)
	}
}

// LoadPrivateKey reads an RSA private key from a PKCS#8 or PKCS#1 PEM file.
func LoadPrivateKey(path string) (*rsa.PrivateKey, error) {
	block, err := readPEM(path, "private key")
	if err != nil {
		return nil, err
	}
	return parsePrivateBlock(block, path)
}

func parsePrivateBlock(block *pem.Block, path string) (*rsa.PrivateKey, error) {
	switch block.Type {
	case "PRIVATE KEY":
		key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
		if err != nil {
			return nil, services.Wrap(services.ErrValidation, "cipher", "load private key", path, err)
		}
		priv, ok := key.(*rsa.PrivateKey)
		if !ok {
			return nil, services.Wrap(services.ErrValidation, "cipher", "load private key", fmt.Sprintf("%s is not an RSA key", path), nil)
		}
		return priv, nil
	case "RSA PRIVATE KEY":
		priv, err := x509.ParsePKCS1PrivateKey(block.Bytes)
		if err != nil {
			return nil, services.Wrap(services.ErrValidation, "cipher", "load private key", path, err)
		}
		return priv, nil
	default:
		return nil, services.Wrap(services.ErrValidation, "cipher", "load private key", fmt.Sprintf("%s: unsupported PEM block %q", path, block.Type), nil)
	}
}

func readPEM(path, what string) (*pem.Block, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, services.Wrap(services.ErrMissingCredential, "cipher", "load "+what, what+" path is empty", nil)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, services.Wrap(services.ErrMissingCredential, "cipher", "load "+what, fmt.Sprintf("%s not found", path), err)
		}
		return nil, fmt.Errorf("read %s: %w", what, err)
	}
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, services.Wrap(services.ErrValidation, "cipher", "load "+what, fmt.Sprintf("%s contains no PEM data", path), nil)
	}
	return block, nil
}

// WrapKey encrypts a symmetric secret for the holder of the private key that
// matches publicKeyPath and returns it base64 encoded.
func WrapKey(secret, publicKeyPath string) (string, error) {
	if secret == "" {
		return "", services.Wrap(services.ErrMissingCredential, "cipher", "wrap key", "no symmetric secret to wrap", nil)
	}
	pub, err := LoadPublicKey(publicKeyPath)
	if err != nil {
		return "", err
	}
	normalized := []byte(norm.NFC.String(secret))
	if limit := pub.Size() - 2*sha256.Size - 2; len(normalized) > limit {
		return "", services.Wrap(services.ErrValidation, "cipher", "wrap key",
			fmt.Sprintf("secret is %d bytes; a %d-bit key can wrap at most %d", len(normalized), pub.N.BitLen(), limit), nil)
	}
	wrapped, err := rsa.EncryptOAEP(sha256.New(), rand.Reader, pub, normalized, nil)
	if err != nil {
		return "", services.Wrap(services.ErrValidation, "cipher", "wrap key", "rsa-oaep", err)
	}
	return base64.StdEncoding.EncodeToString(wrapped), nil
}

// UnwrapKey reverses WrapKey.
func UnwrapKey(wrapped, privateKeyPath string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(wrapped))
	if err != nil {
		return "", services.Wrap(services.ErrDecryption, "cipher", "unwrap key", "wrapped key is not valid base64", err)
	}
	priv, err := LoadPrivateKey(privateKeyPath)
	if err != nil {
		return "", err
	}
	secret, err := rsa.DecryptOAEP(sha256.New(), nil, priv, raw, nil)
	if err != nil {
		return "", services.Wrap(services.ErrDecryption, "cipher", "unwrap key", "private key does not match", err)
	}
	return string(secret), nil
}

// GenerateKeyPair writes a new RSA key pair as PKCS#8 (0600) and PKIX (0644)
// PEM files. Existing files are never overwritten.
func GenerateKeyPair(bits int, privatePath, publicPath string) error {
	if strings.TrimSpace(privatePath) == "" || strings.TrimSpace(publicPath) == "" {
		return services.Wrap(services.ErrValidation, "cipher", "generate key pair", "both key paths are required", nil)
	}
	if bits < 2048 {
		return services.Wrap(services.ErrValidation, "cipher", "generate key pair", fmt.Sprintf("key size %d is below 2048 bits", bits), nil)
	}
	priv, err := rsa.GenerateKey(rand.Reader, bits)
	if err != nil {
		return fmt.Errorf("generate rsa key: %w", err)
	}
	privDER, err := x509.MarshalPKCS8PrivateKey(priv)
	if err != nil {
		return fmt.Errorf("marshal private key: %w", err)
	}
	pubDER, err := x509.MarshalPKIXPublicKey(&priv.PublicKey)
	if err != nil {
		return fmt.Errorf("marshal public key: %w", err)
	}
	if err := writePEM(privatePath, "PRIVATE KEY", privDER, 0o600); err != nil {
		return err
	}
	if err := writePEM(publicPath, "PUBLIC KEY", pubDER, 0o644); err != nil {
		_ = os.Remove(privatePath)
		return err
	}
	return nil
}

func writePEM(path, blockType string, der []byte, perm os.FileMode) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create key directory: %w", err)
		}
	}
	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, perm)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return services.Wrap(services.ErrValidation, "cipher", "generate key pair", fmt.Sprintf("%s already exists", path), nil)
		}
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := pem.Encode(file, &pem.Block{Type: blockType, Bytes: der}); err != nil {
		file.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return file.Close()
}
