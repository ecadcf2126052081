package cipher

import (
	"fmt"
	"strings"

	"vidsteg/internal/services"
)

// Scheme identifies the active encryption scheme.
type Scheme string

const (
	SchemeSymmetric  Scheme = "symmetric"
	SchemeAsymmetric Scheme = "asymmetric"
)

// ParseScheme maps a user supplied scheme name onto a Scheme. "aes" and "rsa"
// are accepted as aliases.
func ParseScheme(name string) (Scheme, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "symmetric", "aes":
		return SchemeSymmetric, nil
	case "asymmetric", "rsa":
		return SchemeAsymmetric, nil
	default:
		return "", services.Wrap(services.ErrValidation, "cipher", "parse scheme",
			fmt.Sprintf("unknown encryption scheme %q (want symmetric or asymmetric)", name), nil)
	}
}

func (s Scheme) String() string { return string(s) }

// Credentials carries the key material for one operation. Only the fields the
// active scheme needs are consulted: Secret for symmetric, PublicKeyPath when
// encrypting asymmetrically and PrivateKeyPath when decrypting. In hybrid mode
// the encoder supplies both Secret and PublicKeyPath.
type Credentials struct {
	Secret         string
	PublicKeyPath  string
	PrivateKeyPath string
}

// Hybrid reports whether the symmetric secret should be wrapped for transport.
func (c Credentials) Hybrid(scheme Scheme) bool {
	return scheme == SchemeSymmetric && strings.TrimSpace(c.PublicKeyPath) != ""
}

// RequireEncrypt reports a missing credential for encrypting under scheme.
func RequireEncrypt(scheme Scheme, creds Credentials) error {
	return require(scheme, creds, "encrypt")
}

// RequireDecrypt reports a missing credential for decrypting under scheme.
func RequireDecrypt(scheme Scheme, creds Credentials) error {
	return require(scheme, creds, "decrypt")
}

func require(scheme Scheme, creds Credentials, operation string) error {
	switch scheme {
	case SchemeSymmetric:
		if creds.Secret == "" {
			return services.Wrap(services.ErrMissingCredential, "cipher", operation, "symmetric scheme requires a shared secret", nil)
		}
	case SchemeAsymmetric:
		if operation == "encrypt" && strings.TrimSpace(creds.PublicKeyPath) == "" {
			return services.Wrap(services.ErrMissingCredential, "cipher", operation, "asymmetric scheme requires a public key file", nil)
		}
		if operation == "decrypt" && strings.TrimSpace(creds.PrivateKeyPath) == "" {
			return services.Wrap(services.ErrMissingCredential, "cipher", operation, "asymmetric scheme requires a private key file", nil)
		}
	default:
		return services.Wrap(services.ErrValidation, "cipher", operation, fmt.Sprintf("unknown encryption scheme %q", scheme), nil)
	}
	return nil
}
