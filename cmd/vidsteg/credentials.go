package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"vidsteg/internal/cipher"
	"vidsteg/internal/services"
)

const secretEnvVar = "VIDSTEG_KEY"

// keyOptions collects the credential flags shared by encode and decode.
type keyOptions struct {
	scheme     string
	key        string
	promptKey  bool
	publicKey  string
	privateKey string
}

func (o *keyOptions) bind(cmd *cobra.Command, encrypting bool) {
	cmd.Flags().StringVar(&o.scheme, "scheme", "symmetric", "Encryption scheme: symmetric (aes) or asymmetric (rsa)")
	cmd.Flags().StringVar(&o.key, "key", "", "Shared secret for the symmetric scheme (or set "+secretEnvVar+")")
	cmd.Flags().BoolVar(&o.promptKey, "prompt-key", false, "Read the shared secret from the terminal without echo")
	if encrypting {
		cmd.Flags().StringVar(&o.publicKey, "public-key", "", "PEM public key; with --scheme symmetric the secret is wrapped for the key holder")
	} else {
		cmd.Flags().StringVar(&o.privateKey, "private-key", "", "PEM private key for the asymmetric scheme")
	}
}

// resolve parses the scheme and gathers the key material it needs.
func (o *keyOptions) resolve(cmd *cobra.Command) (cipher.Scheme, cipher.Credentials, error) {
	scheme, err := cipher.ParseScheme(o.scheme)
	if err != nil {
		return "", cipher.Credentials{}, err
	}
	creds := cipher.Credentials{
		PublicKeyPath:  strings.TrimSpace(o.publicKey),
		PrivateKeyPath: strings.TrimSpace(o.privateKey),
	}
	if scheme != cipher.SchemeSymmetric {
		if o.key != "" || o.promptKey {
			return "", cipher.Credentials{}, services.Wrap(services.ErrValidation, "cli", "credentials",
				"--key and --prompt-key apply to the symmetric scheme only", nil)
		}
		return scheme, creds, nil
	}
	secret, err := o.secret(cmd)
	if err != nil {
		return "", cipher.Credentials{}, err
	}
	creds.Secret = secret
	return scheme, creds, nil
}

func (o *keyOptions) secret(cmd *cobra.Command) (string, error) {
	switch {
	case o.key != "" && o.promptKey:
		return "", services.Wrap(services.ErrValidation, "cli", "credentials", "use either --key or --prompt-key", nil)
	case o.key != "":
		return o.key, nil
	case o.promptKey:
		return promptSecret(cmd)
	default:
		return os.Getenv(secretEnvVar), nil
	}
}

func promptSecret(cmd *cobra.Command) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", services.Wrap(services.ErrValidation, "cli", "prompt key", "--prompt-key needs an interactive terminal", nil)
	}
	fmt.Fprint(cmd.ErrOrStderr(), "Shared secret: ")
	raw, err := term.ReadPassword(fd)
	fmt.Fprintln(cmd.ErrOrStderr())
	if err != nil {
		return "", fmt.Errorf("read secret: %w", err)
	}
	return string(raw), nil
}
