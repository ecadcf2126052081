package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"vidsteg/internal/cipher"
	"vidsteg/internal/services"
)

func newKeygenCommand(ctx *commandContext) *cobra.Command {
	var privatePath string
	var publicPath string
	var bits int

	cmd := &cobra.Command{
		Use:   "keygen",
		Short: "Generate an RSA key pair for the asymmetric scheme",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if bits == 0 {
				bits = cfg.Crypto.RSAKeyBits
			}
			if err := cipher.GenerateKeyPair(bits, strings.TrimSpace(privatePath), strings.TrimSpace(publicPath)); err != nil {
				return err
			}
			if ctx.JSONMode() {
				return writeJSON(cmd, map[string]any{
					"private_key": privatePath,
					"public_key":  publicPath,
					"bits":        bits,
				})
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Private key: %s\n", privatePath)
			fmt.Fprintf(out, "Public key:  %s\n", publicPath)
			fmt.Fprintf(out, "Key size:    %d bits\n", bits)
			return nil
		},
	}

	cmd.Flags().StringVar(&privatePath, "private", "", "Destination for the PEM private key")
	cmd.Flags().StringVar(&publicPath, "public", "", "Destination for the PEM public key")
	cmd.Flags().IntVar(&bits, "bits", 0, "RSA key size (default crypto.rsa_key_bits)")
	_ = cmd.MarkFlagRequired("private")
	_ = cmd.MarkFlagRequired("public")

	return cmd
}

func newUnwrapKeyCommand() *cobra.Command {
	var privatePath string

	cmd := &cobra.Command{
		Use:         "unwrap-key WRAPPED",
		Short:       "Recover a shared secret wrapped during a hybrid encode",
		Args:        cobra.ExactArgs(1),
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(privatePath) == "" {
				return services.Wrap(services.ErrMissingCredential, "cli", "unwrap key", "--private-key is required", nil)
			}
			secret, err := cipher.UnwrapKey(args[0], privatePath)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), secret)
			return nil
		},
	}

	cmd.Flags().StringVar(&privatePath, "private-key", "", "PEM private key matching the public key used to wrap")

	return cmd
}
