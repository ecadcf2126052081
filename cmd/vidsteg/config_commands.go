package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"vidsteg/internal/config"
)

func newConfigCommand(ctx *commandContext) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration utilities",
	}
	configCmd.AddCommand(newConfigValidateCommand(ctx), newConfigInitCommand())
	return configCmd
}

func newConfigInitCommand() *cobra.Command {
	var targetPath string
	var overwrite bool

	cmd := &cobra.Command{
		Use:         "init",
		Short:       "Create a sample configuration file",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			target, err := configInitTarget(targetPath)
			if err != nil {
				return err
			}
			if !overwrite {
				_, err := os.Stat(target)
				switch {
				case err == nil:
					return fmt.Errorf("config file already exists at %s (use --overwrite to replace it)", target)
				case !errors.Is(err, fs.ErrNotExist):
					return fmt.Errorf("check config path: %w", err)
				}
			}
			// CreateSample creates the parent directory.
			if err := config.CreateSample(target); err != nil {
				return fmt.Errorf("create sample config: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Wrote sample configuration to %s\n", target)
			fmt.Fprintf(out, "Shared secrets are never read from this file; pass --key or set %s.\n", secretEnvVar)
			return nil
		},
	}

	cmd.Flags().StringVarP(&targetPath, "path", "p", "", "Destination for the configuration file")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Overwrite existing configuration if present")
	return cmd
}

func configInitTarget(flagValue string) (string, error) {
	if target := strings.TrimSpace(flagValue); target != "" {
		expanded, err := config.ExpandPath(target)
		if err != nil {
			return "", fmt.Errorf("resolve config path: %w", err)
		}
		return expanded, nil
	}
	target, err := config.DefaultConfigPath()
	if err != nil {
		return "", fmt.Errorf("determine default config path: %w", err)
	}
	return target, nil
}

// configSummary is the effective configuration reported by config validate.
type configSummary struct {
	Path           string `json:"path"`
	FileExists     bool   `json:"file_exists"`
	StagingDir     string `json:"staging_dir"`
	OutputDir      string `json:"output_dir"`
	LogDir         string `json:"log_dir,omitempty"`
	FragmentBudget int    `json:"fragment_budget"`
	Container      string `json:"container"`
	Argon2Time     uint32 `json:"argon2_time"`
	Argon2MemoryKB uint32 `json:"argon2_memory_kib"`
	Argon2Threads  uint8  `json:"argon2_threads"`
	Valid          bool   `json:"valid"`
}

func summarizeConfig(cfg *config.Config, path string, exists bool) configSummary {
	return configSummary{
		Path:           path,
		FileExists:     exists,
		StagingDir:     cfg.Paths.StagingDir,
		OutputDir:      cfg.Paths.OutputDir,
		LogDir:         cfg.Paths.LogDir,
		FragmentBudget: cfg.Video.FragmentBudget,
		Container:      cfg.Video.Container,
		Argon2Time:     cfg.Crypto.Argon2Time,
		Argon2MemoryKB: cfg.Crypto.Argon2MemoryKiB,
		Argon2Threads:  cfg.Crypto.Argon2Threads,
		Valid:          true,
	}
}

func (s configSummary) rows() [][]string {
	source := s.Path
	if !s.FileExists {
		source += " (missing, defaults used)"
	}
	logDir := s.LogDir
	if logDir == "" {
		logDir = "-"
	}
	return [][]string{
		{"Config path", source},
		{"Staging directory", s.StagingDir},
		{"Output directory", s.OutputDir},
		{"Log directory", logDir},
		{"Fragment budget", strconv.Itoa(s.FragmentBudget)},
		{"Container", s.Container},
		{"Key derivation", fmt.Sprintf("argon2id t=%d, %s, %d threads",
			s.Argon2Time, humanize.IBytes(uint64(s.Argon2MemoryKB)*1024), s.Argon2Threads)},
	}
}

func newConfigValidateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:         "validate",
		Short:       "Validate configuration file",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, path, exists, err := config.Load(ctx.configFlagValue())
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if err := cfg.EnsureDirectories(); err != nil {
				return fmt.Errorf("ensure directories: %w", err)
			}

			summary := summarizeConfig(cfg, path, exists)
			if ctx.JSONMode() {
				return writeJSON(cmd, summary)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderTable(
				[]string{"Setting", "Value"},
				summary.rows(),
				[]columnAlignment{alignLeft, alignLeft},
			))
			fmt.Fprintln(out, "Configuration valid")
			return nil
		},
	}
}
