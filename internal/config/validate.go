package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"vidsteg/internal/cipher"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateVideo(); err != nil {
		return err
	}
	if err := c.validateCrypto(); err != nil {
		return err
	}
	if err := c.validateStaging(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.StagingDir) == "" {
		return errors.New("paths.staging_dir must be set")
	}
	if strings.TrimSpace(c.Paths.OutputDir) == "" {
		return errors.New("paths.output_dir must be set")
	}
	return nil
}

func (c *Config) validateVideo() error {
	if c.Video.FragmentBudget < 1 {
		return errors.New("video.fragment_budget must be >= 1")
	}
	switch c.Video.Container {
	case "mkv", "mov":
	default:
		return fmt.Errorf("video.container must be mkv or mov, got %q", c.Video.Container)
	}
	if _, err := ParseFrameRate(c.Video.FallbackFrameRate); err != nil {
		return fmt.Errorf("video.fallback_frame_rate: %w", err)
	}
	return nil
}

func (c *Config) validateCrypto() error {
	if c.Crypto.Argon2Time < 1 || c.Crypto.Argon2Time > cipher.MaxKDFTime {
		return fmt.Errorf("crypto.argon2_time must be between 1 and %d", cipher.MaxKDFTime)
	}
	if c.Crypto.Argon2MemoryKiB < 8*uint32(max(c.Crypto.Argon2Threads, 1)) {
		return errors.New("crypto.argon2_memory_kib must be at least 8 KiB per thread")
	}
	if c.Crypto.Argon2MemoryKiB > cipher.MaxKDFMemoryKiB {
		return fmt.Errorf("crypto.argon2_memory_kib must be <= %d (1 GiB)", cipher.MaxKDFMemoryKiB)
	}
	if c.Crypto.Argon2Threads < 1 {
		return errors.New("crypto.argon2_threads must be >= 1")
	}
	if c.Crypto.RSAKeyBits < minRSAKeyBits {
		return fmt.Errorf("crypto.rsa_key_bits must be >= %d", minRSAKeyBits)
	}
	return nil
}

func (c *Config) validateStaging() error {
	if c.Staging.StaleAfterHours < 0 {
		return errors.New("staging.stale_after_hours must be >= 0")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
		return nil
	default:
		return fmt.Errorf("logging.level must be one of debug, info, warn, error; got %q", c.Logging.Level)
	}
}

// ParseFrameRate parses either an integer/decimal rate ("30", "29.97") or an
// ffprobe style rational ("30000/1001") and returns the rate in frames per second.
func ParseFrameRate(value string) (float64, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, errors.New("frame rate is empty")
	}
	if num, den, ok := strings.Cut(value, "/"); ok {
		n, err := strconv.ParseFloat(strings.TrimSpace(num), 64)
		if err != nil {
			return 0, fmt.Errorf("parse frame rate %q: %w", value, err)
		}
		d, err := strconv.ParseFloat(strings.TrimSpace(den), 64)
		if err != nil {
			return 0, fmt.Errorf("parse frame rate %q: %w", value, err)
		}
		if n <= 0 || d <= 0 {
			return 0, fmt.Errorf("frame rate %q must be positive", value)
		}
		return n / d, nil
	}
	rate, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("parse frame rate %q: %w", value, err)
	}
	if rate <= 0 {
		return 0, fmt.Errorf("frame rate %q must be positive", value)
	}
	return rate, nil
}
