package config

const (
	defaultConfigPath        = "~/.config/vidsteg/config.toml"
	defaultStagingDir        = "~/.local/share/vidsteg/staging"
	defaultOutputDir         = "~/.local/share/vidsteg/output"
	defaultLogDir            = "~/.local/share/vidsteg/logs"
	defaultFragmentBudget    = 15
	defaultContainer         = "mkv"
	defaultFallbackFrameRate = "30"
	defaultFFmpegBinary      = "ffmpeg"
	defaultFFprobeBinary     = "ffprobe"
	defaultArgon2Time        = 3
	defaultArgon2MemoryKiB   = 64 * 1024
	defaultArgon2Threads     = 4
	defaultRSAKeyBits        = 3072
	defaultStaleAfterHours   = 24
	defaultLogFormat         = "console"
	defaultLogLevel          = "info"

	minRSAKeyBits = 2048
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StagingDir: defaultStagingDir,
			OutputDir:  defaultOutputDir,
			LogDir:     defaultLogDir,
		},
		Video: Video{
			FragmentBudget:    defaultFragmentBudget,
			Container:         defaultContainer,
			FallbackFrameRate: defaultFallbackFrameRate,
			FFmpegBinary:      defaultFFmpegBinary,
			FFprobeBinary:     defaultFFprobeBinary,
		},
		Crypto: Crypto{
			Argon2Time:      defaultArgon2Time,
			Argon2MemoryKiB: defaultArgon2MemoryKiB,
			Argon2Threads:   defaultArgon2Threads,
			RSAKeyBits:      defaultRSAKeyBits,
		},
		Staging: Staging{
			StaleAfterHours: defaultStaleAfterHours,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
