package session

import (
	"github.com/spf13/viper"
)

// Config holds session-level defaults that are not part of any single
// scan request: default HV voltage, whether to log per-call timing, and
// the acquisition frame ring capacity. Following the platform's own
// config file convention, it is read from an "oemseq.toml" found first
// in /etc/oemseq, then in the working directory.
type Config struct {
	DefaultVoltage   float64 `mapstructure:"default_voltage"`
	LogTiming        bool    `mapstructure:"log_timing"`
	FrameRingSize    int     `mapstructure:"frame_ring_size"`
}

// DefaultConfig is used when no config file is found; it matches the
// bring-up defaults named in the external interface.
func DefaultConfig() Config {
	return Config{
		DefaultVoltage: 30,
		LogTiming:      false,
		FrameRingSize:  4,
	}
}

// LoadConfig reads "oemseq.toml" from /etc/oemseq, falling back to the
// working directory, returning DefaultConfig if neither exists.
func LoadConfig() (Config, error) {
	v := viper.New()
	v.SetConfigName("oemseq")
	v.SetConfigType("toml")
	v.AddConfigPath("/etc/oemseq")
	v.AddConfigPath(".")

	cfg := DefaultConfig()
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return cfg, nil
		}
		return cfg, err
	}
	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}
