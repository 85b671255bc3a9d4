package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/dgallion1/qbank/internal/extract"
)

// cliConfig is the merged view of flags, QBANK_* environment variables and
// the optional config file, in that order of precedence.
type cliConfig struct {
	Output          string `mapstructure:"output"`
	Verbose         bool   `mapstructure:"verbose"`
	Subject         string `mapstructure:"subject"`
	MaxBytes        int64  `mapstructure:"max-bytes"`
	Pdftotext       bool   `mapstructure:"pdftotext"`
	HeaderThreshold int    `mapstructure:"header-threshold"`
	MinFallbackText int    `mapstructure:"min-fallback-text"`
}

func defaultCLIConfig() cliConfig {
	return cliConfig{
		Output:          string(OutputFormatYAML),
		Subject:         extract.DefaultSubject,
		MaxBytes:        10 << 20,
		Pdftotext:       true,
		HeaderThreshold: extract.DefaultHeaderThreshold,
		MinFallbackText: extract.DefaultMinFallbackTextLen,
	}
}

// loadConfig reads cfgFile (or qbank.yaml in . and $HOME/.qbank when empty)
// and overlays the environment and any flags set on the command line.
func loadConfig(cfgFile string, flags *pflag.FlagSet) (cliConfig, error) {
	v := viper.New()
	d := defaultCLIConfig()
	v.SetDefault("output", d.Output)
	v.SetDefault("verbose", d.Verbose)
	v.SetDefault("subject", d.Subject)
	v.SetDefault("max-bytes", d.MaxBytes)
	v.SetDefault("pdftotext", d.Pdftotext)
	v.SetDefault("header-threshold", d.HeaderThreshold)
	v.SetDefault("min-fallback-text", d.MinFallbackText)

	v.SetEnvPrefix("QBANK")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("qbank")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.qbank")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return cliConfig{}, fmt.Errorf("read config: %w", err)
		}
	}

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return cliConfig{}, fmt.Errorf("bind flags: %w", err)
		}
	}

	var cfg cliConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return cliConfig{}, fmt.Errorf("decode config: %w", err)
	}
	return cfg, nil
}

// extractor builds the extractor tuned by the config.
func (c cliConfig) extractor() extract.Extractor {
	return extract.New(extract.Options{
		HeaderThreshold:    c.HeaderThreshold,
		MinFallbackTextLen: c.MinFallbackText,
	})
}
