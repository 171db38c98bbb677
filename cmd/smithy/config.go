package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const envSmithyConfig = "SMITHY_CONFIG"

// Config represents the smithy configuration file (~/.config/smithy/config.yaml).
// Pointer fields distinguish "not set" from zero values.
type Config struct {
	ModelPath   string `yaml:"model_path"`
	ReloadModel *bool  `yaml:"reload_model"`

	TokenizerBackend string `yaml:"tokenizer"`
	TokenizerJSON    string `yaml:"tokenizer_json"`
	TiktokenEncoding string `yaml:"tiktoken_encoding"`

	SecretsPath string       `yaml:"secrets_path"`
	Papago      PapagoConfig `yaml:"papago"`

	// Sampling defaults
	SeqLen        *int64   `yaml:"seq_len"`
	Length        *int64   `yaml:"length"`
	Samples       *int64   `yaml:"samples"`
	Temperature   *float64 `yaml:"temperature"`
	TopK          *int64   `yaml:"top_k"`
	TopP          *float64 `yaml:"top_p"`
	RepeatPenalty *float64 `yaml:"repeat_penalty"`
	Seed          *int64   `yaml:"seed"`
	Dedupe        *bool    `yaml:"dedupe"`

	// Output
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
}

// PapagoConfig is the papago: section of the config file.
type PapagoConfig struct {
	Endpoint string         `yaml:"endpoint"`
	Source   string         `yaml:"source"`
	Target   string         `yaml:"target"`
	Timeout  *time.Duration `yaml:"timeout"`
}

// configPath resolves the config file: the --config flag, then
// $SMITHY_CONFIG, then the user config directory.
func configPath(flagValue string) string {
	if p := strings.TrimSpace(flagValue); p != "" {
		return p
	}
	if p := strings.TrimSpace(os.Getenv(envSmithyConfig)); p != "" {
		return p
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "smithy", "config.yaml")
}

// LoadConfig reads the config file. A missing file yields a zero Config.
func LoadConfig(path string) (Config, error) {
	if path == "" {
		return Config{}, nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Config{}, nil
	}
	if err != nil {
		return Config{}, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

// applyConfig copies config file values into the flag variables whose flag
// was not given explicitly.
func applyConfig(isSet func(string) bool, cfg Config) {
	setString := func(flag string, dst *string, v string) {
		if v != "" && !isSet(flag) {
			*dst = v
		}
	}
	setInt := func(flag string, dst *int64, v *int64) {
		if v != nil && !isSet(flag) {
			*dst = *v
		}
	}
	setFloat := func(flag string, dst *float64, v *float64) {
		if v != nil && !isSet(flag) {
			*dst = *v
		}
	}
	setBool := func(flag string, dst *bool, v *bool) {
		if v != nil && !isSet(flag) {
			*dst = *v
		}
	}

	setString("model", &modelPath, cfg.ModelPath)
	setBool("reload-model", &reloadModel, cfg.ReloadModel)

	setString("tokenizer", &tokenizerBackend, cfg.TokenizerBackend)
	setString("tokenizer-json", &tokenizerJSONPath, cfg.TokenizerJSON)
	setString("tiktoken-encoding", &tiktokenEncoding, cfg.TiktokenEncoding)

	setString("secrets", &secretsPath, cfg.SecretsPath)
	setString("papago-endpoint", &papagoEndpoint, cfg.Papago.Endpoint)
	setString("source", &sourceLang, cfg.Papago.Source)
	setString("target", &targetLang, cfg.Papago.Target)
	if cfg.Papago.Timeout != nil && !isSet("timeout") {
		papagoTimeout = *cfg.Papago.Timeout
	}

	setInt("seq-len", &seqLen, cfg.SeqLen)
	setInt("length", &length, cfg.Length)
	setInt("samples", &numSamples, cfg.Samples)
	setFloat("temp", &temp, cfg.Temperature)
	setInt("top-k", &topK, cfg.TopK)
	setFloat("top-p", &topP, cfg.TopP)
	setFloat("repeat-penalty", &repeatPenalty, cfg.RepeatPenalty)
	setInt("seed", &seed, cfg.Seed)
	setBool("dedupe", &dedupe, cfg.Dedupe)

	setString("log-level", &logLevel, cfg.LogLevel)
	setString("log-format", &logFormat, cfg.LogFormat)
}
