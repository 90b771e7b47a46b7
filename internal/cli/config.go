package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/mesh-intelligence/bringtolife/internal/credential"
	"github.com/mesh-intelligence/bringtolife/internal/gemini"
	"github.com/mesh-intelligence/bringtolife/internal/localstore"
	"github.com/mesh-intelligence/bringtolife/internal/paths"
)

const (
	configFileName = "config"
	configFileType = "yaml"

	// Config keys.
	cfgKeyDataDir          = "data_dir"
	cfgKeyModel            = "model"
	cfgKeyBaseURL          = "base_url"
	cfgKeyTimeout          = "timeout"
	cfgKeyMaxRecordBytes   = "max_record_bytes"
	cfgKeyLegacyQuotaBytes = "legacy_quota_bytes"
	cfgKeyAPIKey           = "api_key"

	envPrefix       = "BRINGTOLIFE"
	envGeminiAPIKey = "GEMINI_API_KEY"

	defaultTimeout = 2 * time.Minute
)

// defaultConfigYAML is the content written to config.yaml on first run.
const defaultConfigYAML = `# bringtolife configuration
#
# Every key can also be set from the environment as BRINGTOLIFE_<KEY>,
# for example BRINGTOLIFE_MODEL. The API key is also read from GEMINI_API_KEY.

# Data directory holding the history database (overridable by --data-dir)
# data_dir:

# Gemini model and endpoint
model: gemini-2.0-flash
# base_url: https://generativelanguage.googleapis.com/v1beta

# Upper bound on one generation call
timeout: 2m

# Largest stored creation in bytes; 0 means unlimited
max_record_bytes: 0

# Quota of the local key-value file holding saved keys and old history
legacy_quota_bytes: 5242880

# API key used when none is saved with "bringtolife key set"
# api_key:
`

// settings is the effective configuration of one invocation.
type settings struct {
	ConfigDir        string        `yaml:"config_dir"`
	DataDir          string        `yaml:"data_dir"`
	Model            string        `yaml:"model"`
	BaseURL          string        `yaml:"base_url"`
	Timeout          time.Duration `yaml:"timeout"`
	MaxRecordBytes   int64         `yaml:"max_record_bytes"`
	LegacyQuotaBytes int64         `yaml:"legacy_quota_bytes"`
	APIKey           string        `yaml:"api_key,omitempty"`
}

// loadConfig reads config.yaml from configDir using Viper. It creates the
// config directory and a default config.yaml on first run. A missing
// config.yaml is not an error.
func loadConfig(configDir string) (*viper.Viper, error) {
	if err := ensureConfigDir(configDir); err != nil {
		return nil, fmt.Errorf("ensure config dir: %w", err)
	}
	if err := ensureDefaultConfigFile(configDir); err != nil {
		return nil, fmt.Errorf("ensure default config: %w", err)
	}

	v := viper.New()
	v.SetDefault(cfgKeyModel, gemini.DefaultModel)
	v.SetDefault(cfgKeyBaseURL, gemini.DefaultBaseURL)
	v.SetDefault(cfgKeyTimeout, defaultTimeout)
	v.SetDefault(cfgKeyMaxRecordBytes, 0)
	v.SetDefault(cfgKeyLegacyQuotaBytes, localstore.DefaultQuotaBytes)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv(cfgKeyAPIKey, envPrefix+"_API_KEY", envGeminiAPIKey); err != nil {
		return nil, fmt.Errorf("bind env: %w", err)
	}

	v.SetConfigName(configFileName)
	v.SetConfigType(configFileType)
	v.AddConfigPath(configDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return v, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	return v, nil
}

// decodeSettings extracts settings from v. DataDir holds the raw config
// value; the caller resolves it against flags and the environment.
func decodeSettings(v *viper.Viper) (settings, error) {
	s := settings{
		DataDir:          v.GetString(cfgKeyDataDir),
		Model:            v.GetString(cfgKeyModel),
		BaseURL:          v.GetString(cfgKeyBaseURL),
		Timeout:          v.GetDuration(cfgKeyTimeout),
		MaxRecordBytes:   v.GetInt64(cfgKeyMaxRecordBytes),
		LegacyQuotaBytes: v.GetInt64(cfgKeyLegacyQuotaBytes),
		APIKey:           credential.Clean(v.GetString(cfgKeyAPIKey)),
	}
	if s.Timeout < 0 {
		return settings{}, usageError{msg: fmt.Sprintf("config: %s must not be negative", cfgKeyTimeout)}
	}
	if s.MaxRecordBytes < 0 {
		return settings{}, usageError{msg: fmt.Sprintf("config: %s must not be negative", cfgKeyMaxRecordBytes)}
	}
	return s, nil
}

// ensureConfigDir creates the config directory if it does not exist.
func ensureConfigDir(configDir string) error {
	return os.MkdirAll(configDir, 0o755)
}

// ensureDefaultConfigFile creates a default config.yaml if the file does not
// exist in the config directory.
func ensureDefaultConfigFile(configDir string) error {
	path := filepath.Join(configDir, paths.ConfigFileName)

	_, err := os.Stat(path)
	if err == nil {
		return nil
	}
	if !os.IsNotExist(err) {
		return fmt.Errorf("stat config file: %w", err)
	}
	return os.WriteFile(path, []byte(defaultConfigYAML), 0o644)
}

func newConfigCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		Long:  "Print the configuration after applying config.yaml, environment variables and flags.\nThe API key is masked.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			shown := e.settings
			shown.APIKey = credential.Mask(shown.APIKey)

			if e.flags.jsonMode {
				return writeJSON(cmd.OutOrStdout(), configJSON{
					ConfigDir:        shown.ConfigDir,
					DataDir:          shown.DataDir,
					Model:            shown.Model,
					BaseURL:          shown.BaseURL,
					Timeout:          shown.Timeout.String(),
					MaxRecordBytes:   shown.MaxRecordBytes,
					LegacyQuotaBytes: shown.LegacyQuotaBytes,
					APIKey:           shown.APIKey,
				})
			}

			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			if err := enc.Encode(shown); err != nil {
				return fmt.Errorf("encode config: %w", err)
			}
			return enc.Close()
		},
	}
}

type configJSON struct {
	ConfigDir        string `json:"config_dir"`
	DataDir          string `json:"data_dir"`
	Model            string `json:"model"`
	BaseURL          string `json:"base_url"`
	Timeout          string `json:"timeout"`
	MaxRecordBytes   int64  `json:"max_record_bytes"`
	LegacyQuotaBytes int64  `json:"legacy_quota_bytes"`
	APIKey           string `json:"api_key,omitempty"`
}
