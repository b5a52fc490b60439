// Package config loads git-start settings from flags, environment, YAML
// files and git config.
//
// Precedence, highest first:
//   - command-line flags bound with LoadOptions.Flags
//   - GIT_START_* environment variables (PIVOTAL_API_TOKEN for the token)
//   - the project file .git-start.yaml in the repository root, or --config
//   - the user file $XDG_CONFIG_HOME/git-start/config.yaml
//   - built-in defaults
//
// The token and project id finally fall back to git config, see EnsureTracker.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// ProjectFileName is the per-repository config file.
const ProjectFileName = ".git-start.yaml"

// EnvPrefix prefixes environment overrides, e.g. GIT_START_START_LIMIT.
const EnvPrefix = "GIT_START"

// Configuration keys.
const (
	KeyAPIToken     = "tracker.api_token"
	KeyProjectID    = "tracker.project_id"
	KeyEndpoint     = "tracker.endpoint"
	KeyDefaultQuery = "tracker.default_query"
	KeyLimit        = "start.limit"
	KeyOwner        = "start.owner"
	KeyHookName     = "start.hook_name"
	KeyHookScript   = "start.hook_script"
)

// Keys lists every supported key in display order.
var Keys = []string{
	KeyAPIToken,
	KeyProjectID,
	KeyEndpoint,
	KeyDefaultQuery,
	KeyLimit,
	KeyOwner,
	KeyHookName,
	KeyHookScript,
}

var defaults = map[string]any{
	KeyAPIToken:     "",
	KeyProjectID:    int64(0),
	KeyEndpoint:     "https://www.pivotaltracker.com/services/v5",
	KeyDefaultQuery: "state:unstarted",
	KeyLimit:        10,
	KeyOwner:        "",
	KeyHookName:     "prepare-commit-msg",
	KeyHookScript:   "",
}

// Config is the resolved configuration.
type Config struct {
	Tracker TrackerConfig `mapstructure:"tracker"`
	Start   StartConfig   `mapstructure:"start"`

	// Files lists the config files that were read, lowest precedence first.
	Files []string `mapstructure:"-"`
}

// TrackerConfig holds the Pivotal Tracker connection settings.
type TrackerConfig struct {
	APIToken     string `mapstructure:"api_token"`
	ProjectID    int64  `mapstructure:"project_id"`
	Endpoint     string `mapstructure:"endpoint"`
	DefaultQuery string `mapstructure:"default_query"`
}

// StartConfig holds settings of the start workflow.
type StartConfig struct {
	Limit      int    `mapstructure:"limit"`
	Owner      string `mapstructure:"owner"`
	HookName   string `mapstructure:"hook_name"`
	HookScript string `mapstructure:"hook_script"`
}

// LoadOptions controls where Load looks for settings.
type LoadOptions struct {
	// Fs is the filesystem config files are read from. Defaults to the OS.
	Fs afero.Fs
	// ProjectDir is searched for ProjectFileName. Usually the repository root.
	ProjectDir string
	// ConfigFile, when set, replaces the project file and must exist.
	ConfigFile string
	// UserConfigDir overrides os.UserConfigDir.
	UserConfigDir string
	// Flags maps config keys to command-line flags overriding them.
	Flags map[string]*pflag.Flag
}

// Load builds a fresh viper instance from opts and decodes it.
func Load(opts LoadOptions) (*Config, error) {
	v, files, err := newViper(opts)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.Files = files
	cfg.Tracker.Endpoint = strings.TrimSuffix(cfg.Tracker.Endpoint, "/")
	return &cfg, cfg.validate()
}

func newViper(opts LoadOptions) (*viper.Viper, []string, error) {
	fs := opts.Fs
	if fs == nil {
		fs = afero.NewOsFs()
	}

	v := viper.New()
	v.SetFs(fs)
	v.SetConfigType("yaml")
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv(KeyAPIToken, EnvPrefix+"_TRACKER_API_TOKEN", "PIVOTAL_API_TOKEN"); err != nil {
		return nil, nil, fmt.Errorf("bind env: %w", err)
	}

	var files []string

	userDir := opts.UserConfigDir
	if userDir == "" {
		if dir, err := os.UserConfigDir(); err == nil {
			userDir = dir
		}
	}
	if userDir != "" {
		path := filepath.Join(userDir, "git-start", "config.yaml")
		ok, err := mergeFile(v, fs, path, false)
		if err != nil {
			return nil, nil, err
		}
		if ok {
			files = append(files, path)
		}
	}

	projectFile, required := opts.ConfigFile, true
	if projectFile == "" && opts.ProjectDir != "" {
		projectFile, required = filepath.Join(opts.ProjectDir, ProjectFileName), false
	}
	if projectFile != "" {
		ok, err := mergeFile(v, fs, projectFile, required)
		if err != nil {
			return nil, nil, err
		}
		if ok {
			files = append(files, projectFile)
		}
	}

	for key, flag := range opts.Flags {
		if flag == nil {
			continue
		}
		if err := v.BindPFlag(key, flag); err != nil {
			return nil, nil, fmt.Errorf("bind flag %s: %w", flag.Name, err)
		}
	}

	return v, files, nil
}

// mergeFile merges path into v. A missing optional file is skipped.
func mergeFile(v *viper.Viper, fs afero.Fs, path string, required bool) (bool, error) {
	exists, err := afero.Exists(fs, path)
	if err != nil {
		return false, fmt.Errorf("stat %s: %w", path, err)
	}
	if !exists {
		if required {
			return false, fmt.Errorf("config file %s: %w", path, os.ErrNotExist)
		}
		return false, nil
	}

	v.SetConfigFile(path)
	if err := v.MergeInConfig(); err != nil {
		return false, fmt.Errorf("read config %s: %w", path, err)
	}
	return true, nil
}

// ErrInvalidConfig is wrapped by validation failures.
var ErrInvalidConfig = errors.New("invalid configuration")

func (c *Config) validate() error {
	if c.Start.Limit < 1 || c.Start.Limit > 500 {
		return fmt.Errorf("%w: %s must be between 1 and 500, got %d", ErrInvalidConfig, KeyLimit, c.Start.Limit)
	}
	if c.Tracker.ProjectID < 0 {
		return fmt.Errorf("%w: %s must be positive", ErrInvalidConfig, KeyProjectID)
	}
	if c.Tracker.Endpoint == "" {
		return fmt.Errorf("%w: %s is empty", ErrInvalidConfig, KeyEndpoint)
	}
	return nil
}

// Entry is one key/value pair for display.
type Entry struct {
	Key   string
	Value string
}

// Entries returns every key with its effective value. The API token is masked.
func (c *Config) Entries() []Entry {
	values := map[string]string{
		KeyAPIToken:     mask(c.Tracker.APIToken),
		KeyProjectID:    "",
		KeyEndpoint:     c.Tracker.Endpoint,
		KeyDefaultQuery: c.Tracker.DefaultQuery,
		KeyLimit:        fmt.Sprint(c.Start.Limit),
		KeyOwner:        c.Start.Owner,
		KeyHookName:     c.Start.HookName,
		KeyHookScript:   c.Start.HookScript,
	}
	if c.Tracker.ProjectID != 0 {
		values[KeyProjectID] = fmt.Sprint(c.Tracker.ProjectID)
	}

	entries := make([]Entry, 0, len(Keys))
	for _, k := range Keys {
		entries = append(entries, Entry{Key: k, Value: values[k]})
	}
	return entries
}

func mask(token string) string {
	if token == "" {
		return ""
	}
	if len(token) <= 4 {
		return "****"
	}
	return strings.Repeat("*", len(token)-4) + token[len(token)-4:]
}

// IsKey reports whether key is a supported configuration key.
func IsKey(key string) bool {
	for _, k := range Keys {
		if k == key {
			return true
		}
	}
	return false
}
