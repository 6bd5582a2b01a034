// Package config loads taskchain settings from YAML files, the environment
// and base arguments given on the command line.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
	"github.com/taskchain/taskchain/pkg/format"
	"github.com/taskchain/taskchain/pkg/store"
	"github.com/taskchain/taskchain/pkg/todoist"
)

// EnvPrefix prefixes every environment override, e.g. TASKCHAIN_TOKEN.
const EnvPrefix = "TASKCHAIN"

// Config holds the resolved settings.
type Config struct {
	Token        string            `mapstructure:"token"`
	TokenFile    string            `mapstructure:"token_file"`
	APIURL       string            `mapstructure:"api_url"`
	Timeout      time.Duration     `mapstructure:"timeout"`
	DataDir      string            `mapstructure:"data_dir"`
	PrintFormat  string            `mapstructure:"default_task_print_fmt"`
	SortKeys     []string          `mapstructure:"default_task_sort_keys"`
	SortOrder    string            `mapstructure:"default_task_sort_order"`
	Aliases      map[string]string `mapstructure:"aliases"`
	ParseContent bool              `mapstructure:"parse_content"`
	Quiet        bool              `mapstructure:"quiet"`

	// File is the config file that was read, if any.
	File string `mapstructure:"-"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("token", "")
	v.SetDefault("token_file", "~/.todoist_token.txt")
	v.SetDefault("api_url", todoist.DefaultBaseURL)
	v.SetDefault("timeout", "30s")
	v.SetDefault("data_dir", store.DefaultDataDir())
	v.SetDefault("default_task_print_fmt", format.DefaultTemplate)
	v.SetDefault("default_task_sort_keys", "project_name,priority_str,content")
	v.SetDefault("default_task_sort_order", "ascending")
	v.SetDefault("aliases", map[string]string{})
	v.SetDefault("parse_content", false)
	v.SetDefault("quiet", false)
}

// SearchPaths lists the config file candidates in priority order.
func SearchPaths() []string {
	var paths []string
	if p := os.Getenv(EnvPrefix + "_CONFIG"); p != "" {
		paths = append(paths, p)
	}
	home, _ := os.UserHomeDir()
	xdg := os.Getenv("XDG_CONFIG_HOME")
	if xdg == "" {
		xdg = filepath.Join(home, ".config")
	}
	paths = append(paths,
		filepath.Join(xdg, "taskchain", "config.yaml"),
		filepath.Join(home, ".todoist_config.yaml"),
	)
	return paths
}

// FindConfigFile returns the first existing config file, or "".
func FindConfigFile() string {
	for _, p := range SearchPaths() {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// Load reads the first config file found, applies TASKCHAIN_* environment
// overrides and finally overrides, which win over everything else.
func Load(overrides map[string]string) (*Config, error) {
	return LoadFile(FindConfigFile(), overrides)
}

// LoadFile is Load with an explicit config file. An empty path means no file.
func LoadFile(path string, overrides map[string]string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}
	for k, val := range overrides {
		v.Set(k, val)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	cfg.File = path

	var err error
	if cfg.TokenFile, err = homedir.Expand(cfg.TokenFile); err != nil {
		return nil, fmt.Errorf("expanding token_file: %w", err)
	}
	if cfg.DataDir, err = homedir.Expand(cfg.DataDir); err != nil {
		return nil, fmt.Errorf("expanding data_dir: %w", err)
	}
	if cfg.Token == "" {
		if cfg.Token, err = readToken(cfg.TokenFile); err != nil {
			return nil, err
		}
	}
	return &cfg, nil
}

func readToken(path string) (string, error) {
	if path == "" {
		return "", nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("reading token file: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

// Descending reports whether the default sort order is descending.
func (c *Config) Descending() bool {
	return strings.HasPrefix(strings.ToLower(c.SortOrder), "desc")
}
