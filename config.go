// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta

package x4vfs

import (
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// Config is the engine's immutable configuration record, built once at
// startup and passed by pointer into every component constructor.
// Nothing downstream of construction mutates it.
type Config struct {
	GameRoot string `toml:"game_root"`
	UserDir  string `toml:"user_dir"`

	OutputExtensionID      string `toml:"output_extension_id"`
	OutputExtensionName    string `toml:"output_extension_name"`
	OutputExtensionVersion string `toml:"output_extension_version"`

	AllowMD5Errors        bool     `toml:"allow_md5_errors"`
	OutputToCatalog       bool     `toml:"output_to_catalog"`
	IgnoreOutputExtension bool     `toml:"ignore_output_extension"`
	ForcedXPathAttributes []string `toml:"forced_xpath_attributes"`

	WorkerPoolSize int  `toml:"worker_pool_size"`
	DeveloperMode  bool `toml:"developer_mode"`

	ActiveLanguage string `toml:"active_language"`
}

// applyDefaults fills zero-valued fields with the engine's defaults.
func (c *Config) applyDefaults() {
	if c.OutputExtensionID == "" {
		c.OutputExtensionID = "x4vfs_output"
	}
	if c.OutputExtensionName == "" {
		c.OutputExtensionName = "X4VFS Output"
	}
	if c.OutputExtensionVersion == "" {
		c.OutputExtensionVersion = "1"
	}
	if len(c.ForcedXPathAttributes) == 0 {
		c.ForcedXPathAttributes = identifyingAttrDefaults
	}
	if c.WorkerPoolSize <= 0 {
		c.WorkerPoolSize = runtime.GOMAXPROCS(0)
	}
	if c.ActiveLanguage == "" {
		c.ActiveLanguage = defaultManifestLanguage
	}
}

// LoadConfig builds a Config from defaults, an optional TOML file at path
// (skipped silently if absent), and environment overrides prefixed X4VFS_.
func LoadConfig(path string) (*Config, error) {
	cfg := &Config{}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("read config %s: %w", path, err)
			}
		} else if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrConfigInvalid, err)
		}
	}

	applyEnvOverrides(cfg)
	cfg.applyDefaults()

	return cfg, nil
}

// applyEnvOverrides layers X4VFS_-prefixed environment variables over cfg,
// taking precedence over the on-disk file but not over values the caller
// leaves unset (those still fall to applyDefaults).
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("X4VFS_GAME_ROOT"); v != "" {
		cfg.GameRoot = v
	}
	if v := os.Getenv("X4VFS_USER_DIR"); v != "" {
		cfg.UserDir = v
	}
	if v := os.Getenv("X4VFS_OUTPUT_EXTENSION_ID"); v != "" {
		cfg.OutputExtensionID = v
	}
	if v := os.Getenv("X4VFS_ALLOW_MD5_ERRORS"); v != "" {
		cfg.AllowMD5Errors, _ = strconv.ParseBool(v)
	}
	if v := os.Getenv("X4VFS_OUTPUT_TO_CATALOG"); v != "" {
		cfg.OutputToCatalog, _ = strconv.ParseBool(v)
	}
	if v := os.Getenv("X4VFS_DEVELOPER_MODE"); v != "" {
		cfg.DeveloperMode, _ = strconv.ParseBool(v)
	}
	if v := os.Getenv("X4VFS_FORCED_XPATH_ATTRIBUTES"); v != "" {
		cfg.ForcedXPathAttributes = strings.Split(v, ",")
	}
}
