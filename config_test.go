// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta

package x4vfs

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	if cfg.OutputExtensionID != "x4vfs_output" {
		t.Errorf("OutputExtensionID = %q", cfg.OutputExtensionID)
	}
	if cfg.WorkerPoolSize <= 0 {
		t.Errorf("WorkerPoolSize = %d, want positive", cfg.WorkerPoolSize)
	}
	if cfg.ActiveLanguage != defaultManifestLanguage {
		t.Errorf("ActiveLanguage = %q, want %q", cfg.ActiveLanguage, defaultManifestLanguage)
	}
	if len(cfg.ForcedXPathAttributes) == 0 {
		t.Error("ForcedXPathAttributes should default to a nonempty list")
	}
}

func TestLoadConfigFromFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
game_root = "/games/x4"
output_extension_id = "custom_id"
allow_md5_errors = true
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	if cfg.GameRoot != "/games/x4" {
		t.Errorf("GameRoot = %q", cfg.GameRoot)
	}
	if cfg.OutputExtensionID != "custom_id" {
		t.Errorf("OutputExtensionID = %q", cfg.OutputExtensionID)
	}
	if !cfg.AllowMD5Errors {
		t.Error("AllowMD5Errors = false, want true")
	}
}

func TestLoadConfigMissingFileIsNotAnError(t *testing.T) {
	t.Parallel()

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "does-not-exist.toml"))
	if err != nil {
		t.Fatalf("LoadConfig on missing file should not error: %v", err)
	}
	if cfg.OutputExtensionID != "x4vfs_output" {
		t.Errorf("OutputExtensionID = %q, want defaults applied", cfg.OutputExtensionID)
	}
}

func TestLoadConfigEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte(`output_extension_id = "from_file"`), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv("X4VFS_OUTPUT_EXTENSION_ID", "from_env")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.OutputExtensionID != "from_env" {
		t.Errorf("OutputExtensionID = %q, want env override to win", cfg.OutputExtensionID)
	}
}

func TestLoadConfigInvalidTOML(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte("not = [valid toml"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	if _, err := LoadConfig(path); err == nil {
		t.Fatal("expected ErrConfigInvalid for malformed TOML")
	}
}
