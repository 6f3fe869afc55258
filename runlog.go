// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta

package x4vfs

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// RunLogEntry records one file written by a prior run, so a later run can
// detect and remove files that are no longer produced.
type RunLogEntry struct {
	Path    string    `toml:"path"`
	SHA256  string    `toml:"sha256"`
	Size    int64     `toml:"size"`
	ModTime time.Time `toml:"mod_time"`
}

// RunLog is the structured record of one finalisation run's written files,
// keyed by the output extension's root path.
type RunLog struct {
	OutputPath string        `toml:"output_path"`
	WrittenAt  time.Time     `toml:"written_at"`
	Entries    []RunLogEntry `toml:"entries"`
}

// NewRunLog builds a RunLog from this run's loose-file outputs.
func NewRunLog(outputPath string, writtenAt time.Time, files []LooseFile) *RunLog {
	log := &RunLog{OutputPath: outputPath, WrittenAt: writtenAt, Entries: make([]RunLogEntry, 0, len(files))}
	for _, f := range files {
		sum := sha256.Sum256(f.Data)
		log.Entries = append(log.Entries, RunLogEntry{
			Path:    f.Path,
			SHA256:  hex.EncodeToString(sum[:]),
			Size:    int64(len(f.Data)),
			ModTime: writtenAt,
		})
	}

	return log
}

// WriteRunLog persists log to path as TOML.
func WriteRunLog(path string, log *RunLog) error {
	data, err := toml.Marshal(log)
	if err != nil {
		return fmt.Errorf("marshal run log: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("create run log dir: %w", err)
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write run log %s: %w", path, err)
	}

	return nil
}

// ReadRunLog loads a previously written run log. A missing file is not an
// error: it reports an empty log, matching a first-ever run.
func ReadRunLog(path string) (*RunLog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &RunLog{}, nil
		}

		return nil, fmt.Errorf("read run log %s: %w", path, err)
	}

	var log RunLog
	if err := toml.Unmarshal(data, &log); err != nil {
		return nil, fmt.Errorf("parse run log %s: %w", path, err)
	}

	return &log, nil
}

// StaleFiles returns paths previous recorded that current does not,
// candidates for deletion before this run's fresh write lands.
func (previous *RunLog) StaleFiles(current *RunLog) []string {
	keep := make(map[string]struct{}, len(current.Entries))
	for _, e := range current.Entries {
		keep[e.Path] = struct{}{}
	}

	var stale []string
	for _, e := range previous.Entries {
		if _, ok := keep[e.Path]; !ok {
			stale = append(stale, e.Path)
		}
	}

	return stale
}

// CleanStaleFiles removes previous's recorded outputs that current no
// longer writes, rooted at dstDir, so a fresh write never leaves orphaned
// files from a removed or renamed source.
func CleanStaleFiles(dstDir string, previous, current *RunLog) error {
	dstRootAbs, err := filepath.Abs(dstDir)
	if err != nil {
		return fmt.Errorf("resolve output dir: %w", err)
	}

	for _, rel := range previous.StaleFiles(current) {
		full := filepath.Join(dstRootAbs, filepath.FromSlash(rel))
		if err := os.Remove(full); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("remove stale file %s: %w", rel, err)
		}
	}

	return nil
}
