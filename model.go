// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/pbo

package x4vfs

import "time"

// EmptyMD5Hex is the well-known MD5 of the empty string; egosoft catalogs
// sometimes record it against a nonempty payload. See CatalogEntry.
const EmptyMD5Hex = "d41d8cd98f00b204e9800998ecf8427e"

// Default tuning values for catalog reading and writing.
const (
	DefaultReadBuffer  = 1 << 20 // 1 MiB
	DefaultWriteBuffer = 1 << 20 // 1 MiB
)

// CatalogEntry describes one parsed .cat index row.
type CatalogEntry struct {
	// Path is the virtual path exactly as stored in the index (pre-normalization).
	Path string `json:"path" yaml:"path"`
	// Offset is the byte offset of the entry's payload within the paired .dat.
	Offset int64 `json:"offset" yaml:"offset"`
	// Length is the payload size in bytes.
	Length int64 `json:"length" yaml:"length"`
	// Timestamp is the Unix timestamp (seconds) recorded in the index.
	Timestamp int64 `json:"timestamp" yaml:"timestamp"`
	// MD5Hex is the 32-character lowercase hex MD5 digest recorded in the index.
	MD5Hex string `json:"md5" yaml:"md5"`
}

// CatalogReaderOptions configures CatalogReader parse and read policy.
type CatalogReaderOptions struct {
	// AllowMD5Errors, when true, returns content on checksum mismatch instead
	// of failing with ErrChecksumMismatch; the reader does not log the mismatch.
	AllowMD5Errors bool `json:"allow_md5_errors,omitempty" yaml:"allow_md5_errors,omitempty"`
	// ReadBufferSize is defaulted by applyDefaults but not read by
	// CatalogReader, which reads and hashes each payload in one buffer.
	ReadBufferSize int `json:"read_buffer_size,omitempty" yaml:"read_buffer_size,omitempty"`
}

// applyDefaults fills zero-valued reader options with defaults.
func (opts *CatalogReaderOptions) applyDefaults() {
	if opts.ReadBufferSize < 4096 {
		opts.ReadBufferSize = DefaultReadBuffer
	}
}

// WriteCatalogInput describes one source stream to be written into a catalog entry.
type WriteCatalogInput struct {
	// Path is the destination virtual path inside the catalog.
	Path string `json:"path" yaml:"path"`
	// ModTime is the entry timestamp; defaults to current time when zero.
	ModTime time.Time `json:"mod_time" yaml:"mod_time"`
	// Open returns the raw source stream for this entry's payload.
	Open func() (ReadCloserAt, error) `json:"-" yaml:"-"`
	// SizeHint is the expected payload size in bytes, when known; zero means unknown.
	SizeHint int64 `json:"size_hint,omitempty" yaml:"size_hint,omitempty"`
}

// WriteCatalogOptions configures WriteCatalog behavior.
type WriteCatalogOptions struct {
	// WriterBufferSize is defaulted by applyDefaults but not read by
	// WriteCatalog, which buffers with DefaultWriteBuffer.
	WriterBufferSize int `json:"writer_buffer_size,omitempty" yaml:"writer_buffer_size,omitempty"`
	// EmitSig, when true, also writes one empty companion .sig file next to
	// the .cat/.dat, satisfying the game's signature presence check.
	EmitSig bool `json:"emit_sig,omitempty" yaml:"emit_sig,omitempty"`
	// OnEntryDone is called after one entry's payload is fully written.
	OnEntryDone func(entry CatalogEntry) `json:"-" yaml:"-"`
}

// applyDefaults fills zero-valued writer options with defaults.
func (opts *WriteCatalogOptions) applyDefaults() {
	if opts.WriterBufferSize < 4096 {
		opts.WriterBufferSize = DefaultWriteBuffer
	}
}

// WriteCatalogResult contains WriteCatalog output statistics.
type WriteCatalogResult struct {
	// WrittenEntries is the number of entries written to the catalog.
	WrittenEntries int `json:"written_entries" yaml:"written_entries"`
	// DataSize is the total payload bytes written to the .dat file.
	DataSize int64 `json:"data_size" yaml:"data_size"`
	// IndexSize is the total bytes written to the .cat file.
	IndexSize int64 `json:"index_size" yaml:"index_size"`
	// Duration is the end-to-end catalog write duration.
	Duration time.Duration `json:"duration,omitempty" yaml:"duration,omitempty"`
}

// ReadCloserAt is a payload source that supports both sequential reads and
// Close, matching the contract expected by WriteCatalog input openers.
type ReadCloserAt interface {
	Read(p []byte) (int, error)
	Close() error
}
