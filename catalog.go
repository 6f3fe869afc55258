// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/pbo (Reader/parse/offset-resolution shape)

package x4vfs

import (
	"bufio"
	"crypto/md5" //nolint:gosec // catalog format mandates MD5 checksums.
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"
)

const catalogScanBufferSize = 64 * 1024

// CatalogReader provides read-only access to one parsed .cat/.dat pair.
type CatalogReader struct {
	// ra is the underlying random-access reader for the paired .dat.
	ra io.ReaderAt
	// datFile is set when the reader owns an *os.File opened via OpenCatalog.
	datFile *os.File
	// catPath/datPath record the origin paths, kept for diagnostics.
	catPath, datPath string
	// entries stores parsed entries in file order, including superseded duplicates.
	entries []CatalogEntry
	// index maps a normalized virtual path to the winning entry's index in entries.
	index map[string]int
	// datSize is the paired .dat total size in bytes.
	datSize int64
	// opts holds the resolved reader options.
	opts CatalogReaderOptions
	// mu guards closed; payload reads go through ra without holding it.
	mu sync.Mutex
	// closed reports whether Close was already called.
	closed bool
}

// OpenCatalog opens a .cat index file and its paired .dat blob by path.
func OpenCatalog(catPath, datPath string) (*CatalogReader, error) {
	return OpenCatalogWithOptions(catPath, datPath, CatalogReaderOptions{})
}

// OpenCatalogWithOptions opens a .cat/.dat pair using explicit reader options.
func OpenCatalogWithOptions(catPath, datPath string, opts CatalogReaderOptions) (*CatalogReader, error) {
	opts.applyDefaults()

	catFile, err := os.Open(catPath)
	if err != nil {
		return nil, fmt.Errorf("open catalog index: %w", err)
	}
	defer func() { _ = catFile.Close() }()

	datFile, err := os.Open(datPath)
	if err != nil {
		return nil, fmt.Errorf("open catalog data: %w", err)
	}

	fi, err := datFile.Stat()
	if err != nil {
		_ = datFile.Close()
		return nil, fmt.Errorf("stat catalog data: %w", err)
	}

	r, err := newCatalogReader(catFile, datFile, fi.Size(), opts)
	if err != nil {
		_ = datFile.Close()
		return nil, err
	}

	r.datFile = datFile
	r.catPath = catPath
	r.datPath = datPath

	return r, nil
}

// NewCatalogReaderFromReaders parses a catalog from an already-open index
// reader and a random-access .dat source of known size. The caller retains
// ownership of both; Close is a no-op in this path.
func NewCatalogReaderFromReaders(catIndex io.Reader, dat io.ReaderAt, datSize int64, opts CatalogReaderOptions) (*CatalogReader, error) {
	opts.applyDefaults()
	return newCatalogReader(catIndex, dat, datSize, opts)
}

func newCatalogReader(catIndex io.Reader, dat io.ReaderAt, datSize int64, opts CatalogReaderOptions) (*CatalogReader, error) {
	entries, err := parseCatalogLines(catIndex)
	if err != nil {
		return nil, err
	}

	if err := assignCatalogOffsets(entries); err != nil {
		return nil, err
	}

	index := make(map[string]int, len(entries))
	for i := range entries {
		index[NormalizePath(entries[i].Path)] = i
	}

	return &CatalogReader{
		ra:      dat,
		datSize: datSize,
		entries: entries,
		index:   index,
		opts:    opts,
	}, nil
}

// parseCatalogLines parses every line of a .cat index into ordered entries.
// Offsets are not stored in the text form; assignCatalogOffsets fills them in.
func parseCatalogLines(r io.Reader) ([]CatalogEntry, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, catalogScanBufferSize), 1<<24)

	var entries []CatalogEntry
	for scanner.Scan() {
		line := scanner.Text()
		entry, err := parseCatalogLine(line)
		if err != nil {
			return nil, err
		}

		entries = append(entries, entry)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan catalog index: %w", err)
	}

	return entries, nil
}

// parseCatalogLine parses one "path length timestamp md5hex" line. Only the
// last three fields are fixed width; the path itself may contain spaces, so
// splitting happens from the right.
func parseCatalogLine(line string) (CatalogEntry, error) {
	if strings.TrimSpace(line) == "" {
		return CatalogEntry{}, fmt.Errorf("%w: blank line", ErrInvalidCatalogLine)
	}
	if strings.HasPrefix(strings.TrimSpace(line), "#") {
		return CatalogEntry{}, fmt.Errorf("%w: comment line", ErrInvalidCatalogLine)
	}

	md5Idx := strings.LastIndexByte(line, ' ')
	if md5Idx < 0 {
		return CatalogEntry{}, fmt.Errorf("%w: %q", ErrInvalidCatalogLine, line)
	}
	md5Hex := line[md5Idx+1:]

	rest := line[:md5Idx]
	tsIdx := strings.LastIndexByte(rest, ' ')
	if tsIdx < 0 {
		return CatalogEntry{}, fmt.Errorf("%w: %q", ErrInvalidCatalogLine, line)
	}
	timestampStr := rest[tsIdx+1:]

	rest = rest[:tsIdx]
	lenIdx := strings.LastIndexByte(rest, ' ')
	if lenIdx < 0 {
		return CatalogEntry{}, fmt.Errorf("%w: %q", ErrInvalidCatalogLine, line)
	}
	lengthStr := rest[lenIdx+1:]
	path := rest[:lenIdx]

	if path == "" {
		return CatalogEntry{}, fmt.Errorf("%w: empty path in %q", ErrInvalidCatalogLine, line)
	}

	length, err := strconv.ParseInt(lengthStr, 10, 64)
	if err != nil || length < 0 {
		return CatalogEntry{}, fmt.Errorf("%w: bad length in %q", ErrInvalidCatalogLine, line)
	}

	timestamp, err := strconv.ParseInt(timestampStr, 10, 64)
	if err != nil {
		return CatalogEntry{}, fmt.Errorf("%w: bad timestamp in %q", ErrInvalidCatalogLine, line)
	}

	if len(md5Hex) != 32 {
		return CatalogEntry{}, fmt.Errorf("%w: bad md5 in %q", ErrInvalidCatalogLine, line)
	}

	return CatalogEntry{
		Path:      path,
		Length:    length,
		Timestamp: timestamp,
		MD5Hex:    strings.ToLower(md5Hex),
	}, nil
}

// assignCatalogOffsets derives each entry's payload offset as the prefix sum
// of preceding entries' lengths, in file order (including superseded duplicates).
func assignCatalogOffsets(entries []CatalogEntry) error {
	var offset int64
	for i := range entries {
		entries[i].Offset = offset

		next := offset + entries[i].Length
		if next < offset {
			return fmt.Errorf("%w: entry %s overflows catalog payload", ErrSizeOverflow, entries[i].Path)
		}

		offset = next
	}

	return nil
}

// Entries returns a copy of all parsed entries in file order, including
// superseded duplicates.
func (r *CatalogReader) Entries() []CatalogEntry {
	if r == nil {
		return nil
	}

	out := make([]CatalogEntry, len(r.entries))
	copy(out, r.entries)
	return out
}

// Contains reports whether path resolves to a winning entry in this catalog.
func (r *CatalogReader) Contains(path string) bool {
	if r == nil {
		return false
	}

	_, ok := r.index[NormalizePath(path)]
	return ok
}

// List returns the winning entries, one per distinct normalized path.
func (r *CatalogReader) List() []CatalogEntry {
	if r == nil {
		return nil
	}

	out := make([]CatalogEntry, 0, len(r.index))
	for _, idx := range r.index {
		out = append(out, r.entries[idx])
	}

	return out
}

// Read returns the payload bytes for path, verifying the MD5:
// a checksum match always succeeds; a mismatch against the well-known
// empty-string MD5 on nonempty payload is the tolerated empty-hash bug;
// any other mismatch is handled per AllowMD5Errors policy.
func (r *CatalogReader) Read(path string) ([]byte, error) {
	if r == nil || r.ra == nil {
		return nil, ErrNilReader
	}

	idx, ok := r.index[NormalizePath(path)]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrPathMissing, path)
	}

	return r.readEntry(r.entries[idx])
}

func (r *CatalogReader) readEntry(entry CatalogEntry) ([]byte, error) {
	r.mu.Lock()
	closed := r.closed
	r.mu.Unlock()
	if closed {
		return nil, ErrClosed
	}

	buf := make([]byte, entry.Length)
	if entry.Length > 0 {
		if _, err := io.ReadFull(io.NewSectionReader(r.ra, entry.Offset, entry.Length), buf); err != nil {
			return nil, fmt.Errorf("read catalog payload %s: %w", entry.Path, err)
		}
	}

	sum := md5.Sum(buf) //nolint:gosec // catalog format mandates MD5 checksums.
	actualHex := hex.EncodeToString(sum[:])
	if actualHex == entry.MD5Hex {
		return buf, nil
	}

	if entry.MD5Hex == EmptyMD5Hex && len(buf) > 0 {
		// Known egosoft empty-hash bug: recorded digest is the empty-string MD5
		// despite a nonempty payload. Tolerated silently per policy.
		return buf, nil
	}

	if r.opts.AllowMD5Errors {
		return buf, nil
	}

	return nil, fmt.Errorf("%w: %s recorded %s computed %s", ErrChecksumMismatch, entry.Path, entry.MD5Hex, actualHex)
}

// Close closes the underlying .dat file handle if this reader owns one.
func (r *CatalogReader) Close() error {
	if r == nil {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}

	r.closed = true
	if r.datFile != nil {
		return r.datFile.Close()
	}

	return nil
}
