// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/pbo (writer.go rewrite/streaming shape)

package x4vfs

import (
	"bufio"
	"context"
	"crypto/md5" //nolint:gosec // catalog format mandates MD5 checksums.
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"time"
)

var (
	// catalogWriterPool reuses buffered writers between WriteCatalog calls.
	catalogWriterPool = sync.Pool{
		New: func() any {
			return bufio.NewWriterSize(io.Discard, DefaultWriteBuffer)
		},
	}
	// catalogCopyBufferPool reuses payload copy buffers between WriteCatalog calls.
	catalogCopyBufferPool = sync.Pool{
		New: func() any {
			return new([catalogCopyBufferSize]byte)
		},
	}
)

const catalogCopyBufferSize = 64 * 1024

// WriteCatalog streams inputs into a .cat/.dat pair in deterministic,
// lexically-sorted path order so reruns over the same source tree are
// byte-identical. Both outputs are written in a single pass: payload bytes
// go straight to datOut while each entry's length/MD5/timestamp accumulate
// for the index lines emitted to catOut once every payload has been copied.
func WriteCatalog(ctx context.Context, catOut, datOut io.Writer, inputs []WriteCatalogInput, opts WriteCatalogOptions) (*WriteCatalogResult, error) {
	if len(inputs) == 0 {
		return nil, ErrEmptyInputs
	}
	if catOut == nil || datOut == nil {
		return nil, ErrNilWriter
	}

	opts.applyDefaults()

	sorted, err := prepareCatalogWriteOrder(inputs)
	if err != nil {
		return nil, err
	}

	started := timeNowForCatalog()

	dw := catalogWriterPool.Get().(*bufio.Writer) //nolint:forcetypeassert // pool contains only *bufio.Writer
	dw.Reset(datOut)
	defer func() {
		dw.Reset(io.Discard)
		catalogWriterPool.Put(dw)
	}()

	copyBufPtr := catalogCopyBufferPool.Get().(*[catalogCopyBufferSize]byte) //nolint:forcetypeassert // pool contains only fixed arrays
	copyBuf := copyBufPtr[:]
	defer catalogCopyBufferPool.Put(copyBufPtr)

	result := &WriteCatalogResult{}
	entries := make([]CatalogEntry, 0, len(sorted))

	for _, in := range sorted {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		entry, err := writeCatalogInputPayload(dw, copyBuf, in)
		if err != nil {
			return nil, fmt.Errorf("write payload %s: %w", in.Path, err)
		}

		entries = append(entries, entry)
		result.WrittenEntries++
		result.DataSize += entry.Length

		if opts.OnEntryDone != nil {
			opts.OnEntryDone(entry)
		}
	}

	if err := dw.Flush(); err != nil {
		return nil, fmt.Errorf("flush catalog data: %w", err)
	}

	indexSize, err := writeCatalogIndex(catOut, entries)
	if err != nil {
		return nil, err
	}
	result.IndexSize = indexSize
	result.Duration = timeNowForCatalog().Sub(started)

	return result, nil
}

// WriteCatalogFiles writes a .cat/.dat pair (and, optionally, an empty .sig
// companion file) to disk, deriving catPath/datPath from a shared basePath
// without its extension (e.g. "ext_01" -> "ext_01.cat" + "ext_01.dat").
func WriteCatalogFiles(ctx context.Context, basePath string, inputs []WriteCatalogInput, opts WriteCatalogOptions) (*WriteCatalogResult, error) {
	opts.applyDefaults()

	catFile, err := os.OpenFile(basePath+".cat", os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return nil, fmt.Errorf("create catalog index: %w", err)
	}
	defer func() { _ = catFile.Close() }()

	datFile, err := os.OpenFile(basePath+".dat", os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return nil, fmt.Errorf("create catalog data: %w", err)
	}
	defer func() { _ = datFile.Close() }()

	result, err := WriteCatalog(ctx, catFile, datFile, inputs, opts)
	if err != nil {
		return nil, err
	}

	if opts.EmitSig {
		if err := writeEmptySigPair(basePath); err != nil {
			return nil, err
		}
	}

	return result, nil
}

// writeEmptySigPair creates one empty basePath+".sig" file satisfying the
// game's signature-presence check for generated catalogs.
func writeEmptySigPair(basePath string) error {
	for _, ext := range []string{".sig"} {
		if err := os.WriteFile(basePath+ext, nil, 0o600); err != nil {
			return fmt.Errorf("write empty signature file: %w", err)
		}
	}

	return nil
}

// prepareCatalogWriteOrder normalizes and sorts inputs lexically, lowercase,
// depth-first — matching a fresh scan of the source directory — and rejects
// empty or duplicate normalized paths.
func prepareCatalogWriteOrder(inputs []WriteCatalogInput) ([]WriteCatalogInput, error) {
	sorted := make([]WriteCatalogInput, len(inputs))
	copy(sorted, inputs)

	seen := make(map[string]struct{}, len(sorted))
	for i := range sorted {
		normalized := NormalizePath(sorted[i].Path)
		if normalized == "" {
			return nil, fmt.Errorf("%w: %q", ErrInvalidEntryPath, sorted[i].Path)
		}
		if _, dup := seen[normalized]; dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateEntryPath, normalized)
		}

		seen[normalized] = struct{}{}
		sorted[i].Path = normalized
	}

	sort.Slice(sorted, func(i, j int) bool { return pathDepthFirstLess(sorted[i].Path, sorted[j].Path) })

	return sorted, nil
}

// writeCatalogInputPayload streams one input's payload into dw, returning
// its resulting index entry. Offset is left zero: the .cat format stores no
// offsets, which readers derive as prefix sums of the preceding lengths.
func writeCatalogInputPayload(dw *bufio.Writer, copyBuf []byte, in WriteCatalogInput) (CatalogEntry, error) {
	if in.Open == nil {
		return CatalogEntry{}, fmt.Errorf("%w: %q has no payload source", ErrInvalidEntryPath, in.Path)
	}

	rc, err := in.Open()
	if err != nil {
		return CatalogEntry{}, err
	}
	defer func() { _ = rc.Close() }()

	h := md5.New() //nolint:gosec // catalog format mandates MD5 checksums.
	mw := io.MultiWriter(dw, h)

	written, err := io.CopyBuffer(mw, rc, copyBuf)
	if err != nil {
		return CatalogEntry{}, err
	}

	modTime := in.ModTime
	if modTime.IsZero() {
		modTime = timeNowForCatalog()
	}

	return CatalogEntry{
		Path:      in.Path,
		Length:    written,
		Timestamp: modTime.Unix(),
		MD5Hex:    hex.EncodeToString(h.Sum(nil)),
	}, nil
}

// writeCatalogIndex writes one LF-terminated "path length timestamp md5hex"
// line per entry, in the order payloads were written, so implicit .dat
// offsets (prefix sums of preceding lengths) match what CatalogReader derives.
func writeCatalogIndex(catOut io.Writer, entries []CatalogEntry) (int64, error) {
	bw := bufio.NewWriterSize(catOut, DefaultWriteBuffer)

	var written int64
	for _, e := range entries {
		line := fmt.Sprintf("%s %d %d %s\n", e.Path, e.Length, e.Timestamp, e.MD5Hex)
		n, err := bw.WriteString(line)
		if err != nil {
			return 0, fmt.Errorf("write catalog index line: %w", err)
		}

		written += int64(n)
	}

	if err := bw.Flush(); err != nil {
		return 0, fmt.Errorf("flush catalog index: %w", err)
	}

	return written, nil
}

// pathDepthFirstLess reports whether a should sort before b under a
// depth-first directory scan: shared parent directories first, case-folded.
func pathDepthFirstLess(a, b string) bool {
	as, bs := strings.Split(a, "/"), strings.Split(b, "/")
	for i := 0; i < len(as) && i < len(bs); i++ {
		if as[i] != bs[i] {
			return as[i] < bs[i]
		}
	}

	return len(as) < len(bs)
}

// timeNowForCatalog isolates the single call to time.Now used by the writer
// so synthetic-output timestamps have one obvious call site to stub in tests.
func timeNowForCatalog() time.Time {
	return time.Now()
}
