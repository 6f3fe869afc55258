// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/pbo (extract.go worker-pool shape)

package x4vfs

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
)

const looseWriteCopyBufferSize = 64 * 1024

// LooseFile is one in-memory output produced by the VFS's modified-file
// drain, destined for a loose output path rather than a catalog entry.
type LooseFile struct {
	// Path is the normalized virtual path the file will be written under.
	Path string
	// Data is the file's final content.
	Data []byte
}

// WriteLooseFiles writes files to dstDir, parallelized by maxWorkers
// (GOMAXPROCS when zero). On failure it returns the first encountered error.
func WriteLooseFiles(ctx context.Context, dstDir string, files []LooseFile, maxWorkers int) error {
	if len(files) == 0 {
		return nil
	}

	dstRootAbs, err := filepath.Abs(dstDir)
	if err != nil {
		return fmt.Errorf("resolve output dir: %w", err)
	}
	if err := os.MkdirAll(dstRootAbs, 0o750); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	type workItem struct {
		relPath string
		data    []byte
	}

	items := make([]workItem, 0, len(files))
	dirs := make(map[string]struct{})
	used := make(map[string]struct{}, len(files))
	nextSuffix := make(map[string]int, len(files))
	for _, f := range files {
		normalized := NormalizePath(f.Path)
		if normalized == "" {
			return fmt.Errorf("%w: %q", ErrInvalidExtractPath, f.Path)
		}

		safePath, err := SanitizePath(normalized)
		if err != nil {
			return fmt.Errorf("sanitize output path %s: %w", f.Path, err)
		}

		safePath, err = makeSanitizedPathUnique(safePath, used, nextSuffix)
		if err != nil {
			return fmt.Errorf("sanitize output path %s: %w", f.Path, err)
		}

		rel := filepath.FromSlash(safePath)
		items = append(items, workItem{relPath: rel, data: f.Data})

		if dir := filepath.Dir(rel); dir != "." {
			dirs[dir] = struct{}{}
		}
	}

	for dir := range dirs {
		if err := os.MkdirAll(filepath.Join(dstRootAbs, dir), 0o750); err != nil {
			return fmt.Errorf("create output directory %s: %w", dir, err)
		}
	}

	return runWorkerPool(ctx, maxWorkers, len(items), func(workerCtx context.Context, idx int) error {
		item := items[idx]
		outPath := filepath.Join(dstRootAbs, item.relPath)

		if !strings.HasPrefix(outPath, dstRootAbs) {
			return ErrInvalidExtractPath
		}

		if err := os.WriteFile(outPath, item.data, 0o600); err != nil {
			return fmt.Errorf("write %s: %w", item.relPath, err)
		}

		select {
		case <-workerCtx.Done():
			return workerCtx.Err()
		default:
			return nil
		}
	})
}

// runWorkerPool fans n index-addressed tasks out across maxWorkers goroutines
// (GOMAXPROCS when zero or negative) and returns the first reported error.
// It is the shared concurrency primitive behind the loose-file writer and
// the VFS's bulk XML warm-up parse pool.
func runWorkerPool(ctx context.Context, maxWorkers, n int, fn func(ctx context.Context, idx int) error) error {
	if n == 0 {
		return nil
	}

	workers := maxWorkers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if workers > n {
		workers = n
	}

	taskCh := make(chan int, n)
	errCh := make(chan error, n)
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Go(func() {
			for idx := range taskCh {
				err := fn(ctx, idx)
				select {
				case errCh <- err:
				case <-ctx.Done():
					return
				}
			}
		})
	}

	for i := 0; i < n; i++ {
		select {
		case <-ctx.Done():
			close(taskCh)
			wg.Wait()
			return ctx.Err()
		case taskCh <- i:
		}
	}

	close(taskCh)
	wg.Wait()
	close(errCh)

	var first error
	for err := range errCh {
		if err != nil && first == nil {
			first = err
		}
	}

	return first
}

// normalizeOutputPath rejects absolute paths, traversal segments and NUL
// bytes before a virtual path is turned into a filesystem output path.
func normalizeOutputPath(entryPath string) (string, error) {
	raw := strings.TrimSpace(entryPath)
	if raw == "" {
		return "", ErrInvalidExtractPath
	}
	if strings.ContainsRune(raw, 0) {
		return "", ErrInvalidExtractPath
	}
	if strings.HasPrefix(raw, "/") {
		return "", ErrInvalidExtractPath
	}

	parts := strings.Split(raw, "/")
	cleanParts := make([]string, 0, len(parts))
	for _, part := range parts {
		switch part {
		case "", ".":
			continue
		case "..":
			return "", ErrInvalidExtractPath
		default:
			cleanParts = append(cleanParts, part)
		}
	}
	if len(cleanParts) == 0 {
		return "", ErrInvalidExtractPath
	}

	return strings.Join(cleanParts, "/"), nil
}
