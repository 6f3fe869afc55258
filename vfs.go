// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta

package x4vfs

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/beevik/etree"
)

// VFSLayer is one source composed into a VFS, in ascending priority order.
// ID is the extension id for an extension layer, or "" for the base game or
// a source-override location.
type VFSLayer struct {
	ID       string
	Location *SourceLocation
}

// vfsEntry is the cached resolution of one virtual path: its seed-plus-
// patches snapshot, and, lazily, a parsed tree once GetRoot is called.
type vfsEntry struct {
	isXML bool
	// binary is the seed-plus-patches-from-other-extensions snapshot, fixed
	// at first resolution and never overwritten; the content manifest
	// generator diffs against it as the patched base.
	binary []byte
	// updatedBinary holds a caller-supplied replacement for a non-XML file,
	// set by UpdateBytes.
	updatedBinary []byte
	tree          *etree.Document
	dirty         bool
	originatedBy  []string
}

// VFS composes layered sources into one read/write view. It is a
// single-threaded engine outside of the opt-in warm-up pool; callers must
// synchronize their own access if they share a VFS across goroutines.
type VFS struct {
	layers   []VFSLayer
	diffOpts DiffOptions

	mu       sync.Mutex
	entries  map[string]*vfsEntry
	modified map[string]struct{}
}

// NewVFS composes layers (lowest priority first: base, source-override,
// extensions in dependency order, optionally the output extension last).
func NewVFS(layers []VFSLayer, diffOpts DiffOptions) *VFS {
	return &VFS{
		layers:   layers,
		diffOpts: diffOpts,
		entries:  make(map[string]*vfsEntry),
		modified: make(map[string]struct{}),
	}
}

// LoadFile returns path's resolved bytes: the highest-priority full file as
// seed, with every higher-priority <diff>-rooted version applied over it.
func (v *VFS) LoadFile(path string) ([]byte, error) {
	entry, err := v.resolve(path)
	if err != nil {
		return nil, err
	}

	if entry.tree != nil {
		data, err := entry.tree.WriteToBytes()
		if err != nil {
			return nil, fmt.Errorf("serialize %s: %w", path, err)
		}

		return data, nil
	}
	if entry.updatedBinary != nil {
		return entry.updatedBinary, nil
	}

	return entry.binary, nil
}

// UpdateBytes installs data as path's current content and marks the path
// modified, the non-XML counterpart to UpdateRoot.
func (v *VFS) UpdateBytes(path string, data []byte) error {
	normalized := NormalizePath(path)

	v.mu.Lock()
	defer v.mu.Unlock()

	entry, ok := v.entries[normalized]
	if !ok {
		entry = &vfsEntry{}
		v.entries[normalized] = entry
	}

	entry.updatedBinary = data
	entry.dirty = true
	v.modified[normalized] = struct{}{}

	return nil
}

// PatchedBaseSnapshot returns path's seed-plus-patches snapshot, as it
// stood before any local UpdateRoot/UpdateBytes call, for diff synthesis.
func (v *VFS) PatchedBaseSnapshot(path string) ([]byte, error) {
	entry, err := v.resolve(path)
	if err != nil {
		return nil, err
	}

	return entry.binary, nil
}

// GetRoot returns path's parsed XML document, parsing lazily on first access.
func (v *VFS) GetRoot(path string) (*etree.Document, error) {
	entry, err := v.resolve(path)
	if err != nil {
		return nil, err
	}
	if !entry.isXML {
		return nil, fmt.Errorf("%w: %s is not an xml file", ErrInvalidSelector, path)
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	if entry.tree == nil {
		doc := etree.NewDocument()
		if err := doc.ReadFromBytes(entry.binary); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}

		entry.tree = doc
	}

	return entry.tree, nil
}

// UpdateRoot installs root as path's current tree and marks the path
// modified.
func (v *VFS) UpdateRoot(path string, root *etree.Document) error {
	normalized := NormalizePath(path)

	v.mu.Lock()
	defer v.mu.Unlock()

	entry, ok := v.entries[normalized]
	if !ok {
		entry = &vfsEntry{isXML: true}
		v.entries[normalized] = entry
	}

	entry.tree = root
	entry.dirty = true
	v.modified[normalized] = struct{}{}

	return nil
}

// OriginatingExtensions returns the extension ids that contributed to
// path's current content: the seed's extension (if any) plus every
// extension whose patch was applied over it.
func (v *VFS) OriginatingExtensions(path string) ([]string, error) {
	entry, err := v.resolve(path)
	if err != nil {
		return nil, err
	}

	return entry.originatedBy, nil
}

// ModifiedPaths returns every normalized path touched by UpdateRoot or
// UpdateBytes so far,
// for the content manifest generator to drain.
func (v *VFS) ModifiedPaths() []string {
	v.mu.Lock()
	defer v.mu.Unlock()

	out := make([]string, 0, len(v.modified))
	for p := range v.modified {
		out = append(out, p)
	}

	return out
}

// ListFiles unions every layer's known paths matching glob (nil matches all).
func (v *VFS) ListFiles(glob *GlobMatcher) []string {
	seen := make(map[string]struct{})
	for _, layer := range v.layers {
		for _, p := range layer.Location.List(glob) {
			seen[p] = struct{}{}
		}
	}

	out := make([]string, 0, len(seen))
	for p := range seen {
		out = append(out, p)
	}

	return out
}

// resolve returns path's cached entry, computing it on first access.
func (v *VFS) resolve(path string) (*vfsEntry, error) {
	normalized := NormalizePath(path)

	v.mu.Lock()
	if entry, ok := v.entries[normalized]; ok {
		v.mu.Unlock()
		return entry, nil
	}
	v.mu.Unlock()

	entry, _, err := v.loadEntry(normalized, true)
	if err != nil {
		return nil, err
	}

	v.mu.Lock()
	if existing, ok := v.entries[normalized]; ok {
		v.mu.Unlock()
		return existing, nil
	}
	v.entries[normalized] = entry
	v.mu.Unlock()

	return entry, nil
}

// LoadFileSoft resolves path the same way LoadFile does, but applies every
// patch layer in soft mode: a failing op is reported as a
// Diagnostic instead of aborting resolution, and the result is never
// written into the shared cache, so a checker run never pollutes a VFS
// also used for real output.
func (v *VFS) LoadFileSoft(path string) ([]byte, []Diagnostic, error) {
	entry, diags, err := v.loadEntry(NormalizePath(path), false)
	if err != nil {
		return nil, diags, err
	}

	return entry.binary, diags, nil
}

// loadEntry implements seed-then-patches resolution, independent of
// the cache so it can be called from the warm-up pool without holding v.mu.
func (v *VFS) loadEntry(path string, strict bool) (*vfsEntry, []Diagnostic, error) {
	isXML := strings.HasSuffix(strings.ToLower(path), ".xml")

	seedIdx := -1
	var seedBytes []byte

	for i := len(v.layers) - 1; i >= 0; i-- {
		data, ok, err := v.layers[i].Location.Read(path)
		if err != nil {
			return nil, nil, err
		}
		if !ok {
			continue
		}
		if isXML && isDiffRoot(data) {
			continue // a patch, not a full file; keep looking for the seed
		}

		seedIdx = i
		seedBytes = data
		break
	}

	if seedIdx == -1 {
		return nil, nil, fmt.Errorf("%w: %s", ErrPathMissing, path)
	}

	entry := &vfsEntry{isXML: isXML, binary: seedBytes}
	if v.layers[seedIdx].ID != "" {
		entry.originatedBy = append(entry.originatedBy, v.layers[seedIdx].ID)
	}

	if !isXML {
		return entry, nil, nil
	}

	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(seedBytes); err != nil {
		return nil, nil, fmt.Errorf("parse %s: %w", path, err)
	}

	var diags []Diagnostic

	for i := seedIdx + 1; i < len(v.layers); i++ {
		data, ok, err := v.layers[i].Location.Read(path)
		if err != nil {
			return nil, diags, err
		}
		if !ok || !isDiffRoot(data) {
			continue
		}

		patch, err := ParsePatchDocument(data)
		if err != nil {
			if strict {
				return nil, diags, fmt.Errorf("parse patch %s from %s: %w", path, v.layers[i].ID, err)
			}

			diags = append(diags, Diagnostic{
				Kind:        ErrManifestParseError,
				ExtensionID: v.layers[i].ID,
				Message:     fmt.Sprintf("%s: %v", path, err),
			})

			continue
		}

		opDiags, err := ApplyPatch(doc, patch, strict)
		if err != nil {
			return nil, diags, err
		}
		for _, d := range opDiags {
			d.ExtensionID = v.layers[i].ID
			diags = append(diags, d)
		}

		if v.layers[i].ID != "" {
			entry.originatedBy = append(entry.originatedBy, v.layers[i].ID)
		}
	}

	patched, err := doc.WriteToBytes()
	if err != nil {
		return nil, diags, fmt.Errorf("serialize %s: %w", path, err)
	}

	entry.binary = patched
	return entry, diags, nil
}

// isDiffRoot reports whether data's root element is <diff>, the game's
// patch-file marker.
func isDiffRoot(data []byte) bool {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		return false
	}

	root := doc.Root()
	return root != nil && root.Tag == "diff"
}

// WarmUp pre-parses paths concurrently using a bounded worker pool: trees
// are built off the single-threaded path and only inserted into the cache
// under lock.
func (v *VFS) WarmUp(ctx context.Context, paths []string, maxWorkers int) error {
	return runWorkerPool(ctx, maxWorkers, len(paths), func(_ context.Context, idx int) error {
		path := paths[idx]
		normalized := NormalizePath(path)

		v.mu.Lock()
		_, exists := v.entries[normalized]
		v.mu.Unlock()
		if exists {
			return nil
		}

		entry, _, err := v.loadEntry(normalized, true)
		if err != nil {
			return err
		}

		v.mu.Lock()
		if _, exists := v.entries[normalized]; !exists {
			v.entries[normalized] = entry
		}
		v.mu.Unlock()

		return nil
	})
}
