// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/pbo (filter.go prefix/merge shape)

package x4vfs

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// catCategory distinguishes the three cat-stack naming categories.
// Within equal index, subst shadows ext shadows plain.
type catCategory int

const (
	catCategoryPlain catCategory = iota
	catCategoryExt
	catCategorySubst
)

// catStackEntry pairs one opened catalog with its shadowing rank.
type catStackEntry struct {
	index    int
	category catCategory
	reader   *CatalogReader
}

// CatStack is the ordered list of catalog readers for one SourceLocation,
// highest-priority (most-shadowing) last.
type CatStack struct {
	entries []catStackEntry
}

// NewCatStack returns an empty stack. Add keeps readers sorted by (index,
// category) ascending, so iterating the stack from the end yields the winning
// cat for any given path.
func NewCatStack() *CatStack {
	return &CatStack{}
}

// Add registers one opened catalog reader under its numeric suffix and category.
func (s *CatStack) Add(index int, category catCategory, reader *CatalogReader) {
	s.entries = append(s.entries, catStackEntry{index: index, category: category, reader: reader})
	sort.SliceStable(s.entries, func(i, j int) bool {
		if s.entries[i].index != s.entries[j].index {
			return s.entries[i].index < s.entries[j].index
		}

		return s.entries[i].category < s.entries[j].category
	})
}

// Len reports the number of catalogs in the stack.
func (s *CatStack) Len() int { return len(s.entries) }

// Read returns the payload of path from the topmost (highest-priority)
// catalog in the stack that contains it.
func (s *CatStack) Read(path string) ([]byte, bool, error) {
	for i := len(s.entries) - 1; i >= 0; i-- {
		if s.entries[i].reader.Contains(path) {
			data, err := s.entries[i].reader.Read(path)
			return data, true, err
		}
	}

	return nil, false, nil
}

// Contains reports whether any catalog in the stack knows path.
func (s *CatStack) Contains(path string) bool {
	for i := range s.entries {
		if s.entries[i].reader.Contains(path) {
			return true
		}
	}

	return false
}

// List merges every catalog's winning entries, letting a higher-ranked cat's
// entry shadow a lower-ranked one for the same path.
func (s *CatStack) List() map[string]CatalogEntry {
	merged := make(map[string]CatalogEntry)
	for i := range s.entries {
		for _, e := range s.entries[i].reader.List() {
			merged[NormalizePath(e.Path)] = e
		}
	}

	return merged
}

// Close closes every catalog reader owned by the stack.
func (s *CatStack) Close() error {
	var first error
	for i := range s.entries {
		if err := s.entries[i].reader.Close(); err != nil && first == nil {
			first = err
		}
	}

	return first
}

// SourceLocation is one search root (base game, source-override folder, or
// one extension): a loose-file tree plus its ordered cat stack.
type SourceLocation struct {
	// Root is the location's filesystem root directory.
	Root string
	// PreferLoose decides whether loose files win over cat entries within
	// this location, rather than the default packed-wins behavior.
	PreferLoose bool
	// Loose maps a normalized virtual path to its filesystem path.
	Loose map[string]string
	// Cats is the location's ordered cat stack.
	Cats *CatStack
}

// NewSourceLocation builds a location for root, recursively enumerating
// loose files and opening every NN.cat/ext_NN.cat/subst_NN.cat pair present.
func NewSourceLocation(root string, preferLoose bool, readerOpts CatalogReaderOptions) (*SourceLocation, error) {
	loc := &SourceLocation{
		Root:        root,
		PreferLoose: preferLoose,
		Loose:       make(map[string]string),
		Cats:        NewCatStack(),
	}

	if err := loc.scanLoose(); err != nil {
		return nil, err
	}
	if err := loc.scanCats(readerOpts); err != nil {
		return nil, err
	}

	return loc, nil
}

func (loc *SourceLocation) scanLoose() error {
	info, err := os.Stat(loc.Root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}

		return fmt.Errorf("stat source root %s: %w", loc.Root, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("source root %s is not a directory", loc.Root)
	}

	return filepath.WalkDir(loc.Root, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		base := filepath.Base(p)
		if isCatStackFile(base) {
			return nil
		}

		rel, err := filepath.Rel(loc.Root, p)
		if err != nil {
			return err
		}

		loc.Loose[NormalizePath(filepath.ToSlash(rel))] = p
		return nil
	})
}

func (loc *SourceLocation) scanCats(readerOpts CatalogReaderOptions) error {
	entries, err := os.ReadDir(loc.Root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}

		return fmt.Errorf("read source root %s: %w", loc.Root, err)
	}

	for _, e := range entries {
		if e.IsDir() {
			continue
		}

		name := e.Name()
		if !strings.HasSuffix(strings.ToLower(name), ".cat") {
			continue
		}

		index, category, ok := parseCatStackName(name)
		if !ok {
			continue
		}

		base := strings.TrimSuffix(name, filepath.Ext(name))
		catPath := filepath.Join(loc.Root, base+".cat")
		datPath := filepath.Join(loc.Root, base+".dat")

		reader, err := OpenCatalogWithOptions(catPath, datPath, readerOpts)
		if err != nil {
			return fmt.Errorf("open cat stack member %s: %w", name, err)
		}

		loc.Cats.Add(index, category, reader)
	}

	return nil
}

// isCatStackFile reports whether base is a .cat/.dat/.sig member of the cat
// stack naming convention, to exclude it from the loose-file tree.
func isCatStackFile(base string) bool {
	lower := strings.ToLower(base)
	ext := filepath.Ext(lower)

	switch ext {
	case ".cat", ".dat", ".sig":
		stem := strings.TrimSuffix(lower, ext)
		_, _, ok := parseCatStackName(stem + ".cat")
		return ok
	default:
		return false
	}
}

// parseCatStackName parses "NN.cat", "ext_NN.cat" or "subst_NN.cat" into its
// numeric suffix and category.
func parseCatStackName(name string) (int, catCategory, bool) {
	lower := strings.ToLower(name)
	stem := strings.TrimSuffix(lower, filepath.Ext(lower))

	category := catCategoryPlain
	switch {
	case strings.HasPrefix(stem, "ext_"):
		category = catCategoryExt
		stem = strings.TrimPrefix(stem, "ext_")
	case strings.HasPrefix(stem, "subst_"):
		category = catCategorySubst
		stem = strings.TrimPrefix(stem, "subst_")
	}

	if stem == "" {
		return 0, 0, false
	}

	index := 0
	for _, r := range stem {
		if r < '0' || r > '9' {
			return 0, 0, false
		}

		index = index*10 + int(r-'0')
	}

	return index, category, true
}

// Contains reports whether either store in this location knows path.
func (loc *SourceLocation) Contains(path string) bool {
	normalized := NormalizePath(path)
	if _, ok := loc.Loose[normalized]; ok {
		return true
	}

	return loc.Cats.Contains(normalized)
}

// Read resolves path under the location's prefer_loose policy: loose-first
// when PreferLoose, else packed-first, falling back to the other store on miss.
func (loc *SourceLocation) Read(path string) ([]byte, bool, error) {
	normalized := NormalizePath(path)

	readLoose := func() ([]byte, bool, error) {
		fsPath, ok := loc.Loose[normalized]
		if !ok {
			return nil, false, nil
		}

		data, err := os.ReadFile(fsPath)
		if err != nil {
			return nil, true, fmt.Errorf("read loose file %s: %w", fsPath, err)
		}

		return data, true, nil
	}

	if loc.PreferLoose {
		if data, ok, err := readLoose(); ok || err != nil {
			return data, ok, err
		}

		return loc.Cats.Read(normalized)
	}

	if data, ok, err := loc.Cats.Read(normalized); ok || err != nil {
		return data, ok, err
	}

	return readLoose()
}

// List returns every normalized path known to this location matching glob,
// merging loose and cat-stack stores with shadowing already resolved.
func (loc *SourceLocation) List(glob *GlobMatcher) []string {
	seen := make(map[string]struct{})
	for p := range loc.Loose {
		seen[p] = struct{}{}
	}
	for p := range loc.Cats.List() {
		seen[p] = struct{}{}
	}

	out := make([]string, 0, len(seen))
	for p := range seen {
		if glob == nil || glob.Match(p) {
			out = append(out, p)
		}
	}

	sort.Strings(out)
	return out
}

// ListByPrefix returns every known path under prefix (or exactly prefix).
func (loc *SourceLocation) ListByPrefix(prefix string) []string {
	normalizedPrefix := NormalizePath(prefix)
	all := loc.List(nil)
	if normalizedPrefix == "" {
		return all
	}

	withSlash := normalizedPrefix + "/"
	out := make([]string, 0, len(all))
	for _, p := range all {
		if p == normalizedPrefix || strings.HasPrefix(p, withSlash) {
			out = append(out, p)
		}
	}

	return out
}

// Close releases every catalog reader held by this location.
func (loc *SourceLocation) Close() error {
	return loc.Cats.Close()
}
