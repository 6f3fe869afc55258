// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta

package x4vfs

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Diagnostic is one non-fatal finding surfaced during discovery or load-order
// resolution, matching the "warn, treat extension as disabled"/"warn, break
// the cycle" policies used throughout.
type Diagnostic struct {
	Kind        error
	ExtensionID string
	Message     string
}

// DiscoveryOptions configures extension enumeration.
type DiscoveryOptions struct {
	// GameRoot is the base game's installation directory.
	GameRoot string
	// UserDir is the user's home config/extensions directory; optional.
	UserDir string
	// Whitelist, when non-empty, restricts candidates to these folder names.
	Whitelist []string
	// Blacklist excludes these folder names from candidates.
	Blacklist []string
	// DisabledIDs are extension ids disabled via <user>/config.xml.
	DisabledIDs map[string]bool
	// ActiveLanguage selects localized display names in manifests.
	ActiveLanguage string
	// ReaderOptions configures the cat-stack readers opened for each
	// discovered extension's own SourceLocation.
	ReaderOptions CatalogReaderOptions
}

// DiscoverExtensions scans <root>/extensions/*/content.xml and
// <user>/extensions/*/content.xml, returning enabled extensions
// and diagnostics for any manifest that failed to parse.
func DiscoverExtensions(opts DiscoveryOptions) ([]Extension, []Diagnostic, error) {
	var extensions []Extension
	var diags []Diagnostic

	allow := toFolderSet(opts.Whitelist)
	deny := toFolderSet(opts.Blacklist)

	for _, root := range []string{opts.GameRoot, opts.UserDir} {
		if root == "" {
			continue
		}

		found, d, err := scanExtensionsDir(filepath.Join(root, "extensions"), opts.ActiveLanguage, opts.ReaderOptions)
		if err != nil {
			return nil, nil, err
		}

		diags = append(diags, d...)
		for _, ext := range found {
			if len(allow) > 0 && !allow[ext.FolderID] {
				continue
			}
			if deny[ext.FolderID] {
				continue
			}
			if !ext.Manifest.Enabled {
				continue
			}
			if opts.DisabledIDs[ext.ID()] {
				continue
			}

			extensions = append(extensions, ext)
		}
	}

	return extensions, diags, nil
}

func scanExtensionsDir(dir, activeLanguage string, readerOpts CatalogReaderOptions) ([]Extension, []Diagnostic, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, nil
		}

		return nil, nil, fmt.Errorf("read extensions dir %s: %w", dir, err)
	}

	var extensions []Extension
	var diags []Diagnostic

	for _, e := range entries {
		if !e.IsDir() {
			continue
		}

		folder := e.Name()
		manifestPath := filepath.Join(dir, folder, "content.xml")
		data, err := os.ReadFile(manifestPath)
		if err != nil {
			continue // no content.xml: not an extension, skip silently
		}

		manifest, err := ParseManifest(data, folder, activeLanguage)
		if err != nil {
			diags = append(diags, Diagnostic{
				Kind:        ErrManifestParseError,
				ExtensionID: folder,
				Message:     fmt.Sprintf("%s: %v", manifestPath, err),
			})
			continue
		}

		extRoot := filepath.Join(dir, folder)
		location, err := NewSourceLocation(extRoot, false, readerOpts)
		if err != nil {
			diags = append(diags, Diagnostic{
				Kind:        ErrManifestParseError,
				ExtensionID: folder,
				Message:     fmt.Sprintf("open source location %s: %v", extRoot, err),
			})
			continue
		}

		extensions = append(extensions, Extension{
			FolderID: strings.ToLower(folder),
			Manifest: *manifest,
			Root:     extRoot,
			Location: location,
		})
	}

	return extensions, diags, nil
}

func toFolderSet(names []string) map[string]bool {
	if len(names) == 0 {
		return nil
	}

	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[strings.ToLower(n)] = true
	}

	return set
}

// ResolveLoadOrder performs a stable topological sort of extensions using
// dependency edges (A depends on B ⇒ B precedes A). Ties are
// broken by extension id, case-folded; the id equals the folder name only
// when the manifest gives none. Unsatisfied hard dependencies disable
// the dependent with a diagnostic; soft (optional) dependencies relax to
// ordering hints. Cycles are broken by the same id tiebreak and reported.
func ResolveLoadOrder(extensions []Extension) ([]Extension, []Diagnostic, error) {
	byID := make(map[string]Extension, len(extensions))
	for _, e := range extensions {
		byID[e.ID()] = e
	}

	var diags []Diagnostic

	// Drop extensions whose hard dependencies are not present among the
	// enabled set; iterate to a fixed point since dropping one extension
	// can strand a dependent of it.
	for pass := 0; pass < len(extensions)+1; pass++ {
		changed := false
		for id, ext := range byID {
			for _, dep := range ext.Manifest.Dependencies {
				if dep.Optional {
					continue
				}
				if _, ok := byID[dep.ID]; !ok {
					diags = append(diags, Diagnostic{
						Kind:        ErrDependencyCycle,
						ExtensionID: id,
						Message:     fmt.Sprintf("missing hard dependency %q; extension disabled", dep.ID),
					})
					delete(byID, id)
					changed = true
				}
			}
		}
		if !changed {
			break
		}
	}

	// Build indegree counts and dependent adjacency: edge dep -> ext means
	// dep must precede ext.
	indegree := make(map[string]int, len(byID))
	dependents := make(map[string][]string, len(byID))
	for id := range byID {
		indegree[id] = 0
	}
	for id, ext := range byID {
		for _, dep := range ext.Manifest.Dependencies {
			if _, ok := byID[dep.ID]; !ok {
				continue // already handled above (hard) or soft-and-absent
			}

			dependents[dep.ID] = append(dependents[dep.ID], id)
			indegree[id]++
		}
	}

	remaining := make(map[string]struct{}, len(byID))
	for id := range byID {
		remaining[id] = struct{}{}
	}

	ordered := make([]Extension, 0, len(byID))
	iterationLimit := len(byID)*len(byID) + 1

	for len(remaining) > 0 {
		iterationLimit--
		if iterationLimit < 0 {
			return nil, diags, fmt.Errorf("%w: load-order resolution did not converge", ErrDependencyCycle)
		}

		next := pickNextAvailable(remaining, indegree)
		if next == "" {
			// No zero-indegree node: a cycle exists among `remaining`.
			// Break it deterministically by smallest id and continue.
			next = pickSmallestRemaining(remaining)
			diags = append(diags, Diagnostic{
				Kind:        ErrDependencyCycle,
				ExtensionID: next,
				Message:     "dependency cycle broken by extension-id tiebreak",
			})
		}

		ordered = append(ordered, byID[next])
		delete(remaining, next)
		for _, dependent := range dependents[next] {
			indegree[dependent]--
		}
	}

	return ordered, diags, nil
}

// pickNextAvailable returns the case-folded smallest id with zero indegree
// among remaining, or "" if none qualifies.
func pickNextAvailable(remaining map[string]struct{}, indegree map[string]int) string {
	candidates := make([]string, 0, len(remaining))
	for id := range remaining {
		if indegree[id] <= 0 {
			candidates = append(candidates, id)
		}
	}
	if len(candidates) == 0 {
		return ""
	}

	sort.Strings(candidates)
	return candidates[0]
}

// pickSmallestRemaining returns the case-folded smallest id among remaining.
func pickSmallestRemaining(remaining map[string]struct{}) string {
	candidates := make([]string, 0, len(remaining))
	for id := range remaining {
		candidates = append(candidates, id)
	}

	sort.Strings(candidates)
	return candidates[0]
}
