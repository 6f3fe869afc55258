// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta

package x4vfs

import (
	"bytes"
	"fmt"
	"sort"
	"strings"

	"github.com/beevik/etree"
)

// ManifestInput describes the output extension's own identity and emission
// policy.
type ManifestInput struct {
	ID      string
	Name    string
	Version string
	Save    bool
	// OutputToCatalog selects packed (ext_01.cat/subst_01.cat) emission over
	// loose files under the output extension's folder.
	OutputToCatalog bool
	// SkipContent suppresses content.xml regeneration for this run.
	SkipContent bool
	// Existing is a pre-existing content.xml to merge dependencies from, if
	// the output extension folder already had one.
	Existing *Manifest
}

// GeneratedOutput is the drained, routed result of one finalisation pass.
type GeneratedOutput struct {
	LooseFiles            []LooseFile
	CatInputs             []WriteCatalogInput
	SubstCatInputs        []WriteCatalogInput
	OriginatingExtensions []string
	Manifest              *Manifest
	ManifestXML           []byte
}

// GenerateOutput drains vfs's modified-file set, synthesizing a patch for
// every modified XML file against its patched-base snapshot and routing
// every output per ManifestInput.OutputToCatalog, then regenerates
// content.xml unless SkipContent is set.
func GenerateOutput(vfs *VFS, input ManifestInput, substMatcher *GlobMatcher, diffOpts DiffOptions) (*GeneratedOutput, error) {
	paths := vfs.ModifiedPaths()
	sort.Strings(paths)

	out := &GeneratedOutput{}
	extSet := make(map[string]struct{})

	for _, path := range paths {
		origins, err := vfs.OriginatingExtensions(path)
		if err != nil {
			return nil, err
		}
		for _, id := range origins {
			extSet[id] = struct{}{}
		}

		isXML := strings.HasSuffix(strings.ToLower(path), ".xml")

		var data []byte
		if isXML {
			data, err = synthesizeModifiedPatch(vfs, path, diffOpts)
		} else {
			data, err = vfs.LoadFile(path)
		}
		if err != nil {
			return nil, err
		}

		if input.OutputToCatalog {
			item := makeCatalogInput(path, data)
			if routeToSubst(path, substMatcher) {
				out.SubstCatInputs = append(out.SubstCatInputs, item)
			} else {
				out.CatInputs = append(out.CatInputs, item)
			}

			continue
		}

		out.LooseFiles = append(out.LooseFiles, LooseFile{Path: path, Data: data})
	}

	for id := range extSet {
		out.OriginatingExtensions = append(out.OriginatingExtensions, id)
	}
	sort.Strings(out.OriginatingExtensions)

	if input.SkipContent {
		return out, nil
	}

	manifest := buildOutputManifest(input, out.OriginatingExtensions)
	manifestXML, err := serializeManifest(manifest)
	if err != nil {
		return nil, err
	}

	out.Manifest = manifest
	out.ManifestXML = manifestXML

	return out, nil
}

// synthesizeModifiedPatch diffs path's current tree against its patched-base
// snapshot and returns the resulting <diff> document's bytes.
func synthesizeModifiedPatch(vfs *VFS, path string, diffOpts DiffOptions) ([]byte, error) {
	baseBytes, err := vfs.PatchedBaseSnapshot(path)
	if err != nil {
		return nil, err
	}

	baseDoc := etree.NewDocument()
	if err := baseDoc.ReadFromBytes(baseBytes); err != nil {
		return nil, fmt.Errorf("parse patched-base snapshot for %s: %w", path, err)
	}

	modDoc, err := vfs.GetRoot(path)
	if err != nil {
		return nil, err
	}

	patch, err := SynthesizeDiff(baseDoc, modDoc, diffOpts)
	if err != nil {
		return nil, err
	}

	return patch.WriteToBytes()
}

// routeToSubst decides whether a modified path is emitted into the
// "replace existing" subst catalog rather than the additive ext catalog:
// shader files always go subst; everything else follows substMatcher's
// prefix/policy rules.
func routeToSubst(path string, substMatcher *GlobMatcher) bool {
	if strings.HasPrefix(strings.ToLower(path), "shaders/") {
		return true
	}

	return substMatcher != nil && substMatcher.Match(path)
}

func makeCatalogInput(path string, data []byte) WriteCatalogInput {
	return WriteCatalogInput{
		Path:     path,
		Open:     func() (ReadCloserAt, error) { return newMemReadCloser(data), nil },
		SizeHint: int64(len(data)),
	}
}

// buildOutputManifest assembles content.xml's record, merging
// input.Existing's dependencies (if any) with the extensions this run's
// modifications originated from.
func buildOutputManifest(input ManifestInput, originatingExtensions []string) *Manifest {
	m := &Manifest{
		ID:      input.ID,
		Name:    input.Name,
		Version: input.Version,
		Save:    input.Save,
		Enabled: true,
	}

	seen := make(map[string]bool)
	if input.Existing != nil {
		for _, dep := range input.Existing.Dependencies {
			if !seen[dep.ID] {
				seen[dep.ID] = true
				m.Dependencies = append(m.Dependencies, dep)
			}
		}
	}

	for _, id := range originatingExtensions {
		if id == input.ID || seen[id] {
			continue
		}

		seen[id] = true
		m.Dependencies = append(m.Dependencies, DependencyRecord{ID: id})
	}

	sort.Slice(m.Dependencies, func(i, j int) bool { return m.Dependencies[i].ID < m.Dependencies[j].ID })

	return m
}

// serializeManifest renders m as a content.xml document.
func serializeManifest(m *Manifest) ([]byte, error) {
	doc := etree.NewDocument()
	root := doc.CreateElement("content")
	root.CreateAttr("id", m.ID)
	root.CreateAttr("name", m.Name)
	root.CreateAttr("version", m.Version)
	if m.Save {
		root.CreateAttr("save", "true")
	}
	root.CreateAttr("enabled", "true")

	for _, dep := range m.Dependencies {
		depEl := root.CreateElement("dependency")
		depEl.CreateAttr("id", dep.ID)
		if dep.Version != "" {
			depEl.CreateAttr("version", dep.Version)
		}
		if dep.Optional {
			depEl.CreateAttr("optional", "true")
		}
	}

	doc.Indent(2)
	return doc.WriteToBytes()
}

// memReadCloser adapts an in-memory byte slice to ReadCloserAt.
type memReadCloser struct {
	r *bytes.Reader
}

func newMemReadCloser(data []byte) *memReadCloser {
	return &memReadCloser{r: bytes.NewReader(data)}
}

func (m *memReadCloser) Read(p []byte) (int, error) { return m.r.Read(p) }
func (m *memReadCloser) Close() error               { return nil }
