// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta

package x4vfs

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/beevik/etree"
)

// DependencyRecord is one <dependency> child of an extension manifest.
type DependencyRecord struct {
	// ID is the dependency's folder id.
	ID string
	// Version is the dependency's required version string, verbatim.
	Version string
	// Optional marks a soft dependency that relaxes to an ordering hint.
	Optional bool
}

// Manifest is the parsed content of one extension's content.xml.
type Manifest struct {
	// ID is the extension id; falls back to the folder name, lowercased, when absent.
	ID string
	// Name is the human-readable display name, resolved from localized <text> entries.
	Name string
	// Version is the extension's version string (integer or dotted), verbatim.
	Version string
	// Save reports whether the extension is marked save-compatible.
	Save bool
	// Enabled reports the manifest's own enabled attribute, defaulting to true.
	Enabled bool
	// Dependencies lists every declared <dependency>.
	Dependencies []DependencyRecord
}

// defaultManifestLanguage is the language page id ("44" = English) consulted
// when the active language's localized <text> entry is absent.
const defaultManifestLanguage = "44"

// ParseManifest parses a content.xml document. folderName is used as the id
// fallback and as the display-name fallback when no <text> entry resolves.
func ParseManifest(data []byte, folderName string, activeLanguage string) (*Manifest, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrManifestParseError, err)
	}

	root := doc.SelectElement("content")
	if root == nil {
		return nil, fmt.Errorf("%w: missing <content> root", ErrManifestParseError)
	}

	m := &Manifest{
		ID:      strings.ToLower(strings.TrimSpace(attrOr(root, "id", ""))),
		Version: attrOr(root, "version", "1"),
		Enabled: true,
	}
	if m.ID == "" {
		m.ID = strings.ToLower(folderName)
	}

	if saveAttr := root.SelectAttr("save"); saveAttr != nil {
		m.Save = strings.EqualFold(saveAttr.Value, "true") || saveAttr.Value == "1"
	}
	if enabledAttr := root.SelectAttr("enabled"); enabledAttr != nil {
		m.Enabled = !(strings.EqualFold(enabledAttr.Value, "false") || enabledAttr.Value == "0")
	}

	m.Name = resolveLocalizedName(root, activeLanguage, attrOr(root, "name", folderName))

	for _, dep := range root.SelectElements("dependency") {
		id := strings.ToLower(strings.TrimSpace(attrOr(dep, "id", "")))
		if id == "" {
			continue
		}

		optional := false
		if opt := dep.SelectAttr("optional"); opt != nil {
			optional = strings.EqualFold(opt.Value, "true") || opt.Value == "1"
		}

		m.Dependencies = append(m.Dependencies, DependencyRecord{
			ID:       id,
			Version:  attrOr(dep, "version", ""),
			Optional: optional,
		})
	}

	return m, nil
}

// resolveLocalizedName selects the <text language="…" id="0"> entry matching
// activeLanguage, falling back to the entry without a language attribute,
// then to the default "44" (English) entry, and finally to fallback.
func resolveLocalizedName(root *etree.Element, activeLanguage, fallback string) string {
	var defaultMatch, neutralMatch string

	for _, text := range root.SelectElements("text") {
		if attrOr(text, "id", "0") != "0" {
			continue
		}

		lang := attrOr(text, "language", "")
		value := strings.TrimSpace(text.Text())
		if value == "" {
			continue
		}

		if lang == activeLanguage && activeLanguage != "" {
			return value
		}
		if lang == defaultManifestLanguage {
			defaultMatch = value
		}
		if lang == "" {
			neutralMatch = value
		}
	}

	if neutralMatch != "" {
		return neutralMatch
	}
	if defaultMatch != "" {
		return defaultMatch
	}

	return fallback
}

// attrOr returns element's attribute value or fallback when absent.
func attrOr(el *etree.Element, name, fallback string) string {
	if el == nil {
		return fallback
	}

	attr := el.SelectAttr(name)
	if attr == nil {
		return fallback
	}

	return attr.Value
}

// ParseVersionTriple parses a version string ("1.2.3" or "1") into an
// up-to-3-component integer triple for comparison purposes.
func ParseVersionTriple(version string) [3]int {
	var triple [3]int
	parts := strings.SplitN(version, ".", 3)
	for i := 0; i < len(parts) && i < 3; i++ {
		n, err := strconv.Atoi(strings.TrimSpace(parts[i]))
		if err == nil {
			triple[i] = n
		}
	}

	return triple
}
