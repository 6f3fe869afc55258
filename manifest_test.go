// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta

package x4vfs

import "testing"

func TestParseManifestBasics(t *testing.T) {
	t.Parallel()

	data := []byte(`<content id="my_mod" version="3" save="true">
		<dependency id="base_mod" version="1"/>
		<dependency id="optional_mod" optional="true"/>
		<text language="44" id="0">My Mod</text>
	</content>`)

	m, err := ParseManifest(data, "folder_name", "")
	if err != nil {
		t.Fatalf("ParseManifest: %v", err)
	}

	if m.ID != "my_mod" {
		t.Errorf("ID = %q, want my_mod", m.ID)
	}
	if m.Version != "3" {
		t.Errorf("Version = %q, want 3", m.Version)
	}
	if !m.Save {
		t.Error("Save = false, want true")
	}
	if !m.Enabled {
		t.Error("Enabled = false, want true (default)")
	}
	if m.Name != "My Mod" {
		t.Errorf("Name = %q, want %q", m.Name, "My Mod")
	}
	if len(m.Dependencies) != 2 {
		t.Fatalf("Dependencies = %d, want 2", len(m.Dependencies))
	}
	if m.Dependencies[0].ID != "base_mod" || m.Dependencies[0].Optional {
		t.Errorf("Dependencies[0] = %+v, want hard dep base_mod", m.Dependencies[0])
	}
	if m.Dependencies[1].ID != "optional_mod" || !m.Dependencies[1].Optional {
		t.Errorf("Dependencies[1] = %+v, want soft dep optional_mod", m.Dependencies[1])
	}
}

func TestParseManifestIDFallsBackToFolder(t *testing.T) {
	t.Parallel()

	data := []byte(`<content version="1"></content>`)
	m, err := ParseManifest(data, "SomeFolder", "")
	if err != nil {
		t.Fatalf("ParseManifest: %v", err)
	}
	if m.ID != "somefolder" {
		t.Errorf("ID = %q, want folder fallback lowercased", m.ID)
	}
}

func TestParseManifestEnabledFalse(t *testing.T) {
	t.Parallel()

	data := []byte(`<content id="x" enabled="false"></content>`)
	m, err := ParseManifest(data, "x", "")
	if err != nil {
		t.Fatalf("ParseManifest: %v", err)
	}
	if m.Enabled {
		t.Error("Enabled = true, want false")
	}
}

func TestParseManifestMissingRoot(t *testing.T) {
	t.Parallel()

	if _, err := ParseManifest([]byte(`<notcontent/>`), "x", ""); err == nil {
		t.Fatal("expected ErrManifestParseError for missing <content> root")
	}
}

func TestResolveLocalizedNameFallbackChain(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name           string
		xml            string
		activeLanguage string
		want           string
	}{
		{
			name:           "active language wins",
			xml:            `<content id="x"><text language="7" id="0">French</text><text language="44" id="0">English</text></content>`,
			activeLanguage: "7",
			want:           "French",
		},
		{
			name:           "falls back to english default",
			xml:            `<content id="x"><text language="44" id="0">English</text></content>`,
			activeLanguage: "7",
			want:           "English",
		},
		{
			name:           "falls back to language-neutral",
			xml:            `<content id="x"><text id="0">Neutral</text></content>`,
			activeLanguage: "7",
			want:           "Neutral",
		},
		{
			name:           "falls back to folder name",
			xml:            `<content id="x"></content>`,
			activeLanguage: "7",
			want:           "folder",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			m, err := ParseManifest([]byte(tc.xml), "folder", tc.activeLanguage)
			if err != nil {
				t.Fatalf("ParseManifest: %v", err)
			}
			if m.Name != tc.want {
				t.Errorf("Name = %q, want %q", m.Name, tc.want)
			}
		})
	}
}

func TestParseVersionTriple(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want [3]int
	}{
		{"1", [3]int{1, 0, 0}},
		{"1.2", [3]int{1, 2, 0}},
		{"1.2.3", [3]int{1, 2, 3}},
		{"", [3]int{0, 0, 0}},
		{"x.y.z", [3]int{0, 0, 0}},
	}

	for _, tc := range tests {
		if got := ParseVersionTriple(tc.in); got != tc.want {
			t.Errorf("ParseVersionTriple(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}
