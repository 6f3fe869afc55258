// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta

package x4vfs

import "testing"

func TestCheckExtensionFindsFailingPatchUnderAlphabeticalOrder(t *testing.T) {
	t.Parallel()

	base := newLayer(t, "", map[string]string{
		"assets/fx/weapon.xml": `<weapon damage="10"/>`,
	})

	targetDir := t.TempDir()
	writeLoose(t, targetDir, "assets/fx/weapon.xml", []byte(`<diff><remove sel="/weapon/@nonexistent"/></diff>`))
	targetLoc, err := NewSourceLocation(targetDir, false, CatalogReaderOptions{})
	if err != nil {
		t.Fatalf("NewSourceLocation: %v", err)
	}

	target := Extension{
		FolderID: "my_patch",
		Manifest: Manifest{ID: "my_patch", Enabled: true},
		Location: targetLoc,
	}

	results, err := CheckExtension(target, []Extension{target}, []VFSLayer{base}, DiffOptions{}, false)
	if err != nil {
		t.Fatalf("CheckExtension: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("results = %d, want 1 (alphabetical only)", len(results))
	}
	if results[0].Variant != VariantAlphabetical {
		t.Errorf("Variant = %q", results[0].Variant)
	}
	if len(results[0].Diagnostics) == 0 {
		t.Error("expected a diagnostic for the patch op targeting a missing attribute")
	}
}

func TestCheckExtensionCleanPatchProducesNoDiagnostics(t *testing.T) {
	t.Parallel()

	base := newLayer(t, "", map[string]string{
		"assets/fx/weapon.xml": `<weapon damage="10"/>`,
	})

	targetDir := t.TempDir()
	writeLoose(t, targetDir, "assets/fx/weapon.xml", []byte(`<diff><replace sel="/weapon/@damage">20</replace></diff>`))
	targetLoc, err := NewSourceLocation(targetDir, false, CatalogReaderOptions{})
	if err != nil {
		t.Fatalf("NewSourceLocation: %v", err)
	}

	target := Extension{
		FolderID: "clean_patch",
		Manifest: Manifest{ID: "clean_patch", Enabled: true},
		Location: targetLoc,
	}

	results, err := CheckExtension(target, []Extension{target}, []VFSLayer{base}, DiffOptions{}, true)
	if err != nil {
		t.Fatalf("CheckExtension: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("results = %d, want 3 (alphabetical, early, late)", len(results))
	}
	for _, r := range results {
		if len(r.Diagnostics) != 0 {
			t.Errorf("%s: unexpected diagnostics %+v", r.Variant, r.Diagnostics)
		}
	}
}

func TestReorderExtremeEarlyRespectsHardDependency(t *testing.T) {
	t.Parallel()

	order := []Extension{
		newExt("a"),
		newExt("b", hardDep("a")),
		newExt("target", hardDep("a")),
		newExt("c"),
	}

	early := reorderExtreme(order, "target", true)
	ids := orderIDs(early)

	if indexOf(ids, "target") <= indexOf(ids, "a") {
		t.Errorf("early order %v must still place target after its hard dependency a", ids)
	}
	if indexOf(ids, "target") >= indexOf(ids, "b") {
		t.Errorf("early order %v should place target as early as possible, before unrelated b", ids)
	}
}

func TestReorderExtremeLateRespectsHardDependents(t *testing.T) {
	t.Parallel()

	order := []Extension{
		newExt("target"),
		newExt("dependent", hardDep("target")),
		newExt("unrelated"),
	}

	late := reorderExtreme(order, "target", false)
	ids := orderIDs(late)

	if indexOf(ids, "target") >= indexOf(ids, "dependent") {
		t.Errorf("late order %v must still place target before its hard dependent", ids)
	}
}

func TestReorderExtremeUnknownTargetIsNoOp(t *testing.T) {
	t.Parallel()

	order := []Extension{newExt("a"), newExt("b")}
	got := reorderExtreme(order, "ghost", true)

	if orderIDsString(got) != orderIDsString(order) {
		t.Errorf("expected no-op for unknown target, got %v", orderIDs(got))
	}
}
