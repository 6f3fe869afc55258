// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta

package x4vfs

// LoadOrderVariant names one of the load-order scenarios the checker probes.
type LoadOrderVariant string

// Variants probed by CheckExtension.
const (
	VariantAlphabetical LoadOrderVariant = "alphabetical"
	VariantEarly        LoadOrderVariant = "early"
	VariantLate         LoadOrderVariant = "late"
)

// CheckResult is one variant's outcome for the extension under test.
type CheckResult struct {
	Variant     LoadOrderVariant
	Order       []Extension
	Diagnostics []Diagnostic
}

// CheckExtension validates that target's patches still apply under
// alternative load orders. allExtensions must include target
// itself. baseLayers are prepended ahead of every extension (base game,
// source-override); includeEarlyLate also probes the variants where target
// is scheduled as early or as late as its dependencies allow.
func CheckExtension(target Extension, allExtensions []Extension, baseLayers []VFSLayer, diffOpts DiffOptions, includeEarlyLate bool) ([]CheckResult, error) {
	alphabetical, _, err := ResolveLoadOrder(allExtensions)
	if err != nil {
		return nil, err
	}

	variants := []struct {
		kind  LoadOrderVariant
		order []Extension
	}{
		{VariantAlphabetical, alphabetical},
	}

	if includeEarlyLate {
		variants = append(variants,
			struct {
				kind  LoadOrderVariant
				order []Extension
			}{VariantEarly, reorderExtreme(alphabetical, target.ID(), true)},
			struct {
				kind  LoadOrderVariant
				order []Extension
			}{VariantLate, reorderExtreme(alphabetical, target.ID(), false)},
		)
	}

	results := make([]CheckResult, 0, len(variants))
	for _, v := range variants {
		diags, err := checkUnderOrder(target, v.order, baseLayers, diffOpts)
		if err != nil {
			return nil, err
		}

		results = append(results, CheckResult{Variant: v.kind, Order: v.order, Diagnostics: diags})
	}

	return results, nil
}

// checkUnderOrder builds a VFS from baseLayers plus order, then forces a
// soft-mode load of every path target's own location contributes.
func checkUnderOrder(target Extension, order []Extension, baseLayers []VFSLayer, diffOpts DiffOptions) ([]Diagnostic, error) {
	layers := make([]VFSLayer, 0, len(baseLayers)+len(order))
	layers = append(layers, baseLayers...)
	for _, ext := range order {
		layers = append(layers, VFSLayer{ID: ext.ID(), Location: ext.Location})
	}

	vfs := NewVFS(layers, diffOpts)

	var diags []Diagnostic
	for _, path := range target.Location.List(nil) {
		_, fileDiags, err := vfs.LoadFileSoft(path)
		if err != nil {
			diags = append(diags, Diagnostic{
				Kind:        ErrPatchApplyFailure,
				ExtensionID: target.ID(),
				Message:     path + ": " + err.Error(),
			})

			continue
		}

		diags = append(diags, fileDiags...)
	}

	return diags, nil
}

// reorderExtreme repositions the extension identified by targetID within
// order to the earliest (early=true) or latest (early=false) index
// consistent with its hard dependency edges, leaving every other
// extension's relative order unchanged.
func reorderExtreme(order []Extension, targetID string, early bool) []Extension {
	idx := -1
	for i, e := range order {
		if e.ID() == targetID {
			idx = i
			break
		}
	}
	if idx == -1 {
		return order
	}

	target := order[idx]
	rest := make([]Extension, 0, len(order)-1)
	rest = append(rest, order[:idx]...)
	rest = append(rest, order[idx+1:]...)

	if early {
		pos := 0
		hardDeps := hardDependencyIDs(target)
		for i, e := range rest {
			if hardDeps[e.ID()] {
				pos = i + 1
			}
		}

		return insertExtensionAt(rest, pos, target)
	}

	pos := len(rest)
	for i, e := range rest {
		if hardDependencyIDs(e)[target.ID()] && i < pos {
			pos = i
		}
	}

	return insertExtensionAt(rest, pos, target)
}

func hardDependencyIDs(ext Extension) map[string]bool {
	ids := make(map[string]bool, len(ext.Manifest.Dependencies))
	for _, d := range ext.Manifest.Dependencies {
		if !d.Optional {
			ids[d.ID] = true
		}
	}

	return ids
}

func insertExtensionAt(s []Extension, pos int, e Extension) []Extension {
	out := make([]Extension, 0, len(s)+1)
	out = append(out, s[:pos]...)
	out = append(out, e)
	out = append(out, s[pos:]...)

	return out
}
