// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta

package x4vfs

import "testing"

func synthesizeAndApply(t *testing.T, originalXML, modifiedXML string) (*PatchDocument, string) {
	t.Helper()

	original := mustParseDoc(t, originalXML)
	modified := mustParseDoc(t, modifiedXML)

	patch, err := SynthesizeDiff(original, modified, DiffOptions{})
	if err != nil {
		t.Fatalf("SynthesizeDiff: %v", err)
	}

	scratch := mustParseDoc(t, originalXML)
	if _, err := ApplyPatch(scratch, patch, true); err != nil {
		t.Fatalf("ApplyPatch(synthesized patch): %v", err)
	}

	return patch, serializeDoc(t, scratch)
}

func TestSynthesizeDiffRoundTrip(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		original string
		modified string
	}{
		{
			name:     "attribute changed",
			original: `<wares><ware id="w1" price="10"/></wares>`,
			modified: `<wares><ware id="w1" price="20"/></wares>`,
		},
		{
			name:     "attribute added",
			original: `<wares><ware id="w1"/></wares>`,
			modified: `<wares><ware id="w1" price="20"/></wares>`,
		},
		{
			name:     "attribute removed",
			original: `<wares><ware id="w1" price="10"/></wares>`,
			modified: `<wares><ware id="w1"/></wares>`,
		},
		{
			name:     "element added",
			original: `<wares><ware id="w1"/></wares>`,
			modified: `<wares><ware id="w1"/><ware id="w2"/></wares>`,
		},
		{
			name:     "element removed",
			original: `<wares><ware id="w1"/><ware id="w2"/></wares>`,
			modified: `<wares><ware id="w1"/></wares>`,
		},
		{
			name:     "text changed",
			original: `<notes><note id="n1">old</note></notes>`,
			modified: `<notes><note id="n1">new</note></notes>`,
		},
		{
			name:     "reordered via identifying attribute",
			original: `<wares><ware id="w1" price="1"/><ware id="w2" price="2"/></wares>`,
			modified: `<wares><ware id="w2" price="2"/><ware id="w1" price="5"/></wares>`,
		},
		{
			name:     "nested subtree changed",
			original: `<macros><macro name="m1"><properties><identification name="a"/></properties></macro></macros>`,
			modified: `<macros><macro name="m1"><properties><identification name="b"/></properties></macro></macros>`,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			_, got := synthesizeAndApply(t, tc.original, tc.modified)
			want := serializeDoc(t, mustParseDoc(t, tc.modified))
			if got != want {
				t.Errorf("round trip mismatch:\n got:  %s\n want: %s", got, want)
			}
		})
	}
}

func TestSynthesizeDiffDeterministicMultiAttributeChange(t *testing.T) {
	t.Parallel()

	original := `<ware id="w1" price="10" volume="5" tags="a" min="1"/>`
	modified := `<ware id="w1" price="20" volume="5" tags="b" min="2" max="9"/>`

	var serialized []string
	var opCounts []int
	for i := 0; i < 20; i++ {
		patch, got := synthesizeAndApply(t, original, modified)
		serialized = append(serialized, got)

		raw, err := patch.WriteToBytes()
		if err != nil {
			t.Fatalf("WriteToBytes: %v", err)
		}
		opCounts = append(opCounts, len(patch.Ops))
		serialized[i] += "|" + string(raw)
	}

	for i := 1; i < len(serialized); i++ {
		if serialized[i] != serialized[0] {
			t.Fatalf("run %d produced different serialized patch/result than run 0:\nrun0: %s\nrun%d: %s", i, serialized[0], i, serialized[i])
		}
		if opCounts[i] != opCounts[0] {
			t.Fatalf("run %d produced %d ops, run 0 produced %d", i, opCounts[i], opCounts[0])
		}
	}
}

func TestSynthesizeDiffDeterministicPositionalFallbackMultiTag(t *testing.T) {
	t.Parallel()

	// None of these children carry an identifying attribute, so every one
	// of them falls back to positional matching across two distinct tags.
	original := `<root><alpha/><beta/><alpha/><beta/><gamma/></root>`
	modified := `<root><alpha v="1"/><beta v="1"/><alpha v="2"/><beta v="2"/><gamma v="1"/></root>`

	var serialized []string
	for i := 0; i < 20; i++ {
		_, got := synthesizeAndApply(t, original, modified)
		serialized = append(serialized, got)
	}

	for i := 1; i < len(serialized); i++ {
		if serialized[i] != serialized[0] {
			t.Fatalf("run %d produced a different result than run 0:\nrun0: %s\nrun%d: %s", i, serialized[0], i, serialized[i])
		}
	}
}

func TestSynthesizeDiffIdempotentOnIdenticalDocuments(t *testing.T) {
	t.Parallel()

	xml := `<wares><ware id="w1" price="10"/></wares>`
	original := mustParseDoc(t, xml)
	modified := mustParseDoc(t, xml)

	patch, err := SynthesizeDiff(original, modified, DiffOptions{})
	if err != nil {
		t.Fatalf("SynthesizeDiff: %v", err)
	}
	if len(patch.Ops) != 0 {
		t.Errorf("expected an empty patch for identical documents, got %d ops", len(patch.Ops))
	}
}

func TestSynthesizeDiffErrorsOnRootTagMismatch(t *testing.T) {
	t.Parallel()

	original := mustParseDoc(t, `<wares/>`)
	modified := mustParseDoc(t, `<wares2/>`)

	if _, err := SynthesizeDiff(original, modified, DiffOptions{}); err == nil {
		t.Fatal("expected an error for mismatched root tags")
	}
}

func TestSynthesizeDiffMakeMaximalProducesSingleReplace(t *testing.T) {
	t.Parallel()

	original := mustParseDoc(t, `<wares><ware id="w1"/></wares>`)
	modified := mustParseDoc(t, `<wares><ware id="w1"/><ware id="w2"/></wares>`)

	patch, err := SynthesizeDiff(original, modified, DiffOptions{MakeMaximal: true})
	if err != nil {
		t.Fatalf("SynthesizeDiff: %v", err)
	}
	if len(patch.Ops) != 1 || patch.Ops[0].Kind != OpReplace || patch.Ops[0].Sel != "/wares" {
		t.Errorf("expected a single whole-document replace, got %+v", patch.Ops)
	}
}

func TestBuildSelectorPrefersIdentifyingAttribute(t *testing.T) {
	t.Parallel()

	doc := mustParseDoc(t, `<wares><ware id="w1"/><ware id="w2"/></wares>`)
	root := doc.Root()
	target := root.ChildElements()[1]

	sel := buildSelector(root, target, identifyingAttrDefaults)
	want := `/wares/ware[@id='w2']`
	if sel != want {
		t.Errorf("buildSelector = %q, want %q", sel, want)
	}
}

func TestBuildSelectorPositionalFallback(t *testing.T) {
	t.Parallel()

	doc := mustParseDoc(t, `<wares><ware/><ware/></wares>`)
	root := doc.Root()
	target := root.ChildElements()[1]

	sel := buildSelector(root, target, identifyingAttrDefaults)
	want := "/wares/ware[2]"
	if sel != want {
		t.Errorf("buildSelector = %q, want %q", sel, want)
	}
}

func TestBuildSelectorUnambiguousTagOmitsPredicate(t *testing.T) {
	t.Parallel()

	doc := mustParseDoc(t, `<wares><ware/></wares>`)
	root := doc.Root()
	target := root.ChildElements()[0]

	sel := buildSelector(root, target, identifyingAttrDefaults)
	want := "/wares/ware"
	if sel != want {
		t.Errorf("buildSelector = %q, want %q", sel, want)
	}
}

func TestQuoteXPathLiteral(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{"abc", "'abc'"},
		{`has"quote`, `'has"quote'`},
		{"has'quote", `"has'quote"`},
		{`has'both"quotes`, `'hasboth"quotes'`},
	}

	for _, tc := range tests {
		if got := quoteXPathLiteral(tc.in); got != tc.want {
			t.Errorf("quoteXPathLiteral(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
