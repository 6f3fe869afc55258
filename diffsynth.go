// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta

package x4vfs

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/beevik/etree"
)

// identifyingAttrDefaults lists the attributes treated as stable child
// identity across versions of the same document, in preference order.
var identifyingAttrDefaults = []string{"id", "name", "macro", "ref", "sinfactor"}

// DiffOptions configures diff synthesis.
type DiffOptions struct {
	// IdentifyingAttrs overrides the default identifying-attribute list used
	// to correlate children across the two trees and to shorten generated
	// selectors. Empty means identifyingAttrDefaults.
	IdentifyingAttrs []string
	// MakeMaximal bypasses fine-grained diffing and emits a single
	// whole-document replace, matching the original's make_maximal_diffs escape hatch.
	MakeMaximal bool
}

func (o *DiffOptions) applyDefaults() {
	if len(o.IdentifyingAttrs) == 0 {
		o.IdentifyingAttrs = identifyingAttrDefaults
	}
}

// SynthesizeDiff builds a PatchDocument such that applying it to original
// reproduces modified. Correspondence between the two trees is
// computed out-of-band (never stored on the tree nodes); the result is
// verified by trial application and escalated to a single whole-document
// replace when the fine-grained script does not round-trip exactly.
func SynthesizeDiff(original, modified *etree.Document, opts DiffOptions) (*PatchDocument, error) {
	opts.applyDefaults()

	origRoot := original.Root()
	modRoot := modified.Root()
	if origRoot == nil || modRoot == nil {
		return nil, fmt.Errorf("%w: missing document root", ErrDiffSynthesisFailure)
	}
	if origRoot.Tag != modRoot.Tag {
		return nil, fmt.Errorf("%w: root element tag mismatch (%q vs %q)", ErrDiffSynthesisFailure, origRoot.Tag, modRoot.Tag)
	}

	if opts.MakeMaximal {
		return maximalDiff(origRoot, modRoot), nil
	}

	b := &diffBuilder{root: origRoot, opts: opts}
	b.diffElements(origRoot, modRoot, "/"+origRoot.Tag)

	patch := &PatchDocument{Ops: b.ops}
	if !verifyRoundTrip(original, modified, patch) {
		return maximalDiff(origRoot, modRoot), nil
	}

	return patch, nil
}

// maximalDiff produces the degenerate single-op diff: replace the entire
// root with modRoot's content.
func maximalDiff(origRoot, modRoot *etree.Element) *PatchDocument {
	node := etree.NewElement("replace")
	node.CreateAttr("sel", "/"+origRoot.Tag)
	node.AddChild(modRoot.Copy())

	return &PatchDocument{Ops: []PatchOp{{Kind: OpReplace, Sel: "/" + origRoot.Tag, node: node}}}
}

// verifyRoundTrip applies patch to a fresh parse of original's own bytes and
// compares the serialized result to modified's serialization. A pure
// whitespace-formatting difference between the two source documents can
// cause a spurious false here; that only biases synthesis toward the always-
// correct maximal-diff fallback, never toward an incorrect fine-grained one.
func verifyRoundTrip(original, modified *etree.Document, patch *PatchDocument) bool {
	origBytes, err := original.WriteToBytes()
	if err != nil {
		return false
	}

	scratch := etree.NewDocument()
	if err := scratch.ReadFromBytes(origBytes); err != nil {
		return false
	}

	diags, err := ApplyPatch(scratch, patch, true)
	if err != nil || len(diags) > 0 {
		return false
	}

	got, err := scratch.WriteToBytes()
	if err != nil {
		return false
	}

	want, err := modified.WriteToBytes()
	if err != nil {
		return false
	}

	return bytes.Equal(got, want)
}

// diffBuilder accumulates patch ops while walking the original/modified pair.
// root anchors selector generation; it is never mutated.
type diffBuilder struct {
	root *etree.Element
	opts DiffOptions
	ops  []PatchOp
}

func (b *diffBuilder) diffElements(origEl, modEl *etree.Element, sel string) {
	b.diffAttrs(origEl, modEl, sel)
	b.diffText(origEl, modEl, sel)

	pairs, removed, added := matchChildren(origEl, modEl, b.opts.IdentifyingAttrs)

	for _, r := range removed {
		b.ops = append(b.ops, PatchOp{Kind: OpRemove, Sel: buildSelector(b.root, r, b.opts.IdentifyingAttrs)})
	}

	for _, a := range added {
		node := etree.NewElement("add")
		node.AddChild(a.Copy())
		b.ops = append(b.ops, PatchOp{Kind: OpAdd, Sel: sel, Pos: PosAppend, node: node})
	}

	for _, p := range pairs {
		childSel := buildSelector(b.root, p[0], b.opts.IdentifyingAttrs)
		b.diffElements(p[0], p[1], childSel)
	}
}

func (b *diffBuilder) diffAttrs(origEl, modEl *etree.Element, sel string) {
	origAttrs := make(map[string]string, len(origEl.Attr))
	for _, a := range origEl.Attr {
		origAttrs[a.Key] = a.Value
	}

	modAttrs := make(map[string]string, len(modEl.Attr))
	for _, a := range modEl.Attr {
		modAttrs[a.Key] = a.Value
	}

	for _, a := range modEl.Attr {
		name, v := a.Key, a.Value
		if ov, ok := origAttrs[name]; !ok {
			node := etree.NewElement("add")
			node.SetText(v)
			b.ops = append(b.ops, PatchOp{Kind: OpAdd, Sel: sel, AttrType: "@" + name, node: node})
		} else if ov != v {
			node := etree.NewElement("replace")
			node.SetText(v)
			b.ops = append(b.ops, PatchOp{Kind: OpReplace, Sel: sel + "/@" + name, node: node})
		}
	}

	for _, a := range origEl.Attr {
		if _, ok := modAttrs[a.Key]; !ok {
			b.ops = append(b.ops, PatchOp{Kind: OpRemove, Sel: sel + "/@" + a.Key})
		}
	}
}

func (b *diffBuilder) diffText(origEl, modEl *etree.Element, sel string) {
	origText := origEl.Text()
	modText := modEl.Text()
	if origText == modText {
		return
	}

	if modText == "" {
		b.ops = append(b.ops, PatchOp{Kind: OpRemove, Sel: sel + "/text()[1]"})
		return
	}

	node := etree.NewElement("replace")
	node.SetText(modText)
	b.ops = append(b.ops, PatchOp{Kind: OpReplace, Sel: sel + "/text()[1]", node: node})
}

// matchChildren correlates origEl's and modEl's child elements: first by
// identifying-attribute key within matching tags, then positionally among
// whatever same-tag children remain unmatched. Children left over on one
// side only are reported as removed/added.
func matchChildren(origEl, modEl *etree.Element, identifyingAttrs []string) (pairs [][2]*etree.Element, removed, added []*etree.Element) {
	origChildren := origEl.ChildElements()
	modChildren := modEl.ChildElements()
	usedOrig := make([]bool, len(origChildren))
	usedMod := make([]bool, len(modChildren))

	for i, oc := range origChildren {
		key := identifyingKey(oc, identifyingAttrs)
		if key == "" {
			continue
		}

		for j, mc := range modChildren {
			if usedMod[j] || mc.Tag != oc.Tag {
				continue
			}
			if identifyingKey(mc, identifyingAttrs) != key {
				continue
			}

			pairs = append(pairs, [2]*etree.Element{oc, mc})
			usedOrig[i] = true
			usedMod[j] = true
			break
		}
	}

	remOrigByTag := make(map[string][]int)
	var remOrigTags []string
	for i, oc := range origChildren {
		if !usedOrig[i] {
			if _, seen := remOrigByTag[oc.Tag]; !seen {
				remOrigTags = append(remOrigTags, oc.Tag)
			}
			remOrigByTag[oc.Tag] = append(remOrigByTag[oc.Tag], i)
		}
	}

	remModByTag := make(map[string][]int)
	for j, mc := range modChildren {
		if !usedMod[j] {
			remModByTag[mc.Tag] = append(remModByTag[mc.Tag], j)
		}
	}

	for _, tag := range remOrigTags {
		oidxs := remOrigByTag[tag]
		midxs := remModByTag[tag]
		n := len(oidxs)
		if len(midxs) < n {
			n = len(midxs)
		}

		for k := 0; k < n; k++ {
			pairs = append(pairs, [2]*etree.Element{origChildren[oidxs[k]], modChildren[midxs[k]]})
			usedOrig[oidxs[k]] = true
			usedMod[midxs[k]] = true
		}
	}

	for i, oc := range origChildren {
		if !usedOrig[i] {
			removed = append(removed, oc)
		}
	}
	for j, mc := range modChildren {
		if !usedMod[j] {
			added = append(added, mc)
		}
	}

	return pairs, removed, added
}

// identifyingKey returns a stable key for el derived from the first present
// identifying attribute, or "" if none is set.
func identifyingKey(el *etree.Element, identifyingAttrs []string) string {
	for _, attr := range identifyingAttrs {
		if v := attrOr(el, attr, ""); v != "" {
			return el.Tag + "|" + attr + "|" + v
		}
	}

	return ""
}

// buildSelector generates the shortest selector identifying el within the
// tree rooted at root: an identifying-attribute predicate where available,
// falling back to a 1-based positional predicate only when el's tag is
// ambiguous among its siblings.
func buildSelector(root, el *etree.Element, identifyingAttrs []string) string {
	if el == root {
		return "/" + root.Tag
	}

	var segments []string
	for cur := el; cur != nil && cur != root; cur = cur.Parent() {
		parent := cur.Parent()
		segments = append(segments, stepFor(cur, parent, identifyingAttrs))
	}

	for i, j := 0, len(segments)-1; i < j; i, j = i+1, j-1 {
		segments[i], segments[j] = segments[j], segments[i]
	}

	return "/" + root.Tag + "/" + strings.Join(segments, "/")
}

func stepFor(el, parent *etree.Element, identifyingAttrs []string) string {
	for _, attr := range identifyingAttrs {
		if v := attrOr(el, attr, ""); v != "" {
			return fmt.Sprintf("%s[@%s=%s]", el.Tag, attr, quoteXPathLiteral(v))
		}
	}

	if parent == nil {
		return el.Tag
	}

	var siblings []*etree.Element
	for _, c := range parent.ChildElements() {
		if c.Tag == el.Tag {
			siblings = append(siblings, c)
		}
	}
	if len(siblings) <= 1 {
		return el.Tag
	}

	for i, s := range siblings {
		if s == el {
			return fmt.Sprintf("%s[%d]", el.Tag, i+1)
		}
	}

	return el.Tag
}

// quoteXPathLiteral quotes v as an XPath 1.0 string literal. XPath 1.0 has
// no escape mechanism, so a value containing both quote characters loses
// its single quotes rather than produce an unparsable selector.
func quoteXPathLiteral(v string) string {
	if !strings.Contains(v, "'") {
		return "'" + v + "'"
	}
	if !strings.Contains(v, `"`) {
		return `"` + v + `"`
	}

	return "'" + strings.ReplaceAll(v, "'", "") + "'"
}
