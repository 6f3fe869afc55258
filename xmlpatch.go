// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta

package x4vfs

import (
	"fmt"
	"strings"

	"github.com/beevik/etree"
)

// PatchOpKind discriminates the three XML patch operation kinds.
type PatchOpKind int

// Patch operation kinds.
const (
	OpAdd PatchOpKind = iota
	OpRemove
	OpReplace
)

// AddPos is the insertion position for an OpAdd operation, defaulting to append.
type AddPos string

// Supported add positions.
const (
	PosBefore  AddPos = "before"
	PosAfter   AddPos = "after"
	PosPrepend AddPos = "prepend"
	PosAppend  AddPos = "append"
)

// PatchOp is one ordered child of a <diff> document.
type PatchOp struct {
	Kind PatchOpKind
	Sel  string
	// Pos applies to OpAdd only; empty means PosAppend.
	Pos AddPos
	// AttrType holds the "@name" value of an add's type attribute when this
	// add targets an attribute rather than child content.
	AttrType string
	// node is the original <add>/<remove>/<replace> element, carrying the
	// fragment/text content to apply.
	node *etree.Element
}

// PatchDocument is a parsed <diff> root with its ordered operations.
type PatchDocument struct {
	Ops []PatchOp
}

// ParsePatchDocument parses an XMLPatch document (root <diff>) into ordered operations.
func ParsePatchDocument(data []byte) (*PatchDocument, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSelector, err)
	}

	root := doc.Root()
	if root == nil || root.Tag != "diff" {
		return nil, fmt.Errorf("%w: missing <diff> root", ErrInvalidSelector)
	}

	pd := &PatchDocument{}
	for _, child := range root.ChildElements() {
		sel := attrOr(child, "sel", "")
		if sel == "" {
			return nil, fmt.Errorf("%w: patch op missing sel", ErrInvalidSelector)
		}

		switch child.Tag {
		case "add":
			pd.Ops = append(pd.Ops, PatchOp{
				Kind:     OpAdd,
				Sel:      sel,
				Pos:      resolveAddPos(attrOr(child, "pos", string(PosAppend))),
				AttrType: attrOr(child, "type", ""),
				node:     child,
			})
		case "remove":
			pd.Ops = append(pd.Ops, PatchOp{Kind: OpRemove, Sel: sel, node: child})
		case "replace":
			pd.Ops = append(pd.Ops, PatchOp{Kind: OpReplace, Sel: sel, node: child})
		default:
			return nil, fmt.Errorf("%w: %q", ErrUnknownPatchOp, child.Tag)
		}
	}

	return pd, nil
}

// WriteToBytes serializes pd as a <diff> document, the inverse of ParsePatchDocument.
func (pd *PatchDocument) WriteToBytes() ([]byte, error) {
	doc := etree.NewDocument()
	root := doc.CreateElement("diff")

	for _, op := range pd.Ops {
		var tag string
		switch op.Kind {
		case OpAdd:
			tag = "add"
		case OpRemove:
			tag = "remove"
		case OpReplace:
			tag = "replace"
		default:
			return nil, fmt.Errorf("%w: unknown op kind", ErrUnknownPatchOp)
		}

		el := root.CreateElement(tag)
		el.CreateAttr("sel", op.Sel)

		if op.Kind == OpAdd {
			if op.Pos != "" && op.Pos != PosAppend {
				el.CreateAttr("pos", string(op.Pos))
			}
			if op.AttrType != "" {
				el.CreateAttr("type", op.AttrType)
			}
		}

		if op.node != nil {
			if txt := op.node.Text(); txt != "" {
				el.SetText(txt)
			}
			for _, c := range op.node.ChildElements() {
				el.AddChild(c.Copy())
			}
		}
	}

	doc.Indent(2)
	return doc.WriteToBytes()
}

func resolveAddPos(raw string) AddPos {
	switch AddPos(raw) {
	case PosBefore, PosAfter, PosPrepend:
		return AddPos(raw)
	default:
		return PosAppend
	}
}

// ApplyPatch applies ops, in order, to base. In strict mode the first
// failing op aborts with ErrPatchApplyFailure; in soft mode (used by the
// load-order checker) failures are collected as diagnostics and application
// continues with the remaining ops.
func ApplyPatch(base *etree.Document, patch *PatchDocument, strict bool) ([]Diagnostic, error) {
	var diags []Diagnostic

	for i, op := range patch.Ops {
		if err := applyOp(base, op); err != nil {
			diag := Diagnostic{
				Kind:        ErrPatchApplyFailure,
				ExtensionID: "",
				Message:     fmt.Sprintf("op #%d sel=%q: %v", i, op.Sel, err),
			}
			if strict {
				return diags, fmt.Errorf("%w: %s", ErrPatchApplyFailure, diag.Message)
			}

			diags = append(diags, diag)
		}
	}

	return diags, nil
}

// selectorTarget is a resolved sel: either a set of matched elements, a
// single attribute on a matched element, or the first text node on one.
type selectorTarget struct {
	elements []*etree.Element
	attrName string
	isText   bool
}

// resolveSelector parses sel's optional "/@attr" or "/text()[1]"/"/text()"
// suffix and evaluates the remaining XPath 1.0 subset against doc.
func resolveSelector(doc *etree.Document, sel string) (selectorTarget, error) {
	for _, suffix := range []string{"/text()[1]", "/text()"} {
		if !strings.HasSuffix(sel, suffix) {
			continue
		}

		elementPath := strings.TrimSuffix(sel, suffix)
		elements, err := findElements(doc, elementPath)
		if err != nil {
			return selectorTarget{}, err
		}

		return selectorTarget{elements: elements, isText: true}, nil
	}

	if idx := strings.LastIndex(sel, "/@"); idx >= 0 {
		attrName := sel[idx+2:]
		if attrName != "" && !strings.ContainsAny(attrName, "/[]") {
			elementPath := sel[:idx]
			elements, err := findElements(doc, elementPath)
			if err != nil {
				return selectorTarget{}, err
			}

			return selectorTarget{elements: elements, attrName: attrName}, nil
		}
	}

	elements, err := findElements(doc, sel)
	if err != nil {
		return selectorTarget{}, err
	}

	return selectorTarget{elements: elements}, nil
}

func findElements(doc *etree.Document, elementPath string) ([]*etree.Element, error) {
	path, err := etree.CompilePath(elementPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrInvalidSelector, elementPath, err)
	}

	return doc.FindElementsPath(path), nil
}

// isNamespacedAttr reports whether name carries a namespace prefix
// ("xmlns:*" or any "prefix:local" attribute setter), silently ignored
// during application.
func isNamespacedAttr(name string) bool {
	return strings.Contains(name, ":")
}

func applyOp(base *etree.Document, op PatchOp) error {
	target, err := resolveSelector(base, op.Sel)
	if err != nil {
		return err
	}

	switch op.Kind {
	case OpRemove:
		return applyRemove(target)
	case OpReplace:
		return applyReplace(target, op)
	case OpAdd:
		return applyAdd(target, op)
	default:
		return fmt.Errorf("%w: unknown op kind", ErrUnknownPatchOp)
	}
}

func applyRemove(target selectorTarget) error {
	if len(target.elements) != 1 {
		return fmt.Errorf("%w: matched %d nodes, want 1", ErrSelectorCardinality, len(target.elements))
	}
	el := target.elements[0]

	if target.attrName != "" {
		if isNamespacedAttr(target.attrName) {
			return nil
		}
		if el.SelectAttr(target.attrName) == nil {
			return fmt.Errorf("%w: attribute %q not present", ErrSelectorCardinality, target.attrName)
		}

		el.RemoveAttr(target.attrName)
		return nil
	}
	if target.isText {
		el.SetText("")
		return nil
	}

	parent := el.Parent()
	if parent == nil {
		return fmt.Errorf("%w: cannot remove document root", ErrSelectorCardinality)
	}

	parent.RemoveChild(el)
	return nil
}

func applyReplace(target selectorTarget, op PatchOp) error {
	if len(target.elements) != 1 {
		return fmt.Errorf("%w: matched %d nodes, want 1", ErrSelectorCardinality, len(target.elements))
	}
	el := target.elements[0]

	if target.attrName != "" {
		if isNamespacedAttr(target.attrName) {
			return nil
		}

		el.CreateAttr(target.attrName, op.node.Text())
		return nil
	}
	if target.isText {
		el.SetText(op.node.Text())
		return nil
	}

	replacements := cloneChildElements(op.node)
	if len(replacements) == 0 {
		return fmt.Errorf("%w: replace fragment has no element content", ErrInvalidSelector)
	}

	parent := el.Parent()
	if parent == nil {
		return fmt.Errorf("%w: document-root replace is not supported", ErrInvalidSelector)
	}

	idx := childIndex(parent, el)
	parent.RemoveChild(el)
	for i, repl := range replacements {
		parent.InsertChildAt(idx+i, repl)
	}

	return nil
}

func applyAdd(target selectorTarget, op PatchOp) error {
	if len(target.elements) != 1 {
		return fmt.Errorf("%w: matched %d nodes, want 1", ErrSelectorCardinality, len(target.elements))
	}
	el := target.elements[0]

	if op.AttrType != "" {
		name := strings.TrimPrefix(op.AttrType, "@")
		if isNamespacedAttr(name) {
			return nil
		}

		el.CreateAttr(name, op.node.Text())
		return nil
	}

	children := cloneChildElements(op.node)
	if len(children) == 0 {
		return nil
	}

	switch op.Pos {
	case PosPrepend:
		for i, c := range children {
			el.InsertChildAt(i, c)
		}
	case PosAppend, "":
		for _, c := range children {
			el.AddChild(c)
		}
	case PosBefore, PosAfter:
		parent := el.Parent()
		if parent == nil {
			return fmt.Errorf("%w: cannot insert sibling of document root", ErrInvalidSelector)
		}

		idx := childIndex(parent, el)
		if op.Pos == PosAfter {
			idx++
		}
		for i, c := range children {
			parent.InsertChildAt(idx+i, c)
		}
	default:
		return fmt.Errorf("%w: unknown pos %q", ErrInvalidSelector, op.Pos)
	}

	return nil
}

// cloneChildElements returns deep copies of node's child elements, safe to
// insert into a different tree.
func cloneChildElements(node *etree.Element) []*etree.Element {
	children := node.ChildElements()
	out := make([]*etree.Element, 0, len(children))
	for _, c := range children {
		out = append(out, c.Copy())
	}

	return out
}

// childIndex returns el's position among parent's child elements, or -1 if not found.
func childIndex(parent, el *etree.Element) int {
	for i, t := range parent.Child {
		if t == el {
			return i
		}
	}

	return -1
}
