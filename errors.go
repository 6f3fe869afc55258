// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/pbo

package x4vfs

import "errors"

// Sentinel errors for x4vfs operations. Use errors.Is/errors.As in callers.
var (
	// ErrPathMissing means the requested virtual path is not present in any source.
	ErrPathMissing = errors.New("x4vfs: path missing")
	// ErrChecksumMismatch means a catalog entry's payload does not match its recorded MD5.
	ErrChecksumMismatch = errors.New("x4vfs: checksum mismatch")
	// ErrEmptyHashBugDetected marks the known egosoft empty-hash catalog bug; informational only.
	ErrEmptyHashBugDetected = errors.New("x4vfs: empty-hash bug detected")
	// ErrPatchApplyFailure means an XML patch operation failed to apply.
	ErrPatchApplyFailure = errors.New("x4vfs: patch apply failure")
	// ErrDiffSynthesisFailure means patch synthesis could not reproduce the modified tree.
	ErrDiffSynthesisFailure = errors.New("x4vfs: diff synthesis failure")
	// ErrManifestParseError means an extension's content.xml could not be parsed.
	ErrManifestParseError = errors.New("x4vfs: manifest parse error")
	// ErrDependencyCycle means extension dependencies form a cycle or name a
	// missing hard dependency.
	ErrDependencyCycle = errors.New("x4vfs: dependency cycle")
	// ErrOutputPathCollision means an output path collides with an existing non-owned file.
	ErrOutputPathCollision = errors.New("x4vfs: output path collision")

	// ErrInvalidCatalogLine means a .cat line could not be parsed into path/length/timestamp/md5.
	ErrInvalidCatalogLine = errors.New("x4vfs: invalid catalog line")
	// ErrNilReader means a required reader or ReaderAt is nil.
	ErrNilReader = errors.New("x4vfs: reader is nil")
	// ErrNilWriter means a required writer is nil.
	ErrNilWriter = errors.New("x4vfs: writer is nil")
	// ErrClosed means the reader or resource is already closed.
	ErrClosed = errors.New("x4vfs: reader or resource already closed")
	// ErrEntryNotFound means the requested entry is not present in the catalog.
	ErrEntryNotFound = errors.New("x4vfs: entry not found")
	// ErrSizeOverflow means a length exceeds the addressable catalog payload size.
	ErrSizeOverflow = errors.New("x4vfs: size exceeds catalog payload limit")
	// ErrEmptyInputs means no inputs were provided to the catalog writer.
	ErrEmptyInputs = errors.New("x4vfs: no inputs provided to catalog writer")
	// ErrInvalidEntryPath means an entry path is empty or invalid after normalization.
	ErrInvalidEntryPath = errors.New("x4vfs: invalid entry path")
	// ErrDuplicateEntryPath means two inputs resolve to the same normalized path.
	ErrDuplicateEntryPath = errors.New("x4vfs: duplicate entry path")
	// ErrInvalidExtractPath means an output path escapes the destination root.
	ErrInvalidExtractPath = errors.New("x4vfs: invalid extract path")
	// ErrInvalidSelector means an XML patch sel attribute could not be parsed or resolved.
	ErrInvalidSelector = errors.New("x4vfs: invalid patch selector")
	// ErrSelectorCardinality means a sel matched zero or multiple nodes where exactly one was required.
	ErrSelectorCardinality = errors.New("x4vfs: selector cardinality mismatch")
	// ErrUnknownPatchOp means a <diff> child element is not add/remove/replace.
	ErrUnknownPatchOp = errors.New("x4vfs: unknown patch operation")
	// ErrConfigInvalid means the loaded configuration failed validation.
	ErrConfigInvalid = errors.New("x4vfs: invalid configuration")
)
