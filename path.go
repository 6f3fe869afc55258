// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/pbo

package x4vfs

import (
	"path"
	"strings"

	"github.com/woozymasta/pathrules"
)

// NormalizePath converts any path entering the VFS into the canonical virtual
// form: drive/prefix stripped, forward slashes, ASCII-lowercased, "." and
// redundant "/" collapsed. Case comparison is case-insensitive externally
// (callers may pass any spelling) and exact internally once normalized.
func NormalizePath(raw string) string {
	raw = strings.TrimSpace(raw)
	raw = strings.ReplaceAll(raw, `\`, "/")
	raw = stripDriveOrPrefix(raw)
	raw = asciiLower(raw)

	raw = strings.TrimPrefix(raw, "/")
	raw = path.Clean("/" + raw)
	raw = strings.TrimPrefix(raw, "/")
	if raw == "." {
		return ""
	}

	return strings.TrimSuffix(raw, "/")
}

// stripDriveOrPrefix removes a leading Windows drive letter ("C:/...") and
// collapses a leading run of slashes ("//x/...") to one; the first segment
// after the slashes is kept, so a UNC host name is not removed.
func stripDriveOrPrefix(raw string) string {
	if len(raw) >= 2 && raw[1] == ':' && isASCIIAlpha(raw[0]) {
		raw = raw[2:]
	}

	for strings.HasPrefix(raw, "//") {
		raw = raw[1:]
	}

	return raw
}

// asciiLower lower-cases only ASCII A-Z bytes, leaving all other bytes untouched.
func asciiLower(s string) string {
	hasUpper := false
	for i := 0; i < len(s); i++ {
		if s[i] >= 'A' && s[i] <= 'Z' {
			hasUpper = true
			break
		}
	}
	if !hasUpper {
		return s
	}

	b := []byte(s)
	for i := range b {
		if b[i] >= 'A' && b[i] <= 'Z' {
			b[i] += 'a' - 'A'
		}
	}

	return string(b)
}

// isASCIIAlpha reports whether byte is an ASCII latin letter.
func isASCIIAlpha(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

// GlobMatcher compiles a single virtual-path glob pattern supporting "*",
// "?" and "[...]" with case-folded matching, built on the same rule engine
// used for the content writer's subst/ext routing policy.
type GlobMatcher struct {
	matcher *pathrules.Matcher
}

// CompileGlob compiles a glob pattern into a reusable matcher.
func CompileGlob(pattern string) (*GlobMatcher, error) {
	normalized := NormalizePath(pattern)
	matcher, err := pathrules.NewMatcher([]pathrules.Rule{
		{Action: pathrules.ActionInclude, Pattern: normalized},
	}, pathrules.MatcherOptions{
		CaseInsensitive: true,
		DefaultAction:   pathrules.ActionExclude,
	})
	if err != nil {
		return nil, err
	}

	return &GlobMatcher{matcher: matcher}, nil
}

// Match reports whether the normalized virtual path satisfies the glob.
func (g *GlobMatcher) Match(virtualPath string) bool {
	if g == nil || g.matcher == nil {
		return false
	}

	return g.matcher.Included(NormalizePath(virtualPath), false)
}
