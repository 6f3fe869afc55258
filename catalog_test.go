// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta

package x4vfs

import (
	"bytes"
	"context"
	"crypto/md5" //nolint:gosec // matches catalog format checksum
	"encoding/hex"
	"testing"
	"time"
)

type memReader struct {
	*bytes.Reader
}

func (m *memReader) Close() error { return nil }

func newMemInput(virtualPath string, data []byte) WriteCatalogInput {
	return WriteCatalogInput{
		Path:    virtualPath,
		ModTime: time.Unix(1700000000, 0),
		Open: func() (ReadCloserAt, error) {
			return &memReader{bytes.NewReader(data)}, nil
		},
	}
}

func TestWriteCatalogThenReadRoundTrip(t *testing.T) {
	t.Parallel()

	inputs := []WriteCatalogInput{
		newMemInput("assets/fx/weapon.xml", []byte("<weapon/>")),
		newMemInput("assets/fx/empty.xml", []byte("")),
		newMemInput("libraries/wares.xml", []byte("<wares><ware/></wares>")),
	}

	var catBuf, datBuf bytes.Buffer
	result, err := WriteCatalog(context.Background(), &catBuf, &datBuf, inputs, WriteCatalogOptions{})
	if err != nil {
		t.Fatalf("WriteCatalog: %v", err)
	}
	if result.WrittenEntries != len(inputs) {
		t.Errorf("WrittenEntries = %d, want %d", result.WrittenEntries, len(inputs))
	}

	reader, err := NewCatalogReaderFromReaders(bytes.NewReader(catBuf.Bytes()), bytes.NewReader(datBuf.Bytes()), int64(datBuf.Len()), CatalogReaderOptions{})
	if err != nil {
		t.Fatalf("NewCatalogReaderFromReaders: %v", err)
	}
	defer reader.Close()

	for _, in := range inputs {
		if !reader.Contains(in.Path) {
			t.Errorf("reader does not contain %q", in.Path)
		}
	}

	got, err := reader.Read("assets/fx/weapon.xml")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != "<weapon/>" {
		t.Errorf("Read = %q, want %q", got, "<weapon/>")
	}

	empty, err := reader.Read("assets/fx/empty.xml")
	if err != nil {
		t.Fatalf("Read empty: %v", err)
	}
	if len(empty) != 0 {
		t.Errorf("Read empty = %q, want empty", empty)
	}
}

func TestWriteCatalogDeterministicOrder(t *testing.T) {
	t.Parallel()

	inputs := []WriteCatalogInput{
		newMemInput("z/last.xml", []byte("z")),
		newMemInput("a/first.xml", []byte("a")),
	}

	var cat1, dat1, cat2, dat2 bytes.Buffer
	if _, err := WriteCatalog(context.Background(), &cat1, &dat1, inputs, WriteCatalogOptions{}); err != nil {
		t.Fatalf("first write: %v", err)
	}
	if _, err := WriteCatalog(context.Background(), &cat2, &dat2, inputs, WriteCatalogOptions{}); err != nil {
		t.Fatalf("second write: %v", err)
	}

	if cat1.String() != cat2.String() {
		t.Error("catalog index differs between identical writes")
	}
	if !bytes.Equal(dat1.Bytes(), dat2.Bytes()) {
		t.Error("catalog data differs between identical writes")
	}
}

func TestWriteCatalogEmptyInputs(t *testing.T) {
	t.Parallel()

	var catBuf, datBuf bytes.Buffer
	_, err := WriteCatalog(context.Background(), &catBuf, &datBuf, nil, WriteCatalogOptions{})
	if err == nil {
		t.Fatal("expected error for empty inputs")
	}
}

func TestWriteCatalogDuplicatePath(t *testing.T) {
	t.Parallel()

	inputs := []WriteCatalogInput{
		newMemInput("assets/fx/weapon.xml", []byte("a")),
		newMemInput("Assets/FX/Weapon.xml", []byte("b")),
	}

	var catBuf, datBuf bytes.Buffer
	_, err := WriteCatalog(context.Background(), &catBuf, &datBuf, inputs, WriteCatalogOptions{})
	if err == nil {
		t.Fatal("expected duplicate path error")
	}
}

func TestParseCatalogLineRightToLeftSplit(t *testing.T) {
	t.Parallel()

	sum := md5.Sum([]byte("x")) //nolint:gosec
	md5Hex := hex.EncodeToString(sum[:])
	line := "assets/weapons with spaces/gun.xml 123 1700000000 " + md5Hex

	entry, err := parseCatalogLine(line)
	if err != nil {
		t.Fatalf("parseCatalogLine: %v", err)
	}
	if entry.Path != "assets/weapons with spaces/gun.xml" {
		t.Errorf("Path = %q, want path with embedded spaces preserved", entry.Path)
	}
	if entry.Length != 123 {
		t.Errorf("Length = %d, want 123", entry.Length)
	}
	if entry.Timestamp != 1700000000 {
		t.Errorf("Timestamp = %d, want 1700000000", entry.Timestamp)
	}
	if entry.MD5Hex != md5Hex {
		t.Errorf("MD5Hex = %q, want %q", entry.MD5Hex, md5Hex)
	}
}

func TestParseCatalogLineInvalid(t *testing.T) {
	t.Parallel()

	tests := []string{
		"",
		"# a comment line here deadbeef",
		"onlyonefield",
		"path 1 two d41d8cd98f00b204e9800998ecf8427e",
		"path -1 1700000000 d41d8cd98f00b204e9800998ecf8427e",
		"path 1 1700000000 tooshort",
	}

	for _, line := range tests {
		if _, err := parseCatalogLine(line); err == nil {
			t.Errorf("parseCatalogLine(%q) expected an error, got nil", line)
		}
	}
}

func TestCatalogReaderEmptyHashBugTolerated(t *testing.T) {
	t.Parallel()

	payload := []byte("not actually empty")
	line := "assets/bugged.xml " + "18" + " 1700000000 " + EmptyMD5Hex

	catIndex := bytes.NewReader([]byte(line + "\n"))
	dat := bytes.NewReader(payload)

	reader, err := NewCatalogReaderFromReaders(catIndex, dat, int64(len(payload)), CatalogReaderOptions{})
	if err != nil {
		t.Fatalf("NewCatalogReaderFromReaders: %v", err)
	}
	defer reader.Close()

	got, err := reader.Read("assets/bugged.xml")
	if err != nil {
		t.Fatalf("Read should tolerate the empty-hash bug, got error: %v", err)
	}
	if string(got) != string(payload) {
		t.Errorf("Read = %q, want %q", got, payload)
	}
}

func TestCatalogReaderChecksumMismatchPolicy(t *testing.T) {
	t.Parallel()

	payload := []byte("hello world")
	badHex := "00000000000000000000000000000000"
	line := "assets/bad.xml 11 1700000000 " + badHex

	build := func(allow bool) (*CatalogReader, error) {
		return NewCatalogReaderFromReaders(bytes.NewReader([]byte(line+"\n")), bytes.NewReader(payload), int64(len(payload)), CatalogReaderOptions{AllowMD5Errors: allow})
	}

	strict, err := build(false)
	if err != nil {
		t.Fatalf("build strict: %v", err)
	}
	defer strict.Close()
	if _, err := strict.Read("assets/bad.xml"); err == nil {
		t.Error("expected checksum mismatch error in strict mode")
	}

	lenient, err := build(true)
	if err != nil {
		t.Fatalf("build lenient: %v", err)
	}
	defer lenient.Close()
	got, err := lenient.Read("assets/bad.xml")
	if err != nil {
		t.Fatalf("AllowMD5Errors should tolerate mismatch: %v", err)
	}
	if string(got) != string(payload) {
		t.Errorf("Read = %q, want %q", got, payload)
	}
}

func TestCatalogReaderPathMissing(t *testing.T) {
	t.Parallel()

	reader, err := NewCatalogReaderFromReaders(bytes.NewReader(nil), bytes.NewReader(nil), 0, CatalogReaderOptions{})
	if err != nil {
		t.Fatalf("NewCatalogReaderFromReaders: %v", err)
	}
	defer reader.Close()

	if _, err := reader.Read("nope.xml"); err == nil {
		t.Error("expected ErrPathMissing for unknown path")
	}
}

func TestCatalogReaderCloseIsIdempotent(t *testing.T) {
	t.Parallel()

	reader, err := OpenCatalogWithOptionsForTest(t)
	if err != nil {
		t.Fatalf("setup: %v", err)
	}

	if err := reader.Close(); err != nil {
		t.Fatalf("first Close: %v", err)
	}
	if err := reader.Close(); err != nil {
		t.Fatalf("second Close should be a no-op, got: %v", err)
	}

	if _, err := reader.Read("assets/fx/weapon.xml"); err != ErrClosed {
		t.Errorf("Read after Close = %v, want ErrClosed", err)
	}
}

// OpenCatalogWithOptionsForTest builds a small catalog on disk for Close/Read
// lifecycle tests that need a reader backed by a real *os.File.
func OpenCatalogWithOptionsForTest(t *testing.T) (*CatalogReader, error) {
	t.Helper()

	dir := t.TempDir()
	inputs := []WriteCatalogInput{newMemInput("assets/fx/weapon.xml", []byte("<weapon/>"))}

	if _, err := WriteCatalogFiles(context.Background(), dir+"/01", inputs, WriteCatalogOptions{}); err != nil {
		return nil, err
	}

	return OpenCatalog(dir+"/01.cat", dir+"/01.dat")
}
