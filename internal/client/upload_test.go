package client

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"doc2txt/internal/config"
)

func TestDetectContentType(t *testing.T) {
	cases := map[string]string{
		"a.pdf":  config.TypePDF,
		"B.DOCX": config.TypeDOCX,
		"c.doc":  config.TypeDOC,
		"d.html": "text/html",
		"e.bin":  "application/octet-stream",
	}
	for name, want := range cases {
		if got := DetectContentType(name, nil); got != want {
			t.Fatalf("DetectContentType(%q) = %q, want %q", name, got, want)
		}
	}

	if got := DetectContentType("noext", []byte("%PDF-1.4\n")); got != config.TypePDF {
		t.Fatalf("expected sniffed pdf, got %q", got)
	}
}

func TestOpenFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.pdf")
	if err := os.WriteFile(path, []byte("%PDF-1.7 body"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	up, err := OpenFile(path)
	if err != nil {
		t.Fatalf("OpenFile error: %v", err)
	}
	defer up.Close()

	if up.Name != "report.pdf" || up.ContentType != config.TypePDF || up.Size != 13 {
		t.Fatalf("unexpected upload: %+v", up)
	}
	data, err := io.ReadAll(up.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	if string(data) != "%PDF-1.7 body" {
		t.Fatalf("body not rewound, got %q", data)
	}
}

func TestOpenFile_Directory(t *testing.T) {
	if _, err := OpenFile(t.TempDir()); err == nil {
		t.Fatalf("expected error for directory")
	}
}
