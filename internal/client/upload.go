package client

import (
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"doc2txt/internal/config"
)

// Upload is a document selected for conversion.
type Upload struct {
	Name        string
	ContentType string
	Size        int64
	Body        io.Reader
}

// Close releases the underlying file when Body owns one.
func (u Upload) Close() error {
	if c, ok := u.Body.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

var extensionTypes = map[string]string{
	".pdf":  config.TypePDF,
	".doc":  config.TypeDOC,
	".docx": config.TypeDOCX,
}

// DetectContentType resolves a document's MIME type from its file name,
// falling back to content sniffing of head.
func DetectContentType(name string, head []byte) string {
	ext := strings.ToLower(filepath.Ext(name))
	if t, ok := extensionTypes[ext]; ok {
		return t
	}
	if t := mime.TypeByExtension(ext); t != "" {
		if mt, _, err := mime.ParseMediaType(t); err == nil {
			return mt
		}
		return t
	}
	if len(head) > 0 {
		t := http.DetectContentType(head)
		if mt, _, err := mime.ParseMediaType(t); err == nil {
			return mt
		}
		return t
	}
	return "application/octet-stream"
}

// OpenFile opens a local document for upload. The caller must Close the
// returned Upload.
func OpenFile(path string) (Upload, error) {
	f, err := os.Open(path)
	if err != nil {
		return Upload{}, fmt.Errorf("open %s: %w", path, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return Upload{}, fmt.Errorf("stat %s: %w", path, err)
	}
	if info.IsDir() {
		f.Close()
		return Upload{}, fmt.Errorf("%s is a directory", path)
	}

	head := make([]byte, 512)
	n, err := io.ReadFull(f, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		f.Close()
		return Upload{}, fmt.Errorf("read %s: %w", path, err)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		f.Close()
		return Upload{}, fmt.Errorf("rewind %s: %w", path, err)
	}

	return Upload{
		Name:        filepath.Base(path),
		ContentType: DetectContentType(path, head[:n]),
		Size:        info.Size(),
		Body:        f,
	}, nil
}
