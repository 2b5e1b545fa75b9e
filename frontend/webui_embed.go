package webui

import (
	"embed"
	"io/fs"
)

// content holds the single-page UI served at /.
//
//go:embed dist/index.html dist/assets/*
var content embed.FS

// FS returns the UI files rooted at dist/.
func FS() fs.FS {
	sub, err := fs.Sub(content, "dist")
	if err != nil {
		panic(err)
	}
	return sub
}
