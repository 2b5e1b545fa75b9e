package http

import (
	"io/fs"
	"mime"
	"path"
	"path/filepath"
	"strings"

	"github.com/gofiber/fiber/v2"

	webui "doc2txt/frontend"
)

func registerWebUIRoutes(app *fiber.App) {
	uiFS := webui.FS()

	indexHTML, err := fs.ReadFile(uiFS, "index.html")
	if err != nil {
		return
	}

	serveIndex := func(c *fiber.Ctx) error {
		c.Set("Cache-Control", "no-cache")
		c.Type("html", "utf-8")
		return c.Send(indexHTML)
	}

	app.Get("/", serveIndex)

	app.Get("/assets/*", func(c *fiber.Ctx) error {
		cleaned := strings.TrimPrefix(path.Clean(c.Path()), "/")

		payload, err := fs.ReadFile(uiFS, cleaned)
		if err != nil {
			return fiber.ErrNotFound
		}

		ext := filepath.Ext(cleaned)
		if ct := mime.TypeByExtension(ext); ct != "" {
			c.Set("Content-Type", ct)
		} else {
			c.Type(ext)
		}
		c.Set("Cache-Control", "no-cache")
		return c.Send(payload)
	})
}
