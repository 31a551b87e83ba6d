// Package web embeds the dashboard templates and stylesheet served by the API server.
//
// Usage in the API server:
//
//	import "github.com/seenimoa/fintel/web"
//	tmpl, err := web.Templates()
//	static := web.StaticFS()
package web

import (
	"embed"
	"html/template"
	"io/fs"
	"log"
)

//go:embed templates/*.html
var templates embed.FS

//go:embed static
var static embed.FS

// Templates parses the embedded dashboard templates.
func Templates() (*template.Template, error) {
	return template.New("").ParseFS(templates, "templates/*.html")
}

// StaticFS returns a filesystem rooted at the embedded static/ directory.
func StaticFS() fs.FS {
	sub, err := fs.Sub(static, "static")
	if err != nil {
		log.Fatalf("web.StaticFS: %v", err)
	}
	return sub
}
