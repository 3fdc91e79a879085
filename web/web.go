// Package web embeds the dashboard page template and its static assets.
package web

import (
	"embed"
	"html/template"
	"io/fs"
)

//go:embed templates static
var files embed.FS

// Templates parses the page templates. The page is named "index.html".
func Templates() (*template.Template, error) {
	return template.New("index.html").Funcs(template.FuncMap{
		"row": func(r any, blocked bool) map[string]any {
			return map[string]any{"Row": r, "Blocked": blocked}
		},
	}).ParseFS(files, "templates/*.html")
}

// Static returns the static asset tree rooted at static/.
func Static() fs.FS {
	sub, err := fs.Sub(files, "static")
	if err != nil {
		// The directory is embedded at build time.
		panic(err)
	}
	return sub
}
