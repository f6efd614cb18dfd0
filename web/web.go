// Package web embeds the dashboard's templates and static assets.
package web

import (
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"path"
)

//go:embed templates static
var files embed.FS

const layoutPath = "templates/layouts/base.html"

// ParseTemplates parses every page together with the base layout. The
// result is keyed by page file name, e.g. "login.html".
func ParseTemplates(funcs template.FuncMap) (map[string]*template.Template, error) {
	cache := make(map[string]*template.Template)

	pages, err := fs.Glob(files, "templates/pages/*.html")
	if err != nil {
		return nil, err
	}

	for _, page := range pages {
		name := path.Base(page)

		tmpl, err := template.New(path.Base(layoutPath)).Funcs(funcs).ParseFS(files, layoutPath, page)
		if err != nil {
			return nil, fmt.Errorf("parsing %s: %w", name, err)
		}

		cache[name] = tmpl
	}

	return cache, nil
}

// Static returns the static asset tree, rooted at the static directory.
func Static() fs.FS {
	sub, err := fs.Sub(files, "static")
	if err != nil {
		panic(err)
	}
	return sub
}
