// Package templates renders the embedded report templates with a shared set of
// number formatting helpers.
package templates

import (
	"bytes"
	"embed"
	"io/fs"
	"path"
	"strings"
	"sync"
	"text/template"

	"gitarg/pkg/errors"
)

// Report template ids, relative to the assets directory without extension
const (
	DecisionReport = "reports/decision"
)

//go:embed assets/*/*.tmpl
var embeddedFS embed.FS

// Registry holds report templates parsed once at load. It is read-only after
// construction and safe for concurrent use.
type Registry struct {
	templates map[string]*template.Template
}

// Parse loads every .tmpl file under fsys. Unknown fields in render data are
// errors, so a report that drifts from its template fails loudly.
func Parse(fsys fs.FS) (*Registry, error) {
	r := &Registry{templates: map[string]*template.Template{}}

	err := fs.WalkDir(fsys, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || path.Ext(p) != ".tmpl" {
			return err
		}

		content, err := fs.ReadFile(fsys, p)
		if err != nil {
			return errors.Wrapf(err, "read template %s", p)
		}
		id := strings.TrimSuffix(p, ".tmpl")
		parsed, err := template.New(id).Funcs(funcMap).Option("missingkey=error").Parse(string(content))
		if err != nil {
			return errors.Wrapf(errors.ErrInternal, "parse template %s: %v", id, err)
		}
		r.templates[id] = parsed
		return nil
	})
	if err != nil {
		return nil, err
	}
	return r, nil
}

var (
	defaultOnce     sync.Once
	defaultRegistry *Registry
	defaultErr      error
)

// Default returns the registry of embedded report templates
func Default() (*Registry, error) {
	defaultOnce.Do(func() {
		sub, err := fs.Sub(embeddedFS, "assets")
		if err != nil {
			defaultErr = errors.Wrap(err, "prepare embedded templates")
			return
		}
		defaultRegistry, defaultErr = Parse(sub)
	})
	return defaultRegistry, defaultErr
}

// Render executes the template id with data
func (r *Registry) Render(id string, data any) (string, error) {
	tmpl, ok := r.templates[id]
	if !ok {
		return "", errors.Wrapf(errors.ErrNotFound, "template %s", id)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", errors.Wrapf(errors.ErrInvalidInput, "render template %s: %v", id, err)
	}
	return buf.String(), nil
}
