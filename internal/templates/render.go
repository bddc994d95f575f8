// Package templates renders the HTML fragments patched into the viewer over
// SSE.
package templates

import (
	"bytes"
	"encoding/json"
	"html/template"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"
)

var funcMap = template.FuncMap{
	// dict builds a map from key-value pairs for nested templates
	"dict": func(values ...any) map[string]any {
		if len(values)%2 != 0 {
			return nil
		}
		m := make(map[string]any, len(values)/2)
		for i := 0; i < len(values); i += 2 {
			key, ok := values[i].(string)
			if !ok {
				continue
			}
			m[key] = values[i+1]
		}
		return m
	},
	// json embeds a value in a script or data-* attribute
	"json": func(v any) (template.JS, error) {
		data, err := json.Marshal(v)
		if err != nil {
			return "", err
		}
		return template.JS(data), nil
	},
}

// Renderer holds the parsed fragment templates.
type Renderer struct {
	dir       string
	templates *template.Template
	mu        sync.RWMutex
}

// New parses every *.html file in fragmentsDir.
func New(fragmentsDir string) (*Renderer, error) {
	tmpl, err := parse(fragmentsDir)
	if err != nil {
		return nil, err
	}
	return &Renderer{dir: fragmentsDir, templates: tmpl}, nil
}

func parse(dir string) (*template.Template, error) {
	tmpl, err := template.New("").Funcs(funcMap).ParseGlob(filepath.Join(dir, "*.html"))
	if err != nil {
		return nil, errors.Wrapf(err, "parsing fragments in %s", dir)
	}
	return tmpl, nil
}

// Render renders a named template to a string.
func (r *Renderer) Render(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := r.RenderToBuffer(&buf, name, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// RenderToBuffer renders a named template into buf.
func (r *Renderer) RenderToBuffer(buf *bytes.Buffer, name string, data any) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return errors.Wrapf(r.templates.ExecuteTemplate(buf, name, data), "rendering %s", name)
}

// Reload re-reads the fragments from disk.
func (r *Renderer) Reload() error {
	tmpl, err := parse(r.dir)
	if err != nil {
		return err
	}

	r.mu.Lock()
	r.templates = tmpl
	r.mu.Unlock()

	return nil
}
