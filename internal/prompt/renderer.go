package prompt

import (
	"bytes"
	"fmt"
	"os"
	"text/template"
)

// Vars are the named values substituted into the prompt template
type Vars struct {
	CurrentDate  string
	Department   string
	UserQuestion string
}

// Renderer applies the prompt template loaded at startup. Rendering is
// deterministic and side-effect free.
type Renderer struct {
	source string
	tmpl   *template.Template
}

// Load reads and parses the template file, then smoke-renders it so a
// bad template is a startup failure rather than a request-time one.
func Load(path string) (*Renderer, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("prompt: read template %s: %w", path, err)
	}

	tmpl, err := template.New("prompt").Option("missingkey=error").Parse(string(raw))
	if err != nil {
		return nil, fmt.Errorf("prompt: parse template %s: %w", path, err)
	}

	r := &Renderer{source: string(raw), tmpl: tmpl}

	if _, err := r.Render(Vars{
		CurrentDate:  "1970-01-01",
		Department:   "general",
		UserQuestion: "smoke test",
	}); err != nil {
		return nil, fmt.Errorf("prompt: smoke render of %s: %w", path, err)
	}

	return r, nil
}

// Source returns the raw template text, for experiment-record artifacts
func (r *Renderer) Source() string {
	return r.source
}

// Render substitutes vars into the template
func (r *Renderer) Render(vars Vars) (string, error) {
	var buf bytes.Buffer
	if err := r.tmpl.Execute(&buf, vars); err != nil {
		return "", fmt.Errorf("prompt: render: %w", err)
	}
	return buf.String(), nil
}
