// Package prompt holds the system instruction and reference files sent
// with every model request.
package prompt

import (
	_ "embed"
	"fmt"
	"net/url"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var defaultYAML []byte

type FileRef struct {
	Name        string `yaml:"name" json:"name"`
	URI         string `yaml:"uri" json:"uri"`
	MimeType    string `yaml:"mime_type" json:"mime_type"`
	Instruction string `yaml:"instruction" json:"instruction"`
}

type Note struct {
	Name        string `yaml:"name"`
	Instruction string `yaml:"instruction"`
}

type Document struct {
	Model  string    `yaml:"model"`
	System string    `yaml:"system"`
	Files  []FileRef `yaml:"files"`
	Notes  []Note    `yaml:"notes"`
	// Hidden overrides the file names scrubbed from replies. Defaults to
	// the attached file names.
	Hidden []string `yaml:"hidden_names"`
}

// Default returns the embedded document.
func Default() (*Document, error) {
	return Parse(defaultYAML)
}

// Load reads the document at path, or the embedded one when path is empty.
func Load(path string) (*Document, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return Default()
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read prompt document: %w", err)
	}
	doc, err := Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return doc, nil
}

func Parse(raw []byte) (*Document, error) {
	var doc Document
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse prompt document: %w", err)
	}
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	return &doc, nil
}

func (d *Document) Validate() error {
	if d == nil {
		return fmt.Errorf("prompt document is nil")
	}
	if strings.TrimSpace(d.Model) == "" {
		return fmt.Errorf("prompt document: model is required")
	}
	if strings.TrimSpace(d.System) == "" {
		return fmt.Errorf("prompt document: system is required")
	}
	seen := map[string]bool{}
	for i, f := range d.Files {
		if strings.TrimSpace(f.Name) == "" {
			return fmt.Errorf("prompt document: files[%d]: name is required", i)
		}
		if seen[f.Name] {
			return fmt.Errorf("prompt document: duplicate file %q", f.Name)
		}
		seen[f.Name] = true
		u, err := url.Parse(strings.TrimSpace(f.URI))
		if err != nil {
			return fmt.Errorf("prompt document: files[%d]: %w", i, err)
		}
		switch u.Scheme {
		case "http", "https", "gs":
		default:
			return fmt.Errorf("prompt document: files[%d]: unsupported uri scheme %q", i, u.Scheme)
		}
		if u.Host == "" {
			return fmt.Errorf("prompt document: files[%d]: uri has no host", i)
		}
		if strings.TrimSpace(f.MimeType) == "" {
			d.Files[i].MimeType = "text/csv"
		}
	}
	return nil
}

// SystemInstruction is the base instruction followed by one paragraph per
// attached file and note.
func (d *Document) SystemInstruction() string {
	var b strings.Builder
	b.WriteString(strings.TrimRight(d.System, "\n"))
	add := func(name, instruction string) {
		b.WriteString("\n\nA file has been uploaded. The file name is ")
		b.WriteString(name)
		b.WriteString(".")
		if s := strings.TrimSpace(instruction); s != "" {
			b.WriteString(" ")
			b.WriteString(s)
		}
	}
	for _, f := range d.Files {
		add(f.Name, f.Instruction)
	}
	for _, n := range d.Notes {
		add(n.Name, n.Instruction)
	}
	return b.String()
}

func (d *Document) HiddenNames() []string {
	if len(d.Hidden) > 0 {
		return append([]string(nil), d.Hidden...)
	}
	out := make([]string, 0, len(d.Files))
	for _, f := range d.Files {
		out = append(out, f.Name)
	}
	return out
}
