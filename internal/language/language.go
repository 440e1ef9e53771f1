// Package language maps language codes to display names and flag glyphs.
package language

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed languages.yaml
var embedded []byte

// Code is a short ISO-like language code such as "en"
type Code string

// Language is one entry of the directory
type Language struct {
	Code    Code   `yaml:"code" json:"code"`
	Name    string `yaml:"name" json:"name"`
	Country string `yaml:"country" json:"country"`
}

var (
	ErrEmptyCode     = errors.New("language code is empty")
	ErrDuplicateCode = errors.New("duplicate language code")
)

// Directory is an immutable, ordered lookup table
type Directory struct {
	entries []Language
	byCode  map[Code]Language
}

// Load parses a YAML list of languages
func Load(r io.Reader) (*Directory, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var entries []Language
	if err := dec.Decode(&entries); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to decode languages: %w", err)
	}

	d := &Directory{
		entries: make([]Language, 0, len(entries)),
		byCode:  make(map[Code]Language, len(entries)),
	}
	for i, l := range entries {
		l.Code = Code(strings.TrimSpace(string(l.Code)))
		if l.Code == "" {
			return nil, fmt.Errorf("entry %d: %w", i, ErrEmptyCode)
		}
		if _, ok := d.byCode[l.Code]; ok {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateCode, l.Code)
		}
		d.entries = append(d.entries, l)
		d.byCode[l.Code] = l
	}
	return d, nil
}

// LoadFile reads a directory from a YAML file on disk
func LoadFile(path string) (*Directory, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open languages file: %w", err)
	}
	defer f.Close()
	return Load(f)
}

var (
	defaultOnce sync.Once
	defaultDir  *Directory
)

// Default returns the built-in directory
func Default() *Directory {
	defaultOnce.Do(func() {
		d, err := Load(bytes.NewReader(embedded))
		if err != nil {
			panic(fmt.Sprintf("embedded languages.yaml is invalid: %v", err))
		}
		defaultDir = d
	})
	return defaultDir
}

// Lookup returns the entry for code
func (d *Directory) Lookup(code Code) (Language, bool) {
	l, ok := d.byCode[code]
	return l, ok
}

// Name returns the display name, or the code itself when unknown
func (d *Directory) Name(code Code) string {
	if l, ok := d.byCode[code]; ok {
		return l.Name
	}
	return string(code)
}

// Flag returns the regional-indicator emoji for the language's country.
// Unknown codes are treated as a country code.
func (d *Directory) Flag(code Code) string {
	country := string(code)
	if l, ok := d.byCode[code]; ok && l.Country != "" {
		country = l.Country
	}

	var b strings.Builder
	for _, r := range strings.ToUpper(country) {
		if r < 'A' || r > 'Z' {
			continue
		}
		b.WriteRune(r + 127397)
	}
	return b.String()
}

// List returns a copy of the entries in directory order
func (d *Directory) List() []Language {
	out := make([]Language, len(d.entries))
	copy(out, d.entries)
	return out
}
