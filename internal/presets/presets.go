// Package presets holds named Bradley threshold settings tuned for common
// kinds of source material.
package presets

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/MeKo-Tech/docscan/internal/pipeline"
)

// ErrUnknownPreset is returned when a name has no registered preset.
var ErrUnknownPreset = errors.New("unknown preset")

// Preset is a named pair of adaptive threshold parameters.
type Preset struct {
	Name        string `yaml:"name"        json:"name"`
	Description string `yaml:"description" json:"description,omitempty"`
	BlockSize   int    `yaml:"block_size"  json:"block_size"`
	Offset      int    `yaml:"offset"      json:"offset"`
}

// Validate checks the preset values against the ranges accepted by the
// scanner options.
func (p Preset) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return errors.New("preset name is required")
	}
	if p.BlockSize < 1 {
		return fmt.Errorf("preset %q: block_size must be positive, got %d", p.Name, p.BlockSize)
	}
	if p.Offset < 0 || p.Offset > 100 {
		return fmt.Errorf("preset %q: offset must be in [0,100], got %d", p.Name, p.Offset)
	}
	return nil
}

// Apply copies the preset parameters into opts.
func (p Preset) Apply(opts *pipeline.Options) {
	opts.BlockSize = p.BlockSize
	opts.Offset = p.Offset
}

var builtin = []Preset{
	{Name: "document", Description: "printed pages under even light", BlockSize: 15, Offset: 10},
	{Name: "receipt", Description: "thin thermal print", BlockSize: 11, Offset: 15},
	{Name: "photo-text", Description: "text photographed at a distance", BlockSize: 25, Offset: 5},
	{Name: "whiteboard", Description: "marker on glossy boards", BlockSize: 31, Offset: 12},
}

// Registry maps lower-case names to presets.
type Registry struct {
	presets map[string]Preset
}

// Builtin returns a registry with the built-in presets.
func Builtin() *Registry {
	r := &Registry{presets: make(map[string]Preset, len(builtin))}
	for _, p := range builtin {
		r.presets[p.Name] = p
	}
	return r
}

// Add registers p, replacing any preset with the same name.
func (r *Registry) Add(p Preset) error {
	if err := p.Validate(); err != nil {
		return err
	}
	p.Name = strings.ToLower(strings.TrimSpace(p.Name))
	r.presets[p.Name] = p
	return nil
}

// Get looks a preset up by case-insensitive name.
func (r *Registry) Get(name string) (Preset, error) {
	p, ok := r.presets[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return Preset{}, fmt.Errorf("%w: %q (available: %s)", ErrUnknownPreset, name, strings.Join(r.Names(), ", "))
	}
	return p, nil
}

// Names lists registered presets alphabetically.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.presets))
	for n := range r.presets {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// All returns the presets ordered by name.
func (r *Registry) All() []Preset {
	out := make([]Preset, 0, len(r.presets))
	for _, n := range r.Names() {
		out = append(out, r.presets[n])
	}
	return out
}

type presetFile struct {
	Presets []Preset `yaml:"presets"`
}

// Parse decodes a YAML document of the form
//
//	presets:
//	  - name: blueprint
//	    block_size: 21
//	    offset: 8
func Parse(data []byte) ([]Preset, error) {
	var f presetFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse presets: %w", err)
	}
	for _, p := range f.Presets {
		if err := p.Validate(); err != nil {
			return nil, err
		}
	}
	return f.Presets, nil
}

// Load returns the built-in registry extended with the presets in path.
// An empty path yields only the built-ins.
func Load(path string) (*Registry, error) {
	r := Builtin()
	if path == "" {
		return r, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read presets file: %w", err)
	}
	extra, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	for _, p := range extra {
		if err := r.Add(p); err != nil {
			return nil, err
		}
	}
	return r, nil
}
