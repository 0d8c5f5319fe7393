package pagemodel

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	json "github.com/json-iterator/go"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Format is the on-disk encoding of a page file.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
	FormatJSON Format = "json"
)

// ErrUnsupportedFormat is returned for a file extension we cannot decode.
var ErrUnsupportedFormat = errors.New("unsupported page file format")

var validate = validator.New()

// FormatFromPath picks the decoder from the file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".toml":
		return FormatTOML, nil
	case ".json":
		return FormatJSON, nil
	}
	return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
}

// Load reads, decodes and validates a page file.
func Load(path string) (*Page, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read page file %s: %w", path, err)
	}
	page, err := Parse(data, format)
	if err != nil {
		return nil, fmt.Errorf("page file %s: %w", path, err)
	}
	return page, nil
}

// Parse decodes a page declaration. YAML and TOML documents are first decoded
// generically and then normalized through JSON, so every format shares the
// same field names and the same action decoding.
func Parse(data []byte, format Format) (*Page, error) {
	var raw []byte
	switch format {
	case FormatJSON:
		raw = data
	case FormatYAML:
		var doc map[string]interface{}
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("invalid yaml: %w", err)
		}
		b, err := json.Marshal(doc)
		if err != nil {
			return nil, fmt.Errorf("failed to normalize yaml document: %w", err)
		}
		raw = b
	case FormatTOML:
		var doc map[string]interface{}
		if err := toml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("invalid toml: %w", err)
		}
		b, err := json.Marshal(doc)
		if err != nil {
			return nil, fmt.Errorf("failed to normalize toml document: %w", err)
		}
		raw = b
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}

	var page Page
	if err := json.Unmarshal(raw, &page); err != nil {
		return nil, fmt.Errorf("failed to decode page: %w", err)
	}
	if err := Validate(&page); err != nil {
		return nil, err
	}
	return &page, nil
}

// Validate runs the struct rules over the page and each of its actions.
func Validate(p *Page) error {
	if err := validate.Struct(p); err != nil {
		return fmt.Errorf("invalid page: %w", err)
	}
	for i, a := range p.TopFilters.Actions {
		if a.Key == "" {
			return fmt.Errorf("invalid page: topFilters.actions[%d] has no key", i)
		}
		if err := validateAction(a.Action); err != nil {
			return fmt.Errorf("invalid page: topFilters.actions[%d]: %w", i, err)
		}
	}
	for _, w := range p.Widgets.Items {
		for _, f := range w.Filters {
			for i, a := range f.Actions {
				if err := validateAction(a); err != nil {
					return fmt.Errorf("invalid page: widget %s filter %s action %d: %w", w.Key, f.Key, i, err)
				}
			}
		}
	}
	return nil
}

func validateAction(a Action) error {
	switch act := a.(type) {
	case SelectAction:
		return validate.Struct(act)
	case DatepickerAction:
		if err := validate.Struct(act); err != nil {
			return err
		}
		for i, step := range act.Picker {
			if step.Action == StepSelect && step.Day == "" {
				return fmt.Errorf("picker step %d selects without select_date_index", i)
			}
		}
		return nil
	case nil:
		return errors.New("missing action")
	}
	return fmt.Errorf("%w %T", ErrUnknownAction, a)
}

// Warnings lists declarations that are valid but probably mistaken, such as
// an action whose key matches no declared top filter.
func Warnings(p *Page) []string {
	var out []string
	for i, a := range p.TopFilters.Actions {
		if _, ok := p.TopFilter(a.Key); !ok {
			out = append(out, fmt.Sprintf("topFilters.actions[%d]: key %q matches no declared top filter", i, a.Key))
		}
		if a.Action == nil {
			continue
		}
		for _, target := range a.Action.Targets() {
			if target.IsWidget {
				continue
			}
			if _, ok := p.TopFilter(target.Key); !ok {
				out = append(out, fmt.Sprintf("topFilters.actions[%d]: validate target %q matches no declared top filter", i, target.Key))
			}
		}
	}
	for _, w := range p.Widgets.Items {
		for _, f := range w.Filters {
			for i, a := range f.Actions {
				if sel, ok := a.(SelectAction); ok && sel.Label == "" {
					out = append(out, fmt.Sprintf("widget %s filter %s action %d: select has no label to scope the modal dropdown", w.Key, f.Key, i))
				}
			}
		}
	}
	return out
}

// Discover lists the page files directly inside dir, sorted by name.
func Discover(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list pages in %s: %w", dir, err)
	}
	var paths []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if _, err := FormatFromPath(e.Name()); err == nil {
			paths = append(paths, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(paths)
	return paths, nil
}
