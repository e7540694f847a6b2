// Package catalog loads the declarative achievement and task catalogs.
package catalog

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

//go:embed achievements.yaml
var achievementsYAML []byte

//go:embed tasks.yaml
var tasksYAML []byte

// Source names one of the embedded catalogs.
type Source string

const (
	Achievements Source = "achievements"
	Tasks        Source = "tasks"
)

// ErrUnknownSource is returned for a Source with no embedded document.
var ErrUnknownSource = errors.New("unknown catalog source")

var validate = validator.New()

// document is the on-disk layout shared by both catalogs. Entry types must
// expose an ID field; ids are unique within a document.
type document[T any] struct {
	Items []T `yaml:"items" validate:"required,min=1,unique=ID,dive"`
}

// Embedded returns the built-in YAML for src.
func Embedded(src Source) ([]byte, error) {
	switch src {
	case Achievements:
		return achievementsYAML, nil
	case Tasks:
		return tasksYAML, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownSource, src)
	}
}

// Load decodes the catalog at overridePath, or the embedded default for src
// when overridePath is empty.
func Load[T any](src Source, overridePath string) ([]T, error) {
	if overridePath == "" {
		data, err := Embedded(src)
		if err != nil {
			return nil, err
		}
		items, err := Decode[T](data)
		if err != nil {
			return nil, fmt.Errorf("embedded %s catalog: %w", src, err)
		}
		return items, nil
	}

	data, err := os.ReadFile(overridePath)
	if err != nil {
		return nil, fmt.Errorf("read %s catalog: %w", src, err)
	}
	items, err := Decode[T](data)
	if err != nil {
		return nil, fmt.Errorf("%s catalog %s: %w", src, overridePath, err)
	}
	return items, nil
}

// Decode parses and validates a catalog document. Unknown keys are rejected
// so that a misspelled threshold does not silently become zero.
func Decode[T any](data []byte) ([]T, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var doc document[T]
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("catalog is empty")
		}
		return nil, fmt.Errorf("decode: %w", err)
	}
	if err := validate.Struct(doc); err != nil {
		return nil, fmt.Errorf("validate: %w", err)
	}
	return doc.Items, nil
}
