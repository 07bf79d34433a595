package catalog

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/jgivc/emojifetch/internal/common"
	"github.com/jgivc/emojifetch/internal/entity"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v2"
)

const (
	extYAML = ".yaml"
	extYML  = ".yml"

	fieldName  = "name"
	fieldImage = "image"
)

var (
	jsonNull = []byte("null")
)

type catalogAdapter struct {
	fs  afero.Fs
	log *slog.Logger
}

func NewCatalogAdapter(log *slog.Logger) *catalogAdapter {
	return NewCatalogAdapterWithFS(afero.NewOsFs(), log)
}

func NewCatalogAdapterWithFS(fs afero.Fs, log *slog.Logger) *catalogAdapter {
	return &catalogAdapter{
		fs:  fs,
		log: log.With(slog.String("item", "CatalogAdapter")),
	}
}

// Load reads the whole catalog file and parses it by extension.
// YAML is used for .yml and .yaml, JSON for everything else.
func (a *catalogAdapter) Load(path string) (*entity.Catalog, error) {
	content, err := afero.ReadFile(a.fs, path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", common.ErrCatalogNotFound, path)
		}

		return nil, fmt.Errorf("cannot read catalog %s: %w", path, err)
	}

	var catalog *entity.Catalog
	switch strings.ToLower(filepath.Ext(path)) {
	case extYAML, extYML:
		catalog, err = parseYAML(content)
	default:
		catalog, err = parseJSON(content)
	}

	if err != nil {
		return nil, fmt.Errorf("%w %s: %w", common.ErrCatalogParse, path, err)
	}

	a.log.Info("Catalog loaded", slog.String("path", path), slog.Int("entries", catalog.Len()))

	return catalog, nil
}

type builder struct {
	entries []*entity.Entry
	index   map[string]int
}

func newBuilder() *builder {
	return &builder{index: make(map[string]int)}
}

// add keeps the position of the first occurrence and the value of the last one.
func (b *builder) add(e *entity.Entry) {
	if idx, ok := b.index[e.Key]; ok {
		b.entries[idx] = e

		return
	}

	b.index[e.Key] = len(b.entries)
	b.entries = append(b.entries, e)
}

func (b *builder) catalog() *entity.Catalog {
	return &entity.Catalog{Entries: b.entries}
}

func parseJSON(content []byte) (*entity.Catalog, error) {
	dec := json.NewDecoder(bytes.NewReader(content))

	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("cannot read catalog start: %w", err)
	}

	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("catalog must be an object, got %v", tok)
	}

	b := newBuilder()
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("cannot read entry key: %w", err)
		}

		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected token %v", tok)
		}

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, fmt.Errorf("cannot read entry %q: %w", key, err)
		}

		if bytes.Equal(bytes.TrimSpace(raw), jsonNull) {
			return nil, fmt.Errorf("entry %q is null", key)
		}

		e := &entity.Entry{}
		if err := json.Unmarshal(raw, e); err != nil {
			return nil, fmt.Errorf("cannot decode entry %q: %w", key, err)
		}
		e.Key = key

		b.add(e)
	}

	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("cannot read catalog end: %w", err)
	}

	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("unexpected data after catalog")
	}

	return b.catalog(), nil
}

func parseYAML(content []byte) (*entity.Catalog, error) {
	var doc yaml.MapSlice
	if err := yaml.Unmarshal(content, &doc); err != nil {
		return nil, err
	}

	if len(doc) < 1 {
		// An empty map is a valid catalog, an empty document is not.
		var root interface{}
		if err := yaml.Unmarshal(content, &root); err != nil {
			return nil, err
		}

		if root == nil {
			return nil, fmt.Errorf("catalog is empty")
		}
	}

	b := newBuilder()
	for _, item := range doc {
		key, ok := item.Key.(string)
		if !ok {
			return nil, fmt.Errorf("entry key must be a string, got %T %v", item.Key, item.Key)
		}

		fields, ok := item.Value.(yaml.MapSlice)
		if !ok {
			return nil, fmt.Errorf("entry %q must be a map, got %T", key, item.Value)
		}

		e := &entity.Entry{Key: key}
		for _, field := range fields {
			var dst *string
			switch field.Key {
			case fieldName:
				dst = &e.Name
			case fieldImage:
				dst = &e.Image
			default:
				continue
			}

			switch v := field.Value.(type) {
			case nil:
				*dst = ""
			case string:
				*dst = v
			default:
				return nil, fmt.Errorf("entry %q field %v must be a string, got %T", key, field.Key, field.Value)
			}
		}

		b.add(e)
	}

	return b.catalog(), nil
}
