package registry

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"modelyaml/internal/common/fsutil"
	"modelyaml/pkg/types"
)

// LoadDir walks dir recursively for definition files (.yaml, .yml, .json,
// .toml) and decodes them. Files are parsed concurrently; the result is ordered
// by file path and, within a file, by document order.
func LoadDir(dir string) ([]types.ModelDefinition, error) {
	base, err := fsutil.ExpandHome(dir)
	if err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(base)
	if err != nil {
		return nil, fmt.Errorf("abs path: %w", err)
	}
	var paths []string
	err = filepath.WalkDir(abs, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if p != abs && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if IsDefinitionFile(d.Name()) {
			paths = append(paths, p)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("read dir: %w", err)
	}

	perFile := make([][]types.ModelDefinition, len(paths))
	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, p := range paths {
		g.Go(func() error {
			defs, err := LoadFile(p)
			if err != nil {
				return err
			}
			perFile[i] = defs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	var out []types.ModelDefinition
	for _, defs := range perFile {
		out = append(out, defs...)
	}
	return out, nil
}

// IsDefinitionFile reports whether name has a supported definition extension.
func IsDefinitionFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml", ".json", ".toml":
		return !strings.HasPrefix(name, ".")
	}
	return false
}

// LoadFile decodes every definition contained in the file at path.
func LoadFile(path string) ([]types.ModelDefinition, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	defs, err := Decode(filepath.Ext(path), b)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return defs, nil
}

// Decode parses definitions from b according to the file extension ext.
// Every format is normalized to JSON before decoding so the definition types
// carry a single set of unmarshalers.
func Decode(ext string, b []byte) ([]types.ModelDefinition, error) {
	docs, err := DecodeDocuments(ext, b)
	if err != nil {
		return nil, err
	}
	out := make([]types.ModelDefinition, 0, len(docs))
	for i, doc := range docs {
		def, err := FromTree(doc)
		if err != nil {
			return nil, fmt.Errorf("document %d: %w", i, err)
		}
		out = append(out, def)
	}
	return out, nil
}

// DecodeDocuments parses b into generic documents without interpreting them.
// YAML files may hold several documents; JSON files may hold a single object
// or an array.
func DecodeDocuments(ext string, b []byte) ([]any, error) {
	var docs []any
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(b))
		for {
			var doc any
			err := dec.Decode(&doc)
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				return nil, err
			}
			if doc != nil {
				docs = append(docs, doc)
			}
		}
	case ".json":
		trimmed := bytes.TrimSpace(b)
		if len(trimmed) > 0 && trimmed[0] == '[' {
			var arr []any
			if err := json.Unmarshal(trimmed, &arr); err != nil {
				return nil, err
			}
			docs = arr
		} else {
			var doc any
			if err := json.Unmarshal(trimmed, &doc); err != nil {
				return nil, err
			}
			docs = append(docs, doc)
		}
	case ".toml":
		var doc map[string]any
		if err := toml.Unmarshal(b, &doc); err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	default:
		return nil, fmt.Errorf("unsupported definition extension: %s", ext)
	}
	return docs, nil
}

// FromTree converts a generic decoded document into a definition.
func FromTree(doc any) (types.ModelDefinition, error) {
	var def types.ModelDefinition
	if _, ok := normalize(doc).(map[string]any); !ok {
		return def, fmt.Errorf("definition must be a mapping")
	}
	b, err := json.Marshal(normalize(doc))
	if err != nil {
		return def, err
	}
	if err := json.Unmarshal(b, &def); err != nil {
		return def, err
	}
	return def, nil
}

// normalize converts YAML's map[any]any nodes into JSON-compatible maps.
func normalize(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, x := range t {
			out[k] = normalize(x)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, x := range t {
			out[fmt.Sprint(k)] = normalize(x)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, x := range t {
			out[i] = normalize(x)
		}
		return out
	default:
		return v
	}
}
