// Package validate checks model definitions before they are published.
//
// Checks run in two passes. The raw document is first matched against an
// embedded JSON schema; the decoded definition is then checked for structural
// problems the schema cannot express. When a Catalog is supplied the
// definition is also checked against the models already loaded.
package validate

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"

	"modelyaml/internal/fields"
	"modelyaml/internal/registry"
	"modelyaml/internal/resolver"
	"modelyaml/internal/selector"
	"modelyaml/internal/suggest"
	"modelyaml/pkg/types"
)

//go:embed definition.schema.json
var schemaJSON []byte

var loadSchema = sync.OnceValues(func() (*gojsonschema.Schema, error) {
	return gojsonschema.NewSchema(gojsonschema.NewBytesLoader(schemaJSON))
})

// Catalog is the read side of a definition snapshot. *registry.Snapshot implements it.
type Catalog interface {
	Get(id string) (*types.ModelDefinition, bool)
	Owner(baseKey string) (string, bool)
}

// Document validates a generically decoded definition document (as produced
// by a YAML, JSON or TOML decoder). cat may be nil.
func Document(doc any, cat Catalog) []types.Problem {
	c := &collector{}
	if err := c.schema(doc); err != nil {
		return []types.Problem{{Message: err.Error()}}
	}
	def, err := registry.FromTree(doc)
	if err != nil {
		c.add("", "decode: "+err.Error())
		return c.problems
	}
	c.structure(def)
	if cat != nil {
		c.catalog(def, cat)
	}
	return c.problems
}

// Definition validates an already decoded definition. cat may be nil.
func Definition(def types.ModelDefinition, cat Catalog) []types.Problem {
	b, err := json.Marshal(def)
	if err != nil {
		return []types.Problem{{Message: "encode: " + err.Error()}}
	}
	var doc any
	if err := json.Unmarshal(b, &doc); err != nil {
		return []types.Problem{{Message: "encode: " + err.Error()}}
	}
	return Document(doc, cat)
}

// collector accumulates problems, keeping at most one per path so the schema
// pass and the structural pass do not report the same fault twice.
type collector struct {
	problems []types.Problem
	seen     map[string]bool
}

func (c *collector) add(path, msg string) {
	if c.seen == nil {
		c.seen = map[string]bool{}
	}
	if path != "" && c.seen[path] {
		return
	}
	c.seen[path] = true
	c.problems = append(c.problems, types.Problem{Path: path, Message: msg})
}

func (c *collector) schema(doc any) error {
	s, err := loadSchema()
	if err != nil {
		return fmt.Errorf("load schema: %w", err)
	}
	res, err := s.Validate(gojsonschema.NewGoLoader(doc))
	if err != nil {
		return fmt.Errorf("validate: %w", err)
	}
	for _, e := range res.Errors() {
		path := e.Field()
		if path == "(root)" {
			path = ""
		}
		if e.Type() == "required" {
			if p, ok := e.Details()["property"].(string); ok {
				path = join(path, p)
			}
		}
		c.add(path, e.Description())
	}
	return nil
}

func (c *collector) structure(def types.ModelDefinition) {
	if !registry.ValidModelID(def.Model) {
		c.add("model", fmt.Sprintf("model id %q must have the form org/name", def.Model))
	}
	switch {
	case def.Base.IsReference():
		if def.Base.Ref == def.Model {
			c.add("base", "base references the model itself")
		} else if !registry.ValidModelID(def.Base.Ref) {
			c.add("base", fmt.Sprintf("base %q must have the form org/name", def.Base.Ref))
		}
	case len(def.Base.Concrete) == 0:
		c.add("base", "base must name a model or list at least one concrete base")
	}

	keys := map[string]bool{}
	for i, cb := range def.Base.Concrete {
		p := join("base", strconv.Itoa(i))
		switch {
		case strings.TrimSpace(cb.Key) == "":
			c.add(join(p, "key"), "concrete base key is empty")
		case keys[cb.Key]:
			c.add(join(p, "key"), fmt.Sprintf("concrete base key %q is declared twice", cb.Key))
		}
		keys[cb.Key] = true
		for j, src := range cb.Sources {
			sp := join(p, "sources", strconv.Itoa(j))
			if src.Type == "" {
				c.add(join(sp, "type"), "source type is empty")
				continue
			}
			if _, err := selector.Decode(src); err != nil {
				c.add(sp, err.Error())
			}
		}
	}

	fieldKeys := map[string]bool{}
	for i, f := range def.CustomFields {
		p := join("customFields", strconv.Itoa(i))
		switch {
		case f.Key == "":
			c.add(join(p, "key"), "custom field key is empty")
		case fieldKeys[f.Key]:
			c.add(join(p, "key"), fmt.Sprintf("custom field %q is declared twice", f.Key))
		}
		fieldKeys[f.Key] = true
		switch f.Type {
		case types.FieldBoolean:
			if _, ok := f.DefaultValue.(bool); !ok {
				c.add(join(p, "defaultValue"), "default value must be a boolean")
			}
		case types.FieldString:
			if _, ok := f.DefaultValue.(string); !ok {
				c.add(join(p, "defaultValue"), "default value must be a string")
			}
		default:
			c.add(join(p, "type"), fmt.Sprintf("unsupported field type %q", f.Type))
		}
		for j, e := range f.Effects {
			if _, err := fields.DecodeEffect(e); err != nil {
				c.add(join(p, "effects", strconv.Itoa(j)), err.Error())
			}
		}
	}

	for i, s := range def.Suggestions {
		p := join("suggestions", strconv.Itoa(i))
		for j, cond := range s.Conditions {
			cp := join(p, "conditions", strconv.Itoa(j))
			// unknown types are accepted; resolution reports them as diagnostics
			if cond.Type == "" {
				c.add(join(cp, "type"), "condition type is empty")
			}
			if _, err := suggest.ParsePath(cond.Key); err != nil {
				c.add(join(cp, "key"), err.Error())
			}
		}
		for j, fv := range s.Fields {
			if fv.Key == "" {
				c.add(join(p, "fields", strconv.Itoa(j), "key"), "field key is empty")
			}
		}
	}
}

func (c *collector) catalog(def types.ModelDefinition, cat Catalog) {
	if def.Base.IsReference() && def.Base.Ref != def.Model {
		if _, ok := cat.Get(def.Base.Ref); !ok {
			c.add("base", fmt.Sprintf("base %q is not a known model", def.Base.Ref))
		} else if _, err := resolver.Chain(overlay{cat: cat, def: &def}, def.Model); resolver.IsCycle(err) {
			c.add("base", err.Error())
		}
	}
	for i, cb := range def.Base.Concrete {
		if owner, ok := cat.Owner(cb.Key); ok && owner != def.Model {
			c.add(join("base", strconv.Itoa(i), "key"),
				fmt.Sprintf("concrete base key %q is already declared by %s", cb.Key, owner))
		}
	}
}

// overlay shows def in place of any stored definition with the same id.
type overlay struct {
	cat Catalog
	def *types.ModelDefinition
}

func (o overlay) Get(id string) (*types.ModelDefinition, bool) {
	if id == o.def.Model {
		return o.def, true
	}
	return o.cat.Get(id)
}

func join(parts ...string) string {
	out := parts[:0:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, ".")
}
