package selector

import (
	"fmt"
	"strings"

	"github.com/mitchellh/mapstructure"

	"modelyaml/pkg/types"
)

// Known source types.
const (
	TypeHuggingFace = "huggingface"
	TypeModelScope  = "modelscope"
	TypeURL         = "url"
)

// Hints are the optional selection fields any source may declare.
type Hints struct {
	Format              string `mapstructure:"format"`
	MinMemoryUsageBytes int64  `mapstructure:"minMemoryUsageBytes"`
	ParamsString        string `mapstructure:"paramsString"`
	Quantization        string `mapstructure:"quantization"`
}

// Variant is a decoded source.
type Variant interface {
	Kind() string
	// Identity is a human readable origin, used for format inference.
	Identity() string
	SelectionHints() Hints
}

// RepoSource is a user/repo hosted source (huggingface, modelscope).
type RepoSource struct {
	Hints `mapstructure:",squash"`
	Type  string `mapstructure:"type"`
	User  string `mapstructure:"user"`
	Repo  string `mapstructure:"repo"`
}

func (s RepoSource) Kind() string          { return s.Type }
func (s RepoSource) Identity() string      { return s.User + "/" + s.Repo }
func (s RepoSource) SelectionHints() Hints { return s.Hints }

// URLSource is a direct download location.
type URLSource struct {
	Hints `mapstructure:",squash"`
	URL   string `mapstructure:"url"`
}

func (s URLSource) Kind() string          { return TypeURL }
func (s URLSource) Identity() string      { return s.URL }
func (s URLSource) SelectionHints() Hints { return s.Hints }

// UnknownSource keeps the raw payload of a type this version does not understand.
type UnknownSource struct {
	Type    string
	Payload map[string]any
}

func (s UnknownSource) Kind() string          { return s.Type }
func (s UnknownSource) Identity() string      { return "" }
func (s UnknownSource) SelectionHints() Hints { return Hints{} }

// Decode turns a raw source into its typed variant. Unknown types decode to
// UnknownSource without error; malformed known types return an error.
func Decode(src types.Source) (Variant, error) {
	switch src.Type {
	case TypeHuggingFace, TypeModelScope:
		var v RepoSource
		if err := decodePayload(src.Payload, &v); err != nil {
			return nil, err
		}
		v.Type = src.Type
		if v.User == "" || v.Repo == "" {
			return nil, fmt.Errorf("%s source requires user and repo", src.Type)
		}
		return v, nil
	case TypeURL:
		var v URLSource
		if err := decodePayload(src.Payload, &v); err != nil {
			return nil, err
		}
		if v.URL == "" {
			return nil, fmt.Errorf("url source requires url")
		}
		return v, nil
	default:
		return UnknownSource{Type: src.Type, Payload: src.Payload}, nil
	}
}

func decodePayload(payload map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return err
	}
	return dec.Decode(payload)
}

// inferFormat guesses the artifact format from naming conventions.
func inferFormat(names ...string) string {
	for _, n := range names {
		l := strings.ToLower(n)
		switch {
		case strings.HasSuffix(l, ".gguf"), strings.Contains(l, "gguf"):
			return "gguf"
		case strings.HasSuffix(l, ".safetensors"), strings.Contains(l, "safetensors"), strings.Contains(l, "mlx"):
			return "safetensors"
		}
	}
	return ""
}
