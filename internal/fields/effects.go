package fields

import (
	"fmt"

	"github.com/mitchellh/mapstructure"

	"modelyaml/pkg/types"
)

// TypeSetJinjaVariable binds the field value to a prompt template variable.
const TypeSetJinjaVariable = "setJinjaVariable"

// Bindings is the derived variable namespace of one resolution.
type Bindings map[string]any

// Effect is a decoded effect.
type Effect interface {
	Apply(b Bindings, value any)
}

// SetJinjaVariable writes Variable = value into the bindings.
type SetJinjaVariable struct {
	Variable string `mapstructure:"variable"`
}

func (e SetJinjaVariable) Apply(b Bindings, value any) { b[e.Variable] = value }

// UnknownEffect is an effect type this version does not understand. Applying it does nothing.
type UnknownEffect struct {
	Type    string
	Payload map[string]any
}

func (UnknownEffect) Apply(Bindings, any) {}

// DecodeEffect turns a raw effect into its typed form.
func DecodeEffect(e types.Effect) (Effect, error) {
	switch e.Type {
	case TypeSetJinjaVariable:
		var v SetJinjaVariable
		if err := mapstructure.Decode(e.Payload, &v); err != nil {
			return nil, err
		}
		if v.Variable == "" {
			return nil, fmt.Errorf("%s effect requires variable", TypeSetJinjaVariable)
		}
		return v, nil
	default:
		return UnknownEffect{Type: e.Type, Payload: e.Payload}, nil
	}
}
