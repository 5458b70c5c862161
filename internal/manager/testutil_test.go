package manager

import (
	"testing"

	"modelyaml/internal/registry"
	"modelyaml/pkg/types"
)

// fixtureDefs is a concrete base with two variants and two virtual models on top.
func fixtureDefs() []types.ModelDefinition {
	root := types.ModelDefinition{
		Model: "qwen/qwen3-8b-base",
		Base: types.Concrete(
			types.ConcreteBase{Key: "qwen/qwen3-8b-gguf", Sources: []types.Source{
				types.NewSource("huggingface", map[string]any{"user": "qwen", "repo": "Qwen3-8B-GGUF", "minMemoryUsageBytes": 5 << 30}),
			}},
			types.ConcreteBase{Key: "qwen/qwen3-8b-mlx", Sources: []types.Source{
				types.NewSource("huggingface", map[string]any{"user": "mlx-community", "repo": "Qwen3-8B-4bit", "minMemoryUsageBytes": 4 << 30}),
			}},
		),
		Config: types.ConfigFieldSet{"llm.prediction.temperature": types.Scalar(0.8)},
	}
	mid := types.ModelDefinition{
		Model:  "qwen/qwen3-8b",
		Base:   types.Reference("qwen/qwen3-8b-base"),
		Config: types.ConfigFieldSet{"llm.prediction.temperature": types.Scalar(0.6)},
		CustomFields: []types.CustomField{{
			Key: "enableThinking", Type: types.FieldBoolean, DefaultValue: true,
			Effects: []types.Effect{types.NewEffect("setJinjaVariable", map[string]any{"variable": "enable_thinking"})},
		}},
	}
	other := types.ModelDefinition{Model: "lmstudio/qwen3-8b", Base: types.Reference("qwen/qwen3-8b")}
	return []types.ModelDefinition{root, mid, other}
}

func newTestManager(t *testing.T, cfg ManagerConfig) (*Manager, *MemoryPublisher) {
	t.Helper()
	if cfg.Store == nil {
		store, err := registry.NewStore(fixtureDefs()...)
		if err != nil {
			t.Fatalf("store: %v", err)
		}
		cfg.Store = store
	}
	if cfg.SupportedFormats == nil {
		cfg.SupportedFormats = []string{"gguf"}
	}
	pub := NewMemoryPublisher()
	cfg.Publisher = pub
	return NewWithConfig(cfg), pub
}

func req(model string) types.ResolveRequest {
	return types.ResolveRequest{Model: model}
}
