package resolver

import (
	"modelyaml/pkg/types"
)

// defMap is a minimal Definitions implementation for tests.
type defMap map[string]*types.ModelDefinition

func (m defMap) Get(id string) (*types.ModelDefinition, bool) {
	d, ok := m[id]
	return d, ok
}

func newDefs(defs ...types.ModelDefinition) defMap {
	m := defMap{}
	for i := range defs {
		d := defs[i]
		m[d.Model] = &d
	}
	return m
}

func virtual(id, base string) types.ModelDefinition {
	return types.ModelDefinition{Model: id, Base: types.Reference(base)}
}

func hfSource(user, repo, format string, minMem int64) types.Source {
	return types.NewSource("huggingface", map[string]any{
		"user":                user,
		"repo":                repo,
		"format":              format,
		"minMemoryUsageBytes": minMem,
	})
}

func concrete(id string, bases ...types.ConcreteBase) types.ModelDefinition {
	return types.ModelDefinition{Model: id, Base: types.Concrete(bases...)}
}

// qwenFixture is a small three level chain:
// lmstudio/qwen3-8b -> qwen/qwen3-8b -> qwen/qwen3-8b-base (concrete).
func qwenFixture() defMap {
	root := concrete("qwen/qwen3-8b-base",
		types.ConcreteBase{Key: "lmstudio-community/Qwen3-8B-GGUF", Sources: []types.Source{
			hfSource("lmstudio-community", "Qwen3-8B-GGUF", "gguf", 5_000_000_000),
		}},
		types.ConcreteBase{Key: "lmstudio-community/Qwen3-8B-MLX-4bit", Sources: []types.Source{
			hfSource("lmstudio-community", "Qwen3-8B-MLX-4bit", "safetensors", 4_600_000_000),
		}},
	)
	root.MetadataOverrides = types.MetadataOverrides{
		Domain:         types.Some("llm"),
		Architectures:  types.Some([]string{"qwen3"}),
		ContextLengths: types.Some([]int{4096}),
		Vision:         types.Some(types.TriFalse),
	}
	root.Config = types.ConfigFieldSet{
		"llm.prediction.temperature":  types.Scalar(0.8),
		"llm.prediction.topKSampling": types.Scalar(40),
	}

	mid := virtual("qwen/qwen3-8b", "qwen/qwen3-8b-base")
	mid.MetadataOverrides = types.MetadataOverrides{
		ContextLengths:    types.Some([]int{131072}),
		TrainedForToolUse: types.Some(types.TriTrue),
	}
	mid.Config = types.ConfigFieldSet{
		"llm.prediction.temperature":  types.Scalar(0.6),
		"llm.prediction.minPSampling": types.Toggle(true, 0.0),
	}
	mid.CustomFields = []types.CustomField{{
		Key:          "enableThinking",
		DisplayName:  "Enable Thinking",
		Type:         types.FieldBoolean,
		DefaultValue: true,
		Effects: []types.Effect{
			types.NewEffect("setJinjaVariable", map[string]any{"variable": "enable_thinking"}),
		},
	}}
	mid.Suggestions = []types.Suggestion{{
		Message: "Thinking mode works best with these sampling settings",
		Conditions: []types.Condition{
			{Type: "equals", Key: "$.enableThinking", Value: true},
		},
		Fields: []types.FieldValue{
			{Key: "llm.prediction.temperature", Value: types.Scalar(0.6)},
			{Key: "llm.prediction.topPSampling", Value: types.Toggle(true, 0.95)},
		},
	}, {
		Message: "Non-thinking mode prefers a higher temperature",
		Conditions: []types.Condition{
			{Type: "equals", Key: "$.enableThinking", Value: false},
		},
		Fields: []types.FieldValue{
			{Key: "llm.prediction.temperature", Value: types.Scalar(0.7)},
		},
	}}

	leaf := virtual("lmstudio/qwen3-8b", "qwen/qwen3-8b")
	leaf.Config = types.ConfigFieldSet{"llm.load.contextLength": types.Scalar(8192)}
	return newDefs(root, mid, leaf)
}
