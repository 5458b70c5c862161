package types

// Capabilities describes the environment a model is resolved for.
type Capabilities struct {
	// Formats the installed engines can run, most preferred first.
	// example: ["gguf","safetensors"]
	SupportedFormats []string `json:"supportedFormats"`
	// Memory available for the model in bytes. Zero or less means unknown.
	// example: 8000000000
	AvailableMemoryBytes int64 `json:"availableMemoryBytes"`
	// Optional preferred parameter size or quantization, e.g. 8B or Q4_K_M.
	// example: 8B
	PreferredParamSize string `json:"preferredParamSize,omitempty"`
}

// Selection is the source and variant chosen for an environment.
type Selection struct {
	// Key of the concrete base (variant) the source belongs to.
	BaseKey string `json:"baseKey"`
	// Index of the source within the concrete base.
	SourceIndex int    `json:"sourceIndex"`
	Source      Source `json:"source"`
	// Effective format of the source.
	// example: gguf
	Format string `json:"format"`
	// Effective minimum memory usage in bytes.
	MinMemoryUsageBytes int64  `json:"minMemoryUsageBytes"`
	ParamsString        string `json:"paramsString,omitempty"`
	// Whether the variant fits the available memory budget.
	FitsMemory bool `json:"fitsMemory"`
}

// ResolvedField is a custom field with its effective value.
type ResolvedField struct {
	Key          string    `json:"key"`
	DisplayName  string    `json:"displayName,omitempty"`
	Description  string    `json:"description,omitempty"`
	Type         FieldType `json:"type"`
	Value        any       `json:"value"`
	DefaultValue any       `json:"defaultValue"`
	// Whether Value came from a user override.
	Overridden bool `json:"overridden"`
}

// DiagnosticKind classifies a recoverable problem found during resolution.
type DiagnosticKind string

const (
	DiagNoCompatibleSource   DiagnosticKind = "NoCompatibleSource"
	DiagInvalidFieldValue    DiagnosticKind = "InvalidFieldValue"
	DiagUnknownFieldOverride DiagnosticKind = "UnknownFieldOverride"
	DiagUnknownFieldType     DiagnosticKind = "UnknownFieldType"
	DiagUnknownSourceType    DiagnosticKind = "UnknownSourceType"
	DiagInvalidSource        DiagnosticKind = "InvalidSource"
	DiagUnknownEffectType    DiagnosticKind = "UnknownEffectType"
	DiagInvalidEffect        DiagnosticKind = "InvalidEffect"
	DiagUnknownConditionType DiagnosticKind = "UnknownConditionType"
	DiagInvalidConditionPath DiagnosticKind = "InvalidConditionPath"
)

// Diagnostic is a non-fatal finding attached to a resolution result.
type Diagnostic struct {
	Kind    DiagnosticKind `json:"kind"`
	Key     string         `json:"key,omitempty"`
	Message string         `json:"message"`
}

// ResolvedModel is the fully resolved configuration of one model for one
// environment. It is built fresh per resolution and never mutated afterwards.
type ResolvedModel struct {
	// example: qwen/qwen3-8b
	Model string `json:"model"`
	// Ancestry from the terminal concrete definition (first) to Model (last).
	Path     []string          `json:"path"`
	Metadata MetadataOverrides `json:"metadata"`
	Config   ConfigFieldSet    `json:"config"`
	// Nil when no source is compatible with the environment.
	Source       *Selection      `json:"source"`
	CustomFields []ResolvedField `json:"customFields"`
	// Derived effect outputs, e.g. template variables.
	Bindings    map[string]any `json:"bindings"`
	Suggestions []Suggestion   `json:"suggestions"`
	Diagnostics []Diagnostic   `json:"diagnostics"`
}

// HasDiagnostic reports whether a diagnostic of the given kind was recorded.
func (r *ResolvedModel) HasDiagnostic(kind DiagnosticKind) bool {
	for _, d := range r.Diagnostics {
		if d.Kind == kind {
			return true
		}
	}
	return false
}

// FieldValue returns the effective value of a custom field.
func (r *ResolvedModel) FieldValue(key string) (any, bool) {
	for _, f := range r.CustomFields {
		if f.Key == key {
			return f.Value, true
		}
	}
	return nil, false
}
