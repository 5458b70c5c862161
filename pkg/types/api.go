package types

// ResolveRequest is the payload of POST /resolve.
type ResolveRequest struct {
	// Model id to resolve.
	// example: qwen/qwen3-8b
	Model string `json:"model" example:"qwen/qwen3-8b"`
	// Runtime capabilities. When omitted the server defaults are used.
	Capabilities *Capabilities `json:"capabilities,omitempty"`
	// Custom field overrides keyed by field key.
	// example: {"enableThinking":false}
	Overrides map[string]any `json:"overrides,omitempty"`
}

// BatchResolveRequest is the payload of POST /resolve/batch.
type BatchResolveRequest struct {
	Requests []ResolveRequest `json:"requests"`
}

// BatchResolveItem is one entry of a batch response; exactly one of Result and Error is set.
type BatchResolveItem struct {
	Result *ResolvedModel `json:"result,omitempty"`
	Error  *ErrorResponse `json:"error,omitempty"`
}

// BatchResolveResponse is returned by POST /resolve/batch, in request order.
type BatchResolveResponse struct {
	Results []BatchResolveItem `json:"results"`
}

// ValidateRequest is the payload of POST /validate.
type ValidateRequest struct {
	Definition ModelDefinition `json:"definition"`
}

// Problem is one structural error found in a definition.
type Problem struct {
	// JSON-path-like location of the problem.
	// example: customFields.0.defaultValue
	Path string `json:"path" example:"customFields.0.defaultValue"`
	// example: default value must be a boolean
	Message string `json:"message" example:"default value must be a boolean"`
}

// ValidateResponse is returned by POST /validate and by failed PUT /models.
type ValidateResponse struct {
	Valid    bool      `json:"valid"`
	Problems []Problem `json:"problems"`
}

// ModelSummary is one entry of GET /models.
type ModelSummary struct {
	// example: qwen/qwen3-8b
	ID string `json:"id" example:"qwen/qwen3-8b"`
	// Referenced base model id, empty for concrete definitions.
	// example: qwen/qwen3
	Base string `json:"base,omitempty" example:"qwen/qwen3"`
	// Keys of the concrete bases, empty for virtual definitions.
	Concrete []string `json:"concrete,omitempty"`
}

// ModelsResponse wraps the list of definitions returned by GET /models.
type ModelsResponse struct {
	Models []ModelSummary `json:"models"`
}

// PutModelResponse is returned by PUT /models.
type PutModelResponse struct {
	// example: qwen/qwen3-8b
	Model string `json:"model"`
	// Store version after the write.
	// example: 7
	Version uint64 `json:"version"`
}

// ErrorResponse is a consistent JSON error payload.
type ErrorResponse struct {
	// Error message.
	// example: model not found: qwen/qwen3-8b
	Error string `json:"error" example:"model not found: qwen/qwen3-8b"`
	// HTTP status code.
	// example: 404
	Code int `json:"code" example:"404"`
	// Structural error kind, when applicable.
	// example: CycleDetected
	Kind string `json:"kind,omitempty" example:"CycleDetected"`
}

// StatusResponse is returned by GET /status.
type StatusResponse struct {
	// Number of loaded definitions.
	// example: 12
	Definitions int `json:"definitions" example:"12"`
	// Definition store version; increments on every write.
	// example: 3
	StoreVersion uint64 `json:"store_version" example:"3"`
	// Memoized resolutions currently cached.
	// example: 4
	CacheEntries int `json:"cache_entries" example:"4"`
	// Maximum memoized resolutions.
	// example: 256
	CacheCapacity int `json:"cache_capacity" example:"256"`
	// example: 40
	CacheHits uint64 `json:"cache_hits" example:"40"`
	// example: 9
	CacheMisses uint64 `json:"cache_misses" example:"9"`
	// Total cache entries evicted to stay within capacity.
	// example: 1
	EvictionsTotal uint64 `json:"evictions_total" example:"1"`
	// Total cache entries dropped because a definition changed.
	// example: 2
	InvalidationsTotal uint64 `json:"invalidations_total" example:"2"`
	// Total resolutions computed (cache misses that ran the engine).
	// example: 9
	ResolutionsTotal uint64 `json:"resolutions_total" example:"9"`
	// Last structural error observed (if any).
	LastError string `json:"last_error,omitempty"`
	// Uptime of the server in seconds.
	// example: 3600
	UptimeSeconds int64 `json:"uptime_seconds" example:"3600"`
	// Server time in unix seconds.
	// example: 1700000000
	ServerTimeUnix int64 `json:"server_time_unix" example:"1700000000"`
}
