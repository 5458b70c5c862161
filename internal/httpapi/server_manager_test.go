package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"modelyaml/internal/manager"
	"modelyaml/internal/registry"
	"modelyaml/pkg/types"
)

const baseDef = `{
  "model": "qwen/qwen3-8b-base",
  "base": [
    {"key": "qwen/qwen3-8b-gguf", "sources": [{"type": "huggingface", "user": "qwen", "repo": "Qwen3-8B-GGUF", "minMemoryUsageBytes": 5000000000}]},
    {"key": "qwen/qwen3-8b-mlx", "sources": [{"type": "huggingface", "user": "mlx-community", "repo": "Qwen3-8B-4bit", "minMemoryUsageBytes": 4600000000}]}
  ]
}`

const virtualDef = `{
  "model": "qwen/qwen3-8b",
  "base": "qwen/qwen3-8b-base",
  "customFields": [{
    "key": "enableThinking", "type": "boolean", "defaultValue": true,
    "effects": [{"type": "setJinjaVariable", "variable": "enable_thinking"}]
  }]
}`

func newManagerMux(t *testing.T) (http.Handler, *manager.Manager) {
	t.Helper()
	store, err := registry.NewStore()
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	m := manager.New(store, []string{"gguf"}, 0, 0)
	return NewMux(m), m
}

func put(t *testing.T, h http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPut, "/models", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestManager_DefinitionLifecycle(t *testing.T) {
	h, m := newManagerMux(t)
	if w := put(t, h, virtualDef); w.Code != http.StatusBadRequest {
		t.Fatalf("unknown base should be rejected, got %d", w.Code)
	}
	if w := put(t, h, baseDef); w.Code != http.StatusOK {
		t.Fatalf("put base: %d %s", w.Code, w.Body.String())
	}
	w := put(t, h, virtualDef)
	if w.Code != http.StatusOK {
		t.Fatalf("put virtual: %d %s", w.Code, w.Body.String())
	}
	var pr types.PutModelResponse
	_ = json.Unmarshal(w.Body.Bytes(), &pr)
	if pr.Version != 2 || !m.Ready() {
		t.Fatalf("put response=%+v ready=%v", pr, m.Ready())
	}

	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/models/qwen/qwen3-8b", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("get: %d", w.Code)
	}
	var def types.ModelDefinition
	if err := json.Unmarshal(w.Body.Bytes(), &def); err != nil || def.Base.Ref != "qwen/qwen3-8b-base" {
		t.Fatalf("get body: %v %+v", err, def)
	}

	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/models/qwen/qwen3-8b", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("delete: %d", w.Code)
	}
	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/models/qwen/qwen3-8b", nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("get after delete: %d", w.Code)
	}
}

func TestManager_ResolveEndToEnd(t *testing.T) {
	h, _ := newManagerMux(t)
	put(t, h, baseDef)
	put(t, h, virtualDef)

	w := postJSON(h, "/resolve", `{"model":"qwen/qwen3-8b","capabilities":{"supportedFormats":["gguf","safetensors"],"availableMemoryBytes":4800000000},"overrides":{"enableThinking":false}}`)
	if w.Code != http.StatusOK {
		t.Fatalf("resolve: %d %s", w.Code, w.Body.String())
	}
	var rm types.ResolvedModel
	if err := json.Unmarshal(w.Body.Bytes(), &rm); err != nil {
		t.Fatalf("json: %v", err)
	}
	// format preference outranks the memory fit
	if rm.Source == nil || rm.Source.BaseKey != "qwen/qwen3-8b-gguf" || rm.Source.FitsMemory {
		t.Fatalf("source=%+v", rm.Source)
	}
	if rm.Bindings["enable_thinking"] != false {
		t.Fatalf("bindings=%v", rm.Bindings)
	}
	if len(rm.Path) != 2 || rm.Path[0] != "qwen/qwen3-8b-base" {
		t.Fatalf("path=%v", rm.Path)
	}

	w = postJSON(h, "/resolve", `{"model":"qwen/qwen3-8b","capabilities":{"supportedFormats":["safetensors"]}}`)
	rm = types.ResolvedModel{}
	_ = json.Unmarshal(w.Body.Bytes(), &rm)
	if rm.Source == nil || rm.Source.BaseKey != "qwen/qwen3-8b-mlx" || !rm.Source.FitsMemory {
		t.Fatalf("safetensors source=%+v", rm.Source)
	}
	if v, _ := rm.FieldValue("enableThinking"); v != true {
		t.Fatalf("default field value=%v", v)
	}

	w = postJSON(h, "/resolve", `{"model":"qwen/missing"}`)
	if w.Code != http.StatusNotFound {
		t.Fatalf("missing: %d", w.Code)
	}
}

func TestManager_ValidateAgainstStore(t *testing.T) {
	h, _ := newManagerMux(t)
	put(t, h, baseDef)
	w := postJSON(h, "/validate", `{"definition":{"model":"acme/clash","base":[{"key":"qwen/qwen3-8b-gguf","sources":[]}]}}`)
	var vr types.ValidateResponse
	_ = json.Unmarshal(w.Body.Bytes(), &vr)
	found := false
	for _, p := range vr.Problems {
		found = found || p.Path == "base.0.key"
	}
	if vr.Valid || !found {
		t.Fatalf("body=%s", w.Body.String())
	}
	w = postJSON(h, "/validate", `{"definition":{"model":"acme/ok","base":"qwen/qwen3-8b-base"}}`)
	_ = json.Unmarshal(w.Body.Bytes(), &vr)
	if !vr.Valid {
		t.Fatalf("body=%s", w.Body.String())
	}
}

func TestManager_StatusAfterResolve(t *testing.T) {
	h, _ := newManagerMux(t)
	put(t, h, baseDef)
	postJSON(h, "/resolve", `{"model":"qwen/qwen3-8b-base"}`)
	postJSON(h, "/resolve", `{"model":"qwen/qwen3-8b-base"}`)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/status", nil))
	var st types.StatusResponse
	_ = json.Unmarshal(w.Body.Bytes(), &st)
	if st.Definitions != 1 || st.CacheHits != 1 || st.CacheMisses != 1 || st.CacheEntries != 1 {
		t.Fatalf("status=%+v", st)
	}
}
