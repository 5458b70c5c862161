package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"modelyaml/internal/config"
	"modelyaml/pkg/types"
)

const qwenDefs = `model: qwen/qwen3-8b-base
base:
  - key: qwen/qwen3-8b-gguf
    sources:
      - type: huggingface
        user: qwen
        repo: Qwen3-8B-GGUF
        minMemoryUsageBytes: 5000000000
  - key: qwen/qwen3-8b-mlx
    sources:
      - type: huggingface
        user: mlx-community
        repo: Qwen3-8B-4bit
        minMemoryUsageBytes: 4600000000
---
model: qwen/qwen3-8b
base: qwen/qwen3-8b-base
config:
  operation:
    fields:
      - key: llm.prediction.temperature
        value: 0.6
customFields:
  - key: enableThinking
    displayName: Enable Thinking
    type: boolean
    defaultValue: true
    effects:
      - type: setJinjaVariable
        variable: enable_thinking
  - key: systemPrompt
    type: string
    defaultValue: ""
suggestions:
  - message: Use a lower temperature without thinking
    conditions:
      - type: equals
        key: $.enableThinking
        value: false
    fields:
      - key: llm.prediction.temperature
        value: 0.7
`

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return p
}

func defsDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	writeFile(t, dir, "qwen.yaml", qwenDefs)
	return dir
}

// run executes the CLI with a clean MODELYAML_* environment.
func run(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	for _, k := range []string{"MODELYAML_DEFINITIONS_DIR", "MODELYAML_SUPPORTED_FORMATS", "MODELYAML_MEMORY_BUDGET_MB", "MODELYAML_LOG_LEVEL", "MODELYAML_LOG_FORMAT"} {
		t.Setenv(k, "")
	}
	var out, errOut bytes.Buffer
	code := Execute(append([]string{"--env-file", ""}, args...), &out, &errOut)
	return code, out.String(), errOut.String()
}

func TestResolveJSON(t *testing.T) {
	dir := defsDir(t)
	code, out, errOut := run(t, "resolve", "qwen/qwen3-8b", "--definitions-dir", dir, "--log-level", "error", "--format", "gguf")
	if code != 0 {
		t.Fatalf("exit=%d stderr=%s", code, errOut)
	}
	var rm types.ResolvedModel
	if err := json.Unmarshal([]byte(out), &rm); err != nil {
		t.Fatalf("json: %v\n%s", err, out)
	}
	if rm.Source == nil || rm.Source.BaseKey != "qwen/qwen3-8b-gguf" {
		t.Fatalf("source=%+v", rm.Source)
	}
	if len(rm.Suggestions) != 0 || rm.Bindings["enable_thinking"] != true {
		t.Fatalf("defaults: %+v %+v", rm.Suggestions, rm.Bindings)
	}
}

func TestResolveOverridesAndYAML(t *testing.T) {
	dir := defsDir(t)
	code, out, errOut := run(t, "resolve", "qwen/qwen3-8b", "--definitions-dir", dir, "--log-level", "error",
		"--format", "safetensors", "--format", "gguf", "--memory", "4.8GB", "--set", "enableThinking=false", "-o", "yaml")
	if code != 0 {
		t.Fatalf("exit=%d stderr=%s", code, errOut)
	}
	for _, want := range []string{"baseKey: qwen/qwen3-8b-mlx", "enable_thinking: false", "Use a lower temperature without thinking"} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in:\n%s", want, out)
		}
	}
}

func TestResolveTable(t *testing.T) {
	dir := defsDir(t)
	code, out, errOut := run(t, "resolve", "qwen/qwen3-8b", "--definitions-dir", dir, "--log-level", "error", "-o", "table", "--memory", "1GB")
	if code != 0 {
		t.Fatalf("exit=%d stderr=%s", code, errOut)
	}
	for _, want := range []string{"qwen/qwen3-8b-base -> qwen/qwen3-8b", "FIELD enableThinking", "true (default)", "exceeds memory", "CONFIG llm.prediction.temperature"} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in:\n%s", want, out)
		}
	}
}

func TestResolveErrors(t *testing.T) {
	dir := defsDir(t)
	cases := []struct {
		args []string
		want string
	}{
		{[]string{"resolve", "qwen/missing"}, "model not found"},
		{[]string{"resolve", "qwen/qwen3-8b", "--memory", "lots"}, "invalid --memory"},
		{[]string{"resolve", "qwen/qwen3-8b", "--set", "novalue"}, "invalid --set"},
		{[]string{"resolve", "qwen/qwen3-8b", "-o", "xml"}, "invalid output"},
		{[]string{"resolve"}, "accepts 1 arg"},
	}
	for _, c := range cases {
		args := append(c.args, "--definitions-dir", dir, "--log-level", "error")
		code, _, errOut := run(t, args...)
		if code != 1 || !strings.Contains(errOut, c.want) {
			t.Fatalf("%v: exit=%d stderr=%q", c.args, code, errOut)
		}
	}
}

func TestResolveCycleExitsNonZero(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "loop.yaml", "model: a/a\nbase: b/b\n---\nmodel: b/b\nbase: a/a\n")
	code, _, errOut := run(t, "resolve", "a/a", "--definitions-dir", dir, "--log-level", "error")
	if code != 1 || !strings.Contains(errOut, "cycle detected") {
		t.Fatalf("exit=%d stderr=%q", code, errOut)
	}
}

func TestList(t *testing.T) {
	dir := defsDir(t)
	code, out, errOut := run(t, "list", "--definitions-dir", dir, "--log-level", "error")
	if code != 0 {
		t.Fatalf("exit=%d stderr=%s", code, errOut)
	}
	if !strings.Contains(out, "NAME") || !strings.Contains(out, "qwen/qwen3-8b-gguf, qwen/qwen3-8b-mlx") {
		t.Fatalf("table:\n%s", out)
	}

	code, out, _ = run(t, "list", "qwen/qwen3-8b-b", "-o", "json", "--definitions-dir", dir, "--log-level", "error")
	var resp types.ModelsResponse
	if code != 0 || json.Unmarshal([]byte(out), &resp) != nil || len(resp.Models) != 1 {
		t.Fatalf("exit=%d out=%s", code, out)
	}
}

func TestListMissingDir(t *testing.T) {
	code, _, errOut := run(t, "list", "--definitions-dir", filepath.Join(t.TempDir(), "nope"), "--log-level", "error")
	if code != 1 || errOut == "" {
		t.Fatalf("exit=%d stderr=%q", code, errOut)
	}
}

func TestValidate(t *testing.T) {
	dir := t.TempDir()
	good := writeFile(t, dir, "good.yaml", qwenDefs)
	code, out, errOut := run(t, "validate", good, "--standalone", "--log-level", "error")
	if code != 0 {
		t.Fatalf("exit=%d out=%s stderr=%s", code, out, errOut)
	}
	if !strings.Contains(out, "qwen/qwen3-8b: ok") {
		t.Fatalf("out=%s", out)
	}

	bad := writeFile(t, dir, "bad.json", `{"model":"acme/bad","base":"acme/missing","customFields":[{"key":"x","type":"boolean","defaultValue":"yes"}]}`)
	code, out, _ = run(t, "validate", good, bad, "--standalone", "--log-level", "error")
	if code != 1 {
		t.Fatalf("expected exit 1, out=%s", out)
	}
	for _, want := range []string{"acme/bad: base:", "acme/bad: customFields.0.defaultValue:"} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in:\n%s", want, out)
		}
	}
}

func TestValidateUsesDefinitionsDir(t *testing.T) {
	dir := defsDir(t)
	other := t.TempDir()
	child := writeFile(t, other, "child.toml", "model = \"acme/child\"\nbase = \"qwen/qwen3-8b\"\n")
	if code, out, _ := run(t, "validate", child, "--definitions-dir", dir, "--log-level", "error"); code != 0 {
		t.Fatalf("expected the base to be found in the definitions dir: %s", out)
	}
	if code, _, _ := run(t, "validate", child, "--standalone", "--log-level", "error"); code != 1 {
		t.Fatalf("standalone validation should not know the base")
	}
}

func TestValidateUnparsableFile(t *testing.T) {
	p := writeFile(t, t.TempDir(), "broken.yaml", "model: [\n")
	code, out, _ := run(t, "validate", p, "--standalone", "--log-level", "error")
	if code != 1 || !strings.Contains(out, "broken.yaml:") {
		t.Fatalf("exit=%d out=%s", code, out)
	}
}

func TestConfigPrecedence(t *testing.T) {
	dir := defsDir(t)
	cfgPath := writeFile(t, t.TempDir(), "cfg.yaml", fmt.Sprintf("definitions_dir: %s\nsupported_formats: [safetensors]\nlog_level: error\n", dir))
	code, out, errOut := run(t, "--config", cfgPath, "resolve", "qwen/qwen3-8b")
	if code != 0 {
		t.Fatalf("exit=%d stderr=%s", code, errOut)
	}
	var rm types.ResolvedModel
	_ = json.Unmarshal([]byte(out), &rm)
	if rm.Source == nil || rm.Source.Format != "safetensors" {
		t.Fatalf("config formats not applied: %+v", rm.Source)
	}
	// flags win over the file
	code, _, _ = run(t, "--config", cfgPath, "--definitions-dir", t.TempDir(), "resolve", "qwen/qwen3-8b")
	if code != 1 {
		t.Fatalf("flag should override definitions_dir from the file")
	}
}

func TestEnvFile(t *testing.T) {
	dir := defsDir(t)
	envPath := writeFile(t, t.TempDir(), ".env", "MODELYAML_SUPPORTED_FORMATS=safetensors\n")
	t.Setenv("MODELYAML_SUPPORTED_FORMATS", "")
	os.Unsetenv("MODELYAML_SUPPORTED_FORMATS")
	var out, errOut bytes.Buffer
	code := Execute([]string{"--env-file", envPath, "resolve", "qwen/qwen3-8b", "--definitions-dir", dir, "--log-level", "error"}, &out, &errOut)
	if code != 0 {
		t.Fatalf("exit=%d stderr=%s", code, errOut.String())
	}
	var rm types.ResolvedModel
	_ = json.Unmarshal(out.Bytes(), &rm)
	if rm.Source == nil || rm.Source.Format != "safetensors" {
		t.Fatalf(".env not applied: %+v", rm.Source)
	}
}

func TestInvalidLogSettings(t *testing.T) {
	if code, _, errOut := run(t, "list", "--log-level", "loud"); code != 1 || !strings.Contains(errOut, "invalid log level") {
		t.Fatalf("exit=%d stderr=%q", code, errOut)
	}
	if code, _, errOut := run(t, "list", "--log-format", "xml"); code != 1 || !strings.Contains(errOut, "invalid log format") {
		t.Fatalf("exit=%d stderr=%q", code, errOut)
	}
}

func TestCompletion(t *testing.T) {
	code, out, _ := run(t, "completion", "bash")
	if code != 0 || !strings.Contains(out, "modelyaml") {
		t.Fatalf("exit=%d", code)
	}
}

func TestParseSets(t *testing.T) {
	fieldTypes := map[string]types.FieldType{"systemPrompt": types.FieldString, "enableThinking": types.FieldBoolean}
	got, err := parseSets([]string{"enableThinking=false", "mode=fast", "empty=", "flag=true", "short=f", "num=1", "systemPrompt=true"}, fieldTypes)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	want := map[string]any{
		"enableThinking": false,
		"mode":           "fast",
		"empty":          "",
		"flag":           true,
		"short":          "f",
		"num":            "1",
		"systemPrompt":   "true",
	}
	for k, v := range want {
		if got[k] != v {
			t.Fatalf("%s: got %#v want %#v", k, got[k], v)
		}
	}
	if m, err := parseSets(nil, nil); err != nil || m != nil {
		t.Fatalf("nil input: %v %v", m, err)
	}
	if _, err := parseSets([]string{"=x"}, nil); err == nil {
		t.Fatalf("expected error for empty key")
	}
}

func TestResolveSetStringField(t *testing.T) {
	dir := defsDir(t)
	code, out, errOut := run(t, "resolve", "qwen/qwen3-8b", "--definitions-dir", dir, "--log-level", "error", "--set", "systemPrompt=1")
	if code != 0 {
		t.Fatalf("exit=%d stderr=%s", code, errOut)
	}
	var rm types.ResolvedModel
	if err := json.Unmarshal([]byte(out), &rm); err != nil {
		t.Fatalf("json: %v", err)
	}
	if rm.HasDiagnostic(types.DiagInvalidFieldValue) {
		t.Fatalf("diagnostics=%+v", rm.Diagnostics)
	}
	for _, f := range rm.CustomFields {
		if f.Key == "systemPrompt" && (f.Value != "1" || !f.Overridden) {
			t.Fatalf("systemPrompt=%+v", f)
		}
	}
}

func TestServe(t *testing.T) {
	s := newSettings(io.Discard, io.Discard)
	s.cfg = config.Default()
	s.cfg.DefinitionsDir = defsDir(t)
	s.cfg.SupportedFormats = []string{"gguf"}
	s.cfg.MaxBatchSize = 1
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- serve(ctx, s, ln) }()

	base := "http://" + ln.Addr().String()
	var resp *http.Response
	deadline := time.Now().Add(5 * time.Second)
	for {
		resp, err = http.Get(base + "/readyz")
		if err == nil && resp.StatusCode == http.StatusOK {
			resp.Body.Close()
			break
		}
		if resp != nil {
			resp.Body.Close()
		}
		if time.Now().After(deadline) {
			t.Fatalf("server not ready: %v", err)
		}
		time.Sleep(20 * time.Millisecond)
	}

	resp, err = http.Post(base+"/resolve", "application/json", strings.NewReader(`{"model":"qwen/qwen3-8b"}`))
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	var rm types.ResolvedModel
	_ = json.NewDecoder(resp.Body).Decode(&rm)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || rm.Source == nil || rm.Source.Format != "gguf" {
		t.Fatalf("status=%d source=%+v", resp.StatusCode, rm.Source)
	}

	resp, err = http.Post(base+"/resolve/batch", "application/json",
		strings.NewReader(`{"requests":[{"model":"qwen/qwen3-8b"},{"model":"qwen/qwen3-8b-base"}]}`))
	if err != nil {
		t.Fatalf("batch: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("batch over the configured limit: status=%d", resp.StatusCode)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("serve: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("server did not shut down")
	}
}

func TestServeWithoutDefinitionsDir(t *testing.T) {
	s := newSettings(io.Discard, io.Discard)
	s.cfg = config.Default()
	s.cfg.DefinitionsDir = filepath.Join(t.TempDir(), "missing")
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- serve(ctx, s, ln) }()
	deadline := time.Now().Add(5 * time.Second)
	for {
		resp, err := http.Get("http://" + ln.Addr().String() + "/readyz")
		if err == nil {
			code := resp.StatusCode
			resp.Body.Close()
			if code != http.StatusOK {
				t.Fatalf("an empty store should still be ready, got %d", code)
			}
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("server not reachable: %v", err)
		}
		time.Sleep(20 * time.Millisecond)
	}
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("serve: %v", err)
	}
}
