package blackbox

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"
)

const baseYAML = `model: qwen/qwen3-8b-base
base:
  - key: qwen/qwen3-8b-gguf
    sources:
      - type: huggingface
        user: qwen
        repo: Qwen3-8B-GGUF
        minMemoryUsageBytes: 5000000000
`

const virtualJSON = `{
  "model": "qwen/qwen3-8b",
  "base": "qwen/qwen3-8b-base",
  "customFields": [{
    "key": "enableThinking", "type": "boolean", "defaultValue": true,
    "effects": [{"type": "setJinjaVariable", "variable": "enable_thinking"}]
  }]
}`

// findFreePort picks an available TCP port on localhost.
func findFreePort(t *testing.T) (int, func()) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	cleanup := func() { _ = ln.Close() }
	return ln.Addr().(*net.TCPAddr).Port, cleanup
}

func projectRootFromThisFile(t *testing.T) string {
	t.Helper()
	_, thisFile, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatal("runtime.Caller failed")
	}
	// this file: <root>/tests/blackbox/blackbox_test.go
	return filepath.Dir(filepath.Dir(filepath.Dir(thisFile)))
}

func buildBinary(t *testing.T) string {
	t.Helper()
	root := projectRootFromThisFile(t)
	binPath := filepath.Join(t.TempDir(), "modelyaml")
	cmd := exec.Command("go", "build", "-o", binPath, "./cmd/modelyaml")
	cmd.Dir = root
	cmd.Env = append(os.Environ(), "CGO_ENABLED=0")
	out, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("go build failed: %v\n%s", err, string(out))
	}
	return binPath
}

func createDefinitionsDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	writeDef(t, dir, "base.yaml", baseYAML)
	return dir
}

func writeDef(t *testing.T, dir, name, body string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

type serverProc struct {
	cmd  *exec.Cmd
	base string // http base URL, e.g. http://127.0.0.1:18080
}

func startServer(t *testing.T, bin, defsDir string, port int, extra ...string) *serverProc {
	t.Helper()
	base := fmt.Sprintf("http://127.0.0.1:%d", port)
	args := append([]string{
		"serve",
		"--env-file", "",
		"--addr", fmt.Sprintf("127.0.0.1:%d", port),
		"--definitions-dir", defsDir,
		"--log-level", "warn",
	}, extra...)
	cmd := exec.Command(bin, args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Start(); err != nil {
		t.Fatalf("start server: %v", err)
	}
	deadline := time.Now().Add(5 * time.Second)
	for {
		resp, err := http.Get(base + "/readyz")
		if err == nil {
			_ = resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				break
			}
		}
		if time.Now().After(deadline) {
			_ = cmd.Process.Kill()
			t.Fatalf("server did not become ready in time")
		}
		time.Sleep(50 * time.Millisecond)
	}
	t.Cleanup(func() { _ = cmd.Process.Kill(); _ = cmd.Wait() })
	return &serverProc{cmd: cmd, base: base}
}

func do(t *testing.T, method, url string, payload []byte) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequestWithContext(context.Background(), method, url, bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("new req: %v", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	b, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	return resp, b
}

func listIDs(t *testing.T, base string) []string {
	t.Helper()
	resp, body := do(t, http.MethodGet, base+"/models", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("/models %d %s", resp.StatusCode, string(body))
	}
	var out struct {
		Models []struct {
			ID string `json:"id"`
		} `json:"models"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		t.Fatalf("/models json: %v body=%s", err, string(body))
	}
	ids := make([]string, len(out.Models))
	for i, m := range out.Models {
		ids[i] = m.ID
	}
	return ids
}

func TestBlackbox_Flow(t *testing.T) {
	bin := buildBinary(t)
	defsDir := createDefinitionsDir(t)
	port, release := findFreePort(t)
	release()
	sp := startServer(t, bin, defsDir, port)

	resp, body := do(t, http.MethodGet, sp.base+"/healthz", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("/healthz %d %s", resp.StatusCode, string(body))
	}
	if ids := listIDs(t, sp.base); len(ids) != 1 || ids[0] != "qwen/qwen3-8b-base" {
		t.Fatalf("ids=%v", ids)
	}

	resp, body = do(t, http.MethodPut, sp.base+"/models", []byte(virtualJSON))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("PUT /models %d %s", resp.StatusCode, string(body))
	}

	resp, body = do(t, http.MethodPost, sp.base+"/resolve", []byte(`{"model":"qwen/qwen3-8b","overrides":{"enableThinking":false}}`))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("/resolve %d %s", resp.StatusCode, string(body))
	}
	var rm struct {
		Path     []string       `json:"path"`
		Bindings map[string]any `json:"bindings"`
		Source   *struct {
			BaseKey string `json:"baseKey"`
			Format  string `json:"format"`
		} `json:"source"`
	}
	if err := json.Unmarshal(body, &rm); err != nil {
		t.Fatalf("/resolve json: %v", err)
	}
	if len(rm.Path) != 2 || rm.Source == nil || rm.Source.Format != "gguf" || rm.Bindings["enable_thinking"] != false {
		t.Fatalf("unexpected resolution: %s", string(body))
	}

	// second call is served from the memo cache
	do(t, http.MethodPost, sp.base+"/resolve", []byte(`{"model":"qwen/qwen3-8b","overrides":{"enableThinking":false}}`))
	resp, body = do(t, http.MethodGet, sp.base+"/status", nil)
	var status struct {
		Definitions int    `json:"definitions"`
		CacheHits   uint64 `json:"cache_hits"`
	}
	if err := json.Unmarshal(body, &status); err != nil || resp.StatusCode != http.StatusOK {
		t.Fatalf("/status %d %s", resp.StatusCode, string(body))
	}
	if status.Definitions != 2 || status.CacheHits != 1 {
		t.Fatalf("status=%+v", status)
	}

	resp, body = do(t, http.MethodGet, sp.base+"/metrics", nil)
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(body), "modelyaml_http_requests_total") {
		t.Fatalf("/metrics %d", resp.StatusCode)
	}
}

func TestBlackbox_Resolve_ModelNotFound_404(t *testing.T) {
	bin := buildBinary(t)
	port, release := findFreePort(t)
	release()
	sp := startServer(t, bin, createDefinitionsDir(t), port)

	resp, body := do(t, http.MethodPost, sp.base+"/resolve", []byte(`{"model":"acme/missing"}`))
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d, body=%s", resp.StatusCode, string(body))
	}
}

func TestBlackbox_WatchReload(t *testing.T) {
	bin := buildBinary(t)
	defsDir := createDefinitionsDir(t)
	port, release := findFreePort(t)
	release()
	sp := startServer(t, bin, defsDir, port, "--watch")

	writeDef(t, defsDir, "virtual.json", virtualJSON)
	deadline := time.Now().Add(5 * time.Second)
	for len(listIDs(t, sp.base)) != 2 {
		if time.Now().After(deadline) {
			t.Fatalf("new definition was not picked up")
		}
		time.Sleep(50 * time.Millisecond)
	}
}

func TestBlackbox_ValidateExitCode(t *testing.T) {
	bin := buildBinary(t)
	dir := t.TempDir()
	writeDef(t, dir, "orphan.json", virtualJSON)

	cmd := exec.Command(bin, "validate", "--env-file", "", "--standalone", filepath.Join(dir, "orphan.json"))
	out, err := cmd.CombinedOutput()
	var exitErr *exec.ExitError
	if err == nil || !errors.As(err, &exitErr) || exitErr.ExitCode() != 1 {
		t.Fatalf("expected exit code 1, err=%v out=%s", err, string(out))
	}
	if !strings.Contains(string(out), "qwen/qwen3-8b: base:") {
		t.Fatalf("output=%s", string(out))
	}
}
