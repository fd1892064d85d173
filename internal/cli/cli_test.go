package cli

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"

	"github.com/shaiso/Journey/internal/fixtures"
)

// fakeAPI записывает последний запрос и отвечает заданным телом.
type fakeAPI struct {
	method string
	path   string
	query  string
	body   map[string]any
}

func newFakeAPI(t *testing.T, status int, response string) (*fakeAPI, *httptest.Server) {
	t.Helper()

	api := &fakeAPI{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		api.method = r.Method
		api.path = r.URL.Path
		api.query = r.URL.RawQuery
		api.body = nil
		if data, _ := io.ReadAll(r.Body); len(data) > 0 {
			json.Unmarshal(data, &api.body)
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		io.WriteString(w, response)
	}))
	t.Cleanup(srv.Close)

	return api, srv
}

func runCmd(t *testing.T, cmd *cobra.Command, args ...string) error {
	t.Helper()
	cmd.SetArgs(args)
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true
	return cmd.Execute()
}

func factories(baseURL string, jsonMode bool) (func() *Client, func() *Output, *bytes.Buffer) {
	var stdout bytes.Buffer
	clientFn := func() *Client { return NewClient(baseURL) }
	outputFn := func() *Output { return NewOutputTo(jsonMode, &stdout, io.Discard) }
	return clientFn, outputFn, &stdout
}

// --- Client ---

func TestClient_ListBlueprints(t *testing.T) {
	api, srv := newFakeAPI(t, http.StatusOK, `{"data":[{"id":"b1","name":"onboard","node_count":4,"form_count":4}],"total":1}`)

	blueprints, err := NewClient(srv.URL).ListBlueprints()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if api.method != http.MethodGet || api.path != "/api/v1/blueprints" {
		t.Errorf("unexpected request %s %s", api.method, api.path)
	}
	if len(blueprints) != 1 || blueprints[0].Name != "onboard" || blueprints[0].NodeCount != 4 {
		t.Errorf("unexpected blueprints: %+v", blueprints)
	}
}

func TestClient_Walk(t *testing.T) {
	api, srv := newFakeAPI(t, http.StatusOK, `{"data":{"node_id":"n1","direction":"upstream","direct_only":true,"forms":[{"id":"f1","name":"Form A"}]}}`)

	walk, err := NewClient(srv.URL).Walk("b1", "n1", "upstream", true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if api.path != "/api/v1/blueprints/b1/nodes/n1/upstream" || api.query != "direct=true" {
		t.Errorf("unexpected request %s?%s", api.path, api.query)
	}
	if len(walk.Forms) != 1 || walk.Forms[0].Name != "Form A" {
		t.Errorf("unexpected walk: %+v", walk)
	}
}

func TestClient_SetMapping(t *testing.T) {
	api, srv := newFakeAPI(t, http.StatusOK, `{"data":{"blueprint_id":"b1","entries":[]}}`)

	_, err := NewClient(srv.URL).SetMapping("b1", "n1", "email", PrefillConfig{GlobalDataPath: "Org.email"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if api.method != http.MethodPut || api.path != "/api/v1/blueprints/b1/mappings/n1/email" {
		t.Errorf("unexpected request %s %s", api.method, api.path)
	}
	if api.body["globalDataPath"] != "Org.email" {
		t.Errorf("unexpected body: %v", api.body)
	}
	if _, ok := api.body["sourceFormId"]; ok {
		t.Error("empty source form should be omitted")
	}
}

func TestClient_Submit(t *testing.T) {
	api, srv := newFakeAPI(t, http.StatusCreated, `{"data":{"journey_id":"j1","node_id":"n1","form_id":"f1","data":{"email":"a@example.com"}}}`)

	sub, err := NewClient(srv.URL).Submit("j1", "n1", map[string]any{"email": "a@example.com"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if api.path != "/api/v1/journeys/j1/submissions" || api.body["node_id"] != "n1" {
		t.Errorf("unexpected request %s %v", api.path, api.body)
	}
	if sub.FormID != "f1" {
		t.Errorf("unexpected submission: %+v", sub)
	}
}

func TestClient_Error(t *testing.T) {
	_, srv := newFakeAPI(t, http.StatusNotFound, `{"error":{"code":"NOT_FOUND","message":"blueprint not found"}}`)

	_, err := NewClient(srv.URL).GetBlueprint("missing")
	if err == nil || err.Error() != "NOT_FOUND: blueprint not found" {
		t.Errorf("expected API error, got %v", err)
	}
}

func TestClient_ErrorWithoutEnvelope(t *testing.T) {
	_, srv := newFakeAPI(t, http.StatusBadGateway, `upstream down`)

	err := NewClient(srv.URL).DeleteBlueprint("b1")
	if err == nil || !strings.Contains(err.Error(), "HTTP 502") {
		t.Errorf("expected HTTP status error, got %v", err)
	}
}

// --- Commands ---

func TestBlueprintListCmd_Table(t *testing.T) {
	_, srv := newFakeAPI(t, http.StatusOK, `{"data":[{"id":"b1","name":"onboard","node_count":4,"form_count":4,"updated_at":"2025-02-04"}],"total":1}`)
	clientFn, outputFn, stdout := factories(srv.URL, false)

	if err := runCmd(t, NewBlueprintCmd(clientFn, outputFn), "list"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	out := stdout.String()
	if !strings.Contains(out, "NAME") || !strings.Contains(out, "onboard") {
		t.Errorf("unexpected table output:\n%s", out)
	}
}

func TestBlueprintCreateCmd_YAML(t *testing.T) {
	api, srv := newFakeAPI(t, http.StatusCreated, `{"data":{"id":"b1","name":"yaml"}}`)
	clientFn, outputFn, _ := factories(srv.URL, true)

	path := filepath.Join(t.TempDir(), "graph.yaml")
	doc := "nodes:\n  - id: a\n    data:\n      component_id: f_a\n      name: A\nforms:\n  - id: f_a\n    name: Form A\n"
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatalf("failed to write graph: %v", err)
	}

	if err := runCmd(t, NewBlueprintCmd(clientFn, outputFn), "create", "--name", "yaml", "--file", path); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	graph, ok := api.body["graph"].(map[string]any)
	if !ok {
		t.Fatalf("expected graph object in body, got %v", api.body)
	}
	nodes, _ := graph["nodes"].([]any)
	if len(nodes) != 1 {
		t.Errorf("expected one node sent, got %v", graph["nodes"])
	}
}

func TestMappingSetCmd_RequiresSource(t *testing.T) {
	clientFn, outputFn, _ := factories("http://127.0.0.1:0", false)

	err := runCmd(t, NewMappingCmd(clientFn, outputFn), "set", "b1", "n1", "email", "--source-form", "f1")
	if err == nil {
		t.Error("expected error without a complete source")
	}
}

func TestJourneySubmitCmd_InvalidData(t *testing.T) {
	clientFn, outputFn, _ := factories("http://127.0.0.1:0", false)

	err := runCmd(t, NewJourneyCmd(clientFn, outputFn), "submit", "j1", "n1", "--data", "{")
	if err == nil {
		t.Error("expected error for invalid --data")
	}
}

func TestLocalInspect_Fixture(t *testing.T) {
	_, outputFn, stdout := factories("", true)

	if err := runCmd(t, NewLocalCmd(outputFn), "inspect"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var nodes []inspectedNode
	if err := json.Unmarshal(stdout.Bytes(), &nodes); err != nil {
		t.Fatalf("failed to decode output: %v", err)
	}
	if len(nodes) != 4 {
		t.Fatalf("expected 4 nodes, got %d", len(nodes))
	}

	for _, n := range nodes {
		switch n.NodeID {
		case fixtures.NodeA:
			if n.Upstream != 0 || n.Downstream != 3 {
				t.Errorf("A: expected 0 upstream / 3 downstream, got %d/%d", n.Upstream, n.Downstream)
			}
		case fixtures.NodeD:
			if len(n.DependsOn) != 1 || n.DependsOn[0] != "Form B" || n.Upstream != 2 {
				t.Errorf("D: unexpected summary %+v", n)
			}
		}
	}
}

func TestLocalInspect_InvalidFile(t *testing.T) {
	_, outputFn, _ := factories("", false)

	path := filepath.Join(t.TempDir(), "graph.json")
	if err := os.WriteFile(path, []byte(`{"nodes":[]}`), 0o644); err != nil {
		t.Fatalf("failed to write graph: %v", err)
	}

	if err := runCmd(t, NewLocalCmd(outputFn), "inspect", "--file", path); err == nil {
		t.Error("expected validation error for empty graph")
	}
}

func TestLocalResolve(t *testing.T) {
	_, outputFn, stdout := factories("", true)

	err := runCmd(t, NewLocalCmd(outputFn), "resolve",
		"--submission", string(fixtures.NodeA)+`={"email":"a@example.com"}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var fields []resolvedField
	if err := json.Unmarshal(stdout.Bytes(), &fields); err != nil {
		t.Fatalf("failed to decode output: %v", err)
	}
	if len(fields) != 1 {
		t.Fatalf("expected one mapped field, got %+v", fields)
	}
	f := fields[0]
	if f.FieldID != "email" || !f.Resolved || f.Value != "a@example.com" || f.Source != "Form A.email" {
		t.Errorf("unexpected field: %+v", f)
	}
}

func TestLocalResolve_NotSubmitted(t *testing.T) {
	_, outputFn, stdout := factories("", true)

	if err := runCmd(t, NewLocalCmd(outputFn), "resolve"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var fields []resolvedField
	if err := json.Unmarshal(stdout.Bytes(), &fields); err != nil {
		t.Fatalf("failed to decode output: %v", err)
	}
	if len(fields) != 1 || fields[0].Resolved {
		t.Errorf("expected unresolved email, got %+v", fields)
	}
}

func TestLocalResolve_BadSubmission(t *testing.T) {
	_, outputFn, _ := factories("", false)

	tests := [][]string{
		{"resolve", "--submission", "no-separator"},
		{"resolve", "--submission", "ghost={}"},
		{"resolve", "--submission", string(fixtures.NodeA) + "={"},
		{"resolve", "--node", "ghost"},
	}
	for _, args := range tests {
		if err := runCmd(t, NewLocalCmd(outputFn), args...); err == nil {
			t.Errorf("expected error for %v", args)
		}
	}
}

func TestFormatValue(t *testing.T) {
	tests := []struct {
		in   any
		want string
	}{
		{nil, "-"},
		{"text", "text"},
		{float64(3), "3"},
		{map[string]any{"a": true}, `{"a":true}`},
	}
	for _, tt := range tests {
		if got := formatValue(tt.in); got != tt.want {
			t.Errorf("formatValue(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
