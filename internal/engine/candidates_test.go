package engine

import (
	"testing"

	"github.com/shaiso/Journey/internal/domain"
	"github.com/shaiso/Journey/internal/fixtures"
)

func TestSourceCandidates(t *testing.T) {
	g := newFixtureGraph()

	candidates := g.SourceCandidates(fixtures.NodeD)
	if len(candidates) != 2 {
		t.Fatalf("expected 2 candidates, got %d", len(candidates))
	}

	if candidates[0].Form.ID != fixtures.FormB || !candidates[0].Direct {
		t.Errorf("expected direct Form B first, got %s (direct=%v)", candidates[0].Form.ID, candidates[0].Direct)
	}
	if candidates[0].NodeID != fixtures.NodeB || candidates[0].NodeName != "Form B" {
		t.Errorf("unexpected node of first candidate: %s %s", candidates[0].NodeID, candidates[0].NodeName)
	}
	if candidates[1].Form.ID != fixtures.FormA || candidates[1].Direct {
		t.Errorf("expected transitive Form A second, got %s (direct=%v)", candidates[1].Form.ID, candidates[1].Direct)
	}
	if len(candidates[1].Form.Fields) != 7 {
		t.Errorf("expected all 7 fields of Form A, got %d", len(candidates[1].Form.Fields))
	}

	if len(g.SourceCandidates(fixtures.NodeA)) != 0 {
		t.Error("A has no upstream forms")
	}
	if len(g.SourceCandidates("node-unknown")) != 0 {
		t.Error("unknown node should have no candidates")
	}
}

func TestSourceCandidates_DirectWins(t *testing.T) {
	// A → B → C и A → C: A одновременно прямая и транзитивная зависимость C
	snapshot := smallGraph([]string{"A", "B", "C"}, nil)
	snapshot.Nodes[1].Data.Prerequisites = []domain.NodeID{"node-A"}
	snapshot.Nodes[2].Data.Prerequisites = []domain.NodeID{"node-B", "node-A"}

	g := NewGraph(snapshot, WithLogger(quietLogger()))

	candidates := g.SourceCandidates("node-C")
	if len(candidates) != 2 {
		t.Fatalf("expected 2 candidates, got %d", len(candidates))
	}
	for _, c := range candidates {
		if !c.Direct {
			t.Errorf("%s should be marked direct", c.Form.ID)
		}
	}
}

func TestGlobalDataOptions(t *testing.T) {
	options := GlobalDataOptions(fixtures.GlobalData())
	if len(options) != 8 {
		t.Fatalf("expected 8 options, got %d", len(options))
	}

	// Сортировка по пути: "Action Properties" < "Client Organization Properties"
	if options[0].Path != "Action Properties.createdAt" {
		t.Errorf("expected Action Properties.createdAt first, got %s", options[0].Path)
	}

	found := false
	for _, opt := range options {
		if opt.Path == "Client Organization Properties.email" {
			found = true
			if opt.Value != "info@acme.com" {
				t.Errorf("expected info@acme.com, got %v", opt.Value)
			}
		}
	}
	if !found {
		t.Error("expected Client Organization Properties.email option")
	}

	// Каждый путь разрешается обратно в своё значение
	global := fixtures.GlobalData()
	for _, opt := range options {
		value, ok := ResolvePath(map[string]any(global), opt.Path)
		if !ok || value != opt.Value {
			t.Errorf("path %s: expected %v, got %v", opt.Path, opt.Value, value)
		}
	}
}

func TestGlobalDataOptions_Nested(t *testing.T) {
	global := domain.GlobalData{
		"top":   "value",
		"empty": map[string]any{},
		"null":  nil,
		"list":  []any{"a", map[string]any{"b": 1.0}},
		"deep":  map[string]any{"x": map[string]any{"y": true}},
	}

	options := GlobalDataOptions(global)
	paths := make([]string, 0, len(options))
	for _, opt := range options {
		paths = append(paths, opt.Path)
	}

	expected := []string{"deep.x.y", "list.0", "list.1.b", "top"}
	if len(paths) != len(expected) {
		t.Fatalf("expected %v, got %v", expected, paths)
	}
	for i := range expected {
		if paths[i] != expected[i] {
			t.Errorf("position %d: expected %s, got %s", i, expected[i], paths[i])
		}
	}
}

func TestDescribeMapping(t *testing.T) {
	g := newFixtureGraph()

	tests := []struct {
		name     string
		cfg      domain.PrefillConfig
		expected string
	}{
		{
			"source by node id",
			domain.PrefillConfig{SourceFormID: domain.FormID(fixtures.NodeA), SourceFieldID: "email"},
			"Form A.email",
		},
		{
			"source by form id",
			domain.PrefillConfig{SourceFormID: fixtures.FormB, SourceFieldID: "multi_select"},
			"Form B.multi_select",
		},
		{
			"composite field id",
			domain.PrefillConfig{SourceFormID: fixtures.FormB, SourceFieldID: "form-a4750667-email"},
			"Form B.email",
		},
		{
			"global",
			domain.PrefillConfig{GlobalDataPath: "Client Organization Properties.email"},
			"Global: Client Organization Properties.email",
		},
		{
			"unknown source",
			domain.PrefillConfig{SourceFormID: "f_unknown", SourceFieldID: "email"},
			"Invalid mapping",
		},
		{
			"unknown field",
			domain.PrefillConfig{SourceFormID: fixtures.FormA, SourceFieldID: "phone"},
			"Invalid mapping",
		},
		{
			"empty",
			domain.PrefillConfig{},
			"Invalid mapping",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := g.DescribeMapping(tt.cfg); got != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, got)
			}
		})
	}
}

func TestNormalizeMappings(t *testing.T) {
	g := newFixtureGraph()

	raw := fixtures.InitialMappings()
	raw[string(fixtures.FormC)] = domain.FieldMappings{
		"name": {GlobalDataPath: "Client Organization Properties.orgName"},
	}
	raw["garbage"] = domain.FieldMappings{
		"id": {GlobalDataPath: "x"},
	}

	table := g.NormalizeMappings(raw)

	if len(table) != 2 {
		t.Fatalf("expected 2 nodes in table, got %d", len(table))
	}

	// Источник-узел переписан на FormID
	cfg, ok := table.Lookup(fixtures.NodeD, "email")
	if !ok {
		t.Fatal("expected D.email mapping")
	}
	if cfg.SourceFormID != fixtures.FormA {
		t.Errorf("expected source form %s, got %s", fixtures.FormA, cfg.SourceFormID)
	}

	// Ключ-FormID перенесён на узел
	if _, ok := table.Lookup(fixtures.NodeC, "name"); !ok {
		t.Error("expected mapping re-keyed from form C to node C")
	}

	if _, ok := table["garbage"]; ok {
		t.Error("unknown key should be dropped")
	}

	// Входная таблица не изменена
	if raw[string(fixtures.NodeD)]["email"].SourceFormID != domain.FormID(fixtures.NodeA) {
		t.Error("input table should not be modified")
	}
}

func TestPrefillFlow_Fixture(t *testing.T) {
	// Полный путь: нормализация таблицы, отправка A, вычисление D.email
	g := newFixtureGraph()
	table := g.NormalizeMappings(fixtures.InitialMappings())

	cfg, _ := table.Lookup(fixtures.NodeD, "email")
	submissions := domain.FormSubmissionData{
		fixtures.FormA: {"email": "jane@acme.com"},
	}

	value, ok := ResolvePrefillValue(cfg, submissions, fixtures.GlobalData())
	if !ok || value != "jane@acme.com" {
		t.Errorf("expected jane@acme.com, got %v (%v)", value, ok)
	}
}
