package engine

import (
	"testing"

	"github.com/shaiso/Journey/internal/domain"
	"github.com/shaiso/Journey/internal/fixtures"
)

func TestIsComplete_Scenario(t *testing.T) {
	required := []string{"id", "name", "email"}
	emailFromA := domain.PrefillConfig{SourceFormID: fixtures.FormA, SourceFieldID: "email"}

	table := domain.PrefillMappingTable{
		fixtures.NodeD: {"email": emailFromA},
	}
	if IsComplete(fixtures.NodeD, required, table) {
		t.Error("D should not be complete with only email mapped")
	}

	table[fixtures.NodeD]["id"] = domain.PrefillConfig{SourceFormID: fixtures.FormA, SourceFieldID: "id"}
	table[fixtures.NodeD]["name"] = domain.PrefillConfig{GlobalDataPath: "Client Organization Properties.orgName"}
	if !IsComplete(fixtures.NodeD, required, table) {
		t.Error("D should be complete with id, name and email mapped")
	}
}

func TestIsComplete_NoEntry(t *testing.T) {
	table := domain.PrefillMappingTable{}

	if !IsComplete("node-1", nil, table) {
		t.Error("node without entry and without required fields should be complete")
	}
	if !IsComplete("node-1", []string{}, nil) {
		t.Error("nil table with no required fields should be complete")
	}
	if IsComplete("node-1", []string{"email"}, table) {
		t.Error("node without entry but with required fields should not be complete")
	}
}

func TestIsComplete_ExistenceOnly(t *testing.T) {
	// Пустая привязка тоже считается: проверяется только наличие записи
	table := domain.PrefillMappingTable{
		"node-1": {"email": domain.PrefillConfig{}},
	}
	if !IsComplete("node-1", []string{"email"}, table) {
		t.Error("existing entry should satisfy required field")
	}

	// Пустая запись узла без обязательных полей
	table["node-2"] = domain.FieldMappings{}
	if !IsComplete("node-2", nil, table) {
		t.Error("empty entry with no required fields should be complete")
	}
}

func TestMissingFields(t *testing.T) {
	table := domain.PrefillMappingTable{
		"node-1": {"name": domain.PrefillConfig{GlobalDataPath: "a.b"}},
	}

	missing := MissingFields("node-1", []string{"id", "name", "email"}, table)
	if len(missing) != 2 || missing[0] != "id" || missing[1] != "email" {
		t.Errorf("expected [id email], got %v", missing)
	}

	missing = MissingFields("node-unknown", []string{"id"}, table)
	if len(missing) != 1 || missing[0] != "id" {
		t.Errorf("expected [id], got %v", missing)
	}
}

func TestGraph_Completeness(t *testing.T) {
	g := newFixtureGraph()
	table := g.NormalizeMappings(fixtures.InitialMappings())

	report := g.Completeness(table)
	if len(report) != 4 {
		t.Fatalf("expected 4 entries, got %d", len(report))
	}

	// Порядок снимка: D первый
	d := report[0]
	if d.NodeID != fixtures.NodeD || d.FormName != "Form D" {
		t.Fatalf("expected Form D first, got %+v", d)
	}
	if d.Complete {
		t.Error("D should not be complete")
	}
	if len(d.Missing) != 2 || d.Missing[0] != "id" || d.Missing[1] != "name" {
		t.Errorf("expected D missing [id name], got %v", d.Missing)
	}

	for _, entry := range report[1:] {
		if entry.Complete {
			t.Errorf("%s should not be complete", entry.FormName)
		}
		if len(entry.Missing) != 3 {
			t.Errorf("%s: expected 3 missing fields, got %v", entry.FormName, entry.Missing)
		}
	}
}
