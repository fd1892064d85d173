package fixtures

import "testing"

func TestOnboardCustomer(t *testing.T) {
	graph := OnboardCustomer()

	if graph.ID != BlueprintID {
		t.Errorf("expected ID %s, got %s", BlueprintID, graph.ID)
	}
	if graph.Name != "Onboard Customer 0" {
		t.Errorf("expected name 'Onboard Customer 0', got %s", graph.Name)
	}
	if len(graph.Nodes) != 4 {
		t.Fatalf("expected 4 nodes, got %d", len(graph.Nodes))
	}
	if len(graph.Edges) != 3 {
		t.Fatalf("expected 3 edges, got %d", len(graph.Edges))
	}
	if len(graph.Forms) != 4 {
		t.Fatalf("expected 4 forms, got %d", len(graph.Forms))
	}

	// Порядок узлов — как в исходном ответе API: D, A, C, B
	expected := []struct {
		node string
		form string
		name string
	}{
		{string(NodeD), string(FormD), "Form D"},
		{string(NodeA), string(FormA), "Form A"},
		{string(NodeC), string(FormC), "Form C"},
		{string(NodeB), string(FormB), "Form B"},
	}
	for i, exp := range expected {
		node := graph.Nodes[i]
		if string(node.ID) != exp.node {
			t.Errorf("node %d: expected ID %s, got %s", i, exp.node, node.ID)
		}
		if string(node.Data.ComponentID) != exp.form {
			t.Errorf("node %d: expected component_id %s, got %s", i, exp.form, node.Data.ComponentID)
		}
		if node.Data.Name != exp.name {
			t.Errorf("node %d: expected name %s, got %s", i, exp.name, node.Data.Name)
		}
		if node.Data.ComponentKey != string(node.ID) {
			t.Errorf("node %d: component_key should equal node ID", i)
		}
	}

	if graph.Nodes[1].Position.X != 494 || graph.Nodes[1].Position.Y != 269 {
		t.Errorf("unexpected position of Form A: %+v", graph.Nodes[1].Position)
	}
}

func TestOnboardCustomer_Edges(t *testing.T) {
	graph := OnboardCustomer()

	edges := [][2]string{
		{string(NodeB), string(NodeD)},
		{string(NodeA), string(NodeC)},
		{string(NodeA), string(NodeB)},
	}
	for i, e := range edges {
		if string(graph.Edges[i].Source) != e[0] || string(graph.Edges[i].Target) != e[1] {
			t.Errorf("edge %d: expected %s → %s, got %s → %s",
				i, e[0], e[1], graph.Edges[i].Source, graph.Edges[i].Target)
		}
	}
}

func TestOnboardCustomer_RequiredFields(t *testing.T) {
	graph := OnboardCustomer()

	for _, form := range graph.Forms {
		if len(form.Fields) != 7 {
			t.Errorf("form %s: expected 7 fields, got %d", form.Name, len(form.Fields))
		}

		required := form.RequiredFieldIDs()
		if len(required) != 3 || required[0] != "id" || required[1] != "name" || required[2] != "email" {
			t.Errorf("form %s: expected required [id name email], got %v", form.Name, required)
		}
	}
}

func TestOnboardCustomer_FreshCopy(t *testing.T) {
	first := OnboardCustomer()
	first.Nodes[0].Data.Name = "changed"

	second := OnboardCustomer()
	if second.Nodes[0].Data.Name != "Form D" {
		t.Error("fixture should return a fresh copy on every call")
	}
}

func TestGlobalData(t *testing.T) {
	global := GlobalData()

	org, ok := global["Client Organization Properties"].(map[string]any)
	if !ok {
		t.Fatalf("expected Client Organization Properties to be an object, got %T",
			global["Client Organization Properties"])
	}
	if org["email"] != "info@acme.com" {
		t.Errorf("expected email info@acme.com, got %v", org["email"])
	}
	if org["orgName"] != "Acme Inc" {
		t.Errorf("expected orgName Acme Inc, got %v", org["orgName"])
	}

	action, ok := global["Action Properties"].(map[string]any)
	if !ok {
		t.Fatal("expected Action Properties to be an object")
	}
	if action["status"] != "active" {
		t.Errorf("expected status active, got %v", action["status"])
	}
}

func TestInitialMappings(t *testing.T) {
	raw := InitialMappings()

	fields, ok := raw[string(NodeD)]
	if !ok {
		t.Fatal("expected mappings for node D")
	}
	cfg, ok := fields["email"]
	if !ok {
		t.Fatal("expected mapping for D.email")
	}

	// В исходной таблице источник указан ID узла, а не формы
	if cfg.SourceFormID != "form-47c61d17-62b0-4c42-8ca2-0eff641c9d88" {
		t.Errorf("expected source node A, got %s", cfg.SourceFormID)
	}
	if cfg.SourceFieldID != "email" {
		t.Errorf("expected source field email, got %s", cfg.SourceFieldID)
	}
	if cfg.GlobalDataPath != "" {
		t.Errorf("expected empty global path, got %s", cfg.GlobalDataPath)
	}
}

func TestRaw(t *testing.T) {
	if len(Raw()) == 0 {
		t.Error("expected raw fixture bytes")
	}
}
