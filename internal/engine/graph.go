package engine

import (
	"log/slog"
	"sort"

	"github.com/shaiso/Journey/internal/domain"
)

// Graph — индекс над снимком WorkflowGraph.
//
// Строится один раз на снимок и дальше только читается, поэтому
// безопасен для одновременного использования из нескольких горутин.
// Индекс явно разделяет пространства NodeID и FormID: все запросы обхода
// принимают NodeID, а форма узла находится через таблицу привязок.
type Graph struct {
	snapshot *domain.WorkflowGraph

	// nodes — все узлы графа (NodeID → Node).
	nodes map[domain.NodeID]*domain.Node

	// order — узлы в порядке снимка.
	order []domain.NodeID

	// forms — формы по ID. Одна форма может встречаться несколько раз
	// (одинаковый ID, разные имена), поэтому хранится список.
	forms map[domain.FormID][]*domain.Form

	// bindings — таблица NodeID → Form, построенная по component_id.
	bindings map[domain.NodeID]*domain.Form

	// incoming — источники входящих рёбер узла в порядке рёбер.
	incoming map[domain.NodeID][]domain.NodeID

	// outgoing — цели исходящих рёбер узла в порядке рёбер.
	outgoing map[domain.NodeID][]domain.NodeID

	logger *slog.Logger
}

// GraphOption настраивает Graph.
type GraphOption func(*Graph)

// WithLogger задаёт логгер для диагностики висячих ссылок.
func WithLogger(logger *slog.Logger) GraphOption {
	return func(g *Graph) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// NewGraph строит индекс по снимку графа.
//
// Висячие ссылки (рёбра на несуществующие узлы, узлы без формы)
// не считаются ошибкой: они пишутся в лог и в обходе не участвуют.
func NewGraph(snapshot *domain.WorkflowGraph, opts ...GraphOption) *Graph {
	if snapshot == nil {
		snapshot = &domain.WorkflowGraph{}
	}

	g := &Graph{
		snapshot: snapshot,
		nodes:    make(map[domain.NodeID]*domain.Node, len(snapshot.Nodes)),
		order:    make([]domain.NodeID, 0, len(snapshot.Nodes)),
		forms:    make(map[domain.FormID][]*domain.Form, len(snapshot.Forms)),
		bindings: make(map[domain.NodeID]*domain.Form, len(snapshot.Nodes)),
		incoming: make(map[domain.NodeID][]domain.NodeID),
		outgoing: make(map[domain.NodeID][]domain.NodeID),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(g)
	}

	for i := range snapshot.Forms {
		form := &snapshot.Forms[i]
		g.forms[form.ID] = append(g.forms[form.ID], form)
	}

	for i := range snapshot.Nodes {
		node := &snapshot.Nodes[i]
		if _, exists := g.nodes[node.ID]; !exists {
			g.order = append(g.order, node.ID)
		}
		g.nodes[node.ID] = node
		g.bindNode(node)
	}

	for _, edge := range snapshot.Edges {
		if _, ok := g.nodes[edge.Source]; !ok {
			g.logger.Warn("edge source not found", "source", edge.Source, "target", edge.Target)
		}
		if _, ok := g.nodes[edge.Target]; !ok {
			g.logger.Warn("edge target not found", "source", edge.Source, "target", edge.Target)
		}
		g.incoming[edge.Target] = append(g.incoming[edge.Target], edge.Source)
		g.outgoing[edge.Source] = append(g.outgoing[edge.Source], edge.Target)
	}

	for _, id := range g.order {
		for _, dep := range g.nodes[id].Data.Prerequisites {
			if _, ok := g.nodes[dep]; !ok {
				g.logger.Warn("prerequisite node not found", "node_id", id, "prerequisite", dep)
			}
		}
	}

	return g
}

// bindNode находит форму узла по component_id.
// Среди форм с одинаковым ID предпочитается та, чьё имя совпадает с именем узла.
func (g *Graph) bindNode(node *domain.Node) {
	candidates := g.forms[node.Data.ComponentID]
	if len(candidates) == 0 {
		g.logger.Error("form not found for node",
			"node_id", node.ID,
			"component_id", node.Data.ComponentID,
			"name", node.Data.Name,
		)
		return
	}

	form := candidates[0]
	for _, c := range candidates {
		if c.Name == node.Data.Name {
			form = c
			break
		}
	}
	g.bindings[node.ID] = form

	g.logger.Debug("node bound to form",
		"node_id", node.ID,
		"form_id", form.ID,
		"form_name", form.Name,
		"matches", len(candidates),
	)
}

// --- Обход ---

// Upstream возвращает формы, от которых зависит узел (по рёбрам).
//
// directOnly=true — только источники входящих рёбер.
// directOnly=false — транзитивное замыкание: прямые формы идут первыми,
// за ними формы, найденные рекурсивно. Дубликаты по Form.ID удаляются,
// остаётся первое вхождение.
func (g *Graph) Upstream(node domain.NodeID, directOnly bool) []domain.Form {
	return g.walk(node, g.incomingOf, directOnly)
}

// Downstream возвращает формы, которые зависят от узла (по рёбрам).
// Семантика directOnly и порядок — как у Upstream.
func (g *Graph) Downstream(node domain.NodeID, directOnly bool) []domain.Form {
	return g.walk(node, g.outgoingOf, directOnly)
}

// UpstreamByPrerequisites — вариант Upstream, который идёт по
// node.data.prerequisites вместо списка рёбер.
//
// Для графа, где рёбра и prerequisites согласованы, результат совпадает
// с Upstream. Согласованность не проверяется.
func (g *Graph) UpstreamByPrerequisites(node domain.NodeID, directOnly bool) []domain.Form {
	return g.walk(node, g.prerequisitesOf, directOnly)
}

// walk — общий обход в одном направлении.
func (g *Graph) walk(start domain.NodeID, next func(domain.NodeID) []domain.NodeID, directOnly bool) []domain.Form {
	if _, ok := g.nodes[start]; !ok {
		g.logger.Debug("walk from unknown node", "node_id", start)
	}

	var found []domain.Form
	if directOnly {
		found = g.formsOf(next(start))
	} else {
		visited := map[domain.NodeID]bool{start: true}
		found = g.collect(start, next, visited)
	}

	return dedupeForms(found)
}

// collect рекурсивно собирает формы: сначала прямые, затем формы каждой
// прямой зависимости. Уже посещённый узел повторно не раскрывается:
// всё, что он даёт, уже стоит раньше в списке.
func (g *Graph) collect(id domain.NodeID, next func(domain.NodeID) []domain.NodeID, visited map[domain.NodeID]bool) []domain.Form {
	direct := next(id)
	found := g.formsOf(direct)

	for _, dep := range direct {
		if visited[dep] {
			continue
		}
		visited[dep] = true
		found = append(found, g.collect(dep, next, visited)...)
	}

	return found
}

func (g *Graph) incomingOf(id domain.NodeID) []domain.NodeID {
	return g.incoming[id]
}

func (g *Graph) outgoingOf(id domain.NodeID) []domain.NodeID {
	return g.outgoing[id]
}

func (g *Graph) prerequisitesOf(id domain.NodeID) []domain.NodeID {
	node, ok := g.nodes[id]
	if !ok {
		g.logger.Error("could not find node", "node_id", id)
		return nil
	}
	return node.Data.Prerequisites
}

// formsOf отображает узлы на их формы, пропуская узлы без формы.
func (g *Graph) formsOf(ids []domain.NodeID) []domain.Form {
	forms := make([]domain.Form, 0, len(ids))
	for _, id := range ids {
		form, ok := g.bindings[id]
		if !ok {
			g.logger.Debug("node has no bound form", "node_id", id)
			continue
		}
		forms = append(forms, *form)
	}
	return forms
}

// dedupeForms удаляет дубликаты по Form.ID, сохраняя первое вхождение.
func dedupeForms(forms []domain.Form) []domain.Form {
	seen := make(map[domain.FormID]bool, len(forms))
	result := make([]domain.Form, 0, len(forms))
	for _, f := range forms {
		if seen[f.ID] {
			continue
		}
		seen[f.ID] = true
		result = append(result, f)
	}
	return result
}

// --- Доступ к узлам и формам ---

// Snapshot возвращает исходный снимок графа.
func (g *Graph) Snapshot() *domain.WorkflowGraph {
	return g.snapshot
}

// Size возвращает количество узлов.
func (g *Graph) Size() int {
	return len(g.order)
}

// Node возвращает узел по ID.
func (g *Graph) Node(id domain.NodeID) (domain.Node, bool) {
	node, ok := g.nodes[id]
	if !ok {
		return domain.Node{}, false
	}
	return *node, true
}

// Nodes возвращает узлы в порядке снимка.
func (g *Graph) Nodes() []domain.Node {
	nodes := make([]domain.Node, 0, len(g.order))
	for _, id := range g.order {
		nodes = append(nodes, *g.nodes[id])
	}
	return nodes
}

// NodesByName возвращает узлы, отсортированные по имени (порядок отображения).
func (g *Graph) NodesByName() []domain.Node {
	nodes := g.Nodes()
	sort.SliceStable(nodes, func(i, j int) bool {
		return nodes[i].Data.Name < nodes[j].Data.Name
	})
	return nodes
}

// FormForNode возвращает форму, привязанную к узлу.
func (g *Graph) FormForNode(id domain.NodeID) (domain.Form, bool) {
	form, ok := g.bindings[id]
	if !ok {
		return domain.Form{}, false
	}
	return *form, true
}

// FormIDForNode возвращает FormID узла.
func (g *Graph) FormIDForNode(id domain.NodeID) (domain.FormID, bool) {
	form, ok := g.bindings[id]
	if !ok {
		return "", false
	}
	return form.ID, true
}

// NodeForForm возвращает первый (в порядке снимка) узел, в котором стоит форма.
func (g *Graph) NodeForForm(formID domain.FormID) (domain.NodeID, bool) {
	for _, id := range g.order {
		if g.nodes[id].Data.ComponentID == formID {
			return id, true
		}
	}
	return "", false
}

// Form возвращает форму по ID (первую, если ID повторяется).
func (g *Graph) Form(id domain.FormID) (domain.Form, bool) {
	forms := g.forms[id]
	if len(forms) == 0 {
		return domain.Form{}, false
	}
	return *forms[0], true
}

// RequiredFields возвращает обязательные поля формы узла.
func (g *Graph) RequiredFields(id domain.NodeID) []string {
	form, ok := g.bindings[id]
	if !ok {
		return []string{}
	}
	return form.RequiredFieldIDs()
}

// --- Готовность узлов ---

// ReadyNodes возвращает узлы, готовые к заполнению.
//
// Узел готов, если:
//   - У него есть форма и он ещё не отправлен
//   - Все источники его входящих рёбер отправлены
//
// Источники, которых нет среди узлов или у которых нет формы, не учитываются:
// их нельзя отправить.
// Порядок — порядок снимка.
func (g *Graph) ReadyNodes(submitted map[domain.NodeID]bool) []domain.NodeID {
	ready := make([]domain.NodeID, 0)

	for _, id := range g.order {
		if submitted[id] || !g.bound(id) {
			continue
		}

		allDepsSubmitted := true
		for _, dep := range g.incoming[id] {
			if !g.bound(dep) {
				continue
			}
			if !submitted[dep] {
				allDepsSubmitted = false
				break
			}
		}

		if allDepsSubmitted {
			ready = append(ready, id)
		}
	}

	return ready
}

// AllSubmitted проверяет, все ли узлы с формой отправлены.
func (g *Graph) AllSubmitted(submitted map[domain.NodeID]bool) bool {
	for _, id := range g.order {
		if g.bound(id) && !submitted[id] {
			return false
		}
	}
	return true
}

// bound — есть ли у узла форма.
func (g *Graph) bound(id domain.NodeID) bool {
	_, ok := g.bindings[id]
	return ok
}
