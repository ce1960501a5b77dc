package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/parley-ai/parley/backend/pkg/common"
	"github.com/parley-ai/parley/backend/pkg/store"
)

type edgeIdentity struct {
	fromKey  string
	toKey    string
	edgeType string
}

// GraphMemoryStore implements store.GraphStore fully in memory with the same
// merge semantics as the database-backed adapter. It backs tests and local
// runs that have no graph database available.
type GraphMemoryStore struct {
	lock  sync.Mutex
	nodes map[string]store.Node
	edges map[edgeIdentity]store.Edge
}

// NewGraphMemoryStore creates an empty in-memory graph store.
func NewGraphMemoryStore() *GraphMemoryStore {
	return &GraphMemoryStore{
		nodes: map[string]store.Node{},
		edges: map[edgeIdentity]store.Edge{},
	}
}

func (s *GraphMemoryStore) UpsertNodes(ctx context.Context, nodes []store.Node) (int, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	created := 0
	for _, node := range nodes {
		if !store.ValidLabel(node.Label) {
			return created, &common.PersistenceError{
				Op:  "upsert_nodes",
				Err: fmt.Errorf("unknown node label %q", node.Label),
			}
		}

		existing, ok := s.nodes[node.Key]
		if !ok {
			created++
		} else if existing.Label != node.Label {
			return created, &common.PersistenceError{
				Op:  "upsert_nodes",
				Err: fmt.Errorf("node %s label changed from %s to %s", node.Key, existing.Label, node.Label),
			}
		}

		s.nodes[node.Key] = store.Node{
			Key:   node.Key,
			Label: node.Label,
			Props: cloneProps(node.Props),
		}
	}

	return created, nil
}

func (s *GraphMemoryStore) UpsertEdges(ctx context.Context, edges []store.Edge) (int, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	created := 0
	for _, edge := range edges {
		if !store.ValidEdgeType(edge.Type) {
			return created, &common.PersistenceError{
				Op:  "upsert_edges",
				Err: fmt.Errorf("unknown edge type %q", edge.Type),
			}
		}
		if _, ok := s.nodes[edge.FromKey]; !ok {
			return created, &common.PersistenceError{
				Op:  "upsert_edges",
				Err: fmt.Errorf("edge %s references missing node %s", edge.Type, edge.FromKey),
			}
		}
		if _, ok := s.nodes[edge.ToKey]; !ok {
			return created, &common.PersistenceError{
				Op:  "upsert_edges",
				Err: fmt.Errorf("edge %s references missing node %s", edge.Type, edge.ToKey),
			}
		}

		id := edgeIdentity{fromKey: edge.FromKey, toKey: edge.ToKey, edgeType: edge.Type}
		existing, ok := s.edges[id]

		switch edge.Merge {
		case store.MergeReplace:
			// Single-valued per source: drop any other outgoing edge of
			// the same type first.
			for other := range s.edges {
				if other.fromKey == edge.FromKey && other.edgeType == edge.Type && other.toKey != edge.ToKey {
					delete(s.edges, other)
				}
			}
			if !ok {
				created++
			}
			stored := edge
			stored.Props = cloneProps(edge.Props)
			s.edges[id] = stored
		case store.MergeIncrement:
			if !ok {
				created++
				stored := edge
				stored.Props = cloneProps(edge.Props)
				s.edges[id] = stored
				continue
			}
			for key, value := range edge.Props {
				existing.Props[key] = addNumeric(existing.Props[key], value)
			}
			s.edges[id] = existing
		case store.MergeUnion:
			if !ok {
				created++
				stored := edge
				stored.Props = cloneProps(edge.Props)
				s.edges[id] = stored
				continue
			}
			for key, value := range edge.Props {
				existing.Props[key] = unionList(existing.Props[key], value)
			}
			s.edges[id] = existing
		default:
			return created, &common.PersistenceError{
				Op:  "upsert_edges",
				Err: fmt.Errorf("unknown merge strategy %q", edge.Merge),
			}
		}
	}

	return created, nil
}

func (s *GraphMemoryStore) ReadSubgraph(ctx context.Context, rootKey string, maxHops int) (*store.Subgraph, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	if _, ok := s.nodes[rootKey]; !ok {
		return nil, &common.PersistenceError{
			Op:  "read_subgraph",
			Err: fmt.Errorf("node %s not found", rootKey),
		}
	}

	// Breadth-first over edges in both directions, bounded by hop count.
	reached := map[string]bool{rootKey: true}
	frontier := []string{rootKey}
	for hop := 0; hop < maxHops && len(frontier) > 0; hop++ {
		var next []string
		for _, key := range frontier {
			for id := range s.edges {
				if id.fromKey == key && !reached[id.toKey] {
					reached[id.toKey] = true
					next = append(next, id.toKey)
				}
				if id.toKey == key && !reached[id.fromKey] {
					reached[id.fromKey] = true
					next = append(next, id.fromKey)
				}
			}
		}
		frontier = next
	}

	sub := &store.Subgraph{}
	for key := range reached {
		node := s.nodes[key]
		node.Props = cloneProps(node.Props)
		sub.Nodes = append(sub.Nodes, node)
	}
	for id, edge := range s.edges {
		if !reached[id.fromKey] || !reached[id.toKey] {
			continue
		}
		edge.Props = cloneProps(edge.Props)
		sub.Edges = append(sub.Edges, edge)
	}

	sort.Slice(sub.Nodes, func(i, j int) bool { return sub.Nodes[i].Key < sub.Nodes[j].Key })
	sort.Slice(sub.Edges, func(i, j int) bool {
		a, b := sub.Edges[i], sub.Edges[j]
		if a.FromKey != b.FromKey {
			return a.FromKey < b.FromKey
		}
		if a.ToKey != b.ToKey {
			return a.ToKey < b.ToKey
		}
		return a.Type < b.Type
	})

	return sub, nil
}

// NodeCount returns the number of stored nodes.
func (s *GraphMemoryStore) NodeCount() int {
	s.lock.Lock()
	defer s.lock.Unlock()
	return len(s.nodes)
}

// EdgeCount returns the number of stored edges.
func (s *GraphMemoryStore) EdgeCount() int {
	s.lock.Lock()
	defer s.lock.Unlock()
	return len(s.edges)
}

// Node returns the stored node with the given key, if present.
func (s *GraphMemoryStore) Node(key string) (store.Node, bool) {
	s.lock.Lock()
	defer s.lock.Unlock()
	node, ok := s.nodes[key]
	if ok {
		node.Props = cloneProps(node.Props)
	}
	return node, ok
}

// Edge returns the stored edge with the given identity, if present.
func (s *GraphMemoryStore) Edge(fromKey, toKey, edgeType string) (store.Edge, bool) {
	s.lock.Lock()
	defer s.lock.Unlock()
	edge, ok := s.edges[edgeIdentity{fromKey: fromKey, toKey: toKey, edgeType: edgeType}]
	if ok {
		edge.Props = cloneProps(edge.Props)
	}
	return edge, ok
}

func cloneProps(props map[string]any) map[string]any {
	cloned := make(map[string]any, len(props))
	for key, value := range props {
		if list, ok := value.([]string); ok {
			cloned[key] = append([]string(nil), list...)
			continue
		}
		cloned[key] = value
	}
	return cloned
}

func addNumeric(existing, delta any) any {
	switch d := delta.(type) {
	case int:
		if e, ok := existing.(int); ok {
			return e + d
		}
		return d
	case int64:
		if e, ok := existing.(int64); ok {
			return e + d
		}
		return d
	case float64:
		if e, ok := existing.(float64); ok {
			return e + d
		}
		return d
	default:
		return delta
	}
}

func unionList(existing, addition any) any {
	add, ok := addition.([]string)
	if !ok {
		return addition
	}
	current, _ := existing.([]string)

	seen := make(map[string]bool, len(current))
	for _, v := range current {
		seen[v] = true
	}
	for _, v := range add {
		if seen[v] {
			continue
		}
		seen[v] = true
		current = append(current, v)
	}
	return current
}
