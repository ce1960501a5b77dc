package store

import (
	"context"
)

// MergeStrategy controls how an upserted edge combines with an existing edge
// of the same type between the same two nodes.
type MergeStrategy string

const (
	// MergeReplace overwrites the edge's properties and removes any other
	// outgoing edge of the same type from the source node. Edge types that
	// use it are single-valued per source.
	MergeReplace MergeStrategy = "replace"
	// MergeIncrement adds the numeric properties of the new edge onto the
	// existing edge's values.
	MergeIncrement MergeStrategy = "increment"
	// MergeUnion unions the list-valued properties of the new edge with the
	// existing edge's lists, keeping elements unique.
	MergeUnion MergeStrategy = "union"
)

// Node labels persisted by the graph builder. Labels outside this set are
// rejected by the adapters.
const (
	LabelConversation = "Conversation"
	LabelSpeaker      = "Speaker"
	LabelSegment      = "Segment"
	LabelTopic        = "Topic"
	LabelEntity       = "Entity"
)

// Edge types persisted by the graph builder. Types outside this set are
// rejected by the adapters.
const (
	EdgePartOf    = "PART_OF"
	EdgeSpeaksIn  = "SPEAKS_IN"
	EdgeDiscusses = "DISCUSSES"
	EdgeMentions  = "MENTIONS"
	EdgeSpeaksTo  = "SPEAKS_TO"
	EdgeFollows   = "FOLLOWS"
)

// Node is one graph node keyed by its deterministic key. Upserting the same
// key again updates the properties instead of creating a duplicate.
type Node struct {
	Key   string
	Label string
	Props map[string]any
}

// Edge is one graph relationship between two nodes identified by key. The
// merge strategy decides what happens when the edge already exists.
type Edge struct {
	FromKey   string
	FromLabel string
	ToKey     string
	ToLabel   string
	Type      string
	Merge     MergeStrategy
	Props     map[string]any
}

// Subgraph is the result of a bounded traversal from a root node.
type Subgraph struct {
	Nodes []Node
	Edges []Edge
}

// GraphStore defines the persistence interface for derived conversation
// graphs. Upserts are idempotent: re-persisting the same data reports zero
// created nodes and edges. Implementations batch writes into bounded
// transactions and retry failed transactions as a whole.
type GraphStore interface {
	UpsertNodes(ctx context.Context, nodes []Node) (created int, err error)
	UpsertEdges(ctx context.Context, edges []Edge) (created int, err error)
	ReadSubgraph(ctx context.Context, rootKey string, maxHops int) (*Subgraph, error)
}

var validLabels = map[string]bool{
	LabelConversation: true,
	LabelSpeaker:      true,
	LabelSegment:      true,
	LabelTopic:        true,
	LabelEntity:       true,
}

var validEdgeTypes = map[string]bool{
	EdgePartOf:    true,
	EdgeSpeaksIn:  true,
	EdgeDiscusses: true,
	EdgeMentions:  true,
	EdgeSpeaksTo:  true,
	EdgeFollows:   true,
}

// ValidLabel reports whether label belongs to the persisted label set.
func ValidLabel(label string) bool {
	return validLabels[label]
}

// ValidEdgeType reports whether edgeType belongs to the persisted type set.
func ValidEdgeType(edgeType string) bool {
	return validEdgeTypes[edgeType]
}
