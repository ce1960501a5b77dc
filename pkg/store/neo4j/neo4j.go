package neo4j

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/parley-ai/parley/backend/internal/util"
	"github.com/parley-ai/parley/backend/pkg/common"
	"github.com/parley-ai/parley/backend/pkg/store"
)

// propNameRe guards property names before they are interpolated into
// generated SET clauses. Node keys and property values are always bound as
// query parameters.
var propNameRe = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// GraphNeo4jStore implements store.GraphStore on a Neo4j database. Writes
// are chunked into bounded transactions; each transaction is retried whole
// on failure.
//
// A GraphNeo4jStore should be created using NewGraphNeo4jStore.
type GraphNeo4jStore struct {
	driver    neo4j.DriverWithContext
	database  string
	batchSize int
	maxTries  int
}

// NewGraphNeo4jStoreParams defines the configuration for creating a
// GraphNeo4jStore.
type NewGraphNeo4jStoreParams struct {
	URI      string
	Username string
	Password string
	Database string
}

// NewGraphNeo4jStore connects to Neo4j, verifies connectivity and ensures
// the key uniqueness constraints for all node labels.
func NewGraphNeo4jStore(ctx context.Context, params NewGraphNeo4jStoreParams) (*GraphNeo4jStore, error) {
	driver, err := neo4j.NewDriverWithContext(params.URI, neo4j.BasicAuth(params.Username, params.Password, ""))
	if err != nil {
		return nil, &common.PersistenceError{Op: "connect", Err: err}
	}

	verifyCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := driver.VerifyConnectivity(verifyCtx); err != nil {
		_ = driver.Close(ctx)
		return nil, &common.PersistenceError{Op: "connect", Err: err}
	}

	s := &GraphNeo4jStore{
		driver:    driver,
		database:  params.Database,
		batchSize: int(util.GetEnvNumeric("GRAPH_STORE_BATCH_SIZE", 200)),
		maxTries:  int(util.GetEnvNumeric("GRAPH_STORE_MAX_TRIES", 3)),
	}

	if err := s.ensureConstraints(ctx); err != nil {
		_ = driver.Close(ctx)
		return nil, err
	}

	return s, nil
}

// Close releases the underlying driver.
func (s *GraphNeo4jStore) Close(ctx context.Context) error {
	return s.driver.Close(ctx)
}

func (s *GraphNeo4jStore) ensureConstraints(ctx context.Context) error {
	session := s.newSession(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	for _, label := range []string{
		store.LabelConversation, store.LabelSpeaker, store.LabelSegment, store.LabelTopic, store.LabelEntity,
	} {
		query := fmt.Sprintf(
			"CREATE CONSTRAINT %s_key_unique IF NOT EXISTS FOR (n:%s) REQUIRE n.key IS UNIQUE",
			strings.ToLower(label), label,
		)
		res, err := session.Run(ctx, query, nil)
		if err != nil {
			return &common.PersistenceError{Op: "ensure_constraints", Err: err}
		}
		if _, err := res.Consume(ctx); err != nil {
			return &common.PersistenceError{Op: "ensure_constraints", Err: err}
		}
	}

	return nil
}

func (s *GraphNeo4jStore) newSession(ctx context.Context, mode neo4j.AccessMode) neo4j.SessionWithContext {
	return s.driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   mode,
		DatabaseName: s.database,
	})
}

func (s *GraphNeo4jStore) UpsertNodes(ctx context.Context, nodes []store.Node) (int, error) {
	for _, node := range nodes {
		if !store.ValidLabel(node.Label) {
			return 0, &common.PersistenceError{
				Op:  "upsert_nodes",
				Err: fmt.Errorf("unknown node label %q", node.Label),
			}
		}
	}

	session := s.newSession(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	created := 0
	for chunk := range chunked(nodes, s.batchSize) {
		byLabel := map[string][]map[string]any{}
		for _, node := range chunk {
			byLabel[node.Label] = append(byLabel[node.Label], map[string]any{
				"key":   node.Key,
				"props": node.Props,
			})
		}

		chunkCreated, err := util.RetryWithContext(ctx, s.maxTries, func(ctx context.Context) (int, error) {
			result, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
				total := 0
				for _, label := range sortedKeys(byLabel) {
					query := fmt.Sprintf(`
UNWIND $nodes AS n
MERGE (x:%s {key: n.key})
SET x += n.props
`, label)
					res, err := tx.Run(ctx, query, map[string]any{"nodes": byLabel[label]})
					if err != nil {
						return nil, err
					}
					summary, err := res.Consume(ctx)
					if err != nil {
						return nil, err
					}
					total += summary.Counters().NodesCreated()
				}
				return total, nil
			})
			if err != nil {
				return 0, err
			}
			return result.(int), nil
		})
		if err != nil {
			return created, &common.PersistenceError{Op: "upsert_nodes", Err: err}
		}
		created += chunkCreated
	}

	return created, nil
}

// edgeGroup batches edges that share a generated query: same type, merge
// strategy, endpoint labels and property key set.
type edgeGroup struct {
	edgeType  string
	merge     store.MergeStrategy
	fromLabel string
	toLabel   string
	propKeys  []string
}

func (s *GraphNeo4jStore) UpsertEdges(ctx context.Context, edges []store.Edge) (int, error) {
	for _, edge := range edges {
		if !store.ValidEdgeType(edge.Type) {
			return 0, &common.PersistenceError{
				Op:  "upsert_edges",
				Err: fmt.Errorf("unknown edge type %q", edge.Type),
			}
		}
		if !store.ValidLabel(edge.FromLabel) || !store.ValidLabel(edge.ToLabel) {
			return 0, &common.PersistenceError{
				Op:  "upsert_edges",
				Err: fmt.Errorf("edge %s has unknown endpoint labels %q -> %q", edge.Type, edge.FromLabel, edge.ToLabel),
			}
		}
		for key := range edge.Props {
			if !propNameRe.MatchString(key) {
				return 0, &common.PersistenceError{
					Op:  "upsert_edges",
					Err: fmt.Errorf("edge %s has invalid property name %q", edge.Type, key),
				}
			}
		}
	}

	session := s.newSession(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	created := 0
	for chunk := range chunked(edges, s.batchSize) {
		groups := map[string][]store.Edge{}
		meta := map[string]edgeGroup{}
		for _, edge := range chunk {
			group := edgeGroup{
				edgeType:  edge.Type,
				merge:     edge.Merge,
				fromLabel: edge.FromLabel,
				toLabel:   edge.ToLabel,
				propKeys:  sortedKeys(edge.Props),
			}
			id := fmt.Sprintf("%s|%s|%s|%s|%s", group.edgeType, group.merge, group.fromLabel, group.toLabel, strings.Join(group.propKeys, ","))
			groups[id] = append(groups[id], edge)
			meta[id] = group
		}

		chunkCreated, err := util.RetryWithContext(ctx, s.maxTries, func(ctx context.Context) (int, error) {
			result, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
				total := 0
				for _, id := range sortedKeys(groups) {
					group := meta[id]
					query, err := edgeQuery(group)
					if err != nil {
						return nil, err
					}

					batch := make([]map[string]any, 0, len(groups[id]))
					for _, edge := range groups[id] {
						batch = append(batch, map[string]any{
							"from":  edge.FromKey,
							"to":    edge.ToKey,
							"props": edge.Props,
						})
					}

					res, err := tx.Run(ctx, query, map[string]any{"edges": batch})
					if err != nil {
						return nil, err
					}
					summary, err := res.Consume(ctx)
					if err != nil {
						return nil, err
					}
					total += summary.Counters().RelationshipsCreated()
				}
				return total, nil
			})
			if err != nil {
				return 0, err
			}
			return result.(int), nil
		})
		if err != nil {
			return created, &common.PersistenceError{Op: "upsert_edges", Err: err}
		}
		created += chunkCreated
	}

	return created, nil
}

// edgeQuery generates the merge query for one edge group. Labels, edge
// types and property names are vetted against closed sets before they are
// interpolated; keys and values travel as parameters.
func edgeQuery(group edgeGroup) (string, error) {
	switch group.merge {
	case store.MergeReplace:
		return fmt.Sprintf(`
UNWIND $edges AS e
MATCH (a:%s {key: e.from})
OPTIONAL MATCH (a)-[stale:%s]->(other) WHERE other.key <> e.to
DELETE stale
WITH DISTINCT e, a
MATCH (b:%s {key: e.to})
MERGE (a)-[r:%s]->(b)
SET r = e.props
`, group.fromLabel, group.edgeType, group.toLabel, group.edgeType), nil
	case store.MergeIncrement:
		var clauses []string
		for _, key := range group.propKeys {
			clauses = append(clauses, fmt.Sprintf("r.%s = coalesce(r.%s, 0) + e.props.%s", key, key, key))
		}
		onMatch := ""
		if len(clauses) > 0 {
			onMatch = "ON MATCH SET " + strings.Join(clauses, ", ")
		}
		return fmt.Sprintf(`
UNWIND $edges AS e
MATCH (a:%s {key: e.from})
MATCH (b:%s {key: e.to})
MERGE (a)-[r:%s]->(b)
ON CREATE SET r = e.props
%s
`, group.fromLabel, group.toLabel, group.edgeType, onMatch), nil
	case store.MergeUnion:
		var clauses []string
		for _, key := range group.propKeys {
			clauses = append(clauses, fmt.Sprintf(
				"r.%s = coalesce(r.%s, []) + [x IN e.props.%s WHERE NOT x IN coalesce(r.%s, [])]",
				key, key, key, key,
			))
		}
		onMatch := ""
		if len(clauses) > 0 {
			onMatch = "ON MATCH SET " + strings.Join(clauses, ", ")
		}
		return fmt.Sprintf(`
UNWIND $edges AS e
MATCH (a:%s {key: e.from})
MATCH (b:%s {key: e.to})
MERGE (a)-[r:%s]->(b)
ON CREATE SET r = e.props
%s
`, group.fromLabel, group.toLabel, group.edgeType, onMatch), nil
	default:
		return "", fmt.Errorf("unknown merge strategy %q", group.merge)
	}
}

func (s *GraphNeo4jStore) ReadSubgraph(ctx context.Context, rootKey string, maxHops int) (*store.Subgraph, error) {
	session := s.newSession(ctx, neo4j.AccessModeRead)
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		sub := &store.Subgraph{}

		nodeQuery := `
MATCH (root {key: $root})
RETURN labels(root)[0] AS label, root.key AS key, properties(root) AS props
`
		if maxHops > 0 {
			nodeQuery = fmt.Sprintf(`
MATCH (root {key: $root})
OPTIONAL MATCH (root)-[*1..%d]-(n)
WITH collect(DISTINCT root) + collect(DISTINCT n) AS all
UNWIND all AS node
WITH DISTINCT node
WHERE node IS NOT NULL
RETURN labels(node)[0] AS label, node.key AS key, properties(node) AS props
`, maxHops)
		}

		res, err := tx.Run(ctx, nodeQuery, map[string]any{"root": rootKey})
		if err != nil {
			return nil, err
		}
		for res.Next(ctx) {
			record := res.Record()
			sub.Nodes = append(sub.Nodes, store.Node{
				Key:   recordString(record, "key"),
				Label: recordString(record, "label"),
				Props: recordProps(record),
			})
		}
		if err := res.Err(); err != nil {
			return nil, err
		}
		if len(sub.Nodes) == 0 {
			return nil, fmt.Errorf("node %s not found", rootKey)
		}

		if maxHops > 0 {
			edgeQuery := fmt.Sprintf(`
MATCH (root {key: $root})
MATCH p = (root)-[*1..%d]-()
UNWIND relationships(p) AS rel
WITH DISTINCT rel
RETURN type(rel) AS type,
       startNode(rel).key AS from, labels(startNode(rel))[0] AS fromLabel,
       endNode(rel).key AS to, labels(endNode(rel))[0] AS toLabel,
       properties(rel) AS props
`, maxHops)
			res, err = tx.Run(ctx, edgeQuery, map[string]any{"root": rootKey})
			if err != nil {
				return nil, err
			}
			for res.Next(ctx) {
				record := res.Record()
				sub.Edges = append(sub.Edges, store.Edge{
					FromKey:   recordString(record, "from"),
					FromLabel: recordString(record, "fromLabel"),
					ToKey:     recordString(record, "to"),
					ToLabel:   recordString(record, "toLabel"),
					Type:      recordString(record, "type"),
					Props:     recordProps(record),
				})
			}
			if err := res.Err(); err != nil {
				return nil, err
			}
		}

		return sub, nil
	})
	if err != nil {
		return nil, &common.PersistenceError{Op: "read_subgraph", Err: err}
	}

	return result.(*store.Subgraph), nil
}

func recordString(record *neo4j.Record, key string) string {
	value, ok := record.Get(key)
	if !ok {
		return ""
	}
	s, _ := value.(string)
	return s
}

func recordProps(record *neo4j.Record) map[string]any {
	value, ok := record.Get("props")
	if !ok {
		return map[string]any{}
	}
	props, _ := value.(map[string]any)
	// The node key is modeled as a field, not a property.
	delete(props, "key")
	return props
}

func chunked[T any](items []T, size int) func(func([]T) bool) {
	if size <= 0 {
		size = len(items)
	}
	return func(yield func([]T) bool) {
		for start := 0; start < len(items); start += size {
			end := min(start+size, len(items))
			if !yield(items[start:end]) {
				return
			}
		}
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
