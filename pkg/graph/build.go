package graph

import (
	"crypto/md5"
	"encoding/hex"
	"sort"
	"strings"

	"github.com/parley-ai/parley/backend/pkg/common"
	"github.com/parley-ai/parley/backend/pkg/extract"
	"github.com/parley-ai/parley/backend/pkg/store"
)

// Deterministic node keys. Deriving the same conversation twice produces
// the same keys, which is what makes re-persisting idempotent.

// ConversationKey returns the node key for a conversation.
func ConversationKey(conversationID string) string {
	return "conv_" + conversationID
}

// SpeakerKey returns the node key for a speaker within a conversation.
// Speakers are conversation-scoped: the same label in another conversation
// is a different node.
func SpeakerKey(conversationID, speakerID string) string {
	return "speaker_" + shortHash(conversationID+"|"+speakerID)
}

// TopicKey returns the node key for a topic. Topics are global: the same
// normalized name and category in any conversation is the same node.
func TopicKey(name, category string) string {
	return "topic_" + shortHash(strings.ToLower(name)+"|"+category)
}

// EntityKey returns the node key for an entity. Entities are global,
// identified by normalized value and type.
func EntityKey(value, entityType string) string {
	return "entity_" + shortHash(strings.ToLower(value)+"|"+entityType)
}

func shortHash(v string) string {
	sum := md5.Sum([]byte(v))
	return hex.EncodeToString(sum[:])[:12]
}

// buildGraph derives the nodes and edges for one conversation from its
// normalized segments and the merged extraction result. Nodes come before
// the edges that reference them; both are deterministically ordered.
func buildGraph(conversationID string, segments []common.Segment, result *extract.Result) ([]store.Node, []store.Edge) {
	ordered := make([]common.Segment, len(segments))
	copy(ordered, segments)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Index < ordered[j].Index })

	sentimentByIndex := map[int]common.SentimentScore{}
	for _, s := range result.Sentiments {
		sentimentByIndex[s.SegmentIndex] = s
	}
	speakerByIndex := map[int]string{}
	for _, s := range ordered {
		speakerByIndex[s.Index] = s.SpeakerID
	}

	convKey := ConversationKey(conversationID)
	var nodes []store.Node
	var edges []store.Edge

	// Conversation node with its speaking statistics.
	speakingTime := map[string]float64{}
	turnCount := map[string]int{}
	totalDuration := 0.0
	for _, s := range ordered {
		speakingTime[s.SpeakerID] += s.Duration()
		turnCount[s.SpeakerID]++
		totalDuration += s.Duration()
	}
	nodes = append(nodes, store.Node{
		Key:   convKey,
		Label: store.LabelConversation,
		Props: map[string]any{
			"conversation_id": conversationID,
			"segment_count":   len(ordered),
			"speaker_count":   len(speakingTime),
			"duration":        totalDuration,
		},
	})

	// Speaker nodes and their SPEAKS_IN statistics.
	speakers := sortedStringKeys(speakingTime)
	for _, speakerID := range speakers {
		key := SpeakerKey(conversationID, speakerID)
		nodes = append(nodes, store.Node{
			Key:   key,
			Label: store.LabelSpeaker,
			Props: map[string]any{
				"speaker_id":      speakerID,
				"conversation_id": conversationID,
			},
		})
		edges = append(edges, store.Edge{
			FromKey: key, FromLabel: store.LabelSpeaker,
			ToKey: convKey, ToLabel: store.LabelConversation,
			Type:  store.EdgeSpeaksIn,
			Merge: store.MergeReplace,
			Props: map[string]any{
				"speaking_time": speakingTime[speakerID],
				"turn_count":    turnCount[speakerID],
			},
		})
	}

	// Segment nodes carry their sentiment, and each segment is PART_OF the
	// conversation and FOLLOWS its predecessor.
	for i, s := range ordered {
		props := map[string]any{
			"index":      s.Index,
			"speaker_id": s.SpeakerID,
			"start_time": s.StartTime,
			"end_time":   s.EndTime,
			"text":       s.Text,
		}
		if sentiment, ok := sentimentByIndex[s.Index]; ok {
			props["sentiment_label"] = sentiment.Label
			props["sentiment_score"] = sentiment.Score
			props["sentiment_intensity"] = sentiment.Intensity
		}
		nodes = append(nodes, store.Node{Key: s.ID, Label: store.LabelSegment, Props: props})

		edges = append(edges, store.Edge{
			FromKey: s.ID, FromLabel: store.LabelSegment,
			ToKey: convKey, ToLabel: store.LabelConversation,
			Type:  store.EdgePartOf,
			Merge: store.MergeReplace,
			Props: map[string]any{},
		})
		if i > 0 {
			edges = append(edges, store.Edge{
				FromKey: ordered[i-1].ID, FromLabel: store.LabelSegment,
				ToKey: s.ID, ToLabel: store.LabelSegment,
				Type:  store.EdgeFollows,
				Merge: store.MergeReplace,
				Props: map[string]any{},
			})
		}
	}

	// Topic nodes and per-speaker DISCUSSES weights.
	type topicIdentity struct{ name, category string }
	topics := map[string]topicIdentity{}
	discusses := map[[2]string]float64{}
	for _, mention := range result.Topics {
		key := TopicKey(mention.Name, mention.Category)
		topics[key] = topicIdentity{name: strings.ToLower(mention.Name), category: mention.Category}

		speakerID := mention.SpeakerID
		if speakerID == "" {
			speakerID = speakerByIndex[mention.SegmentIndex]
		}
		discusses[[2]string{SpeakerKey(conversationID, speakerID), key}]++
	}
	for _, key := range sortedStringKeys(topics) {
		nodes = append(nodes, store.Node{
			Key:   key,
			Label: store.LabelTopic,
			Props: map[string]any{
				"name":     topics[key].name,
				"category": topics[key].category,
			},
		})
	}
	for _, pair := range sortedPairKeys(discusses) {
		edges = append(edges, store.Edge{
			FromKey: pair[0], FromLabel: store.LabelSpeaker,
			ToKey: pair[1], ToLabel: store.LabelTopic,
			Type:  store.EdgeDiscusses,
			Merge: store.MergeIncrement,
			Props: map[string]any{"weight": discusses[pair]},
		})
	}

	// Entity nodes and one MENTIONS edge per mentioning segment. The union
	// of speaker ids makes re-persisting the same mention a no-op.
	type entityIdentity struct{ value, entityType string }
	entities := map[string]entityIdentity{}
	mentions := map[[2]string]map[string]bool{}
	for _, mention := range result.Entities {
		key := EntityKey(mention.Value, mention.Type)
		entities[key] = entityIdentity{value: mention.Value, entityType: mention.Type}

		pair := [2]string{common.SegmentID(conversationID, mention.SegmentIndex), key}
		if mentions[pair] == nil {
			mentions[pair] = map[string]bool{}
		}
		mentions[pair][speakerByIndex[mention.SegmentIndex]] = true
	}
	for _, key := range sortedStringKeys(entities) {
		nodes = append(nodes, store.Node{
			Key:   key,
			Label: store.LabelEntity,
			Props: map[string]any{
				"value": entities[key].value,
				"type":  entities[key].entityType,
			},
		})
	}
	for _, pair := range sortedPairKeys(mentions) {
		edges = append(edges, store.Edge{
			FromKey: pair[0], FromLabel: store.LabelSegment,
			ToKey: pair[1], ToLabel: store.LabelEntity,
			Type:  store.EdgeMentions,
			Merge: store.MergeUnion,
			Props: map[string]any{"speaker_ids": sortedStringKeys(mentions[pair])},
		})
	}

	// SPEAKS_TO counts are undirected: the pair is ordered canonically so
	// both directions land on the same edge.
	speaksTo := map[[2]string]int{}
	for _, interaction := range result.Interactions {
		a := SpeakerKey(conversationID, interaction.FromSpeaker)
		b := SpeakerKey(conversationID, interaction.ToSpeaker)
		if a == b {
			continue
		}
		if a > b {
			a, b = b, a
		}
		speaksTo[[2]string{a, b}]++
	}
	for _, pair := range sortedPairKeys(speaksTo) {
		edges = append(edges, store.Edge{
			FromKey: pair[0], FromLabel: store.LabelSpeaker,
			ToKey: pair[1], ToLabel: store.LabelSpeaker,
			Type:  store.EdgeSpeaksTo,
			Merge: store.MergeIncrement,
			Props: map[string]any{"count": speaksTo[pair]},
		})
	}

	return nodes, edges
}

func sortedStringKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func sortedPairKeys[V any](m map[[2]string]V) [][2]string {
	keys := make([][2]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i][0] != keys[j][0] {
			return keys[i][0] < keys[j][0]
		}
		return keys[i][1] < keys[j][1]
	})
	return keys
}
