package common

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
)

// RawSegment is one speaker-attributed span of transcript text as delivered
// by the transcription service. It carries no identity; identities are
// assigned during normalization.
type RawSegment struct {
	SpeakerLabel string  `json:"speaker_label"`
	StartTime    float64 `json:"start_time"`
	EndTime      float64 `json:"end_time"`
	Text         string  `json:"text"`
}

// Segment is a normalized transcript segment. Segments are immutable once
// normalized; Index is monotonically increasing per conversation and is the
// sole ordering key.
type Segment struct {
	ID             string  `json:"id"`
	ConversationID string  `json:"conversation_id"`
	Index          int     `json:"index"`
	SpeakerID      string  `json:"speaker_id"`
	StartTime      float64 `json:"start_time"`
	EndTime        float64 `json:"end_time"`
	Text           string  `json:"text"`
}

// Duration returns the length of the segment in seconds.
func (s Segment) Duration() float64 {
	return s.EndTime - s.StartTime
}

// TopicMention records that a segment discussed a topic. Name and Category
// together identify the topic; topics are shared across conversations.
type TopicMention struct {
	SegmentIndex int     `json:"segment_index"`
	SpeakerID    string  `json:"speaker_id"`
	Name         string  `json:"name"`
	Category     string  `json:"category"`
	Score        float64 `json:"score"`
}

// EntityMention records that a segment mentioned a typed entity value.
// Two segments mentioning the same value resolve to the same entity node.
type EntityMention struct {
	SegmentIndex int    `json:"segment_index"`
	Value        string `json:"value"`
	Type         string `json:"type"`
}

// SentimentScore is the sentiment of a single segment. Score is in [-1, 1],
// Intensity in [0, 1].
type SentimentScore struct {
	SegmentIndex int     `json:"segment_index"`
	Label        string  `json:"label"`
	Score        float64 `json:"score"`
	Intensity    float64 `json:"intensity"`
}

// Interaction records one speaker addressing another. Interactions are
// undirected pairs; the graph builder canonicalizes the speaker order so
// A→B and B→A accumulate on the same edge.
type Interaction struct {
	FromSpeaker string `json:"from_speaker"`
	ToSpeaker   string `json:"to_speaker"`
}

// SegmentID derives the deterministic segment identifier from the
// conversation and the segment's position. Reprocessing a conversation
// yields the same IDs, which is what makes segment upserts idempotent.
func SegmentID(conversationID string, index int) string {
	sum := md5.Sum(fmt.Appendf(nil, "%s:%d", conversationID, index))
	return "seg_" + hex.EncodeToString(sum[:])[:16]
}
