package transcript

import (
	"github.com/parley-ai/parley/backend/internal/util"
	"github.com/parley-ai/parley/backend/pkg/common"
	"github.com/parley-ai/parley/backend/pkg/logger"
)

// UnknownSpeaker is assigned when the transcription service delivers a
// segment without a speaker label.
const UnknownSpeaker = "unknown"

// Normalize converts raw per-speaker transcript segments into the canonical
// ordered Segment sequence for one conversation. Indexes are zero-based over
// the accepted segments and IDs are derived from (conversation_id, index),
// so normalizing the same transcript twice yields identical segments.
//
// Malformed segments (end before start, empty text after trimming, start
// time going backwards relative to the previously accepted segment) are
// skipped and reported, never fatal to the conversation.
func Normalize(conversationID string, raw []common.RawSegment) ([]common.Segment, []*common.ValidationError) {
	segments := make([]common.Segment, 0, len(raw))
	skipped := make([]*common.ValidationError, 0)

	lastStart := -1.0
	for i, r := range raw {
		text := util.CollapseWhitespace(util.SanitizeText(r.Text))

		var reason string
		switch {
		case r.EndTime < r.StartTime:
			reason = "end_time before start_time"
		case text == "":
			reason = "empty text"
		case r.StartTime < lastStart:
			reason = "non-monotonic start_time"
		}

		if reason != "" {
			verr := &common.ValidationError{
				ConversationID: conversationID,
				Index:          i,
				Reason:         reason,
			}
			logger.Warn("[Transcript] Skipping segment", "conversation_id", conversationID, "raw_index", i, "reason", reason)
			skipped = append(skipped, verr)
			continue
		}

		speakerID := util.CollapseWhitespace(r.SpeakerLabel)
		if speakerID == "" {
			speakerID = UnknownSpeaker
		}

		index := len(segments)
		segments = append(segments, common.Segment{
			ID:             common.SegmentID(conversationID, index),
			ConversationID: conversationID,
			Index:          index,
			SpeakerID:      speakerID,
			StartTime:      r.StartTime,
			EndTime:        r.EndTime,
			Text:           text,
		})
		lastStart = r.StartTime
	}

	return segments, skipped
}
