package queue

import (
	"github.com/parley-ai/parley/backend/pkg/common"
)

// QueueConversationMsg asks the worker to derive the knowledge graph for
// one conversation. CorrelationID ties the message to its bookkeeping run.
type QueueConversationMsg struct {
	Message        string              `json:"message"`
	ConversationID string              `json:"conversation_id"`
	CorrelationID  string              `json:"correlation_id"`
	Segments       []common.RawSegment `json:"segments"`
}
