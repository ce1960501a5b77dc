package graph

import (
	"fmt"

	"github.com/pkoukk/tiktoken-go"

	"github.com/parley-ai/parley/backend/pkg/common"
	"github.com/parley-ai/parley/backend/pkg/extract"
)

const batchEncoder = "o200k_base"

// Batch is one unit of extraction work: a slice of the conversation's
// segments processed by a single extractor call. Numbers are 1-based and
// sequential within a category.
type Batch struct {
	Category extract.Category
	Number   int
	Segments []common.Segment
}

// makeBatches partitions the segments into batches of at most batchSize
// segments. When tokenBudget is positive, batches whose combined text
// exceeds the budget are split further so a single prompt never outgrows
// the model's context window. Segment order is preserved.
func makeBatches(category extract.Category, segments []common.Segment, batchSize int, tokenBudget int) ([]Batch, error) {
	if batchSize < 1 {
		return nil, fmt.Errorf("batch size %d for category %s is below 1", batchSize, category)
	}

	var chunks [][]common.Segment
	for start := 0; start < len(segments); start += batchSize {
		end := min(start+batchSize, len(segments))
		chunks = append(chunks, segments[start:end])
	}

	if tokenBudget > 0 {
		split, err := splitOverBudget(chunks, tokenBudget)
		if err != nil {
			return nil, err
		}
		chunks = split
	}

	batches := make([]Batch, 0, len(chunks))
	for i, chunk := range chunks {
		batches = append(batches, Batch{
			Category: category,
			Number:   i + 1,
			Segments: chunk,
		})
	}
	return batches, nil
}

// splitOverBudget re-chunks any segment group whose token count exceeds the
// budget. A single oversized segment stays alone in its chunk; truncating
// it is the model backend's concern.
func splitOverBudget(chunks [][]common.Segment, tokenBudget int) ([][]common.Segment, error) {
	encoding, err := tiktoken.GetEncoding(batchEncoder)
	if err != nil {
		return nil, fmt.Errorf("failed to load encoder %s: %w", batchEncoder, err)
	}

	var result [][]common.Segment
	for _, chunk := range chunks {
		var current []common.Segment
		used := 0
		for _, segment := range chunk {
			tokens := len(encoding.Encode(segment.Text, nil, nil))
			if len(current) > 0 && used+tokens > tokenBudget {
				result = append(result, current)
				current = nil
				used = 0
			}
			current = append(current, segment)
			used += tokens
		}
		if len(current) > 0 {
			result = append(result, current)
		}
	}
	return result, nil
}
