package extract

// TopicPrompt instructs the model to identify discussion topics in a batch
// of transcript segments. Placeholders: topic categories, segment listing.
const TopicPrompt = `You are analyzing a conversation transcript.
Identify the topics discussed in the following transcript segments.

Allowed topic categories: %s

Rules:
- Report at most one topic per segment.
- Use the segment index exactly as given in the listing.
- Only report a topic when the segment clearly discusses it.

Transcript segments:
%s`

// EntityPrompt instructs the model to identify typed entity values in a
// batch of transcript segments. Placeholders: entity types, segment listing.
const EntityPrompt = `You are analyzing a conversation transcript.
Extract entity values mentioned in the following transcript segments.

Allowed entity types: %s

Rules:
- Report the entity value exactly as it appears in the text.
- Use the segment index exactly as given in the listing.
- Report at most one entity per type per segment.

Transcript segments:
%s`

// SentimentPrompt instructs the model to score the sentiment of each
// segment in a batch. Placeholder: segment listing.
const SentimentPrompt = `You are analyzing a conversation transcript.
Score the sentiment of every one of the following transcript segments.

Rules:
- Label each segment positive, negative or neutral.
- Score is a number between -1.0 (very negative) and 1.0 (very positive).
- Intensity is a number between 0.0 (flat) and 1.0 (very emotional).
- Use the segment index exactly as given in the listing and score every segment once.

Transcript segments:
%s`

// RelationshipPrompt instructs the model to identify which speakers address
// each other in a batch of transcript segments. Placeholders: speaker list,
// segment listing.
const RelationshipPrompt = `You are analyzing a conversation transcript.
Identify which speakers are speaking to each other in the following transcript segments.

Known speakers: %s

Rules:
- Report one interaction per time a speaker directly responds to or addresses another.
- Only use speaker identifiers from the known speaker list.

Transcript segments:
%s`
