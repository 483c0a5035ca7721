package types

import "time"

// EmailDocument is the canonical stored form of a synced email message.
// ID is assigned by the search index on insert and is distinct from the
// protocol MessageID, which is used only for deduplication.
type EmailDocument struct {
	ID        string    `json:"id"`
	MessageID string    `json:"messageId"`
	Subject   string    `json:"subject"`
	From      string    `json:"from"`
	To        string    `json:"to"`
	Date      time.Time `json:"date"`
	Text      string    `json:"text"`
	HTML      string    `json:"html,omitempty"`
	Folder    string    `json:"folder"`
	AccountID string    `json:"accountId"`
	Category  Label     `json:"category,omitempty"`
	AIReply   *AIReply  `json:"aiReply,omitempty"`
	IndexedAt time.Time `json:"indexedAt,omitempty"`
}

// AIReply is the generated reply sub-record attached to a document.
type AIReply struct {
	Text        string    `json:"text"`
	GeneratedAt time.Time `json:"generatedAt"`
}

// EmailText pairs a stored document id with its plain-text body, the unit
// of input for batch classification.
type EmailText struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// ClassifiedEmail is one entry of the model's batch classification output.
type ClassifiedEmail struct {
	ID       string `json:"id"`
	Category Label  `json:"category"`
}

// KnowledgePoint is a pre-seeded retrieval corpus entry in the vector store.
type KnowledgePoint struct {
	ID      int
	Vector  []float32
	Payload string
}

// ScoredPoint is a knowledge point returned from a similarity search.
type ScoredPoint struct {
	Payload string
	Score   float64
}
