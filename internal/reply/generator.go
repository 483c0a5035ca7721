// Package reply implements retrieval-augmented reply drafting: the message
// is embedded, nearby knowledge snippets are retrieved from the vector
// store, and a grounded prompt produces a short professional reply that is
// persisted onto the document.
package reply

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/rahulm/onebox/internal/embedding"
	"github.com/rahulm/onebox/internal/index"
	"github.com/rahulm/onebox/internal/llm"
	"github.com/rahulm/onebox/internal/vector"
)

// contextSize is how many knowledge snippets ground the reply prompt.
const contextSize = 5

// Generator drafts replies to stored email documents.
type Generator struct {
	embedder *embedding.Embedder
	vectors  *vector.Store
	model    llm.Client
	index    *index.Index
	logger   *logrus.Logger
}

// New creates a Generator.
func New(embedder *embedding.Embedder, vectors *vector.Store, model llm.Client, ix *index.Index, logger *logrus.Logger) *Generator {
	return &Generator{
		embedder: embedder,
		vectors:  vectors,
		model:    model,
		index:    ix,
		logger:   logger,
	}
}

// Generate drafts a reply for the document with the given id and text,
// persists it as the document's reply sub-record, and returns it. Nothing
// is persisted when any step fails.
func (g *Generator) Generate(ctx context.Context, id, text string) (string, error) {
	snippets, err := g.retrieveContext(text)
	if err != nil {
		return "", fmt.Errorf("generating reply: %w", err)
	}

	prompt := fmt.Sprintf(`Email:
%s

Context:
%s

Instruction:
Write a short, polite, and professional reply using the context above.
Include the meeting links if relevant.`, text, strings.Join(snippets, "\n"))

	out, err := g.model.Generate(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("generating reply: %w", err)
	}
	replyText := strings.TrimSpace(out)

	if err := g.index.UpsertReply(id, replyText, time.Now().UTC()); err != nil {
		return "", fmt.Errorf("generating reply: %w", err)
	}

	g.logger.WithField("id", id).Info("Generated reply")
	return replyText, nil
}

// retrieveContext embeds the message text and collects the payloads of the
// nearest knowledge points.
func (g *Generator) retrieveContext(text string) ([]string, error) {
	vec := g.embedder.Embed(text)

	points, err := g.vectors.SearchNearest(vec, contextSize)
	if err != nil {
		return nil, fmt.Errorf("retrieving context: %w", err)
	}

	snippets := make([]string, 0, len(points))
	for _, p := range points {
		snippets = append(snippets, p.Payload)
	}
	return snippets, nil
}
