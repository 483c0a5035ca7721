package classify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/rahulm/onebox/internal/index"
	"github.com/rahulm/onebox/internal/llm"
	"github.com/rahulm/onebox/pkg/types"
)

// PromptConfig carries the label set the model is restricted to. It is
// passed in at construction; the classifier holds no lazily-built state.
type PromptConfig struct {
	Labels []types.Label
}

// DefaultPromptConfig returns the fixed label set.
func DefaultPromptConfig() PromptConfig {
	return PromptConfig{Labels: types.Labels}
}

func (p PromptConfig) labelList() string {
	names := make([]string, len(p.Labels))
	for i, l := range p.Labels {
		names[i] = string(l)
	}
	return strings.Join(names, ", ")
}

// Classifier labels email documents using the generative model and persists
// the resulting category into the search index.
type Classifier struct {
	model  llm.Client
	index  *index.Index
	prompt PromptConfig
	logger *logrus.Logger
}

// New creates a Classifier.
func New(model llm.Client, ix *index.Index, prompt PromptConfig, logger *logrus.Logger) *Classifier {
	return &Classifier{
		model:  model,
		index:  ix,
		prompt: prompt,
		logger: logger,
	}
}

// ClassifyOne labels a single document. It makes exactly one model call,
// persists a valid label via upsert, and returns it. A model response
// outside the label set is treated as Uncategorized and not persisted.
func (c *Classifier) ClassifyOne(ctx context.Context, id, text string) (types.Label, error) {
	cleaned := PrepareContent(text)
	prompt := fmt.Sprintf(`Classify this email into one of these categories:
%s.
Respond with only the category name.

Email:
%s`, c.prompt.labelList(), cleaned)

	out, err := c.model.Generate(ctx, prompt)
	if err != nil {
		return types.LabelUncategorized, fmt.Errorf("classifying email: %w", err)
	}

	label, ok := types.ParseLabel(out)
	if !ok {
		c.logger.WithFields(logrus.Fields{
			"id":       id,
			"response": strings.TrimSpace(out),
		}).Warn("Model returned unusable label")
		return types.LabelUncategorized, nil
	}

	if err := c.index.UpsertCategory(id, label); err != nil {
		return label, fmt.Errorf("persisting category: %w", err)
	}
	return label, nil
}

// ClassifyBatch labels a set of documents with a single model call. The
// response must be a JSON array of {id, category} pairs; an unusable
// response degrades to an empty result with no documents mutated. Valid
// non-sentinel labels are persisted via upsert.
func (c *Classifier) ClassifyBatch(ctx context.Context, items []types.EmailText) ([]types.ClassifiedEmail, error) {
	if len(items) == 0 {
		return nil, nil
	}

	var sb strings.Builder
	for i, item := range items {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString("ID:")
		sb.WriteString(item.ID)
		sb.WriteString("\n")
		sb.WriteString(PrepareContent(item.Text))
	}

	prompt := fmt.Sprintf(`Classify each email into one of:
%s.

Respond ONLY as valid JSON array like:
[{"id":"<id>","category":"<category>"}]

Emails:
%s`, c.prompt.labelList(), sb.String())

	out, err := c.model.Generate(ctx, prompt)
	if err != nil {
		c.logger.WithError(err).Error("Batch classification model call failed")
		return nil, nil
	}

	var parsed []types.ClassifiedEmail
	if err := json.Unmarshal([]byte(stripCodeFences(out)), &parsed); err != nil {
		c.logger.WithError(err).WithField("response", out).Error("Failed to parse batch model output")
		return nil, nil
	}

	results := make([]types.ClassifiedEmail, 0, len(parsed))
	for _, item := range parsed {
		label, ok := types.ParseLabel(string(item.Category))
		if !ok {
			continue
		}
		if err := c.index.UpsertCategory(item.ID, label); err != nil {
			c.logger.WithError(err).WithField("id", item.ID).Warn("Failed to persist batch label")
			continue
		}
		results = append(results, types.ClassifiedEmail{ID: item.ID, Category: label})
	}

	c.logger.WithField("count", len(results)).Info("Batch categorized emails")
	return results, nil
}

// stripCodeFences removes surrounding markdown code-fence markup that
// models wrap JSON output in.
func stripCodeFences(s string) string {
	s = strings.ReplaceAll(s, "```json", "")
	s = strings.ReplaceAll(s, "```", "")
	return strings.TrimSpace(s)
}
