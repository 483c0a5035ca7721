package ingest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/rahulm/onebox/internal/index"
	"github.com/rahulm/onebox/internal/mail"
	"github.com/rahulm/onebox/pkg/types"
)

// Classifier is the single-message classification entry point used for
// live-arrival triage.
type Classifier interface {
	ClassifyOne(ctx context.Context, id, text string) (types.Label, error)
}

// Notifier fires the side-effect calls for a qualifying classification.
type Notifier interface {
	NotifyInterested(ctx context.Context, doc types.EmailDocument)
}

// Pipeline dedups incoming messages into the search index and dispatches
// classification for live arrivals.
type Pipeline struct {
	index      *index.Index
	classifier Classifier
	notifier   Notifier
	logger     *logrus.Logger
	tasks      sync.WaitGroup
}

// New creates a Pipeline.
func New(ix *index.Index, classifier Classifier, notifier Notifier, logger *logrus.Logger) *Pipeline {
	return &Pipeline{
		index:      ix,
		classifier: classifier,
		notifier:   notifier,
		logger:     logger,
	}
}

// IngestRaw normalizes a raw payload and ingests it. The transport-supplied
// internalDate fills in for a missing or unparsable Date header.
func (p *Pipeline) IngestRaw(ctx context.Context, raw []byte, accountID, folder string, internalDate time.Time, categorize bool) error {
	doc, err := mail.Normalize(raw, accountID, folder)
	if err != nil {
		return err
	}
	if doc.Date.IsZero() {
		doc.Date = internalDate
	}
	return p.Ingest(ctx, doc, categorize)
}

// Ingest writes a normalized document into the index unless a document with
// the same protocol message id already exists. When categorize is set, the
// new document is submitted for classification on an independent task; the
// call returns without waiting on the classification outcome, and a failed
// classification surfaces only in the log.
func (p *Pipeline) Ingest(ctx context.Context, doc types.EmailDocument, categorize bool) error {
	existing, err := p.index.FindByMessageID(doc.MessageID)
	if err != nil {
		return fmt.Errorf("checking for duplicate: %w", err)
	}
	if existing != "" {
		p.logger.WithFields(logrus.Fields{
			"messageId": doc.MessageID,
			"account":   doc.AccountID,
		}).Debug("Skipping duplicate message")
		return nil
	}

	id, err := p.index.Insert(doc)
	if err != nil {
		return fmt.Errorf("indexing message: %w", err)
	}
	p.logger.WithFields(logrus.Fields{
		"id":      id,
		"subject": doc.Subject,
	}).Info("Indexed email")

	if categorize {
		doc.ID = id
		p.submitClassify(doc)
	}
	return nil
}

// Wait blocks until all submitted classification tasks have settled. Used
// on shutdown.
func (p *Pipeline) Wait() {
	p.tasks.Wait()
}

func (p *Pipeline) submitClassify(doc types.EmailDocument) {
	p.tasks.Add(1)
	go func() {
		defer p.tasks.Done()
		p.classifyAndNotify(doc)
	}()
}

// classifyAndNotify runs the single-message classification for a live
// arrival and, on a qualifying label, fires the notification fan-out. It
// runs detached from the ingesting call's context: classification outlives
// the ingest and has no cancellation path.
func (p *Pipeline) classifyAndNotify(doc types.EmailDocument) {
	ctx := context.Background()
	log := p.logger.WithFields(logrus.Fields{"id": doc.ID, "subject": doc.Subject})

	label, err := p.classifier.ClassifyOne(ctx, doc.ID, doc.Text)
	if err != nil {
		log.WithError(err).Error("Classification failed")
		return
	}
	log.WithField("label", label).Info("Categorized email")

	if label != types.LabelInterested {
		return
	}

	doc.Category = label
	p.notifier.NotifyInterested(ctx, doc)
}
