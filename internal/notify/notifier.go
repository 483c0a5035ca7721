package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/rahulm/onebox/pkg/types"
)

const snippetLen = 100

// Notifier fires side-effect notifications for qualifying classifications.
// Both destinations are optional; an unconfigured one is a silent no-op.
type Notifier struct {
	slackURL   string
	webhookURL string
	client     *http.Client
	logger     *logrus.Logger
}

// New creates a Notifier. Empty URLs disable the corresponding destination.
func New(slackURL, webhookURL string, logger *logrus.Logger) *Notifier {
	return &Notifier{
		slackURL:   slackURL,
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: 10 * time.Second},
		logger:     logger,
	}
}

// NotifyInterested fires the chat alert and the generic webhook for a
// just-classified document, concurrently and failure-isolated: each call
// runs on its own goroutine and a failed one never suppresses the other.
// It returns once both calls have settled. Failures are logged and dropped;
// there are no retries.
func (n *Notifier) NotifyInterested(ctx context.Context, doc types.EmailDocument) {
	var wg sync.WaitGroup

	wg.Add(2)
	go func() {
		defer wg.Done()
		if err := n.sendSlack(ctx, doc); err != nil {
			n.logger.WithError(err).WithField("subject", doc.Subject).Error("Failed to send chat alert")
		}
	}()
	go func() {
		defer wg.Done()
		if err := n.sendWebhook(ctx, doc); err != nil {
			n.logger.WithError(err).WithField("subject", doc.Subject).Error("Failed to trigger webhook")
		}
	}()

	wg.Wait()
}

func (n *Notifier) sendSlack(ctx context.Context, doc types.EmailDocument) error {
	if n.slackURL == "" {
		return nil
	}

	payload := map[string]string{
		"text": fmt.Sprintf(
			"*New Interested Email Received*\n*Subject:* %s\n*From:* %s\n*To:* %s\n*Date:* %s\n*Snippet:* %s...",
			doc.Subject, doc.From, doc.To, doc.Date.Format(time.RFC1123Z), snippet(doc.Text),
		),
	}
	return n.post(ctx, n.slackURL, payload)
}

func (n *Notifier) sendWebhook(ctx context.Context, doc types.EmailDocument) error {
	if n.webhookURL == "" {
		return nil
	}

	payload := map[string]string{
		"subject": doc.Subject,
		"from":    doc.From,
		"body":    doc.Text,
		"date":    doc.Date.Format(time.RFC3339),
	}
	return n.post(ctx, n.webhookURL, payload)
}

func (n *Notifier) post(ctx context.Context, url string, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshaling payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("posting notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("notification endpoint returned %d", resp.StatusCode)
	}
	return nil
}

func snippet(text string) string {
	runes := []rune(text)
	if len(runes) > snippetLen {
		return string(runes[:snippetLen])
	}
	return text
}
