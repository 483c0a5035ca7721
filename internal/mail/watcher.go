package mail

import (
	"context"
	"sync"
	"time"

	"github.com/emersion/go-imap"
	imapclient "github.com/emersion/go-imap/client"
	"github.com/sirupsen/logrus"

	"github.com/rahulm/onebox/internal/config"
)

// Ingestor receives raw messages from the watcher. Implemented by the
// ingestion pipeline.
type Ingestor interface {
	IngestRaw(ctx context.Context, raw []byte, accountID, folder string, internalDate time.Time, categorize bool) error
}

// Watcher runs one supervised sync lifecycle per configured account: a
// bounded historical backfill followed by a persistent IDLE loop. Each
// account owns its own connection and goroutine; one account's failure
// never affects the others. A lifecycle that ends is not restarted.
type Watcher struct {
	accounts    []config.AccountConfig
	pipeline    Ingestor
	window      time.Duration
	maxBackfill int
	logger      *logrus.Logger
	wg          sync.WaitGroup
}

// NewWatcher creates a Watcher over the given accounts.
func NewWatcher(accounts []config.AccountConfig, pipeline Ingestor, window time.Duration, maxBackfill int, logger *logrus.Logger) *Watcher {
	return &Watcher{
		accounts:    accounts,
		pipeline:    pipeline,
		window:      window,
		maxBackfill: maxBackfill,
		logger:      logger,
	}
}

// Start launches the account lifecycles and returns immediately.
func (w *Watcher) Start(ctx context.Context) {
	for _, acc := range w.accounts {
		w.wg.Add(1)
		go func(acc config.AccountConfig) {
			defer w.wg.Done()
			w.runAccount(ctx, acc)
		}(acc)
	}
	w.logger.WithField("accounts", len(w.accounts)).Info("IMAP sync initialized for all accounts")
}

// Wait blocks until every account lifecycle has ended.
func (w *Watcher) Wait() {
	w.wg.Wait()
}

func (w *Watcher) runAccount(ctx context.Context, acc config.AccountConfig) {
	log := w.logger.WithField("account", acc.ID)

	client := NewClient(acc, w.logger)
	if err := client.Dial(); err != nil {
		log.WithError(err).Error("Failed to connect account")
		return
	}
	defer client.Close()

	mbox, err := client.SelectInbox()
	if err != nil {
		log.WithError(err).Error("Failed to open mailbox")
		return
	}
	known := mbox.Messages

	if err := w.backfill(ctx, client, acc); err != nil {
		log.WithError(err).Error("Backfill failed")
	}

	w.live(ctx, client, acc, known)
	log.Info("Account sync lifecycle ended")
}

// backfill streams the recent history into the pipeline with classification
// disabled. Per-message failures are logged and skipped.
func (w *Watcher) backfill(ctx context.Context, client *Client, acc config.AccountConfig) error {
	log := w.logger.WithField("account", acc.ID)

	since := time.Now().Add(-w.window)
	seqs, err := client.SearchSince(since)
	if err != nil {
		return err
	}
	if len(seqs) == 0 {
		log.Info("No messages in backfill window")
		return nil
	}
	if w.maxBackfill > 0 && len(seqs) > w.maxBackfill {
		// Keep the newest messages when capping startup cost.
		seqs = seqs[len(seqs)-w.maxBackfill:]
	}

	seqSet := new(imap.SeqSet)
	seqSet.AddNum(seqs...)

	raws, err := client.Fetch(seqSet)
	if err != nil {
		return err
	}

	for _, raw := range raws {
		if err := w.pipeline.IngestRaw(ctx, raw.Body, acc.ID, "INBOX", raw.InternalDate, false); err != nil {
			log.WithError(err).WithField("seq", raw.SeqNum).Warn("Failed to ingest backfilled message")
		}
	}

	log.WithField("count", len(raws)).Info("Backfill complete")
	return nil
}

// live re-arms a blocking IDLE wait until the connection stops being
// usable. On each mailbox growth event it fetches exactly the new sequence
// positions and ingests them with classification enabled.
func (w *Watcher) live(ctx context.Context, client *Client, acc config.AccountConfig, known uint32) {
	log := w.logger.WithField("account", acc.ID)
	updates := client.Updates(64)
	log.Info("Entering persistent IDLE")

	for {
		stop := make(chan struct{})
		done := make(chan error, 1)
		go func() {
			done <- client.Idle(stop)
		}()

		var newest uint32
		idleEnded := false

	waitLoop:
		for {
			select {
			case upd := <-updates:
				mu, ok := upd.(*imapclient.MailboxUpdate)
				if !ok || mu.Mailbox == nil {
					continue
				}
				switch {
				case mu.Mailbox.Messages > known:
					newest = mu.Mailbox.Messages
					break waitLoop
				case mu.Mailbox.Messages < known:
					// Expunge shrank the mailbox; track the new count.
					known = mu.Mailbox.Messages
				}
			case err := <-done:
				if err != nil {
					log.WithError(err).Error("IDLE wait failed")
					return
				}
				idleEnded = true
				break waitLoop
			case <-ctx.Done():
				close(stop)
				<-done
				return
			}
		}

		if !idleEnded {
			close(stop)
			if err := <-done; err != nil {
				log.WithError(err).Error("IDLE wait failed")
				return
			}
		}

		for seq := known + 1; seq <= newest; seq++ {
			w.fetchAndIngest(ctx, client, acc, seq)
		}
		if newest > known {
			known = newest
		}
	}
}

// fetchAndIngest handles one new-message event: fetch the message at its
// sequence position and hand it to the pipeline with classification
// enabled. Failures are logged; the live loop continues.
func (w *Watcher) fetchAndIngest(ctx context.Context, client *Client, acc config.AccountConfig, seq uint32) {
	log := w.logger.WithFields(logrus.Fields{"account": acc.ID, "seq": seq})
	log.Info("New mail event")

	seqSet := new(imap.SeqSet)
	seqSet.AddNum(seq)

	raws, err := client.Fetch(seqSet)
	if err != nil {
		log.WithError(err).Error("Failed to fetch new message")
		return
	}

	for _, raw := range raws {
		if err := w.pipeline.IngestRaw(ctx, raw.Body, acc.ID, "INBOX", raw.InternalDate, true); err != nil {
			log.WithError(err).Warn("Failed to ingest new message")
		}
	}
}
