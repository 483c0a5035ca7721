package index

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/rahulm/onebox/pkg/types"
)

// ErrNotFound is returned when no document exists for the requested id.
var ErrNotFound = errors.New("document not found")

// Index is the searchable email document store.
type Index struct {
	db     *sql.DB
	logger *logrus.Logger
}

// New creates an Index over an open database.
func New(db *sql.DB, logger *logrus.Logger) *Index {
	return &Index{db: db, logger: logger}
}

// EnsureSchema provisions the index schema. Failure here is the one fatal
// startup condition of the store layer.
func (ix *Index) EnsureSchema() error {
	if _, err := ix.db.Exec(Schema); err != nil {
		return fmt.Errorf("failed to create index schema: %w", err)
	}
	return nil
}

// FindByMessageID returns the store-assigned id of the document with the
// given protocol message id, or "" when none exists.
func (ix *Index) FindByMessageID(messageID string) (string, error) {
	var id string
	err := ix.db.QueryRow("SELECT id FROM emails WHERE message_id = ? LIMIT 1", messageID).Scan(&id)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to look up message id: %w", err)
	}
	return id, nil
}

// Insert writes a new document and returns its store-assigned id.
func (ix *Index) Insert(doc types.EmailDocument) (string, error) {
	id := uuid.NewString()

	_, err := ix.db.Exec(`
		INSERT INTO emails (id, message_id, subject, sender, recipients, date, body_text, body_html, folder, account_id, category, indexed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id,
		doc.MessageID,
		doc.Subject,
		doc.From,
		doc.To,
		formatTime(doc.Date),
		doc.Text,
		doc.HTML,
		doc.Folder,
		doc.AccountID,
		string(doc.Category),
		formatTime(time.Now().UTC()),
	)
	if err != nil {
		return "", fmt.Errorf("failed to insert document: %w", err)
	}

	_, err = ix.db.Exec(`
		INSERT INTO emails_fts (doc_id, subject, sender, body_text)
		VALUES (?, ?, ?, ?)`,
		id, doc.Subject, doc.From, doc.Text,
	)
	if err != nil {
		return "", fmt.Errorf("failed to index document text: %w", err)
	}

	return id, nil
}

// Get retrieves a full document by its store-assigned id.
func (ix *Index) Get(id string) (*types.EmailDocument, error) {
	row := ix.db.QueryRow(`
		SELECT id, message_id, subject, sender, recipients, date, body_text, body_html, folder, account_id, category, reply_text, reply_generated_at, indexed_at
		FROM emails WHERE id = ?`, id)

	doc, err := scanDocument(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get document: %w", err)
	}
	return doc, nil
}

// UpsertCategory sets the document's category, creating a stub row when the
// document does not exist yet. Only the category column is touched.
func (ix *Index) UpsertCategory(id string, label types.Label) error {
	_, err := ix.db.Exec(`
		INSERT INTO emails (id, category) VALUES (?, ?)
		ON CONFLICT(id) DO UPDATE SET category = excluded.category`,
		id, string(label),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert category: %w", err)
	}
	return nil
}

// UpsertReply sets the document's generated reply sub-record, creating a
// stub row when the document does not exist yet. All other columns are
// preserved.
func (ix *Index) UpsertReply(id, text string, generatedAt time.Time) error {
	_, err := ix.db.Exec(`
		INSERT INTO emails (id, reply_text, reply_generated_at) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			reply_text = excluded.reply_text,
			reply_generated_at = excluded.reply_generated_at`,
		id, text, formatTime(generatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert reply: %w", err)
	}
	return nil
}

// Refresh forces pending index writes to full visibility. Callers that need
// read-after-write consistency after a batch of upserts invoke this
// explicitly.
func (ix *Index) Refresh() error {
	if _, err := ix.db.Exec("INSERT INTO emails_fts(emails_fts) VALUES('optimize')"); err != nil {
		return fmt.Errorf("failed to optimize text index: %w", err)
	}
	if _, err := ix.db.Exec("PRAGMA wal_checkpoint(PASSIVE)"); err != nil {
		return fmt.Errorf("failed to checkpoint index: %w", err)
	}
	return nil
}

// scanner abstracts *sql.Row and *sql.Rows for document scanning.
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanDocument(s scanner) (*types.EmailDocument, error) {
	var doc types.EmailDocument
	var category, dateStr, replyText, replyAt, indexedAt string

	err := s.Scan(
		&doc.ID,
		&doc.MessageID,
		&doc.Subject,
		&doc.From,
		&doc.To,
		&dateStr,
		&doc.Text,
		&doc.HTML,
		&doc.Folder,
		&doc.AccountID,
		&category,
		&replyText,
		&replyAt,
		&indexedAt,
	)
	if err != nil {
		return nil, err
	}

	doc.Category = types.Label(category)
	doc.Date = parseTime(dateStr)
	doc.IndexedAt = parseTime(indexedAt)
	if replyText != "" {
		doc.AIReply = &types.AIReply{
			Text:        replyText,
			GeneratedAt: parseTime(replyAt),
		}
	}
	return &doc, nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
