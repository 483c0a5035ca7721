package index

import (
	"fmt"
	"strings"

	"github.com/rahulm/onebox/pkg/types"
)

const selectColumns = "e.id, e.message_id, e.subject, e.sender, e.recipients, e.date, e.body_text, e.body_html, e.folder, e.account_id, e.category, e.reply_text, e.reply_generated_at, e.indexed_at"

// SearchOptions contains full-text search parameters.
type SearchOptions struct {
	Query     string
	Folder    string
	AccountID string
	Limit     int
}

// ListOptions contains listing and pagination parameters.
type ListOptions struct {
	Folder    string
	AccountID string
	Page      int
	Size      int
}

// Search performs a full-text search over subject, sender, and body, with
// optional folder and account term filters. Relevance scoring is delegated
// to the FTS engine; results are returned newest first.
func (ix *Index) Search(opts SearchOptions) ([]types.EmailDocument, error) {
	var conditions []string
	var args []interface{}

	if opts.Query != "" {
		conditions = append(conditions, "e.id IN (SELECT doc_id FROM emails_fts WHERE emails_fts MATCH ?)")
		args = append(args, escapeFTS(opts.Query))
	}
	if opts.Folder != "" {
		conditions = append(conditions, "e.folder = ?")
		args = append(args, strings.ToLower(opts.Folder))
	}
	if opts.AccountID != "" {
		conditions = append(conditions, "e.account_id = ?")
		args = append(args, strings.ToLower(opts.AccountID))
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = 50
	}
	if limit > 1000 {
		limit = 1000
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM emails e
		%s
		ORDER BY e.date DESC
		LIMIT ?`, selectColumns, whereClause)
	args = append(args, limit)

	return ix.queryDocuments(query, args...)
}

// List returns one page of documents, newest first, with optional folder
// and account filters, along with the total count of matching documents.
func (ix *Index) List(opts ListOptions) ([]types.EmailDocument, int, error) {
	var conditions []string
	var args []interface{}

	if opts.Folder != "" {
		conditions = append(conditions, "e.folder = ?")
		args = append(args, strings.ToLower(opts.Folder))
	}
	if opts.AccountID != "" {
		conditions = append(conditions, "e.account_id = ?")
		args = append(args, strings.ToLower(opts.AccountID))
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM emails e %s", whereClause)
	if err := ix.db.QueryRow(countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count documents: %w", err)
	}

	page := opts.Page
	if page < 1 {
		page = 1
	}
	size := opts.Size
	if size <= 0 {
		size = 50
	}
	if size > 1000 {
		size = 1000
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM emails e
		%s
		ORDER BY e.date DESC
		LIMIT ? OFFSET ?`, selectColumns, whereClause)
	args = append(args, size, (page-1)*size)

	docs, err := ix.queryDocuments(query, args...)
	if err != nil {
		return nil, 0, err
	}
	return docs, total, nil
}

func (ix *Index) queryDocuments(query string, args ...interface{}) ([]types.EmailDocument, error) {
	rows, err := ix.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query documents: %w", err)
	}
	defer rows.Close()

	var docs []types.EmailDocument
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		docs = append(docs, *doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate documents: %w", err)
	}
	return docs, nil
}

// escapeFTS quotes each term so user input cannot inject FTS5 query syntax.
func escapeFTS(query string) string {
	terms := strings.Fields(query)
	for i, term := range terms {
		terms[i] = `"` + strings.ReplaceAll(term, `"`, `""`) + `"`
	}
	return strings.Join(terms, " ")
}
