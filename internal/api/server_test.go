package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rahulm/onebox/internal/index"
	"github.com/rahulm/onebox/internal/storage"
	"github.com/rahulm/onebox/pkg/types"
)

type stubClassifier struct {
	oneLabel   types.Label
	oneErr     error
	batchCalls int
	batchItems []types.EmailText
}

func (s *stubClassifier) ClassifyOne(_ context.Context, _, _ string) (types.Label, error) {
	return s.oneLabel, s.oneErr
}

func (s *stubClassifier) ClassifyBatch(_ context.Context, items []types.EmailText) ([]types.ClassifiedEmail, error) {
	s.batchCalls++
	s.batchItems = items
	results := make([]types.ClassifiedEmail, 0, len(items))
	for _, item := range items {
		results = append(results, types.ClassifiedEmail{ID: item.ID, Category: types.LabelInterested})
	}
	return results, nil
}

type stubReplies struct {
	reply string
	err   error
}

func (s *stubReplies) Generate(_ context.Context, _, _ string) (string, error) {
	return s.reply, s.err
}

func newTestServer(t *testing.T) (*Server, *index.Index, *stubClassifier, *stubReplies) {
	t.Helper()

	db, err := storage.Open(filepath.Join(t.TempDir(), "emails.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	ix := index.New(db, logrus.New())
	require.NoError(t, ix.EnsureSchema())

	classifier := &stubClassifier{oneLabel: types.LabelInterested}
	replies := &stubReplies{reply: "Thanks for reaching out!"}
	return NewServer(ix, classifier, replies, logrus.New()), ix, classifier, replies
}

func doRequest(s *Server, method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.Echo().ServeHTTP(rec, req)
	return rec
}

func seedEmail(t *testing.T, ix *index.Index, messageID, subject string, category types.Label) string {
	t.Helper()
	id, err := ix.Insert(types.EmailDocument{
		MessageID: messageID,
		Subject:   subject,
		From:      "alice@example.com",
		Date:      time.Date(2025, 8, 12, 10, 0, 0, 0, time.UTC),
		Text:      "Hi, I'd like a demo.",
		Folder:    "inbox",
		AccountID: "sales@example.com",
	})
	require.NoError(t, err)
	if category != "" {
		require.NoError(t, ix.UpsertCategory(id, category))
	}
	return id
}

func TestGetEmailsClassifiesUncategorizedPage(t *testing.T) {
	s, ix, classifier, _ := newTestServer(t)

	seedEmail(t, ix, "<a@example.com>", "First", "")
	seedEmail(t, ix, "<b@example.com>", "Second", types.LabelSpam)

	rec := doRequest(s, http.MethodGet, "/api/emails", "")
	require.Equal(t, http.StatusOK, rec.Code)

	// Exactly one batch call, covering only the uncategorized document.
	assert.Equal(t, 1, classifier.batchCalls)
	require.Len(t, classifier.batchItems, 1)

	var resp struct {
		Success bool                  `json:"success"`
		Total   int                   `json:"total"`
		Data    []types.EmailDocument `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, 2, resp.Total)
	require.Len(t, resp.Data, 2)

	for _, doc := range resp.Data {
		assert.NotEmpty(t, doc.Category, "page should carry freshly assigned labels")
	}
}

func TestGetEmailsAllCategorizedSkipsBatch(t *testing.T) {
	s, ix, classifier, _ := newTestServer(t)

	seedEmail(t, ix, "<a@example.com>", "First", types.LabelSpam)

	rec := doRequest(s, http.MethodGet, "/api/emails", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 0, classifier.batchCalls)
}

func TestGetEmailByID(t *testing.T) {
	s, ix, _, _ := newTestServer(t)

	id := seedEmail(t, ix, "<a@example.com>", "First", types.LabelInterested)

	rec := doRequest(s, http.MethodGet, "/api/emails/"+id, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Success bool                `json:"success"`
		Data    types.EmailDocument `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "First", resp.Data.Subject)
	assert.Equal(t, types.LabelInterested, resp.Data.Category)
}

func TestGetEmailByIDNotFound(t *testing.T) {
	s, _, _, _ := newTestServer(t)

	rec := doRequest(s, http.MethodGet, "/api/emails/missing", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSearchEmails(t *testing.T) {
	s, ix, _, _ := newTestServer(t)

	seedEmail(t, ix, "<a@example.com>", "Demo request", "")

	rec := doRequest(s, http.MethodGet, "/api/emails/search?q=demo", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Success bool                  `json:"success"`
		Data    []types.EmailDocument `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Data, 1)
	assert.Equal(t, "Demo request", resp.Data[0].Subject)
}

func TestCategorizeEndpoint(t *testing.T) {
	s, ix, _, _ := newTestServer(t)

	id := seedEmail(t, ix, "<a@example.com>", "First", "")

	rec := doRequest(s, http.MethodPost, "/api/emails/categorize",
		`{"id":"`+id+`","text":"I'd like a demo"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data map[string]string `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Interested", resp.Data["category"])
}

func TestCategorizeMissingIDRejected(t *testing.T) {
	s, _, _, _ := newTestServer(t)

	rec := doRequest(s, http.MethodPost, "/api/emails/categorize", `{"text":"hello"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCategorizeFailureIsGeneric(t *testing.T) {
	s, _, classifier, _ := newTestServer(t)
	classifier.oneErr = errors.New("model unreachable")

	rec := doRequest(s, http.MethodPost, "/api/emails/categorize",
		`{"id":"x","text":"hello"}`)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "unreachable")
}

func TestSuggestReplyEndpoint(t *testing.T) {
	s, _, _, _ := newTestServer(t)

	rec := doRequest(s, http.MethodPost, "/api/ai/suggest-reply",
		`{"id":"x","text":"I'd like a demo"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data map[string]string `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Thanks for reaching out!", resp.Data["reply"])
}

func TestSuggestReplyRequiresIDAndText(t *testing.T) {
	s, _, _, _ := newTestServer(t)

	rec := doRequest(s, http.MethodPost, "/api/ai/suggest-reply", `{"id":"x"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSuggestReplyFailure(t *testing.T) {
	s, _, _, replies := newTestServer(t)
	replies.err = errors.New("vector store closed")

	rec := doRequest(s, http.MethodPost, "/api/ai/suggest-reply",
		`{"id":"x","text":"hello"}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
