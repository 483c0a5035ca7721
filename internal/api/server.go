package api

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/sirupsen/logrus"

	"github.com/rahulm/onebox/internal/index"
	"github.com/rahulm/onebox/pkg/types"
)

// Classifier is the classification dispatcher as seen by the API layer.
type Classifier interface {
	ClassifyOne(ctx context.Context, id, text string) (types.Label, error)
	ClassifyBatch(ctx context.Context, items []types.EmailText) ([]types.ClassifiedEmail, error)
}

// ReplyGenerator drafts a reply for a stored document.
type ReplyGenerator interface {
	Generate(ctx context.Context, id, text string) (string, error)
}

// Server exposes the search, listing, classification, and reply endpoints.
type Server struct {
	echo       *echo.Echo
	index      *index.Index
	classifier Classifier
	replies    ReplyGenerator
	logger     *logrus.Logger
}

// NewServer creates the HTTP server and registers its routes.
func NewServer(ix *index.Index, classifier Classifier, replies ReplyGenerator, logger *logrus.Logger) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())

	s := &Server{
		echo:       e,
		index:      ix,
		classifier: classifier,
		replies:    replies,
		logger:     logger,
	}

	e.GET("/api/emails/search", s.searchEmails)
	e.GET("/api/emails", s.getEmails)
	e.GET("/api/emails/:id", s.getEmailByID)
	e.POST("/api/emails/categorize", s.categorize)
	e.POST("/api/ai/suggest-reply", s.suggestReply)

	return s
}

// Start begins serving on addr and blocks.
func (s *Server) Start(addr string) error {
	return s.echo.Start(addr)
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// Echo returns the underlying router. Used by tests.
func (s *Server) Echo() *echo.Echo {
	return s.echo
}

// searchEmails handles GET /api/emails/search.
func (s *Server) searchEmails(c echo.Context) error {
	opts := index.SearchOptions{
		Query:     c.QueryParam("q"),
		Folder:    c.QueryParam("folder"),
		AccountID: c.QueryParam("account"),
	}

	docs, err := s.index.Search(opts)
	if err != nil {
		s.logger.WithError(err).Error("Search failed")
		return internalError(c, "error searching emails")
	}
	if docs == nil {
		docs = []types.EmailDocument{}
	}
	return success(c, docs)
}

// getEmails handles GET /api/emails. Any documents on the returned page
// that lack a category and carry text are batch-classified in-line before
// the response is built, followed by an explicit index refresh.
func (s *Server) getEmails(c echo.Context) error {
	opts := index.ListOptions{
		Page:      queryInt(c, "page", 1),
		Size:      queryInt(c, "size", 50),
		Folder:    normalizeFilter(c.QueryParam("folder")),
		AccountID: normalizeFilter(c.QueryParam("accountId")),
	}

	docs, total, err := s.index.List(opts)
	if err != nil {
		s.logger.WithError(err).Error("Listing failed")
		return internalError(c, "failed to fetch emails")
	}

	var uncategorized []types.EmailText
	for _, doc := range docs {
		if doc.Category == "" && strings.TrimSpace(doc.Text) != "" {
			uncategorized = append(uncategorized, types.EmailText{ID: doc.ID, Text: doc.Text})
		}
	}

	if len(uncategorized) > 0 {
		s.logger.WithField("count", len(uncategorized)).Info("Categorizing uncategorized emails")

		results, err := s.classifier.ClassifyBatch(c.Request().Context(), uncategorized)
		if err != nil {
			s.logger.WithError(err).Error("Batch classification failed")
		}
		for _, r := range results {
			for i := range docs {
				if docs[i].ID == r.ID {
					docs[i].Category = r.Category
				}
			}
		}

		if err := s.index.Refresh(); err != nil {
			s.logger.WithError(err).Warn("Index refresh failed")
		}
	}

	if docs == nil {
		docs = []types.EmailDocument{}
	}
	return paginated(c, docs, opts.Page, opts.Size, total)
}

// getEmailByID handles GET /api/emails/:id.
func (s *Server) getEmailByID(c echo.Context) error {
	doc, err := s.index.Get(c.Param("id"))
	if err != nil {
		if errors.Is(err, index.ErrNotFound) {
			return notFound(c, "email not found")
		}
		s.logger.WithError(err).Error("Fetching email failed")
		return internalError(c, "error fetching email")
	}
	return success(c, doc)
}

type categorizeRequest struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// categorize handles POST /api/emails/categorize.
func (s *Server) categorize(c echo.Context) error {
	var req categorizeRequest
	if err := c.Bind(&req); err != nil || req.ID == "" {
		return badRequest(c, "missing email id or text")
	}

	label, err := s.classifier.ClassifyOne(c.Request().Context(), req.ID, req.Text)
	if err != nil {
		s.logger.WithError(err).Error("Classification failed")
		return internalError(c, "error categorizing email")
	}
	return success(c, map[string]string{"category": label.String()})
}

type suggestReplyRequest struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// suggestReply handles POST /api/ai/suggest-reply.
func (s *Server) suggestReply(c echo.Context) error {
	var req suggestReplyRequest
	if err := c.Bind(&req); err != nil || req.ID == "" || req.Text == "" {
		return badRequest(c, "missing email id or text")
	}

	replyText, err := s.replies.Generate(c.Request().Context(), req.ID, req.Text)
	if err != nil {
		s.logger.WithError(err).Error("Reply generation failed")
		return internalError(c, "failed to generate reply")
	}
	return success(c, map[string]string{"reply": replyText})
}

func queryInt(c echo.Context, name string, def int) int {
	if raw := c.QueryParam(name); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			return v
		}
	}
	return def
}

// normalizeFilter treats the dashboard's "All" selector as no filter.
func normalizeFilter(v string) string {
	if v == "All" {
		return ""
	}
	return v
}
