package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/ppiankov/factrank/internal/model"
	"github.com/ppiankov/factrank/internal/worker"
)

const (
	maxK          = 25
	maxIngestURLs = 100
)

type answerRequest struct {
	Query    string `json:"query" binding:"required"`
	MaxFacts int    `json:"max_facts"`
}

type expandRequest struct {
	Query string `json:"query" binding:"required"`
}

type dedupCheckRequest struct {
	Text  string `json:"text" binding:"required"`
	Limit int    `json:"limit"`
}

type entityPayload struct {
	ID      string   `json:"id"`
	Aliases []string `json:"aliases"`
}

type factsRequest struct {
	Entities []entityPayload `json:"entities"`
	Facts    []model.Fact    `json:"facts"`
}

type ingestRequest struct {
	URLs []string `json:"urls" binding:"required"`
}

// streamEvent is one NDJSON line of /v1/answer/stream
type streamEvent struct {
	Type    string       `json:"type"` // facts, chunk, error, done
	Facts   []model.Fact `json:"facts,omitempty"`
	Content string       `json:"content,omitempty"`
}

func (s *Server) health(c *gin.Context) {
	n, err := s.deps.Store.Count(c.Request.Context())
	if err != nil {
		s.respondWithError(c, http.StatusServiceUnavailable, err, "fact store unavailable")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":       "ok",
		"facts":        n,
		"capabilities": s.deps.Retriever.Capabilities(),
	})
}

func (s *Server) search(c *gin.Context) {
	q := strings.TrimSpace(c.Query("q"))
	if q == "" {
		respondWithClientError(c, http.StatusBadRequest, "query parameter q is required")
		return
	}
	k, ok := parseK(c, c.Query("k"))
	if !ok {
		return
	}

	res, err := s.deps.Retriever.Retrieve(c.Request.Context(), q, k)
	if err != nil {
		s.respondWithError(c, statusFor(err), err, "retrieval failed", zap.String("query", q))
		return
	}
	c.JSON(http.StatusOK, res)
}

func (s *Server) analyze(c *gin.Context) {
	q := strings.TrimSpace(c.Query("q"))
	if q == "" {
		respondWithClientError(c, http.StatusBadRequest, "query parameter q is required")
		return
	}
	c.JSON(http.StatusOK, s.deps.Retriever.Analyze(q))
}

func (s *Server) expandQuery(c *gin.Context) {
	var req expandRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Query) == "" {
		respondWithClientError(c, http.StatusBadRequest, "body must be JSON with a non-empty query")
		return
	}

	variants := []string{req.Query}
	llmEnabled := false
	if s.deps.Expander != nil {
		variants = s.deps.Expander.Expand(c.Request.Context(), req.Query)
		llmEnabled = s.deps.Expander.LLMEnabled()
	}
	c.JSON(http.StatusOK, gin.H{
		"query":    req.Query,
		"variants": variants,
		"llm":      llmEnabled,
	})
}

func (s *Server) config(c *gin.Context) {
	view, err := redactedConfig(s.deps.Config)
	if err != nil {
		s.respondWithError(c, http.StatusInternalServerError, err, "rendering config failed")
		return
	}
	c.JSON(http.StatusOK, view)
}

const redacted = "[redacted]"

// redactedConfig renders cfg under its yaml keys. Secrets never marshal;
// each one that is set comes back as a redacted marker so callers can see
// which credentials are configured.
func redactedConfig(cfg model.Config) (map[string]any, error) {
	raw, err := yaml.Marshal(cfg)
	if err != nil {
		return nil, err
	}
	var view map[string]any
	if err := yaml.Unmarshal(raw, &view); err != nil {
		return nil, err
	}

	secrets := []struct {
		section, key, value string
	}{
		{"search", "tavily_api_key", cfg.Search.TavilyAPIKey},
		{"search", "serpapi_key", cfg.Search.SerpAPIKey},
		{"search", "google_api_key", cfg.Search.GoogleAPIKey},
		{"llm", "api_key", cfg.LLM.APIKey},
		{"embedding", "api_key", cfg.Embedding.APIKey},
		{"server", "api_key", cfg.Server.APIKey},
	}
	for _, sec := range secrets {
		if sec.value == "" {
			continue
		}
		section, ok := view[sec.section].(map[string]any)
		if !ok {
			section = map[string]any{}
			view[sec.section] = section
		}
		section[sec.key] = redacted
	}
	return view, nil
}

func (s *Server) domain(c *gin.Context) {
	u := strings.TrimSpace(c.Query("url"))
	if u == "" {
		respondWithClientError(c, http.StatusBadRequest, "query parameter url is required")
		return
	}
	c.JSON(http.StatusOK, s.deps.Reputation.Explain(u))
}

func (s *Server) answer(c *gin.Context) {
	var req answerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithClientError(c, http.StatusBadRequest, "body must be JSON with a non-empty query")
		return
	}
	if s.deps.Answerer == nil {
		respondWithClientError(c, http.StatusServiceUnavailable, "answer generation is not configured")
		return
	}
	if req.MaxFacts < 0 || req.MaxFacts > maxK {
		respondWithClientError(c, http.StatusBadRequest, "max_facts must be between 0 and 25")
		return
	}

	ans, err := s.deps.Answerer.Answer(c.Request.Context(), req.Query, req.MaxFacts)
	if err != nil {
		s.respondWithError(c, statusFor(err), err, "answer failed", zap.String("query", req.Query))
		return
	}
	c.JSON(http.StatusOK, ans)
}

// answerStream writes newline-delimited JSON: one facts event, then
// chunk events, then done. Failures after the first write become an
// error event.
func (s *Server) answerStream(c *gin.Context) {
	var req answerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithClientError(c, http.StatusBadRequest, "body must be JSON with a non-empty query")
		return
	}
	if s.deps.Answerer == nil {
		respondWithClientError(c, http.StatusServiceUnavailable, "answer generation is not configured")
		return
	}
	if req.MaxFacts < 0 || req.MaxFacts > maxK {
		respondWithClientError(c, http.StatusBadRequest, "max_facts must be between 0 and 25")
		return
	}

	c.Header("Content-Type", "application/x-ndjson")
	c.Header("Cache-Control", "no-cache")
	c.Status(http.StatusOK)

	enc := json.NewEncoder(c.Writer)
	write := func(ev streamEvent) error {
		if err := enc.Encode(ev); err != nil {
			return err
		}
		c.Writer.Flush()
		return nil
	}

	err := s.deps.Answerer.AnswerStream(c.Request.Context(), req.Query, req.MaxFacts,
		func(facts []model.Fact) error {
			return write(streamEvent{Type: "facts", Facts: facts})
		},
		func(chunk string) error {
			return write(streamEvent{Type: "chunk", Content: chunk})
		})
	if err != nil {
		s.logger.Warn("answer stream failed", zap.String("query", req.Query), zap.Error(err))
		_ = write(streamEvent{Type: "error", Content: "answer failed"})
		return
	}
	_ = write(streamEvent{Type: "done"})
}

func (s *Server) dedupStats(c *gin.Context) {
	c.JSON(http.StatusOK, s.deps.Dedup.Stats())
}

func (s *Server) dedupCheck(c *gin.Context) {
	var req dedupCheckRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithClientError(c, http.StatusBadRequest, "body must be JSON with non-empty text")
		return
	}
	dup, match := s.deps.Dedup.IsDuplicate(req.Text)
	c.JSON(http.StatusOK, gin.H{
		"duplicate": dup,
		"match":     match,
		"similar":   s.deps.Dedup.FindSimilar(req.Text, req.Limit),
	})
}

// submitFacts registers entity aliases, then upserts every complete fact.
// Facts missing subject, predicate, object or source_url are skipped.
func (s *Server) submitFacts(c *gin.Context) {
	var req factsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithClientError(c, http.StatusBadRequest, "body must be JSON with entities and facts")
		return
	}
	ctx := c.Request.Context()

	for _, e := range req.Entities {
		id := strings.TrimSpace(e.ID)
		if id == "" || len(e.Aliases) == 0 {
			continue
		}
		if err := s.deps.Store.AddAliases(ctx, id, e.Aliases); err != nil {
			s.respondWithError(c, http.StatusInternalServerError, err, "storing aliases failed")
			return
		}
	}

	stored, skipped := 0, 0
	for _, f := range req.Facts {
		if f.Subject == "" || f.Predicate == "" || f.Object == "" || f.SourceURL == "" {
			skipped++
			continue
		}
		if f.ID == "" {
			f.ID = f.Subject + "#" + f.Predicate
		}
		if err := s.deps.Store.UpsertFact(ctx, f.StripTransient()); err != nil {
			s.respondWithError(c, http.StatusInternalServerError, err, "storing facts failed")
			return
		}
		stored++
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "facts": stored, "skipped": skipped})
}

func (s *Server) ingest(c *gin.Context) {
	if s.deps.Ingester == nil {
		respondWithClientError(c, http.StatusServiceUnavailable, "ingestion is not configured")
		return
	}
	var req ingestRequest
	if err := c.ShouldBindJSON(&req); err != nil || len(req.URLs) == 0 {
		respondWithClientError(c, http.StatusBadRequest, "body must be JSON with a non-empty urls list")
		return
	}
	if len(req.URLs) > maxIngestURLs {
		respondWithClientError(c, http.StatusBadRequest, "at most 100 urls per request")
		return
	}

	bp := worker.NewBatchProcessor(s.deps.Ingester, s.deps.IngestWorkers)
	results, stats := bp.ProcessURLs(c.Request.Context(), req.URLs)

	type urlOutcome struct {
		URL    string              `json:"url"`
		Result *model.IngestResult `json:"result,omitempty"`
		Error  string              `json:"error,omitempty"`
	}
	out := make([]urlOutcome, len(results))
	for i, r := range results {
		out[i] = urlOutcome{URL: r.URL, Result: r.Result}
		if r.Error != nil {
			out[i].Error = r.Error.Error()
		}
	}
	c.JSON(http.StatusOK, gin.H{"stats": stats, "results": out})
}

// parseK reads an optional k in [0, 25]; 0 lets the analyzer decide
func parseK(c *gin.Context, raw string) (int, bool) {
	if raw == "" {
		return 0, true
	}
	k, err := strconv.Atoi(raw)
	if err != nil || k < 0 || k > maxK {
		respondWithClientError(c, http.StatusBadRequest, "k must be an integer between 0 and 25")
		return 0, false
	}
	return k, true
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, model.ErrCapabilityUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		return 499
	default:
		return http.StatusInternalServerError
	}
}

// respondWithError logs the underlying error and returns a short message
func (s *Server) respondWithError(c *gin.Context, status int, err error, msg string, fields ...zap.Field) {
	fields = append(fields, zap.Int("status", status), zap.Error(err))
	s.logger.Error("request failed", fields...)
	c.JSON(status, gin.H{"error": msg})
}

// respondWithClientError returns a client error without logging
func respondWithClientError(c *gin.Context, status int, msg string) {
	c.JSON(status, gin.H{"error": msg})
}
