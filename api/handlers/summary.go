package handlers

import (
	"net/http"
	"strings"

	"github.com/BaSui01/warmflow/summary"
	"github.com/BaSui01/warmflow/types"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// =============================================================================
// Call Summary Handler
// =============================================================================

// SummaryHandler exposes the summary builder and its store over HTTP.
type SummaryHandler struct {
	builder *summary.Builder
	store   *summary.Store
	logger  *zap.Logger
}

// GenerateSummaryRequest is the summary generation request body.
type GenerateSummaryRequest struct {
	RoomName            string             `json:"room_name,omitempty"`
	TransferID          string             `json:"transfer_id,omitempty"`
	ConversationHistory []summary.Exchange `json:"conversation_history"`
	CallerInfo          map[string]string  `json:"caller_info,omitempty"`
	SummaryType         string             `json:"summary_type,omitempty"`
	IncludeSentiment    bool               `json:"include_sentiment,omitempty"`
}

// GenerateSummaryResponse carries the generated summary and its id.
type GenerateSummaryResponse struct {
	SummaryID   string             `json:"summary_id"`
	Summary     string             `json:"summary"`
	SummaryType string             `json:"summary_type"`
	Sentiment   *summary.Sentiment `json:"sentiment,omitempty"`
}

// SuggestQuestionsRequest asks for follow-up questions from a summary.
type SuggestQuestionsRequest struct {
	Summary    string            `json:"summary" binding:"required"`
	CallerInfo map[string]string `json:"caller_info,omitempty"`
}

// AnalyzeSentimentRequest asks for a sentiment classification.
type AnalyzeSentimentRequest struct {
	ConversationHistory []summary.Exchange `json:"conversation_history"`
}

// NewSummaryHandler creates a summary handler.
func NewSummaryHandler(builder *summary.Builder, store *summary.Store, logger *zap.Logger) *SummaryHandler {
	return &SummaryHandler{
		builder: builder,
		store:   store,
		logger:  logger,
	}
}

// HandleGenerateSummary generates and stores a call summary
// @Summary Generate call summary
// @Description Generate an AI call summary, optionally with sentiment analysis run concurrently
// @Tags summary
// @Accept json
// @Produce json
// @Param request body GenerateSummaryRequest true "Summary request"
// @Success 200 {object} Response{data=GenerateSummaryResponse} "Generated summary"
// @Failure 400 {object} Response "Invalid request"
// @Failure 502 {object} Response "LLM provider error"
// @Security ApiKeyAuth
// @Router /api/generate-summary [post]
func (h *SummaryHandler) HandleGenerateSummary(w http.ResponseWriter, r *http.Request) {
	var req GenerateSummaryRequest
	if err := DecodeJSONBody(w, r, &req, h.logger); err != nil {
		return
	}

	if len(req.ConversationHistory) == 0 {
		WriteErrorMessage(w, http.StatusBadRequest, types.ErrInvalidRequest,
			"conversation_history must not be empty", h.logger)
		return
	}

	summaryType := summary.Type(req.SummaryType)

	// Summary and sentiment are independent model calls; fan out.
	var (
		content   string
		sentiment *summary.Sentiment
	)
	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() error {
		var err error
		content, err = h.builder.Summarize(ctx, req.ConversationHistory, req.CallerInfo, summaryType)
		return err
	})
	if req.IncludeSentiment {
		g.Go(func() error {
			var err error
			sentiment, err = h.builder.AnalyzeSentiment(ctx, req.ConversationHistory)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		writeAnyError(w, err, h.logger)
		return
	}

	if summaryType == "" {
		summaryType = summary.TypeTransfer
	}
	id := h.store.Put(summary.Record{
		RoomName:    req.RoomName,
		TransferID:  req.TransferID,
		SummaryType: summaryType,
		Content:     content,
	})

	WriteSuccess(w, GenerateSummaryResponse{
		SummaryID:   id,
		Summary:     content,
		SummaryType: string(summaryType),
		Sentiment:   sentiment,
	})
}

// HandleGetSummary retrieves a stored summary
// @Summary Get stored summary
// @Description Retrieve a previously generated summary by id
// @Tags summary
// @Produce json
// @Param id path string true "Summary ID"
// @Success 200 {object} Response{data=summary.Record} "Stored summary"
// @Failure 404 {object} Response "Summary not found"
// @Security ApiKeyAuth
// @Router /api/summaries/{id} [get]
func (h *SummaryHandler) HandleGetSummary(w http.ResponseWriter, r *http.Request) {
	id := extractSummaryID(r)
	if id == "" {
		WriteErrorMessage(w, http.StatusBadRequest, types.ErrInvalidRequest,
			"summary ID is required", h.logger)
		return
	}

	rec, err := h.store.Get(id)
	if err != nil {
		writeAnyError(w, err, h.logger)
		return
	}

	WriteSuccess(w, rec)
}

// HandleSuggestQuestions generates follow-up questions for Agent B
// @Summary Suggest follow-up questions
// @Description Generate questions Agent B should consider before taking the call
// @Tags summary
// @Accept json
// @Produce json
// @Param request body SuggestQuestionsRequest true "Questions request"
// @Success 200 {object} Response{data=[]string} "Suggested questions"
// @Failure 400 {object} Response "Invalid request"
// @Failure 502 {object} Response "LLM provider error"
// @Security ApiKeyAuth
// @Router /api/suggest-questions [post]
func (h *SummaryHandler) HandleSuggestQuestions(w http.ResponseWriter, r *http.Request) {
	var req SuggestQuestionsRequest
	if err := DecodeJSONBody(w, r, &req, h.logger); err != nil {
		return
	}

	if req.Summary == "" {
		WriteErrorMessage(w, http.StatusBadRequest, types.ErrInvalidRequest,
			"summary is required", h.logger)
		return
	}

	questions, err := h.builder.SuggestQuestions(r.Context(), req.Summary, req.CallerInfo)
	if err != nil {
		writeAnyError(w, err, h.logger)
		return
	}

	WriteSuccess(w, map[string]any{"questions": questions})
}

// HandleAnalyzeSentiment classifies customer sentiment
// @Summary Analyze sentiment
// @Description Classify customer sentiment; degrades to keyword matching on provider failure
// @Tags summary
// @Accept json
// @Produce json
// @Param request body AnalyzeSentimentRequest true "Sentiment request"
// @Success 200 {object} Response{data=summary.Sentiment} "Sentiment result"
// @Failure 400 {object} Response "Invalid request"
// @Security ApiKeyAuth
// @Router /api/analyze-sentiment [post]
func (h *SummaryHandler) HandleAnalyzeSentiment(w http.ResponseWriter, r *http.Request) {
	var req AnalyzeSentimentRequest
	if err := DecodeJSONBody(w, r, &req, h.logger); err != nil {
		return
	}

	result, err := h.builder.AnalyzeSentiment(r.Context(), req.ConversationHistory)
	if err != nil {
		writeAnyError(w, err, h.logger)
		return
	}

	WriteSuccess(w, result)
}

// =============================================================================
// Helper Functions
// =============================================================================

// extractSummaryID extracts the summary ID from the URL path.
func extractSummaryID(r *http.Request) string {
	if id := r.PathValue("id"); id != "" {
		return id
	}
	path := strings.TrimPrefix(r.URL.Path, "/api/summaries/")
	if path == "" || path == r.URL.Path || strings.Contains(path, "/") {
		return ""
	}
	return path
}
