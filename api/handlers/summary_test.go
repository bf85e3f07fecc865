package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/BaSui01/warmflow/summary"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newSummaryFixture(t *testing.T, completer summary.Completer) (*SummaryHandler, *summary.Store) {
	t.Helper()
	builder := summary.NewBuilder(completer, zap.NewNop(), nil)
	store := summary.NewStore(zap.NewNop())
	return NewSummaryHandler(builder, store, zap.NewNop()), store
}

const historyJSON = `[
	{"speaker":"caller","message":"My bill is wrong, I was charged twice."},
	{"speaker":"agent_a","message":"Let me look into that for you."}
]`

func TestHandleGenerateSummary(t *testing.T) {
	h, store := newSummaryFixture(t, &stubCompleter{response: "Caller reports a duplicate charge."})

	body := `{"room_name":"caller-room-1","transfer_id":"t-1","conversation_history":` + historyJSON + `}`
	req := httptest.NewRequest(http.MethodPost, "/api/generate-summary", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.HandleGenerateSummary(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		Data GenerateSummaryResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Caller reports a duplicate charge.", resp.Data.Summary)
	assert.Equal(t, string(summary.TypeTransfer), resp.Data.SummaryType)
	assert.Nil(t, resp.Data.Sentiment)

	// The generated summary is stored and retrievable by id.
	rec2, err := store.Get(resp.Data.SummaryID)
	require.NoError(t, err)
	assert.Equal(t, "caller-room-1", rec2.RoomName)
	assert.Equal(t, "t-1", rec2.TransferID)
}

func TestHandleGenerateSummary_WithSentiment(t *testing.T) {
	h, _ := newSummaryFixture(t, &stubCompleter{
		response: `{"sentiment":"negative","confidence":0.9,"analysis":"billing frustration","key_emotions":["frustration"]}`,
	})

	body := `{"conversation_history":` + historyJSON + `,"include_sentiment":true}`
	req := httptest.NewRequest(http.MethodPost, "/api/generate-summary", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.HandleGenerateSummary(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		Data GenerateSummaryResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotNil(t, resp.Data.Sentiment)
	assert.Equal(t, "negative", resp.Data.Sentiment.Sentiment)
	assert.Equal(t, "model", resp.Data.Sentiment.Source)
}

func TestHandleGenerateSummary_EmptyHistory(t *testing.T) {
	h, _ := newSummaryFixture(t, &stubCompleter{response: "unused"})

	req := httptest.NewRequest(http.MethodPost, "/api/generate-summary",
		strings.NewReader(`{"conversation_history":[]}`))
	rec := httptest.NewRecorder()
	h.HandleGenerateSummary(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_REQUEST", decodeResponse(t, rec).Error.Code)
}

func TestHandleGetSummary_NotFound(t *testing.T) {
	h, _ := newSummaryFixture(t, &stubCompleter{})

	req := httptest.NewRequest(http.MethodGet, "/api/summaries/missing", nil)
	req.SetPathValue("id", "missing")
	rec := httptest.NewRecorder()
	h.HandleGetSummary(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleSuggestQuestions(t *testing.T) {
	h, _ := newSummaryFixture(t, &stubCompleter{
		response: "- Can you confirm the charge date?\n- Which card was billed?",
	})

	body := `{"summary":"Caller disputes a duplicate charge."}`
	req := httptest.NewRequest(http.MethodPost, "/api/suggest-questions", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.HandleSuggestQuestions(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		Data struct {
			Questions []string `json:"questions"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, []string{
		"Can you confirm the charge date?",
		"Which card was billed?",
	}, resp.Data.Questions)
}

func TestHandleSuggestQuestions_ProviderDown(t *testing.T) {
	// Provider failure surfaces as an upstream error; only sentiment degrades.
	h, _ := newSummaryFixture(t, &stubCompleter{err: assert.AnError})

	body := `{"summary":"Caller disputes a duplicate charge."}`
	req := httptest.NewRequest(http.MethodPost, "/api/suggest-questions", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.HandleSuggestQuestions(rec, req)

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, "UPSTREAM_ERROR", decodeResponse(t, rec).Error.Code)
}

func TestHandleSuggestQuestions_UnparseableResponse(t *testing.T) {
	// A response with no parseable questions serves the static fallback list.
	h, _ := newSummaryFixture(t, &stubCompleter{response: "no bullets here."})

	body := `{"summary":"Caller disputes a duplicate charge."}`
	req := httptest.NewRequest(http.MethodPost, "/api/suggest-questions", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.HandleSuggestQuestions(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		Data struct {
			Questions []string `json:"questions"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.Data.Questions, 3)
}

func TestHandleAnalyzeSentiment_Fallback(t *testing.T) {
	h, _ := newSummaryFixture(t, &stubCompleter{err: assert.AnError})

	body := `{"conversation_history":[{"speaker":"caller","message":"I am so frustrated with this horrible service."}]}`
	req := httptest.NewRequest(http.MethodPost, "/api/analyze-sentiment", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.HandleAnalyzeSentiment(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		Data summary.Sentiment `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "negative", resp.Data.Sentiment)
	assert.Equal(t, "fallback", resp.Data.Source)
}
