package summary

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/BaSui01/warmflow/llm"
	"github.com/BaSui01/warmflow/types"
	"go.uber.org/zap"
)

// Completer is the slice of the LLM client the builder needs.
type Completer interface {
	Completion(ctx context.Context, messages []llm.Message) (string, error)
}

// Metrics receives summary pipeline observations.
type Metrics interface {
	RecordSummary(summaryType, status string)
	RecordSentimentFallback()
}

type nopMetrics struct{}

func (nopMetrics) RecordSummary(string, string) {}
func (nopMetrics) RecordSentimentFallback()     {}

// Exchange is one turn of the recorded conversation.
type Exchange struct {
	Timestamp string `json:"timestamp"`
	Speaker   string `json:"speaker"`
	Message   string `json:"message"`
}

// Sentiment is the result of a sentiment analysis. Source is "model" when
// the value came from the LLM and "fallback" when keyword matching or the
// no-input default produced it.
type Sentiment struct {
	Sentiment   string   `json:"sentiment"`
	Confidence  float64  `json:"confidence"`
	Analysis    string   `json:"analysis"`
	KeyEmotions []string `json:"key_emotions"`
	Source      string   `json:"source"`
}

// Builder generates summaries, questions and sentiment from call history.
type Builder struct {
	llm     Completer
	logger  *zap.Logger
	metrics Metrics
}

// NewBuilder creates a summary builder on top of a completion client.
func NewBuilder(completer Completer, logger *zap.Logger, metrics Metrics) *Builder {
	if logger == nil {
		logger = zap.NewNop()
	}
	if metrics == nil {
		metrics = nopMetrics{}
	}
	return &Builder{
		llm:     completer,
		logger:  logger.With(zap.String("component", "summary_builder")),
		metrics: metrics,
	}
}

// Summarize generates a call summary of the requested type from the
// conversation history and caller info.
func (b *Builder) Summarize(ctx context.Context, history []Exchange, callerInfo map[string]string, summaryType Type) (string, error) {
	if summaryType == "" {
		summaryType = TypeTransfer
	}

	content, err := b.llm.Completion(ctx, []llm.Message{
		{Role: llm.RoleSystem, Content: systemPrompt(summaryType)},
		{Role: llm.RoleUser, Content: buildContext(history, callerInfo)},
	})
	if err != nil {
		b.metrics.RecordSummary(string(summaryType), "error")
		return "", wrapUpstream(err, "summary.Summarize")
	}

	b.metrics.RecordSummary(string(summaryType), "ok")
	b.logger.Info("generated call summary",
		zap.String("summary_type", string(summaryType)),
		zap.Int("history_len", len(history)),
	)
	return strings.TrimSpace(content), nil
}

// SuggestQuestions generates follow-up questions for Agent B from a summary.
// Provider failure surfaces to the caller; only a response with no parseable
// questions degrades to the static fallback list.
func (b *Builder) SuggestQuestions(ctx context.Context, callSummary string, callerInfo map[string]string) ([]string, error) {
	var sb strings.Builder
	sb.WriteString("CALL SUMMARY:\n")
	sb.WriteString(callSummary)
	sb.WriteString("\n\n")
	if len(callerInfo) > 0 {
		sb.WriteString("CALLER INFO:\n")
		for _, k := range sortedKeys(callerInfo) {
			fmt.Fprintf(&sb, "- %s: %s\n", k, callerInfo[k])
		}
	}

	content, err := b.llm.Completion(ctx, []llm.Message{
		{Role: llm.RoleSystem, Content: questionsPrompt},
		{Role: llm.RoleUser, Content: sb.String()},
	})
	if err != nil {
		return nil, wrapUpstream(err, "summary.SuggestQuestions")
	}

	questions := parseQuestions(content)
	if len(questions) == 0 {
		b.logger.Warn("no parseable questions in response, serving fallback list")
		return append([]string(nil), fallbackQuestions...), nil
	}
	return questions, nil
}

// AnalyzeSentiment classifies the customer's sentiment from the history.
// It never returns an error: with no customer messages the result is a
// deterministic neutral, and any model failure degrades to keyword matching.
func (b *Builder) AnalyzeSentiment(ctx context.Context, history []Exchange) (*Sentiment, error) {
	var customerMessages []string
	for _, ex := range history {
		switch strings.ToLower(ex.Speaker) {
		case "caller", "customer", "user":
			customerMessages = append(customerMessages, ex.Message)
		}
	}
	if len(customerMessages) == 0 {
		return &Sentiment{
			Sentiment:  "neutral",
			Confidence: 0.0,
			Analysis:   "No customer messages found",
			Source:     "fallback",
		}, nil
	}

	combined := strings.Join(customerMessages, " ")
	content, err := b.llm.Completion(ctx, []llm.Message{
		{Role: llm.RoleSystem, Content: sentimentPrompt},
		{Role: llm.RoleUser, Content: "Customer messages: " + combined},
	})
	if err != nil {
		b.logger.Warn("sentiment analysis degraded to keyword matching", zap.Error(err))
		b.metrics.RecordSentimentFallback()
		return keywordSentiment(combined), nil
	}

	var result Sentiment
	if err := json.Unmarshal([]byte(extractJSON(content)), &result); err != nil || result.Sentiment == "" {
		b.logger.Warn("unparseable sentiment response, degrading to keyword matching",
			zap.String("response", truncate(content, 200)),
		)
		b.metrics.RecordSentimentFallback()
		return keywordSentiment(combined), nil
	}
	result.Source = "model"
	return &result, nil
}

// buildContext renders the history and caller info into the prompt blob.
func buildContext(history []Exchange, callerInfo map[string]string) string {
	var sb strings.Builder
	sb.WriteString("CALL CONTEXT FOR WARM TRANSFER:\n\n")

	if len(callerInfo) > 0 {
		sb.WriteString("CALLER INFORMATION:\n")
		for _, k := range sortedKeys(callerInfo) {
			fmt.Fprintf(&sb, "- %s: %s\n", k, callerInfo[k])
		}
		sb.WriteString("\n")
	}

	if len(history) > 0 {
		sb.WriteString("CONVERSATION HISTORY:\n")
		for _, ex := range history {
			ts := ex.Timestamp
			if ts == "" {
				ts = "Unknown time"
			}
			speaker := ex.Speaker
			if speaker == "" {
				speaker = "Unknown"
			}
			fmt.Fprintf(&sb, "[%s] %s: %s\n", ts, speaker, ex.Message)
		}
		sb.WriteString("\n")
	}

	fmt.Fprintf(&sb, "Summary generated at: %s", time.Now().UTC().Format(time.RFC3339))
	return sb.String()
}

// parseQuestions extracts up to five questions from a model response:
// "- " bullet lines first, bare interrogative lines as a fallback.
func parseQuestions(content string) []string {
	var questions []string
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(line, "- "):
			questions = append(questions, strings.TrimPrefix(line, "- "))
		case line != "" && !strings.HasPrefix(line, "#") && strings.Contains(line, "?"):
			questions = append(questions, line)
		}
		if len(questions) == 5 {
			break
		}
	}
	return questions
}

var (
	negativeKeywords = []string{"angry", "frustrated", "upset", "horrible"}
	positiveKeywords = []string{"thank", "great", "excellent", "happy"}
)

// keywordSentiment is the degraded classifier used when the model path fails.
func keywordSentiment(text string) *Sentiment {
	lower := strings.ToLower(text)
	sentiment := "neutral"
	if containsAny(lower, negativeKeywords) {
		sentiment = "negative"
	} else if containsAny(lower, positiveKeywords) {
		sentiment = "positive"
	}
	return &Sentiment{
		Sentiment:   sentiment,
		Confidence:  0.6,
		Analysis:    "Basic keyword-based sentiment analysis",
		KeyEmotions: []string{},
		Source:      "fallback",
	}
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}

// extractJSON strips markdown code fences some models wrap JSON in.
func extractJSON(s string) string {
	s = strings.TrimSpace(s)
	if start := strings.Index(s, "{"); start >= 0 {
		if end := strings.LastIndex(s, "}"); end > start {
			return s[start : end+1]
		}
	}
	return s
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

// wrapUpstream preserves structured errors and annotates everything else.
func wrapUpstream(err error, op string) error {
	if e, ok := err.(*types.Error); ok {
		if e.Operation == "" {
			e.Operation = op
		}
		return e
	}
	return types.NewError(types.ErrUpstreamError, "summary generation failed").
		WithCause(err).
		WithOperation(op)
}
