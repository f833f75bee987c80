package ai

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var (
	aiDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "naati",
		Subsystem: "ai",
		Name:      "request_duration_seconds",
		Help:      "Duration of speech/scoring oracle requests",
	}, []string{"operation", "model"})

	aiFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "naati",
		Subsystem: "ai",
		Name:      "request_failures_total",
		Help:      "Number of failed speech/scoring oracle requests",
	}, []string{"operation", "model"})
)

// OpenAIConfig defines configuration options for the OpenAI speech service.
type OpenAIConfig struct {
	APIKey          string
	TranscribeModel string
	ScoreModel      string
	OverallModel    string
	Logger          zerolog.Logger
}

// OpenAIService implements SpeechService against the OpenAI audio and chat APIs.
type OpenAIService struct {
	client *openai.Client
	http   *http.Client
	cfg    OpenAIConfig
	tracer trace.Tracer
	logger zerolog.Logger
}

// NewOpenAIService builds a speech service using the provided configuration.
func NewOpenAIService(cfg OpenAIConfig) (*OpenAIService, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai api key is required")
	}

	if cfg.TranscribeModel == "" {
		cfg.TranscribeModel = "gpt-4o-mini-transcribe"
	}

	if cfg.ScoreModel == "" {
		cfg.ScoreModel = "gpt-4o-mini"
	}

	if cfg.OverallModel == "" {
		cfg.OverallModel = cfg.ScoreModel
	}

	return &OpenAIService{
		client: openai.NewClient(cfg.APIKey),
		http:   &http.Client{Timeout: 30 * time.Second},
		cfg:    cfg,
		tracer: otel.Tracer("github.com/ahmedsarwar7575/naati-speaking-api/pkg/ai"),
		logger: cfg.Logger.With().Str("component", "openai").Logger(),
	}, nil
}

// Transcribe converts an audio payload to text.
func (s *OpenAIService) Transcribe(parent context.Context, input AudioInput) (string, error) {
	ctx, span := s.tracer.Start(parent, "openai.transcribe", trace.WithAttributes(
		attribute.String("model", s.cfg.TranscribeModel),
	))
	defer span.End()

	fileName := input.FileName
	if fileName == "" {
		fileName = "audio" + extensionForMime(input.MimeType)
	}

	start := time.Now()
	resp, err := s.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    s.cfg.TranscribeModel,
		FilePath: fileName,
		Reader:   bytes.NewReader(input.Data),
		Language: input.Language,
	})
	aiDuration.WithLabelValues("transcribe", s.cfg.TranscribeModel).Observe(time.Since(start).Seconds())
	if err != nil {
		aiFailures.WithLabelValues("transcribe", s.cfg.TranscribeModel).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", fmt.Errorf("openai transcribe: %w", err)
	}

	return resp.Text, nil
}

// TranscribeURL fetches a stored audio asset and transcribes it.
func (s *OpenAIService) TranscribeURL(ctx context.Context, url, language string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("build audio request: %w", err)
	}

	resp, err := s.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch audio %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch audio %s: unexpected status %d", url, resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read audio %s: %w", url, err)
	}

	mimeType := resp.Header.Get("Content-Type")
	if idx := strings.Index(mimeType, ";"); idx >= 0 {
		mimeType = strings.TrimSpace(mimeType[:idx])
	}
	if mimeType == "" {
		mimeType = guessMimeFromURL(url)
	}

	return s.Transcribe(ctx, AudioInput{
		FileName: "audio" + extensionForMime(mimeType),
		MimeType: mimeType,
		Language: language,
		Data:     data,
	})
}

// ScoreSegment asks the scoring model for a rubric breakdown of one attempt.
func (s *OpenAIService) ScoreSegment(parent context.Context, input ScoreInput) (SegmentScores, error) {
	ctx, span := s.tracer.Start(parent, "openai.score_segment", trace.WithAttributes(
		attribute.String("model", s.cfg.ScoreModel),
	))
	defer span.End()

	start := time.Now()
	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       s.cfg.ScoreModel,
		MaxTokens:   900,
		Temperature: 0.25,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: "You are an expert NAATI speaking examiner.",
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: buildScorePrompt(input),
			},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject},
	})
	aiDuration.WithLabelValues("score", s.cfg.ScoreModel).Observe(time.Since(start).Seconds())
	if err != nil {
		aiFailures.WithLabelValues("score", s.cfg.ScoreModel).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return SegmentScores{}, fmt.Errorf("openai score: %w", err)
	}

	if len(resp.Choices) == 0 {
		err := fmt.Errorf("no choices returned from openai")
		aiFailures.WithLabelValues("score", s.cfg.ScoreModel).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return SegmentScores{}, err
	}

	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	scores, err := ParseSegmentScores([]byte(content))
	if err != nil {
		aiFailures.WithLabelValues("score", s.cfg.ScoreModel).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return SegmentScores{}, err
	}

	return scores, nil
}

// OverallFeedback generates the narrative summary for a completed session.
func (s *OpenAIService) OverallFeedback(parent context.Context, input FeedbackInput) (string, error) {
	ctx, span := s.tracer.Start(parent, "openai.overall_feedback", trace.WithAttributes(
		attribute.String("model", s.cfg.OverallModel),
	))
	defer span.End()

	start := time.Now()
	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       s.cfg.OverallModel,
		MaxTokens:   400,
		Temperature: 0.4,
		Messages: []openai.ChatCompletionMessage{
			{
				Role: openai.ChatMessageRoleSystem,
				Content: "You are a speaking exam evaluator. Read the per-segment feedback notes and averages, " +
					"then write overall feedback in 5 to 7 short lines. Mention patterns across segments, " +
					"2 strengths, 2 improvement areas, and 1 specific actionable next step. " +
					"Do not repeat the notes verbatim. No headings.",
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: buildFeedbackPrompt(input),
			},
		},
	})
	aiDuration.WithLabelValues("overall_feedback", s.cfg.OverallModel).Observe(time.Since(start).Seconds())
	if err != nil {
		aiFailures.WithLabelValues("overall_feedback", s.cfg.OverallModel).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", fmt.Errorf("openai overall feedback: %w", err)
	}

	if len(resp.Choices) == 0 {
		err := fmt.Errorf("no choices returned from openai")
		aiFailures.WithLabelValues("overall_feedback", s.cfg.OverallModel).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}

	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

func buildScorePrompt(input ScoreInput) string {
	language := input.Language
	if language == "" {
		language = "unspecified"
	}

	referenceText := input.ReferenceText
	if referenceText == "" {
		referenceText = "Not provided. Use ASR transcripts as reference."
	}

	builder := strings.Builder{}
	builder.WriteString("This is a repetition practice:\n")
	builder.WriteString("- REFERENCE: what the audio said\n")
	builder.WriteString("- SUGGESTED: an ideal version (if present)\n")
	builder.WriteString("- STUDENT: what the student said\n\n")
	builder.WriteString("Language (optional): " + language + ".\n\n")
	builder.WriteString("REFERENCE SCRIPT (optional):\n" + referenceText + "\n\n")
	builder.WriteString("FULL TRANSCRIPT:\n" + input.CombinedTranscript + "\n\n")
	builder.WriteString("Score with:\n")
	builder.WriteString("1) Accuracy & Meaning Transfer (0-15)\n")
	builder.WriteString("2) Language Quality (0-10)\n")
	builder.WriteString("3) Fluency & Pronunciation (0-8)\n")
	builder.WriteString("4) Delivery & Coherence (0-5)\n")
	builder.WriteString("5) Cultural & Contextual Appropriateness (0-4)\n")
	builder.WriteString("6) Response Management (0-3)\n\n")
	builder.WriteString("Return only a JSON object with keys accuracy_score, accuracy_feedback, ")
	builder.WriteString("language_quality_score, language_quality_feedback, fluency_pronunciation_score, ")
	builder.WriteString("fluency_pronunciation_feedback, delivery_coherence_score, delivery_coherence_feedback, ")
	builder.WriteString("cultural_context_score, cultural_context_feedback, response_management_score, ")
	builder.WriteString("response_management_feedback, one_line_feedback.")
	return builder.String()
}

func buildFeedbackPrompt(input FeedbackInput) string {
	builder := strings.Builder{}
	builder.WriteString("Averages:\n")
	for _, key := range sortedKeys(input.Averages) {
		builder.WriteString(fmt.Sprintf("%s=%.2f\n", key, input.Averages[key]))
	}
	builder.WriteString("\nPer-segment notes:\n")
	builder.WriteString(input.Notes)
	return builder.String()
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func extensionForMime(mimeType string) string {
	switch mimeType {
	case "audio/wav":
		return ".wav"
	case "audio/mpeg":
		return ".mp3"
	case "audio/mp4", "audio/x-m4a":
		return ".m4a"
	case "audio/ogg":
		return ".ogg"
	case "audio/flac":
		return ".flac"
	default:
		return ".webm"
	}
}

func guessMimeFromURL(url string) string {
	ext := strings.ToLower(path.Ext(strings.Split(url, "?")[0]))
	if ext == "" {
		return "audio/webm"
	}
	if mimeType := mime.TypeByExtension(ext); strings.HasPrefix(mimeType, "audio/") {
		return mimeType
	}
	switch ext {
	case ".mp3", ".mpeg":
		return "audio/mpeg"
	case ".wav":
		return "audio/wav"
	case ".m4a":
		return "audio/x-m4a"
	case ".ogg":
		return "audio/ogg"
	case ".aac":
		return "audio/aac"
	case ".flac":
		return "audio/flac"
	default:
		return "audio/webm"
	}
}
