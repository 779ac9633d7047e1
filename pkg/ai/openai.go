package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
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
		Namespace: "phybench",
		Subsystem: "ai",
		Name:      "solve_duration_seconds",
		Help:      "Duration of AI solve requests",
		Buckets:   []float64{0.5, 1, 2.5, 5, 10, 20, 40, 80},
	}, []string{"model"})

	aiFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "phybench",
		Subsystem: "ai",
		Name:      "solve_failures_total",
		Help:      "Number of AI solve failures",
	}, []string{"model"})
)

// OpenAIConfig defines configuration options for the OpenAI solver.
type OpenAIConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	MaxTokens   int
	Temperature float32
	Logger      zerolog.Logger
}

// OpenAISolver implements Solver against the OpenAI chat completion API.
type OpenAISolver struct {
	client *openai.Client
	cfg    OpenAIConfig
	tracer trace.Tracer
	logger zerolog.Logger
}

// NewOpenAISolver builds a new solver using the provided configuration.
func NewOpenAISolver(cfg OpenAIConfig) (*OpenAISolver, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai api key is required")
	}

	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}

	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 2048
	}

	logger := cfg.Logger
	if logger.GetLevel() == zerolog.Disabled {
		logger = zerolog.Nop()
	}

	config := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		config.BaseURL = cfg.BaseURL
	}

	return &OpenAISolver{
		client: openai.NewClientWithConfig(config),
		cfg:    cfg,
		tracer: otel.Tracer("github.com/noah-isme/phybench-api/pkg/ai/openai"),
		logger: logger.With().Str("component", "openai_solver").Logger(),
	}, nil
}

// Model reports the configured model name.
func (s *OpenAISolver) Model() string {
	return s.cfg.Model
}

// Solve sends the problem to OpenAI and parses the JSON reply.
func (s *OpenAISolver) Solve(parent context.Context, input ProblemInput) (Solution, error) {
	ctx, span := s.tracer.Start(parent, "openai.solve", trace.WithAttributes(
		attribute.String("model", s.cfg.Model),
	))
	defer span.End()

	start := time.Now()
	request := openai.ChatCompletionRequest{
		Model:       s.cfg.Model,
		MaxTokens:   s.cfg.MaxTokens,
		Temperature: s.cfg.Temperature,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: solverSystemPrompt(),
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: buildUserPrompt(input),
			},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject},
	}

	resp, err := s.client.CreateChatCompletion(ctx, request)
	aiDuration.WithLabelValues(s.cfg.Model).Observe(time.Since(start).Seconds())
	if err != nil {
		aiFailures.WithLabelValues(s.cfg.Model).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Solution{}, fmt.Errorf("openai solve: %w", err)
	}

	if len(resp.Choices) == 0 {
		err := fmt.Errorf("no choices returned from openai")
		aiFailures.WithLabelValues(s.cfg.Model).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Solution{}, err
	}

	result, err := parseSolution(strings.TrimSpace(resp.Choices[0].Message.Content))
	if err != nil {
		aiFailures.WithLabelValues(s.cfg.Model).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Solution{}, err
	}

	result.Model = s.cfg.Model
	result.Raw = map[string]interface{}{
		"usage": resp.Usage,
	}
	s.logger.Debug().Int("total_tokens", resp.Usage.TotalTokens).Msg("problem solved")

	return result, nil
}

func solverSystemPrompt() string {
	return "You are a physics olympiad solver. Work the problem step by step in LaTeX and respond with a JSON object " +
		"containing solution (the full derivation) and answer (the final expression or value only)."
}

func buildUserPrompt(input ProblemInput) string {
	builder := strings.Builder{}
	builder.WriteString("# Problem\n")
	builder.WriteString(input.Title)
	if input.Tag != "" {
		builder.WriteString("\n\n## Topic\n")
		builder.WriteString(input.Tag)
	}
	builder.WriteString("\n\n## Statement\n")
	builder.WriteString(input.Content)
	if len(input.Variables) > 0 {
		builder.WriteString("\n\n## Variables\n")
		for _, variable := range input.Variables {
			builder.WriteString("- ")
			builder.WriteString(variable.Name)
			builder.WriteString(" in [")
			builder.WriteString(strconv.FormatFloat(variable.LowerBound, 'g', -1, 64))
			builder.WriteString(", ")
			builder.WriteString(strconv.FormatFloat(variable.UpperBound, 'g', -1, 64))
			builder.WriteString("]\n")
		}
	}
	builder.WriteString("\nReturn JSON.")
	return builder.String()
}

func parseSolution(content string) (Solution, error) {
	type payload struct {
		Solution string          `json:"solution"`
		Answer   json.RawMessage `json:"answer"`
	}

	var data payload
	if err := json.Unmarshal([]byte(content), &data); err != nil {
		return Solution{}, fmt.Errorf("parse solution json: %w", err)
	}

	answer := strings.TrimSpace(string(data.Answer))
	var text string
	if err := json.Unmarshal(data.Answer, &text); err == nil {
		answer = strings.TrimSpace(text)
	}
	if answer == "" || answer == "null" {
		return Solution{}, fmt.Errorf("solution json has no answer")
	}

	return Solution{
		Solution: strings.TrimSpace(data.Solution),
		Answer:   answer,
	}, nil
}
