package service

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gosimple/slug"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/noah-isme/phybench-api/internal/dto"
	"github.com/noah-isme/phybench-api/internal/models"
	"github.com/noah-isme/phybench-api/internal/repository"
)

// exportFields maps accepted field names to output keys. Both spellings are accepted.
var exportFields = map[string]string{
	"tag":                 "tag",
	"status":              "status",
	"translatedStatus":    "translated_status",
	"translated_status":   "translated_status",
	"nominated":           "nominated",
	"translatedContent":   "translated_content",
	"translated_content":  "translated_content",
	"translatedSolution":  "translated_solution",
	"translated_solution": "translated_solution",
	"variables":           "variables",
	"aiPerformances":      "ai_performances",
	"ai_performances":     "ai_performances",
}

// ExportService produces filtered dataset dumps of the catalogue.
type ExportService interface {
	Export(ctx context.Context, identity Identity, req dto.ExportRequest) (dto.ExportResult, error)
}

type exportService struct {
	problems  repository.ProblemRepository
	validator *validator.Validate
	activity  ActivityRecorder
	logger    zerolog.Logger
	tracer    trace.Tracer
}

// NewExportService constructs the export service.
func NewExportService(problems repository.ProblemRepository, validate *validator.Validate, activity ActivityRecorder, logger zerolog.Logger) ExportService {
	return &exportService{
		problems:  problems,
		validator: validate,
		activity:  activity,
		logger:    logger.With().Str("component", "export_service").Logger(),
		tracer:    otel.Tracer("github.com/noah-isme/phybench-api/internal/service/export"),
	}
}

// Export always returns id, content, solution and answer; other fields only when requested.
// Unknown field names are ignored.
func (s *exportService) Export(ctx context.Context, identity Identity, req dto.ExportRequest) (dto.ExportResult, error) {
	if err := requireAdmin(identity); err != nil {
		return dto.ExportResult{}, err
	}

	req.Tag = strings.ToLower(strings.TrimSpace(req.Tag))
	req.Status = strings.ToLower(strings.TrimSpace(req.Status))
	req.TranslatedStatus = strings.ToLower(strings.TrimSpace(req.TranslatedStatus))
	req.Nominated = strings.TrimSpace(req.Nominated)
	if err := s.validator.Struct(req); err != nil {
		return dto.ExportResult{}, validationFailure(err)
	}

	selected := SelectExportFields(req.Fields)

	ctx, span := s.tracer.Start(ctx, "export.problems")
	defer span.End()

	_, withVariables := selected["variables"]
	_, withAI := selected["ai_performances"]
	problems, err := s.problems.Export(ctx, repository.ExportFilter{
		Tag:              models.ProblemTag(req.Tag),
		Status:           models.ProblemStatus(req.Status),
		TranslatedStatus: models.ProblemStatus(req.TranslatedStatus),
		Nominated:        req.Nominated,
		WithoutAIResults: req.AIPerformances == "0",
		PreloadVariables: withVariables,
		PreloadAIResults: withAI,
	})
	if err != nil {
		span.RecordError(err)
		return dto.ExportResult{}, storeFailure(err)
	}

	items := make([]map[string]interface{}, 0, len(problems))
	for _, problem := range problems {
		items = append(items, projectProblem(problem, selected))
	}
	span.SetAttributes(attribute.Int("export.count", len(items)))

	recordActivity(ctx, s.activity, s.logger, ActivityEntry{
		Actor:      identity,
		Action:     "problems.exported",
		EntityType: "problem",
		Metadata: map[string]interface{}{
			"count":  len(items),
			"tag":    req.Tag,
			"status": req.Status,
		},
	})

	return dto.ExportResult{
		FileName: ExportFileName(req),
		Count:    len(items),
		Items:    items,
	}, nil
}

// SelectExportFields resolves requested names against the allow-list.
func SelectExportFields(fields []string) map[string]struct{} {
	selected := map[string]struct{}{}
	for _, raw := range fields {
		for _, part := range strings.Split(raw, ",") {
			if key, ok := exportFields[strings.TrimSpace(part)]; ok {
				selected[key] = struct{}{}
			}
		}
	}
	return selected
}

// ExportFileName builds a download name such as "phybench-mechanics-approved.json".
func ExportFileName(req dto.ExportRequest) string {
	parts := []string{"phybench"}
	for _, value := range []string{req.Tag, req.Status, req.TranslatedStatus, req.Nominated} {
		if value != "" {
			parts = append(parts, value)
		}
	}
	if req.AIPerformances == "0" {
		parts = append(parts, "unannotated")
	}
	return slug.Make(strings.Join(parts, " ")) + ".json"
}

func projectProblem(problem models.Problem, selected map[string]struct{}) map[string]interface{} {
	item := map[string]interface{}{
		"id":       problem.ID,
		"content":  problem.Content,
		"solution": problem.Solution,
		"answer":   problem.Answer,
	}
	for key := range selected {
		switch key {
		case "tag":
			item[key] = problem.Tag
		case "status":
			item[key] = problem.Status
		case "translated_status":
			item[key] = problem.TranslatedStatus
		case "nominated":
			item[key] = problem.Nominated
		case "translated_content":
			item[key] = problem.TranslatedContent
		case "translated_solution":
			item[key] = problem.TranslatedSolution
		case "variables":
			variables := problem.Variables
			if variables == nil {
				variables = []models.ProblemVariable{}
			}
			item[key] = variables
		case "ai_performances":
			performances := problem.AIPerformances
			if performances == nil {
				performances = []models.AIPerformance{}
			}
			item[key] = performances
		}
	}
	return item
}
