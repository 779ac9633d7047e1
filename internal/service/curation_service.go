package service

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/noah-isme/phybench-api/internal/dto"
	"github.com/noah-isme/phybench-api/internal/models"
	"github.com/noah-isme/phybench-api/internal/repository"
)

// CurationService ingests bulk translation and AI annotation uploads.
type CurationService interface {
	UploadTranslations(ctx context.Context, identity Identity, payload dto.TranslationUploadRequest) (dto.UploadSummaryResponse, error)
	UploadAIPerformances(ctx context.Context, identity Identity, payload dto.AIPerformanceUploadRequest) (dto.UploadSummaryResponse, error)
}

type curationService struct {
	problems  repository.ProblemRepository
	validator *validator.Validate
	sanitizer *bluemonday.Policy
	activity  ActivityRecorder
	logger    zerolog.Logger
	tracer    trace.Tracer
}

// NewCurationService constructs the curation upload service.
func NewCurationService(problems repository.ProblemRepository, validate *validator.Validate, activity ActivityRecorder, logger zerolog.Logger) CurationService {
	return &curationService{
		problems:  problems,
		validator: validate,
		sanitizer: bluemonday.StrictPolicy(),
		activity:  activity,
		logger:    logger.With().Str("component", "curation_service").Logger(),
		tracer:    otel.Tracer("github.com/noah-isme/phybench-api/internal/service/curation"),
	}
}

// UploadTranslations applies each item independently; a bad item does not abort the batch.
func (s *curationService) UploadTranslations(ctx context.Context, identity Identity, payload dto.TranslationUploadRequest) (dto.UploadSummaryResponse, error) {
	if err := requireAdmin(identity); err != nil {
		return dto.UploadSummaryResponse{}, err
	}
	if err := s.validator.Struct(payload); err != nil {
		return dto.UploadSummaryResponse{}, validationFailure(err)
	}

	ctx, span := s.tracer.Start(ctx, "curation.translations")
	span.SetAttributes(attribute.Int("curation.items", len(payload.Items)))
	defer span.End()

	summary := newUploadSummary(len(payload.Items))
	for _, item := range payload.Items {
		if item.TranslatedStatus != nil {
			lowered := strings.ToLower(strings.TrimSpace(*item.TranslatedStatus))
			item.TranslatedStatus = &lowered
		}
		if err := s.validator.Struct(item); err != nil {
			summary.add(item.ID, dto.UploadResultInvalid, validationFailure(err).Error())
			continue
		}

		updates := map[string]interface{}{}
		if item.TranslatedContent != nil {
			updates["translated_content"] = *item.TranslatedContent
		}
		if item.TranslatedSolution != nil {
			updates["translated_solution"] = *item.TranslatedSolution
		}
		if item.TranslatedStatus != nil {
			updates["translated_status"] = models.ProblemStatus(*item.TranslatedStatus)
		}
		if len(updates) == 0 {
			summary.add(item.ID, dto.UploadResultInvalid, "no translated fields supplied")
			continue
		}

		found, err := s.problems.UpdateTranslation(ctx, item.ID, updates)
		if err != nil {
			span.RecordError(err)
			return dto.UploadSummaryResponse{}, storeFailure(err)
		}
		if !found {
			summary.add(item.ID, dto.UploadResultNotFound, "")
			continue
		}
		summary.add(item.ID, dto.UploadResultUpdated, "")
	}

	s.record(ctx, identity, "translations.uploaded", summary)
	return summary.UploadSummaryResponse, nil
}

// UploadAIPerformances appends EVALUATION annotations to each referenced problem.
func (s *curationService) UploadAIPerformances(ctx context.Context, identity Identity, payload dto.AIPerformanceUploadRequest) (dto.UploadSummaryResponse, error) {
	if err := requireAdmin(identity); err != nil {
		return dto.UploadSummaryResponse{}, err
	}
	if err := s.validator.Struct(payload); err != nil {
		return dto.UploadSummaryResponse{}, validationFailure(err)
	}

	ctx, span := s.tracer.Start(ctx, "curation.ai_performances")
	span.SetAttributes(attribute.Int("curation.items", len(payload.Items)))
	defer span.End()

	summary := newUploadSummary(len(payload.Items))
	for _, item := range payload.Items {
		if err := s.validator.Struct(item); err != nil {
			summary.add(item.ProblemID, dto.UploadResultInvalid, validationFailure(err).Error())
			continue
		}

		performances := buildAIPerformances(s.sanitizer, item.Performances, models.AIPerformanceEvaluation)
		found, err := s.problems.AddAIPerformances(ctx, item.ProblemID, performances)
		if err != nil {
			span.RecordError(err)
			return dto.UploadSummaryResponse{}, storeFailure(err)
		}
		if !found {
			summary.add(item.ProblemID, dto.UploadResultNotFound, "")
			continue
		}
		summary.add(item.ProblemID, dto.UploadResultUpdated, "")
	}

	s.record(ctx, identity, "ai_performances.uploaded", summary)
	return summary.UploadSummaryResponse, nil
}

func (s *curationService) record(ctx context.Context, identity Identity, action string, summary *uploadSummary) {
	recordActivity(ctx, s.activity, s.logger, ActivityEntry{
		Actor:      identity,
		Action:     action,
		EntityType: "problem",
		Metadata: map[string]interface{}{
			"updated":   summary.Updated,
			"not_found": summary.NotFound,
			"invalid":   summary.Invalid,
		},
	})
}

type uploadSummary struct {
	dto.UploadSummaryResponse
}

func newUploadSummary(size int) *uploadSummary {
	return &uploadSummary{dto.UploadSummaryResponse{Items: make([]dto.UploadItemResult, 0, size)}}
}

func (u *uploadSummary) add(id uint, result, reason string) {
	switch result {
	case dto.UploadResultUpdated:
		u.Updated++
	case dto.UploadResultNotFound:
		u.NotFound++
	case dto.UploadResultInvalid:
		u.Invalid++
	}
	u.Items = append(u.Items, dto.UploadItemResult{ID: id, Result: result, Reason: reason})
}
