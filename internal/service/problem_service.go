package service

import (
	"context"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/noah-isme/phybench-api/internal/dto"
	"github.com/noah-isme/phybench-api/internal/models"
	"github.com/noah-isme/phybench-api/internal/repository"
)

// ProblemService manages the problem catalogue.
type ProblemService interface {
	Submit(ctx context.Context, identity Identity, payload dto.ProblemCreateRequest) (dto.ProblemResponse, error)
	Get(ctx context.Context, identity Identity, id uint) (dto.ProblemResponse, error)
	List(ctx context.Context, identity Identity, req dto.ProblemListRequest) (dto.ProblemListResponse, error)
	Delete(ctx context.Context, identity Identity, id uint) error
	AssignExaminers(ctx context.Context, identity Identity, id uint, payload dto.AssignExaminersRequest) (dto.ProblemResponse, error)
}

type problemService struct {
	problems        repository.ProblemRepository
	users           repository.UserRepository
	validator       *validator.Validate
	sanitizer       *bluemonday.Policy
	activity        ActivityRecorder
	stats           StatsInvalidator
	logger          zerolog.Logger
	tracer          trace.Tracer
	defaultPageSize int
}

// NewProblemService constructs the problem catalogue service. activity and stats may be nil.
func NewProblemService(
	problems repository.ProblemRepository,
	users repository.UserRepository,
	validate *validator.Validate,
	activity ActivityRecorder,
	stats StatsInvalidator,
	defaultPageSize int,
	logger zerolog.Logger,
) ProblemService {
	return &problemService{
		problems:        problems,
		users:           users,
		validator:       validate,
		sanitizer:       bluemonday.StrictPolicy(),
		activity:        activity,
		stats:           stats,
		logger:          logger.With().Str("component", "problem_service").Logger(),
		tracer:          otel.Tracer("github.com/noah-isme/phybench-api/internal/service/problem"),
		defaultPageSize: defaultPageSize,
	}
}

func (s *problemService) Submit(ctx context.Context, identity Identity, payload dto.ProblemCreateRequest) (dto.ProblemResponse, error) {
	ctx, span := s.tracer.Start(ctx, "problems.submit")
	defer span.End()

	payload.Tag = strings.ToLower(strings.TrimSpace(payload.Tag))
	if err := s.validator.Struct(payload); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "validation_failed")
		return dto.ProblemResponse{}, validationFailure(err)
	}

	submitter, err := resolveRequester(ctx, s.users, identity)
	if err != nil {
		span.RecordError(err)
		return dto.ProblemResponse{}, err
	}

	title := strings.TrimSpace(s.sanitizer.Sanitize(payload.Title))
	if title == "" {
		return dto.ProblemResponse{}, invalid("title is empty after sanitization")
	}

	problem := models.Problem{
		UserID:      submitter.ID,
		Title:       title,
		Description: strings.TrimSpace(payload.Description),
		Note:        strings.TrimSpace(payload.Note),
		Source:      trimOptional(payload.Source),
		Content:     payload.Content,
		Solution:    payload.Solution,
		Answer:      strings.TrimSpace(payload.Answer),
		Tag:         models.ProblemTag(payload.Tag),
		Status:      models.StatusPending,
	}

	if email := trimOptional(payload.OffererEmail); email != nil {
		offerer, err := s.users.GetByEmail(ctx, *email)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return dto.ProblemResponse{}, invalid("offerer email does not belong to a registered user")
			}
			return dto.ProblemResponse{}, storeFailure(err)
		}
		problem.OffererID = &offerer.ID
	}

	for _, variable := range payload.Variables {
		problem.Variables = append(problem.Variables, models.ProblemVariable{
			Name:       strings.TrimSpace(variable.Name),
			LowerBound: variable.LowerBound,
			UpperBound: variable.UpperBound,
		})
	}
	problem.AIPerformances = buildAIPerformances(s.sanitizer, payload.AIResponses, models.AIPerformanceSubmitted)

	if err := s.problems.Create(ctx, &problem); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "create_failed")
		return dto.ProblemResponse{}, storeFailure(err)
	}

	span.SetAttributes(
		attribute.Int64("problem.id", int64(problem.ID)),
		attribute.String("problem.tag", string(problem.Tag)),
	)
	s.logger.Info().Uint("problem_id", problem.ID).Uint("user_id", submitter.ID).Msg("problem submitted")
	invalidateStats(ctx, s.stats)

	created, err := s.problems.GetDetailed(ctx, problem.ID)
	if err != nil {
		return dto.ProblemResponse{}, storeFailure(err)
	}
	return dto.NewProblemResponse(created), nil
}

func (s *problemService) Get(ctx context.Context, identity Identity, id uint) (dto.ProblemResponse, error) {
	requester, err := resolveRequester(ctx, s.users, identity)
	if err != nil {
		return dto.ProblemResponse{}, err
	}
	identity = identity.withUser(requester)

	problem, err := s.problems.GetDetailed(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.ProblemResponse{}, notFound("problem")
		}
		return dto.ProblemResponse{}, storeFailure(err)
	}

	if !CanView(identity, problem) {
		return dto.ProblemResponse{}, forbidden("problem belongs to another user")
	}
	return dto.NewProblemResponse(problem), nil
}

// List pages through the requester's own problems, or in exam mode the problems they examine.
// Admins in exam mode see the whole catalogue.
func (s *problemService) List(ctx context.Context, identity Identity, req dto.ProblemListRequest) (dto.ProblemListResponse, error) {
	ctx, span := s.tracer.Start(ctx, "problems.list")
	span.SetAttributes(attribute.Bool("problems.exam", req.Exam))
	defer span.End()

	requester, err := resolveRequester(ctx, s.users, identity)
	if err != nil {
		return dto.ProblemListResponse{}, err
	}
	identity = identity.withUser(requester)

	page, pageSize := normalizePage(req.Page, req.PageSize, s.defaultPageSize)
	filter := repository.ProblemFilter{Page: page, PageSize: pageSize}
	switch {
	case !req.Exam:
		filter.OwnerID = &requester.ID
	case identity.IsAdmin():
	default:
		filter.ExaminerID = &requester.ID
	}

	problems, total, err := s.problems.List(ctx, filter)
	if err != nil {
		span.RecordError(err)
		return dto.ProblemListResponse{}, storeFailure(err)
	}

	items := make([]dto.ProblemSummaryResponse, 0, len(problems))
	for _, problem := range problems {
		items = append(items, dto.NewProblemSummaryResponse(problem))
	}

	return dto.ProblemListResponse{
		Items:      items,
		Pagination: dto.NewPaginationMeta(page, pageSize, total),
	}, nil
}

func (s *problemService) Delete(ctx context.Context, identity Identity, id uint) error {
	requester, err := resolveRequester(ctx, s.users, identity)
	if err != nil {
		return err
	}
	identity = identity.withUser(requester)

	problem, err := s.problems.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return notFound("problem")
		}
		return storeFailure(err)
	}
	if !CanManage(identity, problem) {
		return forbidden("only the submitter or an admin may delete a problem")
	}

	if err := s.problems.Delete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return notFound("problem")
		}
		return storeFailure(err)
	}
	invalidateStats(ctx, s.stats)

	recordActivity(ctx, s.activity, s.logger, ActivityEntry{
		Actor:      identity,
		Action:     "problem.deleted",
		EntityType: "problem",
		EntityID:   &problem.ID,
		Metadata:   map[string]interface{}{"title": problem.Title, "status": string(problem.Status)},
	})
	return nil
}

func (s *problemService) AssignExaminers(ctx context.Context, identity Identity, id uint, payload dto.AssignExaminersRequest) (dto.ProblemResponse, error) {
	if err := requireAdmin(identity); err != nil {
		return dto.ProblemResponse{}, err
	}
	if err := s.validator.Struct(payload); err != nil {
		return dto.ProblemResponse{}, validationFailure(err)
	}

	if _, err := s.problems.GetByID(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.ProblemResponse{}, notFound("problem")
		}
		return dto.ProblemResponse{}, storeFailure(err)
	}

	ids := uniqueIDs(payload.ExaminerIDs)
	examiners, err := s.users.FindByIDs(ctx, ids)
	if err != nil {
		return dto.ProblemResponse{}, storeFailure(err)
	}
	if len(examiners) != len(ids) {
		return dto.ProblemResponse{}, invalid("one or more examiners do not exist")
	}

	if err := s.problems.ReplaceExaminers(ctx, id, examiners); err != nil {
		return dto.ProblemResponse{}, storeFailure(err)
	}

	recordActivity(ctx, s.activity, s.logger, ActivityEntry{
		Actor:      identity,
		Action:     "problem.examiners_assigned",
		EntityType: "problem",
		EntityID:   &id,
		Metadata:   map[string]interface{}{"examiner_ids": ids},
	})

	updated, err := s.problems.GetDetailed(ctx, id)
	if err != nil {
		return dto.ProblemResponse{}, storeFailure(err)
	}
	return dto.NewProblemResponse(updated), nil
}

func buildAIPerformances(sanitizer *bluemonday.Policy, responses []dto.AIResponseRequest, tag models.AIPerformanceTag) []models.AIPerformance {
	performances := make([]models.AIPerformance, 0, len(responses))
	for _, response := range responses {
		performance := models.AIPerformance{
			AIName:         strings.TrimSpace(response.AIName),
			AISolution:     response.AISolution,
			AIAnswer:       strings.TrimSpace(response.AIAnswer),
			IsCorrect:      response.IsCorrect,
			Tag:            tag,
			AIScore:        response.AIScore,
			UnlistedAIName: trimOptional(response.UnlistedAIName),
		}
		if response.Comment != nil {
			comment := strings.TrimSpace(sanitizer.Sanitize(*response.Comment))
			if comment != "" {
				performance.Comment = &comment
			}
		}
		performances = append(performances, performance)
	}
	return performances
}

func trimOptional(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func uniqueIDs(ids []uint) []uint {
	seen := make(map[uint]struct{}, len(ids))
	unique := make([]uint, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		unique = append(unique, id)
	}
	return unique
}
