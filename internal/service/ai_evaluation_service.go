package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/phybench-api/internal/dto"
	"github.com/noah-isme/phybench-api/internal/models"
	"github.com/noah-isme/phybench-api/internal/repository"
	"github.com/noah-isme/phybench-api/pkg/ai"
)

// AIEvaluationService runs a configured model against a problem and stores the attempt.
type AIEvaluationService interface {
	Evaluate(ctx context.Context, identity Identity, problemID uint) (dto.AIEvaluationResponse, error)
}

type aiEvaluationService struct {
	problems repository.ProblemRepository
	solver   ai.Solver
	activity ActivityRecorder
	logger   zerolog.Logger
}

// NewAIEvaluationService constructs the evaluation service. A nil solver disables it.
func NewAIEvaluationService(problems repository.ProblemRepository, solver ai.Solver, activity ActivityRecorder, logger zerolog.Logger) AIEvaluationService {
	return &aiEvaluationService{
		problems: problems,
		solver:   solver,
		activity: activity,
		logger:   logger.With().Str("component", "ai_evaluation_service").Logger(),
	}
}

func (s *aiEvaluationService) Evaluate(ctx context.Context, identity Identity, problemID uint) (dto.AIEvaluationResponse, error) {
	if err := requireAdmin(identity); err != nil {
		return dto.AIEvaluationResponse{}, err
	}
	if s.solver == nil {
		return dto.AIEvaluationResponse{}, fmt.Errorf("%w: ai evaluation is not configured", ErrUnavailable)
	}

	problem, err := s.problems.GetDetailed(ctx, problemID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.AIEvaluationResponse{}, notFound("problem")
		}
		return dto.AIEvaluationResponse{}, storeFailure(err)
	}

	input := ai.ProblemInput{
		Title:   problem.Title,
		Tag:     string(problem.Tag),
		Content: problem.Content,
	}
	for _, variable := range problem.Variables {
		input.Variables = append(input.Variables, ai.VariableRange{
			Name:       variable.Name,
			LowerBound: variable.LowerBound,
			UpperBound: variable.UpperBound,
		})
	}

	solution, err := s.solver.Solve(ctx, input)
	if err != nil {
		s.logger.Error().Err(err).Uint("problem_id", problemID).Msg("ai solve failed")
		return dto.AIEvaluationResponse{}, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	model := solution.Model
	if model == "" {
		model = s.solver.Model()
	}
	performance := models.AIPerformance{
		AIName:     model,
		AISolution: solution.Solution,
		AIAnswer:   solution.Answer,
		IsCorrect:  AnswersMatch(problem.Answer, solution.Answer),
		Tag:        models.AIPerformanceEvaluation,
	}

	performances := []models.AIPerformance{performance}
	found, err := s.problems.AddAIPerformances(ctx, problemID, performances)
	if err != nil {
		return dto.AIEvaluationResponse{}, storeFailure(err)
	}
	if !found {
		return dto.AIEvaluationResponse{}, notFound("problem")
	}

	recordActivity(ctx, s.activity, s.logger, ActivityEntry{
		Actor:      identity,
		Action:     "problem.ai_evaluated",
		EntityType: "problem",
		EntityID:   &problemID,
		Metadata: map[string]interface{}{
			"model":      model,
			"is_correct": performance.IsCorrect,
		},
	})

	return dto.AIEvaluationResponse{ProblemID: problemID, Performance: performances[0]}, nil
}

// AnswersMatch compares two final answers ignoring case, whitespace, math delimiters
// and a trailing full stop.
func AnswersMatch(expected, actual string) bool {
	left := normalizeAnswer(expected)
	return left != "" && left == normalizeAnswer(actual)
}

func normalizeAnswer(answer string) string {
	answer = strings.TrimSpace(answer)
	answer = strings.TrimSuffix(answer, ".")
	var builder strings.Builder
	for _, r := range answer {
		if unicode.IsSpace(r) || r == '$' {
			continue
		}
		builder.WriteRune(unicode.ToLower(r))
	}
	return builder.String()
}
