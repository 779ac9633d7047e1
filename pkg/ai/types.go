package ai

import "context"

// ProblemInput is the statement handed to a model for solving.
type ProblemInput struct {
	Title     string
	Tag       string
	Content   string
	Variables []VariableRange
}

// VariableRange bounds one symbol in the statement.
type VariableRange struct {
	Name       string
	LowerBound float64
	UpperBound float64
}

// Solution is the model's worked answer.
type Solution struct {
	Model    string                 `json:"model"`
	Solution string                 `json:"solution"`
	Answer   string                 `json:"answer"`
	Raw      map[string]interface{} `json:"raw,omitempty"`
}

// Solver describes an AI model able to attempt physics problems.
type Solver interface {
	Solve(ctx context.Context, input ProblemInput) (Solution, error)
	Model() string
}
