package compiler

import (
	"fmt"
	"sort"
	"strings"

	"github.com/hashicorp/go-multierror"
)

// Issue is a single validation problem. QuestionID is empty for problems
// with the settings or the quiz as a whole.
type Issue struct {
	QuestionID string `json:"question_id,omitempty"`
	Field      string `json:"field"`
	Message    string `json:"message"`
}

func (i *Issue) Error() string {
	if i.QuestionID == "" {
		return fmt.Sprintf("%s: %s", i.Field, i.Message)
	}
	return fmt.Sprintf("question %s: %s: %s", i.QuestionID, i.Field, i.Message)
}

// ValidationError aggregates every problem found in a QuizData. No artifact
// is produced when it is returned.
type ValidationError struct {
	// QuestionIDs lists the offending questions, sorted and unique.
	QuestionIDs []string
	Issues      []Issue
}

// Error renders validation errors as a multi-line string.
func (err *ValidationError) Error() string {
	if err == nil || len(err.Issues) == 0 {
		return "quiz validation failed"
	}
	lines := make([]string, 0, len(err.Issues)+1)
	lines = append(lines, fmt.Sprintf("quiz validation failed (%d issues)", len(err.Issues)))
	for i := range err.Issues {
		lines = append(lines, "  "+err.Issues[i].Error())
	}
	return strings.Join(lines, "\n")
}

// issues collects problems while walking the quiz.
type issues struct {
	merr *multierror.Error
}

func (c *issues) add(questionID, field, format string, args ...interface{}) {
	c.merr = multierror.Append(c.merr, &Issue{
		QuestionID: questionID,
		Field:      field,
		Message:    fmt.Sprintf(format, args...),
	})
}

// err converts the collected problems into a *ValidationError, or nil.
func (c *issues) err() error {
	if c.merr.ErrorOrNil() == nil {
		return nil
	}
	ve := &ValidationError{}
	seen := make(map[string]struct{})
	for _, e := range c.merr.Errors {
		issue, ok := e.(*Issue)
		if !ok {
			ve.Issues = append(ve.Issues, Issue{Field: "quiz", Message: e.Error()})
			continue
		}
		ve.Issues = append(ve.Issues, *issue)
		if issue.QuestionID != "" {
			if _, dup := seen[issue.QuestionID]; !dup {
				seen[issue.QuestionID] = struct{}{}
				ve.QuestionIDs = append(ve.QuestionIDs, issue.QuestionID)
			}
		}
	}
	sort.Strings(ve.QuestionIDs)
	return ve
}
