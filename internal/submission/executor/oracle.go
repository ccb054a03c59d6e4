package executor

import (
	"context"

	"algojudge/internal/judging/model"
	submodel "algojudge/internal/submission/model"
	pkgerrors "algojudge/pkg/errors"
	"algojudge/pkg/utils/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const oracleUserID = "0"

// SolutionStore looks up reference solutions. A missing solution is
// reported with pkgerrors.RecordNotFound.
type SolutionStore interface {
	GetReferenceSolution(ctx context.Context, questionID int64) (*submodel.ReferenceSolution, error)
}

// OracleRunner executes a question's reference solution.
type OracleRunner struct {
	solutions SolutionStore
	adapter   Adapter
}

func NewOracleRunner(solutions SolutionStore, adapter Adapter) *OracleRunner {
	return &OracleRunner{solutions: solutions, adapter: adapter}
}

// HasOracle reports whether questionID has a reference solution.
func (o *OracleRunner) HasOracle(ctx context.Context, questionID int64) (bool, error) {
	_, err := o.solutions.GetReferenceSolution(ctx, questionID)
	switch {
	case err == nil:
		return true, nil
	case pkgerrors.Is(err, pkgerrors.RecordNotFound):
		return false, nil
	default:
		return false, err
	}
}

// Run executes the reference solution once over all inputs. The result is
// index aligned with inputs. meta describes the call signature; its
// language is replaced by the solution's.
func (o *OracleRunner) Run(ctx context.Context, meta model.QuestionMetadata, inputs []string) (*BatchResult, error) {
	questionID := meta.QuestionID
	solution, err := o.solutions.GetReferenceSolution(ctx, questionID)
	if err != nil {
		if pkgerrors.Is(err, pkgerrors.RecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.OracleMissing).WithDetail("questionId", questionID)
		}
		return nil, err
	}

	meta.Language = string(solution.Language)
	bundle := CodeBundle{
		ExecutionID: "oracle-" + uuid.NewString(),
		UserID:      oracleUserID,
		QuestionID:  questionID,
		Language:    string(solution.Language),
		Code:        solution.SourceCode,
		Metadata:    meta,
		Inputs:      inputs,
	}
	logger.Info(ctx, "executing oracle batch",
		zap.Int64("question_id", questionID),
		zap.String("execution_id", bundle.ExecutionID),
		zap.Int("test_cases", len(inputs)),
	)

	result, err := o.adapter.Execute(ctx, bundle)
	if err != nil {
		return nil, pkgerrors.Wrapf(err, pkgerrors.OracleFailed, "Oracle execution failed for question %d: %v", questionID, err)
	}
	if !result.Succeeded() {
		logger.Error(ctx, "oracle batch failed",
			zap.Int64("question_id", questionID),
			zap.String("status", string(result.Status)),
			zap.String("error", result.ErrorMessage),
		)
		return result, pkgerrors.Newf(pkgerrors.OracleFailed, "Oracle execution failed for question %d: %s", questionID, result.ErrorMessage).
			WithDetail("status", string(result.Status))
	}
	return result, nil
}
