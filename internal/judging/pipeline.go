package judging

import (
	"fmt"
	"strings"

	"algojudge/internal/judging/comparator"
	"algojudge/internal/judging/extractor"
	"algojudge/internal/judging/jsonval"
	"algojudge/internal/judging/model"
	"algojudge/internal/judging/normalizer"
	"algojudge/internal/judging/validator"
)

// Pipeline judges test cases of one question. It holds no mutable state and
// may be shared between goroutines.
type Pipeline struct {
	extractor  extractor.Kind
	normalizer normalizer.Kind
	comparator comparator.Kind
	validators []validator.Kind
}

// Extractor returns the selected extraction strategy.
func (p *Pipeline) Extractor() extractor.Kind { return p.extractor }

// Normalizer returns the selected normalization strategy.
func (p *Pipeline) Normalizer() normalizer.Kind { return p.normalizer }

// Comparator returns the selected comparison strategy.
func (p *Pipeline) Comparator() comparator.Kind { return p.comparator }

// Validators returns a copy of the registered validators in run order.
func (p *Pipeline) Validators() []validator.Kind {
	return append([]validator.Kind(nil), p.validators...)
}

// Describe renders the selected strategies, e.g.
// "JsonArray -> SortedList -> SetEquality [StructuralSafety]".
func (p *Pipeline) Describe() string {
	names := make([]string, len(p.validators))
	for i, v := range p.validators {
		names[i] = v.String()
	}
	return fmt.Sprintf("%s -> %s -> %s [%s]", p.extractor, p.normalizer, p.comparator, strings.Join(names, ", "))
}

// Judge decides one test case. Oracle failures and internal faults come back
// as judge errors; Judge never panics.
func (p *Pipeline) Judge(user, oracle model.ExecutionOutput, ctx *model.Context) (result model.Result) {
	if oracle.HasError() {
		return model.JudgeFailure("Oracle execution failed: " + oracle.Error)
	}
	defer func() {
		if r := recover(); r != nil {
			result = model.JudgeFailure(fmt.Sprintf("Judging failed: %v", r))
		}
	}()

	userValue := extractor.Extract(p.extractor, user.RawOutput, ctx)
	oracleValue := extractor.Extract(p.extractor, oracle.RawOutput, ctx)

	in := validator.Input{UserRaw: user.RawOutput, OracleRaw: oracle.RawOutput, User: userValue, Oracle: oracleValue}
	if outcome := p.runStage(validator.PreCompare, in, ctx); !outcome.Passed {
		return model.Failed(outcome.Reason, jsonval.Display(userValue), jsonval.Display(oracleValue))
	}

	userValue = normalizer.Normalize(p.normalizer, userValue, ctx)
	oracleValue = normalizer.Normalize(p.normalizer, oracleValue, ctx)
	userDisplay, oracleDisplay := jsonval.Display(userValue), jsonval.Display(oracleValue)

	if outcome := comparator.Compare(p.comparator, userValue, oracleValue, ctx); !outcome.Passed {
		return model.Failed(outcome.Reason, userDisplay, oracleDisplay)
	}

	in.User, in.Oracle = userValue, oracleValue
	if outcome := p.runStage(validator.PostCompare, in, ctx); !outcome.Passed {
		return model.Failed(outcome.Reason, userDisplay, oracleDisplay)
	}
	return model.Passed(userDisplay, oracleDisplay)
}

func (p *Pipeline) runStage(stage validator.Stage, in validator.Input, ctx *model.Context) model.Outcome {
	for _, kind := range p.validators {
		if kind.Stage() != stage {
			continue
		}
		if outcome := validator.Validate(kind, in, ctx); !outcome.Passed {
			return outcome
		}
	}
	return model.Pass()
}
