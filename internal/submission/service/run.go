package service

import (
	"context"
	"fmt"
	"time"

	"algojudge/internal/judging"
	"algojudge/internal/judging/model"
	"algojudge/internal/judging/verdict"
	"algojudge/internal/submission/executor"
	submodel "algojudge/internal/submission/model"
	pkgerrors "algojudge/pkg/errors"
	"algojudge/pkg/utils/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const oracleNotConfigured = "Question not properly configured for testing"

// RunTestCase is a custom input supplied with a RUN request.
type RunTestCase struct {
	Input *string `json:"input"`
}

// RunRequest executes code against sample or custom inputs without
// persisting anything.
type RunRequest struct {
	UserID     string        `json:"userId"`
	QuestionID int64         `json:"questionId"`
	Language   string        `json:"language"`
	Code       string        `json:"code"`
	TestCases  []RunTestCase `json:"customTestCases"`
	ClientIP   string        `json:"-"`
}

// RunCaseResult is the outcome of one RUN case.
type RunCaseResult struct {
	Index           int    `json:"index"`
	Passed          bool   `json:"passed"`
	ActualOutput    string `json:"actualOutput,omitempty"`
	ExpectedOutput  string `json:"expectedOutput,omitempty"`
	ExecutionTimeMs int64  `json:"executionTimeMs"`
	Error           string `json:"error,omitempty"`
}

// RunResponse is the synchronous answer to a RUN request.
type RunResponse struct {
	RunID             string             `json:"runId"`
	Verdict           verdict.RunVerdict `json:"verdict"`
	Success           bool               `json:"success"`
	RuntimeMs         int64              `json:"runtimeMs"`
	MemoryKB          int64              `json:"memoryKb"`
	CompilationOutput string             `json:"compilationOutput,omitempty"`
	ErrorMessage      string             `json:"errorMessage,omitempty"`
	TestCaseResults   []RunCaseResult    `json:"testCaseResults"`
}

// RunConfig holds RunService dependencies.
type RunConfig struct {
	Questions        QuestionStore
	Adapter          executor.Adapter
	Oracle           OracleExecutor
	Guard            *RunGuard
	ExecutionTimeout time.Duration
}

// RunService answers RUN requests.
type RunService struct {
	questions        QuestionStore
	adapter          executor.Adapter
	oracle           OracleExecutor
	guard            *RunGuard
	executionTimeout time.Duration
}

func NewRunService(cfg RunConfig) (*RunService, error) {
	if cfg.Questions == nil {
		return nil, fmt.Errorf("question store is required")
	}
	if cfg.Adapter == nil {
		return nil, fmt.Errorf("execution adapter is required")
	}
	if cfg.Oracle == nil {
		return nil, fmt.Errorf("oracle executor is required")
	}
	if cfg.Guard == nil {
		return nil, fmt.Errorf("run guard is required")
	}
	return &RunService{
		questions:        cfg.Questions,
		adapter:          cfg.Adapter,
		oracle:           cfg.Oracle,
		guard:            cfg.Guard,
		executionTimeout: cfg.ExecutionTimeout,
	}, nil
}

// Run executes req. Rejected requests return an error; every accepted
// request gets a response, with failures reported in its verdict.
func (s *RunService) Run(ctx context.Context, req RunRequest) (*RunResponse, error) {
	if req.QuestionID <= 0 {
		return nil, pkgerrors.ValidationError("questionId", "required")
	}
	lang, ok := submodel.ParseLanguage(req.Language)
	if !ok {
		return nil, pkgerrors.New(pkgerrors.LanguageNotSupported).WithDetail("language", req.Language)
	}
	if req.Code == "" {
		return nil, pkgerrors.ValidationError("code", "required")
	}

	inputs, err := s.resolveInputs(ctx, req)
	if err != nil {
		return nil, err
	}
	if err := s.guard.Check(req.ClientIP, inputs); err != nil {
		return nil, err
	}

	runID := "run-" + uuid.NewString()
	resp := &RunResponse{RunID: runID, TestCaseResults: []RunCaseResult{}}

	hasOracle, err := s.oracle.HasOracle(ctx, req.QuestionID)
	if err != nil {
		return internalRun(resp, err.Error()), nil
	}
	if !hasOracle {
		return internalRun(resp, oracleNotConfigured), nil
	}
	meta, err := s.questions.GetMetadata(ctx, req.QuestionID, string(lang))
	if err != nil {
		if pkgerrors.Is(err, pkgerrors.QuestionMetadataNotFound) {
			return internalRun(resp, "Question metadata not found for language: "+string(lang)), nil
		}
		return internalRun(resp, err.Error()), nil
	}
	jctx, err := model.BuildContext(meta)
	if err != nil {
		return internalRun(resp, err.Error()), nil
	}
	pipeline := judging.Assemble(jctx)

	raw := make([]string, len(inputs))
	for i, in := range inputs {
		raw[i] = *in
	}
	userRes, oracleRes, oracleErr, err := s.execute(ctx, runID, req, lang, meta, raw)
	if err != nil {
		logger.Error(ctx, "run batch could not be executed", zap.String("run_id", runID), zap.Error(err))
		return internalRun(resp, err.Error()), nil
	}
	resp.RuntimeMs = userRes.TotalRuntimeMs
	resp.MemoryKB = userRes.PeakMemoryKB
	resp.CompilationOutput = userRes.CompilationOutput
	if !userRes.Succeeded() {
		resp.Verdict = verdict.RunFromExecutionStatus(userRes.Status)
		resp.ErrorMessage = userRes.ErrorMessage
		return resp, nil
	}
	if oracleErr != nil {
		return internalRun(resp, oracleErr.Error()), nil
	}

	summary := verdict.AggregateRun(pipeline, jctx, userRes.Outputs, oracleRes.Outputs)
	resp.Verdict = summary.Verdict
	resp.Success = summary.Verdict == verdict.PassedRun
	for _, c := range summary.Cases {
		resp.TestCaseResults = append(resp.TestCaseResults, RunCaseResult{
			Index:           c.Index,
			Passed:          c.Passed,
			ActualOutput:    c.UserOutput,
			ExpectedOutput:  c.Expected,
			ExecutionTimeMs: c.RuntimeMs,
			Error:           c.ErrorOutput,
		})
	}
	logger.Info(ctx, "run judged",
		zap.String("run_id", runID),
		zap.String("verdict", string(summary.Verdict)),
		zap.Int("passed", summary.PassedCases),
		zap.Int("total", summary.TotalCases),
	)
	return resp, nil
}

// resolveInputs returns the custom inputs, or the question's DEFAULT cases
// when none were given.
func (s *RunService) resolveInputs(ctx context.Context, req RunRequest) ([]*string, error) {
	if len(req.TestCases) > 0 {
		inputs := make([]*string, len(req.TestCases))
		for i, tc := range req.TestCases {
			inputs[i] = tc.Input
		}
		return inputs, nil
	}
	cases, err := s.questions.GetTestCases(ctx, req.QuestionID, submodel.TestCaseDefault)
	if err != nil {
		return nil, err
	}
	inputs := make([]*string, len(cases))
	for i := range cases {
		inputs[i] = &cases[i].Input
	}
	return inputs, nil
}

func (s *RunService) execute(ctx context.Context, runID string, req RunRequest, lang submodel.Language, meta model.QuestionMetadata, inputs []string) (userRes, oracleRes *executor.BatchResult, oracleErr, err error) {
	execCtx, cancel := withTimeout(ctx, s.executionTimeout)
	defer cancel()

	g, gctx := errgroup.WithContext(execCtx)
	g.Go(func() error {
		var err error
		userRes, err = s.adapter.Execute(gctx, executor.CodeBundle{
			ExecutionID: runID,
			UserID:      req.UserID,
			QuestionID:  req.QuestionID,
			Language:    string(lang),
			Code:        req.Code,
			Metadata:    meta,
			Inputs:      inputs,
		})
		return err
	})
	g.Go(func() error {
		oracleRes, oracleErr = s.oracle.Run(gctx, meta, inputs)
		return nil
	})
	err = g.Wait()
	return userRes, oracleRes, oracleErr, err
}

func internalRun(resp *RunResponse, message string) *RunResponse {
	resp.Verdict = verdict.InternalErrorRun
	resp.Success = false
	resp.ErrorMessage = message
	return resp
}
