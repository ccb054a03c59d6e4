package executor

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"algojudge/internal/judging/model"
	"algojudge/internal/judging/verdict"
	pkgerrors "algojudge/pkg/errors"
	"algojudge/pkg/utils/logger"

	jsoniter "github.com/json-iterator/go"
	"github.com/zeromicro/go-zero/rest/httpc"
	"go.uber.org/zap"
)

const (
	defaultPollAttempts   = 60
	defaultPollInterval   = 500 * time.Millisecond
	defaultRequestTimeout = 10 * time.Second
	defaultPackagePrefix  = "com.algocrack.solution.q"
	anonymousUser         = "ANONYMOUS"

	submitPath  = "/api/v1/execution/submit"
	statusPath  = "/api/v1/execution/status/"
	resultsPath = "/api/v1/execution/results/"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// CXEConfig configures the execution engine client.
type CXEConfig struct {
	BaseURL        string        `yaml:"baseUrl"`
	RequestTimeout time.Duration `yaml:"requestTimeout"`
	PollAttempts   int           `yaml:"pollAttempts"`
	PollInterval   time.Duration `yaml:"pollInterval"`
	PackagePrefix  string        `yaml:"packagePrefix"`
	// BreakerName names the circuit breaker guarding the engine.
	BreakerName string `yaml:"breakerName"`
}

// ApplyDefaults fills zero values.
func (c *CXEConfig) ApplyDefaults() {
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = defaultRequestTimeout
	}
	if c.PollAttempts <= 0 {
		c.PollAttempts = defaultPollAttempts
	}
	if c.PollInterval <= 0 {
		c.PollInterval = defaultPollInterval
	}
	if c.PackagePrefix == "" {
		c.PackagePrefix = defaultPackagePrefix
	}
	if c.BreakerName == "" {
		c.BreakerName = "cxe"
	}
}

// CXEClient is the Adapter for the remote code execution engine. A batch is
// submitted once, then polled until the engine reports a terminal state.
type CXEClient struct {
	cfg     CXEConfig
	baseURL string
	svc     httpc.Service
}

// NewCXEClient creates a client for cfg.BaseURL.
func NewCXEClient(cfg CXEConfig) (*CXEClient, error) {
	cfg.ApplyDefaults()
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, pkgerrors.New(pkgerrors.InvalidParams).WithMessage("execution engine base url is required")
	}
	cli := &http.Client{Timeout: cfg.RequestTimeout}
	return &CXEClient{
		cfg:     cfg,
		baseURL: base,
		svc:     httpc.NewServiceWithClient(cfg.BreakerName, cli),
	}, nil
}

type executionRequest struct {
	SubmissionID string              `json:"submissionId"`
	UserID       string              `json:"userId"`
	QuestionID   int64               `json:"questionId"`
	Language     string              `json:"language"`
	Code         string              `json:"code"`
	Metadata     executionMetadata   `json:"metadata"`
	TestCases    []executionTestCase `json:"testCases"`
}

type executionMetadata struct {
	FullyQualifiedPackageName string           `json:"fullyQualifiedPackageName"`
	FunctionName              string           `json:"functionName"`
	ReturnType                string           `json:"returnType"`
	Parameters                []executionParam `json:"parameters"`
	CustomDataStructureNames  []string         `json:"customDataStructureNames"`
	MutationTarget            string           `json:"mutationTarget,omitempty"`
	SerializationStrategy     string           `json:"serializationStrategy,omitempty"`
	QuestionType              string           `json:"questionType,omitempty"`
}

type executionParam struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

type executionTestCase struct {
	Input          any `json:"input"`
	ExpectedOutput any `json:"expectedOutput"`
}

type submitResponse struct {
	SubmissionID  string `json:"submissionId"`
	Status        string `json:"status"`
	Message       string `json:"message"`
	QueuePosition int    `json:"queuePosition"`
}

type statusResponse struct {
	SubmissionID      string           `json:"submissionId"`
	Status            string           `json:"status"`
	Verdict           string           `json:"verdict"`
	RuntimeMs         int64            `json:"runtimeMs"`
	MemoryKB          int64            `json:"memoryKb"`
	ErrorMessage      string           `json:"errorMessage"`
	CompilationOutput string           `json:"compilationOutput"`
	TestCaseResults   []testCaseResult `json:"testCaseResults"`
	WorkerID          string           `json:"workerId"`
}

type testCaseResult struct {
	Index           int     `json:"index"`
	Passed          bool    `json:"passed"`
	ActualOutput    *string `json:"actualOutput"`
	ExecutionTimeMs int64   `json:"executionTimeMs"`
	Error           string  `json:"error"`
}

func (s *statusResponse) terminal() bool {
	return s.Status == "COMPLETED" || s.Status == "FAILED"
}

// Execute submits bundle and waits for its result.
func (c *CXEClient) Execute(ctx context.Context, bundle CodeBundle) (*BatchResult, error) {
	req := c.buildRequest(bundle)
	var submitted submitResponse
	if err := c.call(ctx, http.MethodPost, submitPath, req, &submitted); err != nil {
		return nil, err
	}
	remoteID := submitted.SubmissionID
	if remoteID == "" {
		remoteID = bundle.ExecutionID
	}
	logger.Debug(ctx, "batch submitted to execution engine",
		zap.String("execution_id", bundle.ExecutionID),
		zap.Int("test_cases", len(bundle.Inputs)),
		zap.Int("queue_position", submitted.QueuePosition),
	)

	if err := c.waitTerminal(ctx, remoteID); err != nil {
		return nil, err
	}

	var status statusResponse
	if err := c.call(ctx, http.MethodGet, resultsPath+remoteID, nil, &status); err != nil {
		return nil, err
	}
	result := translate(&status, len(bundle.Inputs))
	result.ExecutionID = bundle.ExecutionID
	return result, nil
}

func (c *CXEClient) waitTerminal(ctx context.Context, remoteID string) error {
	ticker := time.NewTicker(c.cfg.PollInterval)
	defer ticker.Stop()
	for attempt := 0; attempt < c.cfg.PollAttempts; attempt++ {
		var status statusResponse
		if err := c.call(ctx, http.MethodGet, statusPath+remoteID, nil, &status); err != nil {
			return err
		}
		if status.terminal() {
			return nil
		}
		select {
		case <-ctx.Done():
			return pkgerrors.Wrap(ctx.Err(), pkgerrors.Timeout)
		case <-ticker.C:
		}
	}
	waited := time.Duration(c.cfg.PollAttempts) * c.cfg.PollInterval
	return pkgerrors.Newf(pkgerrors.Timeout, "Execution timeout after %s", waited)
}

func (c *CXEClient) buildRequest(bundle CodeBundle) executionRequest {
	userID := bundle.UserID
	if userID == "" {
		userID = anonymousUser
	}
	meta := bundle.Metadata
	params := make([]executionParam, len(meta.ParamTypes))
	for i, typ := range meta.ParamTypes {
		name := fmt.Sprintf("arg%d", i)
		if i < len(meta.ParamNames) && meta.ParamNames[i] != "" {
			name = meta.ParamNames[i]
		}
		params[i] = executionParam{Name: name, Type: typ}
	}
	cases := make([]executionTestCase, len(bundle.Inputs))
	for i, in := range bundle.Inputs {
		cases[i] = executionTestCase{Input: encodeInput(in)}
	}
	return executionRequest{
		SubmissionID: bundle.ExecutionID,
		UserID:       userID,
		QuestionID:   bundle.QuestionID,
		Language:     bundle.Language,
		Code:         bundle.Code,
		Metadata: executionMetadata{
			FullyQualifiedPackageName: fmt.Sprintf("%s%d", c.cfg.PackagePrefix, bundle.QuestionID),
			FunctionName:              meta.FunctionName,
			ReturnType:                meta.ReturnType,
			Parameters:                params,
			CustomDataStructureNames:  []string{},
			MutationTarget:            meta.MutationTarget,
			SerializationStrategy:     meta.SerializationStrategy,
			QuestionType:              meta.QuestionType,
		},
		TestCases: cases,
	}
}

// encodeInput forwards JSON inputs verbatim and anything else as a string.
func encodeInput(in string) any {
	if json.Valid([]byte(in)) {
		return jsoniter.RawMessage(in)
	}
	return in
}

func (c *CXEClient) call(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return pkgerrors.Wrap(err, pkgerrors.ExecutionFailed)
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return pkgerrors.Wrap(err, pkgerrors.ExecutionFailed)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.svc.DoRequest(req)
	if err != nil {
		return pkgerrors.Wrapf(err, pkgerrors.ServiceUnavailable, "execution engine %s %s failed", method, path)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return pkgerrors.Wrap(err, pkgerrors.ServiceUnavailable)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return pkgerrors.Newf(pkgerrors.ExecutionFailed, "execution engine %s %s returned %d", method, path, resp.StatusCode).
			WithDetail("body", truncate(string(data), 512))
	}
	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return pkgerrors.Wrapf(err, pkgerrors.InvalidFormat, "decode execution engine response for %s", path)
	}
	return nil
}

// translate converts a terminal engine report into a BatchResult with one
// output per input.
func translate(s *statusResponse, inputs int) *BatchResult {
	outputs := make([]model.ExecutionOutput, inputs)
	cases := append([]testCaseResult(nil), s.TestCaseResults...)
	sort.SliceStable(cases, func(i, j int) bool { return cases[i].Index < cases[j].Index })

	var total int64
	for _, tc := range cases {
		if tc.Index < 0 || tc.Index >= inputs {
			continue
		}
		out := model.ExecutionOutput{
			RawOutput:       tc.ActualOutput,
			Error:           tc.Error,
			ExecutionTimeMs: tc.ExecutionTimeMs,
			MemoryKB:        s.MemoryKB,
			TimedOut:        strings.Contains(strings.ToLower(tc.Error), "timeout"),
		}
		if out.HasError() {
			out.RawOutput = nil
		}
		outputs[tc.Index] = out
		total += tc.ExecutionTimeMs
	}
	if total == 0 {
		total = s.RuntimeMs
	}

	return &BatchResult{
		Status:            deriveStatus(s),
		Outputs:           outputs,
		CompilationOutput: s.CompilationOutput,
		ErrorMessage:      s.ErrorMessage,
		TotalRuntimeMs:    total,
		PeakMemoryKB:      s.MemoryKB,
		WorkerID:          s.WorkerID,
	}
}

var compileErrorMarkers = []string{"error:", "cannot find symbol", "syntax error", "compilation failed"}

func deriveStatus(s *statusResponse) verdict.ExecutionStatus {
	if compiled := strings.ToLower(s.CompilationOutput); compiled != "" {
		for _, marker := range compileErrorMarkers {
			if strings.Contains(compiled, marker) {
				return verdict.ExecCompilationError
			}
		}
	}
	if msg := strings.ToLower(strings.TrimSpace(s.ErrorMessage)); msg != "" {
		switch {
		case strings.Contains(msg, "timeout"):
			return verdict.ExecTimeout
		case strings.Contains(msg, "memory"):
			return verdict.ExecMemoryLimit
		default:
			return verdict.ExecRuntimeError
		}
	}
	for _, tc := range s.TestCaseResults {
		if tc.Error != "" {
			return verdict.ExecRuntimeError
		}
	}
	if s.Status == "FAILED" {
		return verdict.ExecInternalError
	}
	return verdict.ExecSuccess
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
