// Package repository persists questions, submissions and their statuses.
package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"algojudge/internal/common/cache"
	"algojudge/internal/common/db"
	"algojudge/internal/judging/model"
	submodel "algojudge/internal/submission/model"
	pkgerrors "algojudge/pkg/errors"

	jsoniter "github.com/json-iterator/go"
)

const (
	defaultQuestionTTL      = 30 * time.Minute
	defaultQuestionEmptyTTL = 5 * time.Minute

	metadataKeyPrefix  = "question:meta:"
	testCaseKeyPrefix  = "question:cases:"
	referenceKeyPrefix = "question:oracle:"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// QuestionRepository reads question metadata, test cases and reference
// solutions.
type QuestionRepository interface {
	GetMetadata(ctx context.Context, questionID int64, language string) (model.QuestionMetadata, error)
	GetTestCases(ctx context.Context, questionID int64, typ submodel.TestCaseType) ([]submodel.TestCase, error)
	GetReferenceSolution(ctx context.Context, questionID int64) (*submodel.ReferenceSolution, error)
}

// MySQLQuestionRepository implements QuestionRepository on MySQL with an
// optional cache in front.
type MySQLQuestionRepository struct {
	db       db.Database
	cache    cache.Cache
	ttl      time.Duration
	emptyTTL time.Duration
}

func NewQuestionRepository(database db.Database, cacheClient cache.Cache) *MySQLQuestionRepository {
	return NewQuestionRepositoryWithTTL(database, cacheClient, defaultQuestionTTL, defaultQuestionEmptyTTL)
}

func NewQuestionRepositoryWithTTL(database db.Database, cacheClient cache.Cache, ttl, emptyTTL time.Duration) *MySQLQuestionRepository {
	if ttl <= 0 {
		ttl = defaultQuestionTTL
	}
	if emptyTTL <= 0 {
		emptyTTL = defaultQuestionEmptyTTL
	}
	return &MySQLQuestionRepository{
		db:       database,
		cache:    cacheClient,
		ttl:      ttl,
		emptyTTL: emptyTTL,
	}
}

// GetMetadata returns the metadata of questionID for language, joined with
// the question-level judging settings.
func (r *MySQLQuestionRepository) GetMetadata(ctx context.Context, questionID int64, language string) (model.QuestionMetadata, error) {
	language = strings.ToUpper(strings.TrimSpace(language))
	load := func(ctx context.Context) (model.QuestionMetadata, error) {
		return r.getMetadataFromDB(ctx, questionID, language)
	}

	var (
		meta model.QuestionMetadata
		err  error
	)
	if r.cache != nil {
		meta, err = cache.GetWithCached(ctx, r.cache, metadataKey(questionID, language), cache.Loader[model.QuestionMetadata]{
			TTL:      r.ttl,
			EmptyTTL: r.emptyTTL,
			IsEmpty:  func(m model.QuestionMetadata) bool { return m.QuestionID == 0 },
			Fetch:    load,
		})
	} else {
		meta, err = load(ctx)
	}
	if err != nil {
		return model.QuestionMetadata{}, err
	}
	if meta.QuestionID == 0 {
		return model.QuestionMetadata{}, pkgerrors.Newf(pkgerrors.QuestionMetadataNotFound,
			"Question metadata not found for questionId: %d, language: %s", questionID, language).
			WithDetail("questionId", questionID).
			WithDetail("language", language)
	}
	return meta, nil
}

const metadataQuery = `
	SELECT m.question_id, m.language, m.function_name, m.return_type, m.param_names, m.param_types,
		m.mutation_target, m.serialization_strategy, m.question_type,
		q.node_type, q.is_output_order_matters, q.execution_strategy, q.validation_hints
	FROM question_metadata m
	JOIN question q ON q.id = m.question_id
	WHERE m.question_id = ? AND m.language = ?
	LIMIT 1`

// getMetadataFromDB returns a zero value when no row matches.
func (r *MySQLQuestionRepository) getMetadataFromDB(ctx context.Context, questionID int64, language string) (model.QuestionMetadata, error) {
	var meta model.QuestionMetadata
	var paramNames, paramTypes, mutation, serialization, questionType sql.NullString
	var nodeType, strategy, hints sql.NullString
	var orderMatters sql.NullBool
	err := r.db.QueryRow(ctx, metadataQuery, questionID, language).Scan(
		&meta.QuestionID,
		&meta.Language,
		&meta.FunctionName,
		&meta.ReturnType,
		&paramNames,
		&paramTypes,
		&mutation,
		&serialization,
		&questionType,
		&nodeType,
		&orderMatters,
		&strategy,
		&hints,
	)
	if err != nil {
		if db.IsNoRows(err) {
			return model.QuestionMetadata{}, nil
		}
		return model.QuestionMetadata{}, pkgerrors.Wrapf(err, pkgerrors.DatabaseError, "load metadata of question %d", questionID)
	}
	if meta.ParamNames, err = decodeStringList(paramNames); err != nil {
		return model.QuestionMetadata{}, pkgerrors.Wrapf(err, pkgerrors.InvalidFormat, "param_names of question %d", questionID)
	}
	if meta.ParamTypes, err = decodeStringList(paramTypes); err != nil {
		return model.QuestionMetadata{}, pkgerrors.Wrapf(err, pkgerrors.InvalidFormat, "param_types of question %d", questionID)
	}
	meta.MutationTarget = mutation.String
	meta.SerializationStrategy = serialization.String
	meta.QuestionType = questionType.String
	meta.NodeType = nodeType.String
	meta.ExecutionStrategy = strategy.String
	meta.ValidationHints = hints.String
	if orderMatters.Valid {
		v := orderMatters.Bool
		meta.OrderMatters = &v
	}
	return meta, nil
}

// GetTestCases returns the cases of questionID of type typ in stored order.
func (r *MySQLQuestionRepository) GetTestCases(ctx context.Context, questionID int64, typ submodel.TestCaseType) ([]submodel.TestCase, error) {
	load := func(ctx context.Context) ([]submodel.TestCase, error) {
		return r.getTestCasesFromDB(ctx, questionID, typ)
	}
	if r.cache == nil {
		return load(ctx)
	}
	return cache.GetWithCached(ctx, r.cache, testCaseKey(questionID, typ), cache.Loader[[]submodel.TestCase]{
		TTL:      r.ttl,
		EmptyTTL: r.emptyTTL,
		IsEmpty:  func(cases []submodel.TestCase) bool { return len(cases) == 0 },
		Fetch:    load,
	})
}

func (r *MySQLQuestionRepository) getTestCasesFromDB(ctx context.Context, questionID int64, typ submodel.TestCaseType) ([]submodel.TestCase, error) {
	query := `
		SELECT id, question_id, input, type
		FROM test_case
		WHERE question_id = ? AND type = ?
		ORDER BY order_index, id`
	rows, err := r.db.Query(ctx, query, questionID, string(typ))
	if err != nil {
		return nil, pkgerrors.Wrapf(err, pkgerrors.DatabaseError, "load test cases of question %d", questionID)
	}
	defer func() { _ = rows.Close() }()

	var cases []submodel.TestCase
	for rows.Next() {
		var (
			tc      submodel.TestCase
			caseTyp string
		)
		if err := rows.Scan(&tc.ID, &tc.QuestionID, &tc.Input, &caseTyp); err != nil {
			return nil, pkgerrors.Wrapf(err, pkgerrors.DatabaseError, "scan test case of question %d", questionID)
		}
		tc.Type = submodel.TestCaseType(caseTyp)
		cases = append(cases, tc)
	}
	if err := rows.Err(); err != nil {
		return nil, pkgerrors.Wrapf(err, pkgerrors.DatabaseError, "iterate test cases of question %d", questionID)
	}
	return cases, nil
}

// GetReferenceSolution returns the oracle of questionID, RecordNotFound
// when the question has none.
func (r *MySQLQuestionRepository) GetReferenceSolution(ctx context.Context, questionID int64) (*submodel.ReferenceSolution, error) {
	load := func(ctx context.Context) (*submodel.ReferenceSolution, error) {
		return r.getReferenceSolutionFromDB(ctx, questionID)
	}
	var (
		solution *submodel.ReferenceSolution
		err      error
	)
	if r.cache != nil {
		solution, err = cache.GetWithCached(ctx, r.cache, referenceKey(questionID), cache.Loader[*submodel.ReferenceSolution]{
			TTL:      r.ttl,
			EmptyTTL: r.emptyTTL,
			IsEmpty:  func(s *submodel.ReferenceSolution) bool { return s == nil },
			Fetch:    load,
		})
	} else {
		solution, err = load(ctx)
	}
	if err != nil {
		return nil, err
	}
	if solution == nil {
		return nil, pkgerrors.New(pkgerrors.RecordNotFound).
			WithMessagef("reference solution not found for question %d", questionID).
			WithDetail("questionId", questionID)
	}
	return solution, nil
}

func (r *MySQLQuestionRepository) getReferenceSolutionFromDB(ctx context.Context, questionID int64) (*submodel.ReferenceSolution, error) {
	query := "SELECT question_id, language, source_code FROM reference_solution WHERE question_id = ? LIMIT 1"
	var (
		solution submodel.ReferenceSolution
		language string
	)
	if err := r.db.QueryRow(ctx, query, questionID).Scan(&solution.QuestionID, &language, &solution.SourceCode); err != nil {
		if db.IsNoRows(err) {
			return nil, nil
		}
		return nil, pkgerrors.Wrapf(err, pkgerrors.DatabaseError, "load reference solution of question %d", questionID)
	}
	solution.Language = submodel.Language(strings.ToUpper(language))
	return &solution, nil
}

func decodeStringList(raw sql.NullString) ([]string, error) {
	if !raw.Valid || strings.TrimSpace(raw.String) == "" {
		return nil, nil
	}
	var out []string
	if err := json.UnmarshalFromString(raw.String, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func metadataKey(questionID int64, language string) string {
	return fmt.Sprintf("%s%d:%s", metadataKeyPrefix, questionID, language)
}

func testCaseKey(questionID int64, typ submodel.TestCaseType) string {
	return fmt.Sprintf("%s%d:%s", testCaseKeyPrefix, questionID, typ)
}

func referenceKey(questionID int64) string {
	return fmt.Sprintf("%s%d", referenceKeyPrefix, questionID)
}
