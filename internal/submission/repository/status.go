package repository

import (
	"context"
	"time"

	"algojudge/internal/common/cache"
	submodel "algojudge/internal/submission/model"
	pkgerrors "algojudge/pkg/errors"
	"algojudge/pkg/utils/logger"

	"go.uber.org/zap"
)

const (
	statusKeyPrefix            = "judge:status:"
	defaultStatusCacheTTL      = 30 * time.Minute
	defaultStatusCacheEmptyTTL = 5 * time.Minute
)

// SubmissionGetter is the fallback for statuses missing from the cache.
type SubmissionGetter interface {
	Get(ctx context.Context, submissionID string) (*submodel.Submission, error)
}

// StatusRepository keeps the latest status of each submission in the cache
// and announces final statuses.
type StatusRepository struct {
	cache       cache.Cache
	submissions SubmissionGetter
	publisher   StatusEventPublisher
	ttl         time.Duration
	emptyTTL    time.Duration
}

func NewStatusRepository(cacheClient cache.Cache, submissions SubmissionGetter, ttl, emptyTTL time.Duration, publisher StatusEventPublisher) *StatusRepository {
	if ttl <= 0 {
		ttl = defaultStatusCacheTTL
	}
	if emptyTTL <= 0 {
		emptyTTL = defaultStatusCacheEmptyTTL
	}
	return &StatusRepository{
		cache:       cacheClient,
		submissions: submissions,
		publisher:   publisher,
		ttl:         ttl,
		emptyTTL:    emptyTTL,
	}
}

// Get returns the latest status of submissionID.
func (r *StatusRepository) Get(ctx context.Context, submissionID string) (submodel.StatusSnapshot, error) {
	if submissionID == "" {
		return submodel.StatusSnapshot{}, pkgerrors.ValidationError("submission_id", "required")
	}
	status, err := cache.GetWithCached(ctx, r.cache, statusKeyPrefix+submissionID, cache.Loader[*submodel.StatusSnapshot]{
		TTL:      r.ttl,
		EmptyTTL: r.emptyTTL,
		IsEmpty:  func(s *submodel.StatusSnapshot) bool { return s == nil },
		Fetch: func(ctx context.Context) (*submodel.StatusSnapshot, error) {
			if r.submissions == nil {
				return nil, nil
			}
			sub, err := r.submissions.Get(ctx, submissionID)
			if err != nil {
				if pkgerrors.Is(err, pkgerrors.SubmissionNotFound) {
					return nil, nil
				}
				return nil, err
			}
			snap := sub.Snapshot(time.Now())
			return &snap, nil
		},
	})
	if err != nil {
		return submodel.StatusSnapshot{}, err
	}
	if status == nil {
		return submodel.StatusSnapshot{}, pkgerrors.New(pkgerrors.SubmissionNotFound).WithDetail("submissionId", submissionID)
	}
	return *status, nil
}

// Save stores status. A final status is published before it is cached.
func (r *StatusRepository) Save(ctx context.Context, status submodel.StatusSnapshot) error {
	if status.SubmissionID == "" {
		return pkgerrors.ValidationError("submission_id", "required")
	}
	if status.Status.IsFinal() {
		if r.publisher == nil {
			return pkgerrors.New(pkgerrors.ServiceUnavailable).WithMessage("status publisher is not configured")
		}
		if err := r.publisher.PublishFinalStatus(ctx, status); err != nil {
			logger.Error(ctx, "publish final status failed",
				zap.String("submission_id", status.SubmissionID),
				zap.Error(err),
			)
			return err
		}
	}
	payload, err := json.MarshalToString(status)
	if err != nil {
		return pkgerrors.Wrapf(err, pkgerrors.InvalidFormat, "marshal status")
	}
	if err := r.cache.Set(ctx, statusKeyPrefix+status.SubmissionID, payload, cache.JitterTTL(r.ttl)); err != nil {
		return pkgerrors.Wrapf(err, pkgerrors.CacheError, "store status failed")
	}
	return nil
}
