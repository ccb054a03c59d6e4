package repository

import (
	"bytes"
	"context"
	"io"

	"algojudge/internal/common/storage"
	"algojudge/internal/judging/verdict"
	pkgerrors "algojudge/pkg/errors"
	"algojudge/pkg/utils/logger"

	"go.uber.org/zap"
)

const resultKeyPrefix = "results/"

// ResultArchive stores the full per-case judging detail of a submission in
// object storage.
type ResultArchive struct {
	storage storage.ObjectStorage
	bucket  string
}

func NewResultArchive(objectStorage storage.ObjectStorage, bucket string) *ResultArchive {
	return &ResultArchive{storage: objectStorage, bucket: bucket}
}

// Save writes summary as results/<submissionID>.json.
func (a *ResultArchive) Save(ctx context.Context, submissionID string, summary verdict.Summary) error {
	payload, err := json.Marshal(summary)
	if err != nil {
		return pkgerrors.Wrapf(err, pkgerrors.InvalidFormat, "marshal result archive")
	}
	err = a.storage.PutObject(ctx, a.bucket, resultKey(submissionID), bytes.NewReader(payload), int64(len(payload)), "application/json")
	if err != nil {
		return pkgerrors.Wrapf(err, pkgerrors.StorageError, "archive results of %s", submissionID)
	}
	return nil
}

// Load reads the archived summary. ok is false when nothing was archived.
func (a *ResultArchive) Load(ctx context.Context, submissionID string) (summary verdict.Summary, ok bool, err error) {
	key := resultKey(submissionID)
	if _, err := a.storage.StatObject(ctx, a.bucket, key); err != nil {
		logger.Debug(ctx, "result archive not available", zap.String("key", key), zap.Error(err))
		return verdict.Summary{}, false, nil
	}
	reader, err := a.storage.GetObject(ctx, a.bucket, key)
	if err != nil {
		return verdict.Summary{}, false, pkgerrors.Wrapf(err, pkgerrors.StorageError, "open result archive %s", key)
	}
	defer func() { _ = reader.Close() }()

	data, err := io.ReadAll(reader)
	if err != nil {
		return verdict.Summary{}, false, pkgerrors.Wrapf(err, pkgerrors.StorageError, "read result archive %s", key)
	}
	if err := json.Unmarshal(data, &summary); err != nil {
		return verdict.Summary{}, false, pkgerrors.Wrapf(err, pkgerrors.InvalidFormat, "decode result archive %s", key)
	}
	return summary, true, nil
}

func resultKey(submissionID string) string {
	return resultKeyPrefix + submissionID + ".json"
}
