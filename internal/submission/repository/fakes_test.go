package repository

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"reflect"
	"strings"
	"sync"
	"testing"

	"algojudge/internal/common/cache"
	"algojudge/internal/common/db"
	"algojudge/internal/common/storage"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestCache(t *testing.T) (*cache.RedisCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	c, err := cache.NewRedisCacheWithClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	if err != nil {
		t.Fatalf("NewRedisCacheWithClient failed: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c, mr
}

type call struct {
	query string
	args  []interface{}
}

// fakeDB answers statements from scripted hooks and records every call.
type fakeDB struct {
	mu       sync.Mutex
	calls    []call
	queryRow func(query string, args []interface{}) db.Row
	query    func(query string, args []interface{}) (db.Rows, error)
	exec     func(query string, args []interface{}) (db.Result, error)
}

func (f *fakeDB) record(query string, args []interface{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call{query: strings.Join(strings.Fields(query), " "), args: args})
}

func (f *fakeDB) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *fakeDB) lastCall() call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[len(f.calls)-1]
}

func (f *fakeDB) Query(ctx context.Context, query string, args ...interface{}) (db.Rows, error) {
	f.record(query, args)
	if f.query == nil {
		return nil, errors.New("not implemented")
	}
	return f.query(query, args)
}

func (f *fakeDB) QueryRow(ctx context.Context, query string, args ...interface{}) db.Row {
	f.record(query, args)
	if f.queryRow == nil {
		return fakeRow{err: sql.ErrNoRows}
	}
	return f.queryRow(query, args)
}

func (f *fakeDB) Exec(ctx context.Context, query string, args ...interface{}) (db.Result, error) {
	f.record(query, args)
	if f.exec == nil {
		return fakeResult{affected: 1}, nil
	}
	return f.exec(query, args)
}

func (f *fakeDB) Transaction(ctx context.Context, fn func(tx db.Transaction) error) error {
	return errors.New("not implemented")
}

func (f *fakeDB) Ping(ctx context.Context) error { return nil }

func (f *fakeDB) Close() error { return nil }

type fakeRow struct {
	values []interface{}
	err    error
}

func (r fakeRow) Scan(dest ...interface{}) error {
	if r.err != nil {
		return r.err
	}
	return assign(dest, r.values)
}

type fakeRows struct {
	data [][]interface{}
	pos  int
}

func (r *fakeRows) Next() bool {
	r.pos++
	return r.pos <= len(r.data)
}

func (r *fakeRows) Scan(dest ...interface{}) error { return assign(dest, r.data[r.pos-1]) }

func (r *fakeRows) Close() error { return nil }

func (r *fakeRows) Err() error { return nil }

type fakeResult struct {
	affected int64
}

func (r fakeResult) LastInsertId() (int64, error) { return 0, nil }

func (r fakeResult) RowsAffected() (int64, error) { return r.affected, nil }

// assign copies values into dest the way database/sql would: scanners get
// the raw value, a nil value leaves the destination untouched.
func assign(dest, values []interface{}) error {
	if len(dest) != len(values) {
		return fmt.Errorf("scan: %d destinations for %d values", len(dest), len(values))
	}
	for i, v := range values {
		if v == nil {
			continue
		}
		if s, ok := dest[i].(sql.Scanner); ok {
			if err := s.Scan(v); err != nil {
				return err
			}
			continue
		}
		reflect.ValueOf(dest[i]).Elem().Set(reflect.ValueOf(v))
	}
	return nil
}

type memoryStorage struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newMemoryStorage() *memoryStorage {
	return &memoryStorage{objects: make(map[string][]byte)}
}

func (m *memoryStorage) PutObject(ctx context.Context, bucket, objectKey string, reader io.Reader, sizeBytes int64, contentType string) error {
	data, err := io.ReadAll(reader)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[bucket+"/"+objectKey] = data
	return nil
}

func (m *memoryStorage) GetObject(ctx context.Context, bucket, objectKey string) (io.ReadCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[bucket+"/"+objectKey]
	if !ok {
		return nil, errors.New("no such key")
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (m *memoryStorage) StatObject(ctx context.Context, bucket, objectKey string) (storage.ObjectStat, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[bucket+"/"+objectKey]
	if !ok {
		return storage.ObjectStat{}, errors.New("no such key")
	}
	return storage.ObjectStat{SizeBytes: int64(len(data)), ContentType: "application/json"}, nil
}
