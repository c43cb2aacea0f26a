package archive

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/vango-dev/reactive/pkg/scenario"
)

// ErrNotFound is returned when no record is stored under a key.
var ErrNotFound = errors.New("archive: record not found")

// ErrInvalidKey is returned for keys that escape the archive root.
var ErrInvalidKey = errors.New("archive: invalid key")

// Record is one archived scenario run.
type Record struct {
	ID        string         `json:"id"`
	Scenario  string         `json:"scenario"`
	CreatedAt time.Time      `json:"created_at"`
	Trace     []string       `json:"trace"`
	Runs      map[string]int `json:"runs"`

	// Error holds the message of the error that ended the run, if any.
	Error string `json:"error,omitempty"`
}

// FromResult builds a record from a scenario result and the error Run
// returned with it. The creation time is taken from the run id.
func FromResult(res *scenario.Result, runErr error) Record {
	sec, nsec := res.ID.Time().UnixTime()
	rec := Record{
		ID:        res.ID.String(),
		Scenario:  res.Name,
		CreatedAt: time.Unix(sec, nsec).UTC(),
		Trace:     res.Trace,
		Runs:      res.Runs,
	}
	if runErr != nil {
		rec.Error = runErr.Error()
	}
	return rec
}

// Key returns the key the record is stored under: "<scenario>/<id>.json".
// Run ids sort by creation time, so sorted keys are in run order.
func (r Record) Key() string {
	return r.Scenario + "/" + r.ID + ".json"
}

// Store persists records.
type Store interface {
	// Put stores rec under rec.Key() and returns the key.
	Put(ctx context.Context, rec Record) (string, error)

	// Get loads the record stored under key.
	Get(ctx context.Context, key string) (Record, error)

	// List returns the sorted keys of the records of one scenario, or of
	// every scenario when name is empty.
	List(ctx context.Context, name string) ([]string, error)
}

// Open returns the store for location. An "s3://bucket/prefix" URL opens an
// S3Store with a client built from opts; anything else is a directory for a
// DiskStore.
func Open(location string, opts S3Options) (Store, error) {
	if !strings.HasPrefix(location, "s3://") {
		return NewDiskStore(location)
	}

	u, err := url.Parse(location)
	if err != nil {
		return nil, fmt.Errorf("archive: %w", err)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("archive: %q has no bucket", location)
	}
	return NewS3Store(NewS3Client(opts), u.Host, strings.TrimPrefix(u.Path, "/")), nil
}

// cleanKey rejects keys that are absolute or climb out of the root.
func cleanKey(key string) (string, error) {
	clean := path.Clean(strings.TrimPrefix(key, "/"))
	if clean == "." || clean == ".." || strings.HasPrefix(clean, "../") || clean != strings.TrimPrefix(key, "/") {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return clean, nil
}
