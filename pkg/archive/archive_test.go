package archive

import (
	"bytes"
	"context"
	"errors"
	"io"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vango-dev/reactive/pkg/scenario"
)

// fakeS3 is an in-memory bucket store.
type fakeS3 struct {
	mu        sync.Mutex
	objects   map[string][]byte
	inputs    map[string]*s3.PutObjectInput
	listCalls int
}

func newFakeS3() *fakeS3 {
	return &fakeS3{
		objects: make(map[string][]byte),
		inputs:  make(map[string]*s3.PutObjectInput),
	}
}

func (f *fakeS3) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	k := aws.ToString(in.Bucket) + "/" + aws.ToString(in.Key)
	f.objects[k] = data
	f.inputs[k] = in
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) GetObject(ctx context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.objects[aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NoSuchKey{Message: aws.String("missing")}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (f *fakeS3) ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++

	bucket := aws.ToString(in.Bucket) + "/"
	var keys []string
	for k := range f.objects {
		if key, ok := strings.CutPrefix(k, bucket); ok && strings.HasPrefix(key, aws.ToString(in.Prefix)) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)

	start := 0
	if in.ContinuationToken != nil {
		start, _ = strconv.Atoi(*in.ContinuationToken)
	}
	end := len(keys)
	if in.MaxKeys != nil && start+int(*in.MaxKeys) < end {
		end = start + int(*in.MaxKeys)
	}

	out := &s3.ListObjectsV2Output{IsTruncated: aws.Bool(end < len(keys))}
	for _, k := range keys[start:end] {
		out.Contents = append(out.Contents, types.Object{Key: aws.String(k)})
	}
	if end < len(keys) {
		out.NextContinuationToken = aws.String(strconv.Itoa(end))
	}
	return out, nil
}

func record(name, id string) Record {
	return Record{
		ID:        id,
		Scenario:  name,
		CreatedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		Trace:     []string{"run e x=1"},
		Runs:      map[string]int{"e": 1},
	}
}

func TestFromResult(t *testing.T) {
	s, err := scenario.Parse([]byte(`
name: counter
state: {n: 0}
effects:
  - name: watch
    reads: [n]
steps:
  - set: {key: n, value: 1}
  - expect:
      runs: {watch: 3}
`))
	require.NoError(t, err)

	res, runErr := scenario.Run(context.Background(), s)
	require.Error(t, runErr)

	rec := FromResult(res, runErr)
	assert.Equal(t, res.ID.String(), rec.ID)
	assert.Equal(t, "counter", rec.Scenario)
	assert.Equal(t, "counter/"+res.ID.String()+".json", rec.Key())
	assert.Equal(t, []string{"run watch n=0", "set n = 1", "run watch n=1"}, rec.Trace)
	assert.Equal(t, 2, rec.Runs["watch"])
	assert.Contains(t, rec.Error, "E303")
	assert.WithinDuration(t, time.Now(), rec.CreatedAt, time.Minute)
}

func TestDiskStore(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "runs")
	store, err := NewDiskStore(dir)
	require.NoError(t, err)

	for _, rec := range []Record{record("b", "0002"), record("a", "0001"), record("b", "0001")} {
		_, err := store.Put(ctx, rec)
		require.NoError(t, err)
	}

	got, err := store.Get(ctx, "b/0002.json")
	require.NoError(t, err)
	assert.Equal(t, record("b", "0002"), got)

	keys, err := store.List(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"a/0001.json", "b/0001.json", "b/0002.json"}, keys)

	keys, err = store.List(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, []string{"b/0001.json", "b/0002.json"}, keys)

	keys, err = store.List(ctx, "nobody")
	require.NoError(t, err)
	assert.Empty(t, keys)

	_, err = store.Get(ctx, "a/9999.json")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = store.Get(ctx, "../outside.json")
	assert.ErrorIs(t, err, ErrInvalidKey)

	_, err = store.Put(ctx, record("..", "x"))
	assert.ErrorIs(t, err, ErrInvalidKey)
}

func TestS3Store(t *testing.T) {
	ctx := context.Background()
	fake := newFakeS3()
	store := NewS3Store(fake, "bucket", "runs")

	key, err := store.Put(ctx, record("demo", "0001"))
	require.NoError(t, err)
	assert.Equal(t, "demo/0001.json", key)

	in := fake.inputs["bucket/runs/demo/0001.json"]
	require.NotNil(t, in, "object is stored below the prefix")
	assert.Equal(t, "application/json", aws.ToString(in.ContentType))
	assert.Equal(t, map[string]string{"scenario": "demo", "run-id": "0001"}, in.Metadata)

	got, err := store.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, record("demo", "0001"), got)

	_, err = store.Get(ctx, "demo/0002.json")
	assert.ErrorIs(t, err, ErrNotFound)

	keys, err := store.List(ctx, "demo")
	require.NoError(t, err)
	assert.Equal(t, []string{"demo/0001.json"}, keys)
}

func TestS3Store_ListPages(t *testing.T) {
	ctx := context.Background()
	fake := newFakeS3()
	store := NewS3Store(fake, "bucket", "")
	store.pageSize = 2

	for i := 1; i <= 5; i++ {
		_, err := store.Put(ctx, record("s", "000"+strconv.Itoa(i)))
		require.NoError(t, err)
	}
	// A stray object that is not a record.
	fake.objects["bucket/s/notes.txt"] = []byte("x")

	keys, err := store.List(ctx, "s")
	require.NoError(t, err)
	assert.Equal(t, []string{"s/0001.json", "s/0002.json", "s/0003.json", "s/0004.json", "s/0005.json"}, keys)
	assert.Equal(t, 3, fake.listCalls)
}

func TestOpen(t *testing.T) {
	dir := t.TempDir()
	store, err := Open(dir, S3Options{})
	require.NoError(t, err)
	assert.IsType(t, &DiskStore{}, store)

	store, err = Open("s3://bucket/team/runs", S3Options{Region: "eu-west-1"})
	require.NoError(t, err)
	s3store, ok := store.(*S3Store)
	require.True(t, ok)
	assert.Equal(t, "bucket", s3store.bucket)
	assert.Equal(t, "team/runs/", s3store.prefix)

	_, err = Open("s3:///runs", S3Options{})
	assert.Error(t, err)
}

func TestCleanKey(t *testing.T) {
	for _, key := range []string{"a/b.json", "/a/b.json"} {
		_, err := cleanKey(key)
		assert.NoError(t, err, key)
	}
	for _, key := range []string{"", ".", "..", "../a", "a/../../b", "a//b"} {
		_, err := cleanKey(key)
		assert.True(t, errors.Is(err, ErrInvalidKey), key)
	}
}
