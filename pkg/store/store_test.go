package store

import (
	"bytes"
	"context"
	"io"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.now
}

func (c *clock) Add(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.now = c.now.Add(d)
}

func TestStores(t *testing.T) {
	tests := []struct {
		desc  string
		build func(t *testing.T, now func() time.Time) Store
	}{
		{
			desc: "memory",
			build: func(t *testing.T, now func() time.Time) Store {
				t.Helper()

				s := NewMemory()
				s.now = now

				return s
			},
		},
		{
			desc: "sqlite",
			build: func(t *testing.T, now func() time.Time) Store {
				t.Helper()

				s, err := NewSQLite(filepath.Join(t.TempDir(), "store.db"))
				require.NoError(t, err)
				t.Cleanup(func() { _ = s.Close() })

				s.now = now

				return s
			},
		},
		{
			desc: "s3",
			build: func(t *testing.T, now func() time.Time) Store {
				t.Helper()

				s := newS3(&fakeS3{objects: map[string]fakeObject{}}, "bucket", "monitor")
				s.now = now

				return s
			},
		},
	}

	for _, test := range tests {
		t.Run(test.desc, func(t *testing.T) {
			t.Parallel()

			ctx := context.Background()
			clk := &clock{now: time.Date(2024, time.May, 1, 10, 0, 0, 0, time.UTC)}
			s := test.build(t, clk.Now)

			_, found, err := s.Get(ctx, "missing")
			require.NoError(t, err)
			assert.False(t, found)

			require.NoError(t, s.Set(ctx, "transient", []byte("v1"), 24*time.Hour))
			require.NoError(t, s.Set(ctx, "option", []byte("foo,bar"), 0))

			value, found, err := s.Get(ctx, "transient")
			require.NoError(t, err)
			assert.True(t, found)
			assert.Equal(t, []byte("v1"), value)

			require.NoError(t, s.Set(ctx, "transient", []byte("v2"), 24*time.Hour))

			value, found, err = s.Get(ctx, "transient")
			require.NoError(t, err)
			assert.True(t, found)
			assert.Equal(t, []byte("v2"), value)

			clk.Add(24*time.Hour + time.Second)

			_, found, err = s.Get(ctx, "transient")
			require.NoError(t, err)
			assert.False(t, found, "expired key must read as absent")

			value, found, err = s.Get(ctx, "option")
			require.NoError(t, err)
			assert.True(t, found, "key without ttl must not expire")
			assert.Equal(t, []byte("foo,bar"), value)

			require.NoError(t, s.Delete(ctx, "option"))
			require.NoError(t, s.Delete(ctx, "option"))

			_, found, err = s.Get(ctx, "option")
			require.NoError(t, err)
			assert.False(t, found)
		})
	}
}

func TestNewSQLite_memory(t *testing.T) {
	ctx := context.Background()

	for _, path := range []string{"", ":memory:"} {
		first, err := NewSQLite(path)
		require.NoError(t, err)
		t.Cleanup(func() { _ = first.Close() })

		second, err := NewSQLite(path)
		require.NoError(t, err)
		t.Cleanup(func() { _ = second.Close() })

		require.NoError(t, first.Set(ctx, "k", []byte("v"), 0))

		value, ok, err := first.Get(ctx, "k")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, []byte("v"), value)

		// in-memory databases are not shared between stores.
		_, ok, err = second.Get(ctx, "k")
		require.NoError(t, err)
		assert.False(t, ok)
	}
}

func TestNew(t *testing.T) {
	s, closeFn, err := New(context.Background(), Config{})
	require.NoError(t, err)
	assert.IsType(t, &Memory{}, s)
	assert.NoError(t, closeFn())

	s, closeFn, err = New(context.Background(), Config{Backend: BackendSQLite, SQLitePath: filepath.Join(t.TempDir(), "kv.db")})
	require.NoError(t, err)
	assert.IsType(t, &SQLite{}, s)
	assert.NoError(t, closeFn())

	_, _, err = New(context.Background(), Config{Backend: BackendS3})
	assert.Error(t, err)

	_, _, err = New(context.Background(), Config{Backend: "redis"})
	assert.Error(t, err)
}

type fakeObject struct {
	body     []byte
	metadata map[string]string
}

type fakeS3 struct {
	mu      sync.Mutex
	objects map[string]fakeObject
}

func (f *fakeS3) GetObject(_ context.Context, params *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	obj, ok := f.objects[aws.ToString(params.Bucket)+"/"+aws.ToString(params.Key)]
	if !ok {
		return nil, &types.NoSuchKey{Message: aws.String("not found")}
	}

	return &s3.GetObjectOutput{
		Body:     io.NopCloser(bytes.NewReader(obj.body)),
		Metadata: obj.metadata,
	}, nil
}

func (f *fakeS3) PutObject(_ context.Context, params *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	body, err := io.ReadAll(params.Body)
	if err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.objects[aws.ToString(params.Bucket)+"/"+aws.ToString(params.Key)] = fakeObject{body: body, metadata: params.Metadata}

	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) DeleteObject(_ context.Context, params *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	delete(f.objects, aws.ToString(params.Bucket)+"/"+aws.ToString(params.Key))

	return &s3.DeleteObjectOutput{}, nil
}
