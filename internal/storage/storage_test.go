package storage

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/perse/carbon-dashboard/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_Local(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "reports")
	a, err := New(context.Background(), config.StorageConfig{Type: "local", LocalPath: dir})
	require.NoError(t, err)
	assert.IsType(t, &LocalStorage{}, a)

	_, err = os.Stat(dir)
	assert.NoError(t, err)

	_, err = New(context.Background(), config.StorageConfig{Type: "ftp"})
	assert.Error(t, err)
}

func TestLocalStorage_PutGet(t *testing.T) {
	s, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	key := Key("reports", "2025-03-12", "run-1", "summary.json")
	assert.Equal(t, "reports/2025-03-12/run-1/summary.json", key)

	require.NoError(t, s.Put(ctx, Object{Key: key, ContentType: "application/json", Body: []byte(`{"ok":true}`)}))

	data, err := s.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, `{"ok":true}`, string(data))
	assert.True(t, strings.HasSuffix(s.Location(key), filepath.FromSlash(key)))

	_, err = s.Get(ctx, "reports/missing.csv")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLocalStorage_KeyCannotEscapeRoot(t *testing.T) {
	root := t.TempDir()
	s, err := NewLocalStorage(root)
	require.NoError(t, err)

	require.NoError(t, s.Put(context.Background(), Object{Key: "../../escape.txt", Body: []byte("x")}))
	_, err = os.Stat(filepath.Join(root, "escape.txt"))
	assert.NoError(t, err)

	assert.Error(t, s.Put(context.Background(), Object{Key: "", Body: []byte("x")}))
}

type fakeS3 struct {
	objects map[string][]byte
	types   map[string]string
	putErr  error
}

func (f *fakeS3) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.putErr != nil {
		return nil, f.putErr
	}
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	key := aws.ToString(in.Bucket) + "/" + aws.ToString(in.Key)
	f.objects[key] = data
	f.types[key] = aws.ToString(in.ContentType)
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) GetObject(ctx context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	data, ok := f.objects[aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(strings.NewReader(string(data)))}, nil
}

func TestS3Storage_PutGet(t *testing.T) {
	fake := &fakeS3{objects: map[string][]byte{}, types: map[string]string{}}
	s := &S3Storage{client: fake, bucket: "carbon-reports"}
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, Object{Key: "reports/a.csv", ContentType: "text/csv", Body: []byte("a,b\n")}))
	assert.Equal(t, "text/csv", fake.types["carbon-reports/reports/a.csv"])

	data, err := s.Get(ctx, "reports/a.csv")
	require.NoError(t, err)
	assert.Equal(t, "a,b\n", string(data))
	assert.Equal(t, "s3://carbon-reports/reports/a.csv", s.Location("reports/a.csv"))

	_, err = s.Get(ctx, "reports/missing.csv")
	assert.ErrorIs(t, err, ErrNotFound)

	fake.putErr = errors.New("access denied")
	err = s.Put(ctx, Object{Key: "reports/b.csv", Body: []byte("x")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "access denied")
}
