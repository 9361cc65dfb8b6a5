package backup

import (
	"context"
	"errors"
	"io"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/dmitrijs2005/registadb/internal/logging"
	sc "github.com/dmitrijs2005/registadb/internal/server/config"
	"github.com/dmitrijs2005/registadb/internal/server/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePutter struct {
	mu     sync.Mutex
	err    error
	inputs []*s3.PutObjectInput
	bodies [][]byte
}

func (f *fakePutter) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	body, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.inputs = append(f.inputs, in)
	f.bodies = append(f.bodies, body)
	return &s3.PutObjectOutput{}, nil
}

func (f *fakePutter) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.inputs)
}

type staticSnapshot []byte

func (s staticSnapshot) Snapshot(w io.Writer) (int64, error) {
	n, err := w.Write(s)
	return int64(n), err
}

type failingSnapshot struct{}

func (failingSnapshot) Snapshot(io.Writer) (int64, error) { return 0, errors.New("engine closed") }

func TestSnapshotKey_Layout(t *testing.T) {
	key := SnapshotKey(time.Date(2024, 3, 7, 23, 0, 0, 0, time.UTC))
	assert.Regexp(t, regexp.MustCompile(`^snapshots/2024/03/07/[0-9a-f-]{36}\.db$`), key)
	assert.NotEqual(t, key, SnapshotKey(time.Date(2024, 3, 7, 23, 0, 0, 0, time.UTC)))
}

func TestUpload_PutsSnapshotBytes(t *testing.T) {
	p := &fakePutter{}
	u := NewUploader(staticSnapshot("snapshot-bytes"), p, "bkt", logging.Nop{})

	key, err := u.Upload(context.Background())
	require.NoError(t, err)

	require.Equal(t, 1, p.calls())
	in := p.inputs[0]
	assert.Equal(t, "bkt", aws.ToString(in.Bucket))
	assert.Equal(t, key, aws.ToString(in.Key))
	assert.Equal(t, int64(len("snapshot-bytes")), aws.ToInt64(in.ContentLength))
	assert.Equal(t, []byte("snapshot-bytes"), p.bodies[0])
}

func TestUpload_RealEngineSnapshot(t *testing.T) {
	engine, err := storage.Open(t.TempDir(), storage.Options{NoSync: true})
	require.NoError(t, err)
	defer engine.Close()

	p := &fakePutter{}
	_, err = NewUploader(engine, p, "bkt", logging.Nop{}).Upload(context.Background())
	require.NoError(t, err)

	require.Equal(t, 1, p.calls())
	assert.NotEmpty(t, p.bodies[0])
	assert.Equal(t, int64(len(p.bodies[0])), aws.ToInt64(p.inputs[0].ContentLength))
}

func TestUpload_Errors(t *testing.T) {
	_, err := NewUploader(failingSnapshot{}, &fakePutter{}, "bkt", logging.Nop{}).Upload(context.Background())
	require.ErrorContains(t, err, "engine closed")

	_, err = NewUploader(staticSnapshot("x"), &fakePutter{err: errors.New("denied")}, "bkt", logging.Nop{}).Upload(context.Background())
	require.ErrorContains(t, err, "denied")
}

func TestRun_UploadsPeriodicallyAndStops(t *testing.T) {
	p := &fakePutter{}
	u := NewUploader(staticSnapshot("x"), p, "bkt", logging.Nop{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- u.Run(ctx, 10*time.Millisecond) }()

	require.Eventually(t, func() bool { return p.calls() >= 2 }, 2*time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("backup loop did not stop")
	}
}

func TestRun_RejectsNonPositiveInterval(t *testing.T) {
	u := NewUploader(staticSnapshot("x"), &fakePutter{}, "bkt", logging.Nop{})
	require.Error(t, u.Run(context.Background(), 0))
}

func TestNewS3Client_ConfigError(t *testing.T) {
	orig := loadDefaultAWSConfig
	t.Cleanup(func() { loadDefaultAWSConfig = orig })

	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		return aws.Config{}, errors.New("no config")
	}

	_, err := NewS3Client(context.Background(), &sc.Config{})
	require.ErrorContains(t, err, "no config")
}

func TestNewS3Client_UsesConfiguredEndpoint(t *testing.T) {
	c := &sc.Config{}
	c.LoadDefaults()

	client, err := NewS3Client(context.Background(), c)
	require.NoError(t, err)
	assert.Equal(t, c.S3BaseEndpoint, aws.ToString(client.Options().BaseEndpoint))
	assert.True(t, client.Options().UsePathStyle)
	assert.Equal(t, c.S3Region, client.Options().Region)
}
