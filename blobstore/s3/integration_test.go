package s3

import (
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/hupe1980/lakescan/blobstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIntegration_S3Store(t *testing.T) {
	bucket := os.Getenv("S3_BUCKET")
	if bucket == "" {
		t.Skip("Skipping S3 integration test: S3_BUCKET not set")
	}

	ctx := t.Context()
	prefix := fmt.Sprintf("test-lakescan-%d/", time.Now().UnixNano())
	store, err := New(ctx, bucket, WithPrefix(prefix))
	require.NoError(t, err)

	data := []byte("state,county,year\nGA,Fulton,2021\nTX,Harris,2020\n")
	require.NoError(t, store.Put(ctx, "health.csv", data))

	infos, err := store.List(ctx, "")
	require.NoError(t, err)
	require.Len(t, infos, 1)
	assert.Equal(t, "health.csv", infos[0].Key)

	blob, err := store.Open(ctx, "health.csv")
	require.NoError(t, err)
	assert.Equal(t, int64(len(data)), blob.Size())

	buf := make([]byte, 5)
	_, err = blob.ReadAt(ctx, buf, 0)
	require.NoError(t, err)
	assert.Equal(t, "state", string(buf))

	_, err = store.Open(ctx, "nonexistent")
	assert.ErrorIs(t, err, blobstore.ErrNotFound)
}
