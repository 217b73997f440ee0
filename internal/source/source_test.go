package source

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenDecodedLocalFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "save.ck2")
	// "Ætheling" and "Þórr" in Windows-1252.
	require.NoError(t, os.WriteFile(path, []byte("name=\"\xC6theling\"\nnick=\"\xDE\xF3rr\"\n"), 0o644))

	var o Opener
	for _, name := range []string{path, "file://" + path} {
		rc, err := o.OpenDecoded(context.Background(), name)
		require.NoError(t, err)
		got, err := io.ReadAll(rc)
		require.NoError(t, err)
		require.NoError(t, rc.Close())
		assert.Equal(t, "name=\"Ætheling\"\nnick=\"Þórr\"\n", string(got))
	}
}

func TestOpenMissingFile(t *testing.T) {
	var o Opener
	_, err := o.Open(context.Background(), filepath.Join(t.TempDir(), "nope.ck2"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestOpenRejectsUnknownScheme(t *testing.T) {
	var o Opener
	_, err := o.Open(context.Background(), "ftp://host/save.ck2")
	require.ErrorIs(t, err, ErrUnsupportedScheme)
}

func TestOpenS3NeedsConfig(t *testing.T) {
	var o Opener
	_, err := o.Open(context.Background(), "s3://saves/game.ck2")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "endpoint is required")
}

func TestParseS3URL(t *testing.T) {
	bucket, key, err := ParseS3URL("s3://saves/2024/england.ck2")
	require.NoError(t, err)
	assert.Equal(t, "saves", bucket)
	assert.Equal(t, "2024/england.ck2", key)

	_, _, err = ParseS3URL("s3://saves/")
	require.Error(t, err)
}

func TestS3ConfigEnabled(t *testing.T) {
	assert.False(t, S3Config{}.Enabled())
	assert.True(t, S3Config{Endpoint: "minio:9000", AccessKey: "a", SecretKey: "b"}.Enabled())
}
