package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ck2db/internal/parser"
	"ck2db/internal/sink"
)

func clearEnv(t *testing.T) {
	for _, k := range []string{
		"CK2DB_INPUT", "CK2DB_OUTPUT", "DATABASE_URL", "CK2DB_ROOT", "CK2DB_SCHEMA",
		"CK2DB_S3_ENDPOINT", "CK2DB_S3_REGION", "CK2DB_S3_ACCESS_KEY", "CK2DB_S3_SECRET_KEY",
		"CK2DB_S3_USE_SSL", "MINIO_ROOT_USER", "MINIO_ROOT_PASSWORD",
	} {
		t.Setenv(k, "")
	}
}

func TestLoadFlags(t *testing.T) {
	clearEnv(t)
	cfg, err := Load("ck2db", []string{
		"-i", "a.ck2,b.ck2", "-input", "s3://saves/c.ck2",
		"-o", "out.db", "-r", "landed_titles", "-w", "-commit-interval", "50",
		"d.ck2",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"a.ck2", "b.ck2", "s3://saves/c.ck2", "d.ck2"}, cfg.Inputs)
	assert.Equal(t, "out.db", cfg.Output)
	assert.Equal(t, "landed_titles", cfg.Root)
	assert.True(t, cfg.Rewrite)
	assert.Equal(t, 50, cfg.CommitInterval)
	assert.Equal(t, parser.DefaultMaxLines, cfg.MaxLines)
}

func TestLoadDefaultsFromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("CK2DB_INPUT", "x.ck2")
	t.Setenv("DATABASE_URL", "postgres://localhost/ck2")
	t.Setenv("MINIO_ROOT_USER", "minio")
	t.Setenv("MINIO_ROOT_PASSWORD", "secret")
	t.Setenv("CK2DB_S3_ENDPOINT", "minio:9000")
	t.Setenv("CK2DB_S3_USE_SSL", "false")

	cfg, err := Load("ck2db", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"x.ck2"}, cfg.Inputs)
	assert.Equal(t, "postgres://localhost/ck2", cfg.Output)
	assert.Equal(t, parser.SaveRoot, cfg.Root)
	assert.Equal(t, sink.DefaultCommitInterval, cfg.CommitInterval)
	assert.Equal(t, "us-east-1", cfg.S3.Region)
	assert.Equal(t, "minio", cfg.S3.AccessKey)
	assert.Equal(t, "secret", cfg.S3.SecretKey)
	assert.False(t, cfg.S3.UseSSL)
	assert.True(t, cfg.S3.Enabled())
}

func TestLoadOutputFlagBeatsEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("CK2DB_OUTPUT", "env.db")
	cfg, err := Load("ck2db", []string{"-o", "flag.db", "in.ck2"})
	require.NoError(t, err)
	assert.Equal(t, "flag.db", cfg.Output)
}

func TestLoadValidation(t *testing.T) {
	clearEnv(t)
	_, err := Load("ck2db", []string{"-o", "out.db"})
	require.ErrorIs(t, err, ErrNoInput)

	_, err = Load("ck2db", []string{"in.ck2"})
	require.ErrorIs(t, err, ErrNoOutput)

	cfg, err := Load("ck2db", []string{"-dry-run", "in.ck2"})
	require.NoError(t, err)
	assert.True(t, cfg.DryRun)

	_, err = Load("ck2db", []string{"-o", "out.db", "-max-lines", "0", "in.ck2"})
	require.Error(t, err)
}
