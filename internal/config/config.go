package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"ck2db/internal/parser"
	"ck2db/internal/sink"
	"ck2db/internal/source"
)

var (
	ErrNoInput  = errors.New("at least one input is required")
	ErrNoOutput = errors.New("an output database is required")
)

type Config struct {
	Inputs         []string
	Output         string
	Root           string
	Rewrite        bool
	SchemaFile     string
	CommitInterval int
	MaxLines       int
	DryRun         bool
	S3             source.S3Config
}

// listFlag collects repeatable, comma separated values.
type listFlag []string

func (l *listFlag) String() string { return strings.Join(*l, ",") }

func (l *listFlag) Set(v string) error {
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			*l = append(*l, p)
		}
	}
	return nil
}

// Load reads .env (if present), then flags from args with environment
// defaults. args excludes the program name.
func Load(name string, args []string) (*Config, error) {
	_ = godotenv.Load()

	fs := flag.NewFlagSet(name, flag.ContinueOnError)

	var inputs listFlag
	fs.Var(&inputs, "input", "input file or s3://bucket/key (repeatable, comma separated)")
	fs.Var(&inputs, "i", "shorthand for -input")

	output := firstNonEmpty(env("CK2DB_OUTPUT"), env("DATABASE_URL"))
	fs.StringVar(&output, "output", output, "SQLite file or postgres:// URL")
	fs.StringVar(&output, "o", output, "shorthand for -output")

	root := firstNonEmpty(env("CK2DB_ROOT"), parser.SaveRoot)
	fs.StringVar(&root, "root", root, "root element name")
	fs.StringVar(&root, "r", root, "shorthand for -root")

	var rewrite bool
	fs.BoolVar(&rewrite, "rewrite", false, "drop and rebuild tables and views")
	fs.BoolVar(&rewrite, "w", false, "shorthand for -rewrite")

	schemaFile := env("CK2DB_SCHEMA")
	fs.StringVar(&schemaFile, "schema", schemaFile, "YAML column overlay")

	commitInterval := fs.Int("commit-interval", sink.DefaultCommitInterval, "inserts per transaction")
	maxLines := fs.Int("max-lines", parser.DefaultMaxLines, "stop reading an input after this many lines")
	dryRun := fs.Bool("dry-run", false, "parse without writing to a database")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	// Positional arguments are inputs too.
	for _, a := range fs.Args() {
		_ = inputs.Set(a)
	}
	if len(inputs) == 0 {
		_ = inputs.Set(env("CK2DB_INPUT"))
	}

	cfg := &Config{
		Inputs:         inputs,
		Output:         strings.TrimSpace(output),
		Root:           strings.TrimSpace(root),
		Rewrite:        rewrite,
		SchemaFile:     strings.TrimSpace(schemaFile),
		CommitInterval: *commitInterval,
		MaxLines:       *maxLines,
		DryRun:         *dryRun,
		S3:             S3FromEnv(),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if len(c.Inputs) == 0 {
		return ErrNoInput
	}
	if c.Output == "" && !c.DryRun {
		return ErrNoOutput
	}
	if c.CommitInterval <= 0 {
		return fmt.Errorf("commit-interval must be positive, got %d", c.CommitInterval)
	}
	if c.MaxLines <= 0 {
		return fmt.Errorf("max-lines must be positive, got %d", c.MaxLines)
	}
	return nil
}

// S3FromEnv reads the object store settings for s3:// inputs.
func S3FromEnv() source.S3Config {
	return source.S3Config{
		Endpoint:  env("CK2DB_S3_ENDPOINT"),
		Region:    firstNonEmpty(env("CK2DB_S3_REGION"), "us-east-1"),
		AccessKey: firstNonEmpty(env("CK2DB_S3_ACCESS_KEY"), env("MINIO_ROOT_USER")),
		SecretKey: firstNonEmpty(env("CK2DB_S3_SECRET_KEY"), env("MINIO_ROOT_PASSWORD")),
		UseSSL:    envBool("CK2DB_S3_USE_SSL", true),
	}
}

func env(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func envBool(key string, def bool) bool {
	raw := env(key)
	if raw == "" {
		return def
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return def
	}
	return v
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
