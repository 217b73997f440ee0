package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"

	"ck2db/internal/config"
	"ck2db/internal/diagnostic"
	"ck2db/internal/parser"
	"ck2db/internal/record"
	"ck2db/internal/sink"
	"ck2db/internal/source"
)

func main() {
	cfg, err := config.Load("ck2db", os.Args[1:])
	if errors.Is(err, flag.ErrHelp) {
		return
	}
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err = run(ctx, cfg)
	stop()
	if err != nil {
		log.Fatal(err)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	schema := record.DefaultSchema()
	if cfg.SchemaFile != "" {
		s, err := record.LoadSchemaFile(cfg.SchemaFile)
		if err != nil {
			return err
		}
		schema = s
	}

	store, mem, err := openStore(ctx, cfg, schema)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := store.Close(); cerr != nil {
			log.Printf("close store: %v", cerr)
		}
	}()

	opener := &source.Opener{S3: cfg.S3}
	tally := &diagnostic.Tally{Next: diagnostic.LogReporter{}}
	for _, input := range cfg.Inputs {
		if err := ingest(ctx, opener, store, input, parser.Options{
			Root:     cfg.Root,
			MaxLines: cfg.MaxLines,
			Schema:   schema,
			Reporter: tally,
		}); err != nil {
			return err
		}
		log.Printf("%s diagnostics: %s", input, tally.Summary())
		tally.Reset()
	}
	if mem != nil {
		log.Printf("dry run totals: %s", formatCounts(mem.Counts()))
	}
	return nil
}

func openStore(ctx context.Context, cfg *config.Config, schema *record.Schema) (sink.Store, *sink.MemoryStore, error) {
	if cfg.DryRun {
		log.Printf("dry run: records are kept in memory")
		mem := sink.NewMemoryStore(schema)
		return mem, mem, nil
	}
	s, err := sink.Open(ctx, cfg.Output, schema, sink.Config{
		CommitInterval: cfg.CommitInterval,
		Rebuild:        cfg.Rewrite,
	})
	if err != nil {
		return nil, nil, err
	}
	if err := s.EnsureSchema(ctx); err != nil {
		_ = s.Close()
		return nil, nil, err
	}
	kind := "sqlite"
	if sink.IsPostgres(cfg.Output) {
		kind = "postgres"
	}
	log.Printf("output: %s (rewrite=%t)", kind, cfg.Rewrite)
	return s, nil, nil
}

func ingest(ctx context.Context, opener *source.Opener, store sink.Store, input string, opts parser.Options) error {
	rc, err := opener.OpenDecoded(ctx, input)
	if err != nil {
		return err
	}
	defer rc.Close()

	log.Printf("parsing %s (root %s)", input, opts.Root)
	stats, err := parser.Parse(ctx, rc, store, opts)
	if ferr := store.Flush(ctx); ferr != nil {
		err = errors.Join(err, ferr)
	}
	if err != nil {
		return fmt.Errorf("%s: %w", input, err)
	}
	if stats.Truncated {
		log.Printf("%s: stopped after %d lines", input, stats.Lines)
	}
	log.Printf("%s: %d lines, %d records (%s)", input, stats.Lines, stats.Total(), formatCounts(stats.Records))
	return nil
}

func formatCounts(counts map[record.Type]int) string {
	if len(counts) == 0 {
		return "none"
	}
	types := make([]string, 0, len(counts))
	for t := range counts {
		types = append(types, string(t))
	}
	sort.Strings(types)
	parts := make([]string, len(types))
	for i, t := range types {
		parts[i] = fmt.Sprintf("%s=%d", t, counts[record.Type(t)])
	}
	return strings.Join(parts, " ")
}
