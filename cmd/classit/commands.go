package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/poiesic/classit"
	"github.com/poiesic/classit/batch"
	"github.com/poiesic/classit/config"
	"github.com/poiesic/classit/taxonomy"
	"github.com/poiesic/classit/warmup"
)

func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg := config.Default()
	if path := c.String("config"); path != "" {
		var err error
		cfg, err = config.Load(path)
		if err != nil {
			return nil, err
		}
	}
	if c.IsSet("cache") {
		cfg.CachePath = c.String("cache")
	}
	return cfg, nil
}

// openClassifier builds a classifier context. The returned close function
// releases any engine resources.
func openClassifier(ctx context.Context, c *cli.Context) (*classit.ClassifierContext, func(), error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return nil, nil, err
	}
	tax, err := taxonomy.Load(c.String("taxonomy"))
	if err != nil {
		return nil, nil, err
	}

	if c.Bool("offline") {
		cc, err := classit.NewClassifierContext(ctx, tax, classit.WithConfig(cfg))
		if err != nil {
			return nil, nil, err
		}
		return cc, func() {}, nil
	}

	engine, err := classit.OpenEngine(ctx, cfg, tax)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open classifier: %w", err)
	}
	return engine.Context(), func() {
		if err := engine.Close(); err != nil {
			slog.Error("error closing classifier", "err", err)
		}
	}, nil
}

func readText(c *cli.Context) (string, error) {
	if text := c.String("text"); text != "" {
		return text, nil
	}
	path := c.String("file")
	if path == "" {
		return "", fmt.Errorf("one of --text or --file is required")
	}
	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return "", fmt.Errorf("failed to read description: %w", err)
	}
	return string(data), nil
}

func classifyCommand(c *cli.Context) error {
	ctx := context.Background()

	text, err := readText(c)
	if err != nil {
		return err
	}
	cc, closeFn, err := openClassifier(ctx, c)
	if err != nil {
		return err
	}
	defer closeFn()

	result, err := classit.Classify(ctx, cc, c.String("company"), text)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(c.App.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

func batchCommand(c *cli.Context) error {
	ctx := context.Background()

	if c.Int("workers") <= 0 {
		return fmt.Errorf("workers must be greater than 0")
	}

	var in io.Reader = os.Stdin
	if path := c.String("input"); path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("failed to open input: %w", err)
		}
		defer f.Close()
		in = f
	}
	jobs, err := batch.ReadJobs(in)
	if err != nil {
		return fmt.Errorf("failed to read jobs: %w", err)
	}

	cc, closeFn, err := openClassifier(ctx, c)
	if err != nil {
		return err
	}
	defer closeFn()

	runner, err := batch.NewRunner(cc, batch.WithPoolSize(c.Int("workers")))
	if err != nil {
		return err
	}
	defer runner.Release()

	results := runner.Run(ctx, jobs)

	out := c.App.Writer
	if path := c.String("output"); path != "-" {
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("failed to create output: %w", err)
		}
		defer f.Close()
		out = f
	}
	return batch.WriteResults(out, results)
}

func warmCacheCommand(c *cli.Context) error {
	ctx := context.Background()

	warmConfig := &warmup.Config{
		BatchSize:      c.Int("batch-size"),
		ReportInterval: c.Int("report-interval"),
		MaxRetries:     c.Int("max-retries"),
		RetryDelay:     c.Duration("retry-delay"),
	}
	if warmConfig.BatchSize <= 0 {
		return fmt.Errorf("batch-size must be greater than 0")
	}
	if warmConfig.ReportInterval <= 0 {
		return fmt.Errorf("report-interval must be greater than 0")
	}
	if warmConfig.MaxRetries <= 0 {
		return fmt.Errorf("max-retries must be greater than 0")
	}

	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	tax, err := taxonomy.Load(c.String("taxonomy"))
	if err != nil {
		return err
	}

	engine, err := classit.OpenEngine(ctx, cfg, tax)
	if err != nil {
		return fmt.Errorf("failed to open classifier: %w", err)
	}
	defer engine.Close()

	embedder := engine.Context().Embedder()
	if embedder == nil {
		return fmt.Errorf("embedding service at %s is unavailable", cfg.AI.EmbeddingHost)
	}

	w, err := warmup.NewWarmer(embedder, warmConfig, c.App.ErrWriter, slog.Default())
	if err != nil {
		return err
	}

	fmt.Fprintf(c.App.ErrWriter, "Cache: %s\n", cfg.CachePath)
	fmt.Fprintf(c.App.ErrWriter, "Embedding host: %s\n", cfg.AI.EmbeddingHost)
	fmt.Fprintf(c.App.ErrWriter, "Embedding model: %s\n", cfg.AI.EmbeddingModel)
	fmt.Fprintln(c.App.ErrWriter)

	if _, err := w.WarmTaxonomy(ctx, tax); err != nil {
		return fmt.Errorf("warm-up failed: %w", err)
	}
	return nil
}

func taxonomyCommand(c *cli.Context) error {
	tax, err := taxonomy.Load(c.String("taxonomy"))
	if err != nil {
		return err
	}
	if err := tax.Validate(); err != nil {
		return err
	}

	out := c.App.Writer
	stats := tax.Stats()
	fmt.Fprintf(out, "Sectors: %d\nIndustries: %d\nSector/industry pairs: %d\nSub-industries: %d\n",
		stats.Sectors, stats.Industries, stats.Pairs, stats.SubIndustries)

	if !c.Bool("tree") {
		return nil
	}
	for _, sector := range tax.Sectors() {
		fmt.Fprintln(out, sector)
		for _, industry := range tax.IndustriesOf(sector) {
			fmt.Fprintf(out, "  %s\n", industry)
			for _, sub := range tax.SubIndustriesOf(sector, industry) {
				code, _ := tax.CodeOf(sub)
				fmt.Fprintf(out, "    %s [%s]\n", sub, strings.TrimSpace(code.Code))
			}
		}
	}
	return nil
}
