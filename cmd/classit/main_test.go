package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"

	"github.com/poiesic/classit/batch"
	"github.com/poiesic/classit/core"
)

const taxonomyCSV = `sector,industry,sub_industry,code,code_description
Information Technology,Cloud Services,Software as a Service,7372,Prepackaged Software
Retail,E-commerce,Online Marketplaces,5961,Catalog and Mail-Order Houses
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func runApp(t *testing.T, args ...string) (string, error) {
	t.Helper()
	app := newApp()
	var out, errOut bytes.Buffer
	app.Writer = &out
	app.ErrWriter = &errOut
	app.ExitErrHandler = func(*cli.Context, error) {}
	err := app.Run(append([]string{"classit"}, args...))
	return out.String(), err
}

func findCommand(app *cli.App, name string) *cli.Command {
	for _, cmd := range app.Commands {
		if cmd.Name == name {
			return cmd
		}
	}
	return nil
}

func TestCommands(t *testing.T) {
	app := newApp()
	for _, name := range []string{"classify", "batch", "warm-cache", "taxonomy"} {
		t.Run(name, func(t *testing.T) {
			cmd := findCommand(app, name)
			require.NotNil(t, cmd)
			assert.NotNil(t, cmd.Action)
		})
	}

	t.Run("taxonomy is required", func(t *testing.T) {
		_, err := runApp(t, "classify", "--text", "cloud software")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "taxonomy")
	})

	t.Run("warm-cache requires a cache path", func(t *testing.T) {
		_, err := runApp(t, "warm-cache", "--taxonomy", "tax.csv")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "cache")
	})

	t.Run("workers has default value", func(t *testing.T) {
		cmd := findCommand(app, "batch")
		var workers *cli.IntFlag
		for _, flag := range cmd.Flags {
			if f, ok := flag.(*cli.IntFlag); ok && f.Name == "workers" {
				workers = f
			}
		}
		require.NotNil(t, workers)
		assert.Equal(t, 4, workers.Value)
	})
}

func TestTaxonomyCommand(t *testing.T) {
	path := writeFile(t, "tax.csv", taxonomyCSV)

	out, err := runApp(t, "taxonomy", "--taxonomy", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Sectors: 2")
	assert.Contains(t, out, "Sub-industries: 2")
	assert.NotContains(t, out, "Online Marketplaces")

	out, err = runApp(t, "taxonomy", "--taxonomy", path, "--tree")
	require.NoError(t, err)
	assert.Contains(t, out, "    Online Marketplaces [5961]")

	_, err = runApp(t, "taxonomy", "--taxonomy", filepath.Join(t.TempDir(), "missing.csv"))
	assert.Error(t, err)
}

func TestClassifyCommand(t *testing.T) {
	path := writeFile(t, "tax.csv", taxonomyCSV)

	t.Run("text flag", func(t *testing.T) {
		out, err := runApp(t, "classify", "--taxonomy", path, "--offline",
			"--company", "Acme", "--text", "we sell saas cloud software subscriptions to enterprises")
		require.NoError(t, err)

		var result core.CompanyClassification
		require.NoError(t, json.Unmarshal([]byte(out), &result))
		assert.Equal(t, "Acme", result.Company)
		assert.Equal(t, "Information Technology", result.Sector.Label)
		require.NotNil(t, result.Code)
		assert.Equal(t, "7372", *result.Code)
	})

	t.Run("file flag", func(t *testing.T) {
		textPath := writeFile(t, "acme.txt", "online retail store and e-commerce marketplace")
		out, err := runApp(t, "classify", "--taxonomy", path, "--offline", "--file", textPath)
		require.NoError(t, err)
		assert.Contains(t, out, `"label": "Retail"`)
	})

	t.Run("description is required", func(t *testing.T) {
		_, err := runApp(t, "classify", "--taxonomy", path, "--offline")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "--text or --file")
	})

	t.Run("config file is applied", func(t *testing.T) {
		cfgPath := writeFile(t, "classit.yaml", "acceptance:\n  sector: 0.99\n")
		out, err := runApp(t, "--config", cfgPath, "classify", "--taxonomy", path, "--offline",
			"--text", "we sell saas cloud software")
		require.NoError(t, err)

		var result core.CompanyClassification
		require.NoError(t, json.Unmarshal([]byte(out), &result))
		assert.Equal(t, core.Unknown, result.Sector.Label)
	})

	t.Run("invalid config file", func(t *testing.T) {
		cfgPath := writeFile(t, "classit.yaml", "weights:\n  lexical: 0.9\n")
		_, err := runApp(t, "--config", cfgPath, "classify", "--taxonomy", path, "--offline", "--text", "x")
		assert.Error(t, err)
	})
}

func TestBatchCommand(t *testing.T) {
	path := writeFile(t, "tax.csv", taxonomyCSV)
	input := writeFile(t, "jobs.jsonl", strings.Join([]string{
		`{"company":"Acme","text":"we sell saas cloud software subscriptions"}`,
		`{"company":"Shop","text":"online retail store and e-commerce marketplace"}`,
		`{"company":"Blank","text":""}`,
	}, "\n"))
	output := filepath.Join(t.TempDir(), "results.jsonl")

	_, err := runApp(t, "batch", "--taxonomy", path, "--offline", "--input", input, "--output", output, "--workers", "2")
	require.NoError(t, err)

	data, err := os.ReadFile(output)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 3)

	var results []batch.Result
	for _, line := range lines {
		var res batch.Result
		require.NoError(t, json.Unmarshal([]byte(line), &res))
		results = append(results, res)
	}
	assert.Equal(t, "Information Technology", results[0].Classification.Sector.Label)
	assert.Equal(t, "Retail", results[1].Classification.Sector.Label)
	assert.Equal(t, core.Unknown, results[2].Classification.Sector.Label)

	_, err = runApp(t, "batch", "--taxonomy", path, "--offline", "--input", input, "--workers", "0")
	assert.ErrorContains(t, err, "workers")
}

func TestSetupLogger(t *testing.T) {
	newLoggerApp := func() *cli.App {
		return &cli.App{
			Name: "test",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:  "log-level",
					Value: "info",
				},
			},
			Before: setupLogger,
			Action: func(c *cli.Context) error {
				return nil
			},
		}
	}

	t.Run("valid log levels", func(t *testing.T) {
		for _, level := range []string{"debug", "info", "warn", "error", "DEBUG", "WaRn"} {
			t.Run(level, func(t *testing.T) {
				require.NoError(t, newLoggerApp().Run([]string{"test", "--log-level", level}))
			})
		}
	})

	t.Run("invalid log level returns error", func(t *testing.T) {
		err := newLoggerApp().Run([]string{"test", "--log-level", "invalid"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid log level")
	})
}

func TestMetricsServer(t *testing.T) {
	path := writeFile(t, "tax.csv", taxonomyCSV)
	_, err := runApp(t, "--metrics-addr", "127.0.0.1:0", "taxonomy", "--taxonomy", path)
	assert.NoError(t, err)
}
