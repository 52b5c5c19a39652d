package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/warp/production-engine/engine"
	"github.com/warp/production-engine/report"
)

func TestRun_PresetText(t *testing.T) {
	t.Chdir(t.TempDir())

	// GIVEN: the default preset
	var out bytes.Buffer

	// WHEN: run with text output
	err := run(context.Background(), options{Format: "text", LogLevel: "error"}, &out)

	// THEN: the summary is printed
	require.NoError(t, err)
	assert.Contains(t, out.String(), "Scenario box-demo")
	assert.Contains(t, out.String(), "Status: completed")
	assert.Contains(t, out.String(), "Utilization over")
}

func TestRun_JSONAndWorkbook(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	xlsx := filepath.Join(dir, "out.xlsx")

	var out bytes.Buffer
	err := run(context.Background(), options{Preset: "box-demo", Format: "json", XLSXPath: xlsx, LogLevel: "error"}, &out)
	require.NoError(t, err)

	var rep report.Report
	require.NoError(t, json.Unmarshal(out.Bytes(), &rep))
	assert.Equal(t, engine.StatusCompleted, rep.Status)
	assert.Positive(t, rep.TotalHours)

	f, err := excelize.OpenFile(xlsx)
	require.NoError(t, err)
	defer f.Close()
	assert.Contains(t, f.GetSheetList(), report.SheetSummary)
}

func TestRun_ScenarioFileFromSample(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	path := filepath.Join(dir, "carton.json")

	// GIVEN: a preset written as a scenario file
	var out bytes.Buffer
	require.NoError(t, run(context.Background(), options{WriteSample: path, Preset: "box-demo"}, &out))
	_, err := os.Stat(path)
	require.NoError(t, err)

	// WHEN: the file is simulated with a fixed seed
	out.Reset()
	err = run(context.Background(), options{ScenarioPath: path, Format: "text", Seed: 7, SeedSet: true, LogLevel: "error"}, &out)

	// THEN: it runs like the preset
	require.NoError(t, err)
	assert.Contains(t, out.String(), "Status: completed")
}

func TestRun_Errors(t *testing.T) {
	t.Chdir(t.TempDir())

	cases := []struct {
		name string
		opts options
	}{
		{"unknown format", options{Format: "csv"}},
		{"unknown preset", options{Format: "text", Preset: "nope"}},
		{"both sources", options{Format: "text", Preset: "box-demo", ScenarioPath: "x.json"}},
		{"missing file", options{Format: "text", ScenarioPath: "missing.yaml"}},
		{"bad log level", options{Format: "text", LogLevel: "loud"}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			var out bytes.Buffer
			err := run(context.Background(), c.opts, &out)
			require.Error(t, err)
			assert.NotErrorIs(t, err, errIncomplete)
		})
	}
}

func TestRun_CanceledRunIsIncomplete(t *testing.T) {
	t.Chdir(t.TempDir())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var out bytes.Buffer
	err := run(ctx, options{Format: "text", LogLevel: "error"}, &out)

	require.Error(t, err)
	assert.ErrorIs(t, err, errIncomplete)
}
