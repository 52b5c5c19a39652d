/*
main.go - Command-line simulation runner

PURPOSE:
  Runs one scenario without the HTTP service and prints the report.
  Useful for trying a scenario file before loading it into a store.

COMMAND-LINE FLAGS:
  -scenario      Scenario document (.json, .yaml or .yml)
  -preset        Built-in preset name (default box-demo when no -scenario)
  -format        Output format: text or json
  -xlsx          Also write the report workbook to this path
  -seed          Override the variance seed
  -config        YAML configuration file for simulation defaults
  -log-level     Overrides log.level (debug logs every cycle)
  -write-sample  Write a preset as a scenario file and exit

EXAMPLES:
  ./simulate -preset=box-cash-crunch
  ./simulate -scenario=./carton.yaml -format=json
  ./simulate -write-sample=./carton.json -preset=box-variance

EXIT STATUS:
  0 when the order completed, 2 when the run stopped without completing,
  1 on any error.
*/
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"

	"go.uber.org/zap"

	"github.com/warp/production-engine/config"
	"github.com/warp/production-engine/engine"
	"github.com/warp/production-engine/factory"
	"github.com/warp/production-engine/production"
	"github.com/warp/production-engine/report"
)

const defaultPreset = "box-demo"

// errIncomplete marks a run that finished without completing the order.
var errIncomplete = errors.New("order not completed")

type options struct {
	ScenarioPath string
	Preset       string
	Format       string
	XLSXPath     string
	Seed         int64
	SeedSet      bool
	ConfigPath   string
	LogLevel     string
	WriteSample  string
}

func main() {
	var opts options
	fs := flag.NewFlagSet("simulate", flag.ExitOnError)
	fs.StringVar(&opts.ScenarioPath, "scenario", "", "Scenario document (.json, .yaml, .yml)")
	fs.StringVar(&opts.Preset, "preset", "", "Built-in preset name")
	fs.StringVar(&opts.Format, "format", "text", "Output format: text or json")
	fs.StringVar(&opts.XLSXPath, "xlsx", "", "Write the report workbook to this path")
	fs.Int64Var(&opts.Seed, "seed", 0, "Override the variance seed")
	fs.StringVar(&opts.ConfigPath, "config", "", "YAML configuration file")
	fs.StringVar(&opts.LogLevel, "log-level", "", "Log level (debug, info, warn, error)")
	fs.StringVar(&opts.WriteSample, "write-sample", "", "Write a preset as a scenario file and exit")
	_ = fs.Parse(os.Args[1:])
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "seed" {
			opts.SeedSet = true
		}
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err := run(ctx, opts, os.Stdout)
	switch {
	case err == nil:
	case errors.Is(err, errIncomplete):
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	default:
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, opts options, out io.Writer) error {
	if opts.WriteSample != "" {
		return writeSample(opts, out)
	}

	format := strings.ToLower(opts.Format)
	if format != "text" && format != "json" {
		return fmt.Errorf("unknown format %q", opts.Format)
	}

	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return err
	}
	if opts.LogLevel != "" {
		cfg.Log.Level = opts.LogLevel
	}
	logger, err := config.NewLogger(cfg.Log)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	f := factory.NewScenarioFactory()
	f.Defaults = cfg.Settings()

	sc, err := loadScenario(f, opts)
	if err != nil {
		return err
	}
	if opts.SeedSet {
		sc.Settings.Seed = opts.Seed
	}

	rep, _, err := report.Simulate(ctx, sc, engine.Options{Logger: logger})
	if rep == nil {
		return err
	}
	if err != nil {
		logger.Warn("simulation interrupted", zap.Error(err))
	}

	if opts.XLSXPath != "" {
		if werr := writeWorkbook(rep, opts.XLSXPath); werr != nil {
			return werr
		}
	}

	if format == "json" {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(rep); err != nil {
			return err
		}
	} else {
		printReport(out, rep)
	}

	if rep.Status != engine.StatusCompleted {
		return fmt.Errorf("%w: %s after %d hours", errIncomplete, rep.Status, rep.TotalHours)
	}
	return nil
}

func loadScenario(f *factory.ScenarioFactory, opts options) (*production.Scenario, error) {
	if opts.ScenarioPath != "" && opts.Preset != "" {
		return nil, errors.New("use either -scenario or -preset, not both")
	}
	if opts.ScenarioPath != "" {
		return f.LoadFile(opts.ScenarioPath)
	}
	name := opts.Preset
	if name == "" {
		name = defaultPreset
	}
	doc, ok := factory.PresetDocument(name)
	if !ok {
		return nil, fmt.Errorf("unknown preset %q", name)
	}
	return f.FromDocument(doc)
}

func writeSample(opts options, out io.Writer) error {
	name := opts.Preset
	if name == "" {
		name = defaultPreset
	}
	data, ok := factory.PresetJSON(name)
	if !ok {
		return fmt.Errorf("unknown preset %q", name)
	}
	if err := os.WriteFile(opts.WriteSample, []byte(data), 0o644); err != nil {
		return err
	}
	fmt.Fprintf(out, "Wrote %s to %s\n", name, opts.WriteSample)
	return nil
}

func writeWorkbook(rep *report.Report, path string) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := rep.WriteXLSX(file); err != nil {
		_ = file.Close()
		return err
	}
	return file.Close()
}

// =============================================================================
// TEXT OUTPUT
// =============================================================================

func printReport(out io.Writer, rep *report.Report) {
	fmt.Fprintf(out, "Scenario %s (order %s)\n", rep.Scenario, rep.OrderID)
	fmt.Fprintf(out, "Status: %s after %d hours, %d production days (final day %d)\n\n",
		rep.Status, rep.TotalHours, rep.ProductionDays, rep.FinalDay)

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "Costs\t\t")
	fmt.Fprintf(tw, "materials\t%s\t\n", rep.Costs.Materials.StringFixed(2))
	fmt.Fprintf(tw, "labor\t%s\t\n", rep.Costs.Labor.StringFixed(2))
	fmt.Fprintf(tw, "depreciation\t%s\t\n", rep.Costs.Depreciation.StringFixed(2))
	fmt.Fprintf(tw, "periodic\t%s\t\n", rep.Costs.Periodic.StringFixed(2))
	fmt.Fprintf(tw, "total\t%s\t\n", rep.Costs.Total.StringFixed(2))
	fmt.Fprintf(tw, "order value\t%s\t\n", rep.Costs.OrderValue.StringFixed(2))
	fmt.Fprintf(tw, "margin\t%s\t\n", rep.Costs.Margin.StringFixed(2))
	_ = tw.Flush()

	fmt.Fprintln(out)
	fmt.Fprintf(out, "Cash: opening %s, closing %s, lowest %s on day %d\n",
		rep.Cash.Opening.StringFixed(2), rep.Cash.Closing.StringFixed(2),
		rep.Cash.Lowest.StringFixed(2), rep.Cash.LowestDay)
	if rep.Cash.FirstOverdraft != 0 {
		fmt.Fprintf(out, "Overdraft from day %d (%d days below zero)\n",
			rep.Cash.FirstOverdraft, len(rep.Cash.OverdraftDays))
	}

	fmt.Fprintln(out)
	fmt.Fprintf(out, "Utilization over %.0f hours: employees %.1f%%, equipment %.1f%%\n",
		rep.Utilization.AvailableHours,
		rep.Utilization.EmployeeAverage*100, rep.Utilization.EquipmentAverage*100)
	tw = tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	for _, u := range rep.Utilization.Employees {
		fmt.Fprintf(tw, "  employee\t%s\t%.1fh\t%.1f%%\n", u.Name, u.WorkedHours, u.Ratio*100)
	}
	for _, u := range rep.Utilization.Equipment {
		fmt.Fprintf(tw, "  equipment\t%s\t%.1fh\t%.1f%%\n", u.Name, u.WorkedHours, u.Ratio*100)
	}
	_ = tw.Flush()

	if len(rep.Operations) > 0 {
		fmt.Fprintln(out)
		tw = tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "Operation\tStatus\tProduced\tTarget")
		for _, op := range rep.Operations {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", op.Key, op.Status, op.Produced.String(), op.Target.String())
		}
		_ = tw.Flush()
	}
}
