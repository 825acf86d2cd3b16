package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/pflag"

	"fitmetrics/internal/analysis"
	"fitmetrics/internal/config"
	"fitmetrics/internal/errreport"
	"fitmetrics/internal/freshness"
	"fitmetrics/internal/log"
	"fitmetrics/internal/service"
	"fitmetrics/internal/store"
)

const usage = `Usage: fitmetrics [flags] [command]

Commands:
  run                 recompute derived metrics for every stored activity (default)
  show <activity_id>  print the derived metrics of one activity
  init-config         write an example config file

Flags:
`

type options struct {
	configPath string
	workers    int
	verbose    bool
}

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	var opts options
	flags := pflag.NewFlagSet("fitmetrics", pflag.ContinueOnError)
	flags.StringVarP(&opts.configPath, "config", "c", "", "config file (default $FITNESS_CONFIG or ~/.fitness/config.json)")
	flags.IntVarP(&opts.workers, "workers", "w", 0, "activities processed in parallel (overrides pipeline.workers)")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "debug logging")
	flags.Usage = func() {
		fmt.Fprint(os.Stderr, usage)
		flags.PrintDefaults()
	}
	if err := flags.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	command := "run"
	rest := flags.Args()
	if len(rest) > 0 {
		command, rest = rest[0], rest[1:]
	}

	if command == "init-config" {
		return initConfig(opts.configPath)
	}

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if opts.workers > 0 {
		cfg.Pipeline.Workers = opts.workers
	}
	if opts.verbose {
		cfg.Log.Level = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config %s: %w", config.ConfigPath(), err)
	}

	if err := log.Init(cfg.Log.Level, cfg.Log.Development); err != nil {
		return err
	}
	defer log.Sync()
	logger := log.GetSugaredLogger()

	reporter, err := errreport.New(errreport.Config{
		DSN:              cfg.Sentry.DSN,
		Environment:      cfg.Sentry.Environment,
		Release:          cfg.Sentry.Release,
		TracesSampleRate: cfg.Sentry.TracesSampleRate,
	}, logger)
	if err != nil {
		logger.Warnw("Error reporting disabled", "error", err)
		reporter, _ = errreport.New(errreport.Config{}, logger)
	}
	defer reporter.Flush(service.ReportFlushTimeout)

	db, err := store.Open(cfg.Paths.DBPath)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	marker := freshness.NewMarker(cfg.Paths.LastUpdatePath)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch command {
	case "run":
		zones := analysis.HRZones{
			RestingHR: cfg.Athlete.RestingHR,
			MaxHR:     cfg.Athlete.MaxHR,
			Method:    cfg.Athlete.ZoneMethod,
		}
		pipeline := service.NewPipelineService(db, zones, marker, reporter, logger, cfg.Pipeline.Workers)
		return runPipeline(ctx, pipeline, os.Stdout)

	case "show":
		if len(rest) != 1 {
			flags.Usage()
			return errors.New("show needs exactly one activity id")
		}
		cache, err := freshness.NewCache(cfg.Cache.Size, time.Duration(cfg.Cache.TTLSeconds)*time.Second)
		if err != nil {
			return err
		}
		query := service.NewQueryService(db, marker, cache)
		return showActivity(ctx, query, marker, rest[0], os.Stdout)

	default:
		flags.Usage()
		return fmt.Errorf("unknown command %q", command)
	}
}

func initConfig(path string) error {
	if path == "" {
		path = config.ConfigPath()
	}
	written, err := config.CreateExample(path)
	if err != nil {
		return fmt.Errorf("creating example config: %w", err)
	}
	if !written {
		fmt.Printf("Config already exists at %s\n", path)
		return nil
	}
	fmt.Printf("Wrote example config to %s\n", path)
	return nil
}

func runPipeline(ctx context.Context, pipeline *service.PipelineService, out io.Writer) error {
	progress := make(chan service.RunProgress)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for p := range progress {
			if p.Total > 0 {
				fmt.Fprintf(os.Stderr, "\rProcessing %s/%s", humanize.Comma(int64(p.Completed)), humanize.Comma(int64(p.Total)))
			}
		}
		fmt.Fprintln(os.Stderr)
	}()

	result, err := pipeline.Run(ctx, progress)
	<-done
	if result == nil {
		return err
	}

	r := result.Run
	fmt.Fprintf(out, "Run %s: %s\n", r.ID, r.Status)
	fmt.Fprintf(out, "  activities: %s (%s ok, %s skipped)\n",
		humanize.Comma(int64(r.ActivitiesProcessed)),
		humanize.Comma(int64(r.ActivitiesSucceeded)),
		humanize.Comma(int64(r.ActivitiesFailed)))
	fmt.Fprintf(out, "  streams: %s, weather: %s\n",
		humanize.Comma(int64(r.StreamsProcessed)),
		humanize.Comma(int64(r.WeatherProcessed)))
	if r.DurationSec != nil {
		fmt.Fprintf(out, "  took %s\n", service.FormatDuration(*r.DurationSec))
	}
	for _, f := range result.Failures {
		fmt.Fprintf(out, "  skipped %s: %v\n", f.ActivityID, f.Err)
	}
	return err
}

func showActivity(ctx context.Context, query *service.QueryService, marker *freshness.Marker, activityID string, out io.Writer) error {
	m, err := query.DerivedMetrics(ctx, activityID)
	if errors.Is(err, store.ErrActivityNotFound) {
		return fmt.Errorf("no derived metrics for activity %s (run the pipeline first)", activityID)
	}
	if err != nil {
		return err
	}

	title := m.Name
	if title == "" {
		title = m.ActivityID
	}
	fmt.Fprintf(out, "%s (%s, %s)\n", title, m.ActivityType, m.StartTime)
	fmt.Fprintf(out, "  distance:      %s km\n", humanize.FtoaWithDigits(m.DistanceM/1000, 2))
	fmt.Fprintf(out, "  moving time:   %s\n", service.FormatDuration(m.MovingS))
	printPace(out, "flat pace", m.FlatPaceSec)
	printPace(out, "weather pace", m.FlatPaceWeatherSec)
	printValue(out, "avg HR (norm)", m.AvgHRNorm, "bpm")
	printValue(out, "cadence", m.CadenceAvg, "spm")
	printValue(out, "stride", m.StrideLen, "m")
	printValue(out, "HR drift", m.HRDrift, "bpm")
	printValue(out, "decoupling", m.Decoupling, "%")
	if m.Decoupling != nil {
		fmt.Fprintf(out, "                 %s\n", analysis.DecouplingAssessment(*m.Decoupling))
	}
	if z := m.Zones; z != nil {
		parts := make([]string, len(z.Seconds))
		for i, s := range z.Seconds {
			parts[i] = fmt.Sprintf("Z%d %s", i+1, service.FormatDuration(s))
		}
		fmt.Fprintf(out, "  zones:         %s\n", strings.Join(parts, "  "))
		fmt.Fprintf(out, "  zone score:    %.2f (%s)\n", z.Score, z.Label)
	}
	for _, w := range m.Warnings {
		fmt.Fprintf(out, "  warning: %s\n", w)
	}

	if updated, err := marker.Read(); err == nil {
		fmt.Fprintf(out, "Data updated %s\n", humanize.Time(updated))
	}
	return nil
}

func printPace(out io.Writer, label string, secPerKm *float64) {
	if secPerKm == nil {
		fmt.Fprintf(out, "  %-14s -\n", label+":")
		return
	}
	fmt.Fprintf(out, "  %-14s %s /km\n", label+":", service.FormatPace(*secPerKm))
}

func printValue(out io.Writer, label string, v *float64, unit string) {
	if v == nil {
		fmt.Fprintf(out, "  %-14s -\n", label+":")
		return
	}
	fmt.Fprintf(out, "  %-14s %s %s\n", label+":", humanize.FtoaWithDigits(*v, 2), unit)
}
