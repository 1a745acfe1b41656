// Command seat-replay runs a recorded stream of detections through the seat
// occupancy pipeline and prints one snapshot per frame.
//
// Input is JSON Lines, one frame per line:
//
//	{"timestamp":"2026-03-02T09:00:00Z","detections":[{"class":"person","confidence":0.9,"bbox":{"x1":100,"y1":100,"x2":150,"y2":250}}]}
//
// The class may also be given as a COCO category id. A frame without a
// timestamp is stamped with the current time. The line {"reset":true}
// resets the pipeline and starts a new run.
package main

import (
	"bufio"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/banshee-data/occupancy.report/internal/config"
	"github.com/banshee-data/occupancy.report/internal/debug"
	"github.com/banshee-data/occupancy.report/internal/detect"
	"github.com/banshee-data/occupancy.report/internal/monitoring"
	"github.com/banshee-data/occupancy.report/internal/pipeline"
	"github.com/banshee-data/occupancy.report/internal/timeutil"
	"github.com/banshee-data/occupancy.report/internal/version"
)

// maxLineBytes bounds a single frame record.
const maxLineBytes = 4 * 1024 * 1024

type options struct {
	input       string
	configPath  string
	logLevel    string
	logFormat   string
	debug       bool
	realtime    bool
	summary     bool
	showVersion bool
}

// frameRecord is one line of replay input.
type frameRecord struct {
	Timestamp  *time.Time         `json:"timestamp,omitempty"`
	Detections []detect.Detection `json:"detections"`
	Reset      bool               `json:"reset,omitempty"`
}

// outputRecord is one line of replay output.
type outputRecord struct {
	pipeline.Snapshot
	Debug *debug.DebugFrame `json:"debug,omitempty"`
}

// summaryRecord closes the output when -summary is set.
type summaryRecord struct {
	Stats    pipeline.Stats  `json:"stats"`
	Episodes []episodeRecord `json:"episodes"`
}

type episodeRecord struct {
	SeatID          int       `json:"seat_id"`
	TrackID         int       `json:"track_id"`
	Start           time.Time `json:"start"`
	End             time.Time `json:"end"`
	DurationSeconds float64   `json:"duration_seconds"`
	Exceeded        bool      `json:"exceeded"`
}

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr, timeutil.RealClock{}); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(2)
		}
		fmt.Fprintf(os.Stderr, "seat-replay: %v\n", err)
		os.Exit(1)
	}
}

func parseFlags(args []string, stderr io.Writer) (options, error) {
	var opts options
	fs := flag.NewFlagSet("seat-replay", flag.ContinueOnError)
	fs.SetOutput(stderr)

	fs.StringVar(&opts.input, "input", "-", "JSON Lines file of frames, or - for stdin")
	fs.StringVar(&opts.configPath, "config", "", "Tuning config JSON file (defaults built in)")
	fs.StringVar(&opts.logLevel, "log-level", "info", "Log level: debug, info, warn, error")
	fs.StringVar(&opts.logFormat, "log-format", "json", "Log format: json or console")
	fs.BoolVar(&opts.debug, "debug", false, "Include tracker internals with each snapshot")
	fs.BoolVar(&opts.realtime, "realtime", false, "Pace frames by the gaps between their timestamps")
	fs.BoolVar(&opts.summary, "summary", false, "Print run statistics and episodes after the last frame")
	fs.BoolVar(&opts.showVersion, "version", false, "Print version and exit")

	if err := fs.Parse(args); err != nil {
		return opts, err
	}
	if fs.NArg() > 0 {
		return opts, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}
	return opts, nil
}

func loadConfig(path string) (*config.TuningConfig, error) {
	if path == "" {
		return config.DefaultTuningConfig(), nil
	}
	return config.LoadTuningConfig(path)
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer, clock timeutil.Clock) error {
	opts, err := parseFlags(args, stderr)
	if err != nil {
		return err
	}
	if opts.showVersion {
		fmt.Fprintln(stdout, version.String("seat-replay"))
		return nil
	}

	logger, err := monitoring.NewLogger(opts.logLevel, opts.logFormat)
	if err != nil {
		return err
	}
	monitoring.Use(logger)
	defer func() {
		_ = logger.Sync()
		monitoring.Use(nil)
	}()

	tuning, err := loadConfig(opts.configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	proc, err := pipeline.New(pipeline.ConfigFromTuning(tuning),
		pipeline.WithClock(clock),
		pipeline.WithDebug(opts.debug))
	if err != nil {
		return fmt.Errorf("create pipeline: %w", err)
	}

	in := stdin
	if opts.input != "-" {
		f, err := os.Open(opts.input)
		if err != nil {
			return fmt.Errorf("open input: %w", err)
		}
		defer f.Close()
		in = f
	}

	monitoring.Logf("replay started: run %s, input %s", proc.RunID(), opts.input)
	if err := replay(proc, in, stdout, clock, opts); err != nil {
		return err
	}

	stats := proc.Stats()
	monitoring.Logf("replay finished: %d frames, %d detections (%d rejected), %d seats, %d exceeded alerts",
		stats.Frames, stats.TotalDetections, stats.RejectedDetections, stats.UniqueSeats, stats.ExceededAlerts)

	if opts.summary {
		return writeSummary(stdout, stats, proc)
	}
	return nil
}

func replay(proc *pipeline.Processor, in io.Reader, out io.Writer, clock timeutil.Clock, opts options) error {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	enc := json.NewEncoder(out)

	var lastTS time.Time
	line := 0
	for scanner.Scan() {
		line++
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}

		var rec frameRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			return fmt.Errorf("line %d: %w", line, err)
		}
		if rec.Reset {
			proc.Reset()
			lastTS = time.Time{}
			continue
		}

		var snap pipeline.Snapshot
		if rec.Timestamp == nil {
			snap = proc.ProcessFrameNow(rec.Detections)
		} else {
			if opts.realtime && !lastTS.IsZero() {
				if gap := rec.Timestamp.Sub(lastTS); gap > 0 {
					clock.Sleep(gap)
				}
			}
			lastTS = *rec.Timestamp
			snap = proc.ProcessFrame(rec.Detections, *rec.Timestamp)
		}

		record := outputRecord{Snapshot: snap}
		if opts.debug {
			record.Debug = proc.LastDebugFrame()
		}
		if err := enc.Encode(record); err != nil {
			return fmt.Errorf("write snapshot: %w", err)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read input: %w", err)
	}
	return nil
}

func writeSummary(out io.Writer, stats pipeline.Stats, proc *pipeline.Processor) error {
	summary := summaryRecord{Stats: stats, Episodes: []episodeRecord{}}
	for _, ep := range proc.Episodes() {
		summary.Episodes = append(summary.Episodes, episodeRecord{
			SeatID:          ep.SeatID,
			TrackID:         ep.TrackID,
			Start:           ep.Start,
			End:             ep.End,
			DurationSeconds: ep.Duration.Seconds(),
			Exceeded:        ep.Exceeded,
		})
	}
	if err := json.NewEncoder(out).Encode(summary); err != nil {
		return fmt.Errorf("write summary: %w", err)
	}
	return nil
}
