package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lmittmann/tint"
	log "log/slog"

	cli "github.com/spf13/pflag"

	"fillvox/internal/bus"
	"fillvox/internal/config"
	"fillvox/internal/interview"
	"fillvox/internal/ipc"
	"fillvox/internal/render"
	"fillvox/internal/workflow"
)

const (
	exitOK         = 0
	exitFailure    = 1
	exitExtraction = 2
	exitDevice     = 3
	exitCancelled  = 130
)

var logLevelMap = map[string]log.Level{
	"debug": log.LevelDebug,
	"info":  log.LevelInfo,
	"warn":  log.LevelWarn,
	"error": log.LevelError,
}

func main() {
	cfg, err := config.Load(os.Args[1:])
	if errors.Is(err, cli.ErrHelp) {
		os.Exit(exitOK)
	}

	level := log.LevelInfo
	if cfg != nil {
		level = logLevelMap[cfg.LogLevel]
	}
	log.SetDefault(log.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      level,
		TimeFormat: time.Kitchen,
	})))

	if err != nil {
		log.Error("Bad configuration", "err", err)
		os.Exit(exitFailure)
	}

	os.Exit(run(cfg))
}

func run(cfg *config.Config) int {
	log.Info("Booting up")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c, err := wire(cfg)
	if err != nil {
		log.Error("Failed to boot", "err", err)
		return exitFailure
	}
	defer c.close()

	var publisher *bus.Publisher
	var conn *bus.Conn
	if cfg.BusURL != "" {
		conn, err = bus.Dial(ctx, cfg.BusURL, cfg.BusShard, time.Second)
		if err != nil {
			log.Warn("Bus unavailable, continuing without it", "url", cfg.BusURL, "err", err)
		} else {
			defer conn.Close()
			publisher = bus.NewPublisher(conn, 64)
			defer publisher.Close()
			c.observers = append(c.observers, publisher)
		}
	}

	engine, err := c.engine(cfg)
	if err != nil {
		log.Error("Failed to build interview", "err", err)
		return exitFailure
	}

	if conn != nil {
		go func() {
			if err := conn.Run(ctx, bus.Commands(conn, engine)); err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, net.ErrClosed) {
				log.Warn("Bus stopped", "err", err)
			}
		}()
	}

	srv, err := ipc.Listen(cfg.Socket, ipc.Control(engine))
	if err != nil {
		log.Warn("Control socket unavailable", "path", cfg.Socket, "err", err)
	} else {
		defer srv.Close()
	}

	annotator := render.NewAnnotator()
	annotator.OutDir = cfg.ImageOutDir

	wf := &workflow.Workflow{
		Extractor:   c.extractor,
		Interviewer: engine,
		Renderer:    annotator,
		Output:      cfg.Output,
		Coordinates: cfg.Coordinates,
	}

	log.Info("Boot up - successful")

	rep, err := wf.Run(ctx, workflow.Input{Document: cfg.Document, Schema: cfg.Schema})
	switch {
	case errors.Is(err, interview.ErrExtractionFailure):
		log.Error("Could not read the form", "err", err)
		return exitExtraction
	case errors.Is(err, interview.ErrDeviceUnavailable):
		log.Error("Audio device unavailable", "err", err)
		return exitDevice
	case err != nil:
		log.Error("Session failed", "err", err)
		return exitFailure
	}

	fmt.Fprintln(os.Stdout, "Saved:", rep.SchemaPath)
	if rep.ImagePath != "" {
		fmt.Fprintln(os.Stdout, "Annotated:", rep.ImagePath)
	}

	if rep.Outcome == interview.Cancelled {
		return exitCancelled
	}
	return exitOK
}
