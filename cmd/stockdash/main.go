package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"stockdash/internal/config"
	"stockdash/internal/logger"
)

func main() {
	flags := flag.NewFlagSet("stockdash", flag.ExitOnError)
	cfgPath := flags.String("config", os.Getenv(config.EnvConfigPath), "config file (default $"+config.EnvConfigPath+")")
	flags.Usage = func() { usage(flags) }
	_ = flags.Parse(os.Args[1:])
	if flags.NArg() == 0 {
		usage(flags)
		os.Exit(2)
	}

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	logger.SetFormat(cfg.App.LogFormat)
	logFile, err := setupLogOutput(cfg.App.LogPath)
	if err != nil {
		log.Fatalf("open log file: %v", err)
	}
	if logFile != nil {
		defer logFile.Close()
	}
	logger.SetHTTPWriter(nil)
	if cfg.App.HTTPDump {
		f, err := setupHTTPLogOutput(cfg.App.HTTPLogPath)
		if err != nil {
			log.Fatalf("open http dump log: %v", err)
		}
		if f != nil {
			defer f.Close()
		}
	}
	logger.SetLevel(cfg.App.LogLevel)
	logger.EnableHTTPPayloadDump(cfg.App.HTTPDump)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if flags.Arg(0) == "serve" && strings.TrimSpace(*cfgPath) != "" {
		if err := config.Watch(*cfgPath, func(next *config.Config) {
			logger.SetLevel(next.App.LogLevel)
			logger.Infof("log level now %s", logger.Level())
		}); err != nil {
			logger.Warnf("config watch disabled: %v", err)
		}
	}

	if err := run(ctx, cfg, flags.Args(), os.Stdout); err != nil {
		if logFile != nil {
			logFile.Close()
		}
		log.Fatalf("%s: %v", flags.Arg(0), err)
	}
}

func usage(flags *flag.FlagSet) {
	out := flags.Output()
	fmt.Fprintf(out, "usage: stockdash [-config FILE] <command> [flags]\n\ncommands:\n")
	for _, cmd := range commands {
		fmt.Fprintf(out, "  %-16s %s\n", cmd.name, cmd.summary)
	}
	fmt.Fprintln(out)
	flags.PrintDefaults()
}

func setupLogOutput(path string) (*os.File, error) {
	trimmed := strings.TrimSpace(path)
	// stdout carries command output, so logs go to stderr
	if trimmed == "" {
		logger.SetOutput(os.Stderr)
		return nil, nil
	}
	dir := filepath.Dir(trimmed)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	file, err := os.OpenFile(trimmed, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	mw := io.MultiWriter(os.Stderr, file)
	log.SetOutput(mw)
	logger.SetOutput(mw)
	return file, nil
}

func setupHTTPLogOutput(path string) (*os.File, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return nil, nil
	}
	if err := os.MkdirAll(filepath.Dir(trimmed), 0o755); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(trimmed, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	logger.SetHTTPWriter(f)
	return f, nil
}
