package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"hwbot/internal/app"
	"hwbot/internal/config"
	logx "hwbot/pkg/logx"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

// run returns the process exit code so deferred cleanup always happens.
func run(args []string) int {
	fs := flag.NewFlagSet("bot", flag.ContinueOnError)
	cfgPath := fs.String("config", "", "path to config json/yaml (optional)")
	envPath := fs.String("env", ".env", "path to dotenv file (optional)")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	boot := logx.NewConsole("DEBUG").With(logx.String("comp", "main"))

	if err := config.LoadDotEnv(*envPath); err != nil {
		boot.Critical("dotenv load failed", logx.String("path", *envPath), logx.Err(err))
		return 1
	}

	cfgm := config.NewConfigManager(*cfgPath)
	cfg, err := cfgm.Load()
	if err != nil {
		boot.Critical("config load failed", logx.String("path", *cfgPath), logx.Err(err))
		return 1
	}

	logs, _ := logx.New(app.MapLoggingConfig(cfg))
	log := logs.Logger().With(logx.String("comp", "main"))

	if err := cfg.CheckTokens(); err != nil {
		var missing *config.MissingEnvError
		if errors.As(err, &missing) {
			log.Critical(err.Error(), logx.String("name", missing.Name))
		} else {
			log.Critical("invalid credentials", logx.Err(err))
		}
		_ = logs.Close()
		return 1
	}

	a, err := app.New(cfgm, logs, app.Options{})
	if err != nil {
		log.Critical("startup failed", logx.Err(err))
		_ = logs.Close()
		return 1
	}
	defer a.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := a.Run(ctx); err != nil {
		log.Error("run failed", logx.Err(err))
		return 1
	}
	return 0
}
