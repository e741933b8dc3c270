package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/soundrights/soundrights/internal/config"
	"github.com/soundrights/soundrights/internal/service"
	"github.com/soundrights/soundrights/pkg/logger"
	"github.com/spf13/pflag"
)

func main() {
	flags := pflag.NewFlagSet("soundrights-server", pflag.ExitOnError)
	configFile := flags.String("config", "", "config file (default ./soundrights.yaml or $HOME/.config/soundrights/soundrights.yaml)")
	flags.Int("port", 8080, "HTTP server port")
	flags.String("db", "", "Path to SQLite database")
	flags.String("temp", "", "Temporary directory")
	flags.StringSlice("origins", nil, "Allowed CORS origins (use * for all)")
	flags.String("log-level", "", "log level (debug, info, warn, error)")
	_ = flags.Parse(os.Args[1:])

	v := config.New(*configFile)
	for key, flag := range map[string]string{
		"server.port":            "port",
		"storage.sqlite_path":    "db",
		"temp_dir":               "temp",
		"server.allowed_origins": "origins",
		"log_level":              "log-level",
	} {
		if f := flags.Lookup(flag); f != nil && f.Changed {
			_ = v.BindPFlag(key, f)
		}
	}

	cfg, err := config.Load(v)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	log := logger.GetLogger()
	log.SetLevel(cfg.Level())
	if cfg.Level() > logger.DEBUG {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	svc, err := service.New(ctx, cfg, log)
	if err != nil {
		log.Fatalf("Failed to create service: %v", err)
	}
	defer svc.Close()

	server := NewServer(svc, cfg.Server, log.WithPrefix("http"))
	if err := server.Start(ctx); err != nil {
		log.Errorf("Server failed: %v", err)
		svc.Close()
		os.Exit(1)
	}
}
