package main

import (
	"context"
	"errors"
	"os"

	"github.com/desertthunder/dvx/internal/services"
	"github.com/desertthunder/dvx/internal/shared"
	"github.com/urfave/cli/v3"
)

func main() {
	logger := shared.NewLogger(nil)

	var deviantartService services.Service

	configPath := "config.toml"
	config := shared.DefaultConfig()
	if _, err := os.Stat(configPath); err == nil {
		if loadedConfig, err := shared.LoadConfig(configPath); err == nil {
			config = loadedConfig
		}
	}

	if config.Credentials.DeviantArt.ClientID != "" && config.Credentials.DeviantArt.ClientSecret != "" {
		creds := config.Credentials.DeviantArt.Map()
		if svc, err := services.NewDeviantArtService(creds); err == nil {
			if creds["access_token"] != "" || creds["refresh_token"] != "" {
				if err := svc.Authenticate(context.Background(), creds); err != nil {
					logger.Debug("stored tokens rejected", "error", err)
				}
			}
			deviantartService = svc
		}
	}

	apiService := services.NewAPIService("", nil)

	runner := NewRunner(RunnerOpts{
		Config:     config,
		ConfigPath: configPath,
		DeviantArt: deviantartService,
		API:        apiService,
		Logger:     logger,
	})

	app := &cli.Command{
		Name:     "dvx",
		Usage:    "Keep a DeviantArt gallery folder pinned to your most favourited work",
		Version:  "0.3.0",
		Commands: runner.register(),
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		err_ := errors.Unwrap(err)
		if errors.Is(err_, shared.ErrNotImplemented) {
			logger.Warn("not implemented")
			os.Exit(0)
		} else {
			logger.Fatalf("application error: %v", err)
		}
	}
}

func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Initialize database and run migrations",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Value:   "config.toml",
			},
		},
		Action: r.SetupDatabase,
	}
}
