// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

// Command receipt-keeper is the offline-first receipt keeper client. Without
// a subcommand it opens the terminal UI.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/MKhiriev/go-receipt-keeper/internal/client"
	"github.com/MKhiriev/go-receipt-keeper/internal/config"
	"github.com/MKhiriev/go-receipt-keeper/internal/logger"
	"github.com/MKhiriev/go-receipt-keeper/internal/tui"
	"github.com/MKhiriev/go-receipt-keeper/models"
	"github.com/spf13/cobra"
)

var (
	buildVersion string
	buildDate    string
	buildCommit  string
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// session opens a client app for the duration of fn.
type session func(cmd *cobra.Command, fn func(ctx context.Context, app *client.App) error) error

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "receipt-keeper",
		Short:        "Keep clients and receipts offline and sync them when online",
		SilenceUsage: true,
	}
	flags := config.RegisterFlags(root.PersistentFlags())

	withApp := func(background bool) session {
		return func(cmd *cobra.Command, fn func(ctx context.Context, app *client.App) error) error {
			return runWithApp(cmd, flags, background, fn)
		}
	}

	ui := &cobra.Command{
		Use:   "tui",
		Short: "Open the terminal UI",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(true)(cmd, func(ctx context.Context, app *client.App) error {
				return tui.New(app, logger.FromContext(ctx)).Run(ctx)
			})
		},
	}

	root.AddCommand(
		ui,
		newSyncCmd(withApp(false)),
		newStatusCmd(withApp(false)),
		newRepairCmd(withApp(false)),
		newLimitsCmd(withApp(false)),
		newClientCmd(withApp(false)),
		newReceiptCmd(withApp(false)),
		newCatalogCmd(withApp(false)),
		newVersionCmd(),
	)
	root.RunE = ui.RunE
	return root
}

func loadConfig(flags *config.Flags) (*config.ClientConfig, error) {
	cfg, err := config.GetClientConfig(flags)
	if err != nil {
		return nil, err
	}
	if cfg.App.Version == "" {
		cfg.App.Version = orNA(buildVersion)
	}
	return cfg, nil
}

func runWithApp(cmd *cobra.Command, flags *config.Flags, background bool, fn func(ctx context.Context, app *client.App) error) error {
	cfg, err := loadConfig(flags)
	if err != nil {
		return fmt.Errorf("error getting configs: %w", err)
	}

	log := logger.NewClientLogger("receipt-keeper", cfg.LogPath)
	ctx := log.WithContext(cmd.Context())

	app, err := client.NewApp(ctx, cfg, buildInfo(), log)
	if err != nil {
		log.Err(err).Msg("init client app error")
		return err
	}
	defer func() {
		if cerr := app.Close(); cerr != nil {
			log.Err(cerr).Msg("close client app")
		}
	}()

	app.Open(ctx)
	if background {
		app.StartBackground(ctx)
	}
	return fn(ctx, app)
}

func buildInfo() models.AppBuildInfo {
	return models.NewAppBuildInfo(orNA(buildVersion), orNA(buildDate), orNA(buildCommit))
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		RunE: func(cmd *cobra.Command, _ []string) error {
			info := buildInfo()
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "Build version: %s\nBuild date: %s\nBuild commit: %s\n",
				info.BuildVersion(), info.BuildDate(), info.BuildCommit())
			return err
		},
	}
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}
