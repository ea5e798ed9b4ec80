// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

// Command receipt-server is the reference record store the receipt keeper
// client synchronises with.
package main

import (
	"fmt"
	"os"

	"github.com/MKhiriev/go-receipt-keeper/internal/config"
	"github.com/MKhiriev/go-receipt-keeper/internal/handler"
	"github.com/MKhiriev/go-receipt-keeper/internal/handler/http"
	"github.com/MKhiriev/go-receipt-keeper/internal/logger"
	"github.com/MKhiriev/go-receipt-keeper/internal/metrics"
	"github.com/MKhiriev/go-receipt-keeper/internal/server"
	"github.com/MKhiriev/go-receipt-keeper/internal/service"
	"github.com/MKhiriev/go-receipt-keeper/internal/store"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
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

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "receipt-server",
		Short:         "Reference record store for the receipt keeper",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	flags := config.RegisterFlags(root.PersistentFlags())

	serve := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP and gRPC servers",
		RunE: func(cmd *cobra.Command, _ []string) error {
			printBuildInfo()
			return runServer(cmd, flags)
		},
	}

	var owner string
	issueToken := &cobra.Command{
		Use:   "issue-token",
		Short: "Print a bearer token for an owner",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return issueOwnerToken(cmd, flags, owner)
		},
	}
	issueToken.Flags().StringVar(&owner, "owner", "", "owner id the token is issued for")
	_ = issueToken.MarkFlagRequired("owner")

	root.AddCommand(serve, issueToken)
	root.RunE = serve.RunE
	return root
}

func loadConfig(flags *config.Flags) (*config.ServerConfig, error) {
	cfg, err := config.GetServerConfig(flags)
	if err != nil {
		return nil, err
	}
	if cfg.App.Version == "" {
		cfg.App.Version = orNA(buildVersion)
	}
	return cfg, nil
}

func runServer(cmd *cobra.Command, flags *config.Flags) error {
	log := logger.NewLogger("receipt-server")

	cfg, err := loadConfig(flags)
	if err != nil {
		log.Err(err).Msg("error getting configs")
		return err
	}

	storages, err := store.NewStorages(cmd.Context(), cfg.Storage, log)
	if err != nil {
		log.Err(err).Msg("error creating storages")
		return err
	}
	defer storages.Close()

	services, err := service.NewServices(storages, cfg.App, log)
	if err != nil {
		log.Err(err).Msg("error creating services")
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	httpMetrics, err := metrics.NewHTTPMetrics(reg)
	if err != nil {
		log.Err(err).Msg("error registering metrics")
		return err
	}

	handlers, err := handler.NewHandlers(services, cfg.Server, log,
		http.WithHashKey(cfg.App.HashKey),
		http.WithMetrics(httpMetrics, reg),
	)
	if err != nil {
		log.Err(err).Msg("error creating handlers")
		return err
	}

	srv, err := server.NewServer(handlers, cfg.Server, log)
	if err != nil {
		log.Err(err).Msg("error creating server")
		return err
	}

	srv.RunServer()
	return nil
}

func issueOwnerToken(cmd *cobra.Command, flags *config.Flags, owner string) error {
	cfg, err := loadConfig(flags)
	if err != nil {
		return err
	}

	token, err := service.NewAuthService(cfg.App, logger.Nop()).CreateToken(cmd.Context(), owner)
	if err != nil {
		return err
	}

	_, err = fmt.Fprintln(cmd.OutOrStdout(), token.String())
	return err
}

func printBuildInfo() {
	fmt.Printf("Build version: %s\n", orNA(buildVersion))
	fmt.Printf("Build date: %s\n", orNA(buildDate))
	fmt.Printf("Build commit: %s\n", orNA(buildCommit))
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}
