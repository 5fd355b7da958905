package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"pkt.systems/codeyard"
	"pkt.systems/codeyard/core"
	"pkt.systems/codeyard/httpapi"
	"pkt.systems/codeyard/internal/appconfig"
	"pkt.systems/codeyard/internal/maintenance"
	"pkt.systems/pslog"
)

const stopTimeout = 10 * time.Second

func newServeCmd() *cobra.Command {
	var cfgPath string
	var noMaintenance bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API and maintenance scheduler",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := pslog.Ctx(cmd.Context())
			cfg, err := appconfig.Load(cfgPath)
			if err != nil {
				return err
			}
			opts := []codeyard.ServerOption{codeyard.WithHTTP()}
			if !noMaintenance {
				opts = append(opts, codeyard.WithMaintenance())
			}
			server, err := codeyard.New(serverConfig(cfg), codeyard.ServerDeps{
				ServiceDeps: core.ServiceDeps{Logger: logger},
			}, opts...)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			go func() {
				<-ctx.Done()
				stopCtx, cancel := context.WithTimeout(context.Background(), stopTimeout)
				defer cancel()
				if err := server.Stop(stopCtx); err != nil {
					logger.Warn("server stop failed", "err", err)
				}
			}()
			if err := server.Start(ctx); err != nil {
				return err
			}
			return server.Wait()
		},
	}
	cmd.Flags().StringVarP(&cfgPath, "config", "c", "", "path to config file")
	cmd.Flags().BoolVar(&noMaintenance, "no-maintenance", false, "disable scheduled reaping and pruning")
	return cmd
}

func serverConfig(cfg appconfig.Config) codeyard.ServerConfig {
	return codeyard.ServerConfig{
		Service:     cfg.CoreConfig(),
		HTTP:        toHTTPConfig(cfg.HTTP),
		Maintenance: toMaintenanceConfig(cfg.Maintenance),
	}
}

func toHTTPConfig(cfg appconfig.HTTPConfig) httpapi.Config {
	return httpapi.Config{
		Addr:               cfg.Addr,
		RateLimitPerSecond: cfg.RateLimitPerSecond,
		RateLimitBurst:     cfg.RateLimitBurst,
		TrustedProxy:       cfg.TrustedProxy,
		HubHistory:         cfg.HubHistory,
	}
}

func toMaintenanceConfig(cfg appconfig.MaintenanceConfig) maintenance.Config {
	return maintenance.Config{
		Schedule:            cfg.ReapSchedule,
		SessionIdle:         cfg.SessionIdleThreshold(),
		DeploymentRetention: cfg.DeploymentRetention(),
	}
}
