package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"pkt.systems/codeyard/core"
	"pkt.systems/codeyard/internal/appconfig"
	"pkt.systems/codeyard/schema"
	"pkt.systems/pslog"
)

func newScriptCmd() *cobra.Command {
	var cfgPath string
	var provider string
	var deploy schema.DeployConfig
	var envPairs []string
	cmd := &cobra.Command{
		Use:   "script",
		Short: "Print a manual deployment script for a provider",
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := parseEnvPairs(envPairs)
			if err != nil {
				return err
			}
			deploy.EnvironmentVariables = env
			svc, err := openService(cmd.Context(), cfgPath)
			if err != nil {
				return err
			}
			defer func() { _ = svc.Close(context.Background()) }()
			resp, err := svc.GenerateDeploymentScript(cmd.Context(), schema.GenerateScriptRequest{
				Provider: schema.ProviderID(provider),
				Config:   deploy,
			})
			if err != nil {
				return err
			}
			_, err = fmt.Fprint(cmd.OutOrStdout(), resp.Script)
			return err
		},
	}
	cmd.Flags().StringVarP(&cfgPath, "config", "c", "", "path to config file")
	cmd.Flags().StringVar(&provider, "provider", "", "hosting provider id")
	cmd.Flags().StringVar(&deploy.ProjectName, "project", "", "project name")
	cmd.Flags().StringVar(&deploy.BuildCommand, "build-command", "", "build command")
	cmd.Flags().StringVar(&deploy.OutputDirectory, "output-dir", "", "build output directory")
	cmd.Flags().StringArrayVar(&envPairs, "env", nil, "environment variable as KEY=VALUE (repeatable)")
	_ = cmd.MarkFlagRequired("provider")
	return cmd
}

func parseEnvPairs(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	env := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid --env %q, expected KEY=VALUE", pair)
		}
		env[key] = value
	}
	return env, nil
}

// openService builds a core service from config for one-shot commands.
func openService(ctx context.Context, cfgPath string) (core.Service, error) {
	cfg, err := appconfig.Load(cfgPath)
	if err != nil {
		return nil, err
	}
	return core.NewService(cfg.CoreConfig(), core.ServiceDeps{Logger: pslog.Ctx(ctx)})
}
