package main

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

func newProvidersCmd() *cobra.Command {
	var cfgPath string
	cmd := &cobra.Command{
		Use:   "providers",
		Short: "List supported hosting providers",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := openService(cmd.Context(), cfgPath)
			if err != nil {
				return err
			}
			defer func() { _ = svc.Close(context.Background()) }()
			resp, err := svc.ListProviders(cmd.Context())
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tURL\tBUILD TIMEOUT\tDOMAINS")
			for _, p := range resp.Providers {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%t\n", p.ID, p.Name, p.URLPattern, time.Duration(p.BuildTimeoutSeconds)*time.Second, p.SupportsDomains)
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringVarP(&cfgPath, "config", "c", "", "path to config file")
	return cmd
}
