package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	appconfig "github.com/mohammad-safakhou/decoy/config"
	"github.com/mohammad-safakhou/decoy/internal/intel"
	srv "github.com/mohammad-safakhou/decoy/internal/server"
)

func main() {
	var root = &cobra.Command{Use: "decoy"}

	var cfgPath string
	var serve = &cobra.Command{
		Use:   "serve",
		Short: "Run the honeypot HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := appconfig.LoadConfig(cfgPath)
			return srv.Run(cfg)
		},
	}
	serve.Flags().StringVarP(&cfgPath, "config", "c", "", "config file (default is ./config/config.yaml)")

	var extract = &cobra.Command{
		Use:   "extract [text]",
		Short: "Run the entity extractor on a message and print the matches",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			batch := intel.Extract(args[0])
			out, err := json.MarshalIndent(batch, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return nil
		},
	}

	root.AddCommand(serve, extract)
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
