package main

import (
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"pathserver/config"
	"pathserver/logging"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		log.Errorf("pathserver failed, err: %v", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		configPath string
		port       int
		graphPath  string
	)

	cmd := &cobra.Command{
		Use:   "pathserver [graph-file] [port]",
		Short: "Serve shortest-path queries over an in-memory graph",
		Long: "pathserver loads an undirected edge list once at startup and answers\n" +
			"\"<source> <dest>\" queries, one per connection, with the node ids of a\n" +
			"shortest path or \"path not found\".",
		Args:          cobra.MaximumNArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}

			// positional arguments keep the "pathserver <file> <port>" form working
			if len(args) > 0 {
				cfg.Graph.Source = config.GraphSourceFile
				cfg.Graph.Path = args[0]
			}
			if len(args) > 1 {
				p, err := strconv.Atoi(args[1])
				if err != nil {
					return err
				}
				cfg.Server.Port = p
			}
			if cmd.Flags().Changed("graph") {
				cfg.Graph.Source = config.GraphSourceFile
				cfg.Graph.Path = graphPath
			}
			if cmd.Flags().Changed("port") {
				cfg.Server.Port = port
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			logging.Setup(cfg.Log, "pathserver")

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return run(ctx, cfg)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "pathserver.toml", "path to the TOML configuration file")
	cmd.Flags().IntVarP(&port, "port", "p", 0, "port to listen on (overrides server.port)")
	cmd.Flags().StringVarP(&graphPath, "graph", "g", "", "edge-list file to load (overrides graph.path)")
	return cmd
}
