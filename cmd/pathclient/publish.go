package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"pathserver/etcd"
	"pathserver/graph"

	"github.com/spf13/cobra"
)

func newPublishGraphCmd() *cobra.Command {
	var (
		endpoints   []string
		key         string
		dialTimeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "publish-graph <edge-list-file>",
		Short: "Store an edge list in etcd for servers using graph.source = \"etcd\"",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read edge list: %w", err)
			}
			g := graph.ParseEdgeListBytes(data)

			store, err := etcd.NewGraphStore(etcd.EtcdConfig{
				Endpoints:   endpoints,
				DialTimeout: dialTimeout,
			}, key)
			if err != nil {
				return err
			}
			defer store.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), dialTimeout)
			defer cancel()
			revision, err := store.Publish(ctx, data)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "published %s to %s: %d nodes, %d edges, revision %d\n",
				args[0], key, g.NodeCount(), g.EdgeCount(), revision)
			return nil
		},
	}

	def := etcd.DefaultEtcdConfig()
	cmd.Flags().StringSliceVar(&endpoints, "endpoints", def.Endpoints, "etcd endpoints")
	cmd.Flags().StringVar(&key, "key", etcd.DefaultGraphKey, "etcd key holding the edge list")
	cmd.Flags().DurationVar(&dialTimeout, "dial-timeout", def.DialTimeout, "etcd dial and request timeout")
	return cmd
}
