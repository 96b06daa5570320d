package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func main() {
	cmd := newRootCmd()
	cmd.SetArgs(separateNodeArgs(cmd, os.Args[1:]))
	if err := cmd.Execute(); err != nil {
		log.Errorf("pathclient failed, err: %v", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := queryOptions{}

	cmd := &cobra.Command{
		Use:           "pathclient <server-ip> <port> <from> <to>",
		Short:         "Ask a pathserver for the shortest path between two nodes",
		Long: "Ask a pathserver for the shortest path between two nodes.\n\n" +
			"Negative node ids such as -1 are taken as node ids, not flags.",
		Args:          cobra.ExactArgs(4),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			answer, err := runQuery(cmd.Context(), args, opts)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Answer: %s\n", answer)
			return nil
		},
	}
	cmd.Flags().BoolVar(&opts.smux, "smux", false, "query over a smux session (server.transport = \"smux\")")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", defaultTimeout, "overall timeout for the query")

	cmd.AddCommand(newPublishGraphCmd())
	return cmd
}

// separateNodeArgs moves flags in front of a "--" terminator so positional
// values like "-1" are not parsed as shorthand flags. Subcommand invocations
// are returned unchanged.
func separateNodeArgs(cmd *cobra.Command, args []string) []string {
	if len(args) > 0 {
		for _, sub := range cmd.Commands() {
			if sub.Name() == args[0] {
				return args
			}
		}
	}

	var flags, positional []string
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if arg == "--" {
			positional = append(positional, args[i+1:]...)
			break
		}
		if !strings.HasPrefix(arg, "-") || isInteger(arg) {
			positional = append(positional, arg)
			continue
		}
		flags = append(flags, arg)
		if takesValue(cmd, arg) && i+1 < len(args) {
			i++
			flags = append(flags, args[i])
		}
	}
	out := append(flags, "--")
	return append(out, positional...)
}

func isInteger(s string) bool {
	_, err := strconv.Atoi(s)
	return err == nil
}

func takesValue(cmd *cobra.Command, arg string) bool {
	if strings.Contains(arg, "=") {
		return false
	}
	name := strings.TrimLeft(arg, "-")
	f := cmd.Flags().Lookup(name)
	if f == nil && !strings.HasPrefix(arg, "--") && len(name) == 1 {
		f = cmd.Flags().ShorthandLookup(name)
	}
	return f != nil && f.NoOptDefVal == ""
}
