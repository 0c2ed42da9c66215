package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"amari/internal/server"
)

// readParams takes parameters from the argument, from a file with
// --file, or from stdin when either is "-".
func (a *app) readParams(args []string, file string) (json.RawMessage, error) {
	switch {
	case file == "-" || (len(args) > 0 && args[0] == "-"):
		data, err := io.ReadAll(a.in)
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		return data, nil
	case file != "":
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, err
		}
		return data, nil
	case len(args) > 0:
		return json.RawMessage(args[0]), nil
	default:
		return nil, nil
	}
}

func (a *app) serveCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve operations over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Flags().Changed("addr") {
				a.cfg.Server.Addr = addr
			}
			client, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			d, err := client.Dispatcher(cmd.Context())
			if err != nil {
				return err
			}
			srv := server.New(server.Options{
				Dispatcher:   d,
				Logger:       a.logger,
				RateLimit:    a.cfg.Server.RateLimit,
				Burst:        a.cfg.Server.Burst,
				MaxBodyBytes: a.cfg.Server.MaxBodyBytes,
				Version:      version,
			})
			a.logger.Info("starting amari server",
				"version", version,
				"store", a.cfg.Store.Kind,
				"workers", a.cfg.Batch.Workers,
			)
			return srv.ListenAndServe(cmd.Context(), a.cfg.Server.Addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides server.addr)")
	return cmd
}

func (a *app) callCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "call <operation> [params-json|-]",
		Short: "Run one operation and print its JSON result",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			params, err := a.readParams(args[1:], file)
			if err != nil {
				return err
			}
			client, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			res, err := client.Call(cmd.Context(), args[0], params)
			if err != nil {
				return err
			}
			return a.printJSON(res)
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "read params from file ('-' for stdin)")
	return cmd
}

func (a *app) batchCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "batch <operation> [items-json|-]",
		Short: "Run an operation over a JSON array of parameter sets",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := a.readParams(args[1:], file)
			if err != nil {
				return err
			}
			var items []json.RawMessage
			if err := json.Unmarshal(raw, &items); err != nil {
				return fmt.Errorf("batch items must be a JSON array: %w", err)
			}
			client, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			res, err := client.Batch(cmd.Context(), args[0], items, a.cfg.Batch.Workers)
			if err != nil {
				return err
			}
			return a.printJSON(res)
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "read items from file ('-' for stdin)")
	return cmd
}

func (a *app) operationsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "operations",
		Short: "List operation names",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			for _, name := range client.Operations() {
				fmt.Fprintln(a.out, name)
			}
			return nil
		},
	}
}

func (a *app) saveCmd() *cobra.Command {
	var (
		typ      string
		file     string
		metadata []string
	)
	cmd := &cobra.Command{
		Use:   "save <name> [result-json|-]",
		Short: "Store a result under a name",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := a.readParams(args[1:], file)
			if err != nil {
				return err
			}
			if len(bytes.TrimSpace(raw)) == 0 {
				return fmt.Errorf("save needs a result")
			}
			meta := make(map[string]string, len(metadata))
			for _, kv := range metadata {
				k, v, ok := strings.Cut(kv, "=")
				if !ok {
					return fmt.Errorf("metadata %q is not key=value", kv)
				}
				meta[k] = v
			}
			client, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			res, err := client.SaveComputation(cmd.Context(), args[0], typ, json.RawMessage(raw), meta)
			if err != nil {
				return err
			}
			return a.printJSON(res)
		},
	}
	cmd.Flags().StringVarP(&typ, "type", "t", "manual", "computation type, usually the operation name")
	cmd.Flags().StringVarP(&file, "file", "f", "", "read the result from file ('-' for stdin)")
	cmd.Flags().StringArrayVarP(&metadata, "meta", "m", nil, "metadata key=value (repeatable)")
	return cmd
}

func (a *app) loadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "load <name>",
		Short: "Print a stored computation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			c, err := client.LoadComputation(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return a.printJSON(c)
		},
	}
}

func (a *app) listCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored computations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			items, err := client.ListComputations(cmd.Context())
			if err != nil {
				return err
			}
			if asJSON {
				return a.printJSON(items)
			}
			tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tTYPE\tSIZE\tSAVED")
			now := time.Now()
			for _, it := range items {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n",
					it.Name, it.Type,
					humanize.Bytes(uint64(it.Size)),
					humanize.RelTime(it.CreatedAt, now, "ago", "from now"),
				)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON instead of a table")
	return cmd
}

func (a *app) deleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <name>",
		Short: "Delete a stored computation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			if err := client.DeleteComputation(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "deleted %s\n", args[0])
			return nil
		},
	}
}

func parseSignature(s string) ([]int, error) {
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	out := make([]int, len(parts))
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, fmt.Errorf("signature %q: %w", s, err)
		}
		out[i] = n
	}
	return out, nil
}

func (a *app) cayleyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cayley",
		Short: "Inspect the Cayley table cache",
	}

	var force bool
	get := &cobra.Command{
		Use:   "get <p,q,r>",
		Short: "Print the multiplication table for a signature",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sig, err := parseSignature(args[0])
			if err != nil {
				return err
			}
			client, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			res, err := client.CayleyTable(cmd.Context(), sig, force)
			if err != nil {
				return err
			}
			return a.printJSON(res)
		},
	}
	get.Flags().BoolVar(&force, "force", false, "recompute even when cached")

	list := &cobra.Command{
		Use:   "list",
		Short: "List cached tables",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			tables, err := client.ListCayleyTables(cmd.Context())
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tBLADES\tSIZE\tCOMPUTE")
			for _, t := range tables {
				fmt.Fprintf(tw, "%s\t%d\t%s\t%dms\n", t.ID, t.BasisCount, humanize.Bytes(uint64(t.Size)), t.ComputeMillis)
			}
			return tw.Flush()
		},
	}

	clearCmd := &cobra.Command{
		Use:   "clear [p,q,r]",
		Short: "Drop one cached table, or all of them",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var sig []int
			if len(args) == 1 {
				s, err := parseSignature(args[0])
				if err != nil {
					return err
				}
				sig = s
			}
			client, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			n, err := client.ClearCayleyCache(cmd.Context(), sig)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "removed %s\n", humanize.Comma(int64(n)))
			return nil
		},
	}

	cmd.AddCommand(get, list, clearCmd)
	return cmd
}

func (a *app) configCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			data, err := a.cfg.Marshal()
			if err != nil {
				return err
			}
			_, err = a.out.Write(data)
			return err
		},
	}
}

func (a *app) versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			fmt.Fprintf(a.out, "amarictl %s\n", version)
			return nil
		},
	}
}
