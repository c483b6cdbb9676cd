// Copyright (C) 2022 Sneller, Inc.
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

// Package main implements fxctl, a small CLI around the engine: ingest
// an NDJSON event file, evaluate a single expression, or print the
// active configuration. Uses cobra for command dispatch.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/streamfeat/engine/agg"
	"github.com/streamfeat/engine/config"
	"github.com/streamfeat/engine/expr"
	"github.com/streamfeat/engine/ingest"
	"github.com/streamfeat/engine/query"
	"github.com/streamfeat/engine/store"
)

func main() {
	var configPath string

	root := &cobra.Command{
		Use:   "fxctl",
		Short: "Incremental feature-engineering engine CLI",
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to a .yaml/.yml/.toml config file")

	root.AddCommand(ingestCmd(&configPath))
	root.AddCommand(queryCmd(&configPath))
	root.AddCommand(configCmd(&configPath))

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadConfig(path string) (config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}

func ingestCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "ingest <file.jsonl>",
		Short: "Ingest an NDJSON event file into an in-memory store and report row counts",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return runIngest(*configPath, args[0])
		},
	}
}

func runIngest(configPath, path string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("fxctl: %w", err)
	}
	defer f.Close()

	st := store.New(cfg.StoreOptions()...)
	dec := ingest.NewDecoder(f)
	noInputs := func(ev *store.Event, specs []store.AggregateSpec) []agg.Input {
		return make([]agg.Input, len(specs))
	}

	n := 0
	for {
		ev, err := dec.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("fxctl: row %d: %w", n, err)
		}
		if err := st.Insert(ev, noInputs); err != nil {
			return fmt.Errorf("fxctl: row %d: %w", n, err)
		}
		n++
	}
	fmt.Printf("ingested %d events into %d sealed block(s)\n", n, len(st.Blocks()))
	return nil
}

func queryCmd(configPath *string) *cobra.Command {
	var obsFlag string
	cmd := &cobra.Command{
		Use:   "query <file.jsonl> <expr>",
		Short: "Ingest an NDJSON event file and evaluate a single expression against it",
		Args:  cobra.ExactArgs(2),
		RunE: func(_ *cobra.Command, args []string) error {
			return runQuery(*configPath, args[0], args[1], obsFlag)
		},
	}
	cmd.Flags().StringVar(&obsFlag, "obs", "", "observation timestamp (RFC3339); defaults to now")
	return cmd
}

func runQuery(configPath, path, src, obsFlag string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("fxctl: %w", err)
	}
	defer f.Close()

	st := store.New(cfg.StoreOptions()...)
	dec := ingest.NewDecoder(f)
	noInputs := func(ev *store.Event, specs []store.AggregateSpec) []agg.Input {
		return make([]agg.Input, len(specs))
	}
	for {
		ev, err := dec.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("fxctl: %w", err)
		}
		if err := st.Insert(ev, noInputs); err != nil {
			return fmt.Errorf("fxctl: %w", err)
		}
	}

	obsMs := time.Now().UnixMilli()
	if obsFlag != "" {
		t, err := time.Parse(time.RFC3339, obsFlag)
		if err != nil {
			return fmt.Errorf("fxctl: --obs: %w", err)
		}
		obsMs = t.UnixMilli()
	}
	ctx := &expr.Context{Store: st, ObsMs: obsMs}

	// a full `[FOR ...] @x := ...; SELECT ...` statement runs its
	// bindings through the topological planner (spec section 4.G)
	// before evaluating the SELECT list; a bare expression (no SELECT
	// keyword) is evaluated directly.
	if q, qerr := expr.ParseQuery(src); qerr == nil {
		results, err := query.Execute(ctx, q)
		if err != nil {
			return fmt.Errorf("fxctl: %w", err)
		}
		for _, r := range results {
			if r.Alias != "" {
				fmt.Printf("%s: %s\n", r.Alias, r.Value.String())
			} else {
				fmt.Println(r.Value.String())
			}
		}
		return nil
	}

	node, err := expr.Parse(src)
	if err != nil {
		return fmt.Errorf("fxctl: %w", err)
	}
	v, err := expr.Eval(node, ctx)
	if err != nil {
		return fmt.Errorf("fxctl: %w", err)
	}
	fmt.Println(v.String())
	return nil
}

func configCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect the active configuration",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the active configuration as JSON",
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(cfg)
		},
	})
	return cmd
}
