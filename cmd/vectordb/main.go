// Command vectordb is a thin CLI wrapper around the store and hnsw
// packages, exercising the record-store contract of spec.md §6. It is not
// part of the core: every command opens the record store, performs one
// operation, and exits.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/TFMV/vectordb/store"
)

func main() {
	var dbPath string

	root := &cobra.Command{
		Use:           "vectordb",
		Short:         "Embeddable approximate nearest-neighbour vector store",
		Long:          "vectordb — a JSON-backed record store over an in-memory HNSW index.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&dbPath, "db", "vectordb.json", "path to the record store document")

	open := func() (*store.Store, error) {
		return store.Open(dbPath)
	}

	root.AddCommand(
		newInitCmd(open),
		newAddCmd(open),
		newGetCmd(open),
		newUpdateCmd(open),
		newDeleteCmd(open),
		newRebuildCmd(open),
		newSearchCmd(open),
		newStatsCmd(open),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "vectordb:", err)
		os.Exit(1)
	}
}

type opener func() (*store.Store, error)

func newInitCmd(open opener) *cobra.Command {
	var seed int64
	cmd := &cobra.Command{
		Use:   "init <dim>",
		Short: "Create a new record store with a fixed vector dimensionality",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dim, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid dimension %q: %w", args[0], err)
			}

			s, err := open()
			if err != nil {
				return err
			}

			var opts []store.Option
			if cmd.Flags().Changed("seed") {
				opts = append(opts, store.WithSeed(seed))
			}
			if err := s.Init(dim, opts...); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "initialized store with dim=%d\n", dim)
			return nil
		},
	}
	cmd.Flags().Int64Var(&seed, "seed", 0, "pin the RNG used by every future rebuild, for reproducible graphs")
	return cmd
}

func newAddCmd(open opener) *cobra.Command {
	return &cobra.Command{
		Use:   "add <csv-vector> <metadata-json>",
		Short: "Add a vector and its metadata to the store",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			vec, err := parseVector(args[0])
			if err != nil {
				return err
			}
			meta, err := parseMetadata(args[1])
			if err != nil {
				return err
			}

			s, err := open()
			if err != nil {
				return err
			}
			id, err := s.Add(vec, meta)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "added id=%d (run rebuild before search)\n", id)
			return nil
		},
	}
}

func newGetCmd(open opener) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "get <id>",
		Short: "Print the vector and metadata stored under id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			s, err := open()
			if err != nil {
				return err
			}
			rec, err := s.Get(id)
			if err != nil {
				return err
			}

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(rec)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "id=%d vec=%v metadata=%s\n", rec.ID, rec.Vec, rec.Metadata)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "output as JSON")
	return cmd
}

func newUpdateCmd(open opener) *cobra.Command {
	return &cobra.Command{
		Use:   "update <id> <csv-vector> <metadata-json>",
		Short: "Replace the vector and metadata stored under id",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			vec, err := parseVector(args[1])
			if err != nil {
				return err
			}
			meta, err := parseMetadata(args[2])
			if err != nil {
				return err
			}

			s, err := open()
			if err != nil {
				return err
			}
			if err := s.Update(id, vec, meta); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "updated id=%d (run rebuild before search)\n", id)
			return nil
		},
	}
}

func newDeleteCmd(open opener) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Remove the record stored under id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			s, err := open()
			if err != nil {
				return err
			}
			if err := s.Delete(id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted id=%d (run rebuild before search)\n", id)
			return nil
		},
	}
}

func newRebuildCmd(open opener) *cobra.Command {
	return &cobra.Command{
		Use:   "rebuild",
		Short: "Rebuild the in-memory index from the current records",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := open()
			if err != nil {
				return err
			}
			if err := s.Rebuild(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "rebuilt index over %d records\n", s.Len())
			return nil
		},
	}
}

func newSearchCmd(open opener) *cobra.Command {
	var asJSON bool
	var efSearch int
	cmd := &cobra.Command{
		Use:   "search <k> <csv-vector>",
		Short: "Find the k nearest neighbours of a vector",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			k, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid k %q: %w", args[0], err)
			}
			vec, err := parseVector(args[1])
			if err != nil {
				return err
			}

			s, err := open()
			if err != nil {
				return err
			}
			results, err := s.Search(vec, k, efSearch)
			if err != nil {
				return err
			}

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(results)
			}
			for _, r := range results {
				fmt.Fprintf(cmd.OutOrStdout(), "id=%d dist=%g metadata=%s\n", r.ID, r.Dist, r.Metadata)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "output results as JSON")
	cmd.Flags().IntVar(&efSearch, "ef", 50, "dynamic candidate-list width used at layer 0")
	return cmd
}

func newStatsCmd(open opener) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show record count, dimensionality and graph topology",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := open()
			if err != nil {
				return err
			}

			type stats struct {
				Dim          int       `json:"dim"`
				Records      int       `json:"records"`
				Height       int       `json:"height,omitempty"`
				Topography   []int     `json:"topography,omitempty"`
				Connectivity []float64 `json:"connectivity,omitempty"`
			}
			out := stats{Dim: s.Dim(), Records: s.Len()}
			if a := s.Analyzer(); a != nil {
				out.Height = a.Height()
				out.Topography = a.Topography()
				out.Connectivity = a.Connectivity()
			}

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(out)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "dim=%d records=%d\n", out.Dim, out.Records)
			if out.Height > 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "height=%d topography=%v connectivity=%v\n",
					out.Height, out.Topography, out.Connectivity)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "output as JSON")
	return cmd
}

func parseID(s string) (uint64, error) {
	id, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid id %q: %w", s, err)
	}
	return id, nil
}

func parseVector(csv string) ([]float32, error) {
	fields := strings.Split(csv, ",")
	vec := make([]float32, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseFloat(strings.TrimSpace(f), 32)
		if err != nil {
			return nil, fmt.Errorf("invalid vector component %q: %w", f, err)
		}
		vec[i] = float32(v)
	}
	return vec, nil
}

func parseMetadata(s string) (json.RawMessage, error) {
	if s == "" {
		return nil, nil
	}
	if !json.Valid([]byte(s)) {
		return nil, fmt.Errorf("invalid metadata JSON: %q", s)
	}
	return json.RawMessage(s), nil
}
