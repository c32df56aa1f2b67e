// Package main provides bankctl, a command-line tool for inspecting template
// banks and validating them against the lesson catalog.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/nudiguru/nudiguru-api/internal/feature"
	"github.com/nudiguru/nudiguru-api/internal/lesson"
	"github.com/nudiguru/nudiguru-api/internal/templates"
)

// errIssuesFound makes check exit non-zero without printing a second message.
var errIssuesFound = errors.New("template banks do not match the lesson catalog")

type options struct {
	lessonsFile string
	sequence    string
	vector      string
	dsn         string
	jsonOutput  bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:           "bankctl",
		Short:         "Inspect and validate pronunciation template banks",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&opts.lessonsFile, "lessons", os.Getenv("LESSONS_FILE"), "lesson catalog YAML (default: built-in curriculum)")
	flags.StringVar(&opts.sequence, "sequence", os.Getenv("SEQUENCE_TEMPLATES"), "sequence (log-mel) bank JSON file")
	flags.StringVar(&opts.vector, "vector", os.Getenv("VECTOR_TEMPLATES"), "vector (embedding) bank JSON file")
	flags.StringVar(&opts.dsn, "dsn", os.Getenv("TEMPLATES_DSN"), "Postgres DSN; overrides --sequence and --vector")
	flags.BoolVar(&opts.jsonOutput, "json", false, "print machine-readable JSON")

	root.AddCommand(newStatsCmd(opts), newCheckCmd(opts))
	return root
}

func newStatsCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print lesson, syllable and reference counts for each bank",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			b, closeFn, err := loadBanks(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer closeFn()

			stats := make(map[string]templates.Stats)
			if b.sequence != nil {
				stats[b.sequence.Name()] = b.sequence.Stats()
			}
			if b.vector != nil {
				stats[b.vector.Name()] = b.vector.Stats()
			}
			return printStats(cmd.OutOrStdout(), stats, opts.jsonOutput)
		},
	}
}

func newCheckCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Report lessons and syllables the banks cannot score",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			catalog, err := lesson.LoadOrDefault(opts.lessonsFile)
			if err != nil {
				return fmt.Errorf("load lessons: %w", err)
			}

			b, closeFn, err := loadBanks(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer closeFn()

			issues := make(map[string][]templates.Issue)
			if b.sequence != nil {
				issues[b.sequence.Name()] = b.sequence.Check(catalog)
			}
			if b.vector != nil {
				issues[b.vector.Name()] = b.vector.Check(catalog)
			}

			found, err := printIssues(cmd.OutOrStdout(), issues, opts.jsonOutput)
			if err != nil {
				return err
			}
			if found {
				return errIssuesFound
			}
			return nil
		},
	}
}

type banks struct {
	sequence *templates.Store[feature.Matrix]
	vector   *templates.Store[feature.Vector]
}

func loadBanks(ctx context.Context, opts *options) (banks, func(), error) {
	var b banks
	noop := func() {}
	if ctx == nil {
		ctx = context.Background()
	}

	if opts.dsn != "" {
		src, err := templates.NewPostgresSource(ctx, opts.dsn)
		if err != nil {
			return b, noop, err
		}
		if b.sequence, err = src.LoadMatrices(ctx); err != nil {
			src.Close()
			return b, noop, err
		}
		if b.vector, err = src.LoadVectors(ctx); err != nil {
			src.Close()
			return b, noop, err
		}
		return b, src.Close, nil
	}

	if opts.sequence == "" && opts.vector == "" {
		return b, noop, errors.New("no bank given: set --sequence, --vector or --dsn")
	}

	var err error
	if opts.sequence != "" {
		if b.sequence, err = templates.LoadMatrixFile(opts.sequence); err != nil {
			return b, noop, err
		}
	}
	if opts.vector != "" {
		if b.vector, err = templates.LoadVectorFile(opts.vector); err != nil {
			return b, noop, err
		}
	}
	return b, noop, nil
}

func printStats(w io.Writer, stats map[string]templates.Stats, asJSON bool) error {
	if asJSON {
		return json.NewEncoder(w).Encode(stats)
	}
	for _, name := range []string{"sequence", "vector"} {
		st, ok := stats[name]
		if !ok {
			continue
		}
		fmt.Fprintf(w, "%-9s lessons=%d syllables=%d references=%d empty=%d\n",
			name, st.Lessons, st.Syllables, st.References, st.Empty)
	}
	return nil
}

func printIssues(w io.Writer, issues map[string][]templates.Issue, asJSON bool) (bool, error) {
	found := false
	for _, list := range issues {
		if len(list) > 0 {
			found = true
		}
	}

	if asJSON {
		return found, json.NewEncoder(w).Encode(issues)
	}
	for _, name := range []string{"sequence", "vector"} {
		list, ok := issues[name]
		if !ok {
			continue
		}
		if len(list) == 0 {
			fmt.Fprintf(w, "%s: ok\n", name)
			continue
		}
		for _, issue := range list {
			fmt.Fprintf(w, "%s: %s\n", name, issue)
		}
	}
	return found, nil
}
