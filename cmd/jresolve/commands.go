package main

import (
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"jresolve/internal/config"
	"jresolve/internal/diag"
	"jresolve/internal/graph"
	"jresolve/internal/index"
	"jresolve/internal/pipeline"
	"jresolve/internal/storage"
)

type options struct {
	configPath string
	dbPath     string
	logLevel   string
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:           "jresolve",
		Short:         "Resolve names and type hierarchies of Java source trees",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "Path to a YAML config file")
	root.PersistentFlags().StringVarP(&opts.dbPath, "db", "d", "", "Path to the run database (SQLite)")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Log level (debug, info, warn, error)")

	root.AddCommand(newResolveCmd(opts))
	root.AddCommand(newTypesCmd(opts))
	root.AddCommand(newHierarchyCmd(opts))
	root.AddCommand(newDiagnosticsCmd(opts))
	root.AddCommand(newExportCmd(opts))
	return root
}

// load merges the config file, environment and flags.
func (o *options) load() (*config.Config, error) {
	cfg, err := config.LoadConfig(o.configPath)
	if err != nil {
		return nil, err
	}
	if o.dbPath != "" {
		cfg.Storage.Path = o.dbPath
	}
	if o.logLevel != "" {
		cfg.Log.Level = o.logLevel
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}
	cfg.ApplyLogging()
	return cfg, nil
}

// initStore opens the run database.
func (o *options) initStore() (*config.Config, *storage.SQLiteStore, error) {
	cfg, err := o.load()
	if err != nil {
		return nil, nil, err
	}
	store, err := storage.NewSQLiteStore(cfg.Storage.Path)
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to initialize database")
	}
	return cfg, store, nil
}

func newResolveCmd(opts *options) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "resolve [path]",
		Short: "Resolve a source tree and record the run",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, store, err := opts.initStore()
			if err != nil {
				return err
			}
			defer store.Close()

			if len(args) > 0 {
				cfg.Project.Root = args[0]
			}
			if abs, err := filepath.Abs(cfg.Project.Root); err == nil {
				cfg.Project.Root = abs
			}

			report, err := pipeline.NewProjectSync(cfg, store).Run(cmd.Context(), force)
			if err != nil {
				return err
			}
			printReport(cmd.OutOrStdout(), report)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&force, "force", "f", false, "Resolve even when the tree matches the latest run")
	return cmd
}

func printReport(w io.Writer, r *pipeline.SyncReport) {
	if r.Unchanged {
		fmt.Fprintf(w, "No changes since run %s.\n", r.Run.ID)
		return
	}
	fmt.Fprintf(w, "Run %s: %d files, %d types, %d diagnostics\n", r.Run.ID, r.Run.Units, r.Run.Types, r.Run.Diagnostics)
	for _, path := range r.Skipped {
		fmt.Fprintf(w, "  skipped %s\n", path)
	}
	counts := r.Result.DiagnosticCounts()
	cats := make([]string, 0, len(counts))
	for c := range counts {
		cats = append(cats, string(c))
	}
	sort.Strings(cats)
	for _, c := range cats {
		fmt.Fprintf(w, "  %-18s %d\n", c, counts[diag.Category(c)])
	}
	if imp := r.Impact; imp != nil && !imp.Empty() {
		fmt.Fprintf(w, "Hierarchy: %d added, %d removed, %d changed, %d indirectly affected\n",
			len(imp.Added), len(imp.Removed), len(imp.Changed), len(imp.IndirectlyAffected))
	}
	for _, d := range r.Result.Diagnostics {
		fmt.Fprintf(w, "%s\n", d)
	}
}

func newTypesCmd(opts *options) *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "types",
		Short: "List the types of the latest run",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, store, err := opts.initStore()
			if err != nil {
				return err
			}
			defer store.Close()

			run, err := latestRun(cmd, store)
			if err != nil {
				return err
			}
			types, err := store.LoadTypes(cmd.Context(), run.ID)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			for _, t := range types {
				if t.External && !all {
					continue
				}
				fmt.Fprintf(w, "%-10s %-40s %s:%d\n", t.Kind, t.Name, t.Filepath, t.Line)
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&all, "all", "a", false, "Include library types reached through supertypes")
	return cmd
}

func newHierarchyCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "hierarchy <type>",
		Short: "Show the supertypes, subtypes and member types of a type",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, store, err := opts.initStore()
			if err != nil {
				return err
			}
			defer store.Close()

			run, err := latestRun(cmd, store)
			if err != nil {
				return err
			}
			g, err := store.LoadGraph(cmd.Context(), run.ID)
			if err != nil {
				return err
			}
			matches := g.Lookup(args[0])
			switch len(matches) {
			case 0:
				return errors.Errorf("no type named %s", args[0])
			case 1:
			default:
				var names []string
				for _, m := range matches {
					names = append(names, m.Symbol.Name)
				}
				return errors.Errorf("%s is ambiguous: %s", args[0], strings.Join(names, ", "))
			}
			printHierarchy(cmd.OutOrStdout(), g, matches[0])
			return nil
		},
	}
}

func printHierarchy(w io.Writer, g *graph.Graph, n *graph.Node) {
	fmt.Fprintf(w, "%s %s\n", n.Symbol.Kind, n.Symbol.Name)
	section := func(title string, nodes []*graph.Node) {
		if len(nodes) == 0 {
			return
		}
		fmt.Fprintf(w, "%s:\n", title)
		for _, m := range nodes {
			fmt.Fprintf(w, "  %s\n", m.Symbol.Name)
		}
	}
	section("supertypes", g.Ancestors(n.Symbol.ID))
	section("subtypes", g.GetDependents(n.Symbol.ID))
	section("member types", g.Members(n.Symbol.ID))
}

func newDiagnosticsCmd(opts *options) *cobra.Command {
	var category string
	cmd := &cobra.Command{
		Use:   "diagnostics",
		Short: "List the diagnostics of the latest run",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, store, err := opts.initStore()
			if err != nil {
				return err
			}
			defer store.Close()

			run, err := latestRun(cmd, store)
			if err != nil {
				return err
			}
			diags, err := store.LoadDiagnostics(cmd.Context(), run.ID)
			if err != nil {
				return err
			}
			for _, d := range diags {
				if category != "" && string(d.Category) != category {
					continue
				}
				fmt.Fprintln(cmd.OutOrStdout(), d)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&category, "category", "", "Only show one category")
	return cmd
}

func newExportCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "export <file>",
		Short: "Write the hierarchy of the latest run as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, store, err := opts.initStore()
			if err != nil {
				return err
			}
			defer store.Close()

			run, err := latestRun(cmd, store)
			if err != nil {
				return err
			}
			g, err := store.LoadGraph(cmd.Context(), run.ID)
			if err != nil {
				return err
			}
			types, err := store.LoadTypes(cmd.Context(), run.ID)
			if err != nil {
				return err
			}
			if err := index.NewSnapshot(run, g, types).SaveFile(args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d types to %s\n", len(types), args[0])
			return nil
		},
	}
}

func latestRun(cmd *cobra.Command, store storage.Store) (*storage.Run, error) {
	run, err := store.LatestRun(cmd.Context())
	if errors.Is(err, storage.ErrNotFound) {
		return nil, errors.New("no runs recorded yet, run `jresolve resolve` first")
	}
	return run, err
}
