package cli

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/specialistvlad/ontograph/internal/app"
	"github.com/specialistvlad/ontograph/internal/obo"
	"github.com/specialistvlad/ontograph/internal/ontoerr"
	"github.com/specialistvlad/ontograph/internal/ontology"
	"github.com/specialistvlad/ontograph/internal/record"
	"github.com/specialistvlad/ontograph/internal/traverse"
)

// load builds the application and reads the document at location. The
// returned graph is closed by the caller.
func (g *globals) load(cmd *cobra.Command, location string) (*app.App, *ontology.Ontology, error) {
	a, err := g.newApp(cmd)
	if err != nil {
		return nil, nil, err
	}
	o, err := a.Load(cmd.Context(), location)
	if err != nil {
		return nil, nil, err
	}
	return a, o, nil
}

func statsCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "stats FILE",
		Short: "Summarize a document and its imports",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, o, err := g.load(cmd, args[0])
			if err != nil {
				return err
			}
			defer o.Close()
			return writeYAML(cmd.OutOrStdout(), newStatsView(args[0], o, len(a.Warnings())))
		},
	}
}

func showCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "show FILE ID",
		Short: "Print every field of one term or relationship",
		Args:  exactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, o, err := g.load(cmd, args[0])
			if err != nil {
				return err
			}
			defer o.Close()

			e, err := o.Get(args[1])
			if err != nil {
				return notFound(err)
			}
			var snap record.Record
			switch e := e.(type) {
			case *ontology.Term:
				snap, err = e.Snapshot()
			case *ontology.Relationship:
				snap, err = e.Snapshot()
			}
			if err != nil {
				return err
			}
			return writeYAML(cmd.OutOrStdout(), newEntityView(&snap, o.Lineage(e.Kind()).Sup(e.ID())))
		},
	}
}

func lineageCmd(g *globals, use, short string, up bool) *cobra.Command {
	var (
		distance int
		withSelf bool
	)
	cmd := &cobra.Command{
		Use:   use + " FILE ID",
		Short: short,
		Long: short + `, one id per line in breadth-first order.
Relationships are walked along their superproperty lineage.`,
		Args: exactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, o, err := g.load(cmd, args[0])
			if err != nil {
				return err
			}
			defer o.Close()

			e, err := o.Get(args[1])
			if err != nil {
				return notFound(err)
			}
			opts := []traverse.Option{traverse.WithDistance(distance), traverse.WithSelf(withSelf)}

			var ids []string
			switch e := e.(type) {
			case *ontology.Term:
				h := e.Subclasses(opts...)
				if up {
					h = e.Superclasses(opts...)
				}
				ids, err = collectIDs(h)
			case *ontology.Relationship:
				h := e.Subproperties(opts...)
				if up {
					h = e.Superproperties(opts...)
				}
				ids, err = collectIDs(h)
			}
			if err != nil {
				return err
			}
			for _, id := range ids {
				if err := printf(cmd, "%s\n", id); err != nil {
					return err
				}
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&distance, "distance", "d", -1, "Maximum number of edges to follow, negative is unbounded")
	cmd.Flags().BoolVar(&withSelf, "with-self", true, "Include the entity itself")
	return cmd
}

func collectIDs[E ontology.Entity](h *ontology.LineageHandler[E]) ([]string, error) {
	entities, err := h.Collect()
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(entities))
	for i, e := range entities {
		ids[i] = e.ID()
	}
	return ids, nil
}

func convertCmd(g *globals) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "convert FILE",
		Short: "Rewrite a document in canonical OBO form",
		Long: `Rewrite a document in canonical OBO form. Only the entities declared by
the document are written; imports stay as import clauses.`,
		Args: exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, o, err := g.load(cmd, args[0])
			if err != nil {
				return err
			}
			defer o.Close()

			if out == "" || out == "-" {
				return obo.Write(cmd.OutOrStdout(), o)
			}
			return writeFile(out, o)
		},
	}
	cmd.Flags().StringVarP(&out, "output", "o", "-", "Output file, - for stdout")
	return cmd
}

// writeFile writes o to a temporary file next to p and renames it into place.
func writeFile(p string, o *ontology.Ontology) (err error) {
	f, err := os.CreateTemp(filepath.Dir(p), "."+filepath.Base(p)+".*")
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	defer func() {
		if err != nil {
			f.Close()
			os.Remove(f.Name())
		}
	}()
	if err = obo.Write(f, o); err != nil {
		return fmt.Errorf("write %s: %w", p, err)
	}
	if err = f.Close(); err != nil {
		return fmt.Errorf("write %s: %w", p, err)
	}
	return os.Rename(f.Name(), p)
}

type checkView struct {
	Location string   `yaml:"location"`
	OK       bool     `yaml:"ok"`
	Problems []string `yaml:"problems,omitempty"`
	Warnings []string `yaml:"warnings,omitempty"`
}

func checkCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "check FILE",
		Short: "Verify lineage symmetry and report is_a cycles",
		Long: `Verify that every is_a edge is recorded on both sides and that neither
the term nor the relationship hierarchy has a cycle. Exits with status 1
when a problem is found.`,
		Args: exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, o, err := g.load(cmd, args[0])
			if err != nil {
				return err
			}
			defer o.Close()

			report := checkView{Location: args[0]}
			for _, kind := range []record.Kind{record.KindTerm, record.KindRelationship} {
				store := o.Lineage(kind)
				if err := store.Verify(); err != nil {
					report.Problems = append(report.Problems, kind.String()+": "+err.Error())
				}
				if err := store.DetectCycles(); err != nil {
					report.Problems = append(report.Problems, kind.String()+": "+err.Error())
				}
			}
			for _, w := range a.Warnings() {
				report.Warnings = append(report.Warnings, w.String())
			}
			report.OK = len(report.Problems) == 0

			if err := writeYAML(cmd.OutOrStdout(), report); err != nil {
				return err
			}
			if !report.OK {
				return &ExitError{Code: 1, Message: fmt.Sprintf("check failed: %d problem(s) in %s", len(report.Problems), args[0])}
			}
			return nil
		},
	}
}

func serveCmd(g *globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve [FILE...]",
		Short: "Load documents and serve health and metrics over HTTP",
		Long: `Load the given documents, then serve /health and /metrics until
interrupted. The address comes from --listen or metrics.listen.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := g.newApp(cmd)
			if err != nil {
				return err
			}
			listen := a.Config().Metrics.Listen
			if listen == "" {
				return usageError(errors.New("no listen address: set --listen or metrics.listen"))
			}

			ctx := cmd.Context()
			for _, location := range args {
				o, err := a.Load(ctx, location)
				if err != nil {
					return err
				}
				defer o.Close()
			}

			ln, err := net.Listen("tcp", listen)
			if err != nil {
				return fmt.Errorf("listen on %s: %w", listen, err)
			}
			return a.Serve(ctx, ln)
		},
	}
	cmd.Flags().String("listen", "", "Listen address, e.g. :9090")
	return cmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return printf(cmd, "ontograph %s\n", Version)
		},
	}
}

func notFound(err error) error {
	if errors.Is(err, ontoerr.ErrNotFound) {
		return &ExitError{Code: 1, Message: err.Error()}
	}
	return err
}
