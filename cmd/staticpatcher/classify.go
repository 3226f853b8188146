package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/studioph/StaticPatcher/internal/catalog"
	"github.com/studioph/StaticPatcher/internal/classifier"
	"github.com/studioph/StaticPatcher/internal/record"
)

var (
	// recordsPath is the record dump, overriding records from config
	recordsPath string
	// classifyKind selects which records to classify when no IDs are given
	classifyKind string
)

func init() {
	rootCmd.AddCommand(classifyCmd)

	classifyCmd.Flags().StringVarP(&recordsPath, "records", "r", "", "record dump (YAML)")
	classifyCmd.Flags().StringVarP(&classifyKind, "kind", "k", string(record.KindStatic), "record kind to classify: static, cell, location")
}

// classifyCmd classifies records from a dump
var classifyCmd = &cobra.Command{
	Use:   "classify [id...]",
	Short: "Classify records from a record dump",
	Long: `Classify records against the location or statics hierarchy and print one
line per record: id, category and the strategy that matched.

Statics and location entities are classified directly. Cells are classified
as containers: by direct membership first, otherwise through their linked
location.

Examples:
  # Every static in the dump
  staticpatcher classify --records dump.yaml

  # Every cell
  staticpatcher classify --records dump.yaml --kind cell

  # Selected records of any kind
  staticpatcher classify --records dump.yaml Skyrim.esm:0x0165A8 Skyrim.esm:0x03D001`,
	RunE: runClassify,
}

func runClassify(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := setup(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	graph, err := a.records()
	if err != nil {
		return err
	}

	entries, err := selectEntries(graph, args)
	if err != nil {
		return err
	}

	opts, err := a.classifierOptions()
	if err != nil {
		return err
	}
	statics, err := a.hierarchy(catalog.KindStatics)
	if err != nil {
		return err
	}
	locations, err := a.hierarchy(catalog.KindLocations)
	if err != nil {
		return err
	}
	sc := classifier.New[*record.Entry](statics, opts...)
	lc := classifier.NewLocation(locations, graph, opts...)

	out := cmd.OutOrStdout()
	for _, e := range entries {
		var res classifier.Resolution
		switch e.Kind {
		case record.KindStatic:
			res = sc.Explain(ctx, e)
		case record.KindLocation:
			res = lc.Explain(ctx, e)
		case record.KindCell:
			res = lc.ExplainContainer(ctx, e)
		default:
			return fmt.Errorf("record %s: cannot classify %s records", e.RecordID, e.Kind)
		}
		if err := writeResolution(out, e.RecordID, res); err != nil {
			return err
		}
	}
	return nil
}

// records loads the dump named by --records or by config.
func (a *app) records() (*record.Graph, error) {
	path := recordsPath
	if path == "" {
		path = a.cfg.Records
	}
	if path == "" {
		return nil, errors.New("no record dump: set --records or records in config")
	}
	return record.LoadFile(path)
}

func selectEntries(graph *record.Graph, ids []string) ([]*record.Entry, error) {
	if len(ids) == 0 {
		kind, ok := record.ValidKinds[classifyKind]
		if !ok || kind == record.KindPlacement {
			return nil, fmt.Errorf("%w: %q", record.ErrInvalidKind, classifyKind)
		}
		return graph.OfKind(kind), nil
	}

	entries := make([]*record.Entry, 0, len(ids))
	for _, id := range ids {
		e, ok := graph.Entry(record.ID(id))
		if !ok {
			return nil, fmt.Errorf("record %s not found", id)
		}
		entries = append(entries, e)
	}
	return entries, nil
}

func writeResolution(w io.Writer, id record.ID, res classifier.Resolution) error {
	_, err := fmt.Fprintf(w, "%s\t%s\t%s\n", id, res.Category.Name(), res.Strategy)
	return err
}
