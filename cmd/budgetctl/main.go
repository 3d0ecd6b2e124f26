// Command budgetctl inspects stored or captured analyzer payloads offline.
//
//	budgetctl normalize --kind pdf payload.json
//	budgetctl breakdown payload.json
//	budgetctl offer --margin 15 payload.json
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"budget-analyzer/internal/analyzer"
	"budget-analyzer/internal/budget"
)

type flags struct {
	kind    string
	vatRate float64
	margin  float64
}

func main() {
	if err := newRootCmd(os.Stdout).Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(out io.Writer) *cobra.Command {
	f := &flags{}
	root := &cobra.Command{
		Use:          "budgetctl",
		Short:        "Normalize analyzer payloads and derive budget figures",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&f.kind, "kind", string(budget.KindQuick), "analysis kind: quick, pdf or project")
	root.PersistentFlags().Float64Var(&f.vatRate, "vat-rate", 0, "override the VAT rate (0 keeps the default)")

	offer := &cobra.Command{
		Use:   "offer <payload.json>",
		Short: "Project an offer with a margin over the reference prices",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			an, agg, err := load(f, args[0])
			if err != nil {
				return err
			}
			projection, err := agg.ProjectOffer(an, f.margin)
			if err != nil {
				return err
			}
			return writeJSON(out, projection)
		},
	}
	offer.Flags().Float64Var(&f.margin, "margin", 0, "margin percent applied to unit prices")

	root.AddCommand(
		&cobra.Command{
			Use:   "normalize <payload.json>",
			Short: "Print the canonical analysis for a payload",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				an, _, err := load(f, args[0])
				if err != nil {
					return err
				}
				return writeJSON(out, an)
			},
		},
		&cobra.Command{
			Use:   "breakdown <payload.json>",
			Short: "Print totals, VAT split and category amounts",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				an, agg, err := load(f, args[0])
				if err != nil {
					return err
				}
				return writeJSON(out, agg.Summarize(an))
			},
		},
		offer,
	)
	return root
}

func load(f *flags, path string) (budget.Analysis, *budget.Aggregator, error) {
	kind, err := budget.ParseKind(f.kind)
	if err != nil {
		return budget.Analysis{}, nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return budget.Analysis{}, nil, fmt.Errorf("read payload: %w", err)
	}
	raw, err := analyzer.DecodePayload(data)
	if err != nil {
		return budget.Analysis{}, nil, fmt.Errorf("decode payload: %w", err)
	}
	cfg := budget.DefaultConfig()
	if f.vatRate > 0 {
		cfg.VATRate = f.vatRate
	}
	return budget.Normalize(raw, kind), budget.NewAggregator(cfg), nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
