package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"agri-evidence-workers/internal/evidence"
	"agri-evidence-workers/internal/workers/advisory"
	"agri-evidence-workers/pkg/registry"
)

type options struct {
	tablesPath string
	year       int
	threshold  float64
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:   "evidence-report",
		Short: "Run evidence reconciliation and citation scoring offline",
		Long: `Run the reconciliation and citation pipeline against a JSON file of
retrieved sources, without a Zeebe broker.

Sources are read from a file holding either a JSON array of sources or an
object with a "sources" array. Use "-" to read from stdin.

Examples:
  evidence-report reconcile --sources hits.json --query "when to plant maize"
  evidence-report citations --sources hits.json --agreement 0.6
  evidence-report tables --tables configs/trust_tables.yaml
  evidence-report registry --out configs/activity-registry.json`,
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&opts.tablesPath, "tables", "", "trust tables YAML (built-in tables when empty)")
	root.PersistentFlags().IntVar(&opts.year, "year", 0, "reference year for recency scoring (current year when 0)")
	root.PersistentFlags().Float64Var(&opts.threshold, "conflict-threshold", 0, "word-overlap similarity above which same-topic advice is checked for conflicts")

	root.AddCommand(newReconcileCmd(opts), newCitationsCmd(opts), newTablesCmd(opts), newRegistryCmd())
	return root
}

func newReconcileCmd(opts *options) *cobra.Command {
	var sourcesPath, query string

	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Extract recommendations, detect conflicts and build consensus",
		RunE: func(cmd *cobra.Command, args []string) error {
			tables, cfg, err := opts.load()
			if err != nil {
				return err
			}
			sources, err := readSources(cmd.InOrStdin(), sourcesPath)
			if err != nil {
				return err
			}
			report := evidence.NewReconciler(tables, cfg).Reconcile(sources, query)
			return writeJSON(cmd.OutOrStdout(), report)
		},
	}

	cmd.Flags().StringVar(&sourcesPath, "sources", "", "JSON file of retrieved sources")
	cmd.Flags().StringVar(&query, "query", "", "the farmer's question")
	_ = cmd.MarkFlagRequired("sources")
	return cmd
}

func newCitationsCmd(opts *options) *cobra.Command {
	var (
		sourcesPath  string
		agreement    float64
		noConfidence bool
	)

	cmd := &cobra.Command{
		Use:   "citations",
		Short: "Format numbered citations and score answer confidence",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("agreement") && (agreement < 0 || agreement > 1) {
				return fmt.Errorf("--agreement must be in [0,1], got %v", agreement)
			}
			tables, cfg, err := opts.load()
			if err != nil {
				return err
			}
			sources, err := readSources(cmd.InOrStdin(), sourcesPath)
			if err != nil {
				return err
			}

			formatter := evidence.NewCitationFormatter(tables, cfg)
			report := formatter.Format(sources, false)
			if !noConfidence {
				if !cmd.Flags().Changed("agreement") {
					agreement = formatter.DefaultAgreement()
				}
				result := formatter.ConfidenceScore(sources, agreement)
				report.Confidence = &result
			}
			return writeJSON(cmd.OutOrStdout(), report)
		},
	}

	cmd.Flags().StringVar(&sourcesPath, "sources", "", "JSON file of retrieved sources")
	cmd.Flags().Float64Var(&agreement, "agreement", 0, "source agreement in [0,1] (configured default when unset)")
	cmd.Flags().BoolVar(&noConfidence, "no-confidence", false, "omit the confidence score")
	_ = cmd.MarkFlagRequired("sources")
	return cmd
}

func newTablesCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "tables",
		Short: "Validate trust tables and print a summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			tables, _, err := opts.load()
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), map[string]interface{}{
				"organizations":   len(tables.Organizations),
				"authority_terms": len(tables.Authority),
				"geographic":      len(tables.Geographic),
				"topics":          len(tables.Topics),
				"quality_tiers":   len(tables.QualityTiers),
				"valid":           true,
			})
		},
	}
}

func newRegistryCmd() *cobra.Command {
	var out, version string

	cmd := &cobra.Command{
		Use:   "registry",
		Short: "Write the advisory activity registry for BPMN modelers",
		RunE: func(cmd *cobra.Command, args []string) error {
			reg := registry.New(version, advisory.Activities(nil)...)
			if out == "" {
				return writeJSON(cmd.OutOrStdout(), reg)
			}
			if err := reg.Write(out); err != nil {
				return fmt.Errorf("write registry: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %d activities to %s\n", len(reg.Activities), out)
			return nil
		},
	}

	cmd.Flags().StringVar(&out, "out", "", "output file (stdout when empty)")
	cmd.Flags().StringVar(&version, "version", "1.0.0", "registry version")
	return cmd
}

func (o *options) load() (*evidence.TrustTables, evidence.Config, error) {
	cfg := evidence.DefaultConfig()
	if o.year != 0 {
		cfg.CurrentYear = o.year
	}
	if o.threshold != 0 {
		cfg.ConflictThreshold = o.threshold
	}
	if err := cfg.Validate(); err != nil {
		return nil, cfg, err
	}

	if o.tablesPath == "" {
		return evidence.DefaultTrustTables(), cfg, nil
	}
	tables, err := evidence.LoadTrustTables(o.tablesPath)
	if err != nil {
		return nil, cfg, err
	}
	return tables, cfg, nil
}

func readSources(stdin io.Reader, path string) ([]evidence.Source, error) {
	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("read sources: %w", err)
	}

	var sources []evidence.Source
	if err := json.Unmarshal(data, &sources); err == nil {
		return sources, nil
	}

	var wrapped struct {
		Sources []evidence.Source `json:"sources"`
	}
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return nil, fmt.Errorf("parse sources: %w", err)
	}
	if wrapped.Sources == nil {
		return nil, errors.New("parse sources: no \"sources\" array found")
	}
	return wrapped.Sources, nil
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
