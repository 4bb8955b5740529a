package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/smartration/backend/internal/domain"
	"github.com/smartration/backend/internal/infrastructure/vision"
	"github.com/smartration/backend/internal/usecase"
)

type parseOptions struct {
	text       bool
	tolerance  float64
	noCollapse bool
	decisions  bool
	xlsx       string
}

func newParseCmd(root *rootOptions) *cobra.Command {
	opts := &parseOptions{}

	cmd := &cobra.Command{
		Use:   "parse FILE",
		Short: "Parse a saved OCR response or a plain-text receipt",
		Long: `Parse reads either a saved Cloud Vision response ({"responses": [...]}
or a bare textAnnotations array) or, with --text, a newline separated
receipt transcript, and prints the parsed receipt as JSON.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read %s: %w", args[0], err)
			}

			parser := usecase.NewReceiptParser(usecase.ParserConfig{
				LineTolerance:      opts.tolerance,
				CollapseRepeats:    !opts.noCollapse,
				EnableDebugLogging: root.verbose,
			})

			var record *domain.ReceiptRecord
			var decisions []domain.LineDecision
			if opts.text {
				record, decisions = parser.ParseText(string(data))
			} else {
				annotations, err := vision.ParseSavedResponse(data)
				if err != nil {
					return err
				}
				record, decisions, err = parser.ParseWithDecisions(domain.NewOCRResult(annotations))
				if err != nil {
					return err
				}
			}

			if !opts.decisions {
				decisions = nil
			}
			return writeRecord(cmd.OutOrStdout(), record, decisions, opts.xlsx)
		},
	}

	cmd.Flags().BoolVar(&opts.text, "text", false, "treat FILE as a plain-text receipt, one line per row")
	cmd.Flags().Float64Var(&opts.tolerance, "tolerance", usecase.DefaultLineTolerance, "vertical pixel tolerance for grouping fragments into lines")
	cmd.Flags().BoolVar(&opts.noCollapse, "no-collapse", false, "keep immediately repeated words instead of collapsing them")
	cmd.Flags().BoolVar(&opts.decisions, "decisions", false, "include the per-line rule decisions in the output")
	cmd.Flags().StringVar(&opts.xlsx, "xlsx", "", "also write the receipt as an XLSX workbook to this path")

	return cmd
}
