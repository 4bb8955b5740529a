package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/smartration/backend/internal/domain"
	"github.com/smartration/backend/internal/export"
	"github.com/smartration/backend/internal/usecase"
)

// rootOptions are flags shared by every subcommand
type rootOptions struct {
	configFile string
	verbose    bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "receiptctl",
		Short: "Parse grocery receipts into items, totals, store and date",
		Long: `receiptctl runs the SmartRation receipt parser outside the HTTP server.

Example Usage:
  receiptctl parse vision-response.json          # Parse a saved OCR response
  receiptctl parse receipt.txt --text            # Parse a plain-text transcript
  receiptctl scan photo.jpg --xlsx receipt.xlsx  # OCR an image and export it`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if !opts.verbose {
				log.SetOutput(io.Discard)
			}
		},
	}

	cmd.PersistentFlags().StringVar(&opts.configFile, "config", "", "path to a config file (default: search ./config.yaml, ./config, /etc/smartration)")
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "enable log output")

	cmd.AddCommand(newParseCmd(opts))
	cmd.AddCommand(newScanCmd(opts))

	return cmd
}

// writeRecord prints the record as indented JSON and optionally exports it
func writeRecord(out io.Writer, record *domain.ReceiptRecord, decisions []domain.LineDecision, xlsxPath string) error {
	doc := struct {
		Receipt   *domain.ReceiptRecord `json:"receipt"`
		Decisions []domain.LineDecision `json:"decisions,omitempty"`
	}{Receipt: record, Decisions: decisions}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return err
	}

	if xlsxPath == "" {
		return nil
	}

	data, err := export.NewReceiptExporter(usecase.NewItemCategorizer()).ReceiptXLSX(record)
	if err != nil {
		return err
	}
	if err := os.WriteFile(xlsxPath, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", xlsxPath, err)
	}
	fmt.Fprintf(os.Stderr, "Wrote %s\n", xlsxPath)
	return nil
}
