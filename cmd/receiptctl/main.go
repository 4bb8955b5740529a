// Command receiptctl parses receipts from the command line: saved OCR
// responses, plain-text transcripts, or images sent through the OCR service.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
