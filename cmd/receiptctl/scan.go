package main

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/smartration/backend/config"
	"github.com/smartration/backend/internal/domain"
	"github.com/smartration/backend/internal/infrastructure/cache"
	"github.com/smartration/backend/internal/infrastructure/imageprep"
	"github.com/smartration/backend/internal/infrastructure/vision"
	"github.com/smartration/backend/internal/usecase"
)

type scanOptions struct {
	xlsx    string
	timeout time.Duration
}

func newScanCmd(root *rootOptions) *cobra.Command {
	opts := &scanOptions{}

	cmd := &cobra.Command{
		Use:   "scan IMAGE",
		Short: "Send a receipt image through OCR and parse it",
		Long: `Scan loads the service configuration (SMARTRATION_* environment, .env,
config.yaml), sends IMAGE to the OCR service and prints the parsed receipt.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadFile(root.configFile)
			if err != nil {
				return err
			}

			image, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read %s: %w", args[0], err)
			}

			visionClient := vision.NewClient(vision.Config{
				APIKey:            cfg.Vision.APIKey,
				BaseURL:           cfg.Vision.BaseURL,
				Timeout:           cfg.Vision.Timeout,
				RequestsPerMinute: cfg.Vision.RequestsPerMinute,
				MaxResults:        cfg.Vision.MaxResults,
			})
			visionClient.SetDebug(root.verbose)

			var preprocessor domain.ImagePreprocessor
			if cfg.Parser.PreprocessImages {
				preprocessor = imageprep.New(imageprep.DefaultConfig)
			}

			memoryCache := cache.NewMemoryCache(cache.DefaultCleanupInterval)
			defer memoryCache.Close()

			service := usecase.NewReceiptService(visionClient, memoryCache, preprocessor, usecase.ReceiptServiceConfig{
				MaxImageBytes: cfg.Parser.MaxImageMB << 20,
				Parser: usecase.ParserConfig{
					LineTolerance:      cfg.Parser.LineTolerance,
					CollapseRepeats:    cfg.Parser.CollapseRepeats,
					EnableDebugLogging: root.verbose,
				},
			})

			ctx, cancel := context.WithTimeout(cmd.Context(), opts.timeout)
			defer cancel()

			result, err := service.Scan(ctx, &domain.ScanRequest{Image: base64.StdEncoding.EncodeToString(image)})
			if err != nil {
				return err
			}

			return writeRecord(cmd.OutOrStdout(), &result.Receipt, nil, opts.xlsx)
		},
	}

	cmd.Flags().StringVar(&opts.xlsx, "xlsx", "", "also write the receipt as an XLSX workbook to this path")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 2*time.Minute, "overall deadline for the OCR request")

	return cmd
}
