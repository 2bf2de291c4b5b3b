package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"ats-evaluator/infrastructure"
	"ats-evaluator/usecase"
)

var exportFlags struct {
	format string
	output string
}

var exportCmd = &cobra.Command{
	Use:   "export JOB_DESCRIPTION_ID",
	Short: "Export the candidate ranking of a job description as CSV or XLSX",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseUint(args[0], 10, 0)
		if err != nil {
			return fmt.Errorf("invalid job description id %q", args[0])
		}

		format := strings.ToLower(exportFlags.format)
		if format != "csv" && format != "xlsx" {
			return fmt.Errorf("unsupported format %q (use csv or xlsx)", exportFlags.format)
		}
		if format == "xlsx" && exportFlags.output == "" {
			return fmt.Errorf("xlsx export needs --output")
		}

		cfg, log, err := loadConfig()
		if err != nil {
			return err
		}
		defer log.Sync() //nolint:errcheck

		store, closeDB, err := newStore(cfg, log)
		if err != nil {
			return err
		}
		defer closeDB() //nolint:errcheck

		ranking, err := usecase.NewHistory(store).Ranking(cmd.Context(), uint(id))
		if err != nil {
			return err
		}

		var w io.Writer = cmd.OutOrStdout()
		if exportFlags.output != "" {
			f, err := os.Create(exportFlags.output)
			if err != nil {
				return fmt.Errorf("creating %s: %w", exportFlags.output, err)
			}
			defer f.Close()
			w = f
		}

		if format == "xlsx" {
			err = infrastructure.ExportRankingXLSX(w, ranking.JobDescription, ranking.Candidates)
		} else {
			err = infrastructure.ExportRankingCSV(w, ranking.Candidates)
		}
		if err != nil {
			return err
		}

		log.Info("ranking exported",
			zap.Uint64("job_description_id", id),
			zap.Int("candidates", len(ranking.Candidates)),
			zap.String("format", format),
		)
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVarP(&exportFlags.format, "format", "f", "csv", "csv or xlsx")
	exportCmd.Flags().StringVarP(&exportFlags.output, "output", "o", "", "output file (default stdout, required for xlsx)")
}
