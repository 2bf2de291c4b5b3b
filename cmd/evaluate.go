package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"ats-evaluator/domain"
	"ats-evaluator/usecase"
)

var evaluateFlags struct {
	jobDescriptionID uint
	name             string
	email            string
}

var evaluateCmd = &cobra.Command{
	Use:   "evaluate RESUME",
	Short: "Evaluate one résumé file against a stored job description and print the result",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := loadConfig()
		if err != nil {
			return err
		}
		defer log.Sync() //nolint:errcheck

		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("reading resume: %w", err)
		}

		svc, err := newServices(cmd.Context(), cfg, log)
		if err != nil {
			return err
		}
		defer svc.Close() //nolint:errcheck

		report, err := svc.evaluator.Evaluate(cmd.Context(), usecase.Submission{
			Name:             evaluateFlags.name,
			Email:            evaluateFlags.email,
			JobDescriptionID: evaluateFlags.jobDescriptionID,
			ResumeName:       filepath.Base(args[0]),
			Resume:           data,
		})
		if err != nil {
			return err
		}

		out := struct {
			*domain.EvaluationResult
			Degraded bool     `json:"degraded"`
			Response string   `json:"response,omitempty"`
			Warnings []string `json:"warnings,omitempty"`
		}{EvaluationResult: report.Evaluation, Warnings: report.Warnings}
		if d, ok := report.Outcome.(*domain.Degraded); ok {
			out.Degraded = true
			out.Response = d.Response
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	},
}

func init() {
	evaluateCmd.Flags().UintVar(&evaluateFlags.jobDescriptionID, "job-description-id", 0, "id of the job description to evaluate against")
	evaluateCmd.Flags().StringVar(&evaluateFlags.name, "name", "", "candidate name")
	evaluateCmd.Flags().StringVar(&evaluateFlags.email, "email", "", "candidate email")
	_ = evaluateCmd.MarkFlagRequired("job-description-id")
	_ = evaluateCmd.MarkFlagRequired("name")
	_ = evaluateCmd.MarkFlagRequired("email")
}
