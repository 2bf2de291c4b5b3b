package infrastructure

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"ats-evaluator/domain"

	"github.com/xuri/excelize/v2"
)

var exportHeader = []string{"Rank", "Name", "Email", "MatchPercent", "Summary"}

const (
	rankingSheet = "Ranking"
	jobSheet     = "Job Description"
)

// ExportRankingCSV writes one row per ranked evaluation under the Rank,Name,Email,MatchPercent,Summary
// header. MatchPercent is written as a bare integer.
func ExportRankingCSV(w io.Writer, ranked []domain.RankedEvaluation) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(exportHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, r := range ranked {
		if err := cw.Write(exportRow(r)); err != nil {
			return fmt.Errorf("write csv row %d: %w", r.Rank, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func exportRow(r domain.RankedEvaluation) []string {
	return []string{
		strconv.Itoa(r.Rank),
		r.Evaluation.Name,
		r.Evaluation.Email,
		strconv.Itoa(r.Evaluation.MatchPercent.Int()),
		r.Evaluation.Summary,
	}
}

// ExportRankingXLSX writes a workbook with the ranking sheet and a sheet describing the job.
func ExportRankingXLSX(w io.Writer, jd domain.JobDescription, ranked []domain.RankedEvaluation) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", rankingSheet); err != nil {
		return err
	}
	if _, err := f.NewSheet(jobSheet); err != nil {
		return err
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}

	if err := f.SetSheetRow(rankingSheet, "A1", &exportHeader); err != nil {
		return err
	}
	if err := f.SetCellStyle(rankingSheet, "A1", "E1", headerStyle); err != nil {
		return err
	}

	for i, r := range ranked {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := []any{
			r.Rank,
			r.Evaluation.Name,
			r.Evaluation.Email,
			r.Evaluation.MatchPercent.Int(),
			r.Evaluation.Summary,
		}
		if err := f.SetSheetRow(rankingSheet, cell, &row); err != nil {
			return fmt.Errorf("write ranking row %d: %w", r.Rank, err)
		}
	}

	_ = f.SetColWidth(rankingSheet, "A", "A", 8)
	_ = f.SetColWidth(rankingSheet, "B", "C", 28)
	_ = f.SetColWidth(rankingSheet, "D", "D", 14)
	_ = f.SetColWidth(rankingSheet, "E", "E", 80)

	labelStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	details := [][]any{
		{"Title", jd.Title},
		{"Description", jd.Description},
		{"Candidates", len(ranked)},
		{"Generated", time.Now().Format("2006-01-02 15:04:05")},
	}
	for i, row := range details {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(jobSheet, cell, &row); err != nil {
			return err
		}
		if err := f.SetCellStyle(jobSheet, cell, cell, labelStyle); err != nil {
			return err
		}
	}
	_ = f.SetColWidth(jobSheet, "A", "A", 16)
	_ = f.SetColWidth(jobSheet, "B", "B", 80)

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}
