// Package report writes backtest results to an XLSX workbook.
package report

import (
	"fmt"
	"math"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/okian/panelfactor/internal/domain/backtest"
	"github.com/okian/panelfactor/internal/domain/types"
)

// Sheet names, in workbook order.
const (
	SheetSummary     = "Summary"
	SheetPnL         = "PnL"
	SheetEdge        = "Edge"
	SheetIC          = "IC"
	SheetMispricings = "Mispricings"
)

// Report is the content of one backtest workbook.
type Report struct {
	RunID       string
	Generated   time.Time
	Summary     backtest.Summary
	PnL         []backtest.PnLRow
	Edge        []backtest.EdgeRow
	IC          []backtest.ICRow
	Mispricings []types.Mispricing
}

// Write saves r to path, replacing any existing file.
func Write(path string, r Report) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetSummary); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	for _, name := range []string{SheetPnL, SheetEdge, SheetIC, SheetMispricings} {
		if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("create sheet %s: %w", name, err)
		}
	}

	writers := []struct {
		sheet string
		rows  [][]any
	}{
		{SheetSummary, summaryRows(r)},
		{SheetPnL, pnlRows(r.PnL)},
		{SheetEdge, edgeRows(r.Edge)},
		{SheetIC, icRows(r.IC)},
		{SheetMispricings, mispricingRows(r.Mispricings)},
	}
	for _, w := range writers {
		if err := writeRows(f, w.sheet, w.rows); err != nil {
			return err
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	return nil
}

func writeRows(f *excelize.File, sheet string, rows [][]any) error {
	for i := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &rows[i]); err != nil {
			return fmt.Errorf("write %s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}

// num leaves missing values as empty cells.
func num(v float64) any {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return v
}

func day(t time.Time) string { return t.Format(time.DateOnly) }

func summaryRows(r Report) [][]any {
	s := r.Summary
	rows := [][]any{
		{"metric", "value"},
		{"run_id", r.RunID},
		{"generated", r.Generated.UTC().Format(time.RFC3339)},
		{"bets", s.Bets},
		{"wins", s.Wins},
		{"hit_ratio", num(s.HitRatio)},
		{"mean_payoff", num(s.MeanPayoff)},
		{"mean_winning_payoff", num(s.MeanWinningPayoff)},
		{"max_win_streak", s.MaxWinStreak},
		{"max_loss_streak", s.MaxLossStreak},
		{"mean_win_streak", num(s.MeanWinStreak)},
		{"mean_loss_streak", num(s.MeanLossStreak)},
		{"total_profit", num(s.TotalProfit)},
	}
	for _, season := range s.Seasons() {
		rows = append(rows, []any{"profit_" + season, num(s.ProfitBySeason[season])})
	}
	return rows
}

func pnlRows(in []backtest.PnLRow) [][]any {
	rows := [][]any{{"division", "season", "date", "team", "outcome", "odds", "weight", "result", "payoff", "cumulative"}}
	for _, p := range in {
		rows = append(rows, []any{
			p.Division, p.Season, day(p.Date), p.Team, p.Outcome,
			num(p.Odds), num(p.Weight), num(p.Result), num(p.Payoff), num(p.Cumulative),
		})
	}
	return rows
}

func edgeRows(in []backtest.EdgeRow) [][]any {
	rows := [][]any{{"division", "season", "factor", "outcome", "bucket", "count", "hits", "hit_ratio"}}
	for _, e := range in {
		rows = append(rows, []any{e.Division, e.Season, e.Factor, e.Outcome, e.Bucket, e.Count, num(e.Hits), num(e.HitRatio)})
	}
	return rows
}

func icRows(in []backtest.ICRow) [][]any {
	rows := [][]any{{"division", "season", "factor", "pairs", "ic"}}
	for _, ic := range in {
		rows = append(rows, []any{ic.Division, ic.Season, ic.Factor, ic.Pairs, num(ic.IC)})
	}
	return rows
}

func mispricingRows(in []types.Mispricing) [][]any {
	rows := [][]any{{"division", "season", "date", "team", "implied_probability", "market_probability", "edge"}}
	for _, m := range in {
		rows = append(rows, []any{
			m.Division, m.Season, day(m.Date), m.Team,
			num(m.ImpliedProbability), num(m.MarketProbability), num(m.Edge()),
		})
	}
	return rows
}
