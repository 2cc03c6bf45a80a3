package cli

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"crypto-scalper/internal/engine"
	"crypto-scalper/internal/models"
	"crypto-scalper/internal/store"
	"crypto-scalper/pkg/utils"
)

const (
	defaultListLimit = 20
	maxListLimit     = 200
)

// loadState reads the persisted state without touching the broker.
func loadState(ctx context.Context, app *App) (*store.State, error) {
	st, err := engine.OpenStore(app.Config)
	if err != nil {
		return nil, err
	}
	defer st.Close()

	state, err := st.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading state: %w", err)
	}
	state.Configure(engine.StateLimits(app.Config.Risk), nil)
	return state, nil
}

// clampLimit bounds a list size to [1, maxListLimit].
func clampLimit(n int) int {
	return max(1, min(n, maxListLimit))
}

func newStatusCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the engine state as of the last tick",
		RunE: func(cmd *cobra.Command, args []string) error {
			state, err := loadState(cmd.Context(), app)
			if err != nil {
				return err
			}
			status := engine.BuildStatus(app.Config.Bot.Mode, state, nil)

			output := NewOutput(cmd)
			if output.IsJSON() {
				return output.JSON(status)
			}
			printStatus(output, status, time.Now())
			return nil
		},
	}
}

func printStatus(output *Output, s engine.Status, now time.Time) {
	output.Bold("Scalper (%s)", s.Mode)
	output.Printf("  Equity:           %s", utils.FormatUSD(s.Equity))
	if s.InitialCapital > 0 {
		output.Printf("  (%s since start)", output.FormatRatio(s.Equity/s.InitialCapital-1))
	}
	output.Println()
	output.Printf("  Initial capital:  %s\n", utils.FormatUSD(s.InitialCapital))
	output.Printf("  Entries today:    %d\n", s.DailyCount)

	switch {
	case s.Paused:
		output.Printf("  Entries:          %s\n", output.Yellow("paused"))
	case s.EntriesBlocked(now):
		output.Printf("  Entries:          %s until %s\n", output.Red("paused (daily loss)"), s.PausedUntil.Local().Format(time.Kitchen))
	default:
		output.Printf("  Entries:          %s\n", output.Green("active"))
	}

	if s.LastTickAt != nil {
		output.Printf("  Last tick:        %s ago\n", utils.FormatDuration(now.Sub(*s.LastTickAt)))
	} else {
		output.Printf("  Last tick:        %s\n", output.DimText("never"))
	}
	if s.LastError != "" {
		output.Printf("  Last error:       %s\n", output.Red(s.LastError))
	}
	output.Println()

	if ec := s.Enrichment; ec != nil {
		printEnrichment(output, ec)
	}

	output.Bold("Open scalps")
	if len(s.OpenScalps) == 0 {
		output.Dim("  none")
	} else {
		table := NewTable(output, "SYMBOL", "ENTRY", "QTY", "NOTIONAL", "TP", "SL", "HELD", "EXPIRES IN")
		for _, p := range s.OpenScalps {
			table.AddRow(
				p.Symbol.String(),
				utils.FormatPrice(p.EntryPrice),
				utils.FormatQty(p.Qty),
				utils.FormatUSD(p.Notional),
				utils.FormatPrice(p.TakeProfitPrice),
				utils.FormatPrice(p.StopLossPrice),
				utils.FormatDuration(now.Sub(p.EntryTime)),
				utils.FormatDuration(p.MaxHoldUntil.Sub(now)),
			)
		}
		table.Render()
	}
	output.Println()

	printSignals(output, s)
	output.Println()
	printMetrics(output, s.Metrics)
}

func printEnrichment(output *Output, ec *models.EnrichmentContext) {
	var parts []string
	if fg := ec.FearGreed; fg != nil {
		parts = append(parts, fmt.Sprintf("fear/greed %d (%s)", fg.Value, fg.Classification))
	}
	if r := ec.Regime; r != nil {
		parts = append(parts, fmt.Sprintf("regime %s %.0f%%", r.Regime, r.Confidence*100))
	}
	if n := len(ec.FundingRates); n > 0 {
		parts = append(parts, fmt.Sprintf("%d funding rates", n))
	}
	if n := len(ec.Sentiments); n > 0 {
		parts = append(parts, fmt.Sprintf("%d sentiment scores", n))
	}
	if len(parts) == 0 {
		return
	}
	output.Printf("  Context:          %s\n\n", strings.Join(parts, ", "))
}

func printSignals(output *Output, s engine.Status) {
	output.Bold("Signals")
	if len(s.Signals) == 0 {
		output.Dim("  no signals yet")
		return
	}
	table := NewTable(output, "SYMBOL", "PRICE", "SCORE", "ACTION", "TOP INDICATOR")
	for _, sig := range s.Signals {
		table.AddRow(
			sig.Symbol.String(),
			utils.FormatPrice(sig.Price),
			output.FormatScore(sig.Score),
			output.Action(sig.Action),
			topIndicator(sig.Indicators),
		)
	}
	table.Render()
}

// topIndicator names the indicator with the largest weighted contribution.
func topIndicator(scores []models.IndicatorScore) string {
	if len(scores) == 0 {
		return "-"
	}
	best := scores[0]
	for _, s := range scores[1:] {
		if abs(s.Weighted) > abs(best.Weighted) {
			best = s
		}
	}
	return fmt.Sprintf("%s %+.3f", best.Name, best.Weighted)
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

func newMetricsCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "metrics",
		Short: "Show closed scalp statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			state, err := loadState(cmd.Context(), app)
			if err != nil {
				return err
			}
			report := buildReport(state.ClosedScalps)

			output := NewOutput(cmd)
			if output.IsJSON() {
				return output.JSON(report)
			}
			printMetrics(output, report.ScalpMetrics)
			if len(report.ByReason) > 0 {
				output.Println()
				table := NewTable(output, "EXIT REASON", "COUNT", "PNL")
				for _, r := range report.ByReason {
					table.AddRow(output.ExitReason(r.Reason), fmt.Sprint(r.Count), output.FormatPnL(r.PnL))
				}
				table.Render()
			}
			if len(report.BySymbol) > 0 {
				output.Println()
				table := NewTable(output, "SYMBOL", "SCALPS", "WIN RATE", "PNL")
				for _, r := range report.BySymbol {
					table.AddRow(r.Symbol.String(), fmt.Sprint(r.Metrics.TotalScalps),
						fmt.Sprintf("%.1f%%", r.Metrics.WinRate*100), output.FormatPnL(r.Metrics.TotalPnL))
				}
				table.Render()
			}
			return nil
		},
	}
}

func printMetrics(output *Output, m models.ScalpMetrics) {
	output.Bold("Performance")
	if m.TotalScalps == 0 {
		output.Dim("  no closed scalps")
		return
	}
	output.Printf("  Scalps:           %d (%d wins, %d losses)\n", m.TotalScalps, m.Wins, m.Losses)
	output.Printf("  Win rate:         %.1f%%\n", m.WinRate*100)
	output.Printf("  Total P&L:        %s\n", output.FormatPnL(m.TotalPnL))
	output.Printf("  Average P&L:      %s\n", output.FormatPnL(m.AvgPnL))
	output.Printf("  Best / worst:     %s / %s\n", output.FormatPnL(m.BestPnL), output.FormatPnL(m.WorstPnL))
	output.Printf("  Average hold:     %s\n", utils.FormatDuration(time.Duration(m.AvgDurationMs)*time.Millisecond))
}

// Report breaks closed scalp metrics down by exit reason and symbol.
type Report struct {
	models.ScalpMetrics
	ByReason []ReasonStats `json:"by_reason"`
	BySymbol []SymbolStats `json:"by_symbol"`
}

// ReasonStats counts exits for one reason.
type ReasonStats struct {
	Reason models.ExitReason `json:"reason"`
	Count  int               `json:"count"`
	PnL    float64           `json:"pnl"`
}

// SymbolStats aggregates one symbol's closed scalps.
type SymbolStats struct {
	Symbol  models.Symbol       `json:"symbol"`
	Metrics models.ScalpMetrics `json:"metrics"`
}

func buildReport(closed []models.ClosedScalp) Report {
	r := Report{ScalpMetrics: store.ComputeMetrics(closed)}

	reasons := make(map[models.ExitReason]*ReasonStats)
	symbols := make(map[models.Symbol][]models.ClosedScalp)
	for _, c := range closed {
		rs, ok := reasons[c.ExitReason]
		if !ok {
			rs = &ReasonStats{Reason: c.ExitReason}
			reasons[c.ExitReason] = rs
		}
		rs.Count++
		rs.PnL += c.PnL
		symbols[c.Symbol] = append(symbols[c.Symbol], c)
	}

	for _, rs := range reasons {
		r.ByReason = append(r.ByReason, *rs)
	}
	sort.Slice(r.ByReason, func(i, j int) bool {
		if r.ByReason[i].Count != r.ByReason[j].Count {
			return r.ByReason[i].Count > r.ByReason[j].Count
		}
		return r.ByReason[i].Reason < r.ByReason[j].Reason
	})

	for sym, list := range symbols {
		r.BySymbol = append(r.BySymbol, SymbolStats{Symbol: sym, Metrics: store.ComputeMetrics(list)})
	}
	sort.Slice(r.BySymbol, func(i, j int) bool { return r.BySymbol[i].Symbol < r.BySymbol[j].Symbol })
	return r
}

func newTradesCmd(app *App) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "trades",
		Short: "List recently closed scalps",
		RunE: func(cmd *cobra.Command, args []string) error {
			state, err := loadState(cmd.Context(), app)
			if err != nil {
				return err
			}
			closed := lastN(state.ClosedScalps, clampLimit(limit))

			output := NewOutput(cmd)
			if output.IsJSON() {
				return output.JSON(closed)
			}
			if len(closed) == 0 {
				output.Dim("No closed scalps")
				return nil
			}
			table := NewTable(output, "EXITED", "SYMBOL", "ENTRY", "EXIT", "PNL", "RETURN", "HELD", "REASON")
			for i := len(closed) - 1; i >= 0; i-- {
				c := closed[i]
				table.AddRow(
					c.ExitTime.Local().Format("01-02 15:04:05"),
					c.Symbol.String(),
					utils.FormatPrice(c.EntryPrice),
					utils.FormatPrice(c.ExitPrice),
					output.FormatPnL(c.PnL),
					output.FormatRatio(c.PnLPct),
					utils.FormatDuration(time.Duration(c.DurationMs)*time.Millisecond),
					output.ExitReason(c.ExitReason),
				)
			}
			table.Render()
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", defaultListLimit, "number of scalps to show (max 200)")
	return cmd
}

func newJournalCmd(app *App) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "journal",
		Short: "Show generated trade journal entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			state, err := loadState(cmd.Context(), app)
			if err != nil {
				return err
			}
			entries := lastN(state.Journal, clampLimit(limit))

			output := NewOutput(cmd)
			if output.IsJSON() {
				return output.JSON(entries)
			}
			if len(entries) == 0 {
				output.Dim("No journal entries")
				return nil
			}
			for i := len(entries) - 1; i >= 0; i-- {
				e := entries[i]
				side := output.Green(strings.ToUpper(string(e.Side)))
				if e.Side == models.OrderSideSell {
					side = output.Red(strings.ToUpper(string(e.Side)))
				}
				output.Printf("%s  %s %s @ %s  %s\n",
					e.Timestamp.Local().Format("2006-01-02 15:04:05"), side, e.Symbol,
					utils.FormatPrice(e.Price), output.DimText(e.Reason))
				if e.MarketContext != "" {
					output.Printf("  %s\n", output.DimText(e.MarketContext))
				}
				output.Printf("  %s\n\n", e.Analysis)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", defaultListLimit, "number of entries to show (max 200)")
	return cmd
}

func lastN[T any](items []T, n int) []T {
	if len(items) <= n {
		return items
	}
	return items[len(items)-n:]
}
