package notifier

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"QuantChannel/internal/model"
)

// FormatSignalAlert formats one actionable analysis record into a Telegram
// message. Only BUY/SELL records are worth alerting; callers filter HOLD.
func FormatSignalAlert(rec *model.AnalysisRecord) string {
	var b strings.Builder

	icon := "🟢"
	if rec.Signal == model.SignalSell {
		icon = "🔴"
	}
	b.WriteString(fmt.Sprintf("%s <b>%s</b> %s @ %s\n\n", icon, rec.Signal, rec.Symbol, rec.Interval))
	b.WriteString(fmt.Sprintf("Price: %.6g\n", rec.CurrentPrice))
	b.WriteString(fmt.Sprintf("Channel: %.6g - %.6g\n", rec.LowerBand, rec.UpperBand))
	b.WriteString(fmt.Sprintf("Potential move: %+.2f%%\n\n", rec.PotentialReturnPercent))

	b.WriteString(fmt.Sprintf("Backtest: %+.2f%% | Sharpe %.2f | DD %.2f%%\n",
		rec.Stats.TotalReturnPercent, rec.Stats.SharpeRatio, rec.Stats.MaxDrawdownPercent))
	b.WriteString(fmt.Sprintf("Fit: degree %d, kStd %.1f, lookback %d\n",
		rec.Degree, rec.KStd, rec.Lookback))
	b.WriteString(rec.AnalyzedAt.Format("2006-01-02 15:04 MST"))

	return b.String()
}

// FormatBatchSummary formats the end-of-run report: per-symbol outcome
// counts plus the failures with their reasons.
func FormatBatchSummary(runID string, succeeded int, failures map[string]string, elapsed time.Duration) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("📊 <b>Scan complete</b> | %s\n\n", time.Now().Format("2006-01-02 15:04")))
	b.WriteString(fmt.Sprintf("Run: %s\n", runID))
	b.WriteString(fmt.Sprintf("Succeeded: %d | Failed: %d | Elapsed: %s\n", succeeded, len(failures), elapsed.Round(time.Second)))

	if len(failures) > 0 {
		b.WriteString("\nFailed symbols:\n")
		symbols := make([]string, 0, len(failures))
		for s := range failures {
			symbols = append(symbols, s)
		}
		sort.Strings(symbols)
		for _, s := range symbols {
			b.WriteString(fmt.Sprintf("  %s: %s\n", s, failures[s]))
		}
	}
	return b.String()
}
