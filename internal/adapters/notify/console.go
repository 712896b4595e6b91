package notify

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/alejandrodnm/predtrader/internal/application/experiment"
	"github.com/alejandrodnm/predtrader/internal/domain"
	"github.com/olekukonko/tablewriter"
)

// Console implementa ports.Reporter.
type Console struct {
	out      io.Writer
	currency string
	model    string
}

// NewConsole crea un reporter que escribe a stdout.
func NewConsole(currency, model string) *Console {
	return &Console{out: os.Stdout, currency: currency, model: model}
}

// NewConsoleWriter crea un reporter para tests.
func NewConsoleWriter(w io.Writer) *Console {
	return &Console{out: w, currency: "$", model: "Linear regression (ridge, L-BFGS)"}
}

// Report imprime detalles del modelo, configuración, resultados y métricas.
func (c *Console) Report(_ context.Context, r *domain.ResultPayload) error {
	if r == nil {
		fmt.Fprintln(c.out, "no result to report")
		return nil
	}
	p := r.Params
	line := strings.Repeat("-", 55)

	fmt.Fprintf(c.out, "\n%s\n", strings.Repeat("=", 55))
	fmt.Fprintln(c.out, " STOCK PRICE PREDICTION & AUTO-TRADING BACKTEST")
	fmt.Fprintf(c.out, "%s\n", strings.Repeat("=", 55))

	fmt.Fprintf(c.out, "\nMODEL DETAILS\n%s\n", line)
	fmt.Fprintf(c.out, "Model Type           : %s\n", c.model)
	fmt.Fprintf(c.out, "Training Epochs      : %d\n", p.Epochs)
	fmt.Fprintf(c.out, "Input Window Size    : %d periods\n", p.Window)
	fmt.Fprintf(c.out, "Cached Predictor     : %s\n", yesNo(r.CacheHit))

	fmt.Fprintf(c.out, "\nTRADING CONFIGURATION\n%s\n", line)
	fmt.Fprintf(c.out, "Data Source          : %s\n", p.DataPath)
	fmt.Fprintf(c.out, "Initial Capital      : %s%s\n", c.currency, money(p.InitialBalance))
	fmt.Fprintln(c.out, "Trading Strategy     : Prediction-based Buy/Sell (1 unit per signal)")

	if n := len(r.Dates); n > 0 {
		fmt.Fprintf(c.out, "Simulated Periods    : %d (%s → %s)\n", n, r.Dates[0], r.Dates[n-1])
	}

	fmt.Fprintf(c.out, "\nSIMULATION RESULTS\n%s\n", line)
	tbl := tablewriter.NewWriter(c.out)
	tbl.Header("Metric", "Value")
	tbl.Append("Total Trades Executed", fmt.Sprintf("%d", r.TotalTrades))
	tbl.Append("Final Portfolio Value", c.currency+money(r.FinalValue))
	tbl.Append("Net Profit", c.currency+money(r.NetProfit))
	tbl.Append("Return on Investment", fmt.Sprintf("%.2f %%", r.ROI))
	tbl.Append("Sharpe Ratio", fmt.Sprintf("%.4f", r.SharpeRatio))
	tbl.Append("Max Drawdown", fmt.Sprintf("%.2f %%", r.MaxDrawdown))
	tbl.Render()

	if r.RunID != "" {
		fmt.Fprintf(c.out, "  run id: %s\n", r.RunID)
	}
	fmt.Fprintln(c.out)
	return nil
}

// PrintSweep imprime la tabla de resultados de un sweep, mejor ROI primero.
func (c *Console) PrintSweep(results []experiment.SweepResult) {
	if len(results) == 0 {
		fmt.Fprintln(c.out, "\n  No sweep results available.")
		return
	}

	fmt.Fprintf(c.out, "\n=== SWEEP: %d experiments ===\n", len(results))

	tbl := tablewriter.NewWriter(c.out)
	tbl.Header("#", "Epochs", "Window", "Trades", "Final", "ROI %", "Sharpe", "MaxDD %", "Cache", "Error")
	for i, s := range results {
		if s.Err != nil {
			tbl.Append(
				fmt.Sprintf("%d", i+1),
				fmt.Sprintf("%d", s.Params.Epochs),
				fmt.Sprintf("%d", s.Params.Window),
				"-", "-", "-", "-", "-", "-",
				truncate(s.Err.Error(), 40),
			)
			continue
		}
		r := s.Result
		tbl.Append(
			fmt.Sprintf("%d", i+1),
			fmt.Sprintf("%d", s.Params.Epochs),
			fmt.Sprintf("%d", s.Params.Window),
			fmt.Sprintf("%d", r.TotalTrades),
			c.currency+money(r.FinalValue),
			fmt.Sprintf("%.2f", r.ROI),
			fmt.Sprintf("%.4f", r.SharpeRatio),
			fmt.Sprintf("%.2f", r.MaxDrawdown),
			yesNo(r.CacheHit),
			"",
		)
	}
	tbl.Render()
	fmt.Fprintln(c.out)
}

// PrintHistory imprime los experimentos persistidos.
func (c *Console) PrintHistory(runs []domain.RunRecord) {
	if len(runs) == 0 {
		fmt.Fprintln(c.out, "\n  No runs recorded yet.")
		return
	}

	tbl := tablewriter.NewWriter(c.out)
	tbl.Header("When", "Data", "Epochs", "Window", "Trades", "ROI %", "Sharpe", "MaxDD %", "ID")
	for _, r := range runs {
		tbl.Append(
			r.CreatedAt.Local().Format("2006-01-02 15:04"),
			truncate(r.Params.DataPath, 30),
			fmt.Sprintf("%d", r.Params.Epochs),
			fmt.Sprintf("%d", r.Params.Window),
			fmt.Sprintf("%d", r.TotalTrades),
			fmt.Sprintf("%.2f", r.ROI),
			fmt.Sprintf("%.4f", r.SharpeRatio),
			fmt.Sprintf("%.2f", r.MaxDrawdown),
			shortID(r.ID),
		)
	}
	tbl.Render()
}

// --- helpers ---

// money formatea con separador de miles y 2 decimales: 12345.6 → 12,345.60.
func money(v float64) string {
	s := fmt.Sprintf("%.2f", v)
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")

	intPart, frac, _ := strings.Cut(s, ".")
	var sb strings.Builder
	for i, ch := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			sb.WriteByte(',')
		}
		sb.WriteRune(ch)
	}
	out := sb.String() + "." + frac
	if neg {
		return "-" + out
	}
	return out
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}

func shortID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8]
}
