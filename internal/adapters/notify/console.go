package notify

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/alejandrodnm/arrivalmarket/internal/domain"
	"github.com/olekukonko/tablewriter"
)

// Labels da nombre a cada lado del mercado en el output.
type Labels struct {
	Buyers  string
	Sellers string
}

// DefaultLabels devuelve "buyers" / "sellers".
func DefaultLabels() Labels {
	return Labels{Buyers: "buyers", Sellers: "sellers"}
}

// Console implementa ports.Reporter.
type Console struct {
	out    io.Writer
	rows   int
	labels Labels
}

// NewConsole crea un reporter que escribe a stdout.
func NewConsole(rows int, labels Labels) *Console {
	return NewConsoleWriter(os.Stdout, rows, labels)
}

// NewConsoleWriter crea un reporter sobre cualquier writer (tests, archivos).
func NewConsoleWriter(w io.Writer, rows int, labels Labels) *Console {
	if rows <= 0 {
		rows = 20
	}
	if labels.Buyers == "" {
		labels.Buyers = "buyers"
	}
	if labels.Sellers == "" {
		labels.Sellers = "sellers"
	}
	return &Console{out: w, rows: rows, labels: labels}
}

// ReportRun imprime el resumen de la simulación, la historia de profundidad
// (submuestreada a c.rows filas) y los últimos clearings.
func (c *Console) ReportRun(run domain.RunRecord) error {
	p, st := run.Params, run.Stats
	fmt.Fprintf(c.out, "\n=== RUN %s ===\n", run.ID)
	fmt.Fprintf(c.out, "  seed=%d  horizon=%.2f  strategy=%s\n", p.Seed, p.Horizon, p.Strategy)
	fmt.Fprintf(c.out, "  rates: %s=%.3f/t  %s=%.3f/t\n", c.labels.Buyers, p.BuyerRate, c.labels.Sellers, p.SellerRate)
	fmt.Fprintf(c.out, "  arrivals: %s=%d  %s=%d\n", c.labels.Buyers, st.BuyerArrivals, c.labels.Sellers, st.SellerArrivals)
	fmt.Fprintf(c.out, "  clearings=%d  matched=%d  avg_price=%s\n", st.Clearings, st.Matched, fmtPrice(st.AvgPrice, st.Matched > 0))

	peakB, peakS := run.History.PeakDepth()
	if last, ok := run.History.Last(); ok {
		fmt.Fprintf(c.out, "  waiting at t=%.2f: %s=%d  %s=%d  (peak %d / %d)\n",
			last.Time, c.labels.Buyers, last.Buyers, c.labels.Sellers, last.Sellers, peakB, peakS)
	}

	if len(run.History) > 0 {
		fmt.Fprintf(c.out, "\n  --- MARKET DEPTH (%d of %d samples) ---\n", min(c.rows, len(run.History)), len(run.History))
		tbl := tablewriter.NewWriter(c.out)
		tbl.Header("t", c.labels.Buyers, c.labels.Sellers)
		for _, smp := range run.History.Downsample(c.rows) {
			tbl.Append(
				fmt.Sprintf("%.3f", smp.Time),
				fmt.Sprintf("%d", smp.Buyers),
				fmt.Sprintf("%d", smp.Sellers),
			)
		}
		if err := tbl.Render(); err != nil {
			return fmt.Errorf("notify.ReportRun: render history: %w", err)
		}
	}

	if len(run.Matches) > 0 {
		recent := run.Matches
		if len(recent) > c.rows {
			recent = recent[len(recent)-c.rows:]
		}
		fmt.Fprintf(c.out, "\n  --- CLEARINGS (last %d of %d) ---\n", len(recent), len(run.Matches))
		tbl := tablewriter.NewWriter(c.out)
		tbl.Header("#", "t", "Price", "Interval", "Qty", c.labels.Buyers, c.labels.Sellers)
		for _, m := range recent {
			tbl.Append(
				fmt.Sprintf("%d", m.Seq),
				fmt.Sprintf("%.3f", m.Time),
				fmt.Sprintf("%.4f", m.Price),
				m.Interval.String(),
				fmt.Sprintf("%d", m.Quantity()),
				joinValues(m.Buyers, 4),
				joinValues(m.Sellers, 4),
			)
		}
		if err := tbl.Render(); err != nil {
			return fmt.Errorf("notify.ReportRun: render clearings: %w", err)
		}
	}
	fmt.Fprintln(c.out)
	return nil
}

// ReportClearing imprime el resultado de un clearing puntual.
func (c *Console) ReportClearing(buyers, sellers []float64, strategy domain.Strategy, ci domain.ClearingInterval, err error) error {
	fmt.Fprintf(c.out, "%s: %s\n", c.labels.Buyers, joinValues(buyers, 0))
	fmt.Fprintf(c.out, "%s: %s\n", c.labels.Sellers, joinValues(sellers, 0))
	fmt.Fprintf(c.out, "strategy: %s\n", strategy)

	switch {
	case errors.Is(err, domain.ErrNoSolution):
		fmt.Fprintln(c.out, "clearing price interval: none")
		fmt.Fprintln(c.out, "midpoint clearing price: none")
		return nil
	case err != nil:
		fmt.Fprintf(c.out, "clearing failed: %v\n", err)
		return nil
	}
	fmt.Fprintf(c.out, "clearing price interval: %s\n", ci)
	fmt.Fprintf(c.out, "midpoint clearing price: %.6g\n", ci.Midpoint())
	return nil
}

// ReportRuns imprime el listado de simulaciones guardadas.
func (c *Console) ReportRuns(runs []domain.RunRecord) error {
	if len(runs) == 0 {
		fmt.Fprintln(c.out, "No runs stored")
		return nil
	}
	tbl := tablewriter.NewWriter(c.out)
	tbl.Header("ID", "Started", "Seed", "Horizon", "Strategy", "Arrivals", "Clearings", "Matched", "AvgPrice")
	for _, r := range runs {
		tbl.Append(
			r.ID,
			r.StartedAt.Format("2006-01-02 15:04:05"),
			fmt.Sprintf("%d", r.Params.Seed),
			fmt.Sprintf("%.2f", r.Params.Horizon),
			r.Params.Strategy.String(),
			fmt.Sprintf("%d/%d", r.Stats.BuyerArrivals, r.Stats.SellerArrivals),
			fmt.Sprintf("%d", r.Stats.Clearings),
			fmt.Sprintf("%d", r.Stats.Matched),
			fmtPrice(r.Stats.AvgPrice, r.Stats.Matched > 0),
		)
	}
	if err := tbl.Render(); err != nil {
		return fmt.Errorf("notify.ReportRuns: render: %w", err)
	}
	return nil
}

// joinValues formatea valuaciones separadas por coma. Con limit > 0 corta y
// añade "..." (+n).
func joinValues(values []float64, limit int) string {
	if len(values) == 0 {
		return "-"
	}
	shown := values
	if limit > 0 && len(values) > limit {
		shown = values[:limit]
	}
	parts := make([]string, len(shown))
	for i, v := range shown {
		parts[i] = fmt.Sprintf("%.4g", v)
	}
	s := strings.Join(parts, ", ")
	if len(shown) < len(values) {
		s += fmt.Sprintf(", ... (+%d)", len(values)-len(shown))
	}
	return s
}

func fmtPrice(p float64, ok bool) string {
	if !ok {
		return "-"
	}
	return fmt.Sprintf("%.4f", p)
}
