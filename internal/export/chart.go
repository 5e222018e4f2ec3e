package export

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/theirongolddev/cashflow/internal/model"
)

// ErrTooFewDays is returned when a ledger is too short to plot.
var ErrTooFewDays = errors.New("balance chart needs at least two days")

// WriteBalanceChart renders the daily balance as a PNG line chart with the
// critical threshold and zero drawn as reference lines.
func WriteBalanceChart(w io.Writer, ledger []model.DayRecord, threshold float64) error {
	if len(ledger) < 2 {
		return ErrTooFewDays
	}

	xs := make([]time.Time, len(ledger))
	ys := make([]float64, len(ledger))
	for i, d := range ledger {
		xs[i] = d.Date
		ys[i] = d.Balance
	}
	ends := []time.Time{xs[0], xs[len(xs)-1]}

	graph := chart.Chart{
		Title:  "Saldo diario",
		Width:  1200,
		Height: 600,
		Background: chart.Style{
			Padding: chart.Box{
				Top:    50,
				Left:   50,
				Right:  50,
				Bottom: 50,
			},
			FillColor: chart.ColorWhite,
		},
		XAxis: chart.XAxis{
			ValueFormatter: chart.TimeValueFormatterWithFormat("01-02"),
			Style: chart.Style{
				FontSize:  10,
				FontColor: chart.ColorBlack,
			},
		},
		YAxis: chart.YAxis{
			ValueFormatter: func(v interface{}) string {
				if f, ok := v.(float64); ok {
					return fmt.Sprintf("%.0f", f)
				}
				return ""
			},
			Style: chart.Style{
				FontSize:  10,
				FontColor: chart.ColorBlack,
			},
		},
		Series: []chart.Series{
			chart.TimeSeries{
				Name:    "Saldo",
				XValues: xs,
				YValues: ys,
				Style: chart.Style{
					StrokeColor: chart.ColorBlue,
					StrokeWidth: 2,
				},
			},
			chart.TimeSeries{
				Name:    fmt.Sprintf("Umbral crítico (%.0f)", threshold),
				XValues: ends,
				YValues: []float64{threshold, threshold},
				Style: chart.Style{
					StrokeColor:     chart.ColorRed,
					StrokeWidth:     1,
					StrokeDashArray: []float64{5.0, 5.0},
				},
			},
			chart.TimeSeries{
				Name:    "Cero",
				XValues: ends,
				YValues: []float64{0, 0},
				Style: chart.Style{
					StrokeColor: drawing.ColorFromHex("575653"),
					StrokeWidth: 1,
				},
			},
		},
	}
	graph.Elements = []chart.Renderable{
		chart.Legend(&graph, chart.Style{
			FontSize:  10,
			FontColor: chart.ColorBlack,
		}),
	}

	if err := graph.Render(chart.PNG, w); err != nil {
		return fmt.Errorf("rendering balance chart: %w", err)
	}
	return nil
}

// SaveBalanceChart writes the balance chart to path. A failed render leaves
// no partial file behind.
func SaveBalanceChart(path string, ledger []model.DayRecord, threshold float64) error {
	f, err := os.Create(path) //nolint:gosec // user-chosen output path
	if err != nil {
		return fmt.Errorf("creating chart file: %w", err)
	}
	if err := WriteBalanceChart(f, ledger, threshold); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return err
	}
	return f.Close()
}
