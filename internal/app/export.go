package app

import (
	"context"
	"encoding/csv"
	"errors"
	"os"
	"path/filepath"
	"time"

	chart "github.com/wcharczuk/go-chart/v2"

	"github.com/bonzoholda/shitbot-metrics-tracker/internal/storage"
	"github.com/bonzoholda/shitbot-metrics-tracker/internal/wallet"
)

// Export renders a wallet's series as CSV and/or PNG.
func (a *App) Export(ctx context.Context, opts ExportOptions) error {
	if opts.CSVPath == "" && opts.PNGPath == "" {
		return errors.New("at least one of --csv or --png must be provided")
	}

	walletAddr, err := wallet.Normalize(opts.Wallet)
	if err != nil {
		return err
	}

	maxPoints := a.Config.ResolveMaxPoints(opts.MaxPoints)

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	baseline, err := store.Baseline(ctx, walletAddr)
	if err != nil {
		return err
	}

	points, err := store.RecentWindow(ctx, walletAddr, maxPoints)
	if err != nil {
		return err
	}
	if len(points) == 0 {
		a.Logger.Info().Str("wallet", walletAddr).Msg("no samples found for export")
		return nil
	}

	a.Logger.Info().Int("points", len(points)).Str("wallet", walletAddr).Msg("exporting series")

	if opts.CSVPath != "" {
		if err := writeSeriesCSV(opts.CSVPath, points); err != nil {
			return err
		}
	}

	if opts.PNGPath != "" {
		if err := writeSeriesPNG(opts.PNGPath, walletAddr, points, baseline.InexactFloat64()); err != nil {
			return err
		}
	}

	return nil
}

func writeSeriesCSV(path string, points []storage.SeriesPoint) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	if err := writer.Write([]string{"timestamp", "portfolio_value"}); err != nil {
		return err
	}

	for _, point := range points {
		record := []string{
			point.Timestamp.UTC().Format(time.RFC3339),
			point.Value.String(),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	return writer.Error()
}

func writeSeriesPNG(path, walletAddr string, points []storage.SeriesPoint, baseline float64) error {
	if len(points) < 2 {
		return errors.New("need at least two points to render a chart")
	}
	if err := ensureDir(path); err != nil {
		return err
	}

	x := make([]time.Time, len(points))
	values := make([]float64, len(points))
	baselineValues := make([]float64, len(points))

	for i, point := range points {
		x[i] = point.Timestamp
		values[i] = point.Value.InexactFloat64()
		baselineValues[i] = baseline
	}

	valueFormatter := func(v interface{}) string {
		return chart.FloatValueFormatterWithFormat(v, "%.2f")
	}
	graph := chart.Chart{
		Title:  "Portfolio " + walletAddr,
		Width:  1280,
		Height: 720,
		XAxis: chart.XAxis{
			ValueFormatter: chart.TimeValueFormatter,
		},
		YAxis: chart.YAxis{
			Name:           "Portfolio value",
			ValueFormatter: valueFormatter,
		},
		Series: []chart.Series{
			chart.TimeSeries{
				Name:    "Portfolio",
				XValues: x,
				YValues: values,
			},
			chart.TimeSeries{
				Name:    "Baseline",
				XValues: x,
				YValues: baselineValues,
				Style: chart.Style{
					StrokeDashArray: []float64{5.0, 5.0},
				},
			},
		},
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	return graph.Render(chart.PNG, file)
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
