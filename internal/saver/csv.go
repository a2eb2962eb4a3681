package saver

import (
	"encoding/csv"
	"os"
	"strconv"

	"cn-alpha/internal/model"
)

// CSVSaver writes the nav curve as CSV (header: date,strategy_ret,cum_nav,stock_count).
type CSVSaver struct{}

func (CSVSaver) Extension() string { return "csv" }

func (CSVSaver) Save(points []model.NavPoint, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	w := csv.NewWriter(f)
	defer w.Flush()

	if err := w.Write([]string{"date", "strategy_ret", "cum_nav", "stock_count"}); err != nil {
		return err
	}
	for _, p := range points {
		if err := w.Write([]string{
			p.Date.String(),
			floatStr(p.StrategyRet),
			floatStr(p.CumNav),
			strconv.FormatInt(int64(p.StockCount), 10),
		}); err != nil {
			return err
		}
	}
	return w.Error()
}

func floatStr(f float64) string { return strconv.FormatFloat(f, 'f', -1, 64) }
