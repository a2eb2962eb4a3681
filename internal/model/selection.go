package model

// SelectionRecord is one backtest day: the selected symbols (rank order,
// best first) and the realized equal-weight strategy return. Only the
// columnar fields are persisted.
type SelectionRecord struct {
	Date        Date     `json:"date" parquet:"date,date"`
	StrategyRet float64  `json:"strategy_ret" parquet:"strategy_ret"`
	StockCount  int32    `json:"stock_count" parquet:"stock_count"`
	Codes       []string `json:"-" parquet:"-"`
}

// NavPoint is a SelectionRecord with the running net asset value.
type NavPoint struct {
	SelectionRecord
	CumNav float64 `json:"cum_nav" parquet:"cum_nav"`
}
