package model

// Bar represents one symbol-day OHLCV observation of the long-format panel.
// Shared by ingest, panel storage and serialization (json, parquet).
// Unique on (Code, Date); float32 is enough precision for prices and halves
// the panel's footprint.
type Bar struct {
	Date     Date    `json:"date" parquet:"date,date"`
	Code     string  `json:"code" parquet:"code"`
	Open     float32 `json:"open" parquet:"open"`
	High     float32 `json:"high" parquet:"high"`
	Low      float32 `json:"low" parquet:"low"`
	Close    float32 `json:"close" parquet:"close"`
	Volume   float32 `json:"volume" parquet:"volume"`
	Turnover float32 `json:"turnover" parquet:"turnover"`
}

// BarKey identifies a bar inside the panel.
type BarKey struct {
	Code string
	Date Date
}

func (b Bar) Key() BarKey { return BarKey{Code: b.Code, Date: b.Date} }

// Less orders bars by (code, date), the panel's canonical sort order.
func (b Bar) Less(o Bar) bool {
	if b.Code != o.Code {
		return b.Code < o.Code
	}
	return b.Date < o.Date
}
