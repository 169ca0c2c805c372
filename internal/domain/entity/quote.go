// Package entity holds the quote records of the API, the database and the exports.
package entity

import "time"

// EODRecord is one row of the historical-price-eod endpoint.
type EODRecord struct {
	Symbol        string   `json:"symbol"`
	Date          string   `json:"date"`
	Open          float64  `json:"open"`
	High          float64  `json:"high"`
	Low           float64  `json:"low"`
	Close         float64  `json:"close"`
	Volume        float64  `json:"volume"`
	Change        *float64 `json:"change"`
	ChangePercent *float64 `json:"changePercent"`
	Vwap          *float64 `json:"vwap"`
}

// IntradayRecord is one row of the historical-chart endpoint.
type IntradayRecord struct {
	Date   string  `json:"date"`
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume float64 `json:"volume"`
}

// EODQuote is a stored end-of-day bar, unique by (symbol, trade_date).
// TradeDate is the calendar date in the exchange location at 00:00 UTC.
type EODQuote struct {
	Symbol        string    `gorm:"column:symbol;primaryKey"`
	TradeDate     time.Time `gorm:"column:trade_date;primaryKey"`
	Open          float64   `gorm:"column:open"`
	High          float64   `gorm:"column:high"`
	Low           float64   `gorm:"column:low"`
	Close         float64   `gorm:"column:close"`
	Volume        float64   `gorm:"column:volume"`
	Change        *float64  `gorm:"column:change"`
	ChangePercent *float64  `gorm:"column:change_percent"`
	Vwap          *float64  `gorm:"column:vwap"`
	UpdatedAt     time.Time `gorm:"column:updated_at;autoUpdateTime:false"`
}

// TableName specifies the table name for EODQuote.
func (EODQuote) TableName() string {
	return "eod_quotes"
}

// IntradayQuote is a stored intraday bar, unique by (symbol, interval_seconds, bucket_start).
type IntradayQuote struct {
	Symbol          string    `gorm:"column:symbol;primaryKey"`
	IntervalSeconds int       `gorm:"column:interval_seconds;primaryKey"`
	BucketStart     time.Time `gorm:"column:bucket_start;primaryKey"`
	Open            float64   `gorm:"column:open"`
	High            float64   `gorm:"column:high"`
	Low             float64   `gorm:"column:low"`
	Close           float64   `gorm:"column:close"`
	Volume          float64   `gorm:"column:volume"`
	UpdatedAt       time.Time `gorm:"column:updated_at;autoUpdateTime:false"`
}

// TableName specifies the table name for IntradayQuote.
func (IntradayQuote) TableName() string {
	return "intraday_quotes"
}

var (
	// EODConflictColumns is the natural key of eod_quotes.
	EODConflictColumns = []string{"symbol", "trade_date"}
	// EODUpdateColumns are overwritten when an EOD bar is ingested again.
	EODUpdateColumns = []string{"open", "high", "low", "close", "volume", "change", "change_percent", "vwap", "updated_at"}
	// IntradayConflictColumns is the natural key of intraday_quotes.
	IntradayConflictColumns = []string{"symbol", "interval_seconds", "bucket_start"}
	// IntradayUpdateColumns are overwritten when an intraday bar is ingested again.
	IntradayUpdateColumns = []string{"open", "high", "low", "close", "volume", "updated_at"}
)

// EODQuoteExport is the Parquet row of an EOD bar.
type EODQuoteExport struct {
	Symbol        string   `parquet:"name=symbol, type=BYTE_ARRAY, convertedtype=UTF8"`
	TradeDate     int64    `parquet:"name=trade_date, type=INT64, convertedtype=TIMESTAMP_MILLIS"`
	Open          float64  `parquet:"name=open, type=DOUBLE"`
	High          float64  `parquet:"name=high, type=DOUBLE"`
	Low           float64  `parquet:"name=low, type=DOUBLE"`
	Close         float64  `parquet:"name=close, type=DOUBLE"`
	Volume        float64  `parquet:"name=volume, type=DOUBLE"`
	Change        *float64 `parquet:"name=change, type=DOUBLE, repetitiontype=OPTIONAL"`
	ChangePercent *float64 `parquet:"name=change_percent, type=DOUBLE, repetitiontype=OPTIONAL"`
	Vwap          *float64 `parquet:"name=vwap, type=DOUBLE, repetitiontype=OPTIONAL"`
}

// ToExport converts q to its Parquet row.
func (q EODQuote) ToExport() EODQuoteExport {
	return EODQuoteExport{
		Symbol:        q.Symbol,
		TradeDate:     q.TradeDate.UnixMilli(),
		Open:          q.Open,
		High:          q.High,
		Low:           q.Low,
		Close:         q.Close,
		Volume:        q.Volume,
		Change:        q.Change,
		ChangePercent: q.ChangePercent,
		Vwap:          q.Vwap,
	}
}
