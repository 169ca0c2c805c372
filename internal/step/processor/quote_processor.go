// Package processor turns API rows into stored quote bars.
package processor

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/tigerroll/dayche/internal/domain/entity"
	"github.com/tigerroll/dayche/pkg/batch/engine/step/skip"
	"github.com/tigerroll/dayche/pkg/batch/support/util/exception"
	"github.com/tigerroll/dayche/pkg/batch/support/util/logger"
)

const ModuleQuoteProcessor = "QuoteProcessor"

var intradayLayouts = []string{"2006-01-02 15:04:05", "2006-01-02T15:04:05", "2006-01-02 15:04"}

// Stats counts what one Process call dropped.
type Stats struct {
	Skipped    int
	Duplicates int
}

// QuoteProcessor validates, normalises and deduplicates quote rows.
// API timestamps are read in the exchange location; stored times are UTC.
// The skip policy is shared by all calls on one processor, so the limit applies per run.
type QuoteProcessor struct {
	loc  *time.Location
	skip skip.SkipPolicy
	log  *logger.Logger
	now  func() time.Time
}

// NewQuoteProcessor creates a QuoteProcessor. An empty timezone means UTC.
// skipLimit malformed rows are tolerated before processing fails.
func NewQuoteProcessor(timezone string, skipLimit int, log *logger.Logger) (*QuoteProcessor, error) {
	if log == nil {
		log = logger.Discard()
	}
	if timezone == "" {
		timezone = "UTC"
	}
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, exception.NewBatchErrorf(ModuleQuoteProcessor, "unknown timezone '%s'", timezone, err)
	}
	return &QuoteProcessor{
		loc:  loc,
		skip: skip.NewDefaultSkipPolicyFactory().Create(skipLimit, nil),
		log:  log,
		now:  time.Now,
	}, nil
}

// ProcessEOD converts rows of symbol to EODQuotes ordered by trade date.
// Rows with the same trade date collapse into the last one.
func (p *QuoteProcessor) ProcessEOD(symbol string, records []entity.EODRecord) ([]entity.EODQuote, Stats, error) {
	var stats Stats
	symbol = normaliseSymbol(symbol)
	now := p.now().UTC()
	byDate := make(map[time.Time]int)
	var out []entity.EODQuote

	for i, rec := range records {
		day, err := time.ParseInLocation("2006-01-02", strings.TrimSpace(rec.Date), p.loc)
		if err == nil {
			err = validateBar(rec.Open, rec.High, rec.Low, rec.Close, rec.Volume)
		}
		if err != nil {
			if serr := p.handleMalformed(symbol, i, err); serr != nil {
				return nil, stats, serr
			}
			stats.Skipped++
			continue
		}

		if rec.Symbol != "" && normaliseSymbol(rec.Symbol) != symbol {
			p.log.Warnf("Row %d of %s carries symbol '%s'; storing under %s.", i, symbol, rec.Symbol, symbol)
		}
		q := entity.EODQuote{
			Symbol:        symbol,
			TradeDate:     time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC),
			Open:          rec.Open,
			High:          rec.High,
			Low:           rec.Low,
			Close:         rec.Close,
			Volume:        rec.Volume,
			Change:        rec.Change,
			ChangePercent: rec.ChangePercent,
			Vwap:          rec.Vwap,
			UpdatedAt:     now,
		}
		if idx, ok := byDate[q.TradeDate]; ok {
			out[idx] = q
			stats.Duplicates++
			continue
		}
		byDate[q.TradeDate] = len(out)
		out = append(out, q)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].TradeDate.Before(out[j].TradeDate) })
	return out, stats, nil
}

// ProcessIntraday converts rows of symbol to IntradayQuotes ordered by bucket.
// Timestamps are truncated to the interval; rows falling into the same bucket collapse into the last one.
func (p *QuoteProcessor) ProcessIntraday(symbol string, intervalSeconds int, records []entity.IntradayRecord) ([]entity.IntradayQuote, Stats, error) {
	var stats Stats
	if intervalSeconds <= 0 {
		return nil, stats, exception.NewBatchErrorf(ModuleQuoteProcessor, "invalid interval: %d seconds", intervalSeconds)
	}
	interval := time.Duration(intervalSeconds) * time.Second
	symbol = normaliseSymbol(symbol)
	now := p.now().UTC()
	byBucket := make(map[time.Time]int)
	var out []entity.IntradayQuote

	for i, rec := range records {
		ts, err := p.parseTimestamp(rec.Date)
		if err == nil {
			err = validateBar(rec.Open, rec.High, rec.Low, rec.Close, rec.Volume)
		}
		if err != nil {
			if serr := p.handleMalformed(symbol, i, err); serr != nil {
				return nil, stats, serr
			}
			stats.Skipped++
			continue
		}

		q := entity.IntradayQuote{
			Symbol:          symbol,
			IntervalSeconds: intervalSeconds,
			BucketStart:     ts.UTC().Truncate(interval),
			Open:            rec.Open,
			High:            rec.High,
			Low:             rec.Low,
			Close:           rec.Close,
			Volume:          rec.Volume,
			UpdatedAt:       now,
		}
		if idx, ok := byBucket[q.BucketStart]; ok {
			out[idx] = q
			stats.Duplicates++
			continue
		}
		byBucket[q.BucketStart] = len(out)
		out = append(out, q)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].BucketStart.Before(out[j].BucketStart) })
	return out, stats, nil
}

// Skipped returns the number of rows skipped by this processor so far.
func (p *QuoteProcessor) Skipped() int {
	return p.skip.GetSkipCount()
}

func (p *QuoteProcessor) parseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	var lastErr error
	for _, layout := range intradayLayouts {
		t, err := time.ParseInLocation(layout, s, p.loc)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}

func (p *QuoteProcessor) handleMalformed(symbol string, row int, cause error) error {
	err := exception.NewBatchError(ModuleQuoteProcessor, fmt.Sprintf("malformed row %d for %s", row, symbol), cause, true, false)
	if !p.skip.ShouldSkip(err) {
		if p.skip.GetSkipLimit() > 0 {
			return exception.NewBatchErrorf(ModuleQuoteProcessor, "skip limit of %d exceeded", p.skip.GetSkipLimit(), err)
		}
		return err
	}
	p.skip.IncrementSkipCount()
	p.log.Warnf("Skipping %v", err)
	return nil
}

func validateBar(open, high, low, close, volume float64) error {
	switch {
	case high < low:
		return fmt.Errorf("high %v below low %v", high, low)
	case open < 0 || close < 0 || low < 0:
		return fmt.Errorf("negative price")
	case volume < 0:
		return fmt.Errorf("negative volume %v", volume)
	}
	return nil
}

func normaliseSymbol(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}
