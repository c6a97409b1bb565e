package store

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/parquet-go/parquet-go"
)

// ParquetStore exports daily performance records to Parquet files for
// offline research. Files are grouped by year under
// <DataDir>/performance/returns/<YYYY>.parquet.
type ParquetStore struct {
	DataDir string
}

// NewParquetStore creates a ParquetStore rooted at the given data directory.
func NewParquetStore(dataDir string) *ParquetStore {
	return &ParquetStore{DataDir: dataDir}
}

// returnRow is the on-disk Parquet schema for a daily return record.
type returnRow struct {
	Date           int64   `parquet:"date,timestamp(millisecond)"` // Unix ms, midnight UTC
	Return         float64 `parquet:"return"`
	PortfolioValue float64 `parquet:"portfolio_value"`
}

// WriteReturns appends return records to the yearly Parquet files, merging
// with any existing rows and deduplicating by date (new rows win).
func (s *ParquetStore) WriteReturns(records []ReturnRecord) error {
	if len(records) == 0 {
		return nil
	}

	groups := make(map[int][]returnRow)
	for _, rec := range records {
		day := rec.Date.UTC().Truncate(24 * time.Hour)
		groups[day.Year()] = append(groups[day.Year()], returnRow{
			Date:           day.UnixMilli(),
			Return:         rec.Return,
			PortfolioValue: rec.PortfolioValue,
		})
	}

	for year, rows := range groups {
		path := s.returnPath(year)
		existing, err := readParquetFile[returnRow](path)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("reading existing returns for %d: %w", year, err)
		}
		merged := mergeReturnRows(existing, rows)
		if err := writeParquetFile(path, merged); err != nil {
			return fmt.Errorf("writing returns for %d: %w", year, err)
		}
	}
	return nil
}

// ReadReturns reads all return records within [start, end], chronologically.
func (s *ParquetStore) ReadReturns(start, end time.Time) ([]ReturnRecord, error) {
	var out []ReturnRecord
	for year := start.Year(); year <= end.Year(); year++ {
		rows, err := readParquetFile[returnRow](s.returnPath(year))
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, fmt.Errorf("reading returns for %d: %w", year, err)
		}
		for _, r := range rows {
			ts := time.UnixMilli(r.Date).UTC()
			if ts.Before(start) || ts.After(end) {
				continue
			}
			out = append(out, ReturnRecord{Date: ts, Return: r.Return, PortfolioValue: r.PortfolioValue})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

// returnPath returns the filesystem path for a yearly return file.
// Layout: <dataDir>/performance/returns/<YYYY>.parquet
func (s *ParquetStore) returnPath(year int) string {
	return filepath.Join(s.DataDir, "performance", "returns", fmt.Sprintf("%d.parquet", year))
}

func writeParquetFile[T any](path string, records []T) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return parquet.WriteFile(path, records)
}

func readParquetFile[T any](path string) ([]T, error) {
	return parquet.ReadFile[T](path)
}

// mergeReturnRows deduplicates rows by date, preferring incoming rows over
// existing ones. Results are sorted by date.
func mergeReturnRows(existing, incoming []returnRow) []returnRow {
	seen := make(map[int64]returnRow, len(existing)+len(incoming))
	for _, r := range existing {
		seen[r.Date] = r
	}
	for _, r := range incoming {
		seen[r.Date] = r
	}

	merged := make([]returnRow, 0, len(seen))
	for _, r := range seen {
		merged = append(merged, r)
	}
	sort.Slice(merged, func(i, j int) bool { return merged[i].Date < merged[j].Date })
	return merged
}
