package dataset

import (
	"archive/zip"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/boddenberg/fintrack-go/internal/domain"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("dataset")

// Discover returns the first dataset file in dir (sorted by name), accepting
// .csv, .csv.gz and .zip archives. An empty path and a missing directory both
// mean "no dataset".
func Discover(dir string) (string, error) {
	if dir == "" {
		return "", nil
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", nil
		}
		return "", fmt.Errorf("read dataset dir: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	for _, name := range names {
		lower := strings.ToLower(name)
		if strings.HasSuffix(lower, ".csv") || strings.HasSuffix(lower, ".csv.gz") || strings.HasSuffix(lower, ".zip") {
			return filepath.Join(dir, name), nil
		}
	}
	return "", nil
}

// Initialize discovers and mines the dataset in dir. It returns (nil, nil)
// when no dataset is present.
func Initialize(ctx context.Context, dir string, now time.Time, logger *zap.Logger) (*domain.DatasetPatterns, error) {
	_, span := tracer.Start(ctx, "dataset.Initialize")
	defer span.End()

	path, err := Discover(dir)
	if err != nil {
		return nil, err
	}
	if path == "" {
		logger.Info("no reference dataset found", zap.String("dir", dir))
		return nil, nil
	}
	span.SetAttributes(attribute.String("dataset.path", path))

	rc, err := Open(path)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	start := time.Now()
	stats, err := ProcessDataset(rc)
	if err != nil {
		return nil, fmt.Errorf("process dataset %s: %w", filepath.Base(path), err)
	}

	logger.Info("reference dataset mined",
		zap.String("file", filepath.Base(path)),
		zap.Int("records", stats.TotalTransactions),
		zap.Float64("fraud_pct", stats.FraudPercentage),
		zap.Int("patterns", len(stats.Patterns)),
		zap.Int("high_risk_merchants", len(stats.HighRiskMerchants)),
		zap.Duration("took", time.Since(start)),
	)

	return FromStats(stats, filepath.Base(path), now), nil
}

// FromStats builds the cached snapshot from mined statistics.
func FromStats(stats *domain.DatasetStats, source string, now time.Time) *domain.DatasetPatterns {
	return &domain.DatasetPatterns{
		Patterns:                  stats.Patterns,
		TotalTransactionsAnalyzed: stats.TotalTransactions,
		FraudPercentage:           stats.FraudPercentage,
		HighRiskMerchants:         stats.HighRiskMerchants,
		CommonFraudIndicators:     stats.CommonFraudIndicators,
		LastUpdated:               now,
		Source:                    source,
	}
}

type multiCloser struct {
	io.Reader
	closers []io.Closer
}

func (m *multiCloser) Close() error {
	var errs []error
	for i := len(m.closers) - 1; i >= 0; i-- {
		if err := m.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Open returns a reader over the CSV in path, unpacking .csv.gz and the
// first .csv entry of a .zip archive.
func Open(path string) (io.ReadCloser, error) {
	lower := strings.ToLower(path)
	switch {
	case strings.HasSuffix(lower, ".zip"):
		zr, err := zip.OpenReader(path)
		if err != nil {
			return nil, fmt.Errorf("open dataset archive: %w", err)
		}
		for _, f := range zr.File {
			if f.FileInfo().IsDir() || !strings.HasSuffix(strings.ToLower(f.Name), ".csv") {
				continue
			}
			rc, err := f.Open()
			if err != nil {
				zr.Close()
				return nil, fmt.Errorf("open %s in archive: %w", f.Name, err)
			}
			return &multiCloser{Reader: rc, closers: []io.Closer{zr, rc}}, nil
		}
		zr.Close()
		return nil, fmt.Errorf("dataset archive %s contains no csv file", filepath.Base(path))

	case strings.HasSuffix(lower, ".gz"):
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open dataset: %w", err)
		}
		gz, err := gzip.NewReader(f)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("open gzip dataset: %w", err)
		}
		return &multiCloser{Reader: gz, closers: []io.Closer{f, gz}}, nil

	default:
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open dataset: %w", err)
		}
		return f, nil
	}
}
