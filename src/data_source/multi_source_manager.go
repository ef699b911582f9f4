package datasource

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"usage-watch/src/interfaces"
	"usage-watch/src/logger"
	"usage-watch/src/models"

	"golang.org/x/sync/errgroup"
)

// MultiSourceManager reads several IReadingSource instances as one
type MultiSourceManager struct {
	Sources map[string]interfaces.IReadingSource
	Logger  *logger.Logger
	mu      sync.RWMutex
}

// -----------------------------------------------------------------------------

func NewMultiSourceManager(sources []interfaces.IReadingSource, log *logger.Logger) *MultiSourceManager {
	if log == nil {
		log = logger.NewLogger(nil, "MultiSourceManager")
	}
	m := &MultiSourceManager{
		Sources: make(map[string]interfaces.IReadingSource),
		Logger:  log,
	}

	for _, s := range sources {
		m.Sources[s.Name()] = s
	}

	return m
}

// -----------------------------------------------------------------------------

func (m *MultiSourceManager) Name() string {
	return "multi"
}

// -----------------------------------------------------------------------------

// AddSource registers a new source
func (m *MultiSourceManager) AddSource(source interfaces.IReadingSource) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	name := source.Name()
	if _, exists := m.Sources[name]; exists {
		return fmt.Errorf("source %s already exists", name)
	}

	m.Sources[name] = source
	m.Logger.Info("Added source: %s", name)
	return nil
}

// -----------------------------------------------------------------------------

// RemoveSource drops a source by name
func (m *MultiSourceManager) RemoveSource(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.Sources[name]; !exists {
		return fmt.Errorf("source %s not found", name)
	}

	delete(m.Sources, name)
	m.Logger.Info("Removed source: %s", name)
	return nil
}

// -----------------------------------------------------------------------------

// GetAllSources returns all sources ordered by name
func (m *MultiSourceManager) GetAllSources() []interfaces.IReadingSource {
	m.mu.RLock()
	defer m.mu.RUnlock()

	list := make([]interfaces.IReadingSource, 0, len(m.Sources))
	for _, s := range m.Sources {
		list = append(list, s)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Name() < list[j].Name() })
	return list
}

// -----------------------------------------------------------------------------

// ReadAll reads every source concurrently. Readings come back ordered by
// (customer, utility, period_start); a failing source fails the whole read.
func (m *MultiSourceManager) ReadAll(ctx context.Context) ([]models.MUsageReading, []error, error) {
	sources := m.GetAllSources()

	type result struct {
		readings []models.MUsageReading
		rowErrs  []error
	}
	results := make([]result, len(sources))

	g, gctx := errgroup.WithContext(ctx)
	for i, src := range sources {
		g.Go(func() error {
			readings, rowErrs, err := src.ReadAll(gctx)
			if err != nil {
				return fmt.Errorf("source %s: %w", src.Name(), err)
			}
			results[i] = result{readings: readings, rowErrs: rowErrs}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	var readings []models.MUsageReading
	var rowErrs []error
	for _, r := range results {
		readings = append(readings, r.readings...)
		rowErrs = append(rowErrs, r.rowErrs...)
	}

	sort.SliceStable(readings, func(i, j int) bool {
		a, b := readings[i], readings[j]
		if a.Key() != b.Key() {
			return a.Key().Less(b.Key())
		}
		return a.PeriodStart.Before(b.PeriodStart)
	})

	m.Logger.Info("Read %d readings (%d rejected rows) from %d sources", len(readings), len(rowErrs), len(sources))
	return readings, rowErrs, nil
}
