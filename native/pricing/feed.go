package pricing

import (
	"fmt"
	"sync"
)

// observationWindow bounds how many recent medians a pair retains. A purchase
// naming a median that has rotated out of the window is treated as stale.
const observationWindow = 8

// TableFeed is an in-process Feed fed by an external publisher. Precisions are
// fixed at registration; medians rotate through a bounded recent window.
type TableFeed struct {
	mu         sync.RWMutex
	precisions map[string]uint8
	medians    map[string][]uint64
}

func NewTableFeed() *TableFeed {
	return &TableFeed{
		precisions: make(map[string]uint8),
		medians:    make(map[string][]uint64),
	}
}

// RegisterPair fixes the quoted precision for a pair. Observations for
// unregistered pairs are dropped.
func (f *TableFeed) RegisterPair(pairID string, precision uint8) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.precisions[pairID] = precision
}

// Observe records a new median for the pair, evicting the oldest observation
// once the window is full.
func (f *TableFeed) Observe(pairID string, median uint64) error {
	if median == 0 {
		return fmt.Errorf("pricing: zero median for pair %s", pairID)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.precisions[pairID]; !ok {
		return fmt.Errorf("%w: %s", ErrUnsupportedPair, pairID)
	}
	window := append(f.medians[pairID], median)
	if len(window) > observationWindow {
		window = window[len(window)-observationWindow:]
	}
	f.medians[pairID] = window
	return nil
}

func (f *TableFeed) HasObservation(pairID string, median uint64) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	for _, seen := range f.medians[pairID] {
		if seen == median {
			return true
		}
	}
	return false
}

func (f *TableFeed) PairPrecision(pairID string) (uint8, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	precision, ok := f.precisions[pairID]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnsupportedPair, pairID)
	}
	return precision, nil
}
