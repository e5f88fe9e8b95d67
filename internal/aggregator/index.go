package aggregator

import (
	"sort"
	"time"

	"github.com/jeovahfialho/pnl-recap/internal/domain"
)

// EntryIndex is an ordered date -> entry lookup. Keys are YYYY-MM-DD
// strings; iteration always follows calendar order, never input order.
type EntryIndex struct {
	byDate map[string]domain.TradeEntry
	keys   []string
}

// NewEntryIndex indexes entries by calendar day. A user logs at most one
// entry per day; should duplicates slip through, the entry with the greatest
// ID wins so the outcome does not depend on input order.
func NewEntryIndex(entries []domain.TradeEntry) *EntryIndex {
	idx := &EntryIndex{byDate: make(map[string]domain.TradeEntry, len(entries))}

	for _, e := range entries {
		key := e.DateKey()
		prev, exists := idx.byDate[key]
		if exists && prev.ID > e.ID {
			continue
		}
		idx.byDate[key] = e
	}

	idx.keys = make([]string, 0, len(idx.byDate))
	for k := range idx.byDate {
		idx.keys = append(idx.keys, k)
	}
	sort.Strings(idx.keys)

	return idx
}

func (idx *EntryIndex) Len() int {
	return len(idx.keys)
}

func (idx *EntryIndex) Get(day time.Time) (domain.TradeEntry, bool) {
	e, ok := idx.byDate[domain.DateKey(day)]
	return e, ok
}

// Between returns the entries whose date lies in [from, to], in date order.
func (idx *EntryIndex) Between(from, to time.Time) []domain.TradeEntry {
	lo, hi := domain.DateKey(from), domain.DateKey(to)
	start := sort.SearchStrings(idx.keys, lo)

	var out []domain.TradeEntry
	for _, k := range idx.keys[start:] {
		if k > hi {
			break
		}
		out = append(out, idx.byDate[k])
	}
	return out
}

// Entries returns every indexed entry in date order.
func (idx *EntryIndex) Entries() []domain.TradeEntry {
	out := make([]domain.TradeEntry, 0, len(idx.keys))
	for _, k := range idx.keys {
		out = append(out, idx.byDate[k])
	}
	return out
}
