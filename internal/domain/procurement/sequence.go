package procurement

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/clinicore/clinicore/internal/platform/metrics"
)

// Allocator issues the next document number for a type. Gaps left by deleted
// documents are filled first; otherwise the number comes from an atomic
// counter claim, which is the uniqueness primitive under concurrent callers.
// The gap-scan itself is not race-safe: the partial unique index on live
// numbers is what rejects a doubly-issued gap, and the caller retries with a
// fresh computation.
//
// The allocator never blocks document creation. When the store is unavailable
// it degrades to a timestamp-suffixed number, unique but out of sequence.
type Allocator struct {
	store   SequenceStore
	metrics *metrics.Metrics
	log     zerolog.Logger
	now     func() time.Time
}

func NewAllocator(store SequenceStore, m *metrics.Metrics, log zerolog.Logger) *Allocator {
	return &Allocator{
		store:   store,
		metrics: m,
		log:     log,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// NextNumber computes the next number for the type. The error is always nil:
// internal failures degrade to the timestamp fallback instead of propagating.
func (a *Allocator) NextNumber(ctx context.Context, docType DocType) string {
	suffixes, err := a.liveSuffixes(ctx, docType)
	if err != nil {
		return a.fallback(docType, err)
	}

	if gap, ok := firstGap(suffixes); ok {
		return docType.FormatNumber(gap)
	}

	floor := 1
	if len(suffixes) > 0 {
		floor = suffixes[len(suffixes)-1] + 1
	}
	claimed, err := a.store.ClaimNext(ctx, docType, floor)
	if err != nil {
		return a.fallback(docType, err)
	}
	return docType.FormatNumber(claimed)
}

// PeekNumber reports the number NextNumber would issue without claiming it.
// Unlike NextNumber it propagates store errors, since a preview has no
// document creation to protect.
func (a *Allocator) PeekNumber(ctx context.Context, docType DocType) (string, error) {
	suffixes, err := a.liveSuffixes(ctx, docType)
	if err != nil {
		return "", err
	}
	if gap, ok := firstGap(suffixes); ok {
		return docType.FormatNumber(gap), nil
	}

	last, err := a.store.LastValue(ctx, docType)
	if err != nil {
		return "", err
	}
	next := last + 1
	if len(suffixes) > 0 && suffixes[len(suffixes)-1]+1 > next {
		next = suffixes[len(suffixes)-1] + 1
	}
	return docType.FormatNumber(next), nil
}

// LowestGap reports the lowest unissued number below the highest live one,
// if any. Used to audit how much of the range soft deletes have freed.
func (a *Allocator) LowestGap(ctx context.Context, docType DocType) (int, bool, error) {
	suffixes, err := a.liveSuffixes(ctx, docType)
	if err != nil {
		return 0, false, err
	}
	gap, ok := firstGap(suffixes)
	return gap, ok, nil
}

func (a *Allocator) liveSuffixes(ctx context.Context, docType DocType) ([]int, error) {
	numbers, err := a.store.LiveNumbers(ctx, docType)
	if err != nil {
		return nil, err
	}
	suffixes := make([]int, 0, len(numbers))
	for _, num := range numbers {
		if n, ok := docType.ParseSuffix(num); ok {
			suffixes = append(suffixes, n)
		}
	}
	sort.Ints(suffixes)
	return suffixes, nil
}

// firstGap scans the ascending suffixes expecting 1, 2, 3, ... and returns
// the first expected value that is missing. Duplicates collapse; a complete
// run reports no gap.
func firstGap(suffixes []int) (int, bool) {
	expected := 1
	for _, s := range suffixes {
		if s > expected {
			return expected, true
		}
		if s == expected {
			expected++
		}
	}
	return 0, false
}

func (a *Allocator) fallback(docType DocType, cause error) string {
	number := fmt.Sprintf("%s-%d", docType.Prefix(), a.now().UnixNano())
	a.log.Warn().
		Err(cause).
		Str("doc_type", string(docType)).
		Str("number", number).
		Msg("sequence store unavailable, issuing timestamp fallback number")
	if a.metrics != nil {
		a.metrics.SequenceFallbacks.WithLabelValues(string(docType)).Inc()
	}
	return number
}
