package procurement

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"

	"github.com/clinicore/clinicore/internal/platform/metrics"
)

type mockStore struct {
	numbers  map[DocType][]string
	counters map[DocType]int
	failWith error
}

func newMockStore() *mockStore {
	return &mockStore{
		numbers:  make(map[DocType][]string),
		counters: make(map[DocType]int),
	}
}

func (m *mockStore) LiveNumbers(_ context.Context, docType DocType) ([]string, error) {
	if m.failWith != nil {
		return nil, m.failWith
	}
	return m.numbers[docType], nil
}

func (m *mockStore) ClaimNext(_ context.Context, docType DocType, floor int) (int, error) {
	if m.failWith != nil {
		return 0, m.failWith
	}
	next := m.counters[docType] + 1
	if floor > next {
		next = floor
	}
	m.counters[docType] = next
	return next, nil
}

func (m *mockStore) LastValue(_ context.Context, docType DocType) (int, error) {
	if m.failWith != nil {
		return 0, m.failWith
	}
	return m.counters[docType], nil
}

func (m *mockStore) add(docType DocType, number string) {
	m.numbers[docType] = append(m.numbers[docType], number)
}

func newAllocator(store SequenceStore) (*Allocator, *metrics.Metrics) {
	m := metrics.New()
	return NewAllocator(store, m, zerolog.Nop()), m
}

func TestNextNumberFillsFirstGap(t *testing.T) {
	store := newMockStore()
	store.add(DocTypeGRN, "GRN-000001")
	store.add(DocTypeGRN, "GRN-000002")
	store.add(DocTypeGRN, "GRN-000004")
	alloc, _ := newAllocator(store)

	got := alloc.NextNumber(context.Background(), DocTypeGRN)
	if got != "GRN-000003" {
		t.Fatalf("NextNumber = %q, want GRN-000003", got)
	}
}

func TestNextNumberSequentialFromEmpty(t *testing.T) {
	store := newMockStore()
	alloc, _ := newAllocator(store)
	ctx := context.Background()

	for i := 1; i <= 100; i++ {
		got := alloc.NextNumber(ctx, DocTypeGRN)
		want := fmt.Sprintf("GRN-%06d", i)
		if got != want {
			t.Fatalf("call %d: NextNumber = %q, want %q", i, got, want)
		}
		store.add(DocTypeGRN, got)
	}
}

func TestNextNumberIgnoresMalformedSuffixes(t *testing.T) {
	store := newMockStore()
	store.add(DocTypeGRN, "GRN-000001")
	store.add(DocTypeGRN, "GRN-LEGACY")
	store.add(DocTypeGRN, "GRN-00000X")
	store.add(DocTypeGRN, "PO-000002")
	store.add(DocTypeGRN, "GRN-000002")
	alloc, _ := newAllocator(store)
	store.counters[DocTypeGRN] = 2

	got := alloc.NextNumber(context.Background(), DocTypeGRN)
	if got != "GRN-000003" {
		t.Fatalf("NextNumber = %q, want GRN-000003", got)
	}
}

func TestNextNumberDuplicateSuffixesCollapse(t *testing.T) {
	store := newMockStore()
	store.add(DocTypeGRN, "GRN-000001")
	store.add(DocTypeGRN, "GRN-000001")
	store.add(DocTypeGRN, "GRN-000003")
	alloc, _ := newAllocator(store)

	got := alloc.NextNumber(context.Background(), DocTypeGRN)
	if got != "GRN-000002" {
		t.Fatalf("NextNumber = %q, want GRN-000002", got)
	}
}

func TestNextNumberCounterNeverMovesBackwards(t *testing.T) {
	store := newMockStore()
	store.add(DocTypeGRN, "GRN-000001")
	store.counters[DocTypeGRN] = 7

	alloc, _ := newAllocator(store)
	got := alloc.NextNumber(context.Background(), DocTypeGRN)
	if got != "GRN-000008" {
		t.Fatalf("NextNumber = %q, want GRN-000008 from the advanced counter", got)
	}
}

func TestNextNumberRequestAndReturnNamespacesAreDistinct(t *testing.T) {
	store := newMockStore()
	store.add(DocTypePurchaseRequest, "PR-000001")
	store.add(DocTypePurchaseRequest, "PR-000002")
	alloc, _ := newAllocator(store)
	ctx := context.Background()

	// Both types display PR but count independently.
	if got := alloc.NextNumber(ctx, DocTypePurchaseRequest); got != "PR-000003" {
		t.Fatalf("purchase request NextNumber = %q, want PR-000003", got)
	}
	if got := alloc.NextNumber(ctx, DocTypePurchaseReturn); got != "PR-000001" {
		t.Fatalf("purchase return NextNumber = %q, want PR-000001", got)
	}
}

func TestNextNumberFallsBackOnStoreFailure(t *testing.T) {
	store := newMockStore()
	store.failWith = fmt.Errorf("connection refused")
	alloc, m := newAllocator(store)

	got := alloc.NextNumber(context.Background(), DocTypeGRN)
	if !strings.HasPrefix(got, "GRN-") {
		t.Fatalf("fallback number %q lost its prefix", got)
	}
	if _, ok := DocTypeGRN.ParseSuffix(got); !ok {
		t.Fatalf("fallback number %q has no numeric suffix", got)
	}
	if len(got) <= len("GRN-000000") {
		t.Fatalf("fallback number %q looks sequential, want a timestamp suffix", got)
	}

	fallbacks := testutil.ToFloat64(m.SequenceFallbacks.WithLabelValues(string(DocTypeGRN)))
	if fallbacks != 1 {
		t.Fatalf("sequence_fallback_total = %v, want 1", fallbacks)
	}
}

func TestParseSuffix(t *testing.T) {
	tests := []struct {
		docType DocType
		number  string
		want    int
		ok      bool
	}{
		{DocTypeGRN, "GRN-000042", 42, true},
		{DocTypeGRN, "GRN-7", 7, true},
		{DocTypeGRN, "PO-000042", 0, false},
		{DocTypeGRN, "GRN-", 0, false},
		{DocTypeGRN, "GRN-ABC", 0, false},
		{DocTypeGRN, "GRN-000000", 0, false},
		{DocTypeGRN, "GRN--00003", 0, false},
		{DocTypePurchaseOrder, "PO-000001", 1, true},
	}
	for _, tt := range tests {
		got, ok := tt.docType.ParseSuffix(tt.number)
		if got != tt.want || ok != tt.ok {
			t.Errorf("ParseSuffix(%s, %q) = (%d, %v), want (%d, %v)",
				tt.docType, tt.number, got, ok, tt.want, tt.ok)
		}
	}
}

func TestPeekNumberDoesNotClaim(t *testing.T) {
	store := newMockStore()
	alloc, _ := newAllocator(store)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		got, err := alloc.PeekNumber(ctx, DocTypeGRN)
		if err != nil {
			t.Fatalf("PeekNumber: %v", err)
		}
		if got != "GRN-000001" {
			t.Errorf("peek %d = %q, want GRN-000001", i+1, got)
		}
	}
	if store.counters[DocTypeGRN] != 0 {
		t.Errorf("counter advanced to %d by peeking", store.counters[DocTypeGRN])
	}
}

func TestPeekNumberReportsGapFirst(t *testing.T) {
	store := newMockStore()
	store.add(DocTypeGRN, "GRN-000001")
	store.add(DocTypeGRN, "GRN-000003")
	store.counters[DocTypeGRN] = 3
	alloc, _ := newAllocator(store)

	got, err := alloc.PeekNumber(context.Background(), DocTypeGRN)
	if err != nil {
		t.Fatalf("PeekNumber: %v", err)
	}
	if got != "GRN-000002" {
		t.Errorf("peek = %q, want GRN-000002", got)
	}
}

func TestPeekNumberFollowsCounterPastDeletedMax(t *testing.T) {
	// The max-numbered document was deleted: no interior gap remains and
	// the counter, which never rewinds, decides the next number.
	store := newMockStore()
	store.add(DocTypeGRN, "GRN-000001")
	store.counters[DocTypeGRN] = 2
	alloc, _ := newAllocator(store)

	got, err := alloc.PeekNumber(context.Background(), DocTypeGRN)
	if err != nil {
		t.Fatalf("PeekNumber: %v", err)
	}
	if got != "GRN-000003" {
		t.Errorf("peek = %q, want GRN-000003", got)
	}
}

func TestPeekNumberPropagatesStoreErrors(t *testing.T) {
	store := newMockStore()
	store.failWith = fmt.Errorf("connection refused")
	alloc, _ := newAllocator(store)

	if _, err := alloc.PeekNumber(context.Background(), DocTypeGRN); err == nil {
		t.Error("expected store error to propagate from peek")
	}
}

func TestLowestGap(t *testing.T) {
	store := newMockStore()
	store.add(DocTypePurchaseOrder, "PO-000001")
	store.add(DocTypePurchaseOrder, "PO-000002")
	store.add(DocTypePurchaseOrder, "PO-000005")
	alloc, _ := newAllocator(store)
	ctx := context.Background()

	gap, ok, err := alloc.LowestGap(ctx, DocTypePurchaseOrder)
	if err != nil {
		t.Fatalf("LowestGap: %v", err)
	}
	if !ok || gap != 3 {
		t.Errorf("gap = (%d, %v), want (3, true)", gap, ok)
	}

	if _, ok, err := alloc.LowestGap(ctx, DocTypeGRN); err != nil || ok {
		t.Errorf("expected no gap for empty type, got ok=%v err=%v", ok, err)
	}
}
