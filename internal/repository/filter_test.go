package repository

import (
	"errors"
	"testing"

	"github.com/Nikita-Hritsay/TeamUp/internal/domain"
)

func TestTitleContainsIsCaseInsensitiveSubstring(t *testing.T) {
	pred := TitleFilter("foo")
	cases := map[string]bool{
		"Foo Bar":      true,
		"Food Project": true,
		"my FOO":       true,
		"Bar":          false,
		"fo o":         false,
	}
	for title, want := range cases {
		if got := pred.Match(domain.Card{Title: title}); got != want {
			t.Fatalf("TitleFilter(foo).Match(%q) = %v, want %v", title, got, want)
		}
	}
}

func TestAbsentFiltersWidenResults(t *testing.T) {
	preds := CardFilter{}.Predicates()
	if len(preds) != 3 {
		t.Fatalf("expected three predicates, got %d", len(preds))
	}
	for i, p := range preds {
		if _, ok := p.(Always); !ok {
			t.Fatalf("predicate %d should be Always for an empty filter, got %T", i, p)
		}
	}
	if !MatchAll(domain.Card{Title: "anything"}, preds) {
		t.Fatalf("empty filter must match every card")
	}
	if !MatchAll(domain.Card{}, nil) {
		t.Fatalf("no predicates must match every card")
	}
}

func TestPredicatesCombineWithAnd(t *testing.T) {
	preds := CardFilter{OwnerID: "u1", Title: "api", TeamID: "t1"}.Predicates()
	match := domain.Card{OwnerID: "u1", TeamID: "t1", Title: "Public API"}
	if !MatchAll(match, preds) {
		t.Fatalf("expected %+v to match", match)
	}
	for _, miss := range []domain.Card{
		{OwnerID: "u2", TeamID: "t1", Title: "Public API"},
		{OwnerID: "u1", TeamID: "t2", Title: "Public API"},
		{OwnerID: "u1", TeamID: "t1", Title: "Website"},
	} {
		if MatchAll(miss, preds) {
			t.Fatalf("expected %+v not to match", miss)
		}
	}
}

func TestNewPageRequestValidates(t *testing.T) {
	if _, err := NewPageRequest(-1, 10); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument for negative page, got %v", err)
	}
	if _, err := NewPageRequest(0, -3); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument for negative size, got %v", err)
	}
	req, err := NewPageRequest(2, 0)
	if err != nil {
		t.Fatalf("NewPageRequest returned error: %v", err)
	}
	if req.Size != DefaultPageSize || req.Offset() != 2*DefaultPageSize {
		t.Fatalf("unexpected request %+v", req)
	}
}

func TestSliceComputesTotals(t *testing.T) {
	rows := make([]int, 15)
	for i := range rows {
		rows[i] = i
	}
	first := Slice(rows, PageRequest{Number: 0, Size: 10})
	second := Slice(rows, PageRequest{Number: 1, Size: 10})
	beyond := Slice(rows, PageRequest{Number: 5, Size: 10})

	if len(first.Content) != 10 || len(second.Content) != 5 || len(beyond.Content) != 0 {
		t.Fatalf("unexpected page sizes %d %d %d", len(first.Content), len(second.Content), len(beyond.Content))
	}
	if first.TotalPages != 2 || first.TotalElements != 15 {
		t.Fatalf("unexpected totals %+v", first)
	}
	if first.Last() || !second.Last() {
		t.Fatalf("unexpected last flags")
	}
	if second.Content[0] != 10 || second.Content[4] != 14 {
		t.Fatalf("unexpected second page content %v", second.Content)
	}
}

func TestNewPageEmpty(t *testing.T) {
	p := NewPage[int](nil, PageRequest{Size: 10}, 0)
	if p.TotalPages != 0 || p.Content == nil {
		t.Fatalf("unexpected empty page %+v", p)
	}
}
