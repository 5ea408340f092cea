package postgres

import (
	"errors"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/Nikita-Hritsay/TeamUp/internal/domain"
	"github.com/Nikita-Hritsay/TeamUp/internal/repository"
)

type foreignPredicate struct{}

func (foreignPredicate) Match(domain.Card) bool { return false }

func TestRenderCardPredicatesEmpty(t *testing.T) {
	where, args, err := renderCardPredicates(repository.CardFilter{}.Predicates())
	if err != nil {
		t.Fatalf("render returned error: %v", err)
	}
	if where != "TRUE" || len(args) != 0 {
		t.Fatalf("expected TRUE with no args, got %q %v", where, args)
	}
}

func TestRenderCardPredicatesNumbersArguments(t *testing.T) {
	preds := repository.CardFilter{OwnerID: "u1", Title: "api", TeamID: "t1"}.Predicates()
	where, args, err := renderCardPredicates(preds)
	if err != nil {
		t.Fatalf("render returned error: %v", err)
	}
	want := `owner_id = $1 AND title ILIKE '%' || $2 || '%' ESCAPE '\' AND team_id = $3`
	if where != want {
		t.Fatalf("unexpected where\n got: %s\nwant: %s", where, want)
	}
	if len(args) != 3 || args[0] != "u1" || args[1] != "api" || args[2] != "t1" {
		t.Fatalf("unexpected args %v", args)
	}
}

func TestRenderCardPredicatesEscapesLikeMetacharacters(t *testing.T) {
	_, args, err := renderCardPredicates([]repository.CardPredicate{repository.TitleContains(`50%_off\`)})
	if err != nil {
		t.Fatalf("render returned error: %v", err)
	}
	if got := args[0].(string); got != `50\%\_off\\` {
		t.Fatalf("expected escaped pattern, got %q", got)
	}
}

func TestRenderCardPredicatesRejectsUnknownType(t *testing.T) {
	_, _, err := renderCardPredicates([]repository.CardPredicate{foreignPredicate{}})
	if err == nil || !strings.Contains(err.Error(), "unsupported card predicate") {
		t.Fatalf("expected unsupported predicate error, got %v", err)
	}
}

func TestMapErr(t *testing.T) {
	cases := []struct {
		name string
		in   error
		want error
	}{
		{"no rows", pgx.ErrNoRows, repository.ErrNotFound},
		{"unique", &pgconn.PgError{Code: "23505", ConstraintName: "team_members_active_team_user_uidx"}, repository.ErrDuplicate},
		{"foreign key", &pgconn.PgError{Code: "23503"}, repository.ErrNotFound},
		{"bad uuid", &pgconn.PgError{Code: "22P02"}, repository.ErrNotFound},
	}
	for _, tc := range cases {
		if got := mapErr(tc.in); !errors.Is(got, tc.want) {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, got)
		}
	}
	other := errors.New("boom")
	if got := mapErr(other); got != other {
		t.Fatalf("expected passthrough, got %v", got)
	}
	if mapErr(nil) != nil {
		t.Fatalf("expected nil for nil")
	}
}
