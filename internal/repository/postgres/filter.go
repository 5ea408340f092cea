package postgres

import (
	"fmt"
	"strings"

	"github.com/Nikita-Hritsay/TeamUp/internal/repository"
)

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// renderCardPredicates turns card predicates into a WHERE body and its
// positional arguments. An empty list renders as TRUE.
func renderCardPredicates(preds []repository.CardPredicate) (string, []any, error) {
	clauses := make([]string, 0, len(preds))
	args := make([]any, 0, len(preds))
	for _, pred := range preds {
		switch p := pred.(type) {
		case nil, repository.Always:
			continue
		case repository.OwnerIs:
			args = append(args, string(p))
			clauses = append(clauses, fmt.Sprintf("owner_id = $%d", len(args)))
		case repository.TeamIs:
			args = append(args, string(p))
			clauses = append(clauses, fmt.Sprintf("team_id = $%d", len(args)))
		case repository.TitleContains:
			args = append(args, likeEscaper.Replace(string(p)))
			clauses = append(clauses, fmt.Sprintf(`title ILIKE '%%' || $%d || '%%' ESCAPE '\'`, len(args)))
		default:
			return "", nil, fmt.Errorf("unsupported card predicate %T", pred)
		}
	}
	if len(clauses) == 0 {
		return "TRUE", args, nil
	}
	return strings.Join(clauses, " AND "), args, nil
}
