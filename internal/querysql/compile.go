package querysql

import (
	"fmt"
	"strings"

	"github.com/roach88/chatlog/internal/chat"
)

// MessageColumns is the column list selected for an archived message, in the
// order ScanMessage expects.
const MessageColumns = "id, channel_id, channel_type, subgroup, is_broadcast, timestamp, " +
	"account_name, character_name, text, game_start"

// searchableFields are matched by the free-text fragment, OR-combined.
var searchableFields = []string{"account_name", "character_name", "text"}

var comparisonOps = map[string]bool{"<": true, "<=": true, ">": true, ">=": true}

// CompileSearch builds the parameterized SELECT for one search page.
//
// The statement asks for BatchSize+1 rows so the caller can detect whether
// another page exists without a COUNT query. Rows are ordered newest first
// with id as the tiebreaker, so pages never overlap.
//
// All values are bound as parameters; none are interpolated.
func CompileSearch(q chat.SearchQuery) (string, []any, error) {
	if q.BatchSize <= 0 {
		return "", nil, fmt.Errorf("batch size must be positive, got %d", q.BatchSize)
	}
	if q.BatchSize > chat.MaxBatchSize {
		return "", nil, fmt.Errorf("batch size %d exceeds maximum %d", q.BatchSize, chat.MaxBatchSize)
	}
	if q.Offset < 0 {
		return "", nil, fmt.Errorf("offset must not be negative, got %d", q.Offset)
	}

	where, params, err := compilePredicate(SearchPredicate(q))
	if err != nil {
		return "", nil, fmt.Errorf("compile filter: %w", err)
	}

	sql := fmt.Sprintf("SELECT %s FROM messages WHERE %s ORDER BY timestamp DESC, id DESC LIMIT ? OFFSET ?",
		MessageColumns, where)
	params = append(params, q.BatchSize+1, q.Offset)

	return sql, params, nil
}

// SearchPredicate returns the WHERE tree for q. Only filters that are set
// contribute a term.
func SearchPredicate(q chat.SearchQuery) Predicate {
	var terms []Predicate

	if text := chat.NormalizeText(q.Text); text != "" {
		var anyOf []Predicate
		for _, f := range searchableFields {
			anyOf = append(anyOf, Contains{Field: f, Substring: text})
		}
		terms = append(terms, Or{Predicates: anyOf})
	}
	if q.Kind != nil {
		terms = append(terms, Equals{Field: "channel_type", Value: q.Kind.String()})
	}
	if q.Account != "" {
		terms = append(terms, Equals{Field: "account_name", Value: chat.NormalizeText(q.Account)})
	}
	if q.Since != nil {
		terms = append(terms, Compare{Field: "timestamp", Op: ">=", Value: *q.Since})
	}
	if q.Until != nil {
		terms = append(terms, Compare{Field: "timestamp", Op: "<=", Value: *q.Until})
	}

	return And{Predicates: terms}
}

// compilePredicate compiles p to a WHERE fragment and its parameters.
func compilePredicate(p Predicate) (string, []any, error) {
	if p == nil {
		return "1 = 1", nil, nil
	}

	switch pred := p.(type) {
	case Equals:
		return pred.Field + " = ?", []any{pred.Value}, nil
	case Contains:
		return pred.Field + ` LIKE ? ESCAPE '\'`, []any{"%" + escapeLike(pred.Substring) + "%"}, nil
	case Compare:
		if !comparisonOps[pred.Op] {
			return "", nil, fmt.Errorf("unsupported comparison operator %q", pred.Op)
		}
		return fmt.Sprintf("%s %s ?", pred.Field, pred.Op), []any{pred.Value}, nil
	case And:
		return compileJunction(pred.Predicates, " AND ", "1 = 1")
	case Or:
		return compileJunction(pred.Predicates, " OR ", "1 = 0")
	default:
		return "", nil, fmt.Errorf("unsupported predicate type: %T", p)
	}
}

// compileJunction joins compiled children with sep. Children are
// parenthesized so mixed AND/OR trees keep their grouping.
func compileJunction(preds []Predicate, sep, empty string) (string, []any, error) {
	if len(preds) == 0 {
		return empty, nil, nil
	}

	var parts []string
	var params []any
	for _, pred := range preds {
		sql, ps, err := compilePredicate(pred)
		if err != nil {
			return "", nil, err
		}
		if len(preds) > 1 {
			sql = "(" + sql + ")"
		}
		parts = append(parts, sql)
		params = append(params, ps...)
	}

	return strings.Join(parts, sep), params, nil
}

// escapeLike escapes LIKE metacharacters using backslash as the escape.
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
