package sqlitestore

import (
	"slices"

	sq "github.com/Masterminds/squirrel"

	"github.com/rzbill/logbook/internal/model"
)

// buildQueryFilters turns a query into WHERE conditions. Untagged rows
// (NULL or empty tag) match when defaultTag is requested.
func buildQueryFilters(q model.Query, defaultTag string) []sq.Sqlizer {
	conds := []sq.Sqlizer{}

	if q.AfterID > 0 {
		conds = append(conds, sq.Gt{"id": q.AfterID})
	}
	if q.Start > 0 {
		conds = append(conds, sq.GtOrEq{"timestamp": q.Start})
	}
	if q.End > 0 {
		conds = append(conds, sq.LtOrEq{"timestamp": q.End})
	}
	if q.Level > 0 {
		if q.ExplicitLevel {
			conds = append(conds, sq.Eq{"level": int(q.Level)})
		} else {
			conds = append(conds, sq.GtOrEq{"level": int(q.Level)})
		}
	}
	if len(q.Tags) > 0 {
		byTag := sq.Eq{"tag": q.Tags}
		if slices.Contains(q.Tags, defaultTag) {
			conds = append(conds, sq.Or{byTag, sq.Eq{"tag": nil}, sq.Eq{"tag": ""}})
		} else {
			conds = append(conds, byTag)
		}
	}
	return conds
}

func buildDeleteFilters(q model.DeleteQuery) []sq.Sqlizer {
	conds := []sq.Sqlizer{}
	if q.Start > 0 {
		conds = append(conds, sq.GtOrEq{"timestamp": q.Start})
	}
	if q.End > 0 {
		conds = append(conds, sq.LtOrEq{"timestamp": q.End})
	}
	if q.MaxID > 0 {
		conds = append(conds, sq.LtOrEq{"id": q.MaxID})
	}
	return conds
}
