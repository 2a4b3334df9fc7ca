package store

import "sort"

// PageParams is the cursor-based pagination contract every name- or
// id-paginated list operation accepts (spec.md §4.2, §9 "Polymorphism"):
// list_vpcs/list_subnet_nics and friends share the structural contract
// { key_column, cursor, limit } regardless of which column they page by.
type PageParams struct {
	// KeyColumn selects the total order to page over: "id" or "name".
	// Empty defaults to "id".
	KeyColumn string
	// Cursor is the last key_column value seen on the previous page; rows
	// with a key_column value <= Cursor are skipped. Empty starts at the
	// beginning.
	Cursor string
	// Limit bounds the page size. Zero or negative means "no limit".
	Limit int
}

// Paginate sorts rows by the column PageParams names (falling back to id),
// skips everything at or before Cursor, and truncates to Limit, returning
// the cursor a caller should pass to fetch the next page (empty once the
// last page has been reached). idOf/nameOf let callers page VPCs by
// project-scoped name or by id without this package depending on model.
func Paginate[T any](rows []T, p PageParams, idOf, nameOf func(T) string) ([]T, string) {
	keyOf := idOf
	if p.KeyColumn == "name" {
		keyOf = nameOf
	}
	sort.Slice(rows, func(i, j int) bool { return keyOf(rows[i]) < keyOf(rows[j]) })

	start := 0
	if p.Cursor != "" {
		start = sort.Search(len(rows), func(i int) bool { return keyOf(rows[i]) > p.Cursor })
	}
	rows = rows[start:]

	limit := p.Limit
	if limit <= 0 || limit > len(rows) {
		limit = len(rows)
	}
	page := rows[:limit]

	next := ""
	if limit < len(rows) {
		next = keyOf(page[len(page)-1])
	}
	return page, next
}
