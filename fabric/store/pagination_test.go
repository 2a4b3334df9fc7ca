package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type pageRow struct {
	id   string
	name string
}

func rowID(r pageRow) string   { return r.id }
func rowName(r pageRow) string { return r.name }

func TestPaginateByID(t *testing.T) {
	rows := []pageRow{{id: "c"}, {id: "a"}, {id: "b"}}

	page, next := Paginate(rows, PageParams{Limit: 2}, rowID, rowName)
	assert.Equal(t, []pageRow{{id: "a"}, {id: "b"}}, page)
	assert.Equal(t, "b", next)

	page, next = Paginate(rows, PageParams{Cursor: next, Limit: 2}, rowID, rowName)
	assert.Equal(t, []pageRow{{id: "c"}}, page)
	assert.Empty(t, next)
}

func TestPaginateByName(t *testing.T) {
	rows := []pageRow{{id: "1", name: "zebra"}, {id: "2", name: "apple"}, {id: "3", name: "mango"}}

	page, next := Paginate(rows, PageParams{KeyColumn: "name"}, rowID, rowName)
	assert.Equal(t, []pageRow{{id: "2", name: "apple"}, {id: "3", name: "mango"}, {id: "1", name: "zebra"}}, page)
	assert.Empty(t, next)
}

func TestPaginateEmptyInput(t *testing.T) {
	page, next := Paginate([]pageRow(nil), PageParams{Limit: 10}, rowID, rowName)
	assert.Empty(t, page)
	assert.Empty(t, next)
}

func TestPaginateZeroLimitReturnsEverything(t *testing.T) {
	rows := []pageRow{{id: "b"}, {id: "a"}}
	page, next := Paginate(rows, PageParams{}, rowID, rowName)
	assert.Equal(t, []pageRow{{id: "a"}, {id: "b"}}, page)
	assert.Empty(t, next)
}
