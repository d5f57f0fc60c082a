package memory

import (
	"slices"

	"marketplace-backend/internal/core/ports"
)

func sortByID[T any](rows []T, id func(T) int64) {
	slices.SortFunc(rows, func(a, b T) int {
		switch ia, ib := id(a), id(b); {
		case ia < ib:
			return -1
		case ia > ib:
			return 1
		}
		return 0
	})
}

// paginate slices rows the way LIMIT/OFFSET would.
func paginate[T any](rows []T, page ports.Page) []T {
	offset := page.Offset()
	if offset < 0 {
		offset = 0
	}
	if offset >= len(rows) {
		return []T{}
	}
	end := len(rows)
	if page.Size > 0 && offset+page.Size < end {
		end = offset + page.Size
	}
	return rows[offset:end]
}
