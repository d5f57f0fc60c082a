package service

import (
	"math"

	"marketplace-backend/internal/core/ports"
	"marketplace-backend/pkg/apperror"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// Paginator normalizes raw page requests.
type Paginator struct {
	DefaultSize int
	MaxSize     int
}

// NewPaginator creates a paginator, substituting built-in limits for non-positive values.
func NewPaginator(defaultSize, maxSize int) Paginator {
	if maxSize <= 0 {
		maxSize = maxPageSize
	}
	if defaultSize <= 0 {
		defaultSize = defaultPageSize
	}
	if defaultSize > maxSize {
		defaultSize = maxSize
	}
	return Paginator{DefaultSize: defaultSize, MaxSize: maxSize}
}

// Normalize validates req and clamps its size. Page numbers start at 1.
func (p Paginator) Normalize(req ports.PageRequest) (ports.Page, error) {
	if req.Page < 1 {
		return ports.Page{}, apperror.Validation("page must be >= 1")
	}
	size := req.PageSize
	switch {
	case size == 0 && !req.PageSizeSet:
		size = p.DefaultSize
	case size < 1:
		return ports.Page{}, apperror.Validation("page_size must be >= 1")
	case size > p.MaxSize:
		size = p.MaxSize
	}
	// The row offset must fit in an int.
	if req.Page-1 > math.MaxInt/size {
		return ports.Page{}, apperror.Validation("page is out of range")
	}
	return ports.Page{Number: req.Page, Size: size}, nil
}
