package repository

import (
	"fmt"

	"github.com/Nikita-Hritsay/TeamUp/internal/domain"
)

const (
	// DefaultPageSize applies when a caller omits the size.
	DefaultPageSize = 10
	// MaxPageSize caps a single page.
	MaxPageSize = 100
)

// PageRequest selects a zero-based page of Size rows.
type PageRequest struct {
	Number int
	Size   int
}

// NewPageRequest validates the page coordinates. A zero size means DefaultPageSize.
func NewPageRequest(number, size int) (PageRequest, error) {
	if number < 0 {
		return PageRequest{}, fmt.Errorf("%w: page number must be >= 0, got %d", domain.ErrInvalidArgument, number)
	}
	if size == 0 {
		size = DefaultPageSize
	}
	if size < 1 || size > MaxPageSize {
		return PageRequest{}, fmt.Errorf("%w: page size must be between 1 and %d, got %d", domain.ErrInvalidArgument, MaxPageSize, size)
	}
	return PageRequest{Number: number, Size: size}, nil
}

// Offset is the number of rows skipped before this page.
func (p PageRequest) Offset() int {
	return p.Number * p.Size
}

// Page is one slice of an ordered result set.
type Page[T any] struct {
	Content       []T
	Number        int
	Size          int
	TotalElements int64
	TotalPages    int
}

// NewPage fills the derived counters; TotalPages is ceil(total / size).
func NewPage[T any](content []T, req PageRequest, total int64) Page[T] {
	if content == nil {
		content = []T{}
	}
	pages := 0
	if req.Size > 0 {
		pages = int((total + int64(req.Size) - 1) / int64(req.Size))
	}
	return Page[T]{
		Content:       content,
		Number:        req.Number,
		Size:          req.Size,
		TotalElements: total,
		TotalPages:    pages,
	}
}

// Last reports whether no page follows this one.
func (p Page[T]) Last() bool {
	return p.Number+1 >= p.TotalPages
}

// Slice pages an already ordered in-memory result.
func Slice[T any](all []T, req PageRequest) Page[T] {
	start := req.Offset()
	if start > len(all) {
		start = len(all)
	}
	end := start + req.Size
	if end > len(all) {
		end = len(all)
	}
	content := make([]T, end-start)
	copy(content, all[start:end])
	return NewPage(content, req, int64(len(all)))
}

// Map converts page content while keeping the counters.
func Map[T, U any](p Page[T], fn func(T) U) Page[U] {
	out := make([]U, len(p.Content))
	for i, item := range p.Content {
		out[i] = fn(item)
	}
	return Page[U]{
		Content:       out,
		Number:        p.Number,
		Size:          p.Size,
		TotalElements: p.TotalElements,
		TotalPages:    p.TotalPages,
	}
}
