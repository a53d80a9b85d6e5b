package domain

import "math"

// PageRequest selects a zero-based page of a result set.
type PageRequest struct {
	Page int
	Size int
}

// Offset returns the number of rows to skip. A product too large for
// int64 saturates at math.MaxInt64, which lies past the end of any result.
func (p PageRequest) Offset() int64 {
	if p.Page <= 0 || p.Size <= 0 {
		return 0
	}
	page, size := int64(p.Page), int64(p.Size)
	if page > math.MaxInt64/size {
		return math.MaxInt64
	}
	return page * size
}

// Page is a bounded slice of an ordered result set plus its metadata.
// Size echoes the requested page size, not the number of items returned.
type Page[T any] struct {
	Content       []T   `json:"content"`
	Page          int   `json:"page"`
	Size          int   `json:"size"`
	TotalElements int64 `json:"total_elements"`
	TotalPages    int   `json:"total_pages"`
}

// NewPage assembles a page. A nil content slice becomes empty.
func NewPage[T any](content []T, req PageRequest, total int64) Page[T] {
	if content == nil {
		content = []T{}
	}
	totalPages := 0
	if req.Size > 0 {
		totalPages = int((total + int64(req.Size) - 1) / int64(req.Size))
	}
	return Page[T]{
		Content:       content,
		Page:          req.Page,
		Size:          req.Size,
		TotalElements: total,
		TotalPages:    totalPages,
	}
}

// MapPage converts the content of a page while keeping its metadata.
func MapPage[T, U any](p Page[T], fn func(T) U) Page[U] {
	out := make([]U, len(p.Content))
	for i, item := range p.Content {
		out[i] = fn(item)
	}
	return Page[U]{
		Content:       out,
		Page:          p.Page,
		Size:          p.Size,
		TotalElements: p.TotalElements,
		TotalPages:    p.TotalPages,
	}
}
