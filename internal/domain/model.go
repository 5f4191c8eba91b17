package domain

import "time"

// BaseModel is the common base struct for all domain models.
// It replaces gorm.Model to avoid the implicit soft delete behavior of DeletedAt.
type BaseModel struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Sort directions.
const (
	SortAsc  = "asc"
	SortDesc = "desc"
)

// PageRequest holds zero-based pagination and sorting parameters.
type PageRequest struct {
	Page          int    `json:"page"`
	Size          int    `json:"size"`
	SortBy        string `json:"sortBy"`
	SortDirection string `json:"sortDirection"`
}

// Offset returns the number of rows to skip for the requested page.
func (r PageRequest) Offset() int {
	return r.Page * r.Size
}

// PageResult is a single page of results together with the totals that
// drive pager bounds. len(Content) never exceeds Size.
type PageResult[T any] struct {
	Content       []T   `json:"content"`
	TotalElements int64 `json:"totalElements"`
	TotalPages    int   `json:"totalPages"`
	Size          int   `json:"size"`
	Page          int   `json:"page"`
}

// NewPageResult creates a PageResult with computed TotalPages.
func NewPageResult[T any](content []T, total int64, req PageRequest) *PageResult[T] {
	totalPages := 0
	if req.Size > 0 {
		totalPages = int((total + int64(req.Size) - 1) / int64(req.Size))
	}
	if content == nil {
		content = []T{}
	}
	return &PageResult[T]{
		Content:       content,
		TotalElements: total,
		TotalPages:    totalPages,
		Size:          req.Size,
		Page:          req.Page,
	}
}

// First reports whether the result is the first page.
func (p *PageResult[T]) First() bool { return p.Page <= 0 }

// Last reports whether no page follows this one.
func (p *PageResult[T]) Last() bool { return p.Page >= p.TotalPages-1 }
