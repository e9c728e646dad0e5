package pagination

import "gorm.io/gorm"

const (
	DefaultLimit = 20
	maxLimit     = 100
)

// Result carries one page of rows plus the metadata clients use to page further.
type Result[T any] struct {
	Data    []T   `json:"data"`
	Total   int64 `json:"total"`
	Limit   int   `json:"limit"`
	Offset  int   `json:"offset"`
	HasMore bool  `json:"has_more"`
}

// Meta is the pagination block embedded in list responses.
type Meta struct {
	Total   int64 `json:"total"`
	Limit   int   `json:"limit"`
	Offset  int   `json:"offset"`
	HasMore bool  `json:"hasMore"`
}

func (r *Result[T]) Meta() Meta {
	return Meta{Total: r.Total, Limit: r.Limit, Offset: r.Offset, HasMore: r.HasMore}
}

// Clamp sanitizes raw limit/offset query values. Limit is forced into
// [1, 100], offset is forced non-negative.
func Clamp(limit, offset int) (int, int) {
	if limit < 1 {
		limit = DefaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// Paginate runs a count plus a limit/offset query over the given gorm query.
// The query must already carry its WHERE clauses and preloads; Paginate only
// appends ordering and the page window.
func Paginate[T any](query *gorm.DB, limit, offset int, order string) (*Result[T], error) {
	limit, offset = Clamp(limit, offset)

	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, err
	}

	var rows []T
	q := query.Session(&gorm.Session{})
	if order != "" {
		q = q.Order(order)
	}
	if err := q.Limit(limit).Offset(offset).Find(&rows).Error; err != nil {
		return nil, err
	}

	return &Result[T]{
		Data:    rows,
		Total:   total,
		Limit:   limit,
		Offset:  offset,
		HasMore: int64(offset+limit) < total,
	}, nil
}
