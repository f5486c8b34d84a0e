package utils

// Pagination is the list metadata returned next to "data"
type Pagination struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"totalPages"`
}

const (
	DefaultPage  = 1
	DefaultLimit = 20
	MaxLimit     = 100
)

// NormalizePage clamps page and limit to sane values
func NormalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = DefaultPage
	}
	if limit < 1 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	return page, limit
}

// Offset returns the number of rows to skip
func Offset(page, limit int) int {
	return (page - 1) * limit
}

// NewPagination computes totalPages for a result set
func NewPagination(page, limit int, total int64) Pagination {
	totalPages := int(total) / limit
	if int(total)%limit != 0 {
		totalPages++
	}
	return Pagination{Page: page, Limit: limit, Total: total, TotalPages: totalPages}
}
