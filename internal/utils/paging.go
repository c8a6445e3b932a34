package utils

const (
	defaultLimit = 20
	maxLimit     = 100
)

type Paging struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
}

// NewPaging clamps page to >= 1 and limit to 1..100, defaulting to 20.
func NewPaging(page, limit int) Paging {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	return Paging{Page: page, Limit: limit}
}

func (p Paging) Offset() int { return (p.Page - 1) * p.Limit }
