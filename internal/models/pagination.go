package models

// Pagination describes the page window returned by list queries.
type Pagination struct {
	Page  int   `json:"page"`
	Pages int   `json:"pages"`
	Total int64 `json:"total"`
	Limit int   `json:"limit"`
}
