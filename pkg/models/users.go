package models

// SearchUserParams are the query parameters for a free-text user search.
type SearchUserParams struct {
	Query string `json:"q" form:"q" binding:"required"`
	PageParams
}

// FilterUserParams select users whose Field equals Value.
type FilterUserParams struct {
	Field string `json:"field" form:"field" binding:"required"`
	Value string `json:"value" form:"value"`
	PageParams
}
