package models

// PageParams are the paging query parameters shared by list routes.
// Zero values are replaced with the route defaults.
type PageParams struct {
	Page  int `json:"page,omitempty" form:"page"`
	Limit int `json:"limit,omitempty" form:"limit"`
}

// Default page and page size applied when a list request leaves them unset.
const (
	DefaultPage  = 1
	DefaultLimit = 10
)

// Normalize returns p with unset fields replaced by DefaultPage and DefaultLimit.
func (p PageParams) Normalize() PageParams {
	if p.Page <= 0 {
		p.Page = DefaultPage
	}
	if p.Limit <= 0 {
		p.Limit = DefaultLimit
	}
	return p
}
