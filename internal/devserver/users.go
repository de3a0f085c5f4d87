package devserver

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/MacJediWizard/checkin/internal/api"
	"github.com/MacJediWizard/checkin/pkg/models"
	"github.com/gin-gonic/gin"
)

// filterFields maps filterable field names to their value as a string.
var filterFields = map[string]func(models.User) string{
	"gender":         func(u models.User) string { return u.Gender },
	"member":         func(u models.User) string { return strconv.FormatBool(u.Member) },
	"visitor":        func(u models.User) string { return strconv.FormatBool(u.Visitor) },
	"profession":     func(u models.User) string { return u.Profession },
	"campus_state":   func(u models.User) string { return u.CampusState },
	"campus_country": func(u models.User) string { return u.CampusCountry },
}

// paginate slices items to the requested page.
func paginate[T any](items []T, p models.PageParams) api.Paginated[T] {
	p = p.Normalize()
	total := len(items)
	start := (p.Page - 1) * p.Limit
	if start > total {
		start = total
	}
	end := start + p.Limit
	if end > total {
		end = total
	}
	return api.Paginated[T]{
		Data: items[start:end],
		Pagination: api.Pagination{
			Page:       p.Page,
			Limit:      p.Limit,
			Total:      total,
			TotalPages: (total + p.Limit - 1) / p.Limit,
		},
	}
}

// GET /users
func (s *Server) listUsers(c *gin.Context) {
	var p models.PageParams
	if !bindQuery(c, &p) {
		return
	}
	ok(c, http.StatusOK, paginate(s.store.Users(nil), p))
}

// GET /users/search
func (s *Server) searchUsers(c *gin.Context) {
	var p models.SearchUserParams
	if !bindQuery(c, &p) {
		return
	}
	q := strings.ToLower(p.Query)
	users := s.store.Users(func(u models.User) bool {
		return strings.Contains(strings.ToLower(u.Email), q) ||
			strings.Contains(strings.ToLower(u.FirstName), q) ||
			strings.Contains(strings.ToLower(u.LastName), q)
	})
	ok(c, http.StatusOK, paginate(users, p.PageParams))
}

// GET /users/filter
func (s *Server) filterUsers(c *gin.Context) {
	var p models.FilterUserParams
	if !bindQuery(c, &p) {
		return
	}
	get, found := filterFields[p.Field]
	if !found {
		fail(c, http.StatusBadRequest, CodeInvalidFilter, "Unsupported filter field", []api.FieldError{
			{Field: "field", Message: "must be one of gender, member, visitor, profession, campus_state, campus_country"},
		})
		return
	}
	users := s.store.Users(func(u models.User) bool {
		return strings.EqualFold(get(u), p.Value)
	})
	ok(c, http.StatusOK, paginate(users, p.PageParams))
}
