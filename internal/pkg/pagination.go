package pkg

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/simp-lee/bankoffice/internal/domain"
)

// validColumn matches only alphanumeric characters and underscores.
var validColumn = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// ParsePageRequest extracts zero-based paging and sorting parameters from the
// query string. Missing values take the client list defaults; malformed values
// are kept as-is so that validation can report them.
func ParsePageRequest(c *gin.Context) domain.PageRequest {
	return domain.PageRequest{
		Page:          queryInt(c, "page", 0),
		Size:          queryInt(c, "size", domain.DefaultPageSize),
		SortBy:        strings.TrimSpace(c.DefaultQuery("sortBy", domain.DefaultSortBy)),
		SortDirection: strings.ToLower(strings.TrimSpace(c.DefaultQuery("sortDirection", domain.SortAsc))),
	}
}

// queryInt parses an integer query parameter. Unparseable input maps to -1.
func queryInt(c *gin.Context, key string, def int) int {
	raw, ok := c.GetQuery(key)
	if !ok || strings.TrimSpace(raw) == "" {
		return def
	}
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return -1
	}
	return v
}

// Paginate returns a GORM scope that applies LIMIT and OFFSET based on the page request.
func Paginate(req domain.PageRequest) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Offset(req.Offset()).Limit(req.Size)
	}
}

// Sort returns a GORM scope ordering by the column mapped from req.SortBy.
// Unknown sort keys and directions are ignored. A secondary order on id keeps
// pages stable when the sort column has duplicates.
func Sort(req domain.PageRequest, columns map[string]string) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		column, ok := columns[req.SortBy]
		if !ok || !validColumn.MatchString(column) {
			return db
		}
		direction := strings.ToLower(req.SortDirection)
		if direction != domain.SortAsc && direction != domain.SortDesc {
			return db
		}
		return db.Order(column + " " + direction).Order("id " + direction)
	}
}
