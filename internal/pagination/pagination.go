package pagination

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

const (
	DefaultLimit = 20
	MaxLimit     = 100
)

// Params holds pagination parameters extracted from a request.
type Params struct {
	Limit  int
	Offset int
}

// FromContext lê limit/offset; "page" (1-based) tem precedência sobre offset.
func FromContext(c *fiber.Ctx, defaultLimit int) Params {
	if defaultLimit <= 0 {
		defaultLimit = DefaultLimit
	}

	limit, _ := strconv.Atoi(c.Query("limit"))
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}

	offset, _ := strconv.Atoi(c.Query("offset"))
	if page, err := strconv.Atoi(c.Query("page")); err == nil && page > 0 {
		offset = (page - 1) * limit
	}
	if offset < 0 {
		offset = 0
	}

	return Params{Limit: limit, Offset: offset}
}

// Scope aplica LIMIT/OFFSET numa query GORM.
func (p Params) Scope(db *gorm.DB) *gorm.DB {
	return db.Limit(p.Limit).Offset(p.Offset)
}

// Page número da página corrente (1-based).
func (p Params) Page() int {
	if p.Limit <= 0 {
		return 1
	}
	return p.Offset/p.Limit + 1
}

// Response wraps a paginated API response.
type Response struct {
	Data    any   `json:"data"`
	Total   int64 `json:"total"`
	Limit   int   `json:"limit"`
	Offset  int   `json:"offset"`
	Page    int   `json:"page"`
	Pages   int64 `json:"pages"`
	HasMore bool  `json:"has_more"`
}

func NewResponse(data any, total int64, p Params) *Response {
	pages := int64(0)
	if p.Limit > 0 {
		pages = (total + int64(p.Limit) - 1) / int64(p.Limit)
	}
	return &Response{
		Data:    data,
		Total:   total,
		Limit:   p.Limit,
		Offset:  p.Offset,
		Page:    p.Page(),
		Pages:   pages,
		HasMore: int64(p.Offset+p.Limit) < total,
	}
}
