package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk/internal/api/dto"
	"github.com/spec-kit/helpdesk/internal/auth"
	"github.com/spec-kit/helpdesk/internal/service"
	apperrors "github.com/spec-kit/helpdesk/pkg/util/errorutil"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

func principalOf(c *fiber.Ctx) (*auth.Principal, error) {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return nil, apperrors.NewUnauthorized("authentication required")
	}
	return principal, nil
}

// bind parses the JSON body into req and runs its validate tags.
func bind(c *fiber.Ctx, req any) error {
	if err := c.BodyParser(req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	return dto.Validate(req)
}

type pageQuery struct {
	page     int
	pageSize int
}

func parsePage(c *fiber.Ctx) pageQuery {
	page := parseInt(c.Query("page"), 1)
	if page < 1 {
		page = 1
	}
	size := parseInt(c.Query("page_size"), defaultPageSize)
	if size < 1 {
		size = defaultPageSize
	}
	if size > maxPageSize {
		size = maxPageSize
	}
	return pageQuery{page: page, pageSize: size}
}

func (p pageQuery) toService() service.Page {
	return service.Page{Limit: p.pageSize, Offset: (p.page - 1) * p.pageSize}
}

func (p pageQuery) meta(total int64) dto.PageMeta {
	return dto.PageMeta{Page: p.page, PageSize: p.pageSize, Total: total}
}

func parseInt(val string, def int) int {
	if val == "" {
		return def
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return def
	}
	return parsed
}
