package handlers

import (
	"errors"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/talenthub/backend/internal/models"
)

const (
	defaultPageLimit = 10
	maxPageLimit     = 50
)

var errInvalidActor = errors.New("invalid actor")

func buildPaginationMeta(page, limit, total int) models.PaginationMeta {
	totalPages := 0
	if total > 0 {
		totalPages = (total + limit - 1) / limit
	}

	return models.PaginationMeta{
		Page:       page,
		Limit:      limit,
		Total:      total,
		TotalPages: totalPages,
	}
}

func parsePositiveInt(raw string, fallback int) (int, error) {
	if strings.TrimSpace(raw) == "" {
		return fallback, nil
	}
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || value <= 0 {
		return 0, strconv.ErrSyntax
	}
	return value, nil
}

// parsePaging reads page and limit query params, clamping limit to maxPageLimit.
func parsePaging(c *fiber.Ctx) (page, limit int, err error) {
	page, err = parsePositiveInt(c.Query("page"), 1)
	if err != nil {
		return 0, 0, err
	}
	limit, err = parsePositiveInt(c.Query("limit"), defaultPageLimit)
	if err != nil {
		return 0, 0, err
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}
	return page, limit, nil
}

func parseProfileUserID(c *fiber.Ctx) (int64, error) {
	userIDStr, ok := c.Locals("user_id").(string)
	if !ok {
		return 0, strconv.ErrSyntax
	}
	return strconv.ParseInt(userIDStr, 10, 64)
}

// actorFromLocals returns the authenticated user id and role set by the auth
// middleware.
func actorFromLocals(c *fiber.Ctx) (int64, string, error) {
	role, ok := c.Locals("role").(string)
	if !ok || role == "" {
		return 0, "", errInvalidActor
	}
	userID, err := parseProfileUserID(c)
	if err != nil || userID <= 0 {
		return 0, "", errInvalidActor
	}
	return userID, role, nil
}
