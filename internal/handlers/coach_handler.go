package handlers

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
	"github.com/tanpii/sportly-back/internal/models"
	"github.com/tanpii/sportly-back/internal/services"
)

type coachCatalogService interface {
	ListCoaches(ctx context.Context, limit, offset int) ([]models.User, int, error)
	CoachProfile(ctx context.Context, coachID int64) (*services.CoachProfile, error)
}

type CoachHandler struct {
	catalog coachCatalogService
}

func NewCoachHandler(catalog coachCatalogService) *CoachHandler {
	return &CoachHandler{catalog: catalog}
}

func (h *CoachHandler) ListCoaches(c *fiber.Ctx) error {
	page := parsePositiveInt(c.Query("page"), 1)
	limit := parsePositiveInt(c.Query("limit"), defaultPageLimit)
	if limit > maxPageLimit {
		limit = maxPageLimit
	}

	coaches, total, err := h.catalog.ListCoaches(c.Context(), limit, (page-1)*limit)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).
			JSON(fiber.Map{"error": "Failed to fetch coaches"})
	}

	summaries := make([]models.UserSummary, 0, len(coaches))
	for _, coach := range coaches {
		summaries = append(summaries, coach.Summary())
	}

	return c.JSON(fiber.Map{
		"coaches":    summaries,
		"pagination": buildPaginationMeta(page, limit, total),
	})
}

func (h *CoachHandler) GetCoach(c *fiber.Ctx) error {
	coachID, err := parseIDParam(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid coach id"})
	}

	profile, err := h.catalog.CoachProfile(c.Context(), coachID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Coach not found"})
		}
		return c.Status(fiber.StatusInternalServerError).
			JSON(fiber.Map{"error": "Failed to fetch coach profile"})
	}

	return c.JSON(fiber.Map{
		"coach":    profile.Coach.Summary(),
		"workouts": profile.Workouts,
		"courses":  profile.Courses,
	})
}
