package handlers

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
	"github.com/tanpii/sportly-back/internal/models"
	"github.com/tanpii/sportly-back/internal/services"
)

type workoutMembershipService interface {
	CreateWorkout(ctx context.Context, coachID int64, input services.CreateWorkoutInput) (*models.Workout, error)
	DeleteWorkout(ctx context.Context, coachID, workoutID int64) error
	EnrollInWorkout(ctx context.Context, userID int64, role string, workoutID int64) (*models.Workout, error)
	UnenrollFromWorkout(ctx context.Context, userID int64, role string, workoutID int64) error
}

type workoutCatalogService interface {
	ListWorkouts(ctx context.Context, search string) ([]models.WorkoutDetail, error)
	GetWorkout(ctx context.Context, workoutID int64) (*models.WorkoutDetail, error)
	MyWorkouts(ctx context.Context, userID int64, role string) ([]models.WorkoutDetail, error)
}

type createWorkoutRequest struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	ScheduledAt time.Time `json:"scheduled_at"`
	Address     string    `json:"address"`
	Price       *float64  `json:"price"`
	SportType   string    `json:"sport_type"`
}

type WorkoutHandler struct {
	membership workoutMembershipService
	catalog    workoutCatalogService
}

func NewWorkoutHandler(membership workoutMembershipService, catalog workoutCatalogService) *WorkoutHandler {
	return &WorkoutHandler{membership: membership, catalog: catalog}
}

func (h *WorkoutHandler) CreateWorkout(c *fiber.Ctx) error {
	role, ok := actorRole(c)
	if !ok || role != models.RoleCoach {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Coach role required"})
	}
	coachID, err := parseActorID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	var req createWorkoutRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	workout, err := h.membership.CreateWorkout(c.Context(), coachID, services.CreateWorkoutInput{
		Title:       req.Title,
		Description: req.Description,
		ScheduledAt: req.ScheduledAt,
		Address:     req.Address,
		Price:       req.Price,
		SportType:   req.SportType,
	})
	if err != nil {
		return mapWorkoutError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"workout": workout})
}

func (h *WorkoutHandler) ListWorkouts(c *fiber.Ctx) error {
	workouts, err := h.catalog.ListWorkouts(c.Context(), c.Query("search"))
	if err != nil {
		return mapWorkoutError(c, err)
	}
	return c.JSON(fiber.Map{"workouts": workouts})
}

func (h *WorkoutHandler) GetWorkout(c *fiber.Ctx) error {
	workoutID, err := parseIDParam(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid workout id"})
	}

	workout, err := h.catalog.GetWorkout(c.Context(), workoutID)
	if err != nil {
		return mapWorkoutError(c, err)
	}
	return c.JSON(fiber.Map{"workout": workout})
}

func (h *WorkoutHandler) MyWorkouts(c *fiber.Ctx) error {
	actorID, err := parseActorID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}
	role, ok := actorRole(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	workouts, err := h.catalog.MyWorkouts(c.Context(), actorID, role)
	if err != nil {
		return mapWorkoutError(c, err)
	}
	return c.JSON(fiber.Map{"workouts": workouts})
}

func (h *WorkoutHandler) DeleteWorkout(c *fiber.Ctx) error {
	coachID, err := parseActorID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}
	workoutID, err := parseIDParam(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid workout id"})
	}

	if err := h.membership.DeleteWorkout(c.Context(), coachID, workoutID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return c.Status(fiber.StatusNotFound).
				JSON(fiber.Map{"error": "Workout not found or you have no permission to delete it"})
		}
		return mapWorkoutError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Workout deleted successfully"})
}

func (h *WorkoutHandler) Enroll(c *fiber.Ctx) error {
	actorID, err := parseActorID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}
	role, ok := actorRole(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}
	workoutID, err := parseIDParam(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid workout id"})
	}

	if _, err := h.membership.EnrollInWorkout(c.Context(), actorID, role, workoutID); err != nil {
		return mapWorkoutError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Successfully enrolled to workout"})
}

func (h *WorkoutHandler) Unenroll(c *fiber.Ctx) error {
	actorID, err := parseActorID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}
	role, ok := actorRole(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}
	workoutID, err := parseIDParam(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid workout id"})
	}

	if err := h.membership.UnenrollFromWorkout(c.Context(), actorID, role, workoutID); err != nil {
		return mapWorkoutError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Successfully unenrolled from workout"})
}

func parseIDParam(c *fiber.Ctx, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Params(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, strconv.ErrSyntax
	}
	return id, nil
}

func mapWorkoutError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, services.ErrInvalidInput):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request"})
	case errors.Is(err, services.ErrForbidden):
		return c.Status(fiber.StatusForbidden).
			JSON(fiber.Map{"error": "Coaches cannot enroll in workouts"})
	case errors.Is(err, services.ErrConflict):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "Enrollment state conflict"})
	case errors.Is(err, pgx.ErrNoRows):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Workout not found"})
	default:
		return c.Status(fiber.StatusInternalServerError).
			JSON(fiber.Map{"error": "Failed to process workout request"})
	}
}
