package handlers

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
	"github.com/tanpii/sportly-back/internal/models"
	"github.com/tanpii/sportly-back/internal/services"
)

type courseMembershipService interface {
	CreateCourse(ctx context.Context, coachID int64, input services.CreateCourseInput) (*models.CourseDetail, error)
	DeleteCourse(ctx context.Context, coachID, courseID int64) error
	DetachWorkout(ctx context.Context, coachID, courseID, workoutID int64) error
	EnrollInCourse(ctx context.Context, userID int64, role string, courseID int64) (*models.Course, error)
	UnenrollFromCourse(ctx context.Context, userID int64, role string, courseID int64) error
}

type courseCatalogService interface {
	ListCourses(ctx context.Context, search string) ([]models.CourseDetail, error)
	GetCourse(ctx context.Context, courseID int64) (*models.CourseDetail, error)
	MyCourses(ctx context.Context, userID int64, role string) ([]models.CourseDetail, error)
	MyCourse(ctx context.Context, userID int64, role string, courseID int64) (*models.CourseDetail, error)
}

type createCourseRequest struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Price       *float64 `json:"price"`
	WorkoutIDs  []int64  `json:"workout_ids"`
}

type CourseHandler struct {
	membership courseMembershipService
	catalog    courseCatalogService
}

func NewCourseHandler(membership courseMembershipService, catalog courseCatalogService) *CourseHandler {
	return &CourseHandler{membership: membership, catalog: catalog}
}

func (h *CourseHandler) CreateCourse(c *fiber.Ctx) error {
	role, ok := actorRole(c)
	if !ok || role != models.RoleCoach {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Coach role required"})
	}
	coachID, err := parseActorID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	var req createCourseRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	course, err := h.membership.CreateCourse(c.Context(), coachID, services.CreateCourseInput{
		Title:       req.Title,
		Description: req.Description,
		Price:       req.Price,
		WorkoutIDs:  req.WorkoutIDs,
	})
	if err != nil {
		if errors.Is(err, services.ErrInvalidInput) {
			return c.Status(fiber.StatusBadRequest).
				JSON(fiber.Map{"error": "Course data is invalid or includes workouts you do not own"})
		}
		return mapCourseError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"course": course})
}

func (h *CourseHandler) ListCourses(c *fiber.Ctx) error {
	courses, err := h.catalog.ListCourses(c.Context(), c.Query("search"))
	if err != nil {
		return mapCourseError(c, err)
	}
	return c.JSON(fiber.Map{"courses": courses})
}

func (h *CourseHandler) GetCourse(c *fiber.Ctx) error {
	courseID, err := parseIDParam(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid course id"})
	}

	course, err := h.catalog.GetCourse(c.Context(), courseID)
	if err != nil {
		return mapCourseError(c, err)
	}
	return c.JSON(fiber.Map{"course": course})
}

func (h *CourseHandler) MyCourses(c *fiber.Ctx) error {
	actorID, err := parseActorID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}
	role, ok := actorRole(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	courses, err := h.catalog.MyCourses(c.Context(), actorID, role)
	if err != nil {
		return mapCourseError(c, err)
	}
	return c.JSON(fiber.Map{"courses": courses})
}

func (h *CourseHandler) MyCourse(c *fiber.Ctx) error {
	actorID, err := parseActorID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}
	role, ok := actorRole(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}
	courseID, err := parseIDParam(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid course id"})
	}

	course, err := h.catalog.MyCourse(c.Context(), actorID, role, courseID)
	if err != nil {
		return mapCourseError(c, err)
	}
	return c.JSON(fiber.Map{"course": course})
}

func (h *CourseHandler) DeleteCourse(c *fiber.Ctx) error {
	coachID, err := parseActorID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}
	courseID, err := parseIDParam(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid course id"})
	}

	if err := h.membership.DeleteCourse(c.Context(), coachID, courseID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return c.Status(fiber.StatusNotFound).
				JSON(fiber.Map{"error": "Course not found or you have no permission to delete it"})
		}
		return mapCourseError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Course deleted successfully"})
}

func (h *CourseHandler) RemoveWorkout(c *fiber.Ctx) error {
	coachID, err := parseActorID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}
	courseID, err := parseIDParam(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid course id"})
	}
	workoutID, err := parseIDParam(c, "workoutId")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid workout id"})
	}

	if err := h.membership.DetachWorkout(c.Context(), coachID, courseID, workoutID); err != nil {
		return mapCourseError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Workout removed from course"})
}

func (h *CourseHandler) Enroll(c *fiber.Ctx) error {
	actorID, err := parseActorID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}
	role, ok := actorRole(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}
	courseID, err := parseIDParam(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid course id"})
	}

	if _, err := h.membership.EnrollInCourse(c.Context(), actorID, role, courseID); err != nil {
		return mapCourseError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Successfully enrolled to course"})
}

func (h *CourseHandler) Unenroll(c *fiber.Ctx) error {
	actorID, err := parseActorID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}
	role, ok := actorRole(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}
	courseID, err := parseIDParam(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid course id"})
	}

	if err := h.membership.UnenrollFromCourse(c.Context(), actorID, role, courseID); err != nil {
		return mapCourseError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Successfully unenrolled from course"})
}

func mapCourseError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, services.ErrInvalidInput):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request"})
	case errors.Is(err, services.ErrForbidden):
		return c.Status(fiber.StatusForbidden).
			JSON(fiber.Map{"error": "Coaches cannot enroll in courses"})
	case errors.Is(err, services.ErrConflict):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "Enrollment state conflict"})
	case errors.Is(err, pgx.ErrNoRows):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Course not found"})
	default:
		return c.Status(fiber.StatusInternalServerError).
			JSON(fiber.Map{"error": "Failed to process course request"})
	}
}
