package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tanpii/sportly-back/internal/models"
	"github.com/tanpii/sportly-back/internal/repository"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrForbidden    = errors.New("forbidden")
	ErrConflict     = errors.New("conflict")
)

// MembershipService owns every mutation of workouts, courses, and their
// membership sets. Multi-statement operations run inside one pgx transaction
// with the repositories rebuilt over the transaction handle.
type MembershipService struct {
	db          *pgxpool.Pool
	workoutRepo *repository.WorkoutRepository
	courseRepo  *repository.CourseRepository
}

func NewMembershipService(
	db *pgxpool.Pool,
	workoutRepo *repository.WorkoutRepository,
	courseRepo *repository.CourseRepository,
) *MembershipService {
	return &MembershipService{
		db:          db,
		workoutRepo: workoutRepo,
		courseRepo:  courseRepo,
	}
}

type CreateWorkoutInput struct {
	Title       string
	Description string
	ScheduledAt time.Time
	Address     string
	Price       *float64
	SportType   string
}

func (s *MembershipService) CreateWorkout(
	ctx context.Context,
	coachID int64,
	input CreateWorkoutInput,
) (*models.Workout, error) {
	title := strings.TrimSpace(input.Title)
	sportType := strings.TrimSpace(input.SportType)
	if title == "" || sportType == "" || input.ScheduledAt.IsZero() {
		return nil, ErrInvalidInput
	}
	if input.Price != nil && *input.Price < 0 {
		return nil, ErrInvalidInput
	}

	// The schema stores naive timestamps; the caller's offset is folded
	// into UTC and dropped.
	return s.workoutRepo.Create(ctx, repository.CreateWorkoutInput{
		Title:       title,
		Description: input.Description,
		ScheduledAt: input.ScheduledAt.UTC(),
		Address:     input.Address,
		Price:       input.Price,
		SportType:   sportType,
		CoachID:     coachID,
	})
}

type CreateCourseInput struct {
	Title       string
	Description string
	Price       *float64
	WorkoutIDs  []int64
}

// CreateCourse creates the course, attaches the given workouts, and marks
// each of them as part of a course. Every id must resolve to a workout owned
// by the coach or nothing is written.
func (s *MembershipService) CreateCourse(
	ctx context.Context,
	coachID int64,
	input CreateCourseInput,
) (*models.CourseDetail, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, ErrInvalidInput
	}
	if input.Price != nil && *input.Price < 0 {
		return nil, ErrInvalidInput
	}

	// Duplicate ids are rejected, not collapsed: the resolved set below comes
	// back distinct, so a repeated id fails the length check.
	workoutIDs := input.WorkoutIDs

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	txWorkoutRepo := repository.NewWorkoutRepository(tx)
	txCourseRepo := repository.NewCourseRepository(tx)

	workouts, err := txWorkoutRepo.ListOwnedByIDs(ctx, coachID, workoutIDs)
	if err != nil {
		return nil, err
	}
	if len(workouts) != len(workoutIDs) {
		return nil, ErrInvalidInput
	}

	course, err := txCourseRepo.Create(ctx, repository.CreateCourseInput{
		Title:       title,
		Description: input.Description,
		Price:       input.Price,
		CoachID:     coachID,
	})
	if err != nil {
		return nil, err
	}

	if err := txCourseRepo.AttachWorkouts(ctx, course.ID, workoutIDs); err != nil {
		return nil, err
	}
	if err := txWorkoutRepo.SetCoursePartForIDs(ctx, workoutIDs, true); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	for i := range workouts {
		workouts[i].IsCoursePart = true
	}
	return &models.CourseDetail{Course: *course, Workouts: workouts}, nil
}

// DetachWorkout removes the workout from the course and recomputes the
// workout's is_course_part flag against the memberships that remain. The
// recompute queries the store inside the same transaction that performed the
// removal, so concurrent attaches to other courses are never missed.
func (s *MembershipService) DetachWorkout(ctx context.Context, coachID, courseID, workoutID int64) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	txWorkoutRepo := repository.NewWorkoutRepository(tx)
	txCourseRepo := repository.NewCourseRepository(tx)

	if _, err := txCourseRepo.GetOwned(ctx, courseID, coachID); err != nil {
		return err
	}
	if _, err := txWorkoutRepo.GetOwned(ctx, workoutID, coachID); err != nil {
		return err
	}

	if _, err := txCourseRepo.DetachWorkout(ctx, courseID, workoutID); err != nil {
		return err
	}

	stillReferenced, err := txCourseRepo.WorkoutInAnyCourse(ctx, workoutID)
	if err != nil {
		return err
	}
	if err := txWorkoutRepo.SetCoursePart(ctx, workoutID, stillReferenced); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// DeleteWorkout removes the workout and its membership rows. Ownership and
// existence failures collapse into pgx.ErrNoRows so callers cannot probe for
// other coaches' workouts.
func (s *MembershipService) DeleteWorkout(ctx context.Context, coachID, workoutID int64) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	txWorkoutRepo := repository.NewWorkoutRepository(tx)
	txCourseRepo := repository.NewCourseRepository(tx)

	if _, err := txWorkoutRepo.GetOwned(ctx, workoutID, coachID); err != nil {
		return err
	}
	if err := txWorkoutRepo.DeleteEnrollments(ctx, workoutID); err != nil {
		return err
	}
	if err := txCourseRepo.DeleteMembershipsByWorkout(ctx, workoutID); err != nil {
		return err
	}
	if _, err := txWorkoutRepo.Delete(ctx, workoutID, coachID); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// DeleteCourse removes the course with its membership and enrollment rows,
// then recomputes is_course_part for every workout the course had bundled.
// Member workouts themselves are kept.
func (s *MembershipService) DeleteCourse(ctx context.Context, coachID, courseID int64) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	txWorkoutRepo := repository.NewWorkoutRepository(tx)
	txCourseRepo := repository.NewCourseRepository(tx)

	if _, err := txCourseRepo.GetOwned(ctx, courseID, coachID); err != nil {
		return err
	}

	memberIDs, err := txCourseRepo.ListMemberWorkoutIDs(ctx, courseID)
	if err != nil {
		return err
	}

	if err := txCourseRepo.DeleteEnrollments(ctx, courseID); err != nil {
		return err
	}
	if err := txCourseRepo.DeleteMemberships(ctx, courseID); err != nil {
		return err
	}
	if _, err := txCourseRepo.Delete(ctx, courseID, coachID); err != nil {
		return err
	}

	for _, workoutID := range memberIDs {
		stillReferenced, err := txCourseRepo.WorkoutInAnyCourse(ctx, workoutID)
		if err != nil {
			return err
		}
		if err := txWorkoutRepo.SetCoursePart(ctx, workoutID, stillReferenced); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

func (s *MembershipService) EnrollInWorkout(
	ctx context.Context,
	userID int64,
	role string,
	workoutID int64,
) (*models.Workout, error) {
	if role == models.RoleCoach {
		return nil, ErrForbidden
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	txWorkoutRepo := repository.NewWorkoutRepository(tx)

	workout, err := txWorkoutRepo.GetByID(ctx, workoutID)
	if err != nil {
		return nil, err
	}

	enrolled, err := txWorkoutRepo.Enroll(ctx, workoutID, userID)
	if err != nil {
		return nil, err
	}
	if !enrolled {
		return nil, ErrConflict
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return workout, nil
}

func (s *MembershipService) UnenrollFromWorkout(ctx context.Context, userID int64, role string, workoutID int64) error {
	if role == models.RoleCoach {
		return ErrForbidden
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	txWorkoutRepo := repository.NewWorkoutRepository(tx)

	if _, err := txWorkoutRepo.GetByID(ctx, workoutID); err != nil {
		return err
	}

	removed, err := txWorkoutRepo.Unenroll(ctx, workoutID, userID)
	if err != nil {
		return err
	}
	if !removed {
		return ErrConflict
	}

	return tx.Commit(ctx)
}

func (s *MembershipService) EnrollInCourse(
	ctx context.Context,
	userID int64,
	role string,
	courseID int64,
) (*models.Course, error) {
	if role == models.RoleCoach {
		return nil, ErrForbidden
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	txCourseRepo := repository.NewCourseRepository(tx)

	course, err := txCourseRepo.GetByID(ctx, courseID)
	if err != nil {
		return nil, err
	}

	enrolled, err := txCourseRepo.Enroll(ctx, courseID, userID)
	if err != nil {
		return nil, err
	}
	if !enrolled {
		return nil, ErrConflict
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return course, nil
}

func (s *MembershipService) UnenrollFromCourse(ctx context.Context, userID int64, role string, courseID int64) error {
	if role == models.RoleCoach {
		return ErrForbidden
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	txCourseRepo := repository.NewCourseRepository(tx)

	if _, err := txCourseRepo.GetByID(ctx, courseID); err != nil {
		return err
	}

	removed, err := txCourseRepo.Unenroll(ctx, courseID, userID)
	if err != nil {
		return err
	}
	if !removed {
		return ErrConflict
	}

	return tx.Commit(ctx)
}

func dedupeIDs(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	unique := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		unique = append(unique, id)
	}
	return unique
}
