package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/tanpii/sportly-back/internal/models"
	"github.com/tanpii/sportly-back/internal/repository"
)

var (
	testDBOnce sync.Once
	testDBPool *pgxpool.Pool
	testDBErr  error
)

func TestCreateCourseMarksWorkoutsAsCourseParts(t *testing.T) {
	ctx := context.Background()
	pool := integrationTestPool(t)
	service := newIntegrationMembershipService(pool)

	coachID := createTestAccount(t, ctx, pool, models.RoleCoach)
	t.Cleanup(func() { cleanupTestUsers(t, ctx, pool, coachID) })

	first := createTestWorkout(t, ctx, service, coachID, "Morning run")
	second := createTestWorkout(t, ctx, service, coachID, "Evening swim")

	course, err := service.CreateCourse(ctx, coachID, CreateCourseInput{
		Title:      "Triathlon prep",
		WorkoutIDs: []int64{first.ID, second.ID},
	})
	if err != nil {
		t.Fatalf("CreateCourse: %v", err)
	}

	if len(course.Workouts) != 2 {
		t.Fatalf("expected 2 workouts in course detail, got %d", len(course.Workouts))
	}
	for _, w := range course.Workouts {
		if !w.IsCoursePart {
			t.Fatalf("expected workout %d to be flagged as course part", w.ID)
		}
	}

	workoutRepo := repository.NewWorkoutRepository(pool)
	for _, id := range []int64{first.ID, second.ID} {
		stored, err := workoutRepo.GetByID(ctx, id)
		if err != nil {
			t.Fatalf("GetByID(%d): %v", id, err)
		}
		if !stored.IsCoursePart {
			t.Fatalf("expected stored workout %d to be flagged as course part", id)
		}
	}
}

func TestCreateCourseRejectsForeignWorkouts(t *testing.T) {
	ctx := context.Background()
	pool := integrationTestPool(t)
	service := newIntegrationMembershipService(pool)

	ownerID := createTestAccount(t, ctx, pool, models.RoleCoach)
	otherID := createTestAccount(t, ctx, pool, models.RoleCoach)
	t.Cleanup(func() { cleanupTestUsers(t, ctx, pool, ownerID, otherID) })

	foreign := createTestWorkout(t, ctx, service, ownerID, "Owned by someone else")

	_, err := service.CreateCourse(ctx, otherID, CreateCourseInput{
		Title:      "Stolen course",
		WorkoutIDs: []int64{foreign.ID},
	})
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}

	workoutRepo := repository.NewWorkoutRepository(pool)
	stored, err := workoutRepo.GetByID(ctx, foreign.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if stored.IsCoursePart {
		t.Fatalf("expected workout to stay unflagged after failed course creation")
	}
}

func TestCreateCourseRejectsDuplicateWorkoutIDs(t *testing.T) {
	ctx := context.Background()
	pool := integrationTestPool(t)
	service := newIntegrationMembershipService(pool)

	coachID := createTestAccount(t, ctx, pool, models.RoleCoach)
	t.Cleanup(func() { cleanupTestUsers(t, ctx, pool, coachID) })

	workout := createTestWorkout(t, ctx, service, coachID, "Repeated workout")

	_, err := service.CreateCourse(ctx, coachID, CreateCourseInput{
		Title:      "Course with repeats",
		WorkoutIDs: []int64{workout.ID, workout.ID},
	})
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for duplicate ids, got %v", err)
	}

	workoutRepo := repository.NewWorkoutRepository(pool)
	stored, err := workoutRepo.GetByID(ctx, workout.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if stored.IsCoursePart {
		t.Fatalf("expected workout to stay unflagged after rejected course creation")
	}
}

func TestDetachWorkoutClearsFlagWhenLastCourseReleasesIt(t *testing.T) {
	ctx := context.Background()
	pool := integrationTestPool(t)
	service := newIntegrationMembershipService(pool)

	coachID := createTestAccount(t, ctx, pool, models.RoleCoach)
	t.Cleanup(func() { cleanupTestUsers(t, ctx, pool, coachID) })

	shared := createTestWorkout(t, ctx, service, coachID, "Shared workout")

	firstCourse, err := service.CreateCourse(ctx, coachID, CreateCourseInput{
		Title:      "First course",
		WorkoutIDs: []int64{shared.ID},
	})
	if err != nil {
		t.Fatalf("CreateCourse first: %v", err)
	}
	secondCourse, err := service.CreateCourse(ctx, coachID, CreateCourseInput{
		Title:      "Second course",
		WorkoutIDs: []int64{shared.ID},
	})
	if err != nil {
		t.Fatalf("CreateCourse second: %v", err)
	}

	workoutRepo := repository.NewWorkoutRepository(pool)

	if err := service.DetachWorkout(ctx, coachID, firstCourse.ID, shared.ID); err != nil {
		t.Fatalf("DetachWorkout from first course: %v", err)
	}
	stored, err := workoutRepo.GetByID(ctx, shared.ID)
	if err != nil {
		t.Fatalf("GetByID after first detach: %v", err)
	}
	if !stored.IsCoursePart {
		t.Fatalf("expected flag to stay set while second course still holds the workout")
	}

	if err := service.DetachWorkout(ctx, coachID, secondCourse.ID, shared.ID); err != nil {
		t.Fatalf("DetachWorkout from second course: %v", err)
	}
	stored, err = workoutRepo.GetByID(ctx, shared.ID)
	if err != nil {
		t.Fatalf("GetByID after second detach: %v", err)
	}
	if stored.IsCoursePart {
		t.Fatalf("expected flag to clear once no course holds the workout")
	}
}

func TestDeleteCourseRecomputesFlagsForReleasedWorkouts(t *testing.T) {
	ctx := context.Background()
	pool := integrationTestPool(t)
	service := newIntegrationMembershipService(pool)

	coachID := createTestAccount(t, ctx, pool, models.RoleCoach)
	t.Cleanup(func() { cleanupTestUsers(t, ctx, pool, coachID) })

	soloMember := createTestWorkout(t, ctx, service, coachID, "Solo member")
	sharedMember := createTestWorkout(t, ctx, service, coachID, "Shared member")

	doomed, err := service.CreateCourse(ctx, coachID, CreateCourseInput{
		Title:      "Doomed course",
		WorkoutIDs: []int64{soloMember.ID, sharedMember.ID},
	})
	if err != nil {
		t.Fatalf("CreateCourse doomed: %v", err)
	}
	if _, err := service.CreateCourse(ctx, coachID, CreateCourseInput{
		Title:      "Survivor course",
		WorkoutIDs: []int64{sharedMember.ID},
	}); err != nil {
		t.Fatalf("CreateCourse survivor: %v", err)
	}

	if err := service.DeleteCourse(ctx, coachID, doomed.ID); err != nil {
		t.Fatalf("DeleteCourse: %v", err)
	}

	workoutRepo := repository.NewWorkoutRepository(pool)
	solo, err := workoutRepo.GetByID(ctx, soloMember.ID)
	if err != nil {
		t.Fatalf("GetByID solo: %v", err)
	}
	if solo.IsCoursePart {
		t.Fatalf("expected released workout to lose the course part flag")
	}
	shared, err := workoutRepo.GetByID(ctx, sharedMember.ID)
	if err != nil {
		t.Fatalf("GetByID shared: %v", err)
	}
	if !shared.IsCoursePart {
		t.Fatalf("expected workout still in survivor course to keep the flag")
	}
}

func TestWorkoutEnrollmentRoundTrip(t *testing.T) {
	ctx := context.Background()
	pool := integrationTestPool(t)
	service := newIntegrationMembershipService(pool)

	coachID := createTestAccount(t, ctx, pool, models.RoleCoach)
	userID := createTestAccount(t, ctx, pool, models.RoleParticipant)
	t.Cleanup(func() { cleanupTestUsers(t, ctx, pool, coachID, userID) })

	workout := createTestWorkout(t, ctx, service, coachID, "Open session")

	if _, err := service.EnrollInWorkout(ctx, userID, models.RoleParticipant, workout.ID); err != nil {
		t.Fatalf("EnrollInWorkout: %v", err)
	}
	if _, err := service.EnrollInWorkout(ctx, userID, models.RoleParticipant, workout.ID); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict on double enroll, got %v", err)
	}

	if err := service.UnenrollFromWorkout(ctx, userID, models.RoleParticipant, workout.ID); err != nil {
		t.Fatalf("UnenrollFromWorkout: %v", err)
	}
	if err := service.UnenrollFromWorkout(ctx, userID, models.RoleParticipant, workout.ID); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict on double unenroll, got %v", err)
	}
}

func TestCoachesCannotEnroll(t *testing.T) {
	ctx := context.Background()
	pool := integrationTestPool(t)
	service := newIntegrationMembershipService(pool)

	coachID := createTestAccount(t, ctx, pool, models.RoleCoach)
	otherCoachID := createTestAccount(t, ctx, pool, models.RoleCoach)
	t.Cleanup(func() { cleanupTestUsers(t, ctx, pool, coachID, otherCoachID) })

	workout := createTestWorkout(t, ctx, service, coachID, "Coach only")
	course, err := service.CreateCourse(ctx, coachID, CreateCourseInput{
		Title:      "Coach course",
		WorkoutIDs: []int64{workout.ID},
	})
	if err != nil {
		t.Fatalf("CreateCourse: %v", err)
	}

	if _, err := service.EnrollInWorkout(ctx, otherCoachID, models.RoleCoach, workout.ID); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden for coach workout enroll, got %v", err)
	}
	if _, err := service.EnrollInCourse(ctx, otherCoachID, models.RoleCoach, course.ID); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden for coach course enroll, got %v", err)
	}
}

func TestDeleteWorkoutRemovesEnrollmentsAndMemberships(t *testing.T) {
	ctx := context.Background()
	pool := integrationTestPool(t)
	service := newIntegrationMembershipService(pool)

	coachID := createTestAccount(t, ctx, pool, models.RoleCoach)
	userID := createTestAccount(t, ctx, pool, models.RoleParticipant)
	t.Cleanup(func() { cleanupTestUsers(t, ctx, pool, coachID, userID) })

	workout := createTestWorkout(t, ctx, service, coachID, "Doomed workout")
	if _, err := service.CreateCourse(ctx, coachID, CreateCourseInput{
		Title:      "Holder course",
		WorkoutIDs: []int64{workout.ID},
	}); err != nil {
		t.Fatalf("CreateCourse: %v", err)
	}
	if _, err := service.EnrollInWorkout(ctx, userID, models.RoleParticipant, workout.ID); err != nil {
		t.Fatalf("EnrollInWorkout: %v", err)
	}

	if err := service.DeleteWorkout(ctx, coachID, workout.ID); err != nil {
		t.Fatalf("DeleteWorkout: %v", err)
	}

	workoutRepo := repository.NewWorkoutRepository(pool)
	if _, err := workoutRepo.GetByID(ctx, workout.ID); !errors.Is(err, pgx.ErrNoRows) {
		t.Fatalf("expected workout to be gone, got %v", err)
	}
}

func TestDeleteWorkoutRequiresOwnership(t *testing.T) {
	ctx := context.Background()
	pool := integrationTestPool(t)
	service := newIntegrationMembershipService(pool)

	ownerID := createTestAccount(t, ctx, pool, models.RoleCoach)
	otherID := createTestAccount(t, ctx, pool, models.RoleCoach)
	t.Cleanup(func() { cleanupTestUsers(t, ctx, pool, ownerID, otherID) })

	workout := createTestWorkout(t, ctx, service, ownerID, "Protected workout")

	if err := service.DeleteWorkout(ctx, otherID, workout.ID); !errors.Is(err, pgx.ErrNoRows) {
		t.Fatalf("expected pgx.ErrNoRows for foreign delete, got %v", err)
	}
}

func integrationTestPool(t *testing.T) *pgxpool.Pool {
	t.Helper()

	testDBOnce.Do(func() {
		_ = godotenv.Load(".env")
		_ = godotenv.Load(filepath.Join("..", "..", ".env"))

		dbURL := os.Getenv("DB_URL")
		if dbURL == "" {
			testDBErr = fmt.Errorf("DB_URL is not set")
			return
		}

		cfg, err := pgxpool.ParseConfig(dbURL)
		if err != nil {
			testDBErr = err
			return
		}

		testDBPool, testDBErr = pgxpool.NewWithConfig(context.Background(), cfg)
		if testDBErr != nil {
			return
		}
		testDBErr = testDBPool.Ping(context.Background())
	})

	if testDBErr != nil {
		t.Skipf("skipping integration test: %v", testDBErr)
	}
	return testDBPool
}

func newIntegrationMembershipService(pool *pgxpool.Pool) *MembershipService {
	return NewMembershipService(
		pool,
		repository.NewWorkoutRepository(pool),
		repository.NewCourseRepository(pool),
	)
}

func createTestAccount(t *testing.T, ctx context.Context, pool *pgxpool.Pool, role string) int64 {
	t.Helper()

	userRepo := repository.NewUserRepository(pool)
	user := &models.User{
		Email:        fmt.Sprintf("membership-test-%s-%d@example.com", role, time.Now().UnixNano()),
		PasswordHash: "test-hash",
		FirstName:    "Test",
		LastName:     "Account",
		Role:         role,
	}
	if err := userRepo.CreateUser(ctx, user); err != nil {
		t.Fatalf("CreateUser(%s): %v", role, err)
	}
	return user.ID
}

func createTestWorkout(
	t *testing.T,
	ctx context.Context,
	service *MembershipService,
	coachID int64,
	title string,
) *models.Workout {
	t.Helper()

	workout, err := service.CreateWorkout(ctx, coachID, CreateWorkoutInput{
		Title:       title,
		ScheduledAt: time.Date(2030, 6, 1, 10, 0, 0, 0, time.UTC),
		SportType:   "running",
	})
	if err != nil {
		t.Fatalf("CreateWorkout(%q): %v", title, err)
	}
	return workout
}

func cleanupTestUsers(t *testing.T, ctx context.Context, pool *pgxpool.Pool, userIDs ...int64) {
	t.Helper()

	statements := []string{
		`DELETE FROM workout_enrollments WHERE user_id = ANY($1)
			OR workout_id IN (SELECT id FROM workouts WHERE coach_id = ANY($1))`,
		`DELETE FROM course_enrollments WHERE user_id = ANY($1)
			OR course_id IN (SELECT id FROM courses WHERE coach_id = ANY($1))`,
		`DELETE FROM course_workouts WHERE course_id IN (SELECT id FROM courses WHERE coach_id = ANY($1))
			OR workout_id IN (SELECT id FROM workouts WHERE coach_id = ANY($1))`,
		`DELETE FROM courses WHERE coach_id = ANY($1)`,
		`DELETE FROM workouts WHERE coach_id = ANY($1)`,
		`DELETE FROM users WHERE id = ANY($1)`,
	}
	for _, stmt := range statements {
		if _, err := pool.Exec(ctx, stmt, userIDs); err != nil {
			t.Logf("cleanup: %v", err)
		}
	}
}
