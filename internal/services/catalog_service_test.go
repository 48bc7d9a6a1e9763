package services

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/tanpii/sportly-back/internal/models"
)

type stubUserRepo struct {
	users   map[int64]models.User
	coaches []models.User
	total   int
}

func (s *stubUserRepo) ListByIDs(_ context.Context, ids []int64) (map[int64]models.User, error) {
	found := make(map[int64]models.User, len(ids))
	for _, id := range ids {
		if user, ok := s.users[id]; ok {
			found[id] = user
		}
	}
	return found, nil
}

func (s *stubUserRepo) GetCoachByID(_ context.Context, id int64) (*models.User, error) {
	user, ok := s.users[id]
	if !ok || user.Role != models.RoleCoach {
		return nil, pgx.ErrNoRows
	}
	return &user, nil
}

func (s *stubUserRepo) ListCoaches(_ context.Context, _, _ int) ([]models.User, int, error) {
	return s.coaches, s.total, nil
}

type stubWorkoutRepo struct {
	workouts       []models.Workout
	byCoach        map[int64][]models.Workout
	enrolledByUser map[int64][]models.Workout
	enrolledUsers  map[int64][]models.UserSummary
	lastSearch     string
}

func (s *stubWorkoutRepo) List(_ context.Context, search string) ([]models.Workout, error) {
	s.lastSearch = search
	return s.workouts, nil
}

func (s *stubWorkoutRepo) GetByID(_ context.Context, workoutID int64) (*models.Workout, error) {
	for _, w := range s.workouts {
		if w.ID == workoutID {
			return &w, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (s *stubWorkoutRepo) ListByCoachID(_ context.Context, coachID int64) ([]models.Workout, error) {
	return s.byCoach[coachID], nil
}

func (s *stubWorkoutRepo) ListEnrolledByUserID(_ context.Context, userID int64) ([]models.Workout, error) {
	return s.enrolledByUser[userID], nil
}

func (s *stubWorkoutRepo) ListEnrolledUsersByWorkoutIDs(_ context.Context, workoutIDs []int64) (map[int64][]models.UserSummary, error) {
	found := make(map[int64][]models.UserSummary, len(workoutIDs))
	for _, id := range workoutIDs {
		if users, ok := s.enrolledUsers[id]; ok {
			found[id] = users
		}
	}
	return found, nil
}

type stubCourseRepo struct {
	courses        []models.Course
	byCoach        map[int64][]models.Course
	enrolledByUser map[int64][]models.Course
	enrolledCourse map[int64]map[int64]bool
	memberWorkouts map[int64][]models.Workout
	enrolledUsers  map[int64][]models.UserSummary
}

func (s *stubCourseRepo) List(_ context.Context, _ string) ([]models.Course, error) {
	return s.courses, nil
}

func (s *stubCourseRepo) GetByID(_ context.Context, courseID int64) (*models.Course, error) {
	for _, c := range s.courses {
		if c.ID == courseID {
			return &c, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (s *stubCourseRepo) GetOwned(_ context.Context, courseID, coachID int64) (*models.Course, error) {
	for _, c := range s.courses {
		if c.ID == courseID && c.CoachID == coachID {
			return &c, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (s *stubCourseRepo) IsEnrolled(_ context.Context, courseID, userID int64) (bool, error) {
	return s.enrolledCourse[courseID][userID], nil
}

func (s *stubCourseRepo) ListByCoachID(_ context.Context, coachID int64) ([]models.Course, error) {
	return s.byCoach[coachID], nil
}

func (s *stubCourseRepo) ListEnrolledByUserID(_ context.Context, userID int64) ([]models.Course, error) {
	return s.enrolledByUser[userID], nil
}

func (s *stubCourseRepo) ListWorkoutsByCourseIDs(_ context.Context, courseIDs []int64) (map[int64][]models.Workout, error) {
	found := make(map[int64][]models.Workout, len(courseIDs))
	for _, id := range courseIDs {
		if workouts, ok := s.memberWorkouts[id]; ok {
			found[id] = workouts
		}
	}
	return found, nil
}

func (s *stubCourseRepo) ListEnrolledUsersByCourseIDs(_ context.Context, courseIDs []int64) (map[int64][]models.UserSummary, error) {
	found := make(map[int64][]models.UserSummary, len(courseIDs))
	for _, id := range courseIDs {
		if users, ok := s.enrolledUsers[id]; ok {
			found[id] = users
		}
	}
	return found, nil
}

func coachUser(id int64, firstName string) models.User {
	return models.User{ID: id, Email: firstName + "@example.com", FirstName: firstName, LastName: "Coach", Role: models.RoleCoach}
}

func TestListWorkoutsResolvesCoachSummaries(t *testing.T) {
	workoutRepo := &stubWorkoutRepo{
		workouts: []models.Workout{
			{ID: 1, Title: "Run", CoachID: 10},
			{ID: 2, Title: "Swim", CoachID: 20},
		},
	}
	service := NewCatalogService(
		&stubUserRepo{users: map[int64]models.User{
			10: coachUser(10, "Anna"),
			20: coachUser(20, "Boris"),
		}},
		workoutRepo,
		&stubCourseRepo{},
	)

	details, err := service.ListWorkouts(context.Background(), "ru")
	if err != nil {
		t.Fatalf("ListWorkouts: %v", err)
	}

	if workoutRepo.lastSearch != "ru" {
		t.Fatalf("expected search term to be forwarded, got %q", workoutRepo.lastSearch)
	}
	if len(details) != 2 {
		t.Fatalf("expected 2 workouts, got %d", len(details))
	}
	if details[0].Coach == nil || details[0].Coach.ID != 10 {
		t.Fatalf("expected coach 10 on first workout, got %+v", details[0].Coach)
	}
	if details[1].Coach == nil || details[1].Coach.FirstName != "Boris" {
		t.Fatalf("expected coach Boris on second workout, got %+v", details[1].Coach)
	}
	if details[0].EnrolledUsers != nil {
		t.Fatalf("public listing must not expose enrolled users")
	}
}

func TestMyWorkoutsDispatchesOnRole(t *testing.T) {
	workoutRepo := &stubWorkoutRepo{
		byCoach: map[int64][]models.Workout{
			10: {{ID: 1, Title: "Owned", CoachID: 10}},
		},
		enrolledByUser: map[int64][]models.Workout{
			42: {{ID: 2, Title: "Joined", CoachID: 10}},
		},
		enrolledUsers: map[int64][]models.UserSummary{
			1: {{ID: 42, FirstName: "Vera"}},
		},
	}
	service := NewCatalogService(
		&stubUserRepo{users: map[int64]models.User{10: coachUser(10, "Anna")}},
		workoutRepo,
		&stubCourseRepo{},
	)

	coachView, err := service.MyWorkouts(context.Background(), 10, models.RoleCoach)
	if err != nil {
		t.Fatalf("MyWorkouts coach: %v", err)
	}
	if len(coachView) != 1 || coachView[0].Title != "Owned" {
		t.Fatalf("unexpected coach view: %+v", coachView)
	}
	if len(coachView[0].EnrolledUsers) != 1 || coachView[0].EnrolledUsers[0].ID != 42 {
		t.Fatalf("expected enrolled user 42 in coach view, got %+v", coachView[0].EnrolledUsers)
	}

	userView, err := service.MyWorkouts(context.Background(), 42, models.RoleParticipant)
	if err != nil {
		t.Fatalf("MyWorkouts participant: %v", err)
	}
	if len(userView) != 1 || userView[0].Title != "Joined" {
		t.Fatalf("unexpected participant view: %+v", userView)
	}
	if userView[0].Coach == nil || userView[0].Coach.ID != 10 {
		t.Fatalf("expected coach summary in participant view, got %+v", userView[0].Coach)
	}
	if userView[0].EnrolledUsers != nil {
		t.Fatalf("participant view must not expose enrolled users")
	}
}

func TestMyCourseHidesCoursesTheUserIsNotEnrolledIn(t *testing.T) {
	courseRepo := &stubCourseRepo{
		courses: []models.Course{{ID: 5, Title: "Plan", CoachID: 10}},
		enrolledCourse: map[int64]map[int64]bool{
			5: {42: true},
		},
	}
	service := NewCatalogService(
		&stubUserRepo{users: map[int64]models.User{10: coachUser(10, "Anna")}},
		&stubWorkoutRepo{},
		courseRepo,
	)

	course, err := service.MyCourse(context.Background(), 42, models.RoleParticipant, 5)
	if err != nil {
		t.Fatalf("MyCourse enrolled: %v", err)
	}
	if course.ID != 5 {
		t.Fatalf("expected course 5, got %d", course.ID)
	}

	if _, err := service.MyCourse(context.Background(), 99, models.RoleParticipant, 5); !errors.Is(err, pgx.ErrNoRows) {
		t.Fatalf("expected pgx.ErrNoRows for non-enrolled user, got %v", err)
	}
}

func TestMyCoursesAsCoachResolvesMembersAndEnrollments(t *testing.T) {
	courseRepo := &stubCourseRepo{
		byCoach: map[int64][]models.Course{
			10: {{ID: 5, Title: "Plan", CoachID: 10}},
		},
		memberWorkouts: map[int64][]models.Workout{
			5: {{ID: 1, Title: "Run", CoachID: 10, IsCoursePart: true}},
		},
		enrolledUsers: map[int64][]models.UserSummary{
			5: {{ID: 42, FirstName: "Vera"}},
		},
	}
	service := NewCatalogService(
		&stubUserRepo{users: map[int64]models.User{10: coachUser(10, "Anna")}},
		&stubWorkoutRepo{},
		courseRepo,
	)

	courses, err := service.MyCourses(context.Background(), 10, models.RoleCoach)
	if err != nil {
		t.Fatalf("MyCourses: %v", err)
	}
	if len(courses) != 1 {
		t.Fatalf("expected 1 course, got %d", len(courses))
	}
	if len(courses[0].Workouts) != 1 || !courses[0].Workouts[0].IsCoursePart {
		t.Fatalf("expected member workout with course flag, got %+v", courses[0].Workouts)
	}
	if len(courses[0].EnrolledUsers) != 1 || courses[0].EnrolledUsers[0].ID != 42 {
		t.Fatalf("expected enrolled user 42, got %+v", courses[0].EnrolledUsers)
	}
}

func TestCoachProfileReturnsOfferings(t *testing.T) {
	service := NewCatalogService(
		&stubUserRepo{users: map[int64]models.User{10: coachUser(10, "Anna")}},
		&stubWorkoutRepo{byCoach: map[int64][]models.Workout{
			10: {{ID: 1, Title: "Run", CoachID: 10}},
		}},
		&stubCourseRepo{byCoach: map[int64][]models.Course{
			10: {{ID: 5, Title: "Plan", CoachID: 10}},
		}},
	)

	profile, err := service.CoachProfile(context.Background(), 10)
	if err != nil {
		t.Fatalf("CoachProfile: %v", err)
	}
	if profile.Coach.ID != 10 {
		t.Fatalf("expected coach 10, got %d", profile.Coach.ID)
	}
	if len(profile.Workouts) != 1 || len(profile.Courses) != 1 {
		t.Fatalf("expected one workout and one course, got %d and %d", len(profile.Workouts), len(profile.Courses))
	}

	if _, err := service.CoachProfile(context.Background(), 99); !errors.Is(err, pgx.ErrNoRows) {
		t.Fatalf("expected pgx.ErrNoRows for unknown coach, got %v", err)
	}
}
