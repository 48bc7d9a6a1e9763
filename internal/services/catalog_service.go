package services

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/tanpii/sportly-back/internal/models"
)

type catalogUserRepo interface {
	ListByIDs(ctx context.Context, ids []int64) (map[int64]models.User, error)
	GetCoachByID(ctx context.Context, id int64) (*models.User, error)
	ListCoaches(ctx context.Context, limit, offset int) ([]models.User, int, error)
}

type catalogWorkoutRepo interface {
	List(ctx context.Context, search string) ([]models.Workout, error)
	GetByID(ctx context.Context, workoutID int64) (*models.Workout, error)
	ListByCoachID(ctx context.Context, coachID int64) ([]models.Workout, error)
	ListEnrolledByUserID(ctx context.Context, userID int64) ([]models.Workout, error)
	ListEnrolledUsersByWorkoutIDs(ctx context.Context, workoutIDs []int64) (map[int64][]models.UserSummary, error)
}

type catalogCourseRepo interface {
	List(ctx context.Context, search string) ([]models.Course, error)
	GetByID(ctx context.Context, courseID int64) (*models.Course, error)
	GetOwned(ctx context.Context, courseID, coachID int64) (*models.Course, error)
	IsEnrolled(ctx context.Context, courseID, userID int64) (bool, error)
	ListByCoachID(ctx context.Context, coachID int64) ([]models.Course, error)
	ListEnrolledByUserID(ctx context.Context, userID int64) ([]models.Course, error)
	ListWorkoutsByCourseIDs(ctx context.Context, courseIDs []int64) (map[int64][]models.Workout, error)
	ListEnrolledUsersByCourseIDs(ctx context.Context, courseIDs []int64) (map[int64][]models.UserSummary, error)
}

// CatalogService produces the read-side views: public catalogs with coach
// summaries resolved, role-scoped "my" listings, and coach profiles.
type CatalogService struct {
	userRepo    catalogUserRepo
	workoutRepo catalogWorkoutRepo
	courseRepo  catalogCourseRepo
}

func NewCatalogService(
	userRepo catalogUserRepo,
	workoutRepo catalogWorkoutRepo,
	courseRepo catalogCourseRepo,
) *CatalogService {
	return &CatalogService{
		userRepo:    userRepo,
		workoutRepo: workoutRepo,
		courseRepo:  courseRepo,
	}
}

// ListWorkouts returns all workouts ordered by schedule, each with its coach
// resolved. The search term filters by title or sport type.
func (s *CatalogService) ListWorkouts(ctx context.Context, search string) ([]models.WorkoutDetail, error) {
	workouts, err := s.workoutRepo.List(ctx, search)
	if err != nil {
		return nil, err
	}

	coaches, err := s.resolveCoaches(ctx, coachIDsOfWorkouts(workouts))
	if err != nil {
		return nil, err
	}

	details := make([]models.WorkoutDetail, 0, len(workouts))
	for _, workout := range workouts {
		details = append(details, models.WorkoutDetail{
			Workout: workout,
			Coach:   coaches[workout.CoachID],
		})
	}
	return details, nil
}

// ListCourses returns all courses with coach and member workouts resolved.
// The search term matches the course title or any member workout's sport
// type.
func (s *CatalogService) ListCourses(ctx context.Context, search string) ([]models.CourseDetail, error) {
	courses, err := s.courseRepo.List(ctx, search)
	if err != nil {
		return nil, err
	}
	return s.buildCourseDetails(ctx, courses, false)
}

func (s *CatalogService) GetWorkout(ctx context.Context, workoutID int64) (*models.WorkoutDetail, error) {
	workout, err := s.workoutRepo.GetByID(ctx, workoutID)
	if err != nil {
		return nil, err
	}

	coaches, err := s.resolveCoaches(ctx, []int64{workout.CoachID})
	if err != nil {
		return nil, err
	}
	return &models.WorkoutDetail{Workout: *workout, Coach: coaches[workout.CoachID]}, nil
}

func (s *CatalogService) GetCourse(ctx context.Context, courseID int64) (*models.CourseDetail, error) {
	course, err := s.courseRepo.GetByID(ctx, courseID)
	if err != nil {
		return nil, err
	}

	details, err := s.buildCourseDetails(ctx, []models.Course{*course}, false)
	if err != nil {
		return nil, err
	}
	return &details[0], nil
}

// MyWorkouts dispatches on role: a coach sees the workouts they run with
// enrollment lists resolved, a participant sees the workouts they are
// enrolled in with only the coach resolved.
func (s *CatalogService) MyWorkouts(ctx context.Context, userID int64, role string) ([]models.WorkoutDetail, error) {
	if role == models.RoleCoach {
		workouts, err := s.workoutRepo.ListByCoachID(ctx, userID)
		if err != nil {
			return nil, err
		}

		enrolled, err := s.workoutRepo.ListEnrolledUsersByWorkoutIDs(ctx, workoutIDs(workouts))
		if err != nil {
			return nil, err
		}

		details := make([]models.WorkoutDetail, 0, len(workouts))
		for _, workout := range workouts {
			details = append(details, models.WorkoutDetail{
				Workout:       workout,
				EnrolledUsers: enrolled[workout.ID],
			})
		}
		return details, nil
	}

	workouts, err := s.workoutRepo.ListEnrolledByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}

	coaches, err := s.resolveCoaches(ctx, coachIDsOfWorkouts(workouts))
	if err != nil {
		return nil, err
	}

	details := make([]models.WorkoutDetail, 0, len(workouts))
	for _, workout := range workouts {
		details = append(details, models.WorkoutDetail{
			Workout: workout,
			Coach:   coaches[workout.CoachID],
		})
	}
	return details, nil
}

// MyCourses mirrors MyWorkouts: owned courses with enrollment lists for a
// coach, enrolled courses with coach summaries for a participant. Member
// workouts are resolved in both views.
func (s *CatalogService) MyCourses(ctx context.Context, userID int64, role string) ([]models.CourseDetail, error) {
	if role == models.RoleCoach {
		courses, err := s.courseRepo.ListByCoachID(ctx, userID)
		if err != nil {
			return nil, err
		}
		return s.buildCourseDetails(ctx, courses, true)
	}

	courses, err := s.courseRepo.ListEnrolledByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.buildCourseDetails(ctx, courses, false)
}

// MyCourse is the single-course variant of MyCourses; a participant only
// sees courses they are enrolled in, surfaced as not-found otherwise.
func (s *CatalogService) MyCourse(ctx context.Context, userID int64, role string, courseID int64) (*models.CourseDetail, error) {
	if role == models.RoleCoach {
		course, err := s.courseRepo.GetOwned(ctx, courseID, userID)
		if err != nil {
			return nil, err
		}
		details, err := s.buildCourseDetails(ctx, []models.Course{*course}, true)
		if err != nil {
			return nil, err
		}
		return &details[0], nil
	}

	course, err := s.courseRepo.GetByID(ctx, courseID)
	if err != nil {
		return nil, err
	}
	enrolled, err := s.courseRepo.IsEnrolled(ctx, courseID, userID)
	if err != nil {
		return nil, err
	}
	if !enrolled {
		return nil, pgx.ErrNoRows
	}

	details, err := s.buildCourseDetails(ctx, []models.Course{*course}, false)
	if err != nil {
		return nil, err
	}
	return &details[0], nil
}

type CoachProfile struct {
	Coach    models.User
	Workouts []models.Workout
	Courses  []models.Course
}

// CoachProfile returns the coach's public profile together with everything
// they offer; pgx.ErrNoRows when the id does not resolve to a coach.
func (s *CatalogService) CoachProfile(ctx context.Context, coachID int64) (*CoachProfile, error) {
	coach, err := s.userRepo.GetCoachByID(ctx, coachID)
	if err != nil {
		return nil, err
	}

	workouts, err := s.workoutRepo.ListByCoachID(ctx, coachID)
	if err != nil {
		return nil, err
	}
	courses, err := s.courseRepo.ListByCoachID(ctx, coachID)
	if err != nil {
		return nil, err
	}

	return &CoachProfile{Coach: *coach, Workouts: workouts, Courses: courses}, nil
}

func (s *CatalogService) ListCoaches(ctx context.Context, limit, offset int) ([]models.User, int, error) {
	return s.userRepo.ListCoaches(ctx, limit, offset)
}

func (s *CatalogService) buildCourseDetails(
	ctx context.Context,
	courses []models.Course,
	withEnrolledUsers bool,
) ([]models.CourseDetail, error) {
	ids := courseIDs(courses)

	workoutsByCourse, err := s.courseRepo.ListWorkoutsByCourseIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	var enrolledByCourse map[int64][]models.UserSummary
	var coaches map[int64]*models.UserSummary
	if withEnrolledUsers {
		enrolledByCourse, err = s.courseRepo.ListEnrolledUsersByCourseIDs(ctx, ids)
		if err != nil {
			return nil, err
		}
	} else {
		coaches, err = s.resolveCoaches(ctx, coachIDsOfCourses(courses))
		if err != nil {
			return nil, err
		}
	}

	details := make([]models.CourseDetail, 0, len(courses))
	for _, course := range courses {
		workouts := workoutsByCourse[course.ID]
		if workouts == nil {
			workouts = []models.Workout{}
		}
		detail := models.CourseDetail{Course: course, Workouts: workouts}
		if withEnrolledUsers {
			detail.EnrolledUsers = enrolledByCourse[course.ID]
		} else {
			detail.Coach = coaches[course.CoachID]
		}
		details = append(details, detail)
	}
	return details, nil
}

func (s *CatalogService) resolveCoaches(ctx context.Context, ids []int64) (map[int64]*models.UserSummary, error) {
	users, err := s.userRepo.ListByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	summaries := make(map[int64]*models.UserSummary, len(users))
	for id, user := range users {
		summary := user.Summary()
		summaries[id] = &summary
	}
	return summaries, nil
}

func coachIDsOfWorkouts(workouts []models.Workout) []int64 {
	return dedupeIDs(collectIDs(len(workouts), func(i int) int64 { return workouts[i].CoachID }))
}

func coachIDsOfCourses(courses []models.Course) []int64 {
	return dedupeIDs(collectIDs(len(courses), func(i int) int64 { return courses[i].CoachID }))
}

func workoutIDs(workouts []models.Workout) []int64 {
	return collectIDs(len(workouts), func(i int) int64 { return workouts[i].ID })
}

func courseIDs(courses []models.Course) []int64 {
	return collectIDs(len(courses), func(i int) int64 { return courses[i].ID })
}

func collectIDs(n int, id func(int) int64) []int64 {
	ids := make([]int64, 0, n)
	for i := 0; i < n; i++ {
		ids = append(ids, id(i))
	}
	return ids
}
