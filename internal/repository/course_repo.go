package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/tanpii/sportly-back/internal/models"
)

type CreateCourseInput struct {
	Title       string
	Description string
	Price       *float64
	CoachID     int64
}

const courseColumns = `id, title, description, price, coach_id, created_at, updated_at`

type CourseRepository struct {
	db DBTX
}

func NewCourseRepository(db DBTX) *CourseRepository {
	return &CourseRepository{db: db}
}

func scanCourse(row pgx.Row, course *models.Course) error {
	return row.Scan(
		&course.ID,
		&course.Title,
		&course.Description,
		&course.Price,
		&course.CoachID,
		&course.CreatedAt,
		&course.UpdatedAt,
	)
}

func (r *CourseRepository) collectCourses(rows pgx.Rows) ([]models.Course, error) {
	defer rows.Close()

	courses := make([]models.Course, 0)
	for rows.Next() {
		var course models.Course
		if err := scanCourse(rows, &course); err != nil {
			return nil, err
		}
		courses = append(courses, course)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return courses, nil
}

func (r *CourseRepository) Create(ctx context.Context, input CreateCourseInput) (*models.Course, error) {
	query := `
		INSERT INTO courses (title, description, price, coach_id)
		VALUES ($1, $2, $3, $4)
		RETURNING ` + courseColumns

	var course models.Course
	err := scanCourse(r.db.QueryRow(
		ctx,
		query,
		input.Title,
		input.Description,
		input.Price,
		input.CoachID,
	), &course)
	if err != nil {
		return nil, err
	}
	return &course, nil
}

func (r *CourseRepository) GetByID(ctx context.Context, courseID int64) (*models.Course, error) {
	query := `SELECT ` + courseColumns + ` FROM courses WHERE id = $1`
	var course models.Course
	if err := scanCourse(r.db.QueryRow(ctx, query, courseID), &course); err != nil {
		return nil, err
	}
	return &course, nil
}

func (r *CourseRepository) GetOwned(ctx context.Context, courseID, coachID int64) (*models.Course, error) {
	query := `SELECT ` + courseColumns + ` FROM courses WHERE id = $1 AND coach_id = $2`
	var course models.Course
	if err := scanCourse(r.db.QueryRow(ctx, query, courseID, coachID), &course); err != nil {
		return nil, err
	}
	return &course, nil
}

// List returns every course in insertion order; a non-empty search term
// matches the course title or any member workout's sport type.
func (r *CourseRepository) List(ctx context.Context, search string) ([]models.Course, error) {
	args := []any{}
	where := ""
	if term := strings.TrimSpace(search); term != "" {
		args = append(args, "%"+term+"%")
		where = `
		WHERE title ILIKE $1 OR EXISTS (
			SELECT 1
			FROM course_workouts cw
			JOIN workouts w ON w.id = cw.workout_id
			WHERE cw.course_id = courses.id AND w.sport_type ILIKE $1
		)`
	}

	query := fmt.Sprintf(`
		SELECT `+courseColumns+`
		FROM courses
		%s
		ORDER BY id ASC
	`, where)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return r.collectCourses(rows)
}

func (r *CourseRepository) ListByCoachID(ctx context.Context, coachID int64) ([]models.Course, error) {
	query := `
		SELECT ` + courseColumns + `
		FROM courses
		WHERE coach_id = $1
		ORDER BY id ASC
	`
	rows, err := r.db.Query(ctx, query, coachID)
	if err != nil {
		return nil, err
	}
	return r.collectCourses(rows)
}

func (r *CourseRepository) ListEnrolledByUserID(ctx context.Context, userID int64) ([]models.Course, error) {
	query := `
		SELECT c.id, c.title, c.description, c.price, c.coach_id, c.created_at, c.updated_at
		FROM courses c
		JOIN course_enrollments ce ON ce.course_id = c.id
		WHERE ce.user_id = $1
		ORDER BY c.id ASC
	`
	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	return r.collectCourses(rows)
}

func (r *CourseRepository) AttachWorkouts(ctx context.Context, courseID int64, workoutIDs []int64) error {
	if len(workoutIDs) == 0 {
		return nil
	}
	query := `
		INSERT INTO course_workouts (course_id, workout_id)
		SELECT $1, unnest($2::bigint[])
		ON CONFLICT DO NOTHING
	`
	_, err := r.db.Exec(ctx, query, courseID, workoutIDs)
	return err
}

// DetachWorkout removes the membership row; false means the workout was not
// a member of the course.
func (r *CourseRepository) DetachWorkout(ctx context.Context, courseID, workoutID int64) (bool, error) {
	query := `DELETE FROM course_workouts WHERE course_id = $1 AND workout_id = $2`
	tag, err := r.db.Exec(ctx, query, courseID, workoutID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// WorkoutInAnyCourse reports whether any course still references the workout.
// Run inside the transaction that changed the membership so the answer
// reflects that change.
func (r *CourseRepository) WorkoutInAnyCourse(ctx context.Context, workoutID int64) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM course_workouts WHERE workout_id = $1)`
	var exists bool
	if err := r.db.QueryRow(ctx, query, workoutID).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

func (r *CourseRepository) ListMemberWorkoutIDs(ctx context.Context, courseID int64) ([]int64, error) {
	query := `SELECT workout_id FROM course_workouts WHERE course_id = $1 ORDER BY workout_id ASC`
	rows, err := r.db.Query(ctx, query, courseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := make([]int64, 0)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *CourseRepository) ListWorkoutsByCourseIDs(ctx context.Context, courseIDs []int64) (map[int64][]models.Workout, error) {
	workouts := make(map[int64][]models.Workout)
	if len(courseIDs) == 0 {
		return workouts, nil
	}

	query := `
		SELECT cw.course_id, w.id, w.title, w.description, w.scheduled_at, w.address, w.price,
			w.sport_type, w.coach_id, w.is_course_part, w.created_at, w.updated_at
		FROM course_workouts cw
		JOIN workouts w ON w.id = cw.workout_id
		WHERE cw.course_id = ANY($1)
		ORDER BY cw.course_id ASC, w.scheduled_at ASC, w.id ASC
	`
	rows, err := r.db.Query(ctx, query, courseIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var courseID int64
		var workout models.Workout
		if err := rows.Scan(
			&courseID,
			&workout.ID,
			&workout.Title,
			&workout.Description,
			&workout.ScheduledAt,
			&workout.Address,
			&workout.Price,
			&workout.SportType,
			&workout.CoachID,
			&workout.IsCoursePart,
			&workout.CreatedAt,
			&workout.UpdatedAt,
		); err != nil {
			return nil, err
		}
		workouts[courseID] = append(workouts[courseID], workout)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return workouts, nil
}

// Delete removes the course only when the coach owns it; membership and
// enrollment rows must already be gone (see MembershipService.DeleteCourse).
func (r *CourseRepository) Delete(ctx context.Context, courseID, coachID int64) (bool, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM courses WHERE id = $1 AND coach_id = $2`, courseID, coachID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *CourseRepository) DeleteMemberships(ctx context.Context, courseID int64) error {
	_, err := r.db.Exec(ctx, `DELETE FROM course_workouts WHERE course_id = $1`, courseID)
	return err
}

func (r *CourseRepository) DeleteEnrollments(ctx context.Context, courseID int64) error {
	_, err := r.db.Exec(ctx, `DELETE FROM course_enrollments WHERE course_id = $1`, courseID)
	return err
}

func (r *CourseRepository) DeleteMembershipsByWorkout(ctx context.Context, workoutID int64) error {
	_, err := r.db.Exec(ctx, `DELETE FROM course_workouts WHERE workout_id = $1`, workoutID)
	return err
}

// Enroll adds the membership row; false means the user was already enrolled.
func (r *CourseRepository) Enroll(ctx context.Context, courseID, userID int64) (bool, error) {
	query := `
		INSERT INTO course_enrollments (course_id, user_id)
		VALUES ($1, $2)
		ON CONFLICT DO NOTHING
	`
	tag, err := r.db.Exec(ctx, query, courseID, userID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// Unenroll removes the membership row; false means no enrollment existed.
func (r *CourseRepository) Unenroll(ctx context.Context, courseID, userID int64) (bool, error) {
	query := `DELETE FROM course_enrollments WHERE course_id = $1 AND user_id = $2`
	tag, err := r.db.Exec(ctx, query, courseID, userID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *CourseRepository) IsEnrolled(ctx context.Context, courseID, userID int64) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM course_enrollments WHERE course_id = $1 AND user_id = $2)`
	var enrolled bool
	if err := r.db.QueryRow(ctx, query, courseID, userID).Scan(&enrolled); err != nil {
		return false, err
	}
	return enrolled, nil
}

func (r *CourseRepository) ListEnrolledUsersByCourseIDs(ctx context.Context, courseIDs []int64) (map[int64][]models.UserSummary, error) {
	enrolled := make(map[int64][]models.UserSummary)
	if len(courseIDs) == 0 {
		return enrolled, nil
	}

	query := `
		SELECT ce.course_id, u.id, u.email, u.first_name, u.last_name, u.role, u.profile_photo_url
		FROM course_enrollments ce
		JOIN users u ON u.id = ce.user_id
		WHERE ce.course_id = ANY($1)
		ORDER BY ce.course_id ASC, u.id ASC
	`
	rows, err := r.db.Query(ctx, query, courseIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var courseID int64
		var summary models.UserSummary
		if err := rows.Scan(
			&courseID,
			&summary.ID,
			&summary.Email,
			&summary.FirstName,
			&summary.LastName,
			&summary.Role,
			&summary.PhotoURL,
		); err != nil {
			return nil, err
		}
		enrolled[courseID] = append(enrolled[courseID], summary)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return enrolled, nil
}
