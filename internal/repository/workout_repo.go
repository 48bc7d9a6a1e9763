package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/tanpii/sportly-back/internal/models"
)

type CreateWorkoutInput struct {
	Title       string
	Description string
	ScheduledAt time.Time
	Address     string
	Price       *float64
	SportType   string
	CoachID     int64
}

const workoutColumns = `id, title, description, scheduled_at, address, price, sport_type,
		coach_id, is_course_part, created_at, updated_at`

type WorkoutRepository struct {
	db DBTX
}

func NewWorkoutRepository(db DBTX) *WorkoutRepository {
	return &WorkoutRepository{db: db}
}

func scanWorkout(row pgx.Row, workout *models.Workout) error {
	return row.Scan(
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
	)
}

func (r *WorkoutRepository) collectWorkouts(rows pgx.Rows) ([]models.Workout, error) {
	defer rows.Close()

	workouts := make([]models.Workout, 0)
	for rows.Next() {
		var workout models.Workout
		if err := scanWorkout(rows, &workout); err != nil {
			return nil, err
		}
		workouts = append(workouts, workout)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return workouts, nil
}

func (r *WorkoutRepository) Create(ctx context.Context, input CreateWorkoutInput) (*models.Workout, error) {
	query := `
		INSERT INTO workouts (title, description, scheduled_at, address, price, sport_type, coach_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING ` + workoutColumns

	var workout models.Workout
	err := scanWorkout(r.db.QueryRow(
		ctx,
		query,
		input.Title,
		input.Description,
		input.ScheduledAt,
		input.Address,
		input.Price,
		input.SportType,
		input.CoachID,
	), &workout)
	if err != nil {
		return nil, err
	}
	return &workout, nil
}

func (r *WorkoutRepository) GetByID(ctx context.Context, workoutID int64) (*models.Workout, error) {
	query := `SELECT ` + workoutColumns + ` FROM workouts WHERE id = $1`
	var workout models.Workout
	if err := scanWorkout(r.db.QueryRow(ctx, query, workoutID), &workout); err != nil {
		return nil, err
	}
	return &workout, nil
}

func (r *WorkoutRepository) GetOwned(ctx context.Context, workoutID, coachID int64) (*models.Workout, error) {
	query := `SELECT ` + workoutColumns + ` FROM workouts WHERE id = $1 AND coach_id = $2`
	var workout models.Workout
	if err := scanWorkout(r.db.QueryRow(ctx, query, workoutID, coachID), &workout); err != nil {
		return nil, err
	}
	return &workout, nil
}

// List returns every workout ordered by schedule; a non-empty search term
// filters by title or sport type, case-insensitively.
func (r *WorkoutRepository) List(ctx context.Context, search string) ([]models.Workout, error) {
	args := []any{}
	where := ""
	if term := strings.TrimSpace(search); term != "" {
		args = append(args, "%"+term+"%")
		where = "WHERE title ILIKE $1 OR sport_type ILIKE $1"
	}

	query := fmt.Sprintf(`
		SELECT `+workoutColumns+`
		FROM workouts
		%s
		ORDER BY scheduled_at ASC, id ASC
	`, where)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return r.collectWorkouts(rows)
}

func (r *WorkoutRepository) ListByCoachID(ctx context.Context, coachID int64) ([]models.Workout, error) {
	query := `
		SELECT ` + workoutColumns + `
		FROM workouts
		WHERE coach_id = $1
		ORDER BY scheduled_at ASC, id ASC
	`
	rows, err := r.db.Query(ctx, query, coachID)
	if err != nil {
		return nil, err
	}
	return r.collectWorkouts(rows)
}

func (r *WorkoutRepository) ListEnrolledByUserID(ctx context.Context, userID int64) ([]models.Workout, error) {
	query := `
		SELECT w.id, w.title, w.description, w.scheduled_at, w.address, w.price, w.sport_type,
			w.coach_id, w.is_course_part, w.created_at, w.updated_at
		FROM workouts w
		JOIN workout_enrollments we ON we.workout_id = w.id
		WHERE we.user_id = $1
		ORDER BY w.scheduled_at ASC, w.id ASC
	`
	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	return r.collectWorkouts(rows)
}

// ListOwnedByIDs resolves ids against the coach's own workouts; callers
// compare result length with the requested ids to detect foreign or missing
// ones.
func (r *WorkoutRepository) ListOwnedByIDs(ctx context.Context, coachID int64, ids []int64) ([]models.Workout, error) {
	if len(ids) == 0 {
		return []models.Workout{}, nil
	}

	query := `
		SELECT ` + workoutColumns + `
		FROM workouts
		WHERE coach_id = $1 AND id = ANY($2)
		ORDER BY scheduled_at ASC, id ASC
	`
	rows, err := r.db.Query(ctx, query, coachID, ids)
	if err != nil {
		return nil, err
	}
	return r.collectWorkouts(rows)
}

func (r *WorkoutRepository) SetCoursePart(ctx context.Context, workoutID int64, isCoursePart bool) error {
	query := `
		UPDATE workouts
		SET is_course_part = $2, updated_at = NOW()
		WHERE id = $1
	`
	_, err := r.db.Exec(ctx, query, workoutID, isCoursePart)
	return err
}

func (r *WorkoutRepository) SetCoursePartForIDs(ctx context.Context, ids []int64, isCoursePart bool) error {
	if len(ids) == 0 {
		return nil
	}
	query := `
		UPDATE workouts
		SET is_course_part = $2, updated_at = NOW()
		WHERE id = ANY($1)
	`
	_, err := r.db.Exec(ctx, query, ids, isCoursePart)
	return err
}

// Delete removes the workout only when the coach owns it; the membership and
// enrollment rows must already be gone (see MembershipService.DeleteWorkout).
func (r *WorkoutRepository) Delete(ctx context.Context, workoutID, coachID int64) (bool, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM workouts WHERE id = $1 AND coach_id = $2`, workoutID, coachID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *WorkoutRepository) DeleteEnrollments(ctx context.Context, workoutID int64) error {
	_, err := r.db.Exec(ctx, `DELETE FROM workout_enrollments WHERE workout_id = $1`, workoutID)
	return err
}

// Enroll adds the membership row; false means the user was already enrolled.
func (r *WorkoutRepository) Enroll(ctx context.Context, workoutID, userID int64) (bool, error) {
	query := `
		INSERT INTO workout_enrollments (workout_id, user_id)
		VALUES ($1, $2)
		ON CONFLICT DO NOTHING
	`
	tag, err := r.db.Exec(ctx, query, workoutID, userID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// Unenroll removes the membership row; false means no enrollment existed.
func (r *WorkoutRepository) Unenroll(ctx context.Context, workoutID, userID int64) (bool, error) {
	query := `DELETE FROM workout_enrollments WHERE workout_id = $1 AND user_id = $2`
	tag, err := r.db.Exec(ctx, query, workoutID, userID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *WorkoutRepository) ListEnrolledUsersByWorkoutIDs(ctx context.Context, workoutIDs []int64) (map[int64][]models.UserSummary, error) {
	enrolled := make(map[int64][]models.UserSummary)
	if len(workoutIDs) == 0 {
		return enrolled, nil
	}

	query := `
		SELECT we.workout_id, u.id, u.email, u.first_name, u.last_name, u.role, u.profile_photo_url
		FROM workout_enrollments we
		JOIN users u ON u.id = we.user_id
		WHERE we.workout_id = ANY($1)
		ORDER BY we.workout_id ASC, u.id ASC
	`
	rows, err := r.db.Query(ctx, query, workoutIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var workoutID int64
		var summary models.UserSummary
		if err := rows.Scan(
			&workoutID,
			&summary.ID,
			&summary.Email,
			&summary.FirstName,
			&summary.LastName,
			&summary.Role,
			&summary.PhotoURL,
		); err != nil {
			return nil, err
		}
		enrolled[workoutID] = append(enrolled[workoutID], summary)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return enrolled, nil
}
