package models

import "time"

type Workout struct {
	ID           int64     `json:"id"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	ScheduledAt  time.Time `json:"scheduled_at"`
	Address      string    `json:"address"`
	Price        *float64  `json:"price,omitempty"`
	SportType    string    `json:"sport_type"`
	CoachID      int64     `json:"coach_id"`
	IsCoursePart bool      `json:"is_course_part"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// WorkoutDetail carries the workout with whichever related entities the
// calling view resolved. Coach is set for public and participant views,
// EnrolledUsers only for the owning coach's view.
type WorkoutDetail struct {
	Workout
	Coach         *UserSummary  `json:"coach,omitempty"`
	EnrolledUsers []UserSummary `json:"enrolled_users,omitempty"`
}
