package models

import "time"

type Course struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Price       *float64  `json:"price,omitempty"`
	CoachID     int64     `json:"coach_id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type CourseDetail struct {
	Course
	Coach         *UserSummary  `json:"coach,omitempty"`
	Workouts      []Workout     `json:"workouts"`
	EnrolledUsers []UserSummary `json:"enrolled_users,omitempty"`
}
