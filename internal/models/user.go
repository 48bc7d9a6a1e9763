package models

import "time"

const (
	RoleCoach       = "coach"
	RoleParticipant = "user"
)

type User struct {
	ID              int64     `json:"id"`
	Email           string    `json:"email"`
	PasswordHash    string    `json:"-"`
	FirstName       string    `json:"first_name"`
	LastName        string    `json:"last_name"`
	MiddleName      *string   `json:"middle_name,omitempty"`
	PhoneNumber     *string   `json:"phone_number,omitempty"`
	Role            string    `json:"role"`
	Description     *string   `json:"description,omitempty"`
	ExperienceYears *int      `json:"experience_years,omitempty"`
	ProfilePhotoURL *string   `json:"profile_photo_url,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func (u *User) IsCoach() bool {
	return u.Role == RoleCoach
}

// UserSummary is the shape embedded in workout and course views.
type UserSummary struct {
	ID        int64   `json:"id"`
	Email     string  `json:"email"`
	FirstName string  `json:"first_name"`
	LastName  string  `json:"last_name"`
	Role      string  `json:"role"`
	PhotoURL  *string `json:"profile_photo_url,omitempty"`
}

func (u *User) Summary() UserSummary {
	return UserSummary{
		ID:        u.ID,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Role:      u.Role,
		PhotoURL:  u.ProfilePhotoURL,
	}
}

type PaginationMeta struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}
