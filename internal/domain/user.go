package domain

import "time"

// UserProfile is keyed by the caller identity.
type UserProfile struct {
	Identity  string    `json:"identity"`
	Name      string    `json:"name"`
	Balance   int64     `json:"balance"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type RegisterUserRequest struct {
	Name string `json:"name" validate:"required"`
}

type SaveFundsRequest struct {
	Amount int64 `json:"amount" validate:"gt=0"`
}
