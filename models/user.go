package models

import "time"

const (
	RoleCustomer = "customer"
	RoleStaff    = "staff"
)

type User struct {
	ID            int64     `json:"id"`
	Name          string    `json:"name"`
	Email         string    `json:"email"`
	Phone         *string   `json:"phone,omitempty"`
	LoyaltyPoints *int      `json:"loyalty_points,omitempty"`
	Role          string    `json:"role"`
	CreatedAt     time.Time `json:"created_at"`
}

func (u *User) IsStaff() bool {
	return u != nil && u.Role == RoleStaff
}
