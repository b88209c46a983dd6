package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Role represents user roles in the system
type Role string

const (
	RoleAdmin      Role = "admin"
	RoleTechnician Role = "technician"
	RoleClient     Role = "client"
)

// UserStatus represents the account state of a user
type UserStatus string

const (
	UserStatusActive   UserStatus = "active"
	UserStatusInactive UserStatus = "inactive"
	UserStatusPending  UserStatus = "pending"
	UserStatusOnLeave  UserStatus = "on_leave"
)

// User represents a principal in the system. Client-specific and
// technician-specific fields are optional and only populated for the
// corresponding role.
type User struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name         string             `bson:"name" json:"name"`
	Email        string             `bson:"email" json:"email"`
	PasswordHash string             `bson:"password_hash" json:"-"`
	Role         Role               `bson:"role" json:"role"`
	Phone        string             `bson:"phone,omitempty" json:"phone,omitempty"`
	ProfileImage string             `bson:"profile_image,omitempty" json:"profile_image,omitempty"`
	Status       UserStatus         `bson:"status" json:"status"`

	// Client fields
	RUC           string `bson:"ruc,omitempty" json:"ruc,omitempty"`
	Address       string `bson:"address,omitempty" json:"address,omitempty"`
	BuildingName  string `bson:"building_name,omitempty" json:"building_name,omitempty"`
	ElevatorBrand string `bson:"elevator_brand,omitempty" json:"elevator_brand,omitempty"`
	ElevatorCount int    `bson:"elevator_count,omitempty" json:"elevator_count,omitempty"`
	FloorCount    int    `bson:"floor_count,omitempty" json:"floor_count,omitempty"`
	ContractType  string `bson:"contract_type,omitempty" json:"contract_type,omitempty"`

	// Technician fields
	Specialization []string `bson:"specialization,omitempty" json:"specialization,omitempty"`

	LastLogin *time.Time `bson:"last_login,omitempty" json:"last_login,omitempty"`
	CreatedAt time.Time  `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time  `bson:"updated_at" json:"updated_at"`
}

// LoginRequest represents a login request
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RegisterRequest represents a user registration request
type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     Role   `json:"role"`
	Phone    string `json:"phone"`
	Address  string `json:"address"`
}

// LoginResponse represents a successful login response
type LoginResponse struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

// Claims represents JWT claims
type Claims struct {
	UserID string `json:"user_id"`
	Name   string `json:"name"`
	Role   Role   `json:"role"`
	Exp    int64  `json:"exp"`
}

// IsValidRole checks if a role is valid
func IsValidRole(role Role) bool {
	switch role {
	case RoleAdmin, RoleTechnician, RoleClient:
		return true
	default:
		return false
	}
}

// IsValidUserStatus checks if a user account status is valid
func IsValidUserStatus(status UserStatus) bool {
	switch status {
	case UserStatusActive, UserStatusInactive, UserStatusPending, UserStatusOnLeave:
		return true
	default:
		return false
	}
}
