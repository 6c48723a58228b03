package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// UserRole defines the role of a user.
type UserRole string

const (
	RoleUser  UserRole = "user"
	RoleAdmin UserRole = "admin"
)

// User is a buyer or an administrator.
type User struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	FullName    string             `bson:"fullName" json:"fullName"`
	IDNumber    string             `bson:"idNumber" json:"idNumber"`
	Email       string             `bson:"email" json:"email"`
	PhoneNumber string             `bson:"phoneNumber" json:"phoneNumber"`
	Password    string             `bson:"password" json:"-"`
	Role        UserRole           `bson:"role" json:"role"`
	CreatedAt   time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// Actor is the authenticated identity performing an operation.
type Actor struct {
	UserID primitive.ObjectID
	Role   UserRole
}

// IsAdmin reports whether the actor may review payments and manage raffles.
func (a Actor) IsAdmin() bool { return a.Role == RoleAdmin }

// Authenticated reports whether the actor carries a user id.
func (a Actor) Authenticated() bool { return !a.UserID.IsZero() }

// BuyerInfo is the identity a buyer supplies when purchasing without a session.
type BuyerInfo struct {
	FullName    string `json:"fullName" form:"fullName"`
	IDNumber    string `json:"idNumber" form:"idNumber"`
	PhoneNumber string `json:"phoneNumber" form:"phoneNumber"`
	Email       string `json:"email" form:"email"`
	Password    string `json:"password" form:"password"`
}
