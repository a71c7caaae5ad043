package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User represents an account known to the identity provider.
type User struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Email        string             `bson:"email" json:"email"`
	DisplayName  string             `bson:"display_name" json:"display_name"`
	PasswordHash string             `bson:"password" json:"-"` // Store hash, not plaintext
	CreatedAt    time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt    time.Time          `bson:"updated_at" json:"updated_at"`
}

// Credentials are submitted by the login modal. DisplayName is only used when
// the sign-in creates the account.
type Credentials struct {
	Email       string `json:"email" binding:"required"`
	Password    string `json:"password" binding:"required"`
	DisplayName string `json:"displayName"`
}

// Identity is the signed-in user as seen by a page session.
type Identity struct {
	UserID      string `json:"userId"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
	Token       string `json:"-"`
}

// SessionState is a point-in-time view of a page session.
// A nil Identity means signed out.
type SessionState struct {
	Identity          *Identity `json:"identity"`
	LoginModalVisible bool      `json:"loginModalVisible"`
}

// SignedIn reports whether an identity is present.
func (s SessionState) SignedIn() bool {
	return s.Identity != nil
}
