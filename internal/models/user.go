package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User roles. Each role carries one role-specific attribute instead of a
// separate registration schema per role.
const (
	RoleCompany    = "empresa"
	RoleNGO        = "ong"
	RoleIndividual = "persona_fisica"
	RoleGovernment = "gobierno"
)

var AllowedRoles = map[string]bool{
	RoleCompany:    true,
	RoleNGO:        true,
	RoleIndividual: true,
	RoleGovernment: true,
}

// User represents an account in the donation marketplace.
type User struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name           string             `bson:"name" json:"name"`
	Contact        string             `bson:"contact" json:"contact"` // login identifier (email or phone)
	HashedPassword string             `bson:"hashed_password" json:"-"`
	Address        string             `bson:"address,omitempty" json:"address,omitempty"`
	Role           string             `bson:"role" json:"role"`

	// Role-specific attribute, at most one set depending on Role.
	RFC        string `bson:"rfc,omitempty" json:"rfc,omitempty"`               // empresa
	CLUNI      string `bson:"cluni,omitempty" json:"cluni,omitempty"`           // ong
	CURP       string `bson:"curp,omitempty" json:"curp,omitempty"`             // persona_fisica
	Dependency string `bson:"dependency,omitempty" json:"dependency,omitempty"` // gobierno

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// PublicUser is the projection exposed to other users. It never carries
// credentials or internal fields.
type PublicUser struct {
	ID   primitive.ObjectID `json:"id"`
	Name string             `json:"name"`
	Role string             `json:"role,omitempty"`
}

// Public returns the safe projection of the user.
func (u *User) Public() PublicUser {
	return PublicUser{ID: u.ID, Name: u.Name, Role: u.Role}
}
