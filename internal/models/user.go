package models

import (
	"strings"
	"time"

	"github.com/anonto42/nano-midea/app/internal/platform"
)

// User is a profile document under users/{uid}
type User struct {
	ID          string    `json:"id"`
	Email       string    `json:"email"`
	Username    string    `json:"username"`
	DisplayName string    `json:"display_name"`
	PhotoURL    string    `json:"photo_url"`
	Bio         string    `json:"bio"`
	Followers   []string  `json:"followers"`
	Following   []string  `json:"following"`
	SavedPosts  []string  `json:"saved_posts"`
	CreatedAt   time.Time `json:"created_at"`
}

// UserSnapshot is a denormalized copy of a user's public fields, captured at write time
type UserSnapshot struct {
	Username string `json:"username"`
	PhotoURL string `json:"photo_url"`
}

// UserFromDocument builds a User from a users/{uid} document
func UserFromDocument(doc platform.Document) User {
	d := doc.Data
	return User{
		ID:          doc.ID,
		Email:       stringField(d, FieldEmail),
		Username:    stringField(d, FieldUsername),
		DisplayName: stringField(d, FieldDisplayName),
		PhotoURL:    stringField(d, FieldPhotoURL),
		Bio:         stringField(d, FieldBio),
		Followers:   stringsField(d, FieldFollowers),
		Following:   stringsField(d, FieldFollowing),
		SavedPosts:  stringsField(d, FieldSavedPosts),
		CreatedAt:   timeField(d, FieldCreatedAt),
	}
}

// Handle is the name shown in lists: username, else email prefix, else "User"
func (u User) Handle() string {
	return FirstNonEmpty(u.Username, EmailPrefix(u.Email), "User")
}

// Name is the name shown on a profile: display name, else username, else email prefix, else "User"
func (u User) Name() string {
	return FirstNonEmpty(u.DisplayName, u.Username, EmailPrefix(u.Email), "User")
}

// Snapshot captures the fields other documents copy from a user
func (u User) Snapshot() UserSnapshot {
	return UserSnapshot{Username: u.Handle(), PhotoURL: u.PhotoURL}
}

// NewUserData is the document written when an account is created
func NewUserData(email, username, displayName, photoURL string) map[string]any {
	return map[string]any{
		FieldEmail:       email,
		FieldUsername:    username,
		FieldDisplayName: displayName,
		FieldPhotoURL:    photoURL,
		FieldBio:         "",
		FieldFollowers:   []string{},
		FieldFollowing:   []string{},
		FieldSavedPosts:  []string{},
		FieldCreatedAt:   platform.ServerTimestamp,
	}
}

func snapshotFromMap(m map[string]any) UserSnapshot {
	return UserSnapshot{
		Username: stringField(m, FieldUsername),
		PhotoURL: stringField(m, FieldPhotoURL),
	}
}

func (s UserSnapshot) data() map[string]any {
	return map[string]any{
		FieldUsername: s.Username,
		FieldPhotoURL: s.PhotoURL,
	}
}

// RegisterRequest defines the request body for email/password registration
type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
	Username string `json:"username" validate:"required,min=1,max=30"`
}

// LoginRequest defines the request body for email/password sign-in
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// FederatedLoginRequest carries a provider ID token, e.g. from Google sign-in
type FederatedLoginRequest struct {
	IDToken string `json:"id_token" validate:"required"`
}

// UpdateProfileRequest defines the editable profile fields
type UpdateProfileRequest struct {
	DisplayName string `json:"display_name" validate:"max=50"`
	Username    string `json:"username" validate:"max=30"`
	Bio         string `json:"bio" validate:"max=150"`
}

// Trimmed is req with surrounding whitespace removed from every field
func (req UpdateProfileRequest) Trimmed() UpdateProfileRequest {
	return UpdateProfileRequest{
		DisplayName: strings.TrimSpace(req.DisplayName),
		Username:    strings.TrimSpace(req.Username),
		Bio:         strings.TrimSpace(req.Bio),
	}
}
