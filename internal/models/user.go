package models

import "strings"

// UserProfile is the editable profile of an admin user.
type UserProfile struct {
	ID           string `json:"id,omitempty"`
	FirstName    string `json:"firstName"`
	LastName     string `json:"lastName"`
	Birthdate    string `json:"birthdate,omitempty"`
	Department   string `json:"department,omitempty"`
	Email        string `json:"email"`
	ProfileImage string `json:"profileImage,omitempty"`
	Role         string `json:"role,omitempty"`

	// ProfileImageURL is resolved locally and never sent upstream.
	ProfileImageURL string `json:"profileImageUrl,omitempty"`
}

// FullName joins first and last name.
func (u UserProfile) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// PasswordChange is a password update request as entered by the user.
type PasswordChange struct {
	Email           string `json:"email"`
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
	ConfirmPassword string `json:"confirmPassword"`
}
