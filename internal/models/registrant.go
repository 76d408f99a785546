package models

import (
	"time"

	"github.com/google/uuid"
)

// Registrant is a person who submitted the public workshop registration form.
type Registrant struct {
	ID             uuid.UUID `json:"id"`
	FullName       string    `json:"full_name"`
	Email          string    `json:"email"`
	WhatsAppNumber string    `json:"whatsapp_number"`
	Organization   string    `json:"organization"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// RegistrantUpdate holds the admin-editable fields. Nil fields are left unchanged.
type RegistrantUpdate struct {
	FullName       *string `json:"full_name"`
	Email          *string `json:"email"`
	WhatsAppNumber *string `json:"whatsapp_number"`
	Organization   *string `json:"organization"`
}

// Empty reports whether the update changes nothing.
func (u RegistrantUpdate) Empty() bool {
	return u.FullName == nil && u.Email == nil && u.WhatsAppNumber == nil && u.Organization == nil
}
