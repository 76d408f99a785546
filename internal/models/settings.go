package models

import "time"

// Settings document keys.
const (
	SettingsKeyWorkshop = "workshop"
	SettingsKeyEmail    = "email"
	SettingsKeyWhatsApp = "whatsapp"
)

// Email providers.
const (
	EmailProviderEmailJS = "emailjs"
	EmailProviderSES     = "ses"
)

// DefaultWhatsAppTemplate is used until an admin saves a custom message template.
const DefaultWhatsAppTemplate = "Hello {{name}}, reminder for {{workshopTitle}} on {{date}} at {{time}}. Join here: {{meetingLink}}"

// WorkshopSettings describes the event and the email copy sent to registrants.
type WorkshopSettings struct {
	Title        string    `json:"title"`
	Date         string    `json:"date"`
	Time         string    `json:"time"`
	MeetingLink  string    `json:"meeting_link"`
	BannerURL    string    `json:"banner_url"`
	EmailSubject string    `json:"email_subject"`
	EmailBody    string    `json:"email_body"`
	UpdatedAt    time.Time `json:"updated_at,omitempty"`
}

// WorkshopPublic is the subset of WorkshopSettings shown on the public site.
type WorkshopPublic struct {
	Title     string `json:"title"`
	Date      string `json:"date"`
	Time      string `json:"time"`
	BannerURL string `json:"banner_url"`
}

// Public strips the join link and email copy.
func (w WorkshopSettings) Public() WorkshopPublic {
	return WorkshopPublic{Title: w.Title, Date: w.Date, Time: w.Time, BannerURL: w.BannerURL}
}

// EmailSettings holds the email channel provider and its credentials.
// EmailJS uses ServiceID, TemplateID, PublicKey (and optionally PrivateKey);
// SES uses Region, AccessKeyID, SecretAccessKey and FromAddress.
type EmailSettings struct {
	Provider        string    `json:"provider"`
	ServiceID       string    `json:"service_id,omitempty"`
	TemplateID      string    `json:"template_id,omitempty"`
	PublicKey       string    `json:"public_key,omitempty"`
	PrivateKey      string    `json:"private_key,omitempty"`
	Region          string    `json:"region,omitempty"`
	AccessKeyID     string    `json:"access_key_id,omitempty"`
	SecretAccessKey string    `json:"secret_access_key,omitempty"`
	FromAddress     string    `json:"from_address,omitempty"`
	FromName        string    `json:"from_name,omitempty"`
	UpdatedAt       time.Time `json:"updated_at,omitempty"`
}

// WhatsAppSettings holds WhatsApp Cloud API credentials and the message template.
type WhatsAppSettings struct {
	APIToken        string    `json:"api_token"`
	PhoneNumberID   string    `json:"phone_number_id"`
	SenderNumber    string    `json:"sender_number"`
	MessageTemplate string    `json:"message_template"`
	UpdatedAt       time.Time `json:"updated_at,omitempty"`
}
