package broadcast

import (
	"strings"

	"github.com/aura-workshop/backend/internal/models"
)

// Credential keys understood by the bundled transports.
const (
	CredServiceID       = "service_id"
	CredTemplateID      = "template_id"
	CredPublicKey       = "public_key"
	CredPrivateKey      = "private_key"
	CredRegion          = "region"
	CredAccessKeyID     = "access_key_id"
	CredSecretAccessKey = "secret_access_key"
	CredFromAddress     = "from_address"
	CredFromName        = "from_name"
	CredAPIToken        = "api_token"
	CredPhoneNumberID   = "phone_number_id"
)

// Template defaults used when the settings documents leave copy blank.
const (
	DefaultEmailSubject = "Workshop Invitation"
	DefaultEmailBody    = "Hi {{name}},\n\nThank you for registering for {{workshopTitle}}!\n\nDate: {{date}}\nTime: {{time}}\nLink: {{meetingLink}}"
	FallbackNameEmail   = "Participant"
	FallbackNameDM      = "Friend"
	// EventDateManual marks a log entry made while no workshop date was set.
	EventDateManual = "manual"
)

// EmailConfig builds the email Config from stored settings.
func EmailConfig(ws models.WorkshopSettings, es models.EmailSettings) Config {
	provider := strings.ToLower(strings.TrimSpace(es.Provider))
	if provider == "" {
		provider = models.EmailProviderEmailJS
	}
	creds := Credentials{}
	switch provider {
	case models.EmailProviderSES:
		creds[CredRegion] = es.Region
		creds[CredAccessKeyID] = es.AccessKeyID
		creds[CredSecretAccessKey] = es.SecretAccessKey
		creds[CredFromAddress] = es.FromAddress
		creds[CredFromName] = es.FromName
	default:
		creds[CredServiceID] = es.ServiceID
		creds[CredTemplateID] = es.TemplateID
		creds[CredPublicKey] = es.PublicKey
		creds[CredPrivateKey] = es.PrivateKey
	}
	return Config{
		Channel:      ChannelEmail,
		Provider:     provider,
		Credentials:  creds,
		Subject:      firstNonBlank(ws.EmailSubject, DefaultEmailSubject),
		Template:     firstNonBlank(ws.EmailBody, DefaultEmailBody),
		Context:      WorkshopContext(ws),
		FallbackName: FallbackNameEmail,
		EventDate:    firstNonBlank(ws.Date, EventDateManual),
	}
}

// WhatsAppConfig builds the direct-message Config from stored settings.
func WhatsAppConfig(ws models.WorkshopSettings, wa models.WhatsAppSettings) Config {
	return Config{
		Channel: ChannelWhatsApp,
		Credentials: Credentials{
			CredAPIToken:      wa.APIToken,
			CredPhoneNumberID: wa.PhoneNumberID,
		},
		Template:     firstNonBlank(wa.MessageTemplate, models.DefaultWhatsAppTemplate),
		Context:      WorkshopContext(ws),
		FallbackName: FallbackNameDM,
		EventDate:    firstNonBlank(ws.Date, EventDateManual),
	}
}

// WorkshopContext exposes workshop settings as template variables, in both
// camelCase and snake_case. Blank settings are omitted so their placeholders
// stay visible in the output.
func WorkshopContext(ws models.WorkshopSettings) map[string]string {
	ctx := make(map[string]string, 8)
	set := func(v string, keys ...string) {
		if strings.TrimSpace(v) == "" {
			return
		}
		for _, k := range keys {
			ctx[k] = v
		}
	}
	set(ws.Title, "workshopTitle", "workshop_title")
	set(ws.Date, "date", "workshop_date")
	set(ws.Time, "time", "workshop_time")
	set(ws.MeetingLink, "meetingLink", "meeting_link")
	return ctx
}

func firstNonBlank(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
