package contacts

import (
	"errors"
	"strings"
	"time"

	"voicesurvey-platform/internal/telephony"
)

var ErrInvalidContact = errors.New("contacts: invalid contact")

// Contact is one person a survey campaign will call.
//
// Contacts are scoped to a survey; the same phone number may appear under
// several surveys independently.
type Contact struct {
	ContactID string `json:"contact_id" db:"contact_id"`
	SurveyID  string `json:"survey_id" db:"survey_id"`

	Name string `json:"name,omitempty" db:"name"`

	// Phone is E.164.
	Phone string `json:"phone" db:"phone"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Normalize trims fields and canonicalizes common phone punctuation
// ("(555) 123-4567" style separators) without guessing country codes.
func (c Contact) Normalize() Contact {
	out := c
	out.Name = strings.TrimSpace(c.Name)
	var b strings.Builder
	for _, r := range strings.TrimSpace(c.Phone) {
		switch r {
		case ' ', '-', '(', ')', '.':
		default:
			b.WriteRune(r)
		}
	}
	out.Phone = b.String()
	return out
}

// Validate checks a normalized contact.
func (c Contact) Validate() error {
	if c.SurveyID == "" {
		return errors.Join(ErrInvalidContact, errors.New("survey_id required"))
	}
	if !telephony.ValidE164(c.Phone) {
		return errors.Join(ErrInvalidContact, errors.New("phone must be E.164"))
	}
	return nil
}
