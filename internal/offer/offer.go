package offer

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ContactMethod is the channel the recruiter used to reach the candidate.
type ContactMethod string

const (
	ContactEmail    ContactMethod = "Email"
	ContactWhatsApp ContactMethod = "WhatsApp"
	ContactTelegram ContactMethod = "Telegram"
	ContactOther    ContactMethod = "Other"
)

// ContactMethods lists the supported channels in intake order.
var ContactMethods = []ContactMethod{ContactEmail, ContactWhatsApp, ContactTelegram, ContactOther}

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid job offer")

// ParseContactMethod matches s case-insensitively. An empty value selects Email.
func ParseContactMethod(s string) (ContactMethod, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return ContactEmail, nil
	}
	for _, m := range ContactMethods {
		if strings.EqualFold(s, string(m)) {
			return m, nil
		}
	}
	return "", fmt.Errorf("%w: unknown contact method %q", ErrInvalid, s)
}

func (m ContactMethod) String() string { return string(m) }

// JobOffer is the data submitted for a single analysis. Treat it as immutable
// once handed to the risk engine.
type JobOffer struct {
	JobTitle       string        `json:"jobTitle" yaml:"jobTitle" mapstructure:"jobTitle" validate:"required,max=300"`
	CompanyName    string        `json:"companyName" yaml:"companyName" mapstructure:"companyName" validate:"required,max=300"`
	JobDescription string        `json:"jobDescription" yaml:"jobDescription" mapstructure:"jobDescription" validate:"required,max=50000"`
	RecruiterEmail string        `json:"recruiterEmail" yaml:"recruiterEmail" mapstructure:"recruiterEmail" validate:"max=320"`
	Salary         string        `json:"salary" yaml:"salary" mapstructure:"salary" validate:"max=200"`
	AskedForMoney  bool          `json:"askedForMoney" yaml:"askedForMoney" mapstructure:"askedForMoney"`
	ContactMethod  ContactMethod `json:"contactMethod" yaml:"contactMethod" mapstructure:"contactMethod" validate:"oneof=Email WhatsApp Telegram Other"`
	// OfferImage is a data URL (or bare base64) of a screenshot of the offer.
	OfferImage string `json:"offerImage,omitempty" yaml:"offerImage,omitempty" mapstructure:"offerImage"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "-" || name == "" {
			return field.Name
		}
		return name
	})
	return v
}

// Normalize returns a copy with surrounding whitespace trimmed and the contact
// method canonicalised. Unknown contact methods are left as-is for Validate to report.
func (o JobOffer) Normalize() JobOffer {
	o.JobTitle = strings.TrimSpace(o.JobTitle)
	o.CompanyName = strings.TrimSpace(o.CompanyName)
	o.JobDescription = strings.TrimSpace(o.JobDescription)
	o.RecruiterEmail = strings.TrimSpace(o.RecruiterEmail)
	o.Salary = strings.TrimSpace(o.Salary)
	o.OfferImage = strings.TrimSpace(o.OfferImage)

	if m, err := ParseContactMethod(string(o.ContactMethod)); err == nil {
		o.ContactMethod = m
	}
	return o
}

// Validate reports missing required fields and out-of-range values.
func (o JobOffer) Validate() error {
	err := validate.Struct(o)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}

	problems := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		switch fe.Tag() {
		case "required":
			problems = append(problems, fe.Field()+" is required")
		case "max":
			problems = append(problems, fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param()))
		case "oneof":
			problems = append(problems, fmt.Sprintf("%s must be one of %s", fe.Field(), fe.Param()))
		default:
			problems = append(problems, fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag()))
		}
	}
	return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(problems, "; "))
}

// HasImage reports whether a screenshot is attached.
func (o JobOffer) HasImage() bool {
	return strings.TrimSpace(o.OfferImage) != ""
}

// Redacted returns a copy without the image payload, for history and logs.
func (o JobOffer) Redacted() JobOffer {
	o.OfferImage = ""
	return o
}
