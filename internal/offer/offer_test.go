package offer

import (
	"errors"
	"strings"
	"testing"
)

func validOffer() JobOffer {
	return JobOffer{
		JobTitle:       "Data Entry Clerk",
		CompanyName:    "Acme",
		JobDescription: "Remote position, flexible hours.",
		ContactMethod:  ContactEmail,
	}
}

func TestParseContactMethod(t *testing.T) {
	t.Parallel()

	cases := map[string]ContactMethod{
		"":           ContactEmail,
		"email":      ContactEmail,
		" WhatsApp ": ContactWhatsApp,
		"TELEGRAM":   ContactTelegram,
		"other":      ContactOther,
	}
	for input, expect := range cases {
		got, err := ParseContactMethod(input)
		if err != nil {
			t.Fatalf("%q: unexpected error: %v", input, err)
		}
		if got != expect {
			t.Fatalf("%q: expected %s, got %s", input, expect, got)
		}
	}

	if _, err := ParseContactMethod("carrier pigeon"); !errors.Is(err, ErrInvalid) {
		t.Fatalf("expected ErrInvalid, got %v", err)
	}
}

func TestNormalize(t *testing.T) {
	o := JobOffer{
		JobTitle:       "  Analyst ",
		CompanyName:    "\tAcme\n",
		RecruiterEmail: "  hr@acme.com ",
		ContactMethod:  "whatsapp",
	}

	got := o.Normalize()
	if got.JobTitle != "Analyst" || got.CompanyName != "Acme" || got.RecruiterEmail != "hr@acme.com" {
		t.Fatalf("fields not trimmed: %+v", got)
	}
	if got.ContactMethod != ContactWhatsApp {
		t.Fatalf("expected canonical contact method, got %q", got.ContactMethod)
	}
	if o.JobTitle != "  Analyst " {
		t.Fatalf("normalize must not modify the receiver")
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(o *JobOffer)
		wantErr string
	}{
		{name: "valid", mutate: func(*JobOffer) {}},
		{name: "missing title", mutate: func(o *JobOffer) { o.JobTitle = "" }, wantErr: "jobTitle is required"},
		{name: "missing company", mutate: func(o *JobOffer) { o.CompanyName = "" }, wantErr: "companyName is required"},
		{name: "missing description", mutate: func(o *JobOffer) { o.JobDescription = "" }, wantErr: "jobDescription is required"},
		{name: "bad contact", mutate: func(o *JobOffer) { o.ContactMethod = "Fax" }, wantErr: "contactMethod must be one of"},
		{name: "long salary", mutate: func(o *JobOffer) { o.Salary = strings.Repeat("9", 201) }, wantErr: "salary must be at most 200"},
		{name: "empty email allowed", mutate: func(o *JobOffer) { o.RecruiterEmail = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			o := validOffer()
			tt.mutate(&o)

			err := o.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, ErrInvalid) {
				t.Fatalf("expected ErrInvalid, got %v", err)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected %q in %q", tt.wantErr, err.Error())
			}
		})
	}
}

func TestRedacted(t *testing.T) {
	o := validOffer()
	o.OfferImage = "data:image/png;base64,AAAA"

	if !o.HasImage() {
		t.Fatalf("expected image to be detected")
	}
	if r := o.Redacted(); r.HasImage() {
		t.Fatalf("expected redacted copy without image")
	}
	if !o.HasImage() {
		t.Fatalf("redaction must not modify the receiver")
	}
}
