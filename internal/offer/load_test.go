package offer

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDecodeYAML(t *testing.T) {
	doc := `
jobTitle: "  Remote Assistant "
companyName: Acme
jobDescription: |
  Buy your starter kit before onboarding.
recruiterEmail: hr@gmail.com
askedForMoney: "true"
contactMethod: telegram
`
	o, imageFile, err := Decode([]byte(doc))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if imageFile != "" {
		t.Fatalf("unexpected image file %q", imageFile)
	}
	if !o.AskedForMoney {
		t.Fatalf("expected weakly typed bool to decode")
	}

	o = o.Normalize()
	if o.JobTitle != "Remote Assistant" {
		t.Fatalf("unexpected title %q", o.JobTitle)
	}
	if o.ContactMethod != ContactTelegram {
		t.Fatalf("unexpected contact method %q", o.ContactMethod)
	}
}

func TestDecodeJSON(t *testing.T) {
	doc := `{"jobTitle":"Dev","companyName":"Acme","jobDescription":"Go","askedForMoney":1}`

	o, _, err := Decode([]byte(doc))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !o.AskedForMoney || o.JobTitle != "Dev" {
		t.Fatalf("unexpected offer: %+v", o)
	}
}

func TestDecodeEmpty(t *testing.T) {
	if _, _, err := Decode([]byte("")); !errors.Is(err, ErrInvalid) {
		t.Fatalf("expected ErrInvalid, got %v", err)
	}
}

func TestLoadResolvesImageRelativeToFile(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "shot.png"), pngBytes, 0o600); err != nil {
		t.Fatalf("write image: %v", err)
	}

	doc := "jobTitle: Dev\ncompanyName: Acme\njobDescription: Go\nofferImageFile: shot.png\n"
	path := filepath.Join(dir, "offer.yaml")
	if err := os.WriteFile(path, []byte(doc), 0o600); err != nil {
		t.Fatalf("write offer: %v", err)
	}

	o, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasPrefix(o.OfferImage, "data:image/png;base64,") {
		t.Fatalf("expected encoded image, got %q", o.OfferImage)
	}
	if o.ContactMethod != ContactEmail {
		t.Fatalf("expected default contact method, got %q", o.ContactMethod)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error")
	}
}
