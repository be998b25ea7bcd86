package offer

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// fileOffer is the on-disk shape: a JobOffer plus an optional image path.
type fileOffer struct {
	JobOffer  `mapstructure:",squash"`
	ImageFile string `mapstructure:"offerImageFile"`
}

// Load reads a job offer from a yaml or json file. Values are weakly typed, so
// askedForMoney may be written as "true" or 1. offerImageFile is resolved relative
// to the offer file and encoded into OfferImage.
func Load(path string) (JobOffer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return JobOffer{}, fmt.Errorf("read offer file: %w", err)
	}

	o, imageFile, err := Decode(data)
	if err != nil {
		return JobOffer{}, fmt.Errorf("offer file %q: %w", path, err)
	}

	if imageFile != "" && o.OfferImage == "" {
		if !filepath.IsAbs(imageFile) {
			imageFile = filepath.Join(filepath.Dir(path), imageFile)
		}
		if o.OfferImage, err = EncodeImageFile(imageFile); err != nil {
			return JobOffer{}, err
		}
	}

	return o.Normalize(), nil
}

// Decode parses yaml (or json, which is valid yaml) bytes into a JobOffer and
// returns the referenced image file, if any.
func Decode(data []byte) (JobOffer, string, error) {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return JobOffer{}, "", fmt.Errorf("parse: %w", err)
	}
	if raw == nil {
		return JobOffer{}, "", fmt.Errorf("%w: document is empty", ErrInvalid)
	}

	var out fileOffer
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &out,
		WeaklyTypedInput: true,
		TagName:          "mapstructure",
	})
	if err != nil {
		return JobOffer{}, "", err
	}

	if err := decoder.Decode(raw); err != nil {
		return JobOffer{}, "", fmt.Errorf("decode: %w", err)
	}

	return out.JobOffer, out.ImageFile, nil
}
