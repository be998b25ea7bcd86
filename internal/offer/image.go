package offer

import (
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
)

const (
	// DefaultImageMIME is assumed when the payload does not declare a type.
	DefaultImageMIME = "image/jpeg"
	maxImageBytes    = 8 << 20
)

var ErrNotImage = errors.New("payload is not an image")

// EncodeImage turns raw image bytes into a data URL.
func EncodeImage(data []byte) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("%w: empty payload", ErrNotImage)
	}
	if len(data) > maxImageBytes {
		return "", fmt.Errorf("image is too large: %d bytes (limit %d)", len(data), maxImageBytes)
	}

	mime := http.DetectContentType(data)
	if !strings.HasPrefix(mime, "image/") {
		return "", fmt.Errorf("%w: detected %s", ErrNotImage, mime)
	}

	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data), nil
}

// EncodeImageFile reads path and encodes it with EncodeImage.
func EncodeImageFile(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("stat image %q: %w", path, err)
	}
	if info.Size() > maxImageBytes {
		return "", fmt.Errorf("image %q is too large: %d bytes (limit %d)", path, info.Size(), maxImageBytes)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read image %q: %w", path, err)
	}

	encoded, err := EncodeImage(data)
	if err != nil {
		return "", fmt.Errorf("encode image %q: %w", path, err)
	}
	return encoded, nil
}

// DecodeImage accepts a data URL or bare base64 and returns the bytes with their
// mime type. Non-image or missing types fall back to DefaultImageMIME.
func DecodeImage(s string) ([]byte, string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, "", fmt.Errorf("%w: empty payload", ErrNotImage)
	}

	mime := DefaultImageMIME
	payload := s

	if strings.HasPrefix(s, "data:") {
		header, data, ok := strings.Cut(s, ",")
		if !ok {
			return nil, "", fmt.Errorf("%w: malformed data url", ErrNotImage)
		}
		payload = data

		params := strings.Split(strings.TrimPrefix(header, "data:"), ";")
		if declared := strings.ToLower(strings.TrimSpace(params[0])); strings.HasPrefix(declared, "image/") {
			mime = declared
		}

		isBase64 := false
		for _, p := range params[1:] {
			if strings.EqualFold(strings.TrimSpace(p), "base64") {
				isBase64 = true
			}
		}
		if !isBase64 {
			return nil, "", fmt.Errorf("%w: data url is not base64 encoded", ErrNotImage)
		}
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		raw, rawErr := base64.RawStdEncoding.DecodeString(strings.TrimRight(payload, "="))
		if rawErr != nil {
			return nil, "", fmt.Errorf("decode image payload: %w", err)
		}
		data = raw
	}

	if len(data) == 0 {
		return nil, "", fmt.Errorf("%w: empty payload", ErrNotImage)
	}
	return data, mime, nil
}
