package imaging

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image"
	"strings"
)

// Generator produces source artwork from a text prompt.
//
// Implementations wrap an external image-generation service and return the
// image as a base64 string (optionally a data URL). The relief pipeline never
// calls a Generator itself; callers decode the payload with DecodeBase64 and feed
// the raster in like any other source image.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// GenerateImage runs gen and decodes its payload into a raster.
func GenerateImage(ctx context.Context, gen Generator, prompt string) (image.Image, error) {
	if strings.TrimSpace(prompt) == "" {
		return nil, fmt.Errorf("empty prompt")
	}
	payload, err := gen.Generate(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("image generation failed: %w", err)
	}
	return DecodeBase64(payload)
}

// DecodeBase64 decodes a base64 PNG/JPEG/GIF payload. A "data:image/...;base64,"
// prefix is accepted and stripped.
func DecodeBase64(payload string) (image.Image, error) {
	payload = strings.TrimSpace(payload)
	if strings.HasPrefix(payload, "data:") {
		comma := strings.IndexByte(payload, ',')
		if comma < 0 {
			return nil, fmt.Errorf("malformed data URL")
		}
		payload = payload[comma+1:]
	}
	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("invalid base64 image: %w", err)
	}
	return Decode(bytes.NewReader(raw))
}
