// Package ai talks to the generative model used for smart crop, captions and remixes.
//
// Every backend is best effort. A backend without credentials answers ErrUnavailable
// so callers can degrade to a no-op instead of failing.
package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/aliskhannn/retro-booth/internal/model"
)

var (
	ErrUnavailable = errors.New("ai service unavailable")
	ErrUnsupported = errors.New("operation not supported by ai provider")
	ErrEmptyReply  = errors.New("ai service returned an empty reply")
)

// FaceLocator estimates where the main face of an image is.
type FaceLocator interface {
	LocateFace(ctx context.Context, image []byte, mimeType string) (model.FaceLocation, error)
}

// Captioner writes a short caption for an image.
type Captioner interface {
	Caption(ctx context.Context, image []byte, mimeType string, style CaptionStyle) (string, error)
}

// Remixer edits an image following a free-form instruction.
// It returns the new encoded image and its MIME type.
type Remixer interface {
	Remix(ctx context.Context, image []byte, mimeType, prompt string) ([]byte, string, error)
}

// Client groups every request shape the service sends to the model.
type Client interface {
	FaceLocator
	Captioner
	Remixer
}

// CaptionStyle carries the user's AI preferences.
type CaptionStyle struct {
	Personality string // humorous, standard, scientific
	Length      string // detailed, standard, short
}

const facePrompt = `Detect the main face in this image. Return a JSON object strictly in this format: { "found": boolean, "x": number, "y": number }.
"found" is true if a face is clearly visible.
"x" and "y" are the percentage coordinates (0-100) of the center of the face relative to top-left (x is horizontal, y is vertical).
If no face is found, set found to false.`

func captionPrompt(style CaptionStyle) string {
	personality := style.Personality
	if personality == "" {
		personality = "standard"
	}

	var length string
	switch style.Length {
	case "short":
		length = "MAX 15 characters."
	case "detailed":
		length = "Around 30-40 characters."
	default:
		length = "Around 20 characters."
	}

	return fmt.Sprintf(`Analyze this image. Generate a Chinese caption in a '%s' style.
Length requirement: %s
It should feel like a nostalgic photo note.
Return ONLY the caption text.`, personality, length)
}

func remixPrompt(prompt string) string {
	return "Edit this image: " + prompt
}

// ParseFaceLocation decodes the model's JSON reply, tolerating markdown code fences.
func ParseFaceLocation(reply string) (model.FaceLocation, error) {
	text := stripFences(reply)
	if text == "" {
		return model.FaceLocation{}, ErrEmptyReply
	}

	var loc model.FaceLocation
	if err := json.Unmarshal([]byte(text), &loc); err != nil {
		return model.FaceLocation{}, fmt.Errorf("parse face location %q: %w", text, err)
	}

	if loc.Found && (!finite(loc.X) || !finite(loc.Y)) {
		return model.FaceLocation{}, fmt.Errorf("parse face location: non-finite coordinates")
	}

	return loc, nil
}

// CleanCaption trims model chatter around a caption.
func CleanCaption(reply string) string {
	text := strings.TrimSpace(stripFences(reply))
	return strings.Trim(text, "\"“”")
}

func stripFences(s string) string {
	s = strings.ReplaceAll(s, "```json", "")
	s = strings.ReplaceAll(s, "```", "")
	return strings.TrimSpace(s)
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// Disabled is the backend used when no provider is configured.
type Disabled struct{}

func (Disabled) LocateFace(context.Context, []byte, string) (model.FaceLocation, error) {
	return model.FaceLocation{}, ErrUnavailable
}

func (Disabled) Caption(context.Context, []byte, string, CaptionStyle) (string, error) {
	return "", ErrUnavailable
}

func (Disabled) Remix(context.Context, []byte, string, string) ([]byte, string, error) {
	return nil, "", ErrUnavailable
}

// timeoutClient bounds every model call.
type timeoutClient struct {
	next    Client
	timeout time.Duration
}

// WithTimeout wraps c so that each call is cancelled after d. A non-positive d returns c unchanged.
func WithTimeout(c Client, d time.Duration) Client {
	if d <= 0 {
		return c
	}
	return timeoutClient{next: c, timeout: d}
}

func (t timeoutClient) LocateFace(ctx context.Context, image []byte, mimeType string) (model.FaceLocation, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.next.LocateFace(ctx, image, mimeType)
}

func (t timeoutClient) Caption(ctx context.Context, image []byte, mimeType string, style CaptionStyle) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.next.Caption(ctx, image, mimeType, style)
}

func (t timeoutClient) Remix(ctx context.Context, image []byte, mimeType, prompt string) ([]byte, string, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.next.Remix(ctx, image, mimeType, prompt)
}
