package ai

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"github.com/aliskhannn/retro-booth/internal/model"
)

// Gemini is the Google Gemini backend.
type Gemini struct {
	client      *genai.Client
	visionModel string
	imageModel  string
}

// NewGemini creates a Gemini backend. An empty API key yields ErrUnavailable.
func NewGemini(ctx context.Context, apiKey, visionModel, imageModel string) (*Gemini, error) {
	if apiKey == "" {
		return nil, ErrUnavailable
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	return &Gemini{client: client, visionModel: visionModel, imageModel: imageModel}, nil
}

// LocateFace asks the vision model for the main face position.
func (g *Gemini) LocateFace(ctx context.Context, image []byte, mimeType string) (model.FaceLocation, error) {
	resp, err := g.client.Models.GenerateContent(ctx, g.visionModel, imageWithText(image, mimeType, facePrompt),
		&genai.GenerateContentConfig{ResponseMIMEType: "application/json"})
	if err != nil {
		return model.FaceLocation{}, fmt.Errorf("gemini: locate face: %w", err)
	}

	return ParseFaceLocation(resp.Text())
}

// Caption asks the vision model for a nostalgic caption.
func (g *Gemini) Caption(ctx context.Context, image []byte, mimeType string, style CaptionStyle) (string, error) {
	resp, err := g.client.Models.GenerateContent(ctx, g.visionModel, imageWithText(image, mimeType, captionPrompt(style)), nil)
	if err != nil {
		return "", fmt.Errorf("gemini: caption: %w", err)
	}

	text := CleanCaption(resp.Text())
	if text == "" {
		return "", ErrEmptyReply
	}
	return text, nil
}

// Remix asks the image model to edit the photo and returns the first image part of the reply.
func (g *Gemini) Remix(ctx context.Context, image []byte, mimeType, prompt string) ([]byte, string, error) {
	resp, err := g.client.Models.GenerateContent(ctx, g.imageModel, imageWithText(image, mimeType, remixPrompt(prompt)),
		&genai.GenerateContentConfig{ResponseModalities: []string{string(genai.ModalityImage)}})
	if err != nil {
		return nil, "", fmt.Errorf("gemini: remix: %w", err)
	}

	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if part.InlineData != nil && len(part.InlineData.Data) > 0 {
				return part.InlineData.Data, part.InlineData.MIMEType, nil
			}
		}
	}

	return nil, "", ErrEmptyReply
}

func imageWithText(image []byte, mimeType, text string) []*genai.Content {
	return []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromBytes(image, mimeType),
			genai.NewPartFromText(text),
		}, genai.RoleUser),
	}
}
