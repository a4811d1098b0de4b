package ai

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/ollama/ollama/api"

	"github.com/aliskhannn/retro-booth/internal/model"
)

// Ollama is a local vision-model backend. It cannot produce images, so Remix is unsupported.
type Ollama struct {
	client      *api.Client
	visionModel string
	options     map[string]interface{}
}

// NewOllama creates an Ollama backend for the given endpoint.
func NewOllama(endpoint, visionModel string, temperature float64) (*Ollama, error) {
	if endpoint == "" {
		return nil, ErrUnavailable
	}

	baseURL, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid ollama endpoint URL: %w", err)
	}

	options := make(map[string]interface{})
	if temperature > 0 {
		options["temperature"] = temperature
	}

	return &Ollama{
		client:      api.NewClient(baseURL, &http.Client{}),
		visionModel: visionModel,
		options:     options,
	}, nil
}

// LocateFace asks the vision model for the main face position.
func (o *Ollama) LocateFace(ctx context.Context, image []byte, _ string) (model.FaceLocation, error) {
	reply, err := o.generate(ctx, facePrompt, image)
	if err != nil {
		return model.FaceLocation{}, fmt.Errorf("ollama: locate face: %w", err)
	}
	return ParseFaceLocation(reply)
}

// Caption asks the vision model for a nostalgic caption.
func (o *Ollama) Caption(ctx context.Context, image []byte, _ string, style CaptionStyle) (string, error) {
	reply, err := o.generate(ctx, captionPrompt(style), image)
	if err != nil {
		return "", fmt.Errorf("ollama: caption: %w", err)
	}

	text := CleanCaption(removeThinkTags(reply))
	if text == "" {
		return "", ErrEmptyReply
	}
	return text, nil
}

// Remix is not available on text-only models.
func (o *Ollama) Remix(context.Context, []byte, string, string) ([]byte, string, error) {
	return nil, "", ErrUnsupported
}

func (o *Ollama) generate(ctx context.Context, prompt string, image []byte) (string, error) {
	stream := false
	req := &api.GenerateRequest{
		Model:   o.visionModel,
		Prompt:  prompt,
		Stream:  &stream,
		Images:  []api.ImageData{image},
		Options: o.options,
	}

	var response strings.Builder
	err := o.client.Generate(ctx, req, func(resp api.GenerateResponse) error {
		response.WriteString(resp.Response)
		return nil
	})
	if err != nil {
		return "", err
	}

	return strings.TrimSpace(response.String()), nil
}

// removeThinkTags drops the reasoning block some local models prepend.
func removeThinkTags(text string) string {
	for {
		start := strings.Index(text, "<think>")
		if start < 0 {
			return text
		}
		end := strings.Index(text[start:], "</think>")
		if end < 0 {
			return strings.TrimSpace(text[:start])
		}
		text = text[:start] + text[start+end+len("</think>"):]
	}
}
