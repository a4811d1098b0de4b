package ai

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aliskhannn/retro-booth/internal/model"
)

func TestParseFaceLocation(t *testing.T) {
	tests := []struct {
		name  string
		reply string
		want  model.FaceLocation
	}{
		{"plain", `{"found": true, "x": 51, "y": 48}`, model.FaceLocation{Found: true, X: 51, Y: 48}},
		{"fenced", "```json\n{\"found\": true, \"x\": 80, \"y\": 20}\n```", model.FaceLocation{Found: true, X: 80, Y: 20}},
		{"bare fence", "```{\"found\": false, \"x\": 0, \"y\": 0}```", model.FaceLocation{}},
		{"not found", `{"found": false}`, model.FaceLocation{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseFaceLocation(tt.reply)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseFaceLocation_Errors(t *testing.T) {
	_, err := ParseFaceLocation("  ")
	assert.ErrorIs(t, err, ErrEmptyReply)

	_, err = ParseFaceLocation("I see a cat.")
	assert.Error(t, err)
}

func TestCleanCaption(t *testing.T) {
	assert.Equal(t, "夏日的风", CleanCaption("  \"夏日的风\"\n"))
	assert.Equal(t, "hello", CleanCaption("```\nhello\n```"))
}

func TestCaptionPrompt_Length(t *testing.T) {
	assert.Contains(t, captionPrompt(CaptionStyle{Length: "short"}), "MAX 15 characters.")
	assert.Contains(t, captionPrompt(CaptionStyle{Length: "detailed"}), "Around 30-40 characters.")
	assert.Contains(t, captionPrompt(CaptionStyle{}), "Around 20 characters.")
	assert.Contains(t, captionPrompt(CaptionStyle{Personality: "humorous"}), "'humorous' style")
}

func TestRemoveThinkTags(t *testing.T) {
	assert.Equal(t, "answer", removeThinkTags("<think>hmm</think>answer"))
	assert.Equal(t, "pre", removeThinkTags("pre <think>never closed"))
}

func TestDisabled(t *testing.T) {
	var c Client = Disabled{}
	ctx := context.Background()

	_, err := c.LocateFace(ctx, nil, "")
	assert.ErrorIs(t, err, ErrUnavailable)
	_, err = c.Caption(ctx, nil, "", CaptionStyle{})
	assert.ErrorIs(t, err, ErrUnavailable)
	_, _, err = c.Remix(ctx, nil, "", "x")
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestNewGemini_NoKey(t *testing.T) {
	_, err := NewGemini(context.Background(), "", "m", "i")
	assert.ErrorIs(t, err, ErrUnavailable)
}

type deadlineRecorder struct {
	Disabled
	deadline time.Time
}

func (d *deadlineRecorder) Caption(ctx context.Context, _ []byte, _ string, _ CaptionStyle) (string, error) {
	d.deadline, _ = ctx.Deadline()
	return "ok", nil
}

func TestWithTimeout(t *testing.T) {
	rec := &deadlineRecorder{}
	assert.Same(t, Client(rec), WithTimeout(rec, 0))

	c := WithTimeout(rec, time.Minute)
	text, err := c.Caption(context.Background(), nil, "", CaptionStyle{})
	require.NoError(t, err)
	assert.Equal(t, "ok", text)
	assert.WithinDuration(t, time.Now().Add(time.Minute), rec.deadline, 5*time.Second)

	_, err = c.LocateFace(context.Background(), nil, "")
	assert.ErrorIs(t, err, ErrUnavailable)
}
