package capture

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/avast/retry-go"

	"github.com/aliskhannn/retro-booth/internal/model"
)

// maxFrameSize caps a single snapshot read.
const maxFrameSize = 32 << 20

// errWarmingUp marks a snapshot response worth asking again for.
var errWarmingUp = errors.New("camera not ready")

// Live pulls a still from the HTTP snapshot endpoint of a camera.
type Live struct {
	client   *http.Client
	urls     map[model.CameraMode]string
	mode     func() model.CameraMode
	attempts uint
	delay    time.Duration
}

// LiveConfig describes the snapshot endpoints.
type LiveConfig struct {
	UserURL        string
	EnvironmentURL string
	Timeout        time.Duration
	Attempts       uint
	Delay          time.Duration
}

// NewLive creates a live source. mode is read on every frame so a camera switch takes effect immediately.
func NewLive(cfg LiveConfig, mode func() model.CameraMode) *Live {
	if cfg.Attempts == 0 {
		cfg.Attempts = 1
	}

	return &Live{
		client: &http.Client{Timeout: cfg.Timeout},
		urls: map[model.CameraMode]string{
			model.CameraUser:        cfg.UserURL,
			model.CameraEnvironment: cfg.EnvironmentURL,
		},
		mode:     mode,
		attempts: cfg.Attempts,
		delay:    cfg.Delay,
	}
}

// Frame grabs one still from the camera selected by the current mode.
func (l *Live) Frame(ctx context.Context) (Frame, error) {
	url := l.urls[l.mode()]
	if url == "" {
		return Frame{}, ErrNoFeed
	}

	var frame Frame
	err := retry.Do(
		func() error {
			f, err := l.snapshot(ctx, url)
			if err != nil {
				return err
			}
			frame = f
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(l.attempts),
		retry.Delay(l.delay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool { return errors.Is(err, errWarmingUp) }),
	)
	if err != nil {
		if errors.Is(err, errWarmingUp) {
			return Frame{}, fmt.Errorf("%w: %v", ErrNoFeed, err)
		}
		return Frame{}, err
	}

	return frame, nil
}

func (l *Live) snapshot(ctx context.Context, url string) (Frame, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Frame{}, fmt.Errorf("%w: %v", ErrNoFeed, err)
	}

	resp, err := l.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return Frame{}, ctx.Err()
		}
		return Frame{}, fmt.Errorf("%w: %v", ErrNoFeed, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= http.StatusInternalServerError:
		return Frame{}, fmt.Errorf("%w: status %d", errWarmingUp, resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return Frame{}, fmt.Errorf("%w: status %d", ErrNoFeed, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxFrameSize))
	if err != nil {
		return Frame{}, fmt.Errorf("read snapshot: %w", err)
	}
	if len(data) == 0 {
		return Frame{}, fmt.Errorf("%w: empty snapshot", ErrNoFeed)
	}

	// A login or error page served with 200 is not a feed; the shutter falls back to the upload.
	frame, err := encodeFrame(data)
	if err != nil {
		return Frame{}, fmt.Errorf("%w: %w", ErrNoFeed, err)
	}

	return frame, nil
}
