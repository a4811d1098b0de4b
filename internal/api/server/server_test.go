package server

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/wb-go/wbf/ginext"

	"github.com/aliskhannn/retro-booth/internal/config"
)

func TestNew(t *testing.T) {
	s := New(config.Server{HTTPPort: "8080"}, ginext.New())
	assert.Equal(t, ":8080", s.Addr)
	assert.Equal(t, 15*time.Second, s.ReadTimeout)
	assert.Equal(t, 2*time.Minute, s.WriteTimeout)

	s = New(config.Server{HTTPPort: "127.0.0.1:9000", WriteTimeout: time.Second}, ginext.New())
	assert.Equal(t, "127.0.0.1:9000", s.Addr)
	assert.Equal(t, time.Second, s.WriteTimeout)
}
