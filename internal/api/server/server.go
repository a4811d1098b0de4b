package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/wb-go/wbf/ginext"

	"github.com/aliskhannn/retro-booth/internal/config"
)

// New creates the HTTP server. Zero timeouts fall back to sane defaults.
// WriteTimeout must cover the slowest export.
func New(cfg config.Server, router *ginext.Engine) *http.Server {
	read := cfg.ReadTimeout
	if read <= 0 {
		read = 15 * time.Second
	}
	write := cfg.WriteTimeout
	if write <= 0 {
		write = 2 * time.Minute
	}

	addr := cfg.HTTPPort
	if !strings.Contains(addr, ":") {
		addr = ":" + addr
	}

	return &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadTimeout:       read,
		WriteTimeout:      write,
		IdleTimeout:       120 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
	}
}
