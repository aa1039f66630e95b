// Package control implements the minimal line-oriented remote-control
// client for the external audio engine. The only command the rotator ever
// issues is an immediate skip to the next track.
package control

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/oszuidwest/zwfm-rotator/internal/config"
	"github.com/oszuidwest/zwfm-rotator/pkg/logger"
)

// Protocol commands. Lines are CRLF-terminated plain text.
const (
	cmdSkip = "stream.skip"
	cmdQuit = "quit"
)

// Client talks to the audio engine's control port. Commands are
// fire-and-forget: acknowledgement text is drained and discarded, never
// parsed, so a failed skip on the engine side is indistinguishable from a
// successful one. The boundary watcher re-evaluates on its next tick
// anyway.
type Client struct {
	addr        string
	dialTimeout time.Duration
	readTimeout time.Duration
	bannerGrace time.Duration
}

// NewClient creates a control client from configuration.
func NewClient(cfg config.ControlConfig) *Client {
	return &Client{
		addr:        net.JoinHostPort(cfg.Host, fmt.Sprintf("%d", cfg.Port)),
		dialTimeout: cfg.DialTimeout,
		readTimeout: cfg.ReadTimeout,
		bannerGrace: cfg.BannerGrace,
	}
}

// Skip asks the engine to advance to the next track now. The engine sends
// an informational banner on connect; it is drained before the command so
// it cannot be mistaken for a response.
func (c *Client) Skip(ctx context.Context) error {
	dialer := net.Dialer{Timeout: c.dialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", c.addr)
	if err != nil {
		return fmt.Errorf("failed to connect to audio engine at %s: %w", c.addr, err)
	}
	defer func() {
		if cErr := conn.Close(); cErr != nil {
			logger.Debug("control connection close: %v", cErr)
		}
	}()

	c.drain(conn, c.bannerGrace)

	if err := c.writeLine(conn, cmdSkip); err != nil {
		return err
	}
	c.drain(conn, c.bannerGrace)

	if err := c.writeLine(conn, cmdQuit); err != nil {
		return err
	}

	logger.Debug("sent %s to audio engine at %s", cmdSkip, c.addr)
	return nil
}

// writeLine sends one CRLF-terminated command under a write deadline.
func (c *Client) writeLine(conn net.Conn, command string) error {
	if err := conn.SetWriteDeadline(time.Now().Add(c.readTimeout)); err != nil {
		return fmt.Errorf("failed to set write deadline: %w", err)
	}
	if _, err := conn.Write([]byte(command + "\r\n")); err != nil {
		return fmt.Errorf("failed to send %s to audio engine: %w", command, err)
	}
	return nil
}

// drain reads and discards whatever the engine sends for up to grace.
// Banner and acknowledgement text both go through here.
func (c *Client) drain(conn net.Conn, grace time.Duration) {
	deadline := time.Now().Add(grace)
	buf := make([]byte, 512)
	for {
		if err := conn.SetReadDeadline(deadline); err != nil {
			return
		}
		if _, err := conn.Read(buf); err != nil {
			return
		}
		if time.Now().After(deadline) {
			return
		}
	}
}
