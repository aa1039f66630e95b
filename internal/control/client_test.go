package control

import (
	"bufio"
	"context"
	"net"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/oszuidwest/zwfm-rotator/internal/config"
	"github.com/oszuidwest/zwfm-rotator/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	_ = logger.Initialize("info", false)
}

func testConfig(t *testing.T, addr string) config.ControlConfig {
	t.Helper()
	host, portStr, err := net.SplitHostPort(addr)
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)
	return config.ControlConfig{
		Host:        host,
		Port:        port,
		DialTimeout: time.Second,
		ReadTimeout: time.Second,
		BannerGrace: 50 * time.Millisecond,
	}
}

// fakeEngine accepts one control session, sends a greeting banner and an
// acknowledgement per command, and records the commands it received.
func fakeEngine(t *testing.T, ln net.Listener, commands chan<- string) {
	t.Helper()
	conn, err := ln.Accept()
	if err != nil {
		return
	}
	defer func() { _ = conn.Close() }()

	if _, err := conn.Write([]byte("Welcome to the audio engine!\r\nVersion 2.1.4\r\n")); err != nil {
		return
	}

	reader := bufio.NewReader(conn)
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			close(commands)
			return
		}
		cmd := strings.TrimRight(line, "\r\n")
		commands <- cmd
		if cmd == "quit" {
			close(commands)
			return
		}
		if _, err := conn.Write([]byte("OK\r\nEND\r\n")); err != nil {
			close(commands)
			return
		}
	}
}

func TestSkipSendsSkipThenQuit(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer func() { _ = ln.Close() }()

	commands := make(chan string, 4)
	go fakeEngine(t, ln, commands)

	client := NewClient(testConfig(t, ln.Addr().String()))
	require.NoError(t, client.Skip(context.Background()))

	var received []string
	for cmd := range commands {
		received = append(received, cmd)
	}
	assert.Equal(t, []string{"stream.skip", "quit"}, received)
}

func TestSkipConnectionRefusedIsError(t *testing.T) {
	// Grab a free port, then close it so nothing listens there.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	client := NewClient(testConfig(t, addr))
	err = client.Skip(context.Background())
	assert.Error(t, err, "refused connection surfaces as a soft error for the watcher to log")
}

func TestSkipSurvivesSilentEngine(t *testing.T) {
	// An engine that sends no banner and no acks: the drains just time
	// out and the commands still go through.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer func() { _ = ln.Close() }()

	received := make(chan string, 4)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer func() { _ = conn.Close() }()
		reader := bufio.NewReader(conn)
		for {
			line, err := reader.ReadString('\n')
			if err != nil {
				close(received)
				return
			}
			received <- strings.TrimRight(line, "\r\n")
			if strings.TrimRight(line, "\r\n") == "quit" {
				close(received)
				return
			}
		}
	}()

	client := NewClient(testConfig(t, ln.Addr().String()))
	require.NoError(t, client.Skip(context.Background()))

	var commands []string
	for cmd := range received {
		commands = append(commands, cmd)
	}
	assert.Equal(t, []string{"stream.skip", "quit"}, commands)
}
