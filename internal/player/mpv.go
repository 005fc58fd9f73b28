package player

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/exec"
	"sync"
	"time"
)

// MPVConfig configures the mpv backend.
type MPVConfig struct {
	// SocketPath is the mpv --input-ipc-server path.
	SocketPath string
	// Binary is the mpv executable used by LaunchMPV.
	Binary string
	// MediaPath is the file LaunchMPV starts playing.
	MediaPath string
	// Timeout bounds every IPC request.
	Timeout time.Duration
	// ConnectAttempts and ConnectInterval control startup retries.
	ConnectAttempts int
	ConnectInterval time.Duration
}

func (c *MPVConfig) setDefaults() {
	if c.Binary == "" {
		c.Binary = "mpv"
	}
	if c.Timeout <= 0 {
		c.Timeout = 500 * time.Millisecond
	}
	if c.ConnectAttempts <= 0 {
		c.ConnectAttempts = 20
	}
	if c.ConnectInterval <= 0 {
		c.ConnectInterval = 250 * time.Millisecond
	}
}

// MPV controls an mpv player over its JSON IPC socket.
type MPV struct {
	cfg    MPVConfig
	logger *slog.Logger

	mu     sync.Mutex
	conn   net.Conn
	reader *bufio.Reader
	nextID int64
	proc   *exec.Cmd
	closed bool
}

type mpvRequest struct {
	Command   []any `json:"command"`
	RequestID int64 `json:"request_id"`
}

type mpvResponse struct {
	Data      json.RawMessage `json:"data"`
	Error     string          `json:"error"`
	RequestID int64           `json:"request_id"`
	Event     string          `json:"event"`
}

// DialMPV connects to an mpv instance that is already listening on cfg.SocketPath.
func DialMPV(ctx context.Context, cfg MPVConfig, logger *slog.Logger) (*MPV, error) {
	if cfg.SocketPath == "" {
		return nil, errors.New("mpv: socket path is empty")
	}
	cfg.setDefaults()

	m := &MPV{cfg: cfg, logger: logger}
	if err := m.connectWithRetry(ctx); err != nil {
		return nil, err
	}
	return m, nil
}

// LaunchMPV starts mpv playing cfg.MediaPath with an IPC server on cfg.SocketPath and
// connects to it. Close stops the player.
func LaunchMPV(ctx context.Context, cfg MPVConfig, logger *slog.Logger) (*MPV, error) {
	if cfg.SocketPath == "" {
		return nil, errors.New("mpv: socket path is empty")
	}
	if cfg.MediaPath == "" {
		return nil, errors.New("mpv: no media file given")
	}
	if _, err := os.Stat(cfg.MediaPath); err != nil {
		return nil, fmt.Errorf("mpv: media file: %w", err)
	}
	cfg.setDefaults()

	// A stale socket from a crashed player would make the dial succeed against nothing.
	_ = os.Remove(cfg.SocketPath)

	proc := exec.Command(cfg.Binary,
		"--no-terminal",
		"--keep-open=yes",
		"--input-ipc-server="+cfg.SocketPath,
		cfg.MediaPath,
	)
	if err := proc.Start(); err != nil {
		return nil, fmt.Errorf("start mpv: %w", err)
	}

	m := &MPV{cfg: cfg, logger: logger, proc: proc}
	if err := m.connectWithRetry(ctx); err != nil {
		_ = proc.Process.Kill()
		_ = proc.Wait()
		return nil, err
	}
	return m, nil
}

func (m *MPV) connect(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.dialLocked(ctx)
}

// dialLocked replaces the connection. m.mu must be held.
func (m *MPV) dialLocked(ctx context.Context) error {
	m.dropLocked()

	d := net.Dialer{Timeout: m.cfg.Timeout}
	conn, err := d.DialContext(ctx, "unix", m.cfg.SocketPath)
	if err != nil {
		return err
	}

	m.conn = conn
	m.reader = bufio.NewReader(conn)
	return nil
}

// dropLocked closes the connection so the next call redials. A connection is
// never reused after a failed request.
func (m *MPV) dropLocked() {
	if m.conn != nil {
		m.conn.Close()
		m.conn = nil
		m.reader = nil
	}
}

func (m *MPV) connectWithRetry(ctx context.Context) error {
	var lastErr error
	for attempt := 0; attempt < m.cfg.ConnectAttempts; attempt++ {
		err := m.connect(ctx)
		if err == nil {
			m.logger.Info("connected to mpv", "socket", m.cfg.SocketPath)
			return nil
		}
		lastErr = err
		m.logger.Debug("mpv connection failed; retrying", "error", err, "attempt", attempt+1)

		select {
		case <-ctx.Done():
			return fmt.Errorf("connect to mpv: %w", ctx.Err())
		case <-time.After(m.cfg.ConnectInterval):
		}
	}
	return fmt.Errorf("connect to mpv after %d attempts: %w", m.cfg.ConnectAttempts, lastErr)
}

// call sends one command and waits for the matching reply, skipping async events.
func (m *MPV) call(ctx context.Context, args ...any) (json.RawMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, ErrClosed
	}
	if m.conn == nil {
		if err := m.dialLocked(ctx); err != nil {
			return nil, fmt.Errorf("reconnect to mpv: %w", err)
		}
		m.logger.Debug("reconnected to mpv", "socket", m.cfg.SocketPath)
	}

	m.nextID++
	req := mpvRequest{Command: args, RequestID: m.nextID}
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal mpv request: %w", err)
	}
	payload = append(payload, '\n')

	deadline := time.Now().Add(m.cfg.Timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := m.conn.SetDeadline(deadline); err != nil {
		m.dropLocked()
		return nil, err
	}

	if _, err := m.conn.Write(payload); err != nil {
		m.dropLocked()
		return nil, fmt.Errorf("write mpv request: %w", err)
	}

	for {
		line, err := m.reader.ReadBytes('\n')
		if err != nil {
			m.dropLocked()
			return nil, fmt.Errorf("read mpv reply: %w", err)
		}

		var resp mpvResponse
		if err := json.Unmarshal(line, &resp); err != nil {
			m.dropLocked()
			return nil, fmt.Errorf("parse mpv reply: %w", err)
		}
		if resp.Event != "" || resp.RequestID != req.RequestID {
			continue
		}

		switch resp.Error {
		case "success":
			return resp.Data, nil
		case "property unavailable":
			return nil, ErrNotReady
		default:
			return nil, fmt.Errorf("mpv %v: %s", args[0], resp.Error)
		}
	}
}

func (m *MPV) getFloat(ctx context.Context, property string) (float64, error) {
	data, err := m.call(ctx, "get_property", property)
	if err != nil {
		return 0, err
	}
	var v *float64
	if err := json.Unmarshal(data, &v); err != nil {
		return 0, fmt.Errorf("decode %s: %w", property, err)
	}
	if v == nil {
		return 0, ErrNotReady
	}
	return *v, nil
}

// Volume returns mpv's volume property rounded to an integer percent.
func (m *MPV) Volume(ctx context.Context) (int, error) {
	v, err := m.getFloat(ctx, "volume")
	if err != nil {
		return 0, err
	}
	return int(v + 0.5), nil
}

func (m *MPV) SetVolume(ctx context.Context, percent int) error {
	_, err := m.call(ctx, "set_property", "volume", percent)
	return err
}

// Position returns the playback position (time-pos) in seconds.
func (m *MPV) Position(ctx context.Context) (float64, error) {
	return m.getFloat(ctx, "time-pos")
}

func (m *MPV) SetPosition(ctx context.Context, seconds float64) error {
	_, err := m.call(ctx, "seek", seconds, "absolute")
	return err
}

func (m *MPV) TogglePause(ctx context.Context) error {
	_, err := m.call(ctx, "cycle", "pause")
	return err
}

// Close disconnects from mpv and stops the player if this backend launched it.
func (m *MPV) Close() error {
	if m.proc != nil {
		ctx, cancel := context.WithTimeout(context.Background(), m.cfg.Timeout)
		if _, err := m.call(ctx, "quit"); err != nil {
			m.logger.Debug("mpv quit failed; killing", "error", err)
			_ = m.proc.Process.Kill()
		}
		cancel()
	}

	m.mu.Lock()
	var err error
	if m.conn != nil {
		err = m.conn.Close()
		m.conn = nil
	}
	m.closed = true
	m.mu.Unlock()

	if m.proc != nil {
		_ = m.proc.Wait()
		m.proc = nil
	}
	return err
}
