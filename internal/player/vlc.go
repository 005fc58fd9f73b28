package player

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// vlcFullVolume is the native VLC volume that corresponds to 100%.
const vlcFullVolume = 256

// VLCConfig configures the VLC HTTP interface backend.
type VLCConfig struct {
	// BaseURL is the VLC web interface address, e.g. http://127.0.0.1:8080.
	BaseURL string
	// Password is the --http-password VLC was started with.
	Password string
	Timeout  time.Duration
}

// VLC controls a VLC instance through its HTTP interface (started with --extraintf http).
type VLC struct {
	cfg    VLCConfig
	base   *url.URL
	client *http.Client
	logger *slog.Logger
}

type vlcStatus struct {
	Volume *int    `json:"volume"`
	Time   *int    `json:"time"`
	Length int     `json:"length"`
	State  string  `json:"state"`
	Rate   float64 `json:"rate"`
}

// DialVLC checks that the VLC HTTP interface is reachable and returns a backend for it.
func DialVLC(ctx context.Context, cfg VLCConfig, logger *slog.Logger) (*VLC, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("vlc: base url is empty")
	}
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("vlc: invalid base url: %w", err)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = time.Second
	}

	v := &VLC{
		cfg:    cfg,
		base:   base,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}

	st, err := v.status(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("connect to vlc: %w", err)
	}
	v.logger.Info("connected to vlc", "url", base.String(), "state", st.State)
	return v, nil
}

// status fetches /requests/status.json, optionally running a command first.
func (v *VLC) status(ctx context.Context, query url.Values) (*vlcStatus, error) {
	u := *v.base
	u.Path += "/requests/status.json"
	if query != nil {
		u.RawQuery = query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	req.SetBasicAuth("", v.cfg.Password)

	resp, err := v.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return nil, errors.New("vlc: unauthorized (check http password)")
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("vlc: unexpected status %d", resp.StatusCode)
	}

	var st vlcStatus
	if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
		return nil, fmt.Errorf("vlc: decode status: %w", err)
	}
	return &st, nil
}

func (v *VLC) command(ctx context.Context, name string, val string) error {
	q := url.Values{"command": {name}}
	if val != "" {
		q.Set("val", val)
	}
	_, err := v.status(ctx, q)
	return err
}

// Volume converts VLC's native volume (256 = 100%) to percent.
func (v *VLC) Volume(ctx context.Context) (int, error) {
	st, err := v.status(ctx, nil)
	if err != nil {
		return 0, err
	}
	if st.Volume == nil {
		return 0, ErrNotReady
	}
	return nativeToPercent(*st.Volume), nil
}

func (v *VLC) SetVolume(ctx context.Context, percent int) error {
	return v.command(ctx, "volume", strconv.Itoa(percentToNative(percent)))
}

// Position returns the playback time; VLC reports whole seconds.
func (v *VLC) Position(ctx context.Context) (float64, error) {
	st, err := v.status(ctx, nil)
	if err != nil {
		return 0, err
	}
	if st.Time == nil || st.State == "stopped" {
		return 0, ErrNotReady
	}
	return float64(*st.Time), nil
}

func (v *VLC) SetPosition(ctx context.Context, seconds float64) error {
	return v.command(ctx, "seek", strconv.Itoa(int(math.Round(seconds))))
}

func (v *VLC) TogglePause(ctx context.Context) error {
	return v.command(ctx, "pl_pause", "")
}

// Close stops playback. The VLC process itself is left running.
func (v *VLC) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), v.cfg.Timeout)
	defer cancel()
	err := v.command(ctx, "pl_stop", "")
	v.client.CloseIdleConnections()
	return err
}

func nativeToPercent(native int) int {
	return int(math.Round(float64(native) * 100 / vlcFullVolume))
}

func percentToNative(percent int) int {
	return int(math.Round(float64(percent) * vlcFullVolume / 100))
}
