package e2e

import (
	"context"
	"encoding/json"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ayusman/mudra/internal/app"
	"github.com/ayusman/mudra/internal/config"
	"github.com/ayusman/mudra/internal/logging"
	"github.com/ayusman/mudra/internal/monitor"
	"github.com/ayusman/mudra/internal/player"
)

func baseConfig(t *testing.T) config.Config {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.DataDir = t.TempDir()
	cfg.Camera.Source = "blank"
	cfg.Detector.Kind = "mock"
	cfg.Detector.MockHoldFrames = 1
	cfg.Backend.Kind = "memory"
	cfg.Loop.FrameBudgetMS = 0
	cfg.Preview.Enabled = false
	cfg.Tray.Enabled = false
	cfg.Monitor.Enabled = false
	return cfg
}

// TestE2E_Scenarios drives the blank camera and scripted detector through the
// whole pipeline, one Step per pose.
func TestE2E_Scenarios(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping e2e test")
	}

	tests := []struct {
		name         string
		poses        []int
		volume       int
		position     float64
		wantCalls    []string
		wantVolume   int
		wantPosition float64
		wantPaused   bool
	}{
		{
			name:       "pause then volume up",
			poses:      []int{0, 0, 1, 1, 0, 2},
			volume:     50,
			wantCalls:  []string{"TogglePause", "Volume", "SetVolume"},
			wantVolume: 60,
			wantPaused: true,
		},
		{
			name:       "volume clamps at 100",
			poses:      []int{0, 2, 0, 2},
			volume:     95,
			wantCalls:  []string{"Volume", "SetVolume", "Volume", "SetVolume"},
			wantVolume: 100,
		},
		{
			name:         "seek forward",
			poses:        []int{4},
			volume:       50,
			wantCalls:    []string{"Position", "SetPosition"},
			wantVolume:   50,
			wantPosition: 10,
		},
		{
			name:         "seek backward clamps at zero",
			poses:        []int{5},
			volume:       50,
			position:     3,
			wantCalls:    []string{"Position", "SetPosition"},
			wantVolume:   50,
			wantPosition: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := baseConfig(t)
			cfg.Detector.MockPoses = tt.poses

			backend := player.NewMemory(tt.volume, tt.position)
			a, err := app.Open(context.Background(), cfg, logging.Discard(), app.Deps{Backend: backend})
			if err != nil {
				t.Fatalf("Open() error = %v", err)
			}
			defer a.Close()

			ctx := context.Background()
			for range tt.poses {
				if err := a.Loop().Step(ctx); err != nil {
					t.Fatalf("Step() error = %v", err)
				}
			}

			calls := backend.Calls()
			if len(calls) != len(tt.wantCalls) {
				t.Fatalf("backend calls = %v, want %v", calls, tt.wantCalls)
			}
			for i := range calls {
				if calls[i] != tt.wantCalls[i] {
					t.Fatalf("backend calls = %v, want %v", calls, tt.wantCalls)
				}
			}

			if v, _ := backend.Volume(ctx); v != tt.wantVolume {
				t.Errorf("volume = %d, want %d", v, tt.wantVolume)
			}
			if p, _ := backend.Position(ctx); p != tt.wantPosition {
				t.Errorf("position = %v, want %v", p, tt.wantPosition)
			}
			if backend.Paused() != tt.wantPaused {
				t.Errorf("paused = %v, want %v", backend.Paused(), tt.wantPaused)
			}
		})
	}
}

// TestE2E_MonitorStream watches a run through the websocket feed and the
// history endpoint.
func TestE2E_MonitorStream(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping e2e test")
	}

	cfg := baseConfig(t)
	cfg.Monitor.Enabled = true
	cfg.Monitor.Addr = "127.0.0.1:0"

	a, err := app.Open(context.Background(), cfg, logging.Discard(), app.Deps{
		Backend: player.NewMemory(50, 0),
		Source:  app.NewCodeSource(0, 1, 3),
	})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer a.Close()

	base := monitorAddr(t, a)
	conn, _, err := websocket.DefaultDialer.Dial("ws://"+base+"/api/events", nil)
	if err != nil {
		t.Fatalf("dial events: %v", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for a.Monitor().Status().Clients == 0 {
		if time.Now().After(deadline) {
			t.Fatal("websocket client never registered")
		}
		time.Sleep(5 * time.Millisecond)
	}

	if err := a.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var commands []string
	for range 3 {
		var ev monitor.Event
		if err := conn.ReadJSON(&ev); err != nil {
			t.Fatalf("read event: %v", err)
		}
		if ev.Command != "" {
			commands = append(commands, ev.Command)
		}
	}
	if len(commands) != 2 || commands[0] != "pause" || commands[1] != "volume_down(10)" {
		t.Errorf("streamed commands = %v, want [pause volume_down(10)]", commands)
	}

	resp, err := http.Get("http://" + base + "/api/history?session=" + a.Session().ID)
	if err != nil {
		t.Fatalf("GET /api/history: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var history []struct {
		Command string  `json:"command"`
		Before  float64 `json:"before"`
		After   float64 `json:"after"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&history); err != nil {
		t.Fatalf("decode history: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("history entries = %d, want 2", len(history))
	}
	if history[0].Command != "volume_down(10)" || history[0].Before != 50 || history[0].After != 40 {
		t.Errorf("latest entry = %+v", history[0])
	}
}

// TestE2E_HistoryFileLocation checks the database lands under the data dir.
func TestE2E_HistoryFileLocation(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping e2e test")
	}

	cfg := baseConfig(t)
	a, err := app.Open(context.Background(), cfg, logging.Discard(), app.Deps{Source: app.NewCodeSource(1)})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer a.Close()

	if got, want := a.Store().Path(), filepath.Join(cfg.DataDir, "history.db"); got != want {
		t.Errorf("history path = %s, want %s", got, want)
	}
}

func monitorAddr(t *testing.T, a *app.App) string {
	t.Helper()
	addr := a.MonitorAddr()
	if addr == nil {
		t.Fatal("monitor not started")
	}
	return addr.String()
}
