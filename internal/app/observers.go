package app

import (
	"log/slog"

	"github.com/ayusman/mudra/internal/capture"
	"github.com/ayusman/mudra/internal/monitor"
	"github.com/ayusman/mudra/internal/store"
	"github.com/ayusman/mudra/internal/tray"
)

// historyRecorder appends every dispatched command to the store. Write
// failures are logged and do not affect the loop.
type historyRecorder struct {
	events    *store.EventRepository
	sessionID string
	logger    *slog.Logger
}

func (h *historyRecorder) Observe(r FrameReport) {
	if r.Command == nil {
		return
	}

	e := &store.Event{
		SessionID: h.sessionID,
		OldCode:   int(r.Transition.Old),
		NewCode:   int(r.Transition.New),
		Command:   r.Command.String(),
		Before:    r.Outcome.Before,
		After:     r.Outcome.After,
		CreatedAt: r.Time.UTC(),
	}
	if r.Err != nil {
		e.Error = r.Err.Error()
	}
	if err := h.events.Append(e); err != nil {
		h.logger.Warn("failed to record command", "command", e.Command, "error", err)
	}
}

// monitorPublisher converts reports to monitor events.
type monitorPublisher struct {
	server *monitor.Server
}

func (m *monitorPublisher) Observe(r FrameReport) {
	m.server.Publish(toMonitorEvent(r))
}

func toMonitorEvent(r FrameReport) monitor.Event {
	ev := monitor.Event{
		Seq:    r.Seq,
		Time:   r.Time,
		Hand:   r.Hand(),
		Raw:    int(r.Raw),
		Stable: int(r.Stable),
	}
	if r.Transition != nil {
		ev.Transition = r.Transition.String()
	}
	if r.Command != nil {
		ev.Command = r.Command.String()
		if r.Err != nil {
			ev.Error = r.Err.Error()
		} else {
			after := r.Outcome.After
			ev.Result = &after
		}
	}
	return ev
}

// trayUpdater shows the finger count and the last command in the tray menu.
type trayUpdater struct {
	tray *tray.Tray
}

func (t *trayUpdater) Observe(r FrameReport) {
	t.tray.SetFingers(int(r.Raw))
	if r.Command != nil {
		t.tray.SetLastCommand(r.Command.String())
	}
}

// previewRenderer draws each processed frame in the preview window.
type previewRenderer struct {
	preview *capture.Preview
	source  *CameraSource
}

func (p *previewRenderer) Observe(r FrameReport) {
	p.preview.Show(p.source.Frame(), r.Snapshot, r.Raised, int(r.Raw))
}
