// Package tray provides a system tray menu for the running controller.
package tray

import (
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/getlantern/systray"
)

// Tray is the system tray application. Quit raises a stop flag that the
// control loop polls; the tray never touches the player itself.
type Tray struct {
	onQuit func()
	mu     sync.RWMutex
	quit   atomic.Bool
	last   string
	shown  int

	// Menu items stored for later updates
	menuLastCommand *systray.MenuItem
	menuStatus      *systray.MenuItem
}

// New creates a new Tray instance.
func New() *Tray {
	return &Tray{}
}

// OnQuit sets the callback function to be called when the quit menu item is clicked.
func (t *Tray) OnQuit(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onQuit = fn
}

// Run starts the system tray application.
// This function blocks until Quit is called or the menu's Quit item is clicked.
func (t *Tray) Run() {
	systray.Run(t.onReady, t.onExit)
}

// Quit closes the tray. Run returns afterwards.
func (t *Tray) Quit() {
	systray.Quit()
}

// onReady is called when the system tray is ready.
// It sets up the menu structure.
func (t *Tray) onReady() {
	systray.SetTitle("Mudra")
	systray.SetTooltip("Mudra hand gesture media control")

	t.mu.Lock()
	t.menuStatus = systray.AddMenuItem("Fingers: "+strconv.Itoa(t.shown), "Current finger count")
	t.menuStatus.Disable()
	t.menuLastCommand = systray.AddMenuItem(lastTitle(t.last), "Last command sent to the player")
	t.menuLastCommand.Disable()
	t.mu.Unlock()
	systray.AddSeparator()

	menuQuit := systray.AddMenuItem("Quit", "Quit Mudra")

	go func() {
		<-menuQuit.ClickedCh
		t.handleQuit()
	}()
}

// onExit is called when the system tray is about to exit.
func (t *Tray) onExit() {
	t.quit.Store(true)
}

// handleQuit handles the quit menu item click.
func (t *Tray) handleQuit() {
	t.quit.Store(true)

	t.mu.RLock()
	callback := t.onQuit
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}

	systray.Quit()
}

// ShouldStop reports whether Quit was chosen or the tray exited.
func (t *Tray) ShouldStop() bool {
	return t.quit.Load()
}

// SetLastCommand updates the last command display in the menu.
func (t *Tray) SetLastCommand(name string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if name == t.last {
		return
	}
	t.last = name
	if t.menuLastCommand != nil {
		t.menuLastCommand.SetTitle(lastTitle(name))
	}
}

// SetFingers updates the finger count display.
func (t *Tray) SetFingers(n int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if n == t.shown {
		return
	}
	t.shown = n
	if t.menuStatus != nil {
		t.menuStatus.SetTitle("Fingers: " + strconv.Itoa(n))
	}
}

// LastCommand returns the command currently displayed.
func (t *Tray) LastCommand() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.last
}

func lastTitle(name string) string {
	if name == "" {
		return "Last: none"
	}
	return "Last: " + name
}
