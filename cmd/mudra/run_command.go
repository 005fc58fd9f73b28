package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ayusman/mudra/internal/app"
	"github.com/ayusman/mudra/internal/config"
)

type runOptions struct {
	backend  string
	media    string
	camera   int
	detector string
	preview  bool
	tray     bool
	monitor  string
}

func newRunCommand(ctx *commandContext) *cobra.Command {
	var opts runOptions

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Watch the camera and control the media player",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			runOverrides(cmd, &opts).Apply(&cfg)

			logger, err := newLogger(cfg)
			if err != nil {
				return err
			}

			sigCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return runMudra(sigCtx, cfg, logger)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.backend, "backend", "", "Media backend (mpv, vlc, memory)")
	flags.StringVar(&opts.media, "media", "", "Media file for mpv to play")
	flags.IntVar(&opts.camera, "camera", 0, "Camera device index")
	flags.StringVar(&opts.detector, "detector", "", "Hand detector (mediapipe, mock)")
	flags.BoolVar(&opts.preview, "preview", true, "Show the camera preview window")
	flags.BoolVar(&opts.tray, "tray", false, "Show the system tray icon")
	flags.StringVar(&opts.monitor, "monitor", "", "Serve the monitor API on this address")
	return cmd
}

// runOverrides keeps only the flags the user actually set.
func runOverrides(cmd *cobra.Command, opts *runOptions) config.Overrides {
	var o config.Overrides
	flags := cmd.Flags()
	if flags.Changed("backend") {
		o.Backend = &opts.backend
	}
	if flags.Changed("media") {
		o.Media = &opts.media
	}
	if flags.Changed("camera") {
		o.CameraDevice = &opts.camera
	}
	if flags.Changed("detector") {
		o.Detector = &opts.detector
	}
	if flags.Changed("preview") {
		o.Preview = &opts.preview
	}
	if flags.Changed("tray") {
		o.Tray = &opts.tray
	}
	if flags.Changed("monitor") {
		o.MonitorAddr = &opts.monitor
	}
	return o
}

// runMudra opens every resource and drives the loop until a stop is
// requested. With the tray enabled the tray owns the main goroutine and the
// loop runs beside it.
func runMudra(ctx context.Context, cfg config.Config, logger *slog.Logger) (err error) {
	a, err := app.Open(ctx, cfg, logger, app.Deps{})
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, a.Close())
	}()

	t := a.Tray()
	if t == nil {
		return a.Run(ctx)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	t.OnQuit(cancel)

	done := make(chan error, 1)
	go func() {
		// The preview window is drawn from this goroutine; HighGUI wants one thread.
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()

		done <- a.Run(ctx)
		t.Quit()
	}()
	t.Run()
	return <-done
}
