package config

// Overrides carries command-line values that take precedence over the file.
// Each field is applied only when non-nil.
type Overrides struct {
	LogLevel     *string
	LogFormat    *string
	Backend      *string
	Media        *string
	CameraDevice *int
	Detector     *string
	Preview      *bool
	Tray         *bool
	MonitorAddr  *string
}

// Apply writes the set overrides into cfg. Setting MonitorAddr also enables the monitor.
func (o Overrides) Apply(cfg *Config) {
	if o.LogLevel != nil {
		cfg.Logging.Level = *o.LogLevel
	}
	if o.LogFormat != nil {
		cfg.Logging.Format = *o.LogFormat
	}
	if o.Backend != nil {
		cfg.Backend.Kind = *o.Backend
	}
	if o.Media != nil {
		cfg.Backend.MPV.Media = *o.Media
	}
	if o.CameraDevice != nil {
		cfg.Camera.Device = *o.CameraDevice
	}
	if o.Detector != nil {
		cfg.Detector.Kind = *o.Detector
	}
	if o.Preview != nil {
		cfg.Preview.Enabled = *o.Preview
	}
	if o.Tray != nil {
		cfg.Tray.Enabled = *o.Tray
	}
	if o.MonitorAddr != nil {
		cfg.Monitor.Addr = *o.MonitorAddr
		cfg.Monitor.Enabled = *o.MonitorAddr != ""
	}
}
