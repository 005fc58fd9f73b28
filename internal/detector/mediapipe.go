package detector

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"gocv.io/x/gocv"
)

const (
	scriptName          = "hand_service.py"
	defaultStartTimeout = 30 * time.Second
)

// ErrHelperExited is returned when the helper process is gone or its pipes
// broke. Frames cannot be processed until a new detector is started.
var ErrHelperExited = errors.New("mediapipe helper exited")

// MediaPipeDetector implements Detector using a Python MediaPipe subprocess.
//
// Protocol: once the model is loaded the helper prints {"ready":true}. For every
// frame the detector then writes a 4-byte big-endian length followed by
// the JPEG-encoded frame to the helper's stdin, then reads one JSON line of the form
// {"hands":[{"points":[{"x":..,"y":..,"z":..}, ...21], "handedness":"Right", "score":0.98}]}.
type MediaPipeDetector struct {
	config     Config
	scriptPath string
	pythonPath string
	cmd        *exec.Cmd
	stdin      io.WriteCloser
	stdout     *bufio.Reader
	mu         sync.Mutex
	started    bool
}

// NewMediaPipeDetector creates a new MediaPipe detector.
// The Python process is started by Start or lazily on first detection.
func NewMediaPipeDetector(config Config) (*MediaPipeDetector, error) {
	scriptPath := config.ScriptPath
	if scriptPath == "" {
		scriptPath = findHelperScript()
	}
	if scriptPath == "" {
		return nil, fmt.Errorf("%s not found", scriptName)
	}
	if _, err := os.Stat(scriptPath); err != nil {
		return nil, fmt.Errorf("mediapipe helper: %w", err)
	}

	pythonPath := config.PythonPath
	if pythonPath == "" {
		pythonPath = findVenvPython()
	}
	if pythonPath == "" {
		pythonPath = "python3"
	}

	if config.MaxHands <= 0 {
		config.MaxHands = 1
	}
	if config.StartTimeout <= 0 {
		config.StartTimeout = defaultStartTimeout
	}

	return &MediaPipeDetector{
		config:     config,
		scriptPath: scriptPath,
		pythonPath: pythonPath,
	}, nil
}

// Start launches the helper process and waits until it reports ready, so a
// missing interpreter or a failed mediapipe import surfaces before the first frame.
func (d *MediaPipeDetector) Start() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.ensureStarted()
}

// Detect analyzes a frame and returns detected hand landmarks.
func (d *MediaPipeDetector) Detect(frame *gocv.Mat) ([]Snapshot, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.ensureStarted(); err != nil {
		return nil, err
	}

	buf, err := gocv.IMEncode(".jpg", *frame)
	if err != nil {
		return nil, fmt.Errorf("encode frame: %w", err)
	}
	defer buf.Close()

	data := buf.GetBytes()

	length := make([]byte, 4)
	binary.BigEndian.PutUint32(length, uint32(len(data)))

	if _, err := d.stdin.Write(length); err != nil {
		return nil, d.helperFailed("write length", err)
	}
	if _, err := d.stdin.Write(data); err != nil {
		return nil, d.helperFailed("write data", err)
	}

	line, err := d.stdout.ReadString('\n')
	if err != nil {
		return nil, d.helperFailed("read response", err)
	}

	return parseResponse([]byte(line))
}

// Close shuts down the Python process.
func (d *MediaPipeDetector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.shutdown()
}

func (d *MediaPipeDetector) ensureStarted() error {
	if d.started {
		return nil
	}

	d.cmd = exec.Command(d.pythonPath, d.scriptPath,
		"--max-hands", strconv.Itoa(d.config.MaxHands),
		"--min-detection-confidence", strconv.FormatFloat(d.config.MinConfidence, 'f', -1, 64),
		"--min-tracking-confidence", strconv.FormatFloat(d.config.MinTrackingConf, 'f', -1, 64),
	)

	stdin, err := d.cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("create stdin pipe: %w", err)
	}

	stdout, err := d.cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("create stdout pipe: %w", err)
	}

	// Capture stderr for debugging
	d.cmd.Stderr = os.Stderr

	if err := d.cmd.Start(); err != nil {
		return fmt.Errorf("start mediapipe helper: %w", err)
	}

	d.stdin = stdin
	d.stdout = bufio.NewReader(stdout)
	d.started = true

	if err := d.waitReady(); err != nil {
		d.kill()
		return err
	}
	return nil
}

// waitReady reads the helper's first line, which must be {"ready":true}.
func (d *MediaPipeDetector) waitReady() error {
	type result struct {
		line string
		err  error
	}
	ch := make(chan result, 1)
	r := d.stdout
	go func() {
		line, err := r.ReadString('\n')
		ch <- result{line, err}
	}()

	var res result
	select {
	case res = <-ch:
	case <-time.After(d.config.StartTimeout):
		return fmt.Errorf("mediapipe helper not ready after %s", d.config.StartTimeout)
	}
	if res.err != nil {
		return fmt.Errorf("%w before ready: %v", ErrHelperExited, res.err)
	}

	var msg struct {
		Ready bool   `json:"ready"`
		Error string `json:"error"`
	}
	if err := json.Unmarshal([]byte(res.line), &msg); err != nil {
		return fmt.Errorf("mediapipe helper: unexpected startup line %q", res.line)
	}
	if msg.Error != "" {
		return fmt.Errorf("mediapipe helper: %s", msg.Error)
	}
	if !msg.Ready {
		return fmt.Errorf("mediapipe helper: unexpected startup line %q", res.line)
	}
	return nil
}

// helperFailed tears down a helper whose pipes broke and reports it as exited.
func (d *MediaPipeDetector) helperFailed(op string, err error) error {
	d.kill()
	return fmt.Errorf("%w: %s: %v", ErrHelperExited, op, err)
}

func (d *MediaPipeDetector) kill() {
	if d.cmd != nil && d.cmd.Process != nil {
		_ = d.cmd.Process.Kill()
	}
	_ = d.shutdown()
}

func (d *MediaPipeDetector) shutdown() error {
	if !d.started {
		return nil
	}

	if d.stdin != nil {
		d.stdin.Close()
	}

	err := d.cmd.Wait()
	d.started = false
	d.cmd = nil
	d.stdin = nil
	d.stdout = nil

	return err
}

func findHelperScript() string {
	execPath, err := os.Executable()
	var execDir string
	if err == nil {
		execDir = filepath.Dir(execPath)
	}

	candidates := []string{
		filepath.Join("scripts", scriptName),
		filepath.Join("..", "scripts", scriptName),
		filepath.Join(execDir, "scripts", scriptName),
		filepath.Join(os.Getenv("HOME"), ".mudra", "scripts", scriptName),
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			absPath, err := filepath.Abs(path)
			if err == nil {
				return absPath
			}
			return path
		}
	}
	return ""
}

// findVenvPython looks for a Python interpreter in a virtual environment.
func findVenvPython() string {
	execPath, err := os.Executable()
	if err != nil {
		return ""
	}
	execDir := filepath.Dir(execPath)

	candidates := []string{
		"venv/bin/python",
		"../venv/bin/python",
		filepath.Join(execDir, "venv/bin/python"),
		filepath.Join(os.Getenv("HOME"), ".mudra/venv/bin/python"),
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			absPath, err := filepath.Abs(path)
			if err == nil {
				return absPath
			}
			return path
		}
	}
	return ""
}

// jsonHand represents the JSON structure from the Python helper.
type jsonHand struct {
	Points     []Point3D `json:"points"`
	Handedness string    `json:"handedness"`
	Score      float64   `json:"score"`
}

// parseResponse decodes one helper response line into validated snapshots.
func parseResponse(line []byte) ([]Snapshot, error) {
	var response struct {
		Hands []jsonHand `json:"hands"`
		Error string     `json:"error"`
	}
	if err := json.Unmarshal(line, &response); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}
	if response.Error != "" {
		return nil, fmt.Errorf("mediapipe helper: %s", response.Error)
	}

	result := make([]Snapshot, 0, len(response.Hands))
	for i, h := range response.Hands {
		s, err := NewSnapshot(h.Points, h.Handedness, h.Score)
		if err != nil {
			return nil, fmt.Errorf("hand %d: %w", i, err)
		}
		result = append(result, s)
	}

	return result, nil
}
