package detector

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gocv.io/x/gocv"
)

// Model selectors understood by the estimator service.
const (
	modelPose byte = 'P'
	modelHand byte = 'H'
)

const idleShutdown = 30 * time.Second

// MediaPipeEstimator implements PoseEstimator and HandEstimator using a Python
// subprocess that hosts MoveNet and MediaPipe Hands.
type MediaPipeEstimator struct {
	config    Config
	logger    *zap.Logger
	script    string
	cmd       *exec.Cmd
	stdin     io.WriteCloser
	stdout    *bufio.Reader
	mu        sync.Mutex
	started   bool
	lastUsed  time.Time
	idleTimer *time.Timer
}

// NewMediaPipeEstimator creates a new subprocess estimator.
// The Python process is started lazily on first use.
func NewMediaPipeEstimator(config Config, logger *zap.Logger) (*MediaPipeEstimator, error) {
	script := config.ScriptPath
	if script == "" {
		script = findServiceScript()
	}
	if script == "" {
		return nil, errors.New("pose_service.py not found")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &MediaPipeEstimator{
		config: config,
		logger: logger,
		script: script,
	}, nil
}

// EstimateBodyPoses sends the frame to the body model.
func (d *MediaPipeEstimator) EstimateBodyPoses(frame *gocv.Mat) ([]BodyPose, error) {
	var response struct {
		Poses []RawBodyPose `json:"poses"`
	}
	if err := d.roundTrip(modelPose, frame, &response); err != nil {
		return nil, err
	}
	return ConvertBodyPoses(response.Poses)
}

// EstimateHands sends the frame to the hand model.
func (d *MediaPipeEstimator) EstimateHands(frame *gocv.Mat) ([]HandPose, error) {
	var response struct {
		Hands []RawHand `json:"hands"`
	}
	if err := d.roundTrip(modelHand, frame, &response); err != nil {
		return nil, err
	}
	return ConvertHandPoses(response.Hands)
}

// roundTrip writes model byte + length (4 bytes big-endian) + JPEG data and
// reads back one JSON line.
func (d *MediaPipeEstimator) roundTrip(model byte, frame *gocv.Mat, response interface{}) error {
	if frame == nil || frame.Empty() {
		return errors.New("empty frame")
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.ensureStarted(); err != nil {
		return err
	}

	buf, err := gocv.IMEncode(".jpg", *frame)
	if err != nil {
		return errors.Wrap(err, "encode frame")
	}
	defer buf.Close()

	data := buf.GetBytes()

	header := make([]byte, 5)
	header[0] = model
	binary.BigEndian.PutUint32(header[1:], uint32(len(data)))

	if _, err := d.stdin.Write(header); err != nil {
		return errors.Wrap(err, "write header")
	}
	if _, err := d.stdin.Write(data); err != nil {
		return errors.Wrap(err, "write data")
	}

	line, err := d.stdout.ReadString('\n')
	if err != nil {
		return errors.Wrap(err, "read response")
	}

	if err := json.Unmarshal([]byte(line), response); err != nil {
		return errors.Wrap(ErrMalformed, err.Error())
	}

	d.lastUsed = time.Now()
	d.resetIdleTimer()

	return nil
}

// Close shuts down the Python process.
func (d *MediaPipeEstimator) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.shutdown()
}

func (d *MediaPipeEstimator) ensureStarted() error {
	if d.started {
		return nil
	}

	// Use virtual environment Python if available
	pythonPath := findVenvPython()
	if pythonPath == "" {
		pythonPath = "python3"
	}

	d.cmd = exec.Command(pythonPath, d.script,
		"--max-hands", strconv.Itoa(d.config.MaxHands),
		"--max-poses", strconv.Itoa(d.config.MaxPoses),
		"--min-confidence", strconv.FormatFloat(d.config.MinConfidence, 'f', -1, 64),
	)

	stdin, err := d.cmd.StdinPipe()
	if err != nil {
		return errors.Wrap(err, "create stdin pipe")
	}

	stdout, err := d.cmd.StdoutPipe()
	if err != nil {
		return errors.Wrap(err, "create stdout pipe")
	}

	d.cmd.Stderr = os.Stderr

	if err := d.cmd.Start(); err != nil {
		return errors.Wrap(err, "start estimator service")
	}

	d.stdin = stdin
	d.stdout = bufio.NewReader(stdout)
	d.started = true
	d.lastUsed = time.Now()

	d.logger.Info("estimator service started", zap.String("script", d.script), zap.String("python", pythonPath))
	return nil
}

func (d *MediaPipeEstimator) shutdown() error {
	if !d.started {
		return nil
	}

	if d.idleTimer != nil {
		d.idleTimer.Stop()
		d.idleTimer = nil
	}

	if d.stdin != nil {
		d.stdin.Close()
	}

	err := d.cmd.Wait()
	d.started = false
	d.cmd = nil
	d.stdin = nil
	d.stdout = nil

	d.logger.Info("estimator service stopped")
	return err
}

func (d *MediaPipeEstimator) resetIdleTimer() {
	if d.idleTimer != nil {
		d.idleTimer.Stop()
	}
	d.idleTimer = time.AfterFunc(idleShutdown, func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		if err := d.shutdown(); err != nil {
			d.logger.Warn("estimator service exited", zap.Error(err))
		}
	})
}

func findServiceScript() string {
	execPath, err := os.Executable()
	var execDir string
	if err == nil {
		execDir = filepath.Dir(execPath)
	}

	candidates := []string{
		"scripts/pose_service.py",
		"../scripts/pose_service.py",
		filepath.Join(execDir, "scripts/pose_service.py"),
		filepath.Join(os.Getenv("HOME"), ".handmirror/scripts/pose_service.py"),
	}
	return firstExisting(candidates)
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
		"../../venv/bin/python",
		filepath.Join(execDir, "venv/bin/python"),
		filepath.Join(os.Getenv("HOME"), ".handmirror/venv/bin/python"),
	}
	return firstExisting(candidates)
}

func firstExisting(candidates []string) string {
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
