package engine

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"sonata/pkg/models"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/flac"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/speaker"
	"github.com/gopxl/beep/v2/wav"
	"github.com/sirupsen/logrus"
)

// statusInterval is how often a beep resource reports its position.
const statusInterval = 250 * time.Millisecond

// BeepFactory produces audio resources backed by the beep speaker. The
// speaker is a process-wide device; it is initialized once with the
// first resource and shared by all subsequent ones. The engine
// guarantees at most one live resource, so each new resource may clear
// the speaker outright.
type BeepFactory struct {
	initOnce   sync.Once
	initErr    error
	sampleRate beep.SampleRate
	logger     *logrus.Logger
}

// NewBeepFactory creates a factory playing at the standard 44.1 kHz
// output rate; source material at other rates is resampled.
func NewBeepFactory(logger *logrus.Logger) *BeepFactory {
	return &BeepFactory{
		sampleRate: beep.SampleRate(44100),
		logger:     logger,
	}
}

// New implements ResourceFactory.
func (f *BeepFactory) New(track models.Track, onStatus StatusFunc) (Resource, error) {
	path := strings.TrimPrefix(track.URI, "file://")

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open audio file: %w", err)
	}

	streamer, format, err := decode(path, file)
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to decode audio: %w", err)
	}

	f.initOnce.Do(func() {
		f.initErr = speaker.Init(f.sampleRate, f.sampleRate.N(time.Second/10))
	})
	if f.initErr != nil {
		streamer.Close()
		return nil, fmt.Errorf("failed to initialize speaker: %w", f.initErr)
	}

	r := &beepResource{
		streamer: streamer,
		format:   format,
		onStatus: onStatus,
		done:     make(chan struct{}),
	}

	resampled := beep.Resample(4, format.SampleRate, f.sampleRate, streamer)
	r.ctrl = &beep.Ctrl{Streamer: resampled, Paused: true}

	// Replaces any abandoned sequence from a prior resource.
	speaker.Clear()
	speaker.Play(beep.Seq(r.ctrl, beep.Callback(func() {
		// The callback runs under the speaker lock; finishing must not
		// re-enter speaker operations on this goroutine.
		go r.finish()
	})))

	go r.reportLoop()
	return r, nil
}

// decode picks a decoder by file extension.
func decode(path string, file *os.File) (beep.StreamSeekCloser, beep.Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".mp3":
		return mp3.Decode(file)
	case ".wav":
		return wav.Decode(file)
	case ".flac":
		return flac.Decode(file)
	default:
		return nil, beep.Format{}, fmt.Errorf("unsupported format: %s", filepath.Ext(path))
	}
}

// beepResource is one decoded stream bound to the shared speaker.
type beepResource struct {
	mu       sync.Mutex
	streamer beep.StreamSeekCloser
	format   beep.Format
	ctrl     *beep.Ctrl
	onStatus StatusFunc

	done      chan struct{}
	closeOnce sync.Once
	finished  bool
}

func (r *beepResource) Play() error {
	speaker.Lock()
	r.ctrl.Paused = false
	speaker.Unlock()
	r.report()
	return nil
}

func (r *beepResource) Pause() error {
	speaker.Lock()
	r.ctrl.Paused = true
	speaker.Unlock()
	r.report()
	return nil
}

func (r *beepResource) Seek(pos time.Duration) error {
	speaker.Lock()
	defer speaker.Unlock()

	samples := r.format.SampleRate.N(pos)
	if total := r.streamer.Len(); samples > total {
		samples = total
	}
	if samples < 0 {
		samples = 0
	}
	return r.streamer.Seek(samples)
}

func (r *beepResource) Close() error {
	var err error
	r.closeOnce.Do(func() {
		close(r.done)
		speaker.Clear()
		err = r.streamer.Close()
	})
	return err
}

// reportLoop emits periodic status reports until the resource is closed
// or the stream completes.
func (r *beepResource) reportLoop() {
	ticker := time.NewTicker(statusInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.done:
			return
		case <-ticker.C:
			r.report()
		}
	}
}

// report snapshots position/duration/playing under the speaker lock and
// pushes one status upward.
func (r *beepResource) report() {
	r.mu.Lock()
	if r.finished {
		r.mu.Unlock()
		return
	}
	r.mu.Unlock()

	select {
	case <-r.done:
		return
	default:
	}

	speaker.Lock()
	pos := r.format.SampleRate.D(r.streamer.Position())
	dur := r.format.SampleRate.D(r.streamer.Len())
	playing := !r.ctrl.Paused
	speaker.Unlock()

	r.onStatus(Status{Position: pos, Duration: dur, Playing: playing})
}

// finish emits the terminal completed status exactly once.
func (r *beepResource) finish() {
	r.mu.Lock()
	if r.finished {
		r.mu.Unlock()
		return
	}
	r.finished = true
	r.mu.Unlock()

	select {
	case <-r.done:
		// Closed before the stream drained; no completion to report.
		return
	default:
	}

	dur := r.format.SampleRate.D(r.streamer.Len())
	r.onStatus(Status{Position: dur, Duration: dur, Playing: false, Completed: true})
}
