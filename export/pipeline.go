package export

import (
	"fmt"
	"math"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/NicholasCStanley/midiphoria/midi"
	"github.com/NicholasCStanley/midiphoria/session"
)

// Shutter modes. Sample reads the envelope once per frame; max and avg
// spread subsamples across the frame interval and reduce them.
const (
	ShutterSample = "sample"
	ShutterMax    = "max"
	ShutterAvg    = "avg"
)

// Sample points within a frame for the sample shutter.
const (
	SampleStart  = "start"
	SampleCenter = "center"
	SampleEnd    = "end"
)

// Frame file formats.
const (
	FormatPPM = "ppm"
	FormatPNG = "png"
)

// Job describes one offline render independent of where the messages come
// from.
type Job struct {
	FPS    float64
	Width  int
	Height int

	FramesDir string
	Format    string // ppm or png, for FramesDir
	MP4Path   string
	AudioPath string

	Shutter    string
	SampleAt   string
	Subsamples int

	Start  float64
	End    float64
	HasEnd bool // false means derive End from the stream plus Tail
	Tail   float64
}

// Result reports what an export produced. The source-specific fields are
// only set by the runner that applies.
type Result struct {
	Frames     int
	FPS        float64
	Width      int
	Height     int
	FramesDir  string
	MP4Path    string
	Shutter    string
	SampleAt   string
	Subsamples int

	RecordingMetaState *session.StateSnapshot
	EffectiveState     session.StateSnapshot
	MIDITicksPerBeat   uint16
	MIDIFileDurationS  float64
	MIDIDurationMode   string
}

// Validate normalizes the job in place and rejects meaningless settings.
func (j *Job) Validate() error {
	if j.FPS <= 0 {
		return fmt.Errorf("fps must be > 0")
	}
	if j.Width <= 0 || j.Height <= 0 {
		return fmt.Errorf("width and height must be > 0")
	}

	j.Shutter = strings.ToLower(j.Shutter)
	if j.Shutter == "" {
		j.Shutter = ShutterSample
	}
	switch j.Shutter {
	case ShutterSample, ShutterMax, ShutterAvg:
	default:
		return fmt.Errorf("shutter must be one of: sample, max, avg")
	}

	j.SampleAt = strings.ToLower(j.SampleAt)
	if j.SampleAt == "" {
		j.SampleAt = SampleEnd
	}
	switch j.SampleAt {
	case SampleStart, SampleCenter, SampleEnd:
	default:
		return fmt.Errorf("sample point must be one of: start, center, end")
	}

	if j.Subsamples < 1 {
		j.Subsamples = 1
	}

	j.Format = strings.ToLower(j.Format)
	if j.Format == "" {
		j.Format = FormatPPM
	}
	switch j.Format {
	case FormatPPM, FormatPNG:
	default:
		return fmt.Errorf("frame format must be one of: ppm, png")
	}
	return nil
}

// Window resolves the export's start and end times. Without an explicit
// end the window runs to the last event plus the tail, so releases decay
// on screen instead of being cut off.
func (j Job) Window(lastEventT float64) (start, end float64) {
	end = j.End
	if !j.HasEnd {
		end = max(0, lastEventT+max(0, j.Tail))
	}
	start = max(0, j.Start)
	end = max(start, end)
	return start, end
}

// Run replays msgs through a fresh sampler and writes every requested
// sink. lastEventT sizes the default window. A window that rounds to zero
// frames succeeds without touching any output.
func (j Job) Run(state *session.State, msgs []midi.TimedMessage, lastEventT float64, log *zap.Logger) (Result, error) {
	if err := j.Validate(); err != nil {
		return Result{}, err
	}

	start, end := j.Window(lastEventT)
	frameDT := 1 / j.FPS
	numFrames := int(math.Floor((end-start)*j.FPS + 1e-9))

	res := Result{
		FPS:        j.FPS,
		Width:      j.Width,
		Height:     j.Height,
		FramesDir:  j.FramesDir,
		MP4Path:    j.MP4Path,
		Shutter:    j.Shutter,
		SampleAt:   j.SampleAt,
		Subsamples: j.Subsamples,
	}
	if numFrames <= 0 {
		return res, nil
	}
	res.Frames = numFrames

	log.Info("export started",
		zap.Int("frames", numFrames),
		zap.Float64("fps", j.FPS),
		zap.Float64("start_s", start),
		zap.Float64("end_s", end),
		zap.String("shutter", j.Shutter),
	)

	if j.FramesDir != "" {
		if err := os.MkdirAll(j.FramesDir, 0755); err != nil {
			return Result{}, fmt.Errorf("create frames dir: %w", err)
		}
	}

	var enc *FFmpegWriter
	if j.MP4Path != "" {
		var err error
		enc, err = StartFFmpeg(j.MP4Path, j.FPS, j.Width, j.Height, j.AudioPath, start)
		if err != nil {
			return Result{}, err
		}
		log.Info("ffmpeg started", zap.String("mp4", j.MP4Path))
	}
	defer func() {
		if enc != nil {
			enc.Abort()
		}
	}()

	smp := NewSampler(state, msgs)
	smp.AdvanceTo(start)

	for i := 0; i < numFrames; i++ {
		t0 := start + float64(i)*frameDT
		level := smp.FrameValue(t0, frameDT, j.Shutter, j.SampleAt, j.Subsamples)
		rgb := smp.FrameRGB(level)
		raw := FrameBytes(j.Width, j.Height, rgb)

		if j.FramesDir != "" {
			path := FramePath(j.FramesDir, j.Format, i)
			var err error
			if j.Format == FormatPNG {
				err = WritePNG(path, j.Width, j.Height, rgb)
			} else {
				err = WritePPM(path, j.Width, j.Height, raw)
			}
			if err != nil {
				return Result{}, fmt.Errorf("write frame %d: %w", i, err)
			}
		}
		if enc != nil {
			if err := enc.WriteFrame(raw); err != nil {
				return Result{}, fmt.Errorf("feed ffmpeg frame %d: %w", i, err)
			}
		}
	}

	if enc != nil {
		err := enc.Close()
		enc = nil
		if err != nil {
			return Result{}, err
		}
	}

	log.Info("export finished", zap.Int("frames", numFrames))
	return res, nil
}
