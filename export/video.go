package export

import (
	"bytes"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"strings"
)

// FFmpegArgs builds the rawvideo-over-stdin encoder invocation. audioStart
// trims the audio track so it lines up with an export window that begins
// mid-stream.
func FFmpegArgs(mp4Path string, fps float64, width, height int, audioPath string, audioStart float64) []string {
	args := []string{
		"-y",
		"-hide_banner",
		"-loglevel", "error",
		"-f", "rawvideo",
		"-pix_fmt", "rgb24",
		"-s", fmt.Sprintf("%dx%d", width, height),
		"-r", formatFloat(fps),
		"-i", "-",
	}
	if audioPath != "" {
		if audioStart < 0 {
			audioStart = 0
		}
		if audioStart > 0 {
			args = append(args, "-ss", formatFloat(audioStart))
		}
		args = append(args, "-i", audioPath, "-map", "0:v:0", "-map", "1:a:0")
	} else {
		args = append(args, "-an")
	}
	args = append(args, "-c:v", "libx264", "-pix_fmt", "yuv420p", "-movflags", "+faststart")
	if audioPath != "" {
		args = append(args, "-c:a", "aac", "-shortest")
	}
	return append(args, mp4Path)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// FFmpegWriter pipes raw rgb24 frames into an ffmpeg process.
type FFmpegWriter struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stderr bytes.Buffer
}

// StartFFmpeg launches the encoder. The returned writer accepts frames
// until Close.
func StartFFmpeg(mp4Path string, fps float64, width, height int, audioPath string, audioStart float64) (*FFmpegWriter, error) {
	w := &FFmpegWriter{
		cmd: exec.Command("ffmpeg", FFmpegArgs(mp4Path, fps, width, height, audioPath, audioStart)...),
	}
	w.cmd.Stderr = &w.stderr
	stdin, err := w.cmd.StdinPipe()
	if err != nil {
		return nil, err
	}
	w.stdin = stdin
	if err := w.cmd.Start(); err != nil {
		return nil, fmt.Errorf("start ffmpeg: %w", err)
	}
	return w, nil
}

func (w *FFmpegWriter) WriteFrame(raw []byte) error {
	_, err := w.stdin.Write(raw)
	return err
}

// Close ends the stream and waits for the encoder to finish.
func (w *FFmpegWriter) Close() error {
	w.stdin.Close()
	if err := w.cmd.Wait(); err != nil {
		if detail := strings.TrimSpace(w.stderr.String()); detail != "" {
			return fmt.Errorf("ffmpeg failed: %s", detail)
		}
		return fmt.Errorf("ffmpeg failed: %w", err)
	}
	return nil
}

// Abort kills the encoder, for error paths where the stream will not be
// finished. The partial mp4 is left behind.
func (w *FFmpegWriter) Abort() {
	w.stdin.Close()
	if w.cmd.Process != nil {
		w.cmd.Process.Kill()
	}
	w.cmd.Wait()
}
