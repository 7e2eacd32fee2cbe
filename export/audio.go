package export

import (
	"bytes"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

// SynthesizeAudio renders a MIDI file to a temporary wav next to the mp4
// using fluidsynth. The caller removes the wav once encoding is done.
func SynthesizeAudio(midiPath, soundFont, mp4Path string, log *zap.Logger) (string, error) {
	if _, err := exec.LookPath("fluidsynth"); err != nil {
		return "", fmt.Errorf("fluidsynth not found in PATH")
	}

	base := strings.TrimSuffix(filepath.Base(mp4Path), filepath.Ext(mp4Path))
	wav := filepath.Join(filepath.Dir(mp4Path),
		fmt.Sprintf(".midiphoria_%s_%s.wav", base, randomHex()))

	log.Info("synthesizing audio",
		zap.String("midi", midiPath),
		zap.String("soundfont", soundFont),
		zap.String("wav", wav),
	)

	cmd := exec.Command("fluidsynth", "-ni", soundFont, midiPath, "-F", wav, "-r", "48000")
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		detail := strings.TrimSpace(stderr.String())
		if detail == "" {
			detail = err.Error()
		}
		return "", fmt.Errorf("fluidsynth failed: %s", detail)
	}
	return wav, nil
}

func randomHex() string {
	var b [16]byte
	rand.Read(b[:])
	return hex.EncodeToString(b[:])
}
