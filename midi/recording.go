package midi

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	gomidi "gitlab.com/gomidi/midi/v2"

	"github.com/NicholasCStanley/midiphoria/session"
)

// Recording is a parsed JSONL recording: the state snapshot from the meta
// line (nil when the file has none) and the messages sorted by time.
type Recording struct {
	Snapshot *session.StateSnapshot
	Messages []TimedMessage
}

// ReadRecording parses a recording file. Blank lines and unknown line types
// are skipped, the first meta line wins, and messages come back sorted by
// their timestamp with ties kept in file order.
func ReadRecording(path string) (Recording, error) {
	f, err := os.Open(path)
	if err != nil {
		return Recording{}, err
	}
	defer f.Close()

	var rec Recording

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var head struct {
			Type string `json:"type"`
		}
		if err := json.Unmarshal([]byte(line), &head); err != nil {
			return Recording{}, fmt.Errorf("%s line %d: %w", path, lineNo, err)
		}

		switch head.Type {
		case "meta":
			if rec.Snapshot != nil {
				continue
			}
			var meta recordingMeta
			if err := json.Unmarshal([]byte(line), &meta); err != nil {
				return Recording{}, fmt.Errorf("%s line %d: %w", path, lineNo, err)
			}
			rec.Snapshot = meta.State
		case "midi":
			var ev recordedEvent
			if err := json.Unmarshal([]byte(line), &ev); err != nil {
				return Recording{}, fmt.Errorf("%s line %d: %w", path, lineNo, err)
			}
			raw := make([]byte, len(ev.Data))
			for i, v := range ev.Data {
				raw[i] = byte(v)
			}
			rec.Messages = append(rec.Messages, TimedMessage{T: ev.T, Msg: gomidi.Message(raw)})
		}
	}
	if err := scanner.Err(); err != nil {
		return Recording{}, err
	}

	sort.SliceStable(rec.Messages, func(i, j int) bool {
		return rec.Messages[i].T < rec.Messages[j].T
	})
	return rec, nil
}
