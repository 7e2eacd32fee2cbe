package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// Presets are named folders of timestamped state snapshots under
// ~/.config/midiphoria/presets/. Saving never overwrites; loading without a
// filename picks the newest save.

// SaveInfo describes one snapshot file inside a preset.
type SaveInfo struct {
	Filename  string
	Timestamp time.Time
}

// PresetsDir returns the presets root directory.
func PresetsDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "midiphoria", "presets"), nil
}

// PresetDir returns the folder of one named preset.
func PresetDir(name string) (string, error) {
	base, err := PresetsDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, sanitizeName(name)), nil
}

// ListPresets returns all preset names, sorted.
func ListPresets() ([]string, error) {
	dir, err := PresetsDir()
	if err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, err
	}

	var presets []string
	for _, entry := range entries {
		if entry.IsDir() {
			presets = append(presets, entry.Name())
		}
	}
	sort.Strings(presets)
	return presets, nil
}

// ListSaves returns the snapshot files of a preset, newest first.
func ListSaves(name string) ([]SaveInfo, error) {
	dir, err := PresetDir(name)
	if err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []SaveInfo{}, nil
		}
		return nil, err
	}

	var saves []SaveInfo
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		fname := entry.Name()
		if !strings.HasSuffix(fname, ".json") {
			continue
		}

		base := strings.TrimSuffix(fname, ".json")
		ts, err := time.Parse("2006-01-02_15-04-05", base)
		if err != nil {
			continue
		}
		saves = append(saves, SaveInfo{Filename: fname, Timestamp: ts})
	}

	sort.Slice(saves, func(i, j int) bool {
		return saves[i].Timestamp.After(saves[j].Timestamp)
	})
	return saves, nil
}

// SavePreset writes the state's snapshot into the preset folder under a
// timestamped filename.
func SavePreset(name string, state *State) error {
	if name == "" {
		name = "default"
	}

	dir, err := PresetDir(name)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(state.Snapshot(), "", "  ")
	if err != nil {
		return err
	}

	timestamp := time.Now().Format("2006-01-02_15-04-05")
	return os.WriteFile(filepath.Join(dir, timestamp+".json"), data, 0644)
}

// LoadPreset reads one snapshot from a preset, the newest when filename is
// empty.
func LoadPreset(name, filename string) (StateSnapshot, error) {
	dir, err := PresetDir(name)
	if err != nil {
		return StateSnapshot{}, err
	}

	if filename == "" {
		saves, err := ListSaves(name)
		if err != nil || len(saves) == 0 {
			return StateSnapshot{}, fmt.Errorf("no saves found in preset %s", name)
		}
		filename = saves[0].Filename
	}

	data, err := os.ReadFile(filepath.Join(dir, filename))
	if err != nil {
		return StateSnapshot{}, err
	}

	var snap StateSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return StateSnapshot{}, fmt.Errorf("parse preset %s: %w", filename, err)
	}
	return snap, nil
}

// DeleteSave removes one snapshot file from a preset.
func DeleteSave(name, filename string) error {
	dir, err := PresetDir(name)
	if err != nil {
		return err
	}
	return os.Remove(filepath.Join(dir, filename))
}

// DeletePreset removes a preset folder and everything in it.
func DeletePreset(name string) error {
	dir, err := PresetDir(name)
	if err != nil {
		return err
	}
	return os.RemoveAll(dir)
}

func sanitizeName(name string) string {
	name = strings.ReplaceAll(name, " ", "-")
	name = strings.ReplaceAll(name, "/", "-")
	name = strings.ReplaceAll(name, "\\", "-")
	name = strings.ReplaceAll(name, ":", "-")
	for _, bad := range []string{"*", "?", "\"", "<", ">", "|"} {
		name = strings.ReplaceAll(name, bad, "")
	}
	return name
}
