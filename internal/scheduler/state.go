package scheduler

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/andrea060103/bot-trading-simulazione/internal/model"
)

// State is what live mode remembers across restarts.
type State struct {
	Symbol    string      `json:"symbol"`
	Interval  string      `json:"interval"`
	LastLabel model.Label `json:"last_label"`
	LastPrice float64     `json:"last_price"`
	LastValue float64     `json:"last_value"`
	LastTime  time.Time   `json:"last_time"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// LoadState reads the live state from a JSON file. Returns a zero state if the file doesn't exist.
func LoadState(filePath string) (*State, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return &State{}, nil
		}
		return nil, fmt.Errorf("read state: %w", err)
	}
	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("decode state %s: %w", filePath, err)
	}
	return &state, nil
}

// SaveState writes the live state to a JSON file.
func SaveState(filePath string, state *State) error {
	state.UpdatedAt = time.Now().UTC()
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}
	if dir := filepath.Dir(filePath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create state dir: %w", err)
		}
	}
	return os.WriteFile(filePath, data, 0o644)
}

// labelFor returns the remembered label when it belongs to req.
func (s *State) labelFor(req model.Request) model.Label {
	if s.Symbol != req.Symbol || s.Interval != req.Interval {
		return ""
	}
	return s.LastLabel
}
