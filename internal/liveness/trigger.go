package liveness

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	lerrors "github.com/PolarWolf314/lastwill/internal/errors"
	"github.com/PolarWolf314/lastwill/internal/utils"
)

const legacyFlagPrefix = "EXECUTED_AT_"

// TriggerRecord is the content of the trigger flag.
type TriggerRecord struct {
	ExecutedAt time.Time `json:"executed_at"`
	Output     string    `json:"output"`
	Locator    string    `json:"locator"`
	Fragments  []string  `json:"fragments"`
	Sealed     bool      `json:"sealed,omitempty"`
	Notified   bool      `json:"notified"`

	// legacy is set for flags written by earlier versions, which carry
	// only a timestamp and nothing to notify with.
	legacy bool
}

// ReadTrigger reads the trigger flag at path. ok is false when the switch
// has not fired.
func ReadTrigger(path string) (rec TriggerRecord, ok bool, err error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return rec, false, nil
	}
	if err != nil {
		return rec, false, fmt.Errorf("%w: reading trigger flag: %v", lerrors.ErrIO, err)
	}

	text := strings.TrimSpace(string(data))
	if strings.HasPrefix(text, legacyFlagPrefix) {
		rec.legacy = true
		rec.ExecutedAt, _ = ParseHeartbeat(strings.TrimPrefix(text, legacyFlagPrefix))
		return rec, true, nil
	}
	if err := json.Unmarshal(data, &rec); err != nil {
		// The flag's presence is what matters; a damaged record still
		// means the switch fired.
		rec.legacy = true
		return rec, true, nil
	}
	return rec, true, nil
}

func writeTrigger(path string, rec TriggerRecord) (bool, error) {
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return false, fmt.Errorf("encoding trigger record: %w", err)
	}
	created, err := utils.CreateExclusive(path, append(data, '\n'), 0600)
	if err != nil {
		return false, fmt.Errorf("%w: writing trigger flag: %v", lerrors.ErrIO, err)
	}
	return created, nil
}
