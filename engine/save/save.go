// Package save implements JSON serialization and deserialization of player
// quest state.
package save

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/nathoo/netquest/engine/state"
	"github.com/nathoo/netquest/types"
)

// FormatVersion is the current save format.
const FormatVersion = 1

// SaveData is the JSON-serializable save format.
type SaveData struct {
	Version  int                `json:"version"`
	PlayerID string             `json:"player_id"`
	SavedAt  time.Time          `json:"saved_at"`
	State    *types.PlayerState `json:"state"`
}

// Save serializes player state to JSON bytes.
func Save(s *types.PlayerState) ([]byte, error) {
	if s == nil {
		return nil, fmt.Errorf("save: nil state")
	}
	data := SaveData{
		Version:  FormatVersion,
		PlayerID: s.PlayerID,
		SavedAt:  time.Now().UTC(),
		State:    s,
	}
	return json.MarshalIndent(data, "", "  ")
}

// Load deserializes JSON bytes into SaveData.
func Load(data []byte) (*SaveData, error) {
	var sd SaveData
	if err := json.Unmarshal(data, &sd); err != nil {
		return nil, err
	}
	if sd.Version > FormatVersion {
		return nil, fmt.Errorf("save: unsupported version %d (max %d)", sd.Version, FormatVersion)
	}
	if sd.State == nil {
		sd.State = state.NewState(sd.PlayerID)
	}
	// Ensure maps are never nil after load.
	state.Ensure(sd.State)
	if sd.State.PlayerID == "" {
		sd.State.PlayerID = sd.PlayerID
	}
	return &sd, nil
}

// Encode serializes a state without indentation, for stores.
func Encode(s *types.PlayerState) ([]byte, error) {
	return json.Marshal(SaveData{
		Version:  FormatVersion,
		PlayerID: s.PlayerID,
		SavedAt:  s.SnapshotAt,
		State:    s,
	})
}

// Decode is Load returning only the state.
func Decode(data []byte) (*types.PlayerState, error) {
	sd, err := Load(data)
	if err != nil {
		return nil, err
	}
	return sd.State, nil
}
