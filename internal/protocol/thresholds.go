package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrRemoteRejected indicates the chamber answered a threshold exchange with
// an error payload instead of a thresholds object.
var ErrRemoteRejected = errors.New("remote rejected request")

// StageThresholds is the JSON-framed per-species, per-stage threshold
// profile. Unlike the fixed records it is queried and updated sparingly, so
// it rides a textual framing where every attribute beyond the species/stage
// key is optional.
type StageThresholds struct {
	Species         Species    `json:"species"`
	Stage           Stage      `json:"stage"`
	TempMinC        *float64   `json:"tempMin,omitempty"`
	TempMaxC        *float64   `json:"tempMax,omitempty"`
	RHMin           *float64   `json:"rhMin,omitempty"`
	CO2Max          *uint16    `json:"co2Max,omitempty"`
	Light           *LightMode `json:"lightMode,omitempty"`
	LightOnMinutes  *uint16    `json:"lightOnMinutes,omitempty"`
	LightOffMinutes *uint16    `json:"lightOffMinutes,omitempty"`
	ExpectedDays    *uint16    `json:"expectedDays,omitempty"`
}

// thresholdFrame is the on-the-wire envelope. Queries carry op=get with the
// species/stage key only; updates carry op=set with the full object. The
// device responds with either a thresholds object or {"error": "..."}.
type thresholdFrame struct {
	Op string `json:"op,omitempty"`
	StageThresholds
	Error string `json:"error,omitempty"`
}

// EncodeThresholdQuery frames a get request for one species/stage profile.
func EncodeThresholdQuery(species Species, stage Stage) ([]byte, error) {
	frame := thresholdFrame{Op: "get"}
	frame.Species = species
	frame.Stage = stage
	data, err := json.Marshal(frame)
	if err != nil {
		return nil, fmt.Errorf("failed to encode threshold query: %w", err)
	}
	return data, nil
}

// EncodeThresholdUpdate frames a set request carrying the given profile.
func EncodeThresholdUpdate(t StageThresholds) ([]byte, error) {
	frame := thresholdFrame{Op: "set", StageThresholds: t}
	data, err := json.Marshal(frame)
	if err != nil {
		return nil, fmt.Errorf("failed to encode threshold update: %w", err)
	}
	return data, nil
}

// DecodeThresholdResponse parses a threshold exchange response. Missing
// optional keys are tolerated; a payload carrying an error field yields
// ErrRemoteRejected.
func DecodeThresholdResponse(data []byte) (*StageThresholds, error) {
	var frame thresholdFrame
	if err := json.Unmarshal(data, &frame); err != nil {
		return nil, fmt.Errorf("failed to decode threshold response: %w", err)
	}
	if frame.Error != "" {
		return nil, fmt.Errorf("%w: %s", ErrRemoteRejected, frame.Error)
	}
	t := frame.StageThresholds
	return &t, nil
}
