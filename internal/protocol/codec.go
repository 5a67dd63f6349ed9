package protocol

import (
	"encoding/binary"
	"fmt"
	"math"
)

// SizeMismatchError reports a decode buffer whose length does not match the
// record's fixed size. Decoders never partially parse or pad.
type SizeMismatchError struct {
	Record   string
	Expected int
	Actual   int
}

func (e *SizeMismatchError) Error() string {
	return fmt.Sprintf("%s: size mismatch: expected %d bytes, got %d", e.Record, e.Expected, e.Actual)
}

// Is allows errors.Is comparison against a zero-valued *SizeMismatchError.
func (e *SizeMismatchError) Is(target error) bool {
	t, ok := target.(*SizeMismatchError)
	if !ok {
		return false
	}
	return t.Record == "" || t.Record == e.Record
}

func checkSize(record string, expected int, buf []byte) error {
	if len(buf) != expected {
		return &SizeMismatchError{Record: record, Expected: expected, Actual: len(buf)}
	}
	return nil
}

// Fields documented as "x10" carry one decimal place as a scaled integer.
// Encoding rounds half away from zero; decoding divides by 10.0. The rule is
// symmetric, so values already quantized to 0.1 round-trip exactly.

func packX10(v float64) int {
	return int(math.Round(v * 10))
}

func unpackX10(raw int) float64 {
	return float64(raw) / 10.0
}

// DecodeEnvironmentalReading parses the 12-byte environment record.
func DecodeEnvironmentalReading(buf []byte) (EnvironmentalReading, error) {
	if err := checkSize("environmental reading", EnvironmentalReadingSize, buf); err != nil {
		return EnvironmentalReading{}, err
	}
	return EnvironmentalReading{
		CO2PPM:           binary.LittleEndian.Uint16(buf[0:2]),
		TemperatureC:     unpackX10(int(int16(binary.LittleEndian.Uint16(buf[2:4])))),
		RelativeHumidity: unpackX10(int(binary.LittleEndian.Uint16(buf[4:6]))),
		LightRaw:         binary.LittleEndian.Uint16(buf[6:8]),
		UptimeMs:         binary.LittleEndian.Uint32(buf[8:12]),
	}, nil
}

// EncodeEnvironmentalReading packs the 12-byte environment record. The
// firmware is the usual producer; the encoder exists for simulation and
// round-trip testing.
func EncodeEnvironmentalReading(r EnvironmentalReading) []byte {
	buf := make([]byte, EnvironmentalReadingSize)
	binary.LittleEndian.PutUint16(buf[0:2], r.CO2PPM)
	binary.LittleEndian.PutUint16(buf[2:4], uint16(int16(packX10(r.TemperatureC))))
	binary.LittleEndian.PutUint16(buf[4:6], uint16(packX10(r.RelativeHumidity)))
	binary.LittleEndian.PutUint16(buf[6:8], r.LightRaw)
	binary.LittleEndian.PutUint32(buf[8:12], r.UptimeMs)
	return buf
}

// EncodeControlTargets packs the 15-byte control setpoint record. The
// reserved trailing u16 is always zero. Range invariants are the caller's
// concern (see ControlTargets.Validate); the encoder packs whatever it is
// given.
func EncodeControlTargets(t ControlTargets) []byte {
	buf := make([]byte, ControlTargetsSize)
	binary.LittleEndian.PutUint16(buf[0:2], uint16(int16(packX10(t.TempMinC))))
	binary.LittleEndian.PutUint16(buf[2:4], uint16(int16(packX10(t.TempMaxC))))
	binary.LittleEndian.PutUint16(buf[4:6], uint16(packX10(t.RHMin)))
	binary.LittleEndian.PutUint16(buf[6:8], t.CO2Max)
	buf[8] = uint8(t.Light)
	binary.LittleEndian.PutUint16(buf[9:11], t.LightOnMinutes)
	binary.LittleEndian.PutUint16(buf[11:13], t.LightOffMinutes)
	// buf[13:15] reserved, zero
	return buf
}

// DecodeControlTargets parses the 15-byte control setpoint record.
func DecodeControlTargets(buf []byte) (ControlTargets, error) {
	if err := checkSize("control targets", ControlTargetsSize, buf); err != nil {
		return ControlTargets{}, err
	}
	return ControlTargets{
		TempMinC:        unpackX10(int(int16(binary.LittleEndian.Uint16(buf[0:2])))),
		TempMaxC:        unpackX10(int(int16(binary.LittleEndian.Uint16(buf[2:4])))),
		RHMin:           unpackX10(int(binary.LittleEndian.Uint16(buf[4:6]))),
		CO2Max:          binary.LittleEndian.Uint16(buf[6:8]),
		Light:           LightMode(buf[8]),
		LightOnMinutes:  binary.LittleEndian.Uint16(buf[9:11]),
		LightOffMinutes: binary.LittleEndian.Uint16(buf[11:13]),
	}, nil
}

// EncodeStageState packs the 10-byte stage record. The reserved trailing u8
// is always zero.
func EncodeStageState(s StageState) []byte {
	buf := make([]byte, StageStateSize)
	buf[0] = uint8(s.Mode)
	buf[1] = uint8(s.Species)
	buf[2] = uint8(s.Stage)
	binary.LittleEndian.PutUint32(buf[3:7], s.StageStartEpoch)
	binary.LittleEndian.PutUint16(buf[7:9], s.ExpectedDays)
	// buf[9] reserved, zero
	return buf
}

// DecodeStageState parses the 10-byte stage record.
func DecodeStageState(buf []byte) (StageState, error) {
	if err := checkSize("stage state", StageStateSize, buf); err != nil {
		return StageState{}, err
	}
	return StageState{
		Mode:            ControlMode(buf[0]),
		Species:         Species(buf[1]),
		Stage:           Stage(buf[2]),
		StageStartEpoch: binary.LittleEndian.Uint32(buf[3:7]),
		ExpectedDays:    binary.LittleEndian.Uint16(buf[7:9]),
	}, nil
}

// EncodeOverrideBits packs the 2-byte override bitfield.
func EncodeOverrideBits(b OverrideBits) []byte {
	buf := make([]byte, OverrideBitsSize)
	binary.LittleEndian.PutUint16(buf, uint16(b))
	return buf
}

// DecodeOverrideBits parses the 2-byte override bitfield.
func DecodeOverrideBits(buf []byte) (OverrideBits, error) {
	if err := checkSize("override bits", OverrideBitsSize, buf); err != nil {
		return 0, err
	}
	return OverrideBits(binary.LittleEndian.Uint16(buf)), nil
}

// EncodeStatusFlags packs the 4-byte status bitfield.
func EncodeStatusFlags(f StatusFlags) []byte {
	buf := make([]byte, StatusFlagsSize)
	binary.LittleEndian.PutUint32(buf, uint32(f))
	return buf
}

// DecodeStatusFlags parses the 4-byte status bitfield.
func DecodeStatusFlags(buf []byte) (StatusFlags, error) {
	if err := checkSize("status flags", StatusFlagsSize, buf); err != nil {
		return 0, err
	}
	return StatusFlags(binary.LittleEndian.Uint32(buf)), nil
}
