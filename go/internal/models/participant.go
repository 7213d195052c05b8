package models

import "time"

// Participant is one buzzer unit known to the hub.
// Slot and Color are assigned on first join and never change afterwards.
type Participant struct {
	ID                 string    `json:"id"`
	Slot               int       `json:"slot"`
	Color              Color     `json:"color"`
	Connected          bool      `json:"connected"`
	LastSeenAt         time.Time `json:"last_seen_at"`
	HasBuzzedThisRound bool      `json:"has_buzzed_this_round"`
	Capability         int       `json:"capability"`
	Firmware           string    `json:"firmware"`
}

// DefaultCapability is the LED count assumed when a unit does not report one.
const DefaultCapability = 8

// DefaultFirmware is assumed when a unit does not report a firmware version.
const DefaultFirmware = "1.0"
