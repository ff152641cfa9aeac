package models

import "github.com/dalmaki/when2meet/internal/interval"

// Settings represents grid-wide settings
type Settings struct {
	AxisStart int64 `json:"axis_start"` // seconds on the shared axis, e.g. 25200 for 07:00
	AxisEnd   int64 `json:"axis_end"`   // may exceed 86400 to run past midnight
}

// DefaultSettings returns the 07:00 to 27:00 grid
func DefaultSettings() Settings {
	return SettingsFromAxis(interval.DefaultAxis())
}

// SettingsFromAxis builds settings for the given axis window
func SettingsFromAxis(a interval.Axis) Settings {
	return Settings{AxisStart: a.Start, AxisEnd: a.End}
}

// Axis returns the visible window described by the settings
func (s Settings) Axis() interval.Axis {
	return interval.Axis{Start: s.AxisStart, End: s.AxisEnd}
}
