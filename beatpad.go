// Package beatpad contains the data model shared by the beatpad engine: step
// patterns, sounds, synth notes and synth settings. The audio graph, output
// lifecycle, sample player, synthesizer and step scheduler live in their own
// packages and exchange the types defined here.
package beatpad

import "math"

// Sound is a drum sound that can be loaded into the sample player. Locator is
// either an http(s) URL or a path relative to the sample file system.
type Sound struct {
	ID      string `yaml:"id" json:"id"`
	Name    string `yaml:"name" json:"name"`
	Locator string `yaml:"locator" json:"locator"`
}

// DrumSounds is the built-in drum kit. The sequencer's default pattern has one
// track per entry, in this order.
var DrumSounds = []Sound{
	{ID: "kick", Name: "Kick", Locator: "sounds/kick.wav"},
	{ID: "snare", Name: "Snare", Locator: "sounds/snare.wav"},
	{ID: "hihat", Name: "Hi-Hat", Locator: "sounds/hihat.wav"},
	{ID: "clap", Name: "Clap", Locator: "sounds/clap.wav"},
	{ID: "tom1", Name: "Tom 1", Locator: "sounds/tom1.wav"},
	{ID: "tom2", Name: "Tom 2", Locator: "sounds/tom2.wav"},
	{ID: "crash", Name: "Crash", Locator: "sounds/crash.wav"},
	{ID: "ride", Name: "Ride", Locator: "sounds/ride.wav"},
}

// Clamp limits v to the closed range [lo, hi]. NaN becomes lo.
func Clamp(v, lo, hi float64) float64 {
	if v < lo || math.IsNaN(v) {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// ClampInt limits v to the closed range [lo, hi].
func ClampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
