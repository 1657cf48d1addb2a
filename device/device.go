// Package device holds the process-wide default device identifiers: which
// audio output, audio input, and video input device new calls should
// acquire media from. There is one such slot per process, not per call.
package device

import "sync/atomic"

// Defaults is an immutable snapshot of the three default device
// identifiers. A field holding "" means unset — acquisition should fall
// back to the platform default for that kind.
type Defaults struct {
	AudioOutputID string
	AudioInputID  string
	VideoInputID  string
}

var current atomic.Value

func init() {
	current.Store(Defaults{})
}

// Current returns the active snapshot. Safe for concurrent use; reads never
// block on a concurrent SetX call.
func Current() Defaults {
	return current.Load().(Defaults)
}

// SetAudioOutput replaces the default audio output device id.
func SetAudioOutput(id string) {
	swap(func(d Defaults) Defaults {
		d.AudioOutputID = id
		return d
	})
}

// SetAudioInput replaces the default audio input device id.
func SetAudioInput(id string) {
	swap(func(d Defaults) Defaults {
		d.AudioInputID = id
		return d
	})
}

// SetVideoInput replaces the default video input device id.
func SetVideoInput(id string) {
	swap(func(d Defaults) Defaults {
		d.VideoInputID = id
		return d
	})
}

// swap is not a compare-and-swap loop: a single-writer assumption (§9)
// means plain load-mutate-store is enough, and keeps concurrent SetX calls
// from needing to retry against each other.
func swap(mutate func(Defaults) Defaults) {
	current.Store(mutate(Current()))
}
