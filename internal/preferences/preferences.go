// Package preferences holds the reader's typed preference document and the
// service that keeps it in sync with the remote store.
package preferences

import (
	"errors"
	"fmt"
)

const (
	MinSpeed     = 1
	MaxSpeed     = 10
	DefaultSpeed = 3

	DirectionRTL = "rtl"
	DirectionLTR = "ltr"
)

var (
	ErrInvalidDirection = errors.New("reading direction must be rtl or ltr")
	ErrInvalidLanguage  = errors.New("language must not be empty")
)

type AutoScroll struct {
	Speed      int  `json:"speed"`
	Enabled    bool `json:"enabled"`
	PauseOnTap bool `json:"pause_on_tap"`
}

// PreferenceSet is the reader preference document. Fields are changed only
// through the setters so every value stays in range.
type PreferenceSet struct {
	AutoScroll       AutoScroll `json:"auto_scroll"`
	Language         string     `json:"language"`
	ReadingDirection string     `json:"reading_direction"`
	AutoTranslate    bool       `json:"auto_translate"`
}

func Defaults() PreferenceSet {
	return PreferenceSet{
		AutoScroll: AutoScroll{
			Speed:      DefaultSpeed,
			Enabled:    false,
			PauseOnTap: true,
		},
		Language:         "ar",
		ReadingDirection: DirectionRTL,
		AutoTranslate:    true,
	}
}

// ClampSpeed forces a speed into [MinSpeed, MaxSpeed].
func ClampSpeed(speed int) int {
	if speed < MinSpeed {
		return MinSpeed
	}
	if speed > MaxSpeed {
		return MaxSpeed
	}
	return speed
}

func (p *PreferenceSet) SetAutoScrollEnabled(enabled bool) {
	p.AutoScroll.Enabled = enabled
}

// SetAutoScrollSpeed stores the speed clamped to [1,10].
func (p *PreferenceSet) SetAutoScrollSpeed(speed int) {
	p.AutoScroll.Speed = ClampSpeed(speed)
}

func (p *PreferenceSet) SetPauseOnTap(pause bool) {
	p.AutoScroll.PauseOnTap = pause
}

func (p *PreferenceSet) SetLanguage(lang string) error {
	if lang == "" {
		return ErrInvalidLanguage
	}
	p.Language = lang
	return nil
}

func (p *PreferenceSet) SetReadingDirection(direction string) error {
	if direction != DirectionRTL && direction != DirectionLTR {
		return fmt.Errorf("%w: %q", ErrInvalidDirection, direction)
	}
	p.ReadingDirection = direction
	return nil
}

func (p *PreferenceSet) SetAutoTranslate(enabled bool) {
	p.AutoTranslate = enabled
}

// Normalize repairs a document decoded from an external source: out of
// range speeds are clamped and missing fields take their defaults.
func (p *PreferenceSet) Normalize() {
	d := Defaults()
	if p.AutoScroll.Speed == 0 {
		p.AutoScroll.Speed = d.AutoScroll.Speed
	}
	p.SetAutoScrollSpeed(p.AutoScroll.Speed)
	if p.Language == "" {
		p.Language = d.Language
	}
	if p.ReadingDirection != DirectionRTL && p.ReadingDirection != DirectionLTR {
		p.ReadingDirection = d.ReadingDirection
	}
}
