package domain

import (
	"time"

	"github.com/google/uuid"
)

// Audio is mono signed 16-bit PCM.
type Audio struct {
	Samples    []int16
	SampleRate int
}

// Duration returns the playback length of the clip.
func (a Audio) Duration() time.Duration {
	if a.SampleRate <= 0 {
		return 0
	}
	return time.Duration(len(a.Samples)) * time.Second / time.Duration(a.SampleRate)
}

// Empty reports whether the clip has nothing to play.
func (a Audio) Empty() bool { return len(a.Samples) == 0 || a.SampleRate <= 0 }

// Announcement is one synthesis+playback request.
type Announcement struct {
	ID        string
	Text      string
	Voice     string
	Language  string // short code, e.g. "ko"
	Cacheable bool   // look up / store the rendered audio by content key
	Audio     *Audio // prerendered audio; synthesis is skipped when set
	CreatedAt time.Time
}

// NewAnnouncement builds a cacheable announcement for spoken text.
func NewAnnouncement(text, voice, language string) Announcement {
	return Announcement{
		ID:        uuid.NewString(),
		Text:      text,
		Voice:     voice,
		Language:  language,
		Cacheable: true,
		CreatedAt: time.Now(),
	}
}

// NewTestAnnouncement builds a one-off announcement that always goes
// through the synthesizer and is never cached.
func NewTestAnnouncement(text, voice, language string) Announcement {
	a := NewAnnouncement(text, voice, language)
	a.Cacheable = false
	return a
}

// NewToneAnnouncement wraps prerendered audio, e.g. a chime.
func NewToneAnnouncement(label string, audio Audio) Announcement {
	return Announcement{
		ID:        uuid.NewString(),
		Text:      label,
		Audio:     &audio,
		CreatedAt: time.Now(),
	}
}
