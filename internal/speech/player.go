package speech

import (
	"bytes"
	"context"
	"encoding/binary"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"

	"github.com/hammamikhairi/gridvoice/internal/domain"
	"github.com/hammamikhairi/gridvoice/internal/logger"
)

// Compile-time interface check.
var _ domain.Sink = (*Player)(nil)

// Player handles audio playback of PCM clips via oto.
type Player struct {
	ctx    *oto.Context
	rate   int
	log    *logger.Logger
	mu     sync.Mutex
	active *oto.Player // currently playing, nil when idle
}

// NewPlayer creates an audio player at the given device sample rate.
// Initializes the system audio context; oto allows one per process.
// Returns an error if the audio device is unavailable.
func NewPlayer(rate int, log *logger.Logger) (*Player, error) {
	op := &oto.NewContextOptions{
		SampleRate:   rate,
		ChannelCount: ChannelCount,
		Format:       oto.FormatSignedInt16LE,
	}

	ctx, readyChan, err := oto.NewContext(op)
	if err != nil {
		return nil, err
	}
	<-readyChan

	log.Debug("audio player initialized (rate=%d, channels=%d)", rate, ChannelCount)
	return &Player{ctx: ctx, rate: rate, log: log}, nil
}

// SampleRate returns the device rate clips are converted to.
func (p *Player) SampleRate() int { return p.rate }

// Play plays a clip synchronously. Blocks until playback finishes, Stop
// is called, or ctx is done.
func (p *Player) Play(ctx context.Context, audio domain.Audio) error {
	audio = Resample(audio, p.rate)
	pcm := make([]byte, len(audio.Samples)*2)
	for i, s := range audio.Samples {
		binary.LittleEndian.PutUint16(pcm[i*2:], uint16(s))
	}

	player := p.ctx.NewPlayer(bytes.NewReader(pcm))

	p.mu.Lock()
	p.active = player
	p.mu.Unlock()

	player.Play()
	p.log.Debug("audio player: playing %d bytes of PCM", len(pcm))

	// Wait for playback to complete or be interrupted.
	for player.IsPlaying() {
		select {
		case <-ctx.Done():
			player.Pause()
		case <-time.After(10 * time.Millisecond):
		}
	}

	p.mu.Lock()
	p.active = nil
	p.mu.Unlock()

	return player.Close()
}

// Stop interrupts the currently playing audio, if any. Safe to call
// concurrently and when nothing is playing.
func (p *Player) Stop() {
	p.mu.Lock()
	active := p.active
	p.mu.Unlock()

	if active != nil {
		active.Pause()
		p.log.Debug("audio player: interrupted")
	}
}
