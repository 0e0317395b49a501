package video

import (
	"io"

	"github.com/hajimehoshi/ebiten/v2/audio"

	"gones/internal/bus"
)

// sampleRate matches the APU's own output rate, so audioStream never
// needs to resample.
const sampleRate = 44100

// audioStream is an io.Reader producing signed 16-bit stereo PCM from
// the APU's float32 sample queue, fed to ebiten/v2/audio.NewPlayer.
// Samples are buffered internally because ebiten pulls PCM in chunks
// that rarely line up with one emulated video frame's worth.
type audioStream struct {
	player   *audio.Player
	buffered []byte
}

func newAudioStream(b *bus.Bus) *audioStream {
	context := audio.NewContext(sampleRate)
	s := &audioStream{}
	player, err := context.NewPlayer(s)
	if err != nil {
		// No audio device available; play silently rather than fail
		// the whole emulator.
		return s
	}
	s.player = player
	player.Play()
	return s
}

// feed appends newly produced APU samples, converting mono float32
// in [-1, 1] to interleaved stereo PCM16LE.
func (s *audioStream) feed(samples []float32) {
	for _, f := range samples {
		v := int16(clampSample(f) * 32767)
		lo, hi := byte(v), byte(v>>8)
		s.buffered = append(s.buffered, lo, hi, lo, hi)
	}
}

func clampSample(f float32) float32 {
	switch {
	case f > 1:
		return 1
	case f < -1:
		return -1
	default:
		return f
	}
}

// Read implements io.Reader, draining buffered PCM bytes as ebiten's
// audio player pulls them. This is a live stream with no natural EOF,
// so starved reads emit silence rather than blocking or returning 0
// bytes, which would busy-loop the player's internal goroutine.
func (s *audioStream) Read(p []byte) (int, error) {
	n := copy(p, s.buffered)
	s.buffered = s.buffered[n:]
	for i := n; i < len(p); i++ {
		p[i] = 0
	}
	return len(p), nil
}

var _ io.Reader = (*audioStream)(nil)
