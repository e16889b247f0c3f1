package notify

import (
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/jfreymuth/pulse"
)

// Cue is a short synthesized tone played on session milestones.
type Cue int

const (
	CueListen Cue = iota + 1
	CueStop
	CueReady
	CueAlert
)

const cueSampleRate = 16000

type tone struct {
	hz     float64
	length time.Duration
}

var cueTones = map[Cue][]tone{
	CueListen: {{hz: 880, length: 70 * time.Millisecond}, {hz: 1175, length: 70 * time.Millisecond}},
	CueStop:   {{hz: 620, length: 120 * time.Millisecond}},
	CueReady:  {{hz: 740, length: 65 * time.Millisecond}, {hz: 988, length: 90 * time.Millisecond}},
	CueAlert:  {{hz: 480, length: 75 * time.Millisecond}, {hz: 360, length: 90 * time.Millisecond}},
}

// Sounds plays cues asynchronously, one at a time.
type Sounds struct {
	enable bool
	logger *slog.Logger
	play   func([]int16) error

	mu sync.Mutex
	wg sync.WaitGroup
}

func NewSounds(enable bool, logger *slog.Logger) *Sounds {
	return &Sounds{enable: enable, logger: logger, play: playPulse}
}

// Play queues cue for playback and returns immediately.
func (s *Sounds) Play(cue Cue) {
	if s == nil || !s.enable {
		return
	}
	samples := synthesize(cueTones[cue])
	if len(samples) == 0 {
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.mu.Lock()
		defer s.mu.Unlock()
		if err := s.play(samples); err != nil && s.logger != nil {
			s.logger.Debug("audio cue failed", "error", err.Error())
		}
	}()
}

// Wait blocks until queued cues have finished.
func (s *Sounds) Wait() {
	if s != nil {
		s.wg.Wait()
	}
}

func playPulse(samples []int16) error {
	client, err := pulse.NewClient(pulse.ClientApplicationName("voicefir"))
	if err != nil {
		return fmt.Errorf("connect pulse server: %w", err)
	}
	defer client.Close()

	cursor := 0
	reader := pulse.Int16Reader(func(buf []int16) (int, error) {
		n := copy(buf, samples[cursor:])
		cursor += n
		if cursor >= len(samples) {
			return n, pulse.EndOfData
		}
		return n, nil
	})

	stream, err := client.NewPlayback(reader,
		pulse.PlaybackMono,
		pulse.PlaybackSampleRate(cueSampleRate),
		pulse.PlaybackLatency(0.02),
		pulse.PlaybackMediaName("voicefir cue"),
	)
	if err != nil {
		return fmt.Errorf("create playback stream: %w", err)
	}
	defer stream.Close()

	stream.Start()
	stream.Drain()
	return stream.Error()
}

func synthesize(tones []tone) []int16 {
	gap := samplesFor(20 * time.Millisecond)
	var pcm []int16
	for i, t := range tones {
		if i > 0 {
			pcm = append(pcm, make([]int16, gap)...)
		}
		pcm = append(pcm, sine(t)...)
	}
	return pcm
}

// sine renders one tone with a 5ms linear fade at each end.
func sine(t tone) []int16 {
	n := samplesFor(t.length)
	if n <= 0 || t.hz <= 0 {
		return nil
	}
	ramp := min(cueSampleRate/200, max(n/10, 1))

	pcm := make([]int16, n)
	for i := range pcm {
		envelope := min(1.0, float64(i)/float64(ramp), float64(n-i-1)/float64(ramp))
		v := math.Sin(2 * math.Pi * t.hz * float64(i) / cueSampleRate)
		pcm[i] = int16(math.Round(v * 0.18 * envelope * math.MaxInt16))
	}
	return pcm
}

func samplesFor(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int(math.Round(d.Seconds() * cueSampleRate))
}
