package sound

import (
	"fmt"
	"os"
	"time"

	"github.com/faiface/beep"
	"github.com/faiface/beep/speaker"
	"github.com/faiface/beep/wav"
)

// Player plays short wav cues in the background.  A cue that arrives while
// another is playing cuts the first one off.
type Player struct {
	soundsToPlay chan string
	done         chan struct{}
}

// NewPlayer opens the speaker.  If there's no audio device the player still
// works; it just logs and drops every cue.
func NewPlayer() *Player {
	p := &Player{
		soundsToPlay: make(chan string, 1),
		done:         make(chan struct{}),
	}
	go p.loop()
	return p
}

func (p *Player) loop() {
	defer close(p.done)
	defer func() {
		if r := recover(); r != nil {
			fmt.Println("Sound: speaker failed:", r)
		}
		for s := range p.soundsToPlay {
			fmt.Println("Unable to play", s)
		}
	}()

	sampleRate := beep.SampleRate(44100)
	err := speaker.Init(sampleRate, sampleRate.N(time.Second/5))
	if err != nil {
		fmt.Println("Failed to open speaker", err)
		return
	}

	var ctrl *beep.Ctrl
	var s beep.StreamSeekCloser
	for soundToPlay := range p.soundsToPlay {
		if ctrl != nil {
			speaker.Lock()
			ctrl.Paused = true
			ctrl.Streamer = nil
			speaker.Unlock()
			ctrl = nil
		}
		if s != nil {
			s.Close()
			s = nil
		}

		f, err := os.Open(soundToPlay)
		if err != nil {
			fmt.Println("Failed to open sound", err)
			continue
		}
		s, _, err = wav.Decode(f)
		if err != nil {
			fmt.Println("Failed to decode sound", err)
			f.Close()
			s = nil
			continue
		}
		ctrl = &beep.Ctrl{Streamer: s}
		speaker.Play(ctrl)
	}
	if s != nil {
		s.Close()
	}
}

// Play queues a cue.  Empty paths are ignored.  Never blocks for long: if
// the player is busy the cue is dropped.
func (p *Player) Play(path string) {
	if path == "" {
		return
	}
	select {
	case p.soundsToPlay <- path:
	case <-time.After(10 * time.Millisecond):
		fmt.Println("Timed out trying to play sound: ", path)
	}
}

// PlayAndWait queues a cue and gives it up to d to finish, for the stop
// sound at shutdown.
func (p *Player) PlayAndWait(path string, d time.Duration) {
	if path == "" {
		return
	}
	p.Play(path)
	time.Sleep(d)
}

func (p *Player) Close() {
	close(p.soundsToPlay)
	<-p.done
}
