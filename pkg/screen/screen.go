package screen

import (
	"context"
	"fmt"
	"image"
	"io"
	"os"
	"sync"
	"time"

	"github.com/fogleman/gg"

	"github.com/tigerbot-team/tigerbot/go-teleop/pkg/actuator"
)

// Size of the 1.44" ST7735 panel behind /dev/fb1.
const S = 128

// Screen shows the latest actuator state on a small framebuffer.  The control
// loop calls Publish; a background goroutine redraws twice a second.
type Screen struct {
	lock   sync.Mutex
	state  actuator.State
	notice string
}

func New() *Screen {
	return &Screen{}
}

// Publish records the state to show on the next redraw.  Safe to call from
// any goroutine.
func (s *Screen) Publish(state actuator.State) {
	s.lock.Lock()
	s.state = state
	s.lock.Unlock()
}

// SetNotice shows a short line of text under the gauges; "" clears it.
func (s *Screen) SetNotice(notice string) {
	s.lock.Lock()
	s.notice = notice
	s.lock.Unlock()
}

func (s *Screen) snapshot() (actuator.State, string) {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.state, s.notice
}

// Loop redraws the framebuffer at device until ctx is done, then blanks it.
// A missing framebuffer just disables the screen.
func (s *Screen) Loop(ctx context.Context, device string) {
	f, err := os.OpenFile(device, os.O_RDWR, 0666)
	if err != nil {
		fmt.Println("Failed to open screen, ignoring:", err)
		return
	}
	defer f.Close()

	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			var buf [S * S * 2]byte
			_, _ = f.Seek(0, 0)
			_, _ = f.Write(buf[:])
			return
		case <-ticker.C:
		}

		state, notice := s.snapshot()
		if err := writeFrame(f, Render(state, notice)); err != nil {
			fmt.Println("Screen failure: ", err)
			return
		}
	}
}

// Render draws the status page.
func Render(state actuator.State, notice string) image.Image {
	dc := gg.NewContext(S, S)
	dc.SetRGB(0, 0, 0)
	dc.Clear()
	dc.SetRGBA(1, 0.9, 0, 1)

	dc.DrawString("STEER", 4, 12)
	drawSteeringGauge(dc, state.SteeringAngle)
	dc.DrawString(fmt.Sprintf("%d deg", state.SteeringAngle), 4, 62)

	dc.SetRGBA(1, 0.9, 0, 1)
	dc.DrawString("SPEED", 80, 12)
	drawSpeedBar(dc, state.MotorSpeed)

	if notice != "" {
		DrawWarning(dc, 12, 110)
		dc.SetRGBA(1, 0.9, 0, 1)
		dc.DrawString(notice, 30, 114)
	}
	return dc.Image()
}

// Semicircle with a needle; 0 degrees points left, 180 right.
func drawSteeringGauge(dc *gg.Context, angle int) {
	const cx, cy, r = 36, 48, 28
	dc.SetLineWidth(2)
	dc.DrawArc(cx, cy, r, gg.Radians(180), gg.Radians(360))
	dc.Stroke()
	dc.Push()
	dc.RotateAbout(gg.Radians(float64(angle)), cx, cy)
	dc.DrawLine(cx, cy, cx-r+4, cy)
	dc.Stroke()
	dc.Pop()
}

// Vertical bar from the centre line: up for forward, down for reverse.
func drawSpeedBar(dc *gg.Context, speed int) {
	const x, mid, w, half = 90, 64, 20, 40
	dc.SetLineWidth(1)
	dc.DrawRectangle(x, mid-half, w, 2*half)
	dc.Stroke()
	if speed < 0 {
		dc.SetRGBA(1, 0.2, 0, 1)
	}
	h := float64(speed) * half / actuator.SpeedMax
	dc.DrawRectangle(x+2, mid-h, w-4, h)
	dc.Fill()
	dc.SetRGBA(1, 0.9, 0, 1)
	dc.DrawString(fmt.Sprintf("%+d", speed), x-2, mid+half+14)
}

func DrawWarning(dc *gg.Context, x, y float64) {
	dc.Push()
	dc.Translate(x, y)
	dc.SetRGB(1, 0.2, 0)
	dc.DrawRegularPolygon(3, 0, 0, 10, 0)
	dc.Fill()
	dc.SetRGBA(0, 0, 0, 0.9)
	dc.DrawString("!", -2, 4)
	dc.Pop()
}

// RGB565 encodes img for the panel, which is mounted rotated 90 degrees.
func RGB565(img image.Image) []byte {
	buf := make([]byte, S*S*2)
	for y := 0; y < S; y++ {
		for x := 0; x < S; x++ {
			r, g, b, _ := img.At(x, y).RGBA() // 16-bit pre-multiplied

			rb := byte(r >> (16 - 5))
			gb := byte(g >> (16 - 6)) // Green has 6 bits
			bb := byte(b >> (16 - 5))

			buf[(S-1-y)*2+x*S*2+1] = (rb << 3) | (gb >> 3)
			buf[(S-1-y)*2+x*S*2] = bb | (gb << 5)
		}
	}
	return buf
}

func writeFrame(f io.WriteSeeker, img image.Image) error {
	buf := RGB565(img)
	if _, err := f.Seek(0, 0); err != nil {
		return err
	}
	// The SPI framebuffer driver drops data on large writes; go a row at
	// a time.
	for i := 0; i < S; i++ {
		if _, err := f.Write(buf[i*S*2 : (i+1)*S*2]); err != nil {
			return err
		}
		time.Sleep(10 * time.Microsecond)
	}
	return nil
}
