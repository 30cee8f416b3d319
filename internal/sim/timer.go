package sim

import "time"

// Timer measures frame time and caps the frame rate by sleeping out the
// rest of each frame.
type Timer struct {
	now   func() time.Time
	sleep func(time.Duration)

	frameStart    time.Time
	lastFrame     time.Time
	delta         time.Duration
	frameDuration time.Duration
}

// NewTimer creates a timer on the wall clock.
func NewTimer() *Timer {
	return newTimer(time.Now, time.Sleep)
}

func newTimer(now func() time.Time, sleep func(time.Duration)) *Timer {
	start := now()
	return &Timer{now: now, sleep: sleep, frameStart: start, lastFrame: start}
}

// StartFrame marks the beginning of a frame and measures the time since the
// previous one.
func (t *Timer) StartFrame() {
	t.frameStart = t.now()
	t.delta = t.frameStart.Sub(t.lastFrame)
	t.lastFrame = t.frameStart
}

// Delta returns the time between the last two StartFrame calls.
func (t *Timer) Delta() time.Duration {
	return t.delta
}

// FrameDuration returns the duration of the last capped frame, including
// any sleep.
func (t *Timer) FrameDuration() time.Duration {
	return t.frameDuration
}

// Cap sleeps until the frame started by StartFrame has lasted 1/fps.
// fps <= 0 disables the cap.
func (t *Timer) Cap(fps int) {
	t.frameDuration = t.now().Sub(t.frameStart)
	if fps <= 0 {
		return
	}

	target := time.Second / time.Duration(fps)
	if t.frameDuration < target {
		t.sleep(target - t.frameDuration)
		t.frameDuration = target
	}
}
