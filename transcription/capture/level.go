package capture

import (
	"math"
	"sync"
	"sync/atomic"
	"time"
)

// fullScaleSineRMS is the RMS of a sine at amplitude 1.0.
const fullScaleSineRMS = 1 / math.Sqrt2

// Level returns the loudness of a frame on a 0-100 scale where a
// full-scale sine reads 100. Levels below gate read 0.
func Level(frame []float32, gate int) int {
	if len(frame) == 0 {
		return 0
	}
	var sum float64
	for _, s := range frame {
		sum += float64(s) * float64(s)
	}
	rms := math.Sqrt(sum / float64(len(frame)))
	lvl := int(math.Round(rms / fullScaleSineRMS * 100))
	if lvl > 100 {
		lvl = 100
	}
	if lvl < gate {
		return 0
	}
	return lvl
}

// levelMeter samples the latest frame level on a fixed tick. Only the most
// recent value is kept, so a slow reader never sees stale levels.
type levelMeter struct {
	latest atomic.Int32
	out    chan int
	done   chan struct{}
	wg     sync.WaitGroup
	once   sync.Once
}

func startLevelMeter(frames <-chan []float32, interval time.Duration, gate int) *levelMeter {
	m := &levelMeter{
		out:  make(chan int, 1),
		done: make(chan struct{}),
	}

	m.wg.Add(2)
	go func() {
		defer m.wg.Done()
		for {
			select {
			case <-m.done:
				return
			case frame, ok := <-frames:
				if !ok {
					return
				}
				m.latest.Store(int32(Level(frame, gate)))
			}
		}
	}()
	go func() {
		defer m.wg.Done()
		defer close(m.out)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-m.done:
				return
			case <-ticker.C:
				m.publish(int(m.latest.Load()))
			}
		}
	}()
	return m
}

// publish replaces any unread value with v.
func (m *levelMeter) publish(v int) {
	select {
	case <-m.out:
	default:
	}
	select {
	case m.out <- v:
	default:
	}
}

func (m *levelMeter) stop() {
	m.once.Do(func() {
		close(m.done)
		m.wg.Wait()
	})
}
