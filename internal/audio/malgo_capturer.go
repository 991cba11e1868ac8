package audio

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gen2brain/malgo"
)

// malgoCapturer implements Capturer on top of miniaudio via malgo.
type malgoCapturer struct {
	cfg      CaptureConfig
	device   *malgo.Device
	malgoCtx *malgo.AllocatedContext
	samples  chan Sample
	errs     chan error
	running  bool
	mu       sync.RWMutex
	stopOnce sync.Once
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

func newMalgoCapturer(cfg CaptureConfig) (*malgoCapturer, error) {
	depth := cfg.QueueDepth
	if depth <= 0 {
		depth = DefaultCaptureConfig().QueueDepth
	}
	return &malgoCapturer{
		cfg:     cfg,
		samples: make(chan Sample, depth),
		errs:    make(chan error, 8),
		stopCh:  make(chan struct{}),
	}, nil
}

// Start initializes the device and begins delivering samples. The malgo data
// callback must never block: sends are non-blocking and overflow is reported
// on the error channel while the frame is dropped.
func (m *malgoCapturer) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return fmt.Errorf("capturer already running")
	}
	m.running = true
	m.mu.Unlock()

	malgoCtx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		m.setStopped()
		return fmt.Errorf("init audio context: %w", err)
	}
	m.malgoCtx = malgoCtx

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Capture)
	deviceConfig.Capture.Format = malgo.FormatS16
	deviceConfig.Capture.Channels = m.cfg.Channels
	deviceConfig.SampleRate = m.cfg.SampleRate
	deviceConfig.PeriodSizeInFrames = m.cfg.FrameSize

	callbacks := malgo.DeviceCallbacks{
		Data: func(_, input []byte, frameCount uint32) {
			data := make([]byte, len(input))
			copy(data, input)

			select {
			case m.samples <- Sample{Data: data, Timestamp: time.Now(), Frames: frameCount}:
			default:
				select {
				case m.errs <- fmt.Errorf("capture queue full, dropping %d frames", frameCount):
				default:
				}
			}
		},
	}

	device, err := malgo.InitDevice(m.malgoCtx.Context, deviceConfig, callbacks)
	if err != nil {
		m.teardownContext()
		m.setStopped()
		return fmt.Errorf("init capture device: %w", err)
	}
	m.device = device

	if err := device.Start(); err != nil {
		device.Uninit()
		m.teardownContext()
		m.setStopped()
		return fmt.Errorf("start capture device: %w", err)
	}

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		select {
		case <-ctx.Done():
			m.Stop()
		case <-m.stopCh:
		}
	}()

	return nil
}

// Stop halts the device and closes the channels. Safe to call more than once.
func (m *malgoCapturer) Stop() error {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return nil
	}
	m.running = false
	m.mu.Unlock()

	var err error
	m.stopOnce.Do(func() {
		close(m.stopCh)

		if m.device != nil {
			if stopErr := m.device.Stop(); stopErr != nil {
				err = fmt.Errorf("stop capture device: %w", stopErr)
			}
			m.device.Uninit()
		}
		m.teardownContext()

		m.wg.Wait()
		close(m.samples)
		close(m.errs)
	})
	return err
}

func (m *malgoCapturer) Samples() <-chan Sample {
	return m.samples
}

func (m *malgoCapturer) Errors() <-chan error {
	return m.errs
}

func (m *malgoCapturer) IsRunning() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.running
}

func (m *malgoCapturer) setStopped() {
	m.mu.Lock()
	m.running = false
	m.mu.Unlock()
}

func (m *malgoCapturer) teardownContext() {
	if m.malgoCtx != nil {
		_ = m.malgoCtx.Uninit()
		m.malgoCtx.Free()
		m.malgoCtx = nil
	}
}
