package audio

import (
	"context"
	"fmt"

	pa "github.com/gordonklaus/portaudio"
)

// Device plays a BlockSource on the default output device.
type Device struct {
	stream   *pa.Stream
	src      BlockSource
	channels int
}

// OpenDevice initializes PortAudio and opens the default output stream
// with one callback per block. The mono block is copied to every channel.
func OpenDevice(src BlockSource, sampleRate float64, blockSize, channels int) (*Device, error) {
	if channels < 1 {
		channels = 2
	}
	if err := pa.Initialize(); err != nil {
		return nil, fmt.Errorf("portaudio: %w", err)
	}

	d := &Device{src: src, channels: channels}
	stream, err := pa.OpenDefaultStream(0, channels, sampleRate, blockSize, d.callback)
	if err != nil {
		pa.Terminate()
		return nil, fmt.Errorf("portaudio: open default stream: %w", err)
	}
	d.stream = stream
	return d, nil
}

func (d *Device) callback(out [][]float32) {
	fanout(d.src, out)
}

// fanout renders into the first channel and copies it to the rest.
func fanout(src BlockSource, out [][]float32) {
	if len(out) == 0 {
		return
	}
	src.Process(out[0])
	for _, ch := range out[1:] {
		copy(ch, out[0])
	}
}

// Info describes the opened stream.
func (d *Device) Info() string {
	info := d.stream.Info()
	return fmt.Sprintf("%s, %d channels, %.0f Hz, latency %s",
		pa.VersionText(), d.channels, info.SampleRate, info.OutputLatency)
}

// Run plays until ctx is canceled, then stops the stream.
func (d *Device) Run(ctx context.Context) error {
	if err := d.stream.Start(); err != nil {
		return fmt.Errorf("portaudio: start: %w", err)
	}
	<-ctx.Done()
	if err := d.stream.Stop(); err != nil {
		return fmt.Errorf("portaudio: stop: %w", err)
	}
	return nil
}

// Close releases the stream and terminates PortAudio.
func (d *Device) Close() error {
	err := d.stream.Close()
	if terr := pa.Terminate(); err == nil {
		err = terr
	}
	return err
}
