// Package audio moves rendered blocks out of the process: to the default
// sound device through PortAudio, or to a writer as raw float32 samples
// or a WAV file for offline rendering.
package audio

// BlockSource fills out with the next block of mono samples.
// *live.Session is the production BlockSource.
type BlockSource interface {
	Process(out []float32)
}
