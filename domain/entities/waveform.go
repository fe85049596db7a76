package entities

// Waveform is one synthesized audio array. Shape describes how Samples is laid out,
// e.g. [N] for a flat array or [channels, N] for channel-first audio.
type Waveform struct {
	Samples []float32
	Shape   []int
}

// WaveformSet is the ordered output of a synthesizer
type WaveformSet []Waveform

// NewWaveform wraps a flat sample array with shape [N]
func NewWaveform(samples []float32) Waveform {
	return Waveform{
		Samples: samples,
		Shape:   []int{len(samples)},
	}
}

// NewWaveformWithShape wraps samples with an explicit layout
func NewWaveformWithShape(samples []float32, shape ...int) Waveform {
	s := make([]int, len(shape))
	copy(s, shape)
	return Waveform{Samples: samples, Shape: s}
}

// Rank is the number of axes in the waveform
func (w Waveform) Rank() int {
	return len(w.Shape)
}

// Size is the number of elements the shape describes
func (w Waveform) Size() int {
	if len(w.Shape) == 0 {
		return 0
	}
	n := 1
	for _, d := range w.Shape {
		n *= d
	}
	return n
}

// Frames is the length of the last axis
func (w Waveform) Frames() int {
	if len(w.Shape) == 0 {
		return 0
	}
	return w.Shape[len(w.Shape)-1]
}

// Unsqueeze returns a view of w with a new leading axis of size 1.
// Samples are shared, only the shape changes.
func (w Waveform) Unsqueeze() Waveform {
	shape := make([]int, 0, len(w.Shape)+1)
	shape = append(shape, 1)
	shape = append(shape, w.Shape...)
	return Waveform{Samples: w.Samples, Shape: shape}
}

// WriteStatus is the outcome of a single audio write attempt
type WriteStatus int

const (
	WriteOK WriteStatus = iota
	// WriteNeedsFallback means the writer rejected the waveform layout; nothing was written
	WriteNeedsFallback
	WriteFailed
)

func (s WriteStatus) String() string {
	switch s {
	case WriteOK:
		return "ok"
	case WriteNeedsFallback:
		return "needs_fallback"
	case WriteFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// WriteResult is returned by an audio writer instead of raising on layout problems
type WriteResult struct {
	Status WriteStatus
	Err    error
}
