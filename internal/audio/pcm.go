package audio

import (
	"encoding/binary"
	"fmt"
)

// DecodePCM16LE converts raw little-endian 16-bit mono PCM into float samples in [-1, 1]
func DecodePCM16LE(data []byte) ([]float32, error) {
	if len(data)%2 != 0 {
		return nil, fmt.Errorf("PCM data has odd length %d", len(data))
	}

	samples := make([]float32, len(data)/2)
	for i := range samples {
		v := int16(binary.LittleEndian.Uint16(data[i*2:]))
		samples[i] = float32(v) / maxSampleValue
	}
	return samples, nil
}

// EncodePCM16LE converts float samples into raw little-endian 16-bit PCM
func EncodePCM16LE(samples []float32) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(int16(floatToPCM16(s))))
	}
	return out
}
