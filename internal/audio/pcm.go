package audio

import "math"

// DecodeS16LE converts little-endian 16-bit PCM bytes to float32 samples
// normalized to [-1.0, 1.0]. Divides by 32768 (not 32767) so the full int16
// range maps strictly inside [-1, 1]. A trailing odd byte is ignored.
func DecodeS16LE(data []byte) []float32 {
	n := len(data) / 2
	if n == 0 {
		return nil
	}
	samples := make([]float32, n)
	for i := 0; i < n; i++ {
		u := uint16(data[2*i]) | uint16(data[2*i+1])<<8
		samples[i] = float32(int16(u)) / 32768.0
	}
	return samples
}

// EncodeS16LE converts normalized float32 samples back to little-endian
// 16-bit PCM bytes. Values outside [-1, 1] are clipped.
func EncodeS16LE(samples []float32) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		if s > 1.0 {
			s = 1.0
		} else if s < -1.0 {
			s = -1.0
		}
		v := int16(s * 32767.0)
		out[2*i] = byte(v)
		out[2*i+1] = byte(uint16(v) >> 8)
	}
	return out
}

// RMSEnergy returns the root-mean-square energy of a frame of normalized
// samples. Empty frames have zero energy.
func RMSEnergy(samples []float32) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		sum += float64(s) * float64(s)
	}
	return math.Sqrt(sum / float64(len(samples)))
}
