package speech

import (
	"math"
	"time"

	"github.com/hammamikhairi/gridvoice/internal/domain"
)

// Tone renders a full-scale sine wave.
func Tone(freq float64, d time.Duration, rate int) domain.Audio {
	n := int(d.Seconds() * float64(rate))
	samples := make([]int16, n)
	for i := range samples {
		samples[i] = int16(32767 * math.Sin(2*math.Pi*freq*float64(i)/float64(rate)))
	}
	return domain.Audio{Samples: samples, SampleRate: rate}
}

// Resample converts a clip to the target rate by linear interpolation.
func Resample(a domain.Audio, rate int) domain.Audio {
	if a.SampleRate == rate || a.SampleRate <= 0 || rate <= 0 || len(a.Samples) == 0 {
		return a
	}

	n := int(int64(len(a.Samples)) * int64(rate) / int64(a.SampleRate))
	out := make([]int16, n)
	step := float64(a.SampleRate) / float64(rate)
	last := len(a.Samples) - 1
	for i := range out {
		pos := float64(i) * step
		j := int(pos)
		if j >= last {
			out[i] = a.Samples[last]
			continue
		}
		frac := pos - float64(j)
		out[i] = int16(float64(a.Samples[j])*(1-frac) + float64(a.Samples[j+1])*frac)
	}
	return domain.Audio{Samples: out, SampleRate: rate}
}
