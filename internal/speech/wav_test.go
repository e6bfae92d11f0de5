package speech

import (
	"encoding/binary"
	"strings"
	"testing"
	"time"

	"github.com/hammamikhairi/gridvoice/internal/domain"
)

func TestWAVRoundTrip(t *testing.T) {
	in := domain.Audio{Samples: []int16{0, 1000, -1000, 32767, -32768}, SampleRate: 24000}
	out, err := DecodeWAV(EncodeWAV(in))
	if err != nil {
		t.Fatalf("DecodeWAV: %v", err)
	}
	if out.SampleRate != in.SampleRate || len(out.Samples) != len(in.Samples) {
		t.Fatalf("expected %d samples @%d, got %d @%d", len(in.Samples), in.SampleRate, len(out.Samples), out.SampleRate)
	}
	for i := range in.Samples {
		if in.Samples[i] != out.Samples[i] {
			t.Fatalf("sample %d: expected %d, got %d", i, in.Samples[i], out.Samples[i])
		}
	}
}

func TestDecodeWAVMixesStereo(t *testing.T) {
	wav := EncodeWAV(domain.Audio{Samples: []int16{100, 300, -50, 50}, SampleRate: 8000})
	// Rewrite the header as 2 channels at 8000 Hz.
	binary.LittleEndian.PutUint16(wav[22:], 2)
	binary.LittleEndian.PutUint16(wav[32:], 4)

	out, err := DecodeWAV(wav)
	if err != nil {
		t.Fatalf("DecodeWAV: %v", err)
	}
	if len(out.Samples) != 2 || out.Samples[0] != 200 || out.Samples[1] != 0 {
		t.Fatalf("expected [200 0], got %v", out.Samples)
	}
}

func TestDecodeWAVRejectsGarbage(t *testing.T) {
	for _, in := range [][]byte{nil, []byte("RIFF"), make([]byte, 64)} {
		if _, err := DecodeWAV(in); err == nil {
			t.Fatalf("expected error for %d bytes of garbage", len(in))
		}
	}
}

func TestToneAndResample(t *testing.T) {
	tone := Tone(FallbackFrequency, FallbackDuration, SampleRate)
	if tone.Duration() != FallbackDuration {
		t.Fatalf("expected %s tone, got %s", FallbackDuration, tone.Duration())
	}

	r := Resample(tone, 48000)
	if r.SampleRate != 48000 || len(r.Samples) != 2*len(tone.Samples) {
		t.Fatalf("expected doubled sample count, got %d @%d", len(r.Samples), r.SampleRate)
	}
	if d := r.Duration(); d < FallbackDuration-time.Millisecond || d > FallbackDuration+time.Millisecond {
		t.Fatalf("resampling changed duration: %s", d)
	}
}

func TestLanguageTag(t *testing.T) {
	tests := map[string]string{"ko": "ko-KR", "pt": "pt-BR", "xx": "en-US", "": "en-US"}
	for code, want := range tests {
		if got := LanguageTag(code); got != want {
			t.Errorf("LanguageTag(%q) = %q, want %q", code, got, want)
		}
	}
}

func TestBuildSSMLEscapes(t *testing.T) {
	ssml, err := buildSSML(`a < b & "c"`, "en-US", DefaultVoice)
	if err != nil {
		t.Fatalf("buildSSML: %v", err)
	}
	for _, bad := range []string{"a < b", "& \""} {
		if strings.Contains(ssml, bad) {
			t.Fatalf("text not escaped in %s", ssml)
		}
	}
}

func TestBuildSSMLEscapesVoice(t *testing.T) {
	ssml, err := buildSSML("hi", "en-US", `x' onload='<y>`)
	if err != nil {
		t.Fatalf("buildSSML: %v", err)
	}
	if strings.Contains(ssml, "x' onload") || strings.Contains(ssml, "<y>") {
		t.Fatalf("voice not escaped in %s", ssml)
	}
	if !strings.Contains(ssml, "name='x&#39; onload=&#39;&lt;y&gt;'") {
		t.Fatalf("unexpected voice attribute in %s", ssml)
	}
}
