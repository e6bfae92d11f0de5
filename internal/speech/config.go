package speech

import "time"

// DefaultVoice is used when no voice is configured. The multilingual
// voice reads every supported language.
// Full list: https://learn.microsoft.com/en-us/azure/ai-services/speech-service/language-support
const DefaultVoice = "en-US-AvaMultilingualNeural"

// Audio format requested from Azure and expected by the player.
const DefaultAudioFormat = "riff-24khz-16bit-mono-pcm"

// Audio parameters matching the default format.
const (
	SampleRate   = 24000
	ChannelCount = 1
	BitDepth     = 16
)

// Env var names for Azure Speech credentials.
const (
	EnvAzureSpeechKey    = "AZURE_SPEECH_KEY"
	EnvAzureSpeechRegion = "AZURE_SPEECH_REGION"
)

// Fallback tone played when synthesis fails.
const (
	FallbackFrequency = 440.0
	FallbackDuration  = 500 * time.Millisecond
)

// Hourly chime.
const (
	ChimeFrequency = 1000.0
	ChimeDuration  = 200 * time.Millisecond
)

// xmlLang maps short language codes to SSML xml:lang tags.
var xmlLang = map[string]string{
	"ko": "ko-KR",
	"en": "en-US",
	"es": "es-ES",
	"pt": "pt-BR",
	"fr": "fr-FR",
}

// LanguageTag returns the SSML language tag for a short code, falling back
// to en-US.
func LanguageTag(code string) string {
	if tag, ok := xmlLang[code]; ok {
		return tag
	}
	return "en-US"
}
