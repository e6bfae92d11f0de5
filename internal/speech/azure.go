package speech

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hammamikhairi/gridvoice/internal/domain"
	"github.com/hammamikhairi/gridvoice/internal/logger"
)

// Compile-time interface check.
var _ domain.Synthesizer = (*AzureClient)(nil)

// AzureOption configures the Azure TTS client.
type AzureOption func(*AzureClient)

// WithDefaultVoice sets the voice used when a request names none.
func WithDefaultVoice(voice string) AzureOption {
	return func(c *AzureClient) {
		c.voice = voice
	}
}

// WithAudioFormat sets the audio output format.
func WithAudioFormat(format string) AzureOption {
	return func(c *AzureClient) {
		c.format = format
	}
}

// WithHTTPTimeout sets the HTTP client timeout for TTS requests.
func WithHTTPTimeout(d time.Duration) AzureOption {
	return func(c *AzureClient) {
		c.httpClient.Timeout = d
	}
}

// WithEndpoint overrides the synthesis URL (tests, sovereign clouds).
func WithEndpoint(url string) AzureOption {
	return func(c *AzureClient) {
		c.endpoint = url
	}
}

// AzureClient handles text-to-speech synthesis via Azure Cognitive Services.
type AzureClient struct {
	subscriptionKey string
	endpoint        string
	voice           string
	format          string
	httpClient      *http.Client
	log             *logger.Logger
}

// NewAzureClient creates an Azure TTS client with the given credentials.
func NewAzureClient(key, region string, log *logger.Logger, opts ...AzureOption) *AzureClient {
	c := &AzureClient{
		subscriptionKey: key,
		endpoint:        fmt.Sprintf("https://%s.tts.speech.microsoft.com/cognitiveservices/v1", region),
		voice:           DefaultVoice,
		format:          DefaultAudioFormat,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		log: log,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Synthesize converts text to speech in the given language and voice.
func (c *AzureClient) Synthesize(ctx context.Context, text, language, voice string) (domain.Audio, error) {
	if voice == "" {
		voice = c.voice
	}
	ssml, err := buildSSML(text, LanguageTag(language), voice)
	if err != nil {
		return domain.Audio{}, err
	}
	c.log.Debug("azure tts: synthesizing %d chars with voice %s (%s)", len(text), voice, language)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, strings.NewReader(ssml))
	if err != nil {
		return domain.Audio{}, fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("Ocp-Apim-Subscription-Key", c.subscriptionKey)
	req.Header.Set("Content-Type", "application/ssml+xml")
	req.Header.Set("X-Microsoft-OutputFormat", c.format)
	req.Header.Set("User-Agent", "GridVoice/1.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.Audio{}, fmt.Errorf("tts request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return domain.Audio{}, fmt.Errorf("azure tts error %d: %s", resp.StatusCode, string(body))
	}

	wav, err := io.ReadAll(resp.Body)
	if err != nil {
		return domain.Audio{}, fmt.Errorf("reading audio data: %w", err)
	}

	audio, err := DecodeWAV(wav)
	if err != nil {
		return domain.Audio{}, fmt.Errorf("decoding azure audio: %w", err)
	}
	c.log.Debug("azure tts: got %s of audio", audio.Duration())
	return audio, nil
}

// buildSSML creates SSML markup for the synthesis request.
func buildSSML(text, lang, voice string) (string, error) {
	escText, err := escapeXML(text)
	if err != nil {
		return "", fmt.Errorf("escaping text: %w", err)
	}
	escVoice, err := escapeXML(voice)
	if err != nil {
		return "", fmt.Errorf("escaping voice: %w", err)
	}
	return fmt.Sprintf(
		`<speak version='1.0' xml:lang='%s'><voice xml:lang='%s' name='%s'><lang xml:lang='%s'>%s</lang></voice></speak>`,
		lang, lang, escVoice, lang, escText,
	), nil
}

func escapeXML(s string) (string, error) {
	var b bytes.Buffer
	if err := xml.EscapeText(&b, []byte(s)); err != nil {
		return "", err
	}
	return b.String(), nil
}
