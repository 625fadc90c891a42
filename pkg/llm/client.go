// Package llm wraps the OpenAI API for the strictly-JSON-producing calls
// used by enrichment, vision, STT, and TTS. Model text never reaches a
// contract field without going through ExtractJSON and caller coercion.
package llm

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"regexp"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// ErrParseFailure marks model output that did not contain usable JSON.
var ErrParseFailure = errors.New("llm output parse failure")

// ErrNotConfigured is returned when no API key is configured; callers fall
// back to their mock/placeholder results.
var ErrNotConfigured = errors.New("llm client not configured")

// Client is the shared OpenAI client. A nil Client (no API key) is valid;
// every method then returns ErrNotConfigured.
type Client struct {
	api openai.Client
}

// New returns a client, or nil when apiKey is empty.
func New(apiKey string) *Client {
	if apiKey == "" {
		return nil
	}
	return &Client{api: openai.NewClient(option.WithAPIKey(apiKey))}
}

// ChatJSON runs one chat completion and returns the first JSON object in
// the reply.
func (c *Client) ChatJSON(ctx context.Context, model, system, user string) ([]byte, error) {
	if c == nil {
		return nil, ErrNotConfigured
	}
	resp, err := c.api.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(user),
		},
		Temperature: openai.Float(0.2),
	})
	if err != nil {
		return nil, fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%w: empty choices", ErrParseFailure)
	}
	return ExtractJSON(resp.Choices[0].Message.Content)
}

// ChatVisionJSON runs one chat completion with an attached image and
// returns the first JSON object in the reply. imageRef is a data URL or an
// http(s) URL, passed through unchanged.
func (c *Client) ChatVisionJSON(ctx context.Context, model, system, userText, imageRef string) ([]byte, error) {
	if c == nil {
		return nil, ErrNotConfigured
	}
	parts := []openai.ChatCompletionContentPartUnionParam{
		openai.TextContentPart(userText),
		openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{URL: imageRef}),
	}
	resp, err := c.api.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(parts),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("vision completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%w: empty choices", ErrParseFailure)
	}
	return ExtractJSON(resp.Choices[0].Message.Content)
}

// Transcribe sends audio bytes to the STT API. format is a file extension
// hint (mp3, wav, ...); language may be empty.
func (c *Client) Transcribe(ctx context.Context, model string, audio []byte, format, language string) (string, error) {
	if c == nil {
		return "", ErrNotConfigured
	}
	params := openai.AudioTranscriptionNewParams{
		Model: openai.AudioModel(model),
		File:  openai.File(bytes.NewReader(audio), "audio."+format, "audio/"+format),
	}
	if language != "" {
		params.Language = openai.String(language)
	}
	resp, err := c.api.Audio.Transcriptions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("transcription: %w", err)
	}
	return resp.Text, nil
}

// Speak synthesizes speech and returns the raw audio bytes.
func (c *Client) Speak(ctx context.Context, model, text, voice, format string, speed float64) ([]byte, error) {
	if c == nil {
		return nil, ErrNotConfigured
	}
	resp, err := c.api.Audio.Speech.New(ctx, openai.AudioSpeechNewParams{
		Model:          openai.SpeechModel(model),
		Input:          text,
		Voice:          openai.AudioSpeechNewParamsVoice(voice),
		ResponseFormat: openai.AudioSpeechNewParamsResponseFormat(format),
		Speed:          openai.Float(speed),
	})
	if err != nil {
		return nil, fmt.Errorf("speech synthesis: %w", err)
	}
	defer resp.Body.Close()
	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read speech body: %w", err)
	}
	return audio, nil
}

var jsonFence = regexp.MustCompile("```(?:json)?\\s*([\\s\\S]*?)```")

// ExtractJSON finds the first {...} block in model output, tolerating
// markdown fences and surrounding prose. It returns ErrParseFailure when
// no object can be located; callers validate the content themselves.
func ExtractJSON(text string) ([]byte, error) {
	s := text
	if m := jsonFence.FindStringSubmatch(s); m != nil {
		s = m[1]
	}
	start := -1
	depth := 0
	inString := false
	escaped := false
	for i := 0; i < len(s); i++ {
		ch := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			if depth > 0 {
				inString = true
			}
		case '{':
			if depth == 0 {
				start = i
			}
			depth++
		case '}':
			if depth > 0 {
				depth--
				if depth == 0 {
					return []byte(s[start : i+1]), nil
				}
			}
		}
	}
	return nil, fmt.Errorf("%w: no JSON object found", ErrParseFailure)
}
