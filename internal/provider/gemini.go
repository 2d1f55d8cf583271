package provider

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

const (
	defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

	// DefaultModel is used when no model id is configured.
	DefaultModel = "gemini-2.0-flash-exp"
)

const systemInstructionTemplate = `You are an English Tutor for a student with CEFR level %s.
Adjust your vocabulary to match level %s.
Keep responses concise and helpful.`

const feedbackPromptTemplate = `Analyze this english conversation for a student at level %s.
Point out 3 major mistakes (grammar/vocabulary) and suggest corrections.
Be encouraging.

Conversation:
%s`

// audioCompanionText accompanies the inline audio part in audio turns.
const audioCompanionText = "Respond to this audio."

// KeySource yields the API key at call time. The latest saved credential is
// always used; there is no per-session snapshot.
type KeySource interface {
	Get() string
}

// Gemini calls the generative-language generateContent endpoint for live
// replies and end-of-session feedback.
type Gemini struct {
	HTTPClient *http.Client
	BaseURL    string
	Model      string
	Keys       KeySource
}

func NewGemini(keys KeySource, model string) *Gemini {
	if model == "" {
		model = DefaultModel
	}
	return &Gemini{
		// No client timeout: a hung call stays pending until it resolves or
		// the caller's context ends.
		HTTPClient: &http.Client{},
		BaseURL:    defaultBaseURL,
		Model:      model,
		Keys:       keys,
	}
}

type geminiRequest struct {
	Contents          []geminiContent `json:"contents"`
	SystemInstruction *geminiContent  `json:"system_instruction,omitempty"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text       string      `json:"text,omitempty"`
	InlineData *geminiBlob `json:"inline_data,omitempty"`
}

type geminiBlob struct {
	MIMEType string `json:"mime_type"`
	Data     string `json:"data"` // base64 encoded
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// Generate requests one tutor reply for the given turn. Audio turns carry the
// payload as an inline data part; the system instruction steers vocabulary to
// the student's level.
func (g *Gemini) Generate(ctx context.Context, level Level, input TurnInput) (string, error) {
	var parts []geminiPart
	switch {
	case input.Audio != nil:
		parts = append(parts,
			geminiPart{InlineData: &geminiBlob{
				MIMEType: input.Audio.MIMEType,
				Data:     base64.StdEncoding.EncodeToString(input.Audio.Data),
			}},
			geminiPart{Text: audioCompanionText},
		)
	case input.Text != "":
		parts = append(parts, geminiPart{Text: input.Text})
	default:
		return "", errors.New("gemini: empty turn input")
	}
	return g.generate(ctx, systemInstruction(level), parts)
}

// Feedback analyzes a finished conversation rendered as "sender: text" lines.
// Same transport and failure behavior as Generate, different prompt.
func (g *Gemini) Feedback(ctx context.Context, level Level, conversation string) (string, error) {
	prompt := fmt.Sprintf(feedbackPromptTemplate, level, conversation)
	return g.generate(ctx, systemInstruction(level), []geminiPart{{Text: prompt}})
}

func systemInstruction(level Level) string {
	return fmt.Sprintf(systemInstructionTemplate, level, level)
}

func (g *Gemini) generate(ctx context.Context, instruction string, parts []geminiPart) (string, error) {
	key := g.Keys.Get()
	if key == "" {
		return "", errors.New("gemini: api key missing")
	}

	endpoint := g.BaseURL + "/models/" + g.Model + ":generateContent?key=" + url.QueryEscape(key)
	payload := geminiRequest{
		Contents:          []geminiContent{{Parts: parts}},
		SystemInstruction: &geminiContent{Parts: []geminiPart{{Text: instruction}}},
	}
	reqBody, _ := json.Marshal(payload)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(reqBody))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.HTTPClient.Do(req)
	if err != nil {
		return "", &Error{Kind: KindNetwork, Message: "request failed", Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return "", &Error{Kind: KindNetwork, Message: fmt.Sprintf("status=%d body=%s", resp.StatusCode, string(b))}
	}

	var gr geminiResponse
	if err := json.NewDecoder(resp.Body).Decode(&gr); err != nil {
		return "", &Error{Kind: KindMalformed, Message: "invalid json", Err: err}
	}
	if len(gr.Candidates) == 0 || len(gr.Candidates[0].Content.Parts) == 0 {
		return "", &Error{Kind: KindMalformed, Message: "no candidates"}
	}
	text := gr.Candidates[0].Content.Parts[0].Text
	if text == "" {
		return "", &Error{Kind: KindMalformed, Message: "empty text part"}
	}
	return strings.TrimSpace(text), nil
}
