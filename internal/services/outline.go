package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"coursegen-backend/internal/models"
)

// GenerationInput carries everything the model needs to draft an outline.
type GenerationInput struct {
	VideoTitle       string
	VideoDescription string
	ChannelName      string
	VideoDuration    string // clock format, e.g. "1:02:03"
	Transcript       string
	Segments         []models.TranscriptSegment
	PlaylistTitle    string
	Language         string
}

// OutlineGenerator streams successive, increasingly complete partial
// outlines. The concrete implementation is chosen by configuration.
type OutlineGenerator interface {
	StreamOutline(ctx context.Context, input GenerationInput) (*OutlineStream, error)
}

// OutlineStream exposes the partial channel and the final result. Partials()
// closes when generation finishes; Wait() then returns the validated outline
// or the terminal error. No retries happen at this layer.
type OutlineStream struct {
	partials chan models.PartialCourseOutline
	done     chan struct{}
	final    models.CourseOutline
	err      error
}

func newOutlineStream() *OutlineStream {
	return &OutlineStream{
		partials: make(chan models.PartialCourseOutline, 16),
		done:     make(chan struct{}),
	}
}

func (s *OutlineStream) Partials() <-chan models.PartialCourseOutline { return s.partials }

func (s *OutlineStream) Wait() (models.CourseOutline, error) {
	<-s.done
	return s.final, s.err
}

func (s *OutlineStream) finish(outline models.CourseOutline, err error) {
	s.final = outline
	s.err = err
	close(s.partials)
	close(s.done)
}

// GeminiOutlineGenerator drives Gemini in JSON mode and decodes the growing
// response buffer into partial outlines as chunks arrive.
type GeminiOutlineGenerator struct {
	client *genai.Client
	model  *genai.GenerativeModel
}

func NewGeminiOutlineGenerator(ctx context.Context, apiKey, modelName string) (*GeminiOutlineGenerator, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	model := client.GenerativeModel(modelName)
	model.SetTemperature(0.3)
	model.SetTopP(0.95)
	model.ResponseMIMEType = "application/json"

	return &GeminiOutlineGenerator{client: client, model: model}, nil
}

func (g *GeminiOutlineGenerator) Close() {
	g.client.Close()
}

func (g *GeminiOutlineGenerator) StreamOutline(ctx context.Context, input GenerationInput) (*OutlineStream, error) {
	prompt := buildOutlinePrompt(input)
	stream := newOutlineStream()

	go func() {
		var acc strings.Builder
		iter := g.model.GenerateContentStream(ctx, genai.Text(prompt))

		for {
			resp, err := iter.Next()
			if err == iterator.Done {
				break
			}
			if err != nil {
				stream.finish(models.CourseOutline{}, fmt.Errorf("Gemini API error: %w", err))
				return
			}

			acc.WriteString(extractText(resp))

			// Best effort: a chunk boundary rarely lands on valid JSON, so
			// repair the buffer before decoding. A chunk that still does not
			// decode is simply skipped.
			partial, ok := decodePartialOutline(acc.String())
			if !ok {
				continue
			}

			select {
			case stream.partials <- partial:
			case <-ctx.Done():
				stream.finish(models.CourseOutline{}, ctx.Err())
				return
			}
		}

		outline, err := decodeFinalOutline(acc.String())
		stream.finish(outline, err)
	}()

	return stream, nil
}

func extractText(resp *genai.GenerateContentResponse) string {
	var text strings.Builder
	for _, cand := range resp.Candidates {
		if cand.Content != nil {
			for _, part := range cand.Content.Parts {
				if t, ok := part.(genai.Text); ok {
					text.WriteString(string(t))
				}
			}
		}
	}
	return text.String()
}

// decodePartialOutline repairs a truncated JSON buffer and decodes it into
// the optional-everything outline shape.
func decodePartialOutline(raw string) (models.PartialCourseOutline, bool) {
	repaired, ok := repairPartialJSON(raw)
	if !ok {
		return models.PartialCourseOutline{}, false
	}

	var partial models.PartialCourseOutline
	if err := json.Unmarshal([]byte(repaired), &partial); err != nil {
		return models.PartialCourseOutline{}, false
	}
	return partial, true
}

// repairPartialJSON closes whatever the truncation left open: an unfinished
// string, a dangling key, a trailing comma, then the bracket stack.
func repairPartialJSON(raw string) (string, bool) {
	s := stripCodeFences(raw)
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", false
	}
	s = s[start:]

	var stack []byte
	inString, escaped := false, false

	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{', '[':
			stack = append(stack, c)
		case '}':
			if len(stack) == 0 || stack[len(stack)-1] != '{' {
				return "", false
			}
			stack = stack[:len(stack)-1]
		case ']':
			if len(stack) == 0 || stack[len(stack)-1] != '[' {
				return "", false
			}
			stack = stack[:len(stack)-1]
		}
	}

	if inString {
		if escaped {
			s += "\\"
		}
		s += `"`
	}

	s = strings.TrimRight(s, " \t\r\n")
	switch {
	case strings.HasSuffix(s, ","):
		s = strings.TrimRight(s[:len(s)-1], " \t\r\n")
	case strings.HasSuffix(s, ":"):
		s += "null"
	}

	for i := len(stack) - 1; i >= 0; i-- {
		if stack[i] == '{' {
			s += "}"
		} else {
			s += "]"
		}
	}

	return s, true
}

// decodeFinalOutline strictly decodes the completed response. The outline
// must be a non-array JSON object; structural validation happens here so a
// broken response never resolves as success.
func decodeFinalOutline(raw string) (models.CourseOutline, error) {
	s := strings.TrimSpace(stripCodeFences(raw))

	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start < 0 || end <= start {
		if strings.HasPrefix(s, "[") {
			return models.CourseOutline{}, ErrOutlineInvalid
		}
		return models.CourseOutline{}, fmt.Errorf("%w: no JSON object in response", ErrOutlineInvalid)
	}
	if arr := strings.IndexByte(s, '['); arr >= 0 && arr < start {
		return models.CourseOutline{}, ErrOutlineInvalid
	}

	var outline models.CourseOutline
	if err := json.Unmarshal([]byte(s[start:end+1]), &outline); err != nil {
		return models.CourseOutline{}, fmt.Errorf("%w: %v", ErrOutlineInvalid, err)
	}

	if err := ValidateOutline(outline); err != nil {
		return models.CourseOutline{}, err
	}
	return outline, nil
}

func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

func buildOutlinePrompt(input GenerationInput) string {
	var b strings.Builder

	b.WriteString("You are an expert curriculum designer. Convert the following video into a structured online course.\n\n")
	b.WriteString("CRITICAL: Return ONLY a valid JSON object. No preamble, no markdown, no backticks.\n\n")

	b.WriteString(`JSON schema:
{
  "title": "string",
  "description": "string (2-3 sentences)",
  "detailedOverview": "string (several paragraphs)",
  "category": "string",
  "difficulty": "beginner"|"intermediate"|"advanced",
  "learningObjectives": ["string"],
  "prerequisites": ["string"],
  "targetAudience": ["string"],
  "estimatedDuration": "string, e.g. '3 hours'",
  "tags": ["string"],
  "resources": [{"title": "string", "url": "string", "type": "video"|"article"|"book"|"tool"|"documentation"|"course", "description": "string", "category": "string"}],
  "modules": [{"title": "string", "description": "string", "lessons": [{"title": "string", "description": "string", "content": "string", "durationMinutes": int, "timestampStart": "M:SS or H:MM:SS", "timestampEnd": "M:SS or H:MM:SS", "keyPoints": ["string"]}]}]
}

Rules:
- modules must be non-empty; split the video into 3-8 coherent modules.
- Every lesson maps to a contiguous span of the video; timestampStart and
  timestampEnd are clock strings within the video duration, never seconds
  and never fractional.
- lesson content is a readable study text derived from the transcript, not a
  copy of it.
`)

	if input.Language != "" && input.Language != "en" {
		fmt.Fprintf(&b, "- Respond entirely in %s.\n", input.Language)
	}

	b.WriteString("\n---VIDEO---\n")
	fmt.Fprintf(&b, "Title: %s\n", input.VideoTitle)
	fmt.Fprintf(&b, "Channel: %s\n", input.ChannelName)
	fmt.Fprintf(&b, "Duration: %s\n", input.VideoDuration)
	if input.PlaylistTitle != "" {
		fmt.Fprintf(&b, "Part of playlist: %s\n", input.PlaylistTitle)
	}
	if input.VideoDescription != "" {
		fmt.Fprintf(&b, "Description: %s\n", truncate(input.VideoDescription, 2000))
	}

	b.WriteString("\n---TRANSCRIPT START---\n")
	if len(input.Segments) > 0 && segmentsHaveTimings(input.Segments) {
		for _, seg := range input.Segments {
			fmt.Fprintf(&b, "[%s] %s\n", FormatClock(int(seg.Offset)), seg.Text)
		}
	} else {
		b.WriteString(input.Transcript)
		b.WriteString("\n")
	}
	b.WriteString("---TRANSCRIPT END---\n")

	return b.String()
}

func segmentsHaveTimings(segments []models.TranscriptSegment) bool {
	for _, seg := range segments {
		if seg.Offset > 0 || seg.Duration > 0 {
			return true
		}
	}
	return false
}

// truncate cuts on a rune boundary; the prompt must stay valid UTF-8 all the
// way into the wire encoding.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
