package services

import (
	"context"
	"encoding/xml"
	"fmt"
	"html"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	ytapi "github.com/hightemp/youtube-transcript-api-go/api"
	yt "github.com/kkdai/youtube/v2"

	"coursegen-backend/internal/models"
)

// TranscriptCache is the short-lived per-process cache consulted before any
// caption fetch. Entries are idempotent derivations of upstream data, so
// concurrent writers racing on the same id are fine (last write wins).
type TranscriptCache interface {
	Get(ctx context.Context, videoID string) ([]models.TranscriptSegment, bool)
	Set(ctx context.Context, videoID string, segments []models.TranscriptSegment)
}

// TranscriptService retrieves caption segments for a video. The primary
// route discovers caption tracks through the player client and parses the
// track's timedtext XML; when that fails it falls back to the transcript API
// library, which yields text without timings.
type TranscriptService struct {
	ytClient      *yt.Client
	httpClient    *http.Client
	transcriptAPI *ytapi.YouTubeTranscriptApi
	cache         TranscriptCache
}

func NewTranscriptService(cache TranscriptCache) *TranscriptService {
	return &TranscriptService{
		ytClient:      &yt.Client{},
		httpClient:    &http.Client{Timeout: 30 * time.Second},
		transcriptAPI: ytapi.NewYouTubeTranscriptApi(),
		cache:         cache,
	}
}

// Fetch returns the ordered caption segments for a video. When language is
// non-empty the matching track is required; otherwise the first track wins.
func (s *TranscriptService) Fetch(ctx context.Context, videoID, language string) ([]models.TranscriptSegment, error) {
	if s.cache != nil {
		if segments, ok := s.cache.Get(ctx, videoID); ok {
			return segments, nil
		}
	}

	segments, err := s.fetchFromCaptionTracks(ctx, videoID, language)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		log.Printf("caption track fetch failed for %s, trying transcript API: %v", videoID, err)
		segments, err = s.fetchFromTranscriptAPI(videoID, language)
		if err != nil {
			return nil, err
		}
	}

	if s.cache != nil {
		s.cache.Set(ctx, videoID, segments)
	}
	return segments, nil
}

func (s *TranscriptService) fetchFromCaptionTracks(ctx context.Context, videoID, language string) ([]models.TranscriptSegment, error) {
	video, err := s.ytClient.GetVideoContext(ctx, videoID)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to load player data for %s: %v", ErrTranscriptFetch, videoID, err)
	}

	track, err := selectCaptionTrack(video.CaptionTracks, language)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, track.BaseURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTranscriptFetch, err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: caption download failed: %v", ErrTranscriptFetch, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: caption download returned %d", ErrTranscriptFetch, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTranscriptFetch, err)
	}

	segments, err := parseCaptionXML(body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTranscriptFetch, err)
	}
	return segments, nil
}

// selectCaptionTrack picks the track matching the requested language by code
// or display name, or the first track when no language is requested.
func selectCaptionTrack(tracks []yt.CaptionTrack, language string) (*yt.CaptionTrack, error) {
	if len(tracks) == 0 {
		return nil, ErrNoCaptions
	}

	if language == "" {
		return &tracks[0], nil
	}

	for i := range tracks {
		t := &tracks[i]
		if strings.EqualFold(t.LanguageCode, language) ||
			strings.HasPrefix(strings.ToLower(t.LanguageCode), strings.ToLower(language)+"-") ||
			strings.EqualFold(t.Name.SimpleText, language) {
			return t, nil
		}
	}

	return nil, fmt.Errorf("%w: no %q caption track", ErrNoCaptions, language)
}

type captionXML struct {
	XMLName xml.Name
	Texts   []captionNode `xml:"text"`
	Body    struct {
		Paragraphs []captionNode `xml:"p"`
	} `xml:"body"`
}

type captionNode struct {
	Start   string `xml:"start,attr"`
	Dur     string `xml:"dur,attr"`
	TMillis string `xml:"t,attr"`
	DMillis string `xml:"d,attr"`
	Text    string `xml:",chardata"`
}

// parseCaptionXML handles both timedtext flavors: <text start dur> with
// second-scale floats and <p t d> with millisecond integers.
func parseCaptionXML(data []byte) ([]models.TranscriptSegment, error) {
	var doc captionXML
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("invalid caption XML: %w", err)
	}

	nodes := doc.Texts
	if len(nodes) == 0 {
		nodes = doc.Body.Paragraphs
	}

	var segments []models.TranscriptSegment
	for _, n := range nodes {
		text := strings.TrimSpace(html.UnescapeString(n.Text))
		if text == "" {
			continue
		}

		seg := models.TranscriptSegment{Text: text}
		if n.Start != "" || n.Dur != "" {
			seg.Offset, _ = strconv.ParseFloat(n.Start, 64)
			seg.Duration, _ = strconv.ParseFloat(n.Dur, 64)
		} else {
			t, _ := strconv.ParseFloat(n.TMillis, 64)
			d, _ := strconv.ParseFloat(n.DMillis, 64)
			seg.Offset = t / 1000
			seg.Duration = d / 1000
		}
		segments = append(segments, seg)
	}

	if len(segments) == 0 {
		return nil, fmt.Errorf("caption document is empty")
	}
	return segments, nil
}

// fetchFromTranscriptAPI is the degraded path: segment text without timings.
func (s *TranscriptService) fetchFromTranscriptAPI(videoID, language string) ([]models.TranscriptSegment, error) {
	languages := []string{"en", "en-US", "en-GB"}
	if language != "" {
		languages = []string{language}
	}

	transcript, err := s.transcriptAPI.GetTranscript(videoID, languages)
	if err != nil {
		transcript, err = s.transcriptAPI.GetTranscript(videoID, nil)
		if err != nil {
			return nil, fmt.Errorf("%w: transcript API: %v", ErrNoCaptions, err)
		}
	}

	var segments []models.TranscriptSegment
	for _, entry := range transcript.Entries {
		text := strings.TrimSpace(entry.Text)
		if text == "" {
			continue
		}
		segments = append(segments, models.TranscriptSegment{Text: text})
	}

	if len(segments) == 0 {
		return nil, fmt.Errorf("%w: transcript resolved to empty content", ErrNoCaptions)
	}
	return segments, nil
}

// JoinTranscript flattens segments into the single prompt string the outline
// generator consumes.
func JoinTranscript(segments []models.TranscriptSegment) string {
	var b strings.Builder
	for _, seg := range segments {
		if seg.Text == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteString(" ")
		}
		b.WriteString(seg.Text)
	}
	return b.String()
}
