package services

import (
	"context"
	"fmt"
	"log"
	"regexp"
	"strconv"
	"strings"
	"time"

	"google.golang.org/api/option"
	youtubeapi "google.golang.org/api/youtube/v3"

	"coursegen-backend/internal/models"
)

// VideoCache is the persistent metadata cache consulted before any API call.
// A nil, nil return means miss.
type VideoCache interface {
	Get(ctx context.Context, videoID string) (*models.VideoMetadata, error)
	Set(ctx context.Context, meta *models.VideoMetadata) error
}

// VideoDataService fetches video and playlist metadata from the YouTube Data
// API v3, cache-first.
type VideoDataService struct {
	svc   *youtubeapi.Service
	cache VideoCache
}

func NewVideoDataService(ctx context.Context, apiKey string, cache VideoCache) (*VideoDataService, error) {
	svc, err := youtubeapi.NewService(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create YouTube Data API client: %w", err)
	}
	return &VideoDataService{svc: svc, cache: cache}, nil
}

// FetchVideo returns the cached record when present (a hit requires a
// non-empty title), otherwise calls the API and writes the cache through.
func (s *VideoDataService) FetchVideo(ctx context.Context, videoID string) (*models.VideoMetadata, error) {
	if s.cache != nil {
		cached, err := s.cache.Get(ctx, videoID)
		if err != nil {
			log.Printf("video cache lookup failed for %s: %v", videoID, err)
		} else if cached != nil && cached.Title != "" {
			return cached, nil
		}
	}

	resp, err := s.svc.Videos.List([]string{"snippet", "contentDetails", "statistics"}).
		Id(videoID).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("%w: videos.list for %s: %v", ErrSourceFetch, videoID, err)
	}
	if len(resp.Items) == 0 {
		return nil, fmt.Errorf("%w: video %s not found", ErrSourceFetch, videoID)
	}

	v := resp.Items[0]
	meta := &models.VideoMetadata{
		ID:              videoID,
		Title:           v.Snippet.Title,
		Description:     v.Snippet.Description,
		ChannelName:     v.Snippet.ChannelTitle,
		ThumbnailURL:    bestThumbnail(v.Snippet.Thumbnails),
		DurationSeconds: parseISODuration(v.ContentDetails.Duration),
		ViewsFormatted:  formatCount(v.Statistics.ViewCount),
		LikesFormatted:  formatCount(v.Statistics.LikeCount),
		PublishDate:     formatPublishDate(v.Snippet.PublishedAt),
		HasTranscript:   v.ContentDetails.Caption == "true",
	}

	// Second call: channel avatar.
	chResp, err := s.svc.Channels.List([]string{"snippet"}).
		Id(v.Snippet.ChannelId).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("%w: channels.list for %s: %v", ErrSourceFetch, v.Snippet.ChannelId, err)
	}
	if len(chResp.Items) > 0 {
		meta.ChannelAvatarURL = bestThumbnail(chResp.Items[0].Snippet.Thumbnails)
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, meta); err != nil {
			log.Printf("video cache write failed for %s: %v", videoID, err)
		}
	}

	return meta, nil
}

// FetchPlaylist returns the playlist's own metadata plus its member videos.
// Members are derived from playlist items; only the first video, which
// becomes the representative for transcript and outline generation, gets a
// full metadata fetch.
func (s *VideoDataService) FetchPlaylist(ctx context.Context, playlistID string) (*models.PlaylistData, error) {
	plResp, err := s.svc.Playlists.List([]string{"snippet", "contentDetails"}).
		Id(playlistID).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("%w: playlists.list for %s: %v", ErrSourceFetch, playlistID, err)
	}
	if len(plResp.Items) == 0 {
		return nil, fmt.Errorf("%w: playlist %s not found", ErrSourceFetch, playlistID)
	}

	pl := plResp.Items[0]
	data := &models.PlaylistData{
		Metadata: models.PlaylistMetadata{
			ID:          playlistID,
			Title:       pl.Snippet.Title,
			Description: pl.Snippet.Description,
			ChannelName: pl.Snippet.ChannelTitle,
			ItemCount:   int(pl.ContentDetails.ItemCount),
		},
	}

	itemsResp, err := s.svc.PlaylistItems.List([]string{"snippet", "contentDetails"}).
		PlaylistId(playlistID).MaxResults(50).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("%w: playlistItems.list for %s: %v", ErrSourceFetch, playlistID, err)
	}

	for _, item := range itemsResp.Items {
		videoID := item.ContentDetails.VideoId
		if videoID == "" {
			continue
		}
		if len(data.Videos) == 0 {
			full, err := s.FetchVideo(ctx, videoID)
			if err != nil {
				return nil, err
			}
			data.Videos = append(data.Videos, *full)
			continue
		}
		data.Videos = append(data.Videos, models.VideoMetadata{
			ID:           videoID,
			Title:        item.Snippet.Title,
			Description:  item.Snippet.Description,
			ChannelName:  item.Snippet.VideoOwnerChannelTitle,
			ThumbnailURL: bestThumbnail(item.Snippet.Thumbnails),
			PublishDate:  formatPublishDate(item.Snippet.PublishedAt),
		})
	}

	if len(data.Videos) == 0 {
		return nil, fmt.Errorf("%w: playlist %s has no videos", ErrSourceFetch, playlistID)
	}

	return data, nil
}

func bestThumbnail(t *youtubeapi.ThumbnailDetails) string {
	if t == nil {
		return ""
	}
	for _, th := range []*youtubeapi.Thumbnail{t.Maxres, t.High, t.Medium, t.Default} {
		if th != nil && th.Url != "" {
			return th.Url
		}
	}
	return ""
}

var isoDurationRegex = regexp.MustCompile(`^PT(?:(\d+)H)?(?:(\d+)M)?(?:(\d+)S)?$`)

// parseISODuration converts an ISO 8601 duration such as "PT1H2M3S" to
// seconds. Unparseable input yields 0.
func parseISODuration(iso string) int {
	m := isoDurationRegex.FindStringSubmatch(iso)
	if m == nil {
		return 0
	}
	h, _ := strconv.Atoi(m[1])
	min, _ := strconv.Atoi(m[2])
	s, _ := strconv.Atoi(m[3])
	return h*3600 + min*60 + s
}

// FormatClock renders seconds as M:SS, or H:MM:SS past the hour mark.
func FormatClock(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	h := seconds / 3600
	m := (seconds % 3600) / 60
	s := seconds % 60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}

// formatCount compacts large counts the way video platforms display them:
// 1234 → "1.2K", 4500000 → "4.5M".
func formatCount(n uint64) string {
	switch {
	case n >= 1_000_000_000:
		return trimTrailingZero(fmt.Sprintf("%.1fB", float64(n)/1e9))
	case n >= 1_000_000:
		return trimTrailingZero(fmt.Sprintf("%.1fM", float64(n)/1e6))
	case n >= 1_000:
		return trimTrailingZero(fmt.Sprintf("%.1fK", float64(n)/1e3))
	default:
		return strconv.FormatUint(n, 10)
	}
}

func trimTrailingZero(s string) string {
	return strings.Replace(s, ".0", "", 1)
}

func formatPublishDate(rfc3339 string) string {
	t, err := time.Parse(time.RFC3339, rfc3339)
	if err != nil {
		return rfc3339
	}
	return t.Format("2006-01-02")
}
