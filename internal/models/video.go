package models

type SourceKind string

const (
	SourceVideo    SourceKind = "video"
	SourcePlaylist SourceKind = "playlist"
)

// SourceID identifies the YouTube video or playlist a course is generated from.
// Video IDs are always 11-character opaque tokens.
type SourceID struct {
	Kind SourceKind `json:"kind"`
	ID   string     `json:"id"`
}

type VideoMetadata struct {
	ID               string `json:"id"`
	Title            string `json:"title"`
	Description      string `json:"description"`
	ChannelName      string `json:"channel_name"`
	ChannelAvatarURL string `json:"channel_avatar_url"`
	ThumbnailURL     string `json:"thumbnail_url"`
	DurationSeconds  int    `json:"duration_seconds"`
	ViewsFormatted   string `json:"views_formatted"`
	LikesFormatted   string `json:"likes_formatted"`
	PublishDate      string `json:"publish_date"`
	HasTranscript    bool   `json:"has_transcript"`
}

type PlaylistMetadata struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	ChannelName string `json:"channel_name"`
	ItemCount   int    `json:"item_count"`
}

type PlaylistData struct {
	Metadata PlaylistMetadata `json:"metadata"`
	Videos   []VideoMetadata  `json:"videos"`
}

// TranscriptSegment is one caption cue, ordered by video position.
// Offset and Duration are seconds.
type TranscriptSegment struct {
	Text     string  `json:"text"`
	Offset   float64 `json:"offset_seconds"`
	Duration float64 `json:"duration_seconds"`
}
