package services

import (
	"fmt"
	"regexp"

	"coursegen-backend/internal/models"
)

// Playlist ids are matched first: a watch URL can carry both v= and list=,
// and the playlist wins in that case.
var (
	playlistIDRegex = regexp.MustCompile(`(?:[?&]list=|playlist\?list=)([A-Za-z0-9_-]{12,})`)
	videoIDRegex    = regexp.MustCompile(`(?:youtube\.com/(?:watch\?(?:[^"&\s]*&)*v=|embed/|shorts/|v/)|youtu\.be/)([\w-]{11})`)
	bareVideoID     = regexp.MustCompile(`^[\w-]{11}$`)
)

// ResolveSourceURL parses a raw user-supplied string into a video or playlist
// identifier. Pure string matching, no network access.
func ResolveSourceURL(raw string) (models.SourceID, error) {
	if m := playlistIDRegex.FindStringSubmatch(raw); len(m) > 1 {
		return models.SourceID{Kind: models.SourcePlaylist, ID: m[1]}, nil
	}

	if m := videoIDRegex.FindStringSubmatch(raw); len(m) > 1 {
		return models.SourceID{Kind: models.SourceVideo, ID: m[1]}, nil
	}

	// Accept a bare 11-character video id pasted without a URL.
	if bareVideoID.MatchString(raw) {
		return models.SourceID{Kind: models.SourceVideo, ID: raw}, nil
	}

	return models.SourceID{}, fmt.Errorf("%w: %q", ErrInvalidURL, raw)
}
