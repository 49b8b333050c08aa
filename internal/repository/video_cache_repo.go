package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"coursegen-backend/internal/models"
)

// VideoCacheRepo stores fetched video metadata keyed by video id. Records
// never expire; metadata drift (view counts, titles) is acceptable staleness.
type VideoCacheRepo struct {
	pool *pgxpool.Pool
}

func NewVideoCacheRepo(pool *pgxpool.Pool) *VideoCacheRepo {
	return &VideoCacheRepo{pool: pool}
}

func (r *VideoCacheRepo) Get(ctx context.Context, videoID string) (*models.VideoMetadata, error) {
	meta := &models.VideoMetadata{}
	err := r.pool.QueryRow(ctx, `
		SELECT video_id, title, description, channel_name, channel_avatar_url, thumbnail_url,
			duration_seconds, views_formatted, likes_formatted, publish_date, has_transcript
		FROM video_cache WHERE video_id = $1`, videoID,
	).Scan(
		&meta.ID, &meta.Title, &meta.Description, &meta.ChannelName, &meta.ChannelAvatarURL,
		&meta.ThumbnailURL, &meta.DurationSeconds, &meta.ViewsFormatted, &meta.LikesFormatted,
		&meta.PublishDate, &meta.HasTranscript,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return meta, nil
}

func (r *VideoCacheRepo) Set(ctx context.Context, meta *models.VideoMetadata) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO video_cache (video_id, title, description, channel_name, channel_avatar_url,
			thumbnail_url, duration_seconds, views_formatted, likes_formatted, publish_date, has_transcript)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (video_id) DO UPDATE SET
			title = EXCLUDED.title,
			description = EXCLUDED.description,
			channel_name = EXCLUDED.channel_name,
			channel_avatar_url = EXCLUDED.channel_avatar_url,
			thumbnail_url = EXCLUDED.thumbnail_url,
			duration_seconds = EXCLUDED.duration_seconds,
			views_formatted = EXCLUDED.views_formatted,
			likes_formatted = EXCLUDED.likes_formatted,
			publish_date = EXCLUDED.publish_date,
			has_transcript = EXCLUDED.has_transcript,
			fetched_at = NOW()`,
		meta.ID, meta.Title, meta.Description, meta.ChannelName, meta.ChannelAvatarURL,
		meta.ThumbnailURL, meta.DurationSeconds, meta.ViewsFormatted, meta.LikesFormatted,
		meta.PublishDate, meta.HasTranscript,
	)
	return err
}
