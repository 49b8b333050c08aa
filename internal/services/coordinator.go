package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"

	"coursegen-backend/internal/models"
)

// EventSink receives generation events in order. The SSE handler implements
// it over the response writer; tests collect frames in a slice.
type EventSink interface {
	Send(ev models.GenerationEvent) error
}

// VideoSource, TranscriptSource and the stores below are the collaborators
// the coordinator drives. They are interfaces so tests can substitute fakes.

type VideoSource interface {
	FetchVideo(ctx context.Context, videoID string) (*models.VideoMetadata, error)
	// FetchPlaylist returns the playlist with at least one video on success.
	FetchPlaylist(ctx context.Context, playlistID string) (*models.PlaylistData, error)
}

type TranscriptSource interface {
	Fetch(ctx context.Context, videoID, language string) ([]models.TranscriptSegment, error)
}

type CourseStore interface {
	// GetBySource returns nil, nil when no course exists for the pair.
	GetBySource(ctx context.Context, sourceID string, userID uuid.UUID) (*models.Course, error)
	CreateAICourse(ctx context.Context, course *models.Course) (uuid.UUID, error)
}

type CreditStore interface {
	HasCredits(ctx context.Context, userID uuid.UUID, amount int) (bool, error)
	DeductCredits(ctx context.Context, userID uuid.UUID, amount int) error
}

// GenerationLock guards against two concurrent first-generations for the
// same (source, user) pair. Acquire returns false when someone else holds it.
type GenerationLock interface {
	Acquire(ctx context.Context, key string) (bool, error)
	Release(key string)
}

// ProgressPublisher mirrors events to out-of-band consumers (the WebSocket
// fan-out). Best effort; publish failures never fail a generation.
type ProgressPublisher interface {
	Publish(ctx context.Context, userID uuid.UUID, ev models.GenerationEvent)
}

type GenerateRequest struct {
	RawURL   string
	UserID   uuid.UUID
	IsPublic bool
	Language string
}

// Coordinator owns the lifecycle of one generation run per call: resolve,
// fetch, idempotency check, transcript, streamed generation with eager
// sanitization, persistence, credit deduction. One Run per HTTP request.
type Coordinator struct {
	videos      VideoSource
	transcripts TranscriptSource
	generator   OutlineGenerator
	courses     CourseStore
	credits     CreditStore
	locks       GenerationLock
	publisher   ProgressPublisher
	cost        int
}

func NewCoordinator(
	videos VideoSource,
	transcripts TranscriptSource,
	generator OutlineGenerator,
	courses CourseStore,
	credits CreditStore,
	locks GenerationLock,
	publisher ProgressPublisher,
	cost int,
) *Coordinator {
	if cost <= 0 {
		cost = 1
	}
	return &Coordinator{
		videos:      videos,
		transcripts: transcripts,
		generator:   generator,
		courses:     courses,
		credits:     credits,
		locks:       locks,
		publisher:   publisher,
		cost:        cost,
	}
}

// Progress checkpoints per state. Partial frames advance from generating
// toward generatingCap in fixed steps; the bar is a heuristic, not a true
// completion ratio.
const (
	progressParsing    = 5
	progressFetching   = 15
	progressChecking   = 20
	progressTranscript = 30
	progressGenerating = 40
	progressCap        = 85
	progressSaving     = 90
	progressDone       = 100
	partialStep        = 5
)

// Run drives the full state machine. Every failure after the caller has
// committed response headers is reported as a single error frame; the stream
// always terminates.
func (c *Coordinator) Run(ctx context.Context, req GenerateRequest, sink EventSink) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("generation panic for user %s: %v", req.UserID, r)
			c.emit(ctx, req.UserID, sink, models.GenerationEvent{
				Type:  models.EventError,
				Error: "Unknown error occurred",
			})
		}
	}()

	progress := 0
	step := func(name string, target int, message string) {
		if target > progress {
			progress = target
		}
		c.emit(ctx, req.UserID, sink, models.GenerationEvent{
			Type:     models.EventProgress,
			Step:     name,
			Progress: progress,
			Message:  message,
		})
	}
	fail := func(err error) {
		c.emit(ctx, req.UserID, sink, models.GenerationEvent{
			Type:  models.EventError,
			Error: userMessage(err),
		})
	}

	// Parsing
	step("parsing", progressParsing, "Reading video link")
	src, err := ResolveSourceURL(req.RawURL)
	if err != nil {
		fail(err)
		return
	}

	// Fetching
	step("fetching", progressFetching, "Fetching video details")
	var video *models.VideoMetadata
	var playlistTitle string
	if src.Kind == models.SourcePlaylist {
		playlist, err := c.videos.FetchPlaylist(ctx, src.ID)
		if err != nil {
			fail(err)
			return
		}
		if len(playlist.Videos) == 0 {
			fail(fmt.Errorf("%w: playlist %s has no videos", ErrSourceFetch, src.ID))
			return
		}
		// The first playlist video is the representative for transcript and
		// outline generation.
		video = &playlist.Videos[0]
		playlistTitle = playlist.Metadata.Title
	} else {
		video, err = c.videos.FetchVideo(ctx, src.ID)
		if err != nil {
			fail(err)
			return
		}
	}

	// Checking: at most one course per (source, user). An existing course
	// short-circuits the whole pipeline.
	step("checking", progressChecking, "Checking your library")
	existing, err := c.courses.GetBySource(ctx, src.ID, req.UserID)
	if err != nil {
		fail(fmt.Errorf("%w: %v", ErrPersistence, err))
		return
	}
	if existing != nil {
		c.emit(ctx, req.UserID, sink, models.GenerationEvent{
			Type:     models.EventComplete,
			Progress: progressDone,
			Message:  "You already have a course for this video",
			Data:     models.CompleteData{CourseID: existing.ID.String(), AlreadyExists: true},
		})
		return
	}

	if c.locks != nil {
		lockKey := fmt.Sprintf("genlock:%s:%s", src.ID, req.UserID)
		acquired, err := c.locks.Acquire(ctx, lockKey)
		if err != nil {
			log.Printf("generation lock error for %s: %v", lockKey, err)
		} else if !acquired {
			fail(ErrGenerationInProgress)
			return
		} else {
			defer c.locks.Release(lockKey)
		}
	}

	// Transcript
	step("transcript", progressTranscript, "Fetching transcript")
	segments, err := c.transcripts.Fetch(ctx, video.ID, req.Language)
	if err != nil {
		fail(err)
		return
	}

	// Generating
	step("generating", progressGenerating, "Generating your course")
	input := GenerationInput{
		VideoTitle:       video.Title,
		VideoDescription: video.Description,
		ChannelName:      video.ChannelName,
		VideoDuration:    FormatClock(video.DurationSeconds),
		Transcript:       JoinTranscript(segments),
		Segments:         segments,
		PlaylistTitle:    playlistTitle,
		Language:         req.Language,
	}

	stream, err := c.generator.StreamOutline(ctx, input)
	if err != nil {
		fail(err)
		return
	}

	for partial := range stream.Partials() {
		sanitized := SanitizePartialOutline(partial)
		if progress+partialStep <= progressCap {
			progress += partialStep
		}
		c.emit(ctx, req.UserID, sink, models.GenerationEvent{
			Type:     models.EventPartial,
			Step:     "generating",
			Progress: progress,
			Data:     sanitized,
		})
	}

	outline, err := stream.Wait()
	if err != nil {
		fail(err)
		return
	}
	if err := ValidateOutline(outline); err != nil {
		fail(err)
		return
	}
	outline = SanitizeOutline(outline)

	// Saving
	step("saving", progressSaving, "Saving your course")
	course := buildCourse(outline, src, video, req)
	courseID, err := c.courses.CreateAICourse(ctx, course)
	if err != nil {
		fail(fmt.Errorf("%w: %v", ErrPersistence, err))
		return
	}

	// Deduct only after the course exists. A deduction failure is logged,
	// not surfaced: the user should not lose a finished course over it.
	if err := c.credits.DeductCredits(ctx, req.UserID, c.cost); err != nil {
		log.Printf("credit deduction failed for user %s after course %s: %v", req.UserID, courseID, err)
	}

	c.emit(ctx, req.UserID, sink, models.GenerationEvent{
		Type:     models.EventComplete,
		Progress: progressDone,
		Message:  "Course ready",
		Data:     models.CompleteData{CourseID: courseID.String()},
	})
}

func (c *Coordinator) emit(ctx context.Context, userID uuid.UUID, sink EventSink, ev models.GenerationEvent) {
	if err := sink.Send(ev); err != nil {
		log.Printf("event delivery failed for user %s: %v", userID, err)
	}
	if c.publisher != nil {
		c.publisher.Publish(ctx, userID, ev)
	}
}

func buildCourse(outline models.CourseOutline, src models.SourceID, video *models.VideoMetadata, req GenerateRequest) *models.Course {
	resources, _ := json.Marshal(outline.Resources)
	if outline.Resources == nil {
		resources = []byte("[]")
	}

	course := &models.Course{
		UserID:             req.UserID,
		SourceID:           src.ID,
		SourceKind:         string(src.Kind),
		Title:              outline.Title,
		Description:        outline.Description,
		DetailedOverview:   outline.DetailedOverview,
		Category:           outline.Category,
		Difficulty:         outline.Difficulty,
		LearningObjectives: outline.LearningObjectives,
		Prerequisites:      outline.Prerequisites,
		TargetAudience:     outline.TargetAudience,
		EstimatedDuration:  outline.EstimatedDuration,
		Tags:               outline.Tags,
		ResourcesJSON:      resources,
		ChannelName:        video.ChannelName,
		ThumbnailURL:       video.ThumbnailURL,
		IsPublic:           req.IsPublic,
	}

	for i, m := range outline.Modules {
		mod := models.CourseModule{
			Position:    i + 1,
			Title:       m.Title,
			Description: m.Description,
		}
		for j, l := range m.Lessons {
			mod.Lessons = append(mod.Lessons, models.CourseLesson{
				Position:        j + 1,
				Title:           l.Title,
				Description:     l.Description,
				Content:         l.Content,
				DurationMinutes: l.DurationMinutes,
				TimestampStart:  l.TimestampStart,
				TimestampEnd:    l.TimestampEnd,
				KeyPoints:       l.KeyPoints,
			})
		}
		course.Modules = append(course.Modules, mod)
	}

	return course
}

// userMessage maps pipeline errors to the message shown in the error frame.
func userMessage(err error) string {
	switch {
	case err == nil:
		return "Unknown error occurred"
	case errors.Is(err, ErrNoCaptions), errors.Is(err, ErrTranscriptFetch):
		return "Failed to fetch transcript"
	case errors.Is(err, ErrInvalidURL):
		return ErrInvalidURL.Error()
	case errors.Is(err, ErrOutlineMissingInfo):
		return ErrOutlineMissingInfo.Error()
	case errors.Is(err, ErrOutlineNoModules):
		return ErrOutlineNoModules.Error()
	case errors.Is(err, ErrOutlineInvalid):
		return ErrOutlineInvalid.Error()
	case errors.Is(err, ErrGenerationInProgress):
		return ErrGenerationInProgress.Error()
	case errors.Is(err, ErrSourceFetch):
		return ErrSourceFetch.Error()
	case errors.Is(err, ErrPersistence):
		return ErrPersistence.Error()
	case errors.Is(err, context.Canceled):
		return "Generation cancelled"
	case errors.Is(err, context.DeadlineExceeded):
		return "Generation timed out"
	default:
		return err.Error()
	}
}
