package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// CourseOutline is the structured object the AI returns. Timestamps inside
// lessons are clock strings (M:SS or H:MM:SS), not seconds.
type CourseOutline struct {
	Title              string          `json:"title"`
	Description        string          `json:"description"`
	DetailedOverview   string          `json:"detailedOverview"`
	Category           string          `json:"category"`
	Difficulty         string          `json:"difficulty"`
	LearningObjectives []string        `json:"learningObjectives"`
	Prerequisites      []string        `json:"prerequisites"`
	TargetAudience     []string        `json:"targetAudience"`
	EstimatedDuration  string          `json:"estimatedDuration"`
	Tags               []string        `json:"tags"`
	Resources          []Resource      `json:"resources"`
	Modules            []ModuleOutline `json:"modules"`
}

type ModuleOutline struct {
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Lessons     []LessonOutline `json:"lessons"`
}

type LessonOutline struct {
	Title           string   `json:"title"`
	Description     string   `json:"description"`
	Content         string   `json:"content"`
	DurationMinutes int      `json:"durationMinutes"`
	TimestampStart  string   `json:"timestampStart"`
	TimestampEnd    string   `json:"timestampEnd"`
	KeyPoints       []string `json:"keyPoints"`
}

// Resource is the closed field set the persistence schema accepts.
// Anything else the AI attaches is discarded during sanitization.
type Resource struct {
	Title       string `json:"title"`
	URL         string `json:"url"`
	Type        string `json:"type"`
	Description string `json:"description"`
	Category    string `json:"category"`
}

// PartialCourseOutline mirrors CourseOutline with everything optional. It is
// what the streaming generator emits while the model is still producing
// output; sanitization returns a new copy rather than mutating in place.
type PartialCourseOutline struct {
	Title              *string           `json:"title,omitempty"`
	Description        *string           `json:"description,omitempty"`
	DetailedOverview   *string           `json:"detailedOverview,omitempty"`
	Category           *string           `json:"category,omitempty"`
	Difficulty         *string           `json:"difficulty,omitempty"`
	LearningObjectives []string          `json:"learningObjectives,omitempty"`
	Prerequisites      []string          `json:"prerequisites,omitempty"`
	TargetAudience     []string          `json:"targetAudience,omitempty"`
	EstimatedDuration  *string           `json:"estimatedDuration,omitempty"`
	Tags               []string          `json:"tags,omitempty"`
	Resources          []PartialResource `json:"resources,omitempty"`
	Modules            []PartialModule   `json:"modules,omitempty"`
}

type PartialModule struct {
	Title       *string         `json:"title,omitempty"`
	Description *string         `json:"description,omitempty"`
	Lessons     []PartialLesson `json:"lessons,omitempty"`
}

type PartialLesson struct {
	Title           *string  `json:"title,omitempty"`
	Description     *string  `json:"description,omitempty"`
	Content         *string  `json:"content,omitempty"`
	DurationMinutes *int     `json:"durationMinutes,omitempty"`
	TimestampStart  *string  `json:"timestampStart,omitempty"`
	TimestampEnd    *string  `json:"timestampEnd,omitempty"`
	KeyPoints       []string `json:"keyPoints,omitempty"`
}

type PartialResource struct {
	Title       *string `json:"title,omitempty"`
	URL         *string `json:"url,omitempty"`
	Type        *string `json:"type,omitempty"`
	Description *string `json:"description,omitempty"`
	Category    *string `json:"category,omitempty"`
}

// Course is the persisted form of an outline. At most one course exists per
// (source_id, user_id) pair.
type Course struct {
	ID                 uuid.UUID       `json:"id"`
	UserID             uuid.UUID       `json:"user_id"`
	SourceID           string          `json:"source_id"`
	SourceKind         string          `json:"source_kind"`
	Title              string          `json:"title"`
	Description        string          `json:"description"`
	DetailedOverview   string          `json:"detailed_overview"`
	Category           string          `json:"category"`
	Difficulty         string          `json:"difficulty"`
	LearningObjectives []string        `json:"learning_objectives"`
	Prerequisites      []string        `json:"prerequisites"`
	TargetAudience     []string        `json:"target_audience"`
	EstimatedDuration  string          `json:"estimated_duration"`
	Tags               []string        `json:"tags"`
	ResourcesJSON      json.RawMessage `json:"resources"`
	ChannelName        string          `json:"channel_name"`
	ThumbnailURL       string          `json:"thumbnail_url"`
	IsPublic           bool            `json:"is_public"`
	CreatedAt          time.Time       `json:"created_at"`
	Modules            []CourseModule  `json:"modules,omitempty"`
}

type CourseModule struct {
	ID          uuid.UUID      `json:"id"`
	CourseID    uuid.UUID      `json:"course_id"`
	Position    int            `json:"position"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Lessons     []CourseLesson `json:"lessons,omitempty"`
}

type CourseLesson struct {
	ID              uuid.UUID `json:"id"`
	ModuleID        uuid.UUID `json:"module_id"`
	Position        int       `json:"position"`
	Title           string    `json:"title"`
	Description     string    `json:"description"`
	Content         string    `json:"content"`
	DurationMinutes int       `json:"duration_minutes"`
	TimestampStart  string    `json:"timestamp_start"`
	TimestampEnd    string    `json:"timestamp_end"`
	KeyPoints       []string  `json:"key_points"`
}

type GenerateCourseRequest struct {
	YoutubeURL string `json:"youtubeUrl"`
	IsPublic   bool   `json:"isPublic"`
	Language   string `json:"language"`
}
