package services

import (
	"context"
	"fmt"

	"coursegen-backend/internal/models"
)

// MockOutlineGenerator produces a deterministic outline from the input
// metadata. It backs local development when no Gemini key is configured and
// keeps the full stream protocol observable without model calls.
type MockOutlineGenerator struct{}

func NewMockOutlineGenerator() *MockOutlineGenerator { return &MockOutlineGenerator{} }

func (g *MockOutlineGenerator) StreamOutline(ctx context.Context, input GenerationInput) (*OutlineStream, error) {
	stream := newOutlineStream()

	go func() {
		outline := g.buildOutline(input)

		// Emit the same shape a real model produces: title first, then the
		// growing module list.
		title := outline.Title
		partials := []models.PartialCourseOutline{
			{Title: &title},
			{Title: &title, Modules: partialModules(outline.Modules[:1])},
			{Title: &title, Modules: partialModules(outline.Modules)},
		}

		for _, p := range partials {
			select {
			case stream.partials <- p:
			case <-ctx.Done():
				stream.finish(models.CourseOutline{}, ctx.Err())
				return
			}
		}

		stream.finish(outline, nil)
	}()

	return stream, nil
}

func (g *MockOutlineGenerator) buildOutline(input GenerationInput) models.CourseOutline {
	title := input.VideoTitle
	if title == "" {
		title = "Untitled Course"
	}

	return models.CourseOutline{
		Title:              fmt.Sprintf("Course: %s", title),
		Description:        fmt.Sprintf("A structured course generated from %q by %s.", title, input.ChannelName),
		DetailedOverview:   "This course walks through the source video in order, with each module covering one major topic.",
		Category:           "General",
		Difficulty:         "beginner",
		LearningObjectives: []string{"Understand the main ideas of the video"},
		TargetAudience:     []string{"Self-learners"},
		EstimatedDuration:  input.VideoDuration,
		Tags:               []string{"video-course"},
		Modules: []models.ModuleOutline{
			{
				Title:       "Introduction",
				Description: "Opening section of the video.",
				Lessons: []models.LessonOutline{
					{
						Title:           "Getting started",
						Description:     "Overview and context.",
						Content:         "The video opens with an introduction to the topic.",
						DurationMinutes: 5,
						TimestampStart:  "0:00",
						TimestampEnd:    "5:00",
						KeyPoints:       []string{"Topic introduction"},
					},
				},
			},
			{
				Title:       "Main content",
				Description: "Core material of the video.",
				Lessons: []models.LessonOutline{
					{
						Title:           "Core concepts",
						Description:     "The substance of the video.",
						Content:         "The main body of the video develops the central ideas.",
						DurationMinutes: 20,
						TimestampStart:  "5:00",
						TimestampEnd:    input.VideoDuration,
						KeyPoints:       []string{"Central ideas"},
					},
				},
			},
		},
	}
}

func partialModules(modules []models.ModuleOutline) []models.PartialModule {
	out := make([]models.PartialModule, len(modules))
	for i, m := range modules {
		mod := m
		out[i].Title = &mod.Title
		out[i].Description = &mod.Description
		out[i].Lessons = make([]models.PartialLesson, len(m.Lessons))
		for j := range m.Lessons {
			l := m.Lessons[j]
			out[i].Lessons[j] = models.PartialLesson{
				Title:           &l.Title,
				Description:     &l.Description,
				Content:         &l.Content,
				DurationMinutes: &l.DurationMinutes,
				TimestampStart:  &l.TimestampStart,
				TimestampEnd:    &l.TimestampEnd,
				KeyPoints:       l.KeyPoints,
			}
		}
	}
	return out
}
