package services

import (
	"regexp"
	"strings"

	"coursegen-backend/internal/models"
)

// Lesson timestamps must be M:SS or H:MM:SS, at most 8 characters, with no
// fractional seconds. The model occasionally produces runaway sub-second
// values ("0:00.123456789"); those are rewritten the moment they appear so a
// malformed value never reaches a client, even inside a partial frame.

const maxTimestampLen = 8

var clockPrefixRegex = regexp.MustCompile(`^\d{1,2}:[0-5]\d(?::[0-5]\d)?`)

// SanitizeTimestamp returns its input unchanged when it is already clean, so
// applying it twice is a no-op.
func SanitizeTimestamp(ts string) string {
	if !strings.Contains(ts, ".") && len(ts) <= maxTimestampLen {
		return ts
	}

	if m := clockPrefixRegex.FindString(ts); m != "" {
		return m
	}

	if i := strings.Index(ts, "."); i > 0 && i <= maxTimestampLen {
		return ts[:i]
	}

	return "0:00"
}

// SanitizePartialOutline returns a sanitized copy of a streamed partial. The
// input is never mutated; partials can be shared with the wire encoder while
// the next one is being built.
func SanitizePartialOutline(p models.PartialCourseOutline) models.PartialCourseOutline {
	out := p
	if p.Modules == nil {
		return out
	}

	out.Modules = make([]models.PartialModule, len(p.Modules))
	for i, mod := range p.Modules {
		m := mod
		if mod.Lessons != nil {
			m.Lessons = make([]models.PartialLesson, len(mod.Lessons))
			for j, les := range mod.Lessons {
				l := les
				if les.TimestampStart != nil {
					v := SanitizeTimestamp(*les.TimestampStart)
					l.TimestampStart = &v
				}
				if les.TimestampEnd != nil {
					v := SanitizeTimestamp(*les.TimestampEnd)
					l.TimestampEnd = &v
				}
				m.Lessons[j] = l
			}
		}
		out.Modules[i] = m
	}
	return out
}

// SanitizeOutline applies the timestamp rules to a complete outline and
// restricts resources to the field set the course schema accepts.
func SanitizeOutline(o models.CourseOutline) models.CourseOutline {
	out := o

	out.Modules = make([]models.ModuleOutline, len(o.Modules))
	for i, mod := range o.Modules {
		m := mod
		m.Lessons = make([]models.LessonOutline, len(mod.Lessons))
		for j, les := range mod.Lessons {
			l := les
			l.TimestampStart = SanitizeTimestamp(l.TimestampStart)
			l.TimestampEnd = SanitizeTimestamp(l.TimestampEnd)
			m.Lessons[j] = l
		}
		out.Modules[i] = m
	}

	out.Resources = SanitizeResources(o.Resources)
	return out
}

var resourceTypes = map[string]bool{
	"video":         true,
	"article":       true,
	"book":          true,
	"tool":          true,
	"documentation": true,
	"course":        true,
}

// SanitizeResources drops empty entries and clamps the type to the closed
// set the datastore schema allows. The Resource struct itself already
// discards any extra fields the model invents.
func SanitizeResources(resources []models.Resource) []models.Resource {
	if len(resources) == 0 {
		return nil
	}

	out := make([]models.Resource, 0, len(resources))
	for _, res := range resources {
		res.Title = strings.TrimSpace(res.Title)
		res.URL = strings.TrimSpace(res.URL)
		if res.Title == "" && res.URL == "" {
			continue
		}
		if !resourceTypes[strings.ToLower(res.Type)] {
			res.Type = "article"
		} else {
			res.Type = strings.ToLower(res.Type)
		}
		out = append(out, res)
	}
	return out
}

// ValidateOutline enforces the structural contract on the final outline.
// The three failure classes map to distinct user-facing messages so the
// client can suggest trying a different video.
func ValidateOutline(o models.CourseOutline) error {
	if o.Title == "" || o.Description == "" || o.Category == "" || o.Difficulty == "" {
		return ErrOutlineMissingInfo
	}
	if len(o.Modules) == 0 {
		return ErrOutlineNoModules
	}
	for _, m := range o.Modules {
		if m.Title == "" {
			return ErrOutlineInvalid
		}
	}
	return nil
}
