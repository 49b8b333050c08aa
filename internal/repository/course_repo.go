package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"coursegen-backend/internal/models"
)

type CourseRepo struct {
	pool *pgxpool.Pool
}

func NewCourseRepo(pool *pgxpool.Pool) *CourseRepo {
	return &CourseRepo{pool: pool}
}

const courseColumns = `id, user_id, source_id, source_kind, title, description, detailed_overview,
	category, difficulty, learning_objectives, prerequisites, target_audience,
	estimated_duration, tags, resources, channel_name, thumbnail_url, is_public, created_at`

func scanCourse(row pgx.Row) (*models.Course, error) {
	c := &models.Course{}
	err := row.Scan(
		&c.ID, &c.UserID, &c.SourceID, &c.SourceKind, &c.Title, &c.Description, &c.DetailedOverview,
		&c.Category, &c.Difficulty, &c.LearningObjectives, &c.Prerequisites, &c.TargetAudience,
		&c.EstimatedDuration, &c.Tags, &c.ResourcesJSON, &c.ChannelName, &c.ThumbnailURL, &c.IsPublic, &c.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// GetBySource returns nil, nil when the user has no course for the source.
func (r *CourseRepo) GetBySource(ctx context.Context, sourceID string, userID uuid.UUID) (*models.Course, error) {
	query := fmt.Sprintf("SELECT %s FROM courses WHERE source_id = $1 AND user_id = $2", courseColumns)
	course, err := scanCourse(r.pool.QueryRow(ctx, query, sourceID, userID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return course, nil
}

// CreateAICourse writes the course with its modules and lessons in one
// transaction. The insert races against the unique index on
// (user_id, source_id): when a concurrent writer wins, the existing course
// id is returned instead of an error.
func (r *CourseRepo) CreateAICourse(ctx context.Context, course *models.Course) (uuid.UUID, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return uuid.Nil, err
	}
	defer tx.Rollback(ctx)

	course.ID = uuid.New()
	var insertedID uuid.UUID
	err = tx.QueryRow(ctx, `
		INSERT INTO courses (id, user_id, source_id, source_kind, title, description, detailed_overview,
			category, difficulty, learning_objectives, prerequisites, target_audience,
			estimated_duration, tags, resources, channel_name, thumbnail_url, is_public)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
		ON CONFLICT (user_id, source_id) DO NOTHING
		RETURNING id`,
		course.ID, course.UserID, course.SourceID, course.SourceKind, course.Title, course.Description,
		course.DetailedOverview, course.Category, course.Difficulty, course.LearningObjectives,
		course.Prerequisites, course.TargetAudience, course.EstimatedDuration, course.Tags,
		course.ResourcesJSON, course.ChannelName, course.ThumbnailURL, course.IsPublic,
	).Scan(&insertedID)
	if errors.Is(err, pgx.ErrNoRows) {
		// Lost the race. Return the id of the course that beat us.
		var existingID uuid.UUID
		lookupErr := r.pool.QueryRow(ctx,
			"SELECT id FROM courses WHERE user_id = $1 AND source_id = $2",
			course.UserID, course.SourceID,
		).Scan(&existingID)
		if lookupErr != nil {
			return uuid.Nil, lookupErr
		}
		return existingID, nil
	}
	if err != nil {
		return uuid.Nil, err
	}

	for i := range course.Modules {
		mod := &course.Modules[i]
		mod.ID = uuid.New()
		mod.CourseID = insertedID
		_, err = tx.Exec(ctx, `
			INSERT INTO course_modules (id, course_id, position, title, description)
			VALUES ($1, $2, $3, $4, $5)`,
			mod.ID, mod.CourseID, mod.Position, mod.Title, mod.Description,
		)
		if err != nil {
			return uuid.Nil, err
		}

		for j := range mod.Lessons {
			lesson := &mod.Lessons[j]
			lesson.ID = uuid.New()
			lesson.ModuleID = mod.ID
			_, err = tx.Exec(ctx, `
				INSERT INTO course_lessons (id, module_id, position, title, description, content,
					duration_minutes, timestamp_start, timestamp_end, key_points)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
				lesson.ID, lesson.ModuleID, lesson.Position, lesson.Title, lesson.Description,
				lesson.Content, lesson.DurationMinutes, lesson.TimestampStart, lesson.TimestampEnd,
				lesson.KeyPoints,
			)
			if err != nil {
				return uuid.Nil, err
			}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return uuid.Nil, err
	}
	return insertedID, nil
}

// GetByID loads a course with its full module and lesson tree.
func (r *CourseRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Course, error) {
	query := fmt.Sprintf("SELECT %s FROM courses WHERE id = $1", courseColumns)
	course, err := scanCourse(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		return nil, err
	}

	rows, err := r.pool.Query(ctx, `
		SELECT id, course_id, position, title, description
		FROM course_modules WHERE course_id = $1 ORDER BY position`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	moduleIndex := map[uuid.UUID]int{}
	for rows.Next() {
		var mod models.CourseModule
		if err := rows.Scan(&mod.ID, &mod.CourseID, &mod.Position, &mod.Title, &mod.Description); err != nil {
			return nil, err
		}
		moduleIndex[mod.ID] = len(course.Modules)
		course.Modules = append(course.Modules, mod)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	lessonRows, err := r.pool.Query(ctx, `
		SELECT l.id, l.module_id, l.position, l.title, l.description, l.content,
			l.duration_minutes, l.timestamp_start, l.timestamp_end, l.key_points
		FROM course_lessons l
		JOIN course_modules m ON m.id = l.module_id
		WHERE m.course_id = $1
		ORDER BY m.position, l.position`, id)
	if err != nil {
		return nil, err
	}
	defer lessonRows.Close()

	for lessonRows.Next() {
		var lesson models.CourseLesson
		if err := lessonRows.Scan(
			&lesson.ID, &lesson.ModuleID, &lesson.Position, &lesson.Title, &lesson.Description,
			&lesson.Content, &lesson.DurationMinutes, &lesson.TimestampStart, &lesson.TimestampEnd,
			&lesson.KeyPoints,
		); err != nil {
			return nil, err
		}
		if idx, ok := moduleIndex[lesson.ModuleID]; ok {
			course.Modules[idx].Lessons = append(course.Modules[idx].Lessons, lesson)
		}
	}
	return course, lessonRows.Err()
}

func (r *CourseRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Course, error) {
	query := fmt.Sprintf("SELECT %s FROM courses WHERE user_id = $1 ORDER BY created_at DESC", courseColumns)
	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	courses := make([]models.Course, 0)
	for rows.Next() {
		course, err := scanCourse(rows)
		if err != nil {
			return nil, err
		}
		courses = append(courses, *course)
	}
	return courses, rows.Err()
}

func (r *CourseRepo) Delete(ctx context.Context, id, userID uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, "DELETE FROM courses WHERE id = $1 AND user_id = $2", id, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
