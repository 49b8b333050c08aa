package services

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"coursegen-backend/internal/models"
)

// ─── Fakes ───

type collectSink struct {
	events []models.GenerationEvent
}

func (s *collectSink) Send(ev models.GenerationEvent) error {
	s.events = append(s.events, ev)
	return nil
}

func (s *collectSink) last() models.GenerationEvent {
	return s.events[len(s.events)-1]
}

type fakeVideoSource struct {
	video    *models.VideoMetadata
	playlist *models.PlaylistData
	err      error
}

func (f *fakeVideoSource) FetchVideo(ctx context.Context, videoID string) (*models.VideoMetadata, error) {
	return f.video, f.err
}

func (f *fakeVideoSource) FetchPlaylist(ctx context.Context, playlistID string) (*models.PlaylistData, error) {
	return f.playlist, f.err
}

type fakeTranscriptSource struct {
	segments []models.TranscriptSegment
	err      error
}

func (f *fakeTranscriptSource) Fetch(ctx context.Context, videoID, language string) ([]models.TranscriptSegment, error) {
	return f.segments, f.err
}

// scriptedGenerator emits a fixed sequence of partials, then the final
// outline or error.
type scriptedGenerator struct {
	partials []models.PartialCourseOutline
	outline  models.CourseOutline
	err      error
	input    GenerationInput
}

func (g *scriptedGenerator) StreamOutline(ctx context.Context, input GenerationInput) (*OutlineStream, error) {
	g.input = input
	stream := newOutlineStream()
	go func() {
		for _, p := range g.partials {
			stream.partials <- p
		}
		stream.finish(g.outline, g.err)
	}()
	return stream, nil
}

type fakeCourseStore struct {
	existing  *models.Course
	createdID uuid.UUID
	created   *models.Course
	createErr error
}

func (f *fakeCourseStore) GetBySource(ctx context.Context, sourceID string, userID uuid.UUID) (*models.Course, error) {
	return f.existing, nil
}

func (f *fakeCourseStore) CreateAICourse(ctx context.Context, course *models.Course) (uuid.UUID, error) {
	if f.createErr != nil {
		return uuid.Nil, f.createErr
	}
	f.created = course
	if f.createdID == uuid.Nil {
		f.createdID = uuid.New()
	}
	return f.createdID, nil
}

type fakeCreditStore struct {
	has       bool
	deducted  int
	deductErr error
}

func (f *fakeCreditStore) HasCredits(ctx context.Context, userID uuid.UUID, amount int) (bool, error) {
	return f.has, nil
}

func (f *fakeCreditStore) DeductCredits(ctx context.Context, userID uuid.UUID, amount int) error {
	if f.deductErr != nil {
		return f.deductErr
	}
	f.deducted += amount
	return nil
}

type fakeLock struct {
	denied   bool
	acquired []string
	released []string
}

func (f *fakeLock) Acquire(ctx context.Context, key string) (bool, error) {
	if f.denied {
		return false, nil
	}
	f.acquired = append(f.acquired, key)
	return true, nil
}

func (f *fakeLock) Release(key string) {
	f.released = append(f.released, key)
}

// ─── Helpers ───

func validOutline() models.CourseOutline {
	return models.CourseOutline{
		Title:       "Go Basics",
		Description: "Learn Go from one lecture",
		Category:    "Programming",
		Difficulty:  "beginner",
		Modules: []models.ModuleOutline{
			{
				Title: "Module 1",
				Lessons: []models.LessonOutline{
					{Title: "Intro", TimestampStart: "0:00", TimestampEnd: "5:00"},
				},
			},
		},
	}
}

func testVideo() *models.VideoMetadata {
	return &models.VideoMetadata{
		ID:              "dQw4w9WgXcQ",
		Title:           "Go Basics",
		ChannelName:     "GopherCon",
		DurationSeconds: 1800,
	}
}

func newTestCoordinator(store *fakeCourseStore, credits *fakeCreditStore, gen OutlineGenerator, lock GenerationLock) *Coordinator {
	return NewCoordinator(
		&fakeVideoSource{video: testVideo()},
		&fakeTranscriptSource{segments: testSegments()},
		gen,
		store,
		credits,
		lock,
		nil,
		1,
	)
}

func runGeneration(t *testing.T, c *Coordinator) *collectSink {
	t.Helper()
	sink := &collectSink{}
	c.Run(context.Background(), GenerateRequest{
		RawURL: "https://www.youtube.com/watch?v=dQw4w9WgXcQ",
		UserID: uuid.New(),
	}, sink)
	if len(sink.events) == 0 {
		t.Fatal("Expected at least one event")
	}
	return sink
}

// ─── Tests ───

func TestCoordinator_SuccessfulRun(t *testing.T) {
	store := &fakeCourseStore{}
	credits := &fakeCreditStore{has: true}
	gen := &scriptedGenerator{
		partials: []models.PartialCourseOutline{{}, {}},
		outline:  validOutline(),
	}
	lock := &fakeLock{}

	sink := runGeneration(t, newTestCoordinator(store, credits, gen, lock))

	final := sink.last()
	if final.Type != models.EventComplete {
		t.Fatalf("Expected complete frame, got %+v", final)
	}
	if final.Progress != 100 {
		t.Errorf("Expected final progress 100, got %d", final.Progress)
	}

	data, ok := final.Data.(models.CompleteData)
	if !ok {
		t.Fatalf("Expected CompleteData payload, got %T", final.Data)
	}
	if data.AlreadyExists {
		t.Error("Expected a fresh course, got alreadyExists")
	}
	if data.CourseID != store.createdID.String() {
		t.Errorf("Expected course id %s, got %s", store.createdID, data.CourseID)
	}

	if store.created == nil {
		t.Fatal("Expected course to be persisted")
	}
	if store.created.SourceID != "dQw4w9WgXcQ" {
		t.Errorf("Expected source id recorded, got %q", store.created.SourceID)
	}
	if credits.deducted != 1 {
		t.Errorf("Expected 1 credit deducted, got %d", credits.deducted)
	}
	if len(lock.acquired) != 1 || len(lock.released) != 1 {
		t.Errorf("Expected lock acquired and released once, got %d/%d", len(lock.acquired), len(lock.released))
	}
}

func TestCoordinator_ProgressMonotonic(t *testing.T) {
	store := &fakeCourseStore{}
	credits := &fakeCreditStore{has: true}
	gen := &scriptedGenerator{
		partials: make([]models.PartialCourseOutline, 20),
		outline:  validOutline(),
	}

	sink := runGeneration(t, newTestCoordinator(store, credits, gen, &fakeLock{}))

	prev := -1
	for _, ev := range sink.events {
		if ev.Progress < prev {
			t.Fatalf("Progress went backwards: %d after %d", ev.Progress, prev)
		}
		prev = ev.Progress
		if ev.Type == models.EventPartial && ev.Progress > 85 {
			t.Fatalf("Partial progress exceeded cap: %d", ev.Progress)
		}
	}
	if sink.last().Progress != 100 {
		t.Errorf("Expected stream to end at 100, got %d", sink.last().Progress)
	}
}

func TestCoordinator_IdempotentShortCircuit(t *testing.T) {
	existingID := uuid.New()
	store := &fakeCourseStore{existing: &models.Course{ID: existingID}}
	credits := &fakeCreditStore{has: true}
	gen := &scriptedGenerator{outline: validOutline()}
	lock := &fakeLock{}

	sink := runGeneration(t, newTestCoordinator(store, credits, gen, lock))

	final := sink.last()
	if final.Type != models.EventComplete {
		t.Fatalf("Expected complete frame, got %+v", final)
	}
	data, ok := final.Data.(models.CompleteData)
	if !ok {
		t.Fatalf("Expected CompleteData payload, got %T", final.Data)
	}
	if !data.AlreadyExists {
		t.Error("Expected alreadyExists flag")
	}
	if data.CourseID != existingID.String() {
		t.Errorf("Expected existing course id, got %s", data.CourseID)
	}

	if store.created != nil {
		t.Error("Expected no new course to be persisted")
	}
	if credits.deducted != 0 {
		t.Errorf("Expected no credits deducted, got %d", credits.deducted)
	}
	if len(lock.acquired) != 0 {
		t.Error("Expected no lock taken on the short-circuit path")
	}
}

func TestCoordinator_NoModulesErrorSkipsPersistence(t *testing.T) {
	store := &fakeCourseStore{}
	credits := &fakeCreditStore{has: true}
	outline := validOutline()
	outline.Modules = nil
	gen := &scriptedGenerator{outline: outline}

	sink := runGeneration(t, newTestCoordinator(store, credits, gen, &fakeLock{}))

	final := sink.last()
	if final.Type != models.EventError {
		t.Fatalf("Expected error frame, got %+v", final)
	}
	if final.Error != ErrOutlineNoModules.Error() {
		t.Errorf("Expected no-modules message, got %q", final.Error)
	}
	if store.created != nil {
		t.Error("Expected no persistence on validation failure")
	}
	if credits.deducted != 0 {
		t.Errorf("Expected no credits deducted, got %d", credits.deducted)
	}
}

func TestCoordinator_TranscriptFailure(t *testing.T) {
	c := NewCoordinator(
		&fakeVideoSource{video: testVideo()},
		&fakeTranscriptSource{err: ErrNoCaptions},
		&scriptedGenerator{outline: validOutline()},
		&fakeCourseStore{},
		&fakeCreditStore{has: true},
		&fakeLock{},
		nil,
		1,
	)

	sink := runGeneration(t, c)

	final := sink.last()
	if final.Type != models.EventError {
		t.Fatalf("Expected error frame, got %+v", final)
	}
	if final.Error != "Failed to fetch transcript" {
		t.Errorf("Expected transcript failure message, got %q", final.Error)
	}
}

func TestCoordinator_LockDenied(t *testing.T) {
	sink := runGeneration(t, newTestCoordinator(
		&fakeCourseStore{},
		&fakeCreditStore{has: true},
		&scriptedGenerator{outline: validOutline()},
		&fakeLock{denied: true},
	))

	final := sink.last()
	if final.Type != models.EventError {
		t.Fatalf("Expected error frame, got %+v", final)
	}
	if final.Error != ErrGenerationInProgress.Error() {
		t.Errorf("Expected in-progress message, got %q", final.Error)
	}
}

func TestCoordinator_InvalidURL(t *testing.T) {
	sink := &collectSink{}
	c := newTestCoordinator(&fakeCourseStore{}, &fakeCreditStore{has: true}, &scriptedGenerator{outline: validOutline()}, &fakeLock{})
	c.Run(context.Background(), GenerateRequest{RawURL: "not a url", UserID: uuid.New()}, sink)

	final := sink.last()
	if final.Type != models.EventError {
		t.Fatalf("Expected error frame, got %+v", final)
	}
	if final.Error != ErrInvalidURL.Error() {
		t.Errorf("Expected invalid URL message, got %q", final.Error)
	}
}

func TestCoordinator_SanitizesDirtyTimestampsEndToEnd(t *testing.T) {
	dirty := "0:00.123456789"
	partial := models.PartialCourseOutline{
		Modules: []models.PartialModule{
			{Lessons: []models.PartialLesson{{TimestampStart: &dirty}}},
		},
	}
	outline := validOutline()
	outline.Modules[0].Lessons[0].TimestampStart = dirty

	store := &fakeCourseStore{}
	gen := &scriptedGenerator{
		partials: []models.PartialCourseOutline{partial},
		outline:  outline,
	}

	sink := runGeneration(t, newTestCoordinator(store, &fakeCreditStore{has: true}, gen, &fakeLock{}))

	var sawPartial bool
	for _, ev := range sink.events {
		if ev.Type != models.EventPartial {
			continue
		}
		sawPartial = true
		p, ok := ev.Data.(models.PartialCourseOutline)
		if !ok {
			t.Fatalf("Expected partial payload, got %T", ev.Data)
		}
		if got := *p.Modules[0].Lessons[0].TimestampStart; got != "0:00" {
			t.Errorf("Partial frame carried unsanitized timestamp %q", got)
		}
	}
	if !sawPartial {
		t.Fatal("Expected a partial frame")
	}

	if store.created == nil {
		t.Fatal("Expected course to be persisted")
	}
	if got := store.created.Modules[0].Lessons[0].TimestampStart; got != "0:00" {
		t.Errorf("Persisted course carried unsanitized timestamp %q", got)
	}
}

func TestCoordinator_PanicBecomesErrorFrame(t *testing.T) {
	// A video source that reports success with a nil video makes the
	// coordinator dereference nil further down the pipeline.
	c := NewCoordinator(
		&fakeVideoSource{video: nil},
		&fakeTranscriptSource{segments: testSegments()},
		&scriptedGenerator{outline: validOutline()},
		&fakeCourseStore{},
		&fakeCreditStore{has: true},
		&fakeLock{},
		nil,
		1,
	)

	sink := runGeneration(t, c)

	final := sink.last()
	if final.Type != models.EventError {
		t.Fatalf("Expected the stream to terminate with an error frame, got %+v", final)
	}
	if final.Error != "Unknown error occurred" {
		t.Errorf("Expected generic panic message, got %q", final.Error)
	}
}

func TestCoordinator_PlaylistUsesRepresentativeVideo(t *testing.T) {
	store := &fakeCourseStore{}
	gen := &scriptedGenerator{outline: validOutline()}
	c := NewCoordinator(
		&fakeVideoSource{playlist: &models.PlaylistData{
			Metadata: models.PlaylistMetadata{ID: "PLabc123456789", Title: "Go Lecture Series"},
			Videos:   []models.VideoMetadata{*testVideo(), {ID: "second111aa", Title: "Part 2"}},
		}},
		&fakeTranscriptSource{segments: testSegments()},
		gen,
		store,
		&fakeCreditStore{has: true},
		&fakeLock{},
		nil,
		1,
	)

	sink := &collectSink{}
	c.Run(context.Background(), GenerateRequest{
		RawURL: "https://www.youtube.com/playlist?list=PLabc123456789",
		UserID: uuid.New(),
	}, sink)

	if sink.last().Type != models.EventComplete {
		t.Fatalf("Expected complete frame, got %+v", sink.last())
	}
	if gen.input.VideoTitle != "Go Basics" {
		t.Errorf("Expected the first playlist video as representative, got %q", gen.input.VideoTitle)
	}
	if gen.input.PlaylistTitle != "Go Lecture Series" {
		t.Errorf("Expected playlist title passed to generation, got %q", gen.input.PlaylistTitle)
	}
	if store.created == nil {
		t.Fatal("Expected course to be persisted")
	}
	if store.created.SourceID != "PLabc123456789" || store.created.SourceKind != "playlist" {
		t.Errorf("Expected playlist source recorded, got %q/%q", store.created.SourceID, store.created.SourceKind)
	}
}

func TestCoordinator_EmptyPlaylistFails(t *testing.T) {
	store := &fakeCourseStore{}
	c := NewCoordinator(
		&fakeVideoSource{playlist: &models.PlaylistData{
			Metadata: models.PlaylistMetadata{ID: "PLabc123456789", Title: "Empty"},
		}},
		&fakeTranscriptSource{segments: testSegments()},
		&scriptedGenerator{outline: validOutline()},
		store,
		&fakeCreditStore{has: true},
		&fakeLock{},
		nil,
		1,
	)

	sink := &collectSink{}
	c.Run(context.Background(), GenerateRequest{
		RawURL: "https://www.youtube.com/playlist?list=PLabc123456789",
		UserID: uuid.New(),
	}, sink)

	final := sink.last()
	if final.Type != models.EventError {
		t.Fatalf("Expected error frame, got %+v", final)
	}
	if final.Error != ErrSourceFetch.Error() {
		t.Errorf("Expected source fetch message, got %q", final.Error)
	}
	if store.created != nil {
		t.Error("Expected no persistence for an empty playlist")
	}
}

func TestCoordinator_PersistFailureAfterGeneration(t *testing.T) {
	store := &fakeCourseStore{createErr: errors.New("connection reset")}
	credits := &fakeCreditStore{has: true}
	gen := &scriptedGenerator{outline: validOutline()}

	sink := runGeneration(t, newTestCoordinator(store, credits, gen, &fakeLock{}))

	final := sink.last()
	if final.Type != models.EventError {
		t.Fatalf("Expected error frame, got %+v", final)
	}
	if final.Error != ErrPersistence.Error() {
		t.Errorf("Expected persistence message, got %q", final.Error)
	}
	if credits.deducted != 0 {
		t.Errorf("Expected no credits deducted on save failure, got %d", credits.deducted)
	}
}

func TestCoordinator_DeductFailureStillCompletes(t *testing.T) {
	store := &fakeCourseStore{}
	credits := &fakeCreditStore{has: true, deductErr: errors.New("balance changed")}
	gen := &scriptedGenerator{outline: validOutline()}

	sink := runGeneration(t, newTestCoordinator(store, credits, gen, &fakeLock{}))

	if sink.last().Type != models.EventComplete {
		t.Fatalf("Expected complete frame despite deduction failure, got %+v", sink.last())
	}
}
