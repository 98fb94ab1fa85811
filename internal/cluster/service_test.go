package cluster

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"horse.fit/sportwire/internal/db"
)

// fakeStore serves canned rows for story resolution tests.
type fakeStore struct {
	window       []db.ClusterWindowArticle
	fingerprints map[int64]db.FingerprintRecord
	linked       map[int64]int64
	created      []string
	links        int
	nextStoryID  int64
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		fingerprints: make(map[int64]db.FingerprintRecord),
		linked:       make(map[int64]int64),
		nextStoryID:  100,
	}
}

func (f *fakeStore) ListClusterWindow(ctx context.Context, since time.Time, limit int) ([]db.ClusterWindowArticle, error) {
	return f.window, nil
}

func (f *fakeStore) ListWindowTagLinks(ctx context.Context, since time.Time) ([]db.ArticleTagLink, error) {
	return nil, nil
}

func (f *fakeStore) ListWindowAssignments(ctx context.Context, since time.Time) ([]db.AssignmentRecord, error) {
	return nil, nil
}

func (f *fakeStore) ListRecentStoryFingerprints(ctx context.Context, since time.Time) ([]db.StoryFingerprint, error) {
	return nil, nil
}

func (f *fakeStore) GetFingerprint(ctx context.Context, newsID int64) (db.FingerprintRecord, bool, error) {
	fp, ok := f.fingerprints[newsID]
	return fp, ok, nil
}

func (f *fakeStore) StoryForArticle(ctx context.Context, newsID int64) (int64, bool, error) {
	storyID, ok := f.linked[newsID]
	return storyID, ok, nil
}

func (f *fakeStore) CreateStory(ctx context.Context, title string) (int64, error) {
	f.created = append(f.created, title)
	f.nextStoryID++
	return f.nextStoryID, nil
}

func (f *fakeStore) LinkStoryArticle(ctx context.Context, storyID, newsID int64) (bool, error) {
	f.links++
	return true, nil
}

func (f *fakeStore) TouchStory(ctx context.Context, storyID int64) error { return nil }

func (f *fakeStore) GetArticle(ctx context.Context, newsID int64) (db.ArticleListItem, error) {
	return db.ArticleListItem{NewsID: newsID, Title: "Зенит победил Спартак"}, nil
}

func (f *fakeStore) ListArticleTags(ctx context.Context, newsID int64) ([]db.TagRecord, error) {
	return nil, nil
}

func TestRunDryRunWritesNothing(t *testing.T) {
	t.Parallel()

	now := time.Now().UTC()
	earlier := now.Add(-10 * time.Minute)

	store := newFakeStore()
	store.window = []db.ClusterWindowArticle{
		{NewsID: 10, Title: "Зенит победил Спартак в финале", PublishedAt: &now},
		{NewsID: 11, Title: "Зенит победил Спартак в финале Кубка", PublishedAt: &earlier},
	}

	service := NewService(store, zerolog.Nop())
	service.SetDryRun(true)

	summary, err := service.Run(context.Background(), DefaultWindow, DefaultCap)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Clusters != 1 {
		t.Fatalf("expected 1 cluster, got %d", summary.Clusters)
	}
	if len(store.created) != 0 || store.links != 0 {
		t.Fatalf("dry run wrote stories or links: created=%d links=%d", len(store.created), store.links)
	}
	if summary.NewStories != 0 || summary.LinksCreated != 0 {
		t.Fatalf("dry run summary reports writes: %+v", summary)
	}
}

func TestResolveStoryPrefersHeadNearDuplicate(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	sig := "зенит|победа|спартак"
	store.fingerprints[10] = db.FingerprintRecord{NewsID: 10, TitleSig: sig}
	// A trailing member is already linked elsewhere; the head's
	// near-duplicate story must still win.
	store.linked[11] = 7

	service := NewService(store, zerolog.Nop())
	recent := []db.StoryFingerprint{{StoryID: 3, NewsID: 99, TitleSig: sig}}

	storyID, created, err := service.resolveStory(context.Background(), []int64{10, 11}, recent)
	if err != nil {
		t.Fatalf("resolveStory: %v", err)
	}
	if created {
		t.Fatalf("expected attachment, not creation")
	}
	if storyID != 3 {
		t.Fatalf("expected near-duplicate story 3, got %d", storyID)
	}
}

func TestResolveStoryFallsBackToLinkedStory(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	store.linked[11] = 7
	store.linked[12] = 9

	service := NewService(store, zerolog.Nop())

	storyID, created, err := service.resolveStory(context.Background(), []int64{10, 11, 12}, nil)
	if err != nil {
		t.Fatalf("resolveStory: %v", err)
	}
	if created {
		t.Fatalf("expected attachment to an existing story")
	}
	if storyID != 7 {
		t.Fatalf("expected lowest linked story 7, got %d", storyID)
	}
}

func TestResolveStoryCreatesWhenNothingMatches(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	service := NewService(store, zerolog.Nop())

	storyID, created, err := service.resolveStory(context.Background(), []int64{10}, nil)
	if err != nil {
		t.Fatalf("resolveStory: %v", err)
	}
	if !created {
		t.Fatalf("expected a fresh story")
	}
	if storyID == 0 {
		t.Fatalf("expected a story id")
	}
	if len(store.created) != 1 {
		t.Fatalf("expected exactly one created story, got %d", len(store.created))
	}
}
