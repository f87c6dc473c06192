package store

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mfenderov/vault/pkg/models"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleDocument(page int) models.Document {
	return models.Document{
		ID:             models.NewID(),
		Path:           "/var/vault/storage/report.pdf",
		ProjectID:      models.DefaultProjectID,
		PageNumber:     page,
		Content:        "page content",
		Metadata:       "{}",
		Status:         models.StatusParsed,
		ContentType:    ".pdf",
		ContentLength:  12,
		ExtractionDate: time.Now().UTC(),
		Checksum:       strings.Repeat("ab", 32),
	}
}

func TestStore_SaveAndGetByID(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	doc := sampleDocument(1)
	doc.Metadata = `{"emails":["a@example.com"]}`
	doc.ParentID = "parent-1"

	s.AddRange([]models.Document{doc})
	saved, err := s.Save(ctx)
	require.NoError(t, err)
	assert.True(t, saved)

	got, err := s.GetByID(ctx, doc.ID)
	require.NoError(t, err)
	require.NotNil(t, got)

	assert.Equal(t, doc.ID, got.ID)
	assert.Equal(t, doc.Path, got.Path)
	assert.Equal(t, doc.PageNumber, got.PageNumber)
	assert.Equal(t, doc.Content, got.Content)
	assert.Equal(t, doc.Metadata, got.Metadata)
	assert.Equal(t, models.StatusParsed, got.Status)
	assert.Equal(t, doc.Checksum, got.Checksum)
	assert.Equal(t, "parent-1", got.ParentID)
	assert.Empty(t, got.RootID)
	assert.WithinDuration(t, doc.ExtractionDate, got.ExtractionDate, time.Second)
}

func TestStore_GetByID_Missing(t *testing.T) {
	s := openTestStore(t)

	got, err := s.GetByID(context.Background(), "no-such-id")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestStore_SaveEmptyStage(t *testing.T) {
	s := openTestStore(t)

	saved, err := s.Save(context.Background())
	require.NoError(t, err)
	assert.False(t, saved)
}

func TestStore_SaveBatch(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	batch := []models.Document{sampleDocument(1), sampleDocument(2), sampleDocument(3)}
	require.NoError(t, s.SaveBatch(ctx, batch))

	all, err := s.GetAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	// Ordered by path then page.
	for i, doc := range all {
		assert.Equal(t, i+1, doc.PageNumber)
	}
}

func TestStore_SaveBatch_Empty(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.SaveBatch(context.Background(), nil))
}

func TestStore_Find(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	a := sampleDocument(1)
	a.Checksum = strings.Repeat("aa", 32)
	b := sampleDocument(1)
	b.Path = "/var/vault/storage/other.txt"
	b.Checksum = strings.Repeat("bb", 32)
	require.NoError(t, s.SaveBatch(ctx, []models.Document{a, b}))

	found, err := s.Find(ctx, func(d models.Document) bool {
		return d.Checksum == a.Checksum
	})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, a.ID, found[0].ID)
}

func TestStore_DuplicateIDRejected(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	doc := sampleDocument(1)
	require.NoError(t, s.SaveBatch(ctx, []models.Document{doc}))

	err := s.SaveBatch(ctx, []models.Document{doc})
	assert.Error(t, err, "primary key violation should surface")
}

func TestStore_BatchIsAtomic(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	good := sampleDocument(1)
	require.NoError(t, s.SaveBatch(ctx, []models.Document{good}))

	// Second batch contains a conflicting id; the whole batch must roll
	// back, including its valid member.
	conflicting := good
	fresh := sampleDocument(2)
	err := s.SaveBatch(ctx, []models.Document{fresh, conflicting})
	require.Error(t, err)

	got, err := s.GetByID(ctx, fresh.ID)
	require.NoError(t, err)
	assert.Nil(t, got, "rolled-back batch member should not be persisted")
}

func TestStore_ReopenKeepsData(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	s, err := Open(dir)
	require.NoError(t, err)
	doc := sampleDocument(1)
	require.NoError(t, s.SaveBatch(ctx, []models.Document{doc}))
	require.NoError(t, s.Close())

	reopened, err := Open(dir)
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.GetByID(ctx, doc.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, doc.Content, got.Content)
}
