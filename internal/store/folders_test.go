package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmolnar/mailstate/internal/models"
)

func TestUpdateMergeReplace(t *testing.T) {
	s := NewFolderStore()
	s.Add(models.Folder{ID: "1", ParentID: models.RootFolderID, Name: "Projects", Color: 3, UnreadCount: 7})

	name := "Archive"
	s.Update(MergeReplace, []FolderPatch{{ID: "1", Name: &name}})

	f, err := s.Get("1")
	require.NoError(t, err)
	assert.Equal(t, "Archive", f.Name)
	// Absent fields must survive a patch.
	assert.Equal(t, 3, f.Color)
	assert.Equal(t, 7, f.UnreadCount)
}

func TestUpdateMergeShallow(t *testing.T) {
	s := NewFolderStore()
	s.Add(models.Folder{
		ID: "1", ParentID: models.RootFolderID, Name: "Projects", Color: 3,
		Retention: &models.RetentionPolicy{Keep: &models.RetentionRule{Enabled: true, Lifetime: "30d"}},
	})

	parent := models.RootFolderID
	name := "Projects"
	s.Update(MergeShallow, []FolderPatch{{ID: "1", ParentID: &parent, Name: &name}})

	f, err := s.Get("1")
	require.NoError(t, err)
	assert.Equal(t, "Projects", f.Name)
	// Shallow merge lets absent incoming fields clear stored values.
	assert.Equal(t, 0, f.Color)
	assert.Nil(t, f.Retention)
}

func TestUpdateMergeDeep(t *testing.T) {
	s := NewFolderStore()
	s.Add(models.Folder{
		ID: "1", ParentID: models.RootFolderID, Name: "Projects",
		Retention: &models.RetentionPolicy{
			Keep:  &models.RetentionRule{Enabled: true, Lifetime: "30d"},
			Purge: &models.RetentionRule{Enabled: false, Lifetime: "90d"},
		},
	})

	s.Update(MergeDeep, []FolderPatch{{
		ID:        "1",
		Retention: &models.RetentionPolicy{Purge: &models.RetentionRule{Enabled: true, Lifetime: "365d"}},
	}})

	f, err := s.Get("1")
	require.NoError(t, err)
	require.NotNil(t, f.Retention)
	require.NotNil(t, f.Retention.Keep)
	assert.Equal(t, "30d", f.Retention.Keep.Lifetime)
	require.NotNil(t, f.Retention.Purge)
	assert.True(t, f.Retention.Purge.Enabled)
	assert.Equal(t, "365d", f.Retention.Purge.Lifetime)
}

func TestUpdateSkipsUnknownFolders(t *testing.T) {
	s := NewFolderStore()
	s.Add(models.Folder{ID: "1", ParentID: models.RootFolderID, Name: "A"})

	name := "Ghost"
	s.Update(MergeReplace, []FolderPatch{{ID: "404", Name: &name}})

	assert.Equal(t, 1, s.Len())
	_, err := s.Get("404")
	assert.ErrorIs(t, err, ErrFolderNotFound)
}

func TestAddPreservesInsertionOrder(t *testing.T) {
	s := NewFolderStore()
	s.Add(
		models.Folder{ID: "b", ParentID: models.RootFolderID, Name: "B"},
		models.Folder{ID: "a", ParentID: models.RootFolderID, Name: "A"},
	)
	// Re-adding must not move the folder to the back.
	s.Add(models.Folder{ID: "b", ParentID: models.RootFolderID, Name: "B2"})

	all := s.All()
	require.Len(t, all, 2)
	assert.Equal(t, "b", all[0].ID)
	assert.Equal(t, "B2", all[0].Name)
	assert.Equal(t, "a", all[1].ID)
}

func TestGetReturnsCopies(t *testing.T) {
	s := NewFolderStore()
	s.Add(models.Folder{ID: "1", ParentID: models.RootFolderID, Name: "A"})

	f, err := s.Get("1")
	require.NoError(t, err)
	f.Name = "mutated"

	again, err := s.Get("1")
	require.NoError(t, err)
	assert.Equal(t, "A", again.Name)
}
