package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/codecraft-dev/codecraft/internal/database/testutil"
	"github.com/codecraft-dev/codecraft/internal/models"
)

func TestSnippets_ShareAndBrowse(t *testing.T) {
	db := testutil.MustOpenTestDB(t)
	svc, err := NewSnippetService(db)
	require.NoError(t, err)
	seedUser(t, db, "user-1", "alice")

	snippet, err := svc.Share(context.Background(), ShareSnippetParams{
		UserID:   "user-1",
		UserName: "alice",
		Title:    "fizzbuzz",
		Language: "Python",
		Code:     "print('fizz')",
	})
	require.NoError(t, err)
	require.Equal(t, "python", snippet.Language)

	_, err = svc.Share(context.Background(), ShareSnippetParams{
		UserID: "user-1", UserName: "alice", Title: "hello", Language: "go", Code: "fmt.Println()",
	})
	require.NoError(t, err)

	all, err := svc.List(context.Background(), SnippetListFilter{})
	require.NoError(t, err)
	require.Len(t, all, 2)

	pythonOnly, err := svc.List(context.Background(), SnippetListFilter{Language: "python"})
	require.NoError(t, err)
	require.Len(t, pythonOnly, 1)
	require.Equal(t, snippet.ID, pythonOnly[0].ID)
}

func TestSnippets_CommentsAndStars(t *testing.T) {
	db := testutil.MustOpenTestDB(t)
	svc, err := NewSnippetService(db)
	require.NoError(t, err)
	seedUser(t, db, "user-1", "alice")
	seedUser(t, db, "user-2", "bob")

	snippet, err := svc.Share(context.Background(), ShareSnippetParams{
		UserID: "user-1", UserName: "alice", Title: "demo", Language: "go", Code: "x",
	})
	require.NoError(t, err)

	comment, err := svc.AddComment(context.Background(), snippet.ID, "user-2", "bob", "<b>nice</b>")
	require.NoError(t, err)
	require.Equal(t, "&lt;b&gt;nice&lt;/b&gt;", comment.Content)

	require.NoError(t, svc.Star(context.Background(), snippet.ID, "user-2"))
	// Starring twice is a no-op, not an error.
	require.NoError(t, svc.Star(context.Background(), snippet.ID, "user-2"))

	count, err := svc.StarCount(context.Background(), snippet.ID)
	require.NoError(t, err)
	require.Equal(t, int64(1), count)

	require.NoError(t, svc.Unstar(context.Background(), snippet.ID, "user-2"))
	count, err = svc.StarCount(context.Background(), snippet.ID)
	require.NoError(t, err)
	require.Zero(t, count)

	got, err := svc.Get(context.Background(), snippet.ID)
	require.NoError(t, err)
	require.Len(t, got.Comments, 1)
}

func TestSnippets_DeleteOwnerOnly(t *testing.T) {
	db := testutil.MustOpenTestDB(t)
	svc, err := NewSnippetService(db)
	require.NoError(t, err)
	seedUser(t, db, "user-1", "alice")
	seedUser(t, db, "user-2", "bob")

	snippet, err := svc.Share(context.Background(), ShareSnippetParams{
		UserID: "user-1", UserName: "alice", Title: "demo", Language: "go", Code: "x",
	})
	require.NoError(t, err)
	_, err = svc.AddComment(context.Background(), snippet.ID, "user-2", "bob", "hi")
	require.NoError(t, err)
	require.NoError(t, svc.Star(context.Background(), snippet.ID, "user-2"))

	err = svc.Delete(context.Background(), snippet.ID, "user-2")
	require.ErrorIs(t, err, ErrNotSnippetOwner)

	require.NoError(t, svc.Delete(context.Background(), snippet.ID, "user-1"))
	_, err = svc.Get(context.Background(), snippet.ID)
	require.ErrorIs(t, err, ErrSnippetNotFound)

	var comments, stars int64
	require.NoError(t, db.Model(&models.SnippetComment{}).Where("snippet_id = ?", snippet.ID).Count(&comments).Error)
	require.NoError(t, db.Model(&models.SnippetStar{}).Where("snippet_id = ?", snippet.ID).Count(&stars).Error)
	require.Zero(t, comments)
	require.Zero(t, stars)
}

func TestSnippets_CommentOnMissingSnippet(t *testing.T) {
	db := testutil.MustOpenTestDB(t)
	svc, err := NewSnippetService(db)
	require.NoError(t, err)

	_, err = svc.AddComment(context.Background(), "missing", "user-1", "alice", "hi")
	require.ErrorIs(t, err, ErrSnippetNotFound)

	err = svc.Star(context.Background(), "missing", "user-1")
	require.ErrorIs(t, err, ErrSnippetNotFound)
}
