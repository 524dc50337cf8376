package session_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flexicli/flexicli/internal/session"
)

func TestProjectID_Deterministic(t *testing.T) {
	a := session.ProjectID("/tmp/project")
	b := session.ProjectID("/tmp/project")
	assert.Equal(t, a, b)
	assert.Len(t, a, 16)
}

func TestProjectID_DifferentRootsDiffer(t *testing.T) {
	assert.NotEqual(t, session.ProjectID("/tmp/a"), session.ProjectID("/tmp/b"))
}

func openTestStore(t *testing.T) *session.Store {
	t.Helper()
	store, err := session.OpenProject(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestStartSession_CreatesActiveSession(t *testing.T) {
	store := openTestStore(t)
	sess, err := store.StartSession(context.Background(), session.Mode("concise"))
	require.NoError(t, err)
	assert.Equal(t, session.StatusActive, sess.Status)
	assert.NotEmpty(t, sess.ID)
}

func TestSnapshot_SequenceNumbersMonotonic(t *testing.T) {
	store := openTestStore(t)
	sess, err := store.StartSession(context.Background(), session.Mode("concise"))
	require.NoError(t, err)

	seq1, err := store.Snapshot(context.Background(), sess.ID, []byte("a"), nil, session.Mode("concise"), nil, "cmd1")
	require.NoError(t, err)
	seq2, err := store.Snapshot(context.Background(), sess.ID, []byte("b"), nil, session.Mode("concise"), nil, "cmd2")
	require.NoError(t, err)

	assert.Equal(t, seq1+1, seq2)
}

func TestSnapshot_PrunesBeyondTwenty(t *testing.T) {
	store := openTestStore(t)
	sess, err := store.StartSession(context.Background(), session.Mode("concise"))
	require.NoError(t, err)

	var lastSeq int
	for i := 0; i < 25; i++ {
		lastSeq, err = store.Snapshot(context.Background(), sess.ID, []byte("x"), nil, session.Mode("concise"), nil, "cmd")
		require.NoError(t, err)
	}
	assert.Equal(t, 25, lastSeq)

	_, snap, err := store.RestoreLatest(context.Background(), sess.ID, session.Mode("concise"))
	require.NoError(t, err)
	assert.Equal(t, 25, snap.SequenceNumber)
}

func TestRecordLog_AndQueryKnowledge(t *testing.T) {
	store := openTestStore(t)
	sess, err := store.StartSession(context.Background(), session.Mode("concise"))
	require.NoError(t, err)

	err = store.RecordLog(context.Background(), session.LogEntry{
		SessionID: sess.ID,
		ToolName:  "read_file",
		Success:   true,
	})
	require.NoError(t, err)

	knowledge, err := store.QueryKnowledge(context.Background(), "", 10)
	require.NoError(t, err)
	assert.Empty(t, knowledge)
}

func TestUpsertChunk_Idempotent(t *testing.T) {
	store := openTestStore(t)
	chunk := session.Chunk{ProjectID: "p1", Path: "a.go", Content: "package a", ChunkType: "code", TokenCount: 5}
	err := store.UpsertChunk(context.Background(), chunk, "hash1", "1-10")
	require.NoError(t, err)
	err = store.UpsertChunk(context.Background(), chunk, "hash1", "1-10")
	require.NoError(t, err)
}

func TestEndSession_SetsStatus(t *testing.T) {
	store := openTestStore(t)
	sess, err := store.StartSession(context.Background(), session.Mode("concise"))
	require.NoError(t, err)
	err = store.EndSession(context.Background(), sess.ID, session.StatusCompleted)
	require.NoError(t, err)
}
