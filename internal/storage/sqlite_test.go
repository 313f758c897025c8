package storage

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"apitester/internal/model"
)

func newTestStore(t *testing.T) *SessionStore {
	t.Helper()
	s, err := NewSessionStore()
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func historyEntry(n int) model.HistoryEntry {
	return model.HistoryEntry{
		ID: fmt.Sprintf("entry-%02d", n),
		Request: model.Request{
			ID:     fmt.Sprintf("req-%02d", n),
			Method: model.MethodGet,
			URL:    fmt.Sprintf("https://example.com/%d", n),
		},
	}
}

func TestSessionStore_HistoryNewestFirstAndCapped(t *testing.T) {
	s := newTestStore(t)

	for i := 1; i <= 12; i++ {
		require.NoError(t, s.AddToHistory(historyEntry(i)))
	}

	entries, err := s.LoadHistory()
	require.NoError(t, err)
	require.Len(t, entries, HistoryLimit)
	assert.Equal(t, "entry-12", entries[0].ID)
	assert.Equal(t, "entry-03", entries[HistoryLimit-1].ID)

	_, err = s.GetHistoryEntry("entry-01")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSessionStore_HistoryKeepsResponse(t *testing.T) {
	s := newTestStore(t)

	entry := historyEntry(1)
	entry.Response = &model.Response{
		Status:     200,
		StatusText: "OK",
		Headers:    map[string]string{"content-type": "application/json"},
		Data:       model.JSONPayload([]byte(`{"ok":true}`)),
	}
	require.NoError(t, s.AddToHistory(entry))
	require.NoError(t, s.AddToHistory(historyEntry(2)))

	got, err := s.GetHistoryEntry("entry-01")
	require.NoError(t, err)
	require.NotNil(t, got.Response)
	assert.Equal(t, 200, got.Response.Status)
	assert.JSONEq(t, `{"ok":true}`, got.Response.Data.String())

	got, err = s.GetHistoryEntry("entry-02")
	require.NoError(t, err)
	assert.Nil(t, got.Response)
}

func TestSessionStore_HistoryGeneratesIDs(t *testing.T) {
	s := newTestStore(t)

	entry := historyEntry(1)
	entry.ID = ""
	require.NoError(t, s.AddToHistory(entry))
	require.NoError(t, s.AddToHistory(entry))

	entries, err := s.LoadHistory()
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Len(t, entries[0].ID, 8)
	assert.NotEqual(t, entries[0].ID, entries[1].ID)
	assert.False(t, entries[0].Timestamp.IsZero())
}

func TestSessionStore_ClearHistory(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.AddToHistory(historyEntry(1)))

	require.NoError(t, s.ClearHistory())

	entries, err := s.LoadHistory()
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestSessionStore_SessionsAreIsolated(t *testing.T) {
	a := newTestStore(t)
	b := newTestStore(t)

	require.NoError(t, a.AddToHistory(historyEntry(1)))

	entries, err := b.LoadHistory()
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestSessionStore_Variables(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.SetVariable("base", "https://a.example.com"))
	require.NoError(t, s.SetVariable("base", "https://b.example.com"))
	require.NoError(t, s.SetVariable("token", "t"))

	vars, err := s.Variables()
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"base": "https://b.example.com", "token": "t"}, vars)

	require.NoError(t, s.UnsetVariable("token"))
	assert.ErrorIs(t, s.UnsetVariable("token"), ErrNotFound)
	assert.Error(t, s.SetVariable(" ", "x"))
}
