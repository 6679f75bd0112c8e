package followers

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"
)

func score(v float64) *float64 { return &v }

func TestStore_OfferDedupsByIdentity(t *testing.T) {
	s := NewStore()

	require.True(t, s.Offer(Record{UserID: "123", ScreenName: "first"}))
	require.False(t, s.Offer(Record{UserID: "123", ScreenName: "second"}))
	require.Equal(t, 1, s.Count())

	snap := s.Snapshot()
	require.Len(t, snap, 1)
	require.Equal(t, "first", snap[0].ScreenName)
}

func TestStore_FirstWriteWins(t *testing.T) {
	s := NewStore()
	s.Offer(Record{UserID: "123", BotScore: score(0.1)})
	before := s.Snapshot()
	s.Offer(Record{UserID: "123", BotScore: score(0.9)})

	require.Equal(t, before, s.Snapshot())
	require.Equal(t, 0.1, *s.Snapshot()[0].BotScore)
}

func TestStore_CountEqualsDistinctIdentities(t *testing.T) {
	s := NewStore()
	for i := 0; i < 100; i++ {
		s.Offer(Record{UserID: strconv.Itoa(i % 25)})
	}
	require.Equal(t, 25, s.Count())
}

func TestStore_IdentityFallsBackToID(t *testing.T) {
	s := NewStore()
	require.True(t, s.Offer(Record{ID: "9"}))
	require.False(t, s.Offer(Record{ID: "9"}))
	// Different identity sources, same key: user_id wins over id in
	// Identity(), so a record with user_id "9" collides with id "9".
	require.False(t, s.Offer(Record{UserID: "9"}))
	require.Equal(t, 1, s.Count())
}

func TestStore_InsertionOrderPreserved(t *testing.T) {
	s := NewStore()
	ids := []string{"c", "a", "b", "a", "d", "c"}
	for _, id := range ids {
		s.Offer(Record{UserID: id})
	}

	snap := s.Snapshot()
	got := make([]string, len(snap))
	for i, r := range snap {
		got[i] = r.UserID
	}
	require.Equal(t, []string{"c", "a", "b", "d"}, got)
}

func TestStore_SnapshotIsDefensiveCopy(t *testing.T) {
	s := NewStore()
	s.Offer(Record{UserID: "1"})
	snap := s.Snapshot()
	s.Offer(Record{UserID: "2"})

	require.Len(t, snap, 1)
	snap[0].UserID = "mutated"
	require.Equal(t, "1", s.Snapshot()[0].UserID)
}
