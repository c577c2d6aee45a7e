package mix

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stemroom/core/apperr"
	"stemroom/model"
)

type fakeSongRepo struct {
	songs map[int64]*model.Song
}

func (r *fakeSongRepo) CreateSong(ctx context.Context, song *model.Song) (int64, error) {
	return 0, nil
}

func (r *fakeSongRepo) GetSongByID(ctx context.Context, id int64) (*model.Song, error) {
	return r.songs[id], nil
}

func (r *fakeSongRepo) GetSongsByBandID(ctx context.Context, bandID int64) ([]*model.Song, error) {
	return nil, nil
}

func (r *fakeSongRepo) UpdateSong(ctx context.Context, song *model.Song) error { return nil }

func (r *fakeSongRepo) DeleteSong(ctx context.Context, id int64) error { return nil }

type fakeTrackRepo struct {
	tracks map[int64]*model.Track
	order  []int64
}

func (r *fakeTrackRepo) CreateTrack(ctx context.Context, track *model.Track) (int64, error) {
	return 0, nil
}

func (r *fakeTrackRepo) GetTrackByID(ctx context.Context, id int64) (*model.Track, error) {
	return r.tracks[id], nil
}

func (r *fakeTrackRepo) GetTracksBySongID(ctx context.Context, songID int64) ([]*model.Track, error) {
	var out []*model.Track
	for _, id := range r.order {
		if t := r.tracks[id]; t != nil && t.SongID == songID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (r *fakeTrackRepo) RenameTrack(ctx context.Context, id int64, name string) error { return nil }

func (r *fakeTrackRepo) UpdateTrackPosition(ctx context.Context, id int64, position int) error {
	return nil
}

func (r *fakeTrackRepo) SetActiveRevision(ctx context.Context, trackID, revisionID int64) error {
	return nil
}

func (r *fakeTrackRepo) PromoteIfUnset(ctx context.Context, trackID, revisionID int64) (bool, error) {
	return false, nil
}

type fakeRevisionRepo struct {
	revs map[int64]*model.Revision
}

func (r *fakeRevisionRepo) CreateRevision(ctx context.Context, rev *model.Revision) error {
	return nil
}

func (r *fakeRevisionRepo) GetRevisionByID(ctx context.Context, id int64) (*model.Revision, error) {
	return r.revs[id], nil
}

func (r *fakeRevisionRepo) GetRevisionByTrackAndKey(ctx context.Context, trackID int64, key string) (*model.Revision, error) {
	return nil, nil
}

func (r *fakeRevisionRepo) GetRevisionsByTrackID(ctx context.Context, trackID int64) ([]*model.Revision, error) {
	return nil, nil
}

func (r *fakeRevisionRepo) GetLatestRevision(ctx context.Context, trackID int64) (*model.Revision, error) {
	var latest *model.Revision
	for _, rev := range r.revs {
		if rev.TrackID != trackID {
			continue
		}
		if latest == nil || rev.RevisionNumber > latest.RevisionNumber {
			latest = rev
		}
	}
	return latest, nil
}

type fakeSessionRepo struct {
	mu       sync.Mutex
	nextID   int64
	sessions map[int64]*model.MixSession
	rows     map[int64][]*model.MixSessionTrack
}

func newFakeSessionRepo() *fakeSessionRepo {
	return &fakeSessionRepo{
		sessions: make(map[int64]*model.MixSession),
		rows:     make(map[int64][]*model.MixSessionTrack),
	}
}

func (r *fakeSessionRepo) CreateSession(ctx context.Context, session *model.MixSession, tracks []*model.MixSessionTrack) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	session.ID = r.nextID
	r.sessions[session.ID] = session
	for _, row := range tracks {
		row.SessionID = session.ID
	}
	r.rows[session.ID] = tracks
	return nil
}

func (r *fakeSessionRepo) GetSessionByID(ctx context.Context, id int64) (*model.MixSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sessions[id], nil
}

func (r *fakeSessionRepo) GetSessionsBySongID(ctx context.Context, songID int64) ([]*model.MixSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.MixSession
	for _, s := range r.sessions {
		if s.SongID == songID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (r *fakeSessionRepo) GetSessionTracks(ctx context.Context, sessionID int64) ([]*model.MixSessionTrack, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rows[sessionID], nil
}

func (r *fakeSessionRepo) ReplaceSessionTracks(ctx context.Context, sessionID int64, tracks []*model.MixSessionTrack) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows[sessionID] = tracks
	return nil
}

func ptr(v int64) *int64 { return &v }

// fixture: song 1 with three tracks. Track 1 has two revisions with the
// older one active, track 2 has one revision and no active pointer,
// track 3 has nothing.
func newTestService() (*Service, *fakeSessionRepo) {
	songs := &fakeSongRepo{songs: map[int64]*model.Song{1: {ID: 1, BandID: 1, Title: "Demo"}}}
	tracks := &fakeTrackRepo{
		tracks: map[int64]*model.Track{
			1: {ID: 1, SongID: 1, Name: "Guitar", ActiveRevisionID: ptr(10)},
			2: {ID: 2, SongID: 1, Name: "Bass"},
			3: {ID: 3, SongID: 1, Name: "Vox"},
			9: {ID: 9, SongID: 2, Name: "Other"},
		},
		order: []int64{1, 2, 3, 9},
	}
	revs := &fakeRevisionRepo{
		revs: map[int64]*model.Revision{
			10: {ID: 10, TrackID: 1, RevisionNumber: 1},
			11: {ID: 11, TrackID: 1, RevisionNumber: 2},
			20: {ID: 20, TrackID: 2, RevisionNumber: 1},
			90: {ID: 90, TrackID: 9, RevisionNumber: 1},
		},
	}
	sessions := newFakeSessionRepo()
	return NewService(sessions, songs, tracks, revs), sessions
}

func TestCreateSession(t *testing.T) {
	ctx := context.Background()

	t.Run("base active pins active revisions", func(t *testing.T) {
		svc, _ := newTestService()

		_, rows, err := svc.CreateSession(ctx, 1, "rough mix", model.SessionBaseActive, 1)
		require.NoError(t, err)
		require.Len(t, rows, 3)

		require.NotNil(t, rows[0].TrackRevisionID)
		assert.Equal(t, int64(10), *rows[0].TrackRevisionID)
		// No active pointer means the row rides along unpinned.
		assert.Nil(t, rows[1].TrackRevisionID)
		assert.Nil(t, rows[2].TrackRevisionID)
	})

	t.Run("base latest pins highest numbers", func(t *testing.T) {
		svc, _ := newTestService()

		_, rows, err := svc.CreateSession(ctx, 1, "latest takes", model.SessionBaseLatest, 1)
		require.NoError(t, err)
		require.Len(t, rows, 3)

		require.NotNil(t, rows[0].TrackRevisionID)
		assert.Equal(t, int64(11), *rows[0].TrackRevisionID)
		require.NotNil(t, rows[1].TrackRevisionID)
		assert.Equal(t, int64(20), *rows[1].TrackRevisionID)
		assert.Nil(t, rows[2].TrackRevisionID)
	})

	t.Run("rows start with default parameters", func(t *testing.T) {
		svc, _ := newTestService()

		_, rows, err := svc.CreateSession(ctx, 1, "defaults", model.SessionBaseActive, 1)
		require.NoError(t, err)
		for _, row := range rows {
			assert.False(t, row.Mute)
			assert.Zero(t, row.GainDB)
			assert.Zero(t, row.Pan)
			assert.Zero(t, row.StartOffsetMs)
		}
	})

	t.Run("rejects bad input", func(t *testing.T) {
		svc, _ := newTestService()

		_, _, err := svc.CreateSession(ctx, 1, "", model.SessionBaseActive, 1)
		assert.ErrorIs(t, err, apperr.ErrInvalidInput)

		_, _, err = svc.CreateSession(ctx, 1, "mix", "newest", 1)
		assert.ErrorIs(t, err, apperr.ErrInvalidInput)

		_, _, err = svc.CreateSession(ctx, 42, "mix", model.SessionBaseActive, 1)
		assert.ErrorIs(t, err, apperr.ErrNotFound)
	})
}

func TestReplaceSessionTracks(t *testing.T) {
	ctx := context.Background()

	newSession := func(t *testing.T, svc *Service) int64 {
		t.Helper()
		session, _, err := svc.CreateSession(ctx, 1, "mix", model.SessionBaseActive, 1)
		require.NoError(t, err)
		return session.ID
	}

	t.Run("replacement is total", func(t *testing.T) {
		svc, repo := newTestService()
		id := newSession(t, svc)

		rows, err := svc.ReplaceSessionTracks(ctx, id, []SessionTrackInput{
			{TrackID: 2, Mute: true, GainDB: -3},
		})
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.Equal(t, int64(2), rows[0].TrackID)
		assert.True(t, rows[0].Mute)

		stored, err := repo.GetSessionTracks(ctx, id)
		require.NoError(t, err)
		assert.Len(t, stored, 1)

		// Empty input empties the session.
		rows, err = svc.ReplaceSessionTracks(ctx, id, nil)
		require.NoError(t, err)
		assert.Empty(t, rows)
	})

	t.Run("clamps playback parameters", func(t *testing.T) {
		svc, _ := newTestService()
		id := newSession(t, svc)

		rows, err := svc.ReplaceSessionTracks(ctx, id, []SessionTrackInput{
			{TrackID: 1, GainDB: 40, Pan: -2.5, StartOffsetMs: -100},
			{TrackID: 2, GainDB: -100, Pan: 1.5},
		})
		require.NoError(t, err)
		require.Len(t, rows, 2)

		assert.Equal(t, GainMaxDB, rows[0].GainDB)
		assert.Equal(t, -1.0, rows[0].Pan)
		assert.Zero(t, rows[0].StartOffsetMs)
		assert.Equal(t, GainMinDB, rows[1].GainDB)
		assert.Equal(t, 1.0, rows[1].Pan)
	})

	t.Run("pins only revisions of the row's track", func(t *testing.T) {
		svc, _ := newTestService()
		id := newSession(t, svc)

		rows, err := svc.ReplaceSessionTracks(ctx, id, []SessionTrackInput{
			{TrackID: 1, TrackRevisionID: ptr(11)},
		})
		require.NoError(t, err)
		require.NotNil(t, rows[0].TrackRevisionID)
		assert.Equal(t, int64(11), *rows[0].TrackRevisionID)

		// Revision 20 belongs to track 2.
		_, err = svc.ReplaceSessionTracks(ctx, id, []SessionTrackInput{
			{TrackID: 1, TrackRevisionID: ptr(20)},
		})
		assert.ErrorIs(t, err, apperr.ErrNotFound)
	})

	t.Run("rejects tracks outside the song", func(t *testing.T) {
		svc, _ := newTestService()
		id := newSession(t, svc)

		_, err := svc.ReplaceSessionTracks(ctx, id, []SessionTrackInput{{TrackID: 9}})
		assert.ErrorIs(t, err, apperr.ErrNotFound)

		_, err = svc.ReplaceSessionTracks(ctx, id, []SessionTrackInput{{TrackID: 404}})
		assert.ErrorIs(t, err, apperr.ErrNotFound)
	})

	t.Run("rejects duplicate tracks", func(t *testing.T) {
		svc, _ := newTestService()
		id := newSession(t, svc)

		_, err := svc.ReplaceSessionTracks(ctx, id, []SessionTrackInput{
			{TrackID: 1}, {TrackID: 1},
		})
		assert.ErrorIs(t, err, apperr.ErrInvalidInput)
	})

	t.Run("unknown session is not found", func(t *testing.T) {
		svc, _ := newTestService()

		_, err := svc.ReplaceSessionTracks(ctx, 404, nil)
		assert.ErrorIs(t, err, apperr.ErrNotFound)
	})
}

func TestSessionSnapshotIsStable(t *testing.T) {
	ctx := context.Background()

	songs := &fakeSongRepo{songs: map[int64]*model.Song{1: {ID: 1, BandID: 1, Title: "Demo"}}}
	tracks := &fakeTrackRepo{
		tracks: map[int64]*model.Track{1: {ID: 1, SongID: 1, Name: "Guitar"}},
		order:  []int64{1},
	}
	revs := &fakeRevisionRepo{revs: map[int64]*model.Revision{
		10: {ID: 10, TrackID: 1, RevisionNumber: 1},
	}}
	repo := newFakeSessionRepo()
	svc := NewService(repo, songs, tracks, revs)

	session, _, err := svc.CreateSession(ctx, 1, "pinned", model.SessionBaseLatest, 1)
	require.NoError(t, err)

	// A take landing after the snapshot does not move the pin.
	revs.revs[11] = &model.Revision{ID: 11, TrackID: 1, RevisionNumber: 2}

	rows, err := repo.GetSessionTracks(ctx, session.ID)
	require.NoError(t, err)
	require.NotNil(t, rows[0].TrackRevisionID)
	assert.Equal(t, int64(10), *rows[0].TrackRevisionID)
}
