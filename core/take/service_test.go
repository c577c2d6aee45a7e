package take

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stemroom/core/apperr"
	"stemroom/model"
)

// fakeTrackRepo is an in-memory TrackRepository covering what the take
// service touches.
type fakeTrackRepo struct {
	mu     sync.Mutex
	tracks map[int64]*model.Track
}

func newFakeTrackRepo(tracks ...*model.Track) *fakeTrackRepo {
	r := &fakeTrackRepo{tracks: make(map[int64]*model.Track)}
	for _, t := range tracks {
		r.tracks[t.ID] = t
	}
	return r
}

func (r *fakeTrackRepo) CreateTrack(ctx context.Context, track *model.Track) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	track.ID = int64(len(r.tracks) + 1)
	r.tracks[track.ID] = track
	return track.ID, nil
}

func (r *fakeTrackRepo) GetTrackByID(ctx context.Context, id int64) (*model.Track, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tracks[id]
	if !ok {
		return nil, nil
	}
	cp := *t
	return &cp, nil
}

func (r *fakeTrackRepo) GetTracksBySongID(ctx context.Context, songID int64) ([]*model.Track, error) {
	return nil, nil
}

func (r *fakeTrackRepo) RenameTrack(ctx context.Context, id int64, name string) error { return nil }

func (r *fakeTrackRepo) UpdateTrackPosition(ctx context.Context, id int64, position int) error {
	return nil
}

func (r *fakeTrackRepo) SetActiveRevision(ctx context.Context, trackID, revisionID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tracks[trackID].ActiveRevisionID = &revisionID
	return nil
}

func (r *fakeTrackRepo) PromoteIfUnset(ctx context.Context, trackID, revisionID int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t := r.tracks[trackID]
	if t.ActiveRevisionID != nil {
		return false, nil
	}
	t.ActiveRevisionID = &revisionID
	return true, nil
}

// fakeRevisionRepo mirrors the store's allocator and unique-key behavior:
// gapless numbers per track, Conflict on a duplicate idempotency key.
type fakeRevisionRepo struct {
	mu       sync.Mutex
	nextID   int64
	revs     map[int64]*model.Revision
	counters map[int64]int64
	byKey    map[string]int64

	// missLookups makes key lookups return nothing, simulating a
	// concurrent insert landing between the service's check and its
	// insert.
	missLookups bool
}

func newFakeRevisionRepo() *fakeRevisionRepo {
	return &fakeRevisionRepo{
		revs:     make(map[int64]*model.Revision),
		counters: make(map[int64]int64),
		byKey:    make(map[string]int64),
	}
}

func keyOf(trackID int64, key string) string {
	return fmt.Sprintf("%d/%s", trackID, key)
}

func (r *fakeRevisionRepo) CreateRevision(ctx context.Context, rev *model.Revision) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if rev.IdempotencyKey != "" {
		if _, dup := r.byKey[keyOf(rev.TrackID, rev.IdempotencyKey)]; dup {
			return apperr.Conflictf("revision already exists for key %q", rev.IdempotencyKey)
		}
	}
	r.counters[rev.TrackID]++
	r.nextID++
	rev.ID = r.nextID
	rev.RevisionNumber = r.counters[rev.TrackID]
	cp := *rev
	r.revs[rev.ID] = &cp
	if rev.IdempotencyKey != "" {
		r.byKey[keyOf(rev.TrackID, rev.IdempotencyKey)] = rev.ID
	}
	return nil
}

func (r *fakeRevisionRepo) GetRevisionByID(ctx context.Context, id int64) (*model.Revision, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rev, ok := r.revs[id]
	if !ok {
		return nil, nil
	}
	cp := *rev
	return &cp, nil
}

func (r *fakeRevisionRepo) GetRevisionByTrackAndKey(ctx context.Context, trackID int64, key string) (*model.Revision, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.missLookups {
		return nil, nil
	}
	id, ok := r.byKey[keyOf(trackID, key)]
	if !ok {
		return nil, nil
	}
	cp := *r.revs[id]
	return &cp, nil
}

func (r *fakeRevisionRepo) GetRevisionsByTrackID(ctx context.Context, trackID int64) ([]*model.Revision, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Revision
	for n := int64(1); n <= r.counters[trackID]; n++ {
		for _, rev := range r.revs {
			if rev.TrackID == trackID && rev.RevisionNumber == n {
				cp := *rev
				out = append(out, &cp)
			}
		}
	}
	return out, nil
}

func (r *fakeRevisionRepo) GetLatestRevision(ctx context.Context, trackID int64) (*model.Revision, error) {
	revs, _ := r.GetRevisionsByTrackID(ctx, trackID)
	if len(revs) == 0 {
		return nil, nil
	}
	return revs[len(revs)-1], nil
}

func newTestService(tracks ...*model.Track) (*Service, *fakeTrackRepo, *fakeRevisionRepo) {
	tr := newFakeTrackRepo(tracks...)
	rr := newFakeRevisionRepo()
	return NewService(tr, rr), tr, rr
}

func TestCreateRevision(t *testing.T) {
	ctx := context.Background()

	t.Run("numbers start at one and increase", func(t *testing.T) {
		svc, _, _ := newTestService(&model.Track{ID: 1, SongID: 1})

		first, err := svc.CreateRevision(ctx, CreateRevisionInput{TrackID: 1, Title: "scratch"})
		require.NoError(t, err)
		assert.Equal(t, int64(1), first.RevisionNumber)

		second, err := svc.CreateRevision(ctx, CreateRevisionInput{TrackID: 1, Title: "retake"})
		require.NoError(t, err)
		assert.Equal(t, int64(2), second.RevisionNumber)
	})

	t.Run("tracks number independently", func(t *testing.T) {
		svc, _, _ := newTestService(&model.Track{ID: 1, SongID: 1}, &model.Track{ID: 2, SongID: 1})

		a, err := svc.CreateRevision(ctx, CreateRevisionInput{TrackID: 1})
		require.NoError(t, err)
		b, err := svc.CreateRevision(ctx, CreateRevisionInput{TrackID: 2})
		require.NoError(t, err)

		assert.Equal(t, int64(1), a.RevisionNumber)
		assert.Equal(t, int64(1), b.RevisionNumber)
	})

	t.Run("missing track is not found", func(t *testing.T) {
		svc, _, _ := newTestService()

		_, err := svc.CreateRevision(ctx, CreateRevisionInput{TrackID: 99})
		assert.ErrorIs(t, err, apperr.ErrNotFound)
	})

	t.Run("concurrent creates allocate every number exactly once", func(t *testing.T) {
		svc, _, _ := newTestService(&model.Track{ID: 1, SongID: 1})

		const n = 50
		numbers := make(chan int64, n)
		var wg sync.WaitGroup
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				rev, err := svc.CreateRevision(ctx, CreateRevisionInput{TrackID: 1})
				if assert.NoError(t, err) {
					numbers <- rev.RevisionNumber
				}
			}()
		}
		wg.Wait()
		close(numbers)

		seen := make(map[int64]bool, n)
		for num := range numbers {
			assert.False(t, seen[num], "number %d allocated twice", num)
			seen[num] = true
		}
		for i := int64(1); i <= n; i++ {
			assert.True(t, seen[i], "number %d never allocated", i)
		}
	})
}

func TestCreateRevisionIdempotency(t *testing.T) {
	ctx := context.Background()

	t.Run("retry with same key returns the original", func(t *testing.T) {
		svc, _, _ := newTestService(&model.Track{ID: 1, SongID: 1})

		first, err := svc.CreateRevision(ctx, CreateRevisionInput{TrackID: 1, IdempotencyKey: "req-1"})
		require.NoError(t, err)

		again, err := svc.CreateRevision(ctx, CreateRevisionInput{TrackID: 1, IdempotencyKey: "req-1"})
		require.NoError(t, err)

		assert.Equal(t, first.ID, again.ID)
		assert.Equal(t, first.RevisionNumber, again.RevisionNumber)

		revs, err := svc.ListRevisions(ctx, 1)
		require.NoError(t, err)
		assert.Len(t, revs, 1)
	})

	t.Run("key is scoped to the track", func(t *testing.T) {
		svc, _, _ := newTestService(&model.Track{ID: 1, SongID: 1}, &model.Track{ID: 2, SongID: 1})

		a, err := svc.CreateRevision(ctx, CreateRevisionInput{TrackID: 1, IdempotencyKey: "req-1"})
		require.NoError(t, err)
		b, err := svc.CreateRevision(ctx, CreateRevisionInput{TrackID: 2, IdempotencyKey: "req-1"})
		require.NoError(t, err)

		assert.NotEqual(t, a.ID, b.ID)
	})

	t.Run("losing an insert race surfaces conflict", func(t *testing.T) {
		svc, _, rr := newTestService(&model.Track{ID: 1, SongID: 1})

		_, err := svc.CreateRevision(ctx, CreateRevisionInput{TrackID: 1, IdempotencyKey: "req-1"})
		require.NoError(t, err)

		// A concurrent request inserted the key after our lookup missed.
		rr.missLookups = true
		_, err = svc.CreateRevision(ctx, CreateRevisionInput{TrackID: 1, IdempotencyKey: "req-1"})
		assert.ErrorIs(t, err, apperr.ErrConflict)
	})
}

func TestAutoPromotion(t *testing.T) {
	ctx := context.Background()

	t.Run("first revision becomes active", func(t *testing.T) {
		svc, tr, _ := newTestService(&model.Track{ID: 1, SongID: 1})

		rev, err := svc.CreateRevision(ctx, CreateRevisionInput{TrackID: 1})
		require.NoError(t, err)

		track, err := tr.GetTrackByID(ctx, 1)
		require.NoError(t, err)
		require.NotNil(t, track.ActiveRevisionID)
		assert.Equal(t, rev.ID, *track.ActiveRevisionID)
	})

	t.Run("later revisions leave the pointer alone", func(t *testing.T) {
		svc, tr, _ := newTestService(&model.Track{ID: 1, SongID: 1})

		first, err := svc.CreateRevision(ctx, CreateRevisionInput{TrackID: 1})
		require.NoError(t, err)
		_, err = svc.CreateRevision(ctx, CreateRevisionInput{TrackID: 1})
		require.NoError(t, err)

		track, err := tr.GetTrackByID(ctx, 1)
		require.NoError(t, err)
		require.NotNil(t, track.ActiveRevisionID)
		assert.Equal(t, first.ID, *track.ActiveRevisionID)
	})

	t.Run("manual pointer survives a first-revision retry", func(t *testing.T) {
		svc, tr, _ := newTestService(&model.Track{ID: 1, SongID: 1})

		// Pointer already set by hand before any take lands.
		preset := int64(777)
		tr.tracks[1].ActiveRevisionID = &preset

		_, err := svc.CreateRevision(ctx, CreateRevisionInput{TrackID: 1})
		require.NoError(t, err)

		track, err := tr.GetTrackByID(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, preset, *track.ActiveRevisionID)
	})
}

func TestSetActiveRevision(t *testing.T) {
	ctx := context.Background()

	t.Run("moves the pointer", func(t *testing.T) {
		svc, tr, _ := newTestService(&model.Track{ID: 1, SongID: 1})

		first, err := svc.CreateRevision(ctx, CreateRevisionInput{TrackID: 1})
		require.NoError(t, err)
		second, err := svc.CreateRevision(ctx, CreateRevisionInput{TrackID: 1})
		require.NoError(t, err)

		require.NoError(t, svc.SetActiveRevision(ctx, 1, second.ID))
		track, err := tr.GetTrackByID(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, second.ID, *track.ActiveRevisionID)

		require.NoError(t, svc.SetActiveRevision(ctx, 1, first.ID))
		track, err = tr.GetTrackByID(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, first.ID, *track.ActiveRevisionID)
	})

	t.Run("rejects a revision from another track", func(t *testing.T) {
		svc, tr, _ := newTestService(&model.Track{ID: 1, SongID: 1}, &model.Track{ID: 2, SongID: 1})

		mine, err := svc.CreateRevision(ctx, CreateRevisionInput{TrackID: 1})
		require.NoError(t, err)
		theirs, err := svc.CreateRevision(ctx, CreateRevisionInput{TrackID: 2})
		require.NoError(t, err)

		err = svc.SetActiveRevision(ctx, 1, theirs.ID)
		assert.ErrorIs(t, err, apperr.ErrNotFound)

		// Pointer unchanged by the failed call.
		track, err := tr.GetTrackByID(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, mine.ID, *track.ActiveRevisionID)
	})

	t.Run("rejects an unknown revision", func(t *testing.T) {
		svc, _, _ := newTestService(&model.Track{ID: 1, SongID: 1})

		err := svc.SetActiveRevision(ctx, 1, 404)
		assert.ErrorIs(t, err, apperr.ErrNotFound)
	})
}

func TestListRevisions(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(&model.Track{ID: 1, SongID: 1})

	for i := 0; i < 3; i++ {
		_, err := svc.CreateRevision(ctx, CreateRevisionInput{TrackID: 1})
		require.NoError(t, err)
	}

	revs, err := svc.ListRevisions(ctx, 1)
	require.NoError(t, err)
	require.Len(t, revs, 3)
	for i, rev := range revs {
		assert.Equal(t, int64(i+1), rev.RevisionNumber)
	}

	_, err = svc.ListRevisions(ctx, 2)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}
