package pipeline

import (
	"context"
	"errors"
	"os"
	"sync"

	"cliphub/internal/database"
)

type fakeStore struct {
	mu       sync.Mutex
	clips    map[int64]*database.Clip
	owners   map[int64]*database.User
	setErr   error
	clearErr error
	onSet    func(id int64) // runs before the update is applied
	setCall  int
}

func newFakeStore(ids ...int64) *fakeStore {
	s := &fakeStore{
		clips:  make(map[int64]*database.Clip),
		owners: make(map[int64]*database.User),
	}
	for _, id := range ids {
		s.clips[id] = &database.Clip{ID: id, UserID: 1, Title: "clip"}
		s.owners[id] = &database.User{ID: 1, Username: "alice"}
	}
	return s
}

func (s *fakeStore) GetClip(_ context.Context, id int64) (*database.Clip, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.clips[id]
	if !ok {
		return nil, database.ErrClipNotFound
	}
	cp := *c
	return &cp, nil
}

func (s *fakeStore) SetThumbnailPath(_ context.Context, id int64, path string) (bool, error) {
	if s.onSet != nil {
		s.onSet(id)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setCall++
	if s.setErr != nil {
		return false, s.setErr
	}
	c, ok := s.clips[id]
	if !ok {
		return false, nil
	}
	c.ThumbnailPath = &path
	return true, nil
}

func (s *fakeStore) ClearThumbnailPath(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.clearErr != nil {
		return s.clearErr
	}
	if c, ok := s.clips[id]; ok {
		c.ThumbnailPath = nil
	}
	return nil
}

func (s *fakeStore) GetClipOwner(_ context.Context, id int64) (*database.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.clips[id]; !ok {
		return nil, database.ErrClipNotFound
	}
	u, ok := s.owners[id]
	if !ok {
		return nil, database.ErrUserNotFound
	}
	return u, nil
}

func (s *fakeStore) delete(id int64) {
	s.mu.Lock()
	delete(s.clips, id)
	s.mu.Unlock()
}

func (s *fakeStore) thumbnail(id int64) *string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.clips[id]; ok {
		return c.ThumbnailPath
	}
	return nil
}

type fakeProber struct {
	d   float64
	err error
}

func (p fakeProber) Duration(context.Context, string) (float64, error) {
	return p.d, p.err
}

type fakeExtractor struct {
	mu         sync.Mutex
	fail       bool
	timestamps []float64
	during     func() // runs after the frame is written
}

func (e *fakeExtractor) ExtractFrame(_ context.Context, _, out string, ts float64) bool {
	e.mu.Lock()
	e.timestamps = append(e.timestamps, ts)
	e.mu.Unlock()
	if e.fail {
		return false
	}
	if err := os.WriteFile(out, []byte("frame"), 0o644); err != nil {
		return false
	}
	if e.during != nil {
		e.during()
	}
	return true
}

type fakeResizer struct {
	mu        sync.Mutex
	failWidth int
	calls     []int
}

func (r *fakeResizer) Resize(_, out string, maxW, _ int) error {
	r.mu.Lock()
	r.calls = append(r.calls, maxW)
	r.mu.Unlock()
	if maxW == r.failWidth {
		return errors.New("decoder exploded")
	}
	return os.WriteFile(out, []byte("jpeg"), 0o644)
}

type fakeNotifier struct {
	mu    sync.Mutex
	calls []int64
	err   error
}

func (n *fakeNotifier) Notify(_ context.Context, clip *database.Clip, _ *database.User) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, clip.ID)
	return n.err
}

func (n *fakeNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.calls)
}
