package pipeline

import (
	"context"
	"sync"
	"time"

	"github.com/SpecGeniusAI/FlareWeather-sub002/internal/directory"
	"github.com/SpecGeniusAI/FlareWeather-sub002/internal/domain"
	"github.com/SpecGeniusAI/FlareWeather-sub002/internal/push"
)

// fakeDirectory serves a fixed population. GetUser reads the live map so
// tests can revoke tokens between phases.
type fakeDirectory struct {
	mu      sync.Mutex
	users   map[string]domain.User
	order   []string
	listErr error
}

func newFakeDirectory(users ...domain.User) *fakeDirectory {
	f := &fakeDirectory{users: make(map[string]domain.User)}
	for _, u := range users {
		f.users[u.ID] = u
		f.order = append(f.order, u.ID)
	}
	return f
}

func (f *fakeDirectory) ListEligibleUsers(_ context.Context, _ time.Time) ([]domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	res := make([]domain.User, 0, len(f.order))
	for _, id := range f.order {
		res = append(res, f.users[id])
	}
	return res, nil
}

func (f *fakeDirectory) GetUser(_ context.Context, id string) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return nil, directory.ErrNotFound
	}
	return &u, nil
}

func (f *fakeDirectory) set(u domain.User) {
	f.mu.Lock()
	f.users[u.ID] = u
	f.mu.Unlock()
}

// fakeGenerator delegates to fn; tests key behavior off the profile,
// which the fixtures set to the user id.
type fakeGenerator struct {
	mu    sync.Mutex
	calls int
	fn    func(loc domain.Location, profile []byte) (*domain.ForecastBundle, error)
}

func (f *fakeGenerator) Generate(_ context.Context, loc domain.Location, profile []byte) (*domain.ForecastBundle, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	return f.fn(loc, profile)
}

// fakeSender records delivery attempts per token.
type fakeSender struct {
	mu       sync.Mutex
	attempts map[string]int
	fail     map[string]error
	delay    time.Duration
}

func newFakeSender() *fakeSender {
	return &fakeSender{attempts: make(map[string]int), fail: make(map[string]error)}
}

func (f *fakeSender) Send(_ context.Context, token string, _ push.Message) error {
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.attempts[token]++
	if err, ok := f.fail[token]; ok {
		return err
	}
	return nil
}

func (f *fakeSender) attemptCount(token string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.attempts[token]
}

func eligibleUser(id string) domain.User {
	return domain.User{
		ID:                   id,
		Location:             &domain.Location{Lat: 52.52, Lon: 13.41},
		PushToken:            "tok-" + id,
		NotificationsEnabled: true,
		LastActiveAt:         time.Now().Add(-time.Hour),
		Profile:              []byte(id),
	}
}

func okBundle(content string) *domain.ForecastBundle {
	return &domain.ForecastBundle{
		Weather: []byte(`{"temp":20}`),
		Content: []byte(content),
	}
}
