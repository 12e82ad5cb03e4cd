// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync"
	"testing"

	"github.com/desertthunder/plx/internal/models"
	"github.com/desertthunder/plx/internal/services"
	"github.com/desertthunder/plx/internal/shared"
)

// MockService is a test double for [services.Service].
//
// Searches answer from SearchResults keyed by query; unknown queries return no results.
// Every call is recorded so tests can assert on what was sent.
type MockService struct {
	PlatformID    models.Platform
	Playlists     map[string]*models.Playlist
	FetchErr      error
	SearchResults map[string][]models.Track
	SearchErrs    map[string]error
	CreateErr     error
	CreatedID     string
	AddFailIDs    map[string]bool
	AddQuotaAt    string // video or track ID whose add exhausts the quota

	mu           sync.Mutex
	Fetched      []string
	Searches     []string
	Created      []string
	Added        []string
	Descriptions []string
}

func (m *MockService) Platform() models.Platform { return m.PlatformID }

func (m *MockService) FetchPlaylist(ctx context.Context, playlistID string) (*models.Playlist, error) {
	m.mu.Lock()
	m.Fetched = append(m.Fetched, playlistID)
	m.mu.Unlock()

	if m.FetchErr != nil {
		return nil, m.FetchErr
	}
	if pl, ok := m.Playlists[playlistID]; ok {
		return pl, nil
	}
	return nil, shared.NewServiceError(shared.KindNotFound, string(m.PlatformID), "fetch playlist", fmt.Errorf("no playlist %s", playlistID))
}

func (m *MockService) SearchTrack(ctx context.Context, query string) ([]models.Track, error) {
	m.mu.Lock()
	m.Searches = append(m.Searches, query)
	m.mu.Unlock()

	if err := m.SearchErrs[query]; err != nil {
		return nil, err
	}
	if tracks, ok := m.SearchResults[query]; ok {
		return tracks, nil
	}
	return []models.Track{}, nil
}

func (m *MockService) CreatePlaylist(ctx context.Context, name, description string) (string, error) {
	m.mu.Lock()
	m.Created = append(m.Created, name)
	m.Descriptions = append(m.Descriptions, description)
	m.mu.Unlock()

	if m.CreateErr != nil {
		return "", m.CreateErr
	}
	if m.CreatedID == "" {
		return "created-playlist", nil
	}
	return m.CreatedID, nil
}

func (m *MockService) AddTracks(ctx context.Context, playlistID string, trackIDs []string) (services.AddResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var res services.AddResult
	for i, id := range trackIDs {
		m.Added = append(m.Added, id)
		if id == m.AddQuotaAt && id != "" {
			res.Failed += len(trackIDs) - i
			res.FailedIDs = append(res.FailedIDs, trackIDs[i:]...)
			return res, QuotaError(m.PlatformID, "add tracks")
		}
		if m.AddFailIDs[id] {
			res.Failed++
			res.FailedIDs = append(res.FailedIDs, id)
			continue
		}
		res.Succeeded++
	}
	return res, nil
}

// QuotaError builds the error an adapter returns when the platform quota is exhausted.
func QuotaError(platform models.Platform, op string) error {
	return shared.NewServiceError(shared.KindQuotaExceeded, string(platform), op, errors.New("quotaExceeded"))
}

// MockCatalog hands out [MockService] values per platform and records the credentials each was opened with.
type MockCatalog struct {
	Services map[models.Platform]*MockService
	// OpenFunc, when set, replaces the default lookup.
	OpenFunc func(platform models.Platform, creds models.PlatformCredentials) (services.Service, error)

	mu     sync.Mutex
	Opened []models.PlatformCredentials
}

func (c *MockCatalog) Open(ctx context.Context, platform models.Platform, creds models.PlatformCredentials) (services.Service, error) {
	c.mu.Lock()
	c.Opened = append(c.Opened, creds)
	c.mu.Unlock()

	if c.OpenFunc != nil {
		return c.OpenFunc(platform, creds)
	}
	if creds.Empty() {
		return nil, shared.NewServiceError(shared.KindMissingCredentials, string(platform), "connect", errors.New("no credentials"))
	}
	svc, ok := c.Services[platform]
	if !ok {
		return nil, fmt.Errorf("%w: no mock for %s", shared.ErrInvalidArgument, platform)
	}
	return svc, nil
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

func MustGetwd(t *testing.T) string {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Failed to get working directory: %v", err)
	}
	return wd
}

func MustChdir(t *testing.T, dir string) {
	t.Helper()
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Failed to change directory to %s: %v", dir, err)
	}
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func AssertDirExists(t *testing.T, path string) {
	t.Helper()
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		t.Errorf("Directory does not exist: %s", path)
		return
	}
	if !info.IsDir() {
		t.Errorf("Path is not a directory: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
