//go:build e2e

package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/recallware/memspace/internal/api/handlers"
	"github.com/recallware/memspace/internal/domain"
	"github.com/recallware/memspace/internal/repository"
	"github.com/recallware/memspace/internal/server"
	"github.com/recallware/memspace/internal/service"
	"github.com/recallware/memspace/internal/session"
	"github.com/recallware/memspace/internal/testutil"
)

// E2ETestEnv holds all resources needed for E2E tests
type E2ETestEnv struct {
	T            *testing.T
	Ctx          context.Context
	PostgresC    *testutil.PostgresContainer
	Pool         *pgxpool.Pool
	ServerURL    string
	ServerCloser func()
	Transport    *scriptedTransport
	OwnerID      string
	APIToken     string
	HTTPClient   *http.Client
}

// scriptedTransport stands in for the model API. Each call pops the
// next scripted reply; when the script runs out it echoes the prompt
// length so tests fail loudly rather than hang.
type scriptedTransport struct {
	replies []string
}

func (t *scriptedTransport) IsConfigured() bool { return true }

func (t *scriptedTransport) ChatCompletion(ctx context.Context, systemPrompt string, history []domain.ChatMessage) (string, error) {
	if len(t.replies) == 0 {
		return fmt.Sprintf("no scripted reply (prompt was %d chars)", len(systemPrompt)), nil
	}
	reply := t.replies[0]
	t.replies = t.replies[1:]
	return reply, nil
}

// Script queues replies for subsequent chat turns.
func (t *scriptedTransport) Script(replies ...string) {
	t.replies = append(t.replies, replies...)
}

// SetupE2EEnv creates a full E2E test environment with a database
// container and a running server
func SetupE2EEnv(t *testing.T) *E2ETestEnv {
	ctx := context.Background()

	pgC := testutil.NewPostgresContainer(ctx, t)
	pool := testutil.NewTestPool(ctx, t, pgC, "../../migrations")

	port, err := getFreePort()
	if err != nil {
		t.Fatalf("failed to get free port: %v", err)
	}

	transport := &scriptedTransport{}
	serverURL, serverCloser := startServer(t, pool, transport, port)

	env := &E2ETestEnv{
		T:            t,
		Ctx:          ctx,
		PostgresC:    pgC,
		Pool:         pool,
		ServerURL:    serverURL,
		ServerCloser: serverCloser,
		Transport:    transport,
		HTTPClient:   &http.Client{Timeout: 30 * time.Second},
	}

	return env
}

// Cleanup releases all resources
func (e *E2ETestEnv) Cleanup() {
	if e.ServerCloser != nil {
		e.ServerCloser()
	}
	if e.Pool != nil {
		e.Pool.Close()
	}
	if e.PostgresC != nil {
		e.PostgresC.Terminate(e.Ctx)
	}
}

// Bootstrap mints an API key for a test owner directly through the
// auth service, since key issuance over HTTP itself requires a key.
func (e *E2ETestEnv) Bootstrap() {
	e.OwnerID = "e2e-owner"

	authSvc := service.NewAuthService(repository.NewAPIKeyRepository(e.Pool))
	token, _, err := authSvc.CreateAPIKey(e.Ctx, e.OwnerID, "e2e-test-key")
	if err != nil {
		e.T.Fatalf("failed to create API key: %v", err)
	}
	e.APIToken = token
}

// APIResponse represents a standard API response
type APIResponse struct {
	Data  json.RawMessage `json:"data"`
	Error string          `json:"error,omitempty"`
}

// Get performs a GET request
func (e *E2ETestEnv) Get(path, authToken string) (*APIResponse, error) {
	return e.doRequest("GET", path, nil, authToken)
}

// Post performs a POST request
func (e *E2ETestEnv) Post(path string, body interface{}, authToken string) (*APIResponse, error) {
	return e.doRequest("POST", path, body, authToken)
}

// Put performs a PUT request
func (e *E2ETestEnv) Put(path string, body interface{}, authToken string) (*APIResponse, error) {
	return e.doRequest("PUT", path, body, authToken)
}

// Patch performs a PATCH request
func (e *E2ETestEnv) Patch(path string, body interface{}, authToken string) (*APIResponse, error) {
	return e.doRequest("PATCH", path, body, authToken)
}

// Delete performs a DELETE request
func (e *E2ETestEnv) Delete(path, authToken string) (*APIResponse, error) {
	return e.doRequest("DELETE", path, nil, authToken)
}

func (e *E2ETestEnv) doRequest(method, path string, body interface{}, authToken string) (*APIResponse, error) {
	url := e.ServerURL + path

	var reqBody io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal body: %w", err)
		}
		reqBody = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequest(method, url, reqBody)
	if err != nil {
		return nil, err
	}

	if authToken != "" {
		req.Header.Set("Authorization", "Bearer "+authToken)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var apiResp APIResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		if resp.StatusCode >= 400 {
			return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(respBody))
		}
		return nil, err
	}

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, apiResp.Error)
	}

	return &apiResp, nil
}

// startServer starts the HTTP server with all handlers wired against
// the test database, an in-memory session store, and the scripted
// transport.
func startServer(t *testing.T, pool *pgxpool.Pool, transport *scriptedTransport, port int) (string, func()) {
	spaceRepo := repository.NewSpaceRepository(pool)
	factRepo := repository.NewFactRepository(pool)
	noteRepo := repository.NewNoteRepository(pool)
	profileRepo := repository.NewProfileRepository(pool)
	timelineRepo := repository.NewTimelineRepository(pool)
	apiKeyRepo := repository.NewAPIKeyRepository(pool)

	authSvc := service.NewAuthService(apiKeyRepo)
	timelineSvc := service.NewTimelineService(timelineRepo)
	spaceSvc := service.NewSpaceService(spaceRepo)
	factSvc := service.NewFactService(factRepo, timelineSvc)
	noteSvc := service.NewNoteService(noteRepo, factRepo, timelineSvc)
	profileSvc := service.NewProfileService(profileRepo, timelineSvc)
	sessionSvc := service.NewSessionService(session.NewMemoryStore())

	contextBuilder := service.NewContextBuilder(&contextStore{
		spaces:   spaceRepo,
		profiles: profileRepo,
		facts:    factRepo,
		notes:    noteRepo,
		timeline: timelineRepo,
	})

	extractor := service.NewMemoryExtractor(factSvc, noteSvc, profileSvc)
	chatSvc := service.NewChatService(spaceRepo, sessionSvc, contextBuilder, transport, extractor)

	cfg := server.RouterConfig{
		AuthValidator:   authSvc,
		SpaceHandler:    handlers.NewSpaceHandler(spaceSvc),
		ChatHandler:     handlers.NewChatHandler(spaceSvc, chatSvc),
		FactHandler:     handlers.NewFactHandler(spaceSvc, factSvc),
		NoteHandler:     handlers.NewNoteHandler(spaceSvc, noteSvc),
		ProfileHandler:  handlers.NewProfileHandler(spaceSvc, profileSvc),
		TimelineHandler: handlers.NewTimelineHandler(spaceSvc, timelineSvc),
		SessionHandler:  handlers.NewSessionHandler(spaceSvc, sessionSvc),
		AuthHandler:     handlers.NewAuthHandler(authSvc),
	}

	router := server.NewRouter(cfg)
	addr := fmt.Sprintf(":%d", port)

	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			t.Logf("server error: %v", err)
		}
	}()

	serverURL := fmt.Sprintf("http://localhost:%d", port)
	waitForServer(t, serverURL, 10*time.Second)

	return serverURL, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(ctx)
	}
}

func waitForServer(t *testing.T, url string, timeout time.Duration) {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		resp, err := http.Get(url + "/health")
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return
			}
		}
		time.Sleep(100 * time.Millisecond)
	}
	t.Fatalf("server did not start within %v", timeout)
}

func getFreePort() (int, error) {
	addr, err := net.ResolveTCPAddr("tcp", "localhost:0")
	if err != nil {
		return 0, err
	}

	l, err := net.ListenTCP("tcp", addr)
	if err != nil {
		return 0, err
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port, nil
}

// contextStore adapts the repositories to the context builder's read
// surface, mirroring the wiring in the serve command.
type contextStore struct {
	spaces   *repository.SpaceRepository
	profiles *repository.ProfileRepository
	facts    *repository.FactRepository
	notes    *repository.NoteRepository
	timeline *repository.TimelineRepository
}

func (s *contextStore) GetSpace(ctx context.Context, spaceID string) (*domain.Space, error) {
	return s.spaces.GetByID(ctx, spaceID)
}

func (s *contextStore) ListProfile(ctx context.Context, spaceID string) ([]*domain.ProfileEntry, error) {
	return s.profiles.ListBySpace(ctx, spaceID)
}

func (s *contextStore) ListFacts(ctx context.Context, spaceID string) ([]*domain.Fact, error) {
	return s.facts.ListBySpace(ctx, spaceID)
}

func (s *contextStore) ListNotes(ctx context.Context, spaceID string) ([]*domain.Note, error) {
	return s.notes.ListBySpace(ctx, spaceID)
}

func (s *contextStore) ListTimeline(ctx context.Context, spaceID string) ([]*domain.TimelineEntry, error) {
	return s.timeline.ListBySpace(ctx, spaceID)
}
