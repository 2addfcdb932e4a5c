package gin

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/lborres/portero"
)

// mockAuthHandler is a test fake implementing portero.AuthHandler.
type mockAuthHandler struct {
	registerErr     error
	signInErr       error
	delegatedInput  portero.DelegatedInput
	delegatedErr    error
	signOutArtifact string
	signOutErr      error
	signOutAllCount int
	sessionArtifact string
	sessionErr      error
	sessionData     *portero.SessionData
	authResult      *portero.AuthResult
}

func (m *mockAuthHandler) Register(ctx context.Context, input portero.RegisterInput, ipAddress, userAgent string) (*portero.AuthResult, error) {
	if m.registerErr != nil {
		return nil, m.registerErr
	}
	return m.authResult, nil
}

func (m *mockAuthHandler) SignIn(ctx context.Context, input portero.SignInInput, ipAddress, userAgent string) (*portero.AuthResult, error) {
	if m.signInErr != nil {
		return nil, m.signInErr
	}
	return m.authResult, nil
}

func (m *mockAuthHandler) SignInDelegated(ctx context.Context, input portero.DelegatedInput, ipAddress, userAgent string) (*portero.AuthResult, error) {
	m.delegatedInput = input
	if m.delegatedErr != nil {
		return nil, m.delegatedErr
	}
	return m.authResult, nil
}

func (m *mockAuthHandler) SignOut(ctx context.Context, artifact string) error {
	m.signOutArtifact = artifact
	return m.signOutErr
}

func (m *mockAuthHandler) SignOutEverywhere(ctx context.Context, artifact string) (int, error) {
	return m.signOutAllCount, nil
}

func (m *mockAuthHandler) Session(ctx context.Context, artifact string) (*portero.SessionData, error) {
	m.sessionArtifact = artifact
	if m.sessionErr != nil {
		return nil, m.sessionErr
	}
	return m.sessionData, nil
}

var _ portero.AuthHandler = (*mockAuthHandler)(nil)

func newTestEngine(t *testing.T, mock *mockAuthHandler) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	adapter := New(engine)
	if err := adapter.RegisterRoutes(mock, "/api/auth"); err != nil {
		t.Fatalf("RegisterRoutes() error = %v", err)
	}
	return engine
}

func authResultFixture() *portero.AuthResult {
	return &portero.AuthResult{
		Account:  &portero.Account{ID: "acc-1", Email: "alice@example.com", Status: portero.AccountActive},
		Session:  &portero.Session{ID: "sess-1", AccountID: "acc-1"},
		Artifact: "signed-artifact",
	}
}

// Requirement: each route translates handler outcomes to HTTP statuses the
// same way the fiber adapter does.
func TestRoutes_StatusMapping(t *testing.T) {
	tests := []struct {
		name       string
		method     string
		path       string
		body       string
		header     string
		setupMock  func(*mockAuthHandler)
		wantStatus int
	}{
		{
			name:       "sign-up created",
			method:     http.MethodPost,
			path:       "/api/auth/sign-up",
			body:       `{"email":"alice@example.com","password":"SecurePass123!"}`,
			setupMock:  func(m *mockAuthHandler) { m.authResult = authResultFixture() },
			wantStatus: http.StatusCreated,
		},
		{
			name:       "sign-up conflict",
			method:     http.MethodPost,
			path:       "/api/auth/sign-up",
			body:       `{"email":"alice@example.com","password":"SecurePass123!"}`,
			setupMock:  func(m *mockAuthHandler) { m.registerErr = portero.ErrAccountExists },
			wantStatus: http.StatusConflict,
		},
		{
			name:       "sign-up invalid body",
			method:     http.MethodPost,
			path:       "/api/auth/sign-up",
			body:       `{not json`,
			setupMock:  func(m *mockAuthHandler) {},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "sign-in unauthorized",
			method:     http.MethodPost,
			path:       "/api/auth/sign-in",
			body:       `{"email":"alice@example.com","password":"wrong"}`,
			setupMock:  func(m *mockAuthHandler) { m.signInErr = portero.ErrInvalidCredentials },
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "sign-in store outage",
			method:     http.MethodPost,
			path:       "/api/auth/sign-in",
			body:       `{"email":"alice@example.com","password":"SecurePass123!"}`,
			setupMock:  func(m *mockAuthHandler) { m.signInErr = portero.ErrStoreUnavailable },
			wantStatus: http.StatusServiceUnavailable,
		},
		{
			name:       "session without header",
			method:     http.MethodGet,
			path:       "/api/auth/session",
			setupMock:  func(m *mockAuthHandler) {},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:   "session revoked collapses to unauthorized",
			method: http.MethodGet,
			path:   "/api/auth/session",
			header: "Bearer the-artifact",
			setupMock: func(m *mockAuthHandler) {
				m.sessionErr = portero.ErrSessionRevoked
			},
			wantStatus: http.StatusUnauthorized,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			// Arrange
			mock := &mockAuthHandler{}
			test.setupMock(mock)
			engine := newTestEngine(t, mock)
			var req *http.Request
			if test.body != "" {
				req = httptest.NewRequest(test.method, test.path, strings.NewReader(test.body))
				req.Header.Set("Content-Type", "application/json")
			} else {
				req = httptest.NewRequest(test.method, test.path, nil)
			}
			if test.header != "" {
				req.Header.Set("Authorization", test.header)
			}
			rec := httptest.NewRecorder()

			// Act
			engine.ServeHTTP(rec, req)

			// Assert
			if rec.Code != test.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, test.wantStatus)
			}
		})
	}
}

// Requirement: terminal rejections share one response message.
func TestRoutes_MergedRejectionMessage(t *testing.T) {
	// Arrange
	mock := &mockAuthHandler{sessionErr: portero.ErrSessionExpired}
	engine := newTestEngine(t, mock)
	req := httptest.NewRequest(http.MethodGet, "/api/auth/session", nil)
	req.Header.Set("Authorization", "Bearer the-artifact")
	rec := httptest.NewRecorder()

	// Act
	engine.ServeHTTP(rec, req)

	// Assert
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["error"] != "invalid credentials or session" {
		t.Errorf("error message = %q, want the merged message", body["error"])
	}
}

// Requirement: RequireAuth places the resolved account and session in the
// gin context, and aborts the chain on a dead artifact.
func TestRequireAuth(t *testing.T) {
	tests := []struct {
		name        string
		header      string
		sessionErr  error
		wantStatus  int
		wantReached bool
	}{
		{name: "valid artifact reaches handler", header: "Bearer ok", wantStatus: http.StatusOK, wantReached: true},
		{name: "missing header aborts", wantStatus: http.StatusUnauthorized},
		{name: "dead session aborts", header: "Bearer dead", sessionErr: portero.ErrSessionRevoked, wantStatus: http.StatusUnauthorized},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			// Arrange
			gin.SetMode(gin.TestMode)
			mock := &mockAuthHandler{
				sessionErr: test.sessionErr,
				sessionData: &portero.SessionData{
					Account: &portero.Account{ID: "acc-1"},
					Session: &portero.Session{ID: "sess-1"},
				},
			}
			engine := gin.New()
			adapter := New(engine)
			reached := false
			engine.GET("/protected", adapter.RequireAuth(mock), func(c *gin.Context) {
				reached = true
				account := AccountFromCtx(c)
				session := SessionFromCtx(c)
				if account == nil || session == nil {
					t.Error("context should carry the resolved account and session")
				}
				c.JSON(http.StatusOK, gin.H{"ok": true})
			})

			req := httptest.NewRequest(http.MethodGet, "/protected", nil)
			if test.header != "" {
				req.Header.Set("Authorization", test.header)
			}
			rec := httptest.NewRecorder()

			// Act
			engine.ServeHTTP(rec, req)

			// Assert
			if rec.Code != test.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, test.wantStatus)
			}
			if reached != test.wantReached {
				t.Errorf("handler reached = %v, want %v", reached, test.wantReached)
			}
		})
	}
}

// Requirement: the adapter's provisioning policy overrides the request
// body's value.
func TestRoutes_DelegatedProvisionPolicy(t *testing.T) {
	// Arrange
	gin.SetMode(gin.TestMode)
	mock := &mockAuthHandler{authResult: authResultFixture()}
	engine := gin.New()
	adapter := New(engine)
	adapter.ProvisionDelegated = true
	if err := adapter.RegisterRoutes(mock, "/api/auth"); err != nil {
		t.Fatalf("RegisterRoutes() error = %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/auth/sign-in/delegated",
		strings.NewReader(`{"subject":"idp|new","email":"new@example.com"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	// Act
	engine.ServeHTTP(rec, req)

	// Assert
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if !mock.delegatedInput.Provision {
		t.Error("adapter policy should set Provision on the forwarded input")
	}
}
