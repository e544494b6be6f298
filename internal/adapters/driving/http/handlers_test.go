package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/quarry-labs/quarry-core/internal/core/domain"
	"github.com/quarry-labs/quarry-core/internal/core/ports/driving"
)

// Mock services. Unset functions fail loudly so a test cannot silently
// exercise a path it did not stub.

type mockAuthService struct {
	authenticateFn  func(ctx context.Context, req domain.LoginRequest) (*domain.LoginResponse, error)
	validateTokenFn func(ctx context.Context, token string) (*domain.AuthContext, error)
	refreshTokenFn  func(ctx context.Context, req domain.RefreshRequest) (*domain.LoginResponse, error)
	logoutFn        func(ctx context.Context, token string) error
}

func (m *mockAuthService) Authenticate(ctx context.Context, req domain.LoginRequest) (*domain.LoginResponse, error) {
	if m.authenticateFn != nil {
		return m.authenticateFn(ctx, req)
	}
	return nil, errors.New("not implemented")
}

func (m *mockAuthService) ValidateToken(ctx context.Context, token string) (*domain.AuthContext, error) {
	if m.validateTokenFn != nil {
		return m.validateTokenFn(ctx, token)
	}
	return nil, errors.New("not implemented")
}

func (m *mockAuthService) RefreshToken(ctx context.Context, req domain.RefreshRequest) (*domain.LoginResponse, error) {
	if m.refreshTokenFn != nil {
		return m.refreshTokenFn(ctx, req)
	}
	return nil, errors.New("not implemented")
}

func (m *mockAuthService) Logout(ctx context.Context, token string) error {
	if m.logoutFn != nil {
		return m.logoutFn(ctx, token)
	}
	return nil
}

func (m *mockAuthService) LogoutAll(ctx context.Context, userID string) error {
	return nil
}

func (m *mockAuthService) ChangePassword(ctx context.Context, userID string, req domain.ChangePasswordRequest) error {
	return nil
}

type mockUserService struct {
	setupFn  func(ctx context.Context, req driving.SetupRequest) (*driving.SetupResponse, error)
	createFn func(ctx context.Context, tenantID string, req driving.CreateUserRequest) (*domain.User, error)
	getFn    func(ctx context.Context, id string) (*domain.User, error)
	listFn   func(ctx context.Context, tenantID string) ([]*domain.User, error)
	deleteFn func(ctx context.Context, id string) error
}

func (m *mockUserService) Setup(ctx context.Context, req driving.SetupRequest) (*driving.SetupResponse, error) {
	if m.setupFn != nil {
		return m.setupFn(ctx, req)
	}
	return nil, errors.New("not implemented")
}

func (m *mockUserService) Create(ctx context.Context, tenantID string, req driving.CreateUserRequest) (*domain.User, error) {
	if m.createFn != nil {
		return m.createFn(ctx, tenantID, req)
	}
	return nil, errors.New("not implemented")
}

func (m *mockUserService) Get(ctx context.Context, id string) (*domain.User, error) {
	if m.getFn != nil {
		return m.getFn(ctx, id)
	}
	return nil, errors.New("not implemented")
}

func (m *mockUserService) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return nil, errors.New("not implemented")
}

func (m *mockUserService) List(ctx context.Context, tenantID string) ([]*domain.User, error) {
	if m.listFn != nil {
		return m.listFn(ctx, tenantID)
	}
	return nil, errors.New("not implemented")
}

func (m *mockUserService) Update(ctx context.Context, id string, req driving.UpdateUserRequest) (*domain.User, error) {
	return nil, errors.New("not implemented")
}

func (m *mockUserService) Delete(ctx context.Context, id string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id)
	}
	return errors.New("not implemented")
}

func (m *mockUserService) SetPassword(ctx context.Context, id string, password string) error {
	return nil
}

type mockSearchService struct {
	searchFn  func(ctx context.Context, tenantID, userID, query string, opts domain.SearchOptions) (*domain.SearchResult, error)
	suggestFn func(ctx context.Context, tenantID, prefix string, limit int) ([]domain.SearchSuggestion, error)
	historyFn func(ctx context.Context, tenantID, userID string, limit int) ([]*domain.SearchEvent, error)
}

func (m *mockSearchService) Search(ctx context.Context, tenantID, userID, query string, opts domain.SearchOptions) (*domain.SearchResult, error) {
	if m.searchFn != nil {
		return m.searchFn(ctx, tenantID, userID, query, opts)
	}
	return nil, errors.New("not implemented")
}

func (m *mockSearchService) Suggest(ctx context.Context, tenantID, prefix string, limit int) ([]domain.SearchSuggestion, error) {
	if m.suggestFn != nil {
		return m.suggestFn(ctx, tenantID, prefix, limit)
	}
	return nil, errors.New("not implemented")
}

func (m *mockSearchService) History(ctx context.Context, tenantID, userID string, limit int) ([]*domain.SearchEvent, error) {
	if m.historyFn != nil {
		return m.historyFn(ctx, tenantID, userID, limit)
	}
	return nil, errors.New("not implemented")
}

// Request helpers

// jsonRequest builds a request whose body is v marshalled to JSON, or the
// raw string when v is a string (for malformed-body cases).
func jsonRequest(t *testing.T, method, path string, v interface{}) *http.Request {
	t.Helper()
	var body *bytes.Buffer
	switch payload := v.(type) {
	case nil:
		body = &bytes.Buffer{}
	case string:
		body = bytes.NewBufferString(payload)
	default:
		raw, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal request body: %v", err)
		}
		body = bytes.NewBuffer(raw)
	}
	return httptest.NewRequest(method, path, body)
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder, dst interface{}) {
	t.Helper()
	if err := json.NewDecoder(rr.Body).Decode(dst); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
}

// withAuthContext attaches an authenticated tenant member to the request
func withAuthContext(req *http.Request, authCtx *domain.AuthContext) *http.Request {
	ctx := context.WithValue(req.Context(), authContextKey, authCtx)
	return req.WithContext(ctx)
}

func memberAuthContext() *domain.AuthContext {
	return &domain.AuthContext{
		UserID:   "user-1",
		Email:    "member@example.com",
		Role:     domain.RoleMember,
		TenantID: "tenant-1",
	}
}

func adminAuthContext() *domain.AuthContext {
	return &domain.AuthContext{
		UserID:   "admin-1",
		Email:    "admin@example.com",
		Role:     domain.RoleAdmin,
		TenantID: "tenant-1",
	}
}

// Health endpoints

func TestHealthHandler(t *testing.T) {
	server := &Server{version: "test"}

	rr := httptest.NewRecorder()
	server.handleHealth(rr, httptest.NewRequest("GET", "/health", nil))

	if rr.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rr.Code)
	}
	var response map[string]string
	decodeBody(t, rr, &response)
	if response["status"] != "ok" {
		t.Errorf("expected status 'ok', got %s", response["status"])
	}
}

func TestReadyHandler(t *testing.T) {
	server := &Server{version: "test"}

	rr := httptest.NewRecorder()
	server.handleReady(rr, httptest.NewRequest("GET", "/ready", nil))

	if rr.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rr.Code)
	}
	var response map[string]string
	decodeBody(t, rr, &response)
	if response["status"] != "ready" {
		t.Errorf("expected status 'ready', got %s", response["status"])
	}
}

type failingPinger struct{ err error }

func (f *failingPinger) Ping(ctx context.Context) error { return f.err }

func TestReadyHandler_DatabaseDown(t *testing.T) {
	server := &Server{
		version: "test",
		db:      &failingPinger{err: errors.New("connection refused")},
	}

	rr := httptest.NewRecorder()
	server.handleReady(rr, httptest.NewRequest("GET", "/ready", nil))

	if rr.Code != http.StatusServiceUnavailable {
		t.Errorf("expected status 503, got %d", rr.Code)
	}

	var response map[string]interface{}
	decodeBody(t, rr, &response)
	if response["status"] != "not ready" {
		t.Errorf("expected status 'not ready', got %v", response["status"])
	}
	checks, ok := response["checks"].(map[string]interface{})
	if !ok {
		t.Fatal("expected checks in response")
	}
	if checks["database"] != "connection refused" {
		t.Errorf("expected database check failure, got %v", checks["database"])
	}
}

func TestVersionHandler(t *testing.T) {
	server := &Server{version: "1.2.3"}

	rr := httptest.NewRecorder()
	server.handleVersion(rr, httptest.NewRequest("GET", "/version", nil))

	if rr.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rr.Code)
	}
	var response map[string]string
	decodeBody(t, rr, &response)
	if response["version"] != "1.2.3" {
		t.Errorf("expected version '1.2.3', got %s", response["version"])
	}
}

func TestWriteJSON(t *testing.T) {
	rr := httptest.NewRecorder()
	writeJSON(rr, http.StatusCreated, map[string]string{"foo": "bar"})

	if rr.Code != http.StatusCreated {
		t.Errorf("expected status 201, got %d", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected Content-Type application/json, got %s", ct)
	}
	var response map[string]string
	decodeBody(t, rr, &response)
	if response["foo"] != "bar" {
		t.Errorf("expected foo 'bar', got %s", response["foo"])
	}
}

func TestWriteError(t *testing.T) {
	rr := httptest.NewRecorder()
	writeError(rr, http.StatusBadRequest, "invalid input")

	if rr.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", rr.Code)
	}
	var response map[string]string
	decodeBody(t, rr, &response)
	if response["error"] != "invalid input" {
		t.Errorf("expected error 'invalid input', got %s", response["error"])
	}
}

// Authentication handlers

func TestHandleLogin(t *testing.T) {
	expiresAt := time.Now().Add(1 * time.Hour)
	okResponse := &domain.LoginResponse{
		Token:        "test-token",
		RefreshToken: "refresh-token",
		ExpiresAt:    expiresAt,
		User: &domain.UserSummary{
			ID:    "user-1",
			Email: "test@example.com",
			Name:  "Test User",
			Role:  domain.RoleAdmin,
		},
	}

	tests := []struct {
		name       string
		body       interface{}
		authErr    error
		wantStatus int
		wantError  string
	}{
		{
			name:       "success",
			body:       domain.LoginRequest{Email: "test@example.com", Password: "password123"},
			wantStatus: http.StatusOK,
		},
		{
			name:       "invalid JSON body",
			body:       "invalid json",
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "invalid credentials",
			body:       domain.LoginRequest{Email: "wrong@example.com", Password: "wrongpass"},
			authErr:    domain.ErrInvalidCredentials,
			wantStatus: http.StatusUnauthorized,
			wantError:  "invalid credentials",
		},
		{
			name:       "wrapped credential error still maps to 401",
			body:       domain.LoginRequest{Email: "a@b.c", Password: "x"},
			authErr:    errors.Join(errors.New("authenticate"), domain.ErrInvalidCredentials),
			wantStatus: http.StatusUnauthorized,
			wantError:  "invalid credentials",
		},
		{
			name:       "disabled account",
			body:       domain.LoginRequest{Email: "disabled@example.com", Password: "password"},
			authErr:    domain.ErrUnauthorized,
			wantStatus: http.StatusUnauthorized,
			wantError:  "account disabled",
		},
		{
			name:       "internal failure",
			body:       domain.LoginRequest{Email: "test@example.com", Password: "password"},
			authErr:    errors.New("database connection failed"),
			wantStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := &Server{authService: &mockAuthService{
				authenticateFn: func(ctx context.Context, req domain.LoginRequest) (*domain.LoginResponse, error) {
					if tt.authErr != nil {
						return nil, tt.authErr
					}
					return okResponse, nil
				},
			}}

			rr := httptest.NewRecorder()
			server.handleLogin(rr, jsonRequest(t, "POST", "/api/v1/auth/login", tt.body))

			if rr.Code != tt.wantStatus {
				t.Errorf("expected status %d, got %d", tt.wantStatus, rr.Code)
			}
			if tt.wantStatus == http.StatusOK {
				var response domain.LoginResponse
				decodeBody(t, rr, &response)
				if response.Token != "test-token" {
					t.Errorf("expected token 'test-token', got %s", response.Token)
				}
				if response.User.Email != "test@example.com" {
					t.Errorf("expected email 'test@example.com', got %s", response.User.Email)
				}
			}
			if tt.wantError != "" {
				var response map[string]string
				decodeBody(t, rr, &response)
				if response["error"] != tt.wantError {
					t.Errorf("expected error %q, got %q", tt.wantError, response["error"])
				}
			}
		})
	}
}

func TestHandleRefresh_Success(t *testing.T) {
	server := &Server{authService: &mockAuthService{
		refreshTokenFn: func(ctx context.Context, req domain.RefreshRequest) (*domain.LoginResponse, error) {
			return &domain.LoginResponse{
				Token:        "new-token",
				RefreshToken: "new-refresh-token",
				ExpiresAt:    time.Now().Add(1 * time.Hour),
				User:         &domain.UserSummary{ID: "user-1", Email: "test@example.com"},
			}, nil
		},
	}}

	rr := httptest.NewRecorder()
	req := jsonRequest(t, "POST", "/api/v1/auth/refresh", domain.RefreshRequest{RefreshToken: "valid-refresh-token"})
	server.handleRefresh(rr, req)

	if rr.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rr.Code)
	}
	var response domain.LoginResponse
	decodeBody(t, rr, &response)
	if response.Token != "new-token" {
		t.Errorf("expected new token, got %s", response.Token)
	}
}

func TestHandleRefresh_InvalidToken(t *testing.T) {
	server := &Server{authService: &mockAuthService{
		refreshTokenFn: func(ctx context.Context, req domain.RefreshRequest) (*domain.LoginResponse, error) {
			return nil, domain.ErrTokenExpired
		},
	}}

	rr := httptest.NewRecorder()
	req := jsonRequest(t, "POST", "/api/v1/auth/refresh", domain.RefreshRequest{RefreshToken: "invalid-token"})
	server.handleRefresh(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Errorf("expected status 401, got %d", rr.Code)
	}
}

func TestHandleLogout_NoToken(t *testing.T) {
	// No bearer token is still a successful logout.
	server := &Server{}

	rr := httptest.NewRecorder()
	server.handleLogout(rr, httptest.NewRequest("POST", "/api/v1/auth/logout", nil))

	if rr.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rr.Code)
	}
}

func TestHandleLogout_WithToken(t *testing.T) {
	logoutCalled := false
	server := &Server{authService: &mockAuthService{
		logoutFn: func(ctx context.Context, token string) error {
			logoutCalled = true
			if token != "valid-token" {
				return errors.New("invalid token")
			}
			return nil
		},
	}}

	req := httptest.NewRequest("POST", "/api/v1/auth/logout", nil)
	req.Header.Set("Authorization", "Bearer valid-token")
	rr := httptest.NewRecorder()
	server.handleLogout(rr, req)

	if rr.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rr.Code)
	}
	if !logoutCalled {
		t.Error("logout should have been called")
	}
}

// Setup handler

func TestHandleSetup(t *testing.T) {
	validRequest := driving.SetupRequest{
		TenantName: "Acme GmbH",
		Email:      "admin@example.com",
		Password:   "password123",
		Name:       "Admin User",
	}

	tests := []struct {
		name       string
		body       interface{}
		setupErr   error
		wantStatus int
	}{
		{"success", validRequest, nil, http.StatusCreated},
		{"missing fields", driving.SetupRequest{}, domain.ErrInvalidInput, http.StatusBadRequest},
		{"already complete", validRequest, domain.ErrForbidden, http.StatusForbidden},
		{"internal failure", validRequest, errors.New("db down"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := &Server{userService: &mockUserService{
				setupFn: func(ctx context.Context, req driving.SetupRequest) (*driving.SetupResponse, error) {
					if tt.setupErr != nil {
						return nil, tt.setupErr
					}
					return &driving.SetupResponse{
						User: &domain.User{
							ID:       "user-1",
							TenantID: "tenant-1",
							Email:    req.Email,
							Name:     req.Name,
							Role:     domain.RoleAdmin,
						},
						Message: "Setup complete",
					}, nil
				},
			}}

			rr := httptest.NewRecorder()
			server.handleSetup(rr, jsonRequest(t, "POST", "/api/v1/setup", tt.body))

			if rr.Code != tt.wantStatus {
				t.Errorf("expected status %d, got %d", tt.wantStatus, rr.Code)
			}
			if tt.wantStatus == http.StatusCreated {
				var response driving.SetupResponse
				decodeBody(t, rr, &response)
				if response.User.Email != "admin@example.com" {
					t.Errorf("expected email 'admin@example.com', got %s", response.User.Email)
				}
			}
		})
	}
}

// User handlers

func TestHandleGetMe_Success(t *testing.T) {
	server := &Server{userService: &mockUserService{
		getFn: func(ctx context.Context, id string) (*domain.User, error) {
			return &domain.User{
				ID:       id,
				TenantID: "tenant-1",
				Email:    "member@example.com",
				Name:     "Test User",
				Role:     domain.RoleMember,
				Active:   true,
			}, nil
		},
	}}

	req := withAuthContext(httptest.NewRequest("GET", "/api/v1/me", nil), memberAuthContext())
	rr := httptest.NewRecorder()
	server.handleGetMe(rr, req)

	if rr.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rr.Code)
	}
	var response domain.UserSummary
	decodeBody(t, rr, &response)
	if response.Email != "member@example.com" {
		t.Errorf("expected email 'member@example.com', got %s", response.Email)
	}
}

func TestHandleGetMe_NoAuthContext(t *testing.T) {
	server := &Server{}

	rr := httptest.NewRecorder()
	server.handleGetMe(rr, httptest.NewRequest("GET", "/api/v1/me", nil))

	if rr.Code != http.StatusUnauthorized {
		t.Errorf("expected status 401, got %d", rr.Code)
	}
}

func TestHandleListUsers_Success(t *testing.T) {
	var gotTenantID string
	server := &Server{userService: &mockUserService{
		listFn: func(ctx context.Context, tenantID string) ([]*domain.User, error) {
			gotTenantID = tenantID
			return []*domain.User{
				{ID: "user-1", TenantID: tenantID, Email: "user1@example.com", Role: domain.RoleAdmin, Active: true},
				{ID: "user-2", TenantID: tenantID, Email: "user2@example.com", Role: domain.RoleMember, Active: true},
			}, nil
		},
	}}

	req := withAuthContext(httptest.NewRequest("GET", "/api/v1/users", nil), adminAuthContext())
	rr := httptest.NewRecorder()
	server.handleListUsers(rr, req)

	if rr.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rr.Code)
	}
	if gotTenantID != "tenant-1" {
		t.Errorf("expected list scoped to tenant-1, got %q", gotTenantID)
	}
	var response []*domain.UserSummary
	decodeBody(t, rr, &response)
	if len(response) != 2 {
		t.Errorf("expected 2 users, got %d", len(response))
	}
}

func TestHandleCreateUser(t *testing.T) {
	validRequest := driving.CreateUserRequest{
		Email:    "newuser@example.com",
		Password: "password123",
		Name:     "New User",
		Role:     domain.RoleMember,
	}

	tests := []struct {
		name       string
		body       interface{}
		createErr  error
		wantStatus int
	}{
		{"success", validRequest, nil, http.StatusCreated},
		{"duplicate email", validRequest, domain.ErrAlreadyExists, http.StatusConflict},
		{"invalid JSON body", "invalid json", nil, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := &Server{userService: &mockUserService{
				createFn: func(ctx context.Context, tenantID string, req driving.CreateUserRequest) (*domain.User, error) {
					if tt.createErr != nil {
						return nil, tt.createErr
					}
					return &domain.User{
						ID:       "user-new",
						TenantID: tenantID,
						Email:    req.Email,
						Name:     req.Name,
						Role:     req.Role,
						Active:   true,
					}, nil
				},
			}}

			req := withAuthContext(jsonRequest(t, "POST", "/api/v1/users", tt.body), adminAuthContext())
			rr := httptest.NewRecorder()
			server.handleCreateUser(rr, req)

			if rr.Code != tt.wantStatus {
				t.Errorf("expected status %d, got %d", tt.wantStatus, rr.Code)
			}
			if tt.wantStatus == http.StatusCreated {
				var response domain.UserSummary
				decodeBody(t, rr, &response)
				if response.Email != "newuser@example.com" {
					t.Errorf("expected email 'newuser@example.com', got %s", response.Email)
				}
			}
		})
	}
}

func TestHandleGetUser_Success(t *testing.T) {
	server := &Server{userService: &mockUserService{
		getFn: func(ctx context.Context, id string) (*domain.User, error) {
			return &domain.User{
				ID:       id,
				TenantID: "tenant-1",
				Email:    "user@example.com",
				Role:     domain.RoleMember,
				Active:   true,
			}, nil
		},
	}}

	req := httptest.NewRequest("GET", "/api/v1/users/user-2", nil)
	req.SetPathValue("id", "user-2")
	req = withAuthContext(req, adminAuthContext())
	rr := httptest.NewRecorder()
	server.handleGetUser(rr, req)

	if rr.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rr.Code)
	}
}

func TestHandleGetUser_OtherTenant(t *testing.T) {
	// A user from another tenant must be indistinguishable from a missing one
	server := &Server{userService: &mockUserService{
		getFn: func(ctx context.Context, id string) (*domain.User, error) {
			return &domain.User{
				ID:       id,
				TenantID: "tenant-other",
				Email:    "user@other.example.com",
				Role:     domain.RoleMember,
				Active:   true,
			}, nil
		},
	}}

	req := httptest.NewRequest("GET", "/api/v1/users/user-9", nil)
	req.SetPathValue("id", "user-9")
	req = withAuthContext(req, adminAuthContext())
	rr := httptest.NewRecorder()
	server.handleGetUser(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Errorf("expected status 404 for cross-tenant access, got %d", rr.Code)
	}
}

func TestHandleDeleteUser_Success(t *testing.T) {
	server := &Server{userService: &mockUserService{
		getFn: func(ctx context.Context, id string) (*domain.User, error) {
			return &domain.User{ID: id, TenantID: "tenant-1", Role: domain.RoleMember}, nil
		},
		deleteFn: func(ctx context.Context, id string) error {
			if id != "user-1" {
				return domain.ErrNotFound
			}
			return nil
		},
	}}

	req := httptest.NewRequest("DELETE", "/api/v1/users/user-1", nil)
	req.SetPathValue("id", "user-1")
	req = withAuthContext(req, adminAuthContext())
	rr := httptest.NewRecorder()
	server.handleDeleteUser(rr, req)

	if rr.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rr.Code)
	}
}

func TestHandleDeleteUser_NotFound(t *testing.T) {
	server := &Server{userService: &mockUserService{
		getFn: func(ctx context.Context, id string) (*domain.User, error) {
			return nil, domain.ErrNotFound
		},
	}}

	req := httptest.NewRequest("DELETE", "/api/v1/users/nonexistent", nil)
	req.SetPathValue("id", "nonexistent")
	req = withAuthContext(req, adminAuthContext())
	rr := httptest.NewRecorder()
	server.handleDeleteUser(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", rr.Code)
	}
}

func TestHandleDeleteUser_MissingID(t *testing.T) {
	server := &Server{}

	req := withAuthContext(httptest.NewRequest("DELETE", "/api/v1/users/", nil), adminAuthContext())
	rr := httptest.NewRecorder()
	server.handleDeleteUser(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", rr.Code)
	}
}

func TestHandleDeleteUser_OtherTenant(t *testing.T) {
	deleteCalled := false
	server := &Server{userService: &mockUserService{
		getFn: func(ctx context.Context, id string) (*domain.User, error) {
			return &domain.User{ID: id, TenantID: "tenant-other", Role: domain.RoleMember}, nil
		},
		deleteFn: func(ctx context.Context, id string) error {
			deleteCalled = true
			return nil
		},
	}}

	req := httptest.NewRequest("DELETE", "/api/v1/users/user-9", nil)
	req.SetPathValue("id", "user-9")
	req = withAuthContext(req, adminAuthContext())
	rr := httptest.NewRecorder()
	server.handleDeleteUser(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Errorf("expected status 404 for cross-tenant delete, got %d", rr.Code)
	}
	if deleteCalled {
		t.Error("delete should not reach the service for cross-tenant access")
	}
}

// Search handlers

func TestHandleSearch_Success(t *testing.T) {
	var gotTenantID, gotUserID string
	server := &Server{searchService: &mockSearchService{
		searchFn: func(ctx context.Context, tenantID, userID, query string, opts domain.SearchOptions) (*domain.SearchResult, error) {
			gotTenantID = tenantID
			gotUserID = userID
			return &domain.SearchResult{
				Query:      query,
				Strategy:   domain.StrategyHybrid,
				Results:    []domain.RankedResult{},
				TotalCount: 10,
				Took:       50 * time.Millisecond,
			}, nil
		},
	}}

	body := searchRequest{Query: "invoice from acme", Limit: 20}
	req := withAuthContext(jsonRequest(t, "POST", "/api/v1/search", body), memberAuthContext())
	rr := httptest.NewRecorder()
	server.handleSearch(rr, req)

	if rr.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rr.Code)
	}
	if gotTenantID != "tenant-1" {
		t.Errorf("expected tenant scope from auth context, got %q", gotTenantID)
	}
	if gotUserID != "user-1" {
		t.Errorf("expected user from auth context, got %q", gotUserID)
	}

	var response domain.SearchResult
	decodeBody(t, rr, &response)
	if response.Query != "invoice from acme" {
		t.Errorf("expected query 'invoice from acme', got %s", response.Query)
	}
}

func TestHandleSearch_NoAuthContext(t *testing.T) {
	server := &Server{}

	req := jsonRequest(t, "POST", "/api/v1/search", searchRequest{Query: "invoice"})
	rr := httptest.NewRecorder()
	server.handleSearch(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Errorf("expected status 401, got %d", rr.Code)
	}
}

func TestHandleSearch_InvalidJSON(t *testing.T) {
	server := &Server{}

	req := withAuthContext(jsonRequest(t, "POST", "/api/v1/search", "invalid json"), memberAuthContext())
	rr := httptest.NewRecorder()
	server.handleSearch(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", rr.Code)
	}
}

func TestHandleSearch_EmptyQuery(t *testing.T) {
	server := &Server{}

	req := withAuthContext(jsonRequest(t, "POST", "/api/v1/search", searchRequest{}), memberAuthContext())
	rr := httptest.NewRecorder()
	server.handleSearch(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", rr.Code)
	}
	var response map[string]string
	decodeBody(t, rr, &response)
	if response["error"] != "query is required" {
		t.Errorf("expected error 'query is required', got %s", response["error"])
	}
}

func TestHandleSearch_ExecutionFailure(t *testing.T) {
	server := &Server{searchService: &mockSearchService{
		searchFn: func(ctx context.Context, tenantID, userID, query string, opts domain.SearchOptions) (*domain.SearchResult, error) {
			return nil, &domain.ExecutionError{Err: errors.New("search backend returned 503")}
		},
	}}

	req := withAuthContext(jsonRequest(t, "POST", "/api/v1/search", searchRequest{Query: "invoice"}), memberAuthContext())
	rr := httptest.NewRecorder()
	server.handleSearch(rr, req)

	if rr.Code != http.StatusBadGateway {
		t.Errorf("expected status 502, got %d", rr.Code)
	}
}

func TestHandleSuggest_Success(t *testing.T) {
	server := &Server{searchService: &mockSearchService{
		suggestFn: func(ctx context.Context, tenantID, prefix string, limit int) ([]domain.SearchSuggestion, error) {
			if prefix != "inv" {
				t.Errorf("expected prefix 'inv', got %q", prefix)
			}
			if limit != 5 {
				t.Errorf("expected limit 5, got %d", limit)
			}
			return []domain.SearchSuggestion{
				{Text: "invoice acme", Score: 12},
				{Text: "invoice 2024", Score: 7},
			}, nil
		},
	}}

	req := withAuthContext(httptest.NewRequest("GET", "/api/v1/search/suggest?q=inv&limit=5", nil), memberAuthContext())
	rr := httptest.NewRecorder()
	server.handleSuggest(rr, req)

	if rr.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rr.Code)
	}
	var response []domain.SearchSuggestion
	decodeBody(t, rr, &response)
	if len(response) != 2 {
		t.Errorf("expected 2 suggestions, got %d", len(response))
	}
}

func TestHandleSuggest_EmptyResultIsArray(t *testing.T) {
	server := &Server{searchService: &mockSearchService{
		suggestFn: func(ctx context.Context, tenantID, prefix string, limit int) ([]domain.SearchSuggestion, error) {
			return nil, nil
		},
	}}

	req := withAuthContext(httptest.NewRequest("GET", "/api/v1/search/suggest?q=zzz", nil), memberAuthContext())
	rr := httptest.NewRecorder()
	server.handleSuggest(rr, req)

	if rr.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rr.Code)
	}
	if body := rr.Body.String(); body != "[]\n" {
		t.Errorf("expected empty JSON array, got %q", body)
	}
}

func TestHandleHistory_Success(t *testing.T) {
	server := &Server{searchService: &mockSearchService{
		historyFn: func(ctx context.Context, tenantID, userID string, limit int) ([]*domain.SearchEvent, error) {
			if tenantID != "tenant-1" || userID != "user-1" {
				t.Errorf("expected scoping from auth context, got tenant=%q user=%q", tenantID, userID)
			}
			return []*domain.SearchEvent{
				{ID: "evt-1", TenantID: tenantID, UserID: userID, Query: "invoice acme", Strategy: domain.StrategyExact, ResultCount: 3},
			}, nil
		},
	}}

	req := withAuthContext(httptest.NewRequest("GET", "/api/v1/search/history?limit=10", nil), memberAuthContext())
	rr := httptest.NewRecorder()
	server.handleHistory(rr, req)

	if rr.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rr.Code)
	}
	var response []*domain.SearchEvent
	decodeBody(t, rr, &response)
	if len(response) != 1 {
		t.Errorf("expected 1 event, got %d", len(response))
	}
	if response[0].Query != "invoice acme" {
		t.Errorf("expected query 'invoice acme', got %s", response[0].Query)
	}
}
