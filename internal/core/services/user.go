package services

import (
	"context"
	"strings"
	"time"

	"github.com/quarry-labs/quarry-core/internal/core/domain"
	"github.com/quarry-labs/quarry-core/internal/core/ports/driven"
	"github.com/quarry-labs/quarry-core/internal/core/ports/driving"
)

var _ driving.UserService = (*userService)(nil)

type userService struct {
	userStore    driven.UserStore
	sessionStore driven.SessionStore
	authAdapter  driven.AuthAdapter
}

// NewUserService creates the user management service. The session store is
// needed because destructive user changes revoke sessions.
func NewUserService(
	userStore driven.UserStore,
	sessionStore driven.SessionStore,
	authAdapter driven.AuthAdapter,
) driving.UserService {
	return &userService{
		userStore:    userStore,
		sessionStore: sessionStore,
		authAdapter:  authAdapter,
	}
}

// Setup creates the initial tenant and its admin user.
// Only works on a fresh install: any existing user makes this forbidden.
func (s *userService) Setup(ctx context.Context, req driving.SetupRequest) (*driving.SetupResponse, error) {
	if req.Email == "" || req.Password == "" || req.Name == "" {
		return nil, domain.ErrInvalidInput
	}

	if existing, _ := s.userStore.GetByEmail(ctx, normalizeEmail(req.Email)); existing != nil {
		return nil, domain.ErrForbidden
	}

	tenantID := domain.GenerateID()
	user, err := s.Create(ctx, tenantID, driving.CreateUserRequest{
		Email:    req.Email,
		Password: req.Password,
		Name:     req.Name,
		Role:     domain.RoleAdmin,
	})
	if err != nil {
		return nil, err
	}

	return &driving.SetupResponse{
		User:    user,
		Message: "Setup complete. You can now log in.",
	}, nil
}

// Create adds a user to the given tenant. Email uniqueness is global, not
// per tenant, since email is the login identifier.
func (s *userService) Create(ctx context.Context, tenantID string, req driving.CreateUserRequest) (*domain.User, error) {
	if tenantID == "" {
		return nil, domain.ErrInvalidInput
	}
	if err := validateCreateRequest(req); err != nil {
		return nil, err
	}

	email := normalizeEmail(req.Email)
	if existing, _ := s.userStore.GetByEmail(ctx, email); existing != nil {
		return nil, domain.ErrAlreadyExists
	}

	passwordHash, err := s.authAdapter.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	user := &domain.User{
		ID:           domain.GenerateID(),
		Email:        email,
		PasswordHash: passwordHash,
		Name:         strings.TrimSpace(req.Name),
		Role:         req.Role,
		TenantID:     tenantID,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.userStore.Save(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *userService) Get(ctx context.Context, id string) (*domain.User, error) {
	return s.userStore.Get(ctx, id)
}

func (s *userService) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return s.userStore.GetByEmail(ctx, normalizeEmail(email))
}

func (s *userService) List(ctx context.Context, tenantID string) ([]*domain.User, error) {
	if tenantID == "" {
		return nil, domain.ErrInvalidInput
	}
	return s.userStore.List(ctx, tenantID)
}

// Update applies partial changes. Deactivating a user also revokes their
// sessions so the change takes effect immediately.
func (s *userService) Update(ctx context.Context, id string, req driving.UpdateUserRequest) (*domain.User, error) {
	user, err := s.userStore.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		user.Name = strings.TrimSpace(*req.Name)
	}
	if req.Role != nil {
		user.Role = *req.Role
	}
	if req.Active != nil {
		user.Active = *req.Active
	}
	user.UpdatedAt = time.Now()

	if err := s.userStore.Save(ctx, user); err != nil {
		return nil, err
	}
	if req.Active != nil && !*req.Active {
		_ = s.sessionStore.DeleteByUser(ctx, id)
	}
	return user, nil
}

// Delete removes the user, sessions first.
func (s *userService) Delete(ctx context.Context, id string) error {
	user, err := s.userStore.Get(ctx, id)
	if err != nil {
		return err
	}
	_ = s.sessionStore.DeleteByUser(ctx, user.ID)
	return s.userStore.Delete(ctx, id)
}

// SetPassword is the admin-side reset: no current password needed, every
// session revoked.
func (s *userService) SetPassword(ctx context.Context, id string, password string) error {
	if password == "" {
		return domain.ErrInvalidInput
	}

	user, err := s.userStore.Get(ctx, id)
	if err != nil {
		return err
	}
	hash, err := s.authAdapter.HashPassword(password)
	if err != nil {
		return err
	}
	user.PasswordHash = hash
	user.UpdatedAt = time.Now()
	if err := s.userStore.Save(ctx, user); err != nil {
		return err
	}
	return s.sessionStore.DeleteByUser(ctx, id)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validateCreateRequest(req driving.CreateUserRequest) error {
	if req.Email == "" || req.Password == "" || req.Name == "" {
		return domain.ErrInvalidInput
	}
	if req.Role != domain.RoleAdmin && req.Role != domain.RoleMember {
		return domain.ErrInvalidInput
	}
	return nil
}
