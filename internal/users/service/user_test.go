package service

import (
	"context"
	"testing"

	"go.mongodb.org/mongo-driver/bson"
	"golang.org/x/crypto/bcrypt"

	userserrors "medbook/internal/users/errors"
	"medbook/pkg/config"
	apperrors "medbook/pkg/errors"
	"medbook/pkg/logger"
	"medbook/pkg/model"
	"medbook/pkg/validator"
)

type mockUserRepository struct {
	createFunc      func(ctx context.Context, user *model.User) error
	findByIDFunc    func(ctx context.Context, id string) (*model.User, error)
	findByEmailFunc func(ctx context.Context, email string) (*model.User, error)
	setBlockedFunc  func(ctx context.Context, id string, blocked bool) error
	setPasswordFunc func(ctx context.Context, id string, passwordHash string) error
}

func (m *mockUserRepository) Create(ctx context.Context, user *model.User) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, user)
	}
	user.ID = "user-1"
	return nil
}

func (m *mockUserRepository) FindByID(ctx context.Context, id string) (*model.User, error) {
	if m.findByIDFunc != nil {
		return m.findByIDFunc(ctx, id)
	}
	return nil, userserrors.ErrNotFound
}

func (m *mockUserRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	if m.findByEmailFunc != nil {
		return m.findByEmailFunc(ctx, email)
	}
	return nil, userserrors.ErrNotFound
}

func (m *mockUserRepository) FindAll(ctx context.Context, limit int, offset int64) ([]*model.User, error) {
	return nil, nil
}

func (m *mockUserRepository) Count(ctx context.Context) (int64, error) {
	return 0, nil
}

func (m *mockUserRepository) UpdateProfile(ctx context.Context, id string, updates bson.M) error {
	return nil
}

func (m *mockUserRepository) SetBlocked(ctx context.Context, id string, blocked bool) error {
	if m.setBlockedFunc != nil {
		return m.setBlockedFunc(ctx, id, blocked)
	}
	return nil
}

func (m *mockUserRepository) SetPassword(ctx context.Context, id string, passwordHash string) error {
	if m.setPasswordFunc != nil {
		return m.setPasswordFunc(ctx, id, passwordHash)
	}
	return nil
}

func testConfig() *config.Config {
	return &config.Config{
		Log: logger.New(logger.Config{
			Level:   "error",
			Format:  logger.JSON,
			Service: "test",
		}),
	}
}

func newTestService(repo *mockUserRepository) *userService {
	return &userService{
		repo:      repo,
		validator: validator.New(),
		cfg:       testConfig(),
	}
}

func validUser() *model.User {
	return &model.User{
		Username: "pat_example",
		Name:     "Pat Example",
		Email:    "Pat@Example.com",
		Phone:    "5550001111",
	}
}

func assertCode(t *testing.T, err error, code string) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s error, got nil", code)
	}
	if appErr := apperrors.AsAppError(err); appErr.Code != code {
		t.Fatalf("expected code %s, got %s (%v)", code, appErr.Code, err)
	}
}

func TestRegister(t *testing.T) {
	var created *model.User
	repo := &mockUserRepository{
		createFunc: func(ctx context.Context, user *model.User) error {
			created = user
			return nil
		},
	}
	svc := newTestService(repo)

	if err := svc.Register(context.Background(), validUser(), "supersecret"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if created.Email != "pat@example.com" {
		t.Errorf("email must be lowercased, got %q", created.Email)
	}
	if created.IsBlocked {
		t.Error("new users must not start blocked")
	}
	if bcrypt.CompareHashAndPassword([]byte(created.Password), []byte("supersecret")) != nil {
		t.Error("stored hash must verify against the original password")
	}
}

func TestRegister_DuplicateEmail(t *testing.T) {
	repo := &mockUserRepository{
		createFunc: func(ctx context.Context, user *model.User) error {
			return userserrors.ErrEmailTaken
		},
	}
	svc := newTestService(repo)

	err := svc.Register(context.Background(), validUser(), "supersecret")
	assertCode(t, err, apperrors.CodeConflict)
}

func TestAuthenticate_BlockedUser(t *testing.T) {
	hash, _ := bcrypt.GenerateFromPassword([]byte("supersecret"), bcrypt.MinCost)
	repo := &mockUserRepository{
		findByEmailFunc: func(ctx context.Context, email string) (*model.User, error) {
			return &model.User{ID: "user-1", Email: email, Password: string(hash), IsBlocked: true}, nil
		},
	}
	svc := newTestService(repo)

	_, err := svc.Authenticate(context.Background(), "pat@example.com", "supersecret")
	assertCode(t, err, apperrors.CodeForbidden)
}

func TestAuthenticate_WrongPassword(t *testing.T) {
	hash, _ := bcrypt.GenerateFromPassword([]byte("supersecret"), bcrypt.MinCost)
	repo := &mockUserRepository{
		findByEmailFunc: func(ctx context.Context, email string) (*model.User, error) {
			return &model.User{ID: "user-1", Email: email, Password: string(hash)}, nil
		},
	}
	svc := newTestService(repo)

	_, err := svc.Authenticate(context.Background(), "pat@example.com", "nope")
	assertCode(t, err, apperrors.CodeUnauthorized)
}

func TestChangePassword(t *testing.T) {
	hash, _ := bcrypt.GenerateFromPassword([]byte("oldpassword"), bcrypt.MinCost)
	var newHash string
	repo := &mockUserRepository{
		findByIDFunc: func(ctx context.Context, id string) (*model.User, error) {
			return &model.User{ID: id, Password: string(hash)}, nil
		},
		setPasswordFunc: func(ctx context.Context, id string, passwordHash string) error {
			newHash = passwordHash
			return nil
		},
	}
	svc := newTestService(repo)

	err := svc.ChangePassword(context.Background(), "user-1", "wrong", "nextpassword")
	assertCode(t, err, apperrors.CodeUnauthorized)

	if err := svc.ChangePassword(context.Background(), "user-1", "oldpassword", "nextpassword"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(newHash), []byte("nextpassword")) != nil {
		t.Error("stored hash must verify against the new password")
	}
}

func TestSetBlocked(t *testing.T) {
	var blockedState *bool
	repo := &mockUserRepository{
		setBlockedFunc: func(ctx context.Context, id string, blocked bool) error {
			blockedState = &blocked
			return nil
		},
	}
	svc := newTestService(repo)

	if err := svc.SetBlocked(context.Background(), "user-1", true); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if blockedState == nil || !*blockedState {
		t.Error("expected block flag set")
	}
}
