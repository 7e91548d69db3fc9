package service

import (
	"context"
	"errors"
	"io"

	"go.mongodb.org/mongo-driver/bson"
	"golang.org/x/crypto/bcrypt"

	userserrors "medbook/internal/users/errors"
	"medbook/internal/users/repository"
	"medbook/pkg/config"
	apperrors "medbook/pkg/errors"
	"medbook/pkg/imagestore"
	"medbook/pkg/model"
	"medbook/pkg/sanitizer"
	"medbook/pkg/validator"
)

type UserService interface {
	Register(ctx context.Context, user *model.User, password string) error
	Authenticate(ctx context.Context, email, password string) (*model.User, error)
	GetByID(ctx context.Context, id string) (*model.User, error)
	GetAll(ctx context.Context, limit int, offset int64) ([]*model.User, int64, error)
	UpdateProfile(ctx context.Context, id string, updates *model.UserProfileUpdate, image io.Reader, imageName string) error
	ChangePassword(ctx context.Context, id, current, next string) error
	SetBlocked(ctx context.Context, id string, blocked bool) error
}

type userService struct {
	repo      repository.UserRepository
	images    imagestore.Store
	validator *validator.Validator
	cfg       *config.Config
}

func NewUserService(repo repository.UserRepository, images imagestore.Store, v *validator.Validator, cfg *config.Config) UserService {
	return &userService{
		repo:      repo,
		images:    images,
		validator: v,
		cfg:       cfg,
	}
}

func (s *userService) Register(ctx context.Context, user *model.User, password string) error {
	user.Username = sanitizer.TrimAndNormalize(user.Username)
	user.Name = sanitizer.NormalizeName(user.Name)
	user.Email = sanitizer.NormalizeEmail(user.Email)
	user.Phone = sanitizer.NormalizePhone(user.Phone)

	if err := s.validator.Struct(user); err != nil {
		return err
	}
	if len(password) < 8 {
		return apperrors.Validation("Password must be at least 8 characters", nil)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return apperrors.Internal("Failed to hash password", err)
	}
	user.Password = string(hash)
	user.IsBlocked = false

	if err := s.repo.Create(ctx, user); err != nil {
		if errors.Is(err, userserrors.ErrEmailTaken) {
			return apperrors.Conflict("An account with this email already exists")
		}
		return apperrors.Internal("Failed to create user", err)
	}

	s.cfg.Log.Info("User registered", "id", user.ID)
	return nil
}

func (s *userService) Authenticate(ctx context.Context, email, password string) (*model.User, error) {
	email = sanitizer.NormalizeEmail(email)
	if email == "" || password == "" {
		return nil, apperrors.InvalidInput("Email and password are required")
	}

	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, userserrors.ErrNotFound) {
			return nil, apperrors.Unauthorized("Invalid credentials")
		}
		return nil, apperrors.Internal("Failed to look up user", err)
	}

	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)) != nil {
		return nil, apperrors.Unauthorized("Invalid credentials")
	}
	if user.IsBlocked {
		return nil, apperrors.Forbidden("This account has been blocked")
	}

	return user, nil
}

func (s *userService) GetByID(ctx context.Context, id string) (*model.User, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("User ID cannot be empty")
	}

	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, mapRepoError(err, id)
	}
	return user, nil
}

func (s *userService) GetAll(ctx context.Context, limit int, offset int64) ([]*model.User, int64, error) {
	users, err := s.repo.FindAll(ctx, limit, offset)
	if err != nil {
		return nil, 0, apperrors.Internal("Failed to list users", err)
	}

	count, err := s.repo.Count(ctx)
	if err != nil {
		return nil, 0, apperrors.Internal("Failed to count users", err)
	}

	return users, count, nil
}

func (s *userService) UpdateProfile(ctx context.Context, id string, updates *model.UserProfileUpdate, image io.Reader, imageName string) error {
	if id == "" {
		return apperrors.InvalidInput("User ID cannot be empty")
	}
	if err := s.validator.Struct(updates); err != nil {
		return err
	}

	set := bson.M{}
	if updates.Name != nil {
		set["name"] = sanitizer.NormalizeName(*updates.Name)
	}
	if updates.Phone != nil {
		set["phone"] = sanitizer.NormalizePhone(*updates.Phone)
	}
	if updates.Address != nil {
		set["address"] = sanitizer.TrimAndNormalize(*updates.Address)
	}
	if updates.DOB != nil {
		set["dob"] = *updates.DOB
	}
	if updates.Gender != nil {
		set["gender"] = *updates.Gender
	}

	if image != nil {
		url, err := s.images.Save(imageName, image)
		if err != nil {
			return err
		}
		set["image"] = url
	}

	if len(set) == 0 {
		return apperrors.InvalidInput("No profile fields to update")
	}

	if err := s.repo.UpdateProfile(ctx, id, set); err != nil {
		return mapRepoError(err, id)
	}
	return nil
}

func (s *userService) ChangePassword(ctx context.Context, id, current, next string) error {
	if len(next) < 8 {
		return apperrors.Validation("Password must be at least 8 characters", nil)
	}

	user, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(current)) != nil {
		return apperrors.Unauthorized("Current password is incorrect")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(next), bcrypt.DefaultCost)
	if err != nil {
		return apperrors.Internal("Failed to hash password", err)
	}

	if err := s.repo.SetPassword(ctx, id, string(hash)); err != nil {
		return mapRepoError(err, id)
	}

	s.cfg.Log.Info("User password changed", "id", id)
	return nil
}

func (s *userService) SetBlocked(ctx context.Context, id string, blocked bool) error {
	if err := s.repo.SetBlocked(ctx, id, blocked); err != nil {
		return mapRepoError(err, id)
	}

	s.cfg.Log.Info("User block state changed", "id", id, "blocked", blocked)
	return nil
}

func mapRepoError(err error, id string) error {
	switch {
	case errors.Is(err, userserrors.ErrNotFound):
		return apperrors.NotFoundWithID("User", id)
	case errors.Is(err, userserrors.ErrInvalidID):
		return apperrors.InvalidInput("Invalid user ID: " + id)
	default:
		return apperrors.Internal("User operation failed", err)
	}
}
