package services

import (
	"context"

	"github.com/donenme/donenme-api/internal/apperr"
	"github.com/donenme/donenme-api/internal/models"
	"github.com/donenme/donenme-api/pkg/logger"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"
)

// UserService handles registration and authentication.
type UserService struct {
	repo UserStore
}

// NewUserService creates a new instance of UserService.
func NewUserService(repo UserStore) *UserService {
	return &UserService{repo: repo}
}

// RegisterInput carries the registration form. Exactly one of the
// role-specific fields is expected, depending on Role.
type RegisterInput struct {
	Name       string `json:"name"`
	Contact    string `json:"contact"`
	Password   string `json:"password"`
	Address    string `json:"address"`
	Role       string `json:"role"`
	RFC        string `json:"rfc"`
	CLUNI      string `json:"cluni"`
	CURP       string `json:"curp"`
	Dependency string `json:"dependency"`
}

// RegisterUser validates the role variant, rejects duplicate contacts and
// stores the account with a bcrypt-hashed password.
func (s *UserService) RegisterUser(ctx context.Context, input *RegisterInput) (*models.User, error) {
	if input.Name == "" || input.Contact == "" || input.Password == "" {
		return nil, apperr.Validation("name, contact and password are required")
	}
	if !models.AllowedRoles[input.Role] {
		return nil, apperr.Validation("invalid user role %q", input.Role)
	}

	existing, err := s.repo.GetUserByContact(ctx, input.Contact)
	if err != nil && !apperr.IsKind(err, apperr.KindNotFound) {
		return nil, err
	}
	if existing != nil {
		return nil, apperr.Conflict("contact is already registered")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, apperr.Storage("failed to hash password", err)
	}

	user := &models.User{
		Name:           input.Name,
		Contact:        input.Contact,
		HashedPassword: string(hashed),
		Address:        input.Address,
		Role:           input.Role,
	}

	// Keep only the attribute matching the role.
	switch input.Role {
	case models.RoleCompany:
		user.RFC = input.RFC
	case models.RoleNGO:
		user.CLUNI = input.CLUNI
	case models.RoleIndividual:
		user.CURP = input.CURP
	case models.RoleGovernment:
		user.Dependency = input.Dependency
	}

	created, err := s.repo.CreateUser(ctx, user)
	if err != nil {
		logger.Log.WithError(err).Error("Service failed to register user")
		return nil, err
	}

	logger.Log.WithField("user_id", created.ID.Hex()).Info("User registered in service layer")
	return created, nil
}

// AuthenticateUser verifies the credentials and returns the account.
func (s *UserService) AuthenticateUser(ctx context.Context, contact, password string) (*models.User, error) {
	if contact == "" || password == "" {
		return nil, apperr.Validation("contact and password are required")
	}

	user, err := s.repo.GetUserByContact(ctx, contact)
	if err != nil {
		if apperr.IsKind(err, apperr.KindNotFound) {
			return nil, apperr.Authorization("invalid credentials")
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.HashedPassword), []byte(password)); err != nil {
		return nil, apperr.Authorization("invalid credentials")
	}

	return user, nil
}

// GetUser fetches a single user by id.
func (s *UserService) GetUser(ctx context.Context, id string) (*models.User, error) {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, apperr.Validation("invalid user ID")
	}
	return s.repo.GetUserByID(ctx, objID)
}

// ProfileUpdate carries the editable profile fields. Empty fields are left
// untouched; a non-empty Password is rehashed.
type ProfileUpdate struct {
	Name     string `json:"name"`
	Contact  string `json:"contact"`
	Address  string `json:"address"`
	Password string `json:"password"`
}

// UpdateProfile applies the supplied fields to the user's own account. The
// role and its attribute are fixed at registration and cannot be changed.
func (s *UserService) UpdateProfile(ctx context.Context, id string, input *ProfileUpdate) (*models.User, error) {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, apperr.Validation("invalid user ID")
	}

	user, err := s.repo.GetUserByID(ctx, objID)
	if err != nil {
		return nil, err
	}

	if input.Contact != "" && input.Contact != user.Contact {
		existing, err := s.repo.GetUserByContact(ctx, input.Contact)
		if err != nil && !apperr.IsKind(err, apperr.KindNotFound) {
			return nil, err
		}
		if existing != nil {
			return nil, apperr.Conflict("contact is already registered")
		}
		user.Contact = input.Contact
	}
	if input.Name != "" {
		user.Name = input.Name
	}
	if input.Address != "" {
		user.Address = input.Address
	}
	if input.Password != "" {
		hashed, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, apperr.Storage("failed to hash password", err)
		}
		user.HashedPassword = string(hashed)
	}

	updated, err := s.repo.UpdateUser(ctx, user)
	if err != nil {
		logger.Log.WithError(err).Error("Service failed to update user profile")
		return nil, err
	}

	logger.Log.WithField("user_id", updated.ID.Hex()).Info("User profile updated in service layer")
	return updated, nil
}

// GetPublicNames resolves a set of user ids to display names in a single
// batched lookup.
func (s *UserService) GetPublicNames(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]string, error) {
	if len(ids) == 0 {
		return map[primitive.ObjectID]string{}, nil
	}
	users, err := s.repo.GetUsersByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	names := make(map[primitive.ObjectID]string, len(users))
	for _, u := range users {
		names[u.ID] = u.Name
	}
	return names, nil
}
