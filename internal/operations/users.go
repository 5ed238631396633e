package operations

import (
	"context"
	"errors"
	"net/mail"
	"sort"
	"strings"

	"go.uber.org/zap"

	"astba/training/internal/auth"
	"astba/training/internal/logging"
	"astba/training/internal/model"
	"astba/training/internal/store"
)

type SignupInput struct {
	Name     string
	Email    string
	Password string
	Role     string
}

type CreateUserInput struct {
	Name     string
	Email    string
	Password string
	Role     string
	Status   string
}

type ProfilePatch struct {
	Name         *string
	Email        *string
	Password     *string
	ProfileImage *string
}

type UserPatch struct {
	Name  *string
	Email *string
	Role  *string
}

func normalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", invalidArgument(ErrInvalidEmail)
	}
	return email, nil
}

func normalizeName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", invalidArgument(ErrInvalidName)
	}
	return name, nil
}

func hashPassword(password string) (string, error) {
	hash, err := auth.HashPassword(password)
	if errors.Is(err, auth.ErrPasswordTooShort) {
		return "", invalidArgument(ErrInvalidPassword)
	}
	return hash, err
}

// Signup registers a pending account. Self-registration may not ask for the
// student role; the default role is manager.
func (s *Service) Signup(ctx context.Context, input SignupInput) (model.User, error) {
	role := model.RoleManager
	if input.Role != "" {
		parsed, err := model.ParseRole(input.Role)
		if err != nil || parsed == model.RoleStudent {
			return model.User{}, invalidArgument(ErrInvalidRole)
		}
		role = parsed
	}
	return s.createUser(ctx, input.Name, input.Email, input.Password, role, model.UserPending)
}

// CreateUser is the administrative creation path. Accounts are active unless
// a status is given.
func (s *Service) CreateUser(ctx context.Context, input CreateUserInput) (model.User, error) {
	role := model.RoleManager
	if input.Role != "" {
		parsed, err := model.ParseRole(input.Role)
		if err != nil {
			return model.User{}, invalidArgument(ErrInvalidRole)
		}
		role = parsed
	}
	status := model.UserActive
	if input.Status != "" {
		parsed, err := model.ParseUserStatus(input.Status)
		if err != nil {
			return model.User{}, invalidArgument(ErrInvalidUserStatus)
		}
		status = parsed
	}
	return s.createUser(ctx, input.Name, input.Email, input.Password, role, status)
}

func (s *Service) createUser(ctx context.Context, name, email, password string, role model.Role, status model.UserStatus) (model.User, error) {
	name, err := normalizeName(name)
	if err != nil {
		return model.User{}, err
	}
	email, err = normalizeEmail(email)
	if err != nil {
		return model.User{}, err
	}
	hash, err := hashPassword(password)
	if err != nil {
		return model.User{}, err
	}

	now := s.now()
	user := model.User{
		ID:           s.newID(),
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		Status:       status,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.store.CreateUser(ctx, user); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return model.User{}, newError(KindConflict, ErrEmailTaken)
		}
		return model.User{}, s.storeErr("create user", err, "")
	}
	s.log.Info("user created",
		zap.String(logging.FieldUserID, user.ID),
		zap.String("role", string(role)),
		zap.String("status", string(status)),
	)
	return user, nil
}

// Login checks credentials and refuses accounts that are not active.
func (s *Service) Login(ctx context.Context, email, password string) (model.User, error) {
	user, err := s.store.GetUserByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if errors.Is(err, store.ErrNotFound) {
		return model.User{}, newError(KindAccessDenied, ErrInvalidCredentials)
	}
	if err != nil {
		return model.User{}, s.storeErr("get user by email", err, "")
	}
	if !auth.CheckPassword(user.PasswordHash, password) {
		return model.User{}, newError(KindAccessDenied, ErrInvalidCredentials)
	}
	if user.Status != model.UserActive {
		if user.Status == model.UserPending {
			return model.User{}, newError(KindAccessDenied, ErrAccountPending)
		}
		return model.User{}, newError(KindAccessDenied, "account_"+string(user.Status))
	}
	return user, nil
}

func (s *Service) GetUser(ctx context.Context, id string) (model.User, error) {
	user, err := s.store.GetUser(ctx, id)
	if err != nil {
		return model.User{}, s.storeErr("get user", err, ErrUserNotFound)
	}
	return user, nil
}

func (s *Service) UpdateProfile(ctx context.Context, userID string, patch ProfilePatch) (model.User, error) {
	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return model.User{}, s.storeErr("get user", err, ErrUserNotFound)
	}
	if patch.Name != nil && strings.TrimSpace(*patch.Name) != "" {
		user.Name = strings.TrimSpace(*patch.Name)
	}
	if patch.Email != nil && strings.TrimSpace(*patch.Email) != "" {
		if user.Email, err = normalizeEmail(*patch.Email); err != nil {
			return model.User{}, err
		}
	}
	if patch.Password != nil && *patch.Password != "" {
		if user.PasswordHash, err = hashPassword(*patch.Password); err != nil {
			return model.User{}, err
		}
	}
	if patch.ProfileImage != nil {
		if *patch.ProfileImage == "" {
			user.ProfileImage = nil
		} else {
			image := *patch.ProfileImage
			user.ProfileImage = &image
		}
	}
	return s.saveUser(ctx, user)
}

func (s *Service) UpdateUser(ctx context.Context, id string, patch UserPatch) (model.User, error) {
	user, err := s.store.GetUser(ctx, id)
	if err != nil {
		return model.User{}, s.storeErr("get user", err, ErrUserNotFound)
	}
	if patch.Name != nil && strings.TrimSpace(*patch.Name) != "" {
		user.Name = strings.TrimSpace(*patch.Name)
	}
	if patch.Email != nil && strings.TrimSpace(*patch.Email) != "" {
		if user.Email, err = normalizeEmail(*patch.Email); err != nil {
			return model.User{}, err
		}
	}
	if patch.Role != nil && *patch.Role != "" {
		role, err := model.ParseRole(*patch.Role)
		if err != nil {
			return model.User{}, invalidArgument(ErrInvalidRole)
		}
		user.Role = role
	}
	return s.saveUser(ctx, user)
}

func (s *Service) SetUserStatus(ctx context.Context, id, status string) (model.User, error) {
	parsed, err := model.ParseUserStatus(status)
	if err != nil {
		return model.User{}, invalidArgument(ErrInvalidUserStatus)
	}
	user, err := s.store.GetUser(ctx, id)
	if err != nil {
		return model.User{}, s.storeErr("get user", err, ErrUserNotFound)
	}
	user.Status = parsed
	return s.saveUser(ctx, user)
}

func (s *Service) saveUser(ctx context.Context, user model.User) (model.User, error) {
	user.UpdatedAt = s.now()
	if err := s.store.UpdateUser(ctx, user); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return model.User{}, newError(KindConflict, ErrEmailTaken)
		}
		return model.User{}, s.storeErr("update user", err, ErrUserNotFound)
	}
	return user, nil
}

// ListUsers returns users newest first.
func (s *Service) ListUsers(ctx context.Context, filter store.UserFilter) ([]model.User, error) {
	users, err := s.store.ListUsers(ctx, filter)
	if err != nil {
		return nil, s.storeErr("list users", err, "")
	}
	return users, nil
}

// ListTrainers returns trainers sorted by name.
func (s *Service) ListTrainers(ctx context.Context) ([]model.User, error) {
	role := model.RoleTrainer
	users, err := s.ListUsers(ctx, store.UserFilter{Role: &role})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(users, func(i, j int) bool {
		return strings.ToLower(users[i].Name) < strings.ToLower(users[j].Name)
	})
	return users, nil
}
