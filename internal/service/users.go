package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Skotchmaster/todo_backend/internal/domain"
	"github.com/Skotchmaster/todo_backend/internal/events"
	"github.com/Skotchmaster/todo_backend/internal/hash"
	"github.com/Skotchmaster/todo_backend/internal/logging"
	"github.com/Skotchmaster/todo_backend/internal/models"
	"github.com/Skotchmaster/todo_backend/internal/repo"
	"github.com/Skotchmaster/todo_backend/internal/util"
)

// UserIndex is a secondary search index over user profiles.
type UserIndex interface {
	Index(ctx context.Context, u *models.User) error
	Delete(ctx context.Context, id uint) error
	Search(ctx context.Context, query string, from, size int) (int64, []uint, error)
}

type UserService struct {
	Repo   UserRepo
	Hasher *hash.Hasher
	Index  UserIndex
	Events events.Publisher
}

type UserPage struct {
	Users      []models.User `json:"users"`
	Total      int64         `json:"total"`
	Page       int           `json:"page"`
	Size       int           `json:"size"`
	TotalPages int           `json:"total_pages"`
}

func validRole(role string) bool {
	return role == models.RoleAdmin || role == models.RoleUser
}

// List pages through users; a non-empty query goes to the search index when
// one is configured and to a substring match otherwise.
func (s *UserService) List(ctx context.Context, query string, page, size int) (*UserPage, error) {
	l := logging.FromContext(ctx).With("svc", "users.list")
	from, limit := util.Calculate(page, size)
	if page < 1 {
		page = 1
	}

	var (
		users []models.User
		total int64
		err   error
	)
	query = strings.TrimSpace(query)
	switch {
	case query == "":
		users, total, err = s.Repo.ListUsers(ctx, from, limit)
	case s.Index != nil:
		var ids []uint
		total, ids, err = s.Index.Search(ctx, query, from, limit)
		if err == nil {
			users, err = s.Repo.FindUsersByIDs(ctx, ids)
			break
		}
		l.Warn("search_index_unavailable", "error", err)
		users, total, err = s.Repo.SearchUsers(ctx, query, from, limit)
	default:
		users, total, err = s.Repo.SearchUsers(ctx, query, from, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("users.List: %w", err)
	}
	if users == nil {
		users = []models.User{}
	}

	return &UserPage{
		Users:      users,
		Total:      total,
		Page:       page,
		Size:       limit,
		TotalPages: util.TotalPages(total, limit),
	}, nil
}

func (s *UserService) Get(ctx context.Context, id uint) (*models.User, error) {
	u, err := s.Repo.FindUserByID(ctx, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("users.Get: %w", err)
	}
	return u, nil
}

// Create registers a user with a generated initial password, which is
// returned once and never stored in clear.
func (s *UserService) Create(ctx context.Context, email string, name *string, role string) (*models.User, string, error) {
	password, err := hash.GenerateInitialPassword(hash.InitialPasswordLength)
	if err != nil {
		return nil, "", fmt.Errorf("users.Create: %w", err)
	}
	u, err := s.Provision(ctx, email, password, name, role)
	if err != nil {
		return nil, "", err
	}
	return u, password, nil
}

// Provision registers a user with a caller-chosen password.
func (s *UserService) Provision(ctx context.Context, email, password string, name *string, role string) (*models.User, error) {
	l := logging.FromContext(ctx).With("svc", "users.create")

	email = strings.TrimSpace(email)
	if role == "" {
		role = models.RoleUser
	}
	if email == "" || password == "" || !validRole(role) {
		return nil, domain.ErrValidation
	}

	pwHash, err := s.Hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("users.Create: %w", err)
	}
	u := &models.User{Email: email, PasswordHash: pwHash, Role: role, Name: name}
	if err := s.Repo.CreateUser(ctx, u); err != nil {
		if errors.Is(err, repo.ErrEmailTaken) {
			l.Warn("user_create_failed", "reason", "email taken")
			return nil, domain.ErrUserExists
		}
		return nil, fmt.Errorf("users.Create: %w", err)
	}

	l.Info("user_created", "user_id", u.ID, "role", u.Role)
	s.index(ctx, u)
	publish(ctx, s.Events, events.UserEvent{Type: events.UserCreated, UserID: u.ID, Email: u.Email, Role: u.Role})
	return u, nil
}

// UpdateProfile changes the caller's own email and display name.
func (s *UserService) UpdateProfile(ctx context.Context, id uint, email string, name *string) (*models.User, error) {
	l := logging.FromContext(ctx).With("svc", "users.update", "user_id", id)

	email = strings.TrimSpace(email)
	if email == "" {
		return nil, domain.ErrValidation
	}
	u, err := s.Repo.UpdateUserProfile(ctx, id, email, name)
	if err != nil {
		switch {
		case errors.Is(err, repo.ErrEmailTaken):
			l.Warn("user_update_failed", "reason", "email taken")
			return nil, domain.ErrUserExists
		case errors.Is(err, repo.ErrNotFound):
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("users.UpdateProfile: %w", err)
	}

	l.Info("user_updated")
	s.index(ctx, u)
	publish(ctx, s.Events, events.UserEvent{Type: events.UserUpdated, UserID: u.ID, Email: u.Email, Role: u.Role})
	return u, nil
}

// Delete removes a non-admin user and, with it, all of its sessions.
func (s *UserService) Delete(ctx context.Context, id uint) error {
	l := logging.FromContext(ctx).With("svc", "users.delete", "user_id", id)

	u, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if u.IsAdmin() {
		l.Warn("user_delete_refused", "reason", "admin")
		return domain.ErrCannotDeleteAdmin
	}
	if err := s.Repo.DeleteUser(ctx, id); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return domain.ErrUserNotFound
		}
		return fmt.Errorf("users.Delete: %w", err)
	}

	l.Info("user_deleted")
	if s.Index != nil {
		if err := s.Index.Delete(ctx, id); err != nil {
			l.Warn("search_index_delete_failed", "error", err)
		}
	}
	publish(ctx, s.Events, events.UserEvent{Type: events.UserDeleted, UserID: id, Email: u.Email})
	return nil
}

func (s *UserService) index(ctx context.Context, u *models.User) {
	if s.Index == nil {
		return
	}
	if err := s.Index.Index(ctx, u); err != nil {
		logging.FromContext(ctx).Warn("search_index_failed", "user_id", u.ID, "error", err)
	}
}

// EnsureAdmin makes email an admin account holding passwordHash. An existing
// admin is left untouched; a regular user with that email is replaced.
// created reports whether a new account was written.
func (s *UserService) EnsureAdmin(ctx context.Context, email, passwordHash string) (u *models.User, created bool, err error) {
	l := logging.FromContext(ctx).With("svc", "users.ensure_admin")

	email = strings.TrimSpace(email)
	if email == "" || !hash.ValidBcryptHash(passwordHash) {
		return nil, false, domain.ErrValidation
	}

	name := "Administrator"
	u = &models.User{Email: email, PasswordHash: passwordHash, Role: models.RoleAdmin, Name: &name}
	replacedID, created, err := s.Repo.ReplaceWithAdmin(ctx, u)
	if err != nil {
		return nil, false, fmt.Errorf("users.EnsureAdmin: %w", err)
	}
	if !created {
		l.Info("admin_exists", "user_id", u.ID)
		return u, false, nil
	}
	if replacedID != 0 {
		l.Info("admin_replaced_user", "user_id", replacedID)
		if s.Index != nil {
			if err := s.Index.Delete(ctx, replacedID); err != nil {
				l.Warn("search_index_delete_failed", "error", err)
			}
		}
	}

	l.Info("admin_created", "user_id", u.ID)
	s.index(ctx, u)
	publish(ctx, s.Events, events.UserEvent{Type: events.UserCreated, UserID: u.ID, Email: u.Email, Role: u.Role})
	return u, true, nil
}
