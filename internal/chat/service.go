// Package chat orchestrates group lifecycle, membership changes, message
// persistence and history retrieval. It has no knowledge of live
// connections; callers fan results out through the chathub gateway.
package chat

import (
	"campusconnect/backend/internal/apperrors"
	"campusconnect/backend/internal/config"
	"campusconnect/backend/internal/models"
	"campusconnect/backend/internal/storage"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/samber/lo"
)

type Service struct {
	store    storage.Storage
	validate *validator.Validate
	limits   config.ChatLimits
	now      func() time.Time
	log      *slog.Logger
}

func NewService(store storage.Storage, limits config.ChatLimits, log *slog.Logger) *Service {
	return &Service{
		store:    store,
		validate: validator.New(),
		limits:   limits,
		now:      time.Now,
		log:      log,
	}
}

// timestamp is the server clock at storage precision.
func (s *Service) timestamp() time.Time {
	return s.now().UTC().Truncate(time.Microsecond)
}

// requireMember returns the caller's membership, NotFound when the group
// does not exist and PermissionDenied when the caller is not in it.
func (s *Service) requireMember(ctx context.Context, groupID, userID string) (*models.GroupMember, error) {
	member, err := s.store.GetMembership(ctx, groupID, userID)
	if err == nil {
		return member, nil
	}
	if !errors.Is(err, apperrors.ErrNotFound) {
		return nil, err
	}
	if _, err := s.store.GetGroup(ctx, groupID); err != nil {
		return nil, err
	}
	return nil, apperrors.PermissionDenied("user %s is not a member of group %s", userID, groupID)
}

func (s *Service) requireAdmin(ctx context.Context, groupID, userID string) (*models.GroupMember, error) {
	member, err := s.requireMember(ctx, groupID, userID)
	if err != nil {
		return nil, err
	}
	if !member.IsAdmin() {
		return nil, apperrors.PermissionDenied("user %s is not an admin of group %s", userID, groupID)
	}
	return member, nil
}

// checkText enforces a non-blank value of at most max characters.
func (s *Service) checkText(field, value string, max int) error {
	if strings.TrimSpace(value) == "" {
		return apperrors.Validation("%s must not be empty", field)
	}
	return s.checkLength(field, value, max)
}

// checkContent only requires a non-empty message; whitespace is content.
func (s *Service) checkContent(content string) error {
	if content == "" {
		return apperrors.Validation("content must not be empty")
	}
	return s.checkLength("content", content, s.limits.MaxMessageLength)
}

func (s *Service) checkLength(field, value string, max int) error {
	if err := s.validate.Var(value, fmt.Sprintf("max=%d", max)); err != nil {
		return apperrors.Validation("%s must be at most %d characters", field, max)
	}
	return nil
}

func (s *Service) checkDescription(description *string) error {
	if description == nil {
		return nil
	}
	return s.checkLength("description", *description, s.limits.MaxDescriptionLength)
}

// validationError flattens validator output into a single ValidationError.
func validationError(err error) error {
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) {
		msgs := lo.Map(fieldErrs, func(fe validator.FieldError, _ int) string {
			return fmt.Sprintf("%s failed on %s", fe.Namespace(), fe.Tag())
		})
		return apperrors.Validation("%s", strings.Join(msgs, "; "))
	}
	return apperrors.Validation("%s", err.Error())
}

// DisplayName resolves a user's name, empty when the directory has none.
func (s *Service) DisplayName(ctx context.Context, userID string) string {
	users, err := s.store.GetUsers(ctx, []string{userID})
	if err != nil {
		s.log.Warn("failed to resolve user name", "user_id", userID, "error", err)
		return ""
	}
	return users[userID].Name
}

func (s *Service) displayNames(ctx context.Context, userIDs []string) map[string]models.User {
	users, err := s.store.GetUsers(ctx, userIDs)
	if err != nil {
		s.log.Warn("failed to resolve user names", "count", len(userIDs), "error", err)
		return map[string]models.User{}
	}
	return users
}

// AuthorizeSubscription gates a live subscription on current membership
// and returns the subscriber's display name.
func (s *Service) AuthorizeSubscription(ctx context.Context, groupID, userID string) (string, error) {
	if _, err := s.requireMember(ctx, groupID, userID); err != nil {
		return "", err
	}
	return s.DisplayName(ctx, userID), nil
}

// Limits exposes the configured bounds, e.g. for REST query defaults.
func (s *Service) Limits() config.ChatLimits {
	return s.limits
}
