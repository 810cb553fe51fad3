package storage

import (
	"campusconnect/backend/internal/models"
	"context"

	"github.com/samber/lo"
)

// GetUsers resolves the given ids; unknown ids are simply absent from the map.
func (s *Service) GetUsers(ctx context.Context, userIDs []string) (map[string]models.User, error) {
	if len(userIDs) == 0 {
		return map[string]models.User{}, nil
	}

	var users []models.User
	if err := s.DB.WithContext(ctx).Where("id IN ?", lo.Uniq(userIDs)).Find(&users).Error; err != nil {
		return nil, translate(err, "resolve users")
	}
	return lo.KeyBy(users, func(u models.User) string { return u.ID }), nil
}

// SaveUser upserts a directory row. The identity service owns this table
// in production; the chat core only writes it from tooling and tests.
func (s *Service) SaveUser(ctx context.Context, user *models.User) error {
	return translate(s.DB.WithContext(ctx).Save(user).Error, "save user %s", user.Email)
}
