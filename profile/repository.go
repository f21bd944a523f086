// Package profile reads and edits the signed-in user's profile.
package profile

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"gofalre.io/storefront/cache"
	"gofalre.io/storefront/models"
	"gofalre.io/storefront/transport"
)

const profilePath = "/users/me"

var _ Repository = (*repository)(nil)

type Repository interface {
	Get(ctx context.Context, userID string) (*models.UserProfile, error)
	// Me fetches the profile behind the current token, bypassing the cache,
	// and caches it under the returned user id.
	Me(ctx context.Context) (*models.UserProfile, error)
	Update(ctx context.Context, userID string, update models.ProfileUpdate) (*models.UserProfile, error)
	// Forget drops the cached profile, e.g. on logout.
	Forget(ctx context.Context, userID string)
}

type repository struct {
	conn   transport.Requester
	cache  cache.Store
	logger *zap.Logger
}

func NewRepository(conn transport.Requester, cache cache.Store, logger *zap.Logger) Repository {
	return &repository{
		conn:   conn,
		cache:  cache,
		logger: logger,
	}
}

// /users/me resolves from the bearer token, so the key carries the user id
// to keep a shared cache from answering for the wrong account.
func cacheKey(userID string) string {
	return cache.GenerateKey(profilePath, map[string]string{"user": userID})
}

func (r *repository) Get(ctx context.Context, userID string) (*models.UserProfile, error) {
	key := cacheKey(userID)
	var profile models.UserProfile

	// 嘗試從快取中獲取
	found, err := r.cache.Get(ctx, key, &profile)
	if err != nil {
		r.logger.Warn("Failed to get profile from cache", zap.Error(err))
	}
	if found {
		return &profile, nil
	}

	if err := r.conn.Do(ctx, http.MethodGet, profilePath, nil, nil, &profile); err != nil {
		r.logger.Error("Failed to get profile", zap.String("user_id", userID), zap.Error(err))
		return nil, err
	}

	// 更新快取
	if err := r.cache.Set(ctx, key, profile, cache.TTLShort); err != nil {
		r.logger.Warn("Failed to cache profile", zap.Error(err))
	}

	return &profile, nil
}

func (r *repository) Me(ctx context.Context) (*models.UserProfile, error) {
	var profile models.UserProfile
	if err := r.conn.Do(ctx, http.MethodGet, profilePath, nil, nil, &profile); err != nil {
		r.logger.Error("Failed to get current profile", zap.Error(err))
		return nil, err
	}

	// 更新快取
	if err := r.cache.Set(ctx, cacheKey(profile.ID), profile, cache.TTLShort); err != nil {
		r.logger.Warn("Failed to cache profile", zap.Error(err))
	}

	return &profile, nil
}

func (r *repository) Update(ctx context.Context, userID string, update models.ProfileUpdate) (*models.UserProfile, error) {
	var profile models.UserProfile
	if err := r.conn.Do(ctx, http.MethodPatch, profilePath, nil, update, &profile); err != nil {
		r.logger.Error("Failed to update profile", zap.String("user_id", userID), zap.Error(err))
		return nil, err
	}

	if err := r.cache.DeletePattern(ctx, profilePath); err != nil {
		r.logger.Warn("Failed to invalidate profile cache", zap.Error(err))
	}

	return &profile, nil
}

func (r *repository) Forget(ctx context.Context, userID string) {
	if err := r.cache.Delete(ctx, cacheKey(userID)); err != nil {
		r.logger.Warn("Failed to delete profile from cache", zap.String("user_id", userID), zap.Error(err))
	}
}
