package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"marketplace_api/internal/models"
	"marketplace_api/internal/storage"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisRepo stores each user as a hash under user:<id>
// and indexes it by email under user:email:<email>.
type RedisRepo struct {
	client *redis.Client
}

func New(ctx context.Context, addr, pass string, db int) (*RedisRepo, error) {
	const op = "storage.redis.New"

	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     pass,
		DB:           db,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &RedisRepo{
		client: client,
	}, nil
}

func (r *RedisRepo) SaveUser(
	ctx context.Context,
	email, name string,
	role models.Role,
	passHash []byte,
) (string, error) {
	const op = "storage.redis.SaveUser"

	id := uuid.NewString()

	// SETNX claims the email atomically
	ok, err := r.client.SetNX(ctx, emailKey(email), id, 0).Result()
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	if !ok {
		return "", storage.ErrUserExists
	}

	err = r.client.HSet(ctx, userKey(id),
		"email", email,
		"name", name,
		"role", string(role),
		"password_hash", passHash,
	).Err()
	if err != nil {
		r.client.Del(ctx, emailKey(email))
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return id, nil
}

func (r *RedisRepo) User(ctx context.Context, email string) (models.User, error) {
	const op = "storage.redis.User"

	id, err := r.client.Get(ctx, emailKey(email)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return models.User{}, storage.ErrUserNotFound
		}
		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}

	fields, err := r.client.HGetAll(ctx, userKey(id)).Result()
	if err != nil {
		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}
	if len(fields) == 0 {
		return models.User{}, storage.ErrUserNotFound
	}

	return models.User{
		ID:       id,
		Email:    fields["email"],
		Name:     fields["name"],
		Role:     models.Role(fields["role"]),
		PassHash: []byte(fields["password_hash"]),
	}, nil
}

// UpdateUser rewrites name and email of u.ID inside a WATCH transaction
// so the email index and the user hash change together.
func (r *RedisRepo) UpdateUser(ctx context.Context, u models.User) error {
	const op = "storage.redis.UpdateUser"

	err := r.client.Watch(ctx, func(tx *redis.Tx) error {
		oldEmail, err := tx.HGet(ctx, userKey(u.ID), "email").Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return storage.ErrUserNotFound
			}
			return err
		}

		if oldEmail != u.Email {
			owner, err := tx.Get(ctx, emailKey(u.Email)).Result()
			switch {
			case errors.Is(err, redis.Nil):
			case err != nil:
				return err
			case owner != u.ID:
				return storage.ErrUserExists
			}
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			if oldEmail != u.Email {
				pipe.Del(ctx, emailKey(oldEmail))
				pipe.Set(ctx, emailKey(u.Email), u.ID, 0)
			}
			pipe.HSet(ctx, userKey(u.ID), "email", u.Email, "name", u.Name)
			return nil
		})

		return err
	}, userKey(u.ID), emailKey(u.Email))
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) || errors.Is(err, storage.ErrUserExists) {
			return err
		}
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// * Close closes the underlying client.
func (r *RedisRepo) Close() {
	r.client.Close()
}

func userKey(id string) string {
	return fmt.Sprintf("user:%s", id)
}

func emailKey(email string) string {
	return fmt.Sprintf("user:email:%s", email)
}
