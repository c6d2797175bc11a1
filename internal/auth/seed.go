package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"marketplace_api/internal/models"
)

type SeedUser struct {
	Email    string
	Name     string
	Role     models.Role
	Password string
}

var DemoUsers = []SeedUser{
	{Email: "user1@example.com", Name: "User One", Role: models.RoleUser, Password: "pass123"},
	{Email: "admin@example.com", Name: "Admin User", Role: models.RoleAdmin, Password: "admin123"},
}

// Seed provisions users, skipping emails that already exist.
func (a *Auth) Seed(ctx context.Context, users []SeedUser) error {
	const op = "auth.Seed"

	for _, u := range users {
		_, err := a.RegisterUser(ctx, u.Email, u.Name, u.Role, u.Password)
		if err != nil {
			if errors.Is(err, ErrUserExists) {
				continue
			}
			return fmt.Errorf("%s: %w", op, err)
		}

		a.log.Info("user provisioned", slog.String("email", u.Email), slog.String("role", string(u.Role)))
	}

	return nil
}
