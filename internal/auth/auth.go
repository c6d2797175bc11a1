package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"marketplace_api/internal/lib/jwt"
	sl "marketplace_api/internal/lib/logger"
	"marketplace_api/internal/lib/password"
	"marketplace_api/internal/models"
	"marketplace_api/internal/storage"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserNotFound       = errors.New("user not found")
	ErrUserExists         = errors.New("user already exists")
	ErrPermissionDenied   = errors.New("permission denied")
	ErrDuplicateEmail     = errors.New("email already in use")

	ErrTokenInvalid = jwt.ErrTokenInvalid
	ErrTokenExpired = jwt.ErrTokenExpired
)

type Auth struct {
	log         *slog.Logger
	usrSaver    UserSaver
	usrProvider UserProvider
	tokens      *jwt.Manager
	audit       AuditPublisher
	dummyHash   []byte
}

type UserSaver interface {
	SaveUser(ctx context.Context, email, name string, role models.Role, passHash []byte) (uid string, err error)
	UpdateUser(ctx context.Context, u models.User) error
}

type UserProvider interface {
	User(ctx context.Context, email string) (models.User, error)
}

type AuditPublisher interface {
	PublishAudit(ctx context.Context, event models.AuditEvent) error
}

// New returns the auth service. audit may be nil.
func New(
	log *slog.Logger,
	userSaver UserSaver,
	userProvider UserProvider,
	tokens *jwt.Manager,
	audit AuditPublisher,
) *Auth {
	// compared against when the email is unknown, so both failure paths cost one bcrypt comparison
	dummyHash, _ := password.Hash("marketplace-dummy-password")

	return &Auth{
		log:         log,
		usrSaver:    userSaver,
		usrProvider: userProvider,
		tokens:      tokens,
		audit:       audit,
		dummyHash:   dummyHash,
	}
}

// * Login checks the credentials and issues an access and a refresh token.
func (a *Auth) Login(
	ctx context.Context,
	email, pass string,
) (accessToken string, refreshToken string, err error) {
	const op = "Auth.Login"

	log := a.log.With(slog.String("op", op))

	user, err := a.usrProvider.User(ctx, email)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			password.Verify(pass, a.dummyHash)
			a.auditLogin(ctx, email, models.OutcomeFailure)
			return "", "", ErrInvalidCredentials
		}

		log.Error("failed to get user", sl.Err(err))
		a.auditLogin(ctx, email, models.OutcomeFailure)
		return "", "", fmt.Errorf("%s: %w", op, err)
	}

	if !password.Verify(pass, user.PassHash) {
		a.auditLogin(ctx, email, models.OutcomeFailure)
		return "", "", ErrInvalidCredentials
	}

	now := time.Now()

	accessToken, err = a.tokens.NewAccessToken(user.Email, string(user.Role), user.Name, now)
	if err != nil {
		log.Error("failed to generate access token", sl.Err(err))
		a.auditLogin(ctx, email, models.OutcomeFailure)
		return "", "", fmt.Errorf("%s: %w", op, err)
	}

	refreshToken, err = a.tokens.NewRefreshToken(user.Email, now)
	if err != nil {
		log.Error("failed to generate refresh token", sl.Err(err))
		a.auditLogin(ctx, email, models.OutcomeFailure)
		return "", "", fmt.Errorf("%s: %w", op, err)
	}

	a.auditLogin(ctx, email, models.OutcomeSuccess)

	return accessToken, refreshToken, nil
}

// * Refresh issues a new access token. Role and name come from the store,
// refresh tokens do not carry them.
func (a *Auth) Refresh(
	ctx context.Context,
	refreshToken string,
) (string, error) {
	const op = "auth.Refresh"

	log := a.log.With(
		slog.String("op", op),
	)

	claims, err := a.tokens.Verify(refreshToken, time.Now())
	if err != nil {
		log.Warn("refresh token rejected", sl.Err(err))
		return "", fmt.Errorf("%s: %w", op, err)
	}

	if claims.Kind() != jwt.KindRefresh {
		log.Warn("access token presented as refresh token")
		return "", fmt.Errorf("%s: %w", op, ErrTokenInvalid)
	}

	user, err := a.user(ctx, claims.Email)
	if err != nil {
		log.Warn("failed to load user", sl.Err(err))
		return "", fmt.Errorf("%s: %w", op, err)
	}

	accessToken, err := a.tokens.NewAccessToken(user.Email, string(user.Role), user.Name, time.Now())
	if err != nil {
		log.Error("failed to generate access token", sl.Err(err))
		return "", fmt.Errorf("%s: %w", op, err)
	}

	log.Info("refresh successful", slog.String("uid", user.ID))

	return accessToken, nil
}

// * Identify resolves an access token to the caller as currently stored.
func (a *Auth) Identify(ctx context.Context, accessToken string) (models.Identity, error) {
	const op = "auth.Identify"

	claims, err := a.tokens.Verify(accessToken, time.Now())
	if err != nil {
		return models.Identity{}, fmt.Errorf("%s: %w", op, err)
	}

	if claims.Kind() != jwt.KindAccess {
		return models.Identity{}, fmt.Errorf("%s: %w", op, ErrTokenInvalid)
	}

	user, err := a.user(ctx, claims.Email)
	if err != nil {
		return models.Identity{}, fmt.Errorf("%s: %w", op, err)
	}

	return user.Identity(), nil
}

// * UpdateProfile changes name and/or email of the caller.
// Only the "user" role may do this, admins are refused even for their own profile.
// Empty name or email leave the stored value unchanged.
func (a *Auth) UpdateProfile(
	ctx context.Context,
	caller models.Identity,
	name, email string,
) (models.User, error) {
	const op = "auth.UpdateProfile"

	log := a.log.With(
		slog.String("op", op),
		slog.String("email", caller.Email),
	)

	log.Info("profile update attempt")

	if caller.Role != models.RoleUser {
		log.Warn("permission denied", slog.String("role", string(caller.Role)))
		return models.User{}, ErrPermissionDenied
	}

	user, err := a.user(ctx, caller.Email)
	if err != nil {
		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}

	if name != "" {
		user.Name = name
	}
	if email != "" {
		user.Email = email
	}

	if err := a.usrSaver.UpdateUser(ctx, user); err != nil {
		switch {
		case errors.Is(err, storage.ErrUserExists):
			log.Warn("email already taken", slog.String("new_email", email))
			return models.User{}, ErrDuplicateEmail
		case errors.Is(err, storage.ErrUserNotFound):
			return models.User{}, ErrUserNotFound
		}

		log.Error("failed to update user", sl.Err(err))
		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}

	log.Info("profile updated", slog.String("new_email", user.Email))

	return user, nil
}

// RegisterUser provisions a user with a hashed password.
func (a *Auth) RegisterUser(
	ctx context.Context,
	email, name string,
	role models.Role,
	pass string,
) (string, error) {
	const op = "auth.RegisterUser"

	log := a.log.With(
		slog.String("op", op),
	)

	passHash, err := password.Hash(pass)
	if err != nil {
		log.Error("failed to generate password hash", sl.Err(err))
		return "", fmt.Errorf("%s: %w", op, err)
	}

	id, err := a.usrSaver.SaveUser(ctx, email, name, role, passHash)
	if err != nil {
		if errors.Is(err, storage.ErrUserExists) {
			return "", fmt.Errorf("%s: %w", op, ErrUserExists)
		}

		log.Error("failed to save user", sl.Err(err))
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return id, nil
}

func (a *Auth) user(ctx context.Context, email string) (models.User, error) {
	user, err := a.usrProvider.User(ctx, email)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			return models.User{}, ErrUserNotFound
		}
		return models.User{}, err
	}

	return user, nil
}

func (a *Auth) auditLogin(ctx context.Context, email, outcome string) {
	log := a.log.With(
		slog.String("op", "auth.audit"),
		slog.String("email", email),
		slog.String("outcome", outcome),
	)

	if outcome == models.OutcomeSuccess {
		log.Info("login attempt")
	} else {
		log.Warn("login attempt")
	}

	if a.audit == nil {
		return
	}

	event := models.AuditEvent{
		Type:    models.AuditLogin,
		Email:   email,
		Outcome: outcome,
		At:      time.Now().UTC(),
	}

	if err := a.audit.PublishAudit(ctx, event); err != nil {
		log.Warn("failed to publish audit event", sl.Err(err))
	}
}
