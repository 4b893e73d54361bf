package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gardem-catalog/internal/apperror"
	"gardem-catalog/internal/domain"
	"gardem-catalog/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const (
	// BcryptCost is the cost factor for bcrypt hashing
	BcryptCost = 10

	// DefaultTokenExpiration applies when no expiry is configured
	DefaultTokenExpiration = 24 * time.Hour
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidToken       = errors.New("invalid token")
	ErrTokenExpired       = errors.New("token has expired")
)

// UserService defines the interface for account and authentication logic
type UserService interface {
	Register(ctx context.Context, name, email, password string) (*domain.User, string, error)
	Login(ctx context.Context, email, password string) (*domain.User, string, error)
	ValidateToken(tokenString string) (*Claims, error)
	GetUserByID(ctx context.Context, userID uuid.UUID) (*domain.User, error)
	UpdateProfile(ctx context.Context, actor domain.Actor, userID uuid.UUID, name, email string) (*domain.User, error)
	ChangePassword(ctx context.Context, actor domain.Actor, currentPassword, newPassword string) error
	ListUsers(ctx context.Context, actor domain.Actor) ([]*domain.User, error)
	UpdateUser(ctx context.Context, actor domain.Actor, userID uuid.UUID, name, email string, role domain.Role) (*domain.User, error)
	DeleteUser(ctx context.Context, actor domain.Actor, userID uuid.UUID) error
}

// Claims represents the JWT claims
type Claims struct {
	UserID uuid.UUID   `json:"id"`
	Email  string      `json:"email"`
	Role   domain.Role `json:"rol"`
	jwt.RegisteredClaims
}

type userService struct {
	userRepo    repository.UserRepository
	jwtSecret   string
	tokenExpiry time.Duration
	logger      *zap.Logger
}

// NewUserService creates a new instance of UserService
func NewUserService(
	userRepo repository.UserRepository,
	jwtSecret string,
	tokenExpiry time.Duration,
	logger *zap.Logger,
) UserService {
	if tokenExpiry <= 0 {
		tokenExpiry = DefaultTokenExpiration
	}
	return &userService{
		userRepo:    userRepo,
		jwtSecret:   jwtSecret,
		tokenExpiry: tokenExpiry,
		logger:      logger,
	}
}

// Register creates a new customer account and issues its first token
func (s *userService) Register(ctx context.Context, name, email, password string) (*domain.User, string, error) {
	email = normalizeEmail(email)

	existingUser, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil && !errors.Is(err, repository.ErrUserNotFound) {
		return nil, "", translate(err, "failed to check existing user")
	}
	if existingUser != nil {
		return nil, "", apperror.Conflict("el email ya está registrado")
	}

	hashedPassword, err := s.hashPassword(password)
	if err != nil {
		return nil, "", apperror.Internal(err, "failed to hash password")
	}

	now := time.Now().UTC()
	user := &domain.User{
		ID:           uuid.New(),
		Name:         strings.TrimSpace(name),
		Email:        email,
		PasswordHash: hashedPassword,
		Role:         domain.RoleCustomer,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, "", translate(err, "failed to create user")
	}

	token, err := s.generateToken(user)
	if err != nil {
		return nil, "", apperror.Internal(err, "failed to generate token")
	}

	s.logger.Info("User registered", zap.String("user_id", user.ID.String()))
	return user, token, nil
}

// Login authenticates a user and returns a signed token
func (s *userService) Login(ctx context.Context, email, password string) (*domain.User, string, error) {
	user, err := s.userRepo.FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, "", apperror.Wrap(apperror.CodeUnauthorized, ErrInvalidCredentials, "credenciales inválidas")
		}
		return nil, "", translate(err, "failed to find user")
	}

	if err := s.verifyPassword(user.PasswordHash, password); err != nil {
		return nil, "", apperror.Wrap(apperror.CodeUnauthorized, ErrInvalidCredentials, "credenciales inválidas")
	}

	token, err := s.generateToken(user)
	if err != nil {
		return nil, "", apperror.Internal(err, "failed to generate token")
	}

	return user, token, nil
}

// ValidateToken validates a JWT token and returns the claims
func (s *userService) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.jwtSecret), nil
	})

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}

	return claims, nil
}

// GetUserByID retrieves a user by ID
func (s *userService) GetUserByID(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, translate(err, "failed to get user")
	}
	return user, nil
}

// UpdateProfile changes name and email of the actor's own account, or any account for admins
func (s *userService) UpdateProfile(ctx context.Context, actor domain.Actor, userID uuid.UUID, name, email string) (*domain.User, error) {
	if err := Authorize(actor, userID, domain.RoleCustomer); err != nil {
		return nil, err
	}

	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, translate(err, "failed to get user")
	}

	if name = strings.TrimSpace(name); name != "" {
		user.Name = name
	}
	if email = normalizeEmail(email); email != "" {
		user.Email = email
	}
	user.UpdatedAt = time.Now().UTC()

	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, translate(err, "failed to update user")
	}

	return user, nil
}

// ChangePassword replaces the actor's password after verifying the current one
func (s *userService) ChangePassword(ctx context.Context, actor domain.Actor, currentPassword, newPassword string) error {
	user, err := s.userRepo.FindByID(ctx, actor.UserID)
	if err != nil {
		return translate(err, "failed to get user")
	}

	if err := s.verifyPassword(user.PasswordHash, currentPassword); err != nil {
		return apperror.Validation("la contraseña actual es incorrecta")
	}

	hashedPassword, err := s.hashPassword(newPassword)
	if err != nil {
		return apperror.Internal(err, "failed to hash password")
	}

	if err := s.userRepo.UpdatePassword(ctx, user.ID, hashedPassword); err != nil {
		return translate(err, "failed to update password")
	}

	s.logger.Info("Password changed", zap.String("user_id", user.ID.String()))
	return nil
}

func (s *userService) ListUsers(ctx context.Context, actor domain.Actor) ([]*domain.User, error) {
	if err := Authorize(actor, uuid.Nil, domain.RoleAdmin); err != nil {
		return nil, err
	}

	users, err := s.userRepo.List(ctx)
	if err != nil {
		return nil, translate(err, "failed to list users")
	}
	return users, nil
}

func (s *userService) UpdateUser(ctx context.Context, actor domain.Actor, userID uuid.UUID, name, email string, role domain.Role) (*domain.User, error) {
	if err := Authorize(actor, uuid.Nil, domain.RoleAdmin); err != nil {
		return nil, err
	}
	if role != "" && !role.IsValid() {
		return nil, apperror.Validation("rol inválido")
	}

	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, translate(err, "failed to get user")
	}

	if name = strings.TrimSpace(name); name != "" {
		user.Name = name
	}
	if email = normalizeEmail(email); email != "" {
		user.Email = email
	}
	if role != "" {
		user.Role = role
	}
	user.UpdatedAt = time.Now().UTC()

	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, translate(err, "failed to update user")
	}

	s.logger.Info("User updated by administrator",
		zap.String("user_id", user.ID.String()),
		zap.String("admin_id", actor.UserID.String()),
	)
	return user, nil
}

func (s *userService) DeleteUser(ctx context.Context, actor domain.Actor, userID uuid.UUID) error {
	if err := Authorize(actor, uuid.Nil, domain.RoleAdmin); err != nil {
		return err
	}
	if actor.UserID == userID {
		return apperror.Conflict("un administrador no puede eliminar su propia cuenta")
	}

	if err := s.userRepo.Delete(ctx, userID); err != nil {
		return translate(err, "failed to delete user")
	}

	s.logger.Info("User deleted", zap.String("user_id", userID.String()))
	return nil
}

// hashPassword hashes a password using bcrypt with cost factor 10
func (s *userService) hashPassword(password string) (string, error) {
	hashedBytes, err := bcrypt.GenerateFromPassword([]byte(password), BcryptCost)
	if err != nil {
		return "", err
	}
	return string(hashedBytes), nil
}

// verifyPassword verifies a password against a bcrypt hash
func (s *userService) verifyPassword(hashedPassword, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password))
}

// generateToken signs a token carrying id, email and role
func (s *userService) generateToken(user *domain.User) (string, error) {
	now := time.Now()
	claims := &Claims{
		UserID: user.ID,
		Email:  user.Email,
		Role:   user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID.String(),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenExpiry)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.jwtSecret))
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
