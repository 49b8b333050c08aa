package services

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"coursegen-backend/internal/middleware"
	"coursegen-backend/internal/models"
	"coursegen-backend/internal/repository"
)

const bcryptCost = 12

type AuthService struct {
	users          *repository.UserRepo
	jwt            *middleware.JWTAuth
	initialCredits int
}

func NewAuthService(users *repository.UserRepo, jwt *middleware.JWTAuth, initialCredits int) *AuthService {
	return &AuthService{users: users, jwt: jwt, initialCredits: initialCredits}
}

func (s *AuthService) Register(ctx context.Context, req models.RegisterRequest) (*models.User, *models.AuthTokens, error) {
	fields := map[string]string{}
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || !strings.Contains(email, "@") {
		fields["email"] = "A valid email is required"
	}
	if len(req.Password) < 8 {
		fields["password"] = "Password must be at least 8 characters"
	}
	if strings.TrimSpace(req.FullName) == "" {
		fields["fullName"] = "Full name is required"
	}
	if len(fields) > 0 {
		return nil, nil, &ValidationError{Fields: fields}
	}

	existing, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, nil, fmt.Errorf("checking existing user: %w", err)
	}
	if existing != nil {
		return nil, nil, &ConflictError{Message: "An account with this email already exists"}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcryptCost)
	if err != nil {
		return nil, nil, fmt.Errorf("hashing password: %w", err)
	}

	user := &models.User{
		Email:        email,
		PasswordHash: string(hash),
		FullName:     strings.TrimSpace(req.FullName),
		Credits:      s.initialCredits,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, nil, fmt.Errorf("creating user: %w", err)
	}

	tokens, err := s.issueTokens(user)
	if err != nil {
		return nil, nil, err
	}
	log.Printf("registered user %s", user.ID)
	return user, tokens, nil
}

func (s *AuthService) Login(ctx context.Context, req models.LoginRequest) (*models.User, *models.AuthTokens, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, nil, fmt.Errorf("looking up user: %w", err)
	}
	if user == nil {
		return nil, nil, &UnauthorizedError{Message: "Invalid email or password"}
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, nil, &UnauthorizedError{Message: "Invalid email or password"}
	}

	tokens, err := s.issueTokens(user)
	if err != nil {
		return nil, nil, err
	}
	return user, tokens, nil
}

func (s *AuthService) issueTokens(user *models.User) (*models.AuthTokens, error) {
	token, err := s.jwt.GenerateAccessToken(user.ID, user.Email)
	if err != nil {
		return nil, fmt.Errorf("signing token: %w", err)
	}
	return &models.AuthTokens{AccessToken: token, ExpiresIn: int((24 * time.Hour).Seconds())}, nil
}
