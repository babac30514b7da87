package repository

import (
	"context"

	"ripple/infrastructure/api"
	"ripple/internal/entity"
)

type AuthRepository interface {
	Login(ctx context.Context, email, password string) (entity.AuthResponse, error)
	Refresh(ctx context.Context, refreshToken string) (entity.AuthResponse, error)
	Logout(ctx context.Context, refreshToken string) error
}

type authRepository struct {
	client *api.Client
}

func NewAuthRepository(client *api.Client) AuthRepository {
	return &authRepository{client: client}
}

func (r *authRepository) Login(ctx context.Context, email, password string) (entity.AuthResponse, error) {
	var out entity.AuthResponse
	err := r.client.Post(ctx, "/auth/login", entity.LoginRequest{Email: email, Password: password}, &out)
	return out, err
}

func (r *authRepository) Refresh(ctx context.Context, refreshToken string) (entity.AuthResponse, error) {
	var out entity.AuthResponse
	err := r.client.Post(ctx, "/auth/refresh", entity.RefreshTokenRequest{RefreshToken: refreshToken}, &out)
	return out, err
}

func (r *authRepository) Logout(ctx context.Context, refreshToken string) error {
	return r.client.Post(ctx, "/auth/logout", entity.RefreshTokenRequest{RefreshToken: refreshToken}, nil)
}
