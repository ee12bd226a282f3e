package api

import (
	"context"
	"net/http"

	"fintrack/internal/core"
)

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Token string    `json:"token"`
	User  core.User `json:"user"`
}

type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RegisterResponse struct {
	Message string `json:"message"`
}

// Me returns the user the current token belongs to.
func (c *Client) Me(ctx context.Context) (core.User, error) {
	var resp struct {
		User core.User `json:"user"`
	}
	if err := c.Do(ctx, http.MethodGet, "/auth/me", nil, &resp); err != nil {
		return core.User{}, err
	}
	return resp.User, nil
}

func (c *Client) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	var resp LoginResponse
	if err := c.DoPublic(ctx, http.MethodPost, "/auth/login", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) Register(ctx context.Context, req RegisterRequest) (*RegisterResponse, error) {
	var resp RegisterResponse
	if err := c.DoPublic(ctx, http.MethodPost, "/auth/register", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
