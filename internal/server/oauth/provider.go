// Package oauth обменивает authorization code внешнего провайдера на профиль пользователя.
package oauth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// GoogleUserInfoURL - OpenID Connect userinfo endpoint Google
const GoogleUserInfoURL = "https://openidconnect.googleapis.com/v1/userinfo"

var (
	// ErrExchangeFailed - провайдер не принял code
	ErrExchangeFailed = errors.New("oauth code exchange failed")
	// ErrProfileUnavailable - не удалось получить профиль по access token
	ErrProfileUnavailable = errors.New("oauth profile unavailable")
)

// Tokens - результат обмена code
type Tokens struct {
	token       *oauth2.Token
	AccessToken string
	IDToken     string
}

// Profile - подтвержденные провайдером данные пользователя
type Profile struct {
	Subject       string
	Email         string
	EmailVerified bool
}

// Provider - внешний провайдер идентификации
type Provider interface {
	// AuthCodeURL возвращает адрес страницы согласия провайдера
	AuthCodeURL(state string) string
	// Exchange обменивает authorization code на токены
	Exchange(ctx context.Context, code string) (*Tokens, error)
	// FetchProfile запрашивает профиль пользователя
	FetchProfile(ctx context.Context, tokens *Tokens) (*Profile, error)
}

// OAuth2Provider реализует Provider поверх golang.org/x/oauth2
type OAuth2Provider struct {
	config      *oauth2.Config
	userInfoURL string
}

// NewOAuth2Provider создает провайдера с произвольным endpoint
func NewOAuth2Provider(config *oauth2.Config, userInfoURL string) *OAuth2Provider {
	return &OAuth2Provider{config: config, userInfoURL: userInfoURL}
}

// NewGoogleProvider создает провайдера Google
func NewGoogleProvider(clientID, clientSecret, redirectURL string) *OAuth2Provider {
	return NewOAuth2Provider(&oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURL,
		Endpoint:     google.Endpoint,
		Scopes:       []string{"openid", "email", "profile"},
	}, GoogleUserInfoURL)
}

// AuthCodeURL возвращает адрес страницы согласия
func (p *OAuth2Provider) AuthCodeURL(state string) string {
	return p.config.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

// Exchange обменивает code на токены
func (p *OAuth2Provider) Exchange(ctx context.Context, code string) (*Tokens, error) {
	if code == "" {
		return nil, fmt.Errorf("%w: empty code", ErrExchangeFailed)
	}

	token, err := p.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrExchangeFailed, err)
	}

	tokens := &Tokens{
		token:       token,
		AccessToken: token.AccessToken,
	}
	if idToken, ok := token.Extra("id_token").(string); ok {
		tokens.IDToken = idToken
	}

	return tokens, nil
}

// userInfo покрывает OIDC (sub, email_verified) и userinfo v2 (id, verified_email)
type userInfo struct {
	EmailVerified *bool  `json:"email_verified"`
	VerifiedEmail *bool  `json:"verified_email"`
	Sub           string `json:"sub"`
	ID            string `json:"id"`
	Email         string `json:"email"`
}

// FetchProfile запрашивает userinfo с access token
func (p *OAuth2Provider) FetchProfile(ctx context.Context, tokens *Tokens) (*Profile, error) {
	if tokens == nil || tokens.AccessToken == "" {
		return nil, fmt.Errorf("%w: no access token", ErrProfileUnavailable)
	}

	token := tokens.token
	if token == nil {
		token = &oauth2.Token{AccessToken: tokens.AccessToken, TokenType: "Bearer"}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.userInfoURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrProfileUnavailable, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.config.Client(ctx, token).Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrProfileUnavailable, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: userinfo returned status %d", ErrProfileUnavailable, resp.StatusCode)
	}

	var info userInfo
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&info); err != nil {
		return nil, fmt.Errorf("%w: failed to decode userinfo: %w", ErrProfileUnavailable, err)
	}

	profile := &Profile{
		Subject: info.Sub,
		Email:   info.Email,
	}
	if profile.Subject == "" {
		profile.Subject = info.ID
	}
	switch {
	case info.EmailVerified != nil:
		profile.EmailVerified = *info.EmailVerified
	case info.VerifiedEmail != nil:
		profile.EmailVerified = *info.VerifiedEmail
	}

	return profile, nil
}
