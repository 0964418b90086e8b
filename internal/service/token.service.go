package service

import (
	"context"
	"errors"
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var ErrInvalidToken = errors.New("invalid token")

const (
	userIdKey      = "user_id"
	displayNameKey = "display_name"
	avatarRefKey   = "avatar_ref"
	issuedAtKey    = "iat"
)

func (s *service) generateJWT(user User) (string, error) {
	claims := jwt.MapClaims{
		userIdKey:      user.Id,
		displayNameKey: user.DisplayName,
		avatarRefKey:   user.AvatarRef,
		issuedAtKey:    s.now().Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	return token.SignedString(s.secret)
}

func (s *service) parseJWT(tokenString string) (User, error) {
	token, err := jwt.ParseWithClaims(tokenString, jwt.MapClaims{}, func(token *jwt.Token) (any, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return User{}, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	if !token.Valid {
		return User{}, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return User{}, ErrInvalidToken
	}

	userId, ok := claims[userIdKey].(string)
	if !ok || userId == "" {
		return User{}, ErrInvalidToken
	}

	displayName, _ := claims[displayNameKey].(string)
	avatarRef, _ := claims[avatarRefKey].(string)

	return User{
		Id:          userId,
		DisplayName: displayName,
		AvatarRef:   avatarRef,
	}, nil
}

type IssueTokenParams struct {
	DisplayName string `json:"display_name"`
	AvatarRef   string `json:"avatar_ref"`
}

type IssueTokenResponse struct {
	AuthToken string `json:"auth_token"`
	User      User   `json:"user"`
}

// IssueToken creates a new user identity and signs it.
func (s *service) IssueToken(ctx context.Context, params *IssueTokenParams) (IssueTokenResponse, error) {
	if err := validation.ValidateStructWithContext(ctx, params,
		validation.Field(&params.DisplayName, DisplayNameRule...),
		validation.Field(&params.AvatarRef, AvatarRefRule...),
	); err != nil {
		return IssueTokenResponse{}, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}

	user := User{
		Id:          uuid.NewString(),
		DisplayName: params.DisplayName,
		AvatarRef:   params.AvatarRef,
	}

	token, err := s.generateJWT(user)
	if err != nil {
		return IssueTokenResponse{}, fmt.Errorf("failed to generate jwt: %w", err)
	}

	return IssueTokenResponse{
		AuthToken: token,
		User:      user,
	}, nil
}

func (s *service) ParseToken(tokenString string) (User, error) {
	return s.parseJWT(tokenString)
}
