package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"lingo-quiz/internal/config"
	"lingo-quiz/internal/domain"
	"lingo-quiz/internal/dto"
	"lingo-quiz/internal/logger"
	"lingo-quiz/internal/util"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const (
	googleUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"
	tokenTypeAccess   = "access"
	tokenTypeRefresh  = "refresh"
)

var (
	ErrInvalidAuthState      = errors.New("invalid oauth state")
	ErrFailedToExchangeToken = errors.New("failed to exchange oauth token")
	ErrFailedToGetUserInfo   = errors.New("failed to get user info from google")
	ErrInvalidJWTToken       = errors.New("invalid jwt token")
)

// AuthService defines the interface for authentication operations.
type AuthService interface {
	GetGoogleLoginURL(state string) string
	HandleGoogleCallback(ctx context.Context, code, receivedState, expectedState string) (*dto.TokenResponse, *domain.User, error)
	ValidateJWT(ctx context.Context, tokenString string) (*dto.AuthClaims, error)
	RefreshToken(ctx context.Context, refreshTokenString string) (*dto.TokenResponse, error)
}

type authServiceImpl struct {
	userRepo     domain.UserRepository
	oauth2Config *oauth2.Config
	userInfoURL  string
	jwtCfg       config.JWTConfig
	quizCfg      config.QuizConfig
	now          func() time.Time
}

// NewAuthService creates a new instance of AuthService.
func NewAuthService(userRepo domain.UserRepository, appConfig *config.Config) (AuthService, error) {
	return newAuthService(userRepo, appConfig, google.Endpoint, googleUserInfoURL)
}

func newAuthService(userRepo domain.UserRepository, appConfig *config.Config, endpoint oauth2.Endpoint, userInfoURL string) (*authServiceImpl, error) {
	if len(appConfig.JWT.SecretKey) < 32 {
		return nil, errors.New("jwt secret key must be at least 32 bytes long")
	}
	return &authServiceImpl{
		userRepo: userRepo,
		oauth2Config: &oauth2.Config{
			ClientID:     appConfig.GoogleOAuth.ClientID,
			ClientSecret: appConfig.GoogleOAuth.ClientSecret,
			RedirectURL:  appConfig.GoogleOAuth.RedirectURL,
			Scopes: []string{
				"https://www.googleapis.com/auth/userinfo.email",
				"https://www.googleapis.com/auth/userinfo.profile",
			},
			Endpoint: endpoint,
		},
		userInfoURL: userInfoURL,
		jwtCfg:      appConfig.JWT,
		quizCfg:     appConfig.Quiz,
		now:         time.Now,
	}, nil
}

func (s *authServiceImpl) GetGoogleLoginURL(state string) string {
	return s.oauth2Config.AuthCodeURL(state)
}

func (s *authServiceImpl) HandleGoogleCallback(ctx context.Context, code, receivedState, expectedState string) (*dto.TokenResponse, *domain.User, error) {
	if receivedState == "" || receivedState != expectedState {
		return nil, nil, domain.NewError(domain.CodeUnauthorized, "oauth state mismatch", ErrInvalidAuthState)
	}

	googleToken, err := s.oauth2Config.Exchange(ctx, code)
	if err != nil {
		return nil, nil, domain.NewError(domain.CodeUnauthorized, "failed to exchange authorization code",
			fmt.Errorf("%w: %v", ErrFailedToExchangeToken, err))
	}

	userInfo, err := s.fetchUserInfo(ctx, googleToken)
	if err != nil {
		return nil, nil, domain.NewError(domain.CodeUnauthorized, "failed to read google profile", err)
	}

	user, err := s.upsertUser(ctx, userInfo)
	if err != nil {
		return nil, nil, err
	}

	tokens, err := s.issueTokens(user.ID)
	if err != nil {
		return nil, nil, domain.NewInternalError("failed to issue tokens", err)
	}
	return tokens, user, nil
}

func (s *authServiceImpl) fetchUserInfo(ctx context.Context, token *oauth2.Token) (*dto.GoogleUserInfo, error) {
	client := s.oauth2Config.Client(ctx, token)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.userInfoURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFailedToGetUserInfo, err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFailedToGetUserInfo, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrFailedToGetUserInfo, resp.StatusCode)
	}

	var userInfo dto.GoogleUserInfo
	if err := json.NewDecoder(resp.Body).Decode(&userInfo); err != nil {
		return nil, fmt.Errorf("failed to decode user info: %w", err)
	}
	if userInfo.ID == "" || userInfo.Email == "" {
		return nil, fmt.Errorf("%w: incomplete profile", ErrFailedToGetUserInfo)
	}
	return &userInfo, nil
}

func (s *authServiceImpl) upsertUser(ctx context.Context, info *dto.GoogleUserInfo) (*domain.User, error) {
	appLogger := logger.Get()
	user, err := s.userRepo.GetByGoogleID(ctx, info.ID)
	if err != nil {
		return nil, domain.NewPersistenceError("failed to load user", err)
	}

	now := s.now().UTC()
	if user == nil {
		user = domain.NewUser(util.NewULID(), info.ID, info.Email, s.quizCfg.DefaultNativeLanguage, s.quizCfg.DefaultFrequency, now)
		user.Name = info.Name
		user.ProfilePictureURL = info.Picture
		if err := s.userRepo.Create(ctx, user); err != nil {
			return nil, domain.NewPersistenceError("failed to create user", err)
		}
		appLogger.Info("New user created via Google OAuth", zap.String("user_id", user.ID), zap.String("email", user.Email))
		return user, nil
	}

	// Google is the source of truth for the profile fields.
	user.Email = info.Email
	user.Name = info.Name
	user.ProfilePictureURL = info.Picture
	user.UpdatedAt = now
	if err := s.userRepo.UpdateProfile(ctx, user); err != nil {
		return nil, domain.NewPersistenceError("failed to update user", err)
	}
	appLogger.Info("User logged in via Google OAuth", zap.String("user_id", user.ID))
	return user, nil
}

func (s *authServiceImpl) issueTokens(userID string) (*dto.TokenResponse, error) {
	access, err := s.createJWT(userID, s.jwtCfg.AccessTokenTTL, tokenTypeAccess)
	if err != nil {
		return nil, fmt.Errorf("failed to create access token: %w", err)
	}
	refresh, err := s.createJWT(userID, s.jwtCfg.RefreshTokenTTL, tokenTypeRefresh)
	if err != nil {
		return nil, fmt.Errorf("failed to create refresh token: %w", err)
	}
	return &dto.TokenResponse{AccessToken: access, RefreshToken: refresh}, nil
}

func (s *authServiceImpl) createJWT(userID string, ttl time.Duration, tokenType string) (string, error) {
	now := s.now()
	claims := dto.AuthClaims{
		UserID:    userID,
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Subject:   userID,
			ID:        util.NewULID(),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.jwtCfg.SecretKey))
}

func (s *authServiceImpl) ValidateJWT(ctx context.Context, tokenString string) (*dto.AuthClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &dto.AuthClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.jwtCfg.SecretKey), nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			logger.Get().Debug("JWT token expired", zap.Error(err))
		} else {
			logger.Get().Warn("JWT validation failed", zap.Error(err))
		}
		return nil, domain.NewError(domain.CodeUnauthorized, "invalid or expired token", fmt.Errorf("%w: %v", ErrInvalidJWTToken, err))
	}

	claims, ok := token.Claims.(*dto.AuthClaims)
	if !ok || !token.Valid || claims.UserID == "" {
		return nil, domain.NewError(domain.CodeUnauthorized, "invalid or expired token", ErrInvalidJWTToken)
	}
	return claims, nil
}

func (s *authServiceImpl) RefreshToken(ctx context.Context, refreshTokenString string) (*dto.TokenResponse, error) {
	claims, err := s.ValidateJWT(ctx, refreshTokenString)
	if err != nil {
		return nil, err
	}
	if claims.TokenType != tokenTypeRefresh {
		return nil, domain.NewUnauthorizedError("not a refresh token")
	}

	user, err := s.userRepo.GetByID(ctx, claims.UserID)
	if err != nil {
		return nil, domain.NewPersistenceError("failed to load user", err)
	}
	if user == nil {
		logger.Get().Warn("User not found for refresh token", zap.String("user_id", claims.UserID))
		return nil, domain.NewUnauthorizedError("user no longer exists")
	}

	tokens, err := s.issueTokens(user.ID)
	if err != nil {
		return nil, domain.NewInternalError("failed to issue tokens", err)
	}
	logger.Get().Info("JWT token refreshed", zap.String("user_id", user.ID))
	return tokens, nil
}
