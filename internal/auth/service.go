package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"backend-bikerental/internal/db"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const (
	accessTokenTTL  = 15 * time.Minute
	refreshTokenTTL = 7 * 24 * time.Hour
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrRefreshInvalid     = errors.New("refresh token invalid")
)

var (
	signTokenFn       = (*Service).signToken
	hashPasswordFn    = bcrypt.GenerateFromPassword
	parseWithClaimsFn = jwt.ParseWithClaims
)

type Service struct {
	secret []byte
	db     db.Querier
}

type Claims struct {
	RiderID string `json:"rider_id"`
	jwt.RegisteredClaims
}

func NewService(secret string, q db.Querier) *Service {
	return &Service{
		secret: []byte(secret),
		db:     q,
	}
}

func (s *Service) Register(ctx context.Context, req RegisterRequest) (Rider, TokenResponse, error) {
	if req.Email == "" || req.Password == "" {
		return Rider{}, TokenResponse{}, errors.New("email and password required")
	}
	hash, err := hashPasswordFn([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return Rider{}, TokenResponse{}, fmt.Errorf("hash password: %w", err)
	}

	rider := Rider{
		ID:           uuid.NewString(),
		Email:        req.Email,
		FullName:     req.FullName,
		Phone:        req.Phone,
		PasswordHash: string(hash),
	}

	row := s.db.QueryRow(ctx, `
		INSERT INTO riders (id, email, password_hash, full_name, phone)
		VALUES ($1,$2,$3,$4,$5)
		RETURNING created_at, updated_at
	`, rider.ID, rider.Email, rider.PasswordHash, rider.FullName, rider.Phone)
	if err := row.Scan(&rider.CreatedAt, &rider.UpdatedAt); err != nil {
		return Rider{}, TokenResponse{}, fmt.Errorf("insert rider: %w", err)
	}

	tokens, err := s.GenerateTokens(ctx, rider.ID)
	if err != nil {
		return Rider{}, TokenResponse{}, err
	}
	return rider, tokens, nil
}

func (s *Service) Login(ctx context.Context, req LoginRequest) (Rider, TokenResponse, error) {
	rider, err := s.riderByEmail(ctx, req.Email)
	if err != nil {
		return Rider{}, TokenResponse{}, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(rider.PasswordHash), []byte(req.Password)); err != nil {
		return Rider{}, TokenResponse{}, ErrInvalidCredentials
	}

	tokens, err := s.GenerateTokens(ctx, rider.ID)
	if err != nil {
		return Rider{}, TokenResponse{}, err
	}
	return rider, tokens, nil
}

func (s *Service) Rider(ctx context.Context, id string) (Rider, error) {
	var r Rider
	err := s.db.QueryRow(ctx, `
		SELECT id, email, password_hash, COALESCE(full_name,''), COALESCE(phone,''), created_at, updated_at
		FROM riders WHERE id = $1
	`, id).Scan(&r.ID, &r.Email, &r.PasswordHash, &r.FullName, &r.Phone, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return Rider{}, fmt.Errorf("load rider %s: %w", id, err)
	}
	return r, nil
}

func (s *Service) riderByEmail(ctx context.Context, email string) (Rider, error) {
	var r Rider
	err := s.db.QueryRow(ctx, `
		SELECT id, email, password_hash, COALESCE(full_name,''), COALESCE(phone,''), created_at, updated_at
		FROM riders WHERE email = $1
	`, email).Scan(&r.ID, &r.Email, &r.PasswordHash, &r.FullName, &r.Phone, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return Rider{}, fmt.Errorf("load rider: %w", err)
	}
	return r, nil
}

func (s *Service) GenerateTokens(ctx context.Context, riderID string) (TokenResponse, error) {
	access, err := signTokenFn(s, riderID, accessTokenTTL)
	if err != nil {
		return TokenResponse{}, err
	}

	refresh, err := signTokenFn(s, riderID, refreshTokenTTL)
	if err != nil {
		return TokenResponse{}, err
	}

	if err := s.saveRefreshToken(ctx, refresh, riderID, refreshTokenTTL); err != nil {
		return TokenResponse{}, err
	}

	return TokenResponse{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "Bearer",
		ExpiresIn:    int64(accessTokenTTL.Seconds()),
	}, nil
}

func (s *Service) ValidateRefreshToken(ctx context.Context, token string) (string, error) {
	claims, err := s.parseToken(token)
	if err != nil {
		return "", err
	}

	riderID, expiresAt, err := s.lookupRefreshToken(ctx, token)
	if err != nil || riderID != claims.RiderID || time.Now().After(expiresAt) {
		return "", ErrRefreshInvalid
	}
	return claims.RiderID, nil
}

// RevokeRefreshToken marks a refresh token unusable. Unknown tokens are not an error.
func (s *Service) RevokeRefreshToken(ctx context.Context, token string) error {
	_, err := s.db.Exec(ctx, `
		UPDATE refresh_tokens SET revoked_at = now()
		WHERE token = $1 AND revoked_at IS NULL
	`, token)
	return err
}

func (s *Service) ValidateAccessToken(token string) (string, error) {
	claims, err := s.parseToken(token)
	if err != nil {
		return "", err
	}
	return claims.RiderID, nil
}

func (s *Service) signToken(riderID string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		RiderID: riderID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

func (s *Service) parseToken(token string) (*Claims, error) {
	parsed, err := parseWithClaimsFn(token, &Claims{}, func(_ *jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, errors.New("token invalid")
	}
	return claims, nil
}

func (s *Service) saveRefreshToken(ctx context.Context, token, riderID string, ttl time.Duration) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO refresh_tokens (id, rider_id, token, expires_at)
		VALUES ($1,$2,$3,$4)
	`, uuid.NewString(), riderID, token, time.Now().Add(ttl))
	return err
}

func (s *Service) lookupRefreshToken(ctx context.Context, token string) (string, time.Time, error) {
	row := s.db.QueryRow(ctx, `
		SELECT rider_id, expires_at
		FROM refresh_tokens
		WHERE token = $1 AND revoked_at IS NULL
	`, token)
	var riderID string
	var expiresAt time.Time
	if err := row.Scan(&riderID, &expiresAt); err != nil {
		return "", time.Time{}, err
	}
	return riderID, expiresAt, nil
}
