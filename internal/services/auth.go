package services

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/mkravets/staffhub/internal/config"
	"github.com/mkravets/staffhub/internal/models"
	"github.com/mkravets/staffhub/internal/utils"
	"gorm.io/gorm"
)

// AuthService handles registration, login and refresh-token rotation.
type AuthService struct {
	db  *gorm.DB
	cfg *config.JWTConfig
}

func NewAuthService(db *gorm.DB, cfg *config.JWTConfig) *AuthService {
	return &AuthService{db: db, cfg: cfg}
}

type RegisterRequest struct {
	Username   string `json:"username" binding:"required,min=3,max=100"`
	Password   string `json:"password" binding:"required,min=8"`
	Email      string `json:"email" binding:"omitempty,email"`
	Nickname   string `json:"nickname"`
	GlobalRole string `json:"global_role" binding:"required,oneof=customer manager executor"`
}

type LoginResult struct {
	User            *models.User `json:"user"`
	AccessToken     string       `json:"access_token"`
	AccessExpireAt  time.Time    `json:"access_expire_at"`
	RefreshToken    string       `json:"refresh_token"`
	RefreshExpireAt time.Time    `json:"refresh_expire_at"`
}

// Register creates a user with the chosen global role.
func (s *AuthService) Register(req *RegisterRequest) (*models.User, error) {
	var count int64
	if err := s.db.Model(&models.User{}).
		Where("username = ?", req.Username).
		Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, errAlreadyExists("username %q is taken", req.Username)
	}

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	user := models.User{
		Username:   req.Username,
		Password:   hash,
		Email:      req.Email,
		Nickname:   req.Nickname,
		GlobalRole: req.GlobalRole,
		Visible:    true,
		IsActive:   true,
	}
	if err := s.db.Create(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// Login verifies credentials and issues an access/refresh token pair.
func (s *AuthService) Login(username, password, clientIP, userAgent string) (*LoginResult, error) {
	var user models.User
	if err := s.db.Where("username = ?", username).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errPermissionDenied("invalid username or password")
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, errPermissionDenied("account is disabled")
	}
	if !utils.CheckPassword(password, user.Password) {
		return nil, errPermissionDenied("invalid username or password")
	}

	now := time.Now()
	s.db.Model(&user).Update("last_login", now)
	user.LastLogin = &now

	return s.issueTokens(&user, clientIP, userAgent)
}

// Refresh rotates a refresh token: the presented token is revoked and a new
// pair is issued in one transaction.
func (s *AuthService) Refresh(refreshToken, clientIP, userAgent string) (*LoginResult, error) {
	hash := hashRefreshToken(refreshToken)

	var stored models.RefreshToken
	if err := s.db.Where("token_hash = ? AND revoked_at IS NULL", hash).
		First(&stored).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errPermissionDenied("invalid refresh token")
		}
		return nil, err
	}
	if time.Now().After(stored.ExpiresAt) {
		return nil, errPermissionDenied("refresh token expired")
	}

	var user models.User
	if err := s.db.First(&user, stored.UserID).Error; err != nil {
		return nil, err
	}
	if !user.IsActive {
		return nil, errPermissionDenied("account is disabled")
	}

	var result *LoginResult
	err := s.db.Transaction(func(tx *gorm.DB) error {
		now := time.Now()
		if err := tx.Model(&stored).Update("revoked_at", now).Error; err != nil {
			return err
		}
		var err error
		result, err = s.issueTokensTx(tx, &user, clientIP, userAgent)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Revoke invalidates a refresh token on logout. A missing token is not an
// error.
func (s *AuthService) Revoke(refreshToken string) error {
	if refreshToken == "" {
		return nil
	}
	hash := hashRefreshToken(refreshToken)
	now := time.Now()
	return s.db.Model(&models.RefreshToken{}).
		Where("token_hash = ? AND revoked_at IS NULL", hash).
		Update("revoked_at", now).Error
}

// GetUserByID returns a user by primary key.
func (s *AuthService) GetUserByID(id uint) (*models.User, error) {
	var user models.User
	if err := s.db.First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errNotFound("user %d not found", id)
		}
		return nil, err
	}
	return &user, nil
}

func (s *AuthService) issueTokens(user *models.User, clientIP, userAgent string) (*LoginResult, error) {
	return s.issueTokensTx(s.db, user, clientIP, userAgent)
}

func (s *AuthService) issueTokensTx(tx *gorm.DB, user *models.User, clientIP, userAgent string) (*LoginResult, error) {
	accessToken, err := utils.GenerateToken(user.ID, user.Username, user.GlobalRole, user.IsAdmin, s.cfg.ExpireHour)
	if err != nil {
		return nil, err
	}

	refreshValue := uuid.NewString() + uuid.NewString()
	now := time.Now()
	refresh := models.RefreshToken{
		UserID:      user.ID,
		TokenHash:   hashRefreshToken(refreshValue),
		ExpiresAt:   now.Add(time.Duration(s.cfg.RefreshExpireHour) * time.Hour),
		CreatedByIP: clientIP,
		UserAgent:   userAgent,
	}
	if err := tx.Create(&refresh).Error; err != nil {
		return nil, err
	}

	return &LoginResult{
		User:            user,
		AccessToken:     accessToken,
		AccessExpireAt:  now.Add(time.Duration(s.cfg.ExpireHour) * time.Hour),
		RefreshToken:    refreshValue,
		RefreshExpireAt: refresh.ExpiresAt,
	}, nil
}

func hashRefreshToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
