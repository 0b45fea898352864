package service

import (
	"context"
	"errors"
	"microcourse_backend/internal/config"
	"microcourse_backend/internal/model"
	"microcourse_backend/internal/repository"
	"microcourse_backend/internal/util"
	"microcourse_backend/pkg/logger"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

type LoginResult struct {
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expiresAt"`
	User      *model.User `json:"user"`
	Created   bool        `json:"created"`
}

type Profile struct {
	User *model.User         `json:"user"`
	Org  *model.Organization `json:"org"`
}

type AuthService struct {
	Store    *repository.Store
	Revoker  TokenRevoker
	Cfg      config.JWTConfig
	validate *validator.Validate
}

func NewAuthService(store *repository.Store, revoker TokenRevoker, cfg config.JWTConfig) *AuthService {
	return &AuthService{
		Store:    store,
		Revoker:  revoker,
		Cfg:      cfg,
		validate: validator.New(),
	}
}

// Login 按邮箱登录；首次出现的邮箱会同时创建组织和 owner/admin 用户
func (s *AuthService) Login(ctx context.Context, email string) (*LoginResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if err := s.validate.Var(email, "required,email"); err != nil {
		return nil, util.NewValidationError("email", "a valid email is required")
	}

	created := false
	user, err := s.Store.Users.FindByEmail(email)
	if errors.Is(err, util.ErrUserNotFound) {
		user, err = s.createAccount(email)
		created = err == nil
	}
	if err != nil {
		return nil, err
	}

	token, claims, err := util.GenerateJWT(user, s.Cfg.Secret, s.Cfg.ExpireTime)
	if err != nil {
		return nil, err
	}
	return &LoginResult{
		Token:     token,
		ExpiresAt: claims.ExpiresAt.Time,
		User:      user,
		Created:   created,
	}, nil
}

func (s *AuthService) createAccount(email string) (*model.User, error) {
	local := email
	if at := strings.IndexByte(email, '@'); at > 0 {
		local = email[:at]
	}

	org := &model.Organization{
		Name:     local + "'s Organization",
		PlanTier: model.PlanStarter,
	}
	if err := s.Store.Organizations.Create(org); err != nil {
		return nil, err
	}

	user := &model.User{
		Email:       email,
		DisplayName: local,
		OrgID:       &org.ID,
		Roles:       []model.UserRole{model.RoleOwner, model.RoleAdmin},
	}
	if err := s.Store.Users.Create(user); err != nil {
		if errors.Is(err, util.ErrEmailRegistered) {
			return s.Store.Users.FindByEmail(email)
		}
		return nil, err
	}

	org.OwnerID = user.ID
	if err := s.Store.Organizations.Update(org); err != nil {
		return nil, err
	}

	logger.Log.Info("Account created", zap.String("user_id", user.ID), zap.String("org_id", org.ID))
	return user, nil
}

// Logout 吊销当前 token；吊销失败只记录日志，对调用方总是成功
func (s *AuthService) Logout(ctx context.Context, claims *util.Claims) {
	if claims == nil || claims.ID == "" {
		return
	}
	if err := s.Revoker.Revoke(ctx, claims.ID, claims.TTL(time.Now())); err != nil {
		logger.Log.Warn("Failed to revoke token", zap.String("user_id", claims.UserID), zap.Error(err))
	}
}

func (s *AuthService) Me(actor Actor) (*Profile, error) {
	user, err := s.Store.Users.FindByID(actor.UserID)
	if err != nil {
		return nil, err
	}
	profile := &Profile{User: user}
	if orgID := user.OrganizationID(); orgID != "" {
		org, err := s.Store.Organizations.FindByID(orgID)
		if err != nil && !errors.Is(err, util.ErrOrgNotFound) {
			return nil, err
		}
		profile.Org = org
	}
	return profile, nil
}
