package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/nordvale/planline-backend/internal/data/repos"
	"github.com/nordvale/planline-backend/internal/domain"
	"github.com/nordvale/planline-backend/internal/pkg/dbctx"
	"github.com/nordvale/planline-backend/internal/pkg/logger"
	"github.com/nordvale/planline-backend/internal/requestdata"
)

// SignupRequest bootstraps a tenant with its owning user in one step.
type SignupRequest struct {
	Email        string
	Password     string
	FirstName    string
	LastName     string
	TenantName   string
	TenantDomain string
}

type JWTClaims struct {
	TenantID string `json:"tenant_id"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

type AuthService interface {
	Signup(ctx context.Context, req SignupRequest) (*domain.User, *domain.Tenant, error)
	Login(ctx context.Context, email, password string) (string, *domain.User, error)
	Refresh(ctx context.Context, tokenString string) (string, error)
	SetContextFromToken(ctx context.Context, tokenString string) (context.Context, error)
	GetAccessTTL() time.Duration
}

type authService struct {
	db             *gorm.DB
	log            *logger.Logger
	userRepo       repos.UserRepo
	userTenantRepo repos.UserTenantRepo
	tenantRepo     repos.TenantRepo
	jwtSecretKey   string
	accessTTL      time.Duration
}

func NewAuthService(
	db *gorm.DB,
	log *logger.Logger,
	userRepo repos.UserRepo,
	userTenantRepo repos.UserTenantRepo,
	tenantRepo repos.TenantRepo,
	jwtSecretKey string,
	accessTTL time.Duration,
) AuthService {
	return &authService{
		db:             db,
		log:            log.With("service", "AuthService"),
		userRepo:       userRepo,
		userTenantRepo: userTenantRepo,
		tenantRepo:     tenantRepo,
		jwtSecretKey:   jwtSecretKey,
		accessTTL:      accessTTL,
	}
}

func (as *authService) Signup(ctx context.Context, req SignupRequest) (*domain.User, *domain.Tenant, error) {
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.TenantName = strings.TrimSpace(req.TenantName)
	req.TenantDomain = strings.ToLower(strings.TrimSpace(req.TenantDomain))

	if req.Email == "" || !strings.Contains(req.Email, "@") {
		return nil, nil, fmt.Errorf("valid email required")
	}
	if len(req.Password) < 8 {
		return nil, nil, fmt.Errorf("password must be at least 8 characters")
	}
	if req.TenantName == "" || req.TenantDomain == "" {
		return nil, nil, fmt.Errorf("tenant name and domain required")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &domain.User{
		Email:        req.Email,
		FirstName:    strings.TrimSpace(req.FirstName),
		LastName:     strings.TrimSpace(req.LastName),
		PasswordHash: string(hash),
		IsActive:     true,
	}
	tenant := &domain.Tenant{
		Name:   req.TenantName,
		Domain: req.TenantDomain,
	}

	err = as.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}
		exists, err := as.userRepo.EmailExists(dbc, req.Email)
		if err != nil {
			return fmt.Errorf("failed to check email: %w", err)
		}
		if exists {
			return fmt.Errorf("email already registered")
		}
		if err := as.tenantRepo.Create(dbc, tenant); err != nil {
			return fmt.Errorf("failed to create tenant: %w", err)
		}
		if err := as.userRepo.Create(dbc, user); err != nil {
			return fmt.Errorf("failed to create user: %w", err)
		}
		link := &domain.UserTenant{
			UserID:     user.ID,
			TenantID:   tenant.ID,
			IsOwner:    true,
			IsApproved: true,
			Role:       "Owner",
		}
		if err := as.userTenantRepo.Create(dbc, link); err != nil {
			return fmt.Errorf("failed to create tenant membership: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return user, tenant, nil
}

func (as *authService) Login(ctx context.Context, email, password string) (string, *domain.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	dbc := dbctx.Context{Ctx: ctx}

	user, err := as.userRepo.GetByEmail(dbc, email)
	if err != nil {
		return "", nil, fmt.Errorf("invalid email or password")
	}
	if !user.IsActive {
		return "", nil, fmt.Errorf("account disabled")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", nil, fmt.Errorf("invalid email or password")
	}

	link, err := as.userTenantRepo.GetByUserID(dbc, user.ID)
	if err != nil {
		return "", nil, fmt.Errorf("no tenant membership for user")
	}
	if !link.IsApproved {
		return "", nil, fmt.Errorf("membership pending approval")
	}

	token, err := as.generateAccessToken(user, link)
	if err != nil {
		return "", nil, fmt.Errorf("failed to generate access token: %w", err)
	}
	return token, user, nil
}

func (as *authService) generateAccessToken(user *domain.User, link *domain.UserTenant) (string, error) {
	claims := JWTClaims{
		TenantID: link.TenantID.String(),
		Role:     link.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID.String(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(as.accessTTL)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(as.jwtSecretKey))
}

// Refresh re-issues an access token with a fresh expiry. The presented token
// must still be valid; expired tokens require a full login.
func (as *authService) Refresh(ctx context.Context, tokenString string) (string, error) {
	authedCtx, err := as.SetContextFromToken(ctx, tokenString)
	if err != nil {
		return "", err
	}
	rd := requestdata.GetRequestData(authedCtx)
	if rd == nil {
		return "", fmt.Errorf("no token to refresh")
	}

	dbc := dbctx.Context{Ctx: ctx}
	user, err := as.userRepo.GetByID(dbc, rd.UserID)
	if err != nil {
		return "", fmt.Errorf("failed to load user: %w", err)
	}
	if !user.IsActive {
		return "", fmt.Errorf("account disabled")
	}
	link, err := as.userTenantRepo.GetByUserID(dbc, user.ID)
	if err != nil {
		return "", fmt.Errorf("no tenant membership for user")
	}
	if !link.IsApproved {
		return "", fmt.Errorf("membership pending approval")
	}
	return as.generateAccessToken(user, link)
}

func (as *authService) SetContextFromToken(ctx context.Context, tokenString string) (context.Context, error) {
	if tokenString == "" {
		return ctx, nil
	}
	parsedToken, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return []byte(as.jwtSecretKey), nil
	})
	if err != nil {
		return ctx, fmt.Errorf("failed to parse token: %w", err)
	}
	claims, ok := parsedToken.Claims.(*JWTClaims)
	if !ok || !parsedToken.Valid {
		return ctx, fmt.Errorf("invalid or expired token")
	}
	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return ctx, fmt.Errorf("invalid user id in token: %w", err)
	}
	tenantID, err := uuid.Parse(claims.TenantID)
	if err != nil {
		return ctx, fmt.Errorf("invalid tenant id in token: %w", err)
	}
	rd := &requestdata.RequestData{
		TokenString: tokenString,
		UserID:      userID,
		TenantID:    tenantID,
		Role:        claims.Role,
	}
	return requestdata.WithRequestData(ctx, rd), nil
}

func (as *authService) GetAccessTTL() time.Duration {
	return as.accessTTL
}
