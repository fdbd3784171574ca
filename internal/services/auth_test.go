package services

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nordvale/planline-backend/internal/domain"
	"github.com/nordvale/planline-backend/internal/pkg/dbctx"
	"github.com/nordvale/planline-backend/internal/pkg/logger"
	"github.com/nordvale/planline-backend/internal/requestdata"
)

func newAuthForTest(secret string, ttl time.Duration) *authService {
	return &authService{
		log:          logger.NewNop(),
		jwtSecretKey: secret,
		accessTTL:    ttl,
	}
}

func TestAccessTokenRoundtrip(t *testing.T) {
	as := newAuthForTest("test-secret", time.Hour)
	user := &domain.User{ID: uuid.New()}
	link := &domain.UserTenant{TenantID: uuid.New(), Role: "Owner"}

	token, err := as.generateAccessToken(user, link)
	if err != nil {
		t.Fatalf("generateAccessToken: %v", err)
	}

	ctx, err := as.SetContextFromToken(context.Background(), token)
	if err != nil {
		t.Fatalf("SetContextFromToken: %v", err)
	}
	rd := requestdata.GetRequestData(ctx)
	if rd == nil {
		t.Fatal("expected request data in context")
	}
	if rd.UserID != user.ID {
		t.Fatalf("user id: want=%s got=%s", user.ID, rd.UserID)
	}
	if rd.TenantID != link.TenantID {
		t.Fatalf("tenant id: want=%s got=%s", link.TenantID, rd.TenantID)
	}
	if rd.Role != "Owner" {
		t.Fatalf("role: want=Owner got=%q", rd.Role)
	}
}

func TestSetContextFromTokenWrongSecret(t *testing.T) {
	issuer := newAuthForTest("secret-a", time.Hour)
	verifier := newAuthForTest("secret-b", time.Hour)

	token, err := issuer.generateAccessToken(&domain.User{ID: uuid.New()},
		&domain.UserTenant{TenantID: uuid.New(), Role: "Employee"})
	if err != nil {
		t.Fatalf("generateAccessToken: %v", err)
	}

	if _, err := verifier.SetContextFromToken(context.Background(), token); err == nil {
		t.Fatal("expected verification failure with wrong secret")
	}
}

func TestSetContextFromTokenExpired(t *testing.T) {
	as := newAuthForTest("test-secret", -time.Minute)
	token, err := as.generateAccessToken(&domain.User{ID: uuid.New()},
		&domain.UserTenant{TenantID: uuid.New()})
	if err != nil {
		t.Fatalf("generateAccessToken: %v", err)
	}
	if _, err := as.SetContextFromToken(context.Background(), token); err == nil {
		t.Fatal("expected expired token to be rejected")
	}
}

func TestSetContextFromTokenEmpty(t *testing.T) {
	as := newAuthForTest("test-secret", time.Hour)
	ctx, err := as.SetContextFromToken(context.Background(), "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if requestdata.GetRequestData(ctx) != nil {
		t.Fatal("empty token must not attach request data")
	}
}

type fakeUserTenantRepo struct {
	link *domain.UserTenant
}

func (r *fakeUserTenantRepo) Create(dbctx.Context, *domain.UserTenant) error { return nil }

func (r *fakeUserTenantRepo) GetByUserID(_ dbctx.Context, userID uuid.UUID) (*domain.UserTenant, error) {
	if r.link == nil || r.link.UserID != userID {
		return nil, gorm.ErrRecordNotFound
	}
	return r.link, nil
}

func (r *fakeUserTenantRepo) ListByTenant(dbctx.Context, uuid.UUID) ([]*domain.UserTenant, error) {
	return nil, nil
}

func TestRefreshIssuesNewToken(t *testing.T) {
	user := &domain.User{ID: uuid.New(), IsActive: true}
	link := &domain.UserTenant{UserID: user.ID, TenantID: uuid.New(), Role: "Admin", IsApproved: true}

	as := newAuthForTest("test-secret", time.Hour)
	as.userRepo = &fakeUserRepo{users: map[uuid.UUID]*domain.User{user.ID: user}}
	as.userTenantRepo = &fakeUserTenantRepo{link: link}

	token, err := as.generateAccessToken(user, link)
	if err != nil {
		t.Fatalf("generateAccessToken: %v", err)
	}

	refreshed, err := as.Refresh(context.Background(), token)
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	ctx, err := as.SetContextFromToken(context.Background(), refreshed)
	if err != nil {
		t.Fatalf("refreshed token rejected: %v", err)
	}
	rd := requestdata.GetRequestData(ctx)
	if rd == nil || rd.UserID != user.ID || rd.TenantID != link.TenantID || rd.Role != "Admin" {
		t.Fatalf("refreshed claims mismatch: %+v", rd)
	}
}

func TestRefreshRejectsDisabledAccount(t *testing.T) {
	user := &domain.User{ID: uuid.New(), IsActive: false}
	link := &domain.UserTenant{UserID: user.ID, TenantID: uuid.New(), Role: "Employee", IsApproved: true}

	as := newAuthForTest("test-secret", time.Hour)
	as.userRepo = &fakeUserRepo{users: map[uuid.UUID]*domain.User{user.ID: user}}
	as.userTenantRepo = &fakeUserTenantRepo{link: link}

	token, err := as.generateAccessToken(user, link)
	if err != nil {
		t.Fatalf("generateAccessToken: %v", err)
	}
	if _, err := as.Refresh(context.Background(), token); err == nil {
		t.Fatal("expected refresh to be rejected for a disabled account")
	}
}

func TestSignupValidation(t *testing.T) {
	as := newAuthForTest("test-secret", time.Hour)
	cases := []struct {
		name string
		req  SignupRequest
		want string
	}{
		{
			name: "missing email",
			req:  SignupRequest{Password: "longenough", TenantName: "Acme", TenantDomain: "acme.io"},
			want: "valid email",
		},
		{
			name: "short password",
			req:  SignupRequest{Email: "a@b.co", Password: "short", TenantName: "Acme", TenantDomain: "acme.io"},
			want: "at least 8",
		},
		{
			name: "missing tenant",
			req:  SignupRequest{Email: "a@b.co", Password: "longenough"},
			want: "tenant name and domain",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := as.Signup(context.Background(), tc.req)
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("want error containing %q, got=%v", tc.want, err)
			}
		})
	}
}
