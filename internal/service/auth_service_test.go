package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"microcourse_backend/internal/config"
	"microcourse_backend/internal/model"
	"microcourse_backend/internal/repository/memstore"
	"microcourse_backend/internal/util"
)

const testSecret = "test-secret-test-secret-test-secret"

func newAuthService() *AuthService {
	return NewAuthService(memstore.New(), NewMemoryTokenRevoker(), config.JWTConfig{Secret: testSecret, ExpireTime: time.Hour})
}

func TestLoginCreatesAccountOnce(t *testing.T) {
	svc := newAuthService()
	ctx := context.Background()

	first, err := svc.Login(ctx, "  Dana@Example.com ")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if !first.Created || first.User.Email != "dana@example.com" {
		t.Fatalf("first login: %+v", first)
	}
	if !first.User.HasRole(model.RoleOwner) || !first.User.HasRole(model.RoleAdmin) {
		t.Fatalf("new account should own its organization: %v", first.User.Roles)
	}

	profile, err := svc.Me(Actor{UserID: first.User.ID})
	if err != nil {
		t.Fatalf("Me: %v", err)
	}
	if profile.Org == nil || profile.Org.Name != "dana's Organization" || profile.Org.OwnerID != first.User.ID {
		t.Fatalf("organization not set up: %+v", profile.Org)
	}

	second, err := svc.Login(ctx, "dana@example.com")
	if err != nil {
		t.Fatalf("second Login: %v", err)
	}
	if second.Created || second.User.ID != first.User.ID {
		t.Fatalf("second login should reuse the account: %+v", second)
	}

	claims, err := util.ParseJWT(second.Token, testSecret)
	if err != nil {
		t.Fatalf("ParseJWT: %v", err)
	}
	if claims.OrgID != profile.Org.ID || claims.UserID != first.User.ID {
		t.Fatalf("claims: %+v", claims)
	}
}

func TestLoginRejectsInvalidEmail(t *testing.T) {
	svc := newAuthService()
	for _, email := range []string{"", "not-an-email", "a@"} {
		var verr *util.ValidationError
		if _, err := svc.Login(context.Background(), email); !errors.As(err, &verr) {
			t.Fatalf("%q: want ValidationError, got %v", email, err)
		}
	}
}

func TestLogoutRevokesToken(t *testing.T) {
	svc := newAuthService()
	ctx := context.Background()

	res, err := svc.Login(ctx, "sam@example.com")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	claims, _ := util.ParseJWT(res.Token, testSecret)

	svc.Logout(ctx, claims)
	revoked, err := svc.Revoker.IsRevoked(ctx, claims.ID)
	if err != nil || !revoked {
		t.Fatalf("token should be revoked: revoked=%t err=%v", revoked, err)
	}

	svc.Logout(ctx, nil)
}
