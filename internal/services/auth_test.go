package services

import (
	"testing"

	"github.com/mkravets/staffhub/internal/config"
	"github.com/mkravets/staffhub/internal/models"
	"github.com/mkravets/staffhub/internal/utils"
)

func newAuthService(t *testing.T) *AuthService {
	t.Helper()
	utils.SetJWTSecret("auth-test-secret")
	db := newTestDB(t)
	cfg := &config.JWTConfig{Secret: "auth-test-secret", ExpireHour: 1, RefreshExpireHour: 24}
	return NewAuthService(db, cfg)
}

func TestRegister_CreatesUserWithRole(t *testing.T) {
	svc := newAuthService(t)

	user, err := svc.Register(&RegisterRequest{
		Username:   "alice",
		Password:   "supersecret",
		GlobalRole: models.RoleManager,
	})
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if user.GlobalRole != models.RoleManager {
		t.Errorf("role = %q, expected manager", user.GlobalRole)
	}
	if !user.Visible || !user.IsActive {
		t.Error("new users should be visible and active")
	}
	if user.Password == "supersecret" {
		t.Error("password must be stored hashed")
	}

	if _, err := svc.Register(&RegisterRequest{
		Username:   "alice",
		Password:   "anothersecret",
		GlobalRole: models.RoleExecutor,
	}); !IsCode(err, CodeAlreadyExists) {
		t.Errorf("duplicate username: expected already_exists, got %v", err)
	}
}

func TestLogin_IssuesTokenPair(t *testing.T) {
	svc := newAuthService(t)
	if _, err := svc.Register(&RegisterRequest{
		Username:   "bob",
		Password:   "supersecret",
		GlobalRole: models.RoleCustomer,
	}); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	result, err := svc.Login("bob", "supersecret", "127.0.0.1", "test-agent")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if result.AccessToken == "" || result.RefreshToken == "" {
		t.Error("login should issue both tokens")
	}

	claims, err := utils.ParseToken(result.AccessToken)
	if err != nil {
		t.Fatalf("access token does not parse: %v", err)
	}
	if claims.Username != "bob" || claims.Role != models.RoleCustomer {
		t.Errorf("claims = %s/%s, expected bob/customer", claims.Username, claims.Role)
	}
}

func TestLogin_BadCredentials(t *testing.T) {
	svc := newAuthService(t)
	if _, err := svc.Register(&RegisterRequest{
		Username:   "carol",
		Password:   "supersecret",
		GlobalRole: models.RoleCustomer,
	}); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	if _, err := svc.Login("carol", "wrongpass", "", ""); !IsCode(err, CodePermissionDenied) {
		t.Errorf("wrong password: expected permission_denied, got %v", err)
	}
	if _, err := svc.Login("nobody", "whatever", "", ""); !IsCode(err, CodePermissionDenied) {
		t.Errorf("unknown user: expected permission_denied, got %v", err)
	}

	svc.db.Model(&models.User{}).Where("username = ?", "carol").Update("is_active", false)
	if _, err := svc.Login("carol", "supersecret", "", ""); !IsCode(err, CodePermissionDenied) {
		t.Errorf("disabled account: expected permission_denied, got %v", err)
	}
}

func TestRefresh_RotatesToken(t *testing.T) {
	svc := newAuthService(t)
	if _, err := svc.Register(&RegisterRequest{
		Username:   "dave",
		Password:   "supersecret",
		GlobalRole: models.RoleExecutor,
	}); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	login, err := svc.Login("dave", "supersecret", "", "")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	refreshed, err := svc.Refresh(login.RefreshToken, "", "")
	if err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}
	if refreshed.RefreshToken == login.RefreshToken {
		t.Error("refresh must rotate the token")
	}

	// The old token is revoked by the rotation.
	if _, err := svc.Refresh(login.RefreshToken, "", ""); !IsCode(err, CodePermissionDenied) {
		t.Errorf("reused token: expected permission_denied, got %v", err)
	}
}

func TestRevoke_InvalidatesToken(t *testing.T) {
	svc := newAuthService(t)
	if _, err := svc.Register(&RegisterRequest{
		Username:   "erin",
		Password:   "supersecret",
		GlobalRole: models.RoleManager,
	}); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	login, err := svc.Login("erin", "supersecret", "", "")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	if err := svc.Revoke(login.RefreshToken); err != nil {
		t.Fatalf("Revoke failed: %v", err)
	}
	if _, err := svc.Refresh(login.RefreshToken, "", ""); !IsCode(err, CodePermissionDenied) {
		t.Errorf("revoked token: expected permission_denied, got %v", err)
	}

	if err := svc.Revoke(""); err != nil {
		t.Errorf("revoking an empty token should be a no-op, got %v", err)
	}
}
