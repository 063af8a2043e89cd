package auth

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/communityhub/marketplace-backend/internal/users"
	pkgAuth "github.com/communityhub/marketplace-backend/pkg/auth"
	"github.com/communityhub/marketplace-backend/pkg/auth/session"
	"github.com/communityhub/marketplace-backend/pkg/config"
	"github.com/communityhub/marketplace-backend/pkg/db/models"
	"github.com/communityhub/marketplace-backend/pkg/enums"
	pkgerrors "github.com/communityhub/marketplace-backend/pkg/errors"
	"github.com/communityhub/marketplace-backend/pkg/security"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

var testJWT = config.JWTConfig{
	Secret:            "secret",
	Issuer:            "marketplace",
	ExpirationMinutes: 30,
}

type stubUserRepo struct {
	byID map[uuid.UUID]*models.User
}

func newStubUserRepo(seed ...*models.User) *stubUserRepo {
	repo := &stubUserRepo{byID: map[uuid.UUID]*models.User{}}
	for _, u := range seed {
		repo.byID[u.ID] = u
	}
	return repo
}

func (s *stubUserRepo) WithTx(*gorm.DB) users.Repository { return s }

func (s *stubUserRepo) Create(ctx context.Context, dto users.CreateUserDTO) (*models.User, error) {
	for _, u := range s.byID {
		if u.Email == dto.Email {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "email already exists")
		}
	}
	user := dto.ToModel()
	user.ID = uuid.New()
	s.byID[user.ID] = user
	return user, nil
}

func (s *stubUserRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	for _, u := range s.byID {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
}

func (s *stubUserRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	if u, ok := s.byID[id]; ok {
		return u, nil
	}
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
}

func (s *stubUserRepo) UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	if u, ok := s.byID[id]; ok {
		u.LastLoginAt = &at
	}
	return nil
}

func (s *stubUserRepo) UpdatePasswordHash(ctx context.Context, id uuid.UUID, hash string) error {
	if u, ok := s.byID[id]; ok {
		u.PasswordHash = hash
	}
	return nil
}

func (s *stubUserRepo) SetCommunity(ctx context.Context, id, communityID uuid.UUID) error {
	u, ok := s.byID[id]
	if !ok {
		return pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
	}
	u.CommunityID = &communityID
	return nil
}

type stubCommunities struct {
	byCode map[string]*models.Community
}

func (s stubCommunities) FindByCode(ctx context.Context, code string) (*models.Community, error) {
	if c, ok := s.byCode[strings.ToUpper(code)]; ok {
		return c, nil
	}
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "community not found")
}

type stubSessionManager struct {
	sessions map[string]uuid.UUID
	tokens   map[string]string
}

func newStubSessionManager() *stubSessionManager {
	return &stubSessionManager{sessions: map[string]uuid.UUID{}, tokens: map[string]string{}}
}

func (s *stubSessionManager) Start(ctx context.Context, userID uuid.UUID) (session.Issued, error) {
	issued := session.Issued{AccessID: uuid.NewString(), RefreshToken: "refresh-" + uuid.NewString()}
	s.sessions[issued.AccessID] = userID
	s.tokens[issued.AccessID] = issued.RefreshToken
	return issued, nil
}

func (s *stubSessionManager) Rotate(ctx context.Context, oldAccessID, provided string) (uuid.UUID, session.Issued, error) {
	userID, ok := s.sessions[oldAccessID]
	if !ok || s.tokens[oldAccessID] != provided {
		return uuid.Nil, session.Issued{}, session.ErrInvalidRefreshToken
	}
	delete(s.sessions, oldAccessID)
	delete(s.tokens, oldAccessID)
	issued, err := s.Start(ctx, userID)
	return userID, issued, err
}

func (s *stubSessionManager) Revoke(ctx context.Context, accessID string) error {
	delete(s.sessions, accessID)
	delete(s.tokens, accessID)
	return nil
}

type fixture struct {
	svc       Service
	users     *stubUserRepo
	sessions  *stubSessionManager
	community *models.Community
}

func newFixture(t *testing.T, seed ...*models.User) fixture {
	t.Helper()
	community := &models.Community{ID: uuid.New(), Name: "Palm Grove", Code: "COMABCDEF12", IsActive: true}
	f := fixture{
		users:     newStubUserRepo(seed...),
		sessions:  newStubSessionManager(),
		community: community,
	}
	svc, err := NewService(ServiceParams{
		Users:          f.users,
		Communities:    stubCommunities{byCode: map[string]*models.Community{community.Code: community}},
		SessionManager: f.sessions,
		JWTConfig:      testJWT,
		Now:            func() time.Time { return time.Now() },
	})
	if err != nil {
		t.Fatalf("build service: %v", err)
	}
	f.svc = svc
	return f
}

func mustHashPassword(t *testing.T, password string) string {
	t.Helper()
	hash, err := security.HashPassword(password, config.PasswordConfig{})
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	return hash
}

func strPtr(value string) *string {
	return &value
}

func TestRegisterAssignsUserRoleAndCommunity(t *testing.T) {
	f := newFixture(t)

	user, err := f.svc.Register(context.Background(), RegisterRequest{
		Email:         " Resident@Example.com",
		Password:      "long-enough-secret",
		FirstName:     "Asha",
		LastName:      "Rao",
		CommunityCode: strPtr("comabcdef12"),
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if user.Role != enums.UserRoleUser {
		t.Fatalf("expected user role, got %s", user.Role)
	}
	if user.Email != "resident@example.com" {
		t.Fatalf("expected normalised email, got %q", user.Email)
	}
	if user.CommunityID == nil || *user.CommunityID != f.community.ID {
		t.Fatalf("expected community %s, got %v", f.community.ID, user.CommunityID)
	}
	stored := f.users.byID[user.ID]
	if stored.PasswordHash == "long-enough-secret" || stored.PasswordHash == "" {
		t.Fatal("password must be stored hashed")
	}
}

func TestRegisterRejections(t *testing.T) {
	existing := &models.User{ID: uuid.New(), Email: "taken@example.com", Role: enums.UserRoleUser, IsActive: true}
	f := newFixture(t, existing)
	ctx := context.Background()

	_, err := f.svc.Register(ctx, RegisterRequest{Email: "taken@example.com", Password: "long-enough-secret", FirstName: "A", LastName: "B"})
	if !pkgerrors.IsCode(err, pkgerrors.CodeConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}

	_, err = f.svc.Register(ctx, RegisterRequest{Email: "new@example.com", Password: "long-enough-secret", FirstName: "A", LastName: "B", CommunityCode: strPtr("COMNOPE0000")})
	if !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found for unknown code, got %v", err)
	}

	f.community.IsActive = false
	_, err = f.svc.Register(ctx, RegisterRequest{Email: "new@example.com", Password: "long-enough-secret", FirstName: "A", LastName: "B", CommunityCode: strPtr(f.community.Code)})
	if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation for inactive community, got %v", err)
	}
}

func TestLoginMintsTokenWithRole(t *testing.T) {
	communityID := uuid.New()
	vendor := &models.User{
		ID:           uuid.New(),
		Email:        "vendor@example.com",
		PasswordHash: mustHashPassword(t, "vendor-secret"),
		Role:         enums.UserRoleVendor,
		CommunityID:  &communityID,
		IsActive:     true,
	}
	f := newFixture(t, vendor)

	resp, err := f.svc.Login(context.Background(), LoginRequest{Email: "VENDOR@example.com", Password: "vendor-secret"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	claims, err := pkgAuth.ParseAccessToken(testJWT, resp.AccessToken)
	if err != nil {
		t.Fatalf("parse access token: %v", err)
	}
	if claims.Role != enums.UserRoleVendor || claims.UserID != vendor.ID {
		t.Fatalf("unexpected claims %+v", claims)
	}
	if claims.CommunityID == nil || *claims.CommunityID != communityID {
		t.Fatalf("expected community claim")
	}
	if resp.RefreshToken == "" || resp.TokenType != "bearer" {
		t.Fatalf("unexpected token pair %+v", resp.TokenPair)
	}
	if _, ok := f.sessions.sessions[claims.ID]; !ok {
		t.Fatal("expected session keyed by jti")
	}
	if vendor.LastLoginAt == nil {
		t.Fatal("expected last login to be recorded")
	}
}

func TestLoginUpgradesWeakPasswordHash(t *testing.T) {
	weak, err := security.HashPassword("resident-secret", config.PasswordConfig{})
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	resident := &models.User{
		ID:           uuid.New(),
		Email:        "resident@example.com",
		PasswordHash: weak,
		Role:         enums.UserRoleUser,
		IsActive:     true,
	}
	f := newFixture(t, resident)
	strong := config.PasswordConfig{ArgonMemoryKB: 64, ArgonTime: 2, ArgonParallelism: 1, ArgonSaltLen: 16, ArgonKeyLen: 32}
	svc, err := NewService(ServiceParams{
		Users:          f.users,
		Communities:    stubCommunities{},
		SessionManager: f.sessions,
		JWTConfig:      testJWT,
		PasswordConfig: strong,
	})
	if err != nil {
		t.Fatalf("build service: %v", err)
	}

	if _, err := svc.Login(context.Background(), LoginRequest{Email: resident.Email, Password: "resident-secret"}); err != nil {
		t.Fatalf("login: %v", err)
	}
	if resident.PasswordHash == weak {
		t.Fatal("expected hash to be upgraded")
	}
	if security.NeedsRehash(resident.PasswordHash, strong) {
		t.Fatal("upgraded hash should satisfy current params")
	}
	ok, err := security.VerifyPassword("resident-secret", resident.PasswordHash)
	if err != nil || !ok {
		t.Fatalf("upgraded hash should verify: ok=%v err=%v", ok, err)
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	inactive := &models.User{
		ID:           uuid.New(),
		Email:        "inactive@example.com",
		PasswordHash: mustHashPassword(t, "secret-pass"),
		Role:         enums.UserRoleUser,
	}
	active := &models.User{
		ID:           uuid.New(),
		Email:        "active@example.com",
		PasswordHash: mustHashPassword(t, "secret-pass"),
		Role:         enums.UserRoleUser,
		IsActive:     true,
	}
	f := newFixture(t, inactive, active)

	cases := []LoginRequest{
		{Email: "missing@example.com", Password: "secret-pass"},
		{Email: "active@example.com", Password: "wrong"},
		{Email: "inactive@example.com", Password: "secret-pass"},
		{Email: "  ", Password: "secret-pass"},
	}
	for _, req := range cases {
		_, err := f.svc.Login(context.Background(), req)
		if !pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized) {
			t.Fatalf("%q: expected unauthorized, got %v", req.Email, err)
		}
	}
}

func TestJoinCommunity(t *testing.T) {
	user := &models.User{ID: uuid.New(), Email: "a@example.com", Role: enums.UserRoleUser, IsActive: true}
	f := newFixture(t, user)

	resp, err := f.svc.JoinCommunity(context.Background(), user.ID, JoinCommunityRequest{CommunityCode: f.community.Code})
	if err != nil {
		t.Fatalf("join: %v", err)
	}
	if resp.CommunityName != "Palm Grove" || user.CommunityID == nil || *user.CommunityID != f.community.ID {
		t.Fatalf("unexpected join result %+v", resp)
	}

	_, err = f.svc.JoinCommunity(context.Background(), user.ID, JoinCommunityRequest{CommunityCode: "COM00000000"})
	if !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestRefreshRotatesAndLogoutRevokes(t *testing.T) {
	user := &models.User{
		ID:           uuid.New(),
		Email:        "a@example.com",
		PasswordHash: mustHashPassword(t, "secret-pass"),
		Role:         enums.UserRoleUser,
		IsActive:     true,
	}
	f := newFixture(t, user)
	ctx := context.Background()

	login, err := f.svc.Login(ctx, LoginRequest{Email: user.Email, Password: "secret-pass"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	if _, err := f.svc.Refresh(ctx, login.AccessToken, RefreshRequest{RefreshToken: "wrong"}); !pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized) {
		t.Fatalf("expected unauthorized for wrong refresh token, got %v", err)
	}

	next, err := f.svc.Refresh(ctx, login.AccessToken, RefreshRequest{RefreshToken: login.RefreshToken})
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if next.RefreshToken == login.RefreshToken {
		t.Fatal("refresh token must rotate")
	}
	if _, err := f.svc.Refresh(ctx, login.AccessToken, RefreshRequest{RefreshToken: login.RefreshToken}); !pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized) {
		t.Fatalf("replayed refresh must fail, got %v", err)
	}

	if err := f.svc.Logout(ctx, next.AccessToken); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if len(f.sessions.sessions) != 0 {
		t.Fatalf("expected no sessions after logout, got %d", len(f.sessions.sessions))
	}
	if err := f.svc.Logout(ctx, "garbage"); !pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized) {
		t.Fatalf("expected unauthorized for bad token, got %v", err)
	}
}

func TestNewServiceRequiresDependencies(t *testing.T) {
	if _, err := NewService(ServiceParams{}); err == nil {
		t.Fatal("expected error without dependencies")
	}
}

func TestResolveActorSeesJoinedCommunity(t *testing.T) {
	user := &models.User{ID: uuid.New(), Email: "a@example.com", Role: enums.UserRoleUser, IsActive: true}
	f := newFixture(t, user)
	ctx := context.Background()

	before, err := f.svc.ResolveActor(ctx, user.ID)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if before.CommunityID != nil {
		t.Fatalf("expected no community yet, got %v", *before.CommunityID)
	}

	if _, err := f.svc.JoinCommunity(ctx, user.ID, JoinCommunityRequest{CommunityCode: f.community.Code}); err != nil {
		t.Fatalf("join: %v", err)
	}
	after, err := f.svc.ResolveActor(ctx, user.ID)
	if err != nil {
		t.Fatalf("resolve after join: %v", err)
	}
	if after.CommunityID == nil || *after.CommunityID != f.community.ID || after.Role != enums.UserRoleUser {
		t.Fatalf("unexpected actor %+v", after)
	}
}

func TestResolveActorRejectsMissingAndInactive(t *testing.T) {
	inactive := &models.User{ID: uuid.New(), Email: "gone@example.com", Role: enums.UserRoleUser, IsActive: false}
	f := newFixture(t, inactive)

	if _, err := f.svc.ResolveActor(context.Background(), inactive.ID); !pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized) {
		t.Fatalf("expected unauthorized for inactive user, got %v", err)
	}
	if _, err := f.svc.ResolveActor(context.Background(), uuid.New()); !pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized) {
		t.Fatalf("expected unauthorized for unknown user, got %v", err)
	}
}
