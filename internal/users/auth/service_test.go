// Copyright (c) 2026 FilingDigest. All rights reserved.
// Author: dev@filingdigest.app

package auth

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/filingdigest/filingdigest/internal/platform/apperr"
	"github.com/filingdigest/filingdigest/internal/platform/sec"
)

// # In-Memory Fakes

type fakeUserRepo struct {
	users map[string]*User // by ID

	failAll bool
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[string]*User)}
}

func (repo *fakeUserRepo) FindByID(_ context.Context, id string) (*User, error) {
	if repo.failAll {
		return nil, errors.New("user store down")
	}
	if user, ok := repo.users[id]; ok {
		copied := *user
		return &copied, nil
	}
	return nil, apperr.NotFound("User")
}

func (repo *fakeUserRepo) FindByEmail(_ context.Context, email string) (*User, error) {
	if repo.failAll {
		return nil, errors.New("user store down")
	}
	for _, user := range repo.users {
		if user.Email == email {
			copied := *user
			return &copied, nil
		}
	}
	return nil, apperr.NotFound("User")
}

func (repo *fakeUserRepo) FindByOAuthProfile(_ context.Context, provider, providerID string) (*User, error) {
	for _, user := range repo.users {
		for _, profile := range user.Profiles {
			if profile.Provider == provider && profile.ProviderID == providerID {
				copied := *user
				return &copied, nil
			}
		}
	}
	return nil, apperr.NotFound("User")
}

func (repo *fakeUserRepo) Create(_ context.Context, user *User) error {
	for _, existing := range repo.users {
		for _, theirs := range existing.Profiles {
			for _, ours := range user.Profiles {
				if theirs.Provider == ours.Provider && theirs.ProviderID == ours.ProviderID {
					return fmt.Errorf("unique violation on (provider, providerid)")
				}
			}
		}
	}
	copied := *user
	repo.users[user.ID] = &copied
	return nil
}

func (repo *fakeUserRepo) AppendOAuthProfile(_ context.Context, userID string, profile OAuthProfile) error {
	user, ok := repo.users[userID]
	if !ok {
		return apperr.NotFound("User")
	}
	user.Profiles = append(user.Profiles, profile)
	return nil
}

func (repo *fakeUserRepo) UpdatePassword(_ context.Context, userID, newHash string) error {
	if user, ok := repo.users[userID]; ok {
		user.PasswordHash = newHash
	}
	return nil
}

func (repo *fakeUserRepo) MarkVerified(_ context.Context, userID string) error {
	if user, ok := repo.users[userID]; ok {
		user.IsVerified = true
	}
	return nil
}

func (repo *fakeUserRepo) RecordLoginSuccess(_ context.Context, userID string) error {
	if user, ok := repo.users[userID]; ok {
		now := time.Now()
		user.FailedAttempts = 0
		user.LockedUntil = nil
		user.LastLogin = &now
	}
	return nil
}

func (repo *fakeUserRepo) RecordLoginFailure(_ context.Context, userID string, maxAttempts int, lockFor time.Duration) (LoginFailure, error) {
	user, ok := repo.users[userID]
	if !ok {
		return LoginFailure{}, apperr.NotFound("User")
	}
	user.FailedAttempts++
	if user.FailedAttempts >= maxAttempts {
		until := time.Now().Add(lockFor)
		user.LockedUntil = &until
	}
	return LoginFailure{FailedAttempts: user.FailedAttempts, LockedUntil: user.LockedUntil}, nil
}

type fakeSessionRepo struct {
	sessions map[string]*Session // by ID
	users    *fakeUserRepo

	failAll       bool
	expiryUpdates int
}

func newFakeSessionRepo(users *fakeUserRepo) *fakeSessionRepo {
	return &fakeSessionRepo{sessions: make(map[string]*Session), users: users}
}

func (repo *fakeSessionRepo) Create(_ context.Context, session *Session) error {
	if repo.failAll {
		return errors.New("session store down")
	}
	copied := *session
	repo.sessions[session.ID] = &copied
	return nil
}

func (repo *fakeSessionRepo) FindWithUser(ctx context.Context, sessionID string) (*Session, *User, error) {
	if repo.failAll {
		return nil, nil, errors.New("session store down")
	}
	session, ok := repo.sessions[sessionID]
	if !ok {
		return nil, nil, apperr.NotFound("Session")
	}
	user, err := repo.users.FindByID(ctx, session.UserID)
	if err != nil {
		return nil, nil, err
	}
	copied := *session
	return &copied, user, nil
}

func (repo *fakeSessionRepo) UpdateExpiry(_ context.Context, sessionID string, expiresAt time.Time) error {
	if repo.failAll {
		return errors.New("session store down")
	}
	if session, ok := repo.sessions[sessionID]; ok {
		session.ExpiresAt = expiresAt
		repo.expiryUpdates++
	}
	return nil
}

func (repo *fakeSessionRepo) Delete(_ context.Context, sessionID string) error {
	if repo.failAll {
		return errors.New("session store down")
	}
	delete(repo.sessions, sessionID)
	return nil
}

func (repo *fakeSessionRepo) DeleteAllForUser(_ context.Context, userID string) error {
	for id, session := range repo.sessions {
		if session.UserID == userID {
			delete(repo.sessions, id)
		}
	}
	return nil
}

func (repo *fakeSessionRepo) DeleteExpired(_ context.Context) error {
	for id, session := range repo.sessions {
		if !session.ExpiresAt.After(time.Now()) {
			delete(repo.sessions, id)
		}
	}
	return nil
}

type fakeTokenStore struct {
	values map[string]string
}

func newFakeTokenStore() *fakeTokenStore {
	return &fakeTokenStore{values: make(map[string]string)}
}

func (store *fakeTokenStore) Set(_ context.Context, token, userID string, _ time.Duration) error {
	store.values[token] = userID
	return nil
}

func (store *fakeTokenStore) Get(_ context.Context, token string) (string, error) {
	if userID, ok := store.values[token]; ok {
		return userID, nil
	}
	return "", apperr.NotFound("Token")
}

func (store *fakeTokenStore) Delete(_ context.Context, token string) error {
	delete(store.values, token)
	return nil
}

type fakeTokenProvider struct{}

func (fakeTokenProvider) GenerateAccessToken(userID, email, role string, verified bool, _ time.Duration) (string, error) {
	return fmt.Sprintf("jwt:%s:%s:%s:%t", userID, email, role, verified), nil
}

// # Test Harness

type harness struct {
	service  *Service
	users    *fakeUserRepo
	sessions *fakeSessionRepo
	resets   *fakeTokenStore
	verifies *fakeTokenStore
	clock    time.Time
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	users := newFakeUserRepo()
	sessions := newFakeSessionRepo(users)
	resets := newFakeTokenStore()
	verifies := newFakeTokenStore()

	service := NewService(users, sessions, resets, verifies, fakeTokenProvider{})

	h := &harness{
		service:  service,
		users:    users,
		sessions: sessions,
		resets:   resets,
		verifies: verifies,
		clock:    time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	service.now = func() time.Time { return h.clock }
	return h
}

func (h *harness) addUser(t *testing.T, email, password string) *User {
	t.Helper()

	hash := ""
	if password != "" {
		var err error
		hash, err = sec.HashPassword(password)
		require.NoError(t, err)
	}

	user := &User{
		ID:           "user-" + email,
		Email:        email,
		PasswordHash: hash,
		Role:         sec.RoleMember,
		IsActive:     true,
	}
	h.users.users[user.ID] = user
	return user
}

// # Session Lifecycle

func TestStartSession_RoundTrip(t *testing.T) {
	h := newHarness(t)
	user := h.addUser(t, "ana@example.com", "hunter2hunter2")
	ctx := context.Background()

	token, session, err := h.service.StartSession(ctx, user.ID)
	require.NoError(t, err)
	require.NotEmpty(t, token)
	assert.Equal(t, sec.HashToken(token), session.ID)
	assert.Equal(t, h.clock.Add(SessionTTL), session.ExpiresAt)

	gotSession, gotUser, err := h.service.ValidateSessionToken(ctx, token)
	require.NoError(t, err)
	require.NotNil(t, gotSession)
	require.NotNil(t, gotUser)
	assert.Equal(t, session.ID, gotSession.ID)
	assert.Equal(t, user.ID, gotUser.ID)
}

func TestValidateSessionToken_UnknownTokenIsNotAnError(t *testing.T) {
	h := newHarness(t)

	session, user, err := h.service.ValidateSessionToken(context.Background(), "no-such-token")
	require.NoError(t, err)
	assert.Nil(t, session)
	assert.Nil(t, user)
}

func TestValidateSessionToken_EmptyToken(t *testing.T) {
	h := newHarness(t)

	session, user, err := h.service.ValidateSessionToken(context.Background(), "")
	require.NoError(t, err)
	assert.Nil(t, session)
	assert.Nil(t, user)
}

func TestValidateSessionToken_ExpiredSessionIsDeletedLazily(t *testing.T) {
	h := newHarness(t)
	user := h.addUser(t, "ana@example.com", "hunter2hunter2")
	ctx := context.Background()

	token, session, err := h.service.StartSession(ctx, user.ID)
	require.NoError(t, err)

	// Step past the full session lifetime.
	h.clock = h.clock.Add(SessionTTL + time.Hour)

	gotSession, gotUser, err := h.service.ValidateSessionToken(ctx, token)
	require.NoError(t, err)
	assert.Nil(t, gotSession)
	assert.Nil(t, gotUser)
	assert.NotContains(t, h.sessions.sessions, session.ID, "expired row must be removed")
}

func TestValidateSessionToken_SlidingRenewal(t *testing.T) {
	h := newHarness(t)
	user := h.addUser(t, "ana@example.com", "hunter2hunter2")
	ctx := context.Background()

	token, _, err := h.service.StartSession(ctx, user.ID)
	require.NoError(t, err)

	// 16 days in: 14 days remain, under the 15-day threshold.
	h.clock = h.clock.Add(16 * 24 * time.Hour)

	gotSession, _, err := h.service.ValidateSessionToken(ctx, token)
	require.NoError(t, err)
	require.NotNil(t, gotSession)
	assert.Equal(t, h.clock.Add(SessionTTL), gotSession.ExpiresAt)
	assert.Equal(t, 1, h.sessions.expiryUpdates)
}

func TestValidateSessionToken_NoRenewalAboveThreshold(t *testing.T) {
	h := newHarness(t)
	user := h.addUser(t, "ana@example.com", "hunter2hunter2")
	ctx := context.Background()

	token, session, err := h.service.StartSession(ctx, user.ID)
	require.NoError(t, err)

	// 10 days in: 20 days remain, no renewal.
	h.clock = h.clock.Add(10 * 24 * time.Hour)

	gotSession, _, err := h.service.ValidateSessionToken(ctx, token)
	require.NoError(t, err)
	require.NotNil(t, gotSession)
	assert.Equal(t, session.ExpiresAt, gotSession.ExpiresAt)
	assert.Equal(t, 0, h.sessions.expiryUpdates)
}

func TestValidateSessionToken_StoreFailureFailsClosed(t *testing.T) {
	h := newHarness(t)
	h.sessions.failAll = true

	session, user, err := h.service.ValidateSessionToken(context.Background(), "any-token")
	require.Error(t, err, "an outage must not read as logged-out")
	assert.Nil(t, session)
	assert.Nil(t, user)
}

func TestInvalidateSession_Idempotent(t *testing.T) {
	h := newHarness(t)
	user := h.addUser(t, "ana@example.com", "hunter2hunter2")
	ctx := context.Background()

	token, _, err := h.service.StartSession(ctx, user.ID)
	require.NoError(t, err)

	require.NoError(t, h.service.InvalidateSession(ctx, token))
	require.NoError(t, h.service.InvalidateSession(ctx, token), "second invalidation still succeeds")
	require.NoError(t, h.service.InvalidateSession(ctx, "never-existed"))

	session, _, err := h.service.ValidateSessionToken(ctx, token)
	require.NoError(t, err)
	assert.Nil(t, session)
}

// # Registration & Login

func TestRegister_CreatesMemberAccount(t *testing.T) {
	h := newHarness(t)

	user, err := h.service.Register(context.Background(), RegisterInput{
		Email:    "new@example.com",
		Password: "hunter2hunter2",
	})
	require.NoError(t, err)

	assert.Equal(t, sec.RoleMember, user.Role)
	assert.False(t, user.IsVerified)
	assert.True(t, user.IsActive)
	assert.NotEmpty(t, user.PasswordHash)
	assert.NotEqual(t, "hunter2hunter2", user.PasswordHash)
	assert.Len(t, h.verifies.values, 1, "a verification token is staged")
}

func TestRegister_DuplicateEmailConflicts(t *testing.T) {
	h := newHarness(t)
	h.addUser(t, "taken@example.com", "hunter2hunter2")

	_, err := h.service.Register(context.Background(), RegisterInput{
		Email:    "taken@example.com",
		Password: "hunter2hunter2",
	})
	require.Error(t, err)
	appError := apperr.As(err)
	require.NotNil(t, appError)
	assert.Equal(t, "CONFLICT", appError.Code)
}

func TestLogin_Success(t *testing.T) {
	h := newHarness(t)
	user := h.addUser(t, "ana@example.com", "hunter2hunter2")

	loginSession, err := h.service.Login(context.Background(), LoginInput{
		Email:    "ana@example.com",
		Password: "hunter2hunter2",
	})
	require.NoError(t, err)

	assert.Equal(t, user.ID, loginSession.User.ID)
	assert.NotEmpty(t, loginSession.SessionToken)
	assert.Contains(t, h.sessions.sessions, loginSession.Session.ID)
	assert.Equal(t, 0, h.users.users[user.ID].FailedAttempts)
	assert.NotNil(t, h.users.users[user.ID].LastLogin)
}

func TestLogin_WrongPasswordIsGeneric(t *testing.T) {
	h := newHarness(t)
	h.addUser(t, "ana@example.com", "hunter2hunter2")

	_, err := h.service.Login(context.Background(), LoginInput{
		Email:    "ana@example.com",
		Password: "not-the-password",
	})
	require.Error(t, err)
	assert.Equal(t, "Invalid login credentials", err.Error())
}

func TestLogin_UnknownEmailIsGeneric(t *testing.T) {
	h := newHarness(t)

	_, err := h.service.Login(context.Background(), LoginInput{
		Email:    "nobody@example.com",
		Password: "whatever-password",
	})
	require.Error(t, err)
	// Same message as a wrong password: no account enumeration.
	assert.Equal(t, "Invalid login credentials", err.Error())
}

func TestLogin_StoreOutageIsNotBadCredentials(t *testing.T) {
	h := newHarness(t)
	h.users.failAll = true

	_, err := h.service.Login(context.Background(), LoginInput{
		Email:    "ana@example.com",
		Password: "hunter2hunter2",
	})
	require.Error(t, err)
	assert.Nil(t, apperr.As(err), "an outage maps to 500, not a client error")
	assert.NotEqual(t, "Invalid login credentials", err.Error())
}

func TestRegister_StoreOutageIsNotEmailFree(t *testing.T) {
	h := newHarness(t)
	h.users.failAll = true

	_, err := h.service.Register(context.Background(), RegisterInput{
		Email:    "new@example.com",
		Password: "hunter2hunter2",
	})
	require.Error(t, err)
	assert.Nil(t, apperr.As(err), "an outage maps to 500, not a client error")
	assert.Empty(t, h.verifies.values, "no verification token staged mid-outage")
}

func TestLogin_LockoutAfterRepeatedFailures(t *testing.T) {
	h := newHarness(t)
	user := h.addUser(t, "ana@example.com", "hunter2hunter2")
	ctx := context.Background()

	for i := 0; i < MaxFailedLogins; i++ {
		_, err := h.service.Login(ctx, LoginInput{Email: "ana@example.com", Password: "wrong-password"})
		require.Error(t, err)
	}
	require.NotNil(t, h.users.users[user.ID].LockedUntil)

	// Even the correct password is rejected while locked.
	_, err := h.service.Login(ctx, LoginInput{Email: "ana@example.com", Password: "hunter2hunter2"})
	require.Error(t, err)
	appError := apperr.As(err)
	require.NotNil(t, appError)
	assert.Equal(t, "FORBIDDEN", appError.Code)
}

func TestLogin_LockExpiresAndSuccessResetsCounter(t *testing.T) {
	h := newHarness(t)
	user := h.addUser(t, "ana@example.com", "hunter2hunter2")
	ctx := context.Background()

	for i := 0; i < MaxFailedLogins; i++ {
		_, _ = h.service.Login(ctx, LoginInput{Email: "ana@example.com", Password: "wrong-password"})
	}

	// The fake stamps LockedUntil with real time; jump the service clock past it.
	h.clock = time.Now().Add(LockoutDuration + time.Minute)

	loginSession, err := h.service.Login(ctx, LoginInput{Email: "ana@example.com", Password: "hunter2hunter2"})
	require.NoError(t, err)
	assert.Equal(t, user.ID, loginSession.User.ID)
	assert.Equal(t, 0, h.users.users[user.ID].FailedAttempts)
	assert.Nil(t, h.users.users[user.ID].LockedUntil)
}

func TestLogin_OAuthOnlyAccountHasNoPassword(t *testing.T) {
	h := newHarness(t)
	h.addUser(t, "oauth-only@example.com", "")

	_, err := h.service.Login(context.Background(), LoginInput{
		Email:    "oauth-only@example.com",
		Password: "anything-at-all",
	})
	require.Error(t, err)
	assert.Equal(t, "Invalid login credentials", err.Error())
}

// # Access Tokens

func TestIssueAccessToken_FromValidSession(t *testing.T) {
	h := newHarness(t)
	user := h.addUser(t, "ana@example.com", "hunter2hunter2")
	ctx := context.Background()

	token, _, err := h.service.StartSession(ctx, user.ID)
	require.NoError(t, err)

	accessToken, subject, err := h.service.IssueAccessToken(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, subject.ID)
	assert.Contains(t, accessToken, user.ID)
	assert.Contains(t, accessToken, user.Email)
}

func TestIssueAccessToken_RejectsMissingSession(t *testing.T) {
	h := newHarness(t)

	_, _, err := h.service.IssueAccessToken(context.Background(), "stale-token")
	require.Error(t, err)
	appError := apperr.As(err)
	require.NotNil(t, appError)
	assert.Equal(t, "UNAUTHORIZED", appError.Code)
}

// # Password Recovery

func TestResetPassword_DestroysEverySession(t *testing.T) {
	h := newHarness(t)
	user := h.addUser(t, "ana@example.com", "hunter2hunter2")
	ctx := context.Background()

	firstToken, _, err := h.service.StartSession(ctx, user.ID)
	require.NoError(t, err)
	secondToken, _, err := h.service.StartSession(ctx, user.ID)
	require.NoError(t, err)

	resetToken, err := h.service.RequestPasswordReset(ctx, "ana@example.com")
	require.NoError(t, err)
	require.NotEmpty(t, resetToken)

	require.NoError(t, h.service.ResetPassword(ctx, resetToken, "new-password-123"))

	session, _, err := h.service.ValidateSessionToken(ctx, firstToken)
	require.NoError(t, err)
	assert.Nil(t, session)
	session, _, err = h.service.ValidateSessionToken(ctx, secondToken)
	require.NoError(t, err)
	assert.Nil(t, session)

	// The new password works, the old one doesn't.
	_, err = h.service.Login(ctx, LoginInput{Email: "ana@example.com", Password: "hunter2hunter2"})
	require.Error(t, err)
	_, err = h.service.Login(ctx, LoginInput{Email: "ana@example.com", Password: "new-password-123"})
	require.NoError(t, err)
}

func TestRequestPasswordReset_UnknownEmailStaysSilent(t *testing.T) {
	h := newHarness(t)

	token, err := h.service.RequestPasswordReset(context.Background(), "ghost@example.com")
	require.NoError(t, err)
	assert.Empty(t, token)
}

func TestRequestPasswordReset_StoreOutageIsNotSilent(t *testing.T) {
	h := newHarness(t)
	h.users.failAll = true

	_, err := h.service.RequestPasswordReset(context.Background(), "ana@example.com")
	require.Error(t, err, "an outage must not read as a quiet success")
	assert.Nil(t, apperr.As(err))
}

// # Email Verification

func TestResendVerification_StagesTokenForUnverifiedUser(t *testing.T) {
	h := newHarness(t)
	user := h.addUser(t, "ana@example.com", "hunter2hunter2")

	token, err := h.service.ResendVerification(context.Background(), "ana@example.com")
	require.NoError(t, err)
	require.NotEmpty(t, token)
	assert.Equal(t, user.ID, h.verifies.values[token])
}

func TestResendVerification_UnknownEmailStaysSilent(t *testing.T) {
	h := newHarness(t)

	token, err := h.service.ResendVerification(context.Background(), "ghost@example.com")
	require.NoError(t, err)
	assert.Empty(t, token)
	assert.Empty(t, h.verifies.values)
}

func TestResendVerification_VerifiedAccountStaysSilent(t *testing.T) {
	h := newHarness(t)
	user := h.addUser(t, "ana@example.com", "hunter2hunter2")
	h.users.users[user.ID].IsVerified = true

	token, err := h.service.ResendVerification(context.Background(), "ana@example.com")
	require.NoError(t, err)
	assert.Empty(t, token)
	assert.Empty(t, h.verifies.values, "verified accounts get no new token")
}

func TestVerifyEmail(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	user, err := h.service.Register(ctx, RegisterInput{
		Email:    "new@example.com",
		Password: "hunter2hunter2",
	})
	require.NoError(t, err)

	var verifyToken string
	for token := range h.verifies.values {
		verifyToken = token
	}
	require.NotEmpty(t, verifyToken)

	require.NoError(t, h.service.VerifyEmail(ctx, verifyToken))
	assert.True(t, h.users.users[user.ID].IsVerified)
	assert.Empty(t, h.verifies.values, "token is single use")

	// Replay fails.
	require.Error(t, h.service.VerifyEmail(ctx, verifyToken))
}
