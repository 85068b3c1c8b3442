package services

import (
	"context"
	"testing"

	"riteswipe-api/internal/apperr"
	"riteswipe-api/internal/auth"
	"riteswipe-api/internal/models"
	"riteswipe-api/internal/realtime"

	"github.com/stretchr/testify/require"
)

func TestRegisterAndLogin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	user, err := f.svc.Users.Register(ctx, RegisterInput{FullName: "Alice", Email: " Alice@Example.com ", Password: "secret123"})
	require.NoError(t, err)
	require.Equal(t, "alice@example.com", user.Email)
	require.NotEqual(t, "secret123", user.PasswordHash)

	_, err = f.svc.Users.Register(ctx, RegisterInput{FullName: "Alice Two", Email: "alice@example.com", Password: "secret123"})
	requireKind(t, err, apperr.KindConflict)

	_, err = f.svc.Users.Register(ctx, RegisterInput{FullName: "Bob", Email: "bob@example.com", Password: "short"})
	requireKind(t, err, apperr.KindValidation)

	got, err := f.svc.Users.Login(ctx, "ALICE@example.com", "secret123")
	require.NoError(t, err)
	require.Equal(t, user.ID, got.ID)

	_, err = f.svc.Users.Login(ctx, "alice@example.com", "wrong-pass1")
	require.True(t, auth.IsInvalidCredentials(err))
	requireKind(t, err, apperr.KindUnauthorized)

	_, err = f.svc.Users.Login(ctx, "nobody@example.com", "secret123")
	requireKind(t, err, apperr.KindUnauthorized)
}

func TestLogin_LocksOutAfterRepeatedFailures(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.Users.Register(ctx, RegisterInput{FullName: "Alice", Email: "alice@example.com", Password: "secret123"})
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err = f.svc.Users.Login(ctx, "alice@example.com", "wrong-pass1")
		requireKind(t, err, apperr.KindUnauthorized)
	}

	_, err = f.svc.Users.Login(ctx, "alice@example.com", "secret123")
	requireKind(t, err, apperr.KindRateLimited)
}

func TestProfileAndSkills(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.user(t, "Alice")
	skill := f.skill(t, "plumbing")

	bio := "Handy"
	updated, err := f.svc.Users.UpdateProfile(ctx, alice.ID, ProfileUpdate{Bio: &bio})
	require.NoError(t, err)
	require.Equal(t, "Handy", updated.Bio)
	require.Equal(t, "Alice", updated.FullName)
	require.NotNil(t, updated.ModifiedAt)

	_, err = f.svc.Users.UpdateProfile(ctx, "ghost", ProfileUpdate{Bio: &bio})
	requireKind(t, err, apperr.KindNotFound)

	require.NoError(t, f.svc.Users.AddSkill(ctx, alice.ID, skill.ID))
	err = f.svc.Users.AddSkill(ctx, alice.ID, skill.ID)
	requireKind(t, err, apperr.KindConflict)

	err = f.svc.Users.AddSkill(ctx, alice.ID, "missing")
	requireKind(t, err, apperr.KindNotFound)

	skills, err := f.svc.Users.ListSkills(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, skills, 1)

	require.NoError(t, f.svc.Users.RemoveSkill(ctx, alice.ID, skill.ID))
	err = f.svc.Users.RemoveSkill(ctx, alice.ID, skill.ID)
	requireKind(t, err, apperr.KindNotFound)
}

func TestVerifyUserAndStats(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.user(t, "Alice")
	f.task(t, alice.ID, nil, models.TaskOpen)
	f.task(t, alice.ID, nil, models.TaskCompleted)

	require.NoError(t, f.svc.Users.VerifyUser(ctx, alice.ID))
	profile, err := f.svc.Users.GetProfile(ctx, alice.ID)
	require.NoError(t, err)
	require.True(t, profile.IsVerified)
	require.Equal(t, []string{realtime.EventStatusUpdate}, f.events(t, realtime.UserGroup(alice.ID)))

	stats, err := f.svc.Users.GetStats(ctx, alice.ID)
	require.NoError(t, err)
	require.Equal(t, int64(2), stats.PostedTasks)
	require.Equal(t, int64(1), stats.OpenTasks)
	require.Equal(t, int64(1), stats.CompletedTasks)
}
