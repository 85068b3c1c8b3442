package services

import (
	"context"
	"testing"

	"riteswipe-api/internal/apperr"
	"riteswipe-api/internal/models"

	"github.com/stretchr/testify/require"
)

func TestSkillCatalog(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.user(t, "Alice")

	plumbing, err := f.svc.Skills.CreateSkill(ctx, " Plumbing ")
	require.NoError(t, err)
	require.Equal(t, "Plumbing", plumbing.Name)

	_, err = f.svc.Skills.CreateSkill(ctx, "plumbing")
	requireKind(t, err, apperr.KindConflict)

	_, err = f.svc.Skills.CreateSkill(ctx, "")
	requireKind(t, err, apperr.KindValidation)

	_, err = f.svc.Skills.CreateSkill(ctx, "Painting")
	require.NoError(t, err)

	skills, err := f.svc.Skills.ListSkills(ctx)
	require.NoError(t, err)
	require.Equal(t, "Painting", skills[0].Name)

	found, err := f.svc.Skills.SearchSkills(ctx, "umb")
	require.NoError(t, err)
	require.Len(t, found, 1)

	require.NoError(t, f.svc.Users.AddSkill(ctx, alice.ID, plumbing.ID))
	f.task(t, alice.ID, &plumbing.ID, models.TaskOpen)

	details, err := f.svc.Skills.GetSkillByName(ctx, "PLUMBING")
	require.NoError(t, err)
	require.Equal(t, int64(1), details.TaskCount)
	require.Equal(t, int64(1), details.UserCount)

	users, err := f.svc.Skills.UsersBySkill(ctx, plumbing.ID)
	require.NoError(t, err)
	require.Len(t, users, 1)
}

func TestDeleteSkill(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.user(t, "Alice")
	skill := f.skill(t, "plumbing")
	open := f.task(t, alice.ID, &skill.ID, models.TaskOpen)
	done := f.task(t, alice.ID, &skill.ID, models.TaskCompleted)
	require.NoError(t, f.svc.Users.AddSkill(ctx, alice.ID, skill.ID))

	err := f.svc.Skills.DeleteSkill(ctx, skill.ID)
	require.EqualError(t, err, "Cannot delete a skill that is required by open tasks")

	_, err = f.svc.Tasks.UpdateTaskStatus(ctx, open.ID, "Cancelled", alice.ID)
	require.NoError(t, err)
	require.NoError(t, f.svc.Skills.DeleteSkill(ctx, skill.ID))

	for _, id := range []string{open.ID, done.ID} {
		task, err := f.svc.Tasks.GetTask(ctx, id)
		require.NoError(t, err)
		require.Nil(t, task.SkillRequiredID)
	}
	mine, err := f.svc.Users.ListSkills(ctx, alice.ID)
	require.NoError(t, err)
	require.Empty(t, mine)

	_, err = f.svc.Skills.GetSkill(ctx, skill.ID)
	requireKind(t, err, apperr.KindNotFound)
}

func TestSkillDemand_Cached(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.user(t, "Alice")
	skill := f.skill(t, "plumbing")
	f.task(t, alice.ID, &skill.ID, models.TaskOpen)
	f.task(t, alice.ID, &skill.ID, models.TaskCompleted)

	n, err := f.svc.Skills.Demand(ctx, skill.ID)
	require.NoError(t, err)
	require.Equal(t, int64(1), n)

	f.task(t, alice.ID, &skill.ID, models.TaskOpen)
	n, err = f.svc.Skills.Demand(ctx, skill.ID)
	require.NoError(t, err)
	require.Equal(t, int64(1), n)

	tasks, err := f.svc.Skills.TasksBySkill(ctx, skill.ID)
	require.NoError(t, err)
	require.Len(t, tasks, 2)

	_, err = f.svc.Skills.Demand(ctx, "missing")
	requireKind(t, err, apperr.KindNotFound)
}
