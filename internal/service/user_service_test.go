package service

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/helpdesk/internal/auth"
	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/policy"
)

func TestUserService_AdminCRUD(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin := actorOf(f.admin)

	created, err := f.users.Create(ctx, admin, UserCreateInput{
		Name: "Lee", Email: "lee@example.com", Password: "longenough", Role: "support",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.RoleSupport, created.Role)
	assert.NoError(t, auth.ComparePassword(created.PasswordHash, "longenough"))

	_, err = f.users.Create(ctx, admin, UserCreateInput{Name: "Dup", Email: "LEE@example.com", Password: "longenough", Role: "user"})
	assertHTTPStatus(t, err, http.StatusConflict)

	_, err = f.users.Create(ctx, admin, UserCreateInput{Name: "X", Email: "x@example.com", Password: "short", Role: "root"})
	assertHTTPStatus(t, err, http.StatusUnprocessableEntity)

	updated, err := f.users.Update(ctx, admin, created.ID, UserUpdateInput{Role: ptr("user"), Name: ptr("Lee Q.")})
	require.NoError(t, err)
	assert.Equal(t, domain.RoleUser, updated.Role)
	assert.Equal(t, "Lee Q.", updated.Name)

	list, total, err := f.users.List(ctx, admin, Page{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, list, 2)
	assert.Equal(t, int64(6), total)

	require.NoError(t, f.users.Delete(ctx, admin, created.ID))
	_, err = f.users.Get(ctx, admin, created.ID)
	assertHTTPStatus(t, err, http.StatusNotFound)

	err = f.users.Delete(ctx, admin, f.admin.ID)
	assertHTTPStatus(t, err, http.StatusUnprocessableEntity)
}

func TestUserService_RoleChangeReleasesAssignments(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	open := f.newTicket(t, f.owner, "")
	f.assign(t, open, f.agent)
	closed := f.newTicket(t, f.owner, "")
	f.assign(t, closed, f.agent)
	f.setStatus(t, closed, domain.TicketStatusClosed)
	kept := f.newTicket(t, f.owner, "")
	f.assign(t, kept, f.agent2)
	closedAt := f.reload(t, closed.ID).UpdatedAt

	_, err := f.users.Update(ctx, actorOf(f.admin), f.agent.ID, UserUpdateInput{Name: ptr("Still Support")})
	require.NoError(t, err)
	assert.NotNil(t, f.reload(t, open.ID).AssignedTo)

	updated, err := f.users.Update(ctx, actorOf(f.admin), f.agent.ID, UserUpdateInput{Role: ptr("user")})
	require.NoError(t, err)
	assert.Equal(t, domain.RoleUser, updated.Role)

	assert.Nil(t, f.reload(t, open.ID).AssignedTo)
	assert.Nil(t, f.reload(t, closed.ID).AssignedTo)
	assert.Equal(t, closedAt, f.reload(t, closed.ID).UpdatedAt)
	require.NotNil(t, f.reload(t, kept.ID).AssignedTo)
	assert.Equal(t, f.agent2.ID, *f.reload(t, kept.ID).AssignedTo)

	_, err = f.tickets.Get(ctx, policy.Actor{ID: f.agent.ID, Role: domain.RoleUser}, open.ID)
	assertHTTPStatus(t, err, http.StatusForbidden)
}

func TestUserService_RequiresAdmin(t *testing.T) {
	f := newFixture(t)
	_, _, err := f.users.List(context.Background(), actorOf(f.agent), Page{})
	assertHTTPStatus(t, err, http.StatusForbidden)
	err = f.users.Delete(context.Background(), actorOf(f.owner), f.another.ID)
	assertHTTPStatus(t, err, http.StatusForbidden)
}

func TestUserService_Profile(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	me := actorOf(f.owner)

	profile, err := f.users.Profile(ctx, me)
	require.NoError(t, err)
	assert.Equal(t, f.owner.Email, profile.Email)

	_, err = f.users.UpdateProfile(ctx, me, ProfileUpdateInput{NewPassword: ptr("newpassword1"), CurrentPassword: ptr("nope")})
	assertHTTPStatus(t, err, http.StatusUnprocessableEntity)

	_, err = f.users.UpdateProfile(ctx, me, ProfileUpdateInput{Email: ptr(f.agent.Email)})
	assertHTTPStatus(t, err, http.StatusConflict)

	updated, err := f.users.UpdateProfile(ctx, me, ProfileUpdateInput{
		Name:            ptr("Ada L."),
		CurrentPassword: ptr("password123"),
		NewPassword:     ptr("newpassword1"),
	})
	require.NoError(t, err)
	assert.Equal(t, "Ada L.", updated.Name)
	assert.Equal(t, domain.RoleUser, updated.Role)
	assert.NoError(t, auth.ComparePassword(updated.PasswordHash, "newpassword1"))
}
