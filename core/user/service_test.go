package user_test

import (
	"context"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowtaskhq/flowtask/core"
	"github.com/flowtaskhq/flowtask/core/user"
	emailsvc "github.com/flowtaskhq/flowtask/services/email"
	inmemdb "github.com/flowtaskhq/flowtask/storage/database/inmem"
	testutil "github.com/flowtaskhq/flowtask/tests"
)

func setupUserService(t *testing.T) (user.Service, user.Repository) {
	t.Helper()

	db, err := inmemdb.Open()
	require.NoError(t, err)
	repo := inmemdb.NewUserRepository(db)

	conf := &core.Config{AppName: "FlowTask", FrontendBaseURL: "http://localhost:3000"}
	return user.NewService(repo, emailsvc.NewConsoleServiceMock(conf), conf), repo
}

func TestUserService_RegisterStudent(t *testing.T) {
	ctx := context.Background()
	svc, _ := setupUserService(t)

	emailsvc.SentMessages = emailsvc.SentMessages[:0]

	usr, err := svc.RegisterStudent(ctx, user.NewUser{
		Username:        "hero",
		Email:           "hero@flowtask.dev",
		FirstName:       "Aze",
		LastName:        "Mwanga",
		Password:        "LordMwanga123",
		PasswordConfirm: "LordMwanga123",
	})
	require.NoError(t, err)

	assert.NotZero(t, usr.ID)
	assert.Equal(t, user.RoleStudent, usr.Role())
	assert.True(t, usr.IsActive)
	require.NoError(t, usr.CheckPassword("LordMwanga123"))

	// a welcome email goes out
	require.Len(t, emailsvc.SentMessages, 1)
	msg := emailsvc.SentMessages[0]
	require.Len(t, msg.To, 1)
	assert.Equal(t, "hero@flowtask.dev", msg.To[0].Address)
	assert.Equal(t, "Welcome to FlowTask", msg.Subject)
	assert.True(t, strings.Contains(msg.TextContent, "Aze Mwanga"))
}

func TestUserService_CreateTeacherAndAdmin(t *testing.T) {
	ctx := context.Background()
	svc, _ := setupUserService(t)

	nu := user.NewUser{
		Username:        "teach",
		Email:           "teach@flowtask.dev",
		Password:        "LordMwanga123",
		PasswordConfirm: "LordMwanga123",
	}
	teacher, err := svc.CreateTeacher(ctx, nu)
	require.NoError(t, err)
	assert.Equal(t, user.RoleTeacher, teacher.Role())

	nu.Username, nu.Email = "boss", "boss@flowtask.dev"
	admin, err := svc.CreateAdmin(ctx, nu)
	require.NoError(t, err)
	assert.Equal(t, user.RoleAdmin, admin.Role())
}

func TestUserService_QueryVisibleTo(t *testing.T) {
	ctx := context.Background()
	svc, repo := setupUserService(t)

	admin := testutil.CreateUser(t, repo, "admin", "admin@flowtask.dev", "", true, true)
	teacher := testutil.CreateUser(t, repo, "teacher", "teacher@flowtask.dev", "", true, false)
	student1 := testutil.CreateUser(t, repo, "student1", "student1@flowtask.dev", "", false, false)
	student2 := testutil.CreateUser(t, repo, "student2", "student2@flowtask.dev", "", false, false)

	ids := func(users []user.User) []int {
		out := make([]int, 0, len(users))
		for _, u := range users {
			out = append(out, u.ID)
		}
		return out
	}

	users, err := svc.QueryVisibleTo(ctx, admin)
	require.NoError(t, err)
	assert.Equal(t, []int{admin.ID, teacher.ID, student1.ID, student2.ID}, ids(users))

	users, err = svc.QueryVisibleTo(ctx, teacher)
	require.NoError(t, err)
	assert.Len(t, users, 4)

	// students only see other students
	users, err = svc.QueryVisibleTo(ctx, student1)
	require.NoError(t, err)
	assert.Equal(t, []int{student1.ID, student2.ID}, ids(users))
}

func TestUserService_CheckUniqueness(t *testing.T) {
	ctx := context.Background()
	svc, repo := setupUserService(t)

	usr := testutil.CreateUser(t, repo, "taken", "taken@flowtask.dev", "", false, false)

	err := svc.CheckUniqueness(ctx, "taken", "new@flowtask.dev")
	var vErr *core.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "username", vErr.Fields[0].Field)

	err = svc.CheckUniqueness(ctx, "newuser", "taken@flowtask.dev")
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "email", vErr.Fields[0].Field)

	// the user themselves is excluded when updating
	require.NoError(t, svc.CheckUniqueness(ctx, "taken", "taken@flowtask.dev", usr))
	require.NoError(t, svc.CheckUniqueness(ctx, "free", "free@flowtask.dev"))
}

func TestUserService_Update(t *testing.T) {
	ctx := context.Background()
	svc, repo := setupUserService(t)

	usr := testutil.CreateUser(t, repo, "hero", "hero@flowtask.dev", "0ldPassw0rd", false, false)

	got, err := svc.Update(ctx, usr.ID, user.UpdateUser{
		Username:  "hero",
		Email:     "hero@flowtask.dev",
		FirstName: "Aze",
		LastName:  "Mwanga",
		Password:  "NewPassw0rd",
	})
	require.NoError(t, err)
	assert.Equal(t, "Aze Mwanga", got.FullName())
	require.NoError(t, got.CheckPassword("NewPassw0rd"))
	assert.Error(t, got.CheckPassword("0ldPassw0rd"))

	_, err = svc.Update(ctx, 999, user.UpdateUser{})
	assert.Equal(t, user.ErrNotFound, errors.Cause(err))
}

func TestUserService_Delete(t *testing.T) {
	ctx := context.Background()
	svc, repo := setupUserService(t)

	usr1 := testutil.CreateUser(t, repo, "u1", "u1@flowtask.dev", "", false, false)
	usr2 := testutil.CreateUser(t, repo, "u2", "u2@flowtask.dev", "", false, false)

	require.NoError(t, svc.Delete(ctx, usr1.ID, usr2.ID))

	_, err := svc.GetByID(ctx, usr1.ID)
	assert.Equal(t, user.ErrNotFound, errors.Cause(err))
	_, err = svc.GetByID(ctx, usr2.ID)
	assert.Equal(t, user.ErrNotFound, errors.Cause(err))
}
