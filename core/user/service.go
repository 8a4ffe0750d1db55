package user

import (
	"context"
	"fmt"
	"net/mail"
	"time"

	"github.com/pkg/errors"

	"github.com/flowtaskhq/flowtask/core"
)

var (
	// errors
	ErrNotFound       = errors.New("user not found")
	ErrEmailExists    = errors.New("a user with this email already exists")
	ErrUsernameExists = errors.New("a user with this username already exists")
)

type (
	Repository interface {
		// CheckUsernameUniqueness fails with ErrUsernameExists or ErrEmailExists
		// when another user (not in excludedUsers) already holds the value.
		CheckUsernameUniqueness(ctx context.Context, username, email string, excludedUsers ...User) error
		CreateUser(ctx context.Context, usr User) (User, error)
		QueryAllUsers(ctx context.Context) ([]User, error)
		GetUserByID(ctx context.Context, id int) (User, error)
		GetUserByUsernameOrEmail(ctx context.Context, username string) (User, error)
		UpdateUser(ctx context.Context, usr User) (User, error)
		DeleteUsersByID(ctx context.Context, ids ...int) error
	}

	Service interface {
		RegisterStudent(ctx context.Context, nu NewUser) (User, error)
		CreateTeacher(ctx context.Context, nu NewUser) (User, error)
		CreateAdmin(ctx context.Context, nu NewUser) (User, error)
		// QueryVisibleTo lists users the actor may see: staff and admins see
		// everyone; students only see other students.
		QueryVisibleTo(ctx context.Context, actor User) ([]User, error)
		GetByID(ctx context.Context, id int) (User, error)
		GetByUsernameOrEmail(ctx context.Context, uname string) (User, error)
		Update(ctx context.Context, id int, uu UpdateUser) (User, error)
		Delete(ctx context.Context, ids ...int) error
		CheckUniqueness(ctx context.Context, uname, email string, excludedUsers ...User) error
	}

	service struct {
		repo    Repository
		mailSvc core.EmailService
		conf    *core.Config
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, mailSvc core.EmailService, conf *core.Config) Service {
	return &service{
		repo:    repo,
		mailSvc: mailSvc,
		conf:    conf,
	}
}

func (svc *service) CheckUniqueness(ctx context.Context, uname, email string, excludedUsers ...User) error {
	if err := svc.repo.CheckUsernameUniqueness(ctx, uname, email, excludedUsers...); err != nil {
		var field string
		switch errors.Cause(err) {
		case ErrUsernameExists:
			field = "username"
		case ErrEmailExists:
			field = "email"
		default:
			return err
		}
		return core.NewValidationError(err, core.FieldError{Field: field, Error: err.Error()})
	}
	return nil
}

func (svc *service) create(ctx context.Context, nu NewUser, isStaff, isSuperuser bool) (User, error) {
	now := time.Now().UTC()
	usr := User{
		Username:    nu.Username,
		Email:       nu.Email,
		FirstName:   nu.FirstName,
		LastName:    nu.LastName,
		IsStaff:     isStaff,
		IsSuperuser: isSuperuser,
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := usr.SetPassword(nu.Password); err != nil {
		return User{}, errors.Wrap(err, "setting password")
	}
	return svc.repo.CreateUser(ctx, usr)
}

func (svc *service) RegisterStudent(ctx context.Context, nu NewUser) (User, error) {
	usr, err := svc.create(ctx, nu, false, false)
	if err != nil {
		return User{}, err
	}
	svc.sendWelcomeMail(usr)
	return usr, nil
}

func (svc *service) CreateTeacher(ctx context.Context, nu NewUser) (User, error) {
	return svc.create(ctx, nu, true, false)
}

func (svc *service) CreateAdmin(ctx context.Context, nu NewUser) (User, error) {
	return svc.create(ctx, nu, true, true)
}

func (svc *service) QueryVisibleTo(ctx context.Context, actor User) ([]User, error) {
	users, err := svc.repo.QueryAllUsers(ctx)
	if err != nil {
		return nil, err
	}
	if actor.Role() != RoleStudent {
		return users, nil
	}
	students := make([]User, 0, len(users))
	for _, usr := range users {
		if usr.IsStudent() {
			students = append(students, usr)
		}
	}
	return students, nil
}

func (svc *service) GetByID(ctx context.Context, id int) (User, error) {
	return svc.repo.GetUserByID(ctx, id)
}

func (svc *service) GetByUsernameOrEmail(ctx context.Context, uname string) (User, error) {
	return svc.repo.GetUserByUsernameOrEmail(ctx, core.CleanString(uname, true /* lower */))
}

func (svc *service) Update(ctx context.Context, id int, uu UpdateUser) (User, error) {
	usr, err := svc.repo.GetUserByID(ctx, id)
	if err != nil {
		return User{}, err
	}
	usr.Username = uu.Username
	usr.Email = uu.Email
	usr.FirstName = uu.FirstName
	usr.LastName = uu.LastName
	usr.UpdatedAt = time.Now().UTC()
	if uu.Password != "" {
		if err := usr.SetPassword(uu.Password); err != nil {
			return User{}, errors.Wrap(err, "setting password")
		}
	}
	return svc.repo.UpdateUser(ctx, usr)
}

func (svc *service) Delete(ctx context.Context, ids ...int) error {
	return svc.repo.DeleteUsersByID(ctx, ids...)
}

func (svc *service) sendWelcomeMail(usr User) {
	name := usr.FullName()
	if name == "" {
		name = usr.Username
	}
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:      []mail.Address{{Name: name, Address: usr.Email}},
		Subject: "Welcome to " + svc.conf.AppName,
		BodyStr: fmt.Sprintf(
			"Hi %s,\n\nYour %s account is ready. Sign in at %s to join your first project.\n",
			name, svc.conf.AppName, svc.conf.FrontendBaseURL,
		),
	})
}
