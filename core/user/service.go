package user

import (
	"net/mail"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/lehine87/educanvas/core"
)

var (
	// errors
	ErrNotFound       = errors.New("user not found")
	ErrEmailExists    = errors.New("a user with this email already exists")
	ErrUsernameExists = errors.New("a user with this username already exists")
)

type (
	Repository interface {
		CheckUsernameUniqueness(username, email string, excludedUsers ...User) error
		CreateUser(usr User) (User, error)
		QueryAllUsers() ([]User, error)
		GetUserByID(id string) (User, error)
		GetUserByUsername(username string) (User, error)
		GetUserByEmail(email string) (User, error)
		GetUserByUsernameOrEmail(username string) (User, error)
		// FilterUsers applies AND operation on available QueryFilter fields.
		// QueryFilter.Search does a case-insensitive match on one of User.Name, User.Username or User.Email.
		FilterUsers(filter QueryFilter) ([]User, error)
		UpdateUser(usr User, isActive *bool) (User, error)
		DeleteUsersByID(ids ...string) error
	}

	Service struct {
		repo     Repository
		mailSvc  core.EmailService
		conf     *core.Config
		tokenGen *TokenGenerator
	}
)

func NewService(repo Repository, mailSvc core.EmailService, conf *core.Config) *Service {
	return &Service{
		repo:     repo,
		mailSvc:  mailSvc,
		conf:     conf,
		tokenGen: NewTokenGenerator(conf),
	}
}

func (svc *Service) CheckUniqueness(uname, email string, exclUsers ...User) error {
	if err := svc.repo.CheckUsernameUniqueness(uname, email, exclUsers...); err != nil {
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

func (svc *Service) Create(nu NewUser) (User, error) {
	now := time.Now().UTC()
	usr := User{
		ID:        uuid.New().String(),
		Name:      nu.Name,
		Username:  nu.Username,
		Email:     nu.Email,
		Role:      nu.Role,
		Status:    StatusPendingApproval,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if nu.TenantID != "" {
		usr.TenantID = null.StringFrom(nu.TenantID)
	}
	if err := usr.SetPassword(nu.Password); err != nil {
		return User{}, err
	}
	return svc.repo.CreateUser(usr)
}

func (svc *Service) QueryAll() ([]User, error) {
	return svc.repo.QueryAllUsers()
}

func (svc *Service) GetByID(id string) (User, error) {
	return svc.repo.GetUserByID(id)
}

func (svc *Service) GetByUsername(uname string) (User, error) {
	return svc.repo.GetUserByUsername(core.CleanString(uname, true /* lower */))
}

func (svc *Service) GetByEmail(email string) (User, error) {
	return svc.repo.GetUserByEmail(core.CleanString(email, true /* lower */))
}

func (svc *Service) GetByUsernameOrEmail(uname string) (User, error) {
	return svc.repo.GetUserByUsernameOrEmail(core.CleanString(uname, true /* lower */))
}

func (svc *Service) Filter(filter QueryFilter) ([]User, error) {
	filter.Clean()
	return svc.repo.FilterUsers(filter)
}

func (svc *Service) Update(id string, uu UpdateUser) (User, error) {
	usr := User{
		ID:        id,
		Name:      uu.Name,
		Username:  uu.Username,
		Email:     uu.Email,
		Role:      uu.Role,
		UpdatedAt: time.Now().UTC(),
	}
	if uu.TenantID != "" {
		usr.TenantID = null.StringFrom(uu.TenantID)
	}
	if uu.Password != "" {
		if err := usr.SetPassword(uu.Password); err != nil {
			return User{}, err
		}
	}
	return svc.repo.UpdateUser(usr, uu.IsActive)
}

// CompleteOnboarding attaches the user to a tenant; the account then waits
// for an admin's approval.
func (svc *Service) CompleteOnboarding(id, tenantID, role string) (User, error) {
	usr, err := svc.repo.GetUserByID(id)
	if err != nil {
		return User{}, err
	}
	usr.TenantID = null.StringFrom(tenantID)
	usr.Role = role
	usr.Status = StatusPendingApproval
	usr.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateUser(usr, nil)
}

// Approve marks a pending user active and notifies them by email.
func (svc *Service) Approve(id string) (User, error) {
	usr, err := svc.repo.GetUserByID(id)
	if err != nil {
		return User{}, err
	}
	usr.Status = StatusActive
	usr.UpdatedAt = time.Now().UTC()
	usr, err = svc.repo.UpdateUser(usr, nil)
	if err != nil {
		return User{}, err
	}
	svc.mailSvc.SendMessages(accountApprovedEmail(usr))
	return usr, nil
}

// Suspend locks the user out; the navigation layer derives a restricted
// state from any non-active status.
func (svc *Service) Suspend(id string) (User, error) {
	usr, err := svc.repo.GetUserByID(id)
	if err != nil {
		return User{}, err
	}
	usr.Status = StatusSuspended
	usr.UpdatedAt = time.Now().UTC()
	isActive := false
	return svc.repo.UpdateUser(usr, &isActive)
}

func (svc *Service) SetLastLogin(usr User) (User, error) {
	usr.LastLogin = null.TimeFrom(time.Now().UTC())
	return svc.repo.UpdateUser(usr, nil)
}

func (svc *Service) Delete(ids ...string) error {
	return svc.repo.DeleteUsersByID(ids...)
}

// RequestPasswordReset emails a reset link to the account matching email.
// An unknown email is a silent no-op so the endpoint does not leak accounts.
func (svc *Service) RequestPasswordReset(email string) error {
	usr, err := svc.repo.GetUserByEmail(core.CleanString(email, true /* lower */))
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return nil
		}
		return errors.Wrap(err, "finding user by email")
	}

	token, err := svc.tokenGen.Make(usr)
	if err != nil {
		return errors.Wrap(err, "making reset token")
	}
	svc.mailSvc.SendMessages(passwordResetEmail(usr, EncodeUID(usr), token))
	return nil
}

// ResetPassword sets a new password after verifying the emailed token.
func (svc *Service) ResetPassword(rp ResetUserPassword) (User, error) {
	id, err := DecodeUID(rp.UID)
	if err != nil {
		return User{}, core.NewValidationError(errors.New("invalid link"))
	}
	usr, err := svc.repo.GetUserByID(id)
	if err != nil {
		return User{}, err
	}
	if err = svc.tokenGen.Verify(usr, rp.Token); err != nil {
		return User{}, core.NewValidationError(err)
	}
	if err = usr.SetPassword(rp.Password); err != nil {
		return User{}, err
	}
	usr.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateUser(usr, nil)
}

func accountApprovedEmail(usr User) *core.EmailMessage {
	return &core.EmailMessage{
		To:           []mail.Address{{Name: usr.Name, Address: usr.Email}},
		Subject:      "Your account has been approved",
		TextTemplate: accountApprovedTextTemplate,
		HTMLTemplate: accountApprovedHTMLTemplate,
		TemplateData: usr,
	}
}

func passwordResetEmail(usr User, uid, token string) *core.EmailMessage {
	return &core.EmailMessage{
		To:           []mail.Address{{Name: usr.Name, Address: usr.Email}},
		Subject:      "Password reset",
		TextTemplate: passwordResetTextTemplate,
		HTMLTemplate: passwordResetHTMLTemplate,
		TemplateData: struct {
			User  User
			UID   string
			Token string
		}{usr, uid, token},
	}
}
