package user

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"
	"golang.org/x/crypto/bcrypt"

	"github.com/lehine87/educanvas/core"
)

// Roles
const (
	RolePlatformAdmin = "platform_admin"
	RoleTenantAdmin   = "tenant_admin"
	RoleInstructor    = "instructor"
	RoleStaff         = "staff"
	RoleViewer        = "viewer"
)

// Account statuses, as kept on the profile record. Anything outside this set
// (suspended, disabled by import scripts, ...) is treated as restricted.
const (
	StatusActive          = "active"
	StatusPendingApproval = "pending_approval"
	StatusSuspended       = "suspended"
)

var (
	AllRoles = []string{RolePlatformAdmin, RoleTenantAdmin, RoleInstructor, RoleStaff, RoleViewer}

	rolePriorities = map[string]int{
		RolePlatformAdmin: 50,
		RoleTenantAdmin:   40,
		RoleInstructor:    30,
		RoleStaff:         20,
		RoleViewer:        10,
	}

	Roles = []Role{
		{Name: "Viewer", Value: RoleViewer},
		{Name: "Staff", Value: RoleStaff},
		{Name: "Instructor", Value: RoleInstructor},
		{Name: "Tenant Admin", Value: RoleTenantAdmin},
		{Name: "Platform Admin", Value: RolePlatformAdmin},
	}
)

func RolePriority(role string) int {
	return rolePriorities[role]
}

func IsValidRole(role string) bool {
	_, ok := rolePriorities[role]
	return ok
}

type Role struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type User struct {
	ID            string      `json:"id"`
	Name          string      `json:"name"`
	Username      string      `json:"username"`
	Email         string      `json:"email"`
	Role          string      `json:"role,omitempty"`
	TenantID      null.String `json:"tenant_id,omitempty"`
	Status        string      `json:"status"`
	EmailVerified bool        `json:"email_verified"`
	IsActive      bool        `json:"is_active"`
	PasswordHash  []byte      `json:"-"`
	CreatedAt     time.Time   `json:"created_at"` // UTC
	UpdatedAt     time.Time   `json:"updated_at"` // UTC
	LastLogin     null.Time   `json:"last_login"` // UTC
}

func (u *User) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	return nil
}

func (u *User) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(pwd))
}

func (u *User) IsPlatformAdmin() bool {
	return u.Role == RolePlatformAdmin
}

func (u *User) IsTenantAdmin() bool {
	return u.Role == RoleTenantAdmin
}

// HasTenant reports whether the user has been attached to a tenant,
// i.e. completed onboarding.
func (u *User) HasTenant() bool {
	return u.TenantID.Valid && u.TenantID.String != ""
}

// NewUser contains information needed to create a new User.
type NewUser struct {
	Name            string `json:"name" validate:"required"`
	Username        string `json:"username" validate:"omitempty,min=6,username"`
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"required"`
	PasswordConfirm string `json:"password_confirm" validate:"required,eqfield=Password"`
	Role            string `json:"role" validate:"omitempty,role"`
	TenantID        string `json:"tenant_id"`
}

func (nu *NewUser) Validate(validate *validator.Validate, svc *Service) error {
	nu.Name = core.CleanString(nu.Name)
	nu.Username = core.CleanString(nu.Username, true /* lower */)
	nu.Email = core.CleanString(nu.Email, true /* lower */)

	if err := validate.Struct(nu); err != nil {
		return err
	}
	return svc.CheckUniqueness(nu.Username, nu.Email)
}

// UpdateUser defines what information may be provided to modify an existing User.
type UpdateUser struct {
	Name            string `json:"name"`
	Username        string `json:"username" validate:"omitempty,min=6,username"`
	Email           string `json:"email" validate:"omitempty,email"`
	Role            string `json:"role" validate:"omitempty,role"`
	TenantID        string `json:"tenant_id"`
	IsActive        *bool  `json:"is_active"`
	Password        string `json:"password" validate:"omitempty"`
	PasswordConfirm string `json:"password_confirm" validate:"required_with=Password,eqfield=Password"`
}

func (uu *UpdateUser) Validate(validate *validator.Validate, origUsr User, svc *Service) error {
	name := core.CleanString(uu.Name)
	if name != "" {
		uu.Name = name
	} else {
		uu.Name = origUsr.Name
	}

	uname := core.CleanString(uu.Username, true /* lower */)
	if uname != "" {
		uu.Username = uname
	} else {
		uu.Username = origUsr.Username
	}

	email := core.CleanString(uu.Email, true /* lower */)
	if email != "" {
		uu.Email = email
	} else {
		uu.Email = origUsr.Email
	}

	if err := validate.Struct(uu); err != nil {
		return err
	}
	return svc.CheckUniqueness(uu.Username, uu.Email, origUsr)
}

type ResetUserPassword struct {
	Token           string `json:"token,omitempty" validate:"required"`
	UID             string `json:"uid,omitempty" validate:"required"`
	Password        string `json:"password,omitempty" validate:"required"`
	PasswordConfirm string `json:"password_confirm,omitempty" validate:"required,eqfield=Password"`
}

func (rp ResetUserPassword) Validate(validate *validator.Validate) error {
	return validate.Struct(rp)
}

type QueryFilter struct {
	Search      string    `query:"search"`
	Role        string    `query:"role"`
	TenantID    string    `query:"tenant_id"`
	Status      string    `query:"status"`
	IsActive    *bool     `query:"is_active"`
	CreatedFrom time.Time `query:"created_from"`
	CreatedTo   time.Time `query:"created_to"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.Search == "" && qf.Role == "" && qf.TenantID == "" && qf.Status == "" &&
		qf.IsActive == nil && qf.CreatedFrom.IsZero() && qf.CreatedTo.IsZero()
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.Role = core.CleanString(qf.Role, true /* lower */)
	qf.Status = core.CleanString(qf.Status, true /* lower */)
}
