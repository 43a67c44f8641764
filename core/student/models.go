package student

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	"github.com/lehine87/educanvas/core"
)

// Enrollment statuses
const (
	StatusEnrolled  = "enrolled"
	StatusWaiting   = "waiting"
	StatusWithdrawn = "withdrawn"
)

type Student struct {
	ID        string      `json:"id"`
	TenantID  string      `json:"tenant_id"`
	Name      string      `json:"name"`
	Grade     null.String `json:"grade"`
	Phone     null.String `json:"phone"`
	Status    string      `json:"status"`
	CreatedAt time.Time   `json:"created_at"` // UTC
	UpdatedAt time.Time   `json:"updated_at"` // UTC
}

// NewStudent contains information needed to register a new Student.
type NewStudent struct {
	TenantID string `json:"tenant_id" validate:"required"`
	Name     string `json:"name" validate:"required"`
	Grade    string `json:"grade"`
	Phone    string `json:"phone" validate:"omitempty,e164"`
	Status   string `json:"status" validate:"omitempty,oneof=enrolled waiting withdrawn"`
}

func (ns *NewStudent) Validate(validate *validator.Validate) error {
	ns.Name = core.CleanString(ns.Name)
	ns.Grade = core.CleanString(ns.Grade)
	return validate.Struct(ns)
}

// UpdateStudent defines what information may be provided to modify an existing Student.
type UpdateStudent struct {
	Name   string `json:"name"`
	Grade  string `json:"grade"`
	Phone  string `json:"phone" validate:"omitempty,e164"`
	Status string `json:"status" validate:"omitempty,oneof=enrolled waiting withdrawn"`
}

func (us *UpdateStudent) Validate(validate *validator.Validate) error {
	us.Name = core.CleanString(us.Name)
	us.Grade = core.CleanString(us.Grade)
	return validate.Struct(us)
}

type QueryFilter struct {
	TenantID string `query:"tenant_id"`
	Search   string `query:"search"`
	Status   string `query:"status"`
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.Status = core.CleanString(qf.Status, true /* lower */)
}
