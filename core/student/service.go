package student

import (
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/lehine87/educanvas/core"
)

var ErrNotFound = errors.New("student not found")

type (
	Repository interface {
		CreateStudent(std Student) (Student, error)
		GetStudentByID(id string) (Student, error)
		// FilterStudents applies AND operation on available QueryFilter fields.
		FilterStudents(filter QueryFilter, orderings ...core.DBOrdering) ([]Student, error)
		UpdateStudent(std Student) (Student, error)
		DeleteStudentsByID(ids ...string) error
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) Create(ns NewStudent) (Student, error) {
	now := time.Now().UTC()
	std := Student{
		ID:        uuid.New().String(),
		TenantID:  ns.TenantID,
		Name:      ns.Name,
		Status:    ns.Status,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if std.Status == "" {
		std.Status = StatusEnrolled
	}
	if ns.Grade != "" {
		std.Grade = null.StringFrom(ns.Grade)
	}
	if ns.Phone != "" {
		std.Phone = null.StringFrom(ns.Phone)
	}
	return svc.repo.CreateStudent(std)
}

func (svc *Service) GetByID(id string) (Student, error) {
	return svc.repo.GetStudentByID(id)
}

func (svc *Service) Filter(filter QueryFilter, orderings ...core.DBOrdering) ([]Student, error) {
	filter.Clean()
	return svc.repo.FilterStudents(filter, orderings...)
}

func (svc *Service) Update(id string, us UpdateStudent) (Student, error) {
	std, err := svc.repo.GetStudentByID(id)
	if err != nil {
		return Student{}, err
	}
	if us.Name != "" {
		std.Name = us.Name
	}
	if us.Grade != "" {
		std.Grade = null.StringFrom(us.Grade)
	}
	if us.Phone != "" {
		std.Phone = null.StringFrom(us.Phone)
	}
	if us.Status != "" {
		std.Status = us.Status
	}
	std.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateStudent(std)
}

func (svc *Service) Delete(ids ...string) error {
	return svc.repo.DeleteStudentsByID(ids...)
}
