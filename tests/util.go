package testutil

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/volatiletech/null/v8"

	"github.com/lehine87/educanvas/core/student"
	"github.com/lehine87/educanvas/core/user"
)

func CreateUser(
	t *testing.T,
	repo user.Repository,
	name, uname, email, pwd string,
	role, tenantID, status string,
	isActive bool,
	createdAt ...time.Time,
) user.User {
	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	usr := user.User{
		ID:        uuid.New().String(),
		Name:      name,
		Username:  uname,
		Email:     email,
		Role:      role,
		Status:    status,
		IsActive:  isActive,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	if tenantID != "" {
		usr.TenantID = null.StringFrom(tenantID)
	}
	if status == user.StatusActive {
		usr.EmailVerified = true
	}
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("CreateUser() failed: %v", err)
		}
	}
	usr, err := repo.CreateUser(usr)
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return usr
}

func CreateStudent(
	t *testing.T,
	repo student.Repository,
	name, grade, tenantID string,
) student.Student {
	now := time.Now().UTC()
	std := student.Student{
		ID:        uuid.New().String(),
		TenantID:  tenantID,
		Name:      name,
		Status:    student.StatusEnrolled,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if grade != "" {
		std.Grade = null.StringFrom(grade)
	}
	std, err := repo.CreateStudent(std)
	if err != nil {
		t.Fatalf("CreateStudent() failed: %v", err)
	}
	return std
}
