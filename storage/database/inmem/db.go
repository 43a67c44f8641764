// Package inmemdb provides in-memory repositories backing tests and local
// tooling that should not depend on PostgreSQL.
package inmemdb

import (
	"sync"

	"github.com/lehine87/educanvas/core/student"
	"github.com/lehine87/educanvas/core/user"
)

type DB struct {
	user    *userTable
	student *studentTable
}

func NewDB() *DB {
	return &DB{
		user:    &userTable{table: make(map[string]*user.User)},
		student: &studentTable{table: make(map[string]*student.Student)},
	}
}

type userTable struct {
	mutex sync.RWMutex
	table map[string]*user.User
}

type studentTable struct {
	mutex sync.RWMutex
	table map[string]*student.Student
}
