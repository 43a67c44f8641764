package sqlxrepos

import (
	"database/sql"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/lehine87/educanvas/core"
	"github.com/lehine87/educanvas/core/student"
)

type studentRow struct {
	ID        string      `db:"id"`
	TenantID  string      `db:"tenant_id"`
	Name      string      `db:"name"`
	Grade     null.String `db:"grade"`
	Phone     null.String `db:"phone"`
	Status    string      `db:"status"`
	CreatedAt time.Time   `db:"created_at"`
	UpdatedAt time.Time   `db:"updated_at"`
}

type studentRepository struct {
	db *sqlx.DB
}

func NewStudentRepository(db *sqlx.DB) student.Repository {
	return &studentRepository{db: db}
}

var _ student.Repository = (*studentRepository)(nil)

const studentColumns = "id, tenant_id, name, grade, phone, status, created_at, updated_at"

// studentOrderFields are the columns clients may order by.
var studentOrderFields = map[string]bool{
	"name":       true,
	"grade":      true,
	"status":     true,
	"created_at": true,
	"updated_at": true,
}

func (repo *studentRepository) CreateStudent(std student.Student) (student.Student, error) {
	query := `
		INSERT INTO student (` + studentColumns + `)
		VALUES (:id, :tenant_id, :name, :grade, :phone, :status, :created_at, :updated_at)`
	if _, err := repo.db.NamedExec(query, studentRow(std)); err != nil {
		return student.Student{}, errors.Wrap(err, "inserting student")
	}
	return std, nil
}

func (repo *studentRepository) GetStudentByID(id string) (student.Student, error) {
	var row studentRow
	if err := repo.db.Get(&row, `SELECT `+studentColumns+` FROM student WHERE id = $1`, id); err != nil {
		if err == sql.ErrNoRows {
			return student.Student{}, student.ErrNotFound
		}
		return student.Student{}, errors.Wrap(err, "getting student")
	}
	return student.Student(row), nil
}

func (repo *studentRepository) FilterStudents(filter student.QueryFilter, orderings ...core.DBOrdering) ([]student.Student, error) {
	query := `SELECT ` + studentColumns + ` FROM student`
	var conds []string
	var args []interface{}

	if filter.TenantID != "" {
		conds = append(conds, "tenant_id = ?")
		args = append(args, filter.TenantID)
	}
	if filter.Search != "" {
		conds = append(conds, "(name ILIKE ? OR phone ILIKE ?)")
		like := "%" + filter.Search + "%"
		args = append(args, like, like)
	}
	if filter.Status != "" {
		conds = append(conds, "status = ?")
		args = append(args, filter.Status)
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += orderBy(orderings)

	var rows []studentRow
	if err := repo.db.Select(&rows, repo.db.Rebind(query), args...); err != nil {
		return nil, errors.Wrap(err, "filtering students")
	}

	students := make([]student.Student, 0, len(rows))
	for _, row := range rows {
		students = append(students, student.Student(row))
	}
	return students, nil
}

func (repo *studentRepository) UpdateStudent(std student.Student) (student.Student, error) {
	query := `
		UPDATE student
		SET name = :name, grade = :grade, phone = :phone, status = :status, updated_at = :updated_at
		WHERE id = :id`
	res, err := repo.db.NamedExec(query, studentRow(std))
	if err != nil {
		return student.Student{}, errors.Wrap(err, "updating student")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return student.Student{}, student.ErrNotFound
	}
	return std, nil
}

func (repo *studentRepository) DeleteStudentsByID(ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	query, args, err := sqlx.In("DELETE FROM student WHERE id IN (?)", ids)
	if err != nil {
		return errors.Wrap(err, "building delete query")
	}
	if _, err = repo.db.Exec(repo.db.Rebind(query), args...); err != nil {
		return errors.Wrap(err, "deleting students")
	}
	return nil
}

// orderBy builds an ORDER BY clause from known columns only; anything else
// is dropped rather than interpolated.
func orderBy(orderings []core.DBOrdering) string {
	var parts []string
	for _, ord := range orderings {
		if !studentOrderFields[ord.Field] {
			continue
		}
		parts = append(parts, ord.String())
	}
	if len(parts) == 0 {
		return " ORDER BY created_at"
	}
	return " ORDER BY " + strings.Join(parts, ", ")
}
