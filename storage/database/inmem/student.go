package inmemdb

import (
	"sort"
	"strings"

	"github.com/lehine87/educanvas/core"
	"github.com/lehine87/educanvas/core/student"
)

type studentRepository struct {
	db *studentTable
}

func NewStudentRepository(db *DB) student.Repository {
	return &studentRepository{db: db.student}
}

func (repo *studentRepository) query() []student.Student {
	students := make([]student.Student, 0, len(repo.db.table))
	for _, s := range repo.db.table {
		students = append(students, *s)
	}
	sort.Slice(students, func(i, j int) bool { return students[i].CreatedAt.Before(students[j].CreatedAt) })
	return students
}

func (repo *studentRepository) CreateStudent(std student.Student) (student.Student, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()
	repo.db.table[std.ID] = &std
	return std, nil
}

func (repo *studentRepository) GetStudentByID(id string) (student.Student, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if std, ok := repo.db.table[id]; ok {
		return *std, nil
	}
	return student.Student{}, student.ErrNotFound
}

func (repo *studentRepository) FilterStudents(filter student.QueryFilter, orderings ...core.DBOrdering) ([]student.Student, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	var students []student.Student
	for _, std := range repo.query() {
		if filter.TenantID != "" && std.TenantID != filter.TenantID {
			continue
		}
		if filter.Status != "" && std.Status != filter.Status {
			continue
		}
		if filter.Search != "" {
			search := strings.ToLower(filter.Search)
			if !(strings.Contains(strings.ToLower(std.Name), search) ||
				strings.Contains(strings.ToLower(std.Phone.String), search)) {
				continue
			}
		}
		students = append(students, std)
	}
	applyOrderings(students, orderings)
	return students, nil
}

func (repo *studentRepository) UpdateStudent(std student.Student) (student.Student, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.table[std.ID]; !ok {
		return student.Student{}, student.ErrNotFound
	}
	repo.db.table[std.ID] = &std
	return std, nil
}

func (repo *studentRepository) DeleteStudentsByID(ids ...string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()
	for _, id := range ids {
		delete(repo.db.table, id)
	}
	return nil
}

func applyOrderings(students []student.Student, orderings []core.DBOrdering) {
	if len(orderings) == 0 {
		return
	}
	// only the first ordering is honored here; good enough for tests
	ord := orderings[0]
	sort.SliceStable(students, func(i, j int) bool {
		var a, b string
		switch ord.Field {
		case "name":
			a, b = students[i].Name, students[j].Name
		case "grade":
			a, b = students[i].Grade.String, students[j].Grade.String
		case "status":
			a, b = students[i].Status, students[j].Status
		default:
			return false
		}
		if ord.Ascending {
			return a < b
		}
		return a > b
	})
}
