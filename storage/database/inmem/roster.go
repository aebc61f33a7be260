package inmemdb

import (
	"context"
	"sort"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/roster"
)

type rosterRepository struct {
	db *DB
}

var _ roster.Repository = (*rosterRepository)(nil) // interface compliance check

func NewRosterRepository(db *DB) roster.Repository {
	return &rosterRepository{db: db}
}

func (repo *rosterRepository) CreateInstitute(_ context.Context, inst roster.Institute) (roster.Institute, error) {
	tbl := repo.db.roster
	tbl.Lock()
	defer tbl.Unlock()

	tbl.institutes[inst.ID] = &inst
	return inst, nil
}

func (repo *rosterRepository) CreateClass(_ context.Context, class roster.Class) (roster.Class, error) {
	tbl := repo.db.roster
	tbl.Lock()
	defer tbl.Unlock()

	if _, ok := tbl.institutes[class.InstituteID]; !ok {
		return roster.Class{}, core.ErrNotFound
	}
	tbl.classes[class.ID] = &class
	return class, nil
}

func (repo *rosterRepository) CreateSubject(_ context.Context, subj roster.Subject) (roster.Subject, error) {
	tbl := repo.db.roster
	tbl.Lock()
	defer tbl.Unlock()

	if _, ok := tbl.institutes[subj.InstituteID]; !ok {
		return roster.Subject{}, core.ErrNotFound
	}
	tbl.subjects[subj.ID] = &subj
	return subj, nil
}

func (repo *rosterRepository) AddClassSubject(_ context.Context, classID, subjectID string) error {
	tbl := repo.db.roster
	tbl.Lock()
	defer tbl.Unlock()

	class, ok := tbl.classes[classID]
	if !ok {
		return core.ErrNotFound
	}
	subj, ok := tbl.subjects[subjectID]
	if !ok || subj.InstituteID != class.InstituteID {
		return core.ErrNotFound
	}
	if tbl.classSubjects[classID] == nil {
		tbl.classSubjects[classID] = make(map[string]string)
	}
	if _, ok := tbl.classSubjects[classID][subjectID]; !ok {
		tbl.classSubjects[classID][subjectID] = ""
	}
	return nil
}

func (repo *rosterRepository) Enroll(_ context.Context, classID, studentID string) error {
	tbl := repo.db.roster
	tbl.Lock()
	defer tbl.Unlock()

	if _, ok := tbl.classes[classID]; !ok {
		return core.ErrNotFound
	}
	if tbl.enrollments[classID] == nil {
		tbl.enrollments[classID] = make(map[string]bool)
	}
	tbl.enrollments[classID][studentID] = true
	return nil
}

func (repo *rosterRepository) GetClass(_ context.Context, instituteID, classID string) (roster.Class, error) {
	tbl := repo.db.roster
	tbl.RLock()
	defer tbl.RUnlock()

	class, ok := tbl.classes[classID]
	if !ok || class.InstituteID != instituteID {
		return roster.Class{}, core.ErrNotFound
	}
	return *class, nil
}

func (repo *rosterRepository) QueryClasses(_ context.Context, instituteID string) ([]roster.Class, error) {
	tbl := repo.db.roster
	tbl.RLock()
	defer tbl.RUnlock()

	classes := make([]roster.Class, 0)
	for _, class := range tbl.classes {
		if class.InstituteID == instituteID {
			classes = append(classes, *class)
		}
	}
	sort.Slice(classes, func(i, j int) bool {
		if classes[i].Grade != classes[j].Grade {
			return classes[i].Grade < classes[j].Grade
		}
		return classes[i].Name < classes[j].Name
	})
	return classes, nil
}

func (repo *rosterRepository) classSubjects(classID string) ([]roster.ClassSubject, error) {
	tbl := repo.db.roster
	tbl.RLock()
	if _, ok := tbl.classes[classID]; !ok {
		tbl.RUnlock()
		return nil, core.ErrNotFound
	}
	subjects := make([]roster.ClassSubject, 0, len(tbl.classSubjects[classID]))
	for subjectID, teacherID := range tbl.classSubjects[classID] {
		subjects = append(subjects, roster.ClassSubject{
			Subject:   *tbl.subjects[subjectID],
			ClassID:   classID,
			TeacherID: teacherID,
		})
	}
	tbl.RUnlock()

	for i := range subjects {
		subjects[i].TeacherName = repo.db.userName(subjects[i].TeacherID)
	}
	sort.Slice(subjects, func(i, j int) bool { return subjects[i].Code < subjects[j].Code })
	return subjects, nil
}

func (repo *rosterRepository) QueryClassSubjects(_ context.Context, classID string) ([]roster.ClassSubject, error) {
	return repo.classSubjects(classID)
}

func (repo *rosterRepository) GetClassSubject(_ context.Context, classID, subjectID string) (roster.ClassSubject, error) {
	subjects, err := repo.classSubjects(classID)
	if err != nil {
		return roster.ClassSubject{}, err
	}
	for _, cs := range subjects {
		if cs.ID == subjectID {
			return cs, nil
		}
	}
	return roster.ClassSubject{}, core.ErrNotFound
}

func (repo *rosterRepository) students(ids map[string]string) []roster.Student {
	students := make([]roster.Student, 0, len(ids))

	repo.db.user.RLock()
	for id, classID := range ids {
		if usr, ok := repo.db.user.table[id]; ok {
			students = append(students, roster.Student{
				ID:       usr.ID,
				Name:     usr.Name,
				Username: usr.Username,
				Email:    usr.Email,
				ClassID:  classID,
			})
		}
	}
	repo.db.user.RUnlock()

	sort.Slice(students, func(i, j int) bool {
		if students[i].Name != students[j].Name {
			return students[i].Name < students[j].Name
		}
		return students[i].ID < students[j].ID
	})
	return students
}

func (repo *rosterRepository) QueryStudents(_ context.Context, classID string) ([]roster.Student, error) {
	tbl := repo.db.roster
	tbl.RLock()
	ids := make(map[string]string, len(tbl.enrollments[classID]))
	for id := range tbl.enrollments[classID] {
		ids[id] = classID
	}
	tbl.RUnlock()

	return repo.students(ids), nil
}

func (repo *rosterRepository) QueryStudentsByID(_ context.Context, ids ...string) ([]roster.Student, error) {
	tbl := repo.db.roster
	tbl.RLock()
	byID := make(map[string]string, len(ids))
	for _, id := range ids {
		byID[id] = ""
		for classID, enrolled := range tbl.enrollments {
			if enrolled[id] {
				byID[id] = classID
				break
			}
		}
	}
	tbl.RUnlock()

	return repo.students(byID), nil
}

func (repo *rosterRepository) QueryStudentInstituteIDs(_ context.Context, studentID string) ([]string, error) {
	tbl := repo.db.roster
	tbl.RLock()
	defer tbl.RUnlock()

	seen := make(map[string]bool)
	ids := make([]string, 0)
	for classID, enrolled := range tbl.enrollments {
		class, ok := tbl.classes[classID]
		if !ok || !enrolled[studentID] || seen[class.InstituteID] {
			continue
		}
		seen[class.InstituteID] = true
		ids = append(ids, class.InstituteID)
	}
	sort.Strings(ids)
	return ids, nil
}

func (repo *rosterRepository) SetTeacher(_ context.Context, classID, subjectID, teacherID string) error {
	tbl := repo.db.roster
	tbl.Lock()
	defer tbl.Unlock()

	if _, ok := tbl.classSubjects[classID][subjectID]; !ok {
		return core.ErrNotFound
	}
	tbl.classSubjects[classID][subjectID] = teacherID
	return nil
}
