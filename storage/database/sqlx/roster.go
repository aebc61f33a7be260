package sqlxrepos

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/roster"
)

type rosterRepository struct {
	db *sqlx.DB
}

var _ roster.Repository = (*rosterRepository)(nil) // interface compliance check

func NewRosterRepository(db *sqlx.DB) roster.Repository {
	return &rosterRepository{db: db}
}

type classSubjectRow struct {
	ID          string      `db:"id"`
	InstituteID string      `db:"institute_id"`
	Code        string      `db:"code"`
	Name        string      `db:"name"`
	ClassID     string      `db:"class_id"`
	TeacherID   null.String `db:"teacher_id"`
	TeacherName null.String `db:"teacher_name"`
}

func (row classSubjectRow) toClassSubject() roster.ClassSubject {
	return roster.ClassSubject{
		Subject:     roster.Subject{ID: row.ID, InstituteID: row.InstituteID, Code: row.Code, Name: row.Name},
		ClassID:     row.ClassID,
		TeacherID:   row.TeacherID.String,
		TeacherName: row.TeacherName.String,
	}
}

const classSubjectQuery = `SELECT s.id, s.institute_id, s.code, s.name, cs.class_id, cs.teacher_id, t.name AS teacher_name
	FROM class_subject cs
	JOIN subject s ON s.id = cs.subject_id
	LEFT JOIN "user" t ON t.id = cs.teacher_id
	WHERE cs.class_id = $1`

type studentRow struct {
	ID       string      `db:"id"`
	Name     string      `db:"name"`
	Username null.String `db:"username"`
	Email    null.String `db:"email"`
	ClassID  null.String `db:"class_id"`
}

func (row studentRow) toStudent() roster.Student {
	return roster.Student{
		ID:       row.ID,
		Name:     row.Name,
		Username: row.Username.String,
		Email:    row.Email.String,
		ClassID:  row.ClassID.String,
	}
}

func (repo *rosterRepository) CreateInstitute(ctx context.Context, inst roster.Institute) (roster.Institute, error) {
	if _, err := repo.db.NamedExecContext(ctx, `INSERT INTO institute (id, name) VALUES (:id, :name)`, inst); err != nil {
		return roster.Institute{}, errors.Wrap(err, "inserting institute")
	}
	return inst, nil
}

func (repo *rosterRepository) CreateClass(ctx context.Context, class roster.Class) (roster.Class, error) {
	q := `INSERT INTO class (id, institute_id, name, grade) VALUES ($1, $2, $3, $4)`
	if _, err := repo.db.ExecContext(ctx, q, class.ID, class.InstituteID, class.Name, class.Grade); err != nil {
		return roster.Class{}, trapFKErr(err, "inserting class")
	}
	return class, nil
}

func (repo *rosterRepository) CreateSubject(ctx context.Context, subj roster.Subject) (roster.Subject, error) {
	q := `INSERT INTO subject (id, institute_id, code, name) VALUES ($1, $2, $3, $4)`
	if _, err := repo.db.ExecContext(ctx, q, subj.ID, subj.InstituteID, subj.Code, subj.Name); err != nil {
		return roster.Subject{}, trapFKErr(err, "inserting subject")
	}
	return subj, nil
}

func (repo *rosterRepository) AddClassSubject(ctx context.Context, classID, subjectID string) error {
	if !isUUID(classID) || !isUUID(subjectID) {
		return core.ErrNotFound
	}
	q := `INSERT INTO class_subject (class_id, subject_id)
		SELECT c.id, s.id FROM class c JOIN subject s ON s.institute_id = c.institute_id
		WHERE c.id = $1 AND s.id = $2
		ON CONFLICT DO NOTHING`
	res, err := repo.db.ExecContext(ctx, q, classID, subjectID)
	if err != nil {
		return errors.Wrap(err, "adding class subject")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		// either already there, or no such class / subject
		if _, err := repo.GetClassSubject(ctx, classID, subjectID); err != nil {
			return err
		}
	}
	return nil
}

func (repo *rosterRepository) Enroll(ctx context.Context, classID, studentID string) error {
	q := `INSERT INTO enrollment (class_id, student_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`
	if _, err := repo.db.ExecContext(ctx, q, classID, studentID); err != nil {
		return trapFKErr(err, "enrolling student")
	}
	return nil
}

func (repo *rosterRepository) GetClass(ctx context.Context, instituteID, classID string) (roster.Class, error) {
	if !isUUID(instituteID) || !isUUID(classID) {
		return roster.Class{}, core.ErrNotFound
	}
	var class struct {
		ID          string `db:"id"`
		InstituteID string `db:"institute_id"`
		Name        string `db:"name"`
		Grade       int    `db:"grade"`
	}
	q := `SELECT id, institute_id, name, grade FROM class WHERE id = $1 AND institute_id = $2`
	if err := repo.db.GetContext(ctx, &class, q, classID, instituteID); err != nil {
		return roster.Class{}, trapNoRowsErr(err, "finding class")
	}
	return roster.Class(class), nil
}

func (repo *rosterRepository) QueryClasses(ctx context.Context, instituteID string) ([]roster.Class, error) {
	if !isUUID(instituteID) {
		return []roster.Class{}, nil
	}
	var rows []struct {
		ID          string `db:"id"`
		InstituteID string `db:"institute_id"`
		Name        string `db:"name"`
		Grade       int    `db:"grade"`
	}
	q := `SELECT id, institute_id, name, grade FROM class WHERE institute_id = $1 ORDER BY grade, name`
	if err := repo.db.SelectContext(ctx, &rows, q, instituteID); err != nil {
		return nil, errors.Wrap(err, "querying classes")
	}
	classes := make([]roster.Class, 0, len(rows))
	for _, row := range rows {
		classes = append(classes, roster.Class(row))
	}
	return classes, nil
}

func (repo *rosterRepository) QueryClassSubjects(ctx context.Context, classID string) ([]roster.ClassSubject, error) {
	if !isUUID(classID) {
		return nil, core.ErrNotFound
	}
	var rows []classSubjectRow
	if err := repo.db.SelectContext(ctx, &rows, classSubjectQuery+` ORDER BY s.code`, classID); err != nil {
		return nil, errors.Wrap(err, "querying class subjects")
	}
	subjects := make([]roster.ClassSubject, 0, len(rows))
	for _, row := range rows {
		subjects = append(subjects, row.toClassSubject())
	}
	return subjects, nil
}

func (repo *rosterRepository) GetClassSubject(ctx context.Context, classID, subjectID string) (roster.ClassSubject, error) {
	if !isUUID(classID) || !isUUID(subjectID) {
		return roster.ClassSubject{}, core.ErrNotFound
	}
	var row classSubjectRow
	if err := repo.db.GetContext(ctx, &row, classSubjectQuery+` AND cs.subject_id = $2`, classID, subjectID); err != nil {
		return roster.ClassSubject{}, trapNoRowsErr(err, "finding class subject")
	}
	return row.toClassSubject(), nil
}

func (repo *rosterRepository) QueryStudents(ctx context.Context, classID string) ([]roster.Student, error) {
	if !isUUID(classID) {
		return []roster.Student{}, nil
	}
	q := `SELECT u.id, u.name, u.username, u.email, e.class_id
		FROM enrollment e JOIN "user" u ON u.id = e.student_id
		WHERE e.class_id = $1
		ORDER BY u.name, u.id`
	return repo.selectStudents(ctx, q, classID)
}

func (repo *rosterRepository) QueryStudentsByID(ctx context.Context, ids ...string) ([]roster.Student, error) {
	q := `SELECT DISTINCT ON (u.name, u.id) u.id, u.name, u.username, u.email, e.class_id
		FROM "user" u LEFT JOIN enrollment e ON e.student_id = u.id
		WHERE u.id = ANY($1)
		ORDER BY u.name, u.id`
	return repo.selectStudents(ctx, q, pq.Array(ids))
}

func (repo *rosterRepository) QueryStudentInstituteIDs(ctx context.Context, studentID string) ([]string, error) {
	ids := make([]string, 0)
	if !isUUID(studentID) {
		return ids, nil
	}
	q := `SELECT DISTINCT c.institute_id
		FROM enrollment e JOIN class c ON c.id = e.class_id
		WHERE e.student_id = $1
		ORDER BY c.institute_id`
	if err := repo.db.SelectContext(ctx, &ids, q, studentID); err != nil {
		return nil, errors.Wrap(err, "querying student institutes")
	}
	return ids, nil
}

func (repo *rosterRepository) selectStudents(ctx context.Context, q string, args ...interface{}) ([]roster.Student, error) {
	var rows []studentRow
	if err := repo.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, errors.Wrap(err, "querying students")
	}
	students := make([]roster.Student, 0, len(rows))
	for _, row := range rows {
		students = append(students, row.toStudent())
	}
	return students, nil
}

func (repo *rosterRepository) SetTeacher(ctx context.Context, classID, subjectID, teacherID string) error {
	q := `UPDATE class_subject SET teacher_id = $3 WHERE class_id = $1 AND subject_id = $2`
	res, err := repo.db.ExecContext(ctx, q, classID, subjectID, optString(teacherID))
	if err != nil {
		return errors.Wrap(err, "setting teacher")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return core.ErrNotFound
	}
	return nil
}

// trapFKErr maps foreign key violations (unknown parent row) to core.ErrNotFound
func trapFKErr(err error, msg string) error {
	if pqErr, ok := errors.Cause(err).(*pq.Error); ok && pqErr.Code == "23503" {
		return core.ErrNotFound
	}
	return errors.Wrap(err, msg)
}
