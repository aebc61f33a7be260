package roster

import (
	"context"

	"github.com/google/uuid"
	"github.com/kat-co/vala"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/user"
)

var (
	// errors
	errNotATeacher = "the user is not a teacher of this institute"
)

type (
	Repository interface {
		CreateInstitute(ctx context.Context, inst Institute) (Institute, error)
		CreateClass(ctx context.Context, class Class) (Class, error)
		CreateSubject(ctx context.Context, subj Subject) (Subject, error)
		// AddClassSubject makes subj part of the curriculum of class.
		AddClassSubject(ctx context.Context, classID, subjectID string) error
		Enroll(ctx context.Context, classID, studentID string) error

		GetClass(ctx context.Context, instituteID, classID string) (Class, error)
		QueryClasses(ctx context.Context, instituteID string) ([]Class, error)
		// QueryClassSubjects returns core.ErrNotFound when the class does not exist.
		QueryClassSubjects(ctx context.Context, classID string) ([]ClassSubject, error)
		GetClassSubject(ctx context.Context, classID, subjectID string) (ClassSubject, error)
		QueryStudents(ctx context.Context, classID string) ([]Student, error)
		QueryStudentsByID(ctx context.Context, ids ...string) ([]Student, error)
		// QueryStudentInstituteIDs returns the distinct institutes of the classes the student is enrolled in.
		QueryStudentInstituteIDs(ctx context.Context, studentID string) ([]string, error)
		// SetTeacher sets (or clears, with an empty teacherID) the teacher of a class subject.
		SetTeacher(ctx context.Context, classID, subjectID, teacherID string) error
	}

	Service interface {
		CreateInstitute(ctx context.Context, ni NewInstitute) (Institute, error)
		CreateClass(ctx context.Context, instituteID string, nc NewClass) (Class, error)
		CreateSubject(ctx context.Context, instituteID string, ns NewSubject) (Subject, error)
		AddClassSubject(ctx context.Context, instituteID, classID, subjectID string) error
		Enroll(ctx context.Context, instituteID, classID, studentID string) error

		Classes(ctx context.Context, instituteID string) ([]Class, error)
		ClassSubjects(ctx context.Context, instituteID, classID string) ([]ClassSubject, error)
		Students(ctx context.Context, instituteID, classID string) ([]Student, error)
		Children(ctx context.Context, parent user.User) ([]Student, error)
		StudentInstituteIDs(ctx context.Context, studentID string) ([]string, error)
		AssignTeacher(ctx context.Context, instituteID, classID, subjectID string, ta TeacherAssignment) (ClassSubject, error)
		UnassignTeacher(ctx context.Context, instituteID, classID, subjectID string) (ClassSubject, error)
	}

	service struct {
		repo   Repository
		usrSvc user.Service
	}
)

func NewService(repo Repository, usrSvc user.Service) Service {
	vala.BeginValidation().Validate(
		vala.IsNotNil(repo, "repo"),
		vala.IsNotNil(usrSvc, "usrSvc"),
	).CheckAndPanic()

	return &service{repo: repo, usrSvc: usrSvc}
}

func (svc *service) CreateInstitute(ctx context.Context, ni NewInstitute) (Institute, error) {
	ni.Name = core.CleanString(ni.Name)
	if err := core.Validate.Struct(ni); err != nil {
		return Institute{}, err
	}
	return svc.repo.CreateInstitute(ctx, Institute{ID: uuid.New().String(), Name: ni.Name})
}

func (svc *service) CreateClass(ctx context.Context, instituteID string, nc NewClass) (Class, error) {
	nc.Name = core.CleanString(nc.Name)
	if err := core.Validate.Struct(nc); err != nil {
		return Class{}, err
	}
	return svc.repo.CreateClass(ctx, Class{ID: uuid.New().String(), InstituteID: instituteID, Name: nc.Name, Grade: nc.Grade})
}

func (svc *service) CreateSubject(ctx context.Context, instituteID string, ns NewSubject) (Subject, error) {
	ns.Code = core.CleanString(ns.Code)
	ns.Name = core.CleanString(ns.Name)
	if err := core.Validate.Struct(ns); err != nil {
		return Subject{}, err
	}
	return svc.repo.CreateSubject(ctx, Subject{ID: uuid.New().String(), InstituteID: instituteID, Code: ns.Code, Name: ns.Name})
}

func (svc *service) AddClassSubject(ctx context.Context, instituteID, classID, subjectID string) error {
	if _, err := svc.repo.GetClass(ctx, instituteID, classID); err != nil {
		return err
	}
	return svc.repo.AddClassSubject(ctx, classID, subjectID)
}

func (svc *service) Enroll(ctx context.Context, instituteID, classID, studentID string) error {
	if _, err := svc.repo.GetClass(ctx, instituteID, classID); err != nil {
		return err
	}
	usr, err := svc.usrSvc.GetByID(ctx, studentID)
	if err != nil {
		return errors.Wrap(err, "finding student")
	}
	if !usr.IsStudent() {
		return core.NewValidationError(nil, core.FieldError{Field: "student_id", Error: "the user is not a student"})
	}
	return svc.repo.Enroll(ctx, classID, studentID)
}

func (svc *service) Classes(ctx context.Context, instituteID string) ([]Class, error) {
	classes, err := svc.repo.QueryClasses(ctx, instituteID)
	if err != nil {
		return nil, errors.Wrap(err, "querying classes")
	}
	if classes == nil {
		classes = []Class{}
	}
	return classes, nil
}

func (svc *service) ClassSubjects(ctx context.Context, instituteID, classID string) ([]ClassSubject, error) {
	if _, err := svc.repo.GetClass(ctx, instituteID, classID); err != nil {
		return nil, err
	}
	subjects, err := svc.repo.QueryClassSubjects(ctx, classID)
	if err != nil {
		return nil, errors.Wrap(err, "querying class subjects")
	}
	if subjects == nil {
		subjects = []ClassSubject{}
	}
	return subjects, nil
}

func (svc *service) Students(ctx context.Context, instituteID, classID string) ([]Student, error) {
	if _, err := svc.repo.GetClass(ctx, instituteID, classID); err != nil {
		return nil, err
	}
	students, err := svc.repo.QueryStudents(ctx, classID)
	if err != nil {
		return nil, errors.Wrap(err, "querying students")
	}
	if students == nil {
		students = []Student{}
	}
	return students, nil
}

// Children lists the students a parent is guardian of.
func (svc *service) Children(ctx context.Context, parent user.User) ([]Student, error) {
	if !parent.IsParent() {
		return nil, core.ErrForbidden
	}
	if len(parent.ChildIDs) == 0 {
		return []Student{}, nil
	}
	children, err := svc.repo.QueryStudentsByID(ctx, parent.ChildIDs...)
	if err != nil {
		return nil, errors.Wrap(err, "querying children")
	}
	if children == nil {
		children = []Student{}
	}
	return children, nil
}

func (svc *service) StudentInstituteIDs(ctx context.Context, studentID string) ([]string, error) {
	ids, err := svc.repo.QueryStudentInstituteIDs(ctx, studentID)
	if err != nil {
		return nil, errors.Wrap(err, "querying student institutes")
	}
	return ids, nil
}

// AssignTeacher sets the teacher of a subject of a class. The user must be a teacher of the institute.
func (svc *service) AssignTeacher(ctx context.Context, instituteID, classID, subjectID string, ta TeacherAssignment) (ClassSubject, error) {
	if err := core.Validate.Struct(ta); err != nil {
		return ClassSubject{}, err
	}
	if _, err := svc.repo.GetClass(ctx, instituteID, classID); err != nil {
		return ClassSubject{}, err
	}
	if _, err := svc.repo.GetClassSubject(ctx, classID, subjectID); err != nil {
		return ClassSubject{}, err
	}

	teacher, err := svc.usrSvc.GetByID(ctx, ta.TeacherID)
	if err != nil && errors.Cause(err) != core.ErrNotFound {
		return ClassSubject{}, errors.Wrap(err, "finding teacher")
	}
	if err != nil || teacher.Role != user.RoleTeacher || !teacher.IsActive || !teacher.BelongsTo(instituteID) {
		return ClassSubject{}, core.NewValidationError(nil, core.FieldError{Field: "teacher_id", Error: errNotATeacher})
	}

	if err := svc.repo.SetTeacher(ctx, classID, subjectID, teacher.ID); err != nil {
		return ClassSubject{}, errors.Wrap(err, "assigning teacher")
	}
	return svc.repo.GetClassSubject(ctx, classID, subjectID)
}

// UnassignTeacher clears the teacher of a subject of a class; it is a no-op when none is assigned.
func (svc *service) UnassignTeacher(ctx context.Context, instituteID, classID, subjectID string) (ClassSubject, error) {
	if _, err := svc.repo.GetClass(ctx, instituteID, classID); err != nil {
		return ClassSubject{}, err
	}
	cs, err := svc.repo.GetClassSubject(ctx, classID, subjectID)
	if err != nil {
		return ClassSubject{}, err
	}
	if cs.TeacherID == "" {
		return cs, nil
	}

	if err := svc.repo.SetTeacher(ctx, classID, subjectID, ""); err != nil {
		return ClassSubject{}, errors.Wrap(err, "unassigning teacher")
	}
	return svc.repo.GetClassSubject(ctx, classID, subjectID)
}
