package exam

import (
	"context"
	"io"

	"github.com/google/uuid"
	"github.com/kat-co/vala"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/user"
)

type (
	Repository interface {
		QueryExamResults(ctx context.Context, examID string) ([]Result, error)
		QueryStudentResults(ctx context.Context, studentID string) ([]Result, error)
		// SaveResult inserts r, or replaces the result the student already has for the same exam and subject.
		SaveResult(ctx context.Context, r Result) (Result, error)
	}

	Service interface {
		ExamResults(ctx context.Context, viewer user.User, examID string) ([]Result, error)
		StudentResults(ctx context.Context, viewer user.User, studentID string) ([]Result, error)
		Publish(ctx context.Context, author user.User, examID string, nr NewResult) (Result, error)
		// WriteReport renders the results of a student as a PDF document.
		WriteReport(ctx context.Context, w io.Writer, viewer user.User, studentID string) error
	}

	service struct {
		repo        Repository
		usrSvc      user.Service
		enrollments user.EnrollmentFinder
	}
)

func NewService(repo Repository, usrSvc user.Service, enrollments user.EnrollmentFinder) Service {
	vala.BeginValidation().Validate(
		vala.IsNotNil(repo, "repo"),
		vala.IsNotNil(usrSvc, "usrSvc"),
		vala.IsNotNil(enrollments, "enrollments"),
	).CheckAndPanic()

	return &service{repo: repo, usrSvc: usrSvc, enrollments: enrollments}
}

func computeAll(results []Result) []Result {
	if results == nil {
		return []Result{}
	}
	for i := range results {
		results[i].Compute()
	}
	return results
}

func (svc *service) ExamResults(ctx context.Context, viewer user.User, examID string) ([]Result, error) {
	if !viewer.IsStaff() {
		return nil, core.ErrForbidden
	}
	results, err := svc.repo.QueryExamResults(ctx, examID)
	if err != nil {
		return nil, errors.Wrap(err, "querying exam results")
	}
	return computeAll(results), nil
}

// StudentResults lists the results of a student, for the student, their parents and the staff of their institutes.
func (svc *service) StudentResults(ctx context.Context, viewer user.User, studentID string) ([]Result, error) {
	allowed, err := viewer.CanViewStudent(ctx, studentID, svc.enrollments)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, core.ErrForbidden
	}
	results, err := svc.repo.QueryStudentResults(ctx, studentID)
	if err != nil {
		return nil, errors.Wrap(err, "querying student results")
	}
	return computeAll(results), nil
}

func (svc *service) Publish(ctx context.Context, author user.User, examID string, nr NewResult) (Result, error) {
	if !(author.Role == user.RoleTeacher || author.IsAdmin()) {
		return Result{}, core.ErrForbidden
	}
	if err := nr.Validate(); err != nil {
		return Result{}, err
	}

	student, err := svc.usrSvc.GetByID(ctx, nr.StudentID)
	if err != nil && errors.Cause(err) != core.ErrNotFound {
		return Result{}, errors.Wrap(err, "finding student")
	}
	if err != nil || !student.IsStudent() {
		return Result{}, core.NewValidationError(nil, core.FieldError{Field: "student_id", Error: "the user is not a student"})
	}

	r, err := svc.repo.SaveResult(ctx, Result{
		ID:          uuid.New().String(),
		ExamID:      examID,
		ExamName:    nr.ExamName,
		StudentID:   student.ID,
		StudentName: student.Name,
		SubjectID:   nr.SubjectID,
		SubjectName: nr.SubjectName,
		Marks:       nr.Marks,
		MaxMarks:    nr.MaxMarks,
		PublishedAt: core.NowFunc().UTC(),
	})
	if err != nil {
		return Result{}, errors.Wrap(err, "saving result")
	}
	r.Compute()
	return r, nil
}

func (svc *service) WriteReport(ctx context.Context, w io.Writer, viewer user.User, studentID string) error {
	results, err := svc.StudentResults(ctx, viewer, studentID)
	if err != nil {
		return err
	}
	student, err := svc.usrSvc.GetByID(ctx, studentID)
	if err != nil {
		return errors.Wrap(err, "finding student")
	}
	return writeReport(w, student, results)
}
