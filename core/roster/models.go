package roster

type (
	Institute struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}

	Class struct {
		ID          string `json:"id"`
		InstituteID string `json:"institute_id"`
		Name        string `json:"name"`
		Grade       int    `json:"grade"`
	}

	Subject struct {
		ID          string `json:"id"`
		InstituteID string `json:"institute_id"`
		Code        string `json:"code"`
		Name        string `json:"name"`
	}

	// ClassSubject is a Subject taught in a Class, with its (optional) teacher.
	ClassSubject struct {
		Subject
		ClassID     string `json:"class_id"`
		TeacherID   string `json:"teacher_id,omitempty"`
		TeacherName string `json:"teacher_name,omitempty"`
	}

	// Student is a student enrolled in a class.
	Student struct {
		ID       string `json:"id"`
		Name     string `json:"name"`
		Username string `json:"username,omitempty"`
		Email    string `json:"email,omitempty"`
		ClassID  string `json:"class_id,omitempty"`
	}
)

// NewInstitute, NewClass and NewSubject hold what is needed to create roster entries.
type (
	NewInstitute struct {
		Name string `json:"name" validate:"required,max=255"`
	}

	NewClass struct {
		Name  string `json:"name" validate:"required,max=255"`
		Grade int    `json:"grade" validate:"gte=0,lte=13"`
	}

	NewSubject struct {
		Code string `json:"code" validate:"required,max=32,alphanum_"`
		Name string `json:"name" validate:"required,max=255"`
	}
)

// TeacherAssignment assigns a teacher to a subject of a class.
type TeacherAssignment struct {
	TeacherID string `json:"teacher_id" validate:"required,uuid"`
}
