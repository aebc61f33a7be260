package user

// Role is the closed set of roles a User can hold.
type Role string

const (
	RoleStudent          Role = "student"
	RoleParent           Role = "parent"
	RoleTeacher          Role = "teacher"
	RoleAttendanceMarker Role = "attendance_marker"
	RoleInstituteAdmin   Role = "institute_admin"
	RoleSystemAdmin      Role = "system_admin"
)

var (
	AllRoles = []Role{
		RoleStudent,
		RoleParent,
		RoleTeacher,
		RoleAttendanceMarker,
		RoleInstituteAdmin,
		RoleSystemAdmin,
	}

	// Roles is the list of assignable roles, as shown to admins.
	Roles = []RoleInfo{
		{Name: "Student", Value: RoleStudent},
		{Name: "Parent", Value: RoleParent},
		{Name: "Teacher", Value: RoleTeacher},
		{Name: "Attendance Marker", Value: RoleAttendanceMarker},
		{Name: "Institute Admin", Value: RoleInstituteAdmin},
		{Name: "System Admin", Value: RoleSystemAdmin},
	}
)

type RoleInfo struct {
	Name  string `json:"name"`
	Value Role   `json:"value"`
}

func (r Role) Valid() bool {
	switch r {
	case RoleStudent, RoleParent, RoleTeacher, RoleAttendanceMarker, RoleInstituteAdmin, RoleSystemAdmin:
		return true
	}
	return false
}

// Priority orders roles by privilege; a user can never grant a role above their own.
func (r Role) Priority() int {
	switch r {
	case RoleSystemAdmin:
		return 40
	case RoleInstituteAdmin:
		return 30
	case RoleTeacher:
		return 20
	case RoleAttendanceMarker:
		return 15
	case RoleParent:
		return 5
	case RoleStudent:
		return 1
	}
	return 0
}

// IsAdmin reports whether the role manages users and institutes.
func (r Role) IsAdmin() bool {
	return r == RoleInstituteAdmin || r == RoleSystemAdmin
}

// IsStaff reports whether the role works inside an institute (marks attendance, reads rosters).
func (r Role) IsStaff() bool {
	switch r {
	case RoleTeacher, RoleAttendanceMarker, RoleInstituteAdmin, RoleSystemAdmin:
		return true
	}
	return false
}

func (r Role) String() string { return string(r) }
