// Package view decides which dashboard variant a role may see for the current selection.
package view

import "github.com/trezcool/darasa/core/user"

// Variant is the data source a dashboard view reads from.
type Variant string

const (
	VariantNone      Variant = "none"
	VariantInstitute Variant = "institute"
	VariantClass     Variant = "class"
	VariantSubject   Variant = "subject"
)

func (v Variant) String() string { return string(v) }

// Selection is the institute / class / subject (or child) the user is looking at.
// Empty strings are unset.
type Selection struct {
	InstituteID string `json:"instituteId,omitempty" query:"instituteId"`
	ClassID     string `json:"classId,omitempty" query:"classId"`
	SubjectID   string `json:"subjectId,omitempty" query:"subjectId"`
	ChildID     string `json:"childId,omitempty" query:"childId"`
}

func (s Selection) HasInstitute() bool { return s.InstituteID != "" }
func (s Selection) HasClass() bool     { return s.ClassID != "" }
func (s Selection) HasSubject() bool   { return s.SubjectID != "" }

// Decision is the outcome of Select.
// Denied is set when the role may never see the view, whatever the selection.
// Permitted is false (and Variant is VariantNone) when the selection is not enough to pick a view.
type Decision struct {
	Variant   Variant
	Permitted bool
	Denied    bool
}

func deny() Decision       { return Decision{Variant: VariantNone, Denied: true} }
func incomplete() Decision { return Decision{Variant: VariantNone} }
func permit(v Variant) Decision {
	return Decision{Variant: v, Permitted: true}
}

// Select evaluates the view table top to bottom:
//
//	student                                   -> none (denied)
//	institute admin, marker  + institute       -> institute
//	admin, teacher, marker   + institute+class -> class
//	admin, teacher, marker   + ... + subject   -> subject
//	anything else                              -> none
func Select(role user.Role, sel Selection) Decision {
	switch role {
	case user.RoleStudent:
		return deny()

	case user.RoleInstituteAdmin, user.RoleAttendanceMarker:
		if !sel.HasInstitute() {
			return incomplete()
		}
		if !sel.HasClass() {
			return permit(VariantInstitute)
		}
		return selectClassOrSubject(sel)

	case user.RoleTeacher:
		if !sel.HasInstitute() || !sel.HasClass() {
			return incomplete()
		}
		return selectClassOrSubject(sel)

	case user.RoleParent, user.RoleSystemAdmin:
		return incomplete()
	}
	return incomplete()
}

func selectClassOrSubject(sel Selection) Decision {
	if sel.HasSubject() {
		return permit(VariantSubject)
	}
	return permit(VariantClass)
}
