// Package inmemdb implements the repositories in memory, for tests and local development.
package inmemdb

import (
	"sync"

	"github.com/trezcool/darasa/core/attendance"
	"github.com/trezcool/darasa/core/exam"
	"github.com/trezcool/darasa/core/homework"
	"github.com/trezcool/darasa/core/idcard"
	"github.com/trezcool/darasa/core/roster"
	"github.com/trezcool/darasa/core/user"
)

type (
	// DB holds the tables. Repositories sharing a DB see each other's data.
	DB struct {
		user       *userTable
		attendance *attendanceTable
		roster     *rosterTables
		homework   *homeworkTable
		exam       *examTable
		idcard     *idcardTable
	}

	userTable struct {
		sync.RWMutex
		table map[string]*user.User
	}

	attendanceTable struct {
		sync.RWMutex
		table map[string]*attendance.Record
	}

	rosterTables struct {
		sync.RWMutex
		institutes    map[string]*roster.Institute
		classes       map[string]*roster.Class
		subjects      map[string]*roster.Subject
		classSubjects map[string]map[string]string // {classID: {subjectID: teacherID}}
		enrollments   map[string]map[string]bool   // {classID: {studentID: true}}
	}

	homeworkTable struct {
		sync.RWMutex
		table map[string]*homework.Reference
	}

	examTable struct {
		sync.RWMutex
		table map[string]*exam.Result
	}

	idcardTable struct {
		sync.RWMutex
		table map[string]*idcard.Order
	}
)

func Open() *DB {
	return &DB{
		user:       &userTable{table: make(map[string]*user.User)},
		attendance: &attendanceTable{table: make(map[string]*attendance.Record)},
		roster: &rosterTables{
			institutes:    make(map[string]*roster.Institute),
			classes:       make(map[string]*roster.Class),
			subjects:      make(map[string]*roster.Subject),
			classSubjects: make(map[string]map[string]string),
			enrollments:   make(map[string]map[string]bool),
		},
		homework: &homeworkTable{table: make(map[string]*homework.Reference)},
		exam:     &examTable{table: make(map[string]*exam.Result)},
		idcard:   &idcardTable{table: make(map[string]*idcard.Order)},
	}
}

// userName returns the name of the user with the given id, or "".
func (db *DB) userName(id string) string {
	if id == "" {
		return ""
	}
	db.user.RLock()
	defer db.user.RUnlock()
	if usr, ok := db.user.table[id]; ok {
		return usr.Name
	}
	return ""
}

func copyStrings(s []string) []string {
	if s == nil {
		return nil
	}
	return append([]string(nil), s...)
}
