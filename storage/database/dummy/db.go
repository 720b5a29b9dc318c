package dummydb

import (
	"sync"

	"github.com/trezcool/darasa/core/course"
	"github.com/trezcool/darasa/core/coursework"
	"github.com/trezcool/darasa/core/user"
)

// DB is an in-memory store used in tests. One lock guards all tables so
// cross-table cascades stay consistent.
type DB struct {
	sync.RWMutex
	users       map[string]*user.User
	courses     map[string]*course.Course
	enrollments map[string]*course.Enrollment // keyed by userID+"/"+courseID
	assignments map[string]*coursework.Assignment
	submissions map[string]*coursework.Submission
	materials   map[string]*coursework.Material
	discussions map[string]*coursework.Discussion
	comments    map[string]*coursework.Comment
}

func Open() *DB {
	return &DB{
		users:       make(map[string]*user.User),
		courses:     make(map[string]*course.Course),
		enrollments: make(map[string]*course.Enrollment),
		assignments: make(map[string]*coursework.Assignment),
		submissions: make(map[string]*coursework.Submission),
		materials:   make(map[string]*coursework.Material),
		discussions: make(map[string]*coursework.Discussion),
		comments:    make(map[string]*coursework.Comment),
	}
}

func enrollmentKey(userID, courseID string) string {
	return userID + "/" + courseID
}
