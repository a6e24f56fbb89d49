// Package inmemdb provides map-backed repositories for tests and local
// development.
package inmemdb

import (
	"sync"

	"github.com/sgescola/sge/core/enrollment"
	"github.com/sgescola/sge/core/user"
)

type DB struct {
	mutex sync.RWMutex

	users       map[string]*user.User
	candidates  map[string]*enrollment.Candidate
	enrollments map[string]*enrollment.Enrollment
	turmas      map[string]*enrollment.Turma
}

func NewDB() *DB {
	return &DB{
		users:       make(map[string]*user.User),
		candidates:  make(map[string]*enrollment.Candidate),
		enrollments: make(map[string]*enrollment.Enrollment),
		turmas:      make(map[string]*enrollment.Turma),
	}
}
