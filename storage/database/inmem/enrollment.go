package inmemdb

import (
	"sort"
	"strings"

	"github.com/sgescola/sge/core/enrollment"
)

type enrollmentRepository struct {
	db *DB
}

var _ enrollment.Repository = (*enrollmentRepository)(nil)

func NewEnrollmentRepository(db *DB) enrollment.Repository {
	return &enrollmentRepository{db: db}
}

func (repo *enrollmentRepository) CreateCandidate(cand enrollment.Candidate) (enrollment.Candidate, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()
	repo.db.candidates[cand.ID] = &cand
	return cand, nil
}

func (repo *enrollmentRepository) GetCandidateByID(id string) (enrollment.Candidate, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if cand, ok := repo.db.candidates[id]; ok {
		return *cand, nil
	}
	return enrollment.Candidate{}, enrollment.ErrCandidateNotFound
}

func (repo *enrollmentRepository) FilterCandidates(filter enrollment.CandidateFilter) ([]enrollment.Candidate, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	search := strings.ToLower(filter.Search)
	cands := make([]enrollment.Candidate, 0)
	for _, cand := range repo.db.candidates {
		if search != "" && !strings.Contains(strings.ToLower(cand.Nome), search) {
			continue
		}
		if filter.Curso != "" && cand.Curso != filter.Curso {
			continue
		}
		if filter.Status != "" && cand.Status != filter.Status {
			continue
		}
		if filter.AnoLetivo != 0 && cand.AnoLetivo != filter.AnoLetivo {
			continue
		}
		cands = append(cands, *cand)
	}
	sort.Slice(cands, func(i, j int) bool { return cands[i].CreatedAt.After(cands[j].CreatedAt) })
	return cands, nil
}

func (repo *enrollmentRepository) UpdateCandidate(cand enrollment.Candidate) (enrollment.Candidate, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.candidates[cand.ID]; !ok {
		return enrollment.Candidate{}, enrollment.ErrCandidateNotFound
	}
	repo.db.candidates[cand.ID] = &cand
	return cand, nil
}

func (repo *enrollmentRepository) DeleteCandidatesByID(ids ...string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()
	for _, id := range ids {
		delete(repo.db.candidates, id)
	}
	return nil
}

func (repo *enrollmentRepository) CreateEnrollment(enr enrollment.Enrollment) (enrollment.Enrollment, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()
	repo.db.enrollments[enr.ID] = &enr
	return enr, nil
}

func (repo *enrollmentRepository) GetEnrollmentByID(id string) (enrollment.Enrollment, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if enr, ok := repo.db.enrollments[id]; ok {
		return *enr, nil
	}
	return enrollment.Enrollment{}, enrollment.ErrEnrollmentNotFound
}

func (repo *enrollmentRepository) GetEnrollmentByCandidateID(candID string) (enrollment.Enrollment, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for _, enr := range repo.db.enrollments {
		if enr.CandidateID == candID {
			return *enr, nil
		}
	}
	return enrollment.Enrollment{}, enrollment.ErrEnrollmentNotFound
}

func (repo *enrollmentRepository) FilterEnrollments(filter enrollment.EnrollmentFilter) ([]enrollment.Enrollment, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	search := strings.ToLower(filter.Search)
	enrs := make([]enrollment.Enrollment, 0)
	for _, enr := range repo.db.enrollments {
		if search != "" && !strings.Contains(strings.ToLower(enr.Nome), search) {
			continue
		}
		if filter.Curso != "" && enr.Curso != filter.Curso {
			continue
		}
		if filter.Status != "" && enr.Status != filter.Status {
			continue
		}
		if filter.AnoLetivo != 0 && enr.AnoLetivo != filter.AnoLetivo {
			continue
		}
		if filter.TurmaID != "" && enr.TurmaID != filter.TurmaID {
			continue
		}
		enrs = append(enrs, *enr)
	}
	sort.Slice(enrs, func(i, j int) bool { return enrs[i].Numero < enrs[j].Numero })
	return enrs, nil
}

func (repo *enrollmentRepository) UpdateEnrollment(enr enrollment.Enrollment) (enrollment.Enrollment, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.enrollments[enr.ID]; !ok {
		return enrollment.Enrollment{}, enrollment.ErrEnrollmentNotFound
	}
	repo.db.enrollments[enr.ID] = &enr
	return enr, nil
}

func (repo *enrollmentRepository) NextEnrollmentNumber(anoLetivo int) (int, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	max := 0
	for _, enr := range repo.db.enrollments {
		if enr.AnoLetivo == anoLetivo && enr.Numero > max {
			max = enr.Numero
		}
	}
	return max + 1, nil
}

func (repo *enrollmentRepository) CreateTurma(turma enrollment.Turma) (enrollment.Turma, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()
	repo.db.turmas[turma.ID] = &turma
	return turma, nil
}

func (repo *enrollmentRepository) GetTurmaByID(id string) (enrollment.Turma, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if turma, ok := repo.db.turmas[id]; ok {
		return *turma, nil
	}
	return enrollment.Turma{}, enrollment.ErrTurmaNotFound
}

func (repo *enrollmentRepository) QueryTurmas(anoLetivo int) ([]enrollment.Turma, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	turmas := make([]enrollment.Turma, 0, len(repo.db.turmas))
	for _, turma := range repo.db.turmas {
		if anoLetivo != 0 && turma.AnoLetivo != anoLetivo {
			continue
		}
		t := *turma
		t.Ocupacao = repo.countSeats(t.ID)
		turmas = append(turmas, t)
	}
	sort.Slice(turmas, func(i, j int) bool { return turmas[i].Nome < turmas[j].Nome })
	return turmas, nil
}

func (repo *enrollmentRepository) CountTurmaSeats(turmaID string) (int, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	return repo.countSeats(turmaID), nil
}

// countSeats expects the caller to hold the lock.
func (repo *enrollmentRepository) countSeats(turmaID string) int {
	taken := 0
	for _, enr := range repo.db.enrollments {
		if enr.TurmaID == turmaID && enr.Status != enrollment.MatriculaAnulada {
			taken++
		}
	}
	return taken
}

func (repo *enrollmentRepository) GetDashboardStats(anoLetivo int) (enrollment.DashboardStats, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	var stats enrollment.DashboardStats
	perCurso := make(map[string]*enrollment.CursoStats)

	for _, cand := range repo.db.candidates {
		if cand.AnoLetivo != anoLetivo {
			continue
		}
		stats.TotalInscritos++
		if cand.Status == enrollment.CandidatePendente {
			stats.InscritosPendentes++
		}
		cs, ok := perCurso[cand.Curso]
		if !ok {
			cs = &enrollment.CursoStats{Curso: cand.Curso}
			perCurso[cand.Curso] = cs
		}
		cs.Inscritos++
	}
	for _, enr := range repo.db.enrollments {
		if enr.AnoLetivo != anoLetivo {
			continue
		}
		stats.TotalMatriculas++
		switch enr.Status {
		case enrollment.MatriculaConfirmada:
			stats.MatriculasConfirmadas++
		case enrollment.MatriculaPendente:
			stats.MatriculasPendentes++
		}
		cs, ok := perCurso[enr.Curso]
		if !ok {
			cs = &enrollment.CursoStats{Curso: enr.Curso}
			perCurso[enr.Curso] = cs
		}
		cs.Matriculas++
	}

	cursos := make([]string, 0, len(perCurso))
	for curso := range perCurso {
		cursos = append(cursos, curso)
	}
	sort.Strings(cursos)
	for _, curso := range cursos {
		stats.PorCurso = append(stats.PorCurso, *perCurso[curso])
	}
	return stats, nil
}
