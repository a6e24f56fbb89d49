package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func resolveRaw(raw RawUser, perm string) bool {
	usr := Normalize(raw)
	return Resolve(&usr, perm)
}

func TestResolve_nilUser(t *testing.T) {
	assert.False(t, Resolve(nil, PermViewDashboard))
}

func TestResolve_superuserSupremacy(t *testing.T) {
	// superuser wins over everything, including an explicit NO_ACCESS list
	raw := RawUser{
		IsSuperuser: true,
		Permissoes:  []string{NoAccess},
		Papel:       "Aluno",
	}
	for _, perm := range Catalog() {
		assert.True(t, resolveRaw(raw, perm), perm)
	}
	assert.True(t, resolveRaw(raw, "unknown_permission"))
}

func TestResolve_explicitListIsAuthoritative(t *testing.T) {
	raw := RawUser{
		Permissoes: []string{PermViewDashboard, PermViewMatriculas},
		Papel:      "Admin", // must NOT rescue permissions absent from the list
		CargoNome:  "Diretor Geral",
	}
	assert.True(t, resolveRaw(raw, PermViewDashboard))
	assert.True(t, resolveRaw(raw, PermViewMatriculas))
	assert.False(t, resolveRaw(raw, PermManageUsuarios))
	assert.False(t, resolveRaw(raw, PermViewAlunos))
}

func TestResolve_noAccessSentinel(t *testing.T) {
	raw := RawUser{
		Permissoes: []string{PermViewDashboard, NoAccess, PermViewMatriculas},
		Papel:      "Secretaria",
	}
	for _, perm := range Catalog() {
		assert.False(t, resolveRaw(raw, perm), perm)
	}
	// even for permissions that are in the list alongside the sentinel
	assert.False(t, resolveRaw(raw, PermViewDashboard))
}

func TestResolve_emptyListFallsThrough(t *testing.T) {
	// empty != deny-all: falls through to the Admin role rule
	raw := RawUser{Permissoes: []string{}, Papel: "Admin"}
	for _, perm := range Catalog() {
		assert.True(t, resolveRaw(raw, perm), perm)
	}
}

func TestResolve_additionalListFallback(t *testing.T) {
	// permissoes_adicionais only applies when permissoes is absent/empty
	raw := RawUser{
		PermissoesAdicionais: []string{PermViewNotas},
		Papel:                "Professor",
	}
	assert.True(t, resolveRaw(raw, PermViewNotas))
	assert.False(t, resolveRaw(raw, PermManageNotas)) // no role fallthrough

	// primary list wins when both are set
	both := RawUser{
		Permissoes:           []string{PermViewDashboard},
		PermissoesAdicionais: []string{PermViewNotas},
	}
	assert.True(t, resolveRaw(both, PermViewDashboard))
	assert.False(t, resolveRaw(both, PermViewNotas))
}

func TestResolve_jobTitleHierarchy(t *testing.T) {
	tests := []struct {
		name string
		raw  RawUser
		perm string
		want bool
	}{
		{"title contains admin", RawUser{CargoNome: "Administrador de Sistema"}, PermManageUsuarios, true},
		{"title contains diretor geral", RawUser{CargoNome: "Diretor Geral Adjunto"}, PermManageUsuarios, true},
		{"case-insensitive", RawUser{CargoNome: "DIRETOR GERAL"}, PermManageConfiguracoes, true},
		{"plain diretor maps to Admin role set", RawUser{CargoNome: "Diretor Pedagógico"}, PermManageUsuarios, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, resolveRaw(tt.raw, tt.perm))
		})
	}
}

func TestResolve_roleSubstringFallback(t *testing.T) {
	// case-insensitive substring match, not exact match
	raw := RawUser{CargoNome: "Secretária Geral"}
	assert.True(t, resolveRaw(raw, PermViewMatriculas))
	assert.True(t, resolveRaw(raw, PermManageInscritos))
	assert.False(t, resolveRaw(raw, PermManageUsuarios))

	prof := RawUser{Papel: "Docente Titular"}
	assert.True(t, resolveRaw(prof, PermManageNotas))
	assert.False(t, resolveRaw(prof, PermManageTurmas))

	aluno := RawUser{Cargo: "aluno"}
	assert.True(t, resolveRaw(aluno, PermViewNotas))
	assert.False(t, resolveRaw(aluno, PermManageNotas))

	enc := RawUser{Papel: "Encarregado de Educação"}
	assert.True(t, resolveRaw(enc, PermViewPropinas))
	assert.False(t, resolveRaw(enc, PermManagePropinas))

	nobody := RawUser{Papel: "Visitante"}
	assert.False(t, resolveRaw(nobody, PermViewDashboard))
}

func TestResolve_scenarioA(t *testing.T) {
	raw := RawUser{
		IsSuperuser: false,
		Permissoes:  []string{PermViewDashboard},
		Papel:       "Secretaria",
	}
	assert.False(t, resolveRaw(raw, PermManageUsuarios))
	assert.True(t, resolveRaw(raw, PermViewDashboard))
}

func TestResolve_scenarioB(t *testing.T) {
	raw := RawUser{
		Permissoes: []string{},
		CargoNome:  "Diretor Geral Adjunto",
	}
	assert.True(t, resolveRaw(raw, PermManageUsuarios))
}

func TestNormalize(t *testing.T) {
	raw := RawUser{
		IsSuperuser:          true,
		Permissoes:           nil,
		PermissoesAdicionais: []string{PermViewNotas},
		Papel:                "Professor",
		Cargo:                "docente",
		CargoNome:            "Professor Titular",
	}
	usr := Normalize(raw)
	assert.True(t, usr.IsSuperuser)
	assert.Equal(t, []string{PermViewNotas}, usr.Permissions)
	assert.Equal(t, "Professor", usr.Role)
	assert.Equal(t, "Professor Titular", usr.JobTitle)

	// cargo is the title fallback when cargo_nome is absent
	usr = Normalize(RawUser{Cargo: "docente"})
	assert.Equal(t, "docente", usr.JobTitle)
}
