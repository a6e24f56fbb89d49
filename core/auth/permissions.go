package auth

// NoAccess is a reserved sentinel inside an explicit permission list meaning
// "deny everything", distinct from an empty list (no override configured).
const NoAccess = "NO_ACCESS"

// Permissions
const (
	// Geral
	PermViewDashboard    = "view_dashboard"
	PermViewRelatorios   = "view_relatorios"
	PermExportRelatorios = "export_relatorios"

	// Secretaria Académica
	PermViewInscritos    = "view_inscritos"
	PermManageInscritos  = "manage_inscritos"
	PermViewMatriculas   = "view_matriculas"
	PermCreateMatricula  = "create_matricula"
	PermManageMatriculas = "manage_matriculas"
	PermViewAlunos       = "view_alunos"
	PermManageAlunos     = "manage_alunos"
	PermViewDocumentos   = "view_documentos"
	PermEmitDeclaracoes  = "emit_declaracoes"

	// Gestão Pedagógica
	PermViewTurmas       = "view_turmas"
	PermManageTurmas     = "manage_turmas"
	PermAssignTurma      = "assign_turma"
	PermViewCursos       = "view_cursos"
	PermManageCursos     = "manage_cursos"
	PermViewProfessores  = "view_professores"
	PermManageProfessores = "manage_professores"
	PermViewNotas        = "view_notas"
	PermManageNotas      = "manage_notas"
	PermViewHorarios     = "view_horarios"
	PermManageHorarios   = "manage_horarios"

	// Financeiro
	PermViewPropinas    = "view_propinas"
	PermManagePropinas  = "manage_propinas"
	PermViewPagamentos  = "view_pagamentos"
	PermManagePagamentos = "manage_pagamentos"

	// Administração
	PermManageUsuarios      = "manage_usuarios"
	PermManagePermissoes    = "manage_permissoes"
	PermViewConfiguracoes   = "view_configuracoes"
	PermManageConfiguracoes = "manage_configuracoes"
	PermViewAuditoria       = "view_auditoria"
)

// Canonical role keys
const (
	RoleAdmin       = "Admin"
	RoleSecretaria  = "Secretaria"
	RoleProfessor   = "Professor"
	RoleAluno       = "Aluno"
	RoleEncarregado = "Encarregado"
	RoleComum       = "Comum"
)

// PermissionGroup organizes permissions for UI presentation only;
// grouping has no effect on resolution.
type PermissionGroup struct {
	Name        string   `json:"name"`
	Permissions []string `json:"permissions"`
}

var Groups = []PermissionGroup{
	{
		Name: "Geral",
		Permissions: []string{
			PermViewDashboard, PermViewRelatorios, PermExportRelatorios,
		},
	},
	{
		Name: "Secretaria Académica",
		Permissions: []string{
			PermViewInscritos, PermManageInscritos,
			PermViewMatriculas, PermCreateMatricula, PermManageMatriculas,
			PermViewAlunos, PermManageAlunos,
			PermViewDocumentos, PermEmitDeclaracoes,
		},
	},
	{
		Name: "Gestão Pedagógica",
		Permissions: []string{
			PermViewTurmas, PermManageTurmas, PermAssignTurma,
			PermViewCursos, PermManageCursos,
			PermViewProfessores, PermManageProfessores,
			PermViewNotas, PermManageNotas,
			PermViewHorarios, PermManageHorarios,
		},
	},
	{
		Name: "Financeiro",
		Permissions: []string{
			PermViewPropinas, PermManagePropinas,
			PermViewPagamentos, PermManagePagamentos,
		},
	},
	{
		Name: "Administração",
		Permissions: []string{
			PermManageUsuarios, PermManagePermissoes,
			PermViewConfiguracoes, PermManageConfiguracoes,
			PermViewAuditoria,
		},
	},
}

// Catalog returns every known permission, in group order.
func Catalog() []string {
	all := make([]string, 0, 32)
	for _, g := range Groups {
		all = append(all, g.Permissions...)
	}
	return all
}

// rolePermissions is the static role-key -> default permission set map.
// Immutable process-wide configuration; an explicit per-user permission
// list, when present and non-empty, replaces these defaults entirely.
var rolePermissions = map[string][]string{
	RoleAdmin: Catalog(),
	RoleSecretaria: {
		PermViewDashboard, PermViewRelatorios, PermExportRelatorios,
		PermViewInscritos, PermManageInscritos,
		PermViewMatriculas, PermCreateMatricula, PermManageMatriculas,
		PermViewAlunos, PermManageAlunos,
		PermViewDocumentos, PermEmitDeclaracoes,
		PermViewTurmas, PermAssignTurma,
		PermViewPropinas, PermViewPagamentos,
	},
	RoleProfessor: {
		PermViewDashboard,
		PermViewTurmas, PermViewAlunos,
		PermViewNotas, PermManageNotas,
		PermViewHorarios,
	},
	RoleAluno: {
		PermViewDashboard,
		PermViewNotas, PermViewHorarios, PermViewPropinas,
	},
	RoleEncarregado: {
		PermViewDashboard,
		PermViewNotas, PermViewPropinas, PermViewPagamentos,
	},
	RoleComum: {
		PermViewDashboard,
	},
}

func roleHas(roleKey, permission string) bool {
	for _, p := range rolePermissions[roleKey] {
		if p == permission {
			return true
		}
	}
	return false
}
