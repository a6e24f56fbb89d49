package auth

import "strings"

// Resolve decides whether usr may see/use the given capability.
// Pure and synchronous; never errors. Rules apply in strict order,
// first match wins:
//
//  1. no user -> deny
//  2. superuser flag -> allow, unconditionally
//  3. a non-empty explicit permission list is authoritative: NoAccess in
//     the list denies everything; otherwise membership decides, with no
//     fallthrough to role defaults
//  4. role label exactly "Admin" -> allow
//  5. job-title hierarchy: title containing "admin" or "diretor geral"
//     (case-insensitive), or exactly "diretor" while the role label is
//     "Admin" -> allow
//  6. role fallback: substring patterns over the lowered title and role
//     label resolve a canonical role key; its static set decides
//  7. deny
func Resolve(usr *User, permission string) bool {
	if usr == nil {
		return false
	}

	if usr.IsSuperuser {
		return true
	}

	if len(usr.Permissions) > 0 {
		allowed := false
		for _, p := range usr.Permissions {
			if p == NoAccess {
				return false
			}
			if p == permission {
				allowed = true
			}
		}
		return allowed
	}

	if usr.Role == RoleAdmin {
		return true
	}

	title := strings.ToLower(usr.JobTitle)
	if title != "" {
		if strings.Contains(title, "admin") || strings.Contains(title, "diretor geral") {
			return true
		}
		if title == "diretor" && usr.Role == RoleAdmin {
			return true
		}
	}

	if key, ok := matchRoleKey(title, strings.ToLower(usr.Role)); ok {
		return roleHas(key, permission)
	}

	return false
}

// rolePatterns maps substring patterns to canonical role keys,
// checked in priority order.
var rolePatterns = []struct {
	key      string
	patterns []string
}{
	{RoleAdmin, []string{"admin", "diretor"}},
	{RoleSecretaria, []string{"secret"}},
	{RoleProfessor, []string{"prof", "docente"}},
	{RoleAluno, []string{"aluno", "estudante"}},
	{RoleEncarregado, []string{"encarregado"}},
	{RoleComum, []string{"comum"}},
}

func matchRoleKey(fields ...string) (string, bool) {
	for _, rp := range rolePatterns {
		for _, pat := range rp.patterns {
			for _, f := range fields {
				if f != "" && strings.Contains(f, pat) {
					return rp.key, true
				}
			}
		}
	}
	return "", false
}
