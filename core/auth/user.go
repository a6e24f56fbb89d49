package auth

// RawUser is the authorization-relevant shape of the backend's user
// serialization, as consumed from tokens or API payloads. Field-name and
// shape ambiguity (two candidate permission-list fields, two role-ish
// labels) lives here and nowhere else.
type RawUser struct {
	IsSuperuser          bool     `json:"is_superuser"`
	Permissoes           []string `json:"permissoes,omitempty"`
	PermissoesAdicionais []string `json:"permissoes_adicionais,omitempty"`
	Papel                string   `json:"papel,omitempty"`
	Cargo                string   `json:"cargo,omitempty"`
	CargoNome            string   `json:"cargo_nome,omitempty"`
}

// User is the normalized record the resolver consumes.
type User struct {
	IsSuperuser bool
	Permissions []string // nil/empty: no explicit override configured
	Role        string   // coarse role label
	JobTitle    string   // free-text title
}

// Normalize collapses a RawUser into the resolver's shape.
// The primary list field wins over the additional one; whichever is present
// and non-empty first becomes the explicit permission list. The free-text
// job title prefers cargo_nome over cargo.
func Normalize(raw RawUser) User {
	usr := User{
		IsSuperuser: raw.IsSuperuser,
		Role:        raw.Papel,
		JobTitle:    raw.CargoNome,
	}
	if len(raw.Permissoes) > 0 {
		usr.Permissions = raw.Permissoes
	} else if len(raw.PermissoesAdicionais) > 0 {
		usr.Permissions = raw.PermissoesAdicionais
	}
	if usr.JobTitle == "" {
		usr.JobTitle = raw.Cargo
	}
	return usr
}
