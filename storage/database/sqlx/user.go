package sqlxrepos

import (
	"database/sql"
	"strconv"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/sgescola/sge/core/user"
)

const userCols = `id, name, username, email, is_active, is_superuser, permissoes, permissoes_adicionais,
papel, cargo, cargo_nome, password_hash, created_at, updated_at, last_login`

// dbUser is the usuario table row.
type dbUser struct {
	ID                   string         `db:"id"`
	Name                 null.String    `db:"name"`
	Username             null.String    `db:"username"`
	Email                null.String    `db:"email"`
	IsActive             null.Bool      `db:"is_active"`
	IsSuperuser          null.Bool      `db:"is_superuser"`
	Permissoes           pq.StringArray `db:"permissoes"`
	PermissoesAdicionais pq.StringArray `db:"permissoes_adicionais"`
	Papel                null.String    `db:"papel"`
	Cargo                null.String    `db:"cargo"`
	CargoNome            null.String    `db:"cargo_nome"`
	PasswordHash         null.Bytes     `db:"password_hash"`
	CreatedAt            null.Time      `db:"created_at"`
	UpdatedAt            null.Time      `db:"updated_at"`
	LastLogin            null.Time      `db:"last_login"`
}

type userRepository struct {
	db *sqlx.DB
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *sqlx.DB) *userRepository {
	return &userRepository{db: db}
}

func (repo userRepository) row(usr user.User) dbUser {
	return dbUser{
		ID:                   usr.ID,
		Name:                 null.NewString(usr.Name, usr.Name != ""),
		Username:             null.NewString(usr.Username, usr.Username != ""),
		Email:                null.NewString(usr.Email, usr.Email != ""),
		IsActive:             null.BoolFromPtr(usr.IsActive),
		IsSuperuser:          null.BoolFrom(usr.IsSuperuser),
		Permissoes:           pq.StringArray(usr.Permissoes),
		PermissoesAdicionais: pq.StringArray(usr.PermissoesAdicionais),
		Papel:                null.NewString(usr.Papel, usr.Papel != ""),
		Cargo:                null.NewString(usr.Cargo, usr.Cargo != ""),
		CargoNome:            null.NewString(usr.CargoNome, usr.CargoNome != ""),
		PasswordHash:         null.BytesFrom(usr.PasswordHash),
		CreatedAt:            null.NewTime(usr.CreatedAt.UTC(), !usr.CreatedAt.IsZero()),
		UpdatedAt:            null.NewTime(usr.UpdatedAt.UTC(), !usr.UpdatedAt.IsZero()),
		LastLogin:            null.NewTime(usr.LastLogin.UTC(), !usr.LastLogin.IsZero()),
	}
}

func (repo userRepository) unrow(u dbUser) user.User {
	return user.User{
		ID:                   u.ID,
		Name:                 u.Name.String,
		Username:             u.Username.String,
		Email:                u.Email.String,
		IsActive:             u.IsActive.Ptr(),
		IsSuperuser:          u.IsSuperuser.Bool,
		Permissoes:           []string(u.Permissoes),
		PermissoesAdicionais: []string(u.PermissoesAdicionais),
		Papel:                u.Papel.String,
		Cargo:                u.Cargo.String,
		CargoNome:            u.CargoNome.String,
		PasswordHash:         u.PasswordHash.Bytes,
		CreatedAt:            u.CreatedAt.Time,
		UpdatedAt:            u.UpdatedAt.Time,
		LastLogin:            u.LastLogin.Time,
	}
}

func (repo userRepository) unrowSlice(rows []dbUser) []user.User {
	users := make([]user.User, 0, len(rows))
	for _, u := range rows {
		users = append(users, repo.unrow(u))
	}
	return users
}

// trapNoRowsErr maps psql "no rows" err to user.ErrNotFound
func (repo userRepository) trapNoRowsErr(err error, msg string) error {
	if err == sql.ErrNoRows {
		return user.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

func (repo userRepository) CheckUsernameUniqueness(username, email string, excludedUsers ...user.User) error {
	q := `SELECT username, email FROM usuario WHERE (username = $1 OR email = $2)`
	args := []interface{}{username, email}
	if len(excludedUsers) > 0 {
		ids := make([]string, 0, len(excludedUsers))
		for _, u := range excludedUsers {
			ids = append(ids, u.ID)
		}
		q += ` AND NOT (id = ANY($3))`
		args = append(args, pq.StringArray(ids))
	}

	var rows []struct {
		Username null.String `db:"username"`
		Email    null.String `db:"email"`
	}
	if err := repo.db.Select(&rows, q, args...); err != nil {
		return errors.Wrap(err, "checking user uniqueness")
	}
	for _, row := range rows {
		if row.Username.String == username {
			return user.ErrUsernameExists
		}
		if row.Email.String == email {
			return user.ErrEmailExists
		}
	}
	return nil
}

func (repo userRepository) CreateUser(usr user.User) (user.User, error) {
	q := `INSERT INTO usuario (` + userCols + `) VALUES (
:id, :name, :username, :email, :is_active, :is_superuser, :permissoes, :permissoes_adicionais,
:papel, :cargo, :cargo_nome, :password_hash, :created_at, :updated_at, :last_login)`
	if _, err := repo.db.NamedExec(q, repo.row(usr)); err != nil {
		return user.User{}, errors.Wrap(err, "inserting user")
	}
	return usr, nil
}

func (repo userRepository) QueryAllUsers() ([]user.User, error) {
	var rows []dbUser
	if err := repo.db.Select(&rows, `SELECT `+userCols+` FROM usuario ORDER BY created_at DESC`); err != nil {
		return nil, errors.Wrap(err, "querying users")
	}
	return repo.unrowSlice(rows), nil
}

func (repo userRepository) getUser(where string, args ...interface{}) (user.User, error) {
	var row dbUser
	q := `SELECT ` + userCols + ` FROM usuario WHERE ` + where
	if err := repo.db.Get(&row, q, args...); err != nil {
		return user.User{}, repo.trapNoRowsErr(err, "getting user")
	}
	return repo.unrow(row), nil
}

func (repo userRepository) GetUserByID(id string) (user.User, error) {
	return repo.getUser(`id = $1`, id)
}

func (repo userRepository) GetUserByUsername(username string) (user.User, error) {
	return repo.getUser(`username = $1`, username)
}

func (repo userRepository) GetUserByEmail(email string) (user.User, error) {
	return repo.getUser(`email = $1`, email)
}

func (repo userRepository) GetUserByUsernameOrEmail(username string) (user.User, error) {
	return repo.getUser(`username = $1 OR email = $1`, username)
}

func (repo userRepository) FilterUsers(filter user.QueryFilter) ([]user.User, error) {
	conds := make([]string, 0, 4)
	args := make([]interface{}, 0, 4)
	arg := func(v interface{}) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	if filter.Search != "" {
		p := arg("%" + filter.Search + "%")
		conds = append(conds, `(name ILIKE `+p+` OR username ILIKE `+p+` OR email ILIKE `+p+`)`)
	}
	if filter.Papel != "" {
		conds = append(conds, `papel = `+arg(filter.Papel))
	}
	if filter.IsActive != nil {
		conds = append(conds, `is_active = `+arg(*filter.IsActive))
	}
	if !filter.CreatedFrom.IsZero() {
		conds = append(conds, `created_at >= `+arg(filter.CreatedFrom.UTC()))
	}
	if !filter.CreatedTo.IsZero() {
		conds = append(conds, `created_at <= `+arg(filter.CreatedTo.UTC()))
	}

	q := `SELECT ` + userCols + ` FROM usuario`
	if len(conds) > 0 {
		q += ` WHERE ` + strings.Join(conds, " AND ")
	}
	q += ` ORDER BY created_at DESC`

	var rows []dbUser
	if err := repo.db.Select(&rows, q, args...); err != nil {
		return nil, errors.Wrap(err, "filtering users")
	}
	return repo.unrowSlice(rows), nil
}

func (repo userRepository) UpdateUser(usr user.User, isActive *bool) (user.User, error) {
	orig, err := repo.GetUserByID(usr.ID)
	if err != nil {
		return user.User{}, err
	}

	if usr.Name == "" {
		usr.Name = orig.Name
	}
	if usr.Username == "" {
		usr.Username = orig.Username
	}
	if usr.Email == "" {
		usr.Email = orig.Email
	}
	if usr.PasswordHash == nil {
		usr.PasswordHash = orig.PasswordHash
	}
	usr.IsActive = orig.IsActive
	if isActive != nil {
		usr.IsActive = isActive
	}
	usr.CreatedAt = orig.CreatedAt
	usr.LastLogin = orig.LastLogin
	if usr.UpdatedAt.IsZero() {
		usr.UpdatedAt = time.Now().UTC()
	}

	q := `UPDATE usuario SET
name = :name, username = :username, email = :email, is_active = :is_active, is_superuser = :is_superuser,
permissoes = :permissoes, permissoes_adicionais = :permissoes_adicionais, papel = :papel, cargo = :cargo,
cargo_nome = :cargo_nome, password_hash = :password_hash, updated_at = :updated_at
WHERE id = :id`
	if _, err = repo.db.NamedExec(q, repo.row(usr)); err != nil {
		return user.User{}, errors.Wrap(err, "updating user")
	}
	return usr, nil
}

func (repo userRepository) SetLastLogin(usr user.User) (user.User, error) {
	usr.LastLogin = time.Now().UTC()
	if _, err := repo.db.Exec(`UPDATE usuario SET last_login = $1 WHERE id = $2`, usr.LastLogin, usr.ID); err != nil {
		return user.User{}, errors.Wrap(err, "setting last login")
	}
	return usr, nil
}

func (repo userRepository) DeleteUsersByID(ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	if _, err := repo.db.Exec(`DELETE FROM usuario WHERE id = ANY($1)`, pq.StringArray(ids)); err != nil {
		return errors.Wrap(err, "deleting users")
	}
	return nil
}
