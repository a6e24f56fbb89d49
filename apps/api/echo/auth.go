package echoapi

import (
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/sgescola/sge/core"
	"github.com/sgescola/sge/core/auth"
	"github.com/sgescola/sge/core/user"
)

const (
	jwtContextKey  = "userToken"
	contextUserKey = "user"
)

func newJWTConfig(conf *core.Config) middleware.JWTConfig {
	return middleware.JWTConfig{
		SigningKey:    conf.SecretKey,
		SigningMethod: middleware.AlgorithmHS256,
		ContextKey:    jwtContextKey,
		Claims:        new(Claims),
	}
}

// Claims represents the authorization claims transmitted via a JWT. Besides
// identity it carries the raw authorization fields so permission checks do
// not need a DB round-trip per request.
type Claims struct {
	jwt.StandardClaims
	OrigIssuedAt         int64    `json:"oriat,omitempty"`
	Username             string   `json:"username,omitempty"`
	Email                string   `json:"email,omitempty"`
	IsSuperuser          bool     `json:"is_superuser,omitempty"`
	Permissoes           []string `json:"permissoes,omitempty"`
	PermissoesAdicionais []string `json:"permissoes_adicionais,omitempty"`
	Papel                string   `json:"papel,omitempty"`
	Cargo                string   `json:"cargo,omitempty"`
	CargoNome            string   `json:"cargo_nome,omitempty"`
}

// raw reassembles the authorization fields carried by the claims.
func (c *Claims) raw() auth.RawUser {
	return auth.RawUser{
		IsSuperuser:          c.IsSuperuser,
		Permissoes:           c.Permissoes,
		PermissoesAdicionais: c.PermissoesAdicionais,
		Papel:                c.Papel,
		Cargo:                c.Cargo,
		CargoNome:            c.CargoNome,
	}
}

// resolvedUser normalizes the claims into the shape the permission
// resolver consumes.
func (c *Claims) resolvedUser() auth.User {
	return auth.Normalize(c.raw())
}

func GetUserClaims(usr user.User, origIat ...int64) *Claims {
	now := time.Now()
	nownix := now.Unix()

	var oriat int64
	if len(origIat) > 0 {
		oriat = origIat[0]
	} else {
		oriat = nownix
	}

	return &Claims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    core.Conf.AppName,
			Subject:   usr.ID,
			Audience:  "Escola",
			ExpiresAt: now.Add(core.Conf.Server.JWTExpirationDelta).Unix(),
			IssuedAt:  nownix,
		},
		OrigIssuedAt:         oriat,
		Username:             usr.Username,
		Email:                usr.Email,
		IsSuperuser:          usr.IsSuperuser,
		Permissoes:           usr.Permissoes,
		PermissoesAdicionais: usr.PermissoesAdicionais,
		Papel:                usr.Papel,
		Cargo:                usr.Cargo,
		CargoNome:            usr.CargoNome,
	}
}

func authenticate(uname, pwd string, svc user.Service, sessions *auth.SessionStore) (*Claims, error) {
	usr, err := svc.GetByUsernameOrEmail(uname)
	if err != nil {
		if errors.Cause(err) == user.ErrNotFound {
			return nil, errAuthenticationFailed
		}
		return nil, errors.Wrap(err, "finding user by username or email")
	}
	if err = usr.CheckPassword(pwd); err != nil {
		return nil, errAuthenticationFailed
	}
	if usr.IsActive != nil && !*usr.IsActive {
		return nil, errAccountDeactivated
	}
	usr, err = svc.SetLastLogin(usr)
	if err != nil {
		return nil, errors.Wrap(err, "setting lastLogin")
	}

	claims := GetUserClaims(usr)
	sessions.Init(auth.Session{
		UserID:   usr.ID,
		Raw:      usr.Raw(),
		IssuedAt: time.Unix(claims.IssuedAt, 0),
	})
	return claims, nil
}

// GenerateToken generates a signed JWT token string representing the user Claims.
func GenerateToken(claims *Claims) (string, error) {
	method := jwt.GetSigningMethod(middleware.AlgorithmHS256)
	token := jwt.NewWithClaims(method, claims)

	ss, err := token.SignedString(core.Conf.SecretKey)
	if err != nil {
		return "", errors.New("signing token")
	}
	return ss, nil
}

func getContextClaims(ctx echo.Context) (Claims, error) {
	if token, ok := ctx.Get(jwtContextKey).(*jwt.Token); ok {
		if claims, ok := token.Claims.(*Claims); ok {
			return *claims, nil
		}
	}
	return Claims{}, errUnauthorized
}

func getContextUser(ctx echo.Context, svc user.Service, clms ...Claims) (user.User, error) {
	if usr, ok := ctx.Get(contextUserKey).(user.User); ok {
		return usr, nil
	}

	var claims Claims
	var err error
	if len(clms) > 0 {
		claims = clms[0]
	} else {
		claims, err = getContextClaims(ctx)
		if err != nil {
			return user.User{}, errors.Wrap(err, "getting context claims")
		}
	}

	usr, err := svc.GetByID(claims.Subject)
	if err != nil {
		return user.User{}, errors.Wrap(err, "finding user by ID")
	}
	ctx.Set(contextUserKey, usr)
	return usr, nil
}

func refreshToken(ctx echo.Context, svc user.Service, sessions *auth.SessionStore) (string, error) {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return "", errors.Wrap(err, "getting context claims")
	}

	// a revoked session makes the refresh fail even with a valid JWT
	if _, ok := sessions.Get(claims.Subject); !ok {
		return "", errSessionRevoked
	}

	usr, err := getContextUser(ctx, svc, claims)
	if err != nil {
		return "", errors.Wrap(err, "getting context user")
	}

	// check if user is still active
	if usr.IsActive != nil && !*usr.IsActive {
		return "", errAccountDeactivated
	}

	// check if refresh has not expired
	expTime := time.Unix(claims.OrigIssuedAt, 0).Add(core.Conf.Server.JWTRefreshExpirationDelta)
	if time.Now().After(expTime) {
		return "", errRefreshExpired
	}

	newClaims := GetUserClaims(usr, claims.OrigIssuedAt)
	token, err := GenerateToken(newClaims)
	return token, errors.Wrap(err, "generating token")
}
