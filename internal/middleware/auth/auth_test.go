package auth

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/okulikov/shopapi/internal/apperr"
	"github.com/okulikov/shopapi/internal/hash"
	"github.com/okulikov/shopapi/internal/models"
	"github.com/okulikov/shopapi/internal/token"
)

var testSecret = []byte("test-secret")

func initTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.User{}, &models.Product{}))
	return db
}

func createUser(t *testing.T, db *gorm.DB, role string, active bool) *models.User {
	pwHash, err := hash.HashPassword("Password123")
	require.NoError(t, err)

	user := &models.User{
		Name:         "John Doe",
		Email:        "john@example.com",
		PasswordHash: pwHash,
		Role:         role,
		Active:       active,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func newContext(t *testing.T, header, cookie string) echo.Context {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if header != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+header)
	}
	if cookie != "" {
		req.AddCookie(&http.Cookie{Name: CookieName, Value: cookie})
	}
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec)
}

func okHandler(c echo.Context) error { return c.NoContent(http.StatusOK) }

func TestRequireAuthMissingToken(t *testing.T) {
	m := &Middleware{DB: initTestDB(t), Issuer: token.NewIssuer(testSecret, time.Hour)}

	err := m.RequireAuth(okHandler)(newContext(t, "", ""))
	ae := apperr.As(err)
	require.NotNil(t, ae)
	require.Equal(t, apperr.KindUnauthenticated, ae.Kind)
}

func TestRequireAuthValid(t *testing.T) {
	db := initTestDB(t)
	issuer := token.NewIssuer(testSecret, time.Hour)
	m := &Middleware{DB: db, Issuer: issuer}
	user := createUser(t, db, models.RoleUser, true)

	raw, err := issuer.Sign(user.ID, user.Role)
	require.NoError(t, err)

	c := newContext(t, raw, "")
	var resolved *models.User
	next := func(c echo.Context) error {
		got, ok := CurrentUser(c)
		require.True(t, ok)
		resolved = got
		return nil
	}

	require.NoError(t, m.RequireAuth(next)(c))
	require.Equal(t, user.ID, resolved.ID)
	require.Equal(t, user.Email, resolved.Email)
	require.Equal(t, user.Role, resolved.Role)

	// the hashed secret must never serialize outward
	data, err := json.Marshal(resolved)
	require.NoError(t, err)
	require.NotContains(t, string(data), resolved.PasswordHash)
	require.NotContains(t, string(data), "password")
}

func TestRequireAuthExpired(t *testing.T) {
	db := initTestDB(t)
	m := &Middleware{DB: db, Issuer: token.NewIssuer(testSecret, time.Hour)}
	user := createUser(t, db, models.RoleUser, true)

	raw, err := token.NewIssuer(testSecret, -time.Minute).Sign(user.ID, user.Role)
	require.NoError(t, err)

	err = m.RequireAuth(okHandler)(newContext(t, raw, ""))
	ae := apperr.As(err)
	require.NotNil(t, ae)
	require.Equal(t, apperr.KindUnauthenticated, ae.Kind)
	require.Equal(t, "token expired", ae.Message)
}

func TestRequireAuthBadSignature(t *testing.T) {
	db := initTestDB(t)
	m := &Middleware{DB: db, Issuer: token.NewIssuer(testSecret, time.Hour)}
	user := createUser(t, db, models.RoleUser, true)

	raw, err := token.NewIssuer([]byte("other-secret"), time.Hour).Sign(user.ID, user.Role)
	require.NoError(t, err)

	err = m.RequireAuth(okHandler)(newContext(t, raw, ""))
	ae := apperr.As(err)
	require.NotNil(t, ae)
	require.Equal(t, apperr.KindUnauthenticated, ae.Kind)
}

func TestRequireAuthInactiveAccount(t *testing.T) {
	db := initTestDB(t)
	issuer := token.NewIssuer(testSecret, time.Hour)
	m := &Middleware{DB: db, Issuer: issuer}
	user := createUser(t, db, models.RoleUser, false)

	raw, err := issuer.Sign(user.ID, user.Role)
	require.NoError(t, err)

	err = m.RequireAuth(okHandler)(newContext(t, raw, ""))
	ae := apperr.As(err)
	require.NotNil(t, ae)
	require.Equal(t, apperr.KindUnauthenticated, ae.Kind)
}

func TestRequireAuthMissingAccount(t *testing.T) {
	db := initTestDB(t)
	issuer := token.NewIssuer(testSecret, time.Hour)
	m := &Middleware{DB: db, Issuer: issuer}

	raw, err := issuer.Sign(999, models.RoleUser)
	require.NoError(t, err)

	err = m.RequireAuth(okHandler)(newContext(t, raw, ""))
	ae := apperr.As(err)
	require.NotNil(t, ae)
	require.Equal(t, apperr.KindUnauthenticated, ae.Kind)
}

func TestHeaderTakesPrecedenceOverCookie(t *testing.T) {
	db := initTestDB(t)
	issuer := token.NewIssuer(testSecret, time.Hour)
	m := &Middleware{DB: db, Issuer: issuer}
	user := createUser(t, db, models.RoleUser, true)

	raw, err := issuer.Sign(user.ID, user.Role)
	require.NoError(t, err)

	// valid header wins over a garbage cookie
	require.NoError(t, m.RequireAuth(okHandler)(newContext(t, raw, "garbage")))

	// garbage header still wins over a valid cookie
	err = m.RequireAuth(okHandler)(newContext(t, "garbage", raw))
	require.NotNil(t, apperr.As(err))

	// cookie alone works
	require.NoError(t, m.RequireAuth(okHandler)(newContext(t, "", raw)))
}

func TestRequireRoles(t *testing.T) {
	db := initTestDB(t)
	issuer := token.NewIssuer(testSecret, time.Hour)
	m := &Middleware{DB: db, Issuer: issuer}

	standard := createUser(t, db, models.RoleUser, true)
	admin := &models.User{Name: "Root", Email: "root@example.com", PasswordHash: "x", Role: models.RoleAdmin, Active: true}
	require.NoError(t, db.Create(admin).Error)

	run := func(u *models.User, gate echo.MiddlewareFunc) error {
		raw, err := issuer.Sign(u.ID, u.Role)
		require.NoError(t, err)
		return m.RequireAuth(gate(okHandler))(newContext(t, raw, ""))
	}

	adminOnly := RequireRoles(models.RoleAdmin)

	err := run(standard, adminOnly)
	ae := apperr.As(err)
	require.NotNil(t, ae)
	require.Equal(t, apperr.KindForbidden, ae.Kind)

	require.NoError(t, run(admin, adminOnly))

	// empty set means any authenticated account
	anyAuth := RequireRoles()
	require.NoError(t, run(standard, anyAuth))
	require.NoError(t, run(admin, anyAuth))
}

func TestRequireRolesWithoutIdentity(t *testing.T) {
	err := RequireRoles(models.RoleAdmin)(okHandler)(newContext(t, "", ""))
	require.Error(t, err)
	require.Nil(t, apperr.As(err), "precondition violation is an internal fault, not an operational error")
}
