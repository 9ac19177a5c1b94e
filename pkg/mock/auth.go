package mock

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/jdziat/compliscan/pkg/core"
)

// Default development credentials.
const (
	DefaultUsername = "admin"
	DefaultPassword = "password"
)

type account struct {
	user core.User
	hash []byte
}

// Auth issues and verifies HS256 bearer tokens for the mock server.
type Auth struct {
	secret []byte
	ttl    time.Duration

	mu    sync.RWMutex
	users map[string]account
}

// NewAuth creates an authenticator that signs with secret.
func NewAuth(secret string) *Auth {
	return &Auth{
		secret: []byte(secret),
		ttl:    24 * time.Hour,
		users:  make(map[string]account),
	}
}

// NewDefaultAuth creates an authenticator with the admin/password account.
func NewDefaultAuth(secret string) (*Auth, error) {
	a := NewAuth(secret)
	err := a.AddUser(core.User{
		Username: DefaultUsername,
		Name:     "Demo Admin",
		Email:    "admin@compliscan.local",
		Roles:    []string{"admin"},
	}, DefaultPassword)
	return a, err
}

// AddUser registers an account. The password is stored as a bcrypt hash.
func (a *Auth) AddUser(u core.User, password string) error {
	if strings.TrimSpace(u.Username) == "" || password == "" {
		return core.ErrInvalidArgument
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		return err
	}
	a.mu.Lock()
	a.users[strings.ToLower(u.Username)] = account{user: u, hash: hash}
	a.mu.Unlock()
	return nil
}

// Login checks credentials and returns a signed token.
func (a *Auth) Login(_ context.Context, username, password string) (*core.LoginResponse, error) {
	a.mu.RLock()
	acct, ok := a.users[strings.ToLower(strings.TrimSpace(username))]
	a.mu.RUnlock()
	if !ok || bcrypt.CompareHashAndPassword(acct.hash, []byte(password)) != nil {
		return nil, &core.HTTPError{Status: http.StatusUnauthorized, Message: "Invalid credentials"}
	}

	token, err := a.Sign(acct.user)
	if err != nil {
		return nil, err
	}
	u := acct.user
	return &core.LoginResponse{Token: token, User: &u}, nil
}

// Sign issues a token for u.
func (a *Auth) Sign(u core.User) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":      u.Username,
		"username": u.Username,
		"iat":      now.Unix(),
		"exp":      now.Add(a.ttl).Unix(),
	}
	if u.Name != "" {
		claims["name"] = u.Name
	}
	if u.Email != "" {
		claims["email"] = u.Email
	}
	if len(u.Roles) > 0 {
		claims["roles"] = u.Roles
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(a.secret)
}

// Verify checks a token and returns its subject.
func (a *Auth) Verify(tokenStr string) (string, error) {
	t, err := jwt.Parse(tokenStr, func(token *jwt.Token) (any, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return a.secret, nil
	})
	if err != nil || !t.Valid {
		return "", errors.New("invalid token")
	}
	sub, err := t.Claims.GetSubject()
	if err != nil || sub == "" {
		return "", errors.New("missing sub")
	}
	return sub, nil
}

type ctxKey string

const subjectKey ctxKey = "subject"

// SubjectFromContext returns the authenticated username set by RequireAuth.
func SubjectFromContext(ctx context.Context) (string, bool) {
	sub, ok := ctx.Value(subjectKey).(string)
	return sub, ok
}

// RequireAuth rejects requests without a valid bearer token.
func RequireAuth(a *Auth) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := r.Header.Get("Authorization")
			if h == "" || !strings.HasPrefix(h, "Bearer ") {
				writeMessage(w, http.StatusUnauthorized, "Unauthorized")
				return
			}

			sub, err := a.Verify(strings.TrimPrefix(h, "Bearer "))
			if err != nil {
				writeMessage(w, http.StatusUnauthorized, "Unauthorized")
				return
			}

			ctx := context.WithValue(r.Context(), subjectKey, sub)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
