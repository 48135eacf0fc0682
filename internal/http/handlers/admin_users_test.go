package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/geocoder89/inkhub/internal/auth"
	"github.com/geocoder89/inkhub/internal/domain/user"
	"github.com/geocoder89/inkhub/internal/http/handlers"
	"github.com/geocoder89/inkhub/internal/http/middlewares"
	"github.com/gin-gonic/gin"
)

const (
	actorID  = "aaaaaaaa-aaaa-aaaa-aaaa-aaaaaaaaaaaa"
	targetID = "bbbbbbbb-bbbb-bbbb-bbbb-bbbbbbbbbbbb"
)

func testManager() *auth.Manager {
	return auth.NewManager("handler-test-secret", time.Hour, 2*time.Hour)
}

func adminToken(t *testing.T, mgr *auth.Manager, id string) string {
	t.Helper()

	token, _, err := mgr.IssueSession(user.User{
		ID:       id,
		Email:    "admin@example.com",
		Username: "admin",
		Role:     user.RoleAdmin,
		Status:   user.StatusActive,
	})
	if err != nil {
		t.Fatalf("IssueSession: %v", err)
	}
	return token
}

type fakeAdminUsersRepo struct {
	users   map[string]user.User
	deleted []string
}

func newFakeAdminUsersRepo(users ...user.User) *fakeAdminUsersRepo {
	m := make(map[string]user.User, len(users))
	for _, u := range users {
		m[u.ID] = u
	}
	return &fakeAdminUsersRepo{users: m}
}

func (r *fakeAdminUsersRepo) List(_ context.Context, _ user.ListFilter) ([]user.User, int, error) {
	out := make([]user.User, 0, len(r.users))
	for _, u := range r.users {
		out = append(out, u)
	}
	return out, len(out), nil
}

func (r *fakeAdminUsersRepo) GetByID(_ context.Context, id string) (user.User, error) {
	u, ok := r.users[id]
	if !ok {
		return user.User{}, user.ErrNotFound
	}
	return u, nil
}

func (r *fakeAdminUsersRepo) UpdateRole(_ context.Context, id string, role user.Role) (user.User, error) {
	u, ok := r.users[id]
	if !ok {
		return user.User{}, user.ErrNotFound
	}
	u.Role = role
	r.users[id] = u
	return u, nil
}

func (r *fakeAdminUsersRepo) UpdateStatus(_ context.Context, id string, status user.Status) (user.User, error) {
	u, ok := r.users[id]
	if !ok {
		return user.User{}, user.ErrNotFound
	}
	u.Status = status
	r.users[id] = u
	return u, nil
}

func (r *fakeAdminUsersRepo) Delete(_ context.Context, id string) error {
	if _, ok := r.users[id]; !ok {
		return user.ErrNotFound
	}
	delete(r.users, id)
	r.deleted = append(r.deleted, id)
	return nil
}

type fakeRevoker struct {
	tokens  []string
	cutoffs []string // user ids passed to RevokeAllBefore
}

func (f *fakeRevoker) RevokeToken(_ context.Context, jti string, _ time.Time) error {
	f.tokens = append(f.tokens, jti)
	return nil
}

func (f *fakeRevoker) RevokeAllBefore(_ context.Context, userID string, _ time.Time) error {
	f.cutoffs = append(f.cutoffs, userID)
	return nil
}

func adminUsersRouter(repo *fakeAdminUsersRepo, revoker *fakeRevoker, mgr *auth.Manager) *gin.Engine {
	gin.SetMode(gin.TestMode)

	authMW := middlewares.NewAuthMiddleware(mgr, nil)
	h := handlers.NewAdminUsersHandler(repo, revoker)

	r := gin.New()
	g := r.Group("/admin", authMW.RequireAuth(), authMW.RequireRole(user.RoleAdmin))
	g.PUT("/users/:id/role", h.UpdateRole)
	g.PUT("/users/:id/status", h.UpdateStatus)
	g.DELETE("/users/:id", h.Delete)
	return r
}

func adminDo(t *testing.T, r *gin.Engine, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode: %v", err)
		}
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()

	var resp struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode error body: %v (%s)", err, w.Body.String())
	}
	return resp.Error.Code
}

func seedUsers() (*fakeAdminUsersRepo, *fakeRevoker) {
	repo := newFakeAdminUsersRepo(
		user.User{ID: actorID, Role: user.RoleAdmin, Status: user.StatusActive},
		user.User{ID: targetID, Role: user.RoleEditor, Status: user.StatusActive},
	)
	return repo, &fakeRevoker{}
}

func TestSelfActionsAreForbidden(t *testing.T) {
	mgr := testManager()
	token := adminToken(t, mgr, actorID)

	cases := []struct {
		name     string
		method   string
		path     string
		body     any
		wantCode string
	}{
		{"demote self", http.MethodPut, "/admin/users/" + actorID + "/role", gin.H{"role": "EDITOR"}, "self_demotion"},
		{"suspend self", http.MethodPut, "/admin/users/" + actorID + "/status", gin.H{"status": "SUSPENDED"}, "self_suspension"},
		{"ban self", http.MethodPut, "/admin/users/" + actorID + "/status", gin.H{"status": "BANNED"}, "self_suspension"},
		{"delete self", http.MethodDelete, "/admin/users/" + actorID, nil, "self_deletion"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			repo, revoker := seedUsers()
			r := adminUsersRouter(repo, revoker, mgr)

			w := adminDo(t, r, tc.method, tc.path, token, tc.body)

			if w.Code != http.StatusForbidden {
				t.Fatalf("code = %d, want 403 (%s)", w.Code, w.Body.String())
			}
			if got := errorCode(t, w); got != tc.wantCode {
				t.Errorf("error code = %q, want %q", got, tc.wantCode)
			}

			// the refused action must not have touched the account
			u, _ := repo.GetByID(context.Background(), actorID)
			if u.Role != user.RoleAdmin || u.Status != user.StatusActive {
				t.Errorf("account mutated despite policy: %+v", u)
			}
			if len(revoker.cutoffs) != 0 {
				t.Errorf("sessions revoked despite policy: %v", revoker.cutoffs)
			}
		})
	}
}

func TestAdminActionsOnOthersRevokeSessions(t *testing.T) {
	mgr := testManager()
	token := adminToken(t, mgr, actorID)

	t.Run("demote", func(t *testing.T) {
		repo, revoker := seedUsers()
		r := adminUsersRouter(repo, revoker, mgr)

		w := adminDo(t, r, http.MethodPut, "/admin/users/"+targetID+"/role", token, gin.H{"role": "USER"})
		if w.Code != http.StatusOK {
			t.Fatalf("code = %d (%s)", w.Code, w.Body.String())
		}

		u, _ := repo.GetByID(context.Background(), targetID)
		if u.Role != user.RoleUser {
			t.Errorf("role = %s, want USER", u.Role)
		}
		if len(revoker.cutoffs) != 1 || revoker.cutoffs[0] != targetID {
			t.Errorf("expected one revocation for target, got %v", revoker.cutoffs)
		}
	})

	t.Run("suspend", func(t *testing.T) {
		repo, revoker := seedUsers()
		r := adminUsersRouter(repo, revoker, mgr)

		w := adminDo(t, r, http.MethodPut, "/admin/users/"+targetID+"/status", token, gin.H{"status": "SUSPENDED"})
		if w.Code != http.StatusOK {
			t.Fatalf("code = %d (%s)", w.Code, w.Body.String())
		}
		if len(revoker.cutoffs) != 1 || revoker.cutoffs[0] != targetID {
			t.Errorf("expected one revocation for target, got %v", revoker.cutoffs)
		}
	})

	t.Run("reactivate does not revoke", func(t *testing.T) {
		repo, revoker := seedUsers()
		r := adminUsersRouter(repo, revoker, mgr)

		w := adminDo(t, r, http.MethodPut, "/admin/users/"+targetID+"/status", token, gin.H{"status": "ACTIVE"})
		if w.Code != http.StatusOK {
			t.Fatalf("code = %d (%s)", w.Code, w.Body.String())
		}
		if len(revoker.cutoffs) != 0 {
			t.Errorf("reactivation should not revoke sessions, got %v", revoker.cutoffs)
		}
	})

	t.Run("delete", func(t *testing.T) {
		repo, revoker := seedUsers()
		r := adminUsersRouter(repo, revoker, mgr)

		w := adminDo(t, r, http.MethodDelete, "/admin/users/"+targetID, token, nil)
		if w.Code != http.StatusNoContent {
			t.Fatalf("code = %d (%s)", w.Code, w.Body.String())
		}
		if len(repo.deleted) != 1 || repo.deleted[0] != targetID {
			t.Errorf("deleted = %v", repo.deleted)
		}
		if len(revoker.cutoffs) != 1 || revoker.cutoffs[0] != targetID {
			t.Errorf("expected one revocation for target, got %v", revoker.cutoffs)
		}
	})
}

// promoting yourself to the role you already hold is not a demotion and
// passes the policy
func TestSelfRoleKeepAdminAllowed(t *testing.T) {
	mgr := testManager()
	token := adminToken(t, mgr, actorID)

	repo, revoker := seedUsers()
	r := adminUsersRouter(repo, revoker, mgr)

	w := adminDo(t, r, http.MethodPut, "/admin/users/"+actorID+"/role", token, gin.H{"role": "ADMIN"})
	if w.Code != http.StatusOK {
		t.Fatalf("code = %d (%s)", w.Code, w.Body.String())
	}
}
