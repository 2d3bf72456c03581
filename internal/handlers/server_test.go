package handlers_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"

	"project-management-api/internal/attachment"
	"project-management-api/internal/config"
	"project-management-api/internal/models"
	"project-management-api/internal/realtime"
	"project-management-api/internal/routes"
	"project-management-api/internal/testutil"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type recorder struct {
	mu     sync.Mutex
	events []realtime.Event
}

func (r *recorder) Send(message []byte) bool {
	var evt realtime.Event
	if err := json.Unmarshal(message, &evt); err != nil {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, evt)
	return true
}

func (r *recorder) Close() {}

func (r *recorder) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}

type server struct {
	t      *testing.T
	db     *gorm.DB
	deps   routes.Deps
	router *gin.Engine
}

func newServer(t *testing.T) *server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	db := testutil.MustDB(t)
	blobs, err := attachment.NewFileStore(t.TempDir())
	require.NoError(t, err)
	deps := routes.NewDeps(zap.NewNop(), config.Default(), db, blobs)
	return &server{t: t, db: db, deps: deps, router: routes.SetupRoutes(deps)}
}

// as returns a bearer token for employee e with the given role claim.
func (s *server) as(e models.Employee, role string) string {
	s.t.Helper()
	token, _, err := s.deps.Tokens.Generate(e.ID, e.Email, role)
	require.NoError(s.t, err)
	return token
}

// listen registers a recorder for employee e on the hub.
func (s *server) listen(e models.Employee) *recorder {
	r := &recorder{}
	s.deps.Hub.Register(e.ID, r)
	return r
}

func (s *server) do(method, path, token string, body any) *httptest.ResponseRecorder {
	s.t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(s.t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

type errBody struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	return decode[errBody](t, w).Error.Code
}

func itoa(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}
