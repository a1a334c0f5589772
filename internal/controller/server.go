package controller

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"ccreport/internal/api"
	"ccreport/internal/model"
)

// Role is how the emulated controller answers logins.
type Role string

const (
	RoleActive Role = "active"
	RoleBackup Role = "backup"
	RoleBroken Role = "broken"
)

const sessionCookie = "JSESSIONID"

// Server emulates the management API of one controller of an HA pair. It
// backs the `simulate` command and the package tests of its callers.
type Server struct {
	mu       sync.Mutex
	role     Role
	creds    api.Credentials
	objects  []Object
	sessions map[string]bool
	calls    []Call
}

// Call records one request received by the server.
type Call struct {
	Path string
	Body json.RawMessage
}

// NewServer constructs an emulated controller.
func NewServer(role Role, creds api.Credentials, objects []Object) *Server {
	return &Server{
		role:     role,
		creds:    creds,
		objects:  objects,
		sessions: make(map[string]bool),
	}
}

// SetRole switches the HA role, e.g. to simulate a failover.
func (s *Server) SetRole(role Role) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.role = role
}

// Calls returns the paths requested so far, in order.
func (s *Server) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Call, len(s.calls))
	copy(out, s.calls)
	return out
}

// Handler returns the API routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/mgmt/system/user/login", s.handleLogin)
	mux.HandleFunc("/mgmt/v2/device/df/restv2/protected-objects/configure/security-settings/", s.handleProtectedObjects)
	mux.HandleFunc("/mgmt/vrm/top-talkers/flow-detector/", s.handleTopTalkers)
	return s.record(mux)
}

// ListenAndServe runs the HTTP server on addr until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context, addr string, log *zap.Logger) error {
	server := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- server.ListenAndServe() }()

	s.mu.Lock()
	role := s.role
	s.mu.Unlock()
	log.Info("emulated controller listening", zap.String("role", string(role)), zap.String("addr", addr))

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	}
}

func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body json.RawMessage
		if r.Body != nil {
			_ = json.NewDecoder(r.Body).Decode(&body)
		}
		s.mu.Lock()
		s.calls = append(s.calls, Call{Path: r.URL.Path, Body: body})
		s.mu.Unlock()

		r.Body = io.NopCloser(bytes.NewReader(body))
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var creds api.Credentials
	if err := decodeJSON(r, &creds); err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.role {
	case RoleBackup:
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status":  "error",
			"message": "Login to Inactive node is not Permitted",
		})
		return
	case RoleBroken:
		writeJSONError(w, http.StatusInternalServerError, "internal error")
		return
	}

	if creds != s.creds {
		writeJSONError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	token := newToken()
	s.sessions[token] = true
	http.SetCookie(w, &http.Cookie{Name: sessionCookie, Value: token, Path: "/", HttpOnly: true})
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "jsessionid": token})
}

func (s *Server) handleProtectedObjects(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if !s.authorized(r) {
		writeJSONError(w, http.StatusUnauthorized, "login required")
		return
	}

	var req api.ProtectedObjectsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	want := make(map[string]bool, len(req.ProtectedObjectNames))
	for _, name := range req.ProtectedObjectNames {
		want[name] = true
	}

	items := make([]map[string]any, 0, len(s.objects))
	for _, obj := range s.objects {
		if len(want) > 0 && !want[obj.Name] {
			continue
		}
		item := map[string]any{"name": obj.Name}
		if obj.Thresholds != nil {
			item["flowDetectorThresholdsHostDetails"] = obj.Thresholds
		}
		items = append(items, item)
	}
	writeJSON(w, http.StatusOK, map[string]any{"protectedObjects": items})
}

func (s *Server) handleTopTalkers(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if !s.authorized(r) {
		writeJSONError(w, http.StatusUnauthorized, "login required")
		return
	}

	proto := model.Protocol(strings.TrimPrefix(r.URL.Path, "/mgmt/vrm/top-talkers/flow-detector/"))
	if !knownProtocol(proto) {
		writeJSONError(w, http.StatusNotFound, "unknown protocol")
		return
	}

	var req api.TopTalkersRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	obj, ok := s.findLocked(req.ProtectedObjectName)
	if !ok {
		writeJSONError(w, http.StatusNotFound, "protected object not found")
		return
	}
	for _, p := range obj.Fail {
		if p == proto {
			writeJSONError(w, http.StatusInternalServerError, "history unavailable")
			return
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"dataMap": map[string]any{
			"incoming": map[string]any{
				"bps": series(obj.BPS[proto]),
				"pps": series(obj.PPS[proto]),
			},
		},
	})
}

func (s *Server) authorized(r *http.Request) bool {
	c, err := r.Cookie(sessionCookie)
	if err != nil {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessions[c.Value]
}

func (s *Server) findLocked(name string) (Object, bool) {
	for _, obj := range s.objects {
		if obj.Name == name {
			return obj, true
		}
	}
	return Object{}, false
}

// series renders values the way the controller does: numeric strings.
func series(values []float64) []map[string]any {
	out := make([]map[string]any, 0, len(values))
	for _, v := range values {
		out = append(out, map[string]any{
			"row": map[string]string{"value": strconv.FormatFloat(v, 'f', -1, 64)},
		})
	}
	return out
}

func knownProtocol(p model.Protocol) bool {
	for _, known := range model.Protocols {
		if p == known {
			return true
		}
	}
	return false
}

func newToken() string {
	var b [16]byte
	_, _ = rand.Read(b[:])
	return hex.EncodeToString(b[:])
}

func decodeJSON(r *http.Request, v any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(v)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	encoder := json.NewEncoder(w)
	_ = encoder.Encode(v)
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"status": "error", "message": message})
}
