// Package weaviatetest provides an in-memory Weaviate server for tests.
//
// It implements the REST routes used by the weaviate package, a GraphQL Get
// with nearText and nearVector, and an optional OIDC password login. Similarity
// is deliberately simple: nearText certainty is the fraction of concept words
// found in an object's string properties, nearVector certainty is (1+cos)/2.
package weaviatetest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"

	"github.com/blevlabs/TuningTracker/internal/weaviate"
)

// Server is a fake Weaviate backend.
type Server struct {
	*httptest.Server

	// IgnoreCertainty makes GraphQL queries return hits below the requested
	// certainty, to exercise client-side filtering.
	IgnoreCertainty bool

	mu       sync.Mutex
	classes  []weaviate.Class
	objects  map[string]map[string]weaviate.Object
	username string
	password string
	token    string
	requests int
}

// Option configures a Server.
type Option func(*Server)

// WithAuth requires an OIDC password login with the given credentials.
func WithAuth(username, password string) Option {
	return func(s *Server) {
		s.username = username
		s.password = password
	}
}

// NewServer starts a fake server that is closed when the test ends.
func NewServer(t testing.TB, opts ...Option) *Server {
	t.Helper()

	s := &Server{objects: make(map[string]map[string]weaviate.Object)}
	for _, opt := range opts {
		opt(s)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /v1/meta", s.handleMeta)
	mux.HandleFunc("GET /v1/.well-known/ready", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("GET /v1/.well-known/openid-configuration", s.handleDiscovery)
	mux.HandleFunc("GET /oidc/.well-known/openid-configuration", s.handleProvider)
	mux.HandleFunc("POST /oidc/token", s.handleToken)

	mux.HandleFunc("GET /v1/schema", s.handleGetSchema)
	mux.HandleFunc("POST /v1/schema", s.handleCreateClass)
	mux.HandleFunc("GET /v1/schema/{class}", s.handleGetClass)
	mux.HandleFunc("DELETE /v1/schema/{class}", s.handleDeleteClass)

	mux.HandleFunc("POST /v1/objects", s.handleCreateObject)
	mux.HandleFunc("GET /v1/objects", s.handleListObjects)
	mux.HandleFunc("GET /v1/objects/{class}/{id}", s.handleGetObject)
	mux.HandleFunc("PATCH /v1/objects/{class}/{id}", s.handleUpdateObject)
	mux.HandleFunc("PUT /v1/objects/{class}/{id}", s.handleUpdateObject)
	mux.HandleFunc("DELETE /v1/objects/{class}/{id}", s.handleDeleteObject)

	mux.HandleFunc("POST /v1/graphql", s.handleGraphQL)

	s.Server = httptest.NewServer(s.authenticate(mux))
	t.Cleanup(s.Close)
	return s
}

// Objects returns a snapshot of the objects stored for class, ordered by ID.
func (s *Server) Objects(class string) []weaviate.Object {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sortedObjects(class)
}

// Classes returns the names of the defined classes in creation order.
func (s *Server) Classes() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, len(s.classes))
	for i, c := range s.classes {
		names[i] = c.Class
	}
	return names
}

// Requests returns how many requests reached the server.
func (s *Server) Requests() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests
}

func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.requests++
		required := s.username != ""
		token := s.token
		s.mu.Unlock()

		public := strings.Contains(r.URL.Path, "/.well-known/") || strings.HasPrefix(r.URL.Path, "/oidc/")
		if required && !public {
			if token == "" || r.Header.Get("Authorization") != "Bearer "+token {
				writeError(w, http.StatusUnauthorized, "anonymous access not enabled")
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleMeta(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"hostname": "http://[::]:8080",
		"version":  "1.24.0",
		"modules":  map[string]any{"text2vec-fake": map[string]any{}},
	})
}

func (s *Server) handleDiscovery(w http.ResponseWriter, r *http.Request) {
	if s.username == "" {
		writeError(w, http.StatusNotFound, "oidc is not configured")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"href":     "http://" + r.Host + "/oidc/.well-known/openid-configuration",
		"clientId": "weaviate-test",
	})
}

func (s *Server) handleProvider(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"token_endpoint": "http://" + r.Host + "/oidc/token",
	})
}

func (s *Server) handleToken(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid_request"})
		return
	}
	if r.PostForm.Get("grant_type") != "password" ||
		r.PostForm.Get("username") != s.username ||
		r.PostForm.Get("password") != s.password {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"error": "invalid_grant"})
		return
	}

	s.mu.Lock()
	s.token = "token-" + uuid.NewString()
	token := s.token
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{
		"access_token":  token,
		"token_type":    "Bearer",
		"expires_in":    3600,
		"refresh_token": "refresh-" + token,
	})
}

func (s *Server) handleGetSchema(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	classes := append([]weaviate.Class{}, s.classes...)
	writeJSON(w, http.StatusOK, weaviate.Schema{Classes: classes})
}

func (s *Server) handleCreateClass(w http.ResponseWriter, r *http.Request) {
	var class weaviate.Class
	if err := json.NewDecoder(r.Body).Decode(&class); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid class: "+err.Error())
		return
	}
	if class.Class == "" {
		writeError(w, http.StatusUnprocessableEntity, "class name is required")
		return
	}
	first := class.Class[:1]
	if strings.ToUpper(first) != first {
		writeError(w, http.StatusUnprocessableEntity, fmt.Sprintf("class name %q must start with an uppercase letter", class.Class))
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.findClass(class.Class) != nil {
		writeError(w, http.StatusUnprocessableEntity, fmt.Sprintf("class name %q already exists", class.Class))
		return
	}
	s.classes = append(s.classes, class)
	s.objects[class.Class] = make(map[string]weaviate.Object)
	writeJSON(w, http.StatusOK, class)
}

func (s *Server) handleGetClass(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	class := s.findClass(r.PathValue("class"))
	if class == nil {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, class)
}

func (s *Server) handleDeleteClass(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("class")

	s.mu.Lock()
	defer s.mu.Unlock()
	for i, c := range s.classes {
		if c.Class == name {
			s.classes = append(s.classes[:i], s.classes[i+1:]...)
			break
		}
	}
	delete(s.objects, name)
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleCreateObject(w http.ResponseWriter, r *http.Request) {
	var obj weaviate.Object
	if err := json.NewDecoder(r.Body).Decode(&obj); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid object: "+err.Error())
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if msg := s.validate(obj); msg != "" {
		writeError(w, http.StatusUnprocessableEntity, msg)
		return
	}
	if obj.ID == "" {
		obj.ID = uuid.NewString()
	}
	if _, exists := s.objects[obj.Class][obj.ID]; exists {
		writeError(w, http.StatusUnprocessableEntity, fmt.Sprintf("id '%s' already exists", obj.ID))
		return
	}
	obj.CreationTimeUnix = 1700000000000
	obj.LastUpdateTimeUnix = obj.CreationTimeUnix
	s.objects[obj.Class][obj.ID] = obj
	writeJSON(w, http.StatusOK, obj)
}

func (s *Server) handleListObjects(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	class := q.Get("class")
	limit := 25
	if l := q.Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 {
			limit = n
		}
	}
	after := q.Get("after")

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.findClass(class) == nil {
		writeError(w, http.StatusUnprocessableEntity, fmt.Sprintf("class %q not found in schema", class))
		return
	}

	page := make([]weaviate.Object, 0, limit)
	for _, obj := range s.sortedObjects(class) {
		if after != "" && obj.ID <= after {
			continue
		}
		if len(page) == limit {
			break
		}
		obj.Vector = nil
		page = append(page, obj)
	}
	writeJSON(w, http.StatusOK, weaviate.ObjectList{Objects: page, TotalResults: len(page)})
}

func (s *Server) handleGetObject(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	obj, ok := s.objects[r.PathValue("class")][r.PathValue("id")]
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, obj)
}

func (s *Server) handleUpdateObject(w http.ResponseWriter, r *http.Request) {
	class, id := r.PathValue("class"), r.PathValue("id")

	var patch weaviate.Object
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid object: "+err.Error())
		return
	}
	patch.Class, patch.ID = class, id

	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.objects[class][id]
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	if msg := s.validate(patch); msg != "" {
		writeError(w, http.StatusUnprocessableEntity, msg)
		return
	}

	if r.Method == http.MethodPatch {
		merged := make(map[string]any, len(existing.Properties)+len(patch.Properties))
		for k, v := range existing.Properties {
			merged[k] = v
		}
		for k, v := range patch.Properties {
			merged[k] = v
		}
		existing.Properties = merged
	} else {
		existing.Properties = patch.Properties
	}
	if patch.Vector != nil {
		existing.Vector = patch.Vector
	}
	existing.LastUpdateTimeUnix++
	s.objects[class][id] = existing

	if r.Method == http.MethodPatch {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, existing)
}

func (s *Server) handleDeleteObject(w http.ResponseWriter, r *http.Request) {
	class, id := r.PathValue("class"), r.PathValue("id")

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.objects[class][id]; !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	delete(s.objects[class], id)
	w.WriteHeader(http.StatusNoContent)
}

// validate checks an object against its class. Callers hold s.mu.
func (s *Server) validate(obj weaviate.Object) string {
	class := s.findClass(obj.Class)
	if class == nil {
		return fmt.Sprintf("class %q not found in schema", obj.Class)
	}
	if obj.ID != "" {
		if _, err := uuid.Parse(obj.ID); err != nil {
			return fmt.Sprintf("id '%s' is not a valid uuid", obj.ID)
		}
	}
	for name := range obj.Properties {
		if !hasProperty(class, name) {
			return fmt.Sprintf("no such prop with name '%s' found in class '%s' in the schema", name, obj.Class)
		}
	}
	return ""
}

func (s *Server) findClass(name string) *weaviate.Class {
	for i := range s.classes {
		if s.classes[i].Class == name {
			return &s.classes[i]
		}
	}
	return nil
}

func (s *Server) sortedObjects(class string) []weaviate.Object {
	objs := make([]weaviate.Object, 0, len(s.objects[class]))
	for _, obj := range s.objects[class] {
		objs = append(objs, obj)
	}
	sort.Slice(objs, func(i, j int) bool { return objs[i].ID < objs[j].ID })
	return objs
}

func hasProperty(class *weaviate.Class, name string) bool {
	for _, p := range class.Properties {
		if p.Name == name {
			return true
		}
	}
	return false
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{
		"error": []map[string]string{{"message": msg}},
	})
}
