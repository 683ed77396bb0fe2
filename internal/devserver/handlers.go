package devserver

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/Los-Onichan-Kimochi/zen-cat-portal/internal/models"
	"github.com/Los-Onichan-Kimochi/zen-cat-portal/internal/pkg/redact"
	"github.com/Los-Onichan-Kimochi/zen-cat-portal/internal/zencat"
)

type authResponse struct {
	User   models.User      `json:"user"`
	Tokens zencat.TokenPair `json:"tokens"`
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name,omitempty"`
}

type refreshTokenRequest struct {
	RefreshToken string `json:"refresh_token"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var in credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid_argument", "malformed request body")
		return
	}

	u, err := s.store.UserByEmail(r.Context(), in.Email)
	if err != nil {
		// Не раскрываем, существует ли учётная запись.
		s.writeError(w, http.StatusUnauthorized, "invalid_credentials", "invalid email or password")
		return
	}

	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(in.Password)) != nil {
		s.writeError(w, http.StatusUnauthorized, "invalid_credentials", "invalid email or password")
		return
	}

	tokens, err := s.issueTokens(r.Context(), u)
	if err != nil {
		s.log.Error("issue_tokens_failed", slog.String("err", err.Error()))
		s.writeError(w, http.StatusInternalServerError, "internal", "internal error")
		return
	}

	s.log.Info("login_ok", slog.String("email", redact.Email(u.Email)))
	s.writeJSON(w, http.StatusOK, authResponse{User: toUser(u), Tokens: tokens})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var in credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid_argument", "malformed request body")
		return
	}

	if in.Email == "" || in.Password == "" {
		s.writeError(w, http.StatusBadRequest, "invalid_argument", "email and password are required")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "internal", "internal error")
		return
	}

	now := time.Now().UTC()
	u := &userRecord{
		ID:           uuid.NewString(),
		Email:        in.Email,
		PasswordHash: string(hash),
		Name:         in.Name,
		Role:         string(models.RoleUser),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.store.CreateUser(r.Context(), u); err != nil {
		if errors.Is(err, ErrAlreadyExists) {
			s.writeError(w, http.StatusConflict, "already_exists", "email already registered")
			return
		}
		s.log.Error("create_user_failed", slog.String("err", err.Error()))
		s.writeError(w, http.StatusInternalServerError, "internal", "internal error")
		return
	}

	tokens, err := s.issueTokens(r.Context(), u)
	if err != nil {
		s.log.Error("issue_tokens_failed", slog.String("err", err.Error()))
		s.writeError(w, http.StatusInternalServerError, "internal", "internal error")
		return
	}

	s.writeJSON(w, http.StatusCreated, authResponse{User: toUser(u), Tokens: tokens})
}

// handleRefresh — ротация: предъявленный refresh-токен отзывается,
// взамен выдаётся новая пара. Старый токен после этого невалиден.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var in refreshTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil || in.RefreshToken == "" {
		s.writeError(w, http.StatusBadRequest, "invalid_argument", "refresh_token is required")
		return
	}

	rec, err := s.validateRefreshToken(r.Context(), in.RefreshToken)
	if err != nil {
		s.writeError(w, http.StatusUnauthorized, "unauthenticated", "invalid refresh token")
		return
	}

	u, err := s.store.UserByID(r.Context(), rec.UserID)
	if err != nil {
		s.writeError(w, http.StatusUnauthorized, "unauthenticated", "unknown user")
		return
	}

	if err := s.store.RevokeRefreshToken(r.Context(), rec.Hash); err != nil {
		s.log.Error("revoke_refresh_failed", slog.String("err", err.Error()))
		s.writeError(w, http.StatusInternalServerError, "internal", "internal error")
		return
	}

	tokens, err := s.issueTokens(r.Context(), u)
	if err != nil {
		s.log.Error("issue_tokens_failed", slog.String("err", err.Error()))
		s.writeError(w, http.StatusInternalServerError, "internal", "internal error")
		return
	}

	s.writeJSON(w, http.StatusOK, tokens)
}

// handleLogout отзывает refresh-токен, если он предъявлен. Всегда 204:
// повторный выход и выход с протухшим токеном не ошибка.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	var in refreshTokenRequest
	_ = json.NewDecoder(r.Body).Decode(&in)

	if in.RefreshToken != "" {
		if err := s.store.RevokeRefreshToken(r.Context(), hashToken(in.RefreshToken)); err != nil {
			s.log.Warn("logout_revoke_failed", slog.String("err", err.Error()))
		}
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, toUser(currentUser(r.Context())))
}

// --- пользователи (админ) ---

func (s *Server) requireAdmin(w http.ResponseWriter, r *http.Request) bool {
	if u := currentUser(r.Context()); u == nil || u.Role != string(models.RoleAdmin) {
		s.writeError(w, http.StatusForbidden, "permission_denied", "admin role required")
		return false
	}
	return true
}

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	if !s.requireAdmin(w, r) {
		return
	}

	var recs []userRecord
	if err := s.store.db.WithContext(r.Context()).Order("created_at").Find(&recs).Error; err != nil {
		s.writeError(w, http.StatusInternalServerError, "internal", "internal error")
		return
	}

	out := make([]models.User, 0, len(recs))
	for i := range recs {
		out = append(out, toUser(&recs[i]))
	}

	s.writeJSON(w, http.StatusOK, zencat.ListEnvelope[models.User]{Data: out, Total: int64(len(out))})
}

func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	// Свой профиль доступен всем, чужие — только админу.
	if cur := currentUser(r.Context()); cur != nil && cur.ID != id && !s.requireAdmin(w, r) {
		return
	}

	u, err := s.store.UserByID(r.Context(), id)
	if err != nil {
		s.writeError(w, http.StatusNotFound, "not_found", "user not found")
		return
	}

	s.writeJSON(w, http.StatusOK, toUser(u))
}

func (s *Server) handlePatchUser(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if cur := currentUser(r.Context()); cur != nil && cur.ID != id && !s.requireAdmin(w, r) {
		return
	}

	var in models.UpdateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid_argument", "malformed request body")
		return
	}

	u, err := s.store.UserByID(r.Context(), id)
	if err != nil {
		s.writeError(w, http.StatusNotFound, "not_found", "user not found")
		return
	}

	if in.Name != "" {
		u.Name = in.Name
	}
	if in.AvatarURL != "" {
		u.AvatarURL = in.AvatarURL
	}
	if in.PhoneNumber != "" {
		u.PhoneNumber = in.PhoneNumber
	}
	if in.District != "" {
		u.District = in.District
	}
	u.UpdatedAt = time.Now().UTC()

	if err := s.store.db.WithContext(r.Context()).Save(u).Error; err != nil {
		s.writeError(w, http.StatusInternalServerError, "internal", "internal error")
		return
	}

	s.writeJSON(w, http.StatusOK, toUser(u))
}

// --- каталог (generic-документы) ---

// collection возвращает имя коллекции из URL или пишет 404.
func (s *Server) collection(w http.ResponseWriter, r *http.Request) (string, bool) {
	name := chi.URLParam(r, "collection")
	if !collections[name] {
		s.writeError(w, http.StatusNotFound, "not_found", "unknown resource")
		return "", false
	}
	return name, true
}

// docID вытаскивает поле id документа.
func docID(data []byte) (string, error) {
	var probe struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return "", err
	}
	return probe.ID, nil
}

// ensureDocID проставляет id, если создающий его не прислал.
func ensureDocID(data []byte) (string, []byte, error) {
	id, err := docID(data)
	if err != nil {
		return "", nil, err
	}
	if id != "" {
		return id, data, nil
	}

	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		return "", nil, err
	}

	id = uuid.NewString()
	doc["id"] = id

	out, err := json.Marshal(doc)
	return id, out, err
}

// matchesQuery — равенство по верхнеуровневым полям документа
// (строки и числа приводятся к строке). Так работает фильтр ?user_id=...
func matchesQuery(data []byte, query map[string][]string) bool {
	if len(query) == 0 {
		return true
	}

	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		return false
	}

	for key, values := range query {
		if len(values) == 0 {
			continue
		}

		raw, ok := doc[key]
		if !ok {
			return false
		}

		var got string
		switch v := raw.(type) {
		case string:
			got = v
		case float64:
			got = trimFloat(v)
		case bool:
			if v {
				got = "true"
			} else {
				got = "false"
			}
		default:
			return false
		}

		if got != values[0] {
			return false
		}
	}

	return true
}

func trimFloat(v float64) string {
	b, _ := json.Marshal(v)
	return string(b)
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	name, ok := s.collection(w, r)
	if !ok {
		return
	}

	docs, err := s.store.Docs(r.Context(), name)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "internal", "internal error")
		return
	}

	query := r.URL.Query()
	out := make([]json.RawMessage, 0, len(docs))
	for _, d := range docs {
		if matchesQuery(d, query) {
			out = append(out, json.RawMessage(d))
		}
	}

	s.writeJSON(w, http.StatusOK, zencat.ListEnvelope[json.RawMessage]{Data: out, Total: int64(len(out))})
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	name, ok := s.collection(w, r)
	if !ok {
		return
	}

	data, err := s.store.Doc(r.Context(), name, chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, http.StatusNotFound, "not_found", "document not found")
		return
	}

	s.writeJSON(w, http.StatusOK, json.RawMessage(data))
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	name, ok := s.collection(w, r)
	if !ok {
		return
	}

	var body json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid_argument", "malformed request body")
		return
	}

	id, data, err := ensureDocID(body)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid_argument", "document must be a JSON object")
		return
	}

	if err := s.store.PutDoc(r.Context(), name, id, data); err != nil {
		s.writeError(w, http.StatusInternalServerError, "internal", "internal error")
		return
	}

	s.writeJSON(w, http.StatusCreated, json.RawMessage(data))
}

// handlePatch сливает присланные поля в существующий документ.
func (s *Server) handlePatch(w http.ResponseWriter, r *http.Request) {
	name, ok := s.collection(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "id")

	existing, err := s.store.Doc(r.Context(), name, id)
	if err != nil {
		s.writeError(w, http.StatusNotFound, "not_found", "document not found")
		return
	}

	var doc, patch map[string]any
	if err := json.Unmarshal(existing, &doc); err != nil {
		s.writeError(w, http.StatusInternalServerError, "internal", "internal error")
		return
	}
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid_argument", "malformed request body")
		return
	}

	for k, v := range patch {
		if k == "id" {
			continue // идентификатор неизменяем
		}
		doc[k] = v
	}

	data, err := json.Marshal(doc)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "internal", "internal error")
		return
	}

	if err := s.store.PutDoc(r.Context(), name, id, data); err != nil {
		s.writeError(w, http.StatusInternalServerError, "internal", "internal error")
		return
	}

	s.writeJSON(w, http.StatusOK, json.RawMessage(data))
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	name, ok := s.collection(w, r)
	if !ok {
		return
	}

	if err := s.store.DeleteDoc(r.Context(), name, chi.URLParam(r, "id")); err != nil {
		if errors.Is(err, ErrNotFound) {
			s.writeError(w, http.StatusNotFound, "not_found", "document not found")
			return
		}
		s.writeError(w, http.StatusInternalServerError, "internal", "internal error")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleBulkCreate(w http.ResponseWriter, r *http.Request) {
	name, ok := s.collection(w, r)
	if !ok {
		return
	}

	var items []json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&items); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid_argument", "expected a JSON array")
		return
	}

	out := make([]json.RawMessage, 0, len(items))
	for _, item := range items {
		id, data, err := ensureDocID(item)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, "invalid_argument", "every item must be a JSON object")
			return
		}

		if err := s.store.PutDoc(r.Context(), name, id, data); err != nil {
			s.writeError(w, http.StatusInternalServerError, "internal", "internal error")
			return
		}

		out = append(out, json.RawMessage(data))
	}

	s.writeJSON(w, http.StatusCreated, zencat.ListEnvelope[json.RawMessage]{Data: out, Total: int64(len(out))})
}

func (s *Server) handleBulkDelete(w http.ResponseWriter, r *http.Request) {
	name, ok := s.collection(w, r)
	if !ok {
		return
	}

	var in struct {
		IDs []string `json:"ids"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid_argument", "malformed request body")
		return
	}

	for _, id := range in.IDs {
		if err := s.store.DeleteDoc(r.Context(), name, id); err != nil && !errors.Is(err, ErrNotFound) {
			s.writeError(w, http.StatusInternalServerError, "internal", "internal error")
			return
		}
	}

	w.WriteHeader(http.StatusNoContent)
}
