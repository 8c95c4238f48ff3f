// Package console serves the back-office list pages over HTTP. Every browser
// gets a workspace, identified by a cookie, that owns one list controller per
// page it has opened.
package console

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/innkeeper/backoffice/internal/listing"
	"github.com/innkeeper/backoffice/internal/platform/httpx"
)

// CookieName identifies the workspace cookie.
const CookieName = "backoffice_workspace"

const facetPrefix = "facet."

type ctxKey struct{}

// Handler exposes the workspace pages.
type Handler struct {
	logger   *slog.Logger
	registry *Registry
	secure   bool
}

// NewHandler constructs the console handler. secure marks the workspace
// cookie as HTTPS only.
func NewHandler(logger *slog.Logger, registry *Registry, secure bool) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, registry: registry, secure: secure}
}

// MountRoutes registers the console routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/pages", h.pages)
	r.Group(func(r chi.Router) {
		r.Use(h.workspace)
		r.Delete("/workspace", h.disposeWorkspace)
		r.Get("/{resource}", h.list)
		r.Post("/{resource}", h.create)
		r.Post("/{resource}/refresh", h.refresh)
		r.Patch("/{resource}/{id}", h.update)
		r.Delete("/{resource}/{id}", h.requestRemoval)
		r.Post("/{resource}/{id}/delete", h.remove)
		r.Post("/{resource}/{id}/actions/{action}", h.action)
	})
}

// workspace resolves the caller's workspace, issuing a cookie for new ones.
func (h *Handler) workspace(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var id string
		if cookie, err := r.Cookie(CookieName); err == nil {
			id = cookie.Value
		}
		ws, created := h.registry.Acquire(id)
		if created {
			http.SetCookie(w, &http.Cookie{
				Name:     CookieName,
				Value:    ws.ID(),
				Path:     "/",
				HttpOnly: true,
				Secure:   h.secure,
				SameSite: http.SameSiteStrictMode,
				MaxAge:   int(h.registry.ttl / time.Second),
			})
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, ws)))
	})
}

func workspaceFrom(ctx context.Context) *Workspace {
	ws, _ := ctx.Value(ctxKey{}).(*Workspace)
	return ws
}

func (h *Handler) pages(w http.ResponseWriter, r *http.Request) {
	httpx.JSON(w, http.StatusOK, map[string]any{"pages": h.registry.Catalog().Names()})
}

func (h *Handler) disposeWorkspace(w http.ResponseWriter, r *http.Request) {
	ws := workspaceFrom(r.Context())
	h.registry.Dispose(ws.ID())
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteStrictMode,
	})
	w.WriteHeader(http.StatusNoContent)
}

// page returns the mounted page named in the URL, loading it on first use.
func (h *Handler) page(w http.ResponseWriter, r *http.Request) (Page, bool) {
	ws := workspaceFrom(r.Context())
	page, err := ws.Page(chi.URLParam(r, "resource"))
	if err != nil {
		h.fail(w, r, err)
		return nil, false
	}
	if err := page.Mount(r.Context()); err != nil {
		if listing.KindOf(err) == listing.KindClosed {
			h.fail(w, r, err)
			return nil, false
		}
		// The snapshot carries the fallback warning.
		h.logger.Debug("page mounted with fallback", slog.String("resource", page.Resource()), slog.Any("error", err))
	}
	return page, true
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	view, err := ParseView(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	page, ok := h.page(w, r)
	if !ok {
		return
	}
	if err := page.Apply(view); err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, page.Snapshot())
}

func (h *Handler) refresh(w http.ResponseWriter, r *http.Request) {
	page, ok := h.page(w, r)
	if !ok {
		return
	}
	state, err := page.Load(r.Context())
	if err != nil && state != listing.LoadedWithFallback {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, page.Snapshot())
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	page, ok := h.page(w, r)
	if !ok {
		return
	}
	raw, err := httpx.ReadBody(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	created, err := page.Create(r.Context(), raw)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, created)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, err := entityID(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	page, ok := h.page(w, r)
	if !ok {
		return
	}
	raw, err := httpx.ReadBody(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	saved, err := page.Update(r.Context(), id, raw)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, saved)
}

func (h *Handler) requestRemoval(w http.ResponseWriter, r *http.Request) {
	id, err := entityID(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	page, ok := h.page(w, r)
	if !ok {
		return
	}
	intent, err := page.RequestRemoval(id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusAccepted, intent)
}

func (h *Handler) remove(w http.ResponseWriter, r *http.Request) {
	id, err := entityID(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var body struct {
		Token string `json:"confirm_token"`
	}
	if err := httpx.DecodeJSON(r, &body); err != nil {
		h.fail(w, r, err)
		return
	}
	page, ok := h.page(w, r)
	if !ok {
		return
	}
	if err := page.Remove(r.Context(), id, body.Token); err != nil {
		h.fail(w, r, err)
		return
	}
	h.logger.Info("record deleted", slog.String("resource", page.Resource()), slog.Int64("id", id))
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) action(w http.ResponseWriter, r *http.Request) {
	id, err := entityID(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	page, ok := h.page(w, r)
	if !ok {
		return
	}
	raw, err := httpx.ReadBody(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	result, err := page.Action(r.Context(), chi.URLParam(r, "action"), id, raw)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrUnknownPage), errors.Is(err, ErrUnknownAction):
		httpx.RespondError(w, fmt.Errorf("%w: %v", httpx.ErrNotFound, err))
		return
	case errors.Is(err, ErrWorkspaceClosed):
		httpx.Problem(w, http.StatusGone, "Gone", err.Error())
		return
	}
	if kind := listing.KindOf(err); kind == listing.KindUnknown && !errors.Is(err, httpx.ErrBadRequest) {
		h.logger.Error("console request failed", slog.String("path", r.URL.Path), slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}

func entityID(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid id %q", httpx.ErrBadRequest, raw)
	}
	return id, nil
}

// ParseView reads search, facet.<name>, sort, dir, page and page_size.
func ParseView(r *http.Request) (View, error) {
	q := r.URL.Query()
	var v View
	if q.Has("search") {
		term := q.Get("search")
		v.Search = &term
	}
	for key := range q {
		if name, ok := strings.CutPrefix(key, facetPrefix); ok && name != "" {
			if v.Facets == nil {
				v.Facets = make(map[string]string)
			}
			v.Facets[name] = q.Get(key)
		}
	}
	v.Sort = q.Get("sort")
	v.Dir = listing.ParseDirection(q.Get("dir"))
	for key, dst := range map[string]*int{"page": &v.Page, "page_size": &v.PageSize} {
		raw := q.Get(key)
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			return View{}, fmt.Errorf("%w: %s must be an integer", httpx.ErrBadRequest, key)
		}
		*dst = n
	}
	if q.Has("page_size") && v.PageSize <= 0 {
		return View{}, listing.ValidationError(map[string]string{"page_size": "must be greater than 0"})
	}
	return v, nil
}
