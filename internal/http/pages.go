package httpx

import (
	"net/http"
	"strings"

	"github.com/splax/moviegate/internal/domain"
	"github.com/splax/moviegate/internal/gate"
	"github.com/splax/moviegate/internal/web"
)

const (
	defaultNext = "/movies"
	castLimit   = 18
)

func (r *Router) handleHome(w http.ResponseWriter, req *http.Request) {
	if req.URL.Path != "/" {
		r.renderPage(w, req, http.StatusNotFound, web.PageNotFound, map[string]any{"User": r.pageUser(req)})
		return
	}
	if req.Method != http.MethodGet && req.Method != http.MethodHead {
		r.methodNotAllowed(w)
		return
	}
	r.renderPage(w, req, http.StatusOK, web.PageHome, map[string]any{"User": r.currentUser(req)})
}

func (r *Router) handleLoginPage(w http.ResponseWriter, req *http.Request) {
	r.handleAuthPage(w, req, web.PageLogin)
}

func (r *Router) handleSignupPage(w http.ResponseWriter, req *http.Request) {
	r.handleAuthPage(w, req, web.PageSignup)
}

func (r *Router) handleAuthPage(w http.ResponseWriter, req *http.Request, page string) {
	if req.Method != http.MethodGet && req.Method != http.MethodHead {
		r.methodNotAllowed(w)
		return
	}
	next := web.SafeNext(req.URL.Query().Get("next"), defaultNext)
	if r.currentUser(req) != nil {
		http.Redirect(w, req, next, http.StatusSeeOther)
		return
	}
	r.renderPage(w, req, http.StatusOK, page, map[string]any{"Next": next})
}

func (r *Router) handleMoviesPage(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet && req.Method != http.MethodHead {
		r.methodNotAllowed(w)
		return
	}
	ctx := req.Context()
	query := strings.TrimSpace(req.URL.Query().Get("query"))
	data := map[string]any{"User": r.pageUser(req), "Query": query}
	if r.catalog == nil {
		data["Popular"], data["TopRated"], data["Search"] = domain.EmptyMoviePage(), domain.EmptyMoviePage(), domain.EmptyMoviePage()
		r.renderPage(w, req, http.StatusOK, web.PageMovies, data)
		return
	}
	if query != "" {
		data["Search"] = r.listOrEmpty(req, "search")(r.catalog.Search(ctx, query, pageParam(req)))
	} else {
		data["Popular"] = r.listOrEmpty(req, "popular")(r.catalog.Popular(ctx, 1))
		data["TopRated"] = r.listOrEmpty(req, "top-rated")(r.catalog.TopRated(ctx, 1))
	}
	r.renderPage(w, req, http.StatusOK, web.PageMovies, data)
}

func (r *Router) handleMoviePage(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet && req.Method != http.MethodHead {
		r.methodNotAllowed(w)
		return
	}
	user := r.pageUser(req)
	id, ok := movieID(strings.Trim(strings.TrimPrefix(req.URL.Path, "/movies/movie/"), "/"))
	if !ok || r.catalog == nil {
		r.renderPage(w, req, http.StatusNotFound, web.PageNotFound, map[string]any{"User": user, "Message": msgMovieNotFound})
		return
	}
	detail, err := r.catalog.Details(req.Context(), id)
	if err != nil {
		r.logger.Warn("movie detail unavailable", "movie_id", id, "error", err)
		r.renderPage(w, req, http.StatusNotFound, web.PageNotFound, map[string]any{"User": user, "Message": msgMovieNotFound})
		return
	}
	var cast []domain.CastMember
	if credits, err := r.catalog.Credits(req.Context(), id); err != nil {
		r.logger.Warn("movie credits unavailable", "movie_id", id, "error", err)
	} else {
		cast = credits.Cast
		if len(cast) > castLimit {
			cast = cast[:castLimit]
		}
	}
	r.renderPage(w, req, http.StatusOK, web.PageMovie, map[string]any{"User": user, "Movie": detail, "Cast": cast})
}

// pageUser returns the identity the gate verified for this request.
func (r *Router) pageUser(req *http.Request) *domain.PublicUser {
	claims, ok := gate.ClaimsFromContext(req.Context())
	if !ok {
		return nil
	}
	return &domain.PublicUser{ID: claims.Subject, Email: claims.Email, Name: claims.Name}
}

func (r *Router) listOrEmpty(req *http.Request, list string) func(domain.MoviePage, error) domain.MoviePage {
	return func(page domain.MoviePage, err error) domain.MoviePage {
		if err != nil {
			r.logger.Warn("catalog list failed", "list", list, "path", req.URL.Path, "error", err)
			return domain.EmptyMoviePage()
		}
		return page
	}
}

func (r *Router) renderPage(w http.ResponseWriter, req *http.Request, status int, page string, data map[string]any) {
	if err := r.pages.Render(w, status, page, data); err != nil {
		r.logger.Error("template render failed", "page", page, "path", req.URL.Path, "error", err)
		http.Error(w, msgInternal, http.StatusInternalServerError)
	}
}
