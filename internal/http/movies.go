package httpx

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/splax/moviegate/internal/catalog"
	"github.com/splax/moviegate/internal/domain"
)

func (r *Router) handleMovieAPI(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		r.methodNotAllowed(w)
		return
	}
	if r.catalog == nil {
		writeJSON(w, http.StatusOK, domain.EmptyMoviePage())
		return
	}
	trimmed := strings.Trim(strings.TrimPrefix(req.URL.Path, "/api/movies/"), "/")
	parts := strings.Split(trimmed, "/")
	page := pageParam(req)

	switch {
	case len(parts) == 1 && parts[0] == "popular":
		r.writeMoviePage(w, req, "popular")(r.catalog.Popular(req.Context(), page))
	case len(parts) == 1 && parts[0] == "top-rated":
		r.writeMoviePage(w, req, "top-rated")(r.catalog.TopRated(req.Context(), page))
	case len(parts) == 1 && parts[0] == "search":
		query := req.URL.Query().Get("query")
		r.writeMoviePage(w, req, "search")(r.catalog.Search(req.Context(), query, page))
	case len(parts) == 1:
		id, ok := movieID(parts[0])
		if !ok {
			r.notFound(w)
			return
		}
		detail, err := r.catalog.Details(req.Context(), id)
		if err != nil {
			r.writeCatalogMiss(w, req, err)
			return
		}
		writeJSON(w, http.StatusOK, detail)
	case len(parts) == 2 && parts[1] == "credits":
		id, ok := movieID(parts[0])
		if !ok {
			r.notFound(w)
			return
		}
		credits, err := r.catalog.Credits(req.Context(), id)
		if err != nil {
			r.writeCatalogMiss(w, req, err)
			return
		}
		writeJSON(w, http.StatusOK, credits)
	default:
		r.notFound(w)
	}
}

// writeMoviePage degrades list failures to an empty page.
func (r *Router) writeMoviePage(w http.ResponseWriter, req *http.Request, list string) func(domain.MoviePage, error) {
	return func(page domain.MoviePage, err error) {
		if err != nil {
			r.logger.Warn("catalog list failed", "list", list, "path", req.URL.Path, "error", err)
			page = domain.EmptyMoviePage()
		}
		writeJSON(w, http.StatusOK, page)
	}
}

func (r *Router) writeCatalogMiss(w http.ResponseWriter, req *http.Request, err error) {
	if !errors.Is(err, catalog.ErrNotFound) {
		r.logger.Warn("catalog lookup failed", "path", req.URL.Path, "error", err)
	}
	writeError(w, http.StatusNotFound, msgMovieNotFound)
}

func pageParam(req *http.Request) int {
	page, err := strconv.Atoi(req.URL.Query().Get("page"))
	if err != nil || page < 1 {
		return 1
	}
	return page
}

func movieID(raw string) (int64, bool) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
