package web

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/splax/moviegate/internal/domain"
)

func TestRenderPages(t *testing.T) {
	pages, err := New()
	require.NoError(t, err)

	name := "Ada"
	poster := "/poster.jpg"
	user := &domain.PublicUser{ID: "u-1", Email: "ada@example.com", Name: &name}
	page := domain.MoviePage{Results: []domain.Movie{{ID: 7, Title: "Se7en", PosterPath: &poster, ReleaseDate: "1995-09-22"}}, Page: 1, TotalPages: 1}
	cases := map[string]map[string]any{
		PageHome:     {"User": nil},
		PageLogin:    {"Next": "/movies"},
		PageSignup:   {"Next": "/movies"},
		PageMovies:   {"User": user, "Query": "", "Popular": page, "TopRated": domain.EmptyMoviePage()},
		PageMovie:    {"User": user, "Movie": &domain.MovieDetail{Movie: page.Results[0]}, "Cast": []domain.CastMember{{Name: "Brad Pitt", Character: "Mills"}}},
		PageNotFound: {"Message": "gone"},
	}
	for name, data := range cases {
		rec := httptest.NewRecorder()
		require.NoError(t, pages.Render(rec, http.StatusOK, name, data), name)
		assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
		assert.Contains(t, rec.Body.String(), "</html>", name)
	}
}

func TestRenderMoviesShowsCards(t *testing.T) {
	pages, err := New()
	require.NoError(t, err)
	poster := "/p.jpg"
	rec := httptest.NewRecorder()
	err = pages.Render(rec, http.StatusOK, PageMovies, map[string]any{
		"Query":  "seven",
		"Search": domain.MoviePage{Results: []domain.Movie{{ID: 807, Title: "Se7en", PosterPath: &poster, ReleaseDate: "1995-09-22"}}},
	})
	require.NoError(t, err)
	body := rec.Body.String()
	assert.Contains(t, body, `href="/movies/movie/807"`)
	assert.Contains(t, body, "https://image.tmdb.org/t/p/w342/p.jpg")
	assert.Contains(t, body, "1995")
}

func TestRenderUnknownPage(t *testing.T) {
	pages, err := New()
	require.NoError(t, err)
	assert.Error(t, pages.Render(httptest.NewRecorder(), http.StatusOK, "missing", nil))
}

func TestSafeNext(t *testing.T) {
	cases := map[string]string{
		"":                      "/movies",
		"/movies/movie/42":      "/movies/movie/42",
		"/movies?query=heat":    "/movies?query=heat",
		"https://evil.test/x":   "/movies",
		"//evil.test":           "/movies",
		"/\\evil.test":          "/movies",
		"movies":                "/movies",
		"javascript:alert('x')": "/movies",
	}
	for input, want := range cases {
		assert.Equal(t, want, SafeNext(input, "/movies"), input)
	}
}

func TestStaticServesAssets(t *testing.T) {
	rec := httptest.NewRecorder()
	Static().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/static/app.js", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "data-auth-form")
}
