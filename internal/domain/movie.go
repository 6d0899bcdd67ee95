package domain

// Movie is a catalog entry as listed by the upstream movie database.
type Movie struct {
	ID               int64   `json:"id"`
	Title            string  `json:"title"`
	OriginalTitle    string  `json:"original_title,omitempty"`
	Overview         string  `json:"overview"`
	PosterPath       *string `json:"poster_path"`
	BackdropPath     *string `json:"backdrop_path"`
	ReleaseDate      string  `json:"release_date,omitempty"`
	VoteAverage      float64 `json:"vote_average"`
	VoteCount        int     `json:"vote_count"`
	Popularity       float64 `json:"popularity,omitempty"`
	OriginalLanguage string  `json:"original_language,omitempty"`
	GenreIDs         []int   `json:"genre_ids,omitempty"`
}

// Genre names a category on a movie detail record.
type Genre struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// MovieDetail extends Movie with fields only the detail endpoint returns.
type MovieDetail struct {
	Movie
	Runtime  int     `json:"runtime,omitempty"`
	Tagline  string  `json:"tagline,omitempty"`
	Status   string  `json:"status,omitempty"`
	Genres   []Genre `json:"genres,omitempty"`
	Homepage string  `json:"homepage,omitempty"`
	IMDBID   string  `json:"imdb_id,omitempty"`
}

// MoviePage is one page of list results.
type MoviePage struct {
	Results      []Movie `json:"results"`
	Page         int     `json:"page"`
	TotalPages   int     `json:"total_pages"`
	TotalResults int     `json:"total_results"`
	HasNext      bool    `json:"hasNext"`
}

// EmptyMoviePage is returned when the catalog cannot be reached.
func EmptyMoviePage() MoviePage {
	return MoviePage{Results: []Movie{}, Page: 1, TotalPages: 1, TotalResults: 0, HasNext: false}
}

// CastMember is a credited performer.
type CastMember struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	Character   string  `json:"character"`
	ProfilePath *string `json:"profile_path"`
	Order       int     `json:"order"`
}

// CrewMember is a credited crew role.
type CrewMember struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	Job         string  `json:"job"`
	Department  string  `json:"department"`
	ProfilePath *string `json:"profile_path"`
}

// Credits lists cast and crew for a movie.
type Credits struct {
	ID   int64        `json:"id"`
	Cast []CastMember `json:"cast"`
	Crew []CrewMember `json:"crew"`
}
