package models

// Patches carry the fields of a partial update. Nil fields are left untouched
// by Apply.

type MoviePatch struct {
	Title        *string    `json:"title,omitempty" validate:"omitempty,min=1,max=255"`
	OriginalName *string    `json:"originalName,omitempty" validate:"omitempty,max=255"`
	Director     *string    `json:"director,omitempty"`
	Description  *string    `json:"description,omitempty"`
	ReleaseYear  *int       `json:"releaseYear,omitempty" validate:"omitempty,gte=1888,lte=2100"`
	Type         *MovieType `json:"type,omitempty" validate:"omitempty,oneof=single series animation"`
	Duration     *string    `json:"duration,omitempty"`
	PosterURL    *string    `json:"posterUrl,omitempty" validate:"omitempty,url"`
	ThumbURL     *string    `json:"thumbUrl,omitempty" validate:"omitempty,url"`
	TrailerURL   *string    `json:"trailerUrl,omitempty" validate:"omitempty,url"`
	Status       *string    `json:"status,omitempty"`
	TMDBRating   *float64   `json:"tmdbRating,omitempty" validate:"omitempty,gte=0,lte=10"`
	IMDBRating   *float64   `json:"imdbRating,omitempty" validate:"omitempty,gte=0,lte=10"`
	Views        *int64     `json:"views,omitempty"`
	Genres       []Genre    `json:"genres,omitempty"`
	Countries    []Country  `json:"countries,omitempty"`
}

func (p MoviePatch) Apply(m *Movie) {
	setIf(&m.Title, p.Title)
	setIf(&m.OriginalName, p.OriginalName)
	setIf(&m.Director, p.Director)
	setIf(&m.Description, p.Description)
	setIf(&m.ReleaseYear, p.ReleaseYear)
	setIf(&m.Type, p.Type)
	setIf(&m.Duration, p.Duration)
	setIf(&m.PosterURL, p.PosterURL)
	setIf(&m.ThumbURL, p.ThumbURL)
	setIf(&m.TrailerURL, p.TrailerURL)
	setIf(&m.Status, p.Status)
	setIf(&m.TMDBRating, p.TMDBRating)
	setIf(&m.IMDBRating, p.IMDBRating)
	setIf(&m.Views, p.Views)
	if p.Genres != nil {
		m.Genres = append([]Genre(nil), p.Genres...)
	}
	if p.Countries != nil {
		m.Countries = append([]Country(nil), p.Countries...)
	}
}

type SeriesPatch struct {
	Name        *string `json:"name,omitempty" validate:"omitempty,min=1,max=255"`
	Description *string `json:"description,omitempty"`
	Status      *string `json:"status,omitempty"`
	ReleaseYear *int    `json:"releaseYear,omitempty" validate:"omitempty,gte=1888,lte=2100"`
	PosterURL   *string `json:"posterUrl,omitempty" validate:"omitempty,url"`
}

func (p SeriesPatch) Apply(s *Series) {
	setIf(&s.Name, p.Name)
	setIf(&s.Description, p.Description)
	setIf(&s.Status, p.Status)
	setIf(&s.ReleaseYear, p.ReleaseYear)
	setIf(&s.PosterURL, p.PosterURL)
}

type GenrePatch struct {
	Name *string `json:"name,omitempty" validate:"omitempty,min=1,max=100"`
}

func (p GenrePatch) Apply(g *Genre) {
	setIf(&g.Name, p.Name)
}

type CountryPatch struct {
	Name *string `json:"name,omitempty" validate:"omitempty,min=1,max=100"`
}

func (p CountryPatch) Apply(c *Country) {
	setIf(&c.Name, p.Name)
}

type ActorPatch struct {
	Name        *string  `json:"name,omitempty" validate:"omitempty,min=1,max=255"`
	TMDBID      *int64   `json:"tmdbId,omitempty"`
	Gender      *Gender  `json:"gender,omitempty" validate:"omitempty,oneof=male female other unknown"`
	AlsoKnownAs []string `json:"alsoKnownAs,omitempty"`
	ProfilePath *string  `json:"profilePath,omitempty"`
}

func (p ActorPatch) Apply(a *Actor) {
	setIf(&a.Name, p.Name)
	if p.TMDBID != nil {
		id := *p.TMDBID
		a.TMDBID = &id
	}
	setIf(&a.Gender, p.Gender)
	if p.AlsoKnownAs != nil {
		a.AlsoKnownAs = append([]string(nil), p.AlsoKnownAs...)
	}
	setIf(&a.ProfilePath, p.ProfilePath)
}

type UserPatch struct {
	Username *string `json:"username,omitempty" validate:"omitempty,min=3,max=50"`
	FullName *string `json:"fullName,omitempty"`
	Email    *string `json:"email,omitempty" validate:"omitempty,email"`
	Gender   *Gender `json:"gender,omitempty" validate:"omitempty,oneof=male female other unknown"`
	Role     *Role   `json:"role,omitempty" validate:"omitempty,oneof=admin user"`
	Avatar   *string `json:"avatar,omitempty"`
}

func (p UserPatch) Apply(u *User) {
	setIf(&u.Username, p.Username)
	setIf(&u.FullName, p.FullName)
	setIf(&u.Email, p.Email)
	setIf(&u.Gender, p.Gender)
	setIf(&u.Role, p.Role)
	setIf(&u.Avatar, p.Avatar)
}

type EpisodePatch struct {
	Title         *string `json:"title,omitempty"`
	EpisodeNumber *int    `json:"episodeNumber,omitempty" validate:"omitempty,gte=0"`
	ServerName    *string `json:"serverName,omitempty" validate:"omitempty,min=1"`
	EmbedURL      *string `json:"embedUrl,omitempty" validate:"omitempty,url"`
	M3U8URL       *string `json:"m3u8Url,omitempty" validate:"omitempty,url"`
}

func (p EpisodePatch) Apply(e *Episode) {
	setIf(&e.Title, p.Title)
	setIf(&e.EpisodeNumber, p.EpisodeNumber)
	setIf(&e.ServerName, p.ServerName)
	setIf(&e.EmbedURL, p.EmbedURL)
	setIf(&e.M3U8URL, p.M3U8URL)
}

func setIf[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}
