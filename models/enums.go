package models

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

type MovieType string

const (
	TypeSingle    MovieType = "single"
	TypeSeries    MovieType = "series"
	TypeAnimation MovieType = "animation"
)

// IsEpisodic reports whether movies of this type carry episodes.
func (t MovieType) IsEpisodic() bool {
	return t == TypeSeries || t == TypeAnimation
}

// ParseMovieType normalizes the type names used by upstream services.
func ParseMovieType(s string) MovieType {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "series", "tv", "phim-bo", "phimbo":
		return TypeSeries
	case "animation", "hoathinh", "hoat-hinh", "anime", "cartoon":
		return TypeAnimation
	default:
		return TypeSingle
	}
}

type Gender string

const (
	GenderUnknown Gender = "unknown"
	GenderFemale  Gender = "female"
	GenderMale    Gender = "male"
	GenderOther   Gender = "other"
)

// GenderFromCode maps the numeric gender codes used by TMDB and the catalog
// API to a gender tag.
func GenderFromCode(code int) Gender {
	switch code {
	case 1:
		return GenderFemale
	case 2:
		return GenderMale
	case 3:
		return GenderOther
	default:
		return GenderUnknown
	}
}

// ParseGender accepts either a tag or a numeric code.
func ParseGender(s string) Gender {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "female", "f", "nu":
		return GenderFemale
	case "2", "male", "m", "nam":
		return GenderMale
	case "3", "other", "non-binary":
		return GenderOther
	default:
		return GenderUnknown
	}
}

type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

func ParseRole(s string) Role {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.TrimPrefix(s, "role_")
	if s == string(RoleAdmin) {
		return RoleAdmin
	}
	return RoleUser
}

var foldAccents = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Fold lower-cases s and folds its accents, for accent-insensitive matching.
func Fold(s string) string {
	folded, _, err := transform.String(foldAccents, s)
	if err != nil {
		folded = s
	}
	return strings.ToLower(strings.NewReplacer("đ", "d", "Đ", "d").Replace(folded))
}

// Slugify derives the URL slug of a title: accents are folded, letters are
// lower-cased and every run of other characters becomes a single dash.
func Slugify(title string) string {
	folded, _, err := transform.String(foldAccents, title)
	if err != nil {
		folded = title
	}
	folded = strings.NewReplacer("đ", "d", "Đ", "d").Replace(folded)

	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(folded) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
