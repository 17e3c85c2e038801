package identification

import (
	"fmt"
	"strings"
)

// MediaType is the classification of a parsed guess.
type MediaType int

const (
	MediaTypeUnknown MediaType = iota
	MediaTypeMovie
	MediaTypeTVEpisode
)

func (k MediaType) String() string {
	switch k {
	case MediaTypeMovie:
		return "movie"
	case MediaTypeTVEpisode:
		return "tv_episode"
	default:
		return "unknown"
	}
}

// MarshalText encodes the type as its String form.
func (k MediaType) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText accepts the String form.
func (k *MediaType) UnmarshalText(data []byte) error {
	parsed, err := ParseMediaType(string(data))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// ParseMediaType converts a stored label back into a MediaType.
func ParseMediaType(value string) (MediaType, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "movie":
		return MediaTypeMovie, nil
	case "tv_episode", "tv", "episode":
		return MediaTypeTVEpisode, nil
	case "unknown", "":
		return MediaTypeUnknown, nil
	default:
		return MediaTypeUnknown, fmt.Errorf("unknown media type %q", value)
	}
}

// Classify derives the media type from a guess alone. Season plus episode
// means an episode; otherwise any year or title means a movie. A guess with
// neither is Unknown and should skip the catalog entirely.
func Classify(guess ParsedGuess) MediaType {
	if guess.HasEpisode() {
		return MediaTypeTVEpisode
	}
	if guess.Year != nil || strings.TrimSpace(guess.Title) != "" {
		return MediaTypeMovie
	}
	return MediaTypeUnknown
}
