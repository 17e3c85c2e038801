package organizer

import (
	"fmt"
	"path/filepath"
	"strings"

	"tidyfin/internal/fileutil"
	"tidyfin/internal/identification"
	"tidyfin/internal/textutil"
)

// Destination computes the library path for a classified, matched file.
// Catalog data wins over parsed data. It reports false when the media type
// has no root or the title sanitizes to nothing. The result depends only on
// its arguments.
func Destination(kind identification.MediaType, guess identification.ParsedGuess, match identification.MatchResult, ext string, roots Roots) (string, bool) {
	ext = normalizeExt(ext)
	switch kind {
	case identification.MediaTypeMovie:
		return movieDestination(guess, match.Candidate, ext, roots.Movies)
	case identification.MediaTypeTVEpisode:
		return episodeDestination(guess, match.Candidate, ext, roots.Shows)
	default:
		return "", false
	}
}

func movieDestination(guess identification.ParsedGuess, candidate *identification.Candidate, ext, root string) (string, bool) {
	if strings.TrimSpace(root) == "" {
		return "", false
	}
	title, year := guess.Title, guess.Year
	if candidate != nil {
		title, year = candidate.Title, candidate.Year
	}
	title = textutil.SanitizeFileName(title)
	if title == "" {
		return "", false
	}
	folder := title
	if year != nil && *year > 0 {
		folder = fitSegment(title, fmt.Sprintf(" (%d)", *year))
	}
	return filepath.Join(root, folder, folder+ext), true
}

func episodeDestination(guess identification.ParsedGuess, candidate *identification.Candidate, ext, root string) (string, bool) {
	if strings.TrimSpace(root) == "" {
		return "", false
	}
	title, season, episode, episodeTitle := guess.Title, guess.Season, guess.Episode, guess.EpisodeTitle
	if candidate != nil {
		title = candidate.Title
		if candidate.Season != nil && candidate.Episode != nil {
			season, episode = candidate.Season, candidate.Episode
		}
		if strings.TrimSpace(candidate.EpisodeTitle) != "" {
			episodeTitle = candidate.EpisodeTitle
		}
	}
	if season == nil || episode == nil {
		return "", false
	}
	title = textutil.SanitizeFileName(title)
	if title == "" {
		return "", false
	}
	name := fitSegment(title, fmt.Sprintf(" - S%02dE%02d", *season, *episode))
	if cleaned := textutil.SanitizeFileName(episodeTitle); cleaned != "" {
		room := textutil.MaxSegmentBytes - len(name) - len(" - ")
		if cleaned = textutil.TruncateSegment(cleaned, room); cleaned != "" {
			name += " - " + cleaned
		}
	}
	seasonDir := fmt.Sprintf("Season %02d", *season)
	return filepath.Join(root, title, seasonDir, name+ext), true
}

// fitSegment appends suffix to head, shortening head so the whole segment
// stays within the path segment cap.
func fitSegment(head, suffix string) string {
	return textutil.TruncateSegment(head, textutil.MaxSegmentBytes-len(suffix)) + suffix
}

func normalizeExt(ext string) string {
	ext = strings.TrimSpace(ext)
	if ext == "" {
		return ""
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}

// collisionSet remembers every destination claimed in one batch. It is owned
// by the single goroutine that assigns actions and is not safe for concurrent
// use.
type collisionSet struct {
	claimed map[string]string
	exists  func(string) (bool, error)
}

func newCollisionSet() *collisionSet {
	return &collisionSet{
		claimed: make(map[string]string),
		exists:  fileutil.Exists,
	}
}

// claim reserves path for source. The first claimant wins; a later claimant
// or a path already present on disk gets a review reason instead.
func (c *collisionSet) claim(path, source string) (string, bool) {
	key := strings.ToLower(filepath.Clean(path))
	if owner, ok := c.claimed[key]; ok {
		return fmt.Sprintf("destination already planned for %s", filepath.Base(owner)), false
	}
	exists, err := c.exists(path)
	if err != nil {
		return fmt.Sprintf("cannot inspect destination: %s", fileutil.Describe(err)), false
	}
	if exists {
		return "destination already exists in library", false
	}
	c.claimed[key] = source
	return "", true
}
