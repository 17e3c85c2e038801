package identification

import (
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const (
	tvParseConfidence       = 0.9
	movieParseConfidence    = 0.75
	fallbackParseConfidence = 0.3
	minEpisodeTitleLength   = 2
	earliestReleaseYear     = 1900
)

// ParsedGuess is everything that can be read from a filename without asking
// the catalog.
type ParsedGuess struct {
	RawFilename     string  `json:"raw_filename"`
	Title           string  `json:"title"`
	Year            *int    `json:"year,omitempty"`
	Season          *int    `json:"season,omitempty"`
	Episode         *int    `json:"episode,omitempty"`
	EpisodeTitle    string  `json:"episode_title,omitempty"`
	ParseConfidence float64 `json:"parse_confidence"`
}

// HasEpisode reports whether both season and episode were parsed.
func (g ParsedGuess) HasEpisode() bool {
	return g.Season != nil && g.Episode != nil
}

// YearValue returns the parsed year or 0.
func (g ParsedGuess) YearValue() int {
	if g.Year == nil {
		return 0
	}
	return *g.Year
}

// Episode markers, most specific first. Each pattern requires a separator in
// front of the marker and captures season then episode. A trailing second
// episode ("S01E01E02") is consumed and ignored.
var episodePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)[.\s_-]S(\d{1,2})[\s._-]?E(\d{1,3})(?:[\s._-]?E\d{1,3})?`),
	regexp.MustCompile(`(?i)[.\s_-]Season[\s._-]?(\d{1,2})[\s._-]?Episode[\s._-]?(\d{1,3})`),
	regexp.MustCompile(`(?i)[.\s_-](\d{1,2})x(\d{1,3})`),
}

var digitRun = regexp.MustCompile(`\d+`)

// bracketTokens are stripped from title text but not masked before the
// episode search, since "[S01E02]" is still a usable marker.
var bracketTokens = []*regexp.Regexp{
	regexp.MustCompile(`\[[^\]]*\]`),
	regexp.MustCompile(`\{[^}]*\}`),
	regexp.MustCompile(`\([^\d()]*\)`),
}

// releaseTokens cover resolution, source, codec, audio, edition flags and
// well-known groups.
var releaseTokens = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(480p|576p|720p|1080p|1080i|2160p|4k|uhd|hdr10|hdr|10bit|8bit)\b`),
	regexp.MustCompile(`(?i)\b(bluray|blu-ray|bdrip|brrip|dvdrip|webrip|web-dl|webdl|hdtv|hdrip|amzn)\b`),
	regexp.MustCompile(`(?i)\b(x264|x265|h\.?264|h\.?265|hevc|avc|xvid|divx)\b`),
	regexp.MustCompile(`(?i)\b(aac2?\.?0?|e?ac3|ddp?5\.1|dts-hd|dts|truehd|atmos|flac|mp3)\b`),
	regexp.MustCompile(`(?i)\b(remux|repack|proper|extended|unrated|internal|limited|directors[\s.]cut)\b`),
	regexp.MustCompile(`(?i)\b(yts|yify|rarbg|ettv|eztv|sparks|geckos|ntg)\b`),
	regexp.MustCompile(`(?i)\b(multi|dual|complete)\b`),
}

// gluedAudioCodec matches an audio layout run into a codec ("DD5.1x264"),
// which would otherwise read as a "1x264" episode marker.
var gluedAudioCodec = regexp.MustCompile(`(?i)(?:ddp?|aac|e?ac3|dts)?\d\.\d(?:x|h\.?)26[45]`)

var (
	trailingGroup = regexp.MustCompile(`(?:^|\s)-[A-Za-z0-9]+$`)
	separatorRun  = regexp.MustCompile(`[._\-\s]+`)
)

// ParseFilename extracts a guess from a file name. It never fails: a name with
// no recognizable markers becomes a low-confidence title-only guess, and an
// empty name yields confidence 0. The same input always yields the same guess.
func ParseFilename(name string) ParsedGuess {
	base := filepath.Base(strings.TrimSpace(name))
	if base == "." || base == string(filepath.Separator) {
		base = ""
	}
	stem := stripExtension(base)

	if guess, ok := parseEpisode(stem, maskReleaseTokens(stem)); ok {
		guess.RawFilename = base
		return guess
	}
	if guess, ok := parseMovie(stem); ok {
		guess.RawFilename = base
		return guess
	}

	guess := ParsedGuess{RawFilename: base, Title: cleanTitle(stem, true)}
	if guess.Title != "" {
		guess.ParseConfidence = fallbackParseConfidence
	}
	return guess
}

// maskReleaseTokens blanks release tokens with spaces of the same byte length,
// so offsets found in the result index the original stem.
func maskReleaseTokens(stem string) string {
	blank := func(m string) string { return strings.Repeat(" ", len(m)) }
	masked := gluedAudioCodec.ReplaceAllStringFunc(stem, blank)
	for _, pattern := range releaseTokens {
		masked = pattern.ReplaceAllStringFunc(masked, blank)
	}
	return masked
}

// parseEpisode searches masked for an episode marker and reads the title and
// numbers from stem at the same offsets.
func parseEpisode(stem, masked string) (ParsedGuess, bool) {
	for _, pattern := range episodePatterns {
		loc := pattern.FindStringSubmatchIndex(masked)
		if loc == nil {
			continue
		}
		if isCodecMarker(stem[loc[4]-1 : loc[5]]) {
			continue
		}
		season, errSeason := strconv.Atoi(stem[loc[2]:loc[3]])
		episode, errEpisode := strconv.Atoi(stem[loc[4]:loc[5]])
		if errSeason != nil || errEpisode != nil || episode < 1 {
			continue
		}
		// A digit right after the marker means it was part of something
		// longer, like a resolution.
		if loc[1] < len(stem) && isDigit(stem[loc[1]]) {
			continue
		}

		titlePart := stem[:loc[0]]
		guess := ParsedGuess{
			Season:          &season,
			Episode:         &episode,
			ParseConfidence: tvParseConfidence,
		}
		if year, start, ok := findYear(titlePart); ok {
			guess.Year = &year
			titlePart = titlePart[:start]
		}
		guess.Title = cleanTitle(titlePart, false)
		if tail := cleanTitle(stem[loc[1]:], true); len([]rune(tail)) >= minEpisodeTitleLength {
			guess.EpisodeTitle = tail
		}
		return guess, true
	}
	return ParsedGuess{}, false
}

func parseMovie(stem string) (ParsedGuess, bool) {
	year, start, ok := findYear(stem)
	if !ok {
		return ParsedGuess{}, false
	}
	title := cleanTitle(stem[:start], false)
	if title == "" {
		return ParsedGuess{}, false
	}
	return ParsedGuess{
		Title:           title,
		Year:            &year,
		ParseConfidence: movieParseConfidence,
	}, true
}

// findYear returns the last plausible release year in value that is bounded
// by non-digits and preceded by some title text, along with its offset.
func findYear(value string) (int, int, bool) {
	latest := time.Now().Year() + 1
	matches := digitRun.FindAllStringIndex(value, -1)
	for i := len(matches) - 1; i >= 0; i-- {
		start, end := matches[i][0], matches[i][1]
		if end-start != 4 || start == 0 {
			continue
		}
		if !isYearBoundary(value[start-1]) {
			continue
		}
		if end < len(value) && !isYearBoundary(value[end]) {
			continue
		}
		year, err := strconv.Atoi(value[start:end])
		if err != nil || year < earliestReleaseYear || year > latest {
			continue
		}
		return year, start, true
	}
	return 0, 0, false
}

func isYearBoundary(b byte) bool {
	switch b {
	case '.', ' ', '_', '-', '(', ')', '[', ']':
		return true
	}
	return false
}

func isCodecMarker(value string) bool {
	switch strings.ToLower(value) {
	case "x264", "x265":
		return true
	}
	return false
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}

// cleanTitle strips release tokens and separators. When stripGroup is set a
// trailing "-GROUP" suffix left behind by a removed token is also dropped.
func cleanTitle(value string, stripGroup bool) string {
	for _, pattern := range bracketTokens {
		value = pattern.ReplaceAllString(value, " ")
	}
	for _, pattern := range releaseTokens {
		value = pattern.ReplaceAllString(value, " ")
	}
	value = strings.TrimRight(value, " ")
	if stripGroup {
		value = trailingGroup.ReplaceAllString(value, "")
	}
	value = strings.TrimSpace(separatorRun.ReplaceAllString(value, " "))
	value = strings.Trim(value, "()[] ")
	if value == "" {
		return ""
	}
	if isUniformCase(value) {
		// Casers are stateful, so one per call.
		return cases.Title(language.Und).String(value)
	}
	return value
}

// isUniformCase reports whether every cased letter in value is lower case, or
// every one is upper case. Intentionally mixed casing is preserved.
func isUniformCase(value string) bool {
	var lower, upper int
	for _, r := range value {
		switch {
		case unicode.IsLower(r):
			lower++
		case unicode.IsUpper(r):
			upper++
		}
	}
	if lower == 0 && upper == 0 {
		return false
	}
	return lower == 0 || upper == 0
}

// stripExtension removes a trailing extension that contains a letter, so
// "Movie.1999" keeps its year while "Movie.1999.mkv" loses ".mkv".
func stripExtension(base string) string {
	ext := filepath.Ext(base)
	if ext == "" || len(ext) > 6 || ext == base {
		return base
	}
	for _, r := range ext[1:] {
		if unicode.IsLetter(r) {
			return strings.TrimSuffix(base, ext)
		}
	}
	return base
}
