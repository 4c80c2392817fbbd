package dandan

import (
	"regexp"
	"strings"
)

// Anime is one search result with its episode list.
type Anime struct {
	Title    string    `json:"animeTitle"`
	Episodes []Episode `json:"episodes"`
}

// Episode is one downloadable comment feed.
type Episode struct {
	ID    int64  `json:"episodeId"`
	Title string `json:"episodeTitle"`
}

// DefaultPlatform is the bucket for episodes whose title carries no
// platform tag.
const DefaultPlatform = "【他】"

// movieTag marks film resources in episode titles.
const movieTag = "【电影】"

var (
	platformRE = regexp.MustCompile(`^[【\[].+?[\]】]`)
	cleanRE    = regexp.MustCompile(`^[【\[].+?[\]】]\s*`)
	typeTagRE  = regexp.MustCompile(`【(电影|动漫|其他)】`)
)

// Platform returns the leading bracketed source tag of the episode title,
// or [DefaultPlatform] when there is none.
func (e Episode) Platform() string {
	if m := platformRE.FindString(e.Title); m != "" {
		return m
	}
	return DefaultPlatform
}

// CleanTitle returns the episode title with its leading platform tag and
// any following whitespace stripped.
func (e Episode) CleanTitle() string {
	return cleanRE.ReplaceAllString(e.Title, "")
}

// TypeTag returns the resource type marker (film, series, other) found in
// the first episode title, or the empty string.
func (a Anime) TypeTag() string {
	if len(a.Episodes) == 0 {
		return ""
	}
	return typeTagRE.FindString(a.Episodes[0].Title)
}

// IsMovie reports whether the resource is a film.
func (a Anime) IsMovie() bool {
	return a.TypeTag() == movieTag
}

// PlatformTags returns the distinct platform tags across all episodes in
// first-seen order.
func (a Anime) PlatformTags() []string {
	var tags []string
	seen := make(map[string]struct{})
	for _, ep := range a.Episodes {
		p := ep.Platform()
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		tags = append(tags, p)
	}
	return tags
}

// EpisodesFor returns the episodes carrying the given platform tag, in
// feed order.
func (a Anime) EpisodesFor(platform string) []Episode {
	var eps []Episode
	for _, ep := range a.Episodes {
		if ep.Platform() == platform {
			eps = append(eps, ep)
		}
	}
	return eps
}

// Label builds the one-line display string for a search result: title,
// type tag and the concatenated platform tags.
func (a Anime) Label() string {
	var b strings.Builder
	b.WriteString(a.Title)
	if tag := a.TypeTag(); tag != "" {
		b.WriteString(" ")
		b.WriteString(tag)
	}
	if tags := a.PlatformTags(); len(tags) > 0 {
		b.WriteString(" ")
		b.WriteString(strings.Join(tags, ""))
	}
	return b.String()
}
