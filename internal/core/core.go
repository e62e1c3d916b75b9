// Package core holds the domain types shared by every stage of a clustering
// run: articles as ingested, the in-memory vector representation, and the
// event record that gets persisted at the end of a run.
package core

import "time"

// NamedScore is a single scored term, used for keywords/when/where/who.
type NamedScore struct {
	Word  string `json:"word"`
	Score string `json:"score"` // two-decimal fixed, e.g. "0.42"
}

// NERMention is a single named-entity mention aggregate (person/location/org).
type NERMention struct {
	Mention   string `json:"mention"`
	Count     string `json:"count"` // two-decimal fixed
	Score     string `json:"score"` // two-decimal fixed, L2-normalised
	LinkedURL string `json:"linkedURL"`
}

// ExtractedItem is a raw, unaggregated scored term as it arrives on an
// article (keywords/when/where/who before cluster-level aggregation).
type ExtractedItem struct {
	Word  string  `json:"word"`
	Score float64 `json:"score"`
}

// RawMention is a raw, unaggregated NER mention as it arrives on an article.
type RawMention struct {
	Mention   string `json:"mention"`
	Count     int    `json:"count"`
	LinkedURL string `json:"linkedURL"`
}

// Article is one input news item. It is immutable within a run.
type Article struct {
	ID             string    `json:"id"`
	StemmedTitle   string    `json:"stemmedTitle"`
	StemmedContent string    `json:"stemmedContent"`
	Content        string    `json:"content"`
	Title          string    `json:"title"`
	Publisher      string    `json:"publisher"`
	Category       string    `json:"category"`
	URL            string    `json:"url"`
	Image          string    `json:"image"`
	PublishTime    time.Time `json:"publishTime"`
	CrawlTime      time.Time `json:"crawlTime"`

	Keywords []ExtractedItem `json:"keywords"`
	When     []ExtractedItem `json:"when"`
	Where    []ExtractedItem `json:"where"`
	Who      []ExtractedItem `json:"who"`

	Persons       []RawMention `json:"persons"`
	Locations     []RawMention `json:"locations"`
	Organizations []RawMention `json:"organizations"`
}

// StemmedText is the concatenation used for both eligibility checks and
// vectorisation: stemmed title, a space, stemmed content.
func (a Article) StemmedText() string {
	return a.StemmedTitle + " " + a.StemmedContent
}

// ArticleRef is one member of an event's article list, carrying its
// cluster-relative similarity score.
type ArticleRef struct {
	ID          string  `json:"id"`
	Publisher   string  `json:"publisher"`
	Category    string  `json:"category"`
	Title       string  `json:"title"`
	URL         string  `json:"url"`
	PublishTime string  `json:"publishTime"`
	Image       string  `json:"image"`
	Score       float64 `json:"score"`
}

// KeyNews is the ArticleRef for a cluster's representative article, plus
// a short abstract.
type KeyNews struct {
	ArticleRef
	Abstract string `json:"abstract"`
}

// RelatedEvent is an entry in an event's relatedEvents list.
type RelatedEvent struct {
	ID    string  `json:"id"`
	Score float64 `json:"score"`
}

// Event is the persisted record for one cluster. Extra carries any fields
// present on a loaded record that this version of the engine does not know
// about, so upserts never silently drop data a caller depends on.
type Event struct {
	ID       string `json:"id"`
	Created  string `json:"created"`
	Updated  string `json:"updated"`
	Closed   bool   `json:"closed"`
	ClosedAt string `json:"closedAt,omitempty"`

	Count    int          `json:"count"`
	Label    string       `json:"label"`
	KeyNews  KeyNews      `json:"keynews"`
	Articles []ArticleRef `json:"articles"`

	Keywords []NamedScore `json:"keywords"`
	When     []NamedScore `json:"when"`
	Where    []NamedScore `json:"where"`
	Who      []NamedScore `json:"who"`

	Persons       []NERMention `json:"persons"`
	Locations     []NERMention `json:"locations"`
	Organizations []NERMention `json:"organizations"`

	Father        string         `json:"father"` // "-1" when absent
	Childrens     []string       `json:"childrens"`
	RelatedEvents []RelatedEvent `json:"relatedEvents"`

	Extra map[string]any `json:"-"`
}

// IsClosed reports closure under the dual bool/timestamp contract older
// records carry: any non-empty ClosedAt counts as closed regardless of the
// Closed bool.
func (e Event) IsClosed() bool {
	return e.Closed || e.ClosedAt != ""
}

const timeLayout = "2006-01-02 15:04:05"

// FormatTime renders t in the canonical run-window string form.
func FormatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

// ParseTime parses the canonical run-window string form.
func ParseTime(s string) (time.Time, error) {
	return time.Parse(timeLayout, s)
}

// CreateEventID strips separators from a canonical time string to yield the
// run prefix that names a run's log files and debug dump. MintEventID does
// not call it; it formats its own timestamp prefix.
func CreateEventID(startTime string) string {
	out := make([]byte, 0, len(startTime))
	for _, r := range startTime {
		switch r {
		case '-', ':', ' ':
			continue
		default:
			out = append(out, byte(r))
		}
	}
	return string(out)
}
