package reddit

import (
	"fmt"
	"time"
)

// Sort orders a subreddit listing.
type Sort string

const (
	SortHot    Sort = "hot"
	SortNew    Sort = "new"
	SortTop    Sort = "top"
	SortRising Sort = "rising"
)

// ParseSort validates a listing sort name.
func ParseSort(s string) (Sort, error) {
	switch Sort(s) {
	case SortHot, SortNew, SortTop, SortRising:
		return Sort(s), nil
	}
	return "", fmt.Errorf("invalid sort %q (want hot, new, top or rising)", s)
}

// Timespan filters "top" listings. It is ignored for other sorts.
type Timespan string

const (
	TimeHour  Timespan = "hour"
	TimeDay   Timespan = "day"
	TimeWeek  Timespan = "week"
	TimeMonth Timespan = "month"
	TimeYear  Timespan = "year"
	TimeAll   Timespan = "all"
)

// ParseTimespan validates a top-listing time filter. Empty input is valid
// and means no filter.
func ParseTimespan(s string) (Timespan, error) {
	switch Timespan(s) {
	case "", TimeHour, TimeDay, TimeWeek, TimeMonth, TimeYear, TimeAll:
		return Timespan(s), nil
	}
	return "", fmt.Errorf("invalid timespan %q (want hour, day, week, month, year or all)", s)
}

// Post is one subreddit submission.
type Post struct {
	ID          string
	Subreddit   string
	Title       string
	SelfText    string
	Author      string
	URL         string
	Permalink   string
	Score       int
	NumComments int
	CreatedUTC  float64
	IsSelf      bool
	FetchedAt   time.Time
}

// PermalinkURL returns the absolute reddit.com URL for the post.
func (p *Post) PermalinkURL() string {
	if p.Permalink == "" {
		return p.URL
	}
	return defaultBaseURL + p.Permalink
}

// Comment is one node of a post's comment tree. A placeholder node stands
// in for collapsed replies rather than an actual comment: it carries only a
// folded-reply count and depth, never a body, author or children.
type Comment struct {
	ID         string
	Author     string
	Body       string
	Score      int
	CreatedUTC float64
	Depth      int
	ParentID   string
	Children   []*Comment
	More       bool
	MoreCount  int
}

// Placeholder reports whether the node is a collapsed-replies marker.
func (c *Comment) Placeholder() bool {
	return c.More
}
