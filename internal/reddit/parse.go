package reddit

import "encoding/json"

// parseComment converts one listing child into a tree node. "more" children
// become placeholder nodes carrying the collapsed reply count. Unknown kinds
// and malformed payloads are skipped, never fatal.
func parseComment(item thing, maxDepth int) (*Comment, bool) {
	switch item.Kind {
	case kindMore:
		var d moreData
		if err := json.Unmarshal(item.Data, &d); err != nil {
			return nil, false
		}
		return &Comment{ID: d.ID, Depth: d.Depth, More: true, MoreCount: d.Count}, true

	case kindComment:
		var d commentData
		if err := json.Unmarshal(item.Data, &d); err != nil {
			return nil, false
		}

		node := &Comment{
			ID:         d.ID,
			Author:     d.Author,
			Body:       d.Body,
			Score:      d.Score,
			CreatedUTC: d.CreatedUTC,
			Depth:      d.Depth,
			ParentID:   d.ParentID,
		}
		if node.Author == "" {
			node.Author = "[deleted]"
		}

		// replies is "" for a leaf and a nested listing otherwise.
		// Recursion stops at maxDepth even when deeper data is present.
		if replies, ok := decodeReplies(d.Replies); ok && d.Depth < maxDepth {
			for _, child := range replies.Data.Children {
				if parsed, ok := parseComment(child, maxDepth); ok {
					node.Children = append(node.Children, parsed)
				}
			}
		}
		return node, true

	default:
		return nil, false
	}
}

// decodeReplies handles the replies field's two shapes: the empty-string
// leaf sentinel and a nested listing object.
func decodeReplies(raw json.RawMessage) (listing, bool) {
	if len(raw) == 0 || raw[0] == '"' {
		return listing{}, false
	}
	var l listing
	if err := json.Unmarshal(raw, &l); err != nil {
		return listing{}, false
	}
	return l, true
}

type commentData struct {
	ID         string          `json:"id"`
	Author     string          `json:"author"`
	Body       string          `json:"body"`
	Score      int             `json:"score"`
	CreatedUTC float64         `json:"created_utc"`
	Depth      int             `json:"depth"`
	ParentID   string          `json:"parent_id"`
	Replies    json.RawMessage `json:"replies"`
}

type moreData struct {
	ID    string `json:"id"`
	Count int    `json:"count"`
	Depth int    `json:"depth"`
}
