package reddit

import (
	"fmt"
	"time"
)

// Mock fixtures for offline mode. Deterministic so UI and tests can rely
// on the exact shapes.

func mockPosts(subreddit string) []Post {
	now := time.Now()
	posts := make([]Post, 0, 5)
	for i := 0; i < 5; i++ {
		posts = append(posts, Post{
			ID:          fmt.Sprintf("mock_%d", i),
			Subreddit:   subreddit,
			Title:       fmt.Sprintf("[Mock] Sample post %d in r/%s", i+1, subreddit),
			SelfText:    fmt.Sprintf("This is mock post body #%d.", i+1),
			Author:      fmt.Sprintf("mock_user_%d", i),
			URL:         fmt.Sprintf("https://reddit.com/r/%s/mock_%d", subreddit, i),
			Permalink:   fmt.Sprintf("/r/%s/comments/mock_%d/sample_post/", subreddit, i),
			Score:       (i + 1) * 100,
			NumComments: (i + 1) * 5,
			CreatedUTC:  1700000000.0 + float64(i)*3600,
			IsSelf:      true,
			FetchedAt:   now,
		})
	}
	return posts
}

func mockComments() []*Comment {
	return []*Comment{
		{
			ID:         "mock_c1",
			Author:     "commenter_1",
			Body:       "This is a top-level mock comment.",
			Score:      50,
			CreatedUTC: 1700000000.0,
			Depth:      0,
			ParentID:   "t3_mock_0",
			Children: []*Comment{
				{
					ID:         "mock_c2",
					Author:     "commenter_2",
					Body:       "This is a reply to the first comment.",
					Score:      20,
					CreatedUTC: 1700001000.0,
					Depth:      1,
					ParentID:   "t1_mock_c1",
				},
			},
		},
		{
			ID:         "mock_c3",
			Author:     "commenter_3",
			Body:       "Another top-level comment.",
			Score:      30,
			CreatedUTC: 1700002000.0,
			Depth:      0,
			ParentID:   "t3_mock_0",
		},
		{
			ID:         "mock_c4",
			Author:     "[deleted]",
			Body:       "[removed]",
			Score:      0,
			CreatedUTC: 1700003000.0,
			Depth:      0,
			ParentID:   "t3_mock_0",
		},
	}
}
