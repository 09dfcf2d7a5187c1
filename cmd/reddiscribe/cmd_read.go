package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/pkg/browser"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"reddiscribe/internal/reddit"
)

var (
	postsSort  string
	postsTime  string
	postsLimit int
	postsOpen  bool

	readCommentSort string
	readComments    int
	readNoSummary   bool
	readNoComments  bool
	readRefresh     bool
	readOpen        bool
)

var postsCmd = &cobra.Command{
	Use:   "posts [subreddit]",
	Short: "List posts from a subreddit",
	Long: `Lists one page of posts. With no subreddit argument the first
configured subreddit is used.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runPosts,
}

var readCmd = &cobra.Command{
	Use:   "read <subreddit> <post>",
	Short: "Read a post with its summary and comments",
	Long: `Reads one post. The post argument is either a 1-based index into the
subreddit's current listing or a post ID from an earlier fetch.

The summary streams as it is generated and is cached per locale;
--refresh discards the cached summary first.`,
	Args: cobra.ExactArgs(2),
	RunE: runRead,
}

func init() {
	postsCmd.Flags().StringVar(&postsSort, "sort", "", "Listing sort: hot, new, top or rising (default from config)")
	postsCmd.Flags().StringVar(&postsTime, "time", "", "Timespan for top: hour, day, week, month, year or all")
	postsCmd.Flags().IntVar(&postsLimit, "limit", 0, "Number of posts (default from config)")
	postsCmd.Flags().BoolVar(&postsOpen, "open", false, "Open the subreddit in the browser")

	readCmd.Flags().StringVar(&readCommentSort, "comment-sort", "", "Comment sort: best, top, new or controversial")
	readCmd.Flags().IntVar(&readComments, "comments", 0, "Number of comments (default from config)")
	readCmd.Flags().BoolVar(&readNoSummary, "no-summary", false, "Skip the summary")
	readCmd.Flags().BoolVar(&readNoComments, "no-comments", false, "Skip the comment tree")
	readCmd.Flags().BoolVar(&readRefresh, "refresh", false, "Discard the cached summary and regenerate")
	readCmd.Flags().BoolVar(&readOpen, "open", false, "Open the post in the browser")
}

func runPosts(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	cfg := theApp.Config()
	subreddit, err := pickSubreddit(args)
	if err != nil {
		return err
	}

	sortName := postsSort
	if sortName == "" {
		sortName = cfg.Reddit.DefaultSort
	}
	sort, err := reddit.ParseSort(sortName)
	if err != nil {
		return err
	}
	timespan, err := reddit.ParseTimespan(postsTime)
	if err != nil {
		return err
	}
	limit := postsLimit
	if limit <= 0 {
		limit = cfg.Reddit.PostLimit
	}

	// Progress goes to stderr so the listing stays pipeable.
	fmt.Fprintln(os.Stderr, theApp.Bundle().T("reader.loading"))
	posts, err := theApp.Reader().Posts(ctx, subreddit, sort, timespan, limit)
	if err != nil {
		return humanize(err)
	}

	out, err := theApp.Renderer().PostList(subreddit, sort, posts)
	if err != nil {
		return err
	}
	fmt.Print(out)

	if postsOpen {
		return browser.OpenURL(fmt.Sprintf("https://www.reddit.com/r/%s/%s", subreddit, sort))
	}
	return nil
}

func pickSubreddit(args []string) (string, error) {
	if len(args) > 0 {
		return args[0], nil
	}
	subs := theApp.Config().Reddit.Subreddits
	if len(subs) == 0 {
		return "", fmt.Errorf("no subreddit given and none configured")
	}
	return subs[0], nil
}

func runRead(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	post, err := theApp.Post(ctx, args[0], args[1])
	if err != nil {
		return humanize(err)
	}

	out, err := theApp.Renderer().Post(post)
	if err != nil {
		return err
	}
	fmt.Print(out)

	if readOpen {
		if err := theApp.OpenInBrowser(post); err != nil {
			logger.Warn("could not open browser", zap.Error(err))
		}
	}

	if !readNoSummary {
		if err := streamSummary(ctx, post); err != nil {
			return err
		}
	}
	if !readNoComments {
		if err := showComments(ctx, args[0], post.ID); err != nil {
			return err
		}
	}
	return nil
}

func streamSummary(ctx context.Context, post *reddit.Post) error {
	bundle := theApp.Bundle()
	if readRefresh {
		if err := theApp.Reader().Invalidate(post.ID); err != nil {
			return err
		}
		fmt.Fprintln(os.Stderr, bundle.T("reader.generating"))
	}

	fmt.Printf("\n── %s ──\n", bundle.T("reader.summary"))

	s := theApp.Reader().Summarize(ctx, post)
	var streamed strings.Builder
	for frag := range s.Fragments() {
		fmt.Print(frag)
		streamed.WriteString(frag)
	}
	fmt.Println()

	out := s.Outcome()
	if out.Err != nil {
		return humanize(out.Err)
	}
	if out.Contaminated {
		fmt.Println(bundle.T("status.contaminated"))
	}
	if out.Complete && out.Text != streamed.String() {
		// A language retry replaced the streamed attempt; show the
		// final text as its own block.
		block, err := theApp.Renderer().Summary(out.Text)
		if err != nil {
			return err
		}
		fmt.Println()
		fmt.Print(block)
	}
	return nil
}

func showComments(ctx context.Context, subreddit, postID string) error {
	limit := readComments
	if limit <= 0 {
		limit = theApp.Config().Reddit.CommentLimit
	}

	comments, err := theApp.Reader().Comments(ctx, subreddit, postID, readCommentSort, limit)
	if err != nil {
		return humanize(err)
	}

	fmt.Printf("\n── %s ──\n", theApp.Bundle().T("reader.comments"))
	fmt.Print(theApp.Renderer().Comments(comments))
	return nil
}
