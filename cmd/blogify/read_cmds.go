package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/pders01/blogify/internal/api"
	"github.com/pders01/blogify/internal/config"
	"github.com/pders01/blogify/internal/launcher"
	"github.com/pders01/blogify/internal/state"
	"github.com/pders01/blogify/internal/tui"
)

type listFlags struct {
	feed      bool
	tag       string
	page      int
	favorited bool
	raw       bool
	width     int
	limit     int
	profile   bool
}

var lists listFlags

func addReadCommands(root *cobra.Command) {
	articlesCmd := &cobra.Command{
		Use:   "articles",
		Short: "List articles from the global feed, your feed or a tag",
		Args:  cobra.NoArgs,
		RunE:  runArticles,
	}
	articlesCmd.Flags().BoolVar(&lists.feed, "feed", false, "Articles by authors you follow")
	articlesCmd.Flags().StringVar(&lists.tag, "tag", "", "Only articles with this tag")
	articlesCmd.Flags().IntVar(&lists.page, "page", 1, "Page number")

	tagsCmd := &cobra.Command{
		Use:   "tags",
		Short: "List popular tags",
		Args:  cobra.NoArgs,
		RunE:  runTags,
	}

	readCmd := &cobra.Command{
		Use:   "read <slug>",
		Short: "Show an article with its comments",
		Args:  cobra.ExactArgs(1),
		RunE:  runRead,
	}
	readCmd.Flags().BoolVar(&lists.raw, "raw", false, "Print markdown instead of rendering it")
	readCmd.Flags().IntVar(&lists.width, "width", 80, "Terminal width to wrap for")

	profileCmd := &cobra.Command{
		Use:   "profile <username>",
		Short: "Show a user and their articles",
		Args:  cobra.ExactArgs(1),
		RunE:  runProfile,
	}
	profileCmd.Flags().BoolVar(&lists.favorited, "favorited", false, "Articles the user favorited instead of wrote")
	profileCmd.Flags().IntVar(&lists.page, "page", 1, "Page number")

	searchCmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search recent articles locally",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runSearch,
	}
	searchCmd.Flags().IntVar(&lists.limit, "limit", 50, "How many recent articles to index before searching")

	openCmd := &cobra.Command{
		Use:   "open <slug>",
		Short: "Open an article, or with --profile a user, in the web frontend",
		Args:  cobra.ExactArgs(1),
		RunE:  runOpen,
	}
	openCmd.Flags().BoolVar(&lists.profile, "profile", false, "Treat the argument as a username")

	root.AddCommand(articlesCmd, tagsCmd, readCmd, profileCmd, searchCmd, openCmd)
}

// renderArticles prints a borderless table of articles.
func renderArticles(w io.Writer, articles []api.Article) {
	if len(articles) == 0 {
		fmt.Fprintln(w, "No articles are here... yet.")
		return
	}

	rows := make([][]string, 0, len(articles))
	for _, a := range articles {
		rows = append(rows, []string{a.Slug, a.Title, a.Author.Username, tui.Likes(a), tui.Hashtags(a.TagList)})
	}

	t := table.New().
		Border(lipgloss.HiddenBorder()).
		Headers("SLUG", "TITLE", "AUTHOR", "LIKES", "TAGS").
		Rows(rows...)
	fmt.Fprintln(w, t.Render())
}

// pageIndex converts a 1-based page flag to the stores' 0-based pages.
func pageIndex(page int) int {
	if page < 1 {
		return 0
	}
	return page - 1
}

func runArticles(cmd *cobra.Command, args []string) error {
	e, err := openEnv()
	if err != nil {
		return err
	}
	defer e.Close()

	home := state.NewHomeStore(e.client, e.cfg.UI.ArticlesPerPage)
	switch {
	case lists.feed:
		if err := e.requireAuth(); err != nil {
			return err
		}
		home.SetFeedTab(state.TabFeed)
	case lists.tag != "":
		home.SetCurrentTag(lists.tag)
	}
	q := home.SetCurrentPage(pageIndex(lists.page))

	var page *api.ArticleList
	switch q.Tab {
	case state.TabFeed:
		page, err = home.GetFeedArticles(cmd.Context(), q.Limit, q.Offset)
	default:
		page, err = home.GetGlobalArticles(cmd.Context(), q.Limit, q.Offset, q.Tag)
	}
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	renderArticles(out, page.Articles)
	fmt.Fprintln(out, tui.MsgPage(q.Page, home.Snapshot().PageCount(), page.ArticlesCount))
	return nil
}

func runTags(cmd *cobra.Command, args []string) error {
	e, err := openEnv()
	if err != nil {
		return err
	}
	defer e.Close()

	tags, err := state.NewHomeStore(e.client, e.cfg.UI.ArticlesPerPage).GetTags(cmd.Context())
	if err != nil {
		return err
	}
	for _, t := range tags {
		fmt.Fprintln(cmd.OutOrStdout(), t)
	}
	return nil
}

func runRead(cmd *cobra.Command, args []string) error {
	e, err := openEnv()
	if err != nil {
		return err
	}
	defer e.Close()

	store := state.NewArticleStore(e.client)
	slug := args[0]

	var (
		article  *api.Article
		comments []api.Comment
	)
	g, ctx := errgroup.WithContext(cmd.Context())
	g.Go(func() error {
		var err error
		article, err = store.GetArticle(ctx, slug)
		return err
	})
	g.Go(func() error {
		var err error
		comments, err = store.GetComments(ctx, slug)
		return err
	})
	if err := g.Wait(); err != nil {
		return err
	}

	md := tui.ArticleMarkdown(*article, comments)
	if lists.raw {
		fmt.Fprint(cmd.OutOrStdout(), md)
		return nil
	}

	renderer, err := tui.NewRenderer(tui.WrapWidth(lists.width, e.cfg.UI.Article))
	if err != nil {
		return fmt.Errorf("creating renderer: %w", err)
	}
	rendered, err := renderer.Render(md)
	if err != nil {
		return fmt.Errorf("rendering article: %w", err)
	}
	fmt.Fprint(cmd.OutOrStdout(), rendered)
	return nil
}

func runProfile(cmd *cobra.Command, args []string) error {
	e, err := openEnv()
	if err != nil {
		return err
	}
	defer e.Close()

	store := state.NewProfileStore(e.client, e.cfg.UI.ArticlesPerPage)
	username := args[0]
	if lists.favorited {
		store.SetActiveTab(state.TabFavorited)
	}
	q := store.SetCurrentPage(pageIndex(lists.page))

	var page *api.ArticleList
	g, ctx := errgroup.WithContext(cmd.Context())
	g.Go(func() error {
		_, err := store.GetProfile(ctx, username)
		return err
	})
	g.Go(func() error {
		var err error
		if q.Tab == state.TabFavorited {
			page, err = store.GetFavoritedArticles(ctx, username, q.Limit, q.Offset)
		} else {
			page, err = store.GetProfileArticles(ctx, username, q.Limit, q.Offset)
		}
		return err
	})
	if err := g.Wait(); err != nil {
		return err
	}

	snap := store.Snapshot()
	p := snap.Profile
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, p.Username)
	if p.Bio != "" {
		fmt.Fprintln(out, p.Bio)
	}
	if p.Following {
		fmt.Fprintln(out, "(following)")
	}
	fmt.Fprintln(out)
	renderArticles(out, page.Articles)
	fmt.Fprintln(out, tui.MsgPage(q.Page, snap.PageCount(), page.ArticlesCount))
	return nil
}

func runSearch(cmd *cobra.Command, args []string) error {
	e, err := openEnv()
	if err != nil {
		return err
	}
	defer e.Close()

	index, err := e.openIndex()
	if err != nil {
		return err
	}
	defer index.Close()

	home := state.NewHomeStore(e.client, lists.limit)
	page, err := home.GetGlobalArticles(cmd.Context(), lists.limit, 0, "")
	if err != nil {
		return err
	}
	if err := index.Index(page.Articles...); err != nil {
		return fmt.Errorf("indexing articles: %w", err)
	}

	results, err := index.Search(strings.Join(args, " "), lists.limit)
	if err != nil {
		return fmt.Errorf("searching: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, tui.MsgResultsCount(len(results)))
	for _, r := range results {
		fields := make([]string, 0, len(r.Matches))
		for _, m := range r.Matches {
			fields = append(fields, m.Field)
		}
		fmt.Fprintf(out, "%s  %s", r.Article.Slug, r.Article.Title)
		if len(fields) > 0 {
			fmt.Fprintf(out, "  [%s]", strings.Join(fields, ", "))
		}
		fmt.Fprintln(out)
	}
	return nil
}

func runOpen(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(flags.config)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	l := launcher.New(cfg)
	var u string
	if lists.profile {
		u, err = l.OpenProfile(args[0])
	} else {
		u, err = l.OpenArticle(args[0])
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Opened %s\n", u)
	return nil
}
