package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/pders01/blogify/internal/api"
	"github.com/pders01/blogify/internal/frontmatter"
	"github.com/pders01/blogify/internal/state"
	"github.com/pders01/blogify/internal/storage"
	"github.com/pders01/blogify/internal/validation"
)

type writeFlags struct {
	out    string
	dryRun bool
}

var writes writeFlags

func addWriteCommands(root *cobra.Command) {
	publishCmd := &cobra.Command{
		Use:   "publish <file>",
		Short: "Publish a markdown file with +++ TOML front matter",
		Long: `Publish reads a markdown file whose header carries title, description
and tags between +++ lines. When the header names a slug the existing
article is updated instead of a new one created.`,
		Args: cobra.ExactArgs(1),
		RunE: runPublish,
	}
	publishCmd.Flags().BoolVar(&writes.dryRun, "dry-run", false, "Validate the file without publishing")

	draftsCmd := &cobra.Command{
		Use:   "drafts",
		Short: "List unsent editor drafts",
		Args:  cobra.NoArgs,
		RunE:  runDrafts,
	}

	exportCmd := &cobra.Command{
		Use:   "export <key>",
		Short: "Write a draft out as a publishable markdown file",
		Args:  cobra.ExactArgs(1),
		RunE:  runDraftExport,
	}
	exportCmd.Flags().StringVarP(&writes.out, "output", "o", "", "File to write (default stdout)")

	discardCmd := &cobra.Command{
		Use:   "discard <key>",
		Short: "Delete a draft",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv()
			if err != nil {
				return err
			}
			defer e.Close()

			if _, err := e.db.GetDraft(args[0]); err != nil {
				return err
			}
			if err := e.db.DeleteDraft(args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Discarded draft %s\n", args[0])
			return nil
		},
	}

	draftsCmd.AddCommand(exportCmd, discardCmd)
	root.AddCommand(publishCmd, draftsCmd)
}

// checkArticle validates a draft the way the editor does before sending it.
func checkArticle(draft *api.ArticleDraft) error {
	draft.TagList = validation.NormalizeTags(draft.TagList)
	form := validation.ArticleForm{
		Title:       draft.Title,
		Description: draft.Description,
		Body:        draft.Body,
		Tags:        draft.TagList,
	}
	fields, err := validation.Validate(&form)
	if err != nil {
		return err
	}
	if fields != nil {
		return formError(fields)
	}
	draft.Title, draft.Description, draft.Body = form.Title, form.Description, form.Body
	return nil
}

func runPublish(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("reading %s: %w", args[0], err)
	}
	doc, err := frontmatter.Parse(data)
	if err != nil {
		return fmt.Errorf("%s: %w", args[0], err)
	}

	draft := doc.Draft()
	if err := checkArticle(&draft); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if writes.dryRun {
		fmt.Fprintf(out, "%s is ready to publish\n", args[0])
		return nil
	}

	e, err := openEnv()
	if err != nil {
		return err
	}
	defer e.Close()
	if err := e.requireAuth(); err != nil {
		return err
	}

	store := state.NewArticleStore(e.client)
	var article *api.Article
	if doc.Meta.Slug != "" {
		article, err = store.UpdateArticle(cmd.Context(), doc.Meta.Slug, draft)
	} else {
		article, err = store.CreateArticle(cmd.Context(), draft)
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Published %s\n", article.Slug)
	return nil
}

func runDrafts(cmd *cobra.Command, args []string) error {
	e, err := openEnv()
	if err != nil {
		return err
	}
	defer e.Close()

	drafts, err := e.db.GetAllDrafts()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(drafts) == 0 {
		fmt.Fprintln(out, "No drafts")
		return nil
	}
	for _, d := range drafts {
		title := d.Title
		if title == "" {
			title = "(untitled)"
		}
		fmt.Fprintf(out, "%s\t%s\t%s\n", d.Key, title, d.UpdatedAt.Local().Format(time.DateTime))
	}
	return nil
}

// draftDocument converts a stored draft. Drafts of existing articles keep
// their slug so publishing the file updates the article.
func draftDocument(d *storage.Draft) frontmatter.Document {
	doc := frontmatter.Document{
		Meta: frontmatter.Meta{
			Title:       d.Title,
			Description: d.Description,
			Tags:        d.Tags,
		},
		Body: d.Body,
	}
	if d.Key != storage.NewDraftKey {
		doc.Meta.Slug = d.Key
	}
	return doc
}

func runDraftExport(cmd *cobra.Command, args []string) error {
	e, err := openEnv()
	if err != nil {
		return err
	}
	defer e.Close()

	d, err := e.db.GetDraft(args[0])
	if errors.Is(err, storage.ErrDraftNotFound) {
		return fmt.Errorf("no draft %q: see 'blogify drafts'", args[0])
	} else if err != nil {
		return err
	}

	data, err := frontmatter.Format(draftDocument(d))
	if err != nil {
		return err
	}

	if writes.out == "" {
		_, err = cmd.OutOrStdout().Write(data)
		return err
	}
	if err := os.WriteFile(writes.out, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", writes.out, err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", writes.out)
	return nil
}
