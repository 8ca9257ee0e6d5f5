package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/debemdeboas/archive-studio/internal/api"
	"github.com/debemdeboas/archive-studio/internal/form"
	"github.com/debemdeboas/archive-studio/internal/model"
	"github.com/debemdeboas/archive-studio/internal/repository"
)

func runPosts(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("posts", flag.ContinueOnError)
	siteFlag := fs.String("site", "", "site id")
	status := fs.String("status", "", "only posts with this status")
	page := fs.Int("page", 1, "page number")
	limit := fs.Int("limit", 20, "posts per page")
	if err := fs.Parse(args); err != nil {
		return err
	}

	site, err := a.site(*siteFlag)
	if err != nil {
		return err
	}

	posts, err := a.client.ListPosts(ctx, site, api.ListPostsInput{
		Status: model.PostStatus(*status),
		Page:   *page,
		Limit:  *limit,
	})
	if err != nil {
		return err
	}

	if len(posts) == 0 {
		a.printf("%s\n", mutedStyle.Render("No posts."))
		return nil
	}
	for _, p := range posts {
		a.printf("%-24s %-10s %-32s %s\n", p.ID, statusLabel(p.Status), p.Slug, p.Title)
	}
	return nil
}

func statusLabel(s model.PostStatus) string {
	if s == model.StatusPublished {
		return successStyle.Render(string(s))
	}
	return mutedStyle.Render(string(s))
}

// runNew creates a post from a markdown file with front matter.
func runNew(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("new", flag.ContinueOnError)
	siteFlag := fs.String("site", "", "site id")
	publish := fs.Bool("publish", false, "publish right away")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("usage: studio new [-site id] [-publish] <file.md>")
	}

	site, err := a.site(*siteFlag)
	if err != nil {
		return err
	}

	payload, _, err := repository.NewFileSource(fs.Arg(0)).Payload()
	if err != nil {
		return err
	}
	if *publish {
		payload.Status = model.StatusPublished
	}

	post, err := createPost(ctx, a.client, site, payload)
	if err != nil {
		return a.reportSaveError(err)
	}
	a.printf("%s\n", successStyle.Render(fmt.Sprintf("Created %s (%s)", post.ID, post.Status)))
	return nil
}

type postCreator interface {
	CreatePost(ctx context.Context, site model.SiteID, p model.PostPayload) (*model.Post, error)
}

// createPost validates p locally before sending it.
func createPost(ctx context.Context, c postCreator, site model.SiteID, p model.PostPayload) (*model.Post, error) {
	if errs := form.ValidatePost(p); errs != nil {
		return nil, errs
	}
	return c.CreatePost(ctx, site, p)
}

// reportSaveError prints field errors in form order, top to bottom. Anything
// that does not map to a field is returned as is.
func (a *app) reportSaveError(err error) error {
	return printFormErrors(a.out, err)
}

func printFormErrors(w io.Writer, err error) error {
	var errs form.Errors
	if !errors.As(err, &errs) {
		errs = form.FromAPIError(err)
	}
	if errs == nil {
		return err
	}

	fmt.Fprintln(w, errorStyle.Render("The post has errors:"))
	for _, f := range errs.Fields() {
		fmt.Fprintf(w, "  %s %s\n", fieldStyle.Render(string(f)), errs[f])
	}
	return fmt.Errorf("fix %s and try again", errs.Focus())
}

func runPublish(ctx context.Context, a *app, args []string) error {
	return setStatus(ctx, a, "publish", model.StatusPublished, args)
}

func runUnpublish(ctx context.Context, a *app, args []string) error {
	return setStatus(ctx, a, "unpublish", model.StatusDraft, args)
}

func setStatus(ctx context.Context, a *app, name string, status model.PostStatus, args []string) error {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	siteFlag := fs.String("site", "", "site id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("usage: studio %s [-site id] <post id>", name)
	}

	site, err := a.site(*siteFlag)
	if err != nil {
		return err
	}

	post, err := a.client.SetPostStatus(ctx, site, model.PostID(fs.Arg(0)), status)
	if err != nil {
		return err
	}
	a.printf("%s\n", successStyle.Render(fmt.Sprintf("%s is now %s", post.ID, post.Status)))
	return nil
}

func runDelete(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("delete", flag.ContinueOnError)
	siteFlag := fs.String("site", "", "site id")
	yes := fs.Bool("y", false, "do not ask for confirmation")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("usage: studio delete [-site id] [-y] <post id>")
	}

	site, err := a.site(*siteFlag)
	if err != nil {
		return err
	}
	id := model.PostID(fs.Arg(0))

	if !*yes && !a.confirm(fmt.Sprintf("Delete %s? [y/N] ", id)) {
		a.printf("%s\n", mutedStyle.Render("Kept."))
		return nil
	}

	if err := a.client.DeletePost(ctx, site, id); err != nil {
		return err
	}
	a.printf("%s\n", successStyle.Render(fmt.Sprintf("Deleted %s", id)))
	return nil
}

func (a *app) confirm(prompt string) bool {
	a.printf("%s", promptStyle.Render(prompt))
	line, _ := a.in.ReadString('\n')
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}

func runClick(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("click", flag.ContinueOnError)
	siteFlag := fs.String("site", "", "site id")
	postID := fs.String("post", "", "post the call-to-action belongs to")
	referrer := fs.String("referrer", "", "page the click came from")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("usage: studio click [-site id] [-post id] <cta id>")
	}

	site, err := a.site(*siteFlag)
	if err != nil {
		return err
	}

	return a.client.TrackCTAClick(ctx, site, model.CTAClick{
		CTAID:    fs.Arg(0),
		PostID:   model.PostID(*postID),
		Referrer: *referrer,
	})
}

// runImport creates one post per markdown file of a directory.
func runImport(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("import", flag.ContinueOnError)
	siteFlag := fs.String("site", "", "site id")
	publish := fs.Bool("publish", false, "publish every imported post")
	workers := fs.Int("workers", 4, "posts created concurrently")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("usage: studio import [-site id] [-publish] [-workers n] <dir>")
	}

	site, err := a.site(*siteFlag)
	if err != nil {
		return err
	}

	results, err := importDir(ctx, a.client, site, fs.Arg(0), *publish, *workers)
	if err != nil {
		return err
	}

	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
			a.log.Error().Err(r.Err).Str("file", r.File).Msg("Error importing post")
			a.printf("%s %s: %v\n", errorStyle.Render("✗"), r.File, r.Err)
			continue
		}
		a.printf("%s %s -> %s\n", successStyle.Render("✓"), r.File, r.ID)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d files were not imported", failed, len(results))
	}
	return nil
}

type importResult struct {
	File string
	ID   model.PostID
	Err  error
}

// importDir creates posts from the .md files of dir. A failing file does not
// stop the others. Results are ordered by file name.
func importDir(ctx context.Context, c postCreator, site model.SiteID, dir string, publish bool, workers int) ([]importResult, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading directory %s: %w", dir, err)
	}

	var files []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".md") {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)

	var (
		mu      sync.Mutex
		results = make([]importResult, 0, len(files))
	)

	g, ctx := errgroup.WithContext(ctx)
	if workers > 0 {
		g.SetLimit(workers)
	}
	for _, name := range files {
		g.Go(func() error {
			r := importResult{File: name}
			payload, _, err := repository.NewFileSource(filepath.Join(dir, name)).Payload()
			if err == nil {
				if publish {
					payload.Status = model.StatusPublished
				}
				var post *model.Post
				if post, err = createPost(ctx, c, site, payload); err == nil {
					r.ID = post.ID
				}
			}
			r.Err = err

			mu.Lock()
			results = append(results, r)
			mu.Unlock()

			// A lost session fails every remaining file the same way.
			if api.IsSignInRequired(err) {
				return err
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Slice(results, func(i, j int) bool { return results[i].File < results[j].File })
	return results, nil
}
