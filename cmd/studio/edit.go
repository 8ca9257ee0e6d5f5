package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/debemdeboas/archive-studio/internal/config"
	"github.com/debemdeboas/archive-studio/internal/draft"
	"github.com/debemdeboas/archive-studio/internal/form"
	"github.com/debemdeboas/archive-studio/internal/model"
	"github.com/debemdeboas/archive-studio/internal/navguard"
	"github.com/debemdeboas/archive-studio/internal/preview"
	"github.com/debemdeboas/archive-studio/internal/render"
	"github.com/debemdeboas/archive-studio/internal/repository"
)

const editHelp = `commands:
  save      save now, creating the post if needed
  publish   save and publish
  status    show the save state
  quit      leave, asks first when there are unsaved changes
  discard   leave without saving
`

// validatingStore rejects payloads the server would refuse before they are
// sent, so a timer-driven save never creates an invalid post.
type validatingStore struct {
	draft.Store
}

func (s validatingStore) Create(ctx context.Context, p model.PostPayload) (model.PostID, error) {
	if errs := form.ValidatePost(p); errs != nil {
		return "", errs
	}
	return s.Store.Create(ctx, p)
}

func (s validatingStore) Update(ctx context.Context, id model.PostID, p model.PostPayload) error {
	if errs := form.ValidatePost(p); errs != nil {
		return errs
	}
	return s.Store.Update(ctx, id, p)
}

type statusSetter interface {
	SetPostStatus(ctx context.Context, site model.SiteID, id model.PostID, status model.PostStatus) (*model.Post, error)
}

// editSession reacts to the commands typed while a post is being edited.
type editSession struct {
	site     model.SiteID
	posts    statusSetter
	coord    *draft.Coordinator
	registry *navguard.Registry
	guard    *navguard.Handle
	out      io.Writer
}

func newEditSession(site model.SiteID, posts statusSetter, store draft.Store, opts draft.Options, location string, out io.Writer) *editSession {
	s := &editSession{
		site:     site,
		posts:    posts,
		registry: navguard.NewRegistry(navguard.NewHistory("studio://posts", location)),
		out:      out,
	}
	s.guard = s.registry.Register(func(navguard.Attempt) {
		fmt.Fprintln(s.out, warnStyle.Render(config.ErrUnsavedChangesLeave+": type save first, or discard to leave anyway"))
	})

	opts.OnDirtyChange = func(dirty bool) { s.guard.SetDirty(dirty) }
	opts.OnSaved = func(id model.PostID, at time.Time) {
		fmt.Fprintln(s.out, mutedStyle.Render(fmt.Sprintf("Saved %s at %s", id, at.Local().Format("15:04:05"))))
	}
	opts.OnError = s.reportError
	s.coord = draft.New(validatingStore{store}, opts)
	return s
}

// handle runs one command line and reports whether the session should end.
func (s *editSession) handle(ctx context.Context, line string) bool {
	switch strings.TrimSpace(line) {
	case "":
	case "save", "s":
		s.save(ctx)
	case "publish":
		s.publish(ctx)
	case "status":
		s.status()
	case "quit", "q", "exit":
		return !s.registry.Navigate(navguard.Attempt{Kind: navguard.KindBack})
	case "discard":
		s.guard.AllowLeave()
		return true
	case "help", "?":
		fmt.Fprint(s.out, editHelp)
	default:
		fmt.Fprintf(s.out, "unknown command %q, type help\n", strings.TrimSpace(line))
	}
	return false
}

// interrupt handles Ctrl-C and reports whether the session should end.
func (s *editSession) interrupt() bool {
	if !s.registry.BeforeUnload() {
		return true
	}
	fmt.Fprintln(s.out)
	fmt.Fprintln(s.out, warnStyle.Render(config.ErrUnsavedChangesLeave+": type save, discard, or keep editing"))
	return false
}

// save reports its own failures through OnError.
func (s *editSession) save(ctx context.Context) error {
	if s.coord.PostID() != "" {
		if !s.coord.Dirty() {
			fmt.Fprintln(s.out, mutedStyle.Render("No unsaved changes."))
			return nil
		}
		return s.coord.SaveNow(ctx)
	}

	_, err := s.coord.Create(ctx)
	switch {
	case errors.Is(err, draft.ErrNothingToSave):
		fmt.Fprintln(s.out, mutedStyle.Render("Nothing to save yet."))
	case errors.Is(err, draft.ErrSaveInFlight):
		fmt.Fprintln(s.out, mutedStyle.Render("A save is already running, try again in a moment."))
	}
	return err
}

func (s *editSession) reportError(err error) {
	if err = printFormErrors(s.out, err); err != nil {
		fmt.Fprintln(s.out, errorStyle.Render(err.Error()))
	}
}

func (s *editSession) publish(ctx context.Context) {
	if err := s.save(ctx); err != nil {
		return
	}
	id := s.coord.PostID()
	if id == "" {
		fmt.Fprintln(s.out, warnStyle.Render("Nothing to publish yet."))
		return
	}
	post, err := s.posts.SetPostStatus(ctx, s.site, id, model.StatusPublished)
	if err != nil {
		fmt.Fprintln(s.out, errorStyle.Render(err.Error()))
		return
	}
	fmt.Fprintln(s.out, successStyle.Render(fmt.Sprintf("%s is now %s", post.ID, post.Status)))
}

func (s *editSession) status() {
	state := successStyle.Render("saved")
	switch {
	case s.coord.Saving():
		state = mutedStyle.Render("saving")
	case s.coord.Dirty():
		state = warnStyle.Render("unsaved changes")
	}
	id := string(s.coord.PostID())
	if id == "" {
		id = "not created"
	}
	last := "never"
	if at := s.coord.LastSavedAt(); !at.IsZero() {
		last = at.Local().Format("15:04:05")
	}
	fmt.Fprintf(s.out, "%s  post %s  last saved %s\n", state, id, last)
}

// runEdit watches a markdown file, saves it on a timer and serves a live
// preview until the user leaves.
func runEdit(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("edit", flag.ContinueOnError)
	siteFlag := fs.String("site", "", "site id")
	postID := fs.String("id", "", "post the file is the source of, empty for a new post")
	withPreview := fs.Bool("preview", true, "serve a live preview")
	addr := fs.String("addr", net.JoinHostPort(a.cfg.Preview.Host, a.cfg.Preview.Port), "preview address")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("usage: studio edit [-site id] [-id post] [-preview=false] <file.md>")
	}

	site, err := a.site(*siteFlag)
	if err != nil {
		return err
	}

	src := repository.NewFileSource(fs.Arg(0))
	payload, md, err := src.Payload()
	if err != nil {
		return err
	}

	id := model.PostID(*postID)
	opts := draft.Options{
		Interval:   a.cfg.Draft.AutoSaveInterval,
		PostID:     id,
		AutoCreate: a.cfg.Draft.AutoCreate,
		BackupKey:  repository.BackupKey(id),
	}
	if a.cfg.Draft.Backup {
		backups := repository.NewDBBackupRepository(a.state, site)
		if b, err := backups.Get(opts.BackupKey); err == nil && b.Fingerprint != draft.Fingerprint(payload) {
			a.printf("%s\n", warnStyle.Render(fmt.Sprintf("A local backup from %s differs from this file, see `studio backups`.", b.UpdatedAt.Local().Format("2006-01-02 15:04"))))
		}
		opts.Backup = backups
	}

	session := newEditSession(site, a.client, draft.SiteStore{Client: a.client, Site: site}, opts, "studio://edit/"+src.Path(), a.out)
	defer session.guard.Release()

	if id != "" {
		post, err := a.client.GetPost(ctx, site, id)
		if err != nil {
			return err
		}
		saved := post.Payload()
		if payload.Status != "" {
			saved.Status = post.Status
		}
		session.coord.Baseline(saved)
	}
	session.coord.MarkAsChanged(payload)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)

	var srv *preview.Server
	if *withPreview {
		srv = preview.New(render.NewRenderer(a.cfg.Preview.SyntaxTheme), src.Path(), src.Title())
		srv.Update(md)
		g.Go(func() error { return srv.ListenAndServe(gctx, *addr) })
		a.printf("Preview at %s\n", outputStyle.Render("http://"+*addr))
	}

	g.Go(func() error {
		return src.Watch(gctx, func(md []byte) {
			session.coord.MarkAsChanged(model.PayloadFromMarkdown(md, src.Title()))
			if srv != nil {
				srv.Update(md)
			}
		})
	})

	session.coord.Start(gctx)
	defer session.coord.Close()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	lines := make(chan string)
	go func() {
		defer close(lines)
		for {
			line, err := a.in.ReadString('\n')
			if line != "" {
				lines <- line
			}
			if err != nil {
				return
			}
		}
	}()

	a.printf("Editing %s. Type help for commands.\n", src.Path())
	g.Go(func() error {
		defer cancel()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-sigCh:
				if session.interrupt() {
					return nil
				}
			case line, ok := <-lines:
				if !ok {
					if session.coord.Dirty() {
						a.printf("%s\n", warnStyle.Render("Input closed, unsaved changes are kept in the local backup."))
					}
					return nil
				}
				if session.handle(gctx, line) {
					return nil
				}
			}
		}
	})

	return g.Wait()
}
