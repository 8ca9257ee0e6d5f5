package main

import (
	"context"
	"errors"
	"flag"
	"fmt"

	"github.com/debemdeboas/archive-studio/internal/model"
	"github.com/debemdeboas/archive-studio/internal/repository"
)

func runSites(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("sites", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}

	sites, err := a.client.ListSites(ctx)
	if err != nil {
		return err
	}

	current, err := a.prefs.LastSite()
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return err
	}

	if len(sites) == 0 {
		a.printf("%s\n", mutedStyle.Render("No sites yet."))
		return nil
	}
	for _, s := range sites {
		marker := "  "
		if s.ID == current {
			marker = successStyle.Render("* ")
		}
		a.printf("%s%-24s %-20s %s\n", marker, s.ID, s.Subdomain, s.Name)
	}
	return nil
}

// runUse stores the selected site so later commands default to it.
func runUse(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("use", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("usage: studio use <site id or subdomain>")
	}

	sites, err := a.client.ListSites(ctx)
	if err != nil {
		return err
	}

	site := findSite(sites, fs.Arg(0))
	if site == nil {
		return fmt.Errorf("no site %q among your sites", fs.Arg(0))
	}

	if err := a.prefs.SetLastSite(site.ID); err != nil {
		return err
	}
	a.printf("%s\n", successStyle.Render(fmt.Sprintf("Using %s (%s)", site.Name, site.ID)))
	return nil
}

// findSite matches ref against the id, subdomain and custom domain of sites.
func findSite(sites []model.Site, ref string) *model.Site {
	for i := range sites {
		s := &sites[i]
		if string(s.ID) == ref || s.Subdomain == ref || (s.CustomDomain != "" && s.CustomDomain == ref) {
			return s
		}
	}
	return nil
}
