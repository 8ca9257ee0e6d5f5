package main

import (
	"context"
	"errors"
	"flag"
	"fmt"

	"github.com/debemdeboas/archive-studio/internal/repository"
)

// runBackups lists local draft backups, writes one back to a file or drops it.
//
//	studio backups
//	studio backups restore <key> <file.md>
//	studio backups drop <key>
func runBackups(_ context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("backups", flag.ContinueOnError)
	siteFlag := fs.String("site", "", "site id")
	force := fs.Bool("f", false, "overwrite the target file on restore")
	if err := fs.Parse(args); err != nil {
		return err
	}

	site, err := a.site(*siteFlag)
	if err != nil {
		return err
	}
	backups := repository.NewDBBackupRepository(a.state, site)

	switch fs.Arg(0) {
	case "", "list":
		return listBackups(a, backups)
	case "restore":
		if fs.NArg() != 3 {
			return errors.New("usage: studio backups restore <key> <file.md>")
		}
		path, err := restoreBackup(backups, fs.Arg(1), fs.Arg(2), *force)
		if err != nil {
			return err
		}
		a.printf("%s\n", successStyle.Render("Restored to "+path))
		return nil
	case "drop":
		if fs.NArg() != 2 {
			return errors.New("usage: studio backups drop <key>")
		}
		return backups.Delete(fs.Arg(1))
	default:
		return fmt.Errorf("unknown backups action %q", fs.Arg(0))
	}
}

func listBackups(a *app, backups repository.BackupRepository) error {
	list, err := backups.List()
	if err != nil {
		return err
	}
	if len(list) == 0 {
		a.printf("%s\n", mutedStyle.Render("No backups."))
		return nil
	}
	for _, b := range list {
		post := string(b.PostID)
		if post == "" {
			post = mutedStyle.Render("(not created)")
		}
		a.printf("%-44s %-24s %s  %s\n", b.Key, post, b.UpdatedAt.Local().Format("2006-01-02 15:04"), b.Payload.Title)
	}
	return nil
}

// restoreBackup writes the backup under key to path as a markdown source file.
func restoreBackup(backups repository.BackupRepository, key, path string, force bool) (string, error) {
	b, err := backups.Get(key)
	if errors.Is(err, repository.ErrNotFound) {
		return "", fmt.Errorf("no backup %q", key)
	}
	if err != nil {
		return "", err
	}

	md, err := b.Payload.Markdown()
	if err != nil {
		return "", err
	}

	src := repository.NewFileSource(path)
	if !force {
		if _, err := src.Read(); err == nil {
			return "", fmt.Errorf("%s already exists, pass -f to overwrite", path)
		}
	}
	if err := src.Write(md); err != nil {
		return "", err
	}
	return src.Path(), nil
}
