package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	s3storage "github.com/debemdeboas/archive-studio/internal/storage/s3"
	"github.com/debemdeboas/archive-studio/internal/upload"
	"github.com/debemdeboas/archive-studio/internal/util"
)

func runUpload(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("upload", flag.ContinueOnError)
	purpose := fs.String("purpose", string(upload.PurposePostImage), "post_image, cover, banner or branding")
	target := fs.String("target", "", "post or site the file belongs to")
	backendName := fs.String("backend", a.cfg.Upload.Backend, "api or s3")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("usage: studio upload [-purpose p] [-target id] [-backend api|s3] <file>")
	}

	backend, err := a.uploadBackend(ctx, *backendName)
	if err != nil {
		return err
	}

	f, file, err := upload.OpenFile(fs.Arg(0))
	if err != nil {
		return err
	}
	defer file.Close()

	slot := upload.NewSlot(upload.NewUploader(backend))
	snap, err := uploadFile(ctx, slot, f, upload.Options{
		MaxSize:      a.cfg.Upload.MaxSizeBytes,
		AllowedTypes: a.cfg.Upload.AllowedTypes,
		MaxWidth:     a.cfg.Upload.MaxImageWidth,
		Purpose:      upload.Purpose(*purpose),
		TargetID:     *target,
	}, os.Stderr)
	if err != nil {
		return err
	}

	a.printf("%s\n", successStyle.Render(fmt.Sprintf("Uploaded %s", util.HumanBytes(snap.BytesTotal))))
	a.printf("%s\n", snap.PublicURL)
	return nil
}

// uploadFile runs f in slot, drawing progress to w, and waits for the
// terminal state even after ctx is cancelled so the object is released.
func uploadFile(ctx context.Context, slot *upload.Slot, f upload.File, opts upload.Options, w io.Writer) (upload.Snapshot, error) {
	opts.OnChange = func(s upload.Snapshot) {
		fmt.Fprintf(w, "\r%s %s", progressBar(s.Progress), mutedStyle.Render(string(s.Status)))
	}
	snap, err := slot.Start(ctx, f, opts).Wait(context.WithoutCancel(ctx))
	fmt.Fprintln(w)
	return snap, err
}

func (a *app) uploadBackend(ctx context.Context, name string) (upload.Backend, error) {
	switch name {
	case "api", "":
		return a.client, nil
	case "s3":
		b, err := s3storage.New(ctx, a.cfg.Storage.S3)
		if err != nil {
			return nil, fmt.Errorf("s3 storage: %w", err)
		}
		return b, nil
	default:
		return nil, fmt.Errorf("unknown upload backend %q", name)
	}
}
