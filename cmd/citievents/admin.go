package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/dukerupert/citievents/internal/admin"
	"github.com/dukerupert/citievents/internal/auth"
	"github.com/dukerupert/citievents/internal/logging"
	"github.com/dukerupert/citievents/internal/media"
	"github.com/dukerupert/citievents/internal/model"
	"github.com/dukerupert/citievents/internal/output"
)

const adminUsage = `usage: citievents admin [-token T] <subcommand> [args]

subcommands:
  motivations                     list motivations
  motivation-add <text>
  motivation-edit <id> <text>
  motivation-rm <id>
  event-update <id> -title T [-description D] [-date YYYY-MM-DD]
  delete <id> [-type event|announcement]
  upload -type event|announcement -title T -description D [-date D] [-rsvp] [-file F]...
  media <event-id>                list an event's media
  media-add <event-id> <file>...
  media-rm <event-id> <media-id>
`

// fileList collects repeated -file flags.
type fileList []string

func (f *fileList) String() string     { return strings.Join(*f, ",") }
func (f *fileList) Set(v string) error { *f = append(*f, v); return nil }

func readFiles(paths []string) ([]model.FileUpload, error) {
	files := make([]model.FileUpload, 0, len(paths))
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", p, err)
		}
		ct := mime.TypeByExtension(filepath.Ext(p))
		if ct == "" {
			ct = http.DetectContentType(data)
		}
		files = append(files, model.FileUpload{Filename: filepath.Base(p), ContentType: ct, Data: data})
	}
	return files, nil
}

func motivationTable(list []model.Motivation) output.Table {
	t := output.Table{Header: []string{"ID", "MOTIVATION"}}
	for _, m := range list {
		t.Add(m.ID.String(), m.Text)
	}
	return t
}

func mediaTable(list []model.Media) output.Table {
	t := output.Table{Header: []string{"#", "ID", "URL"}}
	for i, m := range list {
		t.Add(fmt.Sprint(i), m.MediaID.String(), m.URL)
	}
	return t
}

func (a *app) admin(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("admin", flag.ContinueOnError)
	fs.Usage = func() { fmt.Fprint(fs.Output(), adminUsage) }
	token := fs.String("token", "", "backend token (defaults to CITIEVENTS_API_TOKEN)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return flag.ErrHelp
	}
	if *token != "" {
		ctx = auth.WithToken(ctx, *token)
	}

	opts := []admin.Option{admin.WithLogger(logging.Component(a.logger, "admin"))}
	if a.cfg.LegacyMotivations {
		opts = append(opts, admin.WithLegacyMotivations())
	}
	if a.cfg.LegacyUploads {
		opts = append(opts, admin.WithLegacyUploads())
	}
	svc := admin.New(a.client, a.syncer(), opts...)
	sub, rest := fs.Arg(0), fs.Args()[1:]

	switch sub {
	case "motivations":
		list, err := svc.ListMotivations(ctx)
		if err != nil {
			return err
		}
		return a.out.Render(list, motivationTable(list))

	case "motivation-add":
		list, err := svc.CreateMotivation(ctx, strings.Join(rest, " "))
		if err != nil {
			return err
		}
		return a.out.Render(list, motivationTable(list))

	case "motivation-edit":
		if len(rest) < 2 {
			return errors.New("usage: citievents admin motivation-edit <id> <text>")
		}
		list, err := svc.UpdateMotivation(ctx, model.ID(rest[0]), strings.Join(rest[1:], " "))
		if err != nil {
			return err
		}
		return a.out.Render(list, motivationTable(list))

	case "motivation-rm":
		if len(rest) != 1 {
			return errors.New("usage: citievents admin motivation-rm <id>")
		}
		list, err := svc.DeleteMotivation(ctx, model.ID(rest[0]))
		if err != nil {
			return err
		}
		return a.out.Render(list, motivationTable(list))

	case "event-update":
		return a.updateEvent(ctx, svc, rest)

	case "delete":
		return a.deleteItem(ctx, svc, rest)

	case "upload":
		return a.upload(ctx, svc, rest)

	case "media":
		if len(rest) != 1 {
			return errors.New("usage: citievents admin media <event-id>")
		}
		list, err := a.client.ListMedia(ctx, model.ID(rest[0]))
		if err != nil {
			return err
		}
		return a.out.Render(list, mediaTable(list))

	case "media-add":
		if len(rest) < 2 {
			return errors.New("usage: citievents admin media-add <event-id> <file>...")
		}
		files, err := readFiles(rest[1:])
		if err != nil {
			return err
		}
		if err := svc.AddMedia(ctx, model.ID(rest[0]), files); err != nil {
			return err
		}
		return a.out.Message("status", fmt.Sprintf("added %d file(s)", len(files)))

	case "media-rm":
		if len(rest) != 2 {
			return errors.New("usage: citievents admin media-rm <event-id> <media-id>")
		}
		session := media.NewSession(a.client, media.WithLogger(logging.Component(a.logger, "media")))
		if _, err := session.Open(ctx, model.ID(rest[0])); err != nil {
			return err
		}
		list, err := session.Delete(ctx, model.ID(rest[1]))
		if err != nil {
			return err
		}
		return a.out.Render(list, mediaTable(list))

	default:
		fs.Usage()
		return fmt.Errorf("unknown admin subcommand %q", sub)
	}
}

func (a *app) updateEvent(ctx context.Context, svc *admin.Service, args []string) error {
	if len(args) == 0 {
		return errors.New("usage: citievents admin event-update <id> -title T [-description D] [-date D]")
	}
	id := model.ID(args[0])

	current, err := a.client.GetEvent(ctx, id)
	if err != nil {
		return err
	}
	fs := flag.NewFlagSet("event-update", flag.ContinueOnError)
	title := fs.String("title", current.Title, "event title")
	description := fs.String("description", current.Description, "event description")
	date := fs.String("date", current.Date.String(), "event date (YYYY-MM-DD)")
	if err := fs.Parse(args[1:]); err != nil {
		return err
	}
	d, err := model.ParseDate(*date)
	if err != nil {
		return err
	}

	fields := model.EventFields{Title: *title, Description: *description, Date: d}
	if err := svc.UpdateEvent(ctx, id, fields); err != nil {
		return err
	}
	return a.out.Message("status", fmt.Sprintf("event %s updated", id))
}

func (a *app) deleteItem(ctx context.Context, svc *admin.Service, args []string) error {
	if len(args) == 0 {
		return errors.New("usage: citievents admin delete <id> [-type event|announcement]")
	}
	fs := flag.NewFlagSet("delete", flag.ContinueOnError)
	typ := fs.String("type", string(model.TypeEvent), "item type")
	if err := fs.Parse(args[1:]); err != nil {
		return err
	}
	if err := svc.DeleteItem(ctx, model.ItemType(*typ), model.ID(args[0])); err != nil {
		return err
	}
	return a.out.Message("status", fmt.Sprintf("%s %s deleted", *typ, args[0]))
}

func (a *app) upload(ctx context.Context, svc *admin.Service, args []string) error {
	fs := flag.NewFlagSet("upload", flag.ContinueOnError)
	var form admin.UploadForm
	var paths fileList
	typ := fs.String("type", string(model.TypeEvent), "event or announcement")
	fs.StringVar(&form.Title, "title", "", "title")
	fs.StringVar(&form.Description, "description", "", "description")
	fs.StringVar(&form.Date, "date", "", "event date (YYYY-MM-DD)")
	fs.BoolVar(&form.RequiresRSVP, "rsvp", false, "event takes RSVPs")
	fs.Var(&paths, "file", "poster or media file (repeatable)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	form.Type = model.ItemType(*typ)

	files, err := readFiles(paths)
	if err != nil {
		return err
	}
	form.Files = files
	if err := svc.CreateItem(ctx, form); err != nil {
		return err
	}
	return a.out.Message("status", fmt.Sprintf("%s %q created", form.Type, form.Title))
}
