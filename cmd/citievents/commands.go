package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"strconv"
	"strings"

	"github.com/dukerupert/citievents/internal/dailypick"
	"github.com/dukerupert/citievents/internal/identity"
	"github.com/dukerupert/citievents/internal/listing"
	"github.com/dukerupert/citievents/internal/logging"
	"github.com/dukerupert/citievents/internal/model"
	"github.com/dukerupert/citievents/internal/output"
	"github.com/dukerupert/citievents/internal/reaction"
	"github.com/dukerupert/citievents/internal/rsvp"
	"github.com/dukerupert/citievents/internal/store"
)

const userAgent = "citievents-cli"

func itemTable(items []model.Item, counts model.Counts) output.Table {
	t := output.Table{Header: []string{"ID", "DATE", "TITLE", "RSVP"}}
	for _, it := range items {
		date := it.Date.String()
		if it.Type == model.TypeAnnouncement {
			date = it.Posted().String()
		}
		rsvps := "-"
		if it.RequiresRSVP {
			rsvps = strconv.Itoa(counts.Of(it))
		}
		t.Add(it.ID.String(), date, it.Title, rsvps)
	}
	return t
}

func (a *app) events(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("events", flag.ContinueOnError)
	date := fs.String("date", "", "only events on this date (YYYY-MM-DD)")
	title := fs.String("q", "", "only events whose title contains this text")
	page := fs.Int("page", 1, "page number")
	if err := fs.Parse(args); err != nil {
		return err
	}

	snap, err := a.syncer().Refresh(ctx)
	if err != nil {
		return err
	}
	view := listing.NewView(a.cfg.PageSize)
	view.SetItems(snap.Events)
	view.SetFilter(listing.Filter{Date: *date, Title: *title})
	view.SetPage(*page)

	items := view.Page()
	if a.out.Format() == output.FormatText {
		if err := a.out.Render(nil, itemTable(items, snap.RSVPCounts)); err != nil {
			return err
		}
		return a.out.Message("page", fmt.Sprintf("page %d of %d (%d events)", view.CurrentPage(), view.PageCount(), view.Total()))
	}
	return a.out.Render(map[string]any{
		"items":     items,
		"page":      view.CurrentPage(),
		"pageCount": view.PageCount(),
		"pageSize":  view.PageSize(),
		"total":     view.Total(),
	}, output.Table{})
}

func (a *app) announcements(ctx context.Context) error {
	items, err := a.client.ListAnnouncements(ctx)
	if err != nil {
		return err
	}
	listing.SortAnnouncements(items)
	return a.out.Render(items, itemTable(items, nil))
}

func (a *app) search(ctx context.Context, args []string) error {
	query := strings.TrimSpace(strings.Join(args, " "))
	if query == "" {
		return errors.New("usage: citievents search <query>")
	}
	snap, err := a.syncer().Refresh(ctx)
	if err != nil {
		return err
	}
	pool := append(append([]model.Item(nil), snap.Events...), snap.Announcements...)
	results := listing.Search(pool, query, a.cfg.SearchThreshold)

	t := output.Table{Header: []string{"ID", "TYPE", "TITLE", "SCORE"}}
	for _, r := range results {
		t.Add(r.Item.ID.String(), string(r.Item.Type), r.Item.Title, strconv.FormatFloat(r.Score, 'f', 2, 64))
	}
	return a.out.Render(results, t)
}

func (a *app) notifications(ctx context.Context) error {
	snap, err := a.syncer().Refresh(ctx)
	if err != nil {
		return err
	}
	events := listing.RSVPEvents(snap.Events)
	return a.out.Render(events, itemTable(events, snap.RSVPCounts))
}

func (a *app) like(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: citievents like <event-id>")
	}
	db, err := a.database()
	if err != nil {
		return err
	}
	ids := identity.NewHashed(a.cfg.IPLookupURL, userAgent,
		identity.WithLogger(logging.Component(a.logger, "identity")),
	)
	toggler := reaction.New(a.client, ids,
		reaction.WithRecorder(store.NewReactionStore(db, a.cfg.Namespace)),
		reaction.WithLogger(logging.Component(a.logger, "reaction")),
	)

	st, err := toggler.Toggle(ctx, model.ID(args[0]))
	if err != nil {
		return err
	}
	verb := "unliked"
	if st.Liked {
		verb = "liked"
	}
	t := output.Table{Header: []string{"EVENT", "STATE", "LIKES"}}
	t.Add(st.EventID.String(), verb, strconv.Itoa(st.Count))
	return a.out.Render(st, t)
}

// likes lists the reactions this machine has recorded locally.
func (a *app) likes(ctx context.Context) error {
	db, err := a.database()
	if err != nil {
		return err
	}
	ids := identity.NewHashed(a.cfg.IPLookupURL, userAgent,
		identity.WithLogger(logging.Component(a.logger, "identity")),
	)
	fp, err := ids.Identity(ctx)
	if err != nil {
		return err
	}
	list, err := store.NewReactionStore(db, a.cfg.Namespace).ListByFingerprint(ctx, fp)
	if err != nil {
		return err
	}
	t := output.Table{Header: []string{"EVENT", "LIKED", "LIKES"}}
	for _, st := range list {
		t.Add(st.EventID.String(), strconv.FormatBool(st.Liked), strconv.Itoa(st.Count))
	}
	return a.out.Render(list, t)
}

func (a *app) rsvp(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("rsvp", flag.ContinueOnError)
	var req rsvp.Request
	fs.StringVar(&req.Name, "name", "", "attendee name")
	fs.StringVar(&req.Email, "email", "", "attendee email")
	event := fs.String("event", "", "event id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	req.EventID = model.ID(*event)

	counts, err := rsvp.NewService(a.client).Submit(ctx, req)
	if err != nil {
		return err
	}
	return a.out.Message("rsvp", fmt.Sprintf("RSVP recorded; %d attending", counts[req.EventID.String()]))
}

func (a *app) motivation(ctx context.Context, args []string) error {
	action := "today"
	if len(args) > 0 {
		action = args[0]
	}

	list, err := a.client.ListMotivations(ctx)
	if err != nil {
		return err
	}
	db, err := a.database()
	if err != nil {
		return err
	}
	picker := dailypick.New(
		store.NewDailyPickStore(store.NewKVStore(db, a.cfg.Namespace)),
		dailypick.WithLogger(logging.Component(a.logger, "dailypick")),
	)

	var text string
	switch action {
	case "today":
		text, err = picker.GetTodayPick(ctx, list)
	case "refresh":
		text, err = picker.Refresh(list)
	default:
		return fmt.Errorf("unknown motivation action %q (want today or refresh)", action)
	}
	if errors.Is(err, dailypick.ErrNoMotivations) {
		if a.out.Format() == output.FormatText {
			return a.out.Message("motivation", "no motivations available")
		}
		return a.out.Message("motivation", "")
	}
	if err != nil {
		return err
	}
	return a.out.Message("motivation", text)
}
