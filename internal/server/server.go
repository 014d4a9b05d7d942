// Package server wires the console's services, handlers and middleware.
package server

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/dukerupert/citievents/internal/admin"
	"github.com/dukerupert/citievents/internal/api"
	"github.com/dukerupert/citievents/internal/config"
	"github.com/dukerupert/citievents/internal/dailypick"
	"github.com/dukerupert/citievents/internal/handler"
	"github.com/dukerupert/citievents/internal/identity"
	"github.com/dukerupert/citievents/internal/listing"
	"github.com/dukerupert/citievents/internal/middleware"
	"github.com/dukerupert/citievents/internal/reaction"
	"github.com/dukerupert/citievents/internal/rsvp"
	"github.com/dukerupert/citievents/internal/store"
	ws "github.com/dukerupert/citievents/internal/websocket"
)

const (
	likeLimit  = 30
	loginLimit = 10
	rateWindow = time.Minute
)

type Server struct {
	hub          *ws.Hub
	syncer       *listing.Syncer
	refresher    *listing.Refresher
	listingH     *handler.ListingHandler
	motivationH  *handler.MotivationHandler
	interactionH *handler.InteractionHandler
	adminH       *handler.AdminHandler
	mediaH       *handler.MediaHandler
	rateLimiter  *middleware.RateLimiter
	unsubscribe  func()
	logger       *slog.Logger
}

func New(client *api.Client, db *sql.DB, cfg *config.Config, logger *slog.Logger) (*Server, error) {
	hub := ws.NewHub(logger.With("component", "websocket"))

	syncer := listing.NewSyncer(client, logger.With("component", "listing"))
	refresher, err := listing.NewRefresher(syncer, cfg.Refresh, cfg.HTTPTimeout, logger.With("component", "refresher"))
	if err != nil {
		return nil, err
	}

	rsvps := rsvp.NewService(client, rsvp.WithLogger(logger.With("component", "rsvp")))
	unsubscribe := syncer.Subscribe(func(snap listing.Snapshot) {
		rsvps.Set(snap.RSVPCounts)
		hub.Broadcast(refreshedMessage(snap))
	})
	hub.SetGreeting(func() (ws.Message, bool) {
		snap := syncer.Snapshot()
		if snap.Generation == 0 {
			return ws.Message{}, false
		}
		return refreshedMessage(snap), true
	})

	picker := dailypick.New(
		store.NewDailyPickStore(store.NewKVStore(db, cfg.Namespace)),
		dailypick.WithLogger(logger.With("component", "dailypick")),
	)
	toggler := reaction.New(client, identity.Request{},
		reaction.WithRecorder(store.NewReactionStore(db, cfg.Namespace)),
		reaction.WithLogger(logger.With("component", "reaction")),
	)
	adminOpts := []admin.Option{admin.WithLogger(logger.With("component", "admin"))}
	if cfg.LegacyMotivations {
		adminOpts = append(adminOpts, admin.WithLegacyMotivations())
	}
	if cfg.LegacyUploads {
		adminOpts = append(adminOpts, admin.WithLegacyUploads())
	}
	adminSvc := admin.New(client, syncer, adminOpts...)
	refresh := handler.RefresherFunc(func(ctx context.Context) error {
		_, err := syncer.Refresh(ctx)
		return err
	})

	return &Server{
		hub:          hub,
		syncer:       syncer,
		refresher:    refresher,
		listingH:     handler.NewListingHandler(syncer, cfg.PageSize, cfg.SearchThreshold, logger.With("component", "listing_handler")),
		motivationH:  handler.NewMotivationHandler(picker, client, syncer, logger.With("component", "motivation")),
		interactionH: handler.NewInteractionHandler(toggler, rsvps, syncer, hub, logger.With("component", "interaction")),
		adminH:       handler.NewAdminHandler(adminSvc, hub, logger.With("component", "admin_handler")),
		mediaH:       handler.NewMediaHandler(client, nil, refresh, hub, logger.With("component", "media")),
		rateLimiter:  middleware.NewRateLimiter(),
		unsubscribe:  unsubscribe,
		logger:       logger,
	}, nil
}

func refreshedMessage(snap listing.Snapshot) ws.Message {
	return ws.NewMessage("items", "refreshed", "", map[string]any{
		"generation":    snap.Generation,
		"events":        len(snap.Events),
		"announcements": len(snap.Announcements),
	})
}

// Start performs the first sync and begins the scheduled refresh and rate
// limiter cleanup. A failed first sync is logged; handlers retry on demand.
func (s *Server) Start(ctx context.Context) {
	if _, err := s.syncer.Refresh(ctx); err != nil {
		s.logger.Warn("initial sync failed", "error", err)
	}
	s.refresher.Start()
	s.rateLimiter.StartCleanup(ctx, 5*time.Minute)
}

func (s *Server) Stop() {
	s.refresher.Stop()
	s.unsubscribe()
}

func (s *Server) Hub() *ws.Hub {
	return s.hub
}

func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.healthHandler)
	mux.HandleFunc("GET /login", s.loginPage)
	mux.HandleFunc("POST /login", s.rateLimited("login", loginLimit, s.login))
	mux.HandleFunc("POST /logout", s.logout)
	mux.HandleFunc("GET /ws", ws.HandleWebSocket(s.hub, s.logger.With("component", "websocket")))

	// Listing
	mux.HandleFunc("GET /api/events", s.listingH.Events)
	mux.HandleFunc("GET /api/events/{id}", s.listingH.Event)
	mux.HandleFunc("GET /api/announcements", s.listingH.Announcements)
	mux.HandleFunc("GET /api/search", s.listingH.Search)
	mux.HandleFunc("GET /api/notifications", s.listingH.Notifications)
	mux.HandleFunc("POST /api/refresh", s.listingH.Refresh)

	// Motivation of the day
	mux.HandleFunc("GET /api/motivation/today", s.motivationH.Today)
	mux.HandleFunc("POST /api/motivation/refresh", s.motivationH.Refresh)
	mux.HandleFunc("GET /api/motivation/current", s.motivationH.Current)

	// Likes and RSVPs
	fingerprint := func(h http.HandlerFunc) http.Handler {
		return middleware.Fingerprint(h)
	}
	mux.Handle("GET /api/events/{id}/like", fingerprint(s.interactionH.LikeState))
	mux.Handle("POST /api/events/{id}/like", fingerprint(s.rateLimited("like", likeLimit, s.interactionH.Like)))
	mux.HandleFunc("POST /api/rsvp", s.interactionH.RSVP)
	mux.HandleFunc("GET /api/rsvp-counts", s.interactionH.RSVPCounts)
	mux.HandleFunc("GET /api/like-counts", s.interactionH.LikeCounts)

	adminMux := http.NewServeMux()
	s.registerAdminRoutes(adminMux)
	mux.Handle("/api/admin/", middleware.RequireAdmin(adminMux))

	return middleware.RequestLogger(s.logger.With("component", "http"))(mux)
}

func (s *Server) registerAdminRoutes(mux *http.ServeMux) {
	mux.HandleFunc("PUT /api/admin/events/{id}", s.adminH.UpdateEvent)
	mux.HandleFunc("DELETE /api/admin/events/{id}", s.adminH.DeleteItem)
	mux.HandleFunc("POST /api/admin/uploads", s.adminH.Upload)

	mux.HandleFunc("GET /api/admin/motivations", s.adminH.ListMotivations)
	mux.HandleFunc("POST /api/admin/motivations", s.adminH.CreateMotivation)
	mux.HandleFunc("PUT /api/admin/motivations/{id}", s.adminH.UpdateMotivation)
	mux.HandleFunc("DELETE /api/admin/motivations/{id}", s.adminH.DeleteMotivation)

	// Media edit session
	mux.HandleFunc("GET /api/admin/events/{id}/media", s.mediaH.Open)
	mux.HandleFunc("POST /api/admin/events/{id}/media", s.adminH.AddMedia)
	mux.HandleFunc("POST /api/admin/events/{id}/media/move", s.mediaH.Move)
	mux.HandleFunc("POST /api/admin/events/{id}/media/save", s.mediaH.Save)
	mux.HandleFunc("POST /api/admin/events/{id}/media/cancel", s.mediaH.Cancel)
	mux.HandleFunc("DELETE /api/admin/media/{id}", s.mediaH.Delete)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	snap := s.syncer.Snapshot()
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"status":     "ok",
		"generation": snap.Generation,
		"clients":    s.hub.ClientCount(),
	})
}

// rateLimited limits h per client IP. Each name has its own budget.
func (s *Server) rateLimited(name string, limit int, h http.HandlerFunc) http.HandlerFunc {
	keyFunc := func(r *http.Request) string {
		return name + ":" + middleware.RealIP(r)
	}
	rl := middleware.RateLimit(s.rateLimiter, keyFunc, limit, rateWindow)
	wrapped := rl(h)
	return wrapped.ServeHTTP
}

func (s *Server) loginPage(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]string{
		"error": "admin token required: POST /login with a token, or send Authorization: Bearer <token>",
	})
}

// login stores the backend token in the session cookie. The backend rejects
// bad tokens on the first admin call, which sends the client back here.
func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	token, err := loginToken(r)
	if err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   r.TLS != nil,
	})
	w.WriteHeader(http.StatusNoContent)
}

func loginToken(r *http.Request) (string, error) {
	var token string
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		var body struct {
			Token string `json:"token"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			return "", errors.New("invalid JSON")
		}
		token = body.Token
	} else {
		token = r.FormValue("token")
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", errors.New("token is required")
	}
	return token, nil
}

func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	middleware.ClearSession(w)
	w.WriteHeader(http.StatusNoContent)
}
