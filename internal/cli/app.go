package cli

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/soyeahso/mrbooky/internal/agent"
	"github.com/soyeahso/mrbooky/internal/backoffice"
	"github.com/soyeahso/mrbooky/internal/channel"
	"github.com/soyeahso/mrbooky/internal/channel/irc"
	"github.com/soyeahso/mrbooky/internal/config"
	"github.com/soyeahso/mrbooky/internal/dialog"
	"github.com/soyeahso/mrbooky/internal/domain"
	"github.com/soyeahso/mrbooky/internal/hooks"
	"github.com/soyeahso/mrbooky/internal/llm"
	"github.com/soyeahso/mrbooky/internal/logging"
	"github.com/soyeahso/mrbooky/internal/routing"
	"github.com/soyeahso/mrbooky/internal/store"
	"github.com/soyeahso/mrbooky/internal/tools"
)

// appOptions selects which parts of the system a command needs.
type appOptions struct {
	// channels connects IRC and wires booking announcements and routing.
	channels bool
	// ephemeral keeps sessions in memory and skips the database.
	ephemeral bool
}

// app is the fully wired chat engine shared by the commands.
type app struct {
	cfg      config.Config
	log      *logging.Logger
	db       *store.DB
	sessions store.SessionStore
	bookings *store.BookingStore
	hooks    *hooks.Manager
	channels *channel.Registry
	runner   *agent.Runner
	closers  []func() error
}

// loadConfig reads and validates the config file.
func loadConfig() (config.Config, error) {
	cfg, err := config.Load(paths.Config)
	if err != nil {
		return cfg, err
	}
	if issues := config.Validate(&cfg); len(issues) > 0 {
		for _, issue := range issues {
			log.Error().Str("path", issue.Path).Msg(issue.Message)
		}
		return cfg, fmt.Errorf("config validation failed with %d issue(s)", len(issues))
	}
	return cfg, nil
}

// newAppLogger applies the logging section. The --log-level flag wins over
// the configured level; a log file receives the same stream as the console.
func newAppLogger(cfg config.LoggingConfig) (*logging.Logger, io.Closer, error) {
	level := logLevel
	if level == "" {
		level = cfg.Level
	}
	if cfg.ConsoleLevel != "" && logLevel == "" {
		level = cfg.ConsoleLevel
	}
	if cfg.File == "" {
		return logging.NewWithStyle(os.Stderr, level, cfg.ConsoleStyle), nil, nil
	}
	f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, nil, fmt.Errorf("opening log file: %w", err)
	}
	return logging.NewWithStyle(io.MultiWriter(os.Stderr, f), level, cfg.ConsoleStyle), f, nil
}

// brandFromConfig overlays configured contact details on the defaults.
func brandFromConfig(c config.BrandConfig) tools.Brand {
	b := tools.DefaultBrand()
	for dst, src := range map[*string]string{
		&b.Name:       c.Name,
		&b.Phone:      c.Phone,
		&b.SiteURL:    c.SiteURL,
		&b.BookingURL: c.BookingURL,
		&b.AppURL:     c.AppURL,
		&b.Email:      c.Email,
	} {
		if src != "" {
			*dst = src
		}
	}
	return b
}

func policyFromConfig(s config.SessionConfig) dialog.Policy {
	return dialog.Policy{
		Budget:              s.Budget,
		DriftSwitchMinHits:  s.DriftSwitchMinHits,
		ResetOnNoMatch:      s.ResetOnNoMatchEnabled(),
		ClassifierThreshold: s.ClassifierThreshold,
	}
}

// buildApp wires the engine described by cfg.
func buildApp(ctx context.Context, cfg config.Config, alog *logging.Logger, opts appOptions) (*app, error) {
	a := &app{
		cfg:      cfg,
		log:      alog,
		hooks:    hooks.NewManager(alog),
		channels: channel.NewRegistry(alog),
	}
	ok := false
	defer func() {
		if !ok {
			a.Close()
		}
	}()

	if err := a.openStores(opts.ephemeral); err != nil {
		return nil, err
	}

	hc := &http.Client{Timeout: time.Duration(cfg.Tools.TimeoutSec) * time.Second}
	brand := brandFromConfig(cfg.Brand)

	llmReg := llm.NewRegistryFromConfig(cfg.LLM, alog)
	llmClient := llm.ClientFromConfig(llmReg, cfg.LLM, alog)
	if llmClient != nil {
		alog.Info().Strs("providers", llmReg.List()).Msg("LLM fallback enabled")
	}

	fare := tools.NewFareTool(cfg.Tools.FareURL, hc, alog)
	dispatcher := tools.NewDispatcher(time.Duration(cfg.Tools.TimeoutSec)*time.Second, alog)
	dispatcher.Register(domain.IntentTripCost, fare)
	dispatcher.Register(domain.IntentContact, tools.ContactTool{Brand: brand})
	dispatcher.Register(domain.IntentPharmacy, tools.NewPharmacyTool(cfg.Tools.PharmacyURL, cfg.Tools.DefaultArea, hc, alog))
	dispatcher.Register(domain.IntentHospital, tools.NewHospitalTool(cfg.Tools.HospitalURL, hc, alog))
	dispatcher.Register(domain.IntentServices, tools.NewServicesTool(brand))
	dispatcher.Register(domain.IntentInfo, tools.NewInfoTool(cfg.Tools.InfoURL, hc, llmClient, cfg.LLM.Model, alog))

	bookingOpts := dialog.BookingFlowOptions{
		Quoter:   fare,
		Notifier: backoffice.NewHookNotifier(a.hooks),
		LinkURL:  backoffice.BookingLink(cfg.Booking.LinkURL, cfg.Booking.URLKey, "el"),
	}
	if api := backoffice.NewBookingAPI(cfg.Booking.CreateURL, cfg.Booking.APIKey, cfg.Booking.URLKey, cfg.Booking.Agent, hc, alog); api.Configured() {
		bookingOpts.Submitter = api
	}
	if a.bookings != nil {
		bookingOpts.Recorder = a.bookings
	}

	var webhook *backoffice.Webhook
	if cfg.Booking.NotifyWebhook != "" {
		webhook = backoffice.NewWebhook(cfg.Booking.NotifyWebhook, hc)
	}
	var announcer *backoffice.Announcer
	var ircCh *irc.Channel
	if opts.channels && cfg.Channels.IRC != nil {
		ircCh = irc.New(*cfg.Channels.IRC, alog)
		a.channels.Register(ircCh)
		if room := ircCh.DispatchRoom(); room != "" {
			announcer = backoffice.NewAnnouncer(a.channels, ircCh.ID(), room)
		}
	}
	backoffice.Wire(a.hooks, webhook, announcer, alog)

	a.runner = agent.New(agent.Options{
		Store:        a.sessions,
		Policy:       policyFromConfig(cfg.Session),
		ContextTurns: cfg.Session.ContextTurns,
		Tools:        dispatcher,
		Booking:      bookingOpts,
		LLM:          llmClient,
		Hooks:        a.hooks,
		Runner: agent.RunnerConfig{
			BotName: "Mr Booky",
			Brand:   brand,
			Model:   cfg.LLM.Model,
		},
	}, alog)

	if ircCh != nil && cfg.Channels.IRC.Chat {
		routing.NewRouter(a.channels, a.runner, cfg.Session.Scope, alog).Wire(ctx)
		alog.Info().Str("scope", cfg.Session.Scope).Msg("IRC chat routing active")
	}

	ok = true
	return a, nil
}

// openStores opens the session store and, unless ephemeral, the SQLite
// database that also records finalized bookings.
func (a *app) openStores(ephemeral bool) error {
	s := a.cfg.Session
	ttl := time.Duration(s.TTLSeconds) * time.Second
	if ephemeral {
		a.sessions = store.NewMemoryStore(ttl)
		a.log.Info().Msg("using in-memory session store")
		return nil
	}

	if err := paths.EnsureDirs(); err != nil {
		return fmt.Errorf("creating data directories: %w", err)
	}
	dbPath := paths.DatabasePath(s)
	db, err := store.Open(dbPath, a.log)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	a.db = db
	a.closers = append(a.closers, db.Close)
	a.bookings = store.NewBookingStore(db)

	sessions, err := store.New(store.Options{
		Backend:   s.Store,
		TTL:       ttl,
		DB:        db,
		RedisURL:  s.RedisURL,
		KeyPrefix: s.KeyPrefix,
	}, a.log)
	if err != nil {
		return err
	}
	if c, ok := sessions.(io.Closer); ok {
		a.closers = append(a.closers, c.Close)
	}
	if p, ok := sessions.(interface{ Ping(context.Context) error }); ok {
		pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := p.Ping(pingCtx)
		cancel()
		if err != nil {
			return fmt.Errorf("session store unreachable: %w", err)
		}
	}
	a.sessions = sessions
	a.log.Info().Str("store", s.Store).Str("db", dbPath).Msg("session store ready")
	return nil
}

// Close waits for pending hooks and releases the stores.
func (a *app) Close() {
	a.hooks.Wait()
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.log.Warn().Err(err).Msg("close failed")
		}
	}
	a.closers = nil
}
