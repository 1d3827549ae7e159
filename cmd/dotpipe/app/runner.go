package app

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/phillarmonic/dotpipe/internal/builtins"
	"github.com/phillarmonic/dotpipe/internal/bundle"
	"github.com/phillarmonic/dotpipe/internal/cache"
	"github.com/phillarmonic/dotpipe/internal/dom"
	"github.com/phillarmonic/dotpipe/internal/envloader"
	dperrors "github.com/phillarmonic/dotpipe/internal/errors"
	"github.com/phillarmonic/dotpipe/internal/fetch"
	"github.com/phillarmonic/dotpipe/internal/pipeline"
	"github.com/phillarmonic/dotpipe/internal/script"
	"github.com/phillarmonic/dotpipe/internal/secrets"
	"github.com/phillarmonic/dotpipe/internal/types"
)

// Domain: Page Execution
// This file wires a page to an interpreter and runs its entries

// RunOptions are the inputs of one page run
type RunOptions struct {
	Page       string
	Member     string
	Keys       []string
	Event      string
	Script     string
	Env        string
	Set        []string
	State      bool
	ResetState bool
	DumpVars   bool
	Timeout    time.Duration
}

// Session is a loaded page bound to an interpreter
type Session struct {
	Page    *bundle.Page
	Doc     *dom.Document
	Interp  *pipeline.Interpreter
	Globals *script.Globals

	cache  *cache.Manager
	logger *slog.Logger
	source string
}

// OpenSession loads a page and registers its entries without running them
func OpenSession(ctx context.Context, cfg Config, opts RunOptions, version string, logger *slog.Logger) (*Session, error) {
	page, err := bundle.Load(ctx, opts.Page, opts.Member)
	if err != nil {
		return nil, err
	}

	doc, err := dom.Parse(bytes.NewReader(page.Markup))
	if err != nil {
		_ = page.Close()
		return nil, fmt.Errorf("failed to parse page '%s': %w", opts.Page, err)
	}

	s := &Session{Page: page, Doc: doc, logger: logger}
	if abs, err := filepath.Abs(opts.Page); err == nil {
		s.source = abs
	} else {
		s.source = opts.Page
	}

	if !cfg.Cache.Disabled {
		s.cache, err = cache.NewManager(cache.Options{Path: cfg.Cache.Path, Expiration: cfg.Cache.TTL})
		if err != nil {
			logger.Warn("cache unavailable, continuing without it", "error", err)
			s.cache = nil
		}
	}

	fetchOpts := []fetch.Option{
		fetch.WithBase(page.Dir),
		fetch.WithTimeout(cfg.FetchTimeout),
		fetch.WithUserAgent("dotpipe/" + version),
		fetch.WithLogger(logger),
	}
	if s.cache != nil {
		fetchOpts = append(fetchOpts, fetch.WithCache(s.cache, cfg.Cache.TTL))
	}

	deps := builtins.Deps{Namespace: cfg.Secrets.Namespace}
	if store, err := openSecrets(cfg); err != nil {
		logger.Debug("secret store unavailable", "error", err)
	} else {
		deps.Secrets = store
	}
	for _, ac := range cfg.Auth {
		auth, err := resolveAuth(ac, deps.Secrets, cfg.Secrets.Namespace)
		if err != nil {
			logger.Warn("skipping request credentials", "host", ac.Host, "error", err)
			continue
		}
		fetchOpts = append(fetchOpts, fetch.WithAuth(ac.Host, auth))
	}
	deps.Fetcher = fetch.New(fetchOpts...)

	registry := pipeline.NewRegistry()
	builtins.Register(registry, deps)

	interpOpts := []pipeline.Option{
		pipeline.WithLogger(logger),
		pipeline.WithRegistry(registry),
	}
	if cfg.Attribute != "" {
		interpOpts = append(interpOpts, pipeline.WithAttribute(cfg.Attribute))
	}
	s.Interp = pipeline.New(doc, interpOpts...)

	scriptPath := opts.Script
	if scriptPath == "" {
		scriptPath = cfg.Script
	}
	if scriptPath != "" {
		s.Globals, err = script.Load(ctx, scriptPath, nil, logger)
		if err != nil {
			_ = s.Close()
			return nil, err
		}
		s.Interp.SetGlobals(s.Globals)
	}

	s.Interp.Register()

	if err := s.seed(cfg, opts); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}

// resolveAuth reads the credential an auth entry names from the secret store
func resolveAuth(ac AuthConfig, store builtins.SecretReader, namespace string) (fetch.Auth, error) {
	if store == nil {
		return nil, errors.New("no secret store")
	}
	secret, err := store.Get(namespace, ac.Secret)
	if err != nil {
		return nil, err
	}
	return fetch.NewAuth(ac.Type, ac.Name, secret)
}

func openSecrets(cfg Config) (secrets.Manager, error) {
	var opts []secrets.Option
	if cfg.Secrets.Fallback {
		opts = append(opts, secrets.WithFallback())
	}
	if cfg.Secrets.Path != "" {
		opts = append(opts, secrets.WithStoragePath(cfg.Secrets.Path))
	}
	return secrets.NewManager(opts...)
}

// seed loads the saved state, then the page's dotenv files, the configured
// variables and --set pairs, each overriding the one before
func (s *Session) seed(cfg Config, opts RunOptions) error {
	if s.cache != nil && opts.ResetState {
		if err := s.cache.Delete(cache.StateKey(s.source)); err != nil {
			return fmt.Errorf("failed to reset state: %w", err)
		}
	}
	if s.cache != nil && opts.State && !opts.ResetState {
		var saved map[string]map[string]any
		ok, err := s.cache.LoadState(s.source, &saved)
		if err != nil {
			s.logger.Warn("ignoring unreadable state", "page", s.source, "error", err)
		}
		if ok {
			for key, vars := range saved {
				values := make(map[string]types.Value, len(vars))
				for name, v := range vars {
					values[name] = types.From(v)
				}
				s.Interp.LoadVariables(key, values)
			}
		}
	}

	env := opts.Env
	if env == "" {
		env = cfg.Environment
	}
	dotenv, err := envloader.NewLoader(s.Page.Dir, env, s.logger).Load()
	if err != nil {
		return err
	}

	preset := make(map[string]types.Value, len(dotenv.Vars)+len(cfg.Variables)+len(opts.Set))
	for name, raw := range dotenv.Vars {
		preset[name] = types.Parse(raw)
	}
	for name, raw := range cfg.Variables {
		preset[name] = types.Parse(raw)
	}
	for _, pair := range opts.Set {
		name, raw, ok := strings.Cut(pair, "=")
		if !ok || name == "" {
			return fmt.Errorf("invalid --set %q, expected name=value", pair)
		}
		preset[name] = types.Parse(raw)
	}
	if len(preset) == 0 {
		return nil
	}
	for _, key := range s.Interp.Keys() {
		s.Interp.LoadVariables(key, preset)
	}
	return nil
}

// Run executes the requested keys, or the entries bound to the event, and
// waits for all of them
func (s *Session) Run(ctx context.Context, opts RunOptions) error {
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	var runs []*pipeline.Execution
	if len(opts.Keys) > 0 {
		for _, key := range opts.Keys {
			runs = append(runs, s.Interp.RunInline(ctx, key))
		}
	} else {
		runs = s.Interp.Trigger(ctx, opts.Event)
	}

	var errs []error
	for _, x := range runs {
		// suspended executions abandon on ctx, so waiting past it is bounded
		if err := x.Wait(context.WithoutCancel(ctx)); err != nil {
			errs = append(errs, fmt.Errorf("entry %s: %w", x.Key(), err))
		}
	}

	if opts.State && s.cache != nil {
		if err := s.cache.SaveState(s.source, s.Vars()); err != nil {
			errs = append(errs, fmt.Errorf("failed to save state: %w", err))
		}
	}
	return errors.Join(errs...)
}

// Vars exports every entry store as plain values
func (s *Session) Vars() map[string]map[string]any {
	out := make(map[string]map[string]any)
	for _, key := range s.Interp.Keys() {
		snap, ok := s.Interp.Snapshot(key)
		if !ok {
			continue
		}
		vars := make(map[string]any, len(snap))
		for name, v := range snap {
			vars[name] = export(v)
		}
		out[key] = vars
	}
	return out
}

// export keeps values JSON can carry and renders the rest as text
func export(v types.Value) any {
	if v.Kind() != types.ObjectKind {
		return v.Interface()
	}
	if _, err := json.Marshal(v.Interface()); err != nil {
		return v.String()
	}
	return v.Interface()
}

// Write prints the rendered page, or the variable dump
func (s *Session) Write(w io.Writer, dumpVars bool) error {
	if !dumpVars {
		if err := s.Doc.Render(w); err != nil {
			return err
		}
		_, err := fmt.Fprintln(w)
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(s.Vars())
}

// Close releases the cache and any extracted bundle
func (s *Session) Close() error {
	var errs []error
	if s.cache != nil {
		errs = append(errs, s.cache.Close())
	}
	errs = append(errs, s.Page.Close())
	return errors.Join(errs...)
}

// ExecutePage opens a session, runs it and writes the result
func ExecutePage(ctx context.Context, w io.Writer, cfg Config, opts RunOptions, version string, logger *slog.Logger) error {
	s, err := OpenSession(ctx, cfg, opts, version, logger)
	if err != nil {
		return err
	}
	defer func() { _ = s.Close() }()

	runErr := s.Run(ctx, opts)
	if err := s.Write(w, opts.DumpVars); err != nil {
		return err
	}
	return runErr
}

// EntryInfo describes a registered entry for listing
type EntryInfo struct {
	Key      string
	Events   []string
	Segments []SegmentInfo
}

// SegmentInfo is one classified segment
type SegmentInfo struct {
	Text string
	Kind pipeline.SegmentKind
}

// Entries lists the registered entries in document order
func (s *Session) Entries() []EntryInfo {
	events := make(map[string][]string)
	for ev, keys := range s.Interp.Bindings() {
		for _, key := range keys {
			events[key] = append(events[key], ev)
		}
	}

	var out []EntryInfo
	for _, key := range s.Interp.Keys() {
		e, ok := s.Interp.Entry(key)
		if !ok {
			continue
		}
		info := EntryInfo{Key: key, Events: events[key]}
		sort.Strings(info.Events)
		for _, seg := range e.Segments() {
			info.Segments = append(info.Segments, SegmentInfo{Text: seg, Kind: pipeline.Classify(seg)})
		}
		out = append(out, info)
	}
	return out
}

// Lint reports malformed segments and calls to verbs no one provides
func (s *Session) Lint() *dperrors.SegmentErrorList {
	problems := &dperrors.SegmentErrorList{}
	for _, entry := range s.Entries() {
		for i, seg := range entry.Segments {
			if seg.Kind == pipeline.Malformed {
				problems.Add(&dperrors.SegmentError{
					Message: "malformed segment",
					Key:     entry.Key,
					Index:   i,
					Segment: seg.Text,
					Err:     dperrors.ErrMalformed,
				})
				continue
			}
			name, ok := pipeline.VerbName(seg.Text)
			if !ok {
				continue
			}
			if _, known := s.Interp.Verbs().Lookup(name); !known {
				problems.Add(&dperrors.SegmentError{
					Message: fmt.Sprintf("unknown verb %q", name),
					Key:     entry.Key,
					Index:   i,
					Segment: seg.Text,
					Err:     dperrors.ErrUnknownVerb,
				})
			}
		}
	}
	return problems
}
