package instrument

import (
	"context"
	"fmt"
	"path"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/ghostcanvas/pkg/cache"
	"github.com/matzehuels/ghostcanvas/pkg/observability"
	"github.com/matzehuels/ghostcanvas/pkg/source"
)

// DefaultAttribute is the data attribute carrying the location stamp.
const DefaultAttribute = "data-gc-source"

// memoLimit bounds the in-process memo; it is cleared when full.
const memoLimit = 512

// Options configures an Instrumenter.
type Options struct {
	// Attribute overrides DefaultAttribute.
	Attribute string

	// Extensions restricts instrumentation to these extensions (".tsx").
	// Empty means every extension with a known markup mode.
	Extensions []string

	// Cache persists results across processes. Nil disables it.
	Cache cache.Cache
	Keyer cache.Keyer
	// TTL overrides cache.TTLInstrument.
	TTL time.Duration

	Logger *log.Logger
}

// Result is the outcome of instrumenting one file.
type Result struct {
	Text string

	// Instrumented is false for pass-through files.
	Instrumented bool

	// Elements is the number of stamps inserted.
	Elements int

	// Cached reports whether the result came from the memo or cache.
	Cached bool
}

type memoKey struct{ path, text string }

// Instrumenter applies Stamp with memoization.
type Instrumenter struct {
	attr   string
	exts   map[string]bool
	cache  cache.Cache
	keyer  cache.Keyer
	ttl    time.Duration
	logger *log.Logger

	mu   sync.Mutex
	memo map[memoKey]Result
}

// New creates an Instrumenter.
func New(opts Options) *Instrumenter {
	in := &Instrumenter{
		attr:   opts.Attribute,
		cache:  opts.Cache,
		keyer:  opts.Keyer,
		ttl:    opts.TTL,
		logger: opts.Logger,
		memo:   make(map[memoKey]Result),
	}
	if in.attr == "" {
		in.attr = DefaultAttribute
	}
	if in.cache == nil {
		in.cache = cache.NewNullCache()
	}
	if in.keyer == nil {
		in.keyer = cache.NewDefaultKeyer()
	}
	if in.ttl <= 0 {
		in.ttl = cache.TTLInstrument
	}
	if in.logger == nil {
		in.logger = log.Default()
	}
	if len(opts.Extensions) > 0 {
		in.exts = make(map[string]bool, len(opts.Extensions))
		for _, ext := range opts.Extensions {
			ext = strings.ToLower(ext)
			if !strings.HasPrefix(ext, ".") {
				ext = "." + ext
			}
			in.exts[ext] = true
		}
	}
	return in
}

// Attribute returns the stamp attribute name.
func (in *Instrumenter) Attribute() string { return in.attr }

// Handles reports whether path is instrumented rather than passed through.
func (in *Instrumenter) Handles(p string) bool {
	if source.ModeFor(p) == source.ModeNone {
		return false
	}
	if in.exts == nil {
		return true
	}
	return in.exts[strings.ToLower(path.Ext(p))]
}

// Instrument returns the stamped copy of text. On a parse failure it
// returns the original text together with a PARSE_FAILURE error.
func (in *Instrumenter) Instrument(ctx context.Context, p, text string) (Result, error) {
	if !in.Handles(p) {
		return Result{Text: text}, nil
	}

	key := memoKey{p, text}
	in.mu.Lock()
	if r, ok := in.memo[key]; ok {
		in.mu.Unlock()
		observability.Cache().OnCacheHit(ctx, "instrument")
		r.Cached = true
		return r, nil
	}
	in.mu.Unlock()

	cacheKey := in.keyer.InstrumentKey(p, cache.InstrumentKeyOpts{
		TextHash:  cache.Hash([]byte(text)),
		Attribute: in.attr,
	})
	if data, hit, err := in.cache.Get(ctx, cacheKey); err == nil && hit {
		observability.Cache().OnCacheHit(ctx, "instrument")
		r := Result{Text: string(data), Instrumented: true, Elements: strings.Count(string(data), in.attr+"=") - strings.Count(text, in.attr+"=")}
		in.remember(key, r)
		r.Cached = true
		return r, nil
	}
	observability.Cache().OnCacheMiss(ctx, "instrument")

	out, n, err := Stamp(p, text, in.attr)
	if err != nil {
		in.logger.Debug("instrumentation failed", "path", p, "err", err)
		return Result{Text: text}, err
	}

	r := Result{Text: out, Instrumented: true, Elements: n}
	in.remember(key, r)
	if err := in.cache.Set(ctx, cacheKey, []byte(out), in.ttl); err != nil {
		in.logger.Warn("instrument cache write failed", "path", p, "err", err)
	} else {
		observability.Cache().OnCacheSet(ctx, "instrument", len(out))
	}
	in.logger.Debug("instrumented", "path", p, "elements", n)
	return r, nil
}

func (in *Instrumenter) remember(key memoKey, r Result) {
	in.mu.Lock()
	defer in.mu.Unlock()
	if len(in.memo) >= memoLimit {
		in.memo = make(map[memoKey]Result)
	}
	in.memo[key] = r
}

// Stamp is the pure transform: it inserts attr="path:line:col" into every
// element that can carry it and returns the new text with the stamp count.
// Elements already carrying attr are left alone, so Stamp is idempotent.
func Stamp(p, text, attr string) (string, int, error) {
	mode := source.ModeFor(p)
	if mode == source.ModeNone {
		return text, 0, nil
	}
	doc, err := source.ScanFile(p, text)
	if err != nil {
		return text, 0, err
	}

	isVue := strings.EqualFold(path.Ext(p), ".vue")
	type insertion struct {
		at    int
		stamp string
	}
	var ins []insertion
	doc.Walk(func(e *source.Element) bool {
		if !stampable(e, mode, isVue) || e.HasAttr(attr) {
			return true
		}
		loc := doc.Location(p, e)
		ins = append(ins, insertion{at: e.NameEnd, stamp: fmt.Sprintf(` %s="%s"`, attr, loc)})
		return true
	})
	if len(ins) == 0 {
		return text, 0, nil
	}
	sort.Slice(ins, func(i, j int) bool { return ins[i].at < ins[j].at })

	var b strings.Builder
	b.Grow(len(text) + len(ins)*(len(attr)+len(p)+16))
	last := 0
	for _, x := range ins {
		b.WriteString(text[last:x.at])
		b.WriteString(x.stamp)
		last = x.at
	}
	b.WriteString(text[last:])
	return b.String(), len(ins), nil
}

func stampable(e *source.Element, mode source.Mode, isVue bool) bool {
	if e.IsFragment() {
		return false
	}
	if mode != source.ModeMarkup {
		return true
	}
	switch strings.ToLower(e.Name) {
	case "script", "style":
		return false
	case "template":
		if isVue && e.Parent == nil {
			return false
		}
	}
	return !strings.Contains(e.Name, ":")
}
