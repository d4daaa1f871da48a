package bot

import (
	"log/slog"
	"strings"
	"sync"

	telebot "gopkg.in/telebot.v3"

	"github.com/bekzod-dev/botforge/internal/bot/handlers"
)

// Router is the single entry point for builder bot updates. Resolution
// order: callback prefix, then slash command, then the sender's
// conversation state, then the default handler. Every match runs
// through the registered middleware chain.
type Router struct {
	mu          sync.RWMutex
	commands    map[string]handlers.Handler
	callbacks   map[string]handlers.CallbackHandler
	dispatcher  *Dispatcher
	fallthru    handlers.Handler
	middlewares []handlers.Middleware
	log         *slog.Logger
}

func NewRouter(dispatcher *Dispatcher, log *slog.Logger) *Router {
	if log == nil {
		log = slog.Default()
	}
	return &Router{
		commands:   make(map[string]handlers.Handler),
		callbacks:  make(map[string]handlers.CallbackHandler),
		dispatcher: dispatcher,
		log:        log,
	}
}

func (r *Router) RegisterCommand(cmd string, h handlers.Handler) {
	r.mu.Lock()
	r.commands[cmd] = h
	r.mu.Unlock()
}

// RegisterCallback binds h to callback data starting with prefix. No
// registered prefix may be a prefix of another: lookup order over the
// map is not fixed.
func (r *Router) RegisterCallback(prefix string, h handlers.CallbackHandler) {
	r.mu.Lock()
	r.callbacks[prefix] = h
	r.mu.Unlock()
}

func (r *Router) Use(mw handlers.Middleware) {
	r.mu.Lock()
	r.middlewares = append(r.middlewares, mw)
	r.mu.Unlock()
}

// SetDefault registers the handler for messages no command or state
// claims.
func (r *Router) SetDefault(h handlers.Handler) {
	r.mu.Lock()
	r.fallthru = h
	r.mu.Unlock()
}

// Route dispatches one update.
func (r *Router) Route(c telebot.Context) error {
	if c == nil {
		return nil
	}

	if cb := c.Callback(); cb != nil {
		return r.routeCallback(c, cb.Data)
	}

	if text := c.Text(); strings.HasPrefix(text, "/") {
		r.mu.RLock()
		h := r.commands[text]
		r.mu.RUnlock()
		if h != nil {
			return r.run(h, c)
		}
	}

	if r.dispatcher != nil {
		h, err := r.dispatcher.Resolve(c)
		if err != nil {
			return err
		}
		if h != nil {
			return r.run(h, c)
		}
	}

	r.mu.RLock()
	h := r.fallthru
	r.mu.RUnlock()
	if h != nil {
		return r.run(h, c)
	}
	return nil
}

func (r *Router) routeCallback(c telebot.Context, data string) error {
	r.mu.RLock()
	var h handlers.CallbackHandler
	for prefix, cand := range r.callbacks {
		if strings.HasPrefix(data, prefix) {
			h = cand
			break
		}
	}
	r.mu.RUnlock()

	if h == nil {
		r.log.Info("unrouted callback", slog.String("data", data))
		return nil
	}
	return r.run(handlers.Handler(h), c)
}

// run wraps h in the middleware chain, outermost first.
func (r *Router) run(h handlers.Handler, c telebot.Context) error {
	r.mu.RLock()
	chain := r.middlewares
	r.mu.RUnlock()

	for i := len(chain) - 1; i >= 0; i-- {
		h = chain[i](h)
	}
	return h(c)
}
