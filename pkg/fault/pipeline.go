package fault

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
)

// HandlerFunc handles a request and reports failures as errors instead of
// writing them, so outer stages can observe them.
type HandlerFunc func(w http.ResponseWriter, r *http.Request) error

// Stage is one step of a Pipeline. next is the rest of the chain; a stage
// short-circuits by not calling it.
type Stage interface {
	Serve(w http.ResponseWriter, r *http.Request, next HandlerFunc) error
}

// StageFunc adapts a function to Stage.
type StageFunc func(w http.ResponseWriter, r *http.Request, next HandlerFunc) error

// Serve calls f.
func (f StageFunc) Serve(w http.ResponseWriter, r *http.Request, next HandlerFunc) error {
	return f(w, r, next)
}

// Pipeline is an ordered, immutable sequence of stages.
type Pipeline struct {
	stages []Stage
}

// Compose fixes the stage order. Stages run in the order given for every request.
func Compose(stages ...Stage) *Pipeline {
	return &Pipeline{stages: append([]Stage(nil), stages...)}
}

// Len returns the number of stages.
func (p *Pipeline) Len() int {
	return len(p.stages)
}

// Stages returns a copy of the stages in execution order.
func (p *Pipeline) Stages() []Stage {
	return append([]Stage(nil), p.stages...)
}

// Then links the stages in front of terminal. The chain is built once;
// the returned function is safe for concurrent use.
func (p *Pipeline) Then(terminal HandlerFunc) HandlerFunc {
	h := terminal
	for i := len(p.stages) - 1; i >= 0; i-- {
		stage, next := p.stages[i], h
		h = func(w http.ResponseWriter, r *http.Request) error {
			return stage.Serve(w, r, next)
		}
	}
	return h
}

// Wrap turns a plain http.Handler into a terminal that never fails.
func Wrap(h http.Handler) HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) error {
		h.ServeHTTP(w, r)
		return nil
	}
}

// Adapt turns a standard net/http middleware into a Stage. Errors returned by
// the rest of the chain travel through it untouched.
func Adapt(mw func(http.Handler) http.Handler) Stage {
	return StageFunc(func(w http.ResponseWriter, r *http.Request, next HandlerFunc) error {
		var err error
		mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			err = next(w, r)
		})).ServeHTTP(w, r)
		return err
	})
}

// ErrorHandler receives the error that escaped the whole chain.
type ErrorHandler func(w http.ResponseWriter, r *http.Request, err error)

type handlerConfig struct {
	onError ErrorHandler
}

// HandlerOption configures Handler and Middleware.
type HandlerOption func(*handlerConfig)

// WithErrorHandler replaces the default error responder.
func WithErrorHandler(fn ErrorHandler) HandlerOption {
	return func(c *handlerConfig) {
		c.onError = fn
	}
}

// Handler adapts the pipeline and terminal to net/http. An error that reaches
// the top is answered with 500, unless the client is gone or a response was
// already started.
func (p *Pipeline) Handler(terminal HandlerFunc, opts ...HandlerOption) http.Handler {
	cfg := handlerConfig{onError: defaultErrorHandler}
	for _, opt := range opts {
		opt(&cfg)
	}
	chain := p.Then(terminal)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r = ensureRequestID(r)
		tw := &trackingWriter{ResponseWriter: w}
		if err := chain(tw, r); err != nil {
			cfg.onError(tw, r, err)
		}
	})
}

// Middleware adapts the pipeline for chi's Router.Use.
func (p *Pipeline) Middleware(opts ...HandlerOption) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return p.Handler(Wrap(next), opts...)
	}
}

func defaultErrorHandler(w http.ResponseWriter, r *http.Request, err error) {
	if r.Context().Err() != nil {
		return
	}
	if tw, ok := w.(*trackingWriter); ok && tw.wrote {
		return
	}
	http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
}

// RequestID returns the request identity used in logs.
func RequestID(r *http.Request) string {
	return middleware.GetReqID(r.Context())
}

// ensureRequestID reuses chi's request id when present, then the inbound
// header, and generates one otherwise.
func ensureRequestID(r *http.Request) *http.Request {
	if middleware.GetReqID(r.Context()) != "" {
		return r
	}
	id := r.Header.Get(middleware.RequestIDHeader)
	if id == "" {
		id = uuid.NewString()
	}
	ctx := context.WithValue(r.Context(), middleware.RequestIDKey, id)
	return r.WithContext(ctx)
}

// trackingWriter records whether a response has been started.
type trackingWriter struct {
	http.ResponseWriter
	wrote bool
}

func (w *trackingWriter) WriteHeader(code int) {
	w.wrote = true
	w.ResponseWriter.WriteHeader(code)
}

func (w *trackingWriter) Write(b []byte) (int, error) {
	w.wrote = true
	return w.ResponseWriter.Write(b)
}

// Flush implements http.Flusher when the underlying writer does.
func (w *trackingWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		w.wrote = true
		f.Flush()
	}
}

// Unwrap returns the underlying ResponseWriter for http.ResponseController.
func (w *trackingWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}
