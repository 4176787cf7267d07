package httpmw

import (
	"errors"
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/keithlinneman/devopsplatform-web/internal/log"
	"github.com/keithlinneman/devopsplatform-web/internal/xerrors"
)

// Recover turns a handler panic into a 500, logs it with the stack, and
// calls onPanic (may be nil). http.ErrAbortHandler is re-raised so the
// server can drop the connection as intended.
func Recover(base log.Logger, onPanic func()) func(http.Handler) http.Handler {
	if base == nil {
		base = log.Nop()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if err, ok := rec.(error); ok && errors.Is(err, http.ErrAbortHandler) {
					panic(rec)
				}

				if onPanic != nil {
					onPanic()
				}

				var err error
				if e, ok := rec.(error); ok {
					err = xerrors.Wrap(e, "panic")
				} else {
					err = xerrors.New(fmt.Sprintf("panic: %v", rec))
				}

				ctx := r.Context()
				L := log.FromContextOr(ctx, base)
				L.Error(ctx, err, "httpserver panic recovered",
					"http.request.method", r.Method,
					"url.path", r.URL.Path,
					"panic.stack", string(debug.Stack()),
				)

				w.Header().Set("Cache-Control", "no-store")
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			}()
			next.ServeHTTP(w, r)
		})
	}
}
