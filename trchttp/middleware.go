package trchttp

import (
	"net/http"

	"github.com/peterbourgon/trcevent"
)

// Middleware decorates an HTTP handler and records a pair of events for each
// incoming request in the given category. The begin event is named after the
// method and path, and carries the remote address. The end event carries the
// response code and the number of body bytes written.
//
// Nothing is recorded unless the recorder is enabled and the category isn't
// disabled. Once the begin event is recorded, the end event is recorded too,
// even if the request itself disables recording. The recorder is also injected
// into the request context, so handlers can record regions of their own via
// [trcevent.Region].
func Middleware(rec *trcevent.Recorder, category string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !rec.Enabled() || !rec.Category(category).Enabled() {
				next.ServeHTTP(w, r.WithContext(trcevent.NewContext(r.Context(), rec)))
				return
			}

			end := rec.Begin(trcevent.Event{
				Name:      r.Method + " " + r.URL.Path,
				Category:  category,
				Timestamp: rec.Now(),
				Args: trcevent.Args{
					"remote": trcevent.String(r.RemoteAddr),
				},
			})

			iw := newInterceptor(w)
			defer func() {
				end(trcevent.Event{
					Args: trcevent.Args{
						"code":  trcevent.Int(int64(iw.Code())),
						"bytes": trcevent.Int(int64(iw.Written())),
					},
				})
			}()

			next.ServeHTTP(iw, r.WithContext(trcevent.NewContext(r.Context(), rec)))
		})
	}
}

//
//
//

type interceptor struct {
	http.ResponseWriter

	code int
	n    int
}

func newInterceptor(w http.ResponseWriter) *interceptor {
	return &interceptor{ResponseWriter: w}
}

func (i *interceptor) WriteHeader(code int) {
	if i.code == 0 {
		i.code = code
	}
	i.ResponseWriter.WriteHeader(code)
}

func (i *interceptor) Write(p []byte) (int, error) {
	n, err := i.ResponseWriter.Write(p)
	i.n += n
	return n, err
}

func (i *interceptor) Flush() {
	if f, ok := i.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (i *interceptor) Code() int {
	if i.code == 0 {
		return http.StatusOK
	}
	return i.code
}

func (i *interceptor) Written() int {
	return i.n
}
