package api

import (
	"fmt"
	"net/http"
)

func (s *ChatApp) errorHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				var panicError error
				switch e := err.(type) {
				case error:
					panicError = e
				default:
					panicError = fmt.Errorf("%v", e)
				}
				s.log.Printf("panic: %v", panicError)
				errResp := NewInternalServerError(panicError)
				w.Header().Set("Connection", "close")
				s.writeJson(w, http.StatusInternalServerError, errResp.Response())
				return
			}
		}()

		next.ServeHTTP(w, r)
	})
}

func noStore(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-store")
		next.ServeHTTP(w, r)
	})
}

// sessionMiddleware guards JSON endpoints. Requests without a valid
// session get a fail reply.
func (s *ChatApp) sessionMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := s.identityFromRequest(r)
		if err != nil {
			s.log.Printf("session: %v", err)
			s.writeError(w, NewUnauthorizedError())
			return
		}

		next(w, r.WithContext(WithIdentity(r.Context(), id)))
	}
}

// pageMiddleware guards HTML pages. Requests without a valid session are
// sent to the home page.
func (s *ChatApp) pageMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := s.identityFromRequest(r)
		if err != nil {
			http.Redirect(w, r, "/", http.StatusSeeOther)
			return
		}

		next(w, r.WithContext(WithIdentity(r.Context(), id)))
	}
}

// publicPage renders page for visitors and sends signed-in users to the
// chat.
func (s *ChatApp) publicPage(page string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, err := s.identityFromRequest(r); err == nil {
			http.Redirect(w, r, "/chat", http.StatusSeeOther)
			return
		}

		s.render(w, page, nil)
	}
}
