package middleware

import (
	"net/http"

	"github.com/bmlt-enabled/tomato/internal/translation"
)

// Language binds the request's requested language (lang_enum, default
// "en") to the request context for the duration of the request (spec
// §4.8/§5: "bound to a task-local handle for the duration of the
// request and cleared on exit" — cleared here simply by the binding
// never outliving the request's own context).
func Language() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			lang := r.URL.Query().Get("lang_enum")
			if lang == "" {
				lang = "en"
			}
			ctx := translation.WithLanguage(r.Context(), lang)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
