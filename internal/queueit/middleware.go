package queueit

import "net/http"

// Middleware protects next: accepted requests get the issued cookie (if any) and
// reach next, all others are redirected to the waiting room for the current page.
func (v *Validator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		req := RequestFromHTTP(r)
		result := v.Validate(req)
		if !result.Accepted {
			target := CanonicalURL(req.URI, v.cfg.QueryPrefix)
			http.Redirect(w, r, v.QueueURL(req, target), http.StatusFound)
			return
		}
		if result.Cookie != nil {
			http.SetCookie(w, result.Cookie)
		}
		next.ServeHTTP(w, r)
	})
}
