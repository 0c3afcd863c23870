package views

import (
	"context"
	"html"
	"io"
	"net/http"
	"strconv"

	"github.com/a-h/templ"
)

// ErrorPage renders a standalone HTML error page.
func ErrorPage(cfg SiteConfig, status int, title, message string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		home := buildURL(cfg.URL)
		_, err := io.WriteString(w, `<!DOCTYPE html><html lang="en"><head><meta charset="utf-8">`+
			`<meta name="viewport" content="width=device-width, initial-scale=1">`+
			`<meta name="robots" content="noindex">`+
			`<title>`+html.EscapeString(title+" | "+cfg.Name)+`</title></head>`+
			`<body><main class="error-page">`+
			`<p class="error-code">`+strconv.Itoa(status)+`</p>`+
			`<h1>`+html.EscapeString(title)+`</h1>`+
			`<p>`+html.EscapeString(message)+`</p>`+
			`<a href="`+html.EscapeString(home)+`">Back to `+html.EscapeString(cfg.Name)+`</a>`+
			`</main></body></html>`)
		return err
	})
}

func NotFound(cfg SiteConfig) templ.Component {
	return ErrorPage(cfg, http.StatusNotFound, "Page not found",
		"The page you are looking for does not exist or has been moved.")
}

func Unauthorized(cfg SiteConfig) templ.Component {
	return ErrorPage(cfg, http.StatusUnauthorized, "Sign in required",
		"You need to sign in to view this page.")
}

func Forbidden(cfg SiteConfig) templ.Component {
	return ErrorPage(cfg, http.StatusForbidden, "Access denied",
		"You do not have permission to view this page.")
}

func ServerError(cfg SiteConfig) templ.Component {
	return ErrorPage(cfg, http.StatusInternalServerError, "Something went wrong",
		"An unexpected error occurred. Please try again later.")
}

// ForStatus picks the page for an HTTP status code.
func ForStatus(cfg SiteConfig, status int, message string) templ.Component {
	switch status {
	case http.StatusNotFound:
		return NotFound(cfg)
	case http.StatusUnauthorized:
		return Unauthorized(cfg)
	case http.StatusForbidden:
		return Forbidden(cfg)
	}
	if status >= http.StatusInternalServerError {
		return ServerError(cfg)
	}
	return ErrorPage(cfg, status, http.StatusText(status), message)
}
