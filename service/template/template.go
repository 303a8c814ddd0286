// Package template renders the $-placeholder templates users write into rule
// URLs and MQTT message bodies. Substitution is literal and single-pass: a
// value that itself contains a placeholder token is not re-expanded, and
// unrecognized tokens are left verbatim.
package template

import (
	"net/url"
	"strconv"
	"strings"
)

// Context carries the values the placeholder vocabulary resolves to.
// TimeMillis is the epoch-millisecond value for $time, captured by the
// caller at render time.
type Context struct {
	Title      string
	Text       string
	AppPackage string
	AppName    string
	TimeMillis int64
}

// Render substitutes all five placeholders: $title, $text, $app_package,
// $app_name and $time.
func Render(tmpl string, ctx Context) string {
	r := strings.NewReplacer(
		"$title", ctx.Title,
		"$text", ctx.Text,
		"$app_package", ctx.AppPackage,
		"$app_name", ctx.AppName,
		"$time", strconv.FormatInt(ctx.TimeMillis, 10),
	)
	return r.Replace(tmpl)
}

// RenderURL substitutes only $title and $text, percent-encoding each value
// (UTF-8, form-urlencoded escaping) so the result stays a well-formed URL.
func RenderURL(tmpl string, ctx Context) string {
	r := strings.NewReplacer(
		"$title", url.QueryEscape(ctx.Title),
		"$text", url.QueryEscape(ctx.Text),
	)
	return r.Replace(tmpl)
}
