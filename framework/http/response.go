package http

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// ── Response ─────────────────────────────────────────────────────────────────

// Response wraps http.ResponseWriter with convenience helpers and records
// the status written.
type Response struct {
	w      http.ResponseWriter
	status int
	code   int // status for Render, 0 means 200
}

// NewResponse wraps a ResponseWriter.
func NewResponse(w http.ResponseWriter) *Response {
	return &Response{w: w}
}

// NewCLIResponse writes bodies to out. Headers are kept but never printed.
func NewCLIResponse(out io.Writer) *Response {
	return NewResponse(&cliWriter{out: out, header: make(http.Header)})
}

// Raw returns the underlying ResponseWriter.
func (res *Response) Raw() http.ResponseWriter { return res.w }

// Status returns the status written so far, 0 if nothing was written.
func (res *Response) Status() int { return res.status }

// Written reports whether a status has been sent.
func (res *Response) Written() bool { return res.status != 0 }

// SetStatus sets the status Render sends.
func (res *Response) SetStatus(status int) *Response {
	res.code = status
	return res
}

func (res *Response) writeHeader(status int) {
	if res.status != 0 {
		return
	}
	res.status = status
	res.w.WriteHeader(status)
}

// ── Bodies ────────────────────────────────────────────────────────────────────

// JSON sends a JSON response.
//
//	res.JSON(http.StatusOK, map[string]any{"message": "ok"})
func (res *Response) JSON(status int, data any) {
	res.w.Header().Set("Content-Type", "application/json")
	res.writeHeader(status)
	_ = json.NewEncoder(res.w).Encode(data)
}

// Text sends a plain-text response.
func (res *Response) Text(status int, format string, args ...any) {
	res.w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	res.writeHeader(status)
	_, _ = fmt.Fprintf(res.w, format, args...)
}

// Render sends an action's return value with the SetStatus status: strings
// as text, anything else as {"data": v}. A nil value sends nothing.
func (res *Response) Render(v any) {
	status := res.code
	if status == 0 {
		status = http.StatusOK
	}
	switch v := v.(type) {
	case nil:
	case string:
		res.Text(status, "%s\n", v)
	case fmt.Stringer:
		res.Text(status, "%s\n", v.String())
	default:
		res.JSON(status, envelope{"data": v})
	}
}

// Error sends a JSON error response.
//
//	res.Error(http.StatusNotFound, "Resource not found")
func (res *Response) Error(status int, message string) {
	res.JSON(status, envelope{"message": message})
}

// ── Redirects ────────────────────────────────────────────────────────────────

// RedirectTo performs a 302 redirect.
func (res *Response) RedirectTo(url string) {
	res.w.Header().Set("Location", url)
	res.writeHeader(http.StatusFound)
}

// ── Helpers ──────────────────────────────────────────────────────────────────

type envelope map[string]any

// cliWriter is an http.ResponseWriter over a plain stream.
type cliWriter struct {
	out    io.Writer
	header http.Header
}

func (w *cliWriter) Header() http.Header         { return w.header }
func (w *cliWriter) WriteHeader(int)             {}
func (w *cliWriter) Write(b []byte) (int, error) { return w.out.Write(b) }
