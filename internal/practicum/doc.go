// Package practicum talks to the homework status API.
//
// The API answers GET <endpoint>?from_date=<unix> with
//
//	{"homeworks": [{"homework_name": "...", "status": "approved", ...}], "current_date": 1700000000}
//
// Client fetches the raw body, CheckResponse validates its shape and
// ParseStatus turns one homework record into the chat message text.
package practicum
