// Package api exposes the authentication service over HTTP.
//
// The server mounts the credential and token endpoints under /auth and
// wires the standard middleware stack: request IDs, structured request
// logging, panic recovery, CORS, Prometheus metrics, and per-IP rate
// limiting on the credential endpoints.
//
// Routes:
//
//	POST /auth/login            form-encoded login (username field carries the email)
//	POST /auth/login/json       JSON login
//	POST /auth/register         create a user
//	GET  /auth/me               current user for the presented token
//	POST /auth/verify           token validity check
//	POST /auth/logout           revoke the presented token
//	GET  /auth/blacklist/stats  revocation stats (admin only)
package api
