// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package middleware provides HTTP middleware and helper functions.

# Request Logging

Wrap handlers with request logging:

	mux.HandleFunc("GET /health", middleware.WithLogging(handler))

Logs request start (method, path, remote, request_id) and completion
(duration_ms). An incoming X-Request-ID header is kept; otherwise
a new UUID is generated and echoed back.

# Metrics

WithMetrics records request counts and latency per route pattern:

	middleware.WithMetrics("GET /network", handler)

# Sessions

RequireSession accepts a session token from the Authorization header
(Bearer) or the mmp_session cookie and stores the claims in the request
context:

	claims := middleware.SessionFrom(r.Context())

RequireAdmin limits a route to administrators. RequireActionToken checks
the X-Action-Token header against the named action for the session user.

# CORS Middleware

Enable cross-origin requests for embedding sites:

	server := http.Server{
		Handler: middleware.CORS(mux),
	}

Allows methods GET, POST, PUT, DELETE, OPTIONS with headers
Content-Type, Authorization, X-Action-Token.

# JSON Helpers

Write JSON responses:

	middleware.JSONResponse(w, http.StatusOK, data)
	middleware.ErrorResponse(w, http.StatusBadRequest, "message")

Parse JSON request bodies:

	var req models.UpdateStatusRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

# Client IP Extraction

Get the original client IP (handles X-Forwarded-For, X-Real-IP):

	ip := middleware.GetClientIP(r)

Stored with referral statistics.
*/
package middleware
