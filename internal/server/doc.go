// Package server provides the HTTP pieces of the OAuth login flow.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
// [BasicRouter] implements it on [http.ServeMux] with method filtering. [Middleware] is applied in
// reverse order (last added executes first); [Logging] and [Recover] are the stock middleware.
//
// # OAuth Callback Handler
//
// [OAuthHandler] implements the OAuth2 authorization code callback. It validates the state parameter,
// exchanges the code for a token and delivers exactly one result. Later callbacks are rejected.
//
// # Usage
//
// `plx auth spotify|youtube` binds a [CallbackServer] on the configured host and port, opens the consent
// page in the browser and waits on [OAuthHandler.Wait] until the provider redirects back to [CallbackPath].
package server
