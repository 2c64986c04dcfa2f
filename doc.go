// Package oauth manages the OAuth2 token lifecycle against the Twitch
// authorization server: acquiring, validating, refreshing and revoking access
// tokens under the authorization-code, client-credentials, implicit and
// device-code grants.
//
// The engine never performs HTTP itself. Every operation that reaches the
// network takes a transport.Transport, so the same code runs over net/http,
// a retrying client or a test stub.
//
// # Tokens
//
// AppToken and UserToken implement Token. A token's scopes and expiry are
// only trustworthy after a successful Validate; callers check IsElapsed and
// decide when to Refresh, the engine never refreshes on its own.
//
//	client, err := oauth.New(oauth.DefaultConfig())
//	tr := httpclient.New(nil, logger)
//
//	flow, err := client.NewClientCredentialsFlow(clientID, secret, oauth.ParseScopes("chat:read"))
//	tok, err := flow.GetToken(ctx, tr)
//
//	if tok.IsElapsed() {
//	    err = tok.Refresh(ctx, tr)
//	}
//
// # Secrets
//
// AccessToken, RefreshToken, ClientSecret, AuthorizationCode, CSRFState,
// DeviceCode and PKCEVerifier render as "[redacted]" through fmt, slog and
// encoding/json. Secret() is the only way to read the raw value.
//
// # Errors
//
// Every operation returns *Error. Use errors.Is with the sentinel values
// (ErrInvalidToken, ErrRefreshFailed, ...) to branch on the kind, and
// errors.As to read the provider status and message.
//
// # Concurrency
//
// Client is immutable and safe for concurrent use. A single token is not:
// callers must serialize Validate, Refresh and Revoke on the same token.
package oauth
