package oauth

import (
	"context"
	"net/http"
	"net/url"
	"testing"

	"golang.org/x/oauth2"

	"github.com/giantswarm/twitch-oauth/internal/testutil"
	"github.com/giantswarm/twitch-oauth/transport/mock"
)

func TestValidateRedirectURL(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		wantErr bool
	}{
		{"https", "https://example.com/callback", false},
		{"https with port and query", "https://example.com:8443/cb?x=1", false},
		{"http localhost", "http://localhost:3000/cb", false},
		{"http loopback ip", "http://127.0.0.1/cb", false},
		{"http ipv6 loopback", "http://[::1]:8080/cb", false},
		{"empty", "", true},
		{"relative", "/callback", true},
		{"fragment", "https://example.com/cb#frag", true},
		{"empty fragment", "https://example.com/cb#", true},
		{"http public host", "http://example.com/cb", true},
		{"http unspecified address", "http://0.0.0.0/cb", true},
		{"custom scheme", "myapp://callback", true},
		{"no host", "https:///cb", true},
		{"malformed", "https://exa mple.com/%zz", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := validateRedirectURL("test", tt.url)
			if tt.wantErr {
				requireKind(t, err, KindInvalidConfiguration)
				return
			}
			requireNoError(t, err)
		})
	}
}

func TestFlowConstructors_RejectInvalidInput(t *testing.T) {
	env := newTestEnv(t)
	scopes := NewScopeSet(ScopeChatRead)

	tests := []struct {
		name string
		fn   func() error
	}{
		{"client credentials without client id", func() error {
			_, err := env.client.NewClientCredentialsFlow("", testSecret(), scopes)
			return err
		}},
		{"client credentials without secret", func() error {
			_, err := env.client.NewClientCredentialsFlow(testClientID, ClientSecret{}, scopes)
			return err
		}},
		{"authorization code without secret", func() error {
			_, err := env.client.NewAuthorizationCodeFlow(testClientID, ClientSecret{}, testRedirect, scopes)
			return err
		}},
		{"authorization code with bad redirect", func() error {
			_, err := env.client.NewAuthorizationCodeFlow(testClientID, testSecret(), "http://example.com/cb", scopes)
			return err
		}},
		{"authorization code with blank client id", func() error {
			_, err := env.client.NewAuthorizationCodeFlow("  ", testSecret(), testRedirect, scopes)
			return err
		}},
		{"implicit with fragment redirect", func() error {
			_, err := env.client.NewImplicitFlow(testClientID, "https://example.com/#x", scopes)
			return err
		}},
		{"device without client id", func() error {
			_, err := env.client.NewDeviceCodeFlow("", scopes)
			return err
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			requireKind(t, tt.fn(), KindInvalidConfiguration)
		})
	}
}

func TestClientCredentialsFlow_GetToken(t *testing.T) {
	env := newTestEnv(t)
	flow, err := env.client.NewClientCredentialsFlow(testClientID, testSecret(), NewScopeSet(ScopeChatRead))
	requireNoError(t, err)

	tr := mock.New(mock.JSON(http.StatusOK, `{"access_token":"abc","expires_in":3600,"token_type":"bearer"}`))
	tok, err := flow.GetToken(context.Background(), tr)
	requireNoError(t, err)

	if tr.CallCount() != 1 {
		t.Errorf("CallCount() = %d, want 1", tr.CallCount())
	}
	if tok.AccessToken().Secret() != "abc" {
		t.Errorf("AccessToken() = %q", tok.AccessToken().Secret())
	}
	if _, ok := tok.RefreshToken(); ok {
		t.Error("client credentials token must hold no refresh token")
	}
	if tok.IsElapsed() {
		t.Error("fresh token should not be elapsed")
	}
	if tok.Kind() != TokenKindApp {
		t.Errorf("Kind() = %s", tok.Kind())
	}

	f := requestForm(t, tr.LastRequest())
	want := url.Values{
		"client_id":     {string(testClientID)},
		"client_secret": {"client-secret-xyz"},
		"grant_type":    {"client_credentials"},
		"scope":         {"chat:read"},
	}
	if f.Encode() != want.Encode() {
		t.Errorf("form = %v, want %v", f, want)
	}
	if tr.LastRequest().URL != testBaseURL+"token" || tr.LastRequest().Method != http.MethodPost {
		t.Errorf("request = %s %s", tr.LastRequest().Method, tr.LastRequest().URL)
	}
	if ct := tr.LastRequest().Header.Get("Content-Type"); ct != "application/x-www-form-urlencoded" {
		t.Errorf("Content-Type = %q", ct)
	}

	_, err = flow.GetToken(context.Background(), tr)
	requireKind(t, err, KindFlowAlreadyCompleted)
	if tr.CallCount() != 1 {
		t.Error("reused flow must not reach the network")
	}
}

func TestClientCredentialsFlow_Failures(t *testing.T) {
	tests := []struct {
		name     string
		reply    mock.Reply
		wantKind ErrorKind
	}{
		{"bad credentials", mock.JSON(http.StatusForbidden, testutil.ErrorJSON(403, "invalid client secret")), KindProviderError},
		{"no access token", mock.JSON(http.StatusOK, `{"expires_in":3600}`), KindRequestFailed},
		{"html error page", mock.JSON(http.StatusBadGateway, "<html>bad gateway</html>"), KindRequestFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			flow, err := env.client.NewClientCredentialsFlow(testClientID, testSecret(), ScopeSet{})
			requireNoError(t, err)

			_, err = flow.GetToken(context.Background(), mock.New(tt.reply))
			requireKind(t, err, tt.wantKind)
			if flow.State() != FlowExchanged {
				t.Error("failed flow must be consumed")
			}
		})
	}
}

func newAuthCodeFlow(t *testing.T, env *testEnv, opts ...FlowOption) *AuthorizationCodeFlow {
	t.Helper()
	flow, err := env.client.NewAuthorizationCodeFlow(testClientID, testSecret(), testRedirect, NewScopeSet(ScopeChatRead, ScopeChatEdit), opts...)
	requireNoError(t, err)
	return flow
}

func TestAuthorizationCodeFlow_GenerateURL(t *testing.T) {
	env := newTestEnv(t)
	flow := newAuthCodeFlow(t, env)

	raw, err := flow.GenerateURL()
	requireNoError(t, err)
	u, err := url.Parse(raw)
	requireNoError(t, err)

	if u.Scheme+"://"+u.Host+u.Path != testBaseURL+"authorize" {
		t.Errorf("authorize URL = %s", raw)
	}
	q := u.Query()
	checks := map[string]string{
		"client_id":     string(testClientID),
		"redirect_uri":  testRedirect,
		"response_type": "code",
		"scope":         "chat:read chat:edit",
		"state":         flow.CSRFState().Secret(),
	}
	for k, want := range checks {
		if got := q.Get(k); got != want {
			t.Errorf("%s = %q, want %q", k, got, want)
		}
	}
	if len(q.Get("state")) < 32 {
		t.Errorf("state %q is too short", q.Get("state"))
	}
	for _, k := range []string{"code_challenge", "force_verify"} {
		if q.Has(k) {
			t.Errorf("unexpected parameter %s", k)
		}
	}
	if flow.State() != FlowAwaitingCode {
		t.Errorf("State() = %s", flow.State())
	}

	first := flow.CSRFState()
	_, err = flow.GenerateURL()
	requireNoError(t, err)
	if flow.CSRFState().Equal(first) {
		t.Error("GenerateURL must issue a fresh nonce")
	}
}

func TestAuthorizationCodeFlow_GenerateURLOptions(t *testing.T) {
	env := newTestEnv(t)
	flow := newAuthCodeFlow(t, env, WithPKCE(), WithForceVerify())

	raw, err := flow.GenerateURL()
	requireNoError(t, err)
	u, err := url.Parse(raw)
	requireNoError(t, err)
	q := u.Query()

	if q.Get("code_challenge_method") != "S256" || q.Get("code_challenge") == "" {
		t.Errorf("missing PKCE challenge: %s", raw)
	}
	if want := oauth2.S256ChallengeFromVerifier(flow.verifier.Secret()); q.Get("code_challenge") != want {
		t.Errorf("code_challenge = %q, want the S256 of the stored verifier %q", q.Get("code_challenge"), want)
	}
	if q.Get("force_verify") != "true" {
		t.Errorf("force_verify = %q", q.Get("force_verify"))
	}
}

func TestAuthorizationCodeFlow_Exchange(t *testing.T) {
	env := newTestEnv(t)
	flow := newAuthCodeFlow(t, env, WithPKCE())
	_, err := flow.GenerateURL()
	requireNoError(t, err)
	state := flow.CSRFState().Secret()
	verifier := flow.verifier.Secret()

	tr := mock.New(
		mock.JSON(http.StatusOK, testutil.TokenJSON("user-access", "user-refresh", 14400, "chat:read", "chat:edit")),
		mock.JSON(http.StatusOK, testutil.ValidateJSON(string(testClientID), "justintv", "141981764", 14400, "chat:read", "chat:edit")),
	)

	tok, err := flow.Exchange(context.Background(), tr, NewAuthorizationCode("the-code"), state)
	requireNoError(t, err)

	if tr.CallCount() != 2 {
		t.Fatalf("CallCount() = %d, want exchange + validate", tr.CallCount())
	}
	f := requestForm(t, tr.Requests()[0])
	if f.Get("grant_type") != "authorization_code" || f.Get("code") != "the-code" ||
		f.Get("redirect_uri") != testRedirect || f.Get("code_verifier") != verifier {
		t.Errorf("exchange form = %v", f)
	}
	if tr.Requests()[1].URL != testBaseURL+"validate" {
		t.Errorf("second request = %s", tr.Requests()[1].URL)
	}

	if !tok.Validated() || tok.Login() != "justintv" {
		t.Errorf("token should be validated, got %v", tok)
	}
	if rt, ok := tok.RefreshToken(); !ok || rt.Secret() != "user-refresh" {
		t.Error("refresh token not kept")
	}
	if flow.State() != FlowExchanged {
		t.Errorf("State() = %s", flow.State())
	}

	_, err = flow.Exchange(context.Background(), tr, NewAuthorizationCode("the-code"), state)
	requireKind(t, err, KindFlowAlreadyCompleted)
	if tr.CallCount() != 2 {
		t.Error("second exchange must not reach the network")
	}
}

func TestAuthorizationCodeFlow_CSRFMismatch(t *testing.T) {
	env := newTestEnv(t)
	flow := newAuthCodeFlow(t, env)
	_, err := flow.GenerateURL()
	requireNoError(t, err)

	tr := mock.New()
	_, err = flow.Exchange(context.Background(), tr, NewAuthorizationCode("code"), "forged-state")
	requireKind(t, err, KindCSRFMismatch)
	if tr.CallCount() != 0 {
		t.Error("CSRF mismatch must fail before any network call")
	}

	_, err = flow.Exchange(context.Background(), tr, NewAuthorizationCode("code"), flow.CSRFState().Secret())
	requireKind(t, err, KindFlowAlreadyCompleted)
}

func TestAuthorizationCodeFlow_ExchangeBeforeGenerateURL(t *testing.T) {
	env := newTestEnv(t)
	flow := newAuthCodeFlow(t, env)

	_, err := flow.Exchange(context.Background(), mock.New(), NewAuthorizationCode("code"), "")
	requireKind(t, err, KindInvalidFlowState)
	if flow.State() != FlowBuilt {
		t.Error("flow must stay usable after an out-of-order call")
	}
}

func TestAuthorizationCodeFlow_ExchangeCallback(t *testing.T) {
	tests := []struct {
		name     string
		query    func(state string) url.Values
		wantKind ErrorKind
	}{
		{
			name: "access denied",
			query: func(state string) url.Values {
				return url.Values{"error": {"access_denied"}, "error_description": {"The user denied you access"}, "state": {state}}
			},
			wantKind: KindAccessDenied,
		},
		{
			name: "other provider error",
			query: func(state string) url.Values {
				return url.Values{"error": {"redirect_mismatch"}, "state": {state}}
			},
			wantKind: KindProviderError,
		},
		{
			name: "error with forged state",
			query: func(string) url.Values {
				return url.Values{"error": {"access_denied"}, "state": {"forged"}}
			},
			wantKind: KindCSRFMismatch,
		},
		{
			name: "missing code",
			query: func(state string) url.Values {
				return url.Values{"state": {state}}
			},
			wantKind: KindInvalidConfiguration,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			flow := newAuthCodeFlow(t, env)
			_, err := flow.GenerateURL()
			requireNoError(t, err)

			tr := mock.New()
			_, err = flow.ExchangeCallback(context.Background(), tr, tt.query(flow.CSRFState().Secret()))
			requireKind(t, err, tt.wantKind)
			if tr.CallCount() != 0 {
				t.Error("callback error must not reach the network")
			}
			if flow.State() != FlowExchanged {
				t.Errorf("State() = %s, want exchanged", flow.State())
			}
		})
	}
}

func TestAuthorizationCodeFlow_ExchangeCallbackSuccess(t *testing.T) {
	env := newTestEnv(t)
	flow := newAuthCodeFlow(t, env)
	_, err := flow.GenerateURL()
	requireNoError(t, err)

	tr := mock.New(
		mock.JSON(http.StatusOK, testutil.TokenJSON("a", "r", 100)),
		mock.JSON(http.StatusOK, testutil.ValidateJSON(string(testClientID), "justintv", "141981764", 100)),
	)
	q := url.Values{"code": {"xyz"}, "state": {flow.CSRFState().Secret()}, "scope": {"chat:read"}}
	tok, err := flow.ExchangeCallback(context.Background(), tr, q)
	requireNoError(t, err)
	if tok.UserID() != "141981764" {
		t.Errorf("UserID() = %q", tok.UserID())
	}
}

func TestAuthorizationCodeFlow_ExchangedTokenFailsValidation(t *testing.T) {
	env := newTestEnv(t)
	flow := newAuthCodeFlow(t, env)
	_, err := flow.GenerateURL()
	requireNoError(t, err)

	tr := mock.New(
		mock.JSON(http.StatusOK, testutil.TokenJSON("a", "r", 100)),
		mock.JSON(http.StatusOK, testutil.ValidateJSON("another-client", "justintv", "141981764", 100)),
	)
	_, err = flow.Exchange(context.Background(), tr, NewAuthorizationCode("xyz"), flow.CSRFState().Secret())
	requireKind(t, err, KindInvalidToken)
}

func newImplicitFlow(t *testing.T, env *testEnv) *ImplicitFlow {
	t.Helper()
	flow, err := env.client.NewImplicitFlow(testClientID, "http://localhost:3000", NewScopeSet(ScopeChatRead), WithForceVerify())
	requireNoError(t, err)
	_, err = flow.GenerateURL()
	requireNoError(t, err)
	return flow
}

func TestImplicitFlow_GenerateURL(t *testing.T) {
	env := newTestEnv(t)
	flow, err := env.client.NewImplicitFlow(testClientID, "http://localhost:3000", NewScopeSet(ScopeChatRead), WithForceVerify())
	requireNoError(t, err)

	raw, err := flow.GenerateURL()
	requireNoError(t, err)
	u, err := url.Parse(raw)
	requireNoError(t, err)
	q := u.Query()

	if q.Get("response_type") != "token" {
		t.Errorf("response_type = %q, want token", q.Get("response_type"))
	}
	if q.Get("force_verify") != "true" || q.Get("state") != flow.CSRFState().Secret() {
		t.Errorf("query = %v", q)
	}
	if q.Get("redirect_uri") != "http://localhost:3000" {
		t.Errorf("redirect_uri = %q", q.Get("redirect_uri"))
	}
}

func TestImplicitFlow_Exchange(t *testing.T) {
	env := newTestEnv(t)
	flow := newImplicitFlow(t, env)

	fragment := "#access_token=implicit-access&scope=chat%3Aread+chat%3Aedit&state=" +
		url.QueryEscape(flow.CSRFState().Secret()) + "&token_type=bearer"
	tok, err := flow.Exchange(fragment)
	requireNoError(t, err)

	if tok.AccessToken().Secret() != "implicit-access" {
		t.Errorf("AccessToken() = %q", tok.AccessToken().Secret())
	}
	if !tok.Scopes().Equal(NewScopeSet(ScopeChatRead, ScopeChatEdit)) {
		t.Errorf("Scopes() = %v", tok.Scopes())
	}
	if tok.Validated() {
		t.Error("implicit token must be unvalidated")
	}
	if _, ok := tok.RefreshToken(); ok {
		t.Error("implicit token must hold no refresh token")
	}

	_, err = flow.Exchange(fragment)
	requireKind(t, err, KindFlowAlreadyCompleted)
}

func TestImplicitFlow_ExchangeErrors(t *testing.T) {
	tests := []struct {
		name     string
		values   func(state string) url.Values
		wantKind ErrorKind
	}{
		{
			name: "access denied",
			values: func(state string) url.Values {
				return url.Values{"error": {"access_denied"}, "error_description": {"The user denied you access"}, "state": {state}}
			},
			wantKind: KindAccessDenied,
		},
		{
			name: "csrf mismatch",
			values: func(string) url.Values {
				return url.Values{"access_token": {"x"}, "state": {"forged"}}
			},
			wantKind: KindCSRFMismatch,
		},
		{
			name: "missing token",
			values: func(state string) url.Values {
				return url.Values{"state": {state}}
			},
			wantKind: KindProviderError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			flow := newImplicitFlow(t, env)

			_, err := flow.ExchangeValues(tt.values(flow.CSRFState().Secret()))
			requireKind(t, err, tt.wantKind)
			if flow.State() != FlowExchanged {
				t.Errorf("State() = %s, want exchanged", flow.State())
			}
		})
	}
}

func TestImplicitFlow_ExchangeBeforeGenerateURL(t *testing.T) {
	env := newTestEnv(t)
	flow, err := env.client.NewImplicitFlow(testClientID, testRedirect, ScopeSet{})
	requireNoError(t, err)

	_, err = flow.Exchange("access_token=x&state=y")
	requireKind(t, err, KindInvalidFlowState)
}
