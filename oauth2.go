package oauth

import (
	"golang.org/x/oauth2"
)

// OAuth2Token converts tok for use with golang.org/x/oauth2 clients calling
// the provider's APIs. A zero Expiry means the token never expires.
func OAuth2Token(tok Token) *oauth2.Token {
	t := tok.core()
	out := &oauth2.Token{
		AccessToken:  t.accessToken.Secret(),
		TokenType:    "Bearer",
		RefreshToken: t.refreshToken.Secret(),
	}
	if !t.neverExpires {
		out.Expiry = t.expiresAt
	}
	return out
}

// TokenSource returns an oauth2.TokenSource serving tok's current access token.
//
// The source never refreshes: once tok is elapsed, invalid, revoked or needs
// re-authentication, Token fails and the caller decides whether to Refresh.
// It reads tok on every call, so a caller-driven refresh is picked up.
func TokenSource(tok Token) oauth2.TokenSource {
	return tokenSource{tok: tok}
}

type tokenSource struct {
	tok Token
}

func (s tokenSource) Token() (*oauth2.Token, error) {
	t := s.tok.core()
	if err := t.usable("token_source"); err != nil {
		return nil, err
	}
	if t.state == TokenStateInvalid {
		return nil, newError(KindInvalidToken, "token_source", "provider reported the token invalid")
	}
	if s.tok.IsElapsed() {
		return nil, newError(KindInvalidToken, "token_source", "token is elapsed")
	}
	return OAuth2Token(s.tok), nil
}
