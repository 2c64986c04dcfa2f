package oauth

import (
	"context"
	"errors"
	"net/url"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/time/rate"

	"github.com/giantswarm/twitch-oauth/instrumentation"
	"github.com/giantswarm/twitch-oauth/transport"
)

const (
	// DefaultPollInterval is used when the provider sends no interval (RFC 8628)
	DefaultPollInterval = 5 * time.Second

	// SlowDownIncrement is added to the interval on each slow_down response
	SlowDownIncrement = 5 * time.Second

	// pollSlack lets a poll landing exactly on the interval through despite
	// float rounding inside the limiter.
	pollSlack = time.Millisecond
)

// PollStatus is the outcome of one device code poll.
type PollStatus int

const (
	// PollPending means the user has not completed the authorization yet
	PollPending PollStatus = iota
	// PollGranted means the user approved; PollResult.Token is set
	PollGranted
	// PollAccessDenied means the user declined
	PollAccessDenied
	// PollExpired means the device code lifetime elapsed
	PollExpired
)

// String returns the outcome name
func (s PollStatus) String() string {
	switch s {
	case PollPending:
		return "pending"
	case PollGranted:
		return "granted"
	case PollAccessDenied:
		return "access_denied"
	case PollExpired:
		return "expired"
	default:
		return "unknown"
	}
}

// PollResult is returned by DeviceCodeFlow.Poll
type PollResult struct {
	Status PollStatus
	Token  *UserToken
}

// DeviceAuthorization is what the user needs to complete a device flow.
type DeviceAuthorization struct {
	UserCode        UserCode
	VerificationURI string
	ExpiresAt       time.Time
	Interval        time.Duration
}

// DeviceCodeFlow drives the device-code grant:
// Built → Polling → Exchanged | Expired | Denied.
//
// Polls faster than the provider's interval are rejected locally with
// PollTooSoon. The interval grows by SlowDownIncrement when the provider
// answers slow_down.
type DeviceCodeFlow struct {
	client   *Client
	clientID ClientID
	scopes   ScopeSet
	opts     flowOptions

	state      FlowState
	deviceCode DeviceCode
	auth       DeviceAuthorization
	limiter    *rate.Limiter

	// granted holds an issued token whose validation failed with a
	// retryable error; the next Poll only retries the validation.
	granted *UserToken
}

// NewDeviceCodeFlow creates a device-code flow. Options: WithClientSecret for
// confidential clients.
func (c *Client) NewDeviceCodeFlow(clientID ClientID, scopes ScopeSet, opts ...FlowOption) (*DeviceCodeFlow, error) {
	if err := validateFlowInput(flowDeviceCode, clientID); err != nil {
		return nil, err
	}
	return &DeviceCodeFlow{
		client:   c,
		clientID: clientID,
		scopes:   scopes,
		opts:     applyFlowOptions(opts),
	}, nil
}

// State returns the flow state
func (f *DeviceCodeFlow) State() FlowState { return f.state }

// Authorization returns the user code and verification URI once started
func (f *DeviceCodeFlow) Authorization() DeviceAuthorization { return f.auth }

// Interval returns the current minimum poll interval
func (f *DeviceCodeFlow) Interval() time.Duration { return f.auth.Interval }

// Start requests a device code and user code pair. A failed start consumes the flow.
func (f *DeviceCodeFlow) Start(ctx context.Context, tr transport.Transport) (auth DeviceAuthorization, err error) {
	c := f.client
	ctx, span := c.startSpan(ctx, opDevice, f.clientID, TokenKindUser)
	defer span.End()
	defer func() { c.finishSpan(ctx, span, opDevice, err) }()

	if f.state != FlowBuilt {
		return DeviceAuthorization{}, newError(KindFlowAlreadyCompleted, opDevice, "device code flow was already started")
	}
	f.state = FlowExchanged

	resp, err := c.requestDeviceCode(ctx, tr, f.clientID, f.scopes)
	if err != nil {
		return DeviceAuthorization{}, err
	}

	now := c.Now()
	interval := time.Duration(resp.Interval) * time.Second
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	f.deviceCode = NewDeviceCode(resp.DeviceCode)
	f.auth = DeviceAuthorization{
		UserCode:        UserCode(resp.UserCode),
		VerificationURI: resp.VerificationURI,
		ExpiresAt:       now.Add(time.Duration(resp.ExpiresIn) * time.Second),
		Interval:        interval,
	}

	// The first poll must also wait a full interval.
	f.limiter = rate.NewLimiter(rate.Every(interval-pollSlack), 1)
	f.limiter.AllowN(now, 1)
	f.state = FlowPolling

	c.logger.Info("Device authorization started",
		"client_id", f.clientID,
		"verification_uri", resp.VerificationURI,
		"interval", interval,
		"expires_in", resp.ExpiresIn)
	return f.auth, nil
}

// Poll asks the provider whether the user completed the authorization.
//
// Terminal outcomes (granted, denied, expired) are reported once as a
// PollResult; afterwards Poll fails with FlowAlreadyCompleted, AccessDenied or
// Expired. Transport and unexpected provider failures keep the flow polling.
// When the token was issued but its validation failed with a retryable error,
// the next Poll retries only the validation.
func (f *DeviceCodeFlow) Poll(ctx context.Context, tr transport.Transport) (result PollResult, err error) {
	c := f.client
	switch f.state {
	case FlowBuilt:
		return PollResult{}, newError(KindInvalidFlowState, opPoll, "Start must be called before Poll")
	case FlowExpired:
		return PollResult{}, newError(KindExpired, opPoll, "device code expired")
	case FlowDenied:
		return PollResult{}, newError(KindAccessDenied, opPoll, "user denied the authorization")
	case FlowExchanged:
		return PollResult{}, newError(KindFlowAlreadyCompleted, opPoll, "device code flow was already used")
	}

	ctx, span := c.startSpan(ctx, opPoll, f.clientID, TokenKindUser)
	defer span.End()
	defer func() {
		c.finishSpan(ctx, span, opPoll, err)
		if err == nil {
			instrumentation.SetSpanAttributes(span, attribute.String(instrumentation.AttrPollOutcome, result.Status.String()))
			c.inst.Metrics().RecordDevicePoll(ctx, result.Status.String())
		}
	}()

	if f.granted != nil {
		return f.confirm(ctx, tr, f.granted)
	}

	now := c.Now()
	if !now.Before(f.auth.ExpiresAt) {
		return f.expire(), nil
	}
	if !f.limiter.AllowN(now, 1) {
		c.inst.Metrics().RecordDevicePoll(ctx, "too_soon")
		return PollResult{}, newError(KindPollTooSoon, opPoll, "poll interval has not elapsed")
	}

	form := url.Values{
		"client_id":   {string(f.clientID)},
		"device_code": {f.deviceCode.Secret()},
		"grant_type":  {grantDeviceCode},
		"scopes":      {f.scopes.String()},
	}
	if !f.opts.clientSecret.IsEmpty() {
		form.Set("client_secret", f.opts.clientSecret.Secret())
	}

	resp, err := c.requestToken(ctx, tr, opPoll, form)
	if err != nil {
		var e *Error
		if !errors.As(err, &e) || e.Kind != KindProviderError {
			return PollResult{}, err
		}
		switch {
		case hasMessage(e, msgAuthorizationPending):
			return PollResult{Status: PollPending}, nil
		case hasMessage(e, msgSlowDown):
			f.slowDown(now)
			return PollResult{Status: PollPending}, nil
		case hasMessage(e, msgInvalidDeviceCode), hasMessage(e, msgExpiredToken):
			return f.expire(), nil
		case hasMessage(e, msgAccessDenied):
			f.state = FlowDenied
			return PollResult{Status: PollAccessDenied}, nil
		default:
			return PollResult{}, err
		}
	}

	f.deviceCode = DeviceCode{}
	return f.confirm(ctx, tr, c.newUserTokenFromResponse(f.clientID, f.opts.clientSecret, resp))
}

// confirm validates an issued token and completes the flow. A retryable
// failure keeps tok on the flow, any other outcome consumes it.
func (f *DeviceCodeFlow) confirm(ctx context.Context, tr transport.Transport, tok *UserToken) (PollResult, error) {
	if err := tok.Validate(ctx, tr); err != nil {
		if IsRetryable(err) {
			f.granted = tok
			return PollResult{}, err
		}
		f.granted = nil
		f.state = FlowExchanged
		return PollResult{}, err
	}

	f.granted = nil
	f.state = FlowExchanged
	f.client.issued(ctx, tok, tok.userID, grantDeviceCode)
	return PollResult{Status: PollGranted, Token: tok}, nil
}

// Wait polls at the current interval until the flow reaches a terminal
// outcome or ctx is done. Denied and expired outcomes are returned as
// AccessDenied and Expired errors.
func (f *DeviceCodeFlow) Wait(ctx context.Context, tr transport.Transport) (*UserToken, error) {
	for {
		if err := f.client.clock.Sleep(ctx, f.auth.Interval); err != nil {
			return nil, &Error{Kind: KindRequestFailed, Op: opPoll, Message: "wait canceled", Err: err}
		}

		result, err := f.Poll(ctx, tr)
		if err != nil {
			if IsRetryable(err) {
				f.client.logger.Warn("Device poll failed, retrying", "error", err)
				continue
			}
			return nil, err
		}

		switch result.Status {
		case PollGranted:
			return result.Token, nil
		case PollAccessDenied:
			return nil, newError(KindAccessDenied, opPoll, "user denied the authorization")
		case PollExpired:
			return nil, newError(KindExpired, opPoll, "device code expired")
		}
	}
}

func (f *DeviceCodeFlow) slowDown(now time.Time) {
	f.auth.Interval += SlowDownIncrement
	f.limiter.SetLimitAt(now, rate.Every(f.auth.Interval-pollSlack))
	f.client.logger.Debug("Device poll interval raised", "interval", f.auth.Interval)
}

func (f *DeviceCodeFlow) expire() PollResult {
	f.state = FlowExpired
	f.deviceCode = DeviceCode{}
	f.client.auditor.LogDeviceCodeExpired(string(f.clientID))
	return PollResult{Status: PollExpired}
}
