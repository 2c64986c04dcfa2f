// Package mock provides a scripted transport.Transport for testing.
package mock

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/giantswarm/twitch-oauth/transport"
)

// ErrNoReply is returned when the script is exhausted and no DoFunc is set.
var ErrNoReply = errors.New("mock transport: no scripted reply")

// Reply is one scripted outcome: a response or a transport failure.
type Reply struct {
	Response *transport.Response
	Err      error
}

// JSON builds a reply with a JSON body. body may be a string, []byte or any
// value that encodes with encoding/json.
func JSON(status int, body any) Reply {
	var data []byte
	switch b := body.(type) {
	case string:
		data = []byte(b)
	case []byte:
		data = b
	default:
		var err error
		data, err = json.Marshal(b)
		if err != nil {
			panic(fmt.Sprintf("mock: failed to encode body: %v", err))
		}
	}
	return Reply{Response: &transport.Response{
		StatusCode: status,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       data,
	}}
}

// Status builds a reply with an empty body.
func Status(status int) Reply {
	return Reply{Response: &transport.Response{StatusCode: status, Header: make(http.Header)}}
}

// Fail builds a reply that fails at the transport level.
func Fail(err error) Reply {
	return Reply{Err: err}
}

// Transport replays scripted replies in order and records every request.
type Transport struct {
	// DoFunc, when set, answers requests once the script is exhausted
	DoFunc func(ctx context.Context, req *transport.Request) (*transport.Response, error)

	// mu protects the fields below from concurrent access
	mu       sync.Mutex
	replies  []Reply
	requests []*transport.Request
}

// New creates a mock transport answering with replies in order.
func New(replies ...Reply) *Transport {
	return &Transport{replies: replies}
}

// Push appends replies to the script.
func (m *Transport) Push(replies ...Reply) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.replies = append(m.replies, replies...)
}

// Do implements transport.Transport.
func (m *Transport) Do(ctx context.Context, req *transport.Request) (*transport.Response, error) {
	m.mu.Lock()
	m.requests = append(m.requests, req.Clone())

	if err := ctx.Err(); err != nil {
		m.mu.Unlock()
		return nil, err
	}

	if len(m.replies) > 0 {
		r := m.replies[0]
		m.replies = m.replies[1:]
		m.mu.Unlock()
		return r.Response, r.Err
	}
	doFunc := m.DoFunc
	m.mu.Unlock()

	if doFunc != nil {
		return doFunc(ctx, req)
	}
	return nil, ErrNoReply
}

// CallCount returns the number of requests received.
func (m *Transport) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

// Requests returns copies of all received requests in order.
func (m *Transport) Requests() []*transport.Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*transport.Request, len(m.requests))
	for i, r := range m.requests {
		out[i] = r.Clone()
	}
	return out
}

// LastRequest returns the most recent request, or nil.
func (m *Transport) LastRequest() *transport.Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.requests) == 0 {
		return nil
	}
	return m.requests[len(m.requests)-1].Clone()
}

// Pending returns the number of scripted replies not yet consumed.
func (m *Transport) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.replies)
}
