// Package completiontest provides a scripted completion.Provider for tests.
package completiontest

import (
	"context"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/CharlieDigital/dn8-sk-llama3-fireworks/internal/completion"
)

// Response scripts what a matched prompt streams back
type Response struct {
	// Deltas are returned one per Recv
	Deltas []string
	// OpenErr fails the Stream call itself
	OpenErr error
	// RecvErr is returned after all deltas instead of io.EOF
	RecvErr error
	// Delay is waited before every delta
	Delay time.Duration
	// Hang blocks after the deltas until the context is cancelled
	Hang bool
}

// Call records one Stream invocation
type Call struct {
	Request  completion.Request
	Started  time.Time
	Finished time.Time
	Err      error
}

type rule struct {
	contains string
	resp     Response
}

// Provider answers prompts by the first rule whose substring the prompt contains
type Provider struct {
	mu       sync.Mutex
	rules    []rule
	fallback Response
	calls    []*Call
}

// New creates a provider that streams "ok" for unmatched prompts
func New() *Provider {
	return &Provider{fallback: Response{Deltas: []string{"ok"}}}
}

// On registers the response for prompts containing substr, replacing any
// earlier response for the same substr
func (p *Provider) On(substr string, resp Response) *Provider {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i := range p.rules {
		if p.rules[i].contains == substr {
			p.rules[i].resp = resp
			return p
		}
	}
	p.rules = append(p.rules, rule{contains: substr, resp: resp})
	return p
}

// Otherwise sets the response for unmatched prompts
func (p *Provider) Otherwise(resp Response) *Provider {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.fallback = resp
	return p
}

// Calls returns a snapshot of every recorded call
func (p *Provider) Calls() []Call {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Call, len(p.calls))
	for i, c := range p.calls {
		out[i] = *c
	}
	return out
}

// CallFor returns the first call whose prompt contains substr
func (p *Provider) CallFor(substr string) (Call, bool) {
	for _, c := range p.Calls() {
		if strings.Contains(c.Request.Prompt, substr) {
			return c, true
		}
	}
	return Call{}, false
}

// Stream implements completion.Provider
func (p *Provider) Stream(ctx context.Context, req completion.Request) (completion.Stream, error) {
	p.mu.Lock()
	resp := p.fallback
	for _, r := range p.rules {
		if strings.Contains(req.Prompt, r.contains) {
			resp = r.resp
			break
		}
	}
	call := &Call{Request: req, Started: time.Now()}
	p.calls = append(p.calls, call)
	p.mu.Unlock()

	if resp.OpenErr != nil {
		p.finish(call, resp.OpenErr)
		return nil, resp.OpenErr
	}
	return &stream{ctx: ctx, resp: resp, call: call, owner: p}, nil
}

func (p *Provider) finish(call *Call, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if call.Finished.IsZero() {
		call.Finished = time.Now()
		call.Err = err
	}
}

type stream struct {
	ctx   context.Context
	resp  Response
	call  *Call
	owner *Provider
	next  int
}

func (s *stream) Recv() (string, error) {
	if err := s.ctx.Err(); err != nil {
		s.owner.finish(s.call, err)
		return "", err
	}

	if s.next < len(s.resp.Deltas) {
		if s.resp.Delay > 0 {
			timer := time.NewTimer(s.resp.Delay)
			select {
			case <-timer.C:
			case <-s.ctx.Done():
				timer.Stop()
				s.owner.finish(s.call, s.ctx.Err())
				return "", s.ctx.Err()
			}
		}
		delta := s.resp.Deltas[s.next]
		s.next++
		return delta, nil
	}

	if s.resp.Hang {
		<-s.ctx.Done()
		s.owner.finish(s.call, s.ctx.Err())
		return "", s.ctx.Err()
	}

	err := s.resp.RecvErr
	if err == nil {
		err = io.EOF
	}
	s.owner.finish(s.call, err)
	return "", err
}

func (s *stream) Close() error {
	return nil
}
