package browser

import (
	"context"
	"sync/atomic"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/lukman83/beast-antidetect/internal/models"
	"github.com/lukman83/beast-antidetect/internal/stealth"
	"go.uber.org/zap"
)

// proxyAuth answers proxy authentication challenges for every request the
// browser makes. Challenges past maxAttempts are cancelled and the session
// is marked as rejected so callers can report a launch failure instead of
// a generic navigation error.
type proxyAuth struct {
	proxy       *models.Proxy
	maxAttempts int32
	logger      *zap.Logger

	attempts atomic.Int32
	rejected atomic.Bool

	cancel context.CancelFunc
	done   chan struct{}
}

// startProxyAuth enables request interception with auth handling on b. It
// must run before the first page is created.
func startProxyAuth(b *rod.Browser, p *models.Proxy, maxAttempts int, logger *zap.Logger) (*proxyAuth, error) {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	a := &proxyAuth{
		proxy:       p,
		maxAttempts: int32(maxAttempts),
		logger:      logger,
		cancel:      cancel,
		done:        make(chan struct{}),
	}

	b = b.Context(ctx)
	wait := b.EachEvent(
		func(e *proto.FetchRequestPaused) {
			go func() {
				_ = proto.FetchContinueRequest{RequestID: e.RequestID}.Call(b)
			}()
		},
		func(e *proto.FetchAuthRequired) {
			resp := a.respond(e)
			go func() {
				_ = proto.FetchContinueWithAuth{RequestID: e.RequestID, AuthChallengeResponse: resp}.Call(b)
			}()
		},
	)

	if err := (proto.FetchEnable{HandleAuthRequests: true}).Call(b); err != nil {
		cancel()
		return nil, err
	}

	go func() {
		defer close(a.done)
		wait()
	}()
	return a, nil
}

func (a *proxyAuth) respond(e *proto.FetchAuthRequired) *proto.FetchAuthChallengeResponse {
	if e.AuthChallenge != nil && e.AuthChallenge.Source == proto.FetchAuthChallengeSourceServer {
		return &proto.FetchAuthChallengeResponse{Response: proto.FetchAuthChallengeResponseResponseDefault}
	}

	n := a.attempts.Add(1)
	if n > a.maxAttempts {
		if !a.rejected.Swap(true) {
			a.logger.Warn("proxy rejected credentials",
				zap.String("proxy", stealth.Redacted(a.proxy)),
				zap.Int32("attempts", n-1))
		}
		return &proto.FetchAuthChallengeResponse{Response: proto.FetchAuthChallengeResponseResponseCancelAuth}
	}
	return &proto.FetchAuthChallengeResponse{
		Response: proto.FetchAuthChallengeResponseResponseProvideCredentials,
		Username: a.proxy.Username,
		Password: a.proxy.Password,
	}
}

// wasRejected reports whether the proxy kept challenging after every
// permitted attempt.
func (a *proxyAuth) wasRejected() bool {
	return a != nil && a.rejected.Load()
}

func (a *proxyAuth) stop() {
	if a == nil {
		return
	}
	a.cancel()
	<-a.done
}
