package coach

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/loqalabs/loqa-coach/internal/analysis"
	"github.com/loqalabs/loqa-coach/internal/bus"
	"github.com/loqalabs/loqa-coach/internal/protocol"
	"github.com/loqalabs/loqa-coach/internal/stt"
)

const queueGroup = "coach"

// BusService answers analyze requests arriving over NATS request/reply.
type BusService struct {
	coach   *Service
	bus     *bus.Client
	timeout time.Duration
	sub     *nats.Subscription
	ctx     context.Context
	cancel  context.CancelFunc
	logger  *slog.Logger

	// mu orders wg.Add against Close so no request starts after Wait begins.
	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
	ready  atomic.Bool
}

func NewBusService(parent context.Context, coach *Service, busClient *bus.Client, timeout time.Duration, logger *slog.Logger) *BusService {
	ctx, cancel := context.WithCancel(parent)
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &BusService{
		coach:   coach,
		bus:     busClient,
		timeout: timeout,
		ctx:     ctx,
		cancel:  cancel,
		logger:  logger.With(slog.String("component", "coach-bus")),
	}
}

func (s *BusService) Start() error {
	sub, err := s.bus.Conn().QueueSubscribe(protocol.SubjectAnalyzeRequest, queueGroup, s.handleRequest)
	if err != nil {
		return fmt.Errorf("subscribe analyze requests: %w", err)
	}
	s.sub = sub
	s.ready.Store(true)
	return nil
}

// Close stops accepting requests, cancels model calls in flight and waits for
// their replies. Cancelled requests still record their fallback result.
func (s *BusService) Close() {
	s.ready.Store(false)
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	if s.sub != nil {
		_ = s.sub.Unsubscribe()
	}
	s.cancel()
	s.wg.Wait()
}

func (s *BusService) Healthy() bool {
	return s.ready.Load() && s.bus.Healthy()
}

func (s *BusService) handleRequest(msg *nats.Msg) {
	var req protocol.AnalyzeRequest
	if err := json.Unmarshal(msg.Data, &req); err != nil {
		s.logger.Warn("failed to decode analyze request", slogError(err))
		s.respond(msg, protocol.AnalyzeReply{Error: fmt.Sprintf("decode request: %v", err)})
		return
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		s.respond(msg, protocol.AnalyzeReply{Error: "coach is shutting down"})
		return
	}
	s.wg.Add(1)
	s.mu.Unlock()
	go func() {
		defer s.wg.Done()
		ctx, cancel := context.WithTimeout(s.ctx, s.timeout)
		defer cancel()

		s.respond(msg, s.analyze(ctx, req))
	}()
}

func (s *BusService) analyze(ctx context.Context, req protocol.AnalyzeRequest) protocol.AnalyzeReply {
	var (
		session Session
		err     error
	)
	if len(req.Audio) > 0 {
		session, err = s.coach.AnalyzeAudio(ctx, stt.Audio{
			Data:       req.Audio,
			Format:     req.AudioFormat,
			SampleRate: req.SampleRate,
			Channels:   req.Channels,
		}, req.QuestionType, req.SessionID)
		if err != nil {
			s.logger.Warn("audio analysis failed", slogError(err))
			return protocol.AnalyzeReply{Error: err.Error()}
		}
	} else {
		session = s.coach.AnalyzeTranscript(ctx, analysis.Input{
			Transcript:      req.Transcript,
			DurationSeconds: req.DurationSeconds,
			QuestionType:    req.QuestionType,
			SessionID:       req.SessionID,
		})
	}
	return ReplyFor(session)
}

func (s *BusService) respond(msg *nats.Msg, reply protocol.AnalyzeReply) {
	if msg.Reply == "" {
		return
	}
	data, err := json.Marshal(reply)
	if err != nil {
		s.logger.Warn("failed to encode analyze reply", slogError(err))
		return
	}
	if err := msg.Respond(data); err != nil {
		s.logger.Warn("failed to send analyze reply", slogError(err))
	}
}

// ReplyFor renders a session as a wire reply.
func ReplyFor(session Session) protocol.AnalyzeReply {
	reply := protocol.AnalyzeReply{
		Session:  session.Record,
		Result:   session.Result,
		Provider: session.Provider,
	}
	if session.FallbackReason != nil {
		reply.FallbackReason = session.FallbackReason.Error()
	}
	return reply
}
