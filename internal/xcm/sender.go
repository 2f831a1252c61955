package xcm

import (
	"context"
	"sync"
	"time"

	errorsmod "cosmossdk.io/errors"
	"github.com/avast/retry-go/v4"
	"github.com/rs/zerolog/log"

	"github.com/vtokenlabs/liquid-staking-service/internal/observability/metrics"
	"github.com/vtokenlabs/liquid-staking-service/internal/types"
)

// Sender delivers a program to its destination. A nil error only means the
// program left this service; the outcome arrives later as a query response.
type Sender interface {
	Send(ctx context.Context, program Program) error
}

// MessagePublisher is the outbound queue the QueueSender writes to.
type MessagePublisher interface {
	SendMessage(ctx context.Context, messageBody string) error
}

type QueueSender struct {
	publisher MessagePublisher
	attempts  uint
	delay     time.Duration
}

func NewQueueSender(publisher MessagePublisher, attempts uint, delay time.Duration) *QueueSender {
	if attempts == 0 {
		attempts = 1
	}
	return &QueueSender{publisher: publisher, attempts: attempts, delay: delay}
}

func (s *QueueSender) Send(ctx context.Context, program Program) error {
	body, err := program.Marshal()
	if err != nil {
		return err
	}
	err = retry.Do(
		func() error {
			return s.publisher.SendMessage(ctx, string(body))
		},
		retry.Context(ctx),
		retry.Attempts(s.attempts),
		retry.Delay(s.delay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			log.Ctx(ctx).Warn().Err(err).Uint("attempt", n+1).
				Str("destination", program.Destination).Msg("retrying xcm send")
		}),
	)
	if err != nil {
		metrics.RecordXcmSendFailure(program.Destination)
		return errorsmod.Wrapf(types.ErrXcmSend, "destination %s: %v", program.Destination, err)
	}
	return nil
}

// MemorySender keeps sent programs in memory. It backs the --in-memory mode,
// where no broker is available, and the tests.
type MemorySender struct {
	mu      sync.Mutex
	sent    []Program
	failErr error
}

func NewMemorySender() *MemorySender {
	return &MemorySender{}
}

func (s *MemorySender) Send(ctx context.Context, program Program) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failErr != nil {
		metrics.RecordXcmSendFailure(program.Destination)
		return errorsmod.Wrapf(types.ErrXcmSend, "destination %s: %v", program.Destination, s.failErr)
	}
	s.sent = append(s.sent, program)
	log.Ctx(ctx).Debug().Str("destination", program.Destination).
		Uint64("queryId", program.QueryID()).Msg("xcm program recorded")
	return nil
}

// FailWith makes every following Send fail with err. nil restores delivery.
func (s *MemorySender) FailWith(err error) {
	s.mu.Lock()
	s.failErr = err
	s.mu.Unlock()
}

func (s *MemorySender) Sent() []Program {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Program{}, s.sent...)
}

// Last returns the most recent program, false if nothing was sent.
func (s *MemorySender) Last() (Program, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.sent) == 0 {
		return Program{}, false
	}
	return s.sent[len(s.sent)-1], true
}
