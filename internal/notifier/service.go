package notifier

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"hwbot/internal/fault"
	"hwbot/internal/storage"
	kit "hwbot/internal/transport"
	logx "hwbot/pkg/logx"
)

// KindStatus tags journal entries for homework status messages.
const KindStatus = "status"

// Service sends messages to the single configured chat.
// It is safe for concurrent use, though the poll loop calls it sequentially.
type Service struct {
	cfg     Config
	sender  kit.Sender
	store   storage.Store
	log     logx.Logger
	limiter *rate.Limiter

	hmu     sync.Mutex
	history []HistoryItem
}

func New(cfg Config, sender kit.Sender, store storage.Store, log logx.Logger) *Service {
	if cfg.RatePerSec <= 0 {
		cfg.RatePerSec = 1
	}
	if cfg.HistorySize <= 0 {
		cfg.HistorySize = 50
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Service{
		cfg:    cfg,
		sender: sender,
		store:  store,
		log:    log,
		// burst = rate: a handful of simultaneous status changes go out immediately.
		limiter: rate.NewLimiter(rate.Limit(cfg.RatePerSec), cfg.RatePerSec),
	}
}

// Send delivers text, tagged with kind for the journal.
func (s *Service) Send(ctx context.Context, kind, text string) error {
	if s.sender == nil {
		return fault.New(fault.KindDelivery, "Сбой при отправке сообщения в Telegram: отправитель не настроен")
	}
	if err := s.limiter.Wait(ctx); err != nil {
		return fault.Wrap(fault.KindDelivery, err, "Сбой при отправке сообщения в Telegram")
	}

	start := time.Now()
	_, err := s.sender.SendText(ctx, kit.ChatTarget{ChatID: s.cfg.ChatID}, text, &kit.SendOptions{DisablePreview: true})
	took := time.Since(start)

	s.record(ctx, kind, text, took, err)
	if err != nil {
		return fault.Wrap(fault.KindDelivery, err, "Сбой при отправке сообщения в Telegram")
	}
	s.log.Debug("message sent to telegram", logx.String("kind", kind), logx.Duration("took", took))
	return nil
}

func (s *Service) record(ctx context.Context, kind, text string, took time.Duration, sendErr error) {
	item := HistoryItem{At: time.Now(), Kind: kind, Text: text}
	if sendErr != nil {
		item.Error = sendErr.Error()
	}

	s.hmu.Lock()
	s.history = append(s.history, item)
	if over := len(s.history) - s.cfg.HistorySize; over > 0 {
		s.history = append(s.history[:0], s.history[over:]...)
	}
	s.hmu.Unlock()

	if s.store == nil {
		return
	}
	err := s.store.AppendDelivery(ctx, storage.Delivery{
		At:     item.At,
		ChatID: s.cfg.ChatID,
		Kind:   kind,
		Text:   text,
		OK:     sendErr == nil,
		Error:  item.Error,
		TookMS: took.Milliseconds(),
	})
	if err != nil {
		// The journal is best-effort; never turn a sent message into a failure.
		s.log.Warn("delivery journal append failed", logx.Err(err))
	}
}

// History returns a copy of recent attempts, oldest first.
func (s *Service) History() []HistoryItem {
	s.hmu.Lock()
	defer s.hmu.Unlock()
	out := make([]HistoryItem, len(s.history))
	copy(out, s.history)
	return out
}
