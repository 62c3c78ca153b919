package spellcheck

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/MrWong99/livespell/internal/observe"
)

// detectLanguageLocked starts a detection for text issued alongside analysis
// request seq. A success overwrites the displayed language; a failure keeps
// it and surfaces a notice. Results for text that was cleared in the
// meantime are ignored.
func (s *Session) detectLanguageLocked(seq uint64, text string) {
	s.langWG.Add(1)
	go func() {
		defer s.langWG.Done()

		lang, err := s.detect(seq, text)

		s.mu.Lock()
		defer s.mu.Unlock()
		if seq < s.langFloor {
			return
		}
		if err != nil {
			s.metrics.RecordLanguageDetection(s.ctx, "", "error")
			s.addNoticeLocked(NoticeLanguageFailed, msgLanguageFailed, seq)
			slog.Warn("language detection failed", "session", s.id, "seq", seq, "err", err)
		} else {
			s.metrics.RecordLanguageDetection(s.ctx, lang, "ok")
			s.language = lang
		}
		if !s.closed {
			s.publishLocked()
		}
	}()
}

// detect calls the language provider with the session timeout, converting
// failures and panics into errors wrapping ErrTransientNetwork.
func (s *Session) detect(seq uint64, text string) (lang string, err error) {
	ctx, span := observe.StartSpan(s.ctx, "spellcheck.detect_language",
		trace.WithAttributes(observe.AttrSeq.Int64(int64(seq))))

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			lang, err = "", fmt.Errorf("%w: language provider panicked: %v", ErrTransientNetwork, r)
		}
		s.metrics.LanguageDuration.Record(ctx, time.Since(start).Seconds(),
			metric.WithAttributes(attribute.Bool("success", err == nil)))
		observe.EndSpan(span, err)
	}()

	lang, err = s.lang.Detect(ctx, text)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrTransientNetwork, err)
	}
	return lang, nil
}
