package crdt

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/iudanet/catalogsync/internal/models"
)

const (
	// counterBits число младших бит timestamp, отведенных под логический счетчик
	counterBits = 16
	counterMask = models.Timestamp(1)<<counterBits - 1

	// DefaultMaxDrift максимально допустимое опережение удаленных часов
	DefaultMaxDrift = 500 * time.Millisecond

	// MaxTimestamp is the largest timestamp the log can store (signed 64-bit column)
	MaxTimestamp = models.Timestamp(math.MaxInt64)
)

// Clock errors
var (
	// ErrClock is wrapped by every clock consistency failure
	ErrClock = errors.New("clock error")

	// ErrClockDrift indicates a remote timestamp too far ahead of local physical time
	ErrClockDrift = fmt.Errorf("%w: remote timestamp exceeds max drift", ErrClock)

	// ErrClockRegression indicates a timestamp that did not advance
	ErrClockRegression = fmt.Errorf("%w: timestamp regression", ErrClock)

	// ErrTimestampRange indicates a timestamp above MaxTimestamp
	ErrTimestampRange = fmt.Errorf("%w: timestamp out of range", ErrClock)
)

// HLC представляет гибридные логические часы узла.
// Выдает строго возрастающие timestamps и хранит watermark
// (последний примененный timestamp) для каждого удаленного узла.
type HLC struct {
	now       func() time.Time // источник физического времени
	watermark models.Watermark // последний примененный timestamp по каждому узлу
	last      models.Timestamp // последний выданный или наблюдаемый timestamp
	maxDrift  models.Timestamp // допустимое опережение удаленных часов
	instance  uuid.UUID        // идентификатор локального узла
	mu        sync.Mutex       // единая точка продвижения часов
}

// Option configures an HLC.
type Option func(*HLC)

// WithNow overrides the physical time source. Used in tests.
func WithNow(now func() time.Time) Option {
	return func(c *HLC) {
		c.now = now
	}
}

// WithMaxDrift overrides how far ahead of local time a remote timestamp may be.
func WithMaxDrift(d time.Duration) Option {
	return func(c *HLC) {
		c.maxDrift = models.Timestamp(d.Nanoseconds())
	}
}

// NewHLC создает часы для локального узла instance.
func NewHLC(instance uuid.UUID, opts ...Option) *HLC {
	c := &HLC{
		now:       time.Now,
		watermark: make(models.Watermark),
		instance:  instance,
	}
	WithMaxDrift(DefaultMaxDrift)(c)
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FromTime converts physical time into a timestamp with a zero counter.
func FromTime(t time.Time) models.Timestamp {
	return models.Timestamp(t.UnixNano()) &^ counterMask
}

// ToTime returns the physical part of a timestamp.
func ToTime(ts models.Timestamp) time.Time {
	return time.Unix(0, int64(ts&^counterMask))
}

// Instance возвращает идентификатор локального узла.
func (c *HLC) Instance() uuid.UUID {
	return c.instance
}

// Next выдает новый timestamp для локального события.
// Берется максимум из физического времени и последнего известного timestamp;
// если физическое время не продвинулось, увеличивается логический счетчик.
func (c *HLC) Next() models.Timestamp {
	c.mu.Lock()
	defer c.mu.Unlock()

	prev := c.last
	next := FromTime(c.now())
	if next <= c.last {
		next = c.last + 1
	}
	if next <= prev {
		// Невозможно при корректной арифметике: переполнение счетчика
		panic(fmt.Errorf("%w: %d after %d", ErrClockRegression, next, prev))
	}
	c.last = next

	return next
}

// Admit checks a remote timestamp without folding it into the clock.
// It returns ErrTimestampRange above MaxTimestamp and ErrClockDrift when the
// remote is more than the max drift ahead of local physical time.
func (c *HLC) Admit(remote models.Timestamp) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.admit(remote)
}

func (c *HLC) admit(remote models.Timestamp) error {
	if remote > MaxTimestamp {
		return fmt.Errorf("%w: %d", ErrTimestampRange, uint64(remote))
	}
	now := FromTime(c.now())
	if remote > now && remote-now > c.maxDrift {
		return fmt.Errorf("%w: remote %s, local %s", ErrClockDrift,
			ToTime(remote).Format(time.RFC3339Nano), ToTime(now).Format(time.RFC3339Nano))
	}
	return nil
}

// Observe учитывает удаленный timestamp, не выдавая локального.
// Возвращает ошибку Admit, если timestamp недопустим.
func (c *HLC) Observe(remote models.Timestamp) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.admit(remote); err != nil {
		return err
	}
	if remote > c.last {
		c.last = remote
	}

	return nil
}

// GetTimestamp возвращает последний известный timestamp без изменения часов.
func (c *HLC) GetTimestamp() models.Timestamp {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.last
}

// Restore восстанавливает состояние часов после перезапуска.
// Часы никогда не откатываются назад.
func (c *HLC) Restore(ts models.Timestamp) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if ts > c.last {
		c.last = ts
	}
}

// Watermark возвращает копию watermark по всем удаленным узлам.
func (c *HLC) Watermark() models.Watermark {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.watermark.Clone()
}

// Advance продвигает watermark для instance. Значение никогда не уменьшается.
func (c *HLC) Advance(instance uuid.UUID, ts models.Timestamp) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.watermark.Advance(instance, ts)
	if ts > c.last {
		c.last = ts
	}
}

// AdvanceAll продвигает watermark по всем записям w.
func (c *HLC) AdvanceAll(w models.Watermark) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for inst, ts := range w {
		c.watermark.Advance(inst, ts)
		if ts > c.last {
			c.last = ts
		}
	}
}
