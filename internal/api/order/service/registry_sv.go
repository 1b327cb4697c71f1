package orderService

import (
	"QahwaBot/internal/api/order"
	"QahwaBot/internal/entity"
	"context"
	"os"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	defaultLockWait   = 10 * time.Second
	dedupWindow       = 5 * time.Minute
	sessionExpiry     = 30 * time.Minute
	sweepInterval     = 5 * time.Minute
)

// SessionRegistry serializes turns per user and caches session state in
// memory. Two-tier locking: mu guards the maps themselves (lock table,
// session cache, dedup window); the per-user semaphores guard session and
// cart content for the duration of a whole turn.
type SessionRegistry struct {
	log *logrus.Logger

	mu       sync.Mutex
	locks    map[string]chan struct{}
	sessions map[string]*entity.Session
	seen     map[string]time.Time
	langs    map[string]entity.Language

	lockWait time.Duration
	stop     chan struct{}
	stopOnce sync.Once
}

// Guard represents a held per-user lock. Release must be called exactly
// once, at the end of the turn.
type Guard struct {
	release func()
}

func (g Guard) Release() {
	if g.release != nil {
		g.release()
	}
}

func NewSessionRegistry(log *logrus.Logger) *SessionRegistry {
	lockWait := defaultLockWait
	if raw := os.Getenv("TURN_LOCK_WAIT"); raw != "" {
		parsed, err := time.ParseDuration(raw)
		if err != nil || parsed <= 0 {
			log.WithFields(logrus.Fields{
				"value": raw,
			}).Warn("Invalid TURN_LOCK_WAIT, using default")
		} else {
			lockWait = parsed
		}
	}

	return &SessionRegistry{
		log:      log,
		locks:    make(map[string]chan struct{}),
		sessions: make(map[string]*entity.Session),
		seen:     make(map[string]time.Time),
		langs:    make(map[string]entity.Language),
		lockWait: lockWait,
		stop:     make(chan struct{}),
	}
}

// Acquire blocks until the user's turn lock is free, the wait bound
// elapses, or ctx is done. On timeout it returns ErrBusy having changed
// nothing, so the delivery is safe to retry.
func (r *SessionRegistry) Acquire(ctx context.Context, phoneNumber string) (Guard, error) {
	sem := r.lockFor(phoneNumber)

	timer := time.NewTimer(r.lockWait)
	defer timer.Stop()

	select {
	case sem <- struct{}{}:
		return Guard{release: func() { <-sem }}, nil
	case <-timer.C:
		r.log.WithFields(logrus.Fields{
			"phone_number": phoneNumber,
		}).Warn("Turn lock wait timed out")
		return Guard{}, order.ErrBusy
	case <-ctx.Done():
		return Guard{}, order.ErrBusy
	}
}

// lockFor lazily creates the per-user semaphore under the coarse lock, so
// two simultaneous first messages from a new user cannot mint two locks.
// Lock entries are never removed; the table is bounded by the number of
// users ever active in this process.
func (r *SessionRegistry) lockFor(phoneNumber string) chan struct{} {
	r.mu.Lock()
	defer r.mu.Unlock()

	sem, ok := r.locks[phoneNumber]
	if !ok {
		sem = make(chan struct{}, 1)
		r.locks[phoneNumber] = sem
	}
	return sem
}

// IsDuplicate reports whether (user, messageID) was already seen inside
// the sliding dedup window, recording it when it was not.
func (r *SessionRegistry) IsDuplicate(phoneNumber, messageID string) bool {
	key := phoneNumber + "|" + messageID
	now := time.Now()

	r.mu.Lock()
	defer r.mu.Unlock()

	if seenAt, ok := r.seen[key]; ok && now.Sub(seenAt) < dedupWindow {
		return true
	}
	r.seen[key] = now
	return false
}

// Forget drops the dedup record for a delivery that was turned away
// before processing, so the gateway's retry of it goes through.
func (r *SessionRegistry) Forget(phoneNumber, messageID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.seen, phoneNumber+"|"+messageID)
}

// NoteLanguage records the user's reply language for paths that run
// without the per-user turn lock. Callers write it at the end of a turn,
// still holding the lock.
func (r *SessionRegistry) NoteLanguage(phoneNumber string, lang entity.Language) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.langs[phoneNumber] = lang
}

// LanguageHint is the language noted at the end of the user's last turn.
// Lock-free paths read this instead of the shared session, which only
// the turn lock holder may touch.
func (r *SessionRegistry) LanguageHint(phoneNumber string) entity.Language {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.langs[phoneNumber]
}

// GetOrCreate returns the cached session for the user, creating a fresh
// one at the initial step when none exists. The created flag lets the
// caller rehydrate from persistence on a cache miss.
func (r *SessionRegistry) GetOrCreate(phoneNumber, displayName string) (*entity.Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if sess, ok := r.sessions[phoneNumber]; ok {
		if displayName != "" {
			sess.DisplayName = displayName
		}
		return sess, false
	}

	now := time.Now()
	sess := &entity.Session{
		PhoneNumber: phoneNumber,
		DisplayName: displayName,
		CurrentStep: entity.StepLanguageSelect,
		OrderMode:   entity.OrderModeExplore,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	r.sessions[phoneNumber] = sess
	return sess, true
}

// Put replaces the cached session, used when rehydrating from persistence.
func (r *SessionRegistry) Put(sess *entity.Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[sess.PhoneNumber] = sess
}

func (r *SessionRegistry) Get(phoneNumber string) (*entity.Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sess, ok := r.sessions[phoneNumber]
	return sess, ok
}

func (r *SessionRegistry) Delete(phoneNumber string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, phoneNumber)
	delete(r.langs, phoneNumber)
}

// SweepExpired drops sessions idle past the expiry window and prunes the
// dedup window. Lock entries stay.
func (r *SessionRegistry) SweepExpired() int {
	now := time.Now()

	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for key, sess := range r.sessions {
		if sess.Expired(now, sessionExpiry) {
			delete(r.sessions, key)
			delete(r.langs, key)
			removed++
		}
	}

	for key, seenAt := range r.seen {
		if now.Sub(seenAt) >= dedupWindow {
			delete(r.seen, key)
		}
	}

	if removed > 0 {
		r.log.WithFields(logrus.Fields{
			"removed": removed,
		}).Info("Swept expired sessions")
	}
	return removed
}

func (r *SessionRegistry) StartSweeper() {
	go func() {
		ticker := time.NewTicker(sweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				r.SweepExpired()
			case <-r.stop:
				return
			}
		}
	}()
}

func (r *SessionRegistry) StopSweeper() {
	r.stopOnce.Do(func() { close(r.stop) })
}
