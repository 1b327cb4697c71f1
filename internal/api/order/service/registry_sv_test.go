package orderService

import (
	"QahwaBot/internal/api/order"
	"QahwaBot/internal/entity"
	"context"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRegistry() *SessionRegistry {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return NewSessionRegistry(log)
}

func TestRegistryAcquireSerializesPerUser(t *testing.T) {
	r := newTestRegistry()
	ctx := context.Background()

	guard, err := r.Acquire(ctx, "966500000001")
	require.NoError(t, err)

	r.lockWait = 50 * time.Millisecond
	_, err = r.Acquire(ctx, "966500000001")
	assert.ErrorIs(t, err, order.ErrBusy)

	guard.Release()

	guard2, err := r.Acquire(ctx, "966500000001")
	require.NoError(t, err)
	guard2.Release()
}

func TestRegistryAcquireIndependentUsers(t *testing.T) {
	r := newTestRegistry()
	ctx := context.Background()

	g1, err := r.Acquire(ctx, "966500000001")
	require.NoError(t, err)
	defer g1.Release()

	g2, err := r.Acquire(ctx, "966500000002")
	require.NoError(t, err)
	g2.Release()
}

func TestRegistryAcquireWaitsForRelease(t *testing.T) {
	r := newTestRegistry()
	ctx := context.Background()

	guard, err := r.Acquire(ctx, "966500000001")
	require.NoError(t, err)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		g, err := r.Acquire(ctx, "966500000001")
		assert.NoError(t, err)
		g.Release()
	}()

	time.Sleep(20 * time.Millisecond)
	guard.Release()
	wg.Wait()
}

func TestRegistryDuplicateWindow(t *testing.T) {
	r := newTestRegistry()

	assert.False(t, r.IsDuplicate("966500000001", "msg-1"))
	assert.True(t, r.IsDuplicate("966500000001", "msg-1"))

	// different message id, different user: both fresh
	assert.False(t, r.IsDuplicate("966500000001", "msg-2"))
	assert.False(t, r.IsDuplicate("966500000002", "msg-1"))
}

func TestRegistryForget(t *testing.T) {
	r := newTestRegistry()

	assert.False(t, r.IsDuplicate("966500000001", "msg-1"))
	assert.True(t, r.IsDuplicate("966500000001", "msg-1"))

	r.Forget("966500000001", "msg-1")
	assert.False(t, r.IsDuplicate("966500000001", "msg-1"))
}

func TestRegistryLanguageHint(t *testing.T) {
	r := newTestRegistry()

	assert.Equal(t, entity.LanguageUnknown, r.LanguageHint("966500000001"))

	r.NoteLanguage("966500000001", entity.LanguageArabic)
	assert.Equal(t, entity.LanguageArabic, r.LanguageHint("966500000001"))

	r.Delete("966500000001")
	assert.Equal(t, entity.LanguageUnknown, r.LanguageHint("966500000001"))
}

func TestRegistryGetOrCreate(t *testing.T) {
	r := newTestRegistry()

	sess, created := r.GetOrCreate("966500000001", "Sara")
	require.True(t, created)
	assert.Equal(t, entity.StepLanguageSelect, sess.CurrentStep)
	assert.Equal(t, "Sara", sess.DisplayName)

	again, created := r.GetOrCreate("966500000001", "")
	assert.False(t, created)
	assert.Same(t, sess, again)
	assert.Equal(t, "Sara", again.DisplayName)
}

func TestRegistrySweepExpired(t *testing.T) {
	r := newTestRegistry()

	fresh, _ := r.GetOrCreate("966500000001", "")
	stale, _ := r.GetOrCreate("966500000002", "")
	stale.UpdatedAt = time.Now().Add(-sessionExpiry - time.Minute)

	removed := r.SweepExpired()
	assert.Equal(t, 1, removed)

	_, ok := r.Get("966500000002")
	assert.False(t, ok)
	got, ok := r.Get("966500000001")
	require.True(t, ok)
	assert.Same(t, fresh, got)
}

func TestRegistryDelete(t *testing.T) {
	r := newTestRegistry()
	r.GetOrCreate("966500000001", "")
	r.Delete("966500000001")
	_, ok := r.Get("966500000001")
	assert.False(t, ok)
}
