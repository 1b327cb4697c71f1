package orderService

import (
	"QahwaBot/internal/api/order"
	"QahwaBot/internal/entity"
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testPhone = "966500000001"

var msgSeq int

func send(t *testing.T, svc *orderService, text string) *order.TurnReply {
	t.Helper()
	msgSeq++
	reply, err := svc.ProcessTurn(context.Background(), order.InboundMessageRequest{
		SenderID:   testPhone,
		MessageID:  fmt.Sprintf("msg-%d", msgSeq),
		Text:       text,
		SenderName: "Sara",
	})
	require.NoError(t, err)
	return reply
}

func openOrderOf(t *testing.T, repo *fakeRepo, phone string) entity.Order {
	t.Helper()
	client, err := repo.NewClient(false)
	require.NoError(t, err)
	o, err := client.Orders.GetOpenOrder(context.Background(), phone)
	require.NoError(t, err)
	return o
}

func TestTurnFullOrderFlow(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(t, repo, nil)

	reply := send(t, svc, "hi")
	assert.Equal(t, "language_select", reply.Step)

	reply = send(t, svc, "2")
	assert.Equal(t, "category_select", reply.Step)
	assert.Contains(t, reply.Text, "What would you like to order?")

	reply = send(t, svc, "latte")
	assert.Equal(t, "quantity_select", reply.Step)
	assert.Contains(t, reply.Text, "How many")

	reply = send(t, svc, "2")
	assert.Equal(t, "more_items", reply.Step)
	assert.Contains(t, reply.Text, "Latte x2")

	reply = send(t, svc, "no")
	assert.Equal(t, "service_select", reply.Step)

	reply = send(t, svc, "1")
	assert.Equal(t, "location_select", reply.Step)
	assert.Contains(t, reply.Text, "table number")

	reply = send(t, svc, "3")
	assert.Equal(t, "confirmation", reply.Step)
	assert.Contains(t, reply.Text, "Total: 30.00")
	assert.Contains(t, reply.Text, "table 3")

	reply = send(t, svc, "yes")
	assert.Equal(t, "completed", reply.Step)
	assert.Contains(t, reply.Text, "Order confirmed!")

	// order is archived, no open cart remains
	client, err := repo.NewClient(false)
	require.NoError(t, err)
	_, err = client.Orders.GetOpenOrder(context.Background(), testPhone)
	assert.ErrorIs(t, err, order.ErrOrderNotFound)
}

func TestTurnQuickOrderCompound(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(t, repo, nil)

	send(t, svc, "hi")
	send(t, svc, "2")

	reply := send(t, svc, "2 lattes and 1 espresso delivery")
	assert.Equal(t, "location_select", reply.Step)
	assert.Contains(t, reply.Text, "delivery address")

	cart := openOrderOf(t, repo, testPhone)
	require.Len(t, cart.Lines, 2)
	assert.Equal(t, entity.ServiceDelivery, cart.ServiceType)
	assert.Equal(t, 2, cart.Lines[0].Quantity)

	reply = send(t, svc, "12 Olaya Street, Riyadh")
	assert.Equal(t, "confirmation", reply.Step)
	assert.Contains(t, reply.Text, "Total: 40.00")

	reply = send(t, svc, "confirm")
	assert.Equal(t, "completed", reply.Step)
}

func TestTurnTransientWriteFailureRetried(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(t, repo, nil)

	send(t, svc, "hi")
	send(t, svc, "2")
	send(t, svc, "latte")

	repo.failNextWrites(1, errors.New("connection reset"))
	reply := send(t, svc, "2")
	assert.Equal(t, "more_items", reply.Step)
	assert.Contains(t, reply.Text, "Latte x2")
}

func TestTurnPersistenceFailureApologizes(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(t, repo, nil)

	send(t, svc, "hi")
	send(t, svc, "2")
	send(t, svc, "latte")

	// both attempts of the order insert fail
	repo.failNextWrites(2, errors.New("connection refused"))
	reply := send(t, svc, "2")
	assert.Equal(t, "quantity_select", reply.Step)
	assert.Contains(t, reply.Text, "Please try again")

	// the selection survived the rollback, so a plain resend works
	reply = send(t, svc, "2")
	assert.Equal(t, "more_items", reply.Step)
	assert.Contains(t, reply.Text, "Latte x2")
}

func TestTurnDuplicateDelivery(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(t, repo, nil)

	req := order.InboundMessageRequest{
		SenderID:  testPhone,
		MessageID: "dup-1",
		Text:      "hi",
	}

	first, err := svc.ProcessTurn(context.Background(), req)
	require.NoError(t, err)
	assert.False(t, first.Duplicate)
	assert.NotEmpty(t, first.Text)

	second, err := svc.ProcessTurn(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, second.Duplicate)
	assert.Empty(t, second.Text)
}

func TestTurnBusyWhileLocked(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(t, repo, nil)
	svc.registry.lockWait = 20 * time.Millisecond

	guard, err := svc.registry.Acquire(context.Background(), testPhone)
	require.NoError(t, err)
	defer guard.Release()

	reply := send(t, svc, "latte")
	assert.Contains(t, reply.Text, "Still working")
}

func TestTurnBusyRejectedDeliveryCanBeRetried(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(t, repo, nil)
	svc.registry.lockWait = 20 * time.Millisecond

	guard, err := svc.registry.Acquire(context.Background(), testPhone)
	require.NoError(t, err)

	req := order.InboundMessageRequest{
		SenderID:  testPhone,
		MessageID: "busy-retry-1",
		Text:      "hi",
	}
	busy, err := svc.ProcessTurn(context.Background(), req)
	require.NoError(t, err)
	assert.Contains(t, busy.Text, "Still working")

	guard.Release()

	// the gateway resends the same delivery once the lock is free; it was
	// never processed, so it must not be treated as a duplicate
	retry, err := svc.ProcessTurn(context.Background(), req)
	require.NoError(t, err)
	assert.False(t, retry.Duplicate)
	assert.Equal(t, "language_select", retry.Step)

	// a genuine duplicate of the processed delivery is still dropped
	dup, err := svc.ProcessTurn(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, dup.Duplicate)
}

func TestTurnBusyReplyUsesNotedLanguage(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(t, repo, nil)

	send(t, svc, "hi")
	send(t, svc, "1")

	svc.registry.lockWait = 20 * time.Millisecond
	guard, err := svc.registry.Acquire(context.Background(), testPhone)
	require.NoError(t, err)
	defer guard.Release()

	// the busy reply reads the language noted by the last finished turn,
	// never the live session another turn may be writing
	reply := send(t, svc, "لاتيه")
	assert.Contains(t, reply.Text, "لحظة")
}

func TestTurnBackClearsSelection(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(t, repo, nil)

	send(t, svc, "hi")
	send(t, svc, "2")
	send(t, svc, "latte")

	sess, ok := svc.registry.Get(testPhone)
	require.True(t, ok)
	assert.Equal(t, "itm-latte", sess.SelectedItemID)

	reply := send(t, svc, "back")
	assert.Equal(t, "item_select", reply.Step)
	assert.Empty(t, sess.SelectedItemID)
}

func TestTurnRepeatAddReplacesQuantity(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(t, repo, nil)

	send(t, svc, "hi")
	send(t, svc, "2")
	send(t, svc, "latte")
	send(t, svc, "2")

	cart := openOrderOf(t, repo, testPhone)
	require.Len(t, cart.Lines, 1)
	assert.Equal(t, 2, cart.Lines[0].Quantity)

	reply := send(t, svc, "5 lattes")
	assert.Equal(t, "more_items", reply.Step)

	cart = openOrderOf(t, repo, testPhone)
	require.Len(t, cart.Lines, 1)
	assert.Equal(t, 5, cart.Lines[0].Quantity)
}

func TestTurnCancelMidFlow(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(t, repo, nil)

	send(t, svc, "hi")
	send(t, svc, "2")
	send(t, svc, "latte")
	send(t, svc, "2")

	reply := send(t, svc, "cancel")
	assert.Equal(t, "cancelled", reply.Step)
	assert.Contains(t, reply.Text, "cancelled")

	client, err := repo.NewClient(false)
	require.NoError(t, err)
	_, err = client.Orders.GetOpenOrder(context.Background(), testPhone)
	assert.ErrorIs(t, err, order.ErrOrderNotFound)

	// next message starts a fresh flow, language already known
	reply = send(t, svc, "latte")
	assert.Equal(t, "quantity_select", reply.Step)
}

func TestTurnGreetingMidFlowResets(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(t, repo, nil)

	send(t, svc, "hi")
	send(t, svc, "2")
	send(t, svc, "latte")
	send(t, svc, "2")

	reply := send(t, svc, "hello")
	assert.Equal(t, "language_select", reply.Step)

	client, err := repo.NewClient(false)
	require.NoError(t, err)
	_, err = client.Orders.GetOpenOrder(context.Background(), testPhone)
	assert.ErrorIs(t, err, order.ErrOrderNotFound)
}

func TestTurnGreetingDuringCheckoutDoesNotReset(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(t, repo, nil)

	send(t, svc, "hi")
	send(t, svc, "2")
	send(t, svc, "latte")
	send(t, svc, "2")
	send(t, svc, "no")

	// at service_select a greeting is ordinary (unparseable) input
	reply := send(t, svc, "hello")
	assert.Equal(t, "service_select", reply.Step)

	cart := openOrderOf(t, repo, testPhone)
	assert.Len(t, cart.Lines, 1)
}

func TestTurnInvalidTableNumber(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(t, repo, nil)

	send(t, svc, "hi")
	send(t, svc, "2")
	send(t, svc, "latte")
	send(t, svc, "2")
	send(t, svc, "no")
	send(t, svc, "1")

	reply := send(t, svc, "9")
	assert.Equal(t, "location_select", reply.Step)
	assert.Contains(t, reply.Text, "between 1 and 7")

	reply = send(t, svc, "7")
	assert.Equal(t, "confirmation", reply.Step)
}

func TestTurnInvalidQuantity(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(t, repo, nil)

	send(t, svc, "hi")
	send(t, svc, "2")
	send(t, svc, "latte")

	reply := send(t, svc, "55")
	assert.Equal(t, "quantity_select", reply.Step)

	reply = send(t, svc, "3")
	assert.Equal(t, "more_items", reply.Step)
}

func TestTurnArabicFlow(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(t, repo, nil)

	send(t, svc, "مرحبا")
	reply := send(t, svc, "1")
	assert.Equal(t, "category_select", reply.Step)
	assert.Contains(t, reply.Text, "ماذا تحب أن تطلب؟")

	reply = send(t, svc, "لاتيه")
	assert.Equal(t, "quantity_select", reply.Step)

	reply = send(t, svc, "خمسة")
	assert.Equal(t, "more_items", reply.Step)

	cart := openOrderOf(t, repo, testPhone)
	require.Len(t, cart.Lines, 1)
	assert.Equal(t, 5, cart.Lines[0].Quantity)
}

func TestTurnSessionRehydratedFromStore(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(t, repo, nil)

	send(t, svc, "hi")
	send(t, svc, "2")

	// simulate a restart: in-memory cache gone, persisted session remains
	svc.registry.Delete(testPhone)

	reply := send(t, svc, "latte")
	assert.Equal(t, "quantity_select", reply.Step)
}

func TestOpsSessionLifecycle(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(t, repo, nil)
	ctx := context.Background()

	send(t, svc, "hi")
	send(t, svc, "2")

	sess, err := svc.GetSession(ctx, testPhone)
	require.NoError(t, err)
	assert.Equal(t, "category_select", sess.CurrentStep)
	assert.Equal(t, "en", sess.Language)

	require.NoError(t, svc.DeleteSession(ctx, testPhone))

	_, err = svc.GetSession(ctx, testPhone)
	assert.ErrorIs(t, err, order.ErrSessionNotFound)
}

func TestOpsGetOpenOrder(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(t, repo, nil)
	ctx := context.Background()

	_, err := svc.GetOpenOrder(ctx, testPhone)
	assert.ErrorIs(t, err, order.ErrOrderNotFound)

	send(t, svc, "hi")
	send(t, svc, "2")
	send(t, svc, "latte")
	send(t, svc, "2")

	summary, err := svc.GetOpenOrder(ctx, testPhone)
	require.NoError(t, err)
	require.Len(t, summary.Lines, 1)
	assert.Equal(t, "itm-latte", summary.Lines[0].ItemID)
	assert.Equal(t, 2, summary.Lines[0].Quantity)
	assert.Equal(t, 30.0, summary.Total)

	summary, err = svc.RemoveCartLine(ctx, testPhone, "itm-latte")
	require.NoError(t, err)
	assert.Empty(t, summary.Lines)

	_, err = svc.RemoveCartLine(ctx, testPhone, "itm-espresso")
	assert.ErrorIs(t, err, order.ErrItemNotFound)
}

func TestTurnBlockedTransitionLeavesSessionUntouched(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(t, repo, nil)
	ctx := context.Background()

	send(t, svc, "hi")
	send(t, svc, "2")
	send(t, svc, "latte")
	send(t, svc, "2")
	send(t, svc, "no")
	send(t, svc, "1")
	send(t, svc, "3")

	sess, ok := svc.registry.Get(testPhone)
	require.True(t, ok)
	require.Equal(t, entity.StepConfirmation, sess.CurrentStep)

	client, err := repo.NewClient(false)
	require.NoError(t, err)
	cart, found, err := svc.loadOpenOrder(ctx, client, testPhone)
	require.NoError(t, err)
	require.True(t, found)

	// a stray language guess mid-checkout targets category_select, which
	// the graph blocks; the session must come out exactly as it went in
	stray := &entity.Intent{
		Action: entity.ActionLanguageSelect,
		Fields: map[string]string{entity.FieldLanguage: "ar"},
	}
	reply, err := svc.applyIntent(ctx, client, sess, &cart, stray, svc.currentMenu(ctx), "عربي")
	require.NoError(t, err)
	assert.NotEmpty(t, reply.Text)
	assert.Equal(t, entity.StepConfirmation, sess.CurrentStep)
	assert.Equal(t, entity.LanguageEnglish, sess.Language)
}

func TestRetryPersistExhaustionReturnsSentinel(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(t, repo, nil)

	calls := 0
	err := svc.retryPersist(context.Background(), "create_order", func() error {
		calls++
		return errors.New("connection refused")
	})
	assert.ErrorIs(t, err, order.ErrPersistence)
	assert.Equal(t, 2, calls)

	// domain sentinels pass through untouched, with no second attempt
	calls = 0
	err = svc.retryPersist(context.Background(), "upsert_line", func() error {
		calls++
		return order.ErrInvalidQuantity
	})
	assert.ErrorIs(t, err, order.ErrInvalidQuantity)
	assert.Equal(t, 1, calls)
}

func TestOpsSweepSessions(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(t, repo, nil)

	send(t, svc, "hi")
	sess, ok := svc.registry.Get(testPhone)
	require.True(t, ok)
	sess.UpdatedAt = time.Now().Add(-sessionExpiry - time.Minute)

	result, err := svc.SweepSessions(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.Removed)
}
