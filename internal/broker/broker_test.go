package broker

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/liqwatch/liqhub/internal/domain"
)

func brokerEvent(symbol string) domain.Event {
	return domain.Event{
		Time:      time.Date(2024, 3, 1, 12, 0, 0, 0, domain.EventTZ),
		Symbol:    symbol,
		Exchange:  domain.ExchangeBinance,
		Price:     40000,
		Direction: domain.LongLiquidated,
		Amount:    100,
	}
}

func receive(t *testing.T, sub *Subscriber) domain.Event {
	t.Helper()
	select {
	case e := <-sub.Events():
		return e
	case <-time.After(time.Second):
		t.Fatal("expected an event")
		return domain.Event{}
	}
}

func assertNoEvent(t *testing.T, sub *Subscriber) {
	t.Helper()
	select {
	case e := <-sub.Events():
		t.Fatalf("unexpected event for %s", e.Symbol)
	default:
	}
}

func TestFanoutBroker_DeliversToMatchingSubscribers(t *testing.T) {
	b := New(zap.NewNop())

	btc := b.Subscribe([]string{"BTC"})
	eth := b.Subscribe([]string{"ETH"})
	both := b.Subscribe([]string{"BTC", "ETH"})

	b.Notify(brokerEvent("BTC"))

	assert.Equal(t, "BTC", receive(t, btc).Symbol)
	assert.Equal(t, "BTC", receive(t, both).Symbol)
	assertNoEvent(t, eth)
}

func TestFanoutBroker_SymbolsAreCaseInsensitive(t *testing.T) {
	b := New(zap.NewNop())

	sub := b.Subscribe([]string{" btc "})
	b.Notify(brokerEvent("BTC"))

	assert.Equal(t, "BTC", receive(t, sub).Symbol)
	assert.Equal(t, 1, b.SubscriberCount("btc"))
}

func TestFanoutBroker_NoDuplicateDelivery(t *testing.T) {
	b := New(zap.NewNop())

	// Subscribing to the same symbol twice still delivers each event once.
	sub := b.Subscribe([]string{"BTC", "btc"})
	b.Notify(brokerEvent("BTC"))

	receive(t, sub)
	assertNoEvent(t, sub)
}

func TestFanoutBroker_Unsubscribe(t *testing.T) {
	b := New(zap.NewNop())

	sub := b.Subscribe([]string{"BTC"})
	require.Equal(t, 1, b.SubscriberCount("BTC"))

	b.Unsubscribe(sub)
	assert.Equal(t, 0, b.SubscriberCount("BTC"))

	select {
	case <-sub.Done():
	default:
		t.Fatal("Done should be closed after Unsubscribe")
	}

	b.Notify(brokerEvent("BTC"))
	assertNoEvent(t, sub)

	// Unsubscribing twice or passing nil is harmless.
	b.Unsubscribe(sub)
	b.Unsubscribe(nil)
}

func TestFanoutBroker_DropsSlowSubscriber(t *testing.T) {
	b := New(zap.NewNop())

	slow := b.Subscribe([]string{"BTC"})
	fast := b.Subscribe([]string{"BTC"})

	// Fill the slow subscriber's buffer without draining it.
	for i := 0; i < DefaultSubscriberBuffer; i++ {
		b.Notify(brokerEvent("BTC"))
		receive(t, fast)
	}

	// The next event overflows slow and removes it; fast keeps receiving.
	b.Notify(brokerEvent("BTC"))
	receive(t, fast)

	assert.Equal(t, 1, b.SubscriberCount("BTC"))
	select {
	case <-slow.Done():
	case <-time.After(time.Second):
		t.Fatal("slow subscriber should have been dropped")
	}
}

func TestFanoutBroker_NotifyWithoutSubscribers(t *testing.T) {
	b := New(zap.NewNop())
	// Must not panic or block.
	b.Notify(brokerEvent("BTC"))
}
