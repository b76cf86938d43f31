package bot

import (
	"context"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func newQueueBot(handle func(ctx context.Context, message *tgbotapi.Message)) *Bot {
	return &Bot{
		logger:  zap.NewNop(),
		handle:  handle,
		inboxes: make(map[int64][]*tgbotapi.Message),
	}
}

func inboxCount(b *Bot) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.inboxes)
}

func TestEnqueueKeepsEachUsersOrder(t *testing.T) {
	var (
		mu  sync.Mutex
		got = map[int64][]int{}
		wg  sync.WaitGroup
	)
	b := newQueueBot(func(_ context.Context, message *tgbotapi.Message) {
		defer wg.Done()
		time.Sleep(time.Millisecond)
		mu.Lock()
		got[message.From.ID] = append(got[message.From.ID], message.MessageID)
		mu.Unlock()
	})

	ctx := context.Background()
	for id := 1; id <= 10; id++ {
		for _, user := range []int64{1, 2} {
			wg.Add(1)
			b.enqueue(ctx, &tgbotapi.Message{MessageID: id, From: &tgbotapi.User{ID: user}})
		}
	}
	wg.Wait()

	want := []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	mu.Lock()
	assert.Equal(t, want, got[1])
	assert.Equal(t, want, got[2])
	mu.Unlock()
	assert.Eventually(t, func() bool { return inboxCount(b) == 0 }, time.Second, 5*time.Millisecond)
}

func TestEnqueueDoesNotBlockOtherUsers(t *testing.T) {
	block := make(chan struct{})
	handled := make(chan struct{})
	b := newQueueBot(func(_ context.Context, message *tgbotapi.Message) {
		if message.From.ID == 1 {
			<-block
			return
		}
		close(handled)
	})

	ctx := context.Background()
	b.enqueue(ctx, &tgbotapi.Message{MessageID: 1, From: &tgbotapi.User{ID: 1}})
	b.enqueue(ctx, &tgbotapi.Message{MessageID: 2, From: &tgbotapi.User{ID: 2}})

	select {
	case <-handled:
	case <-time.After(time.Second):
		t.Fatal("second user's message waited on the first user")
	}
	close(block)
	assert.Eventually(t, func() bool { return inboxCount(b) == 0 }, time.Second, 5*time.Millisecond)
}
