package telegram

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/edgard/widgetbot/internal/chat"
)

type recordingSender struct {
	mu   sync.Mutex
	sent []*bot.SendMessageParams
	err  error
}

func (s *recordingSender) SendMessage(_ context.Context, params *bot.SendMessageParams) (*models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, params)
	return &models.Message{}, s.err
}

func TestNotifierSessionStarted(t *testing.T) {
	defer goleak.VerifyNone(t)

	sender := &recordingSender{}
	n := NewNotifier(sender, 42, nil)

	ctx, cancel := context.WithCancel(context.Background())
	n.SessionStarted(ctx, chat.SessionStarted{SessionID: 5, ChatbotID: 1, GuestName: "Ana", GuestEmail: "ana@x.com"})
	cancel()
	n.Wait()

	require.Len(t, sender.sent, 1)
	assert.Equal(t, int64(42), sender.sent[0].ChatID)
	assert.Equal(t, "🆕 New session #5 on chatbot #1\n👤 Ana <ana@x.com>\nUse /transcript 5 to follow it.", sender.sent[0].Text)
}

func TestNotifierSwallowsAsyncFailures(t *testing.T) {
	defer goleak.VerifyNone(t)

	sender := &recordingSender{err: errors.New("chat not found")}
	n := NewNotifier(sender, 42, nil)

	n.SessionStarted(context.Background(), chat.SessionStarted{SessionID: 1})
	n.Wait()
	assert.Len(t, sender.sent, 1)
}

func TestNotifyReturnsError(t *testing.T) {
	t.Parallel()

	sender := &recordingSender{err: errors.New("forbidden")}
	err := NewNotifier(sender, 42, nil).Notify(context.Background(), "hello")
	assert.ErrorContains(t, err, "forbidden")
}

func TestApplyMiddlewareOrder(t *testing.T) {
	t.Parallel()

	var order []string
	mw := func(name string) bot.Middleware {
		return func(next bot.HandlerFunc) bot.HandlerFunc {
			return func(ctx context.Context, b *bot.Bot, u *models.Update) {
				order = append(order, name)
				next(ctx, b, u)
			}
		}
	}
	h := applyMiddleware(func(context.Context, *bot.Bot, *models.Update) { order = append(order, "handler") },
		[]bot.Middleware{mw("outer"), mw("inner")})

	h(context.Background(), nil, &models.Update{})
	assert.Equal(t, []string{"outer", "inner", "handler"}, order)
}

func TestNewTelegramBotRequiresToken(t *testing.T) {
	t.Parallel()

	_, err := NewTelegramBot("", nil)
	assert.Error(t, err)
}
