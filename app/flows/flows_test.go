package flows

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/loginbot/app/authident"
	"github.com/m3rciful/loginbot/app/model"
	"github.com/m3rciful/loginbot/app/store"
	"github.com/m3rciful/loginbot/app/store/memory"
	"github.com/m3rciful/loginbot/app/token"
	"github.com/m3rciful/loginbot/core/errs"
	tg "github.com/m3rciful/loginbot/core/telegram"
	"github.com/m3rciful/loginbot/core/telegram/sender"
	"github.com/m3rciful/loginbot/core/telegram/state"

	tele "gopkg.in/telebot.v4"
)

type sent struct {
	chatID int64
	text   string
	opts   *tele.SendOptions
}

type edit struct {
	chatID    int64
	messageID int
	text      string
}

type fakeMessenger struct {
	sends []sent
	edits []edit
}

func (m *fakeMessenger) Send(_ context.Context, chatID int64, text string, opts ...sender.Option) (*tele.Message, error) {
	m.sends = append(m.sends, sent{chatID: chatID, text: text, opts: sender.Apply(opts...)})
	return &tele.Message{ID: len(m.sends)}, nil
}

func (m *fakeMessenger) Edit(_ context.Context, chatID int64, messageID int, text string, _ ...sender.Option) error {
	m.edits = append(m.edits, edit{chatID: chatID, messageID: messageID, text: text})
	return nil
}

func (m *fakeMessenger) last() sent { return m.sends[len(m.sends)-1] }

type recordingProvisioner struct {
	ids []authident.Identity
	err error
}

func (p *recordingProvisioner) Provision(_ context.Context, id authident.Identity) error {
	p.ids = append(p.ids, id)
	return p.err
}

type harness struct {
	flows    *Flows
	store    *memory.Store
	sessions *state.Memory[model.ConversationSession]
	msg      *fakeMessenger
	prov     *recordingProvisioner
	now      time.Time
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		store:    memory.New(),
		sessions: state.NewMemory[model.ConversationSession](time.Hour),
		msg:      &fakeMessenger{},
		prov:     &recordingProvisioner{},
		now:      time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC),
	}
	clock := func() time.Time { return h.now }
	h.flows = New(Options{
		Store:       h.store,
		Sessions:    h.sessions,
		Messenger:   h.msg,
		Tokens:      token.NewIssuer(token.DefaultTTL, clock),
		Provisioner: h.prov,
		AppName:     "JamolStroy",
		BaseURL:     "https://app.example.com",
		Now:         clock,
		Location:    time.UTC,
	})
	return h
}

func user(id int64) *tele.User {
	return &tele.User{ID: id, FirstName: "Jamol", Username: "jamol", LanguageCode: "uz"}
}

func startEvent(id int64, payload string) *tg.Event {
	return &tg.Event{Kind: tg.KindCommand, ChatID: id, Sender: user(id), Command: "/start", Payload: payload}
}

func contactEvent(id, owner int64, phone string) *tg.Event {
	return &tg.Event{Kind: tg.KindContact, ChatID: id, Sender: user(id), Contact: &tele.Contact{PhoneNumber: phone, UserID: owner}}
}

func textEvent(id int64, text string) *tg.Event {
	return &tg.Event{Kind: tg.KindText, ChatID: id, Sender: user(id), Text: text}
}

func callbackEvent(id int64, messageID int, token string) *tg.Event {
	return &tg.Event{Kind: tg.KindCallback, ChatID: id, Sender: user(id), MessageID: messageID, Data: token,
		Callback: &tele.Callback{ID: "cb"}}
}

func (h *harness) register(t *testing.T, id int64) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, h.flows.Contact(ctx, contactEvent(id, id, "+998901234567")))
	require.NoError(t, h.flows.Text(ctx, textEvent(id, " Jamol ")))
	require.NoError(t, h.flows.Text(ctx, textEvent(id, "Karimov")))
}

func TestStartUnknownUserAsksForContact(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.flows.Start(context.Background(), startEvent(1, "")))

	require.Len(t, h.msg.sends, 1)
	m := h.msg.last()
	require.NotNil(t, m.opts.ReplyMarkup)
	require.Len(t, m.opts.ReplyMarkup.ReplyKeyboard, 1)
	assert.True(t, m.opts.ReplyMarkup.ReplyKeyboard[0][0].Contact)
	assert.Empty(t, m.opts.ReplyMarkup.InlineKeyboard, "no deep link for unknown users")
	assert.Equal(t, tele.ModeHTML, m.opts.ParseMode)
}

func TestStartExistingUserRefreshesToken(t *testing.T) {
	h := newHarness(t)
	h.register(t, 1)
	ctx := context.Background()
	before, err := h.store.UserByTelegramID(ctx, 1)
	require.NoError(t, err)

	h.now = h.now.Add(time.Hour)
	require.NoError(t, h.flows.Start(ctx, startEvent(1, "")))

	after, err := h.store.UserByTelegramID(ctx, 1)
	require.NoError(t, err)
	assert.NotEqual(t, *before.TempToken, *after.TempToken)
	assert.Equal(t, h.now.Add(24*time.Hour), *after.TempTokenExpiresAt)

	btn := h.msg.last().opts.ReplyMarkup.InlineKeyboard[0][0]
	require.NotNil(t, btn.WebApp)
	assert.Equal(t, "https://app.example.com?token="+*after.TempToken, btn.WebApp.URL)
}

func TestContactFromAnotherUserIsRejected(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	require.NoError(t, h.flows.Contact(ctx, contactEvent(1, 2, "+998")))

	assert.Equal(t, msgForeignContact, h.msg.last().text)
	_, ok, err := h.sessions.Get(ctx, 1)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRegistrationCompletesAfterTwoTexts(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	require.NoError(t, h.flows.Contact(ctx, contactEvent(1, 1, "+998901234567")))
	assert.True(t, h.msg.last().opts.ReplyMarkup.RemoveKeyboard)

	require.NoError(t, h.flows.Text(ctx, textEvent(1, " Jamol ")))
	_, err := h.store.UserByTelegramID(ctx, 1)
	assert.ErrorIs(t, err, store.ErrNotFound)
	sess, ok, err := h.sessions.Get(ctx, 1)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, model.StepWaitingLastName, sess.Step)
	assert.Equal(t, "Jamol", sess.FirstName)

	require.NoError(t, h.flows.Text(ctx, textEvent(1, "<Karimov>")))
	u, err := h.store.UserByTelegramID(ctx, 1)
	require.NoError(t, err)
	assert.True(t, u.IsVerified)
	assert.Equal(t, "<Karimov>", u.LastName)
	assert.Equal(t, "jamol", u.Username)
	assert.Equal(t, h.now.Add(24*time.Hour), *u.TempTokenExpiresAt)

	_, ok, _ = h.sessions.Get(ctx, 1)
	assert.False(t, ok, "conversation removed after registration")

	last := h.msg.last()
	assert.Contains(t, last.text, "&lt;Karimov&gt;")
	assert.Contains(t, last.opts.ReplyMarkup.InlineKeyboard[0][0].WebApp.URL, "token="+*u.TempToken)

	require.Len(t, h.prov.ids, 1)
	assert.Equal(t, "1@telegram.local", h.prov.ids[0].Email("telegram.local"))
	assert.Equal(t, "tg_1_+998901234567", h.prov.ids[0].Password())
}

func TestProvisioningFailureIsSwallowed(t *testing.T) {
	h := newHarness(t)
	h.prov.err = errors.New("auth down")
	h.register(t, 1)

	_, err := h.store.UserByTelegramID(context.Background(), 1)
	require.NoError(t, err)
	assert.Contains(t, h.msg.last().text, "Tabriklaymiz")
}

func TestTextWithoutSessionDoesNotMutate(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	require.NoError(t, h.flows.Text(ctx, textEvent(1, "hello")))

	assert.Equal(t, msgNoSession, h.msg.last().text)
	assert.Equal(t, 0, h.sessions.Len())
	_, err := h.store.UserByTelegramID(ctx, 1)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestEmptyNameReprompts(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	require.NoError(t, h.flows.Contact(ctx, contactEvent(1, 1, "+998")))
	require.NoError(t, h.flows.Text(ctx, textEvent(1, "   ")))

	assert.Equal(t, msgAskFirstName, h.msg.last().text)
	sess, ok, _ := h.sessions.Get(ctx, 1)
	require.True(t, ok)
	assert.Equal(t, model.StepWaitingFirstName, sess.Step)
}

func TestContactFromRegisteredUser(t *testing.T) {
	h := newHarness(t)
	h.register(t, 1)
	require.NoError(t, h.flows.Contact(context.Background(), contactEvent(1, 1, "+998")))
	assert.Equal(t, msgAlreadyRegistered, h.msg.last().text)
}

type failingCreate struct {
	*memory.Store
}

func (failingCreate) CreateUser(context.Context, model.NewUser) (*model.User, error) {
	return nil, errs.E(errs.KindStore, "users.create", errors.New("connection reset"))
}

func TestCreateFailureClearsConversation(t *testing.T) {
	h := newHarness(t)
	h.flows.store = failingCreate{Store: h.store}
	ctx := context.Background()

	require.NoError(t, h.flows.Contact(ctx, contactEvent(1, 1, "+998")))
	require.NoError(t, h.flows.Text(ctx, textEvent(1, "Jamol")))
	require.NoError(t, h.flows.Text(ctx, textEvent(1, "Karimov")))

	assert.Equal(t, msgGenericError, h.msg.last().text)
	assert.Equal(t, 0, h.sessions.Len())
	assert.Empty(t, h.prov.ids)
}

func TestMalformedWebLoginPayload(t *testing.T) {
	h := newHarness(t)
	h.register(t, 1)
	h.store.AddLoginSession("abc123")
	ctx := context.Background()
	n := len(h.msg.sends)

	require.NoError(t, h.flows.Start(ctx, startEvent(1, "web_login_abc123_1700000000")))
	require.Len(t, h.msg.sends, n+1)
	assert.Equal(t, msgInvalidLogin, h.msg.last().text)

	ls, err := h.store.LoginSession(ctx, "abc123")
	require.NoError(t, err)
	assert.Nil(t, ls.TelegramID)
}

func TestWebLoginUnregisteredUser(t *testing.T) {
	h := newHarness(t)
	h.store.AddLoginSession("abc123")
	require.NoError(t, h.flows.Start(context.Background(), startEvent(1, "web_login_abc123_1700000000_clientX")))

	m := h.msg.last()
	assert.Equal(t, msgNotRegistered, m.text)
	assert.True(t, m.opts.ReplyMarkup.ReplyKeyboard[0][0].Contact)
}

func TestWebLoginApproval(t *testing.T) {
	h := newHarness(t)
	h.register(t, 1)
	h.store.AddLoginSession("abc123")
	ctx := context.Background()

	require.NoError(t, h.flows.Start(ctx, startEvent(1, "web_login_abc123_1700000000_clientX")))
	prompt := h.msg.last()
	row := prompt.opts.ReplyMarkup.InlineKeyboard[0]
	require.Len(t, row, 2)
	assert.Equal(t, "approve_login_abc123", row[0].Data)
	assert.Equal(t, "reject_login_abc123", row[1].Data)

	ls, err := h.store.LoginSession(ctx, "abc123")
	require.NoError(t, err)
	require.NotNil(t, ls.TelegramID)
	assert.Equal(t, int64(1), *ls.TelegramID)

	sends := len(h.msg.sends)
	require.NoError(t, h.flows.Approve(ctx, callbackEvent(1, 77, "abc123")))

	assert.Len(t, h.msg.sends, sends, "decision never sends a new message")
	require.Len(t, h.msg.edits, 1)
	assert.Equal(t, 77, h.msg.edits[0].messageID)
	assert.Contains(t, h.msg.edits[0].text, "Login tasdiqlandi")
	assert.Contains(t, h.msg.edits[0].text, "01.03.2024, 09:30:00")

	ls, err = h.store.LoginSession(ctx, "abc123")
	require.NoError(t, err)
	assert.Equal(t, model.LoginApproved, ls.Status)
	require.NotNil(t, ls.UserID)
	require.NotNil(t, ls.ApprovedAt)
	assert.Equal(t, h.now, *ls.ApprovedAt)
}

func TestWebLoginRejectionAndRepeat(t *testing.T) {
	h := newHarness(t)
	h.register(t, 1)
	h.store.AddLoginSession("abc123")
	ctx := context.Background()
	require.NoError(t, h.flows.Start(ctx, startEvent(1, "web_login_abc123_1700000000_clientX")))

	require.NoError(t, h.flows.Reject(ctx, callbackEvent(1, 5, "abc123")))
	ls, err := h.store.LoginSession(ctx, "abc123")
	require.NoError(t, err)
	assert.Equal(t, model.LoginRejected, ls.Status)
	assert.Nil(t, ls.UserID)
	assert.Nil(t, ls.ApprovedAt)
	require.Len(t, h.msg.edits, 1)
	assert.True(t, strings.HasPrefix(h.msg.edits[0].text, "❌ <b>Login rad etildi</b>"))

	require.NoError(t, h.flows.Approve(ctx, callbackEvent(1, 5, "abc123")))
	assert.Len(t, h.msg.edits, 1, "repeated decision does not edit again")
	assert.Equal(t, msgLoginInactive, h.msg.last().text)

	ls, _ = h.store.LoginSession(ctx, "abc123")
	assert.Equal(t, model.LoginRejected, ls.Status)
}

func TestDecisionByAnotherUserLeavesStatus(t *testing.T) {
	h := newHarness(t)
	h.register(t, 1)
	h.register(t, 2)
	h.store.AddLoginSession("abc123")
	ctx := context.Background()
	require.NoError(t, h.flows.Start(ctx, startEvent(1, "web_login_abc123_1700000000_clientX")))

	require.NoError(t, h.flows.Approve(ctx, callbackEvent(2, 9, "abc123")))
	assert.Empty(t, h.msg.edits)
	ls, err := h.store.LoginSession(ctx, "abc123")
	require.NoError(t, err)
	assert.Equal(t, model.LoginPending, ls.Status)
}

func TestDecisionFromUnknownUser(t *testing.T) {
	h := newHarness(t)
	h.store.AddLoginSession("abc123")
	require.NoError(t, h.flows.Approve(context.Background(), callbackEvent(3, 9, "abc123")))
	assert.Equal(t, msgUserNotFound, h.msg.last().text)
	assert.Empty(t, h.msg.edits)
}

func TestRegisterBindsHandlers(t *testing.T) {
	h := newHarness(t)
	reg := tg.NewRegistry()
	require.NoError(t, h.flows.Register(reg))

	_, _, ok := reg.LookupCommand("/start")
	assert.True(t, ok)
	cb, rest, ok := reg.LookupCallback("reject_login_tok")
	require.True(t, ok)
	assert.Equal(t, "tok", rest)
	assert.Equal(t, AckRejected, cb.Ack)
	assert.NotNil(t, reg.ContactHandler())
	assert.NotNil(t, reg.TextHandler())
}
