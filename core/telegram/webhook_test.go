package telegram

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	tele "gopkg.in/telebot.v4"
)

type updateRecorder struct {
	got []tele.Update
	err error
}

func (r *updateRecorder) HandleUpdate(_ context.Context, upd tele.Update) error {
	r.got = append(r.got, upd)
	return r.err
}

func serveWebhook(t *testing.T, h UpdateHandler, body string) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	engine.POST("/telegram/webhook", WebhookHandler(h))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/telegram/webhook", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	engine.ServeHTTP(rec, req)
	return rec
}

func TestWebhookHandlerDecodesUpdate(t *testing.T) {
	rec := &updateRecorder{}
	body := `{"update_id":77,"callback_query":{"id":"cb1","from":{"id":5,"first_name":"Ali"},"data":"approve_login_abc","message":{"message_id":9,"chat":{"id":5,"type":"private"}}}}`

	resp := serveWebhook(t, rec, body)

	require.Equal(t, http.StatusOK, resp.Code)
	assert.JSONEq(t, `{"ok":true}`, resp.Body.String())
	require.Len(t, rec.got, 1)
	assert.Equal(t, 77, rec.got[0].ID)
	require.NotNil(t, rec.got[0].Callback)
	assert.Equal(t, "approve_login_abc", rec.got[0].Callback.Data)
	assert.Equal(t, 9, rec.got[0].Callback.Message.ID)
}

func TestWebhookHandlerFailure(t *testing.T) {
	rec := &updateRecorder{err: errors.New("panic recovered")}
	resp := serveWebhook(t, rec, `{"update_id":1}`)
	assert.Equal(t, http.StatusInternalServerError, resp.Code)
	assert.JSONEq(t, `{"ok":false}`, resp.Body.String())

	resp = serveWebhook(t, &updateRecorder{}, `{not json`)
	assert.Equal(t, http.StatusInternalServerError, resp.Code)
	assert.JSONEq(t, `{"ok":false}`, resp.Body.String())
}
