package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Domenick1991/farehunter/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWhatsApp_Twilio(t *testing.T) {
	var got *http.Request
	var form map[string][]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		got, form = r, r.PostForm
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	s := NewWhatsAppSender(WhatsAppConfig{
		Provider:         ProviderTwilio,
		To:               "+5511999999999",
		TwilioAccountSID: "AC123",
		TwilioAuthToken:  "secret",
		TwilioFrom:       "+14155238886",
		TwilioBaseURL:    srv.URL,
	}, logger.NewNop())

	require.NoError(t, s.Send(context.Background(), Message{Body: "long", Short: "curto"}))
	assert.Equal(t, "/2010-04-01/Accounts/AC123/Messages.json", got.URL.Path)
	user, pass, ok := got.BasicAuth()
	assert.True(t, ok)
	assert.Equal(t, "AC123", user)
	assert.Equal(t, "secret", pass)
	assert.Equal(t, []string{"whatsapp:+14155238886"}, form["From"])
	assert.Equal(t, []string{"whatsapp:+5511999999999"}, form["To"])
	assert.Equal(t, []string{"curto"}, form["Body"])
}

func TestWhatsApp_CallMeBot(t *testing.T) {
	var query map[string][]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/whatsapp.php", r.URL.Path)
		query = r.URL.Query()
	}))
	defer srv.Close()

	s := NewWhatsAppSender(WhatsAppConfig{
		Provider:         ProviderCallMeBot,
		To:               "+55 (11) 99999-9999",
		CallMeBotAPIKey:  "42",
		CallMeBotBaseURL: srv.URL,
	}, logger.NewNop())

	require.NoError(t, s.Send(context.Background(), Message{Short: "oi"}))
	assert.Equal(t, []string{"5511999999999"}, query["phone"])
	assert.Equal(t, []string{"oi"}, query["text"])
	assert.Equal(t, []string{"42"}, query["apikey"])
}

func TestWhatsApp_Evolution(t *testing.T) {
	var payload map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/message/sendText/viagens", r.URL.Path)
		assert.Equal(t, "key", r.Header.Get("apikey"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
	}))
	defer srv.Close()

	s := NewWhatsAppSender(WhatsAppConfig{
		Provider:          ProviderEvolution,
		To:                "+5511999999999",
		EvolutionURL:      srv.URL,
		EvolutionAPIKey:   "key",
		EvolutionInstance: "viagens",
	}, logger.NewNop())

	require.NoError(t, s.Send(context.Background(), Message{Body: "sem resumo"}))
	assert.Equal(t, "5511999999999@s.whatsapp.net", payload["number"])
	assert.Equal(t, "sem resumo", payload["text"])
}

func TestWhatsApp_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "invalid apikey", http.StatusForbidden)
	}))
	defer srv.Close()

	s := NewWhatsAppSender(WhatsAppConfig{
		Provider: ProviderCallMeBot, To: "5511", CallMeBotAPIKey: "bad", CallMeBotBaseURL: srv.URL,
	}, logger.NewNop())

	err := s.Send(context.Background(), Message{Short: "oi"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "callmebot responded 403: invalid apikey")
}

func TestWhatsApp_NotConfigured(t *testing.T) {
	for _, provider := range []string{ProviderTwilio, ProviderCallMeBot, ProviderEvolution, "telegram"} {
		s := NewWhatsAppSender(WhatsAppConfig{Provider: provider}, logger.NewNop())
		assert.ErrorIs(t, s.Send(context.Background(), Message{Short: "oi"}), ErrNotConfigured, provider)
	}
}
