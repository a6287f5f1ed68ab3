package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/eldtechnologies/faqbot/internal/metrics"
	"github.com/eldtechnologies/faqbot/internal/twilio"
)

// turnTimeout bounds one webhook-triggered conversation turn end to end.
const turnTimeout = 2 * time.Minute

// TwilioWebhook handles inbound WhatsApp messages. Twilio expects a fast
// 200; the turn (retrieval, generation, outbound delivery) runs in the
// background. The sender's phone number is the thread id, so each contact
// gets an isolated conversation history.
func (h *Handler) TwilioWebhook(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.Error(w, http.StatusBadRequest, "invalid form body")
		return
	}

	if h.validate {
		sig := r.Header.Get("X-Twilio-Signature")
		url := requestScheme(r) + "://" + r.Host + r.URL.RequestURI()
		if !twilio.ValidateSignature(h.token, url, r.PostForm, sig) {
			h.Error(w, http.StatusForbidden, "invalid signature")
			return
		}
	}

	body := r.PostFormValue("Body")
	sender := r.PostFormValue("From")
	if body == "" || sender == "" {
		h.Error(w, http.StatusBadRequest, "Body and From are required")
		return
	}

	go h.answer(sender, body)

	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

// requestScheme resolves the scheme Twilio signed against. The signature
// covers the public URL, so behind a TLS-terminating proxy the forwarded
// scheme wins over the local connection's.
func requestScheme(r *http.Request) string {
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		return proto
	}
	return "https"
}

// answer runs one turn and delivers the reply back over WhatsApp.
func (h *Handler) answer(sender, body string) {
	ctx, cancel := context.WithTimeout(context.Background(), turnTimeout)
	defer cancel()

	reply, err := h.agent.Invoke(ctx, body, sender, h.persona)
	if err != nil {
		h.logger.Error().Err(err).Str("thread_id", sender).Msg("turn failed")
		return
	}

	sid, err := h.sender.SendMessage(ctx, sender, reply)
	if err != nil {
		metrics.MessagesDelivered.WithLabelValues("error").Inc()
		h.logger.Error().Err(err).Str("thread_id", sender).Msg("delivery failed")
		return
	}
	metrics.MessagesDelivered.WithLabelValues("ok").Inc()
	h.logger.Info().Str("thread_id", sender).Str("sid", sid).Msg("reply delivered")
}
