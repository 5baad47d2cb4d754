package api

import (
	"encoding/xml"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/tilgo/leadline/internal/classifier"
	"github.com/tilgo/leadline/internal/metrics"
	"github.com/tilgo/leadline/internal/models"
	"github.com/tilgo/leadline/internal/repository"
)

// historyLimit caps how many prior turns feed the classifier prompt
const historyLimit = 20

// optOutKeywords are the messages that unsubscribe a lead, compared after
// trimming and uppercasing.
var optOutKeywords = map[string]bool{
	"STOP":        true,
	"UNSUBSCRIBE": true,
	"CANCEL":      true,
	"QUIT":        true,
	"END":         true,
}

type twimlResponse struct {
	XMLName xml.Name `xml:"Response"`
	Message string   `xml:"Message,omitempty"`
}

// handleInboundSMS handles POST /webhook/sms. The gateway retries on
// non-2xx responses, so every known sender is acknowledged with 200 even
// when downstream processing fails.
func (s *Server) handleInboundSMS(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form body", http.StatusBadRequest)
		return
	}

	from := strings.TrimSpace(r.PostForm.Get("From"))
	body := strings.TrimSpace(r.PostForm.Get("Body"))
	if from == "" || body == "" {
		http.Error(w, "From and Body are required", http.StatusBadRequest)
		return
	}

	lead, err := s.leads.GetByPhone(from)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.logger.Warn("inbound message from unknown number", "phone", from)
			http.Error(w, "unknown sender", http.StatusNotFound)
			return
		}
		s.logger.Error("failed to look up lead", "phone", from, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	metrics.IncRepliesReceived()
	s.logger.Info("inbound message", "phone", from, "status", lead.Status)

	if optOutKeywords[strings.ToUpper(body)] {
		s.handleOptOut(w, r, lead, body)
		return
	}

	// Build the prompt from history before recording the inbound turn,
	// which is appended to the prompt separately.
	history, err := s.conversations.History(from, historyLimit)
	if err != nil {
		s.logger.Error("failed to load conversation history", "phone", from, "error", err)
		history = nil
	}
	prompt := s.composer.BuildContext(lead, body, history)

	if err := s.conversations.Append(from, models.RoleUser, body); err != nil {
		s.logger.Error("failed to record inbound turn", "phone", from, "error", err)
	}

	reply, temperature := s.classify(r, prompt)

	if err := s.leads.RecordReply(from, body, temperature, time.Now()); err != nil {
		s.logger.Error("failed to record reply", "phone", from, "error", err)
	}
	metrics.IncClassifications(temperature)

	if reply != "" {
		if err := s.conversations.Append(from, models.RoleAssistant, reply); err != nil {
			s.logger.Error("failed to record reply turn", "phone", from, "error", err)
		}
		metrics.IncMessagesSent("reply")
	}

	s.logger.Info("reply classified", "phone", from, "temperature", temperature)
	s.sendTwiML(w, reply)
}

// classify runs the model and maps failures to the fallback temperature.
// The reply text is kept whenever the model produced one.
func (s *Server) classify(r *http.Request, prompt *classifier.Context) (reply, temperature string) {
	result, err := s.classifier.Classify(r.Context(), prompt)
	if err == nil {
		return result.Reply, result.Temperature
	}

	var clsErr *classifier.Error
	if errors.As(err, &clsErr) && clsErr.Kind == classifier.KindMalformedOutput && result != nil {
		s.logger.Warn("classifier returned unusable label, using fallback",
			"error", err, "fallback", models.FallbackTemperature)
		return result.Reply, models.FallbackTemperature
	}

	s.logger.Error("classification failed, using fallback",
		"error", err, "fallback", models.FallbackTemperature)
	return "", models.FallbackTemperature
}

func (s *Server) handleOptOut(w http.ResponseWriter, r *http.Request, lead *models.Lead, body string) {
	now := time.Now()

	if err := s.leads.MarkOptedOut(lead.Phone, now); err != nil {
		s.logger.Error("failed to mark lead opted out", "phone", lead.Phone, "error", err)
	}
	if err := s.conversations.Append(lead.Phone, models.RoleUser, body); err != nil {
		s.logger.Error("failed to record opt-out turn", "phone", lead.Phone, "error", err)
	}
	confirmation := s.composer.OptOutConfirmation()
	if err := s.conversations.Append(lead.Phone, models.RoleAssistant, confirmation); err != nil {
		s.logger.Error("failed to record opt-out confirmation", "phone", lead.Phone, "error", err)
	}

	metrics.IncOptOuts()
	metrics.IncMessagesSent("opt_out")
	s.logger.Info("lead opted out", "phone", lead.Phone)

	s.sendTwiML(w, confirmation)
}

// sendTwiML writes a TwiML response; the gateway delivers the message body
// back to the sender, so no separate outbound API call is needed.
func (s *Server) sendTwiML(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/xml")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(xml.Header))
	xml.NewEncoder(w).Encode(twimlResponse{Message: message})
}
