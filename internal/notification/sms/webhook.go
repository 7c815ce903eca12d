package sms

import (
	"crypto/hmac"
	"crypto/sha1"
	"crypto/subtle"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"sort"
	"strings"

	"github.com/gin-gonic/gin"

	"bookingagent/internal/events"
	"bookingagent/internal/notification/outbox"
	"bookingagent/platform/logger"
)

// WebhookHandler consumes the carrier's delivery-status callback, per
// spec.md §6: form-encoded MessageSid/MessageStatus/ErrorCode, answered
// 2xx so the carrier doesn't retry (the one exception is a 403 when
// AuthToken is set and the signature check fails), an unknown SID
// treated as an idempotent no-op. Header extraction mirrors internal/webhook's
// APIKeyAuthMiddleware shape (pull a header, look up what it names, set
// gin context); the signature check itself is real HMAC-SHA1 over the
// callback URL plus sorted form values, the same constant-time-compare
// idiom internal/auth/sessiontoken's Signer uses for its own HMAC.
type WebhookHandler struct {
	Outbox    *outbox.Repository
	OptOut    OptOutStore
	Bus       events.Bus
	AuthToken string
	Log       *logger.Logger
}

func (h *WebhookHandler) Handle(c *gin.Context) {
	if err := c.Request.ParseForm(); err != nil {
		c.Status(http.StatusOK)
		return
	}

	if h.AuthToken != "" {
		signature := c.GetHeader("X-Carrier-Signature")
		if !h.validSignature(c.Request.URL.String(), c.Request.PostForm, signature) {
			c.JSON(http.StatusForbidden, gin.H{"error": "invalid signature"})
			return
		}
	}

	sid := c.PostForm("MessageSid")
	status := c.PostForm("MessageStatus")
	errorCode := c.PostForm("ErrorCode")
	from := c.PostForm("From")
	body := c.PostForm("Body")

	// Two-way carriers post inbound replies to the same status URL.
	// A bare STOP/CANCEL/etc reply opts the sender out immediately,
	// independent of any MessageSid this callback also carries.
	if from != "" && IsStopReply(body) && h.OptOut != nil {
		_ = h.OptOut.Record(c.Request.Context(), tenantIDFromQuery(c), from)
	}

	if sid == "" {
		c.Status(http.StatusOK)
		return
	}

	rec, err := h.Outbox.GetByProviderSID(c.Request.Context(), sid)
	if err != nil {
		// Unknown SID: carriers may replay status callbacks after a row
		// has aged out of our retention window. 200 keeps the callback
		// from being retried forever.
		c.Status(http.StatusOK)
		return
	}

	category := categorizeProviderStatus(status, errorCode)
	switch category {
	case "":
		c.Status(http.StatusOK)
		return
	case CategoryOptOut, CategoryBlocked:
		if h.OptOut != nil {
			var payload confirmationPayload
			if err := json.Unmarshal(rec.Payload, &payload); err == nil {
				_ = h.OptOut.Record(c.Request.Context(), rec.TenantID.String(), payload.Phone)
			}
		}
		fallthrough
	default:
		_ = h.Outbox.MarkFailed(c.Request.Context(), rec.ID, status+": "+errorCode)
		if h.Bus != nil {
			h.Bus.Publish(c.Request.Context(), events.SMSOutboundFailed{
				BaseEvent:     events.NewBaseEvent(),
				TenantID:      rec.TenantID,
				OutboxID:      rec.ID,
				ErrorCode:     errorCode,
				ErrorCategory: string(category),
			})
		}
	}

	c.Status(http.StatusOK)
}

// tenantIDFromQuery reads the tenant a carrier webhook is registered
// for. The callback URL each tenant gives their carrier is scoped by
// path or query (e.g. /webhooks/sms/:tenant_id) since the carrier
// payload itself carries no tenant context.
func tenantIDFromQuery(c *gin.Context) string {
	if id := c.Param("tenant_id"); id != "" {
		return id
	}
	return c.Query("tenant_id")
}

// validSignature verifies an HMAC-SHA1 digest of the callback URL plus
// every form value, sorted by key, base64-encoded — the conventional
// carrier webhook signature shape named in spec.md §6.
func (h *WebhookHandler) validSignature(url string, form map[string][]string, signature string) bool {
	if signature == "" {
		return false
	}

	keys := make([]string, 0, len(form))
	for k := range form {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var buf strings.Builder
	buf.WriteString(url)
	for _, k := range keys {
		for _, v := range form[k] {
			buf.WriteString(k)
			buf.WriteString(v)
		}
	}

	mac := hmac.New(sha1.New, []byte(h.AuthToken))
	mac.Write([]byte(buf.String()))
	expected := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	return subtle.ConstantTimeCompare([]byte(expected), []byte(signature)) == 1
}
