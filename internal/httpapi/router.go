package httpapi

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/remivoice/remi/internal/eventlog"
	"github.com/remivoice/remi/internal/llm"
	"github.com/remivoice/remi/internal/session"
	"github.com/remivoice/remi/internal/store"
)

type RouterConfig struct {
	// Voice AI providers
	DeepgramAPIKey string
	OpenAIAPIKey   string

	// STT settings
	STTLanguage   string // e.g., "en"
	STTModel      string // e.g., "nova-3"
	STTSampleRate int    // browser capture rate, 16000

	// JWT Authentication
	JWTSecret string
	JWTExpiry time.Duration

	// Device provisioning (shared key presented on /auth/token)
	ProvisioningKey string
}

type Router struct {
	cfg      RouterConfig
	logger   *log.Logger
	store    *store.Store
	eventLog *eventlog.Logger
	events   session.EventStore // nil when the calendar mirror is unconfigured
	llm      *llm.OpenAIClient
	mux      *http.ServeMux
}

func NewRouter(cfg RouterConfig, logger *log.Logger, s *store.Store, eventLog *eventlog.Logger, events session.EventStore, llmClient *llm.OpenAIClient) http.Handler {
	r := &Router{
		cfg:      cfg,
		logger:   logger,
		store:    s,
		eventLog: eventLog,
		events:   events,
		llm:      llmClient,
		mux:      http.NewServeMux(),
	}

	r.routes()
	return withSentryRecovery(withCORS(r.mux))
}

func (r *Router) routes() {
	// Health check
	r.mux.HandleFunc("GET /healthz", r.handleHealthz)

	// Device provisioning (gated by shared key, not JWT)
	r.mux.HandleFunc("POST /auth/token", r.handleIssueToken)

	// Assistant session (JWT passed as query param, browsers cannot set
	// headers on WebSocket upgrades)
	r.mux.HandleFunc("GET /assistant/ws", r.handleAssistantWS)

	// Reminder CRUD (protected)
	r.mux.HandleFunc("GET /api/reminders", r.withAuth(r.handleListReminders))
	r.mux.HandleFunc("POST /api/reminders", r.withAuth(r.handleCreateReminder))
	r.mux.HandleFunc("PATCH /api/reminders/{id}", r.withAuth(r.handleUpdateReminder))
	r.mux.HandleFunc("DELETE /api/reminders/{id}", r.withAuth(r.handleDeleteReminder))

	// Calendar mirror CRUD (protected, 503 when unconfigured)
	r.mux.HandleFunc("GET /api/events", r.withAuth(r.handleListEvents))
	r.mux.HandleFunc("POST /api/events", r.withAuth(r.handleCreateEvent))
	r.mux.HandleFunc("PATCH /api/events/{id}", r.withAuth(r.handleUpdateEvent))
	r.mux.HandleFunc("DELETE /api/events/{id}", r.withAuth(r.handleDeleteEvent))

	// One-shot assistant query (protected)
	r.mux.HandleFunc("POST /api/assistant/query", r.withAuth(r.handleAssistantQuery))

	// Session event log (protected, for debugging)
	r.mux.HandleFunc("GET /api/sessions/{sessionId}/events", r.withAuth(r.handleGetSessionEvents))

	// Push notifications (protected)
	r.mux.HandleFunc("POST /api/push/register", r.withAuth(r.handlePushRegister))
	r.mux.HandleFunc("POST /api/push/unregister", r.withAuth(r.handlePushUnregister))
}

func (r *Router) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func withSentryRecovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				hub := sentry.CurrentHub().Clone()
				hub.Scope().SetRequest(req)
				hub.RecoverWithContext(req.Context(), err)
				hub.Flush(2 * time.Second)
				http.Error(w, `{"error": "internal server error"}`, http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, req)
	})
}

func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,PATCH,DELETE,OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type,Authorization,X-Provisioning-Key")
		if req.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, req)
	})
}

// captureError sends an error to Sentry with request context
func captureError(req *http.Request, err error, msg string) {
	sentry.WithScope(func(scope *sentry.Scope) {
		scope.SetRequest(req)
		scope.SetExtra("message", msg)
		sentry.CaptureException(err)
	})
}
