package dialogue

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/agendei/agendei-server/internal/appointments"
	"github.com/agendei/agendei-server/internal/catalog"
	obsmetrics "github.com/agendei/agendei-server/internal/observability/metrics"
	"github.com/agendei/agendei-server/pkg/logging"
)

var dialogueTracer = otel.Tracer("agendei.internal.dialogue")

var (
	// ErrEmptyUtterance is returned when the submitted text is blank. Blank
	// turns are never sent to the gateway.
	ErrEmptyUtterance = errors.New("utterance is empty")

	// ErrSessionClosed is returned when a turn is submitted to a session that
	// already confirmed or failed.
	ErrSessionClosed = errors.New("session is no longer active")

	// ErrTurnInFlight is returned when a turn arrives while a prior gateway
	// call for the same session is still pending.
	ErrTurnInFlight = errors.New("a turn is already being processed for this session")
)

// Fixed user-facing messages. The gateway apology matches what the booking
// widget has always shown; wording changes break client tests.
const (
	gatewayFallbackMessage = "Desculpe, tive um problema técnico. Pode tentar novamente?"
	sinkFallbackMessage    = "Desculpe, não consegui registrar seu agendamento agora. Pode tentar novamente?"
)

// Sink records a finalized appointment. Implemented by the appointments
// service.
type Sink interface {
	Record(ctx context.Context, appt *appointments.Appointment, actingUserID string) error
}

// Engine drives booking dialogues toward a confirmed appointment, using the
// LLM gateway as its only source of conversational intelligence.
type Engine struct {
	llm       LLMClient
	sessions  SessionStore
	providers catalog.Repository
	sink      Sink
	logger    *logging.Logger
	metrics   *obsmetrics.DialogueMetrics

	temperature float32
	maxTokens   int32

	// One guard per session enforces at most one outstanding gateway call.
	guards sync.Map
}

// EngineOption customizes engine construction.
type EngineOption func(*Engine)

// WithTemperature overrides the gateway sampling temperature.
func WithTemperature(t float32) EngineOption {
	return func(e *Engine) { e.temperature = t }
}

// WithMaxTokens caps the gateway reply length. Zero means provider default.
func WithMaxTokens(n int32) EngineOption {
	return func(e *Engine) { e.maxTokens = n }
}

// WithMetrics attaches Prometheus metrics to the engine.
func WithMetrics(m *obsmetrics.DialogueMetrics) EngineOption {
	return func(e *Engine) { e.metrics = m }
}

// NewEngine constructs a dialogue engine.
func NewEngine(llm LLMClient, sessions SessionStore, providers catalog.Repository, sink Sink, logger *logging.Logger, opts ...EngineOption) *Engine {
	if llm == nil {
		panic("dialogue: llm client required")
	}
	if sessions == nil {
		panic("dialogue: session store required")
	}
	if providers == nil {
		panic("dialogue: provider repository required")
	}
	if sink == nil {
		panic("dialogue: appointment sink required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	e := &Engine{
		llm:         llm,
		sessions:    sessions,
		providers:   providers,
		sink:        sink,
		logger:      logger,
		temperature: 0.1,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Initiate opens a session for a provider. The greeting is templated locally;
// no gateway call is made, so the user always sees it immediately.
func (e *Engine) Initiate(ctx context.Context, provider *catalog.Provider) (*Session, error) {
	ctx, span := dialogueTracer.Start(ctx, "dialogue.initiate")
	defer span.End()
	span.SetAttributes(attribute.String("agendei.provider_id", provider.ID))

	now := time.Now().UTC()
	session := &Session{
		ID:         uuid.NewString(),
		ProviderID: provider.ID,
		History: []Turn{
			{Role: ChatRoleAssistant, Text: Greeting(provider.Name)},
		},
		State:     SessionActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := e.sessions.Save(ctx, session); err != nil {
		span.RecordError(err)
		return nil, err
	}
	e.metrics.ObserveSessionStarted()
	e.logger.Info("dialogue session started", "session_id", session.ID, "provider_id", provider.ID)
	return session, nil
}

// Session returns the current state of a session.
func (e *Engine) Session(ctx context.Context, id string) (*Session, error) {
	return e.sessions.Load(ctx, id)
}

// Close discards a session, for when the user abandons the dialogue.
func (e *Engine) Close(ctx context.Context, id string) error {
	e.guards.Delete(id)
	return e.sessions.Delete(ctx, id)
}

// SubmitUtterance processes one user turn. Gateway failures never surface as
// errors: the session stays active with an apology appended, and the user can
// simply try again. Errors are reserved for caller mistakes (blank input,
// unknown or closed session, concurrent turns) and storage faults.
//
// actingUserID identifies the booking user when known. It is passed through
// to the appointment sink untouched; the engine holds no ambient identity.
func (e *Engine) SubmitUtterance(ctx context.Context, sessionID, text, actingUserID string) (*Session, error) {
	ctx, span := dialogueTracer.Start(ctx, "dialogue.submit_utterance")
	defer span.End()
	span.SetAttributes(attribute.String("agendei.session_id", sessionID))

	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyUtterance
	}

	guard := e.guard(sessionID)
	if !guard.TryLock() {
		return nil, ErrTurnInFlight
	}
	defer guard.Unlock()

	session, err := e.sessions.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.State != SessionActive {
		return nil, ErrSessionClosed
	}

	provider, err := e.providers.GetByID(ctx, session.ProviderID)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("dialogue: load provider %s: %w", session.ProviderID, err)
	}

	session.History = append(session.History, Turn{Role: ChatRoleUser, Text: text})

	reply, err := e.complete(ctx, provider, session.History)
	if err != nil {
		// Every gateway failure collapses into the same recoverable path.
		e.logger.Warn("gateway call failed", "session_id", sessionID, "error", err)
		e.metrics.ObserveTurn("gateway_error")
		session.History = append(session.History, Turn{Role: ChatRoleAssistant, Text: gatewayFallbackMessage})
		if err := e.sessions.Save(ctx, session); err != nil {
			return nil, err
		}
		return session, nil
	}

	outcome, payload := Classify(reply)
	if outcome == OutcomeConfirmed {
		return e.confirm(ctx, session, provider, payload, actingUserID)
	}

	e.metrics.ObserveTurn("continue")
	session.History = append(session.History, Turn{Role: ChatRoleAssistant, Text: reply})
	if err := e.sessions.Save(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

func (e *Engine) complete(ctx context.Context, provider *catalog.Provider, history []Turn) (string, error) {
	messages := make([]ChatMessage, 0, len(history))
	for _, turn := range history {
		messages = append(messages, ChatMessage{Role: turn.Role, Content: turn.Text})
	}
	req := LLMRequest{
		System:      []string{BuildSystemInstruction(provider)},
		Messages:    messages,
		Temperature: e.temperature,
		MaxTokens:   e.maxTokens,
	}

	start := time.Now()
	resp, err := e.llm.Complete(ctx, req)
	e.metrics.ObserveGatewayLatency(time.Since(start).Seconds())
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(resp.Text) == "" {
		return "", errors.New("dialogue: gateway returned empty reply")
	}
	return resp.Text, nil
}

func (e *Engine) confirm(ctx context.Context, session *Session, provider *catalog.Provider, payload *ConfirmationPayload, actingUserID string) (*Session, error) {
	if len(provider.Services) == 0 {
		// Nothing bookable; treat like a gateway fault so the user can retry.
		e.logger.Error("confirmation for provider with no services", "session_id", session.ID, "provider_id", provider.ID)
		e.metrics.ObserveTurn("gateway_error")
		session.History = append(session.History, Turn{Role: ChatRoleAssistant, Text: gatewayFallbackMessage})
		if err := e.sessions.Save(ctx, session); err != nil {
			return nil, err
		}
		return session, nil
	}

	service, ok := provider.ServiceByName(payload.ServiceName)
	if !ok {
		// The model named a service the provider does not list. Booking the
		// first listed service keeps the flow moving, but it books something
		// the user may not have asked for, so it is logged loudly.
		service = provider.Services[0]
		e.logger.Warn("confirmed service not in provider catalog, falling back to first listed service",
			"session_id", session.ID,
			"requested_service", payload.ServiceName,
			"resolved_service", service.Name,
		)
	}

	appt := &appointments.Appointment{
		ID:           uuid.NewString(),
		ProviderID:   provider.ID,
		ProviderName: provider.Name,
		ServiceName:  service.Name,
		ClientName:   payload.ClientName,
		StartTime:    payload.Date,
		Status:       appointments.StatusConfirmed,
		Price:        service.Price,
	}

	if err := e.sink.Record(ctx, appt, actingUserID); err != nil {
		// The booking was not durably recorded, so the session must not claim
		// success; it stays active and the user can confirm again.
		e.logger.Error("appointment sink write failed", "session_id", session.ID, "error", err)
		e.metrics.ObserveTurn("sink_error")
		session.History = append(session.History, Turn{Role: ChatRoleAssistant, Text: sinkFallbackMessage})
		if err := e.sessions.Save(ctx, session); err != nil {
			return nil, err
		}
		return session, nil
	}

	session.History = append(session.History, Turn{Role: ChatRoleAssistant, Text: confirmationMessage(service.Name, payload.Date)})
	session.State = SessionConfirmed
	if err := e.sessions.Save(ctx, session); err != nil {
		return nil, err
	}

	e.metrics.ObserveTurn("confirmed")
	e.metrics.ObserveConfirmation()
	e.guards.Delete(session.ID)
	e.logger.Info("dialogue session confirmed",
		"session_id", session.ID,
		"appointment_id", appt.ID,
		"service", appt.ServiceName,
		"start_time", appt.StartTime,
	)
	return session, nil
}

func (e *Engine) guard(sessionID string) *sync.Mutex {
	v, _ := e.guards.LoadOrStore(sessionID, &sync.Mutex{})
	return v.(*sync.Mutex)
}

func confirmationMessage(serviceName, isoDate string) string {
	t, err := time.Parse(time.RFC3339, isoDate)
	if err != nil {
		// Classification validated the date; this is unreachable in practice.
		return fmt.Sprintf("Agendamento confirmado para %s. Te aguardo!", serviceName)
	}
	return fmt.Sprintf("Agendamento confirmado para %s no dia %s às %s. Te aguardo!",
		serviceName, t.Format("02/01/2006"), t.Format("15:04"))
}
