package dialogue

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/agendei/agendei-server/internal/appointments"
	"github.com/agendei/agendei-server/internal/catalog"
)

const confirmationReply = "```json\n{\"confirmation\":true,\"serviceName\":\"Corte\",\"date\":\"2024-06-01T10:00:00Z\",\"clientName\":\"Ana\"}\n```"

type scriptedLLM struct {
	mu      sync.Mutex
	replies []string
	err     error
	calls   int
	lastReq LLMRequest
	block   chan struct{} // when non-nil, Complete waits until closed
}

func (s *scriptedLLM) Complete(ctx context.Context, req LLMRequest) (LLMResponse, error) {
	s.mu.Lock()
	s.calls++
	s.lastReq = req
	block := s.block
	s.mu.Unlock()

	if block != nil {
		<-block
	}
	if s.err != nil {
		return LLMResponse{}, s.err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.replies) == 0 {
		return LLMResponse{Text: "Como posso ajudar?"}, nil
	}
	reply := s.replies[0]
	s.replies = s.replies[1:]
	return LLMResponse{Text: reply}, nil
}

func (s *scriptedLLM) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

type recordingSink struct {
	mu      sync.Mutex
	records []*appointments.Appointment
	userIDs []string
	err     error
}

func (s *recordingSink) Record(ctx context.Context, appt *appointments.Appointment, actingUserID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.records = append(s.records, appt)
	s.userIDs = append(s.userIDs, actingUserID)
	return nil
}

func engineProvider() *catalog.Provider {
	return &catalog.Provider{
		ID:   "p1",
		Name: "Barbearia Vintage",
		Slug: "barbearia-vintage",
		Services: []catalog.Service{
			{ID: "s1", Name: "Corte", Price: 50, DurationMinutes: 45},
			{ID: "s2", Name: "Barba Terapia", Price: 40, DurationMinutes: 30},
		},
		AvailableSlots: []string{"2024-06-01T10:00:00Z", "2024-06-01T11:00:00Z"},
	}
}

func newEngineFixture(t *testing.T, llm *scriptedLLM, sink *recordingSink, providers ...*catalog.Provider) (*Engine, *catalog.Provider) {
	t.Helper()
	repo := catalog.NewInMemoryRepository()
	if len(providers) == 0 {
		providers = []*catalog.Provider{engineProvider()}
	}
	for _, p := range providers {
		repo.Put(p)
	}
	engine := NewEngine(llm, NewInMemorySessionStore(time.Hour), repo, sink, nil)
	return engine, providers[0]
}

func TestInitiateOpensActiveSessionWithGreeting(t *testing.T) {
	llm := &scriptedLLM{}
	engine, provider := newEngineFixture(t, llm, &recordingSink{})

	session, err := engine.Initiate(context.Background(), provider)
	if err != nil {
		t.Fatalf("Initiate: %v", err)
	}

	if session.State != SessionActive {
		t.Errorf("expected active session, got %s", session.State)
	}
	if len(session.History) != 1 {
		t.Fatalf("expected exactly one opening turn, got %d", len(session.History))
	}
	opening := session.History[0]
	if opening.Role != ChatRoleAssistant || !strings.Contains(opening.Text, provider.Name) {
		t.Errorf("opening turn must be an assistant greeting naming the provider: %+v", opening)
	}
	if llm.callCount() != 0 {
		t.Errorf("initiate must not call the gateway, got %d calls", llm.callCount())
	}
}

func TestSubmitAppendsHistoryAndContinues(t *testing.T) {
	llm := &scriptedLLM{replies: []string{"Qual horário você prefere?"}}
	engine, provider := newEngineFixture(t, llm, &recordingSink{})
	session, _ := engine.Initiate(context.Background(), provider)
	greeting := session.History[0].Text

	updated, err := engine.SubmitUtterance(context.Background(), session.ID, "Quero cortar o cabelo", "")
	if err != nil {
		t.Fatalf("SubmitUtterance: %v", err)
	}

	if updated.State != SessionActive {
		t.Errorf("expected session to remain active, got %s", updated.State)
	}
	if len(updated.History) != 3 {
		t.Fatalf("expected 3 turns, got %d", len(updated.History))
	}
	// Prior entries preserved verbatim at their original index.
	if updated.History[0].Text != greeting {
		t.Error("greeting mutated")
	}
	if updated.History[1].Role != ChatRoleUser || updated.History[1].Text != "Quero cortar o cabelo" {
		t.Errorf("user turn wrong: %+v", updated.History[1])
	}
	if updated.History[2].Role != ChatRoleAssistant || updated.History[2].Text != "Qual horário você prefere?" {
		t.Errorf("assistant reply must be displayed verbatim: %+v", updated.History[2])
	}
}

func TestSubmitSendsSystemInstructionAndFullHistory(t *testing.T) {
	llm := &scriptedLLM{replies: []string{"Perfeito! Qual seu nome?"}}
	engine, provider := newEngineFixture(t, llm, &recordingSink{})
	session, _ := engine.Initiate(context.Background(), provider)

	if _, err := engine.SubmitUtterance(context.Background(), session.ID, "Corte às 10h", ""); err != nil {
		t.Fatalf("SubmitUtterance: %v", err)
	}

	req := llm.lastReq
	if len(req.System) != 1 || !strings.Contains(req.System[0], "Corte (R$50)") {
		t.Errorf("system instruction missing service list: %+v", req.System)
	}
	if len(req.Messages) != 2 {
		t.Fatalf("expected greeting + user turn in request, got %d messages", len(req.Messages))
	}
	if req.Messages[1].Role != ChatRoleUser || req.Messages[1].Content != "Corte às 10h" {
		t.Errorf("last message wrong: %+v", req.Messages[1])
	}
	if req.Temperature != 0.1 {
		t.Errorf("expected default temperature 0.1, got %v", req.Temperature)
	}
}

func TestBlankUtteranceIsRejectedWithoutGatewayCall(t *testing.T) {
	llm := &scriptedLLM{}
	engine, provider := newEngineFixture(t, llm, &recordingSink{})
	session, _ := engine.Initiate(context.Background(), provider)

	for _, blank := range []string{"", "   ", "\n\t"} {
		if _, err := engine.SubmitUtterance(context.Background(), session.ID, blank, ""); !errors.Is(err, ErrEmptyUtterance) {
			t.Errorf("expected ErrEmptyUtterance for %q, got %v", blank, err)
		}
	}
	if llm.callCount() != 0 {
		t.Errorf("blank turns must never reach the gateway, got %d calls", llm.callCount())
	}

	loaded, _ := engine.Session(context.Background(), session.ID)
	if len(loaded.History) != 1 {
		t.Errorf("blank turns must not be appended, history has %d turns", len(loaded.History))
	}
}

func TestConfirmationBuildsAppointment(t *testing.T) {
	llm := &scriptedLLM{replies: []string{confirmationReply}}
	sink := &recordingSink{}
	engine, provider := newEngineFixture(t, llm, sink)
	session, _ := engine.Initiate(context.Background(), provider)

	updated, err := engine.SubmitUtterance(context.Background(), session.ID, "Ana, Corte às 10h", "user-42")
	if err != nil {
		t.Fatalf("SubmitUtterance: %v", err)
	}

	if updated.State != SessionConfirmed {
		t.Fatalf("expected confirmed session, got %s", updated.State)
	}
	if len(sink.records) != 1 {
		t.Fatalf("expected exactly one sink invocation, got %d", len(sink.records))
	}
	appt := sink.records[0]
	if appt.ServiceName != "Corte" || appt.ClientName != "Ana" || appt.Price != 50 {
		t.Errorf("unexpected appointment: %+v", appt)
	}
	if appt.StartTime != "2024-06-01T10:00:00Z" {
		t.Errorf("start time must be the payload date verbatim: %s", appt.StartTime)
	}
	if appt.Status != appointments.StatusConfirmed {
		t.Errorf("expected confirmed status, got %s", appt.Status)
	}
	if appt.ID == "" {
		t.Error("appointment must get a fresh identifier")
	}
	if sink.userIDs[0] != "user-42" {
		t.Errorf("acting user must be passed through, got %q", sink.userIDs[0])
	}

	last := updated.History[len(updated.History)-1]
	if last.Role != ChatRoleAssistant || !strings.Contains(last.Text, "Agendamento confirmado") {
		t.Errorf("expected synthesized confirmation message, got %+v", last)
	}
}

func TestConfirmedSessionRejectsFurtherTurns(t *testing.T) {
	llm := &scriptedLLM{replies: []string{confirmationReply}}
	engine, provider := newEngineFixture(t, llm, &recordingSink{})
	session, _ := engine.Initiate(context.Background(), provider)

	if _, err := engine.SubmitUtterance(context.Background(), session.ID, "Ana, Corte às 10h", ""); err != nil {
		t.Fatalf("confirming turn: %v", err)
	}
	callsAfterConfirm := llm.callCount()

	if _, err := engine.SubmitUtterance(context.Background(), session.ID, "Na verdade, quero mudar", ""); !errors.Is(err, ErrSessionClosed) {
		t.Errorf("expected ErrSessionClosed, got %v", err)
	}
	if llm.callCount() != callsAfterConfirm {
		t.Error("confirmed sessions must not issue gateway calls")
	}
}

func TestUnknownServiceFallsBackToFirstListed(t *testing.T) {
	provider := &catalog.Provider{
		ID:   "p2",
		Name: "Studio Solo",
		Slug: "studio-solo",
		Services: []catalog.Service{
			{ID: "s1", Name: "Corte", Price: 50},
		},
		AvailableSlots: []string{"2024-06-01T10:00:00Z"},
	}
	llm := &scriptedLLM{replies: []string{`{"confirmation":true,"serviceName":"Manicure","date":"2024-06-01T10:00:00Z","clientName":"Ana"}`}}
	sink := &recordingSink{}
	engine, _ := newEngineFixture(t, llm, sink, provider)
	session, _ := engine.Initiate(context.Background(), provider)

	updated, err := engine.SubmitUtterance(context.Background(), session.ID, "Quero manicure", "")
	if err != nil {
		t.Fatalf("SubmitUtterance: %v", err)
	}

	if updated.State != SessionConfirmed {
		t.Fatalf("fallback resolution must still confirm, got %s", updated.State)
	}
	if len(sink.records) != 1 || sink.records[0].ServiceName != "Corte" {
		t.Errorf("expected first-service fallback to Corte, got %+v", sink.records)
	}
}

func TestGatewayErrorKeepsSessionActive(t *testing.T) {
	llm := &scriptedLLM{err: errors.New("connection timed out")}
	engine, provider := newEngineFixture(t, llm, &recordingSink{})
	session, _ := engine.Initiate(context.Background(), provider)

	updated, err := engine.SubmitUtterance(context.Background(), session.ID, "Quero cortar o cabelo", "")
	if err != nil {
		t.Fatalf("gateway failure must not surface as an error: %v", err)
	}

	if updated.State != SessionActive {
		t.Errorf("session must stay active after a gateway failure, got %s", updated.State)
	}
	if len(updated.History) != 3 {
		t.Fatalf("expected greeting + user turn + fallback, got %d turns", len(updated.History))
	}
	if updated.History[1].Text != "Quero cortar o cabelo" {
		t.Error("user turn must be preserved in history")
	}
	if updated.History[2].Text != gatewayFallbackMessage {
		t.Errorf("expected exactly the fallback message, got %q", updated.History[2].Text)
	}

	// The user can retry on the next utterance.
	llm.err = nil
	llm.replies = []string{"Qual horário você prefere?"}
	retried, err := engine.SubmitUtterance(context.Background(), session.ID, "Tentando de novo", "")
	if err != nil {
		t.Fatalf("retry: %v", err)
	}
	if retried.State != SessionActive || len(retried.History) != 5 {
		t.Errorf("retry did not continue the session: state=%s turns=%d", retried.State, len(retried.History))
	}
}

func TestSinkFailureKeepsSessionActive(t *testing.T) {
	llm := &scriptedLLM{replies: []string{confirmationReply}}
	sink := &recordingSink{err: errors.New("database unavailable")}
	engine, provider := newEngineFixture(t, llm, sink)
	session, _ := engine.Initiate(context.Background(), provider)

	updated, err := engine.SubmitUtterance(context.Background(), session.ID, "Ana, Corte às 10h", "")
	if err != nil {
		t.Fatalf("sink failure must not surface as an error: %v", err)
	}

	if updated.State != SessionActive {
		t.Errorf("session must not claim success when the write failed, got %s", updated.State)
	}
	last := updated.History[len(updated.History)-1]
	if last.Text != sinkFallbackMessage {
		t.Errorf("expected sink fallback message, got %q", last.Text)
	}
}

func TestSubmitUnknownSession(t *testing.T) {
	engine, _ := newEngineFixture(t, &scriptedLLM{}, &recordingSink{})

	if _, err := engine.SubmitUtterance(context.Background(), "ghost", "oi", ""); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestConcurrentTurnIsRejected(t *testing.T) {
	block := make(chan struct{})
	llm := &scriptedLLM{replies: []string{"Qual horário?"}, block: block}
	engine, provider := newEngineFixture(t, llm, &recordingSink{})
	session, _ := engine.Initiate(context.Background(), provider)

	firstDone := make(chan error, 1)
	go func() {
		_, err := engine.SubmitUtterance(context.Background(), session.ID, "Primeira", "")
		firstDone <- err
	}()

	// Wait for the first turn to reach the gateway.
	deadline := time.After(2 * time.Second)
	for llm.callCount() == 0 {
		select {
		case <-deadline:
			t.Fatal("first turn never reached the gateway")
		case <-time.After(5 * time.Millisecond):
		}
	}

	if _, err := engine.SubmitUtterance(context.Background(), session.ID, "Segunda", ""); !errors.Is(err, ErrTurnInFlight) {
		t.Errorf("expected ErrTurnInFlight, got %v", err)
	}

	close(block)
	if err := <-firstDone; err != nil {
		t.Fatalf("first turn failed: %v", err)
	}
}

func TestEndToEndBookingScenario(t *testing.T) {
	llm := &scriptedLLM{replies: []string{
		"Claro! Qual horário você prefere, e qual seu nome?",
		confirmationReply,
	}}
	sink := &recordingSink{}
	engine, provider := newEngineFixture(t, llm, sink)

	session, err := engine.Initiate(context.Background(), provider)
	if err != nil {
		t.Fatalf("Initiate: %v", err)
	}

	if _, err := engine.SubmitUtterance(context.Background(), session.ID, "Quero cortar o cabelo", ""); err != nil {
		t.Fatalf("first turn: %v", err)
	}
	final, err := engine.SubmitUtterance(context.Background(), session.ID, "Ana, às 10h", "")
	if err != nil {
		t.Fatalf("second turn: %v", err)
	}

	if final.State != SessionConfirmed {
		t.Fatalf("expected confirmed session, got %s", final.State)
	}
	if len(sink.records) != 1 {
		t.Fatalf("expected exactly one appointment, got %d", len(sink.records))
	}
	appt := sink.records[0]
	if appt.ClientName != "Ana" || appt.ServiceName != "Corte" || appt.Price != 50 {
		t.Errorf("unexpected appointment: %+v", appt)
	}
}
