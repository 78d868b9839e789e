package dialogue

import "testing"

func TestClassifyFencedConfirmation(t *testing.T) {
	raw := "```json\n{\"confirmation\":true,\"serviceName\":\"Corte\",\"date\":\"2024-06-01T10:00:00Z\",\"clientName\":\"Ana\"}\n```"

	outcome, payload := Classify(raw)

	if outcome != OutcomeConfirmed {
		t.Fatalf("expected Confirmed, got %v", outcome)
	}
	if payload.ServiceName != "Corte" || payload.ClientName != "Ana" {
		t.Errorf("unexpected payload: %+v", payload)
	}
	if payload.Date != "2024-06-01T10:00:00Z" {
		t.Errorf("date not preserved verbatim: %s", payload.Date)
	}
}

func TestClassifyBareConfirmation(t *testing.T) {
	raw := `{ "confirmation": true, "serviceName": "Barba Terapia", "date": "2024-06-01T11:00:00Z", "clientName": "João" }`

	outcome, payload := Classify(raw)

	if outcome != OutcomeConfirmed {
		t.Fatalf("expected Confirmed, got %v", outcome)
	}
	if payload.ServiceName != "Barba Terapia" || payload.ClientName != "João" {
		t.Errorf("unexpected payload: %+v", payload)
	}
}

func TestClassifyPlainQuestionIsContinue(t *testing.T) {
	outcome, payload := Classify("Qual horário você prefere?")

	if outcome != OutcomeContinue {
		t.Errorf("expected Continue, got %v", outcome)
	}
	if payload != nil {
		t.Errorf("expected nil payload, got %+v", payload)
	}
}

func TestClassifyObjectWithoutConfirmationIsContinue(t *testing.T) {
	outcome, payload := Classify(`{"serviceName":"Corte","date":"2024-06-01T10:00:00Z"}`)

	if outcome != OutcomeContinue || payload != nil {
		t.Errorf("expected Continue with nil payload, got %v %+v", outcome, payload)
	}
}

func TestClassifyConfirmationFalseIsContinue(t *testing.T) {
	outcome, _ := Classify(`{"confirmation":false,"serviceName":"Corte","date":"2024-06-01T10:00:00Z","clientName":"Ana"}`)

	if outcome != OutcomeContinue {
		t.Errorf("expected Continue, got %v", outcome)
	}
}

func TestClassifyMalformedObjectIsContinue(t *testing.T) {
	outcome, _ := Classify(`{"confirmation": true, "serviceName": "Corte"`)

	if outcome != OutcomeContinue {
		t.Errorf("expected Continue for unparseable text, got %v", outcome)
	}
}

func TestClassifyIncompletePayloadIsContinue(t *testing.T) {
	cases := map[string]string{
		"missing client": `{"confirmation":true,"serviceName":"Corte","date":"2024-06-01T10:00:00Z","clientName":""}`,
		"missing service": `{"confirmation":true,"serviceName":"","date":"2024-06-01T10:00:00Z","clientName":"Ana"}`,
		"bad date":       `{"confirmation":true,"serviceName":"Corte","date":"amanhã às dez","clientName":"Ana"}`,
	}
	for name, raw := range cases {
		if outcome, _ := Classify(raw); outcome != OutcomeContinue {
			t.Errorf("%s: expected Continue, got %v", name, outcome)
		}
	}
}

func TestClassifyProseWithBracesIsContinue(t *testing.T) {
	// Prose that merely mentions braces must not be parsed as a payload.
	outcome, _ := Classify(`Posso agendar {se você quiser} amanhã.`)

	if outcome != OutcomeContinue {
		t.Errorf("expected Continue, got %v", outcome)
	}
}

func TestClassifyFenceVariants(t *testing.T) {
	variants := []string{
		"```json{\"confirmation\":true,\"serviceName\":\"Corte\",\"date\":\"2024-06-01T10:00:00Z\",\"clientName\":\"Ana\"}```",
		"```\n{\"confirmation\":true,\"serviceName\":\"Corte\",\"date\":\"2024-06-01T10:00:00Z\",\"clientName\":\"Ana\"}\n```",
		"  {\"confirmation\":true,\"serviceName\":\"Corte\",\"date\":\"2024-06-01T10:00:00Z\",\"clientName\":\"Ana\"}  ",
	}
	for i, raw := range variants {
		outcome, payload := Classify(raw)
		if outcome != OutcomeConfirmed || payload == nil {
			t.Errorf("variant %d: expected Confirmed, got %v", i, outcome)
		}
	}
}
