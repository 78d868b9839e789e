package dialogue

import (
	"strings"
	"testing"

	"github.com/agendei/agendei-server/internal/catalog"
)

func promptProvider() *catalog.Provider {
	return &catalog.Provider{
		ID:   "p1",
		Name: "Barbearia Vintage & Estilo",
		Services: []catalog.Service{
			{Name: "Corte de Cabelo", Price: 50},
			{Name: "Barba Terapia", Price: 40},
		},
		AvailableSlots: []string{"2024-06-01T10:00:00Z", "2024-06-01T11:00:00Z"},
	}
}

func TestBuildSystemInstructionEnumeratesCatalog(t *testing.T) {
	instruction := BuildSystemInstruction(promptProvider())

	if !strings.Contains(instruction, "Barbearia Vintage & Estilo") {
		t.Error("instruction missing provider name")
	}
	if !strings.Contains(instruction, "Corte de Cabelo (R$50), Barba Terapia (R$40)") {
		t.Errorf("instruction missing service enumeration:\n%s", instruction)
	}
	if !strings.Contains(instruction, "2024-06-01T10:00:00Z, 2024-06-01T11:00:00Z") {
		t.Errorf("instruction missing slot enumeration:\n%s", instruction)
	}
	if !strings.Contains(instruction, `"confirmation": true`) {
		t.Error("instruction missing confirmation contract")
	}
}

func TestBuildSystemInstructionIsDeterministic(t *testing.T) {
	p := promptProvider()
	if BuildSystemInstruction(p) != BuildSystemInstruction(p) {
		t.Error("instruction must be identical across turns")
	}
}

func TestFormatPriceDropsTrailingZeros(t *testing.T) {
	cases := map[float64]string{
		50:    "50",
		40.5:  "40.5",
		99.99: "99.99",
	}
	for in, want := range cases {
		if got := formatPrice(in); got != want {
			t.Errorf("formatPrice(%v) = %q, want %q", in, got, want)
		}
	}
}

func TestGreetingNamesProvider(t *testing.T) {
	g := Greeting("Barbearia Vintage & Estilo")
	if !strings.Contains(g, "Barbearia Vintage & Estilo") {
		t.Errorf("greeting does not name provider: %s", g)
	}
}
