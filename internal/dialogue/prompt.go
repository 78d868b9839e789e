package dialogue

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/agendei/agendei-server/internal/catalog"
)

// BuildSystemInstruction renders the booking instruction for a provider. The
// output is deterministic for a given provider so the model sees an identical
// instruction on every turn of a session.
func BuildSystemInstruction(p *catalog.Provider) string {
	services := make([]string, 0, len(p.Services))
	for _, s := range p.Services {
		services = append(services, fmt.Sprintf("%s (R$%s)", s.Name, formatPrice(s.Price)))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Você é um assistente virtual da %s.\n", p.Name)
	b.WriteString("Seu objetivo é agendar serviços.\n\n")
	fmt.Fprintf(&b, "Serviços: %s\n", strings.Join(services, ", "))
	fmt.Fprintf(&b, "Horários Disponíveis (ISO): %s\n\n", strings.Join(p.AvailableSlots, ", "))
	b.WriteString(`Regras:
1. Seja direto e simpático.
2. Pergunte qual serviço e horário o cliente quer.
3. Pergunte o nome do cliente.
4. Quando tiver tudo (Serviço, Horário, Nome), responda APENAS com um JSON neste formato, sem crase ou markdown:
{ "confirmation": true, "serviceName": "...", "date": "ISO_DO_HORARIO", "clientName": "..." }

Caso contrário, continue a conversa normalmente.`)
	return b.String()
}

// Greeting is the locally templated opening message. No gateway call is made
// to produce it.
func Greeting(providerName string) string {
	return fmt.Sprintf("Olá! 👋 Sou o assistente da %s.\n\nQual serviço você gostaria de agendar hoje?", providerName)
}

func formatPrice(price float64) string {
	return strconv.FormatFloat(price, 'f', -1, 64)
}
