package notification

import (
	"fmt"
	"html/template"
	"strings"

	"github.com/opinia/opinia/pkg/billing"
	"github.com/opinia/opinia/pkg/email"
)

// Customer-facing emails are in Spanish, matching the product's market.
const (
	subjectCreated  = "🎟️ Suscripción completada"
	subjectUpdated  = "🎟️ Suscripción actualizada"
	subjectCanceled = "❌ Suscripción cancelada"
)

type messageData struct {
	Organization *billing.Organization
	PlanName     string
	Amount       string
}

var bodyTemplate = template.Must(template.New("lifecycle").Parse(`<html>
<body style="font-family: Arial, sans-serif; background-color: #f9f9f9; padding: 20px;">
	<div style="max-width: 500px; margin: auto; background: white; padding: 20px; border-radius: 8px; border: 1px solid #ddd;">
		<h2 style="text-align: center; color: {{.TitleColor}};">{{.Title}}</h2>
		<p style="text-align: center; color: #555;">{{.Intro}}</p>

		<h3 style="border-bottom: 1px solid #ccc; padding-bottom: 5px;">📌 Datos de la Organización</h3>
		<p><strong>Nombre:</strong> {{.Data.Organization.Name}}</p>
		<p><strong>Estado:</strong> {{.Data.Organization.State}}</p>
		<p><strong>Teléfono:</strong> {{.Data.Organization.PhoneNumber}}</p>
		<p><strong>Portal:</strong> <code>{{.Data.Organization.Portal}}</code></p>

		<h3 style="border-bottom: 1px solid #ccc; padding-bottom: 5px; margin-top: 20px;">📄 Datos de la Suscripción</h3>
		<p><strong>Monto:</strong> {{.Data.Amount}}</p>
		<p><strong>Plan:</strong> {{.Data.PlanName}}</p>

		<p style="font-size: 12px; color: #888; margin-top: 8px;">{{.Footer}}</p>
	</div>
</body>
</html>`))

type bodyData struct {
	Title      string
	TitleColor string
	Intro      string
	Footer     string
	Data       messageData
}

func composeMessage(kind billing.NotificationKind, org *billing.Organization, sub *billing.Subscription, planName string) (email.SendEmailParams, error) {
	data := messageData{
		Organization: org,
		PlanName:     planName,
		Amount:       formatAmount(sub.UnitAmount),
	}

	var params email.SendEmailParams
	var body bodyData
	switch kind {
	case billing.NotificationCreated:
		params.Subject = subjectCreated
		params.Tag = "subscription-created"
		body = bodyData{
			Title:      "✅ ¡Suscripción completada!",
			TitleColor: "#2d8659",
			Intro:      "Gracias por confiar en nosotros. Aquí están los datos de tu suscripción:",
			Footer:     "⏳ Nota: La activación de tu organización puede tardar unos minutos. Si no puedes acceder de inmediato, inténtalo de nuevo más tarde.",
			Data:       data,
		}
	case billing.NotificationUpdated:
		params.Subject = subjectUpdated
		params.Tag = "subscription-updated"
		body = bodyData{
			Title:      "✅ ¡Suscripción actualizada!",
			TitleColor: "#2d8659",
			Intro:      "Gracias por confiar en nosotros. Aquí están los datos de tu suscripción actualizada:",
			Footer:     "⏳ Nota: Los cambios pueden tardar unos minutos en reflejarse en tu portal.",
			Data:       data,
		}
	case billing.NotificationCanceled:
		params.Subject = subjectCanceled
		params.Tag = "subscription-canceled"
		body = bodyData{
			Title:      "❌ Suscripción cancelada",
			TitleColor: "#c0392b",
			Intro:      "Te informamos que tu suscripción ha sido cancelada. Aquí están los detalles:",
			Footer:     "Si crees que esta cancelación fue un error o deseas reactivar tu suscripción, contáctanos.",
			Data:       data,
		}
	default:
		return email.SendEmailParams{}, fmt.Errorf("notification: unknown kind %q", kind)
	}

	var sb strings.Builder
	if err := bodyTemplate.Execute(&sb, body); err != nil {
		return email.SendEmailParams{}, err
	}
	params.BodyHTML = sb.String()
	return params, nil
}

// formatAmount renders the smallest-unit amount as a currency string,
// e.g. 2900 USD -> "$29.00 USD".
func formatAmount(m billing.Money) string {
	currency := strings.ToUpper(m.Currency)
	if currency == "" {
		currency = "USD"
	}
	return fmt.Sprintf("$%d.%02d %s", m.Amount/100, m.Amount%100, currency)
}
