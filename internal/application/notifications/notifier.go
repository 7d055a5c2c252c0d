package notifications

import (
	"context"
	"fmt"

	"somosrentable-backend/internal/domain"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// Notifier renders funnel emails and hands them to a Mailer. Delivery failures
// are logged and never surface to callers; a nil Notifier or Mailer is a no-op.
type Notifier struct {
	Mailer        Mailer
	DB            *gorm.DB
	PublicBaseURL string
}

func (n *Notifier) deliver(ctx context.Context, kind, toEmail, toName, subject, content string) {
	if n == nil || n.Mailer == nil || toEmail == "" {
		return
	}
	if err := n.Mailer.Send(ctx, toEmail, toName, subject, Layout(content)); err != nil {
		log.Warn().Err(err).Str("kind", kind).Str("to", toEmail).Msg("email delivery failed")
		return
	}
	log.Debug().Str("kind", kind).Str("to", toEmail).Msg("email sent")
}

func (n *Notifier) user(ctx context.Context, id uuid.UUID) *domain.User {
	if n.DB == nil {
		return nil
	}
	var u domain.User
	if err := n.DB.WithContext(ctx).First(&u, "id = ?", id).Error; err != nil {
		log.Warn().Err(err).Str("user_id", id.String()).Msg("notification recipient lookup failed")
		return nil
	}
	return &u
}

// ReservationCreated sends the holder the link to resume their reservation.
func (n *Notifier) ReservationCreated(ctx context.Context, r *domain.Reservation, project *domain.Project) {
	if n == nil {
		return
	}
	link := fmt.Sprintf("%s/reserva/%s", n.PublicBaseURL, r.AccessToken)
	name := r.Name
	if name == "" {
		name = "inversionista"
	}
	content := fmt.Sprintf(`
    <h1>Tu reserva en %s está lista</h1>
    <p>Hola %s,</p>
    <p>Reservamos <strong>$%s</strong> para ti en <strong>%s</strong>. La reserva es válida hasta el %s.</p>
    <p>Para completar tu inversión crea tu cuenta y verifica tu identidad desde el siguiente enlace:</p>
    <center><a href="%s" class="sr-button">Continuar mi inversión</a></center>
`, EscapeHTML(project.Title), EscapeHTML(name), r.Amount.StringFixed(2), EscapeHTML(project.Title),
		r.ExpiresAt.Format("02/01/2006"), link)
	n.deliver(ctx, "reservation_created", r.Email, r.Name, "Tu reserva en "+project.Title, content)
}

// KYCDecided tells the applicant the outcome of their identity check.
func (n *Notifier) KYCDecided(ctx context.Context, sub *domain.KYCSubmission) {
	if n == nil {
		return
	}
	u := n.user(ctx, sub.UserID)
	if u == nil {
		return
	}
	var subject, content string
	if sub.Status == domain.KYCApproved {
		subject = "Tu identidad fue verificada"
		content = fmt.Sprintf(`
    <h1>¡Verificación aprobada!</h1>
    <p>Hola %s, ya puedes invertir en los proyectos abiertos.</p>
    <center><a href="%s/proyectos" class="sr-button">Ver proyectos</a></center>
`, EscapeHTML(u.Fullname), n.PublicBaseURL)
	} else {
		subject = "No pudimos verificar tu identidad"
		content = fmt.Sprintf(`
    <h1>Verificación rechazada</h1>
    <p>Hola %s, tu verificación no fue aprobada.</p>
    <p>Motivo: %s</p>
    <p>Puedes enviar una nueva solicitud desde tu panel.</p>
`, EscapeHTML(u.Fullname), EscapeHTML(sub.RejectionReason))
	}
	n.deliver(ctx, "kyc_"+sub.Status, u.Email, u.Fullname, subject, content)
}

// PaymentReviewed tells the investor whether their transfer was accepted.
func (n *Notifier) PaymentReviewed(ctx context.Context, inv *domain.Investment, proof *domain.PaymentProof) {
	if n == nil {
		return
	}
	u := n.user(ctx, inv.UserID)
	if u == nil {
		return
	}
	var subject, content string
	if proof.Status == domain.ProofApproved {
		subject = "Tu inversión está activa"
		content = fmt.Sprintf(`
    <h1>Pago aprobado</h1>
    <p>Hola %s, confirmamos tu pago de <strong>$%s</strong>. Tu inversión ya está activa.</p>
    <p>Retorno esperado: <strong>$%s</strong>.</p>
`, EscapeHTML(u.Fullname), proof.Amount.StringFixed(2), inv.ExpectedReturn.StringFixed(2))
	} else {
		subject = "Revisa tu comprobante de pago"
		content = fmt.Sprintf(`
    <h1>Comprobante rechazado</h1>
    <p>Hola %s, no pudimos validar tu comprobante.</p>
    <p>Motivo: %s</p>
    <p>Puedes subir un nuevo comprobante desde tu panel.</p>
`, EscapeHTML(u.Fullname), EscapeHTML(proof.RejectionReason))
	}
	n.deliver(ctx, "payment_"+proof.Status, u.Email, u.Fullname, subject, content)
}

// Welcome greets a newly registered investor.
func (n *Notifier) Welcome(ctx context.Context, u *domain.User) {
	if n == nil {
		return
	}
	content := fmt.Sprintf(`
    <h1>Bienvenido a SomosRentable, %s</h1>
    <p>Tu cuenta fue creada. El siguiente paso es verificar tu identidad para poder invertir.</p>
    <center><a href="%s/kyc" class="sr-button">Verificar mi identidad</a></center>
`, EscapeHTML(u.Fullname), n.PublicBaseURL)
	n.deliver(ctx, "welcome", u.Email, u.Fullname, "Bienvenido a SomosRentable", content)
}
