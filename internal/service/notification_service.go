package service

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"
	"go.uber.org/zap"

	"supervitec-sgd/backend/config"
	"supervitec-sgd/backend/internal/dto"
	"supervitec-sgd/backend/internal/model"
	"supervitec-sgd/backend/internal/repository"
	"supervitec-sgd/backend/pkg/mailer"
)

// MailSender 邮件发送能力，由 *mailer.Mailer 实现
type MailSender interface {
	Send(ctx context.Context, msg *mailer.Message) error
}

// mailNotifier 基于 SMTP 的通知实现
//
// 每次发送（含跳过）都写入 notification_logs；邮件关闭或无收件人时记为 skipped。
type mailNotifier struct {
	sender       MailSender
	repo         *repository.Repository
	adminMailbox string
	frontendURL  string
	logger       *zap.Logger
	now          func() time.Time
}

// NewMailNotifier 创建邮件通知器；sender 为 nil 时只记录流水不发送
func NewMailNotifier(sender MailSender, repo *repository.Repository, cfg *config.MailConfig, logger *zap.Logger) Notifier {
	return &mailNotifier{
		sender:       sender,
		repo:         repo,
		adminMailbox: cfg.AdminMailbox,
		frontendURL:  strings.TrimRight(cfg.FrontendURL, "/"),
		logger:       logger,
		now:          time.Now,
	}
}

// ────────────────────── NotifyMissed ──────────────────────

func (n *mailNotifier) NotifyMissed(ctx context.Context, userID, userName, date string) error {
	subject := "Preoperacional NO entregado - " + userName
	body := n.layout("Alerta de Preoperacional", "#dc2626", fmt.Sprintf(`
<h3>Preoperacional NO entregado</h3>
<p><strong>Usuario:</strong> %s</p>
<p><strong>ID:</strong> %s</p>
<p><strong>Fecha:</strong> %s</p>
<p><strong>Estado:</strong> NO ENTREGADO</p>
<p>El usuario no entregó su preoperacional. Se ha aplicado una sanción automática.
Al acumular <strong>3 faltas</strong>, se procederá con citación formal.</p>`,
		esc(userName), esc(userID), esc(date)))

	return n.deliver(ctx, model.NotifyKindMissed, userID, []string{n.adminMailbox}, subject, body, nil)
}

// ────────────────────── NotifyLate ──────────────────────

func (n *mailNotifier) NotifyLate(ctx context.Context, userID, userName, date string, deliveredAt time.Time) error {
	subject := "Preoperacional entregado TARDE - " + userName
	body := n.layout("Entrega tardía", "#f59e0b", fmt.Sprintf(`
<h3>Preoperacional entregado después de las 9:00 AM</h3>
<p><strong>Usuario:</strong> %s</p>
<p><strong>ID:</strong> %s</p>
<p><strong>Fecha:</strong> %s</p>
<p><strong>Hora de entrega:</strong> %s</p>`,
		esc(userName), esc(userID), esc(date), deliveredAt.In(bogota).Format("15:04:05")))

	return n.deliver(ctx, model.NotifyKindLate, userID, []string{n.adminMailbox}, subject, body, nil)
}

// ────────────────────── NotifyOverdue ──────────────────────

func (n *mailNotifier) NotifyOverdue(ctx context.Context, date string, drivers []DriverInfo) error {
	if len(drivers) == 0 {
		return nil
	}
	var rows strings.Builder
	for _, d := range drivers {
		fmt.Fprintf(&rows, "<tr><td>%s</td><td>%s</td><td>%s</td></tr>", esc(d.ID), esc(d.Name), esc(d.VehicleType))
	}
	subject := fmt.Sprintf("Preoperacionales pendientes %s (%d)", date, len(drivers))
	body := n.layout("Preoperacionales pendientes a las 9:00 AM", "#ef4444", fmt.Sprintf(`
<p>Los siguientes conductores no han entregado el preoperacional del %s.
Aún pueden entregarlo con retraso hasta las 12:00 PM.</p>
<table style="width:100%%;border-collapse:collapse">
<tr><th>ID</th><th>Nombre</th><th>Vehículo</th></tr>%s
</table>`, esc(date), rows.String()))

	return n.deliver(ctx, model.NotifyKindOverdue, "", []string{n.adminMailbox}, subject, body, nil)
}

// ────────────────────── SendCitation ──────────────────────

func (n *mailNotifier) SendCitation(ctx context.Context, notice CitationNotice) error {
	c := notice.Citation
	subject := "CITACION FORMAL - " + c.UserName

	history := notice.History
	if len(history) > 5 {
		history = history[len(history)-5:]
	}
	var rows strings.Builder
	for _, h := range history {
		fmt.Fprintf(&rows, "<tr><td>#%d</td><td>%s</td><td>%s</td></tr>",
			h.SanctionNumber, esc(h.Date), esc(sanctionReasonText(h.Reason)))
	}

	details := ""
	if c.ReasonDetails != "" {
		details = "<p><strong>Detalles:</strong> " + esc(c.ReasonDetails) + "</p>"
	}
	body := n.layout("CITACION FORMAL", "#991b1b", fmt.Sprintf(`
<p>Estimado/a <strong>%s</strong>,</p>
<p>Por medio del presente se le cita a reunión con el área administrativa el
<strong>%s</strong>.</p>
%s
<h4>Historial de faltas</h4>
<table style="width:100%%;border-collapse:collapse">
<tr><th>Sanción</th><th>Fecha</th><th>Motivo</th></tr>%s
</table>
<ul>
<li>Amonestación por escrito</li>
<li>Reunión obligatoria con área administrativa</li>
<li>Futuras faltas pueden resultar en suspensión</li>
</ul>`, esc(c.UserName), c.CitationDate.In(bogota).Format("02/01/2006 15:04"), details, rows.String()))

	invite := mailer.Attachment{
		Filename:    "citacion.ics",
		ContentType: "text/calendar; charset=utf-8; method=REQUEST",
		Data:        buildCitationInvite(c, n.adminMailbox, notice.Email, n.now()),
	}

	var errs []error
	if strings.Contains(notice.Email, "@") {
		if err := n.deliver(ctx, model.NotifyKindCitation, c.UserID, []string{notice.Email}, subject, body, []mailer.Attachment{invite}); err != nil {
			errs = append(errs, err)
		}
	} else {
		n.logger.Warn("司机无有效邮箱，仅通知管理员", zap.String("user_id", c.UserID))
	}
	if err := n.deliver(ctx, model.NotifyKindCitation, c.UserID, []string{n.adminMailbox}, subject, body, []mailer.Attachment{invite}); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// buildCitationInvite 生成约谈的 iCalendar 邀请
func buildCitationInvite(c *model.Citation, organizer, attendee string, now time.Time) []byte {
	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodRequest)
	cal.SetProductId("-//Supervitec//SGD//ES")

	ev := cal.AddEvent(c.CitationID + "@supervitec-sgd")
	ev.SetDtStampTime(now)
	ev.SetCreatedTime(now)
	ev.SetStartAt(c.CitationDate)
	ev.SetEndAt(c.CitationDate.Add(citationDuration))
	ev.SetSummary("Citación formal - " + c.UserName)
	ev.SetDescription(fmt.Sprintf("Motivo: %s. %s", c.Reason, c.ReasonDetails))
	ev.SetStatus(ics.ObjectStatusConfirmed)
	if organizer != "" {
		ev.SetOrganizer("mailto:" + organizer)
	}
	if strings.Contains(attendee, "@") {
		ev.AddAttendee("mailto:"+attendee,
			ics.ParticipationRoleReqParticipant,
			ics.ParticipationStatusNeedsAction,
			ics.WithRSVP(true),
		)
	}
	return []byte(cal.Serialize())
}

func sanctionReasonText(reason string) string {
	switch reason {
	case model.SanctionReasonMissing:
		return "No entregado"
	case model.SubmissionLate:
		return "Entregado tarde"
	default:
		return reason
	}
}

// ────────────────────── SendReminder ──────────────────────

func (n *mailNotifier) SendReminder(ctx context.Context, driver DriverInfo, date string) error {
	subject := "Recordatorio: preoperacional del " + date
	body := n.layout("Recordatorio de preoperacional", "#2563eb", fmt.Sprintf(`
<p>Hola <strong>%s</strong>,</p>
<p>Recuerde diligenciar el preoperacional de hoy (%s) antes de las <strong>9:00 AM</strong>.
Entre 9:00 AM y 12:00 PM la entrega queda registrada como tardía; después de las 12:00 PM
no se recibe y se aplica una sanción.</p>`, esc(driver.Name), esc(date)))

	return n.deliver(ctx, model.NotifyKindReminder, driver.ID, []string{driver.Email}, subject, body, nil)
}

// ────────────────────── SendDailyReport ──────────────────────

func (n *mailNotifier) SendDailyReport(ctx context.Context, report *dto.DailyStatusResponse) error {
	s := report.Summary
	var rows strings.Builder
	for _, item := range report.Items {
		if item.Status == model.SubmissionCompleted {
			continue
		}
		fmt.Fprintf(&rows, "<tr><td>%s</td><td>%s</td><td>%s</td></tr>", esc(item.UserID), esc(item.UserName), esc(item.Status))
	}
	subject := "Reporte diario de preoperacionales " + report.Date
	body := n.layout("Reporte diario", "#1f2937", fmt.Sprintf(`
<p><strong>Fecha:</strong> %s</p>
<ul>
<li>Total conductores: %d</li>
<li>A tiempo: %d</li>
<li>Tarde: %d</li>
<li>No entregados: %d</li>
<li>Día no laboral: %d</li>
</ul>
<table style="width:100%%;border-collapse:collapse">
<tr><th>ID</th><th>Nombre</th><th>Estado</th></tr>%s
</table>`, esc(report.Date), s.Total, s.Completed, s.Late, s.Missing, s.NonWorkingDay, rows.String()))

	return n.deliver(ctx, model.NotifyKindDailyReport, "", []string{n.adminMailbox}, subject, body, nil)
}

// ── 发送与流水 ──

func (n *mailNotifier) deliver(ctx context.Context, kind, userID string, to []string, subject, body string, attachments []mailer.Attachment) error {
	var recipients []string
	for _, addr := range to {
		if addr = strings.TrimSpace(addr); addr != "" {
			recipients = append(recipients, addr)
		}
	}

	status, errText := model.NotifySent, ""
	var sendErr error
	if n.sender == nil || len(recipients) == 0 {
		status = model.NotifySkipped
	} else {
		sendErr = n.sender.Send(ctx, &mailer.Message{
			To:          recipients,
			Subject:     subject,
			HTML:        body,
			Attachments: attachments,
		})
		if sendErr != nil {
			status, errText = model.NotifyFailed, sendErr.Error()
		}
	}

	entry := &model.NotificationLog{
		Kind:      kind,
		Recipient: strings.Join(recipients, ","),
		Subject:   subject,
		Status:    status,
		Error:     errText,
	}
	if entry.Recipient == "" {
		entry.Recipient = "-"
	}
	if userID != "" {
		entry.UserID = &userID
	}
	if err := n.repo.Notification.Create(ctx, entry); err != nil {
		n.logger.Warn("写入通知流水失败", zap.String("kind", kind), zap.Error(err))
	}
	return sendErr
}

func (n *mailNotifier) layout(title, color, inner string) string {
	link := ""
	if n.frontendURL != "" {
		link = fmt.Sprintf(`<p style="text-align:center"><a href="%s/dashboard">Ver Dashboard</a></p>`, esc(n.frontendURL))
	}
	return fmt.Sprintf(`<div style="font-family:Arial,sans-serif;max-width:640px;margin:0 auto">
<div style="background:%s;padding:20px;border-radius:10px 10px 0 0"><h2 style="color:white;margin:0">%s</h2></div>
<div style="background:#f9fafb;padding:24px">%s%s</div>
<div style="text-align:center;padding:16px;color:#6b7280;font-size:12px">SupervitecSGD - %s</div>
</div>`, color, esc(title), inner, link, n.now().In(bogota).Format("02/01/2006 15:04"))
}

func esc(s string) string { return html.EscapeString(s) }
