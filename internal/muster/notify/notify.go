// Package notify formats evacuation alerts and hands them to a Notifier.
// Delivery is fire-and-forget: errors are logged, never returned upward.
package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"

	"github.com/BrandonDHaskell/muster/internal/muster/types"
)

type Notifier interface {
	Send(ctx context.Context, recipients []string, subject, body string) error
}

// LogNotifier writes messages to the log instead of delivering them.
type LogNotifier struct {
	Logger *zap.Logger
}

func (n LogNotifier) Send(_ context.Context, recipients []string, subject, body string) error {
	logger := n.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger.Info("notification",
		zap.Strings("recipients", recipients),
		zap.String("subject", subject),
		zap.String("body", body))
	return nil
}

// Recipients drops blank addresses and duplicates, keeping order.
func Recipients(addrs ...string) []string {
	seen := make(map[string]struct{}, len(addrs))
	var out []string
	for _, a := range addrs {
		for _, part := range strings.Split(a, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			if _, dup := seen[part]; dup {
				continue
			}
			seen[part] = struct{}{}
			out = append(out, part)
		}
	}
	return out
}

// Evacuation builds the subject and body for a real evacuation.
func Evacuation(out *types.EvacuationOutcome, operator string, loc *time.Location) (subject, body string) {
	if loc == nil {
		loc = time.UTC
	}
	ts := out.Timestamp.In(loc)
	subject = "ALERTA CRÍTICA: Evacuación de Emergencia - " + ts.Format("02/01/2006 15:04")

	var b strings.Builder
	b.WriteString("NOTIFICACIÓN DE EVACUACIÓN DE EMERGENCIA\n\n")
	fmt.Fprintf(&b, "Fecha: %s\n", ts.Format("02/01/2006 15:04:05"))
	fmt.Fprintf(&b, "Operador: %s\n", operator)
	fmt.Fprintf(&b, "Personas evacuadas: %d\n", out.TotalResolved())
	fmt.Fprintf(&b, "Session ID: %s\n\n", out.SessionID)
	b.WriteString("LISTADO DE PERSONAS EVACUADAS:\n")

	for i, p := range out.Resolved {
		entry := "N/A"
		stay := ""
		if p.EntryAt != nil {
			entry = p.EntryAt.In(loc).Format("15:04")
			stay = strings.TrimSpace(humanize.RelTime(*p.EntryAt, p.ExitAt, "", ""))
		}
		fmt.Fprintf(&b, "%02d. %s\n", i+1, p.Name)
		fmt.Fprintf(&b, "    Cédula: %s\n", p.Identity)
		fmt.Fprintf(&b, "    Empresa: %s\n", p.Company)
		fmt.Fprintf(&b, "    Entrada: %s | Salida: %s", entry, p.ExitAt.In(loc).Format("15:04"))
		if stay != "" {
			fmt.Fprintf(&b, " (%s dentro)", stay)
		}
		b.WriteString("\n\n")
	}

	fmt.Fprintf(&b, "Session ID para soporte: %s", out.SessionID)
	return subject, b.String()
}

// Dispatcher sends evacuation alerts to a fixed recipient list.
type Dispatcher struct {
	notifier   Notifier
	recipients []string
	loc        *time.Location
	logger     *zap.Logger
}

func NewDispatcher(n Notifier, recipients []string, loc *time.Location, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{notifier: n, recipients: recipients, loc: loc, logger: logger}
}

// EvacuationCompleted notifies about a real evacuation with at least one
// resolved person. Anything else is ignored.
func (d *Dispatcher) EvacuationCompleted(ctx context.Context, out *types.EvacuationOutcome, operator string) {
	if d == nil || d.notifier == nil {
		return
	}
	if out.Mode != types.ModeReal || out.TotalResolved() == 0 {
		return
	}
	if len(d.recipients) == 0 {
		d.logger.Warn("no notification recipients configured", zap.String("session_id", out.SessionID))
		return
	}

	subject, body := Evacuation(out, operator, d.loc)
	if err := d.notifier.Send(ctx, d.recipients, subject, body); err != nil {
		d.logger.Error("evacuation notification failed",
			zap.String("session_id", out.SessionID),
			zap.Error(err))
		return
	}
	d.logger.Info("evacuation notification sent",
		zap.String("session_id", out.SessionID),
		zap.Int("recipients", len(d.recipients)))
}
