package orchestrators

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log/slog"
	"net/mail"

	emailAdapter "rollcall/internal/adapters/email"
	"rollcall/internal/application/projections"
	"rollcall/internal/domain/snapshot"
)

// ErrInvalidRecipient is returned when the export address cannot be parsed.
var ErrInvalidRecipient = errors.New("invalid recipient email address")

// ErrNoSnapshot is returned before the first snapshot has been loaded.
var ErrNoSnapshot = errors.New("data not loaded yet")

// ErrSendFailed is returned when the mail provider rejects the message.
var ErrSendFailed = errors.New("email could not be sent")

// SnapshotSource returns the current snapshot.
type SnapshotSource interface {
	Latest() (snapshot.Snapshot, bool)
}

// EmailExportInput names the activity and destination.
type EmailExportInput struct {
	Activity    string
	To          string
	RequestedBy string
}

// EmailExportDeps holds dependencies for EmailExport.
type EmailExportDeps struct {
	Snapshots SnapshotSource
	Sender    emailAdapter.Sender
	From      string
	ReplyTo   string
}

// ExecuteEmailExport builds the activity's CSV export and mails it as an attachment.
// PRE: caller is a signed-in admin
// POST: One email with the CSV attached was accepted by the sender
func ExecuteEmailExport(ctx context.Context, input EmailExportInput, deps EmailExportDeps) (emailAdapter.SendResult, error) {
	addr, err := mail.ParseAddress(input.To)
	if err != nil {
		return emailAdapter.SendResult{}, ErrInvalidRecipient
	}
	snap, ok := deps.Snapshots.Latest()
	if !ok {
		return emailAdapter.SendResult{}, ErrNoSnapshot
	}

	export, err := projections.QueryGetAttendanceExport(input.Activity, snap.Records)
	if err != nil {
		return emailAdapter.SendResult{}, err
	}

	res, err := deps.Sender.Send(ctx, emailAdapter.SendRequest{
		To:      []string{addr.Address},
		From:    deps.From,
		ReplyTo: deps.ReplyTo,
		Subject: fmt.Sprintf("%s attendance export", input.Activity),
		HTML: fmt.Sprintf("<p>Attached is the attendance record for <strong>%s</strong> (%d students, %d dates).</p>",
			html.EscapeString(input.Activity), export.Students, len(export.Dates)),
		Attachments: []emailAdapter.Attachment{{
			Filename:    export.Filename,
			ContentType: "text/csv; charset=utf-8",
			Content:     export.Content,
		}},
	})
	if err != nil {
		slog.Error("admin_event", "event", "export_email_failed", "activity", input.Activity, "error", err)
		return emailAdapter.SendResult{}, fmt.Errorf("%w: %v", ErrSendFailed, err)
	}

	slog.Info("admin_event", "event", "export_emailed", "activity", input.Activity, "to", addr.Address, "by", input.RequestedBy, "message_id", res.MessageID)
	return res, nil
}
