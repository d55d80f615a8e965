package confirm

import (
	"context"
	"crypto/subtle"
	"fmt"
	"strings"

	"github.com/skip2/go-qrcode"
	"go.uber.org/zap"

	"github.com/seashail/seashail/internal/apperr"
	"github.com/seashail/seashail/internal/elicit"
)

// BackupTailLen is how many trailing characters of Share 3 the user types
// back to prove it was recorded.
const BackupTailLen = 8

const backupField = "share_tail"

// ConfirmBackup shows the offline share once and asks the user to type its
// last BackupTailLen characters.  Any other answer, a decline or a timeout
// returns an apperr.BackupNotConfirmed error; the caller must then roll
// back whatever the share belongs to.
func (c *Confirmer) ConfirmBackup(ctx context.Context, wallet, share3 string) error {
	const op apperr.Op = "confirm.ConfirmBackup"

	log := c.log.With(zap.String("wallet", wallet))
	notConfirmed := func(msg string) error {
		c.metrics.Backup("not_confirmed")
		log.Info("offline share not confirmed", zap.String("detail", msg))
		return apperr.E(op, apperr.BackupNotConfirmed, CodeBackupNotConfirmed, msg)
	}

	if len(share3) < BackupTailLen {
		return apperr.E(op, apperr.Invalid, "share too short")
	}
	if c.elicitor == nil {
		return notConfirmed("no elicitation surface is configured")
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.elicitor.ElicitForm(ctx, backupMessage(wallet, share3),
		elicit.TextSchema(backupField,
			fmt.Sprintf("Last %d characters of the share", BackupTailLen),
			"Type them to confirm the share is stored offline."))
	if err != nil {
		return notConfirmed(err.Error())
	}
	if resp.Action != elicit.Accept {
		return notConfirmed("user did not accept")
	}

	got := strings.TrimSpace(resp.String(backupField))
	want := share3[len(share3)-BackupTailLen:]
	if subtle.ConstantTimeCompare([]byte(got), []byte(want)) != 1 {
		return notConfirmed("share tail does not match")
	}

	c.metrics.Backup("confirmed")
	log.Info("offline share confirmed")
	return nil
}

func backupMessage(wallet, share3 string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Offline backup share (Share 3) for wallet %q.\n", wallet)
	b.WriteString("Write it down or scan it and keep it offline. It is shown only once.\n")
	b.WriteString("Any two of the three shares recover the wallet.\n\n")
	if qr, err := qrcode.New(share3, qrcode.Medium); err == nil {
		b.WriteString(qr.ToSmallString(false))
		b.WriteString("\n")
	}
	b.WriteString(share3)
	return b.String()
}
