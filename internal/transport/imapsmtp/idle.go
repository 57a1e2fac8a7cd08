package imapsmtp

import (
	"context"
	"log"
	"time"

	idle "github.com/emersion/go-imap-idle"
	imapclient "github.com/emersion/go-imap/client"

	"github.com/dmolnar/mailstate/internal/models"
	"github.com/dmolnar/mailstate/internal/transport"
)

// idleRetryBackoff is the pause after a listener failure before redialing.
const idleRetryBackoff = 10 * time.Second

// Changes starts a dedicated IDLE listener on the inbox and delivers a change
// notice whenever the mailbox reports new messages. The channel closes when
// ctx is cancelled.
func (a *Adapter) Changes(ctx context.Context) (<-chan transport.Change, error) {
	out := make(chan transport.Change, 8)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			default:
			}

			c, err := a.dial()
			if err != nil {
				log.Printf("imapsmtp: idle listener dial: %v", err)
				if !sleepCtx(ctx, idleRetryBackoff) {
					return
				}
				continue
			}

			a.runIdleLoop(ctx, c, out)
			_ = c.Logout()

			if !sleepCtx(ctx, idleRetryBackoff) {
				return
			}
		}
	}()
	return out, nil
}

// runIdleLoop runs IDLE on one connection until it fails or ctx is cancelled.
func (a *Adapter) runIdleLoop(ctx context.Context, c *imapclient.Client, out chan<- transport.Change) {
	if _, err := c.Select(mailboxName(models.InboxFolderID), true); err != nil {
		log.Printf("imapsmtp: idle listener select: %v", err)
		return
	}

	idleClient := idle.NewClient(c)
	updates := make(chan imapclient.Update, 10)
	c.Updates = updates

	stop := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- idleClient.IdleWithFallback(stop, 5*time.Second)
	}()

	for {
		select {
		case <-ctx.Done():
			close(stop)
			<-done
			return
		case err := <-done:
			if err != nil {
				log.Printf("imapsmtp: idle loop ended: %v", err)
			}
			return
		case update := <-updates:
			mbox, ok := update.(*imapclient.MailboxUpdate)
			if !ok || mbox.Mailbox == nil || mbox.Mailbox.Messages == 0 {
				continue
			}
			select {
			case out <- transport.Change{FolderID: models.InboxFolderID}:
			default:
				// The dispatcher is behind; the pending notice already covers it.
			}
		}
	}
}

// sleepCtx sleeps for d unless ctx ends first.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}
