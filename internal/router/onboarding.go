package router

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/SwiftSendNG/SwiftSend/internal/identity"
	"github.com/SwiftSendNG/SwiftSend/internal/intent"
	"github.com/SwiftSendNG/SwiftSend/internal/models"
	"github.com/SwiftSendNG/SwiftSend/internal/util"
)

const onboardingText = `Welcome to SwiftSend!

To link this number to your business, enter this code on your SwiftSend dashboard within 30 minutes:

*%s*

Don't have an account yet? Sign up at swiftsend.ng and use the same code.`

// handleUnknown runs the vendor onboarding flow. Every unrecognized sender
// gets a link code regardless of what they sent; this is how new vendors
// bootstrap.
func (r *Router) handleUnknown(ctx context.Context, res *identity.Resolution, msg models.IncomingMessage, parsed intent.Result) []models.Notification {
	phone := res.Phone
	slog.Debug("Router onboarding unknown sender", "phone", util.MaskPhone(phone), "intent", parsed.Intent, "type", msg.Type)

	code := util.GenerateLinkCode()
	lc := models.PendingLinkCode{
		Code:      code,
		Phone:     phone,
		ExpiresAt: r.now().Add(models.LinkCodeTTL),
	}
	if err := r.store.PutLinkCode(lc); err != nil {
		slog.Error("Router put link code failed", "phone", util.MaskPhone(phone), "error", err)
		return []models.Notification{reply(phone, "Something went wrong on our side. Please try again in a moment.")}
	}
	slog.Info("Router issued onboarding link code", "phone", util.MaskPhone(phone))

	return []models.Notification{reply(phone, fmt.Sprintf(onboardingText, code))}
}
