package cli

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/navlock/navlock/internal/common"
	"github.com/navlock/navlock/internal/interceptor"
)

// Check simulates a top-level navigation to the given URL and prints the
// interceptor's verdict. A locked verdict parks the navigation so a follow-up
// `grant` or `snooze` can release it, mirroring the unlock-view flow.
func (a *App) Check(ctx context.Context, rawURL string) error {
	action := a.nav.OnNavigate(ctx, interceptor.NavigationEvent{TabID: a.checkTabID, URL: rawURL})

	switch action.Type {
	case interceptor.ActionProceed:
		fmt.Println("allow")
	case interceptor.ActionRedirect:
		if _, pending := a.nav.Pending(a.checkTabID); pending {
			fmt.Println("locked ->", action.TargetURL)
			fmt.Println("Use 'grant' to unlock or 'snooze <minutes>' to pause enforcement.")
		} else {
			fmt.Println("redirect ->", action.TargetURL)
		}
	}
	return nil
}

// Grant completes the pending unlock from the last `check` by prompting for
// the unlocking password.
func (a *App) Grant(ctx context.Context) error {
	if _, ok := a.nav.Pending(a.checkTabID); !ok {
		fmt.Println("Nothing pending; run 'check <url>' first.")
		return nil
	}

	password, err := getPassword(os.Stdout, "Unlock password")
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	original, err := a.nav.CompleteUnlock(ctx, a.checkTabID, password)
	if err != nil {
		fmt.Println("Unlock failed:", err)
		return err
	}

	fmt.Println("Unlocked, reopening", original)
	return nil
}

// Snooze pauses enforcement for the pending domain without verification.
func (a *App) Snooze(ctx context.Context, rawMinutes string) error {
	minutes, err := strconv.Atoi(rawMinutes)
	if err != nil {
		fmt.Println("Not a number:", rawMinutes)
		return err
	}

	original, err := a.nav.SnoozePending(ctx, a.checkTabID, time.Duration(minutes)*time.Minute)
	if err != nil {
		fmt.Println("Snooze failed:", err)
		return err
	}

	fmt.Println("Snoozed, reopening", original)
	return nil
}
