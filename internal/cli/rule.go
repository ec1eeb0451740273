package cli

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/navlock/navlock/internal/common"
	"github.com/navlock/navlock/internal/credentials"
	"github.com/navlock/navlock/internal/models"
)

// ListRules prints the rules owned by the active profile.
func (a *App) ListRules(ctx context.Context) error {
	active, err := a.profiles.GetActive(ctx)
	if err != nil {
		fmt.Println("Error:", err)
		return err
	}

	rules, err := a.rules.GetByProfile(ctx, active.ID)
	if err != nil {
		fmt.Println("Error:", err)
		return err
	}

	for _, r := range rules {
		state := "on"
		if !r.Enabled {
			state = "off"
		}
		fmt.Printf("%s  [%s] %-8s %s\n", r.ID, state, r.Action, r.URLPattern)
	}
	return nil
}

// AddRule interactively builds a rule and attaches it to the active profile.
func (a *App) AddRule(ctx context.Context) error {
	active, err := a.profiles.GetActive(ctx)
	if err != nil {
		fmt.Println("Error:", err)
		return err
	}

	pattern, err := getSimpleText(a.reader, "URL pattern (e.g. example.com or *.example.com)", os.Stdout)
	if err != nil {
		return err
	}

	action, err := getSimpleText(a.reader, "Action (lock|block|redirect)", os.Stdout)
	if err != nil {
		return err
	}

	rule := &models.Rule{
		URLPattern: pattern,
		Action:     models.Action(action),
		Enabled:    true,
		ProfileIDs: []string{active.ID},
	}

	switch rule.Action {
	case models.ActionLock:
		if err := a.promptLockOptions(rule); err != nil {
			return err
		}
	case models.ActionRedirect:
		target, err := getSimpleText(a.reader, "Redirect target URL", os.Stdout)
		if err != nil {
			return err
		}
		rule.Redirect = &models.RedirectOptions{TargetURL: target}
	}

	created, err := a.rules.Create(ctx, rule)
	if err != nil {
		fmt.Println("Error:", err)
		return err
	}

	fmt.Println("Created rule", created.ID)
	return nil
}

func (a *App) promptLockOptions(rule *models.Rule) error {
	mode, err := getSimpleText(a.reader, "Lock mode (always_ask|timed_unlock|session_unlock)", os.Stdout)
	if err != nil {
		return err
	}
	rule.Lock = &models.LockOptions{Mode: models.LockMode(mode)}

	if rule.Lock.Mode == models.LockModeTimed {
		raw, err := getSimpleText(a.reader, "Unlock duration (minutes)", os.Stdout)
		if err != nil {
			return err
		}
		minutes, err := strconv.Atoi(raw)
		if err != nil {
			fmt.Println("Not a number:", raw)
			return err
		}
		rule.Lock.TimedDurationMinutes = minutes
	}

	answer, err := getSimpleText(a.reader, "Set a rule-specific password? (y/N)", os.Stdout)
	if err != nil {
		return err
	}
	if answer != "y" && answer != "Y" {
		return nil
	}

	password, err := getPassword(os.Stdout, "Rule password")
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	hash, salt, err := credentials.HashPassword(password, nil)
	if err != nil {
		return err
	}
	rule.Lock.CustomVerifier = hash
	rule.Lock.CustomSalt = salt
	return nil
}

// DeleteRule removes a rule entirely.
func (a *App) DeleteRule(ctx context.Context, id string) error {
	if err := a.rules.Delete(ctx, id); err != nil {
		fmt.Println("Error:", err)
		return err
	}
	fmt.Println("Deleted.")
	return nil
}

// ToggleRule flips a rule's enabled flag.
func (a *App) ToggleRule(ctx context.Context, id string) error {
	rule, err := a.rules.Toggle(ctx, id)
	if err != nil {
		fmt.Println("Error:", err)
		return err
	}

	state := "enabled"
	if !rule.Enabled {
		state = "disabled"
	}
	fmt.Println("Rule", rule.ID, state)
	return nil
}

// AttachRule adds a profile to the rule's owning set (idempotent).
func (a *App) AttachRule(ctx context.Context, ruleID, profileID string) error {
	if err := a.rules.AddProfile(ctx, ruleID, profileID); err != nil {
		fmt.Println("Error:", err)
		return err
	}
	fmt.Println("Attached.")
	return nil
}

// DetachRule removes a profile from the rule's owning set. A rule that loses
// its last owner is deleted with it.
func (a *App) DetachRule(ctx context.Context, ruleID, profileID string) error {
	if err := a.rules.RemoveProfile(ctx, ruleID, profileID); err != nil {
		fmt.Println("Error:", err)
		return err
	}
	fmt.Println("Detached.")
	return nil
}
