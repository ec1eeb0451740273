package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
)

func (a *App) getStatus() string {
	if !a.isUnlocked() {
		return "(locked)"
	}

	s := "unlocked"
	if p, err := a.profiles.GetActive(context.Background()); err == nil {
		s = s + " " + p.Name
	}
	return fmt.Sprintf("(%s)", s)
}

func (a *App) Root(ctx context.Context) {

	fmt.Println("navlock CLI (type 'help' for commands)")
	scanner := bufio.NewScanner(os.Stdin)

	for {
		fmt.Printf("nl %s> ", a.getStatus())
		if !scanner.Scan() {
			break
		}
		line := scanner.Text()
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}

		cmd := parts[0]
		args := parts[1:]

		switch cmd {
		case "help":
			if a.isUnlocked() {
				fmt.Println("Available commands: lock, passwd, profiles, profile <add|rename|switch|rm>,")
				fmt.Println("  rules, rule <add|rm|toggle|attach|detach>, check <url>, grant, snooze <min>, exit")
			} else {
				fmt.Println("Available commands: setup, unlock, check <url>, grant, snooze <min>, exit")
			}

		case "setup":
			_ = a.Setup(ctx)
		case "unlock":
			_ = a.Unlock(ctx)
		case "lock":
			_ = a.Lock(ctx)
		case "passwd":
			_ = a.ChangePassword(ctx)

		case "profiles":
			_ = a.ListProfiles(ctx)
		case "profile":
			a.dispatchProfile(ctx, args)

		case "rules":
			_ = a.ListRules(ctx)
		case "rule":
			a.dispatchRule(ctx, args)

		case "check":
			if len(args) == 0 {
				fmt.Println("Usage: check <url>")
				continue
			}
			_ = a.Check(ctx, args[0])
		case "grant":
			_ = a.Grant(ctx)
		case "snooze":
			if len(args) == 0 {
				fmt.Println("Usage: snooze <minutes>")
				continue
			}
			_ = a.Snooze(ctx, args[0])

		case "exit", "quit":
			fmt.Println("Bye!")
			return

		default:
			fmt.Println("Unknown command:", cmd)
		}
	}

}

func (a *App) dispatchProfile(ctx context.Context, args []string) {
	if len(args) == 0 {
		fmt.Println("Usage: profile <add|rename|switch|rm> [id]")
		return
	}

	switch args[0] {
	case "add":
		_ = a.AddProfile(ctx)
	case "rename":
		_ = a.RenameProfile(ctx)
	case "switch":
		if len(args) < 2 {
			fmt.Println("Usage: profile switch <id>")
			return
		}
		_ = a.SwitchProfile(ctx, args[1])
	case "rm":
		if len(args) < 2 {
			fmt.Println("Usage: profile rm <id>")
			return
		}
		_ = a.DeleteProfile(ctx, args[1])
	default:
		fmt.Println("Unknown subcommand:", args[0])
	}
}

func (a *App) dispatchRule(ctx context.Context, args []string) {
	if len(args) == 0 {
		fmt.Println("Usage: rule <add|rm|toggle|attach|detach> [args]")
		return
	}

	switch args[0] {
	case "add":
		_ = a.AddRule(ctx)
	case "rm":
		if len(args) < 2 {
			fmt.Println("Usage: rule rm <id>")
			return
		}
		_ = a.DeleteRule(ctx, args[1])
	case "toggle":
		if len(args) < 2 {
			fmt.Println("Usage: rule toggle <id>")
			return
		}
		_ = a.ToggleRule(ctx, args[1])
	case "attach":
		if len(args) < 3 {
			fmt.Println("Usage: rule attach <ruleId> <profileId>")
			return
		}
		_ = a.AttachRule(ctx, args[1], args[2])
	case "detach":
		if len(args) < 3 {
			fmt.Println("Usage: rule detach <ruleId> <profileId>")
			return
		}
		_ = a.DetachRule(ctx, args[1], args[2])
	default:
		fmt.Println("Unknown subcommand:", args[0])
	}
}
