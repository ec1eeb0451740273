package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/navlock/navlock/internal/common"
)

// getSimpleText and getPassword are indirections used to facilitate testing.
// They point to interactive input helpers and can be swapped in tests.
var getSimpleText = GetSimpleText
var getPassword = GetPassword

// Setup prompts for a new master password (twice) and initializes the
// credential record. Fails if one already exists. The password byte slices
// are wiped before returning.
func (a *App) Setup(ctx context.Context) error {
	password, err := getPassword(os.Stdout, "Choose master password")
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	confirm, err := getPassword(os.Stdout, "Repeat master password")
	if err != nil {
		return err
	}
	defer common.WipeByteArray(confirm)

	if string(password) != string(confirm) {
		fmt.Println("Passwords do not match.")
		return nil
	}

	userID, err := a.vault.SetupMasterPassword(ctx, password)
	if err != nil {
		fmt.Println("Setup failed:", err)
		return err
	}

	fmt.Println("Master password set. User id:", userID)
	return a.postUnlock(ctx)
}

// Unlock prompts for the master password and, on success, initializes the
// profile registry and refreshes the ephemeral mirror.
func (a *App) Unlock(ctx context.Context) error {
	password, err := getPassword(os.Stdout, "Master password")
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	if _, err := a.vault.VerifyMasterPassword(ctx, password); err != nil {
		fmt.Println("Unlock failed:", err)
		return err
	}

	fmt.Println("Unlocked.")
	return a.postUnlock(ctx)
}

// postUnlock performs the work common to setup and unlock: ensure the
// default profile exists and project the decrypted state into the mirror.
func (a *App) postUnlock(ctx context.Context) error {
	if err := a.profiles.Initialize(ctx); err != nil {
		fmt.Println("Initialization failed:", err)
		return err
	}
	if err := a.refreshMirror(ctx); err != nil {
		fmt.Println("Mirror refresh failed:", err)
		return err
	}
	return nil
}

// Lock clears the in-memory key material. Persisted records stay intact.
func (a *App) Lock(ctx context.Context) error {
	a.vault.Lock()
	fmt.Println("Locked.")
	return nil
}

// ChangePassword verifies the old master password and re-encrypts every
// stored record under the new one in a single transaction.
func (a *App) ChangePassword(ctx context.Context) error {
	oldPassword, err := getPassword(os.Stdout, "Current master password")
	if err != nil {
		return err
	}
	defer common.WipeByteArray(oldPassword)

	newPassword, err := getPassword(os.Stdout, "New master password")
	if err != nil {
		return err
	}
	defer common.WipeByteArray(newPassword)

	confirm, err := getPassword(os.Stdout, "Repeat new master password")
	if err != nil {
		return err
	}
	defer common.WipeByteArray(confirm)

	if string(newPassword) != string(confirm) {
		fmt.Println("Passwords do not match.")
		return nil
	}

	if err := a.vault.ChangeMasterPassword(ctx, oldPassword, newPassword); err != nil {
		fmt.Println("Change failed:", err)
		return err
	}

	fmt.Println("Master password changed.")
	return nil
}
