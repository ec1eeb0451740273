package cli

import (
	"context"
	"fmt"
	"os"
)

// ListProfiles prints all profiles, marking the active one.
func (a *App) ListProfiles(ctx context.Context) error {
	profiles, err := a.profiles.GetAll(ctx)
	if err != nil {
		fmt.Println("Error:", err)
		return err
	}

	for _, p := range profiles {
		marker := " "
		if p.IsActive {
			marker = "*"
		}
		fmt.Printf("%s %s  %s\n", marker, p.ID, p.Name)
	}
	return nil
}

// AddProfile prompts for a name and creates a profile.
func (a *App) AddProfile(ctx context.Context) error {
	name, err := getSimpleText(a.reader, "Profile name", os.Stdout)
	if err != nil {
		return err
	}

	p, err := a.profiles.Create(ctx, name)
	if err != nil {
		fmt.Println("Error:", err)
		return err
	}

	fmt.Println("Created profile", p.ID)
	return nil
}

// RenameProfile prompts for an id and a new name.
func (a *App) RenameProfile(ctx context.Context) error {
	id, err := getSimpleText(a.reader, "Profile id", os.Stdout)
	if err != nil {
		return err
	}
	name, err := getSimpleText(a.reader, "New name", os.Stdout)
	if err != nil {
		return err
	}

	if _, err := a.profiles.Update(ctx, id, name); err != nil {
		fmt.Println("Error:", err)
		return err
	}

	fmt.Println("Renamed.")
	return nil
}

// SwitchProfile activates the given profile and deactivates the current one.
func (a *App) SwitchProfile(ctx context.Context, id string) error {
	if err := a.profiles.Switch(ctx, id); err != nil {
		fmt.Println("Error:", err)
		return err
	}

	fmt.Println("Switched to", id)
	return nil
}

// DeleteProfile removes an inactive, non-last profile. Rules it owned keep
// their membership entry; they simply stop matching anything.
func (a *App) DeleteProfile(ctx context.Context, id string) error {
	if err := a.profiles.Delete(ctx, id); err != nil {
		fmt.Println("Error:", err)
		return err
	}

	fmt.Println("Deleted.")
	return nil
}
