package chat

import "context"

// Command is an optimistic mutation: Apply patches local state right away,
// Commit persists it and Revert undoes the patch when Commit fails.
type Command struct {
	Apply  func()
	Commit func(ctx context.Context) error
	Revert func()
}

// Execute runs cmd and returns the commit error after reverting.
func Execute(ctx context.Context, cmd Command) error {
	if cmd.Apply != nil {
		cmd.Apply()
	}
	if cmd.Commit == nil {
		return nil
	}
	if err := cmd.Commit(ctx); err != nil {
		if cmd.Revert != nil {
			cmd.Revert()
		}
		return err
	}
	return nil
}
