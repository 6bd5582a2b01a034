package todoist

import (
	"fmt"
	"maps"

	"github.com/google/uuid"
)

// Command types understood by the sync endpoint.
const (
	TypeItemUpdate             = "item_update"
	TypeItemClose              = "item_close"
	TypeItemComplete           = "item_complete"
	TypeItemUncomplete         = "item_uncomplete"
	TypeItemArchive            = "item_archive"
	TypeItemDelete             = "item_delete"
	TypeItemAdd                = "item_add"
	TypeItemUpdateDateComplete = "item_update_date_complete"
)

// Command is one queued mutation.
type Command struct {
	Type   string         `json:"type" yaml:"type"`
	UUID   string         `json:"uuid" yaml:"uuid"`
	TempID string         `json:"temp_id,omitempty" yaml:"temp_id,omitempty"`
	Args   map[string]any `json:"args" yaml:"args"`
}

func (c Command) String() string {
	return fmt.Sprintf("%s %v", c.Type, c.Args)
}

// NewCommand returns a command with a fresh uuid.
func NewCommand(typ string, args map[string]any) Command {
	if args == nil {
		args = map[string]any{}
	}
	return Command{Type: typ, UUID: uuid.NewString(), Args: args}
}

func itemCommand(typ, id string, fields map[string]any) Command {
	args := map[string]any{"id": id}
	maps.Copy(args, fields)
	return NewCommand(typ, args)
}

// ItemUpdate changes fields of an existing task.
func ItemUpdate(id string, fields map[string]any) Command {
	return itemCommand(TypeItemUpdate, id, fields)
}

// ItemClose does what the official clients do on "done": regular tasks
// are completed, recurring tasks move to their next occurrence.
func ItemClose(id string) Command { return itemCommand(TypeItemClose, id, nil) }

func ItemComplete(id string) Command   { return itemCommand(TypeItemComplete, id, nil) }
func ItemUncomplete(id string) Command { return itemCommand(TypeItemUncomplete, id, nil) }
func ItemArchive(id string) Command    { return itemCommand(TypeItemArchive, id, nil) }
func ItemDelete(id string) Command     { return itemCommand(TypeItemDelete, id, nil) }

// ItemUpdateDateComplete completes one occurrence of a recurring task and
// optionally moves it to due.
func ItemUpdateDateComplete(id string, due map[string]any) Command {
	fields := map[string]any{}
	if len(due) > 0 {
		fields["due"] = due
	}
	return itemCommand(TypeItemUpdateDateComplete, id, fields)
}

// ItemAdd creates a task. The command carries a temp_id so the new task
// can be referenced before the server assigns an id.
func ItemAdd(content string, fields map[string]any) Command {
	args := map[string]any{"content": content}
	maps.Copy(args, fields)
	cmd := NewCommand(TypeItemAdd, args)
	cmd.TempID = uuid.NewString()
	return cmd
}
