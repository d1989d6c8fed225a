package domain

import (
	"fmt"
	"sort"
	"strings"
)

// CommandKind tags the variant held by a Command.
type CommandKind string

const (
	KindAdd    CommandKind = "add"
	KindUpdate CommandKind = "update"
)

// FieldValues is a sparse field->value map used for update search and
// update sets. A nil value is represented by the empty string.
type FieldValues map[Field]string

// Fields returns the keys in canonical column order.
func (fv FieldValues) Fields() []Field {
	out := make([]Field, 0, len(fv))
	for f := range fv {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return columnIndex(out[i]) < columnIndex(out[j]) })
	return out
}

func (fv FieldValues) String() string {
	parts := make([]string, 0, len(fv))
	for _, f := range fv.Fields() {
		parts = append(parts, fmt.Sprintf("%s=%q", f, fv[f]))
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// Command is one normalized user intent. Exactly one of Record (Add) or
// Search+Update (Update) is meaningful, selected by Kind.
type Command struct {
	Kind   CommandKind
	Record Record
	Search FieldValues
	Update FieldValues
}

// NewAdd returns an Add command for r.
func NewAdd(r Record) Command {
	return Command{Kind: KindAdd, Record: r}
}

// NewUpdate returns an Update command.
func NewUpdate(search, update FieldValues) Command {
	return Command{Kind: KindUpdate, Search: search, Update: update}
}

func (c Command) String() string {
	switch c.Kind {
	case KindAdd:
		return fmt.Sprintf("add %q (%d)", c.Record.Name, c.Record.Amount)
	case KindUpdate:
		return fmt.Sprintf("update %s -> %s", c.Search, c.Update)
	}
	return string(c.Kind)
}

func columnIndex(f Field) int {
	for i, c := range Columns {
		if c == f {
			return i
		}
	}
	return len(Columns)
}
