package logging

import (
	"context"
	"log/slog"
	"strings"

	"github.com/coreos/go-systemd/v22/journal"
)

// SyslogIdentifier tags every journal entry written by the launcher.
const SyslogIdentifier = "linux-launcher"

// sendFunc matches journal.Send so tests can capture entries.
type sendFunc func(message string, priority journal.Priority, vars map[string]string) error

type journalField struct {
	name  string
	value string
}

// JournalHandler is a slog.Handler writing to the systemd journal.
// Attribute keys become upper-case journal fields; groups prefix them.
type JournalHandler struct {
	level  slog.Leveler
	fields []journalField
	prefix string
	send   sendFunc
}

// JournalAvailable reports whether the journald socket is reachable.
func JournalAvailable() bool {
	return journal.Enabled()
}

// NewJournalHandler creates a handler that sends records at or above level.
func NewJournalHandler(level slog.Leveler) *JournalHandler {
	return &JournalHandler{level: level, send: journal.Send}
}

func (h *JournalHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *JournalHandler) Handle(_ context.Context, r slog.Record) error {
	vars := make(map[string]string, len(h.fields)+r.NumAttrs()+1)
	vars["SYSLOG_IDENTIFIER"] = SyslogIdentifier
	for _, f := range h.fields {
		vars[f.name] = f.value
	}
	r.Attrs(func(a slog.Attr) bool {
		for _, f := range flattenAttr(h.prefix, a) {
			vars[f.name] = f.value
		}
		return true
	})
	return h.send(r.Message, priorityFor(r.Level), vars)
}

func (h *JournalHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	clone.fields = append([]journalField(nil), h.fields...)
	for _, a := range attrs {
		clone.fields = append(clone.fields, flattenAttr(h.prefix, a)...)
	}
	return &clone
}

func (h *JournalHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := *h
	clone.prefix = h.prefix + name + "_"
	return &clone
}

// flattenAttr resolves an attribute into journal fields, expanding groups.
func flattenAttr(prefix string, a slog.Attr) []journalField {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return nil
	}
	if a.Value.Kind() == slog.KindGroup {
		sub := prefix
		if a.Key != "" {
			sub = prefix + a.Key + "_"
		}
		var out []journalField
		for _, ga := range a.Value.Group() {
			out = append(out, flattenAttr(sub, ga)...)
		}
		return out
	}
	name := fieldName(prefix + a.Key)
	if name == "" {
		return nil
	}
	return []journalField{{name: name, value: a.Value.String()}}
}

// fieldName converts a key to a valid journal field name: upper-case
// letters, digits and underscores, not starting with an underscore.
func fieldName(key string) string {
	var b strings.Builder
	for _, c := range strings.ToUpper(key) {
		switch {
		case c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
			b.WriteRune(c)
		default:
			b.WriteByte('_')
		}
	}
	return strings.TrimLeft(b.String(), "_")
}

// priorityFor maps slog levels onto syslog priorities.
func priorityFor(level slog.Level) journal.Priority {
	switch {
	case level >= slog.LevelError:
		return journal.PriErr
	case level >= slog.LevelWarn:
		return journal.PriWarning
	case level >= slog.LevelInfo:
		return journal.PriInfo
	default:
		return journal.PriDebug
	}
}
