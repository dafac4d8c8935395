package bot

import (
	"context"
	"fmt"
	"log"
	"regexp"
	"strconv"
	"strings"
	"time"

	"telegram-reminder-bot/internal/models"
	"telegram-reminder-bot/internal/session"
)

// Lifecycle is the slice of the reminder manager the router drives.
type Lifecycle interface {
	Create(ctx context.Context, chatID int64, rawText string) error
	Edit(ctx context.Context, id, chatID int64, rawText string) error
	List(ctx context.Context, chatID int64) error
	DeleteOne(ctx context.Context, id, chatID int64) error
	DeleteAll(ctx context.Context, chatID int64) error
	Deactivate(ctx context.Context, id, chatID int64) error
	ActiveReminders(ctx context.Context, chatID int64) ([]*models.Reminder, error)
}

type Messenger interface {
	Send(chatID int64, text string) error
}

// Inbound is one incoming chat message as the core sees it.
type Inbound struct {
	ChatID   int64
	Text     string
	FromSelf bool
}

const (
	deleteAllConfirmTTL = 60 * time.Second

	msgCancelled   = "❌ Eliminación cancelada."
	msgNoReminders = "🔍 No tienes recordatorios activos."
	msgStorage     = "🚫 Ocurrió un error con la base de datos. Intenta de nuevo en unos minutos."
)

var (
	reDeleteAll  = regexp.MustCompile(`(?i)^!eliminar-todo$`)
	reDelete     = regexp.MustCompile(`(?i)^!eliminar$`)
	reDeleteID   = regexp.MustCompile(`(?i)^!eliminar\s+(\d+)$`)
	reEdit       = regexp.MustCompile(`(?i)^!editar$`)
	reEditInline = regexp.MustCompile(`(?i)^!editar\s+(\d+)\s*(.*)$`)
	rePing       = regexp.MustCompile(`(?i)^!ping$`)
	reCreate     = regexp.MustCompile(`(?i)^!recordar\s+\S`)
	reList       = regexp.MustCompile(`(?i)^!listar$`)
)

// affirmative matches the confirm tokens for delete flows.
func affirmative(text string) bool {
	switch strings.ToLower(strings.TrimSpace(text)) {
	case "sí", "si", "chi", "chii":
		return true
	}
	return false
}

// negative matches the exact tokens that deactivate a recurring
// reminder at the keep/stop prompt. Anything else keeps it.
func negative(text string) bool {
	switch strings.TrimSpace(text) {
	case "no", "n", "ño", "ñoo", "No", "NO", "Nop", "nop":
		return true
	}
	return false
}

type route struct {
	name   string
	match  func(chatID int64, text string) bool
	handle func(ctx context.Context, chatID int64, text string)
}

// Router resolves inbound text to an action. Routes are evaluated in a
// fixed order so confirmation replies are always consumed by the flow
// that is waiting for them, never by an unrelated command check.
type Router struct {
	lifecycle Lifecycle
	pending   *session.Store
	messenger Messenger
	routes    []route
}

func NewRouter(lifecycle Lifecycle, pending *session.Store, messenger Messenger) *Router {
	r := &Router{
		lifecycle: lifecycle,
		pending:   pending,
		messenger: messenger,
	}
	r.routes = []route{
		{"pending-delete-all-confirm", r.matchPending(session.AwaitingDeleteAllConfirm), r.handleDeleteAllConfirm},
		{"delete-all-command", matchRe(reDeleteAll), r.handleDeleteAllCommand},
		{"pending-edit-step", r.matchPending(session.AwaitingEditID, session.AwaitingEditText), r.handleEditStep},
		{"edit-command", matchRe(reEdit, reEditInline), r.handleEditCommand},
		{"pending-delete-step", r.matchPending(session.AwaitingDeleteID, session.AwaitingDeleteConfirm), r.handleDeleteStep},
		{"delete-command", matchRe(reDelete, reDeleteID), r.handleDeleteCommand},
		{"pending-recurring-confirm", r.matchPending(session.AwaitingRecurringConfirm), r.handleRecurringConfirm},
		{"ping", matchRe(rePing), r.handlePing},
		{"create", matchRe(reCreate), r.handleCreate},
		{"list", matchRe(reList), r.handleList},
	}
	return r
}

// Dispatch routes one inbound message. Messages from the bot itself and
// unrecognized text are ignored.
func (r *Router) Dispatch(ctx context.Context, msg Inbound) {
	if msg.FromSelf {
		return
	}
	text := strings.TrimSpace(msg.Text)
	if text == "" {
		return
	}
	for _, rt := range r.routes {
		if rt.match(msg.ChatID, text) {
			rt.handle(ctx, msg.ChatID, text)
			return
		}
	}
}

func matchRe(res ...*regexp.Regexp) func(int64, string) bool {
	return func(_ int64, text string) bool {
		for _, re := range res {
			if re.MatchString(text) {
				return true
			}
		}
		return false
	}
}

func (r *Router) matchPending(kinds ...session.Kind) func(int64, string) bool {
	return func(chatID int64, _ string) bool {
		op := r.pending.Get(chatID)
		if op == nil {
			return false
		}
		for _, k := range kinds {
			if op.Kind == k {
				return true
			}
		}
		return false
	}
}

// ---- delete all -------------------------------------------------------

func (r *Router) handleDeleteAllConfirm(ctx context.Context, chatID int64, text string) {
	r.pending.Clear(chatID)
	if affirmative(text) {
		_ = r.lifecycle.DeleteAll(ctx, chatID)
		return
	}
	r.send(chatID, msgCancelled)
}

func (r *Router) handleDeleteAllCommand(ctx context.Context, chatID int64, _ string) {
	r.pending.SetWithTTL(chatID, &session.Operation{Kind: session.AwaitingDeleteAllConfirm}, deleteAllConfirmTTL)
	r.send(chatID, "⚠️ ¿Estás seguro que deseas eliminar *todos* tus recordatorios?\n"+
		"Escribe *sí* para confirmar o cualquier otra cosa para cancelar.")
}

// ---- edit -------------------------------------------------------------

func (r *Router) handleEditStep(ctx context.Context, chatID int64, text string) {
	op := r.pending.Get(chatID)
	if op == nil {
		return
	}
	switch op.Kind {
	case session.AwaitingEditID:
		id, err := strconv.ParseInt(text, 10, 64)
		if err != nil || !containsID(op.Candidates, id) {
			// Invalid id cancels the flow, same as the delete flow.
			r.pending.Clear(chatID)
			r.send(chatID, "❌ ID no válido. El proceso de edición fue cancelado. Vuelve a empezar con !editar")
			return
		}
		r.pending.Set(chatID, &session.Operation{Kind: session.AwaitingEditText, ReminderID: id})
		r.send(chatID, fmt.Sprintf("✏️ Has seleccionado el #%d. Ahora envía el nuevo texto (y opcionalmente fecha):", id))
	case session.AwaitingEditText:
		r.pending.Clear(chatID)
		_ = r.lifecycle.Edit(ctx, op.ReminderID, chatID, text)
	}
}

func (r *Router) handleEditCommand(ctx context.Context, chatID int64, text string) {
	if m := reEditInline.FindStringSubmatch(text); m != nil {
		id, _ := strconv.ParseInt(m[1], 10, 64)
		newText := strings.TrimSpace(m[2])
		if newText == "" {
			r.send(chatID, "❌ Usa !editar <id> <nuevo texto con o sin fecha>")
			return
		}
		_ = r.lifecycle.Edit(ctx, id, chatID, newText)
		return
	}

	rows, err := r.lifecycle.ActiveReminders(ctx, chatID)
	if err != nil {
		r.send(chatID, msgStorage)
		return
	}
	if len(rows) == 0 {
		r.send(chatID, msgNoReminders)
		return
	}

	reply, ids := renderIDList("📋 *Tus recordatorios:*", rows)
	r.pending.Set(chatID, &session.Operation{Kind: session.AwaitingEditID, Candidates: ids})
	r.send(chatID, reply+"\n\n🖋️ Envía el *ID* del recordatorio que quieres editar:")
}

// ---- delete one -------------------------------------------------------

func (r *Router) handleDeleteStep(ctx context.Context, chatID int64, text string) {
	op := r.pending.Get(chatID)
	if op == nil {
		return
	}
	switch op.Kind {
	case session.AwaitingDeleteID:
		id, err := strconv.ParseInt(text, 10, 64)
		if err != nil || !containsID(op.Candidates, id) {
			r.pending.Clear(chatID)
			r.send(chatID, "❌ ID inválido. El proceso de eliminación fue cancelado.")
			return
		}
		r.pending.Set(chatID, &session.Operation{Kind: session.AwaitingDeleteConfirm, ReminderID: id})
		r.send(chatID, deleteConfirmPrompt(id))
	case session.AwaitingDeleteConfirm:
		r.pending.Clear(chatID)
		if affirmative(text) {
			_ = r.lifecycle.DeleteOne(ctx, op.ReminderID, chatID)
			return
		}
		r.send(chatID, msgCancelled)
	}
}

func (r *Router) handleDeleteCommand(ctx context.Context, chatID int64, text string) {
	if m := reDeleteID.FindStringSubmatch(text); m != nil {
		// Inline id skips the selection step; ownership is resolved at
		// delete time.
		id, _ := strconv.ParseInt(m[1], 10, 64)
		r.pending.Set(chatID, &session.Operation{Kind: session.AwaitingDeleteConfirm, ReminderID: id})
		r.send(chatID, deleteConfirmPrompt(id))
		return
	}

	rows, err := r.lifecycle.ActiveReminders(ctx, chatID)
	if err != nil {
		r.send(chatID, msgStorage)
		return
	}
	if len(rows) == 0 {
		r.send(chatID, msgNoReminders)
		return
	}

	reply, ids := renderIDList("📋 *Tus recordatorios activos:*", rows)
	r.pending.Set(chatID, &session.Operation{Kind: session.AwaitingDeleteID, Candidates: ids})
	r.send(chatID, reply+"\n\n✏️ Envía el *ID* del recordatorio que deseas eliminar:")
}

func deleteConfirmPrompt(id int64) string {
	return fmt.Sprintf("⚠️ ¿Estás seguro de eliminar el recordatorio #%d?\n"+
		"Responde con *sí* para confirmar o cualquier otra cosa para cancelar.", id)
}

// ---- recurring confirm ------------------------------------------------

func (r *Router) handleRecurringConfirm(ctx context.Context, chatID int64, text string) {
	op := r.pending.Get(chatID)
	if op == nil {
		return
	}
	r.pending.Clear(chatID)
	if negative(text) {
		_ = r.lifecycle.Deactivate(ctx, op.ReminderID, chatID)
		return
	}
	r.send(chatID, "✅ Perfecto, seguirás recibiendo este recordatorio.")
}

// ---- single-shot commands ---------------------------------------------

func (r *Router) handlePing(_ context.Context, chatID int64, _ string) {
	r.send(chatID, "¡Pong! 🏓")
}

func (r *Router) handleCreate(ctx context.Context, chatID int64, text string) {
	_ = r.lifecycle.Create(ctx, chatID, text)
}

func (r *Router) handleList(ctx context.Context, chatID int64, _ string) {
	_ = r.lifecycle.List(ctx, chatID)
}

func renderIDList(header string, rows []*models.Reminder) (string, []int64) {
	var sb strings.Builder
	sb.WriteString(header)
	ids := make([]int64, 0, len(rows))
	for _, row := range rows {
		fmt.Fprintf(&sb, "\n🆔 %d — %s", row.ID, row.Message)
		ids = append(ids, row.ID)
	}
	return sb.String(), ids
}

func containsID(ids []int64, id int64) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func (r *Router) send(chatID int64, text string) {
	if err := r.messenger.Send(chatID, text); err != nil {
		log.Printf("Failed to send message to chat %d: %v", chatID, err)
	}
}
