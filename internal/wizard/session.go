package wizard

import (
	"log/slog"
	"sync"
	"time"

	"github.com/getemily/emily-api/internal/models"
	"github.com/getemily/emily-api/internal/store"
)

// Manager owns wizard sessions: the live in-process copy, mirroring into
// durable storage after every mutation, and rehydration with resume on first
// load. Persistence is best effort; a failed write degrades the session to
// memory-only rather than failing the user's action.
type Manager struct {
	mu    sync.Mutex
	live  map[string]*models.WizardSession
	store store.Store
	cache store.SessionStore
}

// NewManager creates a session manager. cache may be nil; when present it is
// consulted before the durable store and written through on every mutation.
func NewManager(st store.Store, cache store.SessionStore) *Manager {
	slog.Debug("Creating wizard session Manager", "cache_enabled", cache != nil)
	return &Manager{
		live:  make(map[string]*models.WizardSession),
		store: st,
		cache: cache,
	}
}

func liveKey(accountID string, variant models.WizardVariant) string {
	return accountID + "/" + string(variant)
}

// Open returns the session for an account and variant, creating it with the
// variant's defaults when nothing is stored. On first load of a stored
// session the resume scan positions the user at the highest step holding
// data, unless they explicitly restarted. The returned session is a copy;
// the live one never leaves the lock.
func (m *Manager) Open(accountID string, variant models.WizardVariant) (*models.WizardSession, *Definition, error) {
	def, err := Lookup(variant)
	if err != nil {
		return nil, nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	sess := m.openLocked(accountID, def)
	return sess.Clone(), def, nil
}

// openLocked loads or creates the live session. Callers hold m.mu.
func (m *Manager) openLocked(accountID string, def *Definition) *models.WizardSession {
	key := liveKey(accountID, def.Variant)
	if sess, ok := m.live[key]; ok {
		return sess
	}

	sess := m.rehydrate(accountID, def)
	if sess == nil {
		now := time.Now()
		sess = &models.WizardSession{
			AccountID: accountID,
			Variant:   def.Variant,
			Answers:   def.Defaults(),
			CreatedAt: now,
			UpdatedAt: now,
		}
		slog.Debug("Manager.Open: created new session", "accountID", accountID, "variant", def.Variant)
	}
	m.live[key] = sess
	return sess
}

// rehydrate reads a stored session, preferring the cache. A read error or
// corrupt payload counts as no prior session. The resume scan runs here,
// once, and is suppressed by the manual-restart flag.
func (m *Manager) rehydrate(accountID string, def *Definition) *models.WizardSession {
	var sess *models.WizardSession
	if m.cache != nil {
		cached, err := m.cache.GetWizardSession(accountID, def.Variant)
		if err != nil {
			slog.Warn("Manager.rehydrate: cache read failed, falling back to store", "error", err, "accountID", accountID)
		} else {
			sess = cached
		}
	}
	if sess == nil {
		stored, err := m.store.GetWizardSession(accountID, def.Variant)
		if err != nil {
			slog.Warn("Manager.rehydrate: store read failed, treating as no prior session", "error", err, "accountID", accountID)
			return nil
		}
		sess = stored
	}
	if sess == nil {
		return nil
	}

	// The variant's default key set is authoritative: fill in any keys a
	// stored session from an older shape is missing.
	defaults := def.Defaults()
	if sess.Answers == nil {
		sess.Answers = defaults
	} else {
		for k, v := range defaults {
			if _, ok := sess.Answers[k]; !ok {
				sess.Answers[k] = v
			}
		}
	}
	if sess.Progress.CurrentStep < 0 || sess.Progress.CurrentStep > def.LastStep() {
		sess.Progress.CurrentStep = 0
	}

	if sess.ManualRestart {
		slog.Debug("Manager.rehydrate: manual restart set, skipping resume scan", "accountID", accountID, "variant", def.Variant)
		return sess
	}

	if hi := def.HighestStepWithData(sess.Answers); hi > sess.Progress.CurrentStep {
		// Rebuild the completed set from validators so resume never marks a
		// step completed that would not pass.
		for i := 0; i < hi; i++ {
			if def.Steps[i].Validate(sess.Answers) {
				sess.Progress.MarkCompleted(i)
			}
		}
		sess.Progress.CurrentStep = hi
		slog.Debug("Manager.rehydrate: resumed at highest step with data", "accountID", accountID, "variant", def.Variant, "step", hi)
	}
	return sess
}

// persist mirrors the session into the cache and the durable store. Failures
// are logged and swallowed; the live copy keeps serving the session.
func (m *Manager) persist(sess *models.WizardSession) {
	sess.UpdatedAt = time.Now()
	if m.cache != nil {
		if err := m.cache.SaveWizardSession(*sess); err != nil {
			slog.Warn("Manager.persist: cache write failed", "error", err, "accountID", sess.AccountID, "variant", sess.Variant)
		}
	}
	if err := m.store.SaveWizardSession(*sess); err != nil {
		slog.Warn("Manager.persist: durable write failed, session is memory-only", "error", err, "accountID", sess.AccountID, "variant", sess.Variant)
	}
}

// SetAnswers applies field updates and persists. Unknown fields are rejected
// without partial application.
func (m *Manager) SetAnswers(accountID string, variant models.WizardVariant, fields map[string]models.AnswerValue) (*models.WizardSession, error) {
	def, err := Lookup(variant)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	sess := m.openLocked(accountID, def)

	for field := range fields {
		if _, ok := sess.Answers[field]; !ok {
			slog.Warn("Manager.SetAnswers: unknown field rejected", "field", field, "variant", variant)
			return nil, models.ErrUnknownField
		}
	}
	for field, value := range fields {
		sess.Answers[field] = value
	}
	m.persist(sess)
	slog.Debug("Manager.SetAnswers: fields updated", "accountID", accountID, "variant", variant, "count", len(fields))
	return sess.Clone(), nil
}

// Advance runs the sequencer's advance and persists on success. A validation
// failure leaves both memory and storage untouched.
func (m *Manager) Advance(accountID string, variant models.WizardVariant) (*models.WizardSession, error) {
	def, err := Lookup(variant)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	sess := m.openLocked(accountID, def)

	if err := NewSequencer(def, sess).Advance(); err != nil {
		return nil, err
	}
	// Moving forward consumes a pending manual restart.
	sess.ManualRestart = false
	m.persist(sess)
	return sess.Clone(), nil
}

// Retreat moves back one step and persists.
func (m *Manager) Retreat(accountID string, variant models.WizardVariant) (*models.WizardSession, error) {
	def, err := Lookup(variant)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	sess := m.openLocked(accountID, def)

	NewSequencer(def, sess).Retreat()
	m.persist(sess)
	return sess.Clone(), nil
}

// GoTo jumps to a navigable step and persists. A locked step returns
// ErrStepLocked with no state change.
func (m *Manager) GoTo(accountID string, variant models.WizardVariant, step int) (*models.WizardSession, error) {
	def, err := Lookup(variant)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	sess := m.openLocked(accountID, def)

	if err := NewSequencer(def, sess).GoTo(step); err != nil {
		return nil, err
	}
	m.persist(sess)
	return sess.Clone(), nil
}

// Restart returns the user to step 0 explicitly. Answers and completed steps
// survive; the manual-restart flag keeps the next resume scan from bouncing
// the user forward again.
func (m *Manager) Restart(accountID string, variant models.WizardVariant) (*models.WizardSession, error) {
	def, err := Lookup(variant)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	sess := m.openLocked(accountID, def)

	sess.Progress.CurrentStep = 0
	sess.ManualRestart = true
	m.persist(sess)
	slog.Debug("Manager.Restart: session returned to step 0", "accountID", accountID, "variant", variant)
	return sess.Clone(), nil
}

// Clear removes the session everywhere: live copy, cache, and durable store.
// Called after successful submission.
func (m *Manager) Clear(accountID string, variant models.WizardVariant) error {
	def, err := Lookup(variant)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.live, liveKey(accountID, def.Variant))

	if m.cache != nil {
		if err := m.cache.DeleteWizardSession(accountID, def.Variant); err != nil {
			slog.Warn("Manager.Clear: cache delete failed", "error", err, "accountID", accountID, "variant", variant)
		}
	}
	if err := m.store.DeleteWizardSession(accountID, def.Variant); err != nil {
		slog.Error("Manager.Clear: durable delete failed", "error", err, "accountID", accountID, "variant", variant)
		return err
	}
	slog.Debug("Manager.Clear: session cleared", "accountID", accountID, "variant", variant)
	return nil
}
