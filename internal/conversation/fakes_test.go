package conversation

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/gratefultolord/insurance_bot/internal/models"
	"github.com/gratefultolord/insurance_bot/internal/state"
)

type outbound struct {
	kind      string
	chatID    int64
	messageID int
	text      string
	buttons   []Button
	keyboard  []string
	path      string
	fileFound bool
}

type answered struct {
	id   string
	text string
}

type fakeMessenger struct {
	mu          sync.Mutex
	sent        []outbound
	answers     []answered
	documentErr error
}

func (m *fakeMessenger) record(o outbound) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, o)
	return nil
}

func (m *fakeMessenger) SendText(chatID int64, text string) error {
	return m.record(outbound{kind: "text", chatID: chatID, text: text})
}

func (m *fakeMessenger) SendReplyKeyboard(chatID int64, text string, buttons ...string) error {
	return m.record(outbound{kind: "keyboard", chatID: chatID, text: text, keyboard: buttons})
}

func (m *fakeMessenger) SendInlineButtons(chatID int64, text string, buttons ...Button) error {
	return m.record(outbound{kind: "buttons", chatID: chatID, text: text, buttons: buttons})
}

func (m *fakeMessenger) EditText(chatID int64, messageID int, text string) error {
	return m.record(outbound{kind: "edit", chatID: chatID, messageID: messageID, text: text})
}

func (m *fakeMessenger) AnswerCallback(callbackID, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.answers = append(m.answers, answered{id: callbackID, text: text})
	return nil
}

func (m *fakeMessenger) SendDocument(chatID int64, path string) error {
	_, statErr := os.Stat(path)
	_ = m.record(outbound{kind: "document", chatID: chatID, path: path, fileFound: statErr == nil})
	return m.documentErr
}

func (m *fakeMessenger) reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = nil
	m.answers = nil
}

func (m *fakeMessenger) messages() []outbound {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]outbound(nil), m.sent...)
}

func (m *fakeMessenger) last() outbound {
	msgs := m.messages()
	if len(msgs) == 0 {
		return outbound{}
	}
	return msgs[len(msgs)-1]
}

func (m *fakeMessenger) texts() []string {
	var out []string
	for _, o := range m.messages() {
		out = append(out, o.text)
	}
	return out
}

func (m *fakeMessenger) lastAnswer() answered {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.answers) == 0 {
		return answered{}
	}
	return m.answers[len(m.answers)-1]
}

type fakeFiles struct {
	dir         string
	downloadErr error
	deleted     []string
}

func (f *fakeFiles) Download(_ context.Context, fileID string) ([]byte, error) {
	if f.downloadErr != nil {
		return nil, f.downloadErr
	}
	return []byte("image:" + fileID), nil
}

func (f *fakeFiles) NewPath(prefix, ext string) string {
	return filepath.Join(f.dir, prefix+"_"+time.Now().Format("150405.000000000")+ext)
}

func (f *fakeFiles) DeleteFile(path string) error {
	f.deleted = append(f.deleted, path)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

type fakeExtractor struct {
	mu            sync.Mutex
	passport      *models.Passport
	passportErr   error
	vehicles      []*models.Vehicle
	vehicleErr    error
	block         bool
	passportCalls int
	vehicleCalls  int
	images        []string
}

func (e *fakeExtractor) ExtractPassport(ctx context.Context, image []byte) (*models.Passport, error) {
	e.mu.Lock()
	e.passportCalls++
	e.images = append(e.images, string(image))
	block := e.block
	e.mu.Unlock()

	if block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if e.passportErr != nil {
		return nil, e.passportErr
	}
	p := *e.passport
	return &p, nil
}

func (e *fakeExtractor) ExtractVehicle(ctx context.Context, image []byte) (*models.Vehicle, error) {
	e.mu.Lock()
	e.vehicleCalls++
	e.images = append(e.images, string(image))
	block := e.block
	var v *models.Vehicle
	if len(e.vehicles) > 0 {
		v, e.vehicles = e.vehicles[0], e.vehicles[1:]
	}
	e.mu.Unlock()

	if block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if e.vehicleErr != nil {
		return nil, e.vehicleErr
	}
	if v == nil {
		return nil, errors.New("no scripted vehicle")
	}
	return v, nil
}

func (e *fakeExtractor) calls() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.passportCalls + e.vehicleCalls
}

// fakeGenerator echoes the prompt so assertions can tell which instruction was used.
type fakeGenerator struct {
	mu      sync.Mutex
	err     error
	prompts []string
	systems []string
}

func (g *fakeGenerator) Generate(_ context.Context, system, prompt string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.systems = append(g.systems, system)
	g.prompts = append(g.prompts, prompt)
	if g.err != nil {
		return "", g.err
	}
	return "AI: " + prompt, nil
}

type fakeRenderer struct {
	err   error
	texts []string
}

func (r *fakeRenderer) Render(text, path string) error {
	r.texts = append(r.texts, text)
	if r.err != nil {
		return r.err
	}
	return os.WriteFile(path, []byte("%PDF-1.3 "+text), 0o600)
}

type fakeLedger struct {
	policies []models.IssuedPolicy
	err      error
	// prior is added to the recorded policies by CountByTelegramUserID.
	prior    int
	countErr error
}

func (l *fakeLedger) Record(_ context.Context, p models.IssuedPolicy) error {
	l.policies = append(l.policies, p)
	return l.err
}

func (l *fakeLedger) CountByTelegramUserID(_ context.Context, telegramUserID int64) (int, error) {
	if l.countErr != nil {
		return 0, l.countErr
	}

	n := l.prior
	for _, p := range l.policies {
		if p.UserID == telegramUserID && l.err == nil {
			n++
		}
	}
	return n, nil
}

const (
	testUser int64 = 1001
	testChat int64 = 2002
)

type harness struct {
	t         *testing.T
	ctrl      *Controller
	store     *state.MemoryStore
	messenger *fakeMessenger
	files     *fakeFiles
	extractor *fakeExtractor
	copy      *fakeGenerator
	writer    *fakeGenerator
	renderer  *fakeRenderer
	ledger    *fakeLedger
}

func newHarness(t *testing.T, mutate ...func(*Dependencies)) *harness {
	t.Helper()

	h := &harness{
		t:         t,
		store:     state.NewMemoryStore(0),
		messenger: &fakeMessenger{},
		files:     &fakeFiles{dir: t.TempDir()},
		extractor: &fakeExtractor{
			passport: &models.Passport{Surname: "DOE", GivenNames: []string{"John"}, BirthDate: "1990-05-14"},
		},
		copy:     &fakeGenerator{},
		writer:   &fakeGenerator{},
		renderer: &fakeRenderer{},
		ledger:   &fakeLedger{},
	}

	deps := Dependencies{
		Messenger:       h.messenger,
		Store:           h.store,
		Files:           h.files,
		Extractor:       h.extractor,
		Copywriter:      h.copy,
		PolicyWriter:    h.writer,
		Renderer:        h.renderer,
		Ledger:          h.ledger,
		PriceUSD:        100,
		Now:             func() time.Time { return time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC) },
		NewPolicyNumber: func() string { return "POL-0001" },
	}
	for _, m := range mutate {
		m(&deps)
	}

	ctrl, err := New(deps)
	require.NoError(t, err)
	h.ctrl = ctrl

	return h
}

func (h *harness) handle(ev Event) {
	h.t.Helper()
	if ev.UserID == 0 {
		ev.UserID = testUser
	}
	if ev.ChatID == 0 {
		ev.ChatID = testChat
	}
	h.ctrl.Handle(context.Background(), ev)
}

func (h *harness) command(cmd string) { h.handle(Event{Kind: EventCommand, Command: cmd}) }
func (h *harness) text(text string)   { h.handle(Event{Kind: EventText, Text: text}) }
func (h *harness) photo(id string)    { h.handle(Event{Kind: EventPhoto, PhotoFileID: id}) }

func (h *harness) press(data string) {
	h.handle(Event{Kind: EventCallback, CallbackID: "cb-" + data, CallbackData: data, MessageID: 77})
}

func (h *harness) session() models.Session {
	h.t.Helper()
	sess, err := h.store.Get(context.Background(), testUser)
	require.NoError(h.t, err)
	return sess
}

func (h *harness) setSession(sess models.Session) {
	h.t.Helper()
	require.NoError(h.t, h.store.Save(context.Background(), testUser, sess))
}

func containsText(texts []string, part string) bool {
	for _, text := range texts {
		if strings.Contains(text, part) {
			return true
		}
	}
	return false
}
