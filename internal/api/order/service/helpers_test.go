package orderService

import (
	"QahwaBot/internal/api/order"
	orderRepository "QahwaBot/internal/api/order/repository"
	"QahwaBot/internal/entity"
	"QahwaBot/pkg/gemini"
	"QahwaBot/pkg/openai"
	"QahwaBot/pkg/utils"
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return log
}

func testMenu() entity.Menu {
	now := time.Now()
	return entity.Menu{
		Categories: []entity.Category{
			{ID: "cat-hot", NameEN: "Hot Drinks", NameAR: "مشروبات ساخنة", Position: 1},
			{ID: "cat-cold", NameEN: "Cold Drinks", NameAR: "مشروبات باردة", Position: 2},
		},
		SubCategories: []entity.SubCategory{
			{ID: "sub-coffee", CategoryID: "cat-hot", NameEN: "Coffee", NameAR: "قهوة", Position: 1},
			{ID: "sub-tea", CategoryID: "cat-hot", NameEN: "Tea", NameAR: "شاي", Position: 2},
		},
		Items: []entity.MenuItem{
			{ID: "itm-latte", CategoryID: "cat-hot", SubCategoryID: "sub-coffee", NameEN: "Latte", NameAR: "لاتيه", Price: 15, Available: true},
			{ID: "itm-espresso", CategoryID: "cat-hot", SubCategoryID: "sub-coffee", NameEN: "Espresso", NameAR: "اسبريسو", Price: 10, Available: true},
			{ID: "itm-cappuccino", CategoryID: "cat-hot", SubCategoryID: "sub-coffee", NameEN: "Cappuccino", NameAR: "كابتشينو", Price: 16, Available: true},
			{ID: "itm-iced-tea", CategoryID: "cat-cold", SubCategoryID: "", NameEN: "Iced Tea", NameAR: "شاي مثلج", Price: 12, Available: true},
		},
		LoadedAt: now,
	}
}

// fakeClassifier plays the Gemini side of the resolver contract.
type fakeClassifier struct {
	out   string
	err   error
	calls int
}

func (f *fakeClassifier) ClassifyTurn(_ context.Context, _ gemini.ClassifyRequest) (string, error) {
	f.calls++
	return f.out, f.err
}

type fakeChatGPT struct {
	reply string
	err   error
}

func (f *fakeChatGPT) SmallTalkReply(_ context.Context, _, _ string, _ []openai.ConversationMessage) (string, error) {
	return f.reply, f.err
}

// fakeHistory is an in-memory stand-in for the Redis conversation buffer.
type fakeHistory struct {
	mu      sync.Mutex
	entries map[string][]string
}

func newFakeHistory() *fakeHistory {
	return &fakeHistory{entries: make(map[string][]string)}
}

func (f *fakeHistory) PushHistory(_ context.Context, phoneNumber, role, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries[phoneNumber] = append(f.entries[phoneNumber], role+": "+text)
	return nil
}

func (f *fakeHistory) GetHistory(_ context.Context, phoneNumber string, limit int) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	history := f.entries[phoneNumber]
	if len(history) > limit {
		history = history[len(history)-limit:]
	}
	return history, nil
}

func (f *fakeHistory) ClearHistory(_ context.Context, phoneNumber string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.entries, phoneNumber)
	return nil
}

// fakeRepo implements the repository against in-memory maps, with the same
// replace-on-conflict line semantics as the SQL layer.
type fakeRepo struct {
	mu       sync.Mutex
	sessions map[string]entity.Session
	orders   map[string]*entity.Order
	menu     entity.Menu
	menuErr  error

	writeErr      error
	writeFailures int
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		sessions: make(map[string]entity.Session),
		orders:   make(map[string]*entity.Order),
		menu:     testMenu(),
	}
}

// failNextWrites makes the next n order writes fail with err.
func (f *fakeRepo) failNextWrites(n int, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writeFailures = n
	f.writeErr = err
}

// takeWriteErr must be called with mu held.
func (f *fakeRepo) takeWriteErr() error {
	if f.writeFailures > 0 {
		f.writeFailures--
		return f.writeErr
	}
	return nil
}

func (f *fakeRepo) NewClient(_ bool) (orderRepository.Client, error) {
	return orderRepository.Client{
		Sessions: (*fakeSessions)(f),
		Orders:   (*fakeOrders)(f),
		Menu:     (*fakeMenus)(f),
		Commit:   func() error { return nil },
		Rollback: func() error { return nil },
	}, nil
}

type fakeSessions fakeRepo

func (f *fakeSessions) UpsertSession(_ context.Context, session entity.Session) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sessions[session.PhoneNumber] = session
	return nil
}

func (f *fakeSessions) GetSession(_ context.Context, phoneNumber string) (entity.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	sess, ok := f.sessions[phoneNumber]
	if !ok {
		return entity.Session{}, order.ErrSessionNotFound
	}
	return sess, nil
}

func (f *fakeSessions) DeleteSession(_ context.Context, phoneNumber string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.sessions[phoneNumber]; !ok {
		return order.ErrSessionNotFound
	}
	delete(f.sessions, phoneNumber)
	return nil
}

type fakeOrders fakeRepo

func (f *fakeOrders) GetOpenOrder(_ context.Context, phoneNumber string) (entity.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, o := range f.orders {
		if o.PhoneNumber == phoneNumber && o.Status == entity.OrderStatusOpen {
			cp := *o
			cp.Lines = append([]entity.OrderLine(nil), o.Lines...)
			return cp, nil
		}
	}
	return entity.Order{}, order.ErrOrderNotFound
}

func (f *fakeOrders) CreateOrder(_ context.Context, o entity.Order) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := (*fakeRepo)(f).takeWriteErr(); err != nil {
		return err
	}
	cp := o
	f.orders[o.ID] = &cp
	return nil
}

func (f *fakeOrders) UpsertLine(_ context.Context, line entity.OrderLine) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := (*fakeRepo)(f).takeWriteErr(); err != nil {
		return err
	}
	o, ok := f.orders[line.OrderID]
	if !ok {
		return order.ErrOrderNotFound
	}
	for i := range o.Lines {
		if o.Lines[i].ItemID == line.ItemID {
			o.Lines[i].Quantity = line.Quantity
			return nil
		}
	}
	line.Position = len(o.Lines) + 1
	o.Lines = append(o.Lines, line)
	return nil
}

func (f *fakeOrders) DeleteLine(_ context.Context, orderID, itemID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[orderID]
	if !ok {
		return order.ErrOrderNotFound
	}
	for i := range o.Lines {
		if o.Lines[i].ItemID == itemID {
			o.Lines = append(o.Lines[:i], o.Lines[i+1:]...)
			return nil
		}
	}
	return nil
}

func (f *fakeOrders) DeleteLastLine(_ context.Context, orderID string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[orderID]
	if !ok || len(o.Lines) == 0 {
		return "", order.ErrOrderNotFound
	}
	last := o.Lines[len(o.Lines)-1]
	o.Lines = o.Lines[:len(o.Lines)-1]
	return last.ItemID, nil
}

func (f *fakeOrders) SetServiceAndLocation(_ context.Context, orderID string, serviceType entity.ServiceType, location string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[orderID]
	if !ok {
		return order.ErrOrderNotFound
	}
	o.ServiceType = serviceType
	o.Location = location
	return nil
}

func (f *fakeOrders) SetStatus(_ context.Context, orderID string, status entity.OrderStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[orderID]
	if !ok {
		return order.ErrOrderNotFound
	}
	o.Status = status
	return nil
}

type fakeMenus fakeRepo

func (f *fakeMenus) LoadMenu(_ context.Context) (entity.Menu, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.menuErr != nil {
		return entity.Menu{}, f.menuErr
	}
	menu := f.menu
	menu.LoadedAt = time.Now()
	return menu, nil
}

var errClassifierDown = errors.New("classifier down")

// newTestService wires a full service over the fakes. The classifier may
// be nil to force the deterministic path.
func newTestService(t interface{ Cleanup(func()) }, repo *fakeRepo, classifier gemini.IGemini) *orderService {
	svc := New(testLogger(), repo, classifier, &fakeChatGPT{err: errors.New("offline")}, newFakeHistory(), utils.New()).(*orderService)
	t.Cleanup(svc.Close)
	return svc
}
