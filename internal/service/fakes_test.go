package service

import (
	"context"
	"database/sql"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/warnet-bowar/internal/model"
	"github.com/iliyamo/warnet-bowar/internal/queue"
	"github.com/iliyamo/warnet-bowar/internal/repository"
)

// --- in-memory database shared by the fake stores ---

type pcKey struct {
	warnet uint64
	number uint32
}

type memState struct {
	nextID   uint64
	warnets  map[uint64]model.Warnet
	rules    map[uint64][]model.WarnetRule
	users    map[uint64]model.User
	bookings map[uint64]model.Booking
	wallets  map[uint64]model.CafeWallet
	ledger   map[uint64]model.BowarTransaction
	pcs      map[pcKey]model.PC
	chats    []model.ChatMessage
}

func newMemState() *memState {
	return &memState{
		nextID:   100,
		warnets:  map[uint64]model.Warnet{},
		rules:    map[uint64][]model.WarnetRule{},
		users:    map[uint64]model.User{},
		bookings: map[uint64]model.Booking{},
		wallets:  map[uint64]model.CafeWallet{},
		ledger:   map[uint64]model.BowarTransaction{},
		pcs:      map[pcKey]model.PC{},
	}
}

func (s *memState) id() uint64 {
	s.nextID++
	return s.nextID
}

func (s *memState) clone() *memState {
	c := *s
	c.warnets = cloneMap(s.warnets)
	c.rules = cloneMap(s.rules)
	c.users = cloneMap(s.users)
	c.bookings = cloneMap(s.bookings)
	c.wallets = cloneMap(s.wallets)
	c.ledger = cloneMap(s.ledger)
	c.pcs = cloneMap(s.pcs)
	c.chats = append([]model.ChatMessage(nil), s.chats...)
	return &c
}

func cloneMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (s *memState) walletOf(userID, warnetID uint64) (model.CafeWallet, bool) {
	for _, w := range s.wallets {
		if w.UserID == userID && w.WarnetID == warnetID {
			return w, true
		}
	}
	return model.CafeWallet{}, false
}

func (s *memState) ledgerOf(typ string) []model.BowarTransaction {
	out := make([]model.BowarTransaction, 0)
	for _, t := range s.ledger {
		if t.Type == typ {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// fakeTx restores the state snapshot when fn fails, mirroring a rollback.
type fakeTx struct {
	st      *memState
	commits int
	rolls   int
}

func (f *fakeTx) WithinTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	snap := f.st.clone()
	if err := fn(nil); err != nil {
		*f.st = *snap
		f.rolls++
		return err
	}
	f.commits++
	return nil
}

// --- stores ---

type fakeBookings struct{ st *memState }

func (f fakeBookings) CreateTx(ctx context.Context, tx *sql.Tx, b *model.Booking) error {
	b.ID = f.st.id()
	f.st.bookings[b.ID] = *b
	return nil
}

func (f fakeBookings) GetByID(ctx context.Context, id uint64) (*model.Booking, error) {
	b, ok := f.st.bookings[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &b, nil
}

func (f fakeBookings) GetByIDForUpdateTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.Booking, error) {
	return f.GetByID(ctx, id)
}

func (f fakeBookings) MarkPaidTx(ctx context.Context, tx *sql.Tx, id uint64, approvedBy *uint64, at time.Time) error {
	b, ok := f.st.bookings[id]
	if !ok || b.Status != model.BookingPending || b.PaymentStatus != model.PaymentPending {
		return repository.ErrConflict
	}
	b.Status, b.PaymentStatus, b.ApprovedBy, b.ApprovedAt = model.BookingActive, model.PaymentPaid, approvedBy, &at
	f.st.bookings[id] = b
	return nil
}

func (f fakeBookings) MarkRejectedTx(ctx context.Context, tx *sql.Tx, id, rejectedBy uint64, note *string, at time.Time) error {
	b, ok := f.st.bookings[id]
	if !ok || b.Status != model.BookingPending || b.PaymentStatus != model.PaymentPending {
		return repository.ErrConflict
	}
	b.Status, b.PaymentStatus, b.ApprovedBy, b.RejectionNote = model.BookingCancelled, model.PaymentRejected, &rejectedBy, note
	b.ApprovedAt, b.CancelledAt = &at, &at
	f.st.bookings[id] = b
	return nil
}

func (f fakeBookings) CancelTx(ctx context.Context, tx *sql.Tx, id uint64, at time.Time) error {
	b, ok := f.st.bookings[id]
	if !ok || b.IsTerminal() {
		return repository.ErrConflict
	}
	b.Status, b.CancelledAt = model.BookingCancelled, &at
	f.st.bookings[id] = b
	return nil
}

func (f fakeBookings) CompleteTx(ctx context.Context, tx *sql.Tx, id uint64, at time.Time) error {
	b, ok := f.st.bookings[id]
	if !ok || b.Status != model.BookingActive {
		return repository.ErrConflict
	}
	b.Status, b.CompletedAt = model.BookingCompleted, &at
	f.st.bookings[id] = b
	return nil
}

func (f fakeBookings) List(ctx context.Context, flt repository.BookingFilter) ([]model.Booking, int, error) {
	out := make([]model.Booking, 0)
	for _, b := range f.st.bookings {
		if flt.UserID != nil && b.UserID != *flt.UserID {
			continue
		}
		if flt.WarnetID != nil && b.WarnetID != *flt.WarnetID {
			continue
		}
		if flt.Status != "" && b.Status != flt.Status {
			continue
		}
		if flt.PaymentStatus != "" && b.PaymentStatus != flt.PaymentStatus {
			continue
		}
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, len(out), nil
}

type fakeWallets struct{ st *memState }

func (f fakeWallets) ListByUser(ctx context.Context, userID uint64) ([]repository.WalletView, error) {
	out := make([]repository.WalletView, 0)
	for _, w := range f.st.wallets {
		if w.UserID == userID {
			out = append(out, repository.WalletView{CafeWallet: w, WarnetName: f.st.warnets[w.WarnetID].Name})
		}
	}
	return out, nil
}

func (f fakeWallets) GetForUpdateTx(ctx context.Context, tx *sql.Tx, userID, warnetID uint64) (*model.CafeWallet, error) {
	w, ok := f.st.walletOf(userID, warnetID)
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &w, nil
}

func (f fakeWallets) EnsureForUpdateTx(ctx context.Context, tx *sql.Tx, userID, warnetID uint64) (*model.CafeWallet, error) {
	if _, ok := f.st.walletOf(userID, warnetID); !ok {
		id := f.st.id()
		f.st.wallets[id] = model.CafeWallet{ID: id, UserID: userID, WarnetID: warnetID, Balance: decimal.Zero}
	}
	return f.GetForUpdateTx(ctx, tx, userID, warnetID)
}

func (f fakeWallets) DebitTx(ctx context.Context, tx *sql.Tx, walletID uint64, amount decimal.Decimal) error {
	w, ok := f.st.wallets[walletID]
	if !ok || w.Balance.LessThan(amount) {
		return repository.ErrInsufficientBalance
	}
	w.Balance = w.Balance.Sub(amount)
	f.st.wallets[walletID] = w
	return nil
}

func (f fakeWallets) CreditTx(ctx context.Context, tx *sql.Tx, walletID uint64, amount decimal.Decimal) error {
	w, ok := f.st.wallets[walletID]
	if !ok {
		return repository.ErrNotFound
	}
	w.Balance = w.Balance.Add(amount)
	f.st.wallets[walletID] = w
	return nil
}

type fakeLedger struct{ st *memState }

func (f fakeLedger) Create(ctx context.Context, t *model.BowarTransaction) error {
	t.ID = f.st.id()
	f.st.ledger[t.ID] = *t
	return nil
}

func (f fakeLedger) CreateTx(ctx context.Context, tx *sql.Tx, t *model.BowarTransaction) error {
	return f.Create(ctx, t)
}

func (f fakeLedger) GetByID(ctx context.Context, id uint64) (*model.BowarTransaction, error) {
	t, ok := f.st.ledger[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &t, nil
}

func (f fakeLedger) GetByIDForUpdateTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.BowarTransaction, error) {
	return f.GetByID(ctx, id)
}

func (f fakeLedger) FindBookingPaymentTx(ctx context.Context, tx *sql.Tx, bookingID uint64) (*model.BowarTransaction, error) {
	for _, t := range f.st.ledger {
		if t.BookingID != nil && *t.BookingID == bookingID && t.Type == model.TxPayment && t.Status == model.TxCompleted {
			return &t, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f fakeLedger) CompleteTx(ctx context.Context, tx *sql.Tx, id, approvedBy uint64, at time.Time) error {
	t, ok := f.st.ledger[id]
	if !ok || t.Status != model.TxPending {
		return repository.ErrConflict
	}
	t.Status, t.ApprovedBy, t.ApprovedAt = model.TxCompleted, &approvedBy, &at
	f.st.ledger[id] = t
	return nil
}

func (f fakeLedger) FailTx(ctx context.Context, tx *sql.Tx, id, rejectedBy uint64, note *string, at time.Time) error {
	t, ok := f.st.ledger[id]
	if !ok || t.Status != model.TxPending {
		return repository.ErrConflict
	}
	t.Status, t.ApprovedBy, t.ApprovedAt, t.RejectionNote = model.TxFailed, &rejectedBy, &at, note
	f.st.ledger[id] = t
	return nil
}

func (f fakeLedger) List(ctx context.Context, flt repository.TransactionFilter) ([]model.BowarTransaction, int, error) {
	out := make([]model.BowarTransaction, 0)
	for _, t := range f.st.ledger {
		if flt.UserID != nil && t.UserID != *flt.UserID {
			continue
		}
		if flt.WarnetID != nil && t.WarnetID != *flt.WarnetID {
			continue
		}
		out = append(out, t)
	}
	return out, len(out), nil
}

type fakePCs struct{ st *memState }

func (f fakePCs) ListByWarnet(ctx context.Context, warnetID uint64) ([]model.PC, error) {
	out := make([]model.PC, 0)
	for k, p := range f.st.pcs {
		if k.warnet == warnetID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PCNumber < out[j].PCNumber })
	return out, nil
}

func (f fakePCs) GetTx(ctx context.Context, tx *sql.Tx, warnetID uint64, n uint32) (*model.PC, error) {
	p, ok := f.st.pcs[pcKey{warnetID, n}]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &p, nil
}

func (f fakePCs) OccupyTx(ctx context.Context, tx *sql.Tx, warnetID uint64, n uint32, bookingID uint64) error {
	p := f.st.pcs[pcKey{warnetID, n}]
	p.WarnetID, p.PCNumber, p.Status, p.CurrentBookingID = warnetID, n, model.PCOccupied, &bookingID
	f.st.pcs[pcKey{warnetID, n}] = p
	return nil
}

func (f fakePCs) ReleaseTx(ctx context.Context, tx *sql.Tx, warnetID uint64, n uint32, bookingID uint64) (bool, error) {
	p, ok := f.st.pcs[pcKey{warnetID, n}]
	if !ok || p.CurrentBookingID == nil || *p.CurrentBookingID != bookingID {
		return false, nil
	}
	p.Status, p.CurrentBookingID = model.PCAvailable, nil
	f.st.pcs[pcKey{warnetID, n}] = p
	return true, nil
}

type fakeWarnets struct{ st *memState }

func (f fakeWarnets) List(ctx context.Context, search string) ([]repository.WarnetSummary, error) {
	out := make([]repository.WarnetSummary, 0)
	for _, w := range f.st.warnets {
		out = append(out, repository.WarnetSummary{Warnet: w, AvailablePCs: int(w.TotalPCs)})
	}
	return out, nil
}

func (f fakeWarnets) GetByID(ctx context.Context, id uint64) (*model.Warnet, error) {
	w, ok := f.st.warnets[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &w, nil
}

func (f fakeWarnets) Rules(ctx context.Context, warnetID uint64) ([]model.WarnetRule, error) {
	return append([]model.WarnetRule{}, f.st.rules[warnetID]...), nil
}

type fakeUsers struct{ st *memState }

func (f fakeUsers) GetByID(ctx context.Context, id uint64) (*model.User, error) {
	u, ok := f.st.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &u, nil
}

type fakeChats struct{ st *memState }

func (f fakeChats) Create(ctx context.Context, m *model.ChatMessage) error {
	m.ID = f.st.id()
	m.CreatedAt = time.Date(2026, 10, 18, 12, 0, int(m.ID%60), 0, time.UTC)
	f.st.chats = append(f.st.chats, *m)
	return nil
}

func (f fakeChats) ListThread(ctx context.Context, userID, warnetID uint64, limit int) ([]model.ChatMessage, error) {
	out := make([]model.ChatMessage, 0)
	for _, m := range f.st.chats {
		if m.UserID == userID && m.WarnetID == warnetID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (f fakeChats) MarkRead(ctx context.Context, userID, warnetID uint64, senderRole string) (int64, error) {
	var n int64
	for i, m := range f.st.chats {
		if m.UserID == userID && m.WarnetID == warnetID && m.SenderRole == senderRole && !m.IsRead {
			f.st.chats[i].IsRead = true
			n++
		}
	}
	return n, nil
}

func (f fakeChats) Conversations(ctx context.Context, warnetID uint64) ([]model.Conversation, error) {
	last := map[uint64]model.Conversation{}
	for _, m := range f.st.chats {
		if m.WarnetID != warnetID {
			continue
		}
		cv := last[m.UserID]
		cv.UserID, cv.UserName = m.UserID, f.st.users[m.UserID].Name
		cv.LastMessage, cv.LastSender, cv.LastMessageAt = m.Message, m.SenderRole, m.CreatedAt
		if m.SenderRole == model.RoleUser && !m.IsRead {
			cv.UnreadCount++
		}
		last[m.UserID] = cv
	}
	out := make([]model.Conversation, 0, len(last))
	for _, cv := range last {
		out = append(out, cv)
	}
	return out, nil
}

// --- publisher ---

type recordingPublisher struct {
	mu     sync.Mutex
	events []queue.ActivityEvent
}

func (p *recordingPublisher) Publish(ctx context.Context, ev queue.ActivityEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, ev := range p.events {
		out = append(out, ev.Type)
	}
	return out
}

// --- fixture ---

const (
	warnetA  = uint64(1)
	warnetB  = uint64(2)
	userBudi = uint64(10)
	userSiti = uint64(11)
	opA      = uint64(20)
	opB      = uint64(21)
)

type fixture struct {
	st      *memState
	tx      *fakeTx
	pub     *recordingPublisher
	clock   time.Time
	booking *BookingService
	wallet  *WalletService
	chat    *ChatService
	warnet  *WarnetService
}

func rp(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func newFixture() *fixture {
	st := newMemState()
	for _, id := range []uint64{warnetA, warnetB} {
		st.warnets[id] = model.Warnet{
			ID: id, Name: map[uint64]string{warnetA: "Warnet Bowar", warnetB: "Warnet Sebelah"}[id],
			TotalPCs: 10, RegularPricePerHour: rp(10000), MemberPricePerHour: rp(8000), IsActive: true,
		}
	}
	a, b := warnetA, warnetB
	st.users[userBudi] = model.User{ID: userBudi, Name: "Budi", Role: model.RoleUser}
	st.users[userSiti] = model.User{ID: userSiti, Name: "Siti", Role: model.RoleUser, MemberWarnetID: &a}
	st.users[opA] = model.User{ID: opA, Name: "Op A", Role: model.RoleOperator, WarnetID: &a}
	st.users[opB] = model.User{ID: opB, Name: "Op B", Role: model.RoleOperator, WarnetID: &b}

	f := &fixture{
		st:    st,
		tx:    &fakeTx{st: st},
		pub:   &recordingPublisher{},
		clock: time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC),
	}
	now := func() time.Time { return f.clock }
	f.booking = NewBookingService(BookingDeps{
		Tx: f.tx, Bookings: fakeBookings{st}, Wallets: fakeWallets{st}, Ledger: fakeLedger{st},
		PCs: fakePCs{st}, Warnets: fakeWarnets{st}, Users: fakeUsers{st},
		Publisher: f.pub, CancelWindow: 2 * time.Minute, Now: now,
	})
	f.wallet = NewWalletService(WalletDeps{
		Tx: f.tx, Wallets: fakeWallets{st}, Ledger: fakeLedger{st}, Bookings: fakeBookings{st},
		Warnets: fakeWarnets{st}, Users: fakeUsers{st}, Publisher: f.pub, Now: now,
	})
	f.chat = NewChatService(fakeChats{st}, fakeWarnets{st}, fakeUsers{st})
	f.warnet = NewWarnetService(fakeWarnets{st}, fakePCs{st})
	return f
}

// fund gives the user a wallet at the warnet with the balance.
func (f *fixture) fund(userID, warnetID uint64, balance int64) uint64 {
	id := f.st.id()
	f.st.wallets[id] = model.CafeWallet{ID: id, UserID: userID, WarnetID: warnetID, Balance: rp(balance)}
	return id
}

func (f *fixture) balance(userID, warnetID uint64) decimal.Decimal {
	w, ok := f.st.walletOf(userID, warnetID)
	if !ok {
		return decimal.Zero
	}
	return w.Balance
}

func asUser(id uint64) model.Identity { return model.Identity{UserID: id, Role: model.RoleUser} }

func operator(id, warnetID uint64) model.Identity {
	w := warnetID
	return model.Identity{UserID: id, Role: model.RoleOperator, WarnetID: &w}
}

func walletBooking(warnetID uint64, pc, hours int) CreateBookingInput {
	return CreateBookingInput{
		WarnetID: warnetID, PCNumber: pc, BookingDate: "2026-10-18", StartTime: "13:00",
		DurationHours: hours, PaymentMethod: model.MethodDompetBowar,
	}
}

func transferBooking(warnetID uint64, pc, hours int) CreateBookingInput {
	proof := "/uploads/payments/proof.png"
	return CreateBookingInput{
		WarnetID: warnetID, PCNumber: pc, BookingDate: "2026-10-18", StartTime: "13:00",
		DurationHours: hours, PaymentMethod: model.MethodBankTransfer, PayerName: "Budi", ProofURL: &proof,
	}
}
