//go:build !integration

package usecase

import (
	"context"
	"sync"
	"time"

	"github.com/amazingprincelee/backend-collabogig/internal/domain"
	"github.com/amazingprincelee/backend-collabogig/internal/domain/model"
	"github.com/amazingprincelee/backend-collabogig/internal/domain/ports/adapter"
	"github.com/amazingprincelee/backend-collabogig/internal/domain/ports/repository"

	"github.com/jackc/pgx/v4"
)

// --- in-memory repositories ---

type memPaymentRepo struct {
	mu   sync.Mutex
	byTx map[string]*model.Payment
}

func newMemPaymentRepo() *memPaymentRepo {
	return &memPaymentRepo{byTx: make(map[string]*model.Payment)}
}

func (m *memPaymentRepo) Create(ctx context.Context, tx repository.Tx, p *model.Payment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byTx[p.TransactionID]; ok {
		return domain.ErrDuplicateTransaction
	}
	cp := *p
	m.byTx[p.TransactionID] = &cp
	return nil
}

func (m *memPaymentRepo) FindByTransactionID(ctx context.Context, tx repository.Tx, transactionID string) (*model.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.byTx[transactionID]
	if !ok {
		return nil, domain.ErrPaymentNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *memPaymentRepo) UpdateStatusIfPending(ctx context.Context, tx repository.Tx, transactionID string, status model.PaymentStatus, settledAt *time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.byTx[transactionID]
	if !ok || p.Status != model.PaymentStatusPending {
		return false, nil
	}
	p.Status = status
	p.SettledAt = settledAt
	p.UpdatedAt = time.Now()
	return true, nil
}

func (m *memPaymentRepo) AttachUser(ctx context.Context, tx repository.Tx, transactionID, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.byTx[transactionID]
	if !ok {
		return domain.ErrPaymentNotFound
	}
	p.UserID = &userID
	return nil
}

func (m *memPaymentRepo) ListPendingOlderThan(ctx context.Context, tx repository.Tx, olderThan time.Time, limit int) ([]*model.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Payment
	for _, p := range m.byTx {
		if p.Status == model.PaymentStatusPending && p.CreatedAt.Before(olderThan) {
			cp := *p
			out = append(out, &cp)
		}
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

type memUserRepo struct {
	mu       sync.Mutex
	byID     map[string]*model.User
	courses  map[string]map[string]bool
	payments map[string]map[string]bool
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{
		byID:     make(map[string]*model.User),
		courses:  make(map[string]map[string]bool),
		payments: make(map[string]map[string]bool),
	}
}

func (m *memUserRepo) Save(ctx context.Context, tx repository.Tx, u *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *u
	m.byID[u.ID] = &cp
	return nil
}

func (m *memUserRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *memUserRepo) FindByEmail(ctx context.Context, tx repository.Tx, email string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.byID {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *memUserRepo) AddCourse(ctx context.Context, tx repository.Tx, userID, classGroupID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.courses[userID] == nil {
		m.courses[userID] = make(map[string]bool)
	}
	m.courses[userID][classGroupID] = true
	return nil
}

func (m *memUserRepo) AddPayment(ctx context.Context, tx repository.Tx, userID, paymentID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.payments[userID] == nil {
		m.payments[userID] = make(map[string]bool)
	}
	m.payments[userID][paymentID] = true
	return nil
}

func (m *memUserRepo) UpdateStatuses(ctx context.Context, tx repository.Tx, userID string, course model.CourseStatus, payment model.UserPaymentStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[userID]
	if !ok {
		return domain.ErrNotFound
	}
	u.CourseStatus = course
	u.PaymentStatus = payment
	return nil
}

type memClassGroupRepo struct {
	mu          sync.Mutex
	groups      map[string]*model.ClassGroup
	templates   map[string]*model.CourseTemplate
	enrollments map[string]map[string]bool
}

func newMemClassGroupRepo() *memClassGroupRepo {
	return &memClassGroupRepo{
		groups:      make(map[string]*model.ClassGroup),
		templates:   make(map[string]*model.CourseTemplate),
		enrollments: make(map[string]map[string]bool),
	}
}

func (m *memClassGroupRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.ClassGroup, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.groups[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *g
	return &cp, nil
}

func (m *memClassGroupRepo) FindTemplate(ctx context.Context, tx repository.Tx, templateID string) (*model.CourseTemplate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.templates[templateID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (m *memClassGroupRepo) Enroll(ctx context.Context, tx repository.Tx, classGroupID, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.enrollments[classGroupID] == nil {
		m.enrollments[classGroupID] = make(map[string]bool)
	}
	m.enrollments[classGroupID][userID] = true
	return nil
}

type memReferralRepo struct {
	mu          sync.Mutex
	referrals   map[string]*model.Referral
	settlements map[string]string // payment id -> referral id
}

func newMemReferralRepo() *memReferralRepo {
	return &memReferralRepo{
		referrals:   make(map[string]*model.Referral),
		settlements: make(map[string]string),
	}
}

func (m *memReferralRepo) Create(ctx context.Context, tx repository.Tx, r *model.Referral) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *r
	m.referrals[r.ID] = &cp
	return nil
}

func (m *memReferralRepo) FindActiveByUser(ctx context.Context, tx repository.Tx, userID, email string) (*model.Referral, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.referrals {
		if r.Status == model.ReferralStatusCompleted {
			continue
		}
		if (r.ReferredUserID != nil && *r.ReferredUserID == userID) || r.ReferredEmail == email {
			cp := *r
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *memReferralRepo) LinkReferredUser(ctx context.Context, tx repository.Tx, referralID, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.referrals[referralID]
	if !ok {
		return domain.ErrNotFound
	}
	if r.ReferredUserID == nil {
		r.ReferredUserID = &userID
		r.Status = model.ReferralStatusFreeClass
	}
	return nil
}

func (m *memReferralRepo) SettleCommission(ctx context.Context, tx repository.Tx, referralID, paymentID string, commission int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.settlements[paymentID]; ok {
		return false, nil
	}
	r, ok := m.referrals[referralID]
	if !ok {
		return false, domain.ErrNotFound
	}
	m.settlements[paymentID] = referralID
	r.Commission += commission
	r.Status = model.ReferralStatusPaid
	return true, nil
}

type memCampaignRepo struct {
	mu          sync.Mutex
	campaigns   map[string]*model.Campaign
	checkpoints int
}

func newMemCampaignRepo() *memCampaignRepo {
	return &memCampaignRepo{campaigns: make(map[string]*model.Campaign)}
}

func (m *memCampaignRepo) Save(ctx context.Context, tx repository.Tx, c *model.Campaign) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *c
	cp.Recipients = append([]model.Recipient(nil), c.Recipients...)
	m.campaigns[c.ID] = &cp
	return nil
}

func (m *memCampaignRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Campaign, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.campaigns[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *c
	cp.Recipients = append([]model.Recipient(nil), c.Recipients...)
	return &cp, nil
}

func (m *memCampaignRepo) Checkpoint(ctx context.Context, tx repository.Tx, c *model.Campaign) error {
	m.mu.Lock()
	m.checkpoints++
	m.mu.Unlock()
	return m.Save(ctx, tx, c)
}

// --- transaction manager passthrough ---

type fakeTxManager struct{}

func (fakeTxManager) WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	return fn(ctx, repository.NoTX)
}

// --- gateway / notifier / locker fakes ---

type mockGateway struct {
	name                       model.Provider
	InitializePaymentFunc      func(ctx context.Context, req adapter.InitRequest) (string, error)
	VerifyPaymentFunc          func(ctx context.Context, reference string) (adapter.VerifyResult, error)
	VerifyWebhookSignatureFunc func(signature string, body []byte) bool
}

func (m *mockGateway) Name() model.Provider { return m.name }

func (m *mockGateway) InitializePayment(ctx context.Context, req adapter.InitRequest) (string, error) {
	if m.InitializePaymentFunc != nil {
		return m.InitializePaymentFunc(ctx, req)
	}
	return "https://checkout.example.com/pay", nil
}

func (m *mockGateway) VerifyPayment(ctx context.Context, reference string) (adapter.VerifyResult, error) {
	if m.VerifyPaymentFunc != nil {
		return m.VerifyPaymentFunc(ctx, reference)
	}
	return adapter.VerifyResult{Successful: true}, nil
}

func (m *mockGateway) VerifyWebhookSignature(signature string, body []byte) bool {
	if m.VerifyWebhookSignatureFunc != nil {
		return m.VerifyWebhookSignatureFunc(signature, body)
	}
	return true
}

type mockNotifier struct {
	mu               sync.Mutex
	welcomes         []string
	confirmations    []string
	referralCredits  []string
	smsMessages      []string
	lastTempPassword string
}

func (m *mockNotifier) SendWelcome(ctx context.Context, email, name, courseTitle, tempPassword string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.welcomes = append(m.welcomes, email)
	m.lastTempPassword = tempPassword
	return nil
}

func (m *mockNotifier) SendPaymentSuccess(ctx context.Context, email, name string, amount int64, serviceTitle string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.confirmations = append(m.confirmations, email)
	return nil
}

func (m *mockNotifier) SendReferralCredited(ctx context.Context, email string, commission int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.referralCredits = append(m.referralCredits, email)
	return nil
}

func (m *mockNotifier) SendSMS(ctx context.Context, phone, message string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.smsMessages = append(m.smsMessages, message)
	return nil
}

type fakeLocker struct {
	mu     sync.Mutex
	held   map[string]bool
	denied bool
}

func newFakeLocker() *fakeLocker {
	return &fakeLocker{held: make(map[string]bool)}
}

func (l *fakeLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.denied || l.held[key] {
		return "", domain.ErrLockNotAcquired
	}
	l.held[key] = true
	return "token", nil
}

func (l *fakeLocker) Unlock(ctx context.Context, key, token string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.held, key)
	return nil
}

type mockCampaignMailer struct {
	mu       sync.Mutex
	sent     []string
	failFor  map[string]bool
	sendErrs int
}

func (m *mockCampaignMailer) SendCampaign(ctx context.Context, email, name, subject, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failFor[email] {
		m.sendErrs++
		return domain.ErrOperationFailed
	}
	m.sent = append(m.sent, email)
	return nil
}
