package usecase

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/amazingprincelee/backend-collabogig/internal/domain"
	"github.com/amazingprincelee/backend-collabogig/internal/domain/model"
	"github.com/amazingprincelee/backend-collabogig/internal/domain/ports/adapter"
	"github.com/amazingprincelee/backend-collabogig/internal/domain/ports/repository"
	"github.com/amazingprincelee/backend-collabogig/internal/infra/metrics"
	"github.com/amazingprincelee/backend-collabogig/internal/infra/payment"
	"github.com/amazingprincelee/backend-collabogig/internal/infra/redis"
)

// Trigger names the entry point that kicked off a reconciliation run.
type Trigger string

const (
	TriggerVerify   Trigger = "verify"
	TriggerWebhook  Trigger = "webhook"
	TriggerCallback Trigger = "callback"
	TriggerPoller   Trigger = "poller"
)

// InitiateInput is everything needed to open a payment. UserID is nil for
// guest checkout; the contact snapshot then carries identity until
// reconciliation resolves or creates the account.
type InitiateInput struct {
	UserID      *string
	ServiceType model.ServiceType
	ServiceID   string
	Amount      int64 // used for non-course services; courses price from the template
	Contact     model.ContactSnapshot
}

// Compile-time check
var _ PaymentUseCase = (*paymentUC)(nil)

type PaymentUseCase interface {
	// Initiate opens a pending ledger row and returns it with the
	// provider-hosted checkout link set.
	Initiate(ctx context.Context, in InitiateInput) (*model.Payment, error)

	// Reconcile drives a payment to its terminal state and applies the
	// downstream effects exactly once. Safe to call any number of times from
	// any trigger; concurrent calls for one transaction are serialized by a
	// distributed lock and the ledger's compare-and-set.
	Reconcile(ctx context.Context, trigger Trigger, transactionID string) (*model.Payment, error)

	// Status is a read-only ledger lookup.
	Status(ctx context.Context, transactionID string) (*model.Payment, error)
}

type paymentUC struct {
	payments  repository.PaymentRepository
	users     repository.UserRepository
	groups    repository.ClassGroupRepository
	referrals repository.ReferralRepository
	txm       repository.TransactionManager
	gateways  map[model.Provider]adapter.PaymentGateway
	canonical adapter.PaymentGateway // initiation goes through the configured provider
	notifier  adapter.NotificationDispatcher
	locker    redis.Locker
	namespace string
	currency  string
	log       *zerolog.Logger
}

func NewPaymentUseCase(
	payments repository.PaymentRepository,
	users repository.UserRepository,
	groups repository.ClassGroupRepository,
	referrals repository.ReferralRepository,
	txm repository.TransactionManager,
	gateways map[model.Provider]adapter.PaymentGateway,
	canonical adapter.PaymentGateway,
	notifier adapter.NotificationDispatcher,
	locker redis.Locker,
	namespace, currency string,
	logger *zerolog.Logger,
) *paymentUC {
	l := logger.With().Str("usecase", "payment").Logger()
	return &paymentUC{
		payments:  payments,
		users:     users,
		groups:    groups,
		referrals: referrals,
		txm:       txm,
		gateways:  gateways,
		canonical: canonical,
		notifier:  notifier,
		locker:    locker,
		namespace: namespace,
		currency:  currency,
		log:       &l,
	}
}

func (u *paymentUC) Initiate(ctx context.Context, in InitiateInput) (*model.Payment, error) {
	if !in.ServiceType.Valid() {
		return nil, fmt.Errorf("%w: unknown service type %q", domain.ErrInvalidArgument, in.ServiceType)
	}
	if in.Contact.Email == "" {
		return nil, fmt.Errorf("%w: contact email is required", domain.ErrInvalidArgument)
	}

	amount, title, err := u.resolveService(ctx, in)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	ref := payment.NewReference(u.namespace, string(in.ServiceType), in.ServiceID, now)

	link, err := u.canonical.InitializePayment(ctx, adapter.InitRequest{
		Amount:   amount,
		Currency: u.currency,
		Customer: adapter.Customer{
			Email: in.Contact.Email,
			Name:  in.Contact.Name,
			Phone: in.Contact.Phone,
		},
		Reference: ref,
		Meta: map[string]string{
			"service_type": string(in.ServiceType),
			"service_id":   in.ServiceID,
			"title":        title,
		},
	})
	if err != nil {
		u.log.Error().Err(err).Str("transaction_id", ref).Msg("provider initiation failed")
		return nil, err
	}

	p := &model.Payment{
		ID:            uuid.NewString(),
		TransactionID: ref,
		UserID:        in.UserID,
		Provider:      u.canonical.Name(),
		ServiceType:   in.ServiceType,
		ServiceID:     in.ServiceID,
		Amount:        amount,
		Currency:      u.currency,
		Status:        model.PaymentStatusPending,
		Meta:          in.Contact,
		PaymentLink:   link,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := u.payments.Create(ctx, repository.NoTX, p); err != nil {
		return nil, err
	}
	metrics.IncPayment(string(model.PaymentStatusPending))
	return p, nil
}

// resolveService prices the purchase. Courses price from the catalogue; other
// service types trust the caller's amount.
func (u *paymentUC) resolveService(ctx context.Context, in InitiateInput) (int64, string, error) {
	if in.ServiceType == model.ServiceTypeCourse {
		group, err := u.groups.FindByID(ctx, repository.NoTX, in.ServiceID)
		if err != nil {
			return 0, "", err
		}
		tmpl, err := u.groups.FindTemplate(ctx, repository.NoTX, group.CourseTemplateID)
		if err != nil {
			return 0, "", err
		}
		return tmpl.Fee, tmpl.Title, nil
	}
	if in.Amount <= 0 {
		return 0, "", fmt.Errorf("%w: amount must be positive", domain.ErrInvalidArgument)
	}
	return in.Amount, in.ServiceID, nil
}

func (u *paymentUC) Status(ctx context.Context, transactionID string) (*model.Payment, error) {
	return u.payments.FindByTransactionID(ctx, repository.NoTX, transactionID)
}

func (u *paymentUC) Reconcile(ctx context.Context, trigger Trigger, transactionID string) (*model.Payment, error) {
	lockKey := redis.ReconcileLockKey(transactionID)
	token, err := u.locker.TryLock(ctx, lockKey, 30*time.Second)
	if err != nil {
		metrics.IncReconcile(string(trigger), "locked")
		return nil, err
	}
	defer func() { _ = u.locker.Unlock(ctx, lockKey, token) }()

	p, err := u.payments.FindByTransactionID(ctx, repository.NoTX, transactionID)
	if err != nil {
		metrics.IncReconcile(string(trigger), "not_found")
		return nil, err
	}
	if p.Status.IsTerminal() {
		metrics.IncReconcile(string(trigger), "noop")
		return p, nil
	}

	gw, ok := u.gateways[p.Provider]
	if !ok {
		metrics.IncReconcile(string(trigger), "error")
		return nil, fmt.Errorf("%w: no gateway for provider %q", domain.ErrOperationFailed, p.Provider)
	}

	res, err := u.verifyWithRetry(ctx, gw, transactionID)
	if err != nil {
		metrics.IncReconcile(string(trigger), "verify_error")
		return nil, err
	}

	now := time.Now()
	if !res.Successful {
		won, err := u.payments.UpdateStatusIfPending(ctx, repository.NoTX, transactionID, model.PaymentStatusFailed, &now)
		if err != nil {
			return nil, err
		}
		if won {
			metrics.IncPayment(string(model.PaymentStatusFailed))
		}
		metrics.IncReconcile(string(trigger), "failed")
		return u.payments.FindByTransactionID(ctx, repository.NoTX, transactionID)
	}

	var eff *settlementEffects
	err = u.txm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		won, err := u.payments.UpdateStatusIfPending(ctx, tx, transactionID, model.PaymentStatusSuccessful, &now)
		if err != nil {
			return err
		}
		if !won {
			// Another run already settled it while we verified.
			return nil
		}
		eff, err = u.applyEffects(ctx, tx, p)
		return err
	})
	if err != nil {
		metrics.IncReconcile(string(trigger), "error")
		return nil, err
	}

	if eff != nil {
		metrics.IncPayment(string(model.PaymentStatusSuccessful))
		metrics.AddPaymentRevenue(p.Currency, p.Amount)
		metrics.IncReconcile(string(trigger), "settled")
		u.dispatchNotifications(ctx, p, eff)
	} else {
		metrics.IncReconcile(string(trigger), "noop")
	}
	return u.payments.FindByTransactionID(ctx, repository.NoTX, transactionID)
}

func (u *paymentUC) verifyWithRetry(ctx context.Context, gw adapter.PaymentGateway, transactionID string) (adapter.VerifyResult, error) {
	var lastErr error
	for attempt := 1; attempt <= 3; attempt++ {
		res, err := gw.VerifyPayment(ctx, transactionID)
		if err == nil {
			metrics.IncProviderVerify(string(gw.Name()), "ok")
			return res, nil
		}
		lastErr = err
		metrics.IncProviderVerify(string(gw.Name()), "error")
		u.log.Warn().Err(err).Str("transaction_id", transactionID).Int("attempt", attempt).Msg("provider verification failed")

		select {
		case <-ctx.Done():
			return adapter.VerifyResult{}, ctx.Err()
		case <-time.After(time.Duration(attempt) * 500 * time.Millisecond):
		}
	}
	return adapter.VerifyResult{}, lastErr
}

// settlementEffects records what happened inside the settlement transaction
// so notifications can fire after commit.
type settlementEffects struct {
	user          *model.User
	created       bool
	tempPassword  string
	serviceTitle  string
	group         *model.ClassGroup
	referrerEmail string
	commission    int64
}

// applyEffects runs the downstream side of a won settlement inside the open
// transaction. Every write is idempotent (set union / insert-if-absent) so a
// retried transaction never double-applies.
func (u *paymentUC) applyEffects(ctx context.Context, tx repository.Tx, p *model.Payment) (*settlementEffects, error) {
	eff := &settlementEffects{serviceTitle: p.ServiceID}

	user, created, tempPassword, err := u.resolveUser(ctx, tx, p)
	if err != nil {
		return nil, err
	}
	eff.user, eff.created, eff.tempPassword = user, created, tempPassword

	if p.UserID == nil {
		if err := u.payments.AttachUser(ctx, tx, p.TransactionID, user.ID); err != nil {
			return nil, err
		}
	}
	if err := u.users.AddPayment(ctx, tx, user.ID, p.ID); err != nil {
		return nil, err
	}

	if p.ServiceType == model.ServiceTypeCourse {
		group, err := u.groups.FindByID(ctx, tx, p.ServiceID)
		if err != nil {
			return nil, err
		}
		tmpl, err := u.groups.FindTemplate(ctx, tx, group.CourseTemplateID)
		if err != nil {
			return nil, err
		}
		eff.group, eff.serviceTitle = group, tmpl.Title

		if err := u.groups.Enroll(ctx, tx, group.ID, user.ID); err != nil {
			return nil, err
		}
		if err := u.users.AddCourse(ctx, tx, user.ID, group.ID); err != nil {
			return nil, err
		}
		if err := u.users.UpdateStatuses(ctx, tx, user.ID, model.CourseStatusEnrolled, model.UserPaymentSuccess); err != nil {
			return nil, err
		}
	} else {
		if err := u.users.UpdateStatuses(ctx, tx, user.ID, user.CourseStatus, model.UserPaymentSuccess); err != nil {
			return nil, err
		}
	}

	if err := u.settleReferral(ctx, tx, p, user, eff); err != nil {
		return nil, err
	}
	return eff, nil
}

// resolveUser finds the account behind the payment, creating one from the
// contact snapshot for guest checkouts. The generated temporary password is
// returned in the clear once, for the welcome mail only.
func (u *paymentUC) resolveUser(ctx context.Context, tx repository.Tx, p *model.Payment) (*model.User, bool, string, error) {
	if p.UserID != nil {
		user, err := u.users.FindByID(ctx, tx, *p.UserID)
		return user, false, "", err
	}

	user, err := u.users.FindByEmail(ctx, tx, p.Meta.Email)
	if err == nil {
		return user, false, "", nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, false, "", err
	}

	tempPassword, err := randomPassword(8)
	if err != nil {
		return nil, false, "", err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(tempPassword), bcrypt.DefaultCost)
	if err != nil {
		return nil, false, "", err
	}

	name := p.Meta.Name
	if name == "" {
		name = p.Meta.Email
	}
	user = &model.User{
		ID:            uuid.NewString(),
		Name:          name,
		Email:         p.Meta.Email,
		Phone:         p.Meta.Phone,
		PasswordHash:  string(hash),
		CourseStatus:  model.CourseStatusPending,
		PaymentStatus: model.UserPaymentPending,
		CreatedAt:     time.Now(),
	}
	if err := u.users.Save(ctx, tx, user); err != nil {
		return nil, false, "", err
	}
	return user, true, tempPassword, nil
}

// settleReferral credits the referrer at most once per payment. The
// settlement insert keyed by payment id decides the winner; losing it means
// a previous run already paid out.
func (u *paymentUC) settleReferral(ctx context.Context, tx repository.Tx, p *model.Payment, user *model.User, eff *settlementEffects) error {
	ref, err := u.referrals.FindActiveByUser(ctx, tx, user.ID, user.Email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil
		}
		return err
	}

	commission := ref.CommissionFor(p.Amount)
	credited, err := u.referrals.SettleCommission(ctx, tx, ref.ID, p.ID, commission)
	if err != nil {
		return err
	}
	if !credited {
		return nil
	}
	metrics.IncReferralSettlement()

	referrer, err := u.users.FindByID(ctx, tx, ref.ReferrerID)
	if err != nil {
		return err
	}
	eff.referrerEmail = referrer.Email
	eff.commission = commission
	return nil
}

// dispatchNotifications fires post-commit messages. Failures are logged and
// never unwind the settled payment.
func (u *paymentUC) dispatchNotifications(ctx context.Context, p *model.Payment, eff *settlementEffects) {
	if eff.created {
		if err := u.notifier.SendWelcome(ctx, eff.user.Email, eff.user.Name, eff.serviceTitle, eff.tempPassword); err != nil {
			u.log.Error().Err(err).Str("email", eff.user.Email).Msg("welcome mail failed")
		}
	}
	if err := u.notifier.SendPaymentSuccess(ctx, eff.user.Email, eff.user.Name, p.Amount, eff.serviceTitle); err != nil {
		u.log.Error().Err(err).Str("email", eff.user.Email).Msg("payment confirmation mail failed")
	}
	if eff.commission > 0 && eff.referrerEmail != "" {
		if err := u.notifier.SendReferralCredited(ctx, eff.referrerEmail, eff.commission); err != nil {
			u.log.Error().Err(err).Str("email", eff.referrerEmail).Msg("referral mail failed")
		}
	}
	if eff.group != nil && eff.group.StartsWithin(24*time.Hour) && eff.user.Phone != "" {
		msg := fmt.Sprintf("Your class %s starts on %s. See you there!",
			eff.group.ClassName, eff.group.StartDate.Format("Jan 2 15:04"))
		if err := u.notifier.SendSMS(ctx, eff.user.Phone, msg); err != nil {
			u.log.Error().Err(err).Str("phone", u.redactPhone(eff.user.Phone)).Msg("class reminder sms failed")
		}
	}
}

func (u *paymentUC) redactPhone(phone string) string {
	if len(phone) <= 4 {
		return "****"
	}
	return "****" + phone[len(phone)-4:]
}

const passwordAlphabet = "abcdefghijkmnpqrstuvwxyz23456789"

func randomPassword(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	for i := range b {
		b[i] = passwordAlphabet[int(b[i])%len(passwordAlphabet)]
	}
	return string(b), nil
}
