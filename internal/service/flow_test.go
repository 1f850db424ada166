package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/pribylovaa/go-loyalty-redemption/internal/config"
	"github.com/pribylovaa/go-loyalty-redemption/internal/models"
	"github.com/pribylovaa/go-loyalty-redemption/internal/pkg/clock"
	"github.com/pribylovaa/go-loyalty-redemption/internal/storage/memory"
	"github.com/stretchr/testify/require"
)

// Поведенческие тесты полного протокола поверх in-memory хранилища:
// Issue -> VerifyPin -> Finalize с управляемыми часами.

type flow struct {
	svc *Service
	st  *memory.Storage
	clk *clock.Fake
}

func newFlow(t *testing.T, start time.Time, tune ...func(*config.RedemptionConfig)) *flow {
	t.Helper()

	cfg := testCfg()
	for _, f := range tune {
		f(&cfg)
	}

	st := memory.New()
	st.PutCustomer(models.Customer{
		ID:                 "u1",
		Name:               "Alice",
		PointsBalance:      100,
		SubscriptionStatus: models.SubscriptionActive,
		SubscriptionExpiry: start.Add(365 * 24 * time.Hour),
	})
	st.PutOffer(models.Offer{ID: "o1", MerchantID: "m1", Title: "Free latte", PointsCost: 50, Active: true})
	st.PutMerchant(models.Merchant{ID: "m1", Name: "Coffee", SubscriptionStatus: models.SubscriptionActive})
	st.PutMerchant(models.Merchant{ID: "m2", Name: "Bakery", SubscriptionStatus: models.SubscriptionActive})

	clk := clock.NewFake(start)
	svc := New(st, cfg)
	svc.SetClock(clk)

	return &flow{svc: svc, st: st, clk: clk}
}

func (f *flow) issue(t *testing.T) *models.IssueResult {
	t.Helper()
	res, err := f.svc.Issue(context.Background(), issueReq())
	require.NoError(t, err)
	return res
}

func (f *flow) verify(t *testing.T, code, pin string) {
	t.Helper()
	_, err := f.svc.VerifyPin(context.Background(), models.VerifyPinRequest{
		ActorID: "staff-1", MerchantID: "m1", DisplayCode: code, Pin: pin,
	})
	require.NoError(t, err)
}

func (f *flow) finalize(tok string) (*models.FinalizeResult, error) {
	return f.svc.Finalize(context.Background(), finalizeReq(tok))
}

func (f *flow) balance(t *testing.T) int64 {
	t.Helper()
	c, err := f.st.CustomerByID(context.Background(), "u1")
	require.NoError(t, err)
	return c.PointsBalance
}

func TestFlow_EndToEnd(t *testing.T) {
	t.Parallel()

	f := newFlow(t, t0)

	issued := f.issue(t)
	f.clk.Advance(10 * time.Second)
	f.verify(t, issued.DisplayCode, issued.OneTimePin)
	f.clk.Advance(5 * time.Second)

	res, err := f.finalize(issued.Token)
	require.NoError(t, err)
	require.Equal(t, "Free latte", res.OfferTitle)
	require.Equal(t, "Alice", res.CustomerName)
	require.EqualValues(t, 50, res.PointsAwarded)

	require.EqualValues(t, 50, f.balance(t))

	rs := f.st.Redemptions()
	require.Len(t, rs, 1)
	require.Equal(t, res.RedemptionID, rs[0].ID)
	require.Equal(t, models.RedemptionStatusCompleted, rs[0].Status)

	_, err = f.finalize(issued.Token)
	require.ErrorIs(t, err, ErrTokenAlreadyUsed)

	_, err = f.svc.Issue(context.Background(), issueReq())
	require.ErrorIs(t, err, ErrAlreadyRedeemedThisMonth)
}

func TestFlow_FinalizeByDisplayCode(t *testing.T) {
	t.Parallel()

	f := newFlow(t, t0)

	issued := f.issue(t)
	f.verify(t, issued.DisplayCode, issued.OneTimePin)

	req := finalizeReq("")
	req.DisplayCode = issued.DisplayCode

	_, err := f.svc.Finalize(context.Background(), req)
	require.NoError(t, err)
	require.EqualValues(t, 50, f.balance(t))

	_, err = f.svc.Finalize(context.Background(), req)
	require.ErrorIs(t, err, ErrInvalidOrUsedCode)
}

// TestFlow_PinGate — без VerifyPin погашение невозможно, баланс не меняется.
func TestFlow_PinGate(t *testing.T) {
	t.Parallel()

	f := newFlow(t, t0)

	issued := f.issue(t)

	_, err := f.finalize(issued.Token)
	require.ErrorIs(t, err, ErrPinVerificationRequired)
	require.EqualValues(t, 100, f.balance(t))
	require.Empty(t, f.st.Redemptions())
}

func TestFlow_PinLockout(t *testing.T) {
	t.Parallel()

	f := newFlow(t, t0)
	issued := f.issue(t)

	wrong := "100000"
	if issued.OneTimePin == wrong {
		wrong = "100001"
	}

	for want := 2; want >= 0; want-- {
		_, err := f.svc.VerifyPin(context.Background(), pinReqFor(issued.DisplayCode, wrong))
		require.ErrorIs(t, err, ErrInvalidPin)

		remaining, ok := RemainingAttempts(err)
		require.True(t, ok)
		require.Equal(t, want, remaining)
	}

	// Верный PIN после блокировки уже не принимается.
	_, err := f.svc.VerifyPin(context.Background(), pinReqFor(issued.DisplayCode, issued.OneTimePin))
	require.ErrorIs(t, err, ErrTooManyAttempts)

	_, err = f.finalize(issued.Token)
	require.ErrorIs(t, err, ErrPinVerificationRequired)
	require.EqualValues(t, 100, f.balance(t))
}

func pinReqFor(code, pin string) models.VerifyPinRequest {
	return models.VerifyPinRequest{ActorID: "staff-1", MerchantID: "m1", DisplayCode: code, Pin: pin}
}

func TestFlow_VerifyPin_WrongMerchant(t *testing.T) {
	t.Parallel()

	f := newFlow(t, t0)
	issued := f.issue(t)

	_, err := f.svc.VerifyPin(context.Background(), models.VerifyPinRequest{
		ActorID: "staff-2", MerchantID: "m2", DisplayCode: issued.DisplayCode, Pin: issued.OneTimePin,
	})
	require.ErrorIs(t, err, ErrNotFoundOrUsed)
}

func TestFlow_MerchantMismatch(t *testing.T) {
	t.Parallel()

	f := newFlow(t, t0)
	issued := f.issue(t)
	f.verify(t, issued.DisplayCode, issued.OneTimePin)

	req := finalizeReq(issued.Token)
	req.MerchantID = "m2"

	_, err := f.svc.Finalize(context.Background(), req)
	require.ErrorIs(t, err, ErrMerchantMismatch)
	require.EqualValues(t, 100, f.balance(t))
}

func TestFlow_Expiry(t *testing.T) {
	t.Parallel()

	t.Run("boundary_is_valid", func(t *testing.T) {
		t.Parallel()

		f := newFlow(t, t0)
		issued := f.issue(t)

		f.clk.Advance(60 * time.Second)
		f.verify(t, issued.DisplayCode, issued.OneTimePin)

		_, err := f.finalize(issued.Token)
		require.NoError(t, err)
	})

	t.Run("verify_after_expiry", func(t *testing.T) {
		t.Parallel()

		f := newFlow(t, t0)
		issued := f.issue(t)

		f.clk.Advance(61 * time.Second)
		_, err := f.svc.VerifyPin(context.Background(), pinReqFor(issued.DisplayCode, issued.OneTimePin))
		require.ErrorIs(t, err, ErrExpired)
	})

	t.Run("finalize_after_expiry", func(t *testing.T) {
		t.Parallel()

		f := newFlow(t, t0)
		issued := f.issue(t)
		f.verify(t, issued.DisplayCode, issued.OneTimePin)

		f.clk.Advance(61 * time.Second)

		_, err := f.finalize(issued.Token)
		require.ErrorIs(t, err, ErrTokenExpired)

		req := finalizeReq("")
		req.DisplayCode = issued.DisplayCode
		_, err = f.svc.Finalize(context.Background(), req)
		require.ErrorIs(t, err, ErrCodeExpired)

		require.EqualValues(t, 100, f.balance(t))
	})
}

// TestFlow_ConcurrentDoubleSpend — из N параллельных Finalize по одному токену
// успешен ровно один, баланс списан один раз.
func TestFlow_ConcurrentDoubleSpend(t *testing.T) {
	t.Parallel()

	f := newFlow(t, t0)
	issued := f.issue(t)
	f.verify(t, issued.DisplayCode, issued.OneTimePin)

	const workers = 16

	var (
		wg   sync.WaitGroup
		errs = make(chan error, workers)
	)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			req := finalizeReq(issued.Token)
			req.ActorID = fmt.Sprintf("staff-%d", i)
			_, err := f.svc.Finalize(context.Background(), req)
			errs <- err
		}(i)
	}

	wg.Wait()
	close(errs)

	var ok, used int
	for err := range errs {
		switch {
		case err == nil:
			ok++
		case KindOf(err) == KindConflict:
			require.ErrorIs(t, err, ErrTokenAlreadyUsed)
			used++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}

	require.Equal(t, 1, ok)
	require.Equal(t, workers-1, used)
	require.EqualValues(t, 50, f.balance(t))
	require.Len(t, f.st.Redemptions(), 1)
}

func TestFlow_MonthBoundary(t *testing.T) {
	t.Parallel()

	f := newFlow(t, time.Date(2026, 1, 31, 23, 58, 0, 0, time.UTC))

	issued := f.issue(t)
	f.verify(t, issued.DisplayCode, issued.OneTimePin)
	_, err := f.finalize(issued.Token)
	require.NoError(t, err)

	_, err = f.svc.Issue(context.Background(), issueReq())
	require.ErrorIs(t, err, ErrAlreadyRedeemedThisMonth)

	f.clk.Set(time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC))
	f.issue(t)
}

func TestFlow_MonthBoundary_Timezone(t *testing.T) {
	t.Parallel()

	// 22:00 UTC 31 января — уже февраль в Москве.
	f := newFlow(t, time.Date(2026, 1, 31, 22, 0, 0, 0, time.UTC), func(c *config.RedemptionConfig) {
		c.Timezone = "Europe/Moscow"
	})

	issued := f.issue(t)
	f.verify(t, issued.DisplayCode, issued.OneTimePin)
	_, err := f.finalize(issued.Token)
	require.NoError(t, err)

	f.clk.Set(time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC))
	_, err = f.svc.Issue(context.Background(), issueReq())
	require.ErrorIs(t, err, ErrAlreadyRedeemedThisMonth)
}

func TestFlow_IssueRateLimit(t *testing.T) {
	t.Parallel()

	f := newFlow(t, t0)

	for i := 0; i < 10; i++ {
		f.issue(t)
		f.clk.Advance(time.Second)
	}

	_, err := f.svc.Issue(context.Background(), issueReq())
	require.ErrorIs(t, err, ErrRateLimited)

	// Окно отсчитывается от первой попытки.
	f.clk.Set(t0.Add(time.Hour + time.Second))
	f.issue(t)
}

func TestFlow_ValidateRateLimit(t *testing.T) {
	t.Parallel()

	f := newFlow(t, t0)

	for i := 0; i < 50; i++ {
		_, err := f.finalize("")
		require.ErrorIs(t, err, ErrTokenOrCodeRequired)
	}

	_, err := f.finalize("")
	require.ErrorIs(t, err, ErrRateLimited)
}

func TestFlow_GracePeriod(t *testing.T) {
	t.Parallel()

	t.Run("within_grace", func(t *testing.T) {
		t.Parallel()

		f := newFlow(t, t0)
		grace := t0.Add(72 * time.Hour)
		f.st.PutMerchant(models.Merchant{ID: "m1", SubscriptionStatus: models.SubscriptionPastDue, GracePeriodEnd: &grace})

		issued := f.issue(t)
		f.verify(t, issued.DisplayCode, issued.OneTimePin)
		_, err := f.finalize(issued.Token)
		require.NoError(t, err)
	})

	t.Run("grace_over", func(t *testing.T) {
		t.Parallel()

		f := newFlow(t, t0)
		issued := f.issue(t)
		f.verify(t, issued.DisplayCode, issued.OneTimePin)

		grace := t0.Add(-time.Hour)
		f.st.PutMerchant(models.Merchant{ID: "m1", SubscriptionStatus: models.SubscriptionPastDue, GracePeriodEnd: &grace})

		_, err := f.finalize(issued.Token)
		require.ErrorIs(t, err, ErrMerchantSubscriptionInactive)
		require.EqualValues(t, 100, f.balance(t))

		tok, err := f.st.UnusedTokenByDisplayCode(context.Background(), issued.DisplayCode, "m1")
		require.NoError(t, err)
		require.False(t, tok.Used)
	})
}

func TestFlow_IdempotentFinalize(t *testing.T) {
	t.Parallel()

	f := newFlow(t, t0)
	issued := f.issue(t)
	f.verify(t, issued.DisplayCode, issued.OneTimePin)

	req := finalizeReq(issued.Token)
	req.IdempotencyKey = "retry-1"

	first, err := f.svc.Finalize(context.Background(), req)
	require.NoError(t, err)
	require.False(t, first.Replayed)

	second, err := f.svc.Finalize(context.Background(), req)
	require.NoError(t, err)
	require.True(t, second.Replayed)
	require.Equal(t, first.RedemptionID, second.RedemptionID)
	require.Equal(t, first.OfferTitle, second.OfferTitle)

	require.EqualValues(t, 50, f.balance(t))
	require.Len(t, f.st.Redemptions(), 1)
}

// TestFlow_IdempotencyKeyOnOtherToken — ключ, уже закреплённый за погашением
// одного токена, не засчитывает погашение другого токена.
func TestFlow_IdempotencyKeyOnOtherToken(t *testing.T) {
	t.Parallel()

	f := newFlow(t, t0)
	f.st.PutCustomer(models.Customer{
		ID:                 "u2",
		Name:               "Bob",
		PointsBalance:      100,
		SubscriptionStatus: models.SubscriptionActive,
		SubscriptionExpiry: t0.Add(365 * 24 * time.Hour),
	})

	first := f.issue(t)
	f.verify(t, first.DisplayCode, first.OneTimePin)

	bobReq := issueReq()
	bobReq.RequesterID, bobReq.UserID, bobReq.DeviceHash = "u2", "u2", "dev-2"
	second, err := f.svc.Issue(context.Background(), bobReq)
	require.NoError(t, err)
	f.verify(t, second.DisplayCode, second.OneTimePin)

	req := finalizeReq(first.Token)
	req.IdempotencyKey = "K"
	_, err = f.svc.Finalize(context.Background(), req)
	require.NoError(t, err)

	req = finalizeReq(second.Token)
	req.IdempotencyKey = "K"
	res, err := f.svc.Finalize(context.Background(), req)
	require.ErrorIs(t, err, ErrIdempotencyKeyReused)
	require.Nil(t, res)

	bob, err := f.st.CustomerByID(context.Background(), "u2")
	require.NoError(t, err)
	require.EqualValues(t, 100, bob.PointsBalance)
	require.Len(t, f.st.Redemptions(), 1)

	tok, err := f.st.UnusedTokenByDisplayCode(context.Background(), second.DisplayCode, "m1")
	require.NoError(t, err)
	require.False(t, tok.Used)

	// Со свежим ключом второй токен гасится штатно.
	req.IdempotencyKey = "K2"
	res, err = f.svc.Finalize(context.Background(), req)
	require.NoError(t, err)
	require.False(t, res.Replayed)
	require.Equal(t, "Bob", res.CustomerName)

	bob, err = f.st.CustomerByID(context.Background(), "u2")
	require.NoError(t, err)
	require.EqualValues(t, 50, bob.PointsBalance)
	require.Len(t, f.st.Redemptions(), 2)
}

func TestFlow_IdempotentFinalize_ByDisplayCode(t *testing.T) {
	t.Parallel()

	f := newFlow(t, t0)
	issued := f.issue(t)
	f.verify(t, issued.DisplayCode, issued.OneTimePin)

	req := finalizeReq("")
	req.DisplayCode = issued.DisplayCode
	req.IdempotencyKey = "retry-code"

	first, err := f.svc.Finalize(context.Background(), req)
	require.NoError(t, err)

	second, err := f.svc.Finalize(context.Background(), req)
	require.NoError(t, err)
	require.True(t, second.Replayed)
	require.Equal(t, first.RedemptionID, second.RedemptionID)

	// Тот же ключ с чужим кодом не выдаётся за повтор.
	req.DisplayCode = "000000"
	_, err = f.svc.Finalize(context.Background(), req)
	require.ErrorIs(t, err, ErrInvalidOrUsedCode)

	require.EqualValues(t, 50, f.balance(t))
	require.Len(t, f.st.Redemptions(), 1)
}

// TestFlow_LockedAfterVerification — неверные PIN после подтверждения блокируют погашение.
func TestFlow_LockedAfterVerification(t *testing.T) {
	t.Parallel()

	f := newFlow(t, t0)
	issued := f.issue(t)
	f.verify(t, issued.DisplayCode, issued.OneTimePin)

	for i := 0; i < 3; i++ {
		_, err := f.svc.VerifyPin(context.Background(), pinReqFor(issued.DisplayCode, "000000"))
		require.Error(t, err)
	}

	_, err := f.finalize(issued.Token)
	require.ErrorIs(t, err, ErrTooManyAttempts)
	require.EqualValues(t, 100, f.balance(t))
	require.Empty(t, f.st.Redemptions())
}

func TestFlow_NegativeBalancePolicy(t *testing.T) {
	t.Parallel()

	poor := func(f *flow) {
		f.st.PutCustomer(models.Customer{
			ID:                 "u1",
			Name:               "Alice",
			PointsBalance:      30,
			SubscriptionStatus: models.SubscriptionActive,
			SubscriptionExpiry: t0.Add(24 * time.Hour),
		})
	}

	t.Run("allowed_by_default", func(t *testing.T) {
		t.Parallel()

		f := newFlow(t, t0)
		poor(f)

		issued := f.issue(t)
		f.verify(t, issued.DisplayCode, issued.OneTimePin)
		_, err := f.finalize(issued.Token)
		require.NoError(t, err)
		require.EqualValues(t, -20, f.balance(t))
	})

	t.Run("forbidden", func(t *testing.T) {
		t.Parallel()

		f := newFlow(t, t0, func(c *config.RedemptionConfig) { c.ForbidNegativeBalance = true })
		poor(f)

		issued := f.issue(t)
		f.verify(t, issued.DisplayCode, issued.OneTimePin)

		_, err := f.finalize(issued.Token)
		require.ErrorIs(t, err, ErrInsufficientPoints)
		require.EqualValues(t, 30, f.balance(t))
		require.Empty(t, f.st.Redemptions())
	})
}

func TestFlow_PurgeExpiredTokens(t *testing.T) {
	t.Parallel()

	f := newFlow(t, t0)
	issued := f.issue(t)

	f.clk.Advance(25 * time.Hour)

	n, err := f.svc.PurgeExpiredTokens(context.Background(), 24*time.Hour)
	require.NoError(t, err)
	require.EqualValues(t, 1, n)

	_, err = f.svc.VerifyPin(context.Background(), pinReqFor(issued.DisplayCode, issued.OneTimePin))
	require.ErrorIs(t, err, ErrNotFoundOrUsed)
}
