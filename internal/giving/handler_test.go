package giving

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hopebridge/donor-portal/internal/ratelimit"
	"github.com/hopebridge/donor-portal/internal/rbac"
	"github.com/hopebridge/donor-portal/internal/store"
	"github.com/hopebridge/donor-portal/internal/store/memory"
	"github.com/hopebridge/donor-portal/jobs"
)

type headerIdentity struct{}

func (headerIdentity) CurrentUserID(r *http.Request) (string, bool) {
	id := r.Header.Get("X-Test-User")
	return id, id != ""
}

type recordingQueue struct {
	payloads []jobs.RecurringCancelledPayload
	err      error
}

func (q *recordingQueue) EnqueueRecurringCancelled(_ context.Context, payload jobs.RecurringCancelledPayload) error {
	q.payloads = append(q.payloads, payload)
	return q.err
}

type fixture struct {
	router http.Handler
	store  *memory.Store
	queue  *recordingQueue
}

func newFixture(t *testing.T, limit int) fixture {
	t.Helper()
	st, err := memory.New(memory.DefaultSeed())
	require.NoError(t, err)
	queue := &recordingQueue{}
	mw := rbac.Middleware{Guard: rbac.NewGuard(rbac.NewResolver(st)), Identity: headerIdentity{}}
	limits := ratelimit.Guard{Limiter: ratelimit.New(), SensitiveLimit: limit, SensitiveWindow: time.Minute}

	r := chi.NewRouter()
	r.Route("/giving", NewHandler(nil, NewService(st, queue, nil), mw, limits).MountRoutes)
	return fixture{router: r, store: st, queue: queue}
}

func (f fixture) do(method, target, user string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	req.RemoteAddr = "198.51.100.7:4000"
	if user != "" {
		req.Header.Set("X-Test-User", user)
	}
	rr := httptest.NewRecorder()
	f.router.ServeHTTP(rr, req)
	return rr
}

func TestGiftsRequireIdentity(t *testing.T) {
	f := newFixture(t, 10)
	assert.Equal(t, http.StatusUnauthorized, f.do(http.MethodGet, "/giving/gifts", "").Code)
	assert.Equal(t, http.StatusUnauthorized, f.do(http.MethodGet, "/giving/gifts", "usr_ghost").Code)
}

func TestGiftsScopedToCaller(t *testing.T) {
	f := newFixture(t, 10)

	rr := f.do(http.MethodGet, "/giving/gifts", memory.SeedDonorID)
	require.Equal(t, http.StatusOK, rr.Code)
	var body struct {
		Gifts []giftResponse `json:"gifts"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.Len(t, body.Gifts, 3)
	assert.Equal(t, "gift_1003", body.Gifts[0].ID)
	assert.Equal(t, "100.00 USD", body.Gifts[0].Amount)

	rr = f.do(http.MethodGet, "/giving/gifts", memory.SeedPartnerID)
	require.Equal(t, http.StatusOK, rr.Code)
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	for _, g := range body.Gifts {
		assert.Contains(t, []string{"gift_2001", "gift_2002"}, g.ID)
	}

	rr = f.do(http.MethodGet, "/giving/gifts", memory.SeedAnalystID)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"gifts":[]}`, rr.Body.String())
}

func TestCancelRecurring(t *testing.T) {
	f := newFixture(t, 10)

	rr := f.do(http.MethodPost, "/giving/recurring/rec_1001/cancel", memory.SeedDonorID)
	require.Equal(t, http.StatusOK, rr.Code)
	var plan recurringResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &plan))
	assert.Equal(t, store.RecurringCancelled, plan.Status)
	assert.Equal(t, "monthly", plan.Interval)
	assert.Equal(t, int64(2500), plan.AmountCents)

	require.Len(t, f.queue.payloads, 1)
	assert.Equal(t, "rec_1001", f.queue.payloads[0].RecurringGiftID)
	assert.Equal(t, memory.SeedDonorID, f.queue.payloads[0].UserID)

	events, err := f.store.ListActivity(context.Background(), memory.SeedDonorID, 1)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "recurring_cancelled", events[0].Kind)
	assert.Contains(t, events[0].Message, "25.00 USD")
}

func TestCancelRecurringTwiceNotifiesOnce(t *testing.T) {
	f := newFixture(t, 10)
	require.Equal(t, http.StatusOK, f.do(http.MethodPost, "/giving/recurring/rec_1001/cancel", memory.SeedDonorID).Code)
	require.Equal(t, http.StatusOK, f.do(http.MethodPost, "/giving/recurring/rec_1001/cancel", memory.SeedDonorID).Code)
	assert.Len(t, f.queue.payloads, 1)
}

func TestCancelRecurringOfAnotherDonorIsNotFound(t *testing.T) {
	f := newFixture(t, 10)
	rr := f.do(http.MethodPost, "/giving/recurring/rec_2001/cancel", memory.SeedDonorID)
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Empty(t, f.queue.payloads)

	plans, err := f.store.ListRecurringGifts(context.Background(), memory.SeedPartnerID)
	require.NoError(t, err)
	require.Len(t, plans, 1)
	assert.Equal(t, store.RecurringActive, plans[0].Status)
}

func TestCancelRecurringRateLimited(t *testing.T) {
	f := newFixture(t, 2)
	assert.Equal(t, http.StatusNotFound, f.do(http.MethodPost, "/giving/recurring/rec_missing/cancel", memory.SeedDonorID).Code)
	assert.Equal(t, http.StatusOK, f.do(http.MethodPost, "/giving/recurring/rec_1002/cancel", memory.SeedDonorID).Code)

	rr := f.do(http.MethodPost, "/giving/recurring/rec_1001/cancel", memory.SeedDonorID)
	require.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.NotEmpty(t, rr.Header().Get("Retry-After"))

	plans, err := f.store.ListRecurringGifts(context.Background(), memory.SeedDonorID)
	require.NoError(t, err)
	for _, p := range plans {
		if p.ID == "rec_1001" {
			assert.Equal(t, store.RecurringActive, p.Status)
		}
	}
}

func TestCancelSurvivesQueueFailure(t *testing.T) {
	st, err := memory.New(memory.DefaultSeed())
	require.NoError(t, err)
	svc := NewService(st, &recordingQueue{err: errors.New("redis down")}, nil)
	plan, err := svc.CancelRecurring(context.Background(), memory.SeedDonorID, "rec_1001")
	require.NoError(t, err)
	assert.Equal(t, store.RecurringCancelled, plan.Status)
}

type lockedQueue struct {
	mu       sync.Mutex
	payloads []jobs.RecurringCancelledPayload
}

func (q *lockedQueue) EnqueueRecurringCancelled(_ context.Context, payload jobs.RecurringCancelledPayload) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.payloads = append(q.payloads, payload)
	return nil
}

// slowRepo delays cancels the way a network round trip would.
type slowRepo struct {
	Repository
}

func (r slowRepo) CancelRecurringGift(ctx context.Context, userID, id string) (store.RecurringGift, bool, error) {
	time.Sleep(time.Millisecond)
	return r.Repository.CancelRecurringGift(ctx, userID, id)
}

func TestConcurrentCancelNotifiesOnce(t *testing.T) {
	st, err := memory.New(memory.DefaultSeed())
	require.NoError(t, err)
	queue := &lockedQueue{}
	svc := NewService(slowRepo{Repository: st}, queue, nil)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			plan, err := svc.CancelRecurring(context.Background(), memory.SeedDonorID, "rec_1001")
			assert.NoError(t, err)
			assert.Equal(t, store.RecurringCancelled, plan.Status)
		}()
	}
	wg.Wait()

	assert.Len(t, queue.payloads, 1)
	events, err := st.ListActivity(context.Background(), memory.SeedDonorID, 100)
	require.NoError(t, err)
	cancelled := 0
	for _, ev := range events {
		if ev.Kind == "recurring_cancelled" {
			cancelled++
		}
	}
	assert.Equal(t, 1, cancelled)
}

type failingRepo struct {
	Repository
}

func (failingRepo) ListGifts(context.Context, string) ([]store.Gift, error) {
	return nil, errors.New("connection reset")
}

func TestGiftsBackendFailureIsInternalError(t *testing.T) {
	st, err := memory.New(memory.DefaultSeed())
	require.NoError(t, err)
	mw := rbac.Middleware{Guard: rbac.NewGuard(rbac.NewResolver(st)), Identity: headerIdentity{}}
	r := chi.NewRouter()
	NewHandler(nil, NewService(failingRepo{Repository: st}, nil, nil), mw, ratelimit.Guard{}).MountRoutes(r)

	req := httptest.NewRequest(http.MethodGet, "/gifts", nil)
	req.Header.Set("X-Test-User", memory.SeedDonorID)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.NotContains(t, rr.Body.String(), "connection reset")
}

func TestFormatAmount(t *testing.T) {
	assert.Equal(t, "25.00 USD", FormatAmount(2500, "USD"))
	assert.Equal(t, "0.05 EUR", FormatAmount(5, "EUR"))
	assert.Equal(t, "-1.50 USD", FormatAmount(-150, "USD"))
}
