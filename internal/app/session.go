package app

import (
	"sync"
	"time"

	"temple-vouchers/internal/core"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
)

// session is one page visit. mu serialises every read and write of draft;
// it is never held across a backend call.
type session struct {
	mu         sync.Mutex
	id         string
	draft      *core.Draft
	submitting bool
}

// view snapshots the session. warnings belong to the call that produced them.
func (s *session) view(warnings ...string) *SessionResult {
	d := s.draft
	res := &SessionResult{
		ID:       s.id,
		Kind:     d.Voucher.Kind,
		Header:   d.Header,
		Warnings: warnings,
	}
	if d.Valuation != nil {
		res.InventoryRows = d.Valuation.Inventory.Rows()
		res.AccountingRows = d.Valuation.Accounting.Rows()
	} else {
		res.Rows = d.Items.Rows()
	}
	res.Totals = d.Totals()
	res.Difference = res.Totals.Difference()
	res.Balanced = d.IsBalanced()
	if err := d.ValidateItems(); err != nil {
		res.ItemsError = err.Error()
	}
	return res
}

// sessionStore keeps sessions in memory with a sliding TTL. Expired sessions
// are dropped by the cache janitor.
type sessionStore struct {
	items *cache.Cache
}

func newSessionStore(ttl time.Duration) *sessionStore {
	if ttl <= 0 {
		ttl = 2 * time.Hour
	}
	return &sessionStore{items: cache.New(ttl, ttl/4)}
}

func (st *sessionStore) create(d *core.Draft) *session {
	s := &session{id: uuid.NewString(), draft: d}
	st.items.SetDefault(s.id, s)
	return s
}

// get returns a live session and pushes its expiry out.
func (st *sessionStore) get(id string) (*session, error) {
	v, ok := st.items.Get(id)
	if !ok {
		return nil, ErrSessionNotFound
	}
	s := v.(*session)
	st.items.SetDefault(id, s)
	return s, nil
}

func (st *sessionStore) delete(id string) {
	st.items.Delete(id)
}

func (st *sessionStore) count() int {
	return st.items.ItemCount()
}
