package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"martelinho/internal/storage"
)

func TestServicesSelectFiltersAndOrders(t *testing.T) {
	ctx := context.Background()
	tbl := New().Services()
	rows := []storage.Row{
		{storage.ColID: "1", storage.ColServiceDate: "2024-01-10", storage.ColServiceValue: "100.00"},
		{storage.ColID: "2", storage.ColServiceDate: "2024-01-31", storage.ColServiceValue: "200.00"},
		{storage.ColID: "3", storage.ColServiceDate: "2024-02-01", storage.ColServiceValue: "500.00"},
	}
	for _, r := range rows {
		if err := tbl.Insert(ctx, "t1", r); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}
	if err := tbl.Insert(ctx, "t2", storage.Row{storage.ColID: "4", storage.ColServiceDate: "2024-01-15"}); err != nil {
		t.Fatalf("insert other tenant: %v", err)
	}

	got, err := tbl.Select(ctx, storage.From("t1").
		Select(storage.ColID, storage.ColServiceValue).
		Between(storage.ColServiceDate, "2024-01-01", "2024-01-31").
		Order(storage.ColServiceDate, true))
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d rows, want 2", len(got))
	}
	if got[0][storage.ColID] != "2" || got[1][storage.ColID] != "1" {
		t.Errorf("order = %v, %v", got[0][storage.ColID], got[1][storage.ColID])
	}
	if _, ok := got[0][storage.ColServiceDate]; ok {
		t.Error("projection leaked unselected column")
	}
}

func TestServicesTenantIsolation(t *testing.T) {
	ctx := context.Background()
	tbl := New().Services()
	if err := tbl.Insert(ctx, "t1", storage.Row{storage.ColID: "1", storage.ColClientName: "Ana"}); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := tbl.Update(ctx, "t2", "1", storage.Row{storage.ColClientName: "Eve"}); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("update err = %v, want ErrNotFound", err)
	}
	if err := tbl.Delete(ctx, "t2", "1"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("delete err = %v, want ErrNotFound", err)
	}
	if _, err := tbl.Select(ctx, storage.From("")); !errors.Is(err, storage.ErrTenantRequired) {
		t.Fatalf("select err = %v, want ErrTenantRequired", err)
	}

	if err := tbl.Update(ctx, "t1", "1", storage.Row{storage.ColClientName: "Ana Maria", storage.ColTenantID: "t2"}); err != nil {
		t.Fatalf("update: %v", err)
	}
	got, _ := tbl.Select(ctx, storage.From("t1"))
	if len(got) != 1 || got[0][storage.ColClientName] != "Ana Maria" {
		t.Fatalf("rows = %v", got)
	}
	if err := tbl.Delete(ctx, "t1", "1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if got, _ := tbl.Select(ctx, storage.From("t1")); len(got) != 0 {
		t.Fatalf("rows after delete = %v", got)
	}
}

func TestServicesInsertConflicts(t *testing.T) {
	ctx := context.Background()
	tbl := New().Services()
	_ = tbl.Insert(ctx, "t1", storage.Row{storage.ColID: "1", storage.ColAuthCode: "AC000001"})
	if err := tbl.Insert(ctx, "t1", storage.Row{storage.ColID: "1"}); !errors.Is(err, storage.ErrConflict) {
		t.Errorf("duplicate id err = %v", err)
	}
	if err := tbl.Insert(ctx, "t2", storage.Row{storage.ColID: "2", storage.ColAuthCode: "AC000001"}); !errors.Is(err, storage.ErrConflict) {
		t.Errorf("duplicate auth code err = %v", err)
	}
	if err := tbl.Insert(ctx, "t1", storage.Row{"password": "x"}); !errors.Is(err, storage.ErrUnknownColumn) {
		t.Errorf("unknown column err = %v", err)
	}
}

func TestUsersAndSessions(t *testing.T) {
	ctx := context.Background()
	s := New()
	if err := s.CreateUser(ctx, storage.User{ID: "u1", Email: "A@B.com"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := s.CreateUser(ctx, storage.User{ID: "u2", Email: "a@b.com"}); !errors.Is(err, storage.ErrConflict) {
		t.Fatalf("duplicate email err = %v", err)
	}
	if u, err := s.UserByEmail(ctx, "a@B.COM"); err != nil || u.ID != "u1" {
		t.Fatalf("UserByEmail = %+v, %v", u, err)
	}

	now := time.Now()
	_ = s.CreateSession(ctx, storage.Session{ID: "j1", UserID: "u1", ExpiresAt: now.Add(time.Hour)})
	if err := s.RevokeSession(ctx, "j1", now); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	sess, _ := s.SessionByID(ctx, "j1")
	if sess.Active(now) {
		t.Fatal("revoked session is active")
	}
	if err := s.RevokeSession(ctx, "j1", now); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("second revoke err = %v", err)
	}
}
