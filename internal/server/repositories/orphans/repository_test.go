package orphans

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dmitrijs2005/drivegate/internal/common"
	"github.com/dmitrijs2005/drivegate/internal/logging"
	"github.com/dmitrijs2005/drivegate/internal/server/models"
	"github.com/google/go-cmp/cmp"
)

// exerciseRepository runs the behaviour every non-SQL backend shares.
func exerciseRepository(t *testing.T, repo Repository) {
	t.Helper()
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 10, 0, 0, 123456789, time.UTC)

	in := []*models.Orphan{
		{ID: "a", Kind: models.OrphanStoredObject, Owner: "u1", Bucket: "b1", ObjectID: "f1", Operation: models.OperationUpload, Reason: "r1", CreatedAt: base},
		{ID: "b", Kind: models.OrphanDirectoryRecord, Owner: "u1", ObjectID: "f2", Operation: models.OperationDuplicate, Reason: "r2", CreatedAt: base.Add(time.Minute)},
		{ID: "c", Kind: models.OrphanStoredObject, Owner: "u2", Bucket: "b2", ObjectID: "f3", Operation: models.OperationDelete, Reason: "r3", CreatedAt: base.Add(2 * time.Minute)},
	}
	for _, o := range in {
		if err := repo.Record(ctx, o); err != nil {
			t.Fatalf("Record(%s): %v", o.ID, err)
		}
	}

	got, err := repo.List(ctx, 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	want := []*models.Orphan{in[2], in[1], in[0]}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("List mismatch (-want +got):\n%s", diff)
	}

	got, err = repo.List(ctx, 2)
	if err != nil {
		t.Fatalf("List(2): %v", err)
	}
	if len(got) != 2 || got[0].ID != "c" || got[1].ID != "b" {
		t.Fatalf("List(2) = %v", ids(got))
	}

	res, err := repo.Resolve(ctx, "b")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if diff := cmp.Diff(in[1], res); diff != "" {
		t.Fatalf("Resolve mismatch (-want +got):\n%s", diff)
	}
	if _, err := repo.Resolve(ctx, "b"); !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("second Resolve: expected ErrorNotFound, got %v", err)
	}
	if _, err := repo.Resolve(ctx, "zzz"); !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("unknown Resolve: expected ErrorNotFound, got %v", err)
	}

	got, err = repo.List(ctx, 0)
	if err != nil {
		t.Fatalf("List after resolve: %v", err)
	}
	if len(got) != 2 || got[0].ID != "c" || got[1].ID != "a" {
		t.Fatalf("List after resolve = %v", ids(got))
	}
}

func ids(list []*models.Orphan) []string {
	var res []string
	for _, o := range list {
		res = append(res, o.ID)
	}
	return res
}

func TestMemoryRepository(t *testing.T) {
	exerciseRepository(t, NewMemoryRepository())
}

func TestMemoryRepository_StoresCopies(t *testing.T) {
	repo := NewMemoryRepository()
	o := &models.Orphan{ID: "a", Reason: "before"}
	if err := repo.Record(context.Background(), o); err != nil {
		t.Fatal(err)
	}
	o.Reason = "after"

	got, _ := repo.List(context.Background(), 0)
	if got[0].Reason != "before" {
		t.Fatalf("stored value changed through caller pointer: %q", got[0].Reason)
	}
}

func TestBadgerRepository(t *testing.T) {
	repo, err := OpenBadger("", logging.NewNopLogger())
	if err != nil {
		t.Fatalf("OpenBadger: %v", err)
	}
	defer repo.Close()

	exerciseRepository(t, repo)
}

func TestBadgerRepository_PersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	at := time.Date(2024, 5, 1, 10, 0, 0, 5, time.UTC)

	repo, err := OpenBadger(dir, logging.NewNopLogger())
	if err != nil {
		t.Fatalf("OpenBadger: %v", err)
	}
	if err := repo.Record(ctx, &models.Orphan{ID: "a", Owner: "u1", ObjectID: "f1", CreatedAt: at}); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if err := repo.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	repo, err = OpenBadger(dir, logging.NewNopLogger())
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer repo.Close()

	got, err := repo.List(ctx, 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 1 || got[0].ObjectID != "f1" || !got[0].CreatedAt.Equal(at) {
		t.Fatalf("unexpected rows after reopen: %+v", got)
	}
}
