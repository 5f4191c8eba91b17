package client

import (
	"bytes"
	"context"
	"fmt"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/simp-lee/bankoffice/internal/domain"
)

// pagedLister serves total clients in pages and counts the calls.
type pagedLister struct {
	total int
	calls int
}

func (l *pagedLister) ListClients(_ context.Context, f domain.ClientFilter) (*domain.PageResult[domain.Client], error) {
	l.calls++
	var content []domain.Client
	for i := f.Page * f.Size; i < l.total && len(content) < f.Size; i++ {
		content = append(content, domain.Client{BaseModel: domain.BaseModel{ID: uint(i + 1)}, Name: fmt.Sprintf("c%d", i)})
	}
	return domain.NewPageResult(content, int64(l.total), f.PageRequest), nil
}

func (l *pagedLister) GetClient(context.Context, uint) (*domain.Client, error) {
	return nil, domain.ErrNotFound
}

func (l *pagedLister) DeleteClient(context.Context, uint) error { return nil }

func TestCollectExport_PagesThroughEverything(t *testing.T) {
	l := &pagedLister{total: 250}
	f := domain.DefaultClientFilter()
	f.Page = 4

	got, err := CollectExport(context.Background(), l, f)
	if err != nil {
		t.Fatalf("CollectExport: %v", err)
	}
	if len(got) != 250 || l.calls != 3 {
		t.Errorf("rows = %d, calls = %d", len(got), l.calls)
	}
	if got[0].ID != 1 || got[249].ID != 250 {
		t.Errorf("order: first %d, last %d", got[0].ID, got[249].ID)
	}
}

func TestCollectExport_Empty(t *testing.T) {
	l := &pagedLister{}
	got, err := CollectExport(context.Background(), l, domain.DefaultClientFilter())
	if err != nil || len(got) != 0 || l.calls != 1 {
		t.Errorf("rows = %d, calls = %d, err = %v", len(got), l.calls, err)
	}
}

func TestWriteXLSX(t *testing.T) {
	lat, lng := 33.57, -7.59
	clients := []domain.Client{
		{
			BaseModel:   domain.BaseModel{ID: 1, CreatedAt: testNow},
			Name:        "Amal",
			Surname:     "Bennani",
			Email:       "amal@example.ma",
			DateOfBirth: date(t, "1990-01-15"),
			Latitude:    &lat,
			Longitude:   &lng,
			Accounts:    []domain.Account{{RIB: "RIB123456789"}},
		},
		{BaseModel: domain.BaseModel{ID: 2}, Name: "Omar", Email: "omar@example.ma"},
	}

	var buf bytes.Buffer
	if err := WriteXLSX(&buf, clients, testNow); err != nil {
		t.Fatalf("WriteXLSX: %v", err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("OpenReader: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows(exportSheet)
	if err != nil {
		t.Fatalf("GetRows: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("rows = %d, want header + 2", len(rows))
	}
	if rows[0][0] != "ID" || rows[0][6] != "Age" {
		t.Errorf("header = %v", rows[0])
	}
	amal := rows[1]
	if amal[1] != "Amal" || amal[5] != "1990-01-15" || amal[6] != "36" || amal[16] != "1" {
		t.Errorf("row = %v", amal)
	}
	if amal[14] != "33.57" {
		t.Errorf("latitude = %q", amal[14])
	}
	// unknown birth date leaves age blank
	if omar := rows[2]; omar[5] != "" || omar[6] != "" {
		t.Errorf("row = %v", omar)
	}
}
