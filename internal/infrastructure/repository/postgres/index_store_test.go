package postgres

import (
	"context"
	"encoding/json"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/kirillkom/docqa-engine/internal/core/domain"
)

func newMockIndexStore(t *testing.T) (*IndexStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return NewIndexStore(db), mock
}

func storedIndex() *domain.InvertedIndex {
	return &domain.InvertedIndex{
		IndexType:      domain.GranularitySection,
		Documents:      []string{"u1", "u2"},
		Postings:       map[string][]domain.Posting{"hcp": {{UnitID: "u1", TermFrequency: 2, DocLength: 5}}},
		IDF:            map[string]float64{"hcp": 0.98},
		Vocabulary:     []string{"hcp"},
		TotalDocuments: 2,
		AvgDocLength:   5,
		Parameters:     domain.BM25Parameters{K1: 1.5, B: 0.75},
		CreatedAt:      time.Date(2026, 3, 5, 12, 0, 0, 0, time.UTC),
	}
}

func TestIndexStoreSaveUpserts(t *testing.T) {
	store, mock := newMockIndexStore(t)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO lexical_indexes")).
		WithArgs("section", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := store.Save(context.Background(), storedIndex()); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestIndexStoreSaveRejectsInconsistentIndex(t *testing.T) {
	store, mock := newMockIndexStore(t)

	idx := storedIndex()
	idx.TotalDocuments = 7

	err := store.Save(context.Background(), idx)
	if !domain.IsKind(err, domain.ErrIndexCorrupt) {
		t.Fatalf("Save() error = %v, want ErrIndexCorrupt", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("invalid index must not reach the database: %v", err)
	}
}

func TestIndexStoreLoadRoundTrip(t *testing.T) {
	store, mock := newMockIndexStore(t)

	payload, err := json.Marshal(storedIndex())
	if err != nil {
		t.Fatalf("marshal fixture: %v", err)
	}
	mock.ExpectQuery(regexp.QuoteMeta("SELECT payload FROM lexical_indexes WHERE granularity = $1")).
		WithArgs("section").
		WillReturnRows(sqlmock.NewRows([]string{"payload"}).AddRow(payload))

	idx, err := store.Load(context.Background(), domain.GranularitySection)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if idx.TotalDocuments != 2 || idx.AvgDocLength != 5 {
		t.Fatalf("loaded index lost fields: %+v", idx)
	}
	if len(idx.Postings["hcp"]) != 1 || idx.Postings["hcp"][0].TermFrequency != 2 {
		t.Fatalf("loaded postings corrupt: %+v", idx.Postings)
	}
}

func TestIndexStoreLoadMissingGranularity(t *testing.T) {
	store, mock := newMockIndexStore(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT payload FROM lexical_indexes")).
		WithArgs("fragment").
		WillReturnRows(sqlmock.NewRows([]string{"payload"}))

	_, err := store.Load(context.Background(), domain.GranularityFragment)
	if !domain.IsKind(err, domain.ErrNotFound) {
		t.Fatalf("Load() error = %v, want ErrNotFound", err)
	}
}

func TestIndexStoreLoadCorruptPayload(t *testing.T) {
	store, mock := newMockIndexStore(t)

	cases := []struct {
		name    string
		payload []byte
	}{
		{"not json", []byte(`{"index_type": `)},
		{"inconsistent index", []byte(`{"index_type":"section","documents":["u1"],"total_documents":9}`)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			mock.ExpectQuery(regexp.QuoteMeta("SELECT payload FROM lexical_indexes")).
				WillReturnRows(sqlmock.NewRows([]string{"payload"}).AddRow(tc.payload))

			_, err := store.Load(context.Background(), domain.GranularitySection)
			if !domain.IsKind(err, domain.ErrIndexCorrupt) {
				t.Fatalf("Load() error = %v, want ErrIndexCorrupt", err)
			}
		})
	}
}
