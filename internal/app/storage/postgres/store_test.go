package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/tradon-app/tradon/internal/app/domain/reward"
	"github.com/tradon-app/tradon/internal/app/storage"
)

func TestMigrateCreatesTable(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock new: %v", err)
	}
	defer db.Close()

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS reward_snapshots").
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := New(db, "snap").Migrate(context.Background()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestLoadMissingRowIsNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock new: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery("SELECT state FROM reward_snapshots").
		WithArgs("snap").
		WillReturnRows(sqlmock.NewRows([]string{"state"}))

	_, err = New(db, "snap").Load(context.Background())
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestLoadDecodesSnapshot(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock new: %v", err)
	}
	defer db.Close()

	want := reward.NewState()
	want.Points = 1234
	raw, _ := json.Marshal(want)

	mock.ExpectQuery("SELECT state FROM reward_snapshots").
		WithArgs("snap").
		WillReturnRows(sqlmock.NewRows([]string{"state"}).AddRow(raw))

	got, err := New(db, "snap").Load(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.Points != 1234 {
		t.Errorf("points = %d", got.Points)
	}
	if got.Tickets != reward.InitialTickets {
		t.Errorf("tickets = %d", got.Tickets)
	}
}

func TestSaveUpserts(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock new: %v", err)
	}
	defer db.Close()

	mock.ExpectExec("INSERT INTO reward_snapshots").
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := New(db, "snap").Save(context.Background(), reward.NewState()); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
