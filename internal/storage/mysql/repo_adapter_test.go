package mysql

import (
	"context"
	"errors"
	"os"
	"strings"
	"sync/atomic"
	"testing"

	driver "github.com/go-sql-driver/mysql"

	"salesload/internal/ddl"
	"salesload/internal/storage"
	"salesload/internal/table"
)

func TestAdapterRegistrationAndClose(t *testing.T) {
	orig := newRepository
	defer func() { newRepository = orig }()

	var gotCfg Config
	var closed int32
	newRepository = func(ctx context.Context, cfg Config) (*Repository, func(), error) {
		gotCfg = cfg
		return &Repository{}, func() { atomic.AddInt32(&closed, 1) }, nil
	}

	dsn := "user:pass@tcp(localhost:3306)/retail?parseTime=true"
	repo, err := storage.New(context.Background(), storage.Config{Kind: Kind, DSN: dsn})
	if err != nil {
		t.Fatalf("storage.New error: %v", err)
	}
	if gotCfg.DSN != dsn {
		t.Errorf("cfg.DSN = %q, want %q", gotCfg.DSN, dsn)
	}
	repo.Close()
	repo.Close()
	if atomic.LoadInt32(&closed) != 1 {
		t.Fatalf("Close() did not invoke closeFn")
	}
}

// TestNewRepository_BadDSN fails before any network I/O.
func TestNewRepository_BadDSN(t *testing.T) {
	t.Parallel()

	_, _, err := NewRepository(context.Background(), Config{DSN: "user:pass@tcp(localhost:3306"})
	if err == nil || !strings.Contains(err.Error(), "mysql dsn") {
		t.Fatalf("err = %v, want mysql dsn error", err)
	}
}

func TestQuoteIdentAndDialect(t *testing.T) {
	t.Parallel()

	if got := quoteIdent("we`ird"); got != "`we``ird`" {
		t.Fatalf("quoteIdent = %s", got)
	}
	got, err := ddl.BuildCreateTableSQL(Dialect, ddl.TableDef{Schema: "retail_db", Name: "best_buy_sales", Columns: []ddl.ColumnDef{
		{Name: "weekly_sales", Kind: table.KindFloat, Nullable: true},
		{Name: "date", Kind: table.KindDate, Nullable: true},
	}})
	if err != nil {
		t.Fatalf("BuildCreateTableSQL: %v", err)
	}
	for _, want := range []string{"`retail_db`.`best_buy_sales`", "`weekly_sales` DOUBLE", "`date` DATETIME(6)"} {
		if !strings.Contains(got, want) {
			t.Errorf("missing %q in %s", want, got)
		}
	}
}

func TestDescribe(t *testing.T) {
	t.Parallel()

	base := &driver.MySQLError{Number: 1045, Message: "Access denied"}
	err := describe(base)
	if !strings.Contains(err.Error(), "mysql error 1045") {
		t.Fatalf("describe = %v", err)
	}
	var me *driver.MySQLError
	if !errors.As(err, &me) {
		t.Fatalf("MySQLError lost from chain")
	}
	plain := errors.New("x")
	if describe(plain) != plain {
		t.Fatalf("non-mysql errors must pass through")
	}
}

// TestReplaceTable_Integration runs only when TEST_MYSQL_DSN is set.
func TestReplaceTable_Integration(t *testing.T) {
	t.Parallel()

	dsn := os.Getenv("TEST_MYSQL_DSN")
	if dsn == "" {
		t.Skip("skipping integration test: set TEST_MYSQL_DSN to run")
	}
	ctx := context.Background()
	r, closeFn, err := NewRepository(ctx, Config{DSN: dsn})
	if err != nil {
		t.Fatalf("NewRepository: %v", err)
	}
	defer closeFn()

	if err := r.EnsureSchema(ctx, "etl_it"); err != nil {
		t.Fatalf("EnsureSchema: %v", err)
	}
	def := ddl.TableDef{Schema: "etl_it", Name: "replace_test", Columns: []ddl.ColumnDef{
		{Name: "a", Kind: table.KindInt, Nullable: true},
	}}
	for i := 0; i < 2; i++ {
		if _, err := r.ReplaceTable(ctx, def, [][]any{{int64(1)}, {int64(2)}}, 1); err != nil {
			t.Fatalf("ReplaceTable #%d: %v", i, err)
		}
	}
	ok, err := r.TableExists(ctx, "etl_it", "replace_test")
	if err != nil || !ok {
		t.Fatalf("TableExists = %v, %v", ok, err)
	}
	n, err := r.CountRows(ctx, "etl_it", "replace_test")
	if err != nil || n != 2 {
		t.Fatalf("CountRows = %d, %v; want 2", n, err)
	}
}
