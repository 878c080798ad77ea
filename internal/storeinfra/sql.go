package storeinfra

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/YoadTamar/aws-hw2/directory"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/schema"
)

// SQL drivers accepted by OpenSQL.
const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
)

type recordModel struct {
	bun.BaseModel `bun:"table:records,alias:r"`

	ID          uuid.UUID `bun:"id,pk,notnull,type:uuid"`
	Name        string    `bun:"name,notnull,unique"`
	Category    string    `bun:"category,notnull"`
	Region      string    `bun:"region,notnull"`
	Rating      float64   `bun:"rating,notnull"`
	RatingCount int       `bun:"rating_count,notnull"`
}

func toModel(r directory.Record) *recordModel {
	return &recordModel{
		Name:        r.Name,
		Category:    r.Category,
		Region:      r.Region,
		Rating:      r.Rating,
		RatingCount: r.RatingCount,
	}
}

func (m recordModel) record() directory.Record {
	return directory.Record{
		Name:        m.Name,
		Category:    m.Category,
		Region:      m.Region,
		Rating:      m.Rating,
		RatingCount: m.RatingCount,
	}
}

func recordHandlers() repository.ModelHandlers[*recordModel] {
	return repository.ModelHandlers[*recordModel]{
		NewRecord: func() *recordModel {
			return &recordModel{}
		},
		GetID: func(m *recordModel) uuid.UUID {
			return m.ID
		},
		SetID: func(m *recordModel, id uuid.UUID) {
			m.ID = id
		},
		GetIdentifier: func() string {
			return "name"
		},
	}
}

// SQLStore keeps records in a relational table through a bun repository. Rows carry
// a surrogate uuid key; name is unique.
type SQLStore struct {
	db     *bun.DB
	repo   repository.Repository[*recordModel]
	driver string
}

var _ directory.RecordStore = (*SQLStore)(nil)

// NewSQLStore wraps an existing bun database.
func NewSQLStore(db *bun.DB) *SQLStore {
	return &SQLStore{
		db:     db,
		repo:   repository.NewRepository[*recordModel](db, recordHandlers()),
		driver: repository.DetectDriver(db),
	}
}

// OpenSQL opens a database for driver and wraps it with the matching bun dialect.
func OpenSQL(driver, dsn string) (*SQLStore, error) {
	var dialect schema.Dialect
	switch driver {
	case DriverSQLite:
		dialect = sqlitedialect.New()
	case DriverPostgres:
		dialect = pgdialect.New()
	default:
		return nil, fmt.Errorf("unsupported sql driver %q", driver)
	}

	sqlDB, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", driver, err)
	}
	if driver == DriverSQLite && strings.Contains(dsn, ":memory:") {
		// every pooled connection would otherwise see its own empty database
		sqlDB.SetMaxOpenConns(1)
	}
	return NewSQLStore(bun.NewDB(sqlDB, dialect)), nil
}

// DB exposes the underlying bun database.
func (s *SQLStore) DB() *bun.DB {
	return s.db
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}

// CreateSchema creates the records table and its query indexes if they do not exist.
func (s *SQLStore) CreateSchema(ctx context.Context) error {
	if _, err := s.db.NewCreateTable().
		Model((*recordModel)(nil)).
		IfNotExists().
		Exec(ctx); err != nil {
		return fmt.Errorf("failed to create records table: %w", err)
	}

	indexes := []struct {
		name    string
		columns []string
	}{
		{name: "records_category_idx", columns: []string{"category", "rating"}},
		{name: "records_region_idx", columns: []string{"region", "rating"}},
		{name: "records_region_category_idx", columns: []string{"region", "category", "rating"}},
	}
	for _, idx := range indexes {
		if _, err := s.db.NewCreateIndex().
			Model((*recordModel)(nil)).
			Index(idx.name).
			Column(idx.columns...).
			IfNotExists().
			Exec(ctx); err != nil {
			return fmt.Errorf("failed to create index %s: %w", idx.name, err)
		}
	}
	return nil
}

func (s *SQLStore) byName(name string) repository.SelectCriteria {
	return repository.SelectBy("name", "=", name)
}

func (s *SQLStore) get(ctx context.Context, name string) (*recordModel, error) {
	m, err := s.repo.Get(ctx, s.byName(name))
	if repository.IsRecordNotFound(err) {
		return nil, directory.ErrRecordNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get record: %w", err)
	}
	return m, nil
}

func (s *SQLStore) Get(ctx context.Context, name string) (directory.Record, error) {
	m, err := s.get(ctx, name)
	if err != nil {
		return directory.Record{}, err
	}
	return m.record(), nil
}

func (s *SQLStore) Insert(ctx context.Context, record directory.Record) error {
	if _, err := s.repo.Create(ctx, toModel(record)); err != nil {
		if repository.IsDuplicatedKey(repository.MapDatabaseError(err, s.driver)) {
			return directory.ErrRecordExists
		}
		return fmt.Errorf("failed to insert record: %w", err)
	}
	return nil
}

func (s *SQLStore) Delete(ctx context.Context, name string) error {
	if err := s.repo.DeleteWhere(ctx, repository.DeleteBy("name", "=", name)); err != nil {
		return fmt.Errorf("failed to delete record: %w", err)
	}
	return nil
}

// UpdateRating writes the explicit rating columns so a zero rating is stored, and
// relies on the repository's single-row check to detect a stale expected count.
func (s *SQLStore) UpdateRating(ctx context.Context, update directory.RatingUpdate) error {
	current, err := s.get(ctx, update.Name)
	if err != nil {
		return err
	}

	criteria := []repository.UpdateCriteria{
		repository.UpdateSetColumn("rating", update.Rating),
		repository.UpdateSetColumn("rating_count", update.Count),
	}
	if update.ExpectedCount != nil {
		expected := *update.ExpectedCount
		criteria = append(criteria, repository.UpdateRawProcessor(func(q *bun.UpdateQuery) *bun.UpdateQuery {
			return q.Where("?TableAlias.rating_count = ?", expected)
		}))
	}

	_, err = s.repo.Update(ctx, &recordModel{ID: current.ID}, criteria...)
	if err == nil {
		return nil
	}
	if !repository.IsSQLExpectedCountViolation(err) {
		return fmt.Errorf("failed to update rating: %w", err)
	}

	n, err := s.repo.Count(ctx, s.byName(update.Name))
	if err != nil {
		return fmt.Errorf("failed to update rating: %w", err)
	}
	if n == 0 {
		return directory.ErrRecordNotFound
	}
	return directory.ErrStaleRating
}

func (s *SQLStore) QueryByCategory(ctx context.Context, category string, limit int) ([]directory.Record, error) {
	return s.query(ctx, limit, repository.SelectBy("category", "=", category))
}

func (s *SQLStore) QueryByRegion(ctx context.Context, region string, limit int) ([]directory.Record, error) {
	return s.query(ctx, limit, repository.SelectBy("region", "=", region))
}

func (s *SQLStore) QueryByRegionAndCategory(ctx context.Context, region, category string, limit int) ([]directory.Record, error) {
	return s.query(ctx, limit,
		repository.SelectBy("region", "=", region),
		repository.SelectBy("category", "=", category),
	)
}

func (s *SQLStore) query(ctx context.Context, limit int, filters ...repository.SelectCriteria) ([]directory.Record, error) {
	criteria := append(filters,
		repository.SelectOrderDesc("rating"),
		repository.SelectOrderAsc("name"),
		repository.SelectPaginate(limit, 0),
	)
	models, _, err := s.repo.List(ctx, criteria...)
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}

	out := make([]directory.Record, 0, len(models))
	for _, m := range models {
		out = append(out, m.record())
	}
	return out, nil
}
