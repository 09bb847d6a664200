package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/autowp/goimagestorage/config"
	"github.com/autowp/goimagestorage/schema"
	"github.com/doug-martin/goqu/v9"
	"github.com/doug-martin/goqu/v9/exp"
	mysqlerr "github.com/go-mysql/errors"
	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
)

const (
	mysqlDuplicateEntry   = 1062
	postgresUniqueViolate = "23505"
	postgresDialect       = "postgres"
)

// Repository is the SQL MetadataStore.
type Repository struct {
	db                  *goqu.Database
	imageTable          exp.IdentifierExpression
	dirTable            exp.IdentifierExpression
	formattedImageTable exp.IdentifierExpression
}

func NewRepository(db *goqu.Database, cfg config.ImageStorageConfig) *Repository {
	imageTable, dirTable, formattedImageTable := cfg.TableNames()

	return &Repository{
		db:                  db,
		imageTable:          goqu.T(imageTable),
		dirTable:            goqu.T(dirTable),
		formattedImageTable: goqu.T(formattedImageTable),
	}
}

func isConflict(err error) bool {
	if ok, myErr := mysqlerr.Error(err); ok && errors.Is(myErr, mysqlerr.ErrDupeKey) {
		return true
	}

	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) && mysqlErr.Number == mysqlDuplicateEntry {
		return true
	}

	var pqErr *pq.Error

	return errors.As(err, &pqErr) && pqErr.Code == postgresUniqueViolate
}

func wrapConflict(err error) error {
	if err != nil && isConflict(err) {
		return fmt.Errorf("%w: %w", ErrStoreConflict, err)
	}

	return err
}

func (s *Repository) imageSelect() *goqu.SelectDataset {
	return s.db.Select(
		s.imageTable.Col(schema.ImageTableIDColName),
		s.imageTable.Col(schema.ImageTableWidthColName),
		s.imageTable.Col(schema.ImageTableHeightColName),
		s.imageTable.Col(schema.ImageTableFilesizeColName),
		s.imageTable.Col(schema.ImageTableFilepathColName),
		s.imageTable.Col(schema.ImageTableDirColName),
		s.imageTable.Col(schema.ImageTableDateAddColName),
	).From(s.imageTable)
}

func (s *Repository) Image(ctx context.Context, id int64) (schema.ImageRow, error) {
	var row schema.ImageRow

	success, err := s.imageSelect().
		Where(s.imageTable.Col(schema.ImageTableIDColName).Eq(id)).
		ScanStructContext(ctx, &row)
	if err != nil {
		return row, err
	}

	if !success {
		return row, fmt.Errorf("%w: %d", ErrImageNotFound, id)
	}

	return row, nil
}

func (s *Repository) Images(ctx context.Context, ids []int64) ([]schema.ImageRow, error) {
	rows := make([]schema.ImageRow, 0, len(ids))

	if len(ids) == 0 {
		return rows, nil
	}

	err := s.imageSelect().
		Where(s.imageTable.Col(schema.ImageTableIDColName).In(ids)).
		ScanStructsContext(ctx, &rows)

	return rows, err
}

func (s *Repository) ImageFilepaths(ctx context.Context, dir string) ([]string, error) {
	result := make([]string, 0)

	err := s.db.Select(s.imageTable.Col(schema.ImageTableFilepathColName)).
		From(s.imageTable).
		Where(s.imageTable.Col(schema.ImageTableDirColName).Eq(dir)).
		Order(s.imageTable.Col(schema.ImageTableFilepathColName).Asc()).
		ScanValsContext(ctx, &result)

	return result, err
}

func (s *Repository) insertImageDataset(row schema.ImageRow) *goqu.InsertDataset {
	record := goqu.Record{
		schema.ImageTableWidthColName:    row.Width,
		schema.ImageTableHeightColName:   row.Height,
		schema.ImageTableFilesizeColName: row.Filesize,
		schema.ImageTableFilepathColName: row.Filepath,
		schema.ImageTableDirColName:      row.Dir,
		schema.ImageTableDateAddColName:  goqu.Func("NOW"),
	}

	if !row.DateAdd.IsZero() {
		record[schema.ImageTableDateAddColName] = row.DateAdd
	}

	return s.db.Insert(s.imageTable).Rows(record)
}

func (s *Repository) InsertImage(ctx context.Context, row schema.ImageRow) (int64, error) {
	var id int64

	ds := s.insertImageDataset(row)

	if s.db.Dialect() == postgresDialect {
		_, err := ds.Returning(s.imageTable.Col(schema.ImageTableIDColName)).Executor().ScanValContext(ctx, &id)
		if err != nil {
			return 0, wrapConflict(err)
		}

		return id, nil
	}

	res, err := ds.Executor().ExecContext(ctx)
	if err != nil {
		return 0, wrapConflict(err)
	}

	return res.LastInsertId()
}

func (s *Repository) UpdateImage(ctx context.Context, row schema.ImageRow) error {
	res, err := s.db.Update(s.imageTable).
		Set(goqu.Record{
			schema.ImageTableFilepathColName: row.Filepath,
			schema.ImageTableFilesizeColName: row.Filesize,
			schema.ImageTableWidthColName:    row.Width,
			schema.ImageTableHeightColName:   row.Height,
		}).
		Where(s.imageTable.Col(schema.ImageTableIDColName).Eq(row.ID)).
		Executor().ExecContext(ctx)
	if err != nil {
		return wrapConflict(err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}

	if affected == 0 {
		// mysql reports zero for unchanged rows
		_, err = s.Image(ctx, row.ID)

		return err
	}

	return nil
}

func (s *Repository) DeleteImage(ctx context.Context, id int64) (bool, error) {
	res, err := s.db.Delete(s.imageTable).
		Where(s.imageTable.Col(schema.ImageTableIDColName).Eq(id)).
		Executor().ExecContext(ctx)
	if err != nil {
		return false, err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}

	return affected > 0, nil
}

func (s *Repository) formattedImageWhere(filter FormattedImageFilter) []exp.Expression {
	where := make([]exp.Expression, 0)

	if len(filter.ImageIDs) > 0 {
		where = append(where, s.formattedImageTable.Col(schema.FormattedImageTableImageIDColName).In(filter.ImageIDs))
	}

	if filter.Format != "" {
		where = append(where, s.formattedImageTable.Col(schema.FormattedImageTableFormatColName).Eq(filter.Format))
	}

	if filter.FormattedImageID != 0 {
		where = append(where, s.formattedImageTable.Col(schema.FormattedImageTableFormattedImageIDColName).Eq(
			filter.FormattedImageID,
		))
	}

	return where
}

func (s *Repository) formattedImagesSelect(filter FormattedImageFilter) *goqu.SelectDataset {
	return s.db.Select(
		s.formattedImageTable.Col(schema.FormattedImageTableImageIDColName),
		s.formattedImageTable.Col(schema.FormattedImageTableFormatColName),
		s.formattedImageTable.Col(schema.FormattedImageTableCropLeftColName),
		s.formattedImageTable.Col(schema.FormattedImageTableCropTopColName),
		s.formattedImageTable.Col(schema.FormattedImageTableCropWidthColName),
		s.formattedImageTable.Col(schema.FormattedImageTableCropHeightColName),
		s.formattedImageTable.Col(schema.FormattedImageTableFormattedImageIDColName),
		s.formattedImageTable.Col(schema.FormattedImageTableStatusColName),
	).
		From(s.formattedImageTable).
		Where(s.formattedImageWhere(filter)...).
		Order(
			s.formattedImageTable.Col(schema.FormattedImageTableImageIDColName).Asc(),
			s.formattedImageTable.Col(schema.FormattedImageTableFormatColName).Asc(),
		)
}

func (s *Repository) FormattedImages(
	ctx context.Context, filter FormattedImageFilter,
) ([]schema.FormattedImageRow, error) {
	rows := make([]schema.FormattedImageRow, 0)

	err := s.formattedImagesSelect(filter).ScanStructsContext(ctx, &rows)

	return rows, err
}

func (s *Repository) upsertFormattedImageDataset(row schema.FormattedImageRow) *goqu.InsertDataset {
	return s.db.Insert(s.formattedImageTable).
		Rows(goqu.Record{
			schema.FormattedImageTableImageIDColName:          row.ImageID,
			schema.FormattedImageTableFormatColName:           row.Format,
			schema.FormattedImageTableCropLeftColName:         row.CropLeft,
			schema.FormattedImageTableCropTopColName:          row.CropTop,
			schema.FormattedImageTableCropWidthColName:        row.CropWidth,
			schema.FormattedImageTableCropHeightColName:       row.CropHeight,
			schema.FormattedImageTableFormattedImageIDColName: row.FormattedImageID,
			schema.FormattedImageTableStatusColName:           row.Status,
		}).
		OnConflict(goqu.DoUpdate(
			strings.Join(schema.FormattedImageTableKeyColNames, ", "),
			goqu.Record{
				schema.FormattedImageTableFormattedImageIDColName: row.FormattedImageID,
				schema.FormattedImageTableStatusColName:           row.Status,
			},
		))
}

func (s *Repository) UpsertFormattedImage(ctx context.Context, row schema.FormattedImageRow) error {
	_, err := s.upsertFormattedImageDataset(row).Executor().ExecContext(ctx)

	return err
}

func (s *Repository) DeleteFormattedImages(ctx context.Context, filter FormattedImageFilter) (int64, error) {
	res, err := s.db.Delete(s.formattedImageTable).
		Where(s.formattedImageWhere(filter)...).
		Executor().ExecContext(ctx)
	if err != nil {
		return 0, err
	}

	return res.RowsAffected()
}

func (s *Repository) DirCounter(ctx context.Context, dir string) (int64, error) {
	var count int64

	success, err := s.db.Select(s.dirTable.Col(schema.ImageDirTableCountColName)).
		From(s.dirTable).
		Where(s.dirTable.Col(schema.ImageDirTableDirColName).Eq(dir)).
		ScanValContext(ctx, &count)
	if err != nil {
		return 0, err
	}

	if !success {
		return 0, nil
	}

	return count, nil
}

func (s *Repository) incDirCounterDataset(dir string) *goqu.InsertDataset {
	return s.db.Insert(s.dirTable).
		Rows(goqu.Record{
			schema.ImageDirTableDirColName:   dir,
			schema.ImageDirTableCountColName: 1,
		}).
		OnConflict(goqu.DoUpdate(schema.ImageDirTableDirColName, goqu.Record{
			schema.ImageDirTableCountColName: goqu.L("? + 1", s.dirTable.Col(schema.ImageDirTableCountColName)),
		}))
}

func (s *Repository) IncDirCounter(ctx context.Context, dir string) error {
	_, err := s.incDirCounterDataset(dir).Executor().ExecContext(ctx)

	return err
}
