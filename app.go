package goimagestorage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/autowp/goimagestorage/config"
	"github.com/autowp/goimagestorage/image/sampler"
	"github.com/autowp/goimagestorage/image/storage"
	_ "github.com/go-sql-driver/mysql" // enable mysql driver
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/mysql"    // enable mysql migrations
	_ "github.com/golang-migrate/migrate/v4/database/postgres" // enable postgres migrations
	_ "github.com/golang-migrate/migrate/v4/source/file"       // enable file migration source
	_ "github.com/lib/pq"                                      // enable postgres driver
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
)

var errUnsupportedDriver = errors.New("unsupported driver")

// Application is Service Main Object.
type Application struct {
	container *Container
}

// APIImage is the printable view of a stored image.
type APIImage struct {
	ID       int64     `json:"id"`
	Src      string    `json:"src"`
	Width    int       `json:"width"`
	Height   int       `json:"height"`
	Filesize int64     `json:"filesize"`
	Dir      string    `json:"dir"`
	Filepath string    `json:"filepath"`
	DateAdd  time.Time `json:"date_add"`
}

func ImageToAPIImage(img *storage.Image) *APIImage {
	if img == nil {
		return nil
	}

	return &APIImage{
		ID:       img.ID(),
		Src:      img.Src(),
		Width:    img.Width(),
		Height:   img.Height(),
		Filesize: img.FileSize(),
		Dir:      img.Dir(),
		Filepath: img.Filepath(),
		DateAdd:  img.DateAdd(),
	}
}

// NewApplication constructor.
func NewApplication(cfg config.Config) *Application {
	return &Application{
		container: NewContainer(cfg),
	}
}

// Close Destructor.
func (s *Application) Close() error {
	logrus.Debug("Closing service")

	err := s.container.Close()
	if err != nil {
		return err
	}

	logrus.Debug("Service closed")

	return nil
}

func (s *Application) Migrate() error {
	cfg := s.container.Config()

	err := applyMigrations(cfg)
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}

	return nil
}

// migrationsURL converts a database/sql DSN into the URL form expected by migrate.
func migrationsURL(driver string, dsn string) (string, error) {
	switch driver {
	case config.DriverMySQL:
		if strings.HasPrefix(dsn, "mysql://") {
			return dsn, nil
		}

		return "mysql://" + dsn, nil
	case config.DriverPostgres:
		return dsn, nil
	}

	return "", fmt.Errorf("%w: `%s`", errUnsupportedDriver, driver)
}

func migrationsDir(cfg config.Config) (string, error) {
	if cfg.Migrations.Dir != "" {
		return cfg.Migrations.Dir, nil
	}

	ex, err := os.Executable()
	if err != nil {
		return "", err
	}

	return filepath.Join(filepath.Dir(ex), "migrations", cfg.Driver), nil
}

func applyMigrations(cfg config.Config) error {
	logrus.Info("Apply migrations")

	dir, err := migrationsDir(cfg)
	if err != nil {
		return err
	}

	databaseURL, err := migrationsURL(cfg.Driver, cfg.DSN)
	if err != nil {
		return err
	}

	m, err := migrate.New("file://"+dir, databaseURL)
	if err != nil {
		return err
	}

	defer func() {
		sourceErr, databaseErr := m.Close()
		if sourceErr != nil {
			logrus.Error(sourceErr.Error())
		}

		if databaseErr != nil {
			logrus.Error(databaseErr.Error())
		}
	}()

	err = m.Up()
	if err != nil {
		return err
	}

	logrus.Info("Migrations applied")

	return nil
}

func (s *Application) Registry() *prometheus.Registry {
	return s.container.Registry()
}

func (s *Application) ListDirs() ([]string, error) {
	is, err := s.container.ImageStorage()
	if err != nil {
		return nil, err
	}

	return is.Dirs(), nil
}

func (s *Application) FlushFormat(ctx context.Context, format string) error {
	is, err := s.container.ImageStorage()
	if err != nil {
		return err
	}

	return is.Flush(ctx, storage.FlushOptions{Format: format})
}

func (s *Application) FlushImage(ctx context.Context, imageID int64) error {
	is, err := s.container.ImageStorage()
	if err != nil {
		return err
	}

	return is.Flush(ctx, storage.FlushOptions{ImageID: imageID})
}

func (s *Application) ListBrokenFiles(ctx context.Context, dir string) ([]string, error) {
	is, err := s.container.ImageStorage()
	if err != nil {
		return nil, err
	}

	return is.ListBrokenFiles(ctx, dir)
}

func (s *Application) FixBrokenFiles(ctx context.Context, dir string) (int, error) {
	is, err := s.container.ImageStorage()
	if err != nil {
		return 0, err
	}

	return is.FixBrokenFiles(ctx, dir)
}

func (s *Application) DeleteBrokenFiles(ctx context.Context, dir string) (int, error) {
	is, err := s.container.ImageStorage()
	if err != nil {
		return 0, err
	}

	return is.DeleteBrokenFiles(ctx, dir)
}

func (s *Application) ClearEmptyDirs(ctx context.Context, dir string) (int, error) {
	is, err := s.container.ImageStorage()
	if err != nil {
		return 0, err
	}

	return is.ClearEmptyDirs(ctx, dir)
}

func (s *Application) ImageStorageGetImage(ctx context.Context, imageID int64) (*APIImage, error) {
	is, err := s.container.ImageStorage()
	if err != nil {
		return nil, err
	}

	img, err := is.Image(ctx, imageID)
	if err != nil {
		return nil, err
	}

	return ImageToAPIImage(img), nil
}

func (s *Application) ImageStorageGetFormattedImage(
	ctx context.Context, imageID int64, format string, crop *sampler.Crop,
) (*APIImage, error) {
	is, err := s.container.ImageStorage()
	if err != nil {
		return nil, err
	}

	request, err := storage.NewRequest(imageID, crop)
	if err != nil {
		return nil, err
	}

	img, err := is.FormattedImage(ctx, request, format)
	if err != nil {
		return nil, err
	}

	return ImageToAPIImage(img), nil
}

func (s *Application) Flop(ctx context.Context, imageID int64) error {
	is, err := s.container.ImageStorage()
	if err != nil {
		return err
	}

	return is.Flop(ctx, imageID)
}

func (s *Application) Normalize(ctx context.Context, imageID int64) error {
	is, err := s.container.ImageStorage()
	if err != nil {
		return err
	}

	return is.Normalize(ctx, imageID)
}

// ParseCrop parses "left,top,width,height".
func ParseCrop(value string) (*sampler.Crop, error) {
	if value == "" {
		return nil, nil //nolint: nilnil
	}

	var crop sampler.Crop

	_, err := fmt.Sscanf(value, "%d,%d,%d,%d", &crop.Left, &crop.Top, &crop.Width, &crop.Height)
	if err != nil {
		return nil, fmt.Errorf("%w: crop `%s`: %w", config.ErrValidation, value, err)
	}

	if err = crop.Validate(); err != nil {
		return nil, err
	}

	return &crop, nil
}
