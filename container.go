package goimagestorage

import (
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/autowp/goimagestorage/config"
	"github.com/autowp/goimagestorage/image/codec"
	"github.com/autowp/goimagestorage/image/codec/magick"
	"github.com/autowp/goimagestorage/image/codec/native"
	"github.com/autowp/goimagestorage/image/storage"
	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/mysql"    // enable mysql dialect
	_ "github.com/doug-martin/goqu/v9/dialect/postgres" // enable postgres dialect
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"gopkg.in/gographics/imagick.v3/imagick"
)

var errUnknownCodec = errors.New("unknown codec")

// Container Container.
type Container struct {
	config             config.Config
	db                 *sql.DB
	dbMutex            sync.Mutex
	goquDB             *goqu.Database
	repository         *storage.Repository
	codec              codec.Codec
	imagickInitialized bool
	registry           *prometheus.Registry
	metrics            *storage.Metrics
	imageStorage       *storage.Storage
}

// NewContainer constructor.
func NewContainer(cfg config.Config) *Container {
	return &Container{
		config:   cfg,
		registry: prometheus.NewRegistry(),
	}
}

func (s *Container) Close() error {
	s.imageStorage = nil
	s.repository = nil
	s.goquDB = nil

	if s.db != nil {
		err := s.db.Close()
		if err != nil {
			logrus.Error(err.Error())
		}

		s.db = nil
	}

	if s.imagickInitialized {
		imagick.Terminate()

		s.imagickInitialized = false
		s.codec = nil
	}

	return nil
}

func (s *Container) Config() config.Config {
	return s.config
}

func (s *Container) DB() (*sql.DB, error) {
	s.dbMutex.Lock()
	defer s.dbMutex.Unlock()

	if s.db != nil {
		return s.db, nil
	}

	start := time.Now()

	const (
		connectionTimeout = 60 * time.Second
		reconnectDelay    = 100 * time.Millisecond
	)

	logrus.Infof("Waiting for %s", s.config.Driver)

	var (
		db  *sql.DB
		err error
	)

	for {
		db, err = sql.Open(s.config.Driver, s.config.DSN)
		if err != nil {
			return nil, err
		}

		err = db.Ping()
		if err == nil {
			logrus.Info("Started.")

			break
		}

		if time.Since(start) > connectionTimeout {
			return nil, err
		}

		logrus.Infof(". %s", err.Error())
		time.Sleep(reconnectDelay)
	}

	s.db = db

	return s.db, nil
}

func (s *Container) GoquDB() (*goqu.Database, error) {
	if s.goquDB == nil {
		db, err := s.DB()
		if err != nil {
			return nil, err
		}

		s.goquDB = goqu.New(s.config.Driver, db)
	}

	return s.goquDB, nil
}

func (s *Container) Repository() (*storage.Repository, error) {
	if s.repository == nil {
		db, err := s.GoquDB()
		if err != nil {
			return nil, err
		}

		s.repository = storage.NewRepository(db, s.config.ImageStorage)
	}

	return s.repository, nil
}

func (s *Container) Codec() (codec.Codec, error) { //nolint: ireturn
	if s.codec == nil {
		switch s.config.ImageStorage.Codec {
		case config.CodecImagick, "":
			imagick.Initialize()

			s.imagickInitialized = true
			s.codec = magick.NewCodec()
		case config.CodecNative:
			s.codec = native.NewCodec()
		default:
			return nil, fmt.Errorf("%w: %w: `%s`", config.ErrValidation, errUnknownCodec, s.config.ImageStorage.Codec)
		}
	}

	return s.codec, nil
}

func (s *Container) Registry() *prometheus.Registry {
	return s.registry
}

func (s *Container) Metrics() (*storage.Metrics, error) {
	if s.metrics == nil {
		metrics, err := storage.NewMetrics(s.registry)
		if err != nil {
			return nil, err
		}

		s.metrics = metrics
	}

	return s.metrics, nil
}

func (s *Container) ImageStorage() (*storage.Storage, error) {
	if s.imageStorage == nil {
		repository, err := s.Repository()
		if err != nil {
			return nil, err
		}

		imageCodec, err := s.Codec()
		if err != nil {
			return nil, err
		}

		metrics, err := s.Metrics()
		if err != nil {
			return nil, err
		}

		imageStorage, err := storage.NewStorage(repository, imageCodec, s.config.ImageStorage, metrics)
		if err != nil {
			return nil, err
		}

		s.imageStorage = imageStorage
	}

	return s.imageStorage, nil
}
