package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"storefront/internal/models"
	"storefront/internal/util"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// Store file names inside the data directory
const (
	FileUsers            = "users.json"
	FileProducts         = "products.json"
	FileBlogs            = "blogs.json"
	FileCoupons          = "coupons.json"
	FileGlobalDiscount   = "globalDiscount.json"
	FileTax              = "tax.json"
	FileShippingSettings = "shippingSettings.json"
	FileAdminCredentials = "adminCredentials.json"
)

var (
	ErrUserNotFound    = errors.New("user not found")
	ErrOrderNotFound   = errors.New("order not found")
	ErrProductNotFound = errors.New("product not found")
	ErrInvalidStatus   = errors.New("invalid order status")
	ErrCorruptFile     = errors.New("store file is malformed")

	// errSkipWrite lets an update callback finish without rewriting the file
	errSkipWrite = errors.New("skip write")

	errMissingFile = errors.New("store file does not exist")
)

// Store is the JSON-file persistence layer. Each entity type lives in its own file.
type Store struct {
	dir    string
	locker Locker
	logger *zap.Logger

	users    *document[map[string]models.UserData]
	products *document[[]models.Product]
	blogs    *document[[]models.BlogPost]
	coupons  *document[[]models.Coupon]
	discount *document[models.GlobalDiscount]
	tax      *document[models.TaxRate]
	shipping *document[models.ShippingSettings]
	admin    *document[models.AdminCredentials]
}

// NewStore creates the data directory if needed. A nil locker serialises writers in-process only.
func NewStore(dataDir string, locker Locker) (*Store, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data dir: %w", err)
	}
	if locker == nil {
		locker = NewLocalLocker()
	}

	s := &Store{dir: dataDir, locker: locker, logger: util.GetLogger()}

	s.users = newDocument(s, FileUsers, func() map[string]models.UserData {
		return map[string]models.UserData{}
	})
	s.users.normalize = func(v map[string]models.UserData) map[string]models.UserData {
		if v == nil {
			return map[string]models.UserData{}
		}
		return v
	}
	s.products = newDocument(s, FileProducts, func() []models.Product { return []models.Product{} })
	s.blogs = newDocument(s, FileBlogs, func() []models.BlogPost { return []models.BlogPost{} })
	s.coupons = newDocument(s, FileCoupons, func() []models.Coupon { return []models.Coupon{} })
	s.discount = newDocument(s, FileGlobalDiscount, func() models.GlobalDiscount {
		return models.GlobalDiscount{Percentage: models.DefaultDiscountPercentage}
	})
	s.discount.valid = func(v models.GlobalDiscount) bool { return v.Percentage >= 0 && v.Percentage <= 100 }
	s.tax = newDocument(s, FileTax, func() models.TaxRate {
		return models.TaxRate{Rate: models.DefaultTaxRate}
	})
	s.tax.valid = func(v models.TaxRate) bool { return v.Rate >= 0 && v.Rate <= 100 }
	s.shipping = newDocument(s, FileShippingSettings, func() models.ShippingSettings {
		return models.ShippingSettings{Rate: models.DefaultShippingRate, Threshold: models.DefaultShippingThreshold}
	})
	s.shipping.valid = func(v models.ShippingSettings) bool { return v.Rate >= 0 && v.Threshold >= 0 }
	s.admin = newDocument(s, FileAdminCredentials, func() models.AdminCredentials { return models.AdminCredentials{} })

	return s, nil
}

// Dir returns the data directory
func (s *Store) Dir() string {
	return s.dir
}

// document is one store file holding a value of type T
type document[T any] struct {
	store     *Store
	name      string
	path      string
	defaults  func() T
	valid     func(T) bool
	normalize func(T) T
}

func newDocument[T any](s *Store, name string, defaults func() T) *document[T] {
	return &document[T]{
		store:    s,
		name:     name,
		path:     filepath.Join(s.dir, name),
		defaults: defaults,
	}
}

// load reads and parses the file. A missing file yields the default; it is
// written to disk only when initialise is set, which requires the file lock.
// Without initialise a missing file also returns errMissingFile.
// A malformed file yields the default together with ErrCorruptFile.
func (d *document[T]) load(initialise bool) (T, error) {
	data, err := os.ReadFile(d.path)
	if errors.Is(err, fs.ErrNotExist) {
		v := d.defaults()
		if !initialise {
			return v, errMissingFile
		}
		if werr := d.write(v); werr != nil {
			d.store.logger.Warn("Failed to initialise store file", zap.String("file", d.name), zap.Error(werr))
		}
		util.StoreReadsTotal.WithLabelValues(d.name, "initialised").Inc()
		return v, nil
	}
	if err != nil {
		util.StoreReadsTotal.WithLabelValues(d.name, "error").Inc()
		return d.defaults(), fmt.Errorf("failed to read %s: %w", d.name, err)
	}

	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		util.StoreReadsTotal.WithLabelValues(d.name, "malformed").Inc()
		return d.defaults(), fmt.Errorf("%w: %s: %v", ErrCorruptFile, d.name, err)
	}
	if d.valid != nil && !d.valid(v) {
		util.StoreReadsTotal.WithLabelValues(d.name, "invalid").Inc()
		return d.defaults(), fmt.Errorf("%w: %s: value out of range", ErrCorruptFile, d.name)
	}
	if d.normalize != nil {
		v = d.normalize(v)
	}

	util.StoreReadsTotal.WithLabelValues(d.name, "ok").Inc()
	return v, nil
}

// Read never fails: problems are logged and the default is returned
func (d *document[T]) Read(ctx context.Context) T {
	ctx, span := util.StartSpan(ctx, "Store.Read", attribute.String("store.file", d.name))
	defer span.End()

	v, err := d.load(false)
	if errors.Is(err, errMissingFile) {
		v, err = d.initialise(ctx)
	}
	if err != nil {
		util.FailSpan(span, err)
		d.store.logger.Error("Store file unreadable, using default",
			zap.String("file", d.name),
			zap.Error(err))
	}
	return v
}

// initialise creates a missing file under the lock, or reads the file a
// concurrent writer created first
func (d *document[T]) initialise(ctx context.Context) (T, error) {
	unlock, err := d.lock(ctx)
	if err != nil {
		return d.defaults(), err
	}
	defer unlock()

	return d.load(true)
}

// Write replaces the whole file
func (d *document[T]) Write(ctx context.Context, v T) error {
	ctx, span := util.StartSpan(ctx, "Store.Write", attribute.String("store.file", d.name))
	defer span.End()

	unlock, err := d.lock(ctx)
	if err != nil {
		return err
	}
	defer unlock()

	return d.write(v)
}

// Update runs a read-modify-write cycle while holding the file lock.
// A malformed file is never overwritten by an update.
func (d *document[T]) Update(ctx context.Context, fn func(*T) error) error {
	ctx, span := util.StartSpan(ctx, "Store.Update", attribute.String("store.file", d.name))
	defer span.End()

	unlock, err := d.lock(ctx)
	if err != nil {
		return err
	}
	defer unlock()

	v, err := d.load(true)
	if err != nil {
		d.store.logger.Error("Refusing to update unreadable store file",
			zap.String("file", d.name),
			zap.Error(err))
		util.FailSpan(span, err)
		return err
	}

	if err := fn(&v); err != nil {
		if errors.Is(err, errSkipWrite) {
			return nil
		}
		return err
	}

	if err := d.write(v); err != nil {
		util.FailSpan(span, err)
		return err
	}
	return nil
}

func (d *document[T]) lock(ctx context.Context) (func(), error) {
	start := time.Now()
	unlock, err := d.store.locker.Lock(ctx, d.name)
	util.StoreLockWait.WithLabelValues(d.name).Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, fmt.Errorf("failed to lock %s: %w", d.name, err)
	}
	return unlock, nil
}

// write serialises with 2-space indentation through a temp file and rename
func (d *document[T]) write(v T) (err error) {
	defer func() {
		result := "ok"
		if err != nil {
			result = "error"
			err = fmt.Errorf("failed to write %s: %w", d.name, err)
		}
		util.StoreWritesTotal.WithLabelValues(d.name, result).Inc()
	}()

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(d.path), d.name+".*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, d.path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}
