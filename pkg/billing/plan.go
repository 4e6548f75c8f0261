package billing

import (
	"context"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Plan describes a base subscription tier. The ID must equal the payment
// provider's price ID so checkouts and webhook events map directly onto a
// catalog entry.
type Plan struct {
	ID                string          `yaml:"id"`
	Name              string          `yaml:"name"`
	Description       string          `yaml:"description"`
	StorageLimitBytes int64           `yaml:"storage_limit_bytes"`
	GalleryLimit      int64           `yaml:"gallery_limit"`
	TrialDays         int             `yaml:"trial_days"`
	Price             Money           `yaml:"price"`
	Interval          BillingInterval `yaml:"interval"`
	Public            bool            `yaml:"public"` // available for self-service signup
}

// TrialEndsAt calculates when the trial period ends.
// Returns startedAt unchanged if no trial is available.
func (p Plan) TrialEndsAt(startedAt time.Time) time.Time {
	if p.TrialDays <= 0 {
		return startedAt
	}
	return startedAt.AddDate(0, 0, p.TrialDays).UTC()
}

// AddonPrice maps a provider price ID to the add-on type it purchases.
// Pricing is linear: total = Quantity x Price.
type AddonPrice struct {
	PriceID string    `yaml:"price_id"`
	Type    AddonType `yaml:"type"`
	Price   Money     `yaml:"price"`
}

// Catalog is the full pricing catalog: base plans, add-on prices, and the
// per-type unit sizes one add-on quantity grants. Treated as immutable after
// loading.
type Catalog struct {
	Plans       map[string]Plan       `yaml:"-"`
	AddonPrices map[string]AddonPrice `yaml:"-"`

	// UnitStorageBytes is the storage entitlement granted by one unit of a
	// storage add-on.
	UnitStorageBytes int64 `yaml:"unit_storage_bytes"`
	// UnitGalleries is the gallery entitlement granted by one unit of a
	// galleries add-on.
	UnitGalleries int64 `yaml:"unit_galleries"`
}

// PlanByPriceID returns the plan for a provider price ID.
func (c *Catalog) PlanByPriceID(priceID string) (Plan, bool) {
	p, ok := c.Plans[priceID]
	return p, ok
}

// AddonByPriceID returns the add-on price entry for a provider price ID.
func (c *Catalog) AddonByPriceID(priceID string) (AddonPrice, bool) {
	a, ok := c.AddonPrices[priceID]
	return a, ok
}

// UnitFor returns the entitlement granted by one add-on unit of the given type.
func (c *Catalog) UnitFor(t AddonType) int64 {
	switch t {
	case AddonStorage:
		return c.UnitStorageBytes
	case AddonGalleries:
		return c.UnitGalleries
	default:
		return 0
	}
}

// CatalogSource loads the pricing catalog. Implementations may read a static
// file, an embedded default, or a remote config service.
type CatalogSource interface {
	Load(ctx context.Context) (*Catalog, error)
}

// catalogFile is the YAML document shape for file-based catalogs.
type catalogFile struct {
	Plans            []Plan       `yaml:"plans"`
	Addons           []AddonPrice `yaml:"addons"`
	UnitStorageBytes int64        `yaml:"unit_storage_bytes"`
	UnitGalleries    int64        `yaml:"unit_galleries"`
}

type yamlCatalogSource struct {
	path string
}

// NewYAMLCatalogSource loads the catalog from a YAML file:
//
//	unit_storage_bytes: 10737418240
//	unit_galleries: 10
//	plans:
//	  - id: price_starter_monthly
//	    name: Starter
//	    storage_limit_bytes: 5368709120
//	    gallery_limit: 10
//	    interval: monthly
//	addons:
//	  - price_id: price_storage_addon
//	    type: storage
func NewYAMLCatalogSource(path string) CatalogSource {
	return &yamlCatalogSource{path: path}
}

func (s *yamlCatalogSource) Load(_ context.Context) (*Catalog, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCatalogNotLoaded, err)
	}

	var doc catalogFile
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCatalogNotLoaded, err)
	}

	return buildCatalog(doc)
}

type staticCatalogSource struct {
	catalog *Catalog
}

// NewStaticCatalogSource returns a CatalogSource over an in-memory catalog,
// useful for tests and single-binary deployments.
func NewStaticCatalogSource(unitStorageBytes, unitGalleries int64, plans []Plan, addons []AddonPrice) CatalogSource {
	doc := catalogFile{
		Plans:            plans,
		Addons:           addons,
		UnitStorageBytes: unitStorageBytes,
		UnitGalleries:    unitGalleries,
	}
	return &staticCatalogSource{catalog: mustBuildCatalog(doc)}
}

func (s *staticCatalogSource) Load(_ context.Context) (*Catalog, error) {
	return s.catalog, nil
}

func buildCatalog(doc catalogFile) (*Catalog, error) {
	c := &Catalog{
		Plans:            make(map[string]Plan, len(doc.Plans)),
		AddonPrices:      make(map[string]AddonPrice, len(doc.Addons)),
		UnitStorageBytes: doc.UnitStorageBytes,
		UnitGalleries:    doc.UnitGalleries,
	}

	for _, p := range doc.Plans {
		if p.ID == "" {
			return nil, fmt.Errorf("%w: plan without id", ErrInvalidCatalog)
		}
		if p.TrialDays < 0 {
			return nil, fmt.Errorf("%w: plan %s has negative trial days", ErrInvalidCatalog, p.ID)
		}
		if _, dup := c.Plans[p.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate plan id %s", ErrInvalidCatalog, p.ID)
		}
		c.Plans[p.ID] = p
	}

	for _, a := range doc.Addons {
		if a.PriceID == "" {
			return nil, fmt.Errorf("%w: addon without price_id", ErrInvalidCatalog)
		}
		if a.Type != AddonStorage && a.Type != AddonGalleries {
			return nil, fmt.Errorf("%w: addon %s has unknown type %q", ErrInvalidCatalog, a.PriceID, a.Type)
		}
		if _, dup := c.AddonPrices[a.PriceID]; dup {
			return nil, fmt.Errorf("%w: duplicate addon price_id %s", ErrInvalidCatalog, a.PriceID)
		}
		if _, clash := c.Plans[a.PriceID]; clash {
			return nil, fmt.Errorf("%w: price id %s is both a plan and an addon", ErrInvalidCatalog, a.PriceID)
		}
		c.AddonPrices[a.PriceID] = a
	}

	if len(c.AddonPrices) > 0 {
		if c.UnitStorageBytes <= 0 && hasAddonType(doc.Addons, AddonStorage) {
			return nil, fmt.Errorf("%w: unit_storage_bytes must be positive", ErrInvalidCatalog)
		}
		if c.UnitGalleries <= 0 && hasAddonType(doc.Addons, AddonGalleries) {
			return nil, fmt.Errorf("%w: unit_galleries must be positive", ErrInvalidCatalog)
		}
	}

	return c, nil
}

func mustBuildCatalog(doc catalogFile) *Catalog {
	c, err := buildCatalog(doc)
	if err != nil {
		panic(err)
	}
	return c
}

func hasAddonType(addons []AddonPrice, t AddonType) bool {
	for _, a := range addons {
		if a.Type == t {
			return true
		}
	}
	return false
}
