// Package resolver определяет, сколько дней лицензии даёт платёж.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/magabrotheeeer/license-reconciler/internal/lib/sl"
	"github.com/magabrotheeeer/license-reconciler/internal/models"
)

// Источники, из которых получено количество дней.
const (
	SourceProduct  = "product"
	SourceMetadata = "metadata"
	SourceLegacy   = "legacy"
)

// ProductRepository читает каталог продуктов.
type ProductRepository interface {
	GetProduct(ctx context.Context, id int) (*models.Product, error)
}

// MetadataFetcher получает metadata checkout-preference у шлюза.
type MetadataFetcher interface {
	FetchPreferenceMetadata(ctx context.Context, preferenceID string) (map[string]string, error)
}

// Resolution результат определения срока.
type Resolution struct {
	Days      int
	PlanLabel string
	ProductID *int
	Source    string
}

// Resolver перебирает источники по порядку: каталог, metadata preference, legacy-планы.
type Resolver struct {
	log      *slog.Logger
	products ProductRepository
	metadata MetadataFetcher
	plans    map[string]models.Plan
}

// New создаёт Resolver.
func New(log *slog.Logger, products ProductRepository, metadata MetadataFetcher, plans map[string]models.Plan) *Resolver {
	return &Resolver{
		log:      log,
		products: products,
		metadata: metadata,
		plans:    plans,
	}
}

// Resolve определяет количество дней по токену из external_reference и preference платежа.
// Если ни один источник не дал положительного срока, возвращается models.ErrResolutionFailure.
func (r *Resolver) Resolve(ctx context.Context, productToken, preferenceID string) (*Resolution, error) {
	const op = "resolver.Resolve"
	log := r.log.With(
		slog.String("op", op),
		slog.String("product_token", productToken),
		slog.String("preference_id", preferenceID),
	)

	var productMissing bool

	if id, err := strconv.Atoi(productToken); err == nil {
		res, err := r.fromProduct(ctx, id)
		switch {
		case errors.Is(err, models.ErrProductNotFound):
			productMissing = true
			log.Warn("product from reference not found", slog.Int("product_id", id))
		case err != nil:
			return nil, fmt.Errorf("%s: %w", op, err)
		case res != nil:
			return res, nil
		default:
			log.Warn("product has no positive duration", slog.Int("product_id", id))
		}
	}

	res, err := r.fromMetadata(ctx, productToken, preferenceID)
	if err != nil {
		if errors.Is(err, models.ErrTransientGateway) {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		if !errors.Is(err, errNoDays) && !errors.Is(err, models.ErrPermanentGateway) {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		log.Warn("preference metadata unusable", sl.Err(err))
	}
	if res != nil {
		return res, nil
	}

	if plan, ok := r.plans[strings.ToLower(productToken)]; ok && plan.Days > 0 && plan.Days <= models.MaxLicenseDays {
		return &Resolution{
			Days:      plan.Days,
			PlanLabel: productToken,
			Source:    SourceLegacy,
		}, nil
	}

	if productMissing {
		return nil, fmt.Errorf("%s: token %q: %w", op, productToken, errors.Join(models.ErrResolutionFailure, models.ErrProductNotFound))
	}
	return nil, fmt.Errorf("%s: token %q: %w", op, productToken, models.ErrResolutionFailure)
}

func (r *Resolver) fromProduct(ctx context.Context, id int) (*Resolution, error) {
	product, err := r.products.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}
	if product.DurationDays <= 0 || product.DurationDays > models.MaxLicenseDays {
		return nil, nil
	}
	productID := product.ID
	return &Resolution{
		Days:      product.DurationDays,
		PlanLabel: product.Name,
		ProductID: &productID,
		Source:    SourceProduct,
	}, nil
}

func (r *Resolver) fromMetadata(ctx context.Context, productToken, preferenceID string) (*Resolution, error) {
	if preferenceID == "" || r.metadata == nil {
		return nil, nil
	}

	raw, err := r.metadata.FetchPreferenceMetadata(ctx, preferenceID)
	if err != nil {
		return nil, err
	}

	meta, err := ParseMetadata(raw, productToken)
	if err != nil {
		return nil, err
	}

	res := &Resolution{
		Days:      meta.Days,
		PlanLabel: meta.PlanLabel,
		Source:    SourceMetadata,
	}
	if meta.ProductID != nil {
		_, err := r.products.GetProduct(ctx, *meta.ProductID)
		switch {
		case err == nil:
			res.ProductID = meta.ProductID
		case !errors.Is(err, models.ErrProductNotFound):
			return nil, err
		}
	}
	return res, nil
}
